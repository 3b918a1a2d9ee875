package entity

import "time"

// Life status values for a resident
const (
	LifeStatusAlive    = "alive"
	LifeStatusDeceased = "deceased"
)

// Domicile status values for a resident
const (
	DomicileStatusPermanent = "permanent"
	DomicileStatusMovedIn   = "moved_in"
	DomicileStatusMovedOut  = "moved_out"
)

// Population event types
const (
	EventTypeBirth   = "birth"
	EventTypeDeath   = "death"
	EventTypeMoveIn  = "move_in"
	EventTypeMoveOut = "move_out"
)

// Family is a registered household (kartu keluarga)
type Family struct {
	ID        string    `json:"id"`
	NoKK      string    `json:"no_kk"`
	Address   string    `json:"address"`
	RT        string    `json:"rt"`
	RW        string    `json:"rw"`
	Dusun     string    `json:"dusun"`
	CreatedAt time.Time `json:"created_at"`
}

// Resident is a registered inhabitant. Soft-deactivated, never deleted.
type Resident struct {
	ID             string    `json:"id"`
	NIK            string    `json:"nik"`
	FullName       string    `json:"full_name"`
	BirthPlace     string    `json:"birth_place"`
	BirthDate      time.Time `json:"birth_date"`
	Gender         string    `json:"gender"`
	Religion       string    `json:"religion"`
	Education      string    `json:"education"`
	Occupation     string    `json:"occupation"`
	MaritalStatus  string    `json:"marital_status"`
	LifeStatus     string    `json:"life_status"`
	DomicileStatus string    `json:"domicile_status"`
	Phone          string    `json:"phone,omitempty"`
	FamilyID       string    `json:"family_id"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// PopulationEvent records a demographic event for a resident
type PopulationEvent struct {
	ID          string    `json:"id"`
	EventType   string    `json:"event_type"`
	ResidentID  string    `json:"resident_id"`
	CreatedByID string    `json:"created_by_id"`
	EventDate   time.Time `json:"event_date"`
	CreatedAt   time.Time `json:"created_at"`
}
