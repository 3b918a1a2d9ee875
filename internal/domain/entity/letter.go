package entity

import "time"

// LetterType is reference data for the kinds of letters the office issues.
// Soft-deactivatable; deactivation is blocked while approved requests
// reference the type.
type LetterType struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// LetterRequest is a resident's request for an official letter. It is mutated
// only through the workflow engine's transition protocol and never physically
// deleted; audit and signature linkage require permanence.
type LetterRequest struct {
	ID              string     `json:"id"`
	Status          string     `json:"status"`
	Version         int64      `json:"version"`
	LetterTypeID    string     `json:"letter_type_id"`
	LetterTypeName  string     `json:"letter_type_name,omitempty"`
	ResidentID      string     `json:"resident_id"`
	OperatorID      string     `json:"operator_id"`
	KepalaDesaID    *string    `json:"kepala_desa_id,omitempty"`
	Purpose         string     `json:"purpose"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	RejectionReason *string    `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	Signature *DigitalSignature `json:"signature,omitempty"`
}

// DigitalSignature certifies that a letter request was approved. At most one
// exists per request, created in the same transaction as the approval.
type DigitalSignature struct {
	ID                string    `json:"id"`
	LetterRequestID   string    `json:"letter_request_id"`
	SignatureImageRef string    `json:"signature_image_ref"`
	DocumentHash      string    `json:"document_hash"`
	QRCodeRef         string    `json:"qr_code_ref"`
	CreatedAt         time.Time `json:"created_at"`
}
