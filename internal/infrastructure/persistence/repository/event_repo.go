package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/siades/backend/internal/application/port"
	"github.com/siades/backend/internal/domain/entity"
	"github.com/siades/backend/internal/infrastructure/persistence/sqlite"
)

// PopulationEventRepository implements port.PopulationEventRepository over sqlite
type PopulationEventRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPopulationEventRepository creates a new population event repository
func NewPopulationEventRepository(db *sql.DB, logger *zap.Logger) port.PopulationEventRepository {
	return &PopulationEventRepository{db: db, logger: logger}
}

func (r *PopulationEventRepository) Create(ctx context.Context, ev *entity.PopulationEvent) error {
	query := `
		INSERT INTO population_events (id, event_type, resident_id, created_by_id, event_date)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		ev.ID, ev.EventType, ev.ResidentID, ev.CreatedByID, ev.EventDate,
	)
	if err != nil {
		r.logger.Error("Failed to create population event",
			zap.String("event_type", ev.EventType),
			zap.String("resident_id", ev.ResidentID),
			zap.Error(err))
		return fmt.Errorf("failed to create population event: %w", err)
	}
	return nil
}

func (r *PopulationEventRepository) FindByDateRange(ctx context.Context, start, end time.Time) ([]*entity.PopulationEvent, error) {
	query := `
		SELECT id, event_type, resident_id, created_by_id, event_date, created_at
		FROM population_events
		WHERE event_date >= ? AND event_date <= ?
		ORDER BY event_date ASC
	`

	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, start, end)
	if err != nil {
		r.logger.Error("Failed to find population events", zap.Error(err))
		return nil, fmt.Errorf("failed to find population events: %w", err)
	}
	defer rows.Close()

	var events []*entity.PopulationEvent
	for rows.Next() {
		var ev entity.PopulationEvent
		err := rows.Scan(&ev.ID, &ev.EventType, &ev.ResidentID, &ev.CreatedByID, &ev.EventDate, &ev.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan population event: %w", err)
		}
		events = append(events, &ev)
	}

	return events, rows.Err()
}

// Verify interface compliance
var _ port.PopulationEventRepository = (*PopulationEventRepository)(nil)
