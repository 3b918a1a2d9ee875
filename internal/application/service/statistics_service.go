package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/siades/backend/internal/application/port"
	"github.com/siades/backend/internal/domain/entity"
)

// EventTotals aggregates population events by type
type EventTotals struct {
	Birth   int `json:"birth"`
	Death   int `json:"death"`
	MoveIn  int `json:"move_in"`
	MoveOut int `json:"move_out"`
}

// MonthlyBucket holds per-month event totals
type MonthlyBucket struct {
	Month int `json:"month"`
	EventTotals
}

// StatisticsSummary is the yearly demographic summary
type StatisticsSummary struct {
	Year    int             `json:"year"`
	Totals  EventTotals     `json:"totals"`
	Monthly []MonthlyBucket `json:"monthly"`
}

// StatisticsService aggregates population events into yearly summaries
type StatisticsService interface {
	Summary(ctx context.Context, year int) (*StatisticsSummary, error)
}

type statisticsService struct {
	events port.PopulationEventRepository
	logger *zap.Logger
}

// NewStatisticsService creates a new StatisticsService
func NewStatisticsService(events port.PopulationEventRepository, logger *zap.Logger) StatisticsService {
	return &statisticsService{events: events, logger: logger}
}

// Summary returns per-type totals and monthly buckets for the given year.
// Year zero means the current year.
func (s *statisticsService) Summary(ctx context.Context, year int) (*StatisticsSummary, error) {
	if year == 0 {
		year = time.Now().Year()
	}

	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.December, 31, 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)

	events, err := s.events.FindByDateRange(ctx, start, end)
	if err != nil {
		return nil, err
	}

	summary := &StatisticsSummary{Year: year}
	summary.Monthly = make([]MonthlyBucket, 12)
	for i := range summary.Monthly {
		summary.Monthly[i].Month = i + 1
	}

	for _, ev := range events {
		month := int(ev.EventDate.Month()) - 1
		bump(&summary.Totals, ev.EventType)
		bump(&summary.Monthly[month].EventTotals, ev.EventType)
	}

	return summary, nil
}

func bump(totals *EventTotals, eventType string) {
	switch eventType {
	case entity.EventTypeBirth:
		totals.Birth++
	case entity.EventTypeDeath:
		totals.Death++
	case entity.EventTypeMoveIn:
		totals.MoveIn++
	case entity.EventTypeMoveOut:
		totals.MoveOut++
	}
}
