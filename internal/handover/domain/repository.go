package handover

import (
	"context"
	"time"
)

// Status is assigned by the submission workflow from the signed difference.
type Status string

const (
	StatusBalanced Status = "BALANCED"
	StatusSurplus  Status = "SURPLUS"
	StatusShortage Status = "SHORTAGE"
)

// StoredHandover is a persisted handover with its shift context.
type StoredHandover struct {
	ShiftID   string
	Result    HandoverResult
	Status    Status
	CreatedAt time.Time
}

// Repository persists handover results.
type Repository interface {
	SaveHandover(ctx context.Context, row StoredHandover) error
	ListShiftHandovers(ctx context.Context, shiftID string) ([]StoredHandover, error)
}
