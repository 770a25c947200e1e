package reconcile

import (
	"context"
	"time"
)

// StoredReconciliation is a persisted reconciliation result with its shift
// context. The computation itself is stateless; storage exists for audit and
// reporting.
type StoredReconciliation struct {
	ShiftID   string
	Result    TankShiftReconciliation
	CreatedAt time.Time
}

// Repository persists reconciliation results.
type Repository interface {
	SaveReconciliation(ctx context.Context, shiftID string, result TankShiftReconciliation) error
	ListShiftReconciliations(ctx context.Context, shiftID string) ([]StoredReconciliation, error)
}
