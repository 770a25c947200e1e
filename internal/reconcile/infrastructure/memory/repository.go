package memory

import (
	"context"
	"sync"
	"time"

	reconcile "station-ops/internal/reconcile/domain"
)

// ResultRepository is an in-memory store for reconciliation results.
type ResultRepository struct {
	mu   sync.RWMutex
	data map[string][]reconcile.StoredReconciliation
}

// NewResultRepository constructs an empty repository.
func NewResultRepository() *ResultRepository {
	return &ResultRepository{data: make(map[string][]reconcile.StoredReconciliation)}
}

// SaveReconciliation appends a result for a shift.
func (r *ResultRepository) SaveReconciliation(ctx context.Context, shiftID string, result reconcile.TankShiftReconciliation) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[shiftID] = append(r.data[shiftID], reconcile.StoredReconciliation{
		ShiftID:   shiftID,
		Result:    result,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

// ListShiftReconciliations returns results for a shift.
func (r *ResultRepository) ListShiftReconciliations(ctx context.Context, shiftID string) ([]reconcile.StoredReconciliation, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]reconcile.StoredReconciliation(nil), r.data[shiftID]...), nil
}
