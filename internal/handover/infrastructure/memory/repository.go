package memory

import (
	"context"
	"sync"

	handover "station-ops/internal/handover/domain"
)

// HandoverRepository is an in-memory store for handovers.
type HandoverRepository struct {
	mu   sync.RWMutex
	data map[string][]handover.StoredHandover
}

// NewHandoverRepository constructs an empty repository.
func NewHandoverRepository() *HandoverRepository {
	return &HandoverRepository{data: make(map[string][]handover.StoredHandover)}
}

// SaveHandover appends a handover for a shift.
func (r *HandoverRepository) SaveHandover(ctx context.Context, row handover.StoredHandover) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[row.ShiftID] = append(r.data[row.ShiftID], row)
	return nil
}

// ListShiftHandovers returns handovers for a shift.
func (r *HandoverRepository) ListShiftHandovers(ctx context.Context, shiftID string) ([]handover.StoredHandover, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]handover.StoredHandover(nil), r.data[shiftID]...), nil
}
