package memory

import (
	"context"
	"sync"

	readings "station-ops/internal/readings/domain"
)

// ReadingStore is an in-memory implementation of the readings repositories,
// used in tests and single-process deployments without Postgres.
type ReadingStore struct {
	mu         sync.RWMutex
	meters     map[string][]readings.NozzleMeterReading
	dips       map[string][]readings.TankDipReading
	deliveries map[string][]readings.DeliveryRecord
}

// NewReadingStore constructs an empty store.
func NewReadingStore() *ReadingStore {
	return &ReadingStore{
		meters:     make(map[string][]readings.NozzleMeterReading),
		dips:       make(map[string][]readings.TankDipReading),
		deliveries: make(map[string][]readings.DeliveryRecord),
	}
}

// InsertMeterReadings appends meter readings.
func (s *ReadingStore) InsertMeterReadings(ctx context.Context, rows []readings.NozzleMeterReading) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range rows {
		s.meters[row.ShiftID] = append(s.meters[row.ShiftID], row)
	}
	return nil
}

// ListShiftMeterReadings returns meter readings for a shift.
func (s *ReadingStore) ListShiftMeterReadings(ctx context.Context, shiftID string) ([]readings.NozzleMeterReading, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]readings.NozzleMeterReading(nil), s.meters[shiftID]...), nil
}

// InsertDipReadings appends dip readings.
func (s *ReadingStore) InsertDipReadings(ctx context.Context, rows []readings.TankDipReading) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range rows {
		s.dips[row.ShiftID+"|"+row.TankID] = append(s.dips[row.ShiftID+"|"+row.TankID], row)
	}
	return nil
}

// ListShiftDipReadings returns dip readings for a shift and tank.
func (s *ReadingStore) ListShiftDipReadings(ctx context.Context, shiftID, tankID string) ([]readings.TankDipReading, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]readings.TankDipReading(nil), s.dips[shiftID+"|"+tankID]...), nil
}

// InsertDelivery appends a delivery record.
func (s *ReadingStore) InsertDelivery(ctx context.Context, row readings.DeliveryRecord) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliveries[row.ShiftID+"|"+row.TankID] = append(s.deliveries[row.ShiftID+"|"+row.TankID], row)
	return nil
}

// ListShiftDeliveries returns deliveries for a shift and tank.
func (s *ReadingStore) ListShiftDeliveries(ctx context.Context, shiftID, tankID string) ([]readings.DeliveryRecord, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]readings.DeliveryRecord(nil), s.deliveries[shiftID+"|"+tankID]...), nil
}
