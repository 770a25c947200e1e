package readings

import (
	"context"
	"time"
)

// ReadingType distinguishes shift-opening from shift-closing meter readings.
type ReadingType string

const (
	ReadingOpening ReadingType = "OPENING"
	ReadingClosing ReadingType = "CLOSING"
)

// IsValid checks the reading type.
func (t ReadingType) IsValid() bool {
	return t == ReadingOpening || t == ReadingClosing
}

// NozzleMeterReading is one submitted meter reading for one nozzle. Both
// channels are captured together at the pump.
type NozzleMeterReading struct {
	ShiftID    string
	NozzleID   string
	TankID     string
	Type       ReadingType
	Electronic float64
	Mechanical float64
	RecordedBy string
	RecordedAt time.Time
}

// TankDipReading is one manual tank dip, captured in centimeters and carried
// with its converted liter volume.
type TankDipReading struct {
	ShiftID    string
	TankID     string
	DepthCm    float64
	Liters     float64
	RecordedBy string
	RecordedAt time.Time
}

// DeliveryRecord is one fuel drop logged during a shift. Deliveries are
// append-only.
type DeliveryRecord struct {
	ShiftID  string
	TankID   string
	At       time.Time
	Liters   float64
	Supplier string
}

// MeterReadingRepository persists nozzle meter readings.
type MeterReadingRepository interface {
	InsertMeterReadings(ctx context.Context, rows []NozzleMeterReading) error
	ListShiftMeterReadings(ctx context.Context, shiftID string) ([]NozzleMeterReading, error)
}

// TankReadingRepository persists tank dip readings.
type TankReadingRepository interface {
	InsertDipReadings(ctx context.Context, rows []TankDipReading) error
	ListShiftDipReadings(ctx context.Context, shiftID, tankID string) ([]TankDipReading, error)
}

// DeliveryRepository persists delivery records.
type DeliveryRepository interface {
	InsertDelivery(ctx context.Context, row DeliveryRecord) error
	ListShiftDeliveries(ctx context.Context, shiftID, tankID string) ([]DeliveryRecord, error)
}
