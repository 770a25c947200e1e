package postgres

import (
	"context"
	"database/sql"
	"errors"

	readings "station-ops/internal/readings/domain"
)

// ReadingRepository is a Postgres implementation of the readings
// repositories.
type ReadingRepository struct {
	db *sql.DB
}

// NewReadingRepository constructs a repository.
func NewReadingRepository(db *sql.DB) *ReadingRepository {
	return &ReadingRepository{db: db}
}

// InsertMeterReadings upserts nozzle meter readings. Re-submitting the same
// shift/nozzle/type overwrites the previous values; corrections at the pump
// are normal before a shift is closed out.
func (r *ReadingRepository) InsertMeterReadings(ctx context.Context, rows []readings.NozzleMeterReading) error {
	if r == nil || r.db == nil {
		return errors.New("readings repo: nil db")
	}
	if len(rows) == 0 {
		return nil
	}

	const query = `
INSERT INTO nozzle_meter_readings (
	shift_id, nozzle_id, tank_id, reading_type, electronic, mechanical, recorded_by, recorded_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8
)
ON CONFLICT (shift_id, nozzle_id, reading_type)
DO UPDATE SET
	electronic = EXCLUDED.electronic,
	mechanical = EXCLUDED.mechanical,
	recorded_by = EXCLUDED.recorded_by,
	recorded_at = EXCLUDED.recorded_at`

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx,
			row.ShiftID, row.NozzleID, row.TankID, string(row.Type),
			row.Electronic, row.Mechanical, row.RecordedBy, row.RecordedAt.UTC(),
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// ListShiftMeterReadings returns all meter readings for a shift.
func (r *ReadingRepository) ListShiftMeterReadings(ctx context.Context, shiftID string) ([]readings.NozzleMeterReading, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("readings repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT shift_id, nozzle_id, tank_id, reading_type, electronic, mechanical, recorded_by, recorded_at
FROM nozzle_meter_readings
WHERE shift_id = $1
ORDER BY nozzle_id ASC, reading_type ASC`, shiftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []readings.NozzleMeterReading
	for rows.Next() {
		var row readings.NozzleMeterReading
		var typ string
		if err := rows.Scan(&row.ShiftID, &row.NozzleID, &row.TankID, &typ, &row.Electronic, &row.Mechanical, &row.RecordedBy, &row.RecordedAt); err != nil {
			return nil, err
		}
		row.Type = readings.ReadingType(typ)
		row.RecordedAt = row.RecordedAt.UTC()
		result = append(result, row)
	}
	return result, rows.Err()
}

// InsertDipReadings appends tank dip readings.
func (r *ReadingRepository) InsertDipReadings(ctx context.Context, rows []readings.TankDipReading) error {
	if r == nil || r.db == nil {
		return errors.New("readings repo: nil db")
	}
	for _, row := range rows {
		if _, err := r.db.ExecContext(ctx, `
INSERT INTO tank_dip_readings (
	shift_id, tank_id, depth_cm, liters, recorded_by, recorded_at
) VALUES ($1, $2, $3, $4, $5, $6)`,
			row.ShiftID, row.TankID, row.DepthCm, row.Liters, row.RecordedBy, row.RecordedAt.UTC(),
		); err != nil {
			return err
		}
	}
	return nil
}

// ListShiftDipReadings returns dip readings for a shift and tank in time
// order.
func (r *ReadingRepository) ListShiftDipReadings(ctx context.Context, shiftID, tankID string) ([]readings.TankDipReading, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("readings repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT shift_id, tank_id, depth_cm, liters, recorded_by, recorded_at
FROM tank_dip_readings
WHERE shift_id = $1 AND tank_id = $2
ORDER BY recorded_at ASC`, shiftID, tankID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []readings.TankDipReading
	for rows.Next() {
		var row readings.TankDipReading
		if err := rows.Scan(&row.ShiftID, &row.TankID, &row.DepthCm, &row.Liters, &row.RecordedBy, &row.RecordedAt); err != nil {
			return nil, err
		}
		row.RecordedAt = row.RecordedAt.UTC()
		result = append(result, row)
	}
	return result, rows.Err()
}

// InsertDelivery appends a delivery record.
func (r *ReadingRepository) InsertDelivery(ctx context.Context, row readings.DeliveryRecord) error {
	if r == nil || r.db == nil {
		return errors.New("readings repo: nil db")
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO fuel_deliveries (
	shift_id, tank_id, delivered_at, liters, supplier
) VALUES ($1, $2, $3, $4, $5)`,
		row.ShiftID, row.TankID, row.At.UTC(), row.Liters, row.Supplier)
	return err
}

// ListShiftDeliveries returns deliveries for a shift and tank in time order.
func (r *ReadingRepository) ListShiftDeliveries(ctx context.Context, shiftID, tankID string) ([]readings.DeliveryRecord, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("readings repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT shift_id, tank_id, delivered_at, liters, supplier
FROM fuel_deliveries
WHERE shift_id = $1 AND tank_id = $2
ORDER BY delivered_at ASC`, shiftID, tankID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []readings.DeliveryRecord
	for rows.Next() {
		var row readings.DeliveryRecord
		if err := rows.Scan(&row.ShiftID, &row.TankID, &row.At, &row.Liters, &row.Supplier); err != nil {
			return nil, err
		}
		row.At = row.At.UTC()
		result = append(result, row)
	}
	return result, rows.Err()
}
