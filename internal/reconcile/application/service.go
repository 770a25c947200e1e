package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"station-ops/internal/eventbus"
	readings "station-ops/internal/readings/domain"
	reconcile "station-ops/internal/reconcile/domain"
)

// DipConverter converts a dip depth in centimeters to liters for a tank.
type DipConverter interface {
	Liters(tankID string, depthCm float64) (float64, error)
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Service orchestrates reading submission and tank reconciliation. All
// numeric work happens in the domain package; the service gathers inputs,
// persists outputs and publishes events.
type Service struct {
	meters     readings.MeterReadingRepository
	tanks      readings.TankReadingRepository
	deliveries readings.DeliveryRepository
	results    reconcile.Repository
	dip        DipConverter
	cfg        Config
	bus        *eventbus.Bus
	clock      Clock
	logger     *log.Logger
}

// NewService constructs the reconciliation service.
func NewService(
	meters readings.MeterReadingRepository,
	tanks readings.TankReadingRepository,
	deliveries readings.DeliveryRepository,
	results reconcile.Repository,
	dip DipConverter,
	cfg Config,
	bus *eventbus.Bus,
	clock Clock,
	logger *log.Logger,
) (*Service, error) {
	if meters == nil {
		return nil, errors.New("reconcile service: nil meter reading repository")
	}
	if tanks == nil {
		return nil, errors.New("reconcile service: nil tank reading repository")
	}
	if deliveries == nil {
		return nil, errors.New("reconcile service: nil delivery repository")
	}
	if results == nil {
		return nil, errors.New("reconcile service: nil result repository")
	}
	if dip == nil {
		return nil, errors.New("reconcile service: nil dip converter")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		meters:     meters,
		tanks:      tanks,
		deliveries: deliveries,
		results:    results,
		dip:        dip,
		cfg:        cfg,
		bus:        bus,
		clock:      clock,
		logger:     logger,
	}, nil
}

// SubmitMeterReadings stores nozzle meter readings and returns the dispense
// preview for every nozzle that now has both an opening and a closing in the
// shift. The preview carries the requires-note flag the submission workflow
// acts on.
func (s *Service) SubmitMeterReadings(ctx context.Context, rows []readings.NozzleMeterReading) ([]reconcile.NozzleDispenseResult, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	shiftID := rows[0].ShiftID
	for i := range rows {
		if rows[i].ShiftID == "" || rows[i].NozzleID == "" {
			return nil, fmt.Errorf("meter reading %d: missing shift or nozzle id", i)
		}
		if rows[i].ShiftID != shiftID {
			return nil, fmt.Errorf("meter reading %d: mixed shift ids in one submission", i)
		}
		if !rows[i].Type.IsValid() {
			return nil, fmt.Errorf("meter reading %d: invalid reading type %q", i, rows[i].Type)
		}
		if rows[i].RecordedAt.IsZero() {
			rows[i].RecordedAt = s.clock.Now()
		}
	}
	if err := s.meters.InsertMeterReadings(ctx, rows); err != nil {
		return nil, err
	}

	stored, err := s.meters.ListShiftMeterReadings(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	return s.dispenseResults(stored, ""), nil
}

// SubmitDipReading converts a dip depth to liters and stores the reading.
func (s *Service) SubmitDipReading(ctx context.Context, row readings.TankDipReading) (readings.TankDipReading, error) {
	if row.ShiftID == "" || row.TankID == "" {
		return row, errors.New("dip reading: missing shift or tank id")
	}
	liters, err := s.dip.Liters(row.TankID, row.DepthCm)
	if err != nil {
		return row, err
	}
	row.Liters = liters
	if row.RecordedAt.IsZero() {
		row.RecordedAt = s.clock.Now()
	}
	if err := s.tanks.InsertDipReadings(ctx, []readings.TankDipReading{row}); err != nil {
		return row, err
	}
	return row, nil
}

// RecordDelivery appends a delivery event for a tank.
func (s *Service) RecordDelivery(ctx context.Context, row readings.DeliveryRecord) error {
	if row.ShiftID == "" || row.TankID == "" {
		return errors.New("delivery: missing shift or tank id")
	}
	if row.Liters <= 0 {
		return reconcile.ErrInvalidReading
	}
	if row.At.IsZero() {
		row.At = s.clock.Now()
	}
	return s.deliveries.InsertDelivery(ctx, row)
}

// ValidateThreeWay converts the dip depth and validates one reading event
// against the fixed three-way tolerance.
func (s *Service) ValidateThreeWay(ctx context.Context, shiftID, tankID string, mechanical, electronic, dipCm float64) (reconcile.ThreeWayReading, error) {
	liters, err := s.dip.Liters(tankID, dipCm)
	if err != nil {
		return reconcile.ThreeWayReading{}, err
	}
	reading, err := reconcile.ValidateThreeWay(mechanical, electronic, liters, reconcile.ThreeWayTolerancePercent)
	if err != nil {
		return reconcile.ThreeWayReading{}, err
	}
	s.publish(ctx, ThreeWayValidated{
		ShiftID:        shiftID,
		TankID:         tankID,
		MaxDiscrepancy: reading.MaxDiscrepancy,
		Verdict:        reading.Verdict,
		OccurredAt:     s.clock.Now(),
	})
	return reading, nil
}

// ReconcileTank runs the full shift reconciliation for one tank: nozzle
// dispense aggregation against delivery-adjusted tank movement, plus
// delivery-bounded segmentation when dip samples allow it. The result is
// persisted and a completion event published.
func (s *Service) ReconcileTank(ctx context.Context, shiftID, tankID string, shiftStart, shiftEnd time.Time) (reconcile.TankShiftReconciliation, error) {
	if shiftID == "" {
		return reconcile.TankShiftReconciliation{}, errors.New("reconcile service: empty shift id")
	}

	meterRows, err := s.meters.ListShiftMeterReadings(ctx, shiftID)
	if err != nil {
		return reconcile.TankShiftReconciliation{}, err
	}
	dipRows, err := s.tanks.ListShiftDipReadings(ctx, shiftID, tankID)
	if err != nil {
		return reconcile.TankShiftReconciliation{}, err
	}
	deliveryRows, err := s.deliveries.ListShiftDeliveries(ctx, shiftID, tankID)
	if err != nil {
		return reconcile.TankShiftReconciliation{}, err
	}

	input := reconcile.TankShiftInput{
		TankID:     tankID,
		ShiftStart: shiftStart,
		ShiftEnd:   shiftEnd,
		Nozzles:    s.dispenseResults(meterRows, tankID),
	}
	applyDipRows(&input, dipRows)
	for _, row := range deliveryRows {
		input.Deliveries = append(input.Deliveries, reconcile.Delivery{At: row.At, Liters: row.Liters, Supplier: row.Supplier})
	}

	result, err := reconcile.ReconcileTankShift(input)
	if err != nil {
		return reconcile.TankShiftReconciliation{}, err
	}
	if err := s.results.SaveReconciliation(ctx, shiftID, result); err != nil {
		return reconcile.TankShiftReconciliation{}, err
	}

	if !result.Complete() {
		s.logger.Printf("reconcile: shift=%s tank=%s excluded %d invalid nozzle result(s)", shiftID, tankID, len(result.ExcludedNozzles))
	}
	s.publish(ctx, ReconciliationCompleted{
		ShiftID:         shiftID,
		TankID:          tankID,
		Verdict:         result.Verdict,
		VarianceLiters:  result.VarianceLiters,
		VariancePercent: result.VariancePercent,
		DataSource:      result.DataSource,
		Complete:        result.Complete(),
		OccurredAt:      s.clock.Now(),
	})
	return result, nil
}

// ShiftDispenseResults recomputes dispense results for a shift from the
// stored meter readings.
func (s *Service) ShiftDispenseResults(ctx context.Context, shiftID string) ([]reconcile.NozzleDispenseResult, error) {
	rows, err := s.meters.ListShiftMeterReadings(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	return s.dispenseResults(rows, ""), nil
}

// ListReconciliations returns stored results for a shift.
func (s *Service) ListReconciliations(ctx context.Context, shiftID string) ([]reconcile.StoredReconciliation, error) {
	return s.results.ListShiftReconciliations(ctx, shiftID)
}

// dispenseResults pairs stored opening/closing readings per nozzle and runs
// the dispense calculation. Nozzles missing either reading yield an invalid
// result so callers always see the full nozzle set. When tankID is non-empty
// only that tank's nozzles are considered.
func (s *Service) dispenseResults(rows []readings.NozzleMeterReading, tankID string) []reconcile.NozzleDispenseResult {
	type pairing struct {
		tankID  string
		opening *readings.NozzleMeterReading
		closing *readings.NozzleMeterReading
	}
	byNozzle := make(map[string]*pairing)
	for i := range rows {
		row := rows[i]
		if tankID != "" && row.TankID != tankID {
			continue
		}
		entry := byNozzle[row.NozzleID]
		if entry == nil {
			entry = &pairing{tankID: row.TankID}
			byNozzle[row.NozzleID] = entry
		}
		switch row.Type {
		case readings.ReadingOpening:
			if entry.opening == nil || row.RecordedAt.After(entry.opening.RecordedAt) {
				entry.opening = &rows[i]
			}
		case readings.ReadingClosing:
			if entry.closing == nil || row.RecordedAt.After(entry.closing.RecordedAt) {
				entry.closing = &rows[i]
			}
		}
	}

	nozzleIDs := make([]string, 0, len(byNozzle))
	for id := range byNozzle {
		nozzleIDs = append(nozzleIDs, id)
	}
	sort.Strings(nozzleIDs)

	results := make([]reconcile.NozzleDispenseResult, 0, len(nozzleIDs))
	for _, id := range nozzleIDs {
		entry := byNozzle[id]
		threshold := s.cfg.TolerancesForTank(entry.tankID).MeterDiscrepancyPercent
		reading := reconcile.NozzleReading{NozzleID: id, TankID: entry.tankID}
		if entry.opening != nil {
			reading.Electronic.Opening = entry.opening.Electronic
			reading.Mechanical.Opening = entry.opening.Mechanical
			if entry.closing != nil {
				electronic := entry.closing.Electronic
				mechanical := entry.closing.Mechanical
				reading.Electronic.Closing = &electronic
				reading.Mechanical.Closing = &mechanical
			}
		}
		results = append(results, reconcile.ComputeNozzleDispense(reading, threshold))
	}
	return results
}

func applyDipRows(input *reconcile.TankShiftInput, rows []readings.TankDipReading) {
	ordered := append([]readings.TankDipReading(nil), rows...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].RecordedAt.Before(ordered[j].RecordedAt) })
	for _, row := range ordered {
		input.DipSamples = append(input.DipSamples, reconcile.DipSample{At: row.RecordedAt, Liters: row.Liters})
	}
	if len(ordered) == 0 {
		return
	}
	opening := ordered[0].Liters
	closing := ordered[len(ordered)-1].Liters
	input.OpeningDipLiters = &opening
	if len(ordered) > 1 {
		input.ClosingDipLiters = &closing
		input.ClosingDipAt = ordered[len(ordered)-1].RecordedAt
	}
}

func (s *Service) publish(ctx context.Context, event any) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, event); err != nil {
		s.logger.Printf("reconcile: publish %T: %v", event, err)
	}
}
