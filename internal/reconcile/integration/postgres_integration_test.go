package integration_test

import (
	"context"
	"database/sql"
	"math"
	"os"
	"testing"
	"time"

	readings "station-ops/internal/readings/domain"
	readingspostgres "station-ops/internal/readings/infrastructure/postgres"
	reconcile "station-ops/internal/reconcile/domain"
	reconcilepostgres "station-ops/internal/reconcile/infrastructure/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func TestReadingsRoundTrip_Postgres(t *testing.T) {
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if !tableExists(db, "nozzle_meter_readings") {
		t.Skip("nozzle_meter_readings missing; run migrations")
	}

	ctx := context.Background()
	shiftID := "shift-it-readings"
	recordedAt := time.Date(2026, time.March, 4, 6, 0, 0, 0, time.UTC)

	_, _ = db.ExecContext(ctx, "DELETE FROM nozzle_meter_readings WHERE shift_id = $1", shiftID)
	_, _ = db.ExecContext(ctx, "DELETE FROM tank_dip_readings WHERE shift_id = $1", shiftID)
	_, _ = db.ExecContext(ctx, "DELETE FROM fuel_deliveries WHERE shift_id = $1", shiftID)

	repo := readingspostgres.NewReadingRepository(db)

	rows := []readings.NozzleMeterReading{
		{ShiftID: shiftID, NozzleID: "N1", TankID: "T1", Type: readings.ReadingOpening, Electronic: 12000, Mechanical: 12010, RecordedBy: "att-1", RecordedAt: recordedAt},
		{ShiftID: shiftID, NozzleID: "N1", TankID: "T1", Type: readings.ReadingClosing, Electronic: 12800, Mechanical: 12805, RecordedBy: "att-1", RecordedAt: recordedAt.Add(8 * time.Hour)},
	}
	if err := repo.InsertMeterReadings(ctx, rows); err != nil {
		t.Fatalf("insert meter readings: %v", err)
	}

	// Resubmitting overwrites rather than duplicating.
	rows[1].Electronic = 12810
	if err := repo.InsertMeterReadings(ctx, rows[1:]); err != nil {
		t.Fatalf("resubmit closing reading: %v", err)
	}

	stored, err := repo.ListShiftMeterReadings(ctx, shiftID)
	if err != nil {
		t.Fatalf("list meter readings: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("expected 2 meter readings, got %d", len(stored))
	}
	if stored[0].Type != readings.ReadingClosing || stored[0].Electronic != 12810 {
		t.Fatalf("closing reading not overwritten: %+v", stored[0])
	}

	if err := repo.InsertDipReadings(ctx, []readings.TankDipReading{
		{ShiftID: shiftID, TankID: "T1", DepthCm: 120, Liters: 12000, RecordedBy: "att-1", RecordedAt: recordedAt},
		{ShiftID: shiftID, TankID: "T1", DepthCm: 112, Liters: 11200, RecordedBy: "att-1", RecordedAt: recordedAt.Add(8 * time.Hour)},
	}); err != nil {
		t.Fatalf("insert dip readings: %v", err)
	}
	dips, err := repo.ListShiftDipReadings(ctx, shiftID, "T1")
	if err != nil {
		t.Fatalf("list dip readings: %v", err)
	}
	if len(dips) != 2 || dips[0].Liters != 12000 || dips[1].Liters != 11200 {
		t.Fatalf("unexpected dip readings: %+v", dips)
	}

	if err := repo.InsertDelivery(ctx, readings.DeliveryRecord{
		ShiftID: shiftID, TankID: "T1", At: recordedAt.Add(3 * time.Hour), Liters: 5000, Supplier: "depot-a",
	}); err != nil {
		t.Fatalf("insert delivery: %v", err)
	}
	deliveries, err := repo.ListShiftDeliveries(ctx, shiftID, "T1")
	if err != nil {
		t.Fatalf("list deliveries: %v", err)
	}
	if len(deliveries) != 1 || deliveries[0].Liters != 5000 {
		t.Fatalf("unexpected deliveries: %+v", deliveries)
	}
}

func TestReconciliationRoundTrip_Postgres(t *testing.T) {
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if !tableExists(db, "tank_reconciliations") {
		t.Skip("tank_reconciliations missing; run migrations")
	}

	ctx := context.Background()
	shiftID := "shift-it-reconcile"
	_, _ = db.ExecContext(ctx, "DELETE FROM tank_reconciliations WHERE shift_id = $1", shiftID)

	repo := reconcilepostgres.NewResultRepository(db)

	opening, closing := 12000.0, 11200.0
	result, err := reconcile.ReconcileTankShift(reconcile.TankShiftInput{
		TankID:           "T1",
		ShiftStart:       time.Date(2026, time.March, 4, 6, 0, 0, 0, time.UTC),
		ShiftEnd:         time.Date(2026, time.March, 4, 14, 0, 0, 0, time.UTC),
		OpeningDipLiters: &opening,
		ClosingDipLiters: &closing,
		Nozzles: []reconcile.NozzleDispenseResult{
			{NozzleID: "N1", TankID: "T1", ElectronicVolume: 795, Valid: true},
			{NozzleID: "N2", TankID: "T1", Valid: false, Reason: reconcile.ErrMissingReading},
		},
	})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	if err := repo.SaveReconciliation(ctx, shiftID, result); err != nil {
		t.Fatalf("save reconciliation: %v", err)
	}
	// Saving again overwrites.
	if err := repo.SaveReconciliation(ctx, shiftID, result); err != nil {
		t.Fatalf("resave reconciliation: %v", err)
	}

	stored, err := repo.ListShiftReconciliations(ctx, shiftID)
	if err != nil {
		t.Fatalf("list reconciliations: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("expected 1 stored reconciliation, got %d", len(stored))
	}
	got := stored[0].Result
	if got.Verdict != result.Verdict {
		t.Fatalf("verdict mismatch: got=%s want=%s", got.Verdict, result.Verdict)
	}
	if math.Abs(got.VariancePercent-result.VariancePercent) > 1e-9 {
		t.Fatalf("variance mismatch: got=%v want=%v", got.VariancePercent, result.VariancePercent)
	}
	if len(got.ExcludedNozzles) != 1 || got.ExcludedNozzles[0].NozzleID != "N2" {
		t.Fatalf("exclusions lost in storage: %+v", got.ExcludedNozzles)
	}
	if got.ExcludedNozzles[0].Reason == nil {
		t.Fatalf("exclusion reason lost in storage")
	}
}

func tableExists(db *sql.DB, table string) bool {
	var exists bool
	err := db.QueryRow(`
SELECT EXISTS (
	SELECT 1
	FROM information_schema.tables
	WHERE table_schema = 'public' AND table_name = $1
)`, table).Scan(&exists)
	if err != nil {
		return false
	}
	return exists
}
