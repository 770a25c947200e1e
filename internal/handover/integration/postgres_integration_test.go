package integration_test

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	handover "station-ops/internal/handover/domain"
	handoverpostgres "station-ops/internal/handover/infrastructure/postgres"
	reconcile "station-ops/internal/reconcile/domain"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func TestHandoverRoundTrip_Postgres(t *testing.T) {
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if !tableExists(db, "shift_handovers") {
		t.Skip("shift_handovers missing; run migrations")
	}

	ctx := context.Background()
	shiftID := "shift-it-handover"
	_, _ = db.ExecContext(ctx, "DELETE FROM shift_handovers WHERE shift_id = $1", shiftID)

	repo := handoverpostgres.NewHandoverRepository(db)

	result := handover.ComputeHandover(handover.HandoverInput{
		AttendantID: "att-1",
		Nozzles: []handover.NozzleSale{
			{
				Result:        reconcile.NozzleDispenseResult{NozzleID: "N1", TankID: "T1", ElectronicVolume: 800, Valid: true},
				PricePerLiter: decimal.RequireFromString("6.25"),
			},
		},
		Lubricants: []handover.StockItemCount{
			{ItemID: "oil-1l", Opening: 20, Additions: 0, Closing: 14, UnitPrice: decimal.RequireFromString("50")},
		},
		CreditSales: decimal.RequireFromString("200"),
		ActualCash:  decimal.RequireFromString("5050"),
	})

	row := handover.StoredHandover{
		ShiftID:   shiftID,
		Result:    result,
		Status:    handover.StatusShortage,
		CreatedAt: time.Date(2026, time.March, 4, 14, 5, 0, 0, time.UTC),
	}
	if err := repo.SaveHandover(ctx, row); err != nil {
		t.Fatalf("save handover: %v", err)
	}
	// Re-submission overwrites.
	if err := repo.SaveHandover(ctx, row); err != nil {
		t.Fatalf("resave handover: %v", err)
	}

	stored, err := repo.ListShiftHandovers(ctx, shiftID)
	if err != nil {
		t.Fatalf("list handovers: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("expected 1 stored handover, got %d", len(stored))
	}
	got := stored[0]
	if got.Status != handover.StatusShortage {
		t.Fatalf("status mismatch: got=%s", got.Status)
	}
	if !got.Result.ExpectedCash.Equal(result.ExpectedCash) {
		t.Fatalf("expected cash mismatch: got=%s want=%s", got.Result.ExpectedCash, result.ExpectedCash)
	}
	if !got.Result.Difference.Equal(result.Difference) {
		t.Fatalf("difference mismatch: got=%s want=%s", got.Result.Difference, result.Difference)
	}
	if len(got.Result.Lubricant) != 1 || got.Result.Lubricant[0].Sold != 6 {
		t.Fatalf("lubricant movement lost in storage: %+v", got.Result.Lubricant)
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
