package handover

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestMovementFor_Basic(t *testing.T) {
	movement := MovementFor(StockItemCount{
		ItemID:    "oil-1l",
		Opening:   24,
		Additions: 12,
		Closing:   30,
		UnitPrice: decimal.NewFromInt(9),
	})
	if movement.Sold != 6 {
		t.Fatalf("expected 6 sold, got %d", movement.Sold)
	}
	if !movement.Value.Equal(decimal.NewFromInt(54)) {
		t.Fatalf("expected value 54, got %s", movement.Value)
	}
	if movement.CountSuspect {
		t.Fatalf("expected clean count")
	}
}

func TestMovementFor_NegativeRawSaleFlooredAndFlagged(t *testing.T) {
	movement := MovementFor(StockItemCount{
		ItemID:    "wiper-fluid",
		Opening:   10,
		Closing:   12,
		UnitPrice: decimal.NewFromInt(5),
	})
	if movement.Sold != 0 {
		t.Fatalf("expected zero sold, got %d", movement.Sold)
	}
	if !movement.Value.IsZero() {
		t.Fatalf("expected zero value, got %s", movement.Value)
	}
	if !movement.CountSuspect {
		t.Fatalf("expected suspect count to be flagged")
	}
}

func TestLPGMovementFor_ConsistentSplit(t *testing.T) {
	movement := LPGMovementFor(LPGCylinderCount{
		SizeKg:            12,
		OpeningFull:       20,
		Additions:         10,
		ClosingFull:       5,
		SoldRefill:        15,
		SoldWithCylinder:  10,
		RefillPrice:       decimal.NewFromInt(22),
		WithCylinderPrice: decimal.NewFromInt(65),
	})
	if movement.TotalSold != 25 {
		t.Fatalf("expected total sold 25, got %d", movement.TotalSold)
	}
	if !movement.SplitValid {
		t.Fatalf("expected valid split")
	}
	want := decimal.NewFromInt(15*22 + 10*65)
	if !movement.Value.Equal(want) {
		t.Fatalf("expected value %s, got %s", want, movement.Value)
	}
}

func TestLPGMovementFor_InconsistentSplitReportedNotCorrected(t *testing.T) {
	movement := LPGMovementFor(LPGCylinderCount{
		SizeKg:            12,
		OpeningFull:       20,
		Additions:         10,
		ClosingFull:       5,
		SoldRefill:        14,
		SoldWithCylinder:  10,
		RefillPrice:       decimal.NewFromInt(22),
		WithCylinderPrice: decimal.NewFromInt(65),
	})
	if movement.SplitValid {
		t.Fatalf("expected invalid split for 14+10 against total 25")
	}
	// Value still uses the supplied split.
	want := decimal.NewFromInt(14*22 + 10*65)
	if !movement.Value.Equal(want) {
		t.Fatalf("expected value %s from supplied split, got %s", want, movement.Value)
	}
}

func TestLPGMovementFor_NoSalesVacuouslyValid(t *testing.T) {
	movement := LPGMovementFor(LPGCylinderCount{SizeKg: 6, OpeningFull: 8, ClosingFull: 8})
	if movement.TotalSold != 0 {
		t.Fatalf("expected zero total sold, got %d", movement.TotalSold)
	}
	if !movement.SplitValid {
		t.Fatalf("expected split check to be skipped when nothing sold")
	}
}

func TestLPGMovementFor_NegativeTotalFlagged(t *testing.T) {
	movement := LPGMovementFor(LPGCylinderCount{SizeKg: 6, OpeningFull: 5, ClosingFull: 7})
	if movement.TotalSold != 0 {
		t.Fatalf("expected floored total, got %d", movement.TotalSold)
	}
	if !movement.CountSuspect {
		t.Fatalf("expected suspect count to be flagged")
	}
}
