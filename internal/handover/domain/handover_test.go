package handover

import (
	"testing"

	"github.com/shopspring/decimal"

	reconcile "station-ops/internal/reconcile/domain"
)

func validSale(id string, liters float64, price int64) NozzleSale {
	return NozzleSale{
		Result:        reconcile.NozzleDispenseResult{NozzleID: id, ElectronicVolume: liters, Valid: true},
		PricePerLiter: decimal.NewFromInt(price),
	}
}

func TestComputeHandover_ShortageOfFifty(t *testing.T) {
	input := HandoverInput{
		AttendantID: "attendant-7",
		Nozzles:     []NozzleSale{validSale("nozzle-1", 1000, 5)},
		LPG: []LPGCylinderCount{{
			SizeKg:      12,
			OpeningFull: 10,
			ClosingFull: 0,
			SoldRefill:  10,
			RefillPrice: decimal.NewFromInt(30),
		}},
		Lubricants: []StockItemCount{{
			ItemID: "oil-1l", Opening: 20, Closing: 10, UnitPrice: decimal.NewFromInt(15),
		}},
		Accessories: []StockItemCount{{
			ItemID: "air-freshener", Opening: 12, Closing: 2, UnitPrice: decimal.NewFromInt(5),
		}},
		CreditSales: decimal.NewFromInt(200),
		ActualCash:  decimal.NewFromInt(5250),
	}

	result := ComputeHandover(input)

	if !result.FuelRevenue.Equal(decimal.NewFromInt(5000)) {
		t.Fatalf("expected fuel revenue 5000, got %s", result.FuelRevenue)
	}
	if !result.LPGSales.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("expected lpg sales 300, got %s", result.LPGSales)
	}
	if !result.LubricantSales.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("expected lubricant sales 150, got %s", result.LubricantSales)
	}
	if !result.AccessorySales.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected accessory sales 50, got %s", result.AccessorySales)
	}
	if !result.TotalExpected.Equal(decimal.NewFromInt(5500)) {
		t.Fatalf("expected total 5500, got %s", result.TotalExpected)
	}
	if !result.ExpectedCash.Equal(decimal.NewFromInt(5300)) {
		t.Fatalf("expected cash 5300, got %s", result.ExpectedCash)
	}
	if !result.Difference.Equal(decimal.NewFromInt(-50)) {
		t.Fatalf("expected difference -50, got %s", result.Difference)
	}
	if !result.Shortage() {
		t.Fatalf("expected shortage")
	}
}

func TestComputeHandover_InvalidNozzleExcludedAndReported(t *testing.T) {
	broken := NozzleSale{
		Result:        reconcile.NozzleDispenseResult{NozzleID: "nozzle-2", ElectronicVolume: -3, Reason: reconcile.ErrNegativeVolume},
		PricePerLiter: decimal.NewFromInt(5),
	}
	input := HandoverInput{
		Nozzles:    []NozzleSale{validSale("nozzle-1", 100, 5), broken},
		ActualCash: decimal.NewFromInt(500),
	}
	result := ComputeHandover(input)
	if !result.FuelRevenue.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("expected broken nozzle to contribute zero, got %s", result.FuelRevenue)
	}
	if len(result.ExcludedNozzles) != 1 || result.ExcludedNozzles[0].NozzleID != "nozzle-2" {
		t.Fatalf("expected nozzle-2 reported as excluded, got %+v", result.ExcludedNozzles)
	}
	if !result.Difference.IsZero() {
		t.Fatalf("expected zero difference, got %s", result.Difference)
	}
}

func TestComputeHandover_Surplus(t *testing.T) {
	input := HandoverInput{
		Nozzles:    []NozzleSale{validSale("nozzle-1", 200, 5)},
		ActualCash: decimal.NewFromInt(1010),
	}
	result := ComputeHandover(input)
	if !result.Difference.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected surplus of 10, got %s", result.Difference)
	}
	if result.Shortage() {
		t.Fatalf("expected surplus, classified as shortage")
	}
}

func TestComputeHandover_Idempotent(t *testing.T) {
	input := HandoverInput{
		Nozzles: []NozzleSale{
			validSale("nozzle-3", 123.45, 5),
			validSale("nozzle-1", 67.89, 5),
			validSale("nozzle-2", 10.01, 5),
		},
		ActualCash: decimal.NewFromInt(1000),
	}
	first := ComputeHandover(input)
	second := ComputeHandover(input)
	if !first.FuelRevenue.Equal(second.FuelRevenue) || !first.Difference.Equal(second.Difference) {
		t.Fatalf("expected identical results on repeated calls")
	}
}

func TestComputeHandover_SplitsValid(t *testing.T) {
	input := HandoverInput{
		LPG: []LPGCylinderCount{
			{SizeKg: 12, OpeningFull: 10, ClosingFull: 4, SoldRefill: 6},
			{SizeKg: 6, OpeningFull: 5, ClosingFull: 2, SoldRefill: 2},
		},
	}
	result := ComputeHandover(input)
	if result.SplitsValid() {
		t.Fatalf("expected invalid split on the 6kg line to be reported")
	}
}
