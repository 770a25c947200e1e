package handover

import (
	"sort"

	"github.com/shopspring/decimal"

	reconcile "station-ops/internal/reconcile/domain"
)

// NozzleSale pairs a nozzle dispense result with the pump price that was in
// effect for the shift.
type NozzleSale struct {
	Result        reconcile.NozzleDispenseResult
	PricePerLiter decimal.Decimal
}

// HandoverInput is everything the end-of-shift cash reconciliation needs.
// All figures are caller-supplied; the calculator performs no lookups.
type HandoverInput struct {
	AttendantID string
	Nozzles     []NozzleSale
	LPG         []LPGCylinderCount
	Lubricants  []StockItemCount
	Accessories []StockItemCount
	CreditSales decimal.Decimal
	ActualCash  decimal.Decimal
}

// HandoverResult is the expected-vs-actual cash reconciliation for one
// attendant's shift. Difference is signed: positive is a surplus, negative a
// shortage. Status is assigned by the submission workflow, not computed here.
type HandoverResult struct {
	AttendantID    string
	FuelRevenue    decimal.Decimal
	LPGSales       decimal.Decimal
	LubricantSales decimal.Decimal
	AccessorySales decimal.Decimal
	TotalExpected  decimal.Decimal
	CreditSales    decimal.Decimal
	ExpectedCash   decimal.Decimal
	ActualCash     decimal.Decimal
	Difference     decimal.Decimal

	// ExcludedNozzles contributed zero fuel revenue because their dispense
	// computation was invalid. The workflow refuses submission while this
	// list is non-empty; the calculator itself just reports it.
	ExcludedNozzles []reconcile.NozzleDispenseResult
	LPGMovements    []LPGMovement
	Lubricant       []StockMovement
	Accessory       []StockMovement
}

// Shortage reports whether the attendant handed in less than expected.
func (r HandoverResult) Shortage() bool { return r.Difference.IsNegative() }

// ComputeHandover aggregates fuel, LPG, lubricant and accessory revenue,
// subtracts credit sales, and compares expected cash against the cash
// physically handed in. Pure and synchronous; repeated calls with identical
// inputs yield identical results (fuel revenue sums in nozzle-id order).
func ComputeHandover(input HandoverInput) HandoverResult {
	result := HandoverResult{
		AttendantID: input.AttendantID,
		CreditSales: input.CreditSales,
		ActualCash:  input.ActualCash,
	}

	sales := append([]NozzleSale(nil), input.Nozzles...)
	sort.Slice(sales, func(i, j int) bool { return sales[i].Result.NozzleID < sales[j].Result.NozzleID })
	for _, sale := range sales {
		if !sale.Result.Valid {
			result.ExcludedNozzles = append(result.ExcludedNozzles, sale.Result)
			continue
		}
		volume := decimal.NewFromFloat(sale.Result.ElectronicVolume)
		result.FuelRevenue = result.FuelRevenue.Add(volume.Mul(sale.PricePerLiter))
	}

	for _, count := range input.LPG {
		movement := LPGMovementFor(count)
		result.LPGMovements = append(result.LPGMovements, movement)
		result.LPGSales = result.LPGSales.Add(movement.Value)
	}
	for _, item := range input.Lubricants {
		movement := MovementFor(item)
		result.Lubricant = append(result.Lubricant, movement)
		result.LubricantSales = result.LubricantSales.Add(movement.Value)
	}
	for _, item := range input.Accessories {
		movement := MovementFor(item)
		result.Accessory = append(result.Accessory, movement)
		result.AccessorySales = result.AccessorySales.Add(movement.Value)
	}

	result.TotalExpected = result.FuelRevenue.
		Add(result.LPGSales).
		Add(result.LubricantSales).
		Add(result.AccessorySales)
	result.ExpectedCash = result.TotalExpected.Sub(result.CreditSales)
	result.Difference = result.ActualCash.Sub(result.ExpectedCash)
	return result
}

// SplitsValid reports whether every LPG refill/with-cylinder split was
// consistent with its counted total.
func (r HandoverResult) SplitsValid() bool {
	for _, movement := range r.LPGMovements {
		if !movement.SplitValid {
			return false
		}
	}
	return true
}
