package handover

import "github.com/shopspring/decimal"

// StockItemCount is the shift-open and shift-close count for one lubricant or
// accessory line item.
type StockItemCount struct {
	ItemID    string
	Name      string
	Opening   int
	Additions int
	Closing   int
	UnitPrice decimal.Decimal
}

// StockMovement is the derived sale for one stock item. Sold is floored at
// zero per the established accounting rule; CountSuspect marks items whose
// raw movement was negative, so a possible miscount is surfaced even though
// it does not enter the revenue figure.
type StockMovement struct {
	ItemID       string
	Sold         int
	Value        decimal.Decimal
	CountSuspect bool
}

// MovementFor derives the sale for one counted stock item.
func MovementFor(item StockItemCount) StockMovement {
	raw := item.Opening + item.Additions - item.Closing
	movement := StockMovement{ItemID: item.ItemID, Sold: raw}
	if raw < 0 {
		movement.Sold = 0
		movement.CountSuspect = true
	}
	movement.Value = decimal.NewFromInt(int64(movement.Sold)).Mul(item.UnitPrice)
	return movement
}

// LPGCylinderCount is the shift count for one LPG cylinder size. Sales split
// into refills (customer swaps an empty) and sales with the cylinder itself.
type LPGCylinderCount struct {
	SizeKg           int
	OpeningFull      int
	OpeningEmpty     int
	Additions        int
	ClosingFull      int
	ClosingEmpty     int
	SoldRefill       int
	SoldWithCylinder int

	RefillPrice       decimal.Decimal
	WithCylinderPrice decimal.Decimal
}

// LPGMovement is the derived LPG sale for one cylinder size. The value is
// computed from whatever split was supplied; an inconsistent split is
// reported through SplitValid, never corrected here. The workflow layer
// blocks submission on an invalid split.
type LPGMovement struct {
	SizeKg       int
	TotalSold    int
	Value        decimal.Decimal
	SplitValid   bool
	CountSuspect bool
}

// LPGMovementFor derives the sale for one LPG cylinder size.
// total_sold = opening_full + additions - closing_full; the refill and
// with-cylinder split must sum to it whenever total_sold is positive.
func LPGMovementFor(count LPGCylinderCount) LPGMovement {
	total := count.OpeningFull + count.Additions - count.ClosingFull
	movement := LPGMovement{SizeKg: count.SizeKg, TotalSold: total, SplitValid: true}
	if total < 0 {
		movement.TotalSold = 0
		movement.CountSuspect = true
	}
	if total > 0 {
		movement.SplitValid = count.SoldRefill+count.SoldWithCylinder == total
	}
	refill := decimal.NewFromInt(int64(count.SoldRefill)).Mul(count.RefillPrice)
	withCylinder := decimal.NewFromInt(int64(count.SoldWithCylinder)).Mul(count.WithCylinderPrice)
	movement.Value = refill.Add(withCylinder)
	return movement
}
