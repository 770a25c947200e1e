package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	handover "station-ops/internal/handover/domain"
	reconcile "station-ops/internal/reconcile/domain"
)

// HandoverRepository is a Postgres implementation of the handover store.
type HandoverRepository struct {
	db *sql.DB
}

// NewHandoverRepository constructs a repository.
func NewHandoverRepository(db *sql.DB) *HandoverRepository {
	return &HandoverRepository{db: db}
}

// handoverDoc mirrors the domain result for storage. Exclusion reasons are
// flattened to strings because error values do not survive JSON; decimals
// marshal as exact strings.
type handoverDoc struct {
	AttendantID    string                    `json:"attendant_id"`
	FuelRevenue    decimal.Decimal           `json:"fuel_revenue"`
	LPGSales       decimal.Decimal           `json:"lpg_sales"`
	LubricantSales decimal.Decimal           `json:"lubricant_sales"`
	AccessorySales decimal.Decimal           `json:"accessory_sales"`
	TotalExpected  decimal.Decimal           `json:"total_expected"`
	CreditSales    decimal.Decimal           `json:"credit_sales"`
	ExpectedCash   decimal.Decimal           `json:"expected_cash"`
	ActualCash     decimal.Decimal           `json:"actual_cash"`
	Difference     decimal.Decimal           `json:"difference"`
	Excluded       []excludedNozzleDoc       `json:"excluded_nozzles,omitempty"`
	LPGMovements   []handover.LPGMovement    `json:"lpg_movements,omitempty"`
	Lubricant      []handover.StockMovement  `json:"lubricant_movements,omitempty"`
	Accessory      []handover.StockMovement  `json:"accessory_movements,omitempty"`
}

type excludedNozzleDoc struct {
	NozzleID string `json:"nozzle_id"`
	TankID   string `json:"tank_id"`
	Reason   string `json:"reason,omitempty"`
}

func toDoc(result handover.HandoverResult) handoverDoc {
	doc := handoverDoc{
		AttendantID:    result.AttendantID,
		FuelRevenue:    result.FuelRevenue,
		LPGSales:       result.LPGSales,
		LubricantSales: result.LubricantSales,
		AccessorySales: result.AccessorySales,
		TotalExpected:  result.TotalExpected,
		CreditSales:    result.CreditSales,
		ExpectedCash:   result.ExpectedCash,
		ActualCash:     result.ActualCash,
		Difference:     result.Difference,
		LPGMovements:   result.LPGMovements,
		Lubricant:      result.Lubricant,
		Accessory:      result.Accessory,
	}
	for _, nozzle := range result.ExcludedNozzles {
		excluded := excludedNozzleDoc{NozzleID: nozzle.NozzleID, TankID: nozzle.TankID}
		if nozzle.Reason != nil {
			excluded.Reason = nozzle.Reason.Error()
		}
		doc.Excluded = append(doc.Excluded, excluded)
	}
	return doc
}

func (d handoverDoc) toDomain() handover.HandoverResult {
	result := handover.HandoverResult{
		AttendantID:    d.AttendantID,
		FuelRevenue:    d.FuelRevenue,
		LPGSales:       d.LPGSales,
		LubricantSales: d.LubricantSales,
		AccessorySales: d.AccessorySales,
		TotalExpected:  d.TotalExpected,
		CreditSales:    d.CreditSales,
		ExpectedCash:   d.ExpectedCash,
		ActualCash:     d.ActualCash,
		Difference:     d.Difference,
		LPGMovements:   d.LPGMovements,
		Lubricant:      d.Lubricant,
		Accessory:      d.Accessory,
	}
	for _, excluded := range d.Excluded {
		nozzle := reconcile.NozzleDispenseResult{NozzleID: excluded.NozzleID, TankID: excluded.TankID}
		if excluded.Reason != "" {
			nozzle.Reason = errors.New(excluded.Reason)
		}
		result.ExcludedNozzles = append(result.ExcludedNozzles, nozzle)
	}
	return result
}

// SaveHandover stores one attendant handover. Re-submitting the same shift
// and attendant overwrites the previous row.
func (r *HandoverRepository) SaveHandover(ctx context.Context, row handover.StoredHandover) error {
	if r == nil || r.db == nil {
		return errors.New("handover repo: nil db")
	}
	detail, err := json.Marshal(toDoc(row.Result))
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO shift_handovers (
	shift_id, attendant_id, status, expected_cash, actual_cash, difference, detail, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (shift_id, attendant_id)
DO UPDATE SET
	status = EXCLUDED.status,
	expected_cash = EXCLUDED.expected_cash,
	actual_cash = EXCLUDED.actual_cash,
	difference = EXCLUDED.difference,
	detail = EXCLUDED.detail,
	created_at = EXCLUDED.created_at`,
		row.ShiftID, row.Result.AttendantID, string(row.Status),
		row.Result.ExpectedCash.String(), row.Result.ActualCash.String(), row.Result.Difference.String(),
		detail, row.CreatedAt.UTC())
	return err
}

// ListShiftHandovers returns stored handovers for a shift in attendant order.
func (r *HandoverRepository) ListShiftHandovers(ctx context.Context, shiftID string) ([]handover.StoredHandover, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("handover repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT shift_id, status, detail, created_at
FROM shift_handovers
WHERE shift_id = $1
ORDER BY attendant_id ASC`, shiftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []handover.StoredHandover
	for rows.Next() {
		var stored handover.StoredHandover
		var status string
		var detail []byte
		var createdAt time.Time
		if err := rows.Scan(&stored.ShiftID, &status, &detail, &createdAt); err != nil {
			return nil, err
		}
		var doc handoverDoc
		if err := json.Unmarshal(detail, &doc); err != nil {
			return nil, err
		}
		stored.Status = handover.Status(status)
		stored.Result = doc.toDomain()
		stored.CreatedAt = createdAt.UTC()
		result = append(result, stored)
	}
	return result, rows.Err()
}
