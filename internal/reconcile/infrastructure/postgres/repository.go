package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	reconcile "station-ops/internal/reconcile/domain"
)

// ResultRepository is a Postgres implementation of the reconciliation result
// store. The scalar verdict columns are queryable; the full result including
// segments and exclusions is kept as a JSON document alongside them.
type ResultRepository struct {
	db *sql.DB
}

// NewResultRepository constructs a repository.
func NewResultRepository(db *sql.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// resultDoc mirrors the domain result for storage. Exclusion reasons are
// flattened to strings because error values do not survive JSON.
type resultDoc struct {
	TankID               string                       `json:"tank_id"`
	OpeningDipLiters     float64                      `json:"opening_dip_liters"`
	ClosingDipLiters     float64                      `json:"closing_dip_liters"`
	Deliveries           []reconcile.Delivery         `json:"deliveries,omitempty"`
	TotalDeliveredLiters float64                      `json:"total_delivered_liters"`
	TankVolumeMovement   float64                      `json:"tank_volume_movement"`
	NozzleTotalLiters    float64                      `json:"nozzle_total_liters"`
	VarianceLiters       float64                      `json:"variance_liters"`
	VariancePercent      float64                      `json:"variance_percent"`
	Verdict              string                       `json:"verdict"`
	DataSource           string                       `json:"data_source"`
	ExcludedNozzles      []excludedNozzleDoc          `json:"excluded_nozzles,omitempty"`
	Segments             []reconcile.SalesSegment     `json:"segments,omitempty"`
	SegmentCheck         *reconcile.SegmentCrossCheck `json:"segment_check,omitempty"`
}

type excludedNozzleDoc struct {
	NozzleID string `json:"nozzle_id"`
	TankID   string `json:"tank_id"`
	Reason   string `json:"reason,omitempty"`
}

func toDoc(result reconcile.TankShiftReconciliation) resultDoc {
	doc := resultDoc{
		TankID:               result.TankID,
		OpeningDipLiters:     result.OpeningDipLiters,
		ClosingDipLiters:     result.ClosingDipLiters,
		Deliveries:           result.Deliveries,
		TotalDeliveredLiters: result.TotalDeliveredLiters,
		TankVolumeMovement:   result.TankVolumeMovement,
		NozzleTotalLiters:    result.NozzleTotalLiters,
		VarianceLiters:       result.VarianceLiters,
		VariancePercent:      result.VariancePercent,
		Verdict:              string(result.Verdict),
		DataSource:           string(result.DataSource),
		Segments:             result.Segments,
		SegmentCheck:         result.SegmentCheck,
	}
	for _, nozzle := range result.ExcludedNozzles {
		excluded := excludedNozzleDoc{NozzleID: nozzle.NozzleID, TankID: nozzle.TankID}
		if nozzle.Reason != nil {
			excluded.Reason = nozzle.Reason.Error()
		}
		doc.ExcludedNozzles = append(doc.ExcludedNozzles, excluded)
	}
	return doc
}

func (d resultDoc) toDomain() reconcile.TankShiftReconciliation {
	result := reconcile.TankShiftReconciliation{
		TankID:               d.TankID,
		OpeningDipLiters:     d.OpeningDipLiters,
		ClosingDipLiters:     d.ClosingDipLiters,
		Deliveries:           d.Deliveries,
		TotalDeliveredLiters: d.TotalDeliveredLiters,
		TankVolumeMovement:   d.TankVolumeMovement,
		NozzleTotalLiters:    d.NozzleTotalLiters,
		VarianceLiters:       d.VarianceLiters,
		VariancePercent:      d.VariancePercent,
		Verdict:              reconcile.Verdict(d.Verdict),
		DataSource:           reconcile.DataSource(d.DataSource),
		Segments:             d.Segments,
		SegmentCheck:         d.SegmentCheck,
	}
	for _, excluded := range d.ExcludedNozzles {
		nozzle := reconcile.NozzleDispenseResult{NozzleID: excluded.NozzleID, TankID: excluded.TankID}
		if excluded.Reason != "" {
			nozzle.Reason = errors.New(excluded.Reason)
		}
		result.ExcludedNozzles = append(result.ExcludedNozzles, nozzle)
	}
	return result
}

// SaveReconciliation stores one tank reconciliation for a shift. Re-running
// the same shift and tank overwrites the previous verdict.
func (r *ResultRepository) SaveReconciliation(ctx context.Context, shiftID string, result reconcile.TankShiftReconciliation) error {
	if r == nil || r.db == nil {
		return errors.New("reconcile repo: nil db")
	}
	detail, err := json.Marshal(toDoc(result))
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO tank_reconciliations (
	shift_id, tank_id, verdict, data_source, variance_liters, variance_percent, complete, detail, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
ON CONFLICT (shift_id, tank_id)
DO UPDATE SET
	verdict = EXCLUDED.verdict,
	data_source = EXCLUDED.data_source,
	variance_liters = EXCLUDED.variance_liters,
	variance_percent = EXCLUDED.variance_percent,
	complete = EXCLUDED.complete,
	detail = EXCLUDED.detail,
	created_at = EXCLUDED.created_at`,
		shiftID, result.TankID, string(result.Verdict), string(result.DataSource),
		result.VarianceLiters, result.VariancePercent, result.Complete(), detail)
	return err
}

// ListShiftReconciliations returns stored reconciliations for a shift in tank
// order.
func (r *ResultRepository) ListShiftReconciliations(ctx context.Context, shiftID string) ([]reconcile.StoredReconciliation, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("reconcile repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT shift_id, detail, created_at
FROM tank_reconciliations
WHERE shift_id = $1
ORDER BY tank_id ASC`, shiftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []reconcile.StoredReconciliation
	for rows.Next() {
		var stored reconcile.StoredReconciliation
		var detail []byte
		var createdAt time.Time
		if err := rows.Scan(&stored.ShiftID, &detail, &createdAt); err != nil {
			return nil, err
		}
		var doc resultDoc
		if err := json.Unmarshal(detail, &doc); err != nil {
			return nil, err
		}
		stored.Result = doc.toDomain()
		stored.CreatedAt = createdAt.UTC()
		result = append(result, stored)
	}
	return result, rows.Err()
}
