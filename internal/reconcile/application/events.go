package application

import (
	"time"

	reconcile "station-ops/internal/reconcile/domain"
)

// ReconciliationCompleted is published after a tank shift reconciliation has
// been computed and stored.
type ReconciliationCompleted struct {
	ShiftID         string
	TankID          string
	Verdict         reconcile.Verdict
	VarianceLiters  float64
	VariancePercent float64
	DataSource      reconcile.DataSource
	Complete        bool
	OccurredAt      time.Time
}

// ThreeWayValidated is published after a three-way tank reading validation.
type ThreeWayValidated struct {
	ShiftID        string
	TankID         string
	MaxDiscrepancy float64
	Verdict        reconcile.Verdict
	OccurredAt     time.Time
}
