package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"station-ops/internal/eventbus"
	handover "station-ops/internal/handover/domain"
	handovermem "station-ops/internal/handover/infrastructure/memory"
	reconcile "station-ops/internal/reconcile/domain"
)

type fixedClock struct{ at time.Time }

func (c fixedClock) Now() time.Time { return c.at }

func newTestService(t *testing.T, bus *eventbus.Bus) (*Service, *handovermem.HandoverRepository) {
	t.Helper()
	repo := handovermem.NewHandoverRepository()
	svc, err := NewService(repo, bus, fixedClock{at: time.Date(2026, 3, 14, 14, 0, 0, 0, time.UTC)}, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, repo
}

func saleInput() handover.HandoverInput {
	return handover.HandoverInput{
		AttendantID: "attendant-7",
		Nozzles: []handover.NozzleSale{{
			Result:        reconcile.NozzleDispenseResult{NozzleID: "nozzle-1", ElectronicVolume: 1000, Valid: true},
			PricePerLiter: decimal.NewFromInt(5),
		}},
		CreditSales: decimal.NewFromInt(200),
		ActualCash:  decimal.NewFromInt(4750),
	}
}

func TestSubmit_ShortagePersistedAndPublished(t *testing.T) {
	bus := eventbus.New()
	var events []HandoverSubmitted
	eventbus.Subscribe(bus, func(_ context.Context, event HandoverSubmitted) error {
		events = append(events, event)
		return nil
	})
	svc, repo := newTestService(t, bus)

	row, err := svc.Submit(context.Background(), "shift-1", saleInput())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if row.Status != handover.StatusShortage {
		t.Fatalf("expected SHORTAGE status, got %s", row.Status)
	}
	if !row.Result.Difference.Equal(decimal.NewFromInt(-50)) {
		t.Fatalf("expected difference -50, got %s", row.Result.Difference)
	}

	stored, err := repo.ListShiftHandovers(context.Background(), "shift-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("expected 1 stored handover, got %d", len(stored))
	}
	if len(events) != 1 || events[0].Difference != "-50" {
		t.Fatalf("expected one event with difference -50, got %+v", events)
	}
}

func TestSubmit_RefusedWhileNozzleInvalid(t *testing.T) {
	svc, repo := newTestService(t, nil)
	input := saleInput()
	input.Nozzles = append(input.Nozzles, handover.NozzleSale{
		Result: reconcile.NozzleDispenseResult{NozzleID: "nozzle-2", Reason: reconcile.ErrMissingReading},
	})

	row, err := svc.Submit(context.Background(), "shift-1", input)
	if !errors.Is(err, ErrIncompleteNozzles) {
		t.Fatalf("expected ErrIncompleteNozzles, got %v", err)
	}
	// The computed result still comes back so the caller can display it.
	if len(row.Result.ExcludedNozzles) != 1 {
		t.Fatalf("expected the excluded nozzle reported, got %+v", row.Result.ExcludedNozzles)
	}

	stored, err := repo.ListShiftHandovers(context.Background(), "shift-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != 0 {
		t.Fatalf("expected nothing persisted on refusal, got %d", len(stored))
	}
}

func TestSubmit_RefusedOnInvalidLPGSplit(t *testing.T) {
	svc, _ := newTestService(t, nil)
	input := saleInput()
	input.ActualCash = decimal.NewFromInt(4800)
	input.LPG = []handover.LPGCylinderCount{{
		SizeKg: 12, OpeningFull: 10, ClosingFull: 4, SoldRefill: 5,
	}}
	if _, err := svc.Submit(context.Background(), "shift-1", input); !errors.Is(err, ErrInvalidSplit) {
		t.Fatalf("expected ErrInvalidSplit, got %v", err)
	}
}

func TestSubmit_BalancedStatus(t *testing.T) {
	svc, _ := newTestService(t, nil)
	input := saleInput()
	input.ActualCash = decimal.NewFromInt(4800)
	row, err := svc.Submit(context.Background(), "shift-1", input)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if row.Status != handover.StatusBalanced {
		t.Fatalf("expected BALANCED, got %s", row.Status)
	}
}
