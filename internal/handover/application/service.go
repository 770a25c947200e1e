package application

import (
	"context"
	"errors"
	"log"
	"time"

	"station-ops/internal/eventbus"
	handover "station-ops/internal/handover/domain"
)

var (
	// ErrIncompleteNozzles blocks submission while any nozzle lacks a valid
	// closing. The calculator still runs; the workflow refuses to commit.
	ErrIncompleteNozzles = errors.New("handover service: invalid nozzle readings present")
	// ErrInvalidSplit blocks submission while an LPG refill/with-cylinder
	// split does not sum to the counted total.
	ErrInvalidSplit = errors.New("handover service: lpg split does not sum to total sold")
)

// HandoverSubmitted is published after a handover has been accepted.
type HandoverSubmitted struct {
	ShiftID     string
	AttendantID string
	Status      handover.Status
	// Difference is the signed cash variance as a decimal string; positive
	// is a surplus, negative a shortage.
	Difference string
	OccurredAt time.Time
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Service runs the shift handover workflow: compute the cash reconciliation,
// enforce the submission gates, persist and publish.
type Service struct {
	repo   handover.Repository
	bus    *eventbus.Bus
	clock  Clock
	logger *log.Logger
}

// NewService constructs the handover service.
func NewService(repo handover.Repository, bus *eventbus.Bus, clock Clock, logger *log.Logger) (*Service, error) {
	if repo == nil {
		return nil, errors.New("handover service: nil repository")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Service{repo: repo, bus: bus, clock: clock, logger: logger}, nil
}

// Preview computes the handover without submitting it. Used by the entry
// screen to show the running variance while counts are typed in.
func (s *Service) Preview(input handover.HandoverInput) handover.HandoverResult {
	return handover.ComputeHandover(input)
}

// Submit computes, gates and persists a handover. Submission is refused
// while any nozzle result is invalid or an LPG split is inconsistent; the
// computed result is returned alongside the error so the caller can show
// what was wrong.
func (s *Service) Submit(ctx context.Context, shiftID string, input handover.HandoverInput) (handover.StoredHandover, error) {
	if shiftID == "" {
		return handover.StoredHandover{}, errors.New("handover service: empty shift id")
	}

	result := handover.ComputeHandover(input)
	row := handover.StoredHandover{
		ShiftID:   shiftID,
		Result:    result,
		Status:    statusFor(result),
		CreatedAt: s.clock.Now(),
	}
	if len(result.ExcludedNozzles) > 0 {
		return row, ErrIncompleteNozzles
	}
	if !result.SplitsValid() {
		return row, ErrInvalidSplit
	}

	if err := s.repo.SaveHandover(ctx, row); err != nil {
		return row, err
	}
	if s.bus != nil {
		event := HandoverSubmitted{
			ShiftID:     shiftID,
			AttendantID: input.AttendantID,
			Status:      row.Status,
			Difference:  result.Difference.String(),
			OccurredAt:  row.CreatedAt,
		}
		if err := s.bus.Publish(ctx, event); err != nil {
			s.logger.Printf("handover: publish submitted event: %v", err)
		}
	}
	return row, nil
}

// ListShift returns handovers submitted for a shift.
func (s *Service) ListShift(ctx context.Context, shiftID string) ([]handover.StoredHandover, error) {
	return s.repo.ListShiftHandovers(ctx, shiftID)
}

func statusFor(result handover.HandoverResult) handover.Status {
	switch {
	case result.Difference.IsZero():
		return handover.StatusBalanced
	case result.Difference.IsNegative():
		return handover.StatusShortage
	default:
		return handover.StatusSurplus
	}
}
