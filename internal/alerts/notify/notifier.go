package notify

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	handoverapp "station-ops/internal/handover/application"
	handover "station-ops/internal/handover/domain"
	reconcileapp "station-ops/internal/reconcile/application"
	reconcile "station-ops/internal/reconcile/domain"
)

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type sendRecord struct {
	at   time.Time
	hash string
}

// Notifier turns reconciliation failures and cash shortages into alerts on a
// channel. Repeat alerts for the same shift and subject are suppressed within
// the dedupe window so a re-run of the same reconciliation does not page
// twice.
type Notifier struct {
	channel        Channel
	discrepancyTpl *Template
	shortageTpl    *Template
	shortfallLimit decimal.Decimal
	clock          Clock
	logger         *log.Logger
	dedupeWindow   time.Duration
	mu             sync.Mutex
	sent           map[string]sendRecord
}

// Option configures the notifier.
type Option func(*Notifier)

// WithClock overrides the default clock.
func WithClock(clock Clock) Option {
	return func(n *Notifier) {
		if clock != nil {
			n.clock = clock
		}
	}
}

// WithDedupeWindow suppresses identical repeat alerts within the window.
func WithDedupeWindow(window time.Duration) Option {
	return func(n *Notifier) {
		if window > 0 {
			n.dedupeWindow = window
		}
	}
}

// WithShortfallLimit alerts only on shortages at or beyond the limit. The
// limit is a positive cash amount; zero alerts on every shortage.
func WithShortfallLimit(limit decimal.Decimal) Option {
	return func(n *Notifier) {
		if !limit.IsNegative() {
			n.shortfallLimit = limit
		}
	}
}

// NewNotifier constructs an alert notifier.
func NewNotifier(channel Channel, logger *log.Logger, opts ...Option) (*Notifier, error) {
	if channel == nil {
		return nil, errors.New("alert notifier: nil channel")
	}
	if logger == nil {
		return nil, errors.New("alert notifier: nil logger")
	}
	discrepancyTpl, err := NewTemplate("discrepancy", DefaultDiscrepancyTemplate)
	if err != nil {
		return nil, err
	}
	shortageTpl, err := NewTemplate("shortage", DefaultShortageTemplate)
	if err != nil {
		return nil, err
	}
	n := &Notifier{
		channel:        channel,
		discrepancyTpl: discrepancyTpl,
		shortageTpl:    shortageTpl,
		clock:          systemClock{},
		logger:         logger,
		dedupeWindow:   10 * time.Minute,
		sent:           make(map[string]sendRecord),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// HandleReconciliation alerts on failed tank reconciliations. Passing and
// warning verdicts are ignored.
func (n *Notifier) HandleReconciliation(ctx context.Context, event reconcileapp.ReconciliationCompleted) error {
	if n == nil || event.Verdict != reconcile.VerdictFail {
		return nil
	}
	content, err := n.discrepancyTpl.Render(TemplateData{
		ShiftID:         event.ShiftID,
		TankID:          event.TankID,
		Verdict:         string(event.Verdict),
		VarianceLiters:  strconv.FormatFloat(event.VarianceLiters, 'f', 2, 64),
		VariancePercent: strconv.FormatFloat(event.VariancePercent, 'f', 2, 64),
		DataSource:      string(event.DataSource),
		Complete:        event.Complete,
	})
	if err != nil {
		return err
	}
	return n.send(ctx, "reconcile:"+event.ShiftID+":"+event.TankID, content)
}

// HandleHandover alerts on cash shortages at or beyond the shortfall limit.
func (n *Notifier) HandleHandover(ctx context.Context, event handoverapp.HandoverSubmitted) error {
	if n == nil || event.Status != handover.StatusShortage {
		return nil
	}
	difference, err := decimal.NewFromString(event.Difference)
	if err != nil {
		return err
	}
	if difference.Neg().LessThan(n.shortfallLimit) {
		return nil
	}
	content, err := n.shortageTpl.Render(TemplateData{
		ShiftID:     event.ShiftID,
		AttendantID: event.AttendantID,
		Difference:  event.Difference,
	})
	if err != nil {
		return err
	}
	return n.send(ctx, "handover:"+event.ShiftID+":"+event.AttendantID, content)
}

func (n *Notifier) send(ctx context.Context, key, content string) error {
	if !n.shouldSend(key, content) {
		return nil
	}
	if err := n.channel.Send(ctx, content); err != nil {
		n.logger.Printf("alert send failed key=%s err=%v", key, err)
		return err
	}
	n.markSent(key, content)
	return nil
}

func (n *Notifier) shouldSend(key, content string) bool {
	if n.dedupeWindow <= 0 {
		return true
	}
	now := n.clock.Now().UTC()
	hash := hashContent(content)

	n.mu.Lock()
	record, ok := n.sent[key]
	n.mu.Unlock()
	if !ok {
		return true
	}
	if record.hash == hash && now.Sub(record.at) < n.dedupeWindow {
		return false
	}
	return true
}

func (n *Notifier) markSent(key, content string) {
	n.mu.Lock()
	n.sent[key] = sendRecord{
		at:   n.clock.Now().UTC(),
		hash: hashContent(content),
	}
	n.mu.Unlock()
}

func hashContent(content string) string {
	sum := sha1.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}
