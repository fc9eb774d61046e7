// Package alert texts on-call admins when an urgent activity event shows up
// in a completed aggregation pass.
package alert

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/spacelproject/admin-spacel-sub001/internal/application/activity"
	"github.com/spacelproject/admin-spacel-sub001/internal/domain"
	"github.com/spacelproject/admin-spacel-sub001/internal/metrics"
	"github.com/spacelproject/admin-spacel-sub001/internal/pkg/eventbus"
)

const sendTimeout = 10 * time.Second

// Sender delivers a text message to one phone number.
type Sender interface {
	SendSMS(ctx context.Context, to, message string) error
}

type Options struct {
	Recipients  []string
	MinPriority domain.Priority
	// SeenTTL bounds how long an alerted id is remembered.
	SeenTTL  time.Duration
	SeenSize int
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
}

// Alerter watches feed updates. Each qualifying event is sent once, no
// matter how many viewers' feeds contain it. Events older than the alerter
// itself are never sent, so a restart does not replay history.
type Alerter struct {
	sender     Sender
	recipients []string
	min        domain.Priority
	seen       *seenSet
	logger     *slog.Logger
	metrics    *metrics.Metrics
	started    time.Time

	wg sync.WaitGroup
}

func New(sender Sender, opts Options) *Alerter {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MinPriority == "" {
		opts.MinPriority = domain.PriorityUrgent
	}
	return &Alerter{
		sender:     sender,
		recipients: opts.Recipients,
		min:        opts.MinPriority,
		seen:       newSeenSet(opts.SeenSize, opts.SeenTTL),
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		started:    time.Now(),
	}
}

// Attach subscribes the alerter to bus and returns the unsubscribe func.
func (a *Alerter) Attach(bus *eventbus.Bus[activity.Update]) func() {
	return bus.Subscribe(a.Handle)
}

// Handle picks the new qualifying events out of u and sends them in the
// background.
func (a *Alerter) Handle(u activity.Update) {
	if a.sender == nil || len(a.recipients) == 0 || u.Err != nil {
		return
	}
	var due []domain.ActivityEvent
	for _, e := range u.Events {
		if !e.Priority.AtLeast(a.min) || e.Timestamp.Before(a.started) {
			continue
		}
		if a.seen.markNew(e.ID) {
			due = append(due, e)
		}
	}
	if len(due) == 0 {
		return
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		for _, e := range due {
			a.send(ctx, e)
		}
	}()
}

func (a *Alerter) send(ctx context.Context, e domain.ActivityEvent) {
	msg := message(e)
	for _, to := range a.recipients {
		err := a.sender.SendSMS(ctx, to, msg)
		a.metrics.AlertSent(err == nil)
		if err != nil {
			a.logger.Warn("alert_send_failed", "event_id", e.ID, "error", err)
			continue
		}
		a.logger.Info("alert_sent", "event_id", e.ID, "category", e.Category)
	}
}

// Wait blocks until in-flight sends finish.
func (a *Alerter) Wait() { a.wg.Wait() }

func message(e domain.ActivityEvent) string {
	if e.Description == "" {
		return fmt.Sprintf("[%s] %s", e.Priority, e.Title)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Priority, e.Title, e.Description)
}
