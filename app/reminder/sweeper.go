// Package reminder periodically scans persisted sales for tranches coming
// due and pushes a notification to the conversation the sale originated
// from. The sweep reads persisted state only and never assumes any wizard
// session is live.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"salesbot/app/duedate"
	"salesbot/app/sales"
	"salesbot/app/storage"
	"salesbot/core/logger"
)

// Notifier delivers one reminder message to a chat/topic.
type Notifier func(ctx context.Context, chatID int64, threadID int, text string) error

// Config controls the sweep cadence. A zero interval disables the sweeper.
type Config struct {
	IntervalMinutes int `yaml:"interval_minutes" envconfig:"REMINDER_INTERVAL_MINUTES"`
	WindowDays      int `yaml:"window_days" envconfig:"REMINDER_WINDOW_DAYS"`
}

// Normalize applies defaults.
func (c *Config) Normalize() {
	if c.WindowDays <= 0 {
		c.WindowDays = 3
	}
}

// Sweeper runs the periodic due-payment scan.
type Sweeper struct {
	store  storage.Store
	eval   *duedate.Evaluator
	notify Notifier

	interval time.Duration
	window   int
	now      func() time.Time

	mu   sync.Mutex
	sent map[string]string // obligation -> day it was last announced
}

// NewSweeper builds a sweeper; notify is invoked once per due obligation.
func NewSweeper(store storage.Store, eval *duedate.Evaluator, notify Notifier, cfg Config) *Sweeper {
	cfg.Normalize()
	return &Sweeper{
		store:    store,
		eval:     eval,
		notify:   notify,
		interval: time.Duration(cfg.IntervalMinutes) * time.Minute,
		window:   cfg.WindowDays,
		now:      time.Now,
		sent:     make(map[string]string),
	}
}

// Enabled reports whether the sweeper is configured to run.
func (s *Sweeper) Enabled() bool {
	return s.interval > 0
}

// Run sweeps on a fixed ticker until ctx is done. Returns immediately when
// the sweeper is disabled.
func (s *Sweeper) Run(ctx context.Context) {
	if !s.Enabled() {
		logger.Info(ctx, "service.reminders", "sweep.disabled")
		return
	}

	logger.Info(ctx, "service.reminders", "sweep.started",
		slog.Duration("interval", s.interval),
		slog.Int("due_in_days", s.window),
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "service.reminders", "sweep.stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep performs one scan: every obligation due within the window produces
// at most one notification per day.
func (s *Sweeper) Sweep(ctx context.Context) {
	start := s.now()
	records, err := s.store.List(ctx)
	if err != nil {
		logger.Warn(ctx, "service.reminders", "sweep.load.failed",
			slog.String("err", err.Error()),
		)
		return
	}

	upcoming := s.eval.Upcoming(ctx, records, start)
	day := start.Format("2006-01-02")
	notified := 0

	// Entries from earlier days can never suppress anything again.
	s.mu.Lock()
	for id, announced := range s.sent {
		if announced != day {
			delete(s.sent, id)
		}
	}
	s.mu.Unlock()

	for _, o := range upcoming {
		if o.DaysUntil > s.window {
			continue
		}
		id := obligationID(o)
		s.mu.Lock()
		already := s.sent[id] == day
		if !already {
			s.sent[id] = day
		}
		s.mu.Unlock()
		if already {
			continue
		}

		if err := s.notify(ctx, o.ChatID, o.ThreadID, reminderText(o)); err != nil {
			logger.Warn(ctx, "service.reminders", "notify.failed",
				slog.Int64("chat_id", o.ChatID),
				slog.String("client", logger.SanitizeLimit(o.ClientName, 64)),
				slog.String("err", err.Error()),
			)
			continue
		}
		notified++
	}

	logger.Info(ctx, "service.reminders", "sweep.complete",
		slog.Int("records", len(records)),
		slog.Int("reminders", notified),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
}

func obligationID(o duedate.Obligation) string {
	return fmt.Sprintf("%d|%d|%s|%s|%v", o.ChatID, o.ThreadID, o.ClientName, o.DueLabel, o.Amount)
}

func reminderText(o duedate.Obligation) string {
	daysText := fmt.Sprintf("через %d дн.", o.DaysUntil)
	switch o.DaysUntil {
	case 0:
		daysText = "сегодня"
	case 1:
		daysText = "завтра"
	}

	var b strings.Builder
	b.WriteString("🔔 Напоминание о платеже\n\n")
	fmt.Fprintf(&b, "%s *%s*\n", o.Tier().Icon(), o.ClientName)
	fmt.Fprintf(&b, "Мастер: %s\n", o.MasterName)
	fmt.Fprintf(&b, "Сумма: %s\n", sales.FormatAmount(o.Amount))
	fmt.Fprintf(&b, "До: %s (%s)", o.DueLabel, daysText)
	return b.String()
}
