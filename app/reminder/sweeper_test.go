package reminder

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesbot/app/duedate"
	"salesbot/app/sales"
)

type staticStore struct {
	records []sales.Record
}

func (s *staticStore) Append(context.Context, sales.Record) error { return nil }
func (s *staticStore) List(context.Context) ([]sales.Record, error) {
	return s.records, nil
}

type captureNotifier struct {
	mu    sync.Mutex
	calls []string
}

func (n *captureNotifier) notify(_ context.Context, chatID int64, _ int, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, text)
	return nil
}

func newTestSweeper(t *testing.T, store *staticStore, n *captureNotifier, windowDays int) *Sweeper {
	t.Helper()
	eval, err := duedate.NewEvaluator(16)
	require.NoError(t, err)
	s := NewSweeper(store, eval, n.notify, Config{IntervalMinutes: 60, WindowDays: windowDays})
	s.now = func() time.Time { return time.Date(2026, time.August, 30, 9, 0, 0, 0, time.UTC) }
	return s
}

func saleDue(client, due string) sales.Record {
	return sales.Record{
		ID:          client,
		ClientName:  client,
		MasterName:  "Ольга",
		PackageType: sales.PackageStarter,
		ChatID:      100,
		Tranches:    []sales.Tranche{{Amount: 5000, DueDate: due}},
	}
}

func TestSweepNotifiesWithinWindowOnly(t *testing.T) {
	store := &staticStore{records: []sales.Record{
		saleDue("Мария", "31.08.2026"), // in 1 day
		saleDue("Иван", "20.09.2026"),  // in 21 days
	}}
	n := &captureNotifier{}
	s := newTestSweeper(t, store, n, 3)

	s.Sweep(context.Background())

	require.Len(t, n.calls, 1)
	assert.Contains(t, n.calls[0], "Мария")
	assert.Contains(t, n.calls[0], "завтра")
	assert.Contains(t, n.calls[0], "5к")
}

func TestSweepDueTodayPhrasing(t *testing.T) {
	store := &staticStore{records: []sales.Record{saleDue("Мария", "30.08.2026")}}
	n := &captureNotifier{}
	s := newTestSweeper(t, store, n, 3)

	s.Sweep(context.Background())

	require.Len(t, n.calls, 1)
	assert.Contains(t, n.calls[0], "сегодня")
	assert.Contains(t, n.calls[0], "🔴")
}

func TestSweepDoesNotRepeatSameDay(t *testing.T) {
	store := &staticStore{records: []sales.Record{saleDue("Мария", "31.08.2026")}}
	n := &captureNotifier{}
	s := newTestSweeper(t, store, n, 3)

	s.Sweep(context.Background())
	s.Sweep(context.Background())
	assert.Len(t, n.calls, 1)

	// The next day the obligation is announced again.
	s.now = func() time.Time { return time.Date(2026, time.August, 31, 9, 0, 0, 0, time.UTC) }
	s.Sweep(context.Background())
	assert.Len(t, n.calls, 2)
}

func TestSweepDropsStaleDedupEntries(t *testing.T) {
	store := &staticStore{records: []sales.Record{saleDue("Мария", "31.08.2026")}}
	n := &captureNotifier{}
	s := newTestSweeper(t, store, n, 3)

	s.Sweep(context.Background())
	s.mu.Lock()
	require.Len(t, s.sent, 1)
	s.mu.Unlock()

	// Entries announced on earlier days are pruned on the next sweep.
	s.now = func() time.Time { return time.Date(2026, time.September, 2, 9, 0, 0, 0, time.UTC) }
	store.records = nil
	s.Sweep(context.Background())

	s.mu.Lock()
	remaining := len(s.sent)
	s.mu.Unlock()
	assert.Zero(t, remaining)
}

func TestSweeperDisabledWithoutInterval(t *testing.T) {
	eval, err := duedate.NewEvaluator(16)
	require.NoError(t, err)
	s := NewSweeper(&staticStore{}, eval, (&captureNotifier{}).notify, Config{})
	assert.False(t, s.Enabled())

	// Run returns immediately for a disabled sweeper.
	done := make(chan struct{})
	go func() {
		s.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return for disabled sweeper")
	}
}
