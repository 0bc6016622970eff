package duedate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesbot/app/sales"
)

func newEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	e, err := NewEvaluator(16)
	require.NoError(t, err)
	return e
}

func TestParseNumericDate(t *testing.T) {
	e := newEvaluator(t)
	now := time.Date(2026, time.August, 30, 12, 0, 0, 0, time.UTC)

	got := e.Parse("15.10.2026", now)
	assert.Equal(t, time.Date(2026, time.October, 15, 0, 0, 0, 0, time.UTC), got)

	// Two-digit years are 20xx.
	got = e.Parse("1.2.27", now)
	assert.Equal(t, time.Date(2027, time.February, 1, 0, 0, 0, 0, time.UTC), got)

	// Surrounding text is tolerated.
	got = e.Parse("до 15.10.2026 включительно", now)
	assert.Equal(t, time.Date(2026, time.October, 15, 0, 0, 0, 0, time.UTC), got)
}

func TestParseDayMonthName(t *testing.T) {
	e := newEvaluator(t)
	now := time.Date(2026, time.August, 30, 12, 0, 0, 0, time.UTC)

	got := e.Parse("15 октября", now)
	assert.Equal(t, time.Date(2026, time.October, 15, 0, 0, 0, 0, time.UTC), got)

	got = e.Parse("1 Января", now)
	assert.Equal(t, time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), got)
}

func TestParseFallbackOneMonth(t *testing.T) {
	e := newEvaluator(t)
	now := time.Date(2026, time.August, 30, 12, 0, 0, 0, time.UTC)

	for _, label := range []string{"скоро", "", "после отпуска", sales.UnspecifiedDueDate} {
		got := e.Parse(label, now)
		assert.Equal(t, now.AddDate(0, 1, 0), got, "label %q", label)
	}
}

func TestParseCachesNumericDates(t *testing.T) {
	e := newEvaluator(t)
	now := time.Date(2026, time.August, 30, 12, 0, 0, 0, time.UTC)

	first := e.Parse("15.10.2026", now)
	second := e.Parse("15.10.2026", now.Add(48*time.Hour))
	assert.Equal(t, first, second)
}

func record(tranches ...sales.Tranche) sales.Record {
	return sales.Record{
		ID:          "r1",
		ClientName:  "Мария",
		MasterName:  "Ольга",
		PackageType: sales.PackageStarter,
		ChatID:      100,
		Tranches:    tranches,
	}
}

func TestUpcomingDueTodayIsZeroDaysAndUrgent(t *testing.T) {
	e := newEvaluator(t)
	now := time.Date(2026, time.August, 30, 15, 30, 0, 0, time.UTC)

	got := e.Upcoming(context.Background(), []sales.Record{
		record(sales.Tranche{Amount: 5000, DueDate: "30.08.2026"}),
	}, now)

	require.Len(t, got, 1)
	assert.Equal(t, 0, got[0].DaysUntil)
	assert.Equal(t, UrgencyUrgent, got[0].Tier())
	assert.Equal(t, "🔴", got[0].Tier().Icon())
}

func TestUpcomingDropsPastDue(t *testing.T) {
	e := newEvaluator(t)
	now := time.Date(2026, time.August, 30, 15, 30, 0, 0, time.UTC)

	got := e.Upcoming(context.Background(), []sales.Record{
		record(
			sales.Tranche{Amount: 5000, DueDate: "01.08.2026"},
			sales.Tranche{Amount: 5000, DueDate: "01.09.2026"},
		),
	}, now)

	require.Len(t, got, 1)
	assert.Equal(t, "01.09.2026", got[0].DueLabel)
}

func TestUpcomingSortedSoonestFirst(t *testing.T) {
	e := newEvaluator(t)
	now := time.Date(2026, time.August, 30, 10, 0, 0, 0, time.UTC)

	got := e.Upcoming(context.Background(), []sales.Record{
		record(sales.Tranche{Amount: 1, DueDate: "20.09.2026"}),
		record(sales.Tranche{Amount: 2, DueDate: "01.09.2026"}),
		record(sales.Tranche{Amount: 3, DueDate: "10.09.2026"}),
	}, now)

	require.Len(t, got, 3)
	assert.Equal(t, "01.09.2026", got[0].DueLabel)
	assert.Equal(t, "10.09.2026", got[1].DueLabel)
	assert.Equal(t, "20.09.2026", got[2].DueLabel)
}

func TestUrgencyTiers(t *testing.T) {
	cases := []struct {
		days int
		want Urgency
	}{
		{0, UrgencyUrgent},
		{3, UrgencyUrgent},
		{4, UrgencySoon},
		{7, UrgencySoon},
		{8, UrgencyLater},
		{30, UrgencyLater},
	}
	for _, tc := range cases {
		o := Obligation{DaysUntil: tc.days}
		assert.Equal(t, tc.want, o.Tier(), "days=%d", tc.days)
	}
}
