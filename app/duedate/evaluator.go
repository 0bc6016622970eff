// Package duedate resolves free-text due-date labels of scheduled tranches
// into calendar dates and flattens persisted sales into an upcoming-payments
// view. Parsing is deliberately best-effort: two patterns are recognised,
// anything else falls back to one month from now.
package duedate

import (
	"context"
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"salesbot/app/sales"
	"salesbot/core/logger"
)

var (
	numericDateRe  = regexp.MustCompile(`(\d{1,2})\.(\d{1,2})\.(\d{2,4})`)
	dayMonthNameRe = regexp.MustCompile(`(\d{1,2})\s+([^\s\d]+)`)

	monthsByGenitive = map[string]time.Month{
		"января": time.January, "февраля": time.February, "марта": time.March,
		"апреля": time.April, "мая": time.May, "июня": time.June,
		"июля": time.July, "августа": time.August, "сентября": time.September,
		"октября": time.October, "ноября": time.November, "декабря": time.December,
	}
)

// Obligation is one future installment across all persisted records.
type Obligation struct {
	ClientName  string
	MasterName  string
	PackageType sales.Package
	Amount      float64
	DueDate     time.Time
	DueLabel    string
	DaysUntil   int
	ChatID      int64
	ThreadID    int
}

// Urgency buckets obligations for display.
type Urgency int

const (
	UrgencyUrgent Urgency = iota // due within 3 days
	UrgencySoon                  // due within 7 days
	UrgencyLater
)

// Tier returns the urgency bucket for the obligation.
func (o Obligation) Tier() Urgency {
	switch {
	case o.DaysUntil <= 3:
		return UrgencyUrgent
	case o.DaysUntil <= 7:
		return UrgencySoon
	default:
		return UrgencyLater
	}
}

// Icon returns the marker used in rendered lists.
func (u Urgency) Icon() string {
	switch u {
	case UrgencyUrgent:
		return "🔴"
	case UrgencySoon:
		return "🟡"
	default:
		return "🟢"
	}
}

// Evaluator parses due-date labels and computes upcoming obligations.
// Fully-specified numeric dates are cached; labels whose resolution depends
// on the current moment (month names, fallback) are re-evaluated each time.
type Evaluator struct {
	cache *lru.Cache[string, time.Time]
}

// NewEvaluator builds an evaluator with a bounded parse cache.
func NewEvaluator(cacheSize int) (*Evaluator, error) {
	if cacheSize <= 0 {
		cacheSize = 256
	}
	cache, err := lru.New[string, time.Time](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Evaluator{cache: cache}, nil
}

// Parse resolves a label into a calendar date. Recognised patterns:
// "D.M.Y" with a 2- or 4-digit year (2-digit years are 20xx) and
// "D <месяц>" assuming the current year. Everything else resolves to one
// month from now.
func (e *Evaluator) Parse(label string, now time.Time) time.Time {
	if m := numericDateRe.FindStringSubmatch(label); m != nil {
		if cached, ok := e.cache.Get(m[0]); ok {
			return cached
		}
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		yearStr := m[3]
		if len(yearStr) == 2 {
			yearStr = "20" + yearStr
		}
		year, _ := strconv.Atoi(yearStr)
		parsed := time.Date(year, time.Month(month), day, 0, 0, 0, 0, now.Location())
		e.cache.Add(m[0], parsed)
		return parsed
	}

	if m := dayMonthNameRe.FindStringSubmatch(label); m != nil {
		if month, ok := monthsByGenitive[strings.ToLower(m[2])]; ok {
			day, _ := strconv.Atoi(m[1])
			return time.Date(now.Year(), month, day, 0, 0, 0, 0, now.Location())
		}
	}

	return now.AddDate(0, 1, 0)
}

// Upcoming flattens scheduled tranches of all records into obligations that
// are not yet past, sorted soonest-first. An installment due earlier today
// counts as due in 0 days.
func (e *Evaluator) Upcoming(ctx context.Context, records []sales.Record, now time.Time) []Obligation {
	var upcoming []Obligation
	for _, rec := range records {
		for _, t := range rec.Tranches {
			due := e.Parse(t.DueDate, now)
			daysUntil := int(math.Ceil(due.Sub(now).Hours() / 24))
			if daysUntil < 0 {
				continue
			}
			upcoming = append(upcoming, Obligation{
				ClientName:  rec.ClientName,
				MasterName:  rec.MasterName,
				PackageType: rec.PackageType,
				Amount:      t.Amount,
				DueDate:     due,
				DueLabel:    t.DueDate,
				DaysUntil:   daysUntil,
				ChatID:      rec.ChatID,
				ThreadID:    rec.ThreadID,
			})
		}
	}

	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].DueDate.Before(upcoming[j].DueDate)
	})

	logger.Debug(ctx, "service.reminders", "upcoming.evaluated",
		slog.Int("records", len(records)),
		slog.Int("reminders", len(upcoming)),
	)
	return upcoming
}
