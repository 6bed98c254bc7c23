package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar day in fixed-width YYYY-MM-DD form. Because the form is
// zero padded, string order is chronological order.
type Date string

func ParseDate(s string) (Date, error) {
	if len(s) != len(dateLayout) {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil || t.Format(dateLayout) != s {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date(s), nil
}

func NewDate(year int, month time.Month, day int) Date {
	return Date(time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Format(dateLayout))
}

func DateOf(t time.Time) Date {
	return Date(t.Format(dateLayout))
}

// Time returns midnight UTC of the day.
func (d Date) Time() (time.Time, error) {
	if _, err := ParseDate(string(d)); err != nil {
		return time.Time{}, err
	}
	t, _ := time.Parse(dateLayout, string(d))
	return t, nil
}

func (d Date) String() string { return string(d) }

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDate, string(b))
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// IsWithinInclusiveRange reports start <= date <= end. All three must be
// well-formed dates.
func IsWithinInclusiveRange(date, start, end string) (bool, error) {
	for _, s := range []string{date, start, end} {
		if _, err := ParseDate(s); err != nil {
			return false, err
		}
	}
	return start <= date && date <= end, nil
}

// DaysUntil counts whole days from now to the start of target, rounding up, so
// a deadline falling today yields 0 and one that passed yesterday yields -1.
// A nil target yields nil.
func DaysUntil(now time.Time, target *Date) (*int, error) {
	if target == nil {
		return nil, nil
	}
	t, err := target.Time()
	if err != nil {
		return nil, err
	}
	days := int(math.Ceil(t.Sub(now).Hours() / 24))
	return &days, nil
}

type Urgency string

const (
	UrgencyExpired  Urgency = "expired"
	UrgencyCritical Urgency = "critical"
	UrgencyWarning  Urgency = "warning"
	UrgencyMonitor  Urgency = "monitor"
	UrgencyOK       Urgency = "ok"
)

// Upper bounds (inclusive) of the non-terminal urgency bands.
const (
	CriticalWithinDays = 30
	WarningWithinDays  = 60
	MonitorWithinDays  = 90
)

// UrgencyBucketFor is the one place the 0/30/60/90 boundaries live.
func UrgencyBucketFor(days *int) Urgency {
	switch {
	case days == nil:
		return UrgencyOK
	case *days <= 0:
		return UrgencyExpired
	case *days <= CriticalWithinDays:
		return UrgencyCritical
	case *days <= WarningWithinDays:
		return UrgencyWarning
	case *days <= MonitorWithinDays:
		return UrgencyMonitor
	default:
		return UrgencyOK
	}
}

// Rank orders urgencies from most to least pressing.
func (u Urgency) Rank() int {
	switch u {
	case UrgencyExpired:
		return 0
	case UrgencyCritical:
		return 1
	case UrgencyWarning:
		return 2
	case UrgencyMonitor:
		return 3
	default:
		return 4
	}
}

type UrgencyCounts struct {
	Expired  int `json:"expired"`
	Critical int `json:"critical"`
	Warning  int `json:"warning"`
	Monitor  int `json:"monitor"`
	OK       int `json:"ok"`
}

func (c *UrgencyCounts) Add(u Urgency) {
	switch u {
	case UrgencyExpired:
		c.Expired++
	case UrgencyCritical:
		c.Critical++
	case UrgencyWarning:
		c.Warning++
	case UrgencyMonitor:
		c.Monitor++
	default:
		c.OK++
	}
}

func (c UrgencyCounts) Total() int {
	return c.Expired + c.Critical + c.Warning + c.Monitor + c.OK
}

// ExpiringWithin returns how many records fall due in 1..days days. Only band
// edges are meaningful, so days is one of 30, 60 or 90.
func (c UrgencyCounts) ExpiringWithin(days int) int {
	n := 0
	if days >= CriticalWithinDays {
		n += c.Critical
	}
	if days >= WarningWithinDays {
		n += c.Warning
	}
	if days >= MonitorWithinDays {
		n += c.Monitor
	}
	return n
}

func CountUrgencies(days []*int) UrgencyCounts {
	var c UrgencyCounts
	for _, d := range days {
		c.Add(UrgencyBucketFor(d))
	}
	return c
}

// ChecklistPercent is the floored share of completed checklist items.
func ChecklistPercent(completed, total int) int {
	if total <= 0 {
		return 0
	}
	completed = max(0, min(completed, total))
	return completed * 100 / total
}

// Week is one calendar row, Monday first. Zero marks a cell outside the month.
type Week [7]int

func BuildMonthGrid(year int, month time.Month) ([]Week, error) {
	if month < time.January || month > time.December || year < 1 || year > 9999 {
		return nil, fmt.Errorf("%w: year %d month %d", ErrInvalidInput, year, month)
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	daysIn := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	offset := (int(first.Weekday()) + 6) % 7

	cells := offset + daysIn
	rows := (cells + 6) / 7
	grid := make([]Week, rows)
	for day := 1; day <= daysIn; day++ {
		pos := offset + day - 1
		grid[pos/7][pos%7] = day
	}
	return grid, nil
}

func EventsOn(day Date, events []CalendarEvent) []CalendarEvent {
	var out []CalendarEvent
	for _, e := range events {
		if e.OccursOn(day) {
			out = append(out, e)
		}
	}
	return out
}
