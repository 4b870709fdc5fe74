package society

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Calendar day stored as YYYY-MM-DD
// =============================================================================

const (
	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"
	labelLayout = "January 2006"
)

// Date is a calendar day in its canonical YYYY-MM-DD form. The string form
// sorts chronologically, which the overdue pass relies on.
type Date string

func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

func DateOf(t time.Time) Date { return Date(t.Format(dateLayout)) }

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return DateOf(t), nil
}

func (d Date) Time() time.Time {
	t, _ := time.Parse(dateLayout, string(d))
	return t
}

func (d Date) Valid() bool {
	_, err := time.Parse(dateLayout, string(d))
	return err == nil
}

// Day returns the day of month, or 0 for a malformed date.
func (d Date) Day() int {
	if !d.Valid() {
		return 0
	}
	return d.Time().Day()
}

func (d Date) Before(other Date) bool { return d < other }
func (d Date) IsZero() bool           { return d == "" }

// =============================================================================
// MONTH - Billing month stored as YYYY-MM
// =============================================================================

type Month string

func MonthOf(t time.Time) Month { return Month(t.Format(monthLayout)) }

func ParseMonth(s string) (Month, error) {
	t, err := time.Parse(monthLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid month %q: want YYYY-MM", s)
	}
	return MonthOf(t), nil
}

func (m Month) Time() time.Time {
	t, _ := time.Parse(monthLayout, string(m))
	return t
}

func (m Month) Valid() bool {
	_, err := time.Parse(monthLayout, string(m))
	return err == nil
}

// Label returns the display form, e.g. "March 2025".
func (m Month) Label() string {
	if !m.Valid() {
		return string(m)
	}
	return m.Time().Format(labelLayout)
}

// MonthsBetween counts the months in [from, to], inclusive. It returns 0 when
// to precedes from.
func MonthsBetween(from, to Month) int {
	a, b := from.Time(), to.Time()
	n := (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month()) + 1
	if n < 0 {
		return 0
	}
	return n
}

// =============================================================================
// BILLING PERIOD
// =============================================================================

// BillingPeriod is one monthly maintenance cycle.
type BillingPeriod struct {
	Month Month
	Label string
	Due   Date
}

// PeriodFor returns the billing period containing t, due on dueDay of that
// month (clamped to the month's last day).
func PeriodFor(t time.Time, dueDay int) BillingPeriod {
	m := MonthOf(t)
	return BillingPeriod{
		Month: m,
		Label: m.Label(),
		Due:   dueDateIn(t, dueDay),
	}
}

// RangeLabel renders a span of months. A single month renders as its label.
func RangeLabel(from, to Month) string {
	if from == to || to == "" {
		return from.Label()
	}
	return from.Label() + " – " + to.Label()
}

func dueDateIn(t time.Time, dueDay int) Date {
	if dueDay < 1 {
		dueDay = 1
	}
	last := time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1).Day()
	if dueDay > last {
		dueDay = last
	}
	return NewDate(t.Year(), t.Month(), dueDay)
}
