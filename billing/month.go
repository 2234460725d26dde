package billing

import (
	"fmt"
	"time"
)

// =============================================================================
// MONTH - Calendar month used as the billing key
// =============================================================================

// Month is a calendar month. Payments are keyed by (tenant, month) and
// recurring expenses are evaluated month by month, never by day.
type Month struct {
	Year  int
	Month time.Month
}

const monthLayout = "2006-01"

// NewMonth returns the month for year/month.
func NewMonth(year int, month time.Month) Month {
	return Month{Year: year, Month: month}
}

// MonthOf returns the calendar month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// CurrentMonth returns the month containing now (UTC).
func CurrentMonth() Month {
	return MonthOf(time.Now().UTC())
}

// ParseMonth accepts "YYYY-MM" and also "YYYY-MM-DD" (the day is ignored).
func ParseMonth(s string) (Month, error) {
	if len(s) > len(monthLayout) {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
		}
		return MonthOf(t), nil
	}
	t, err := time.Parse(monthLayout, s)
	if err != nil {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return MonthOf(t), nil
}

// Valid reports whether the month can be used as a billing key.
func (m Month) Valid() bool {
	return m.Year > 0 && m.Month >= time.January && m.Month <= time.December
}

// Start returns the first day of the month at 00:00 UTC.
func (m Month) Start() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End returns the last day of the month at 00:00 UTC.
func (m Month) End() time.Time {
	return time.Date(m.Year, m.Month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
}

// Contains reports whether t falls on any day of the month.
func (m Month) Contains(t time.Time) bool {
	return MonthOf(t) == m
}

// Add moves the month n months forward (or backward when n < 0).
func (m Month) Add(n int) Month {
	return MonthOf(m.Start().AddDate(0, n, 0))
}

// Index counts months since year 0; differences between indexes are month distances.
func (m Month) Index() int {
	return m.Year*12 + int(m.Month) - 1
}

func (m Month) Before(other Month) bool        { return m.Index() < other.Index() }
func (m Month) After(other Month) bool         { return m.Index() > other.Index() }
func (m Month) BeforeOrEqual(other Month) bool { return m.Index() <= other.Index() }

// MonthsBetween returns to - from in whole months. Negative when to precedes from.
func MonthsBetween(from, to Month) int {
	return to.Index() - from.Index()
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// DateKey is the first-of-month date used as the stored payment month.
func (m Month) DateKey() string {
	return m.Start().Format("2006-01-02")
}

func (m Month) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Month) UnmarshalText(b []byte) error {
	parsed, err := ParseMonth(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
