// Package schedule derives cycle boundaries and due dates from a group's
// frequency and start date.
//
// Every function here is pure. Dates are normalized to UTC midnight and each
// step is taken from the previous (already clamped) date, so a monthly chain
// starting on the 31st drifts to the 29th/30th after a short month and stays
// there.
package schedule

import (
	"fmt"
	"time"

	"github.com/mmynk/kopa/internal/models"
)

// DateLayout is the wire and storage format for schedule dates.
const DateLayout = "2006-01-02"

// Stepper advances a date by one cycle.
type Stepper interface {
	Next(from time.Time) time.Time
}

// Weekly advances by seven days.
type Weekly struct{}

func (Weekly) Next(from time.Time) time.Time {
	return from.AddDate(0, 0, 7)
}

// Monthly advances by one calendar month, clamping the day to the last valid
// day of the target month (31 Jan -> 28/29 Feb).
type Monthly struct{}

func (Monthly) Next(from time.Time) time.Time {
	year, month, day := from.Date()
	month++
	if month > time.December {
		month = time.January
		year++
	}
	if last := daysIn(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

var steppers = map[models.Frequency]Stepper{
	models.FrequencyWeekly:  Weekly{},
	models.FrequencyMonthly: Monthly{},
}

// StepperFor returns the stepper for a frequency.
func StepperFor(f models.Frequency) (Stepper, error) {
	s, ok := steppers[f]
	if !ok {
		return nil, fmt.Errorf("unsupported frequency: %q", f)
	}
	return s, nil
}

// AddInterval returns d advanced by one cycle of frequency f.
func AddInterval(d time.Time, f models.Frequency) (time.Time, error) {
	s, err := StepperFor(f)
	if err != nil {
		return time.Time{}, err
	}
	return s.Next(Day(d)), nil
}

// NextDueDate returns the first due date of the group strictly after ref.
// Due dates are start+1, start+2, ... intervals, each taken from the previous one.
func NextDueDate(g *models.Group, ref time.Time) (time.Time, error) {
	s, err := StepperFor(g.Frequency)
	if err != nil {
		return time.Time{}, err
	}
	ref = Day(ref)
	d := s.Next(Day(g.StartDate))
	for !d.After(ref) {
		d = s.Next(d)
	}
	return d, nil
}

// DueDates returns the first n due dates of a schedule starting at start.
func DueDates(start time.Time, f models.Frequency, n int) ([]time.Time, error) {
	s, err := StepperFor(f)
	if err != nil {
		return nil, err
	}
	dates := make([]time.Time, 0, n)
	d := Day(start)
	for i := 0; i < n; i++ {
		d = s.Next(d)
		dates = append(dates, d)
	}
	return dates, nil
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate formats a date as YYYY-MM-DD; the zero time formats as "".
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
