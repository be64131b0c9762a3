package market

import "time"

// CyclePolicy splits the game day into windows that reset at ResetHour in Location.
type CyclePolicy struct {
	ResetHour int
	Location  *time.Location
}

// Window returns the UTC bounds [start, end) of the cycle containing now.
func (p CyclePolicy) Window(now time.Time) (start, end time.Time) {
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	s := time.Date(local.Year(), local.Month(), local.Day(), p.ResetHour, 0, 0, 0, loc)
	if local.Before(s) {
		s = s.AddDate(0, 0, -1)
	}
	return s.UTC(), s.AddDate(0, 0, 1).UTC()
}

// IsFresh reports whether a batch generated at generatedAt belongs to the current cycle.
func (p CyclePolicy) IsFresh(generatedAt, now time.Time) bool {
	start, _ := p.Window(now)
	return !generatedAt.Before(start)
}

// MonthKey returns the local calendar month of now as "YYYY-MM".
func (p CyclePolicy) MonthKey(now time.Time) string {
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc).Format("2006-01")
}
