package domain

// CalendarItem is any item carrying a derivable calendar date, used
// as the reconciler's sort and bucket key. The date string is
// "YYYY-MM-DD"; items whose upstream date field is absent or shorter
// than a full date return "" and are bucketed with their request day.
type CalendarItem interface {
	CalendarDate() string
}

// CalendarMovie is a dated movie release from the movie calendar.
type CalendarMovie struct {
	Released *string `json:"released"`
	Movie    Movie   `json:"movie"`
}

func (m CalendarMovie) CalendarDate() string {
	return dateOnly(m.Released)
}

// CalendarShow is a dated episode airing from the show calendars.
type CalendarShow struct {
	FirstAired *string  `json:"first_aired"`
	Episode    *Episode `json:"episode,omitempty"`
	Show       Show     `json:"show"`
}

func (s CalendarShow) CalendarDate() string {
	return dateOnly(s.FirstAired)
}

// dateOnly trims an RFC3339-ish timestamp down to YYYY-MM-DD.
func dateOnly(ts *string) string {
	if ts == nil || len(*ts) < 10 {
		return ""
	}
	return (*ts)[:10]
}
