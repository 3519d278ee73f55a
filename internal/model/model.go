package model

import "fmt"

// WeatherReport is the current conditions for one place, with every
// temperature rounded to an integer in a single unit.
type WeatherReport struct {
	Location    string
	Description string
	Unit        string // "°F" or "°C"

	Temperature int
	FeelsLike   int
	Humidity    int // percent
	High        int
	Low         int
}

// PlannerItem is the subset of a Canvas planner item the digest reads.
type PlannerItem struct {
	// DueAt comes from plannable.due_at and is empty for items without one
	// (announcements, some calendar events).
	DueAt string
	// PlannableDate is the top-level plannable_date fallback.
	PlannableDate string

	Title       string
	ContextName string
}

// Due returns the due timestamp, preferring plannable.due_at.
func (p PlannerItem) Due() string {
	if p.DueAt != "" {
		return p.DueAt
	}
	return p.PlannableDate
}

// AssignmentEntry is a planner item after timezone normalization.
type AssignmentEntry struct {
	// DaysLeft is the calendar-day offset from today in the reference zone.
	// Negative means overdue.
	DaysLeft int
	Label    string
	Title    string
	Course   string
	Line     string
}

// Section is one rendered block of the digest. A degraded section carries
// an error description instead of data, and is still sent.
type Section struct {
	Text     string
	Degraded bool
}

// Degraded builds the fallback section shown when a lookup fails.
func Degraded(what string, err error) Section {
	return Section{
		Text:     fmt.Sprintf("⚠️ %s unavailable (%v)", what, err),
		Degraded: true,
	}
}

// DigestMessage is the notification handed to the sender.
type DigestMessage struct {
	Title string
	Body  string
	HTML  bool
}
