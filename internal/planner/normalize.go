package planner

import (
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode"

	appLog "dailydigest/internal/log"
	"dailydigest/internal/markup"
	"dailydigest/internal/model"
)

// Window returns the date range to request: today through today+horizon
// calendar days, both in now's location.
func Window(now time.Time, horizon int) (start, end time.Time) {
	return now, now.AddDate(0, 0, horizon)
}

// ParseDue parses a planner timestamp and converts it into loc.
//
// A trailing "Z" is read as +00:00. Timestamps without an offset, and bare
// dates, are taken to be in loc already.
func ParseDue(raw string, loc *time.Location) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if strings.HasSuffix(s, "Z") {
		s = strings.TrimSuffix(s, "Z") + "+00:00"
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04", dateOnly} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}

// DaysBetween counts calendar days from from's date to to's date. Times of
// day are ignored, so 23:59 and 00:01 the next day are one day apart. Both
// values must already be in the same location.
func DaysBetween(from, to time.Time) int {
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// Label renders a day offset. Overdue items are not special-cased and show
// as e.g. "in -2d".
func Label(days int) string {
	switch days {
	case 0:
		return "TODAY"
	case 1:
		return "tomorrow"
	default:
		return fmt.Sprintf("in %dd", days)
	}
}

// ShortCourse drops a trailing "-Instructor" suffix from a course name. The
// name is split on its last hyphen; the tail is dropped only when it holds
// no whitespace.
//
//	"Adult Health II-Mondragon"    -> "Adult Health II"
//	"Intro to Art-History Seminar" -> unchanged
//	"Topics-Advanced"              -> "Topics" (single-word tails always go)
func ShortCourse(course string) string {
	i := strings.LastIndex(course, "-")
	if i < 0 {
		return course
	}
	if strings.ContainsFunc(course[i+1:], unicode.IsSpace) {
		return course
	}
	return strings.TrimSpace(course[:i])
}

// Normalize turns raw planner items into entries sorted by day offset.
// Items without a due date are dropped; so are items whose timestamp does
// not parse, with a log line.
func Normalize(items []model.PlannerItem, now time.Time, loc *time.Location, m markup.Markup) []model.AssignmentEntry {
	today := now.In(loc)
	entries := make([]model.AssignmentEntry, 0, len(items))

	for _, it := range items {
		raw := it.Due()
		if raw == "" {
			continue
		}
		due, err := ParseDue(raw, loc)
		if err != nil {
			appLog.Error("planner item skipped", err, "title", it.Title)
			continue
		}

		title := it.Title
		if title == "" {
			title = "Untitled"
		}
		days := DaysBetween(today, due)
		e := model.AssignmentEntry{
			DaysLeft: days,
			Label:    Label(days),
			Title:    title,
			Course:   ShortCourse(it.ContextName),
		}
		e.Line = renderLine(e, m)
		entries = append(entries, e)
	}

	slices.SortStableFunc(entries, func(a, b model.AssignmentEntry) int {
		return a.DaysLeft - b.DaysLeft
	})
	return entries
}

func renderLine(e model.AssignmentEntry, m markup.Markup) string {
	label := e.Label
	if e.DaysLeft == 0 || e.DaysLeft == 1 {
		label = m.Bold(label)
	}
	return fmt.Sprintf("  • %s [%s] — due %s", m.Text(e.Title), m.Text(e.Course), label)
}
