package planner

import (
	"context"
	"fmt"
	"strings"
	"time"

	appLog "dailydigest/internal/log"
	"dailydigest/internal/markup"
	"dailydigest/internal/model"
)

// Render formats sorted entries. An empty list renders the fixed
// "no assignments" line rather than an empty section.
func Render(entries []model.AssignmentEntry, horizon int, m markup.Markup) string {
	if len(entries) == 0 {
		return fmt.Sprintf("📚 No assignments due in the next %d days.", horizon)
	}
	lines := make([]string, 0, len(entries)+1)
	lines = append(lines, m.Bold("📚 Upcoming assignments"))
	for _, e := range entries {
		lines = append(lines, e.Line)
	}
	return strings.Join(lines, "\n")
}

// Section fetches, normalizes and renders the assignment list. A failed
// fetch degrades to a single warning line.
func Section(ctx context.Context, src Source, now time.Time, loc *time.Location, horizon int, m markup.Markup) model.Section {
	today := now.In(loc)
	start, end := Window(today, horizon)

	items, err := src.Items(ctx, start, end)
	if err != nil {
		appLog.Error("planner lookup failed", err, "horizon_days", horizon)
		return model.Degraded("Canvas", err)
	}

	entries := Normalize(items, today, loc, m)
	appLog.Info("planner lookup ok", "items", len(items), "entries", len(entries))
	return model.Section{Text: Render(entries, horizon, m)}
}
