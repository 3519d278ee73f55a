package weather

import (
	"context"
	"fmt"

	appLog "dailydigest/internal/log"
	"dailydigest/internal/markup"
	"dailydigest/internal/model"
)

// Lookuper resolves a city to a report. *Client implements it.
type Lookuper interface {
	Lookup(ctx context.Context, city string) (model.WeatherReport, error)
}

// Render formats a report as three short lines.
func Render(r model.WeatherReport, m markup.Markup) string {
	header := m.Bold("🌤 Weather in " + m.Text(r.Location))
	return fmt.Sprintf(
		"%s\n  %s, %d%s (feels %d%s)\n  High %d%s · Low %d%s · Humidity %d%%",
		header,
		m.Text(r.Description), r.Temperature, r.Unit, r.FeelsLike, r.Unit,
		r.High, r.Unit, r.Low, r.Unit, r.Humidity,
	)
}

// Section runs the lookup and renders it, degrading any failure to a
// single warning line so the digest can still be sent.
func Section(ctx context.Context, l Lookuper, city string, m markup.Markup) model.Section {
	report, err := l.Lookup(ctx, city)
	if err != nil {
		appLog.Error("weather lookup failed", err, "city", city)
		return model.Degraded("Weather", err)
	}
	appLog.Info("weather lookup ok", "city", city, "description", report.Description, "temperature", report.Temperature)
	return model.Section{Text: Render(report, m)}
}
