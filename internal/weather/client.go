package weather

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	jsoniter "github.com/json-iterator/go"

	appLog "dailydigest/internal/log"
	"dailydigest/internal/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrCityNotFound is returned when geocoding yields no match. It is an
// expected outcome and is never retried.
var ErrCityNotFound = errors.New("city not found")

const defaultTimeout = 10 * time.Second

// Options configures a Client. Zero values fall back to the public
// Open-Meteo endpoints, Fahrenheit and three attempts.
type Options struct {
	GeocodeURL  string
	ForecastURL string
	// Unit is "fahrenheit" or "celsius".
	Unit string
	// Attempts is the maximum number of tries per HTTP call. Only timeouts
	// cause another try.
	Attempts int
	Timeout  time.Duration
}

// Client performs the two-step geocode then forecast lookup.
type Client struct {
	client      *http.Client
	geocodeURL  string
	forecastURL string
	unit        string
	attempts    int
}

// NewClient creates a new weather Client.
func NewClient(opts Options) *Client {
	c := &Client{
		geocodeURL:  opts.GeocodeURL,
		forecastURL: opts.ForecastURL,
		unit:        opts.Unit,
		attempts:    opts.Attempts,
	}
	if c.geocodeURL == "" {
		c.geocodeURL = "https://geocoding-api.open-meteo.com/v1/search"
	}
	if c.forecastURL == "" {
		c.forecastURL = "https://api.open-meteo.com/v1/forecast"
	}
	if c.unit == "" {
		c.unit = "fahrenheit"
	}
	if c.attempts <= 0 {
		c.attempts = 3
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c.client = &http.Client{Timeout: timeout}
	return c
}

// Place is a single geocoding match.
type Place struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Country   string  `json:"country"`
	Admin1    string  `json:"admin1"`
	Timezone  string  `json:"timezone"`
}

type geocodeResponse struct {
	Results []Place `json:"results"`
}

type forecastResponse struct {
	Current struct {
		Temperature *float64 `json:"temperature_2m"`
		Humidity    *float64 `json:"relative_humidity_2m"`
		FeelsLike   *float64 `json:"apparent_temperature"`
		WeatherCode *int     `json:"weather_code"`
	} `json:"current"`
	Daily struct {
		Max []*float64 `json:"temperature_2m_max"`
		Min []*float64 `json:"temperature_2m_min"`
	} `json:"daily"`
}

// Geocode resolves a city name to its best match.
func (c *Client) Geocode(ctx context.Context, city string) (Place, error) {
	q := url.Values{}
	q.Set("name", city)
	q.Set("count", "1")
	q.Set("language", "en")
	q.Set("format", "json")

	var resp geocodeResponse
	if err := c.getJSON(ctx, c.geocodeURL, q, &resp); err != nil {
		return Place{}, err
	}
	if len(resp.Results) == 0 {
		return Place{}, fmt.Errorf("%w: %q", ErrCityNotFound, city)
	}
	return resp.Results[0], nil
}

// Forecast fetches current conditions and today's extremes for place.
func (c *Client) Forecast(ctx context.Context, place Place) (model.WeatherReport, error) {
	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%g", place.Latitude))
	q.Set("longitude", fmt.Sprintf("%g", place.Longitude))
	q.Set("current", "temperature_2m,relative_humidity_2m,apparent_temperature,weather_code")
	q.Set("daily", "temperature_2m_max,temperature_2m_min")
	q.Set("temperature_unit", c.unit)
	q.Set("timezone", "auto")
	q.Set("forecast_days", "1")

	var resp forecastResponse
	if err := c.getJSON(ctx, c.forecastURL, q, &resp); err != nil {
		return model.WeatherReport{}, err
	}

	cur := resp.Current
	switch {
	case cur.Temperature == nil:
		return model.WeatherReport{}, errors.New("forecast: missing current.temperature_2m")
	case cur.FeelsLike == nil:
		return model.WeatherReport{}, errors.New("forecast: missing current.apparent_temperature")
	case cur.Humidity == nil:
		return model.WeatherReport{}, errors.New("forecast: missing current.relative_humidity_2m")
	case cur.WeatherCode == nil:
		return model.WeatherReport{}, errors.New("forecast: missing current.weather_code")
	case len(resp.Daily.Max) == 0 || resp.Daily.Max[0] == nil:
		return model.WeatherReport{}, errors.New("forecast: missing daily.temperature_2m_max")
	case len(resp.Daily.Min) == 0 || resp.Daily.Min[0] == nil:
		return model.WeatherReport{}, errors.New("forecast: missing daily.temperature_2m_min")
	}

	return model.WeatherReport{
		Location:    place.Name,
		Description: Describe(*cur.WeatherCode),
		Unit:        unitSymbol(c.unit),
		Temperature: round(*cur.Temperature),
		FeelsLike:   round(*cur.FeelsLike),
		Humidity:    round(*cur.Humidity),
		High:        round(*resp.Daily.Max[0]),
		Low:         round(*resp.Daily.Min[0]),
	}, nil
}

// Lookup geocodes city and fetches its forecast.
func (c *Client) Lookup(ctx context.Context, city string) (model.WeatherReport, error) {
	place, err := c.Geocode(ctx, city)
	if err != nil {
		return model.WeatherReport{}, err
	}
	appLog.Debug("weather geocoded", "city", city, "name", place.Name, "lat", place.Latitude, "lon", place.Longitude)
	return c.Forecast(ctx, place)
}

// getJSON performs a GET and decodes the body into out. Only timeouts are
// retried, immediately, up to c.attempts tries in total.
func (c *Client) getJSON(ctx context.Context, endpoint string, q url.Values, out any) error {
	target := endpoint + "?" + q.Encode()
	attempt := 0

	op := func() error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return classify(err, endpoint, attempt)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return classify(err, endpoint, attempt)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return backoff.Permanent(fmt.Errorf("GET %s: %s", redactURL(endpoint), resp.Status))
		}
		if err := json.Unmarshal(body, out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode %s: %w", redactURL(endpoint), err))
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(&backoff.ZeroBackOff{}, uint64(c.attempts-1)),
		ctx,
	)
	return backoff.Retry(op, policy)
}

// classify marks non-timeout transport errors as permanent.
func classify(err error, endpoint string, attempt int) error {
	if isTimeout(err) {
		appLog.Info("weather request timed out", "url", redactURL(endpoint), "attempt", attempt)
		return err
	}
	return backoff.Permanent(err)
}

func isTimeout(err error) bool {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func unitSymbol(unit string) string {
	if unit == "celsius" {
		return "°C"
	}
	return "°F"
}

func round(v float64) int {
	return int(math.Round(v))
}

// redactURL keeps only scheme and host for logging.
func redactURL(u string) string {
	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" {
		return "(redacted)"
	}
	return parsed.Scheme + "://" + parsed.Host
}
