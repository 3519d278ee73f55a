package planner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	appLog "dailydigest/internal/log"
	"dailydigest/internal/model"
)

const (
	itemsPath = "/api/v1/planner/items"
	perPage   = 50
	dateOnly  = "2006-01-02"
)

// Source lists planner items whose dates fall in [start, end].
type Source interface {
	Items(ctx context.Context, start, end time.Time) ([]model.PlannerItem, error)
}

// Client reads the Canvas planner API with a bearer token. It makes a
// single request per call and never retries.
type Client struct {
	client  *http.Client
	baseURL string
	token   string
}

// NewClient creates a planner Client.
//
// host is the LMS host without scheme (e.g. "school.instructure.com"). A
// value that already carries a scheme is used as-is, which is how tests
// point the client at an httptest server.
func NewClient(host, token string) *Client {
	base := strings.TrimRight(host, "/")
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}
	return &Client{
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		baseURL: base,
		token:   token,
	}
}

// Items fetches planner items between the calendar dates of start and end.
// The API filters by date string, so the time of day is ignored.
func (c *Client) Items(ctx context.Context, start, end time.Time) ([]model.PlannerItem, error) {
	q := url.Values{}
	q.Set("start_date", start.Format(dateOnly))
	q.Set("end_date", end.Format(dateOnly))
	q.Set("per_page", fmt.Sprint(perPage))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+itemsPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	appLog.Info("planner fetch start", "url", redactURL(c.baseURL), "start_date", q.Get("start_date"), "end_date", q.Get("end_date"))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Canvas reports failures as {"errors":[{"message":"..."}]}.
		if msg := gjson.GetBytes(body, "errors.0.message").String(); msg != "" {
			return nil, fmt.Errorf("%s: %s", resp.Status, msg)
		}
		return nil, errors.New(resp.Status)
	}

	items, err := decodeItems(body)
	if err != nil {
		return nil, err
	}
	appLog.Info("planner fetch success", "url", redactURL(c.baseURL), "status", resp.StatusCode, "item_count", len(items))
	return items, nil
}

// decodeItems reads the planner array. The due timestamp lives either at
// plannable.due_at or at the top-level plannable_date; both are kept and
// PlannerItem.Due picks one.
func decodeItems(body []byte) ([]model.PlannerItem, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("planner response is not valid JSON")
	}
	root := gjson.ParseBytes(body)
	if !root.IsArray() {
		return nil, fmt.Errorf("planner response is not a list (got %s)", root.Type)
	}

	items := make([]model.PlannerItem, 0)
	root.ForEach(func(_, v gjson.Result) bool {
		items = append(items, model.PlannerItem{
			DueAt:         v.Get("plannable.due_at").String(),
			PlannableDate: v.Get("plannable_date").String(),
			Title:         v.Get("plannable.title").String(),
			ContextName:   v.Get("context_name").String(),
		})
		return true
	})
	return items, nil
}

// redactURL hides everything after the host for logging purposes.
func redactURL(u string) string {
	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" {
		return "canvas://...(redacted)"
	}
	return parsed.Scheme + "://" + parsed.Host
}
