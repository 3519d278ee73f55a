package pushover

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

// DefaultURL is the Pushover messages endpoint.
const DefaultURL = "https://api.pushover.net/1/messages.json"

// ErrRejected wraps every non-2xx response from the messages endpoint.
var ErrRejected = errors.New("pushover: message rejected")

// Client submits messages to Pushover. Sends are not retried.
type Client struct {
	client   *http.Client
	endpoint string
	token    string
	user     string
}

// NewClient creates a Pushover client. An empty endpoint uses DefaultURL.
func NewClient(endpoint, token, user string) *Client {
	if endpoint == "" {
		endpoint = DefaultURL
	}
	return &Client{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		endpoint: endpoint,
		token:    token,
		user:     user,
	}
}

// Send posts msg with normal priority.
func (c *Client) Send(ctx context.Context, msg model.DigestMessage) error {
	form := url.Values{}
	form.Set("token", c.token)
	form.Set("user", c.user)
	form.Set("title", msg.Title)
	form.Set("message", msg.Body)
	form.Set("priority", "0")
	if msg.HTML {
		form.Set("html", "1")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("pushover: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("pushover: send: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s%s", ErrRejected, resp.Status, describe(body))
	}

	appLog.Info("notification sent", "request", gjson.GetBytes(body, "request").String(), "html", msg.HTML)
	return nil
}

// describe extracts Pushover's errors[] list from a JSON error body.
func describe(body []byte) string {
	res := gjson.GetBytes(body, "errors")
	if !res.IsArray() {
		return ""
	}
	msgs := make([]string, 0)
	for _, e := range res.Array() {
		if s := e.String(); s != "" {
			msgs = append(msgs, s)
		}
	}
	if len(msgs) == 0 {
		return ""
	}
	return " (" + strings.Join(msgs, "; ") + ")"
}
