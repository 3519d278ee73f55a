package planner

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dailydigest/internal/markup"
	"dailydigest/internal/model"
)

var march1 = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func TestLabel(t *testing.T) {
	assert.Equal(t, "TODAY", Label(0))
	assert.Equal(t, "tomorrow", Label(1))
	assert.Equal(t, "in 2d", Label(2))
	assert.Equal(t, "in 14d", Label(14))
	assert.Equal(t, "in -2d", Label(-2))
	assert.Equal(t, "in -1d", Label(-1))
}

func TestShortCourse(t *testing.T) {
	cases := map[string]string{
		"Adult Health II-Mondragon":    "Adult Health II",
		"Intro to Art-History Seminar": "Intro to Art-History Seminar",
		"Biology":                      "Biology",
		"Topics-Advanced":              "Topics",
		"Pharm - Smith":                "Pharm - Smith",
		"Pre-Calc-Jones":               "Pre-Calc",
		"Chem 101 -Lee":                "Chem 101",
		"":                             "",
	}
	for in, want := range cases {
		assert.Equal(t, want, ShortCourse(in), "ShortCourse(%q)", in)
	}
}

func TestDaysBetweenUsesCalendarDates(t *testing.T) {
	from := time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, 1, DaysBetween(from, time.Date(2024, 3, 2, 0, 1, 0, 0, time.UTC)))
	assert.Equal(t, 0, DaysBetween(from, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, -3, DaysBetween(from, time.Date(2024, 2, 27, 12, 0, 0, 0, time.UTC)))

	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	// Across the spring-forward transition a day is 23 hours long.
	assert.Equal(t, 1, DaysBetween(
		time.Date(2024, 3, 10, 0, 30, 0, 0, ny),
		time.Date(2024, 3, 11, 0, 10, 0, 0, ny),
	))
}

func TestParseDue(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	z, err := ParseDue("2024-03-02T03:00:00Z", ny)
	require.NoError(t, err)
	assert.Equal(t, 1, z.Day())
	assert.Equal(t, 22, z.Hour())

	off, err := ParseDue("2024-03-02T03:00:00+00:00", ny)
	require.NoError(t, err)
	assert.True(t, z.Equal(off))

	naive, err := ParseDue("2024-03-05T10:00:00", ny)
	require.NoError(t, err)
	assert.Equal(t, ny, naive.Location())
	assert.Equal(t, 10, naive.Hour())

	date, err := ParseDue("2024-03-05", ny)
	require.NoError(t, err)
	assert.Equal(t, 5, date.Day())

	_, err = ParseDue("next tuesday", ny)
	assert.Error(t, err)
}

func TestNormalizeEndToEndScenario(t *testing.T) {
	items := []model.PlannerItem{
		{DueAt: "2024-03-03T12:00:00Z", Title: "Care Plan", ContextName: "Adult Health II-Mondragon"},
		{DueAt: "2024-03-01T23:00:00Z", Title: "Quiz 4", ContextName: "Pharmacology-Smith"},
	}

	entries := Normalize(items, march1, time.UTC, markup.Plain{})
	require.Len(t, entries, 2)

	assert.Equal(t, 0, entries[0].DaysLeft)
	assert.Equal(t, "TODAY", entries[0].Label)
	assert.Equal(t, "  • Quiz 4 [Pharmacology] — due TODAY", entries[0].Line)

	assert.Equal(t, 2, entries[1].DaysLeft)
	assert.Equal(t, "in 2d", entries[1].Label)
	assert.Equal(t, "  • Care Plan [Adult Health II] — due in 2d", entries[1].Line)
}

func TestNormalizeSkipsAndFallsBack(t *testing.T) {
	items := []model.PlannerItem{
		{Title: "Announcement"},
		{PlannableDate: "2024-03-02T15:00:00Z", Title: "Discussion", ContextName: "Ethics"},
		{DueAt: "garbage", Title: "Broken"},
		{DueAt: "2024-03-04T15:00:00Z", ContextName: "Ethics"},
	}

	entries := Normalize(items, march1, time.UTC, markup.Plain{})
	require.Len(t, entries, 2)
	assert.Equal(t, "Discussion", entries[0].Title)
	assert.Equal(t, "tomorrow", entries[0].Label)
	assert.Equal(t, "Untitled", entries[1].Title)
}

func TestNormalizeIsStable(t *testing.T) {
	items := []model.PlannerItem{
		{DueAt: "2024-03-04T10:00:00Z", Title: "C"},
		{DueAt: "2024-03-02T23:00:00Z", Title: "A1"},
		{DueAt: "2024-02-28T10:00:00Z", Title: "Overdue"},
		{DueAt: "2024-03-02T01:00:00Z", Title: "A2"},
		{DueAt: "2024-03-02T12:00:00Z", Title: "A3"},
	}

	entries := Normalize(items, march1, time.UTC, markup.Plain{})
	titles := make([]string, 0, len(entries))
	for i, e := range entries {
		titles = append(titles, e.Title)
		if i > 0 {
			assert.LessOrEqual(t, entries[i-1].DaysLeft, e.DaysLeft)
		}
	}
	assert.Equal(t, []string{"Overdue", "A1", "A2", "A3", "C"}, titles)
	assert.Equal(t, "in -2d", entries[0].Label)
}

func TestNormalizeUsesReferenceZone(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	// 20:00Z on March 1 is already March 2 in Tokyo, while "now" there is
	// still March 1 at 18:30.
	items := []model.PlannerItem{{DueAt: "2024-03-01T20:00:00Z", Title: "Essay"}}
	entries := Normalize(items, march1, tokyo, markup.Plain{})
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].DaysLeft)
}

func TestRenderEmptyAndHTML(t *testing.T) {
	assert.Equal(t, "📚 No assignments due in the next 7 days.", Render(nil, 7, markup.Plain{}))
	assert.Equal(t, "📚 No assignments due in the next 3 days.", Render([]model.AssignmentEntry{}, 3, markup.HTML{}))

	items := []model.PlannerItem{
		{DueAt: "2024-03-01T20:00:00Z", Title: "Lab <3>", ContextName: "Bio & Chem-Lee"},
		{DueAt: "2024-03-02T20:00:00Z", Title: "Reading", ContextName: "Ethics"},
		{DueAt: "2024-03-05T20:00:00Z", Title: "Exam", ContextName: "Ethics"},
	}
	out := Render(Normalize(items, march1, time.UTC, markup.HTML{}), 7, markup.HTML{})
	want := strings.Join([]string{
		"<b>📚 Upcoming assignments</b>",
		"  • Lab &lt;3&gt; [Bio &amp; Chem] — due <b>TODAY</b>",
		"  • Reading [Ethics] — due <b>tomorrow</b>",
		"  • Exam [Ethics] — due in 4d",
	}, "\n")
	assert.Equal(t, want, out)
}

func TestClientItems(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/planner/items", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		q := r.URL.Query()
		assert.Equal(t, "2024-03-01", q.Get("start_date"))
		assert.Equal(t, "2024-03-08", q.Get("end_date"))
		assert.Equal(t, "50", q.Get("per_page"))
		_, _ = w.Write([]byte(`[
			{"context_name":"Adult Health II-Mondragon","plannable_date":"2024-03-03T12:00:00Z","plannable":{"title":"Care Plan","due_at":"2024-03-03T12:00:00Z"}},
			{"context_name":"Ethics","plannable_date":"2024-03-02T15:00:00Z","plannable":{"title":"Discussion","due_at":null}},
			{"context_name":"Ethics","plannable":{"title":"Announcement"}}
		]`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL+"/", "secret")
	start, end := Window(march1, 7)
	items, err := c.Items(context.Background(), start, end)
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, "2024-03-03T12:00:00Z", items[0].Due())
	assert.Equal(t, "Care Plan", items[0].Title)
	assert.Equal(t, "Adult Health II-Mondragon", items[0].ContextName)
	assert.Empty(t, items[1].DueAt)
	assert.Equal(t, "2024-03-02T15:00:00Z", items[1].Due())
	assert.Empty(t, items[2].Due())
}

func TestClientErrors(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"errors":[{"message":"Invalid access token."}]}`, "Invalid access token."},
		{"server error", http.StatusBadGateway, `<html>bad gateway</html>`, "502"},
		{"not json", http.StatusOK, `<html>login</html>`, "not valid JSON"},
		{"not a list", http.StatusOK, `{"items":[]}`, "not a list"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer ts.Close()

			_, err := NewClient(ts.URL, "secret").Items(context.Background(), march1, march1)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestNewClientAddsScheme(t *testing.T) {
	c := NewClient("school.instructure.com/", "t")
	assert.Equal(t, "https://school.instructure.com", c.baseURL)
}

type stubSource struct {
	items      []model.PlannerItem
	err        error
	start, end time.Time
}

func (s *stubSource) Items(_ context.Context, start, end time.Time) ([]model.PlannerItem, error) {
	s.start, s.end = start, end
	return s.items, s.err
}

func TestSection(t *testing.T) {
	src := &stubSource{}
	s := Section(context.Background(), src, march1, time.UTC, 7, markup.Plain{})
	assert.False(t, s.Degraded)
	assert.Equal(t, "📚 No assignments due in the next 7 days.", s.Text)
	assert.Equal(t, "2024-03-08", src.end.Format("2006-01-02"))

	src = &stubSource{err: errors.New("401 Unauthorized")}
	s = Section(context.Background(), src, march1, time.UTC, 7, markup.Plain{})
	assert.True(t, s.Degraded)
	assert.Equal(t, "⚠️ Canvas unavailable (401 Unauthorized)", s.Text)
}
