package plannersdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is a minimal planner HTTP API client.
type Client struct {
	BaseURL     string
	BasePath    string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "/v0",
		Timeout:  10 * time.Second,
	}
}

// Activity is one stored copy of an activity. Dates are YYYY-MM-DD.
type Activity struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Date        string `json:"date"`
	StartDate   string `json:"startDate,omitempty"`
	Time        string `json:"time,omitempty"`
	EndTime     string `json:"endTime,omitempty"`
	EndDate     string `json:"endDate,omitempty"`
	Completed   *bool  `json:"completed,omitempty"`
	Description string `json:"description,omitempty"`
}

// NewActivity is the add payload.
type NewActivity struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Time        string `json:"time,omitempty"`
	EndTime     string `json:"endTime,omitempty"`
	EndDate     string `json:"endDate,omitempty"`
	Completed   *bool  `json:"completed,omitempty"`
	Description string `json:"description,omitempty"`
}

// ActivityPatch is a partial update; nil fields are left alone.
type ActivityPatch struct {
	Name         *string `json:"name,omitempty"`
	Category     *string `json:"category,omitempty"`
	Time         *string `json:"time,omitempty"`
	EndTime      *string `json:"endTime,omitempty"`
	StartDate    *string `json:"startDate,omitempty"`
	EndDate      *string `json:"endDate,omitempty"`
	ClearEndDate bool    `json:"clearEndDate,omitempty"`
	Completed    *bool   `json:"completed,omitempty"`
	Description  *string `json:"description,omitempty"`
}

type Day struct {
	Date       string     `json:"date"`
	Activities []Activity `json:"activities"`
	Timeline   []Activity `json:"timeline"`
	Todos      []Activity `json:"todos"`
}

type MonthDay struct {
	Date       string     `json:"date"`
	InMonth    bool       `json:"in_month"`
	Today      bool       `json:"today"`
	Activities []Activity `json:"activities"`
}

type Month struct {
	Year      int        `json:"year"`
	Month     int        `json:"month"`
	WeekStart string     `json:"week_start"`
	Days      []MonthDay `json:"days"`
}

type YearMonth struct {
	Month int    `json:"month"`
	Name  string `json:"name"`
	Count int    `json:"count"`
	Days  []struct {
		Date  string `json:"date"`
		Count int    `json:"count"`
	} `json:"days"`
}

type Year struct {
	Year   int         `json:"year"`
	Count  int         `json:"count"`
	Months []YearMonth `json:"months"`
}

// Event represents a change-log entry.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	Date       string `json:"date"`
	ActivityID string `json:"activity_id,omitempty"`
}

// PaginatedEvents wraps list responses with cursors.
type PaginatedEvents struct {
	Items      []Event `json:"items"`
	NextCursor string  `json:"next_cursor"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// NotFound reports whether err is a 404 from the API.
func NotFound(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.StatusCode == http.StatusNotFound
}

// Day returns the activities filed under date (YYYY-MM-DD or "today").
func (c *Client) Day(ctx context.Context, date string) (Day, error) {
	var resp Day
	err := c.do(ctx, http.MethodGet, c.dayPath(date, ""), nil, &resp)
	return resp, err
}

// AddActivity files a new activity under date.
func (c *Client) AddActivity(ctx context.Context, date string, a NewActivity) (Activity, error) {
	var resp Activity
	err := c.do(ctx, http.MethodPost, c.dayPath(date, "activities"), a, &resp)
	return resp, err
}

// UpdateActivity merges p into the activity.
func (c *Client) UpdateActivity(ctx context.Context, date, id string, p ActivityPatch) (Activity, error) {
	var resp Activity
	err := c.do(ctx, http.MethodPatch, c.dayPath(date, "activities/"+url.PathEscape(id)), p, &resp)
	return resp, err
}

// DeleteActivity removes the activity, from every day of its range if it
// spans several.
func (c *Client) DeleteActivity(ctx context.Context, date, id string) error {
	return c.do(ctx, http.MethodDelete, c.dayPath(date, "activities/"+url.PathEscape(id)), nil, nil)
}

// ToggleCompletion flips completion on a to-do.
func (c *Client) ToggleCompletion(ctx context.Context, date, id string) (Activity, error) {
	var resp Activity
	err := c.do(ctx, http.MethodPost, c.dayPath(date, "activities/"+url.PathEscape(id)+"/toggle"), nil, &resp)
	return resp, err
}

// ReorderTodos stores the day's to-dos in ids order.
func (c *Client) ReorderTodos(ctx context.Context, date string, ids []string) (Day, error) {
	var resp Day
	err := c.do(ctx, http.MethodPut, c.dayPath(date, "todos/order"), map[string]any{"ids": ids}, &resp)
	return resp, err
}

// Month returns the six-week grid for year/month (1-12).
func (c *Client) Month(ctx context.Context, year, month int) (Month, error) {
	var resp Month
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("calendar/%d/%d", year, month), nil, &resp)
	return resp, err
}

// Year returns per-month counts for year.
func (c *Client) Year(ctx context.Context, year int) (Year, error) {
	var resp Year
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("calendar/%d", year), nil, &resp)
	return resp, err
}

// Search finds activities by name. category may be empty for all.
func (c *Client) Search(ctx context.Context, query, category string, limit int) ([]Activity, error) {
	q := url.Values{}
	q.Set("q", query)
	if category != "" {
		q.Set("category", category)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var resp struct {
		Items []Activity `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, "search?"+q.Encode(), nil, &resp)
	return resp.Items, err
}

// Events returns recent events.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	page, err := c.EventsPage(ctx, limit, "")
	return page.Items, err
}

// EventsPage returns a paginated event listing, newest first.
func (c *Client) EventsPage(ctx context.Context, limit int, cursor string) (PaginatedEvents, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	endpoint := "events"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp PaginatedEvents
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// ExportICS downloads the iCalendar feed.
func (c *Client) ExportICS(ctx context.Context) (string, error) {
	var buf bytes.Buffer
	err := c.do(ctx, http.MethodGet, "export.ics", nil, &buf)
	return buf.String(), err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	switch dst := out.(type) {
	case nil:
		return nil
	case *bytes.Buffer:
		_, err := io.Copy(dst, resp.Body)
		return err
	default:
		return json.NewDecoder(resp.Body).Decode(out)
	}
}

func (c *Client) dayPath(date, p string) string {
	if p == "" {
		return "days/" + url.PathEscape(date)
	}
	return fmt.Sprintf("days/%s/%s", url.PathEscape(date), strings.TrimLeft(p, "/"))
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.Trim(c.BasePath, "/")
}
