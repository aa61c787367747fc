package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"dayplanner/internal/app"
	"dayplanner/internal/config"
	"dayplanner/internal/domain"
)

type testServer struct {
	URL    string
	App    *app.App
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T, auth AuthConfig) (*testServer, func()) {
	t.Helper()
	cfg := config.Default()
	cfg.Seed.Enabled = false
	cfg.Calendar.Timezone = "UTC"
	a, err := app.Open(context.Background(), t.TempDir(), cfg, nil)
	if err != nil {
		t.Fatalf("open app: %v", err)
	}
	handler, err := New(Config{App: a, BasePath: "/v0", Auth: auth})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		App:    a,
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			a.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func TestMultiDayLifecycle(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/days/2024-06-01/activities", map[string]any{
		"name":     "Trip",
		"category": "Leisure",
		"endDate":  "2024-06-03",
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("add status %d: %s", res.StatusCode, string(data))
	}
	var created domain.Activity
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal activity: %v", err)
	}
	if created.ID == "" || created.Completed == nil || *created.Completed {
		t.Fatalf("unexpected created activity: %+v", created)
	}

	for _, date := range []string{"2024-06-01", "2024-06-02", "2024-06-03"} {
		res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v0/days/"+date, nil, nil)
		if res.StatusCode != http.StatusOK {
			t.Fatalf("get %s status %d: %s", date, res.StatusCode, string(data))
		}
		var day DayResponse
		if err := json.Unmarshal(data, &day); err != nil {
			t.Fatalf("unmarshal day: %v", err)
		}
		if len(day.Todos) != 1 || day.Todos[0].ID != created.ID || day.Todos[0].Date.String() != date {
			t.Fatalf("day %s: unexpected todos %+v", date, day.Todos)
		}
	}

	res, data = doJSON(t, client, http.MethodPatch, srv.URL+"/v0/days/2024-06-02/activities/"+created.ID, map[string]any{
		"name": "Trip v2",
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("update status %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/calendar/2024/6", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("month status %d: %s", res.StatusCode, string(data))
	}
	var month MonthResponse
	if err := json.Unmarshal(data, &month); err != nil {
		t.Fatalf("unmarshal month: %v", err)
	}
	if len(month.Days) != 42 {
		t.Fatalf("expected 42 grid days, got %d", len(month.Days))
	}
	names := 0
	for _, d := range month.Days {
		for _, a := range d.Activities {
			if a.Name != "Trip v2" {
				t.Fatalf("stale copy on %s: %s", d.Date, a.Name)
			}
			names++
		}
	}
	if names != 3 {
		t.Fatalf("expected 3 copies in month grid, got %d", names)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/search?q=trip", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("search status %d: %s", res.StatusCode, string(data))
	}
	var found SearchResponse
	_ = json.Unmarshal(data, &found)
	if len(found.Items) != 1 || found.Items[0].Date.String() != "2024-06-01" {
		t.Fatalf("expected one result at the start date, got %+v", found.Items)
	}

	res, data = doJSON(t, client, http.MethodDelete, srv.URL+"/v0/days/2024-06-03/activities/"+created.ID, nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("delete status %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/calendar/2024", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("year status %d: %s", res.StatusCode, string(data))
	}
	var year YearResponse
	_ = json.Unmarshal(data, &year)
	if year.Count != 0 || len(year.Months) != 12 {
		t.Fatalf("expected empty year with 12 months, got %+v", year)
	}
}

func TestValidationAndNotFound(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/days/2024-06-01/activities", map[string]any{
		"name":     "   ",
		"category": "Work",
	}, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank name, got %d %s", res.StatusCode, string(data))
	}
	var envelope struct {
		Error apiErrorBody `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if envelope.Error.Code != "bad_request" {
		t.Fatalf("unexpected error code %q", envelope.Error.Code)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/days/2024-06-01/activities", map[string]any{
		"name":     "Nap",
		"category": "Sleep",
	}, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad category, got %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/days/2024-13-01", nil, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad date, got %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPatch, srv.URL+"/v0/days/2024-06-01/activities/missing", map[string]any{"name": "x"}, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/days/2024-06-01/activities/missing/toggle", nil, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for toggle, got %d %s", res.StatusCode, string(data))
	}
}

func TestToggleAndReorder(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	client := srv.Client()
	base := srv.URL + "/v0/days/2024-06-01"

	var ids []string
	for _, name := range []string{"A", "B", "C"} {
		res, data := doJSON(t, client, http.MethodPost, base+"/activities", map[string]any{"name": name, "category": "Work"}, nil)
		if res.StatusCode != http.StatusCreated {
			t.Fatalf("add %s: %d %s", name, res.StatusCode, string(data))
		}
		var a domain.Activity
		_ = json.Unmarshal(data, &a)
		ids = append(ids, a.ID)
	}
	res, data := doJSON(t, client, http.MethodPost, base+"/activities", map[string]any{"name": "Standup", "category": "Work", "time": "09:00"}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("add timed: %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, base+"/activities/"+ids[1]+"/toggle", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("toggle: %d %s", res.StatusCode, string(data))
	}
	var toggled domain.Activity
	_ = json.Unmarshal(data, &toggled)
	if !toggled.IsCompleted() {
		t.Fatalf("expected completed, got %+v", toggled)
	}

	res, data = doJSON(t, client, http.MethodPut, base+"/todos/order", map[string]any{"ids": []string{ids[2], ids[0], ids[1]}}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("reorder: %d %s", res.StatusCode, string(data))
	}
	var day DayResponse
	_ = json.Unmarshal(data, &day)
	var got []string
	for _, a := range day.Todos {
		got = append(got, a.Name)
	}
	if strings.Join(got, ",") != "C,A,B" {
		t.Fatalf("unexpected todo order %v", got)
	}
	if len(day.Timeline) != 1 || day.Timeline[0].Name != "Standup" {
		t.Fatalf("timeline changed: %+v", day.Timeline)
	}

	res, data = doJSON(t, client, http.MethodGet, base+"?category=Work&q=stand", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("filtered day: %d %s", res.StatusCode, string(data))
	}
	_ = json.Unmarshal(data, &day)
	if len(day.Activities) != 1 || len(day.Todos) != 0 {
		t.Fatalf("filter not applied: %+v", day)
	}
}

func TestEventsPagination(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	client := srv.Client()
	for i := 0; i < 3; i++ {
		res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/days/2024-06-01/activities", map[string]any{"name": "x", "category": "Event"}, nil)
		if res.StatusCode != http.StatusCreated {
			t.Fatalf("add: %d %s", res.StatusCode, string(data))
		}
	}
	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v0/events?limit=2", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("events: %d %s", res.StatusCode, string(data))
	}
	var page paginatedEvents
	_ = json.Unmarshal(data, &page)
	if len(page.Items) != 2 || page.NextCursor == "" {
		t.Fatalf("unexpected first page %+v", page)
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/events?limit=2&cursor="+page.NextCursor, nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("events page 2: %d %s", res.StatusCode, string(data))
	}
	var next paginatedEvents
	_ = json.Unmarshal(data, &next)
	if len(next.Items) != 1 || next.NextCursor != "" {
		t.Fatalf("unexpected second page %+v", next)
	}
	if next.Items[0].Type != "added" {
		t.Fatalf("unexpected event type %q", next.Items[0].Type)
	}
}

func TestExportICS(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	client := srv.Client()
	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/days/2024-06-01/activities", map[string]any{
		"name": "Trip", "category": "Leisure", "endDate": "2024-06-02",
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("add: %d %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/export.ics", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("export: %d %s", res.StatusCode, string(data))
	}
	if !strings.HasPrefix(res.Header.Get("Content-Type"), "text/calendar") {
		t.Fatalf("unexpected content type %q", res.Header.Get("Content-Type"))
	}
	if n := strings.Count(string(data), "BEGIN:VEVENT"); n != 1 {
		t.Fatalf("expected 1 VEVENT, got %d", n)
	}
}

func TestBearerAuth(t *testing.T) {
	secret := "test-secret"
	srv, cleanup := newTestServer(t, AuthConfig{JWTSecret: secret})
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v0/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health should be open: %d %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/days/2024-06-01", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d %s", res.StatusCode, string(data))
	}
	bad, err := SignToken("other-secret", "me", time.Hour, time.Now())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	res, _ = doJSON(t, client, http.MethodGet, srv.URL+"/v0/days/2024-06-01", nil, map[string]string{"Authorization": "Bearer " + bad})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong secret, got %d", res.StatusCode)
	}
	token, err := SignToken(secret, "me", time.Hour, time.Now())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/days/2024-06-01", nil, map[string]string{"Authorization": "Bearer " + token})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d %s", res.StatusCode, string(data))
	}
	expired, err := SignToken(secret, "me", time.Minute, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	res, _ = doJSON(t, client, http.MethodGet, srv.URL+"/v0/days/2024-06-01", nil, map[string]string{"Authorization": "Bearer " + expired})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired token, got %d", res.StatusCode)
	}
}

func TestOpenAPIServed(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{JWTSecret: "s"})
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/openapi.json", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("openapi: %d %s", res.StatusCode, string(data))
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal openapi: %v", err)
	}
	paths, _ := doc["paths"].(map[string]any)
	if _, ok := paths["/v0/days/{date}/activities/{id}"]; !ok {
		t.Fatalf("missing activity path in openapi")
	}
}
