package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"dayplanner/internal/app"
	"dayplanner/internal/calendar"
	"dayplanner/internal/config"
	"dayplanner/internal/domain"
)

func TestWebhookDispatcherDeliversNewChanges(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	var mu sync.Mutex
	var received []domain.Event
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload webhookPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		mu.Lock()
		received = append(received, payload.Events...)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer hook.Close()

	cfg := config.Default()
	cfg.Seed.Enabled = false
	a, err := app.Open(context.Background(), t.TempDir(), cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	// Changes before Init are not delivered.
	day := calendar.MustParse("2024-06-01")
	_, err = a.Store.Add(context.Background(), day, domain.Draft{Name: "Old", Category: domain.CategoryWork})
	require.NoError(t, err)

	disabled := false
	d := NewWebhookDispatcher(a.Events, []config.WebhookConfig{
		{URL: hook.URL, Types: []string{"added", "deleted"}},
		{URL: hook.URL, Enabled: &disabled},
	}, nil)
	d.Interval = 10 * time.Millisecond
	require.NoError(t, d.Init(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		d.Run(ctx)
	}()

	end := day.AddDays(1)
	trip, err := a.Store.Add(context.Background(), day, domain.Draft{Name: "Trip", Category: domain.CategoryLeisure, EndDate: &end})
	require.NoError(t, err)
	_, _, err = a.Store.ToggleCompletion(context.Background(), day, trip.ID)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) >= 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 2)
	for _, evt := range received {
		assert.Equal(t, "added", evt.Type)
		assert.Equal(t, trip.ID, evt.ActivityID)
	}
	assert.Equal(t, []string{"2024-06-01", "2024-06-02"}, []string{received[0].Date, received[1].Date})
}

func TestEventFilter(t *testing.T) {
	assert.True(t, newEventFilter(nil).match("added"))
	assert.True(t, newEventFilter([]string{" "}).match("added"))
	f := newEventFilter([]string{"deleted"})
	assert.True(t, f.match("deleted"))
	assert.False(t, f.match("added"))
}
