package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"dayplanner/internal/config"
	"dayplanner/internal/domain"
	"dayplanner/internal/logging"
)

const (
	defaultWebhookInterval = 2 * time.Second
	defaultWebhookTimeout  = 5 * time.Second
	defaultWebhookBatch    = 100
)

// EventSource is the part of the event log the dispatcher reads.
type EventSource interface {
	After(ctx context.Context, cursor int64, limit int) ([]domain.Event, error)
	LastID(ctx context.Context) (int64, error)
}

// WebhookDispatcher polls the event log and POSTs new changes to each
// enabled webhook as a JSON batch. Delivery starts after the newest event
// present at Init; a failed delivery is retried on the next tick.
type WebhookDispatcher struct {
	source   EventSource
	webhooks []config.WebhookConfig
	client   *http.Client
	log      *zap.Logger
	Interval time.Duration

	mu      sync.Mutex
	cursors map[int]int64
}

func NewWebhookDispatcher(source EventSource, hooks []config.WebhookConfig, logger *zap.Logger) *WebhookDispatcher {
	return &WebhookDispatcher{
		source:   source,
		webhooks: hooks,
		client:   &http.Client{Timeout: defaultWebhookTimeout},
		log:      logging.OrNop(logger),
		Interval: defaultWebhookInterval,
		cursors:  make(map[int]int64),
	}
}

// Init pins every webhook's cursor to the current end of the log.
func (d *WebhookDispatcher) Init(ctx context.Context) error {
	last, err := d.source.LastID(ctx)
	if err != nil {
		return fmt.Errorf("webhook cursor: %w", err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.webhooks {
		if _, ok := d.cursors[i]; !ok {
			d.cursors[i] = last
		}
	}
	return nil
}

// Run dispatches until ctx is done.
func (d *WebhookDispatcher) Run(ctx context.Context) {
	defer d.client.CloseIdleConnections()
	if len(d.webhooks) == 0 {
		return
	}
	if err := d.Init(ctx); err != nil {
		d.log.Warn("webhook init failed", zap.Error(err))
	}
	ticker := time.NewTicker(d.Interval)
	defer ticker.Stop()
	for {
		d.dispatchAll(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (d *WebhookDispatcher) dispatchAll(ctx context.Context) {
	for i, hook := range d.webhooks {
		if hook.Enabled != nil && !*hook.Enabled {
			continue
		}
		if strings.TrimSpace(hook.URL) == "" {
			continue
		}
		d.dispatchWebhook(ctx, i, hook)
	}
}

func (d *WebhookDispatcher) dispatchWebhook(ctx context.Context, idx int, hook config.WebhookConfig) {
	cursor := d.cursorFor(idx)
	evts, err := d.source.After(ctx, cursor, defaultWebhookBatch)
	if err != nil {
		if ctx.Err() == nil {
			d.log.Warn("webhook fetch events failed", zap.Error(err))
		}
		return
	}
	if len(evts) == 0 {
		return
	}
	filter := newEventFilter(hook.Types)
	var batch []domain.Event
	for _, evt := range evts {
		if filter.match(evt.Type) {
			batch = append(batch, evt)
		}
	}
	last := evts[len(evts)-1].ID
	if len(batch) > 0 {
		if err := d.post(ctx, hook, batch); err != nil {
			d.log.Warn("webhook delivery failed", zap.String("url", hook.URL), zap.Error(err))
			return
		}
		d.log.Debug("webhook delivered", zap.String("url", hook.URL), zap.Int("events", len(batch)))
	}
	d.setCursor(idx, last)
}

func (d *WebhookDispatcher) cursorFor(idx int) int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cursors[idx]
}

func (d *WebhookDispatcher) setCursor(idx int, value int64) {
	d.mu.Lock()
	d.cursors[idx] = value
	d.mu.Unlock()
}

type webhookPayload struct {
	Events []domain.Event `json:"events"`
}

func (d *WebhookDispatcher) post(ctx context.Context, hook config.WebhookConfig, batch []domain.Event) error {
	data, err := json.Marshal(webhookPayload{Events: batch})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.URL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Planner-Delivery", fmt.Sprintf("%d", batch[len(batch)-1].ID))
	req.Header.Set("X-Planner-Event-Count", fmt.Sprintf("%d", len(batch)))
	res, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("status %d: %s", res.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}
	_, _ = io.Copy(io.Discard, res.Body)
	return nil
}

type eventFilter struct {
	all bool
	set map[string]struct{}
}

func newEventFilter(types []string) eventFilter {
	if len(types) == 0 {
		return eventFilter{all: true}
	}
	set := make(map[string]struct{}, len(types))
	for _, t := range types {
		key := strings.TrimSpace(t)
		if key == "" {
			continue
		}
		set[key] = struct{}{}
	}
	if len(set) == 0 {
		return eventFilter{all: true}
	}
	return eventFilter{set: set}
}

func (f eventFilter) match(evt string) bool {
	if f.all {
		return true
	}
	_, ok := f.set[evt]
	return ok
}
