// Package aggregate answers month and year queries over every stored date.
package aggregate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"dayplanner/internal/calendar"
	"dayplanner/internal/domain"
	"dayplanner/internal/events"
	"dayplanner/internal/logging"
	"dayplanner/internal/repo"
)

// Reader caches a snapshot of every stored date. Subscribed to the change
// bus, it re-reads each written key so the cache never lags the store.
type Reader struct {
	storage repo.Storage
	prefix  string
	log     *zap.Logger

	mu       sync.RWMutex
	snapshot Snapshot
}

func NewReader(storage repo.Storage, prefix string, logger *zap.Logger) *Reader {
	return &Reader{storage: storage, prefix: prefix, log: logging.OrNop(logger), snapshot: Snapshot{}}
}

// SnapshotAll scans storage for every key under the prefix. Keys without a
// date suffix and undecodable values are skipped.
func (r *Reader) SnapshotAll(ctx context.Context) (Snapshot, error) {
	keys, err := r.storage.Keys(ctx, r.prefix)
	if err != nil {
		return nil, fmt.Errorf("list %s*: %w", r.prefix, err)
	}
	out := Snapshot{}
	for _, key := range keys {
		d, ok := r.dateOf(key)
		if !ok {
			r.log.Debug("skipping key without date", zap.String("key", key))
			continue
		}
		items, ok, err := r.read(ctx, key)
		if err != nil {
			return nil, err
		}
		if ok {
			out[d] = items
		}
	}
	return out, nil
}

// Refresh replaces the cached snapshot with a full scan.
func (r *Reader) Refresh(ctx context.Context) error {
	snap, err := r.SnapshotAll(ctx)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.snapshot = snap
	r.mu.Unlock()
	r.log.Debug("snapshot refreshed", zap.Int("dates", len(snap)))
	return nil
}

// Snapshot returns a copy of the cache. Collections are shared and must not
// be modified.
func (r *Reader) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot.clone()
}

func (r *Reader) ForDate(d calendar.Date) []domain.Activity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot[d]
}

func (r *Reader) ForMonth(year int, month time.Month) Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot.Month(year, month)
}

func (r *Reader) ForYear(year int) Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot.Year(year)
}

// HandleChange re-reads the key for c.Date. It is an events.Handler.
func (r *Reader) HandleChange(ctx context.Context, c events.Change) {
	key := r.prefix + c.Date.String()
	items, ok, err := r.read(ctx, key)
	if err != nil {
		r.log.Warn("reload after change failed", zap.String("key", key), zap.Error(err))
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if ok {
		r.snapshot[c.Date] = items
	} else {
		delete(r.snapshot, c.Date)
	}
}

func (r *Reader) dateOf(key string) (calendar.Date, bool) {
	d, err := calendar.Parse(strings.TrimPrefix(key, r.prefix))
	return d, err == nil
}

// read decodes the value at key. ok is false when the key is absent or its
// value cannot be decoded.
func (r *Reader) read(ctx context.Context, key string) ([]domain.Activity, bool, error) {
	raw, err := r.storage.Get(ctx, key)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", key, err)
	}
	var items []domain.Activity
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		r.log.Warn("skipping undecodable entry", zap.String("key", key), zap.Error(err))
		return nil, false, nil
	}
	return items, true, nil
}
