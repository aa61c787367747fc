// Package planner is the per-date activity store. It is the only writer of
// activity entries and keeps every copy of a multi-day activity in step.
package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dayplanner/internal/calendar"
	"dayplanner/internal/domain"
	"dayplanner/internal/events"
	"dayplanner/internal/logging"
	"dayplanner/internal/repo"
)

const DefaultPrefix = "activities-"

// RangePolicy decides how an update treats copies of a multi-day activity
// when its date range changes.
type RangePolicy string

const (
	// Rematerialize writes the merged activity to every day of the new range
	// and removes copies from days the new range no longer covers.
	Rematerialize RangePolicy = "rematerialize"
	// InPlace merges the update into the copies of the old range only.
	// Copies outside a narrowed range are left behind.
	InPlace RangePolicy = "in_place"
)

// Options configures a Store. Zero values get defaults in New.
type Options struct {
	Prefix       string
	Location     *time.Location
	Seed         bool
	RangePolicy  RangePolicy
	MaxRangeDays int
	Publisher    events.Publisher
	Logger       *zap.Logger
	Now          func() time.Time
	NewID        func() string
}

// Store owns the persisted per-date collections. Mutations are serialized;
// each one finishes all of its date writes before the next starts.
type Store struct {
	storage repo.Storage
	opts    Options
	log     *zap.Logger
	mu      sync.Mutex
}

// New returns a Store over storage, filling unset options.
func New(storage repo.Storage, opts Options) *Store {
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.RangePolicy == "" {
		opts.RangePolicy = Rematerialize
	}
	if opts.MaxRangeDays <= 0 {
		opts.MaxRangeDays = 366
	}
	if opts.Publisher == nil {
		opts.Publisher = events.Discard{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Store{storage: storage, opts: opts, log: logging.OrNop(opts.Logger)}
}

// Key is the storage key for day d.
func (s *Store) Key(d calendar.Date) string {
	return s.opts.Prefix + d.String()
}

// Prefix is the key prefix shared by every per-date entry.
func (s *Store) Prefix() string { return s.opts.Prefix }

// Today is the current calendar day in the store's location.
func (s *Store) Today() calendar.Date {
	return calendar.Today(s.opts.Now(), s.opts.Location)
}

// Open loads the collection for d into a Day view. An absent entry for
// today is seeded with example activities when seeding is enabled.
func (s *Store) Open(ctx context.Context, d calendar.Date) (*Day, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, err := s.load(ctx, d)
	if err != nil {
		return nil, err
	}
	return &Day{store: s, date: d, items: items}, nil
}

// Load returns the activities filed under d.
func (s *Store) Load(ctx context.Context, d calendar.Date) ([]domain.Activity, error) {
	day, err := s.Open(ctx, d)
	if err != nil {
		return nil, err
	}
	return day.Activities(), nil
}

// Add opens d and files draft under it. See Day.Add.
func (s *Store) Add(ctx context.Context, d calendar.Date, draft domain.Draft) (domain.Activity, error) {
	day, err := s.Open(ctx, d)
	if err != nil {
		return domain.Activity{}, err
	}
	return day.Add(ctx, draft)
}

// Update opens d and applies p to the activity with id. See Day.Update.
func (s *Store) Update(ctx context.Context, d calendar.Date, id string, p domain.Patch) (domain.Activity, bool, error) {
	day, err := s.Open(ctx, d)
	if err != nil {
		return domain.Activity{}, false, err
	}
	return day.Update(ctx, id, p)
}

// Delete opens d and removes the activity with id. See Day.Delete.
func (s *Store) Delete(ctx context.Context, d calendar.Date, id string) (bool, error) {
	day, err := s.Open(ctx, d)
	if err != nil {
		return false, err
	}
	return day.Delete(ctx, id)
}

// ToggleCompletion opens d and flips the to-do with id. See Day.ToggleCompletion.
func (s *Store) ToggleCompletion(ctx context.Context, d calendar.Date, id string) (domain.Activity, bool, error) {
	day, err := s.Open(ctx, d)
	if err != nil {
		return domain.Activity{}, false, err
	}
	return day.ToggleCompletion(ctx, id)
}

// ReorderTodos opens d and stores its to-dos in ids order. See Day.ReorderTodos.
func (s *Store) ReorderTodos(ctx context.Context, d calendar.Date, ids []string) (*Day, error) {
	day, err := s.Open(ctx, d)
	if err != nil {
		return nil, err
	}
	if err := day.ReorderTodos(ctx, ids); err != nil {
		return nil, err
	}
	return day, nil
}

func (s *Store) load(ctx context.Context, d calendar.Date) ([]domain.Activity, error) {
	items, exists, err := s.read(ctx, d)
	if err != nil {
		return nil, err
	}
	if exists || !s.opts.Seed || d != s.Today() {
		return items, nil
	}
	seed := exampleActivities(d, s.opts.NewID)
	if err := s.write(ctx, d, seed); err != nil {
		return nil, err
	}
	s.log.Info("seeded example activities", zap.String("date", d.String()), zap.Int("count", len(seed)))
	s.publish(ctx, events.KindSeeded, d, "")
	return seed, nil
}

// read returns the raw collection at d without seeding. exists is false
// when there is no entry. An undecodable entry reads as empty.
func (s *Store) read(ctx context.Context, d calendar.Date) ([]domain.Activity, bool, error) {
	key := s.Key(d)
	raw, err := s.storage.Get(ctx, key)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", key, err)
	}
	var items []domain.Activity
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		s.log.Warn("discarding undecodable entry", zap.String("key", key), zap.Error(err))
		return nil, true, nil
	}
	return items, true, nil
}

func (s *Store) write(ctx context.Context, d calendar.Date, items []domain.Activity) error {
	if items == nil {
		items = []domain.Activity{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", d, err)
	}
	key := s.Key(d)
	if err := s.storage.Set(ctx, key, string(payload)); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (s *Store) publish(ctx context.Context, kind events.Kind, d calendar.Date, id string) {
	s.opts.Publisher.Publish(ctx, events.Change{Kind: kind, Date: d, ActivityID: id})
}

func (s *Store) checkSpan(r calendar.Range) error {
	if r.Len() > s.opts.MaxRangeDays {
		return fmt.Errorf("%w: range %s spans %d days, limit is %d", domain.ErrInvalid, r, r.Len(), s.opts.MaxRangeDays)
	}
	return nil
}
