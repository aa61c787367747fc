package planner

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"dayplanner/internal/calendar"
	"dayplanner/internal/domain"
	"dayplanner/internal/events"
)

// Day is the in-memory view of one selected date. Every mutation re-reads
// the date from storage first, so a Day never writes back a stale
// collection. A Day is not safe for concurrent use; the Store is.
type Day struct {
	store *Store
	date  calendar.Date
	items []domain.Activity
}

func (d *Day) Date() calendar.Date { return d.date }

// Activities returns the collection in persisted order.
func (d *Day) Activities() []domain.Activity {
	return clone(d.items)
}

// Timeline returns timed items ordered by start time; equal times keep
// their stored order. HH:MM strings sort chronologically.
func (d *Day) Timeline() []domain.Activity {
	var out []domain.Activity
	for _, a := range d.items {
		if !a.IsTodo() {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out
}

// Todos returns untimed items in persisted order.
func (d *Day) Todos() []domain.Activity {
	var out []domain.Activity
	for _, a := range d.items {
		if a.IsTodo() {
			out = append(out, a)
		}
	}
	return out
}

// Reload replaces the view with what storage holds for the date.
func (d *Day) Reload(ctx context.Context) error {
	d.store.mu.Lock()
	defer d.store.mu.Unlock()
	return d.sync(ctx)
}

// Add files a new activity under the selected date, and under every later
// day through draft.EndDate for a multi-day activity.
func (d *Day) Add(ctx context.Context, draft domain.Draft) (domain.Activity, error) {
	if err := draft.Validate(d.date); err != nil {
		return domain.Activity{}, err
	}
	s := d.store
	a := draft.Build(s.opts.NewID(), d.date)
	span := a.Span()
	if err := s.checkSpan(span); err != nil {
		return domain.Activity{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := d.sync(ctx); err != nil {
		return domain.Activity{}, err
	}
	if !span.MultiDay() {
		items := append(clone(d.items), a)
		if err := s.write(ctx, d.date, items); err != nil {
			return domain.Activity{}, err
		}
		d.items = items
		s.publish(ctx, events.KindAdded, d.date, a.ID)
		return a, nil
	}
	for _, day := range span.Days() {
		items, _, err := s.read(ctx, day)
		if err != nil {
			return domain.Activity{}, err
		}
		items = append(items, a.At(day))
		if err := s.write(ctx, day, items); err != nil {
			return domain.Activity{}, err
		}
		s.publish(ctx, events.KindAdded, day, a.ID)
	}
	s.log.Debug("materialized multi-day activity", zap.String("id", a.ID), zap.String("range", span.String()))
	return a, d.sync(ctx)
}

// Update merges p into the activity with id. found is false, and nothing
// is written, when the selected date holds no such activity.
func (d *Day) Update(ctx context.Context, id string, p domain.Patch) (domain.Activity, bool, error) {
	if err := p.Validate(); err != nil {
		return domain.Activity{}, false, err
	}
	s := d.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := d.sync(ctx); err != nil {
		return domain.Activity{}, false, err
	}
	idx := indexOf(d.items, id)
	if idx < 0 {
		return domain.Activity{}, false, nil
	}
	cur := d.items[idx]
	updated := p.Apply(cur)
	oldSpan, newSpan := cur.Span(), updated.Span()
	if err := s.checkSpan(newSpan); err != nil {
		return domain.Activity{}, false, err
	}

	var err error
	switch {
	case !oldSpan.MultiDay() && !newSpan.MultiDay() && oldSpan == newSpan:
		err = d.replaceLocal(ctx, idx, updated)
	case s.opts.RangePolicy == InPlace && !oldSpan.MultiDay():
		err = d.replaceLocal(ctx, idx, updated)
	case s.opts.RangePolicy == InPlace:
		err = d.mergeAcross(ctx, oldSpan, id, p)
	default:
		err = d.rematerialize(ctx, oldSpan, updated)
	}
	if err != nil {
		return domain.Activity{}, false, err
	}
	if err := d.sync(ctx); err != nil {
		return domain.Activity{}, false, err
	}
	if i := indexOf(d.items, id); i >= 0 {
		return d.items[i], true, nil
	}
	return updated, true, nil
}

// Delete removes the activity with id from the selected date, and from
// every day of its range when it spans several days.
func (d *Day) Delete(ctx context.Context, id string) (bool, error) {
	s := d.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := d.sync(ctx); err != nil {
		return false, err
	}
	idx := indexOf(d.items, id)
	if idx < 0 {
		return false, nil
	}
	span := d.items[idx].Span()
	days := []calendar.Date{d.date}
	if span.MultiDay() {
		days = span.Days()
		if !span.Contains(d.date) {
			days = append(days, d.date)
		}
	}
	for _, day := range days {
		if err := d.removeAt(ctx, day, id); err != nil {
			return false, err
		}
	}
	return true, d.sync(ctx)
}

// ToggleCompletion flips completed on a to-do item and writes the new
// value to every copy of a multi-day to-do. Timed items are returned
// unchanged.
func (d *Day) ToggleCompletion(ctx context.Context, id string) (domain.Activity, bool, error) {
	s := d.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := d.sync(ctx); err != nil {
		return domain.Activity{}, false, err
	}
	idx := indexOf(d.items, id)
	if idx < 0 {
		return domain.Activity{}, false, nil
	}
	cur := d.items[idx]
	if !cur.IsTodo() {
		return cur, true, nil
	}
	done := !cur.IsCompleted()
	span := cur.Span()
	days := []calendar.Date{d.date}
	if span.MultiDay() {
		days = span.Days()
		if !span.Contains(d.date) {
			days = append(days, d.date)
		}
	}
	for _, day := range days {
		if err := d.setCompleted(ctx, day, id, done); err != nil {
			return domain.Activity{}, false, err
		}
	}
	if err := d.sync(ctx); err != nil {
		return domain.Activity{}, false, err
	}
	if i := indexOf(d.items, id); i >= 0 {
		return d.items[i], true, nil
	}
	return cur, true, nil
}

// setCompleted writes done to the copy of id at day, if there is one.
func (d *Day) setCompleted(ctx context.Context, day calendar.Date, id string, done bool) error {
	s := d.store
	items, _, err := s.read(ctx, day)
	if err != nil {
		return err
	}
	i := indexOf(items, id)
	if i < 0 || !items[i].IsTodo() {
		return nil
	}
	v := done
	items[i].Completed = &v
	if err := s.write(ctx, day, items); err != nil {
		return err
	}
	s.publish(ctx, events.KindToggled, day, id)
	return nil
}

// ReorderTodos stores timed items in their current order followed by the
// to-dos in ids order. Unknown ids are ignored and unlisted to-dos keep
// their relative order at the end. Only the selected date is rewritten.
func (d *Day) ReorderTodos(ctx context.Context, ids []string) error {
	s := d.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := d.sync(ctx); err != nil {
		return err
	}
	var timed, todos []domain.Activity
	for _, a := range d.items {
		if a.IsTodo() {
			todos = append(todos, a)
		} else {
			timed = append(timed, a)
		}
	}
	placed := make(map[string]bool, len(todos))
	ordered := make([]domain.Activity, 0, len(todos))
	for _, id := range ids {
		if placed[id] {
			continue
		}
		if i := indexOf(todos, id); i >= 0 {
			ordered = append(ordered, todos[i])
			placed[id] = true
		}
	}
	for _, a := range todos {
		if !placed[a.ID] {
			ordered = append(ordered, a)
		}
	}
	items := append(timed, ordered...)
	if err := s.write(ctx, d.date, items); err != nil {
		return err
	}
	d.items = items
	s.publish(ctx, events.KindReordered, d.date, "")
	return nil
}

func (d *Day) replaceLocal(ctx context.Context, idx int, a domain.Activity) error {
	items := clone(d.items)
	items[idx] = a.At(d.date)
	if err := d.store.write(ctx, d.date, items); err != nil {
		return err
	}
	d.items = items
	d.store.publish(ctx, events.KindUpdated, d.date, a.ID)
	return nil
}

// mergeAcross applies p to the copy at each day of span.
func (d *Day) mergeAcross(ctx context.Context, span calendar.Range, id string, p domain.Patch) error {
	s := d.store
	for _, day := range span.Days() {
		items, _, err := s.read(ctx, day)
		if err != nil {
			return err
		}
		i := indexOf(items, id)
		if i < 0 {
			continue
		}
		items[i] = p.Apply(items[i])
		if err := s.write(ctx, day, items); err != nil {
			return err
		}
		s.publish(ctx, events.KindUpdated, day, id)
	}
	return nil
}

// rematerialize writes a to every day of its span and removes the id from
// days of oldSpan (and the selected date) the new span does not cover.
func (d *Day) rematerialize(ctx context.Context, oldSpan calendar.Range, a domain.Activity) error {
	s := d.store
	newSpan := a.Span()
	for _, day := range newSpan.Days() {
		items, _, err := s.read(ctx, day)
		if err != nil {
			return err
		}
		if i := indexOf(items, a.ID); i >= 0 {
			items[i] = a.At(day)
		} else {
			items = append(items, a.At(day))
		}
		if err := s.write(ctx, day, items); err != nil {
			return err
		}
		s.publish(ctx, events.KindUpdated, day, a.ID)
	}
	stale := oldSpan.Minus(newSpan)
	if !newSpan.Contains(d.date) && !oldSpan.Contains(d.date) {
		stale = append(stale, d.date)
	}
	for _, day := range stale {
		if err := d.removeAt(ctx, day, a.ID); err != nil {
			return err
		}
	}
	if len(stale) > 0 {
		s.log.Debug("removed copies outside new range",
			zap.String("id", a.ID), zap.String("range", newSpan.String()), zap.Int("days", len(stale)))
	}
	return nil
}

// removeAt drops id from the collection at day. Untouched days are not
// rewritten; an emptied day is stored as an empty list so that it is not
// seeded again.
func (d *Day) removeAt(ctx context.Context, day calendar.Date, id string) error {
	s := d.store
	items, _, err := s.read(ctx, day)
	if err != nil {
		return err
	}
	kept := items[:0:0]
	for _, a := range items {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	if len(kept) == len(items) {
		return nil
	}
	if err := s.write(ctx, day, kept); err != nil {
		return err
	}
	s.publish(ctx, events.KindDeleted, day, id)
	return nil
}

// sync reloads the view from storage. Callers hold store.mu.
func (d *Day) sync(ctx context.Context) error {
	items, _, err := d.store.read(ctx, d.date)
	if err != nil {
		return err
	}
	d.items = items
	return nil
}

func indexOf(items []domain.Activity, id string) int {
	for i, a := range items {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func clone(items []domain.Activity) []domain.Activity {
	if items == nil {
		return nil
	}
	out := make([]domain.Activity, len(items))
	copy(out, items)
	return out
}
