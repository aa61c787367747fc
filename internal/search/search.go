// Package search filters activities by name and category.
package search

import (
	"fmt"
	"sort"
	"strings"

	"dayplanner/internal/domain"
)

const (
	// All matches every category.
	All = "All"

	DefaultLimit = 10
)

type Filter struct {
	Query    string
	Category string
	Limit    int
}

// Validate normalizes an empty category to All and rejects unknown ones.
func (f *Filter) Validate() error {
	if f.Category == "" {
		f.Category = All
	}
	if f.Category == All {
		return nil
	}
	c, err := domain.ParseCategory(f.Category)
	if err != nil {
		return fmt.Errorf("%w: filter category must be All, Work, Leisure or Event", domain.ErrInvalid)
	}
	f.Category = string(c)
	return nil
}

func (f Filter) match(a domain.Activity) bool {
	if f.Category != "" && f.Category != All && string(a.Category) != f.Category {
		return false
	}
	return strings.Contains(strings.ToLower(a.Name), strings.ToLower(f.Query))
}

// Apply narrows one day's items. An empty query keeps everything that
// passes the category filter; order and limit are left alone.
func Apply(items []domain.Activity, f Filter) []domain.Activity {
	var out []domain.Activity
	for _, a := range items {
		if f.match(a) {
			out = append(out, a)
		}
	}
	return out
}

// Search finds activities across dates. A blank query finds nothing. A
// multi-day activity is returned once, as its first matching copy in date
// order, which is the start copy for a consistent store. Results are
// ordered by date then time and capped at f.Limit (DefaultLimit if unset).
func Search(all []domain.Activity, f Filter) []domain.Activity {
	if strings.TrimSpace(f.Query) == "" {
		return nil
	}
	sorted := make([]domain.Activity, len(all))
	copy(sorted, all)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Date != sorted[j].Date {
			return sorted[i].Date < sorted[j].Date
		}
		return sorted[i].Time < sorted[j].Time
	})
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	seen := map[string]bool{}
	var out []domain.Activity
	for _, a := range sorted {
		if seen[a.ID] || !f.match(a) {
			continue
		}
		seen[a.ID] = true
		out = append(out, a)
		if len(out) == limit {
			break
		}
	}
	return out
}
