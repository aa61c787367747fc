// Package repo holds the key/value storage the planner persists into. Each
// entry is one date key holding a JSON array of activity copies.
package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

var ErrNotFound = errors.New("not found")

// Storage is a string key/value store with prefix enumeration.
type Storage interface {
	// Get returns ErrNotFound when key has no entry.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	// Keys lists keys starting with prefix in ascending order.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Repo is the sqlite-backed Storage over the entries table.
type Repo struct {
	DB  *sql.DB
	Now func() time.Time
}

var _ Storage = Repo{}

func (r Repo) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r Repo) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.DB.QueryRowContext(ctx, `SELECT value FROM entries WHERE key=?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return value, err
}

func (r Repo) Set(ctx context.Context, key, value string) error {
	now := r.now().UTC().Format(time.RFC3339)
	_, err := r.DB.ExecContext(ctx, `INSERT INTO entries(key,value,updated_at) VALUES (?,?,?)
ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`, key, value, now)
	return err
}

func (r Repo) Remove(ctx context.Context, key string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM entries WHERE key=?`, key)
	return err
}

func (r Repo) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT key FROM entries WHERE substr(key, 1, ?) = ? ORDER BY key`, len(prefix), prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, rows.Err()
}
