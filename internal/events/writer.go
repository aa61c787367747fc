package events

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"go.uber.org/zap"

	"dayplanner/internal/domain"
)

// Writer appends changes to the events table and reads them back.
type Writer struct {
	DB     *sql.DB
	Now    func() time.Time
	Logger *zap.Logger
}

func (w Writer) Append(ctx context.Context, c Change) error {
	if w.Now == nil {
		w.Now = time.Now
	}
	ts := w.Now().UTC().Format(time.RFC3339)
	_, err := w.DB.ExecContext(ctx, `INSERT INTO events(ts,type,date,activity_id) VALUES (?,?,?,?)`,
		ts, string(c.Kind), c.Date.String(), nullable(c.ActivityID))
	return err
}

// Handler adapts Append for Bus.Subscribe. The log is diagnostic, so a
// failed append is logged and the mutation proceeds.
func (w Writer) Handler() Handler {
	return func(ctx context.Context, c Change) {
		if err := w.Append(ctx, c); err != nil && w.Logger != nil {
			w.Logger.Warn("append event failed",
				zap.String("type", string(c.Kind)),
				zap.String("date", c.Date.String()),
				zap.Error(err))
		}
	}
}

type Filter struct {
	Type       string
	Date       string
	ActivityID string
	// MaxID, when positive, skips events with a larger id.
	MaxID int64
}

// Latest returns up to n events, newest first.
func (w Writer) Latest(ctx context.Context, n int, f Filter) ([]domain.Event, error) {
	if n <= 0 {
		n = 20
	}
	var clauses []string
	var args []any
	if f.Type != "" {
		clauses = append(clauses, "type=?")
		args = append(args, f.Type)
	}
	if f.Date != "" {
		clauses = append(clauses, "date=?")
		args = append(args, f.Date)
	}
	if f.ActivityID != "" {
		clauses = append(clauses, "activity_id=?")
		args = append(args, f.ActivityID)
	}
	if f.MaxID > 0 {
		clauses = append(clauses, "id<=?")
		args = append(args, f.MaxID)
	}
	query := `SELECT id,ts,type,date,COALESCE(activity_id,'') FROM events`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, n)
	return w.query(ctx, query, args...)
}

// After returns up to limit events with id greater than cursor, oldest first.
func (w Writer) After(ctx context.Context, cursor int64, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	return w.query(ctx, `SELECT id,ts,type,date,COALESCE(activity_id,'') FROM events WHERE id > ? ORDER BY id ASC LIMIT ?`, cursor, limit)
}

// LastID returns the newest event id, 0 when the log is empty.
func (w Writer) LastID(ctx context.Context) (int64, error) {
	var id sql.NullInt64
	if err := w.DB.QueryRowContext(ctx, `SELECT MAX(id) FROM events`).Scan(&id); err != nil {
		return 0, err
	}
	return id.Int64, nil
}

func (w Writer) query(ctx context.Context, query string, args ...any) ([]domain.Event, error) {
	rows, err := w.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.Date, &e.ActivityID); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
