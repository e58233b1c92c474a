// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/ddk/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// timeLayout is fixed width and always UTC so text order matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// Store wraps SQLite access for preferences and assessment history.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db, now: time.Now}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY,
			kind TEXT NOT NULL DEFAULT 'timed',
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			target_seconds INTEGER NOT NULL,
			countdown_seconds INTEGER NOT NULL,
			duration_seconds REAL NOT NULL DEFAULT 0,
			taps INTEGER NOT NULL,
			pauses INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_ended_at ON sessions(ended_at);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_kind_ended_at ON sessions(kind, ended_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Get implements settings.Repository.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set implements settings.Repository.
func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, formatTime(s.now()))
	return err
}

// Delete implements settings.Repository.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key)
	return err
}

// InsertSession stores a finished assessment run. Timed runs without a
// measured duration are stored with their target duration.
func (s *Store) InsertSession(ctx context.Context, rec model.SessionRecord) (int64, error) {
	if rec.Kind == "" {
		rec.Kind = model.KindTimed
	}
	if rec.DurationSeconds <= 0 && rec.Kind == model.KindTimed {
		rec.DurationSeconds = float64(rec.TargetSeconds)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (kind, started_at, ended_at, target_seconds, countdown_seconds, duration_seconds, taps, pauses)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(rec.Kind),
		formatTime(rec.StartedAt),
		formatTime(rec.EndedAt),
		rec.TargetSeconds,
		rec.CountdownSeconds,
		rec.DurationSeconds,
		rec.Taps,
		rec.Pauses,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListSessions returns session aggregates filtered by stats config, oldest first.
func (s *Store) ListSessions(ctx context.Context, cfg model.StatsConfig) ([]model.SessionAggregate, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Kind != "" {
		clauses = append(clauses, "kind = ?")
		args = append(args, string(cfg.Kind))
	}
	if cfg.TargetSeconds > 0 {
		clauses = append(clauses, "target_seconds = ?")
		args = append(args, cfg.TargetSeconds)
	}
	if cfg.Since != nil {
		clauses = append(clauses, "ended_at >= ?")
		args = append(args, formatTime(*cfg.Since))
	}
	query := fmt.Sprintf(`SELECT id, kind, ended_at, target_seconds, duration_seconds, taps
		FROM sessions
		WHERE %s
		ORDER BY ended_at ASC, id ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var sessions []model.SessionAggregate
	for rows.Next() {
		var agg model.SessionAggregate
		var kind, endedAt string
		if err := rows.Scan(&agg.SessionID, &kind, &endedAt, &agg.TargetSeconds, &agg.DurationSeconds, &agg.Taps); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, endedAt)
		if err != nil {
			return nil, err
		}
		agg.Kind = model.Kind(kind)
		agg.EndedAt = parsed
		sessions = append(sessions, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// SessionHistory returns the count and most recent end time of stored runs
// of kind. An empty kind covers every kind.
func (s *Store) SessionHistory(ctx context.Context, kind model.Kind) (model.History, error) {
	query := `SELECT COUNT(*), MAX(ended_at) FROM sessions`
	var args []any
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, string(kind))
	}
	var count int
	var last sql.NullString
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count, &last); err != nil {
		return model.History{}, err
	}
	return historyFrom(count, last)
}

// KindHistory returns the history of every kind that has stored runs.
func (s *Store) KindHistory(ctx context.Context) (map[model.Kind]model.History, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT kind, COUNT(*), MAX(ended_at) FROM sessions GROUP BY kind`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	out := map[model.Kind]model.History{}
	for rows.Next() {
		var kind string
		var count int
		var last sql.NullString
		if err := rows.Scan(&kind, &count, &last); err != nil {
			return nil, err
		}
		h, err := historyFrom(count, last)
		if err != nil {
			return nil, err
		}
		out[model.Kind(kind)] = h
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func historyFrom(count int, last sql.NullString) (model.History, error) {
	h := model.History{Count: count}
	if last.Valid && last.String != "" {
		parsed, err := time.Parse(time.RFC3339Nano, last.String)
		if err != nil {
			return model.History{}, err
		}
		h.LastAt = parsed
	}
	return h, nil
}

// DeleteSessions removes stored runs of kind, or every run when kind is
// empty, and returns how many were removed.
func (s *Store) DeleteSessions(ctx context.Context, kind model.Kind) (int64, error) {
	query := `DELETE FROM sessions`
	var args []any
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, string(kind))
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
