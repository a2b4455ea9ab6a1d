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

	"github.com/jmoiron/sqlx"

	"github.com/verte-zerg/sprint/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for settings and recorded sessions.
type Store struct {
	db *sqlx.DB
}

type sessionRow struct {
	ID           string `db:"id"`
	StartedAt    string `db:"started_at"`
	EndedAt      string `db:"ended_at"`
	TimeLimit    int    `db:"time_limit"`
	MinFactor    int    `db:"min_factor"`
	MaxFactor    int    `db:"max_factor"`
	NoDuplicates bool   `db:"no_duplicates"`
	Attempts     int    `db:"attempts"`
	Correct      int    `db:"correct"`
}

type attemptRow struct {
	Seq        int    `db:"seq"`
	A          int    `db:"a"`
	B          int    `db:"b"`
	Input      string `db:"input"`
	Correct    bool   `db:"correct"`
	AnsweredAt string `db:"answered_at"`
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
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
		`PRAGMA busy_timeout = 5000;`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			time_limit INTEGER NOT NULL,
			min_factor INTEGER NOT NULL,
			max_factor INTEGER NOT NULL,
			no_duplicates INTEGER NOT NULL,
			attempts INTEGER NOT NULL,
			correct INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS session_attempts (
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			a INTEGER NOT NULL,
			b INTEGER NOT NULL,
			input TEXT NOT NULL,
			correct INTEGER NOT NULL,
			answered_at TEXT NOT NULL,
			PRIMARY KEY (session_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_ended_at ON sessions(ended_at);`,
		`CREATE INDEX IF NOT EXISTS idx_session_attempts_fact ON session_attempts(a, b);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// GetSetting returns the stored value for key, or "" when it is absent.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value, `SELECT value FROM settings WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, nil
}

// SetSetting upserts a setting value.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

// InsertSession stores a completed session and its attempt history.
func (s *Store) InsertSession(ctx context.Context, res model.SessionResult) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (id, started_at, ended_at, time_limit, min_factor, max_factor, no_duplicates, attempts, correct)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.ID,
		res.StartedAt.Format(time.RFC3339Nano),
		res.EndedAt.Format(time.RFC3339Nano),
		res.Settings.TimeLimitMinutes,
		res.Settings.MinFactor,
		res.Settings.MaxFactor,
		res.Settings.NoDuplicates,
		res.Attempts,
		res.Correct,
	)
	if err != nil {
		return err
	}

	if len(res.History) > 0 {
		stmt, perr := tx.PreparexContext(ctx,
			`INSERT INTO session_attempts (session_id, seq, a, b, input, correct, answered_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if perr != nil {
			err = perr
			return err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for i, a := range res.History {
			if _, err = stmt.ExecContext(ctx, res.ID, i, a.A, a.B, a.Input, a.Correct, a.AnsweredAt.Format(time.RFC3339Nano)); err != nil {
				return err
			}
		}
	}

	err = tx.Commit()
	return err
}

// ListSessions returns session aggregates filtered by stats config, oldest first.
func (s *Store) ListSessions(ctx context.Context, cfg model.StatsConfig) ([]model.SessionAggregate, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Since != nil {
		clauses = append(clauses, "ended_at >= ?")
		args = append(args, cfg.Since.Format(time.RFC3339Nano))
	}
	query := fmt.Sprintf(`SELECT id, started_at, ended_at, time_limit, min_factor, max_factor, no_duplicates, attempts, correct
		FROM sessions
		WHERE %s
		ORDER BY ended_at ASC`, strings.Join(clauses, " AND "))

	var rows []sessionRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	sessions := make([]model.SessionAggregate, 0, len(rows))
	for _, r := range rows {
		endedAt, err := time.Parse(time.RFC3339Nano, r.EndedAt)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, model.SessionAggregate{
			SessionID: r.ID,
			EndedAt:   endedAt,
			Settings:  r.settings(),
			Attempts:  r.Attempts,
			Correct:   r.Correct,
		})
	}
	if cfg.Last > 0 && len(sessions) > cfg.Last {
		sessions = sessions[len(sessions)-cfg.Last:]
	}
	return sessions, nil
}

// GetSession loads a recorded session with its history. An empty id selects
// the most recent session. It returns nil when nothing matches.
func (s *Store) GetSession(ctx context.Context, id string) (*model.SessionResult, error) {
	var row sessionRow
	var err error
	if id == "" {
		err = s.db.GetContext(ctx, &row, `SELECT id, started_at, ended_at, time_limit, min_factor, max_factor, no_duplicates, attempts, correct
			FROM sessions ORDER BY ended_at DESC LIMIT 1`)
	} else {
		err = s.db.GetContext(ctx, &row, `SELECT id, started_at, ended_at, time_limit, min_factor, max_factor, no_duplicates, attempts, correct
			FROM sessions WHERE id = ?`, id)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	startedAt, err := time.Parse(time.RFC3339Nano, row.StartedAt)
	if err != nil {
		return nil, err
	}
	endedAt, err := time.Parse(time.RFC3339Nano, row.EndedAt)
	if err != nil {
		return nil, err
	}

	var attempts []attemptRow
	if err := s.db.SelectContext(ctx, &attempts,
		`SELECT seq, a, b, input, correct, answered_at FROM session_attempts WHERE session_id = ? ORDER BY seq ASC`, row.ID); err != nil {
		return nil, err
	}
	history := make([]model.Attempt, 0, len(attempts))
	for _, a := range attempts {
		answeredAt, err := time.Parse(time.RFC3339Nano, a.AnsweredAt)
		if err != nil {
			return nil, err
		}
		history = append(history, model.Attempt{
			Problem:    model.Problem{A: a.A, B: a.B},
			Input:      a.Input,
			Correct:    a.Correct,
			AnsweredAt: answeredAt,
		})
	}

	return &model.SessionResult{
		ID:        row.ID,
		StartedAt: startedAt,
		EndedAt:   endedAt,
		Settings:  row.settings(),
		Attempts:  row.Attempts,
		Correct:   row.Correct,
		History:   history,
	}, nil
}

// ListFactAggregates aggregates answers per problem across the given sessions.
func (s *Store) ListFactAggregates(ctx context.Context, sessionIDs []string) ([]model.FactAggregate, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT a, b,
			SUM(CASE WHEN correct THEN 1 ELSE 0 END) AS correct,
			SUM(CASE WHEN correct THEN 0 ELSE 1 END) AS incorrect
		FROM session_attempts
		WHERE session_id IN (?)
		GROUP BY a, b`, sessionIDs)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var result []model.FactAggregate
	if err := s.db.SelectContext(ctx, &result, query, args...); err != nil {
		return nil, err
	}
	return result, nil
}

func (r sessionRow) settings() model.Settings {
	return model.Settings{
		TimeLimitMinutes: r.TimeLimit,
		MinFactor:        r.MinFactor,
		MaxFactor:        r.MaxFactor,
		NoDuplicates:     r.NoDuplicates,
	}
}
