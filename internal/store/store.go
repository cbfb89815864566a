// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/numtrace/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for practice attempts.
type Store struct {
	db *sql.DB
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
		`CREATE TABLE IF NOT EXISTS attempts (
			id INTEGER PRIMARY KEY,
			uuid TEXT NOT NULL UNIQUE,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			mode TEXT NOT NULL,
			glyph TEXT NOT NULL,
			glyph_set TEXT NOT NULL,
			completed INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			strokes INTEGER NOT NULL,
			moves INTEGER NOT NULL,
			ignored INTEGER NOT NULL,
			regressions INTEGER NOT NULL,
			jumps INTEGER NOT NULL,
			undos INTEGER NOT NULL,
			flood_warnings INTEGER NOT NULL,
			coverage REAL NOT NULL,
			ink_length REAL NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS attempt_strokes (
			attempt_id INTEGER NOT NULL,
			stroke INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			moves INTEGER NOT NULL,
			ignored INTEGER NOT NULL,
			regressions INTEGER NOT NULL,
			jumps INTEGER NOT NULL,
			PRIMARY KEY (attempt_id, stroke)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_ended_at ON attempts(ended_at);`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_glyph ON attempts(glyph);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertAttempt stores an attempt and its per-stroke counters. An empty
// UUID is filled in. It returns the row id.
func (s *Store) InsertAttempt(ctx context.Context, a model.AttemptStats, strokes []model.StrokeStats) (attemptID int64, err error) {
	if a.UUID == "" {
		a.UUID = uuid.NewString()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO attempts (uuid, started_at, ended_at, mode, glyph, glyph_set, completed, duration_ms,
			strokes, moves, ignored, regressions, jumps, undos, flood_warnings, coverage, ink_length)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.UUID,
		a.StartedAt.Format(time.RFC3339Nano),
		a.EndedAt.Format(time.RFC3339Nano),
		string(a.Mode),
		a.Glyph,
		a.GlyphSet,
		a.Completed,
		a.DurationMs,
		a.Strokes,
		a.Moves,
		a.Ignored,
		a.Regressions,
		a.Jumps,
		a.Undos,
		a.FloodWarnings,
		a.Coverage,
		a.InkLength,
	)
	if err != nil {
		return 0, err
	}
	attemptID, err = res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if len(strokes) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO attempt_strokes (attempt_id, stroke, duration_ms, moves, ignored, regressions, jumps)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return 0, err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for _, st := range strokes {
			if _, err := stmt.ExecContext(ctx, attemptID, st.Stroke, st.DurationMs, st.Moves, st.Ignored, st.Regressions, st.Jumps); err != nil {
				return 0, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return attemptID, nil
}

const glyphAggregateColumns = `glyph, COUNT(*) AS attempts, SUM(completed) AS completed,
		SUM(duration_ms) AS duration_sum_ms, SUM(regressions) AS regressions, SUM(ignored) AS ignored,
		SUM(undos) AS undos, SUM(flood_warnings) AS flood_warnings`

// GetWeakGlyphs aggregates glyph stats over the most recent attempts of a mode.
func (s *Store) GetWeakGlyphs(ctx context.Context, window int, mode model.Mode) ([]model.GlyphAggregate, error) {
	if window <= 0 {
		return nil, nil
	}
	query := `WITH recent AS (
		SELECT * FROM attempts
		WHERE (? = '' OR mode = ?)
		ORDER BY ended_at DESC
		LIMIT ?
	)
	SELECT ` + glyphAggregateColumns + `
	FROM recent
	GROUP BY glyph`

	rows, err := s.db.QueryContext(ctx, query, string(mode), string(mode), window)
	if err != nil {
		return nil, err
	}
	return scanGlyphAggregates(rows)
}

// ListAttempts returns attempt aggregates filtered by stats config, oldest first.
func (s *Store) ListAttempts(ctx context.Context, cfg model.StatsConfig) ([]model.AttemptAggregate, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Mode != "" {
		clauses = append(clauses, "mode = ?")
		args = append(args, cfg.Mode)
	}
	if cfg.Since != nil {
		clauses = append(clauses, "ended_at >= ?")
		args = append(args, cfg.Since.Format(time.RFC3339Nano))
	}
	query := fmt.Sprintf(`SELECT id, uuid, ended_at, mode, glyph, completed, duration_ms, regressions, undos, coverage
		FROM attempts
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

	var attempts []model.AttemptAggregate
	for rows.Next() {
		var agg model.AttemptAggregate
		var endedAt, mode string
		if err := rows.Scan(&agg.AttemptID, &agg.UUID, &endedAt, &mode, &agg.Glyph, &agg.Completed,
			&agg.DurationMs, &agg.Regressions, &agg.Undos, &agg.Coverage); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, endedAt)
		if err != nil {
			return nil, err
		}
		agg.EndedAt = parsed
		agg.Mode = model.Mode(mode)
		attempts = append(attempts, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return attempts, nil
}

// ListGlyphAggregatesForAttempts aggregates per-glyph stats across attempts.
func (s *Store) ListGlyphAggregatesForAttempts(ctx context.Context, attemptIDs []int64) ([]model.GlyphAggregate, error) {
	if len(attemptIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(attemptIDs))
	args := make([]any, len(attemptIDs))
	for i, id := range attemptIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT %s
		FROM attempts
		WHERE id IN (%s)
		GROUP BY glyph`, glyphAggregateColumns, strings.Join(placeholders, ","))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanGlyphAggregates(rows)
}

// ListStrokeStats returns the per-stroke counters of an attempt in stroke order.
func (s *Store) ListStrokeStats(ctx context.Context, attemptID int64) ([]model.StrokeStats, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT stroke, duration_ms, moves, ignored, regressions, jumps
		 FROM attempt_strokes
		 WHERE attempt_id = ?
		 ORDER BY stroke`, attemptID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.StrokeStats
	for rows.Next() {
		var st model.StrokeStats
		if err := rows.Scan(&st.Stroke, &st.DurationMs, &st.Moves, &st.Ignored, &st.Regressions, &st.Jumps); err != nil {
			return nil, err
		}
		result = append(result, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanGlyphAggregates(rows *sql.Rows) ([]model.GlyphAggregate, error) {
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()
	var result []model.GlyphAggregate
	for rows.Next() {
		var agg model.GlyphAggregate
		if err := rows.Scan(&agg.Glyph, &agg.Attempts, &agg.Completed, &agg.DurationSumMs,
			&agg.Regressions, &agg.Ignored, &agg.Undos, &agg.FloodWarnings); err != nil {
			return nil, err
		}
		result = append(result, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
