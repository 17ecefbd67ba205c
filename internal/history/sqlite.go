// Package history keeps a per-host record of every mantis run in SQLite.
package history

import (
	"database/sql"
	"fmt"
	"time"

	"mantis/internal/history/migrations"
	"mantis/internal/mantis"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteHistory implements mantis.RunHistory on a SQLite file (or
// ":memory:").
type SQLiteHistory struct {
	db   *sql.DB
	path string
}

var _ mantis.RunHistory = (*SQLiteHistory)(nil)

// NewSQLiteHistory opens the database at path and migrates it to the
// latest schema.
func NewSQLiteHistory(path string) (*SQLiteHistory, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening run history %s: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteHistory{db: db, path: path}, nil
}

func (h *SQLiteHistory) RecordStart(rec *mantis.RunRecord) error {
	_, err := h.db.Exec(
		`INSERT INTO runs (id, host_id, operation, parameters, status, error, started_at)
		 VALUES (?, ?, ?, ?, ?, '', ?)`,
		rec.ID, rec.HostID, rec.Operation, rec.Parameters, rec.Status, rec.StartedAt)
	if err != nil {
		return fmt.Errorf("recording run start: %w", err)
	}
	return nil
}

func (h *SQLiteHistory) RecordFinish(id, status, errText string, finishedAt time.Time) error {
	res, err := h.db.Exec(
		`UPDATE runs SET status = ?, error = ?, finished_at = ? WHERE id = ?`,
		status, errText, finishedAt, id)
	if err != nil {
		return fmt.Errorf("recording run finish: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return mantis.Tag(mantis.ErrState, fmt.Errorf("no run with id %s", id))
	}
	return nil
}

func (h *SQLiteHistory) ListRuns(limit int) ([]*mantis.RunRecord, error) {
	query := `SELECT id, host_id, operation, parameters, status, error, started_at, finished_at
		  FROM runs ORDER BY started_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := h.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []*mantis.RunRecord
	for rows.Next() {
		rec := &mantis.RunRecord{}
		var finished sql.NullTime
		if err := rows.Scan(&rec.ID, &rec.HostID, &rec.Operation, &rec.Parameters,
			&rec.Status, &rec.Error, &rec.StartedAt, &finished); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		if finished.Valid {
			t := finished.Time
			rec.FinishedAt = &t
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating run rows: %w", err)
	}
	return out, nil
}

func (h *SQLiteHistory) Close() error { return h.db.Close() }
