// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/notegood/malla/internal/progress"

	_ "modernc.org/sqlite" // SQLite driver.
)

const (
	stateApproved = "approved"
	stateTaking   = "taking"

	metaSavedAt = "saved_at"
)

// Store wraps SQLite access for student progress.
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
		`CREATE TABLE IF NOT EXISTS progress (
			course_id TEXT PRIMARY KEY,
			state TEXT NOT NULL CHECK (state IN ('approved', 'taking')),
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS progress_meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_progress_state ON progress(state);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// LoadProgress returns the persisted document, or nil when progress has
// never been saved or was deleted.
func (s *Store) LoadProgress(ctx context.Context) (*progress.Document, error) {
	var savedAt string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM progress_meta WHERE key = ?`, metaSavedAt).Scan(&savedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT course_id, state FROM progress ORDER BY course_id`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	doc := &progress.Document{}
	if when, err := time.Parse(time.RFC3339Nano, savedAt); err == nil {
		doc.When = &when
	}
	for rows.Next() {
		var id, state string
		if err := rows.Scan(&id, &state); err != nil {
			return nil, err
		}
		switch state {
		case stateApproved:
			doc.Approved = append(doc.Approved, id)
		case stateTaking:
			doc.Taking = append(doc.Taking, id)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return doc, nil
}

// SaveProgress replaces the stored progress with doc in one transaction.
func (s *Store) SaveProgress(ctx context.Context, doc progress.Document) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
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

	now := time.Now().UTC()
	if doc.When != nil {
		now = doc.When.UTC()
	}
	stamp := now.Format(time.RFC3339Nano)

	if _, err = tx.ExecContext(ctx, `DELETE FROM progress`); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO progress (course_id, state, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(course_id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()
	for _, id := range doc.Taking {
		if _, err = stmt.ExecContext(ctx, id, stateTaking, stamp); err != nil {
			return err
		}
	}
	// Approved rows go last so an id listed twice ends up approved.
	for _, id := range doc.Approved {
		if _, err = stmt.ExecContext(ctx, id, stateApproved, stamp); err != nil {
			return err
		}
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO progress_meta (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, metaSavedAt, stamp); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit progress: %w", err)
	}
	return nil
}

// DeleteProgress removes all persisted progress.
func (s *Store) DeleteProgress(ctx context.Context) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
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
	if _, err = tx.ExecContext(ctx, `DELETE FROM progress`); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM progress_meta WHERE key = ?`, metaSavedAt); err != nil {
		return err
	}
	return tx.Commit()
}

// counts returns the number of stored approved and taking rows.
func (s *Store) counts(ctx context.Context) (approved, taking int, err error) {
	rows, err := s.db.QueryContext(ctx, `SELECT state, COUNT(*) FROM progress GROUP BY state`)
	if err != nil {
		return 0, 0, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()
	for rows.Next() {
		var state string
		var n int
		if err := rows.Scan(&state, &n); err != nil {
			return 0, 0, err
		}
		switch state {
		case stateApproved:
			approved = n
		case stateTaking:
			taking = n
		}
	}
	return approved, taking, rows.Err()
}
