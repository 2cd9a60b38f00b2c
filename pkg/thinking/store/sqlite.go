// Package store archives completed thinking chains for later inspection.
// The live thinking loop never reads or writes the store; callers archive a
// chain after Think returns.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/XiaoConstantine/ruminate/pkg/errors"
	"github.com/XiaoConstantine/ruminate/pkg/thinking"
)

// ChainSummary is a lightweight listing entry.
type ChainSummary struct {
	ID          string
	Task        string
	Steps       int
	TotalTokens int
	CompletedAt string
}

// SQLiteStore persists chain snapshots in a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string

	initialized sync.Once
}

// NewSQLiteStore opens (and initializes if needed) a chain archive at path.
// Use ":memory:" for an ephemeral archive.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.StorageFailed, "failed to open chain archive"),
			errors.Fields{"path": path},
		)
	}

	store := &SQLiteStore{db: db, path: path}
	if err := store.ensureInitialized(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) ensureInitialized() error {
	var initErr error
	s.initialized.Do(func() {
		// WAL mode for better concurrency
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			initErr = errors.Wrap(err, errors.StorageFailed, "failed to enable WAL mode")
			return
		}

		query := `
        CREATE TABLE IF NOT EXISTS chains (
            id TEXT PRIMARY KEY,
            task TEXT NOT NULL,
            steps INTEGER NOT NULL,
            total_tokens INTEGER NOT NULL,
            completed_at DATETIME NOT NULL,
            snapshot TEXT NOT NULL
        );

        CREATE INDEX IF NOT EXISTS idx_chains_completed_at
        ON chains(completed_at);
        `
		if _, err := s.db.Exec(query); err != nil {
			initErr = errors.Wrap(err, errors.StorageFailed, "failed to initialize chain archive")
			return
		}
	})
	return initErr
}

// Save archives a completed chain. Incomplete chains are rejected; the live
// loop owns them.
func (s *SQLiteStore) Save(ctx context.Context, chain *thinking.Chain) error {
	if chain == nil || !chain.Completed() {
		return errors.New(errors.InvalidInput, "only completed chains can be archived")
	}

	snapshot, err := json.Marshal(chain)
	if err != nil {
		return errors.Wrap(err, errors.StorageFailed, "failed to encode chain")
	}

	_, err = s.db.ExecContext(ctx, `
        INSERT OR REPLACE INTO chains (id, task, steps, total_tokens, completed_at, snapshot)
        VALUES (?, ?, ?, ?, ?, ?)`,
		chain.ID, chain.Task, len(chain.Steps), chain.TotalTokens,
		chain.CompletedAt.UTC(), string(snapshot))
	if err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.StorageFailed, "failed to archive chain"),
			errors.Fields{"chain_id": chain.ID},
		)
	}
	return nil
}

// Load retrieves an archived chain by id.
func (s *SQLiteStore) Load(ctx context.Context, id string) (*thinking.Chain, error) {
	var snapshot string
	err := s.db.QueryRowContext(ctx,
		"SELECT snapshot FROM chains WHERE id = ?", id).Scan(&snapshot)
	if err == sql.ErrNoRows {
		return nil, errors.WithFields(
			errors.New(errors.ResourceNotFound, "chain not found"),
			errors.Fields{"chain_id": id},
		)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.StorageFailed, "failed to load chain")
	}

	var chain thinking.Chain
	if err := json.Unmarshal([]byte(snapshot), &chain); err != nil {
		return nil, errors.Wrap(err, errors.StorageFailed, "failed to decode chain")
	}
	return &chain, nil
}

// List returns summaries of archived chains, most recent first.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]ChainSummary, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
        SELECT id, task, steps, total_tokens, completed_at
        FROM chains ORDER BY completed_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.StorageFailed, "failed to list chains")
	}
	defer rows.Close()

	var summaries []ChainSummary
	for rows.Next() {
		var s ChainSummary
		if err := rows.Scan(&s.ID, &s.Task, &s.Steps, &s.TotalTokens, &s.CompletedAt); err != nil {
			return nil, errors.Wrap(err, errors.StorageFailed, "failed to scan chain summary")
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// Delete removes an archived chain.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM chains WHERE id = ?", id)
	if err != nil {
		return errors.Wrap(err, errors.StorageFailed, "failed to delete chain")
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
