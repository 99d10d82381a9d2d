// SPDX-License-Identifier: MIT
// Package store persists per-audio-asset grid settings. It is the
// persistence collaborator from the engine's point of view: it reads
// grid snapshots and hands back states, and never mutates grids itself.
package store

import (
	"database/sql"
	"errors"
	"fmt"

	"beatgrid/internal/grid"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when no grid has been saved for an asset.
var ErrNotFound = errors.New("store: no grid for asset")

// Store keeps grid settings in a SQLite file, one row per audio asset.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and runs migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite allows one writer at a time; a single pooled connection
	// avoids SQLITE_BUSY when saves race with reads.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS grids (
			asset_id   TEXT PRIMARY KEY,
			bpm        INTEGER NOT NULL,
			mode       TEXT NOT NULL,
			offset_ms  REAL NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
		);
	`)
	return err
}

// Save upserts the grid settings for an asset.
func (s *Store) Save(assetID string, snap grid.Snapshot) error {
	_, err := s.db.Exec(`
		INSERT INTO grids (asset_id, bpm, mode, offset_ms, updated_at)
		VALUES (?, ?, ?, ?, datetime('now'))
		ON CONFLICT(asset_id) DO UPDATE SET
			bpm = excluded.bpm,
			mode = excluded.mode,
			offset_ms = excluded.offset_ms,
			updated_at = excluded.updated_at
	`, assetID, snap.BPM, snap.Mode, snap.OffsetMS)
	if err != nil {
		return fmt.Errorf("save grid for %s: %w", assetID, err)
	}
	return nil
}

// Load returns the saved grid state for an asset, or ErrNotFound.
func (s *Store) Load(assetID string) (grid.State, error) {
	var (
		bpm      int
		mode     string
		offsetMS float64
	)
	err := s.db.QueryRow(`
		SELECT bpm, mode, offset_ms FROM grids WHERE asset_id = ?
	`, assetID).Scan(&bpm, &mode, &offsetMS)
	if errors.Is(err, sql.ErrNoRows) {
		return grid.State{}, ErrNotFound
	}
	if err != nil {
		return grid.State{}, fmt.Errorf("load grid for %s: %w", assetID, err)
	}

	state := grid.NewState(bpm)
	state.Mode = grid.ParseMode(mode)
	state.OffsetMS = offsetMS
	return state, nil
}

// Delete removes the saved grid for an asset. Missing rows are not an error.
func (s *Store) Delete(assetID string) error {
	_, err := s.db.Exec(`DELETE FROM grids WHERE asset_id = ?`, assetID)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
