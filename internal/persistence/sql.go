// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"
)

// SQLiteDriver is the database/sql driver name registered by
// modernc.org/sqlite.
const SQLiteDriver = "sqlite"

// SQLStorage implements persistence using a SQL database. The blob lives
// in a single row of table `bridge_config`, created if missing.
type SQLStorage struct {
	driver string
	dsn    string

	mu sync.Mutex
	db *sql.DB
}

// NewSQLStorage creates a new SQLStorage.
// Note: The driver (e.g., sqlite) must be imported in main.go
func NewSQLStorage(driver, dsn string) *SQLStorage {
	return &SQLStorage{
		driver: driver,
		dsn:    dsn,
	}
}

func (s *SQLStorage) connect() error {
	if s.db != nil {
		return nil
	}
	db, err := sql.Open(s.driver, s.dsn)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return fmt.Errorf("failed to init schema: %w", err)
	}
	s.db = db
	return nil
}

func initSchema(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS bridge_config (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		blob BLOB NOT NULL,
		saved_at INTEGER NOT NULL
	);
	`
	_, err := db.Exec(query)
	return err
}

func (s *SQLStorage) Load() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.connect(); err != nil {
		return nil, err
	}
	var blob []byte
	err := s.db.QueryRow("SELECT blob FROM bridge_config WHERE id = 1").Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query config: %w", err)
	}
	if len(blob) == 0 {
		return nil, nil
	}
	return blob, nil
}

// Save upserts the single config row.
func (s *SQLStorage) Save(blob []byte) error {
	if err := checkSize(blob); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.connect(); err != nil {
		return err
	}
	if blob == nil {
		blob = []byte{}
	}
	query := "INSERT INTO bridge_config (id, blob, saved_at) VALUES (1, ?, ?) ON CONFLICT(id) DO UPDATE SET blob=excluded.blob, saved_at=excluded.saved_at"
	if _, err := s.db.Exec(query, blob, time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to persist config: %w", err)
	}
	return nil
}

func (s *SQLStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}
