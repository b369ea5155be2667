package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	// import the SQLite driver to register it with the database/sql package.
	_ "github.com/mattn/go-sqlite3"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS games (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		game_id     TEXT NOT NULL,
		finished_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS game_rankings (
		history_id INTEGER NOT NULL REFERENCES games(id) ON DELETE CASCADE,
		player_id  TEXT NOT NULL,
		name       TEXT NOT NULL,
		rank       INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_game_rankings_name ON game_rankings(name)`,
}

type Storage struct {
	Connection *sql.DB
}

// NewSQLiteStorage opens the database file, creating its directory if needed.
func NewSQLiteStorage(path string) (*Storage, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("can't create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("can't open database: %w", err)
	}

	if err = conn.Ping(); err != nil {
		return nil, fmt.Errorf("can't connect to database: %w", err)
	}

	return &Storage{Connection: conn}, nil
}

func (that *Storage) Init(ctx context.Context) error {
	for _, query := range schema {
		if _, err := that.Connection.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("can't create table: %w", err)
		}
	}

	return nil
}

func (that *Storage) Close() error {
	return that.Connection.Close()
}
