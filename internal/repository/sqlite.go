package repository

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// NewSQLiteRepository opens (or creates) the game database at dbPath.
// Use ":memory:" for a throwaway database.
func NewSQLiteRepository(dbPath string) (*SQLRepository, error) {
	// WAL for concurrent readers; sqlite time format keeps DATETIME columns comparable as text
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)&_time_format=sqlite", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite connection pool settings
	db.SetMaxOpenConns(1) // SQLite only supports 1 writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0) // Keep connection alive

	repo, err := newSQLRepository(db, DialectSQLite)
	if err != nil {
		db.Close()
		return nil, err
	}

	log.Info().Str("component", "repository").Str("path", dbPath).Msg("SQLite repository initialized")
	return repo, nil
}
