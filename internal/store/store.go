// Package store persists player quest logs as JSON snapshots in SQLite
// or PostgreSQL. It implements the engine's Persister interface; the
// engine invokes it synchronously at transition boundaries and owns no
// retry policy beyond logging.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/lawnchairsociety/questforge/internal/quest"
)

// Store wraps the database connection and quest log persistence.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// Open opens the store against a SQLite file path or PostgreSQL DSN.
func Open(dialectType DialectType, dataSource string) (*Store, error) {
	dialect := NewDialect(dialectType)

	if dialectType == DialectSQLite {
		dir := filepath.Dir(dataSource)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open(dialect.DriverName(), dataSource)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	for _, stmt := range dialect.InitStatements() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
	}

	s := &Store{db: db, dialect: dialect}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the schema if it doesn't exist.
func (s *Store) migrate() error {
	stmt := `CREATE TABLE IF NOT EXISTS quest_logs (
		player TEXT PRIMARY KEY,
		log TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`
	if _, err := s.db.Exec(stmt); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// SaveLog upserts the player's quest log snapshot.
func (s *Store) SaveLog(player string, log *quest.Log) error {
	stmt := fmt.Sprintf(`INSERT INTO quest_logs (player, log, updated_at)
		VALUES (%s, %s, CURRENT_TIMESTAMP)
		ON CONFLICT (player) DO UPDATE SET log = excluded.log, updated_at = CURRENT_TIMESTAMP`,
		s.dialect.Placeholder(1), s.dialect.Placeholder(2))

	if _, err := s.db.Exec(stmt, player, log.ToJSON()); err != nil {
		return fmt.Errorf("failed to save quest log for %s: %w", player, err)
	}
	return nil
}

// LoadLog retrieves the player's quest log. Unknown players get a fresh
// empty log.
func (s *Store) LoadLog(player string) (*quest.Log, error) {
	stmt := fmt.Sprintf("SELECT log FROM quest_logs WHERE player = %s", s.dialect.Placeholder(1))

	var data string
	err := s.db.QueryRow(stmt, player).Scan(&data)
	if err == sql.ErrNoRows {
		return quest.NewLog(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load quest log for %s: %w", player, err)
	}

	log, err := quest.LogFromJSON(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode quest log for %s: %w", player, err)
	}
	return log, nil
}

// DeleteLog removes a player's quest log.
func (s *Store) DeleteLog(player string) error {
	stmt := fmt.Sprintf("DELETE FROM quest_logs WHERE player = %s", s.dialect.Placeholder(1))
	if _, err := s.db.Exec(stmt, player); err != nil {
		return fmt.Errorf("failed to delete quest log for %s: %w", player, err)
	}
	return nil
}

// Players returns every player id with a stored quest log.
func (s *Store) Players() ([]string, error) {
	rows, err := s.db.Query("SELECT player FROM quest_logs ORDER BY player")
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer rows.Close()

	var players []string
	for rows.Next() {
		var player string
		if err := rows.Scan(&player); err != nil {
			return nil, err
		}
		players = append(players, player)
	}
	return players, rows.Err()
}
