package audit

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists audit records in sqlite so the trail survives the process.
// It is an optional sink next to the stderr stream, not a source of truth:
// records are written once and never read back by the server itself.
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if needed) an audit database at the given path.
func NewStore(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS audit_events (
			id TEXT PRIMARY KEY,
			timestamp DATETIME NOT NULL,
			event TEXT NOT NULL,
			record TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_events(timestamp);
		CREATE INDEX IF NOT EXISTS idx_audit_event ON audit_events(event);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create audit table: %w", err)
	}

	return &Store{db: db}, nil
}

// write inserts one record. The full record is stored as JSON so the schema
// never trails the event shapes.
func (s *Store) write(record map[string]any) error {
	id, _ := record["id"].(string)
	ts, _ := record["timestamp"].(string)
	event, _ := record["event"].(string)

	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO audit_events (id, timestamp, event, record) VALUES (?, ?, ?, ?)`,
		id, ts, event, string(body),
	)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

// Query returns stored records for an event kind within [start, end],
// newest first. Used by operators inspecting the trail, not by the server.
func (s *Store) Query(event string, start, end time.Time, limit int) ([]map[string]any, error) {
	query := `SELECT record FROM audit_events WHERE timestamp >= ? AND timestamp <= ?`
	args := []any{start.UTC().Format(time.RFC3339Nano), end.UTC().Format(time.RFC3339Nano)}
	if event != "" {
		query += ` AND event = ?`
		args = append(args, event)
	}
	query += ` ORDER BY timestamp DESC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	var records []map[string]any
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		var record map[string]any
		if err := json.Unmarshal([]byte(body), &record); err != nil {
			continue
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Count returns the total number of stored records.
func (s *Store) Count() (int64, error) {
	var n int64
	err := s.db.QueryRow(`SELECT COUNT(*) FROM audit_events`).Scan(&n)
	return n, err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
