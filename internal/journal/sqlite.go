package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteSink struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS journal (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ts INTEGER NOT NULL,
		message TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create journal table: %w", err)
	}
	return &SQLiteSink{db: db}, nil
}

func (s *SQLiteSink) Record(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO journal (ts, message) VALUES (?, ?)`,
		e.Time.UnixNano(), e.Message)
	return err
}

// Recent returns up to limit entries, newest first.
func (s *SQLiteSink) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT ts, message FROM journal ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var ts int64
		var e Entry
		if err := rows.Scan(&ts, &e.Message); err != nil {
			return nil, err
		}
		e.Time = time.Unix(0, ts)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
