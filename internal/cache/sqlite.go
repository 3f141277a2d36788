package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"hostelcare/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS profile_snapshot (
	slot INTEGER PRIMARY KEY CHECK (slot = 1),
	subject_id TEXT NOT NULL,
	payload TEXT NOT NULL,
	completed INTEGER NOT NULL,
	updated_at TEXT NOT NULL
);
`

// Open returns the durable store at path, falling back to an in-memory
// store when the file cannot be opened. A broken cache path costs
// persistence, never startup.
func Open(path string, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.Default()
	}
	store, err := OpenSQLite(path, logger)
	if err != nil {
		logger.Warn("cache unavailable, continuing without persistence", "path", path, "error", err)
		return NewMemoryStore()
	}
	return store
}

// SQLiteStore persists the snapshot in a single-row SQLite table so it
// survives process restarts on the same device.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func OpenSQLite(path string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// modernc sqlite misbehaves with concurrent writers on one file.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteStore{db: db, logger: logger}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Read(ctx context.Context, subjectID string) (model.CachedSnapshot, bool) {
	var (
		storedSubject string
		payload       string
		completed     int
	)
	row := s.db.QueryRowContext(ctx, `SELECT subject_id, payload, completed FROM profile_snapshot WHERE slot = 1`)
	if err := row.Scan(&storedSubject, &payload, &completed); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("cache read failed, treating as miss", "error", err)
		}
		return model.CachedSnapshot{}, false
	}
	if storedSubject != subjectID {
		// Stale-user guard: never hand a previous user's snapshot to a
		// different principal on a shared device.
		return model.CachedSnapshot{}, false
	}

	var snapshot model.CachedSnapshot
	if err := json.Unmarshal([]byte(payload), &snapshot); err != nil {
		s.logger.Warn("cache payload corrupt, treating as miss", "error", err)
		return model.CachedSnapshot{}, false
	}
	snapshot.Completed = completed == 1
	if snapshot.Profile.SubjectID != subjectID {
		return model.CachedSnapshot{}, false
	}
	return snapshot, true
}

func (s *SQLiteStore) Write(ctx context.Context, snapshot model.CachedSnapshot) {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		s.logger.Warn("cache write skipped", "error", err)
		return
	}
	completed := 0
	if snapshot.Completed {
		completed = 1
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profile_snapshot (slot, subject_id, payload, completed, updated_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT (slot) DO UPDATE SET
			subject_id = excluded.subject_id,
			payload = excluded.payload,
			completed = excluded.completed,
			updated_at = excluded.updated_at
	`, snapshot.Profile.SubjectID, string(payload), completed, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		s.logger.Warn("cache write failed", "error", err)
	}
}

func (s *SQLiteStore) Clear(ctx context.Context) {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM profile_snapshot WHERE slot = 1`); err != nil {
		s.logger.Warn("cache clear failed", "error", err)
	}
}
