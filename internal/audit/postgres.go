package audit

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// PostgresStore archives audit events in a Postgres table for operator
// forensics. It is an optional sink: the engine runs fine without it and
// a write failure only surfaces in logs.
type PostgresStore struct {
	db    *sql.DB
	table string
}

// NewPostgresStore ensures the audit table exists and returns the sink.
func NewPostgresStore(db *sql.DB, table string) (*PostgresStore, error) {
	if table == "" {
		table = "guardian_audit"
	}
	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id             TEXT PRIMARY KEY,
		event_type     TEXT NOT NULL,
		actor_id       TEXT,
		violation_kind TEXT,
		running_count  INTEGER,
		detail         JSONB,
		data           JSONB,
		created_at     TIMESTAMPTZ NOT NULL
	)`, table)
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("ensure audit table: %w", err)
	}
	return &PostgresStore{db: db, table: table}, nil
}

// Write inserts one event. Called from the notifier's emit goroutines.
func (s *PostgresStore) Write(evt Event) error {
	detail, err := json.Marshal(evt.Detail)
	if err != nil {
		return fmt.Errorf("marshal detail: %w", err)
	}
	data, err := json.Marshal(evt.Data)
	if err != nil {
		return fmt.Errorf("marshal data: %w", err)
	}

	query := fmt.Sprintf(`INSERT INTO %s
		(id, event_type, actor_id, violation_kind, running_count, detail, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`, s.table)

	ts := evt.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err = s.db.Exec(query,
		evt.ID, evt.Type, evt.ActorID, evt.ViolationKind, evt.RunningCount,
		detail, data, ts,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}
