package store

import (
	"sync"
	"time"
)

// SpawnRecord captures the outcome of one chat-state engine spawn.
type SpawnRecord struct {
	ProxyID    string
	ChildID    string
	Workflow   string
	ConfigJSON string
	Success    bool
	Error      string
	CreatedAt  time.Time
}

// Forward kinds.
const (
	ForwardKindKickoff  = "kickoff"
	ForwardKindExternal = "external"
)

// ForwardRecord captures one forwarded message by id and outcome only.
// Message content is never stored here.
type ForwardRecord struct {
	ProxyID   string
	MessageID string
	Kind      string // "kickoff" | "external"
	Outcome   string // "ok" | "error"
	Error     string
	CreatedAt time.Time
}

// Auditor records proxy lifecycle events for introspection.
type Auditor interface {
	RecordSpawn(rec SpawnRecord) error
	RecordForward(rec ForwardRecord) error
	Spawns(limit int) ([]SpawnRecord, error)
	Forwards(limit int) ([]ForwardRecord, error)
}

// SQLiteAuditor is an Auditor backed by the SQLite DB.
type SQLiteAuditor struct {
	db *DB
}

// NewSQLiteAuditor creates an auditor over an open DB.
func NewSQLiteAuditor(db *DB) *SQLiteAuditor {
	return &SQLiteAuditor{db: db}
}

func (a *SQLiteAuditor) RecordSpawn(rec SpawnRecord) error {
	_, err := a.db.sql.Exec(`
		INSERT INTO spawns (proxy_id, child_id, workflow, config_json, success, error)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ProxyID, rec.ChildID, rec.Workflow, rec.ConfigJSON, boolToInt(rec.Success), rec.Error,
	)
	return err
}

func (a *SQLiteAuditor) RecordForward(rec ForwardRecord) error {
	_, err := a.db.sql.Exec(`
		INSERT INTO forwards (proxy_id, message_id, kind, outcome, error)
		VALUES (?, ?, ?, ?, ?)`,
		rec.ProxyID, rec.MessageID, rec.Kind, rec.Outcome, rec.Error,
	)
	return err
}

func (a *SQLiteAuditor) Spawns(limit int) ([]SpawnRecord, error) {
	rows, err := a.db.sql.Query(`
		SELECT proxy_id, child_id, workflow, config_json, success, error, created_at
		FROM spawns ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []SpawnRecord
	for rows.Next() {
		var rec SpawnRecord
		var success int
		var createdAt string
		if err := rows.Scan(&rec.ProxyID, &rec.ChildID, &rec.Workflow, &rec.ConfigJSON, &success, &rec.Error, &createdAt); err != nil {
			return nil, err
		}
		rec.Success = success != 0
		rec.CreatedAt, _ = time.Parse("2006-01-02 15:04:05", createdAt)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (a *SQLiteAuditor) Forwards(limit int) ([]ForwardRecord, error) {
	rows, err := a.db.sql.Query(`
		SELECT proxy_id, message_id, kind, outcome, error, created_at
		FROM forwards ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []ForwardRecord
	for rows.Next() {
		var rec ForwardRecord
		var createdAt string
		if err := rows.Scan(&rec.ProxyID, &rec.MessageID, &rec.Kind, &rec.Outcome, &rec.Error, &createdAt); err != nil {
			return nil, err
		}
		rec.CreatedAt, _ = time.Parse("2006-01-02 15:04:05", createdAt)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// MemoryAuditor is an in-memory Auditor for tests and the "memory" backend.
type MemoryAuditor struct {
	mu       sync.Mutex
	spawns   []SpawnRecord
	forwards []ForwardRecord
}

// NewMemoryAuditor creates an in-memory auditor.
func NewMemoryAuditor() *MemoryAuditor {
	return &MemoryAuditor{}
}

func (a *MemoryAuditor) RecordSpawn(rec SpawnRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	a.spawns = append(a.spawns, rec)
	return nil
}

func (a *MemoryAuditor) RecordForward(rec ForwardRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	a.forwards = append(a.forwards, rec)
	return nil
}

func (a *MemoryAuditor) Spawns(limit int) ([]SpawnRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return lastN(a.spawns, limit), nil
}

func (a *MemoryAuditor) Forwards(limit int) ([]ForwardRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return lastN(a.forwards, limit), nil
}

// lastN returns up to n records, newest first.
func lastN[T any](in []T, n int) []T {
	out := make([]T, 0, n)
	for i := len(in) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, in[i])
	}
	return out
}
