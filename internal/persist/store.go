package persist

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ExecutionRecord is one stored pipeline execution. The pipeline core never
// reads these back; they exist for the history command and offline review.
type ExecutionRecord struct {
	ID               string
	AgentID          string
	TaskName         string
	Content          string
	QualityScore     float64
	TokensUsed       int
	ProcessingTimeMs int64
	RequestID        string
	Degraded         bool
	KnowledgeSources []string
	QualityGates     []string
	CreatedAt        time.Time
}

// Store persists execution history in SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// NewStore opens (creating if needed) the history database at path.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return s, nil
}

func (s *Store) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS executions (
			id                 TEXT PRIMARY KEY,
			agent_id           TEXT NOT NULL,
			task_name          TEXT NOT NULL,
			content            TEXT,
			quality_score      REAL NOT NULL,
			tokens_used        INTEGER NOT NULL,
			processing_ms      INTEGER NOT NULL,
			request_id         TEXT,
			degraded           INTEGER NOT NULL DEFAULT 0,
			knowledge_sources  TEXT,
			quality_gates      TEXT,
			created_at         TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_executions_agent ON executions(agent_id, created_at);
	`)
	return err
}

// Save writes one record, assigning an ID and timestamp when absent.
func (s *Store) Save(rec *ExecutionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	sources, err := json.Marshal(rec.KnowledgeSources)
	if err != nil {
		return fmt.Errorf("marshal knowledge sources: %w", err)
	}
	gates, err := json.Marshal(rec.QualityGates)
	if err != nil {
		return fmt.Errorf("marshal quality gates: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO executions
			(id, agent_id, task_name, content, quality_score, tokens_used,
			 processing_ms, request_id, degraded, knowledge_sources, quality_gates, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.AgentID, rec.TaskName, rec.Content, rec.QualityScore, rec.TokensUsed,
		rec.ProcessingTimeMs, rec.RequestID, boolToInt(rec.Degraded),
		string(sources), string(gates), rec.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}
	return nil
}

// ListRecent returns up to limit records, newest first, optionally filtered
// by agent identity.
func (s *Store) ListRecent(agentID string, limit int) ([]ExecutionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, agent_id, task_name, content, quality_score, tokens_used,
		       processing_ms, request_id, degraded, knowledge_sources, quality_gates, created_at
		FROM executions`
	args := []any{}
	if agentID != "" {
		query += " WHERE agent_id = ?"
		args = append(args, agentID)
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query executions: %w", err)
	}
	defer rows.Close()

	var records []ExecutionRecord
	for rows.Next() {
		var rec ExecutionRecord
		var degraded int
		var sources, gates, createdAt string
		if err := rows.Scan(&rec.ID, &rec.AgentID, &rec.TaskName, &rec.Content,
			&rec.QualityScore, &rec.TokensUsed, &rec.ProcessingTimeMs, &rec.RequestID,
			&degraded, &sources, &gates, &createdAt); err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		rec.Degraded = degraded != 0
		if sources != "" {
			json.Unmarshal([]byte(sources), &rec.KnowledgeSources)
		}
		if gates != "" {
			json.Unmarshal([]byte(gates), &rec.QualityGates)
		}
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			rec.CreatedAt = t
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Prune deletes records older than retentionDays. Zero or negative retention
// disables pruning.
func (s *Store) Prune(retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().AddDate(0, 0, -retentionDays).Format(time.RFC3339)
	res, err := s.db.Exec("DELETE FROM executions WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune executions: %w", err)
	}
	return res.RowsAffected()
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
