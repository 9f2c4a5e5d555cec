package serve

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite (pure Go).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Enable WAL mode for concurrent reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Init creates the schema tables.
func (s *SQLiteStore) Init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS invocations (
		id              TEXT PRIMARY KEY,
		question        TEXT NOT NULL,
		answer          TEXT NOT NULL DEFAULT '',
		subject         TEXT NOT NULL DEFAULT '',
		critique_passes INTEGER NOT NULL DEFAULT 0,
		tool_rounds     INTEGER NOT NULL DEFAULT 0,
		documents       INTEGER NOT NULL DEFAULT 0,
		input_tokens    INTEGER NOT NULL DEFAULT 0,
		output_tokens   INTEGER NOT NULL DEFAULT 0,
		cost_usd        REAL NOT NULL DEFAULT 0,
		duration_ms     INTEGER NOT NULL DEFAULT 0,
		created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS invocation_messages (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		invocation_id TEXT NOT NULL,
		seq           INTEGER NOT NULL,
		role          TEXT NOT NULL,
		content       TEXT NOT NULL DEFAULT '',
		tool_call_id  TEXT NOT NULL DEFAULT '',
		tool_name     TEXT NOT NULL DEFAULT '',
		created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS indexed_documents (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		url        TEXT NOT NULL,
		user_id    TEXT NOT NULL DEFAULT '',
		title      TEXT NOT NULL DEFAULT '',
		chars      INTEGER NOT NULL DEFAULT 0,
		ok         INTEGER NOT NULL DEFAULT 0,
		error      TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_messages_invocation ON invocation_messages(invocation_id);
	CREATE INDEX IF NOT EXISTS idx_invocations_created ON invocations(created_at);
	CREATE INDEX IF NOT EXISTS idx_indexed_url ON indexed_documents(url);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// InsertInvocation records a completed invocation.
func (s *SQLiteStore) InsertInvocation(rec InvocationRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO invocations
		 (id, question, answer, subject, critique_passes, tool_rounds, documents,
		  input_tokens, output_tokens, cost_usd, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Question, rec.Answer, rec.Subject, rec.CritiquePasses,
		rec.ToolRounds, rec.Documents, rec.InputTokens, rec.OutputTokens,
		rec.CostUSD, rec.DurationMs,
	)
	return err
}

// InsertMessages records the conversation of one invocation.
func (s *SQLiteStore) InsertMessages(msgs []MessageRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO invocation_messages (invocation_id, seq, role, content, tool_call_id, tool_name)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, m := range msgs {
		if _, err := stmt.Exec(m.InvocationID, m.Seq, m.Role, m.Content, m.ToolCallID, m.ToolName); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// InsertIndexedDoc records one indexing outcome.
func (s *SQLiteStore) InsertIndexedDoc(rec IndexedDocRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO indexed_documents (url, user_id, title, chars, ok, error)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.URL, rec.UserID, rec.Title, rec.Chars, boolToInt(rec.OK), rec.Error,
	)
	return err
}

// ListInvocations returns recent invocations, newest first.
func (s *SQLiteStore) ListInvocations(limit int) ([]InvocationRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT id, question, answer, subject, critique_passes, tool_rounds, documents,
		        input_tokens, output_tokens, cost_usd, duration_ms, created_at
		 FROM invocations ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []InvocationRecord
	for rows.Next() {
		var rec InvocationRecord
		if err := rows.Scan(&rec.ID, &rec.Question, &rec.Answer, &rec.Subject,
			&rec.CritiquePasses, &rec.ToolRounds, &rec.Documents,
			&rec.InputTokens, &rec.OutputTokens, &rec.CostUSD,
			&rec.DurationMs, &rec.CreatedAt); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// GetInvocation returns one invocation with its conversation.
func (s *SQLiteStore) GetInvocation(id string) (*InvocationRecord, []MessageRecord, error) {
	var rec InvocationRecord
	err := s.db.QueryRow(
		`SELECT id, question, answer, subject, critique_passes, tool_rounds, documents,
		        input_tokens, output_tokens, cost_usd, duration_ms, created_at
		 FROM invocations WHERE id = ?`, id,
	).Scan(&rec.ID, &rec.Question, &rec.Answer, &rec.Subject,
		&rec.CritiquePasses, &rec.ToolRounds, &rec.Documents,
		&rec.InputTokens, &rec.OutputTokens, &rec.CostUSD,
		&rec.DurationMs, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil, fmt.Errorf("invocation %s not found", id)
	}
	if err != nil {
		return nil, nil, err
	}

	rows, err := s.db.Query(
		`SELECT invocation_id, seq, role, content, tool_call_id, tool_name, created_at
		 FROM invocation_messages WHERE invocation_id = ? ORDER BY seq`, id,
	)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var msgs []MessageRecord
	for rows.Next() {
		var m MessageRecord
		if err := rows.Scan(&m.InvocationID, &m.Seq, &m.Role, &m.Content,
			&m.ToolCallID, &m.ToolName, &m.CreatedAt); err != nil {
			return nil, nil, err
		}
		msgs = append(msgs, m)
	}
	return &rec, msgs, rows.Err()
}

// Stats summarizes persisted history.
func (s *SQLiteStore) Stats() (StoreStats, error) {
	var stats StoreStats
	err := s.db.QueryRow(
		`SELECT
		   (SELECT COUNT(*) FROM invocations),
		   (SELECT COUNT(*) FROM invocation_messages),
		   (SELECT COUNT(*) FROM indexed_documents),
		   (SELECT COALESCE(SUM(cost_usd), 0) FROM invocations)`,
	).Scan(&stats.Invocations, &stats.Messages, &stats.IndexedDocs, &stats.TotalCost)
	return stats, err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
