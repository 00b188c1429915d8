package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore is the persistent note archive.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates/opens the archive database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create archive db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One shared connection avoids writer lock contention between goroutines.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) init() error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA synchronous=NORMAL;`,
		`PRAGMA busy_timeout=5000;`,
		`CREATE TABLE IF NOT EXISTS notes (
			note_key TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			summary TEXT NOT NULL DEFAULT '',
			created_at_ms INTEGER NOT NULL,
			updated_at_ms INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			note_key TEXT NOT NULL,
			seq INTEGER NOT NULL,
			role TEXT NOT NULL,
			turn INTEGER NOT NULL,
			content TEXT NOT NULL,
			created_at_ms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS chunks_note_seq_idx ON chunks(note_key, seq);`,
		`CREATE TABLE IF NOT EXISTS summaries (
			id TEXT PRIMARY KEY,
			note_key TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at_ms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS summaries_note_idx ON summaries(note_key, created_at_ms DESC);`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			note_key TEXT NOT NULL,
			position INTEGER NOT NULL,
			content TEXT NOT NULL,
			done INTEGER NOT NULL DEFAULT 0,
			created_at_ms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS tasks_note_idx ON tasks(note_key, position);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init archive schema (%s): %w", trimSQL(stmt), err)
		}
	}
	return nil
}

func trimSQL(sql string) string {
	sql = strings.Join(strings.Fields(sql), " ")
	if len(sql) > 60 {
		return sql[:60] + "..."
	}
	return sql
}

func nowMS() int64 { return time.Now().UnixMilli() }

func requireNoteKey(op, noteKey string) error {
	if strings.TrimSpace(noteKey) == "" {
		return fmt.Errorf("%s: empty note_key", op)
	}
	return nil
}

func (s *SQLiteStore) EnsureNote(ctx context.Context, noteKey string) error {
	if err := requireNoteKey("ensure note", noteKey); err != nil {
		return err
	}
	now := nowMS()
	_, err := s.db.ExecContext(ctx, `
INSERT INTO notes(note_key, title, summary, created_at_ms, updated_at_ms)
VALUES(?, '', '', ?, ?)
ON CONFLICT(note_key) DO UPDATE SET updated_at_ms = excluded.updated_at_ms`, noteKey, now, now)
	if err != nil {
		return fmt.Errorf("ensure note: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetNote(ctx context.Context, noteKey string) (Note, error) {
	var n Note
	err := s.db.QueryRowContext(ctx, `
SELECT note_key, title, summary, created_at_ms, updated_at_ms
FROM notes WHERE note_key = ?`, noteKey).Scan(&n.Key, &n.Title, &n.Summary, &n.CreatedAtMS, &n.UpdatedAtMS)
	if errors.Is(err, sql.ErrNoRows) {
		return Note{}, ErrNoteNotFound
	}
	if err != nil {
		return Note{}, fmt.Errorf("get note: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) ListNotes(ctx context.Context, limit int) ([]Note, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT note_key, title, summary, created_at_ms, updated_at_ms
FROM notes ORDER BY updated_at_ms DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	out := []Note{}
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.Key, &n.Title, &n.Summary, &n.CreatedAtMS, &n.UpdatedAtMS); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) SetNoteTitle(ctx context.Context, noteKey, title string) error {
	if err := requireNoteKey("set note title", noteKey); err != nil {
		return err
	}
	if err := s.EnsureNote(ctx, noteKey); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `UPDATE notes SET title = ?, updated_at_ms = ? WHERE note_key = ?`, strings.TrimSpace(title), nowMS(), noteKey)
	if err != nil {
		return fmt.Errorf("set note title: %w", err)
	}
	return nil
}

func (s *SQLiteStore) AppendChunks(ctx context.Context, noteKey string, chunks []Chunk) error {
	if err := requireNoteKey("append chunks", noteKey); err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append chunks begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := nowMS()
	if _, err := tx.ExecContext(ctx, `
INSERT INTO notes(note_key, title, summary, created_at_ms, updated_at_ms)
VALUES(?, '', '', ?, ?)
ON CONFLICT(note_key) DO UPDATE SET updated_at_ms = excluded.updated_at_ms`, noteKey, now, now); err != nil {
		return fmt.Errorf("append chunks ensure note: %w", err)
	}

	var seq int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM chunks WHERE note_key = ?`, noteKey).Scan(&seq); err != nil {
		return fmt.Errorf("append chunks next seq: %w", err)
	}

	for _, ch := range chunks {
		seq++
		id := ch.ID
		if id == "" {
			id = "chk-" + uuid.NewString()
		}
		created := ch.Timestamp
		if created.IsZero() {
			created = time.Now()
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO chunks(id, note_key, seq, role, turn, content, created_at_ms)
VALUES(?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO NOTHING`, id, noteKey, seq, string(ch.Role), ch.Turn, ch.Text, created.UnixMilli()); err != nil {
			return fmt.Errorf("append chunks insert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append chunks commit: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListChunks(ctx context.Context, noteKey string) ([]Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, role, turn, content, created_at_ms
FROM chunks WHERE note_key = ?
ORDER BY seq ASC`, noteKey)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	defer rows.Close()

	out := []Chunk{}
	for rows.Next() {
		var ch Chunk
		var role string
		var createdMS int64
		if err := rows.Scan(&ch.ID, &role, &ch.Turn, &ch.Text, &createdMS); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		ch.Role = ParseRole(role)
		ch.Timestamp = time.UnixMilli(createdMS)
		out = append(out, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return out, nil
}

// AppendSummary records a summary revision and makes it the note's current summary.
func (s *SQLiteStore) AppendSummary(ctx context.Context, noteKey string, rec SummaryRecord) error {
	if err := requireNoteKey("append summary", noteKey); err != nil {
		return err
	}
	if rec.ID == "" {
		rec.ID = "sum-" + uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append summary begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := nowMS()
	if _, err := tx.ExecContext(ctx, `
INSERT INTO notes(note_key, title, summary, created_at_ms, updated_at_ms)
VALUES(?, '', ?, ?, ?)
ON CONFLICT(note_key) DO UPDATE SET summary = excluded.summary, updated_at_ms = excluded.updated_at_ms`, noteKey, rec.Text, now, now); err != nil {
		return fmt.Errorf("append summary update note: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
INSERT INTO summaries(id, note_key, content, created_at_ms)
VALUES(?, ?, ?, ?)`, rec.ID, noteKey, rec.Text, rec.CreatedAt.UnixMilli()); err != nil {
		return fmt.Errorf("append summary insert: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append summary commit: %w", err)
	}
	return nil
}

// ListSummaries returns up to limit summary revisions, oldest first.
func (s *SQLiteStore) ListSummaries(ctx context.Context, noteKey string, limit int) ([]SummaryRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, content, created_at_ms
FROM summaries WHERE note_key = ?
ORDER BY created_at_ms DESC, rowid DESC
LIMIT ?`, noteKey, limit)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	defer rows.Close()

	out := []SummaryRecord{}
	for rows.Next() {
		var rec SummaryRecord
		var createdMS int64
		if err := rows.Scan(&rec.ID, &rec.Text, &createdMS); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		rec.CreatedAt = time.UnixMilli(createdMS)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summaries: %w", err)
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// ReplaceTasks swaps the note's checklist for items.
func (s *SQLiteStore) ReplaceTasks(ctx context.Context, noteKey string, items []TaskItem) error {
	if err := requireNoteKey("replace tasks", noteKey); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replace tasks begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE note_key = ?`, noteKey); err != nil {
		return fmt.Errorf("replace tasks delete: %w", err)
	}
	now := nowMS()
	for i, it := range items {
		id := it.ID
		if id == "" {
			id = "task-" + uuid.NewString()
		}
		created := it.CreatedAtMS
		if created == 0 {
			created = now
		}
		done := 0
		if it.Done {
			done = 1
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO tasks(id, note_key, position, content, done, created_at_ms)
VALUES(?, ?, ?, ?, ?, ?)`, id, noteKey, i, strings.TrimSpace(it.Text), done, created); err != nil {
			return fmt.Errorf("replace tasks insert: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("replace tasks commit: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListTasks(ctx context.Context, noteKey string) ([]TaskItem, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, note_key, content, done, created_at_ms
FROM tasks WHERE note_key = ?
ORDER BY position ASC`, noteKey)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	out := []TaskItem{}
	for rows.Next() {
		var it TaskItem
		var done int
		if err := rows.Scan(&it.ID, &it.NoteKey, &it.Text, &done, &it.CreatedAtMS); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		it.Done = done != 0
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return out, nil
}
