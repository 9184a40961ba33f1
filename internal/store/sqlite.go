package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore is the durable single-file backend. Timestamps are written in
// UTC so that textual comparison in SQL matches time ordering.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer; serialize through a single connection.
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS events (
        event_id TEXT PRIMARY KEY, -- UUID
        user_hash TEXT NOT NULL,
        question TEXT NOT NULL,
        answer_len INTEGER NOT NULL,
        latency_ms INTEGER NOT NULL,
        sources_count INTEGER NOT NULL,
        thumbs_up BOOLEAN, -- NULL until feedback
        created_at DATETIME NOT NULL
    );

    CREATE TABLE IF NOT EXISTS messages (
        message_id TEXT PRIMARY KEY, -- UUID
        event_id TEXT NOT NULL,
        role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
        text TEXT NOT NULL,
        tokens INTEGER NOT NULL,
        created_at DATETIME NOT NULL,
        FOREIGN KEY (event_id) REFERENCES events (event_id)
    );

    CREATE TABLE IF NOT EXISTS sources (
        source_id TEXT PRIMARY KEY, -- UUID
        event_id TEXT NOT NULL,
        title TEXT NOT NULL,
        url TEXT NOT NULL,
        domain TEXT NOT NULL,
        rank INTEGER NOT NULL,
        created_at DATETIME NOT NULL,
        FOREIGN KEY (event_id) REFERENCES events (event_id)
    );

    CREATE TABLE IF NOT EXISTS content (
        content_id TEXT PRIMARY KEY, -- UUID
        title TEXT NOT NULL,
        url TEXT NOT NULL,
        tags_json TEXT NOT NULL, -- JSON array of strings
        published_at DATETIME NOT NULL,
        ingested_at DATETIME NOT NULL
    );

    CREATE INDEX IF NOT EXISTS idx_events_created_at ON events (created_at);
    CREATE INDEX IF NOT EXISTS idx_messages_created_at ON messages (created_at);
    CREATE INDEX IF NOT EXISTS idx_sources_created_at ON sources (created_at);
    CREATE INDEX IF NOT EXISTS idx_content_ingested_at ON content (ingested_at);
    `
	_, err := s.db.Exec(schema)
	return err
}

// Telemetry writes

func (s *SQLiteStore) RecordExchange(ctx context.Context, ex *Exchange) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin exchange transaction: %w", err)
	}
	defer tx.Rollback() // no-op after Commit

	ev := ex.Event
	_, err = tx.ExecContext(ctx,
		"INSERT INTO events (event_id, user_hash, question, answer_len, latency_ms, sources_count, thumbs_up, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		ev.EventID, ev.UserHash, ev.Question, ev.AnswerLen, ev.LatencyMS, ev.SourcesCount, nullBool(ev.ThumbsUp), ev.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	for _, m := range ex.Messages {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO messages (message_id, event_id, role, text, tokens, created_at) VALUES (?, ?, ?, ?, ?, ?)",
			m.MessageID, m.EventID, m.Role, m.Text, m.Tokens, m.CreatedAt.UTC())
		if err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
	}

	for _, src := range ex.Sources {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO sources (source_id, event_id, title, url, domain, rank, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
			src.SourceID, src.EventID, src.Title, src.URL, src.Domain, src.Rank, src.CreatedAt.UTC())
		if err != nil {
			return fmt.Errorf("failed to insert source: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit exchange: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SetThumbsUp(ctx context.Context, eventID string, thumbsUp bool) error {
	stmt, err := s.db.PrepareContext(ctx, "UPDATE events SET thumbs_up = ? WHERE event_id = ?")
	if err != nil {
		return fmt.Errorf("failed to prepare feedback update: %w", err)
	}
	defer stmt.Close()

	res, err := stmt.ExecContext(ctx, thumbsUp, eventID)
	if err != nil {
		return fmt.Errorf("failed to execute feedback update: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) GetEvent(ctx context.Context, eventID string) (*Event, error) {
	row := s.db.QueryRowContext(ctx, eventColumns+" WHERE event_id = ?", eventID)
	ev, err := scanEvent(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return ev, nil
}

func (s *SQLiteStore) AddContent(ctx context.Context, items ...Content) error {
	stmt, err := s.db.PrepareContext(ctx, "INSERT INTO content (content_id, title, url, tags_json, published_at, ingested_at) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare content insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range items {
		tags := c.Tags
		if tags == nil {
			tags = []string{}
		}
		tagsJSON, err := json.Marshal(tags)
		if err != nil {
			return fmt.Errorf("failed to marshal tags: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, c.ContentID, c.Title, c.URL, string(tagsJSON), c.PublishedAt.UTC(), c.IngestedAt.UTC()); err != nil {
			return fmt.Errorf("failed to execute content insert: %w", err)
		}
	}
	return nil
}

// Export reads

const eventColumns = "SELECT event_id, user_hash, question, answer_len, latency_ms, sources_count, thumbs_up, created_at FROM events"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(r rowScanner) (*Event, error) {
	var ev Event
	var thumbs sql.NullBool
	if err := r.Scan(&ev.EventID, &ev.UserHash, &ev.Question, &ev.AnswerLen, &ev.LatencyMS, &ev.SourcesCount, &thumbs, &ev.CreatedAt); err != nil {
		return nil, err
	}
	if thumbs.Valid {
		v := thumbs.Bool
		ev.ThumbsUp = &v
	}
	ev.CreatedAt = ev.CreatedAt.UTC()
	return &ev, nil
}

// pageClause appends the since filter, ordering and LIMIT/OFFSET to a query.
func pageClause(base, tsColumn, order string, q PageQuery) (string, []any) {
	q = q.Normalize()
	query := base
	var args []any
	if q.Since != nil {
		query += " WHERE " + tsColumn + " >= ?"
		args = append(args, q.Since.UTC())
	}
	query += " ORDER BY " + order + " LIMIT ? OFFSET ?"
	args = append(args, q.Limit, q.Offset())
	return query, args
}

func (s *SQLiteStore) ListEvents(ctx context.Context, q PageQuery) ([]Event, error) {
	query, args := pageClause(eventColumns, "created_at", "created_at ASC, rowid ASC", q)
	return s.queryEvents(ctx, query, args...)
}

func (s *SQLiteStore) EventsSince(ctx context.Context, since time.Time) ([]Event, error) {
	return s.queryEvents(ctx, eventColumns+" WHERE created_at >= ? ORDER BY created_at ASC", since.UTC())
}

func (s *SQLiteStore) queryEvents(ctx context.Context, query string, args ...any) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		events = append(events, *ev)
	}
	return events, rows.Err()
}

func (s *SQLiteStore) ListMessages(ctx context.Context, q PageQuery) ([]Message, error) {
	query, args := pageClause("SELECT message_id, event_id, role, text, tokens, created_at FROM messages", "created_at", "created_at ASC, rowid ASC", q)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.MessageID, &m.EventID, &m.Role, &m.Text, &m.Tokens, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		m.CreatedAt = m.CreatedAt.UTC()
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

const sourceColumns = "SELECT source_id, event_id, title, url, domain, rank, created_at FROM sources"

func (s *SQLiteStore) ListSources(ctx context.Context, q PageQuery) ([]Source, error) {
	query, args := pageClause(sourceColumns, "created_at", "created_at ASC, rowid ASC", q)
	return s.querySources(ctx, query, args...)
}

func (s *SQLiteStore) SourcesSince(ctx context.Context, since time.Time) ([]Source, error) {
	return s.querySources(ctx, sourceColumns+" WHERE created_at >= ? ORDER BY created_at ASC", since.UTC())
}

func (s *SQLiteStore) querySources(ctx context.Context, query string, args ...any) ([]Source, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	defer rows.Close()

	sources := []Source{}
	for rows.Next() {
		var src Source
		if err := rows.Scan(&src.SourceID, &src.EventID, &src.Title, &src.URL, &src.Domain, &src.Rank, &src.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		src.CreatedAt = src.CreatedAt.UTC()
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

func (s *SQLiteStore) ListContent(ctx context.Context, q PageQuery) ([]Content, error) {
	query, args := pageClause("SELECT content_id, title, url, tags_json, published_at, ingested_at FROM content", "ingested_at", "ingested_at ASC, rowid ASC", q)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query content: %w", err)
	}
	defer rows.Close()

	items := []Content{}
	for rows.Next() {
		var c Content
		var tagsJSON string
		if err := rows.Scan(&c.ContentID, &c.Title, &c.URL, &tagsJSON, &c.PublishedAt, &c.IngestedAt); err != nil {
			return nil, fmt.Errorf("failed to scan content row: %w", err)
		}
		if err := json.Unmarshal([]byte(tagsJSON), &c.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags for content %s: %w", c.ContentID, err)
		}
		c.PublishedAt = c.PublishedAt.UTC()
		c.IngestedAt = c.IngestedAt.UTC()
		items = append(items, c)
	}
	return items, rows.Err()
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}
