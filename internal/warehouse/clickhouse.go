package warehouse

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"aihealth.app/health-assistant/internal/store"
)

type Config struct {
	Addr     string
	Database string
	User     string
	Password string
}

// ClickHouse is the analytics warehouse. The server reads the snapshot
// aggregates from it and the connector loads exported rows into it.
type ClickHouse struct {
	conn driver.Conn
	log  *zap.Logger
}

func NewClickHouse(ctx context.Context, cfg Config, log *zap.Logger) (*ClickHouse, error) {
	log.Info("Connecting to ClickHouse",
		zap.String("addr", cfg.Addr),
		zap.String("database", cfg.Database))

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:      5 * time.Second,
		ConnOpenStrategy: clickhouse.ConnOpenInOrder,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}
	return &ClickHouse{conn: conn, log: log}, nil
}

func (w *ClickHouse) Close() error {
	return w.conn.Close()
}

// Rows are versioned so that re-loading an exported row (the connector
// re-reads rows equal to its bookmark) collapses on merge.
var schema = map[store.Resource]string{
	store.ResourceEvents: `
	CREATE TABLE IF NOT EXISTS events (
		event_id String,
		user_hash String,
		question String,
		answer_len Int64,
		latency_ms Int64,
		sources_count Int64,
		thumbs_up Nullable(Bool),
		created_at DateTime64(3, 'UTC'),
		version UInt64
	) ENGINE = ReplacingMergeTree(version)
	ORDER BY (event_id)
	PARTITION BY toYYYYMM(created_at)`,

	store.ResourceMessages: `
	CREATE TABLE IF NOT EXISTS messages (
		message_id String,
		event_id String,
		role LowCardinality(String),
		text String,
		tokens Int64,
		created_at DateTime64(3, 'UTC'),
		version UInt64
	) ENGINE = ReplacingMergeTree(version)
	ORDER BY (message_id)
	PARTITION BY toYYYYMM(created_at)`,

	store.ResourceSources: `
	CREATE TABLE IF NOT EXISTS sources (
		source_id String,
		event_id String,
		title String,
		url String,
		domain LowCardinality(String),
		rank Int64,
		created_at DateTime64(3, 'UTC'),
		version UInt64
	) ENGINE = ReplacingMergeTree(version)
	ORDER BY (source_id)
	PARTITION BY toYYYYMM(created_at)`,

	store.ResourceContent: `
	CREATE TABLE IF NOT EXISTS content (
		content_id String,
		title String,
		url String,
		tags Array(String),
		published_at DateTime64(3, 'UTC'),
		ingested_at DateTime64(3, 'UTC'),
		version UInt64
	) ENGINE = ReplacingMergeTree(version)
	ORDER BY (content_id)`,
}

func (w *ClickHouse) InitSchema(ctx context.Context) error {
	for _, res := range store.Resources {
		if err := w.conn.Exec(ctx, schema[res]); err != nil {
			return fmt.Errorf("failed to create %s table: %w", res, err)
		}
	}
	w.log.Info("ClickHouse schema initialized successfully")
	return nil
}

// DailyUsage returns per-day event counts and mean latency for the last
// days days, newest first.
func (w *ClickHouse) DailyUsage(ctx context.Context, days int) ([]store.DailyUsage, error) {
	query := `
		SELECT
			toString(toDate(created_at)) AS d,
			count() AS events,
			avg(latency_ms) AS avg_latency
		FROM events FINAL
		WHERE toDate(created_at) >= subtractDays(today(), ?)
		GROUP BY d
		ORDER BY d DESC`

	rows, err := w.conn.Query(ctx, query, days-1)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily usage: %w", err)
	}
	defer func(rows driver.Rows) {
		if err := rows.Close(); err != nil {
			w.log.Error("Failed to close daily usage rows", zap.Error(err))
		}
	}(rows)

	out := []store.DailyUsage{}
	for rows.Next() {
		var (
			d      string
			events uint64
			avg    float64
		)
		if err := rows.Scan(&d, &events, &avg); err != nil {
			return nil, fmt.Errorf("failed to scan daily usage row: %w", err)
		}
		out = append(out, store.DailyUsage{D: d, Events: int64(events), AvgLatency: avg})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily usage rows: %w", err)
	}
	return out, nil
}

func (w *ClickHouse) TopDomains(ctx context.Context, limit int) ([]store.DomainCount, error) {
	query := `
		SELECT domain, count() AS c
		FROM sources FINAL
		GROUP BY domain
		ORDER BY c DESC, domain ASC
		LIMIT ?`

	rows, err := w.conn.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top domains: %w", err)
	}
	defer func(rows driver.Rows) {
		if err := rows.Close(); err != nil {
			w.log.Error("Failed to close top domains rows", zap.Error(err))
		}
	}(rows)

	out := []store.DomainCount{}
	for rows.Next() {
		var (
			domain string
			c      uint64
		)
		if err := rows.Scan(&domain, &c); err != nil {
			return nil, fmt.Errorf("failed to scan top domains row: %w", err)
		}
		out = append(out, store.DomainCount{Domain: domain, C: int64(c)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating top domains rows: %w", err)
	}
	return out, nil
}

// Load appends exported JSON rows of one resource in a single batch and
// returns how many were sent.
func (w *ClickHouse) Load(ctx context.Context, res store.Resource, rows []json.RawMessage) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if _, ok := schema[res]; !ok {
		return 0, fmt.Errorf("%w: %q", store.ErrUnknownResource, res)
	}

	batch, err := w.conn.PrepareBatch(ctx, "INSERT INTO "+string(res))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare batch: %w", err)
	}

	version := uint64(time.Now().UnixNano())
	for i, raw := range rows {
		values, err := RowValues(res, raw)
		if err != nil {
			return 0, fmt.Errorf("row %d: %w", i, err)
		}
		if err := batch.Append(append(values, version)...); err != nil {
			return 0, fmt.Errorf("failed to append %s row to batch: %w", res, err)
		}
	}

	if err := batch.Send(); err != nil {
		return 0, fmt.Errorf("failed to send batch: %w", err)
	}
	return len(rows), nil
}

// RowValues decodes one exported row into column order, without the
// trailing version column.
func RowValues(res store.Resource, raw json.RawMessage) ([]any, error) {
	switch res {
	case store.ResourceEvents:
		var e store.Event
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("failed to decode event: %w", err)
		}
		if e.EventID == "" {
			return nil, fmt.Errorf("event without event_id")
		}
		return []any{e.EventID, e.UserHash, e.Question, int64(e.AnswerLen), e.LatencyMS,
			int64(e.SourcesCount), e.ThumbsUp, e.CreatedAt.UTC()}, nil

	case store.ResourceMessages:
		var m store.Message
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("failed to decode message: %w", err)
		}
		if m.MessageID == "" {
			return nil, fmt.Errorf("message without message_id")
		}
		return []any{m.MessageID, m.EventID, m.Role, m.Text, int64(m.Tokens), m.CreatedAt.UTC()}, nil

	case store.ResourceSources:
		var s store.Source
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("failed to decode source: %w", err)
		}
		if s.SourceID == "" {
			return nil, fmt.Errorf("source without source_id")
		}
		return []any{s.SourceID, s.EventID, s.Title, s.URL, s.Domain, int64(s.Rank), s.CreatedAt.UTC()}, nil

	case store.ResourceContent:
		var c store.Content
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("failed to decode content: %w", err)
		}
		if c.ContentID == "" {
			return nil, fmt.Errorf("content without content_id")
		}
		tags := c.Tags
		if tags == nil {
			tags = []string{}
		}
		return []any{c.ContentID, c.Title, c.URL, tags, c.PublishedAt.UTC(), c.IngestedAt.UTC()}, nil
	}
	return nil, fmt.Errorf("%w: %q", store.ErrUnknownResource, res)
}
