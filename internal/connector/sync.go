package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"aihealth.app/health-assistant/internal/store"
)

const StreamPrefix = "ai_health."

// Record is one emitted row, tagged with its destination stream.
type Record struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

type PageFetcher interface {
	FetchPage(ctx context.Context, res store.Resource, since string, page int) (Page, error)
}

// Sink receives every fetched page.
type Sink interface {
	Name() string
	Write(ctx context.Context, res store.Resource, rows []json.RawMessage) error
}

// JSONLinesSink writes one Record per line.
type JSONLinesSink struct {
	enc *json.Encoder
}

func NewJSONLinesSink(w io.Writer) *JSONLinesSink {
	return &JSONLinesSink{enc: json.NewEncoder(w)}
}

func (s *JSONLinesSink) Name() string { return "stdout" }

func (s *JSONLinesSink) Write(_ context.Context, res store.Resource, rows []json.RawMessage) error {
	stream := StreamPrefix + string(res)
	for _, row := range rows {
		if err := s.enc.Encode(Record{Stream: stream, Data: row}); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	return nil
}

// Loader is implemented by the ClickHouse warehouse.
type Loader interface {
	Load(ctx context.Context, res store.Resource, rows []json.RawMessage) (int, error)
}

type WarehouseSink struct {
	loader Loader
}

func NewWarehouseSink(l Loader) *WarehouseSink {
	return &WarehouseSink{loader: l}
}

func (s *WarehouseSink) Name() string { return "clickhouse" }

func (s *WarehouseSink) Write(ctx context.Context, res store.Resource, rows []json.RawMessage) error {
	_, err := s.loader.Load(ctx, res, rows)
	return err
}

type Stats struct {
	Rows  map[store.Resource]int
	Pages int
}

type Syncer struct {
	fetcher   PageFetcher
	sink      Sink
	resources []store.Resource
	log       *zap.Logger
}

func NewSyncer(f PageFetcher, sink Sink, resources []store.Resource, log *zap.Logger) *Syncer {
	return &Syncer{fetcher: f, sink: sink, resources: resources, log: log}
}

// Run pages through every resource from the bookmark (or the configured
// since on a first run) and returns the advanced bookmark. The state is
// only advanced when every resource synced.
func (s *Syncer) Run(ctx context.Context, st State, since string) (State, Stats, error) {
	if st.LastTS != "" {
		since = st.LastTS
	}
	stats := Stats{Rows: make(map[store.Resource]int)}
	maxTS, err := parseBookmark(since)
	if err != nil {
		return st, stats, err
	}

	for _, res := range s.resources {
		page := 1
		for {
			p, err := s.fetcher.FetchPage(ctx, res, since, page)
			if err != nil {
				return st, stats, err
			}
			stats.Pages++
			if len(p.Rows) == 0 {
				break
			}
			if err := s.sink.Write(ctx, res, p.Rows); err != nil {
				return st, stats, fmt.Errorf("sink %s: %w", s.sink.Name(), err)
			}
			stats.Rows[res] += len(p.Rows)
			for _, row := range p.Rows {
				if ts, ok := rowTimestamp(row); ok && ts.After(maxTS) {
					maxTS = ts
				}
			}
			if p.Next == 0 {
				break
			}
			page = p.Next
		}
		s.log.Info("Resource synced",
			zap.String("stream", StreamPrefix+string(res)),
			zap.Int("rows", stats.Rows[res]))
	}

	if !maxTS.IsZero() {
		st.LastTS = maxTS.UTC().Format(time.RFC3339Nano)
	}
	return st, stats, nil
}

// rowTimestamp reads created_at, or ingested_at for content rows.
func rowTimestamp(raw json.RawMessage) (time.Time, bool) {
	var row struct {
		CreatedAt  *time.Time `json:"created_at"`
		IngestedAt *time.Time `json:"ingested_at"`
	}
	if err := json.Unmarshal(raw, &row); err != nil {
		return time.Time{}, false
	}
	if row.CreatedAt != nil {
		return *row.CreatedAt, true
	}
	if row.IngestedAt != nil {
		return *row.IngestedAt, true
	}
	return time.Time{}, false
}

func parseBookmark(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid since %q: want RFC 3339 or YYYY-MM-DD", s)
}
