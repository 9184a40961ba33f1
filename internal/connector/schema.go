package connector

import "aihealth.app/health-assistant/internal/store"

type TableSchema struct {
	PrimaryKey []string          `json:"primary_key"`
	Columns    map[string]string `json:"columns"`
}

var tables = map[store.Resource]TableSchema{
	store.ResourceEvents: {
		PrimaryKey: []string{"event_id"},
		Columns: map[string]string{
			"event_id": "string", "user_hash": "string", "question": "string",
			"answer_len": "int", "latency_ms": "int", "sources_count": "int",
			"thumbs_up": "boolean", "created_at": "timestamp",
		},
	},
	store.ResourceMessages: {
		PrimaryKey: []string{"message_id"},
		Columns: map[string]string{
			"message_id": "string", "event_id": "string", "role": "string",
			"text": "string", "tokens": "int", "created_at": "timestamp",
		},
	},
	store.ResourceSources: {
		PrimaryKey: []string{"source_id"},
		Columns: map[string]string{
			"source_id": "string", "event_id": "string", "title": "string",
			"url": "string", "domain": "string", "rank": "int", "created_at": "timestamp",
		},
	},
	store.ResourceContent: {
		PrimaryKey: []string{"content_id"},
		Columns: map[string]string{
			"content_id": "string", "title": "string", "url": "string",
			"tags": "string[]", "published_at": "timestamp", "ingested_at": "timestamp",
		},
	},
}

// Discover describes the destination streams for the given resources.
func Discover(resources []store.Resource) map[string]TableSchema {
	out := make(map[string]TableSchema, len(resources))
	for _, r := range resources {
		out[StreamPrefix+string(r)] = tables[r]
	}
	return out
}
