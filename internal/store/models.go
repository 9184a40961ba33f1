package store

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Event is one ask call. ThumbsUp stays nil until feedback arrives.
type Event struct {
	EventID      string    `json:"event_id" gorm:"primaryKey;column:event_id"`
	UserHash     string    `json:"user_hash" gorm:"column:user_hash"`
	Question     string    `json:"question" gorm:"column:question"`
	AnswerLen    int       `json:"answer_len" gorm:"column:answer_len"`
	LatencyMS    int64     `json:"latency_ms" gorm:"column:latency_ms"`
	SourcesCount int       `json:"sources_count" gorm:"column:sources_count"`
	ThumbsUp     *bool     `json:"thumbs_up" gorm:"column:thumbs_up"`
	CreatedAt    time.Time `json:"created_at" gorm:"column:created_at;index"`
}

type Message struct {
	MessageID string    `json:"message_id" gorm:"primaryKey;column:message_id"`
	EventID   string    `json:"event_id" gorm:"column:event_id;index"`
	Role      string    `json:"role" gorm:"column:role"` // "user" or "assistant"
	Text      string    `json:"text" gorm:"column:text"`
	Tokens    int       `json:"tokens" gorm:"column:tokens"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;index"`
}

type Source struct {
	SourceID  string    `json:"source_id" gorm:"primaryKey;column:source_id"`
	EventID   string    `json:"event_id" gorm:"column:event_id;index"`
	Title     string    `json:"title" gorm:"column:title"`
	URL       string    `json:"url" gorm:"column:url"`
	Domain    string    `json:"domain" gorm:"column:domain"`
	Rank      int       `json:"rank" gorm:"column:rank"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;index"`
}

// Content is an ingested article stub. It is not tied to any ask.
type Content struct {
	ContentID   string    `json:"content_id" gorm:"primaryKey;column:content_id"`
	Title       string    `json:"title" gorm:"column:title"`
	URL         string    `json:"url" gorm:"column:url"`
	Tags        []string  `json:"tags" gorm:"column:tags;serializer:json"`
	PublishedAt time.Time `json:"published_at" gorm:"column:published_at"`
	IngestedAt  time.Time `json:"ingested_at" gorm:"column:ingested_at;index"`
}

func (Content) TableName() string { return "content" }

// Exchange groups the rows written for a single ask.
type Exchange struct {
	Event    Event
	Messages []Message
	Sources  []Source
}

// DailyUsage is one row of the analytics snapshot.
type DailyUsage struct {
	D          string  `json:"d"`
	Events     int64   `json:"events"`
	AvgLatency float64 `json:"avg_latency"`
}

type DomainCount struct {
	Domain string `json:"domain"`
	C      int64  `json:"c"`
}
