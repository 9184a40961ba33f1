package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps the four collections in append-only slices. Nothing is
// persisted; a restart starts from empty (plus the demo seed, if enabled).
type MemoryStore struct {
	mu       sync.RWMutex
	events   []Event
	messages []Message
	sources  []Source
	content  []Content
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events:   []Event{},
		messages: []Message{},
		sources:  []Source{},
		content:  []Content{},
	}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) RecordExchange(_ context.Context, ex *Exchange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev := ex.Event
	ev.ThumbsUp = cloneBool(ev.ThumbsUp)
	s.events = append(s.events, ev)
	s.messages = append(s.messages, ex.Messages...)
	s.sources = append(s.sources, ex.Sources...)
	return nil
}

func (s *MemoryStore) SetThumbsUp(_ context.Context, eventID string, thumbsUp bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.events {
		if s.events[i].EventID == eventID {
			// New pointer so copies handed out earlier keep their value.
			s.events[i].ThumbsUp = &thumbsUp
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) GetEvent(_ context.Context, eventID string) (*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.events {
		if e.EventID == eventID {
			ev := e
			ev.ThumbsUp = cloneBool(e.ThumbsUp)
			return &ev, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) AddContent(_ context.Context, items ...Content) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range items {
		c.Tags = append([]string{}, c.Tags...)
		s.content = append(s.content, c)
	}
	return nil
}

func (s *MemoryStore) ListEvents(_ context.Context, q PageQuery) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := paginate(s.events, q.Normalize(), func(e Event) time.Time { return e.CreatedAt })
	out := make([]Event, len(rows))
	for i, e := range rows {
		e.ThumbsUp = cloneBool(e.ThumbsUp)
		out[i] = e
	}
	return out, nil
}

func (s *MemoryStore) ListMessages(_ context.Context, q PageQuery) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := paginate(s.messages, q.Normalize(), func(m Message) time.Time { return m.CreatedAt })
	return append([]Message{}, rows...), nil
}

func (s *MemoryStore) ListSources(_ context.Context, q PageQuery) ([]Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := paginate(s.sources, q.Normalize(), func(src Source) time.Time { return src.CreatedAt })
	return append([]Source{}, rows...), nil
}

func (s *MemoryStore) ListContent(_ context.Context, q PageQuery) ([]Content, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := paginate(s.content, q.Normalize(), func(c Content) time.Time { return c.IngestedAt })
	out := make([]Content, len(rows))
	for i, c := range rows {
		c.Tags = append([]string{}, c.Tags...)
		out[i] = c
	}
	return out, nil
}

func (s *MemoryStore) EventsSince(_ context.Context, since time.Time) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Event
	for _, e := range s.events {
		if !e.CreatedAt.Before(since) {
			e.ThumbsUp = cloneBool(e.ThumbsUp)
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MemoryStore) SourcesSince(_ context.Context, since time.Time) ([]Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Source
	for _, src := range s.sources {
		if !src.CreatedAt.Before(since) {
			out = append(out, src)
		}
	}
	return out, nil
}

func cloneBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}
