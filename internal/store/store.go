package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrUnknownResource = errors.New("unknown resource")
)

type Resource string

const (
	ResourceEvents   Resource = "events"
	ResourceMessages Resource = "messages"
	ResourceSources  Resource = "sources"
	ResourceContent  Resource = "content"
)

// Resources lists the exported collections in sync order.
var Resources = []Resource{ResourceEvents, ResourceMessages, ResourceSources, ResourceContent}

func ParseResource(s string) (Resource, error) {
	for _, r := range Resources {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownResource, s)
}

// Repository is the telemetry store. Every backend must make RecordExchange
// atomic with respect to concurrent readers.
type Repository interface {
	RecordExchange(ctx context.Context, ex *Exchange) error
	SetThumbsUp(ctx context.Context, eventID string, thumbsUp bool) error
	GetEvent(ctx context.Context, eventID string) (*Event, error)
	AddContent(ctx context.Context, items ...Content) error

	ListEvents(ctx context.Context, q PageQuery) ([]Event, error)
	ListMessages(ctx context.Context, q PageQuery) ([]Message, error)
	ListSources(ctx context.Context, q PageQuery) ([]Source, error)
	ListContent(ctx context.Context, q PageQuery) ([]Content, error)

	// EventsSince and SourcesSince feed the local analytics snapshot.
	EventsSince(ctx context.Context, since time.Time) ([]Event, error)
	SourcesSince(ctx context.Context, since time.Time) ([]Source, error)

	Close() error
}
