package core

import (
	"context"
	"fmt"

	"aihealth.app/health-assistant/internal/metrics"
	"aihealth.app/health-assistant/internal/store"
)

type Page struct {
	Rows     any // []store.Event, []store.Message, []store.Source or []store.Content
	Count    int
	NextPage *int
}

// ExportService serves the paged ETL reads used by the connector.
type ExportService struct {
	repo    store.Repository
	metrics *metrics.Metrics
}

func NewExportService(repo store.Repository, m *metrics.Metrics) *ExportService {
	return &ExportService{repo: repo, metrics: m}
}

func (s *ExportService) List(ctx context.Context, resource store.Resource, q store.PageQuery) (*Page, error) {
	q = q.Normalize()

	var (
		rows  any
		count int
		err   error
	)
	switch resource {
	case store.ResourceEvents:
		var r []store.Event
		r, err = s.repo.ListEvents(ctx, q)
		rows, count = r, len(r)
	case store.ResourceMessages:
		var r []store.Message
		r, err = s.repo.ListMessages(ctx, q)
		rows, count = r, len(r)
	case store.ResourceSources:
		var r []store.Source
		r, err = s.repo.ListSources(ctx, q)
		rows, count = r, len(r)
	case store.ResourceContent:
		var r []store.Content
		r, err = s.repo.ListContent(ctx, q)
		rows, count = r, len(r)
	default:
		return nil, fmt.Errorf("%w: %q", store.ErrUnknownResource, resource)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", resource, err)
	}

	s.metrics.RowsServed(string(resource), count)
	return &Page{Rows: rows, Count: count, NextPage: q.NextPage(count)}, nil
}
