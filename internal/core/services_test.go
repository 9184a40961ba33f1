package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"aihealth.app/health-assistant/internal/store"
)

func TestExportService_List(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemoryStore()
	require.NoError(t, store.SeedDemoData(ctx, repo, time.Now().UTC()))
	svc := NewExportService(repo, nil)

	page, err := svc.List(ctx, store.ResourceEvents, store.PageQuery{Page: 1, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Count)
	require.NotNil(t, page.NextPage)
	assert.Equal(t, 2, *page.NextPage)
	assert.IsType(t, []store.Event{}, page.Rows)

	page, err = svc.List(ctx, store.ResourceEvents, store.PageQuery{Page: 2, Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, 0, page.Count)
	assert.Nil(t, page.NextPage)

	page, err = svc.List(ctx, store.ResourceContent, store.PageQuery{Page: 1, Limit: 100})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Count)
	assert.Nil(t, page.NextPage)

	_, err = svc.List(ctx, store.Resource("users"), store.PageQuery{})
	assert.ErrorIs(t, err, store.ErrUnknownResource)
}

type MockAnnotator struct {
	mock.Mock
}

func (m *MockAnnotator) Annotate(ctx context.Context, title, url, body string) ([]string, string, error) {
	args := m.Called(ctx, title, url, body)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).([]string), args.String(1), args.Error(2)
}

type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) FetchText(ctx context.Context, url string) (string, error) {
	args := m.Called(ctx, url)
	return args.String(0), args.Error(1)
}

type MockArchiver struct {
	mock.Mock
}

func (m *MockArchiver) Archive(ctx context.Context, c store.Content, summary, body string) error {
	args := m.Called(ctx, c, summary, body)
	return args.Error(0)
}

type MockIndexer struct {
	mock.Mock
}

func (m *MockIndexer) Index(ctx context.Context, items []store.Content) int {
	args := m.Called(ctx, items)
	return args.Int(0)
}

func TestIngestService_IngestDaily_KnowledgeBaseTags(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemoryStore()
	svc := NewIngestService(repo, NewKnowledgeBase(), nil, zap.NewNop())

	added, err := svc.IngestDaily(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	items, err := repo.ListContent(ctx, store.PageQuery{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "New diabetes guidance", items[0].Title)
	assert.Equal(t, "https://example.org/diabetes-guidance", items[0].URL)
	assert.Equal(t, []string{"diabetes"}, items[0].Tags)
	assert.Equal(t, []string{"heart"}, items[1].Tags)
}

func TestIngestService_IngestDaily_FullPipeline(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemoryStore()

	fetcher := new(MockFetcher)
	fetcher.On("FetchText", mock.Anything, "https://example.org/a").Return("Article body", nil)
	fetcher.On("FetchText", mock.Anything, "https://example.org/b").Return("", errors.New("404"))

	annotator := new(MockAnnotator)
	annotator.On("Annotate", mock.Anything, "A", "https://example.org/a", "Article body").
		Return([]string{"nutrition", "diet"}, "About diets.", nil)
	annotator.On("Annotate", mock.Anything, "B", "https://example.org/b", "").
		Return(nil, "", errors.New("provider down"))

	archiver := new(MockArchiver)
	archiver.On("Archive", mock.Anything, mock.AnythingOfType("store.Content"), mock.Anything, mock.Anything).Return(nil)

	indexer := new(MockIndexer)
	indexer.On("Index", mock.Anything, mock.MatchedBy(func(items []store.Content) bool { return len(items) == 2 })).Return(2)

	svc := NewIngestService(repo, NewKnowledgeBase(), nil, zap.NewNop(),
		WithFeed([]FeedItem{{Title: "A", URL: "https://example.org/a"}, {Title: "B", URL: "https://example.org/b"}}),
		WithFetcher(fetcher),
		WithAnnotator(annotator),
		WithArchiver(archiver),
		WithIndexer(indexer),
	)

	added, err := svc.IngestDaily(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	items, err := repo.ListContent(ctx, store.PageQuery{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, []string{"nutrition", "diet"}, items[0].Tags)
	assert.Equal(t, []string{"health"}, items[1].Tags)

	archiver.AssertNumberOfCalls(t, "Archive", 2)
	archiver.AssertCalled(t, "Archive", mock.Anything, mock.Anything, "About diets.", "Article body")
	indexer.AssertExpectations(t)
}

func TestComputeKPIs(t *testing.T) {
	assert.Equal(t, KPIs{}, ComputeKPIs(nil))

	k := ComputeKPIs([]store.DailyUsage{
		{D: "2025-05-02", Events: 3, AvgLatency: 100},
		{D: "2025-05-01", Events: 2, AvgLatency: 201},
	})
	assert.Equal(t, int64(5), k.TotalEvents)
	assert.Equal(t, int64(151), k.AvgLatency)
}

type MockWarehouse struct {
	mock.Mock
}

func (m *MockWarehouse) DailyUsage(ctx context.Context, days int) ([]store.DailyUsage, error) {
	args := m.Called(ctx, days)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.DailyUsage), args.Error(1)
}

func (m *MockWarehouse) TopDomains(ctx context.Context, limit int) ([]store.DomainCount, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.DomainCount), args.Error(1)
}

func TestAnalyticsService_LocalSnapshot(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC)
	repo := store.NewMemoryStore()

	record := func(at time.Time, latency int64, domains ...string) {
		ex := &store.Exchange{Event: store.Event{EventID: at.String(), LatencyMS: latency, CreatedAt: at}}
		for i, d := range domains {
			ex.Sources = append(ex.Sources, store.Source{SourceID: at.String() + d, EventID: ex.Event.EventID, Domain: d, Rank: i + 1, CreatedAt: at})
		}
		require.NoError(t, repo.RecordExchange(ctx, ex))
	}
	record(now.Add(-time.Hour), 100, "medlineplus.gov", "health-assistant")
	record(now.Add(-2*time.Hour), 300, "medlineplus.gov")
	record(now.AddDate(0, 0, -1), 50, "www.mayoclinic.org")
	record(now.AddDate(0, 0, -20), 999, "old.example")

	svc := NewAnalyticsService(repo, nil)
	svc.now = func() time.Time { return now }

	snap, err := svc.Snapshot(ctx)
	require.NoError(t, err)

	require.Len(t, snap.DailyUsage, 2)
	assert.Equal(t, store.DailyUsage{D: "2025-05-10", Events: 2, AvgLatency: 200}, snap.DailyUsage[0])
	assert.Equal(t, store.DailyUsage{D: "2025-05-09", Events: 1, AvgLatency: 50}, snap.DailyUsage[1])
	assert.Equal(t, KPIs{TotalEvents: 3, AvgLatency: 125}, snap.KPIs)

	require.NotEmpty(t, snap.TopDomains)
	assert.Equal(t, store.DomainCount{Domain: "medlineplus.gov", C: 2}, snap.TopDomains[0])
	assert.Len(t, snap.TopDomains, 4)
}

func TestAnalyticsService_WarehouseSnapshot(t *testing.T) {
	wh := new(MockWarehouse)
	wh.On("DailyUsage", mock.Anything, DailyUsageDays).Return([]store.DailyUsage{{D: "2025-05-10", Events: 4, AvgLatency: 10}}, nil)
	wh.On("TopDomains", mock.Anything, TopDomainLimit).Return([]store.DomainCount{{Domain: "medlineplus.gov", C: 9}}, nil)

	svc := NewAnalyticsService(store.NewMemoryStore(), wh)
	snap, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), snap.KPIs.TotalEvents)
	assert.Equal(t, "medlineplus.gov", snap.TopDomains[0].Domain)
	wh.AssertExpectations(t)
}

func TestAnalyticsService_WarehouseError(t *testing.T) {
	wh := new(MockWarehouse)
	wh.On("DailyUsage", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	svc := NewAnalyticsService(store.NewMemoryStore(), wh)
	_, err := svc.Snapshot(context.Background())
	assert.Error(t, err)
}

func TestAnalyticsService_EmptyStore(t *testing.T) {
	svc := NewAnalyticsService(store.NewMemoryStore(), nil)
	snap, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, snap.DailyUsage)
	assert.NotNil(t, snap.TopDomains)
	assert.Equal(t, KPIs{}, snap.KPIs)
}

func TestSearchLinks(t *testing.T) {
	links := SearchLinks("  high blood pressure ")
	require.Len(t, links, 3)
	assert.Equal(t, "Mayo Clinic - high blood pressure", links[0].Title)
	assert.Equal(t, "https://www.mayoclinic.org/search/search-results?q=high%20blood%20pressure", links[0].URL)
	assert.Equal(t, "https://medlineplus.gov/search/?query=high%20blood%20pressure", links[2].URL)

	links = SearchLinks("a&b")
	assert.Contains(t, links[1].URL, "query=a%26b")
}
