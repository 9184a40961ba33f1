package store

import (
	"context"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Repository {
	t.Helper()
	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Repository{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func exchangeAt(at time.Time, question string, sources int) *Exchange {
	eventID := uuid.NewString()
	ex := &Exchange{
		Event: Event{
			EventID:      eventID,
			UserHash:     "u_testtest",
			Question:     question,
			AnswerLen:    40,
			LatencyMS:    12,
			SourcesCount: sources,
			CreatedAt:    at,
		},
		Messages: []Message{
			{MessageID: uuid.NewString(), EventID: eventID, Role: RoleUser, Text: question, Tokens: len(question), CreatedAt: at},
			{MessageID: uuid.NewString(), EventID: eventID, Role: RoleAssistant, Text: "answer", Tokens: 1, CreatedAt: at},
		},
	}
	for i := 0; i < sources; i++ {
		ex.Sources = append(ex.Sources, Source{
			SourceID:  uuid.NewString(),
			EventID:   eventID,
			Title:     "Mayo Clinic",
			URL:       "https://www.mayoclinic.org/",
			Domain:    "www.mayoclinic.org",
			Rank:      i + 1,
			CreatedAt: at,
		})
	}
	return ex
}

func TestRepositoryRecordExchange(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ex := exchangeAt(at, "what is diabetes?", 2)
			require.NoError(t, repo.RecordExchange(ctx, ex))

			all := PageQuery{Page: 1, Limit: 100}
			events, err := repo.ListEvents(ctx, all)
			require.NoError(t, err)
			require.Len(t, events, 1)
			assert.Equal(t, ex.Event.EventID, events[0].EventID)
			assert.Nil(t, events[0].ThumbsUp)
			assert.True(t, at.Equal(events[0].CreatedAt))

			messages, err := repo.ListMessages(ctx, all)
			require.NoError(t, err)
			require.Len(t, messages, 2)
			assert.Equal(t, RoleUser, messages[0].Role)
			assert.Equal(t, RoleAssistant, messages[1].Role)
			for _, m := range messages {
				assert.Equal(t, ex.Event.EventID, m.EventID)
			}

			sources, err := repo.ListSources(ctx, all)
			require.NoError(t, err)
			require.Len(t, sources, 2)
			assert.Equal(t, 1, sources[0].Rank)
			assert.Equal(t, 2, sources[1].Rank)
		})
	}
}

func TestRepositorySetThumbsUp(t *testing.T) {
	ctx := context.Background()

	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ex := exchangeAt(time.Now().UTC(), "q", 0)
			require.NoError(t, repo.RecordExchange(ctx, ex))

			require.NoError(t, repo.SetThumbsUp(ctx, ex.Event.EventID, true))
			ev, err := repo.GetEvent(ctx, ex.Event.EventID)
			require.NoError(t, err)
			require.NotNil(t, ev.ThumbsUp)
			assert.True(t, *ev.ThumbsUp)

			require.NoError(t, repo.SetThumbsUp(ctx, ex.Event.EventID, false))
			ev, err = repo.GetEvent(ctx, ex.Event.EventID)
			require.NoError(t, err)
			require.NotNil(t, ev.ThumbsUp)
			assert.False(t, *ev.ThumbsUp)

			err = repo.SetThumbsUp(ctx, "does-not-exist", true)
			assert.ErrorIs(t, err, ErrNotFound)

			_, err = repo.GetEvent(ctx, "does-not-exist")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestRepositoryPagingAndSince(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			// Inserted out of order on purpose.
			for _, h := range []int{3, 1, 2, 0} {
				require.NoError(t, repo.RecordExchange(ctx, exchangeAt(base.Add(time.Duration(h)*time.Hour), "q", 0)))
			}

			page, err := repo.ListEvents(ctx, PageQuery{Page: 1, Limit: 1})
			require.NoError(t, err)
			require.Len(t, page, 1)
			assert.True(t, base.Equal(page[0].CreatedAt))

			since := base.Add(90 * time.Minute)
			filtered, err := repo.ListEvents(ctx, PageQuery{Since: &since, Page: 1, Limit: 10})
			require.NoError(t, err)
			require.Len(t, filtered, 2)
			assert.True(t, base.Add(2*time.Hour).Equal(filtered[0].CreatedAt))
			assert.True(t, base.Add(3*time.Hour).Equal(filtered[1].CreatedAt))

			beyond, err := repo.ListEvents(ctx, PageQuery{Page: 5, Limit: 2})
			require.NoError(t, err)
			assert.Empty(t, beyond)

			huge, err := repo.ListEvents(ctx, PageQuery{Page: math.MaxInt, Limit: MaxLimit})
			require.NoError(t, err)
			assert.Empty(t, huge)
		})
	}
}

func TestRepositoryContent(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, repo.AddContent(ctx,
				Content{ContentID: uuid.NewString(), Title: "later", URL: "https://example.org/b", Tags: []string{"heart"}, PublishedAt: t0, IngestedAt: t0.Add(time.Hour)},
				Content{ContentID: uuid.NewString(), Title: "earlier", URL: "https://example.org/a", PublishedAt: t0, IngestedAt: t0},
			))

			items, err := repo.ListContent(ctx, PageQuery{Page: 1, Limit: 10})
			require.NoError(t, err)
			require.Len(t, items, 2)
			assert.Equal(t, "earlier", items[0].Title)
			assert.Equal(t, []string{}, items[0].Tags)
			assert.Equal(t, []string{"heart"}, items[1].Tags)
		})
	}
}

func TestRepositorySinceQueries(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, repo.RecordExchange(ctx, exchangeAt(now.AddDate(0, 0, -30), "old", 1)))
			require.NoError(t, repo.RecordExchange(ctx, exchangeAt(now.Add(-time.Hour), "new", 2)))

			events, err := repo.EventsSince(ctx, now.AddDate(0, 0, -14))
			require.NoError(t, err)
			require.Len(t, events, 1)
			assert.Equal(t, "new", events[0].Question)

			sources, err := repo.SourcesSince(ctx, now.AddDate(0, 0, -14))
			require.NoError(t, err)
			assert.Len(t, sources, 2)
		})
	}
}

func TestMemoryStoreConcurrentExchangesAreWhole(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = repo.RecordExchange(ctx, exchangeAt(time.Now().UTC(), "q", 1))
		}()
	}
	wg.Wait()

	all := PageQuery{Page: 1, Limit: MaxLimit}
	events, _ := repo.ListEvents(ctx, all)
	messages, _ := repo.ListMessages(ctx, all)
	sources, _ := repo.ListSources(ctx, all)
	assert.Len(t, events, 50)
	assert.Len(t, messages, 100)
	assert.Len(t, sources, 50)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryStore()
	ex := exchangeAt(time.Now().UTC(), "q", 0)
	require.NoError(t, repo.RecordExchange(ctx, ex))
	require.NoError(t, repo.SetThumbsUp(ctx, ex.Event.EventID, true))

	ev, err := repo.GetEvent(ctx, ex.Event.EventID)
	require.NoError(t, err)
	*ev.ThumbsUp = false

	again, err := repo.GetEvent(ctx, ex.Event.EventID)
	require.NoError(t, err)
	assert.True(t, *again.ThumbsUp)
}

func TestSeedDemoData(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	repo := NewMemoryStore()

	require.NoError(t, SeedDemoData(ctx, repo, now))

	events, err := repo.ListEvents(ctx, PageQuery{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.True(t, now.Add(-120*time.Minute).Equal(events[0].CreatedAt))
	assert.True(t, *events[0].ThumbsUp)
	assert.False(t, *events[1].ThumbsUp)

	content, err := repo.ListContent(ctx, PageQuery{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, content, 1)
	assert.Equal(t, "Diabetes: Symptoms & Diagnosis", content[0].Title)
}
