package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SeedDemoData writes the two demo events and one content row used by the
// dashboard before any real traffic arrives.
func SeedDemoData(ctx context.Context, repo Repository, now time.Time) error {
	now = now.UTC()
	up, down := true, false

	events := []Event{
		{
			EventID:      uuid.NewString(),
			UserHash:     "u_anon_1",
			Question:     "What are common symptoms of type 2 diabetes?",
			AnswerLen:    180,
			LatencyMS:    820,
			SourcesCount: 3,
			ThumbsUp:     &up,
			CreatedAt:    now.Add(-120 * time.Minute),
		},
		{
			EventID:      uuid.NewString(),
			UserHash:     "u_anon_2",
			Question:     "When should I see a doctor for chest pain?",
			AnswerLen:    210,
			LatencyMS:    930,
			SourcesCount: 2,
			ThumbsUp:     &down,
			CreatedAt:    now.Add(-30 * time.Minute),
		},
	}
	for _, ev := range events {
		if err := repo.RecordExchange(ctx, &Exchange{Event: ev}); err != nil {
			return fmt.Errorf("failed to seed event: %w", err)
		}
	}

	err := repo.AddContent(ctx, Content{
		ContentID:   uuid.NewString(),
		Title:       "Diabetes: Symptoms & Diagnosis",
		URL:         "https://example.org/diabetes",
		Tags:        []string{"diabetes", "symptoms"},
		PublishedAt: time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC),
		IngestedAt:  now,
	})
	if err != nil {
		return fmt.Errorf("failed to seed content: %w", err)
	}
	return nil
}
