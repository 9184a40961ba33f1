package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// PostgresStore backs the repository with gorm on Postgres. Tables are created
// by AutoMigrate from the model tags.
type PostgresStore struct {
	db *gorm.DB
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	if err := db.WithContext(ctx).AutoMigrate(&Event{}, &Message{}, &Source{}, &Content{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *PostgresStore) RecordExchange(ctx context.Context, ex *Exchange) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ev := ex.Event
		if err := tx.Create(&ev).Error; err != nil {
			return fmt.Errorf("failed to insert event: %w", err)
		}
		if len(ex.Messages) > 0 {
			if err := tx.Create(&ex.Messages).Error; err != nil {
				return fmt.Errorf("failed to insert messages: %w", err)
			}
		}
		if len(ex.Sources) > 0 {
			if err := tx.Create(&ex.Sources).Error; err != nil {
				return fmt.Errorf("failed to insert sources: %w", err)
			}
		}
		return nil
	})
}

func (s *PostgresStore) SetThumbsUp(ctx context.Context, eventID string, thumbsUp bool) error {
	res := s.db.WithContext(ctx).Model(&Event{}).
		Where("event_id = ?", eventID).
		Update("thumbs_up", thumbsUp)
	if res.Error != nil {
		return fmt.Errorf("failed to update feedback: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) GetEvent(ctx context.Context, eventID string) (*Event, error) {
	var ev Event
	err := s.db.WithContext(ctx).Where("event_id = ?", eventID).First(&ev).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return &ev, nil
}

func (s *PostgresStore) AddContent(ctx context.Context, items ...Content) error {
	if len(items) == 0 {
		return nil
	}
	rows := make([]Content, len(items))
	for i, c := range items {
		if c.Tags == nil {
			c.Tags = []string{}
		}
		rows[i] = c
	}
	if err := s.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to insert content: %w", err)
	}
	return nil
}

func (s *PostgresStore) page(ctx context.Context, tsColumn, order string, q PageQuery) *gorm.DB {
	q = q.Normalize()
	tx := s.db.WithContext(ctx)
	if q.Since != nil {
		tx = tx.Where(tsColumn+" >= ?", q.Since.UTC())
	}
	return tx.Order(order).Limit(q.Limit).Offset(q.Offset())
}

func (s *PostgresStore) ListEvents(ctx context.Context, q PageQuery) ([]Event, error) {
	events := []Event{}
	if err := s.page(ctx, "created_at", "created_at ASC, event_id ASC", q).Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

func (s *PostgresStore) ListMessages(ctx context.Context, q PageQuery) ([]Message, error) {
	messages := []Message{}
	// "user" sorts after "assistant", so DESC keeps the question ahead of its answer.
	if err := s.page(ctx, "created_at", "created_at ASC, role DESC, event_id ASC", q).Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

func (s *PostgresStore) ListSources(ctx context.Context, q PageQuery) ([]Source, error) {
	sources := []Source{}
	if err := s.page(ctx, "created_at", "created_at ASC, event_id ASC, rank ASC", q).Find(&sources).Error; err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	return sources, nil
}

func (s *PostgresStore) ListContent(ctx context.Context, q PageQuery) ([]Content, error) {
	items := []Content{}
	if err := s.page(ctx, "ingested_at", "ingested_at ASC, content_id ASC", q).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list content: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) EventsSince(ctx context.Context, since time.Time) ([]Event, error) {
	var events []Event
	err := s.db.WithContext(ctx).
		Where("created_at >= ?", since.UTC()).
		Order("created_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	return events, nil
}

func (s *PostgresStore) SourcesSince(ctx context.Context, since time.Time) ([]Source, error) {
	var sources []Source
	err := s.db.WithContext(ctx).
		Where("created_at >= ?", since.UTC()).
		Order("created_at ASC").
		Find(&sources).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	return sources, nil
}
