package archive

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"aihealth.app/health-assistant/internal/store"
)

// Snapshot is the JSON document stored for every ingested article.
type Snapshot struct {
	ContentID  string    `json:"content_id"`
	Title      string    `json:"title"`
	URL        string    `json:"url"`
	Tags       []string  `json:"tags"`
	Summary    string    `json:"summary"`
	Text       string    `json:"extracted_text"`
	ArchivedAt time.Time `json:"archived_at"`
}

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinIOArchive keeps article snapshots in an S3-compatible bucket.
type MinIOArchive struct {
	client *minio.Client
	bucket string
}

func NewMinIOArchive(ctx context.Context, cfg Config) (*MinIOArchive, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
	}
	return &MinIOArchive{client: client, bucket: cfg.Bucket}, nil
}

// ObjectKey derives a stable key from the article URL, so re-ingesting the
// same page overwrites its snapshot.
func ObjectKey(url string) string {
	return fmt.Sprintf("articles/%x.json", sha256.Sum256([]byte(url)))
}

func (a *MinIOArchive) Archive(ctx context.Context, c store.Content, summary, body string) error {
	data, err := json.Marshal(Snapshot{
		ContentID:  c.ContentID,
		Title:      c.Title,
		URL:        c.URL,
		Tags:       c.Tags,
		Summary:    summary,
		Text:       body,
		ArchivedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	_, err = a.client.PutObject(ctx, a.bucket, ObjectKey(c.URL), bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("failed to upload snapshot: %w", err)
	}
	return nil
}
