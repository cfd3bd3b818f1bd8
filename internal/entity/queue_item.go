package entity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	QueueStatusPending    = "pending"
	QueueStatusUploaded   = "uploaded"
	QueueStatusFailed     = "failed"
	QueueStatusDeadLetter = "dead_letter"

	PlatformGoogleAds = "google_ads"

	DefaultMaxRetries = 5
)

// retryBackoff is the delay before attempt N (1-indexed). Attempts past the
// end of the table reuse the last interval.
var retryBackoff = []time.Duration{
	15 * time.Minute,
	1 * time.Hour,
	4 * time.Hour,
	16 * time.Hour,
}

// RetryDelay returns the wait before the given retry attempt.
func RetryDelay(retryCount int) time.Duration {
	if retryCount < 1 {
		retryCount = 1
	}
	if retryCount > len(retryBackoff) {
		retryCount = len(retryBackoff)
	}
	return retryBackoff[retryCount-1]
}

// QueueItem is one delivery attempt record for one conversion on one platform.
// pending → uploaded, or pending → failed → ... → dead_letter. uploaded and
// dead_letter are terminal.
type QueueItem struct {
	ID           string     `json:"id"`
	ConversionID string     `json:"conversion_id"`
	Platform     string     `json:"platform"`
	Status       string     `json:"status"`
	RetryCount   int        `json:"retry_count"`
	MaxRetries   int        `json:"max_retries"`
	LastError    string     `json:"last_error,omitempty"`
	NextRetryAt  *time.Time `json:"next_retry_at,omitempty"`
	UploadedAt   *time.Time `json:"uploaded_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func NewQueueItem(conversionID, platform string) *QueueItem {
	return &QueueItem{
		ID:           uuid.New().String(),
		ConversionID: conversionID,
		Platform:     platform,
		Status:       QueueStatusPending,
		RetryCount:   0,
		MaxRetries:   DefaultMaxRetries,
		CreatedAt:    time.Now(),
	}
}

type QueueRepositoryInterface interface {
	Insert(ctx context.Context, item *QueueItem) error

	// FindDue returns up to limit items eligible for processing right now
	// (pending, or failed with next_retry_at in the past), oldest first.
	FindDue(ctx context.Context, limit int) ([]*QueueItem, error)

	MarkUploaded(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, retryCount int, lastError string, nextRetryAt time.Time) error
	MarkDeadLetter(ctx context.Context, id string, retryCount int, lastError string) error
}
