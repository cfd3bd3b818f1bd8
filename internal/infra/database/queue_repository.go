package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/xavierca1/ligue-attribution/internal/entity"
)

type QueueRepository struct {
	DB *sql.DB
}

func NewQueueRepository(db *sql.DB) *QueueRepository {
	return &QueueRepository{DB: db}
}

func (r *QueueRepository) Insert(ctx context.Context, item *entity.QueueItem) error {
	query := `
		INSERT INTO conversion_queue (
			id, conversion_id, platform, status, retry_count, max_retries,
			last_error, next_retry_at, uploaded_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, NULL, NULL, NULL, $7)
	`

	_, err := r.DB.ExecContext(
		ctx,
		query,
		item.ID,
		item.ConversionID,
		item.Platform,
		item.Status,
		item.RetryCount,
		item.MaxRetries,
		item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert queue item: %w", err)
	}
	return nil
}

// FindDue selects items eligible right now: pending, or failed with the
// backoff window elapsed. Oldest first, bounded so each run stays short;
// the next scheduled run picks up the rest.
func (r *QueueRepository) FindDue(ctx context.Context, limit int) ([]*entity.QueueItem, error) {
	query := `
		SELECT
			id, conversion_id, platform, status, retry_count, max_retries,
			COALESCE(last_error, ''), next_retry_at, uploaded_at, created_at
		FROM conversion_queue
		WHERE status = 'pending'
		   OR (status = 'failed' AND (next_retry_at IS NULL OR next_retry_at <= NOW()))
		ORDER BY created_at ASC
		LIMIT $1
	`

	rows, err := r.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*entity.QueueItem
	for rows.Next() {
		var item entity.QueueItem
		var nextRetryAt, uploadedAt sql.NullTime

		if err := rows.Scan(
			&item.ID,
			&item.ConversionID,
			&item.Platform,
			&item.Status,
			&item.RetryCount,
			&item.MaxRetries,
			&item.LastError,
			&nextRetryAt,
			&uploadedAt,
			&item.CreatedAt,
		); err != nil {
			return nil, err
		}

		if nextRetryAt.Valid {
			item.NextRetryAt = &nextRetryAt.Time
		}
		if uploadedAt.Valid {
			item.UploadedAt = &uploadedAt.Time
		}
		items = append(items, &item)
	}

	return items, rows.Err()
}

// Every transition below carries a status guard so a terminal row can never
// be mutated again, even by an overlapping processor run.

func (r *QueueRepository) MarkUploaded(ctx context.Context, id string) error {
	query := `
		UPDATE conversion_queue
		SET status = 'uploaded', uploaded_at = NOW(), last_error = NULL, next_retry_at = NULL
		WHERE id = $1 AND status IN ('pending', 'failed')
	`
	_, err := r.DB.ExecContext(ctx, query, id)
	return err
}

func (r *QueueRepository) MarkFailed(ctx context.Context, id string, retryCount int, lastError string, nextRetryAt time.Time) error {
	query := `
		UPDATE conversion_queue
		SET status = 'failed', retry_count = $2, last_error = $3, next_retry_at = $4
		WHERE id = $1 AND status IN ('pending', 'failed')
	`
	_, err := r.DB.ExecContext(ctx, query, id, retryCount, lastError, nextRetryAt)
	return err
}

func (r *QueueRepository) MarkDeadLetter(ctx context.Context, id string, retryCount int, lastError string) error {
	query := `
		UPDATE conversion_queue
		SET status = 'dead_letter', retry_count = $2, last_error = $3, next_retry_at = NULL
		WHERE id = $1 AND status IN ('pending', 'failed')
	`
	_, err := r.DB.ExecContext(ctx, query, id, retryCount, lastError)
	return err
}
