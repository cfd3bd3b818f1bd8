package usecase

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/xavierca1/ligue-attribution/internal/entity"
	"github.com/xavierca1/ligue-attribution/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-attribution/internal/infra/queue"
)

const DefaultBatchSize = 50

// ProcessQueueUseCase runs one scheduled pass over the upload queue: fetch a
// bounded batch of due items, attempt each upload, and advance each item's
// retry state machine. One item's failure never aborts the batch; only a
// failure to fetch the batch itself is fatal for the run.
type ProcessQueueUseCase struct {
	QueueRepo      entity.QueueRepositoryInterface
	ConversionRepo entity.ConversionRepositoryInterface
	Uploader       UploaderInterface
	Events         EventPublisherInterface // optional
	Alerts         AlertSenderInterface    // optional
	BatchSize      int
}

func NewProcessQueueUseCase(
	queueRepo entity.QueueRepositoryInterface,
	conversionRepo entity.ConversionRepositoryInterface,
	uploader UploaderInterface,
	events EventPublisherInterface,
	alerts AlertSenderInterface,
) *ProcessQueueUseCase {
	return &ProcessQueueUseCase{
		QueueRepo:      queueRepo,
		ConversionRepo: conversionRepo,
		Uploader:       uploader,
		Events:         events,
		Alerts:         alerts,
		BatchSize:      DefaultBatchSize,
	}
}

func (uc *ProcessQueueUseCase) Execute(ctx context.Context) (*QueueRunSummary, error) {
	items, err := uc.QueueRepo.FindDue(ctx, uc.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch due queue items: %w", err)
	}

	summary := &QueueRunSummary{}
	for _, item := range items {
		uc.processItem(ctx, item, summary)
	}

	log.Printf("[PROCESSOR] Run done: processed=%d uploaded=%d failed=%d dead_letter=%d",
		summary.Processed, summary.Uploaded, summary.Failed, summary.DeadLetter)
	return summary, nil
}

func (uc *ProcessQueueUseCase) processItem(ctx context.Context, item *entity.QueueItem, summary *QueueRunSummary) {
	summary.Processed++

	conversion, err := uc.ConversionRepo.FindByID(ctx, item.ConversionID)
	if err != nil {
		uc.markFailed(ctx, item, fmt.Sprintf("conversion lookup failed: %v", err), summary)
		return
	}
	if conversion == nil {
		// Integrity anomaly: the fact record is gone, retrying cannot
		// bring it back.
		uc.markDeadLetter(ctx, item, nil, "conversion record missing", summary)
		return
	}

	result := uc.Uploader.Upload(ctx, conversion)

	switch {
	case result.Success:
		uc.markUploaded(ctx, item, conversion, summary)
	case result.ConfigError:
		// Missing credentials or action mapping alarms operators instead
		// of quietly exhausting the item's retry budget. The item stays
		// untouched and becomes due again on the next run.
		log.Printf("[PROCESSOR] CRITICAL: configuration error uploading conversion %s: %s", conversion.ID, result.ErrorMessage())
		middleware.RecordIntegrationError(item.Platform)
		summary.Failed++
	case item.RetryCount+1 >= item.MaxRetries:
		// The retry budget is spent: this failure was the last attempt.
		uc.markDeadLetter(ctx, item, conversion, result.ErrorMessage(), summary)
	default:
		uc.markFailed(ctx, item, result.ErrorMessage(), summary)
	}
}

func (uc *ProcessQueueUseCase) markUploaded(ctx context.Context, item *entity.QueueItem, conversion *entity.Conversion, summary *QueueRunSummary) {
	if err := uc.QueueRepo.MarkUploaded(ctx, item.ID); err != nil {
		log.Printf("[PROCESSOR] Failed to mark item %s uploaded: %v", item.ID, err)
		summary.Failed++
		return
	}

	summary.Uploaded++
	middleware.RecordConversionUploaded(item.Platform)
	uc.publishEvent(ctx, item, entity.QueueStatusUploaded, item.RetryCount, "")
}

func (uc *ProcessQueueUseCase) markFailed(ctx context.Context, item *entity.QueueItem, lastError string, summary *QueueRunSummary) {
	newCount := item.RetryCount + 1
	nextRetryAt := time.Now().Add(entity.RetryDelay(newCount))

	if err := uc.QueueRepo.MarkFailed(ctx, item.ID, newCount, lastError, nextRetryAt); err != nil {
		log.Printf("[PROCESSOR] Failed to mark item %s failed: %v", item.ID, err)
	}

	log.Printf("[PROCESSOR] Item %s failed (attempt %d/%d), retry at %s: %s",
		item.ID, newCount, item.MaxRetries, nextRetryAt.Format(time.RFC3339), lastError)
	summary.Failed++
}

func (uc *ProcessQueueUseCase) markDeadLetter(ctx context.Context, item *entity.QueueItem, conversion *entity.Conversion, lastError string, summary *QueueRunSummary) {
	newCount := item.RetryCount + 1

	if err := uc.QueueRepo.MarkDeadLetter(ctx, item.ID, newCount, lastError); err != nil {
		log.Printf("[PROCESSOR] Failed to dead-letter item %s: %v", item.ID, err)
		summary.Failed++
		return
	}

	item.Status = entity.QueueStatusDeadLetter
	item.RetryCount = newCount
	item.LastError = lastError

	log.Printf("[PROCESSOR] Item %s parked in dead letter after %d attempts: %s", item.ID, newCount, lastError)
	summary.DeadLetter++
	middleware.RecordConversionDeadLetter(item.Platform)
	uc.publishEvent(ctx, item, entity.QueueStatusDeadLetter, newCount, lastError)

	if uc.Alerts != nil {
		if err := uc.Alerts.SendDeadLetterAlert(item, conversion); err != nil {
			log.Printf("[PROCESSOR] Failed to send dead letter alert for item %s: %v", item.ID, err)
		}
	}
}

// publishEvent fans a terminal outcome out to RabbitMQ, best-effort.
func (uc *ProcessQueueUseCase) publishEvent(ctx context.Context, item *entity.QueueItem, status string, retryCount int, lastError string) {
	if uc.Events == nil {
		return
	}

	payload := queue.ConversionEventPayload{
		QueueItemID:  item.ID,
		ConversionID: item.ConversionID,
		Platform:     item.Platform,
		Status:       status,
		RetryCount:   retryCount,
		LastError:    lastError,
	}
	if err := uc.Events.PublishConversionEvent(ctx, payload); err != nil {
		log.Printf("[PROCESSOR] Failed to publish %s event for item %s: %v", status, item.ID, err)
	}
}
