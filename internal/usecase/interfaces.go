package usecase

import (
	"context"

	"github.com/xavierca1/ligue-attribution/internal/entity"
	"github.com/xavierca1/ligue-attribution/internal/infra/integration/googleads"
	"github.com/xavierca1/ligue-attribution/internal/infra/queue"
)

// UploaderInterface hides credential lifecycle and response-shape complexity
// from the queue processor.
type UploaderInterface interface {
	Upload(ctx context.Context, conversion *entity.Conversion) googleads.UploadResult
}

// EventPublisherInterface fans terminal queue outcomes out to RabbitMQ.
type EventPublisherInterface interface {
	PublishConversionEvent(ctx context.Context, payload queue.ConversionEventPayload) error
}

// AlertSenderInterface notifies operators when an item is parked for
// manual inspection.
type AlertSenderInterface interface {
	SendDeadLetterAlert(item *entity.QueueItem, conversion *entity.Conversion) error
}
