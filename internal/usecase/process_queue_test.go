package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/xavierca1/ligue-attribution/internal/entity"
	"github.com/xavierca1/ligue-attribution/internal/infra/integration/googleads"
	"github.com/xavierca1/ligue-attribution/internal/infra/queue"
)

func newQueueUseCase(queueRepo *MockQueueRepository, conversionRepo *MockConversionRepository, uploader *MockUploader) *ProcessQueueUseCase {
	return NewProcessQueueUseCase(queueRepo, conversionRepo, uploader, nil, nil)
}

func pendingItem(retryCount int) *entity.QueueItem {
	item := entity.NewQueueItem("conv-1", entity.PlatformGoogleAds)
	item.ID = "item-1"
	item.RetryCount = retryCount
	if retryCount > 0 {
		item.Status = entity.QueueStatusFailed
	}
	return item
}

func attributedConversion() *entity.Conversion {
	return &entity.Conversion{
		ID:             "conv-1",
		LeadID:         "lead-1",
		ConversionType: entity.ConversionTypeQualified,
		GCLID:          "Cj0KCQ",
		CreatedAt:      time.Now(),
	}
}

// nextRetryWithin matches a timestamp roughly delay from now.
func nextRetryWithin(delay time.Duration) any {
	return mock.MatchedBy(func(ts time.Time) bool {
		diff := time.Until(ts) - delay
		return diff > -time.Minute && diff < time.Minute
	})
}

func TestProcessQueueUploadsPendingItem(t *testing.T) {
	queueRepo := new(MockQueueRepository)
	conversionRepo := new(MockConversionRepository)
	uploader := new(MockUploader)

	queueRepo.On("FindDue", mock.Anything, DefaultBatchSize).Return([]*entity.QueueItem{pendingItem(0)}, nil)
	conversionRepo.On("FindByID", mock.Anything, "conv-1").Return(attributedConversion(), nil)
	uploader.On("Upload", mock.Anything, mock.Anything).Return(googleads.UploadResult{Success: true})
	queueRepo.On("MarkUploaded", mock.Anything, "item-1").Return(nil)

	uc := newQueueUseCase(queueRepo, conversionRepo, uploader)
	summary, err := uc.Execute(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, &QueueRunSummary{Processed: 1, Uploaded: 1}, summary)
	queueRepo.AssertExpectations(t)
}

func TestProcessQueueFailureSchedulesFirstRetry(t *testing.T) {
	queueRepo := new(MockQueueRepository)
	conversionRepo := new(MockConversionRepository)
	uploader := new(MockUploader)

	queueRepo.On("FindDue", mock.Anything, DefaultBatchSize).Return([]*entity.QueueItem{pendingItem(0)}, nil)
	conversionRepo.On("FindByID", mock.Anything, "conv-1").Return(attributedConversion(), nil)
	uploader.On("Upload", mock.Anything, mock.Anything).Return(googleads.UploadResult{Error: "upload failed: 503"})
	queueRepo.On("MarkFailed", mock.Anything, "item-1", 1, "upload failed: 503", nextRetryWithin(15*time.Minute)).Return(nil)

	uc := newQueueUseCase(queueRepo, conversionRepo, uploader)
	summary, err := uc.Execute(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, &QueueRunSummary{Processed: 1, Failed: 1}, summary)
	queueRepo.AssertExpectations(t)
}

func TestProcessQueueBackoffFollowsSchedule(t *testing.T) {
	cases := []struct {
		retryCount int
		newCount   int
		delay      time.Duration
	}{
		{0, 1, 15 * time.Minute},
		{1, 2, 1 * time.Hour},
		{2, 3, 4 * time.Hour},
		{3, 4, 16 * time.Hour},
	}

	for _, tc := range cases {
		queueRepo := new(MockQueueRepository)
		conversionRepo := new(MockConversionRepository)
		uploader := new(MockUploader)

		queueRepo.On("FindDue", mock.Anything, DefaultBatchSize).Return([]*entity.QueueItem{pendingItem(tc.retryCount)}, nil)
		conversionRepo.On("FindByID", mock.Anything, "conv-1").Return(attributedConversion(), nil)
		uploader.On("Upload", mock.Anything, mock.Anything).Return(googleads.UploadResult{Error: "timeout"})
		queueRepo.On("MarkFailed", mock.Anything, "item-1", tc.newCount, "timeout", nextRetryWithin(tc.delay)).Return(nil)

		uc := newQueueUseCase(queueRepo, conversionRepo, uploader)
		_, err := uc.Execute(context.Background())

		assert.NoError(t, err)
		queueRepo.AssertExpectations(t)
	}
}

func TestProcessQueueDeadLettersOnFifthFailure(t *testing.T) {
	queueRepo := new(MockQueueRepository)
	conversionRepo := new(MockConversionRepository)
	uploader := new(MockUploader)

	// Four failures already recorded: this attempt is the fifth and last.
	queueRepo.On("FindDue", mock.Anything, DefaultBatchSize).Return([]*entity.QueueItem{pendingItem(4)}, nil)
	conversionRepo.On("FindByID", mock.Anything, "conv-1").Return(attributedConversion(), nil)
	uploader.On("Upload", mock.Anything, mock.Anything).Return(googleads.UploadResult{Error: "still broken"})
	queueRepo.On("MarkDeadLetter", mock.Anything, "item-1", 5, "still broken").Return(nil)

	uc := newQueueUseCase(queueRepo, conversionRepo, uploader)
	summary, err := uc.Execute(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, &QueueRunSummary{Processed: 1, DeadLetter: 1}, summary)
	queueRepo.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessQueueFourthFailureStillRetries(t *testing.T) {
	queueRepo := new(MockQueueRepository)
	conversionRepo := new(MockConversionRepository)
	uploader := new(MockUploader)

	queueRepo.On("FindDue", mock.Anything, DefaultBatchSize).Return([]*entity.QueueItem{pendingItem(3)}, nil)
	conversionRepo.On("FindByID", mock.Anything, "conv-1").Return(attributedConversion(), nil)
	uploader.On("Upload", mock.Anything, mock.Anything).Return(googleads.UploadResult{Error: "still broken"})
	queueRepo.On("MarkFailed", mock.Anything, "item-1", 4, "still broken", nextRetryWithin(16*time.Hour)).Return(nil)

	uc := newQueueUseCase(queueRepo, conversionRepo, uploader)
	summary, err := uc.Execute(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, &QueueRunSummary{Processed: 1, Failed: 1}, summary)
	queueRepo.AssertNotCalled(t, "MarkDeadLetter", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessQueueMissingConversionDeadLettersImmediately(t *testing.T) {
	queueRepo := new(MockQueueRepository)
	conversionRepo := new(MockConversionRepository)
	uploader := new(MockUploader)

	// Retry count 1: nowhere near the ceiling, but the fact record is gone.
	queueRepo.On("FindDue", mock.Anything, DefaultBatchSize).Return([]*entity.QueueItem{pendingItem(1)}, nil)
	conversionRepo.On("FindByID", mock.Anything, "conv-1").Return(nil, nil)
	queueRepo.On("MarkDeadLetter", mock.Anything, "item-1", 2, "conversion record missing").Return(nil)

	uc := newQueueUseCase(queueRepo, conversionRepo, uploader)
	summary, err := uc.Execute(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, &QueueRunSummary{Processed: 1, DeadLetter: 1}, summary)
	uploader.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
}

func TestProcessQueuePartialFailureIsRetried(t *testing.T) {
	queueRepo := new(MockQueueRepository)
	conversionRepo := new(MockConversionRepository)
	uploader := new(MockUploader)

	queueRepo.On("FindDue", mock.Anything, DefaultBatchSize).Return([]*entity.QueueItem{pendingItem(0)}, nil)
	conversionRepo.On("FindByID", mock.Anything, "conv-1").Return(attributedConversion(), nil)
	uploader.On("Upload", mock.Anything, mock.Anything).Return(googleads.UploadResult{PartialFailureError: "gclid expired"})
	queueRepo.On("MarkFailed", mock.Anything, "item-1", 1, "gclid expired", nextRetryWithin(15*time.Minute)).Return(nil)

	uc := newQueueUseCase(queueRepo, conversionRepo, uploader)
	summary, err := uc.Execute(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, &QueueRunSummary{Processed: 1, Failed: 1}, summary)
}

func TestProcessQueueConfigErrorDoesNotBurnRetryBudget(t *testing.T) {
	queueRepo := new(MockQueueRepository)
	conversionRepo := new(MockConversionRepository)
	uploader := new(MockUploader)

	queueRepo.On("FindDue", mock.Anything, DefaultBatchSize).Return([]*entity.QueueItem{pendingItem(2)}, nil)
	conversionRepo.On("FindByID", mock.Anything, "conv-1").Return(attributedConversion(), nil)
	uploader.On("Upload", mock.Anything, mock.Anything).Return(googleads.UploadResult{
		Error:       "google ads oauth credentials not configured",
		ConfigError: true,
	})

	uc := newQueueUseCase(queueRepo, conversionRepo, uploader)
	summary, err := uc.Execute(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, &QueueRunSummary{Processed: 1, Failed: 1}, summary)

	// The item keeps its state; operators fix the config and the next run
	// picks it up with its retry budget intact.
	queueRepo.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	queueRepo.AssertNotCalled(t, "MarkDeadLetter", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessQueueOneItemFailureDoesNotAbortBatch(t *testing.T) {
	queueRepo := new(MockQueueRepository)
	conversionRepo := new(MockConversionRepository)
	uploader := new(MockUploader)

	broken := pendingItem(0)
	healthy := entity.NewQueueItem("conv-2", entity.PlatformGoogleAds)
	healthy.ID = "item-2"

	conv2 := attributedConversion()
	conv2.ID = "conv-2"

	queueRepo.On("FindDue", mock.Anything, DefaultBatchSize).Return([]*entity.QueueItem{broken, healthy}, nil)
	conversionRepo.On("FindByID", mock.Anything, "conv-1").Return(nil, errors.New("connection reset"))
	conversionRepo.On("FindByID", mock.Anything, "conv-2").Return(conv2, nil)
	uploader.On("Upload", mock.Anything, conv2).Return(googleads.UploadResult{Success: true})
	queueRepo.On("MarkFailed", mock.Anything, "item-1", 1, mock.Anything, mock.Anything).Return(nil)
	queueRepo.On("MarkUploaded", mock.Anything, "item-2").Return(nil)

	uc := newQueueUseCase(queueRepo, conversionRepo, uploader)
	summary, err := uc.Execute(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, &QueueRunSummary{Processed: 2, Uploaded: 1, Failed: 1}, summary)
}

func TestProcessQueueBatchFetchFailureIsFatal(t *testing.T) {
	queueRepo := new(MockQueueRepository)
	conversionRepo := new(MockConversionRepository)
	uploader := new(MockUploader)

	queueRepo.On("FindDue", mock.Anything, DefaultBatchSize).Return(nil, errors.New("db down"))

	uc := newQueueUseCase(queueRepo, conversionRepo, uploader)
	summary, err := uc.Execute(context.Background())

	assert.Nil(t, summary)
	assert.Error(t, err)
}

func TestProcessQueuePublishesTerminalEvents(t *testing.T) {
	queueRepo := new(MockQueueRepository)
	conversionRepo := new(MockConversionRepository)
	uploader := new(MockUploader)
	events := new(MockEventPublisher)
	alerts := new(MockAlertSender)

	queueRepo.On("FindDue", mock.Anything, DefaultBatchSize).Return([]*entity.QueueItem{pendingItem(4)}, nil)
	conversionRepo.On("FindByID", mock.Anything, "conv-1").Return(attributedConversion(), nil)
	uploader.On("Upload", mock.Anything, mock.Anything).Return(googleads.UploadResult{Error: "still broken"})
	queueRepo.On("MarkDeadLetter", mock.Anything, "item-1", 5, "still broken").Return(nil)
	events.On("PublishConversionEvent", mock.Anything, mock.MatchedBy(func(p queue.ConversionEventPayload) bool {
		return p.Status == entity.QueueStatusDeadLetter && p.QueueItemID == "item-1" && p.RetryCount == 5
	})).Return(nil)
	alerts.On("SendDeadLetterAlert", mock.Anything, mock.Anything).Return(nil)

	uc := NewProcessQueueUseCase(queueRepo, conversionRepo, uploader, events, alerts)
	summary, err := uc.Execute(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, &QueueRunSummary{Processed: 1, DeadLetter: 1}, summary)
	events.AssertExpectations(t)
	alerts.AssertExpectations(t)
}

func TestProcessQueueAlertFailureIsSwallowed(t *testing.T) {
	queueRepo := new(MockQueueRepository)
	conversionRepo := new(MockConversionRepository)
	uploader := new(MockUploader)
	alerts := new(MockAlertSender)

	queueRepo.On("FindDue", mock.Anything, DefaultBatchSize).Return([]*entity.QueueItem{pendingItem(4)}, nil)
	conversionRepo.On("FindByID", mock.Anything, "conv-1").Return(attributedConversion(), nil)
	uploader.On("Upload", mock.Anything, mock.Anything).Return(googleads.UploadResult{Error: "still broken"})
	queueRepo.On("MarkDeadLetter", mock.Anything, "item-1", 5, "still broken").Return(nil)
	alerts.On("SendDeadLetterAlert", mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	uc := NewProcessQueueUseCase(queueRepo, conversionRepo, uploader, nil, alerts)
	summary, err := uc.Execute(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, &QueueRunSummary{Processed: 1, DeadLetter: 1}, summary)
}
