package usecase

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/xavierca1/ligue-attribution/internal/entity"
	"github.com/xavierca1/ligue-attribution/internal/infra/integration/googleads"
	"github.com/xavierca1/ligue-attribution/internal/infra/queue"
)

type MockLeadRepository struct {
	mock.Mock
}

func (m *MockLeadRepository) FindLatestByEmailHash(ctx context.Context, emailHash string) (*entity.LeadAttribution, error) {
	args := m.Called(ctx, emailHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.LeadAttribution), args.Error(1)
}

func (m *MockLeadRepository) UpdateConversionStatus(ctx context.Context, leadID, status string) error {
	args := m.Called(ctx, leadID, status)
	return args.Error(0)
}

type MockConversionRepository struct {
	mock.Mock
}

// CreateIdempotent echoes the input conversion back when the expectation
// returns nil without an error, mirroring a successful insert.
func (m *MockConversionRepository) CreateIdempotent(ctx context.Context, conversion *entity.Conversion) (*entity.Conversion, bool, error) {
	args := m.Called(ctx, conversion)
	if args.Get(0) == nil {
		if args.Error(2) == nil {
			return conversion, args.Bool(1), nil
		}
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*entity.Conversion), args.Bool(1), args.Error(2)
}

func (m *MockConversionRepository) FindByID(ctx context.Context, id string) (*entity.Conversion, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Conversion), args.Error(1)
}

type MockQueueRepository struct {
	mock.Mock
}

func (m *MockQueueRepository) Insert(ctx context.Context, item *entity.QueueItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockQueueRepository) FindDue(ctx context.Context, limit int) ([]*entity.QueueItem, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.QueueItem), args.Error(1)
}

func (m *MockQueueRepository) MarkUploaded(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockQueueRepository) MarkFailed(ctx context.Context, id string, retryCount int, lastError string, nextRetryAt time.Time) error {
	args := m.Called(ctx, id, retryCount, lastError, nextRetryAt)
	return args.Error(0)
}

func (m *MockQueueRepository) MarkDeadLetter(ctx context.Context, id string, retryCount int, lastError string) error {
	args := m.Called(ctx, id, retryCount, lastError)
	return args.Error(0)
}

type MockUploader struct {
	mock.Mock
}

func (m *MockUploader) Upload(ctx context.Context, conversion *entity.Conversion) googleads.UploadResult {
	args := m.Called(ctx, conversion)
	return args.Get(0).(googleads.UploadResult)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishConversionEvent(ctx context.Context, payload queue.ConversionEventPayload) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

type MockAlertSender struct {
	mock.Mock
}

func (m *MockAlertSender) SendDeadLetterAlert(item *entity.QueueItem, conversion *entity.Conversion) error {
	args := m.Called(item, conversion)
	return args.Error(0)
}
