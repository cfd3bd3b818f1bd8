package usecase

import (
	"context"
	"log"

	"github.com/xavierca1/ligue-attribution/internal/entity"
	"github.com/xavierca1/ligue-attribution/internal/infra/http/middleware"
)

// QueueAdmissionUseCase decides, right after a conversion is created, whether
// it carries enough attribution to be worth an upload attempt.
type QueueAdmissionUseCase struct {
	QueueRepo entity.QueueRepositoryInterface
}

func NewQueueAdmissionUseCase(queueRepo entity.QueueRepositoryInterface) *QueueAdmissionUseCase {
	return &QueueAdmissionUseCase{QueueRepo: queueRepo}
}

// Execute never returns an error: a failed insert leaves the conversion fact
// intact and is reported as not queued. A reconciliation sweep can re-admit
// orphaned conversions later.
func (uc *QueueAdmissionUseCase) Execute(ctx context.Context, conversion *entity.Conversion, platform string) AdmissionResult {
	if !conversion.HasIdentifier() {
		// Deliberate business rule, not a failure: an upload with no gclid
		// and no hashed email cannot match any ad click.
		log.Printf("[QUEUE] Conversion %s has no attribution data, skipping", conversion.ID)
		return AdmissionResult{Queued: false, Reason: ReasonNoAttributionData}
	}

	item := entity.NewQueueItem(conversion.ID, platform)
	if err := uc.QueueRepo.Insert(ctx, item); err != nil {
		log.Printf("[QUEUE] CRITICAL: conversion %s persisted but queue insert failed: %v", conversion.ID, err)
		return AdmissionResult{Queued: false, Reason: ReasonQueueInsertFailed}
	}

	middleware.RecordConversionQueued(platform)
	return AdmissionResult{Queued: true}
}
