package usecase

import (
	"context"
	"fmt"
	"log"

	"github.com/xavierca1/ligue-attribution/internal/entity"
)

// ProcessWebhookUseCase turns one CRM deal notification into a durable,
// deduplicated conversion record: match the lead by email hash, create the
// conversion idempotently, update the lead status and admit the conversion
// to the upload queue. Everything after the conversion insert is advisory
// and must never fail the webhook.
type ProcessWebhookUseCase struct {
	LeadRepo       entity.LeadRepositoryInterface
	ConversionRepo entity.ConversionRepositoryInterface
	Admission      *QueueAdmissionUseCase
}

func NewProcessWebhookUseCase(
	leadRepo entity.LeadRepositoryInterface,
	conversionRepo entity.ConversionRepositoryInterface,
	admission *QueueAdmissionUseCase,
) *ProcessWebhookUseCase {
	return &ProcessWebhookUseCase{
		LeadRepo:       leadRepo,
		ConversionRepo: conversionRepo,
		Admission:      admission,
	}
}

// Execute returns a business result for every expected outcome; the error
// return is reserved for infrastructure failures (datastore unreachable),
// which the handler maps to a 500.
func (uc *ProcessWebhookUseCase) Execute(ctx context.Context, event WebhookEvent) (*WebhookResult, error) {
	if errs := ValidateWebhookEvent(event); len(errs) > 0 {
		log.Printf("[WEBHOOK] Invalid payload: %v", errs)
		return &WebhookResult{Success: false, Reason: ReasonInvalidPayload}, nil
	}

	emailHash := entity.HashEmail(event.Email)

	attribution, err := uc.LeadRepo.FindLatestByEmailHash(ctx, emailHash)
	if err != nil {
		return nil, &TechnicalError{Code: "lead_lookup_failed", Message: fmt.Sprintf("lead lookup failed: %v", err)}
	}
	if attribution == nil {
		log.Printf("[WEBHOOK] No lead for deal %s (hash %.12s...)", event.CRMDealID, emailHash)
		return &WebhookResult{Success: false, Reason: ReasonLeadNotFound}, nil
	}

	conversion, err := entity.NewConversion(
		event.CRMDealID,
		event.ConversionType,
		event.ConversionValue,
		event.ConversionCurrency,
		*attribution,
	)
	if err != nil {
		return &WebhookResult{Success: false, Reason: ReasonInvalidPayload}, nil
	}

	persisted, duplicate, err := uc.ConversionRepo.CreateIdempotent(ctx, conversion)
	if err != nil {
		return nil, &TechnicalError{Code: "conversion_insert_failed", Message: fmt.Sprintf("conversion insert failed: %v", err)}
	}

	if duplicate {
		log.Printf("[WEBHOOK] Duplicate delivery for deal %s (%s), conversion %s", event.CRMDealID, event.ConversionType, persisted.ID)
		return &WebhookResult{
			Success:      true,
			Reason:       ReasonDuplicateEvent,
			ConversionID: persisted.ID,
			Queued:       false,
			Duplicate:    true,
		}, nil
	}

	// Advisory from here on: the conversion fact is already durable.
	uc.updateLeadStatus(ctx, attribution.LeadID, event.ConversionType)

	admission := uc.Admission.Execute(ctx, persisted, entity.PlatformGoogleAds)

	result := &WebhookResult{
		Success:      true,
		ConversionID: persisted.ID,
		Queued:       admission.Queued,
	}
	if !admission.Queued {
		result.Reason = admission.Reason
	}
	return result, nil
}

// updateLeadStatus denormalizes the CRM outcome onto the lead row. Failure
// is logged and swallowed; the status is advisory.
func (uc *ProcessWebhookUseCase) updateLeadStatus(ctx context.Context, leadID, conversionType string) {
	status := entity.LeadStatusQualified
	if conversionType == entity.ConversionTypeClosed {
		status = entity.LeadStatusClosed
	}

	if err := uc.LeadRepo.UpdateConversionStatus(ctx, leadID, status); err != nil {
		log.Printf("[WEBHOOK] Failed to update lead %s status to %s: %v", leadID, status, err)
	}
}
