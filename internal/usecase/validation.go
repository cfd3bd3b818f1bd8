package usecase

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/xavierca1/ligue-attribution/internal/entity"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func ValidateWebhookEvent(event WebhookEvent) []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(event.CRMDealID) == "" {
		errors = append(errors, ValidationError{"crm_deal_id", "is required"})
	}

	if strings.TrimSpace(event.Email) == "" {
		errors = append(errors, ValidationError{"email", "is required"})
	} else if _, err := mail.ParseAddress(strings.TrimSpace(event.Email)); err != nil {
		errors = append(errors, ValidationError{"email", "is invalid"})
	}

	if event.ConversionType == "" {
		errors = append(errors, ValidationError{"conversion_type", "is required"})
	} else if !entity.IsValidConversionType(event.ConversionType) {
		errors = append(errors, ValidationError{"conversion_type", "must be qualified or closed"})
	}

	if event.ConversionValue != nil && *event.ConversionValue < 0 {
		errors = append(errors, ValidationError{"conversion_value", "must not be negative"})
	}

	return errors
}
