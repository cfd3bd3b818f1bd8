package entity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	ConversionTypeQualified = "qualified"
	ConversionTypeClosed    = "closed"

	DefaultCurrency = "BRL"
)

// Conversion is an immutable fact: one business outcome for one lead,
// with the attribution fields denormalized at creation time so the queue
// processor never has to join back to leads/visitors.
type Conversion struct {
	ID             string    `json:"id"`
	LeadID         string    `json:"lead_id"`
	ConversionType string    `json:"conversion_type"` // qualified, closed
	Value          *float64  `json:"conversion_value,omitempty"`
	Currency       string    `json:"conversion_currency"`
	IdempotencyKey string    `json:"idempotency_key"`
	CRMDealID      string    `json:"crm_deal_id"`
	GCLID          string    `json:"gclid,omitempty"`
	EmailHash      string    `json:"email_hash,omitempty"`
	UTMSource      string    `json:"utm_source,omitempty"`
	UTMMedium      string    `json:"utm_medium,omitempty"`
	UTMCampaign    string    `json:"utm_campaign,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func IsValidConversionType(t string) bool {
	return t == ConversionTypeQualified || t == ConversionTypeClosed
}

// IdempotencyKey encodes the (CRM deal, conversion type) tuple. The column
// carries a unique constraint, so a redelivered webhook lands on the same row.
func IdempotencyKey(crmDealID, conversionType string) string {
	return fmt.Sprintf("%s:%s", crmDealID, conversionType)
}

func NewConversion(crmDealID, conversionType string, value *float64, currency string, attr LeadAttribution) (*Conversion, error) {
	if crmDealID == "" {
		return nil, errors.New("crm_deal_id is required")
	}
	if !IsValidConversionType(conversionType) {
		return nil, fmt.Errorf("invalid conversion type: %s", conversionType)
	}
	if currency == "" {
		currency = DefaultCurrency
	}

	return &Conversion{
		ID:             uuid.New().String(),
		LeadID:         attr.LeadID,
		ConversionType: conversionType,
		Value:          value,
		Currency:       currency,
		IdempotencyKey: IdempotencyKey(crmDealID, conversionType),
		CRMDealID:      crmDealID,
		GCLID:          attr.GCLID,
		EmailHash:      attr.EmailHash,
		UTMSource:      attr.UTMSource,
		UTMMedium:      attr.UTMMedium,
		UTMCampaign:    attr.UTMCampaign,
		CreatedAt:      time.Now(),
	}, nil
}

// HasIdentifier mirrors LeadAttribution.HasIdentifier on the denormalized copy.
func (c *Conversion) HasIdentifier() bool {
	return c.GCLID != "" || c.EmailHash != ""
}

type ConversionRepositoryInterface interface {
	// CreateIdempotent inserts the conversion keyed by its idempotency key.
	// On a key collision it returns the already persisted row and true.
	CreateIdempotent(ctx context.Context, conversion *Conversion) (*Conversion, bool, error)

	FindByID(ctx context.Context, id string) (*Conversion, error)
}
