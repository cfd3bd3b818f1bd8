package entity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Lead conversion status reported back from the CRM.
const (
	LeadStatusNone      = "NONE"
	LeadStatusQualified = "QUALIFIED"
	LeadStatusClosed    = "CLOSED"
)

type Lead struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	EmailHash   string    `json:"email_hash"`
	VisitorID   string    `json:"visitor_id,omitempty"`
	GCLID       string    `json:"gclid,omitempty"`
	UTMSource   string    `json:"utm_source,omitempty"`
	UTMMedium   string    `json:"utm_medium,omitempty"`
	UTMCampaign string    `json:"utm_campaign,omitempty"`
	Status      string    `json:"conversion_status"` // NONE, QUALIFIED, CLOSED
	CreatedAt   time.Time `json:"created_at"`
}

// LeadAttribution is the slice of a Lead the pipeline actually needs:
// the join key plus whatever ad identifiers the capture flow stored.
type LeadAttribution struct {
	LeadID      string
	GCLID       string
	EmailHash   string
	UTMSource   string
	UTMMedium   string
	UTMCampaign string
}

// HasIdentifier reports whether at least one ad identifier is present.
// Without a gclid or a hashed email the platform cannot match anything.
func (a LeadAttribution) HasIdentifier() bool {
	return a.GCLID != "" || a.EmailHash != ""
}

// NormalizeEmail applies the same normalization used at capture time,
// so the hash is a stable join key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HashEmail returns the SHA-256 hex digest of the normalized email.
// The raw email never leaves this service; only the hash is uploaded.
func HashEmail(email string) string {
	sum := sha256.Sum256([]byte(NormalizeEmail(email)))
	return hex.EncodeToString(sum[:])
}

type LeadRepositoryInterface interface {
	// FindLatestByEmailHash returns the freshest lead for the hash,
	// with the visitor's gclid already resolved.
	FindLatestByEmailHash(ctx context.Context, emailHash string) (*LeadAttribution, error)

	UpdateConversionStatus(ctx context.Context, leadID, status string) error
}
