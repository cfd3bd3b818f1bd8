package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/xavierca1/ligue-attribution/internal/entity"
)

type LeadRepository struct {
	DB *sql.DB
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{DB: db}
}

// FindLatestByEmailHash resolves the freshest lead for a hash together with
// the originating visitor's gclid. A person may have submitted multiple
// inquiries; the newest one carries the relevant attribution window.
func (r *LeadRepository) FindLatestByEmailHash(ctx context.Context, emailHash string) (*entity.LeadAttribution, error) {
	query := `
		SELECT
			l.id,
			COALESCE(v.gclid, ''),
			l.email_hash,
			COALESCE(l.utm_source, ''),
			COALESCE(l.utm_medium, ''),
			COALESCE(l.utm_campaign, '')
		FROM leads l
		LEFT JOIN visitors v ON v.id = l.visitor_id
		WHERE l.email_hash = $1
		ORDER BY l.created_at DESC
		LIMIT 1
	`

	var attr entity.LeadAttribution
	err := r.DB.QueryRowContext(ctx, query, emailHash).Scan(
		&attr.LeadID,
		&attr.GCLID,
		&attr.EmailHash,
		&attr.UTMSource,
		&attr.UTMMedium,
		&attr.UTMCampaign,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &attr, nil
}

func (r *LeadRepository) UpdateConversionStatus(ctx context.Context, leadID, status string) error {
	query := `UPDATE leads SET conversion_status = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.DB.ExecContext(ctx, query, status, leadID)
	return err
}
