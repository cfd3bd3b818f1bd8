package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xavierca1/ligue-attribution/internal/entity"
)

type ConversionRepository struct {
	DB *sql.DB
}

func NewConversionRepository(db *sql.DB) *ConversionRepository {
	return &ConversionRepository{DB: db}
}

// CreateIdempotent is insert-then-handle-conflict: the unique constraint on
// idempotency_key is the only thing that makes concurrent redeliveries of the
// same CRM event safe. A check-then-insert here would race.
func (r *ConversionRepository) CreateIdempotent(ctx context.Context, c *entity.Conversion) (*entity.Conversion, bool, error) {
	query := `
		INSERT INTO conversions (
			id, lead_id, conversion_type, conversion_value, conversion_currency,
			idempotency_key, crm_deal_id, gclid, email_hash,
			utm_source, utm_medium, utm_campaign, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (idempotency_key) DO NOTHING
	`

	res, err := r.DB.ExecContext(
		ctx,
		query,
		c.ID,
		c.LeadID,
		c.ConversionType,
		c.Value,
		c.Currency,
		c.IdempotencyKey,
		c.CRMDealID,
		nullString(c.GCLID),
		nullString(c.EmailHash),
		nullString(c.UTMSource),
		nullString(c.UTMMedium),
		nullString(c.UTMCampaign),
		c.CreatedAt,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert conversion: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}
	if rows > 0 {
		return c, false, nil
	}

	// Conflict: someone already recorded this (deal, type). Re-read by the
	// same unique key and hand the existing row back.
	existing, err := r.findByIdempotencyKey(ctx, c.IdempotencyKey)
	if err != nil {
		return nil, false, fmt.Errorf("failed to re-read conversion after conflict: %w", err)
	}
	return existing, true, nil
}

func (r *ConversionRepository) FindByID(ctx context.Context, id string) (*entity.Conversion, error) {
	return r.findOne(ctx, "id = $1", id)
}

func (r *ConversionRepository) findByIdempotencyKey(ctx context.Context, key string) (*entity.Conversion, error) {
	return r.findOne(ctx, "idempotency_key = $1", key)
}

func (r *ConversionRepository) findOne(ctx context.Context, where string, arg any) (*entity.Conversion, error) {
	query := `
		SELECT
			id, lead_id, conversion_type, conversion_value, conversion_currency,
			idempotency_key, crm_deal_id,
			COALESCE(gclid, ''), COALESCE(email_hash, ''),
			COALESCE(utm_source, ''), COALESCE(utm_medium, ''), COALESCE(utm_campaign, ''),
			created_at
		FROM conversions
		WHERE ` + where

	var c entity.Conversion
	var value sql.NullFloat64

	err := r.DB.QueryRowContext(ctx, query, arg).Scan(
		&c.ID,
		&c.LeadID,
		&c.ConversionType,
		&value,
		&c.Currency,
		&c.IdempotencyKey,
		&c.CRMDealID,
		&c.GCLID,
		&c.EmailHash,
		&c.UTMSource,
		&c.UTMMedium,
		&c.UTMCampaign,
		&c.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if value.Valid {
		c.Value = &value.Float64
	}
	return &c, nil
}
