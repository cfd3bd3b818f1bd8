package googleads

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/xavierca1/ligue-attribution/internal/entity"
)

const defaultBaseURL = "https://googleads.googleapis.com/v17"

type TokenProviderInterface interface {
	AccessToken(ctx context.Context) (string, error)
}

// Client uploads offline click conversions. It is stateless apart from the
// injected token provider, so the same instance serves the API process and
// any future scheduled-job binary.
type Client struct {
	baseURL         string
	developerToken  string
	customerID      string
	loginCustomerID string

	// conversion type -> platform conversion action resource name
	conversionActions map[string]string

	tokens TokenProviderInterface
	http   *http.Client
}

func NewClient(developerToken, customerID, loginCustomerID string, conversionActions map[string]string, tokens TokenProviderInterface) *Client {
	return &Client{
		baseURL:           defaultBaseURL,
		developerToken:    developerToken,
		customerID:        customerID,
		loginCustomerID:   loginCustomerID,
		conversionActions: conversionActions,
		tokens:            tokens,
		http:              &http.Client{Timeout: 30 * time.Second},
	}
}

// ResolveConversionAction maps a conversion type to the configured platform
// resource name. Missing configuration is a hard error for the attempt.
func (c *Client) ResolveConversionAction(conversionType string) (string, error) {
	action, ok := c.conversionActions[conversionType]
	if !ok || action == "" {
		return "", fmt.Errorf("no conversion action configured for type %q", conversionType)
	}
	return action, nil
}

// BuildPayload constructs the single click conversion for the request body:
// gclid when present, hashed-email identifier when present, consent always,
// value/currency only when a value exists.
func (c *Client) BuildPayload(conversion *entity.Conversion, conversionAction string) ClickConversion {
	payload := ClickConversion{
		GCLID:              conversion.GCLID,
		ConversionAction:   conversionAction,
		ConversionDateTime: conversion.CreatedAt.Format("2006-01-02 15:04:05-07:00"),
		Consent: Consent{
			AdUserData:        "GRANTED",
			AdPersonalization: "GRANTED",
		},
	}

	if conversion.EmailHash != "" {
		payload.UserIdentifiers = []UserIdentifier{{HashedEmail: conversion.EmailHash}}
	}

	if conversion.Value != nil {
		payload.ConversionValue = conversion.Value
		payload.CurrencyCode = conversion.Currency
	}

	return payload
}

// Upload performs exactly one upload call and classifies the outcome. It
// never panics or propagates transport errors; everything lands in the result.
func (c *Client) Upload(ctx context.Context, conversion *entity.Conversion) UploadResult {
	if !conversion.HasIdentifier() {
		// Admission should have filtered this, but the client does not
		// assume its caller enforced that.
		return UploadResult{Error: "conversion has neither gclid nor hashed email"}
	}

	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		if errors.Is(err, ErrMissingCredentials) {
			return UploadResult{Error: err.Error(), ConfigError: true}
		}
		return UploadResult{Error: err.Error()}
	}

	action, err := c.ResolveConversionAction(conversion.ConversionType)
	if err != nil {
		return UploadResult{Error: err.Error(), ConfigError: true}
	}

	reqBody := uploadRequest{
		Conversions:    []ClickConversion{c.BuildPayload(conversion, action)},
		PartialFailure: true,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return UploadResult{Error: fmt.Sprintf("failed to encode payload: %v", err)}
	}

	url := fmt.Sprintf("%s/customers/%s:uploadClickConversions", c.baseURL, c.customerID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return UploadResult{Error: err.Error()}
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	req.Header.Set("developer-token", c.developerToken)
	req.Header.Set("login-customer-id", c.loginCustomerID)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return UploadResult{Error: fmt.Sprintf("upload request failed: %v", err)}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return UploadResult{Error: fmt.Sprintf("upload failed: %d - %s", resp.StatusCode, string(respBody))}
	}

	var parsed uploadResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return UploadResult{Error: fmt.Sprintf("upload returned invalid JSON: %v", err)}
	}

	// 2xx with a partial failure means the transport succeeded but the
	// conversion itself was rejected (e.g. expired gclid).
	if parsed.PartialFailureError != nil && parsed.PartialFailureError.Message != "" {
		return UploadResult{PartialFailureError: parsed.PartialFailureError.Message}
	}

	return UploadResult{Success: true}
}
