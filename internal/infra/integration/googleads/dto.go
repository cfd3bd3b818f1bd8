package googleads

// Request/response shapes for the uploadClickConversions REST endpoint.

type uploadRequest struct {
	Conversions    []ClickConversion `json:"conversions"`
	PartialFailure bool              `json:"partialFailure"`
}

type ClickConversion struct {
	GCLID              string           `json:"gclid,omitempty"`
	ConversionAction   string           `json:"conversionAction"`
	ConversionDateTime string           `json:"conversionDateTime"`
	ConversionValue    *float64         `json:"conversionValue,omitempty"`
	CurrencyCode       string           `json:"currencyCode,omitempty"`
	UserIdentifiers    []UserIdentifier `json:"userIdentifiers,omitempty"`
	Consent            Consent          `json:"consent"`
}

// UserIdentifier carries the hashed email for enhanced conversions, so the
// platform can match even without a gclid.
type UserIdentifier struct {
	HashedEmail string `json:"hashedEmail"`
}

type Consent struct {
	AdUserData        string `json:"adUserData"`
	AdPersonalization string `json:"adPersonalization"`
}

type uploadResponse struct {
	PartialFailureError *googleRPCStatus `json:"partialFailureError,omitempty"`
}

type googleRPCStatus struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// UploadResult classifies one upload attempt. Error carries transport/HTTP
// failures; PartialFailureError carries the platform's per-item rejection on
// an otherwise successful HTTP call. ConfigError marks failures no retry can
// fix (missing credentials or action mapping).
type UploadResult struct {
	Success             bool
	Error               string
	PartialFailureError string
	ConfigError         bool
}

// ErrorMessage returns whichever failure detail is populated.
func (r UploadResult) ErrorMessage() string {
	if r.PartialFailureError != "" {
		return r.PartialFailureError
	}
	return r.Error
}
