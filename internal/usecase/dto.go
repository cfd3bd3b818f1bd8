package usecase

// WebhookEvent is the CRM notification body.
type WebhookEvent struct {
	CRMDealID          string   `json:"crm_deal_id"`
	Email              string   `json:"email"`
	ConversionType     string   `json:"conversion_type"` // qualified, closed
	ConversionValue    *float64 `json:"conversion_value,omitempty"`
	ConversionCurrency string   `json:"conversion_currency,omitempty"`
}

// WebhookResult is the response body. Business outcomes (invalid payload,
// lead not found, duplicate) all ride back on HTTP 200 so the CRM does not
// retry-storm on conditions a retry cannot fix.
type WebhookResult struct {
	Success      bool   `json:"success"`
	Reason       string `json:"reason,omitempty"`
	ConversionID string `json:"conversion_id,omitempty"`
	Queued       bool   `json:"queued"`
	Duplicate    bool   `json:"duplicate,omitempty"`
}

// Machine-readable reasons for operational triage.
const (
	ReasonInvalidPayload    = "invalid_payload"
	ReasonLeadNotFound      = "lead_not_found"
	ReasonDuplicateEvent    = "duplicate_event"
	ReasonNoAttributionData = "no_attribution_data"
	ReasonQueueInsertFailed = "queue_insert_failed"
)

// AdmissionResult reports whether a conversion was admitted to the upload queue.
type AdmissionResult struct {
	Queued bool
	Reason string
}

// QueueRunSummary is one scheduled processor run, for the trigger response
// and the logs.
type QueueRunSummary struct {
	Processed  int `json:"processed"`
	Uploaded   int `json:"uploaded"`
	Failed     int `json:"failed"`
	DeadLetter int `json:"dead_letter"`
}
