package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/xavierca1/ligue-attribution/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-attribution/internal/usecase"
)

type ProcessWebhookInterface interface {
	Execute(ctx context.Context, event usecase.WebhookEvent) (*usecase.WebhookResult, error)
}

// WebhookHandler receives CRM deal notifications. Business outcomes always
// return 200 so the CRM never retry-storms on conditions a retry cannot fix;
// 401 is reserved for bad auth and 500 for our own misconfiguration.
type WebhookHandler struct {
	UseCase ProcessWebhookInterface
	Secret  string
}

func NewWebhookHandler(uc ProcessWebhookInterface, secret string) *WebhookHandler {
	return &WebhookHandler{UseCase: uc, Secret: secret}
}

func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if h.Secret == "" {
		log.Printf("[WEBHOOK] CRM_WEBHOOK_SECRET is not configured")
		writeJSON(w, http.StatusInternalServerError, usecase.WebhookResult{
			Success: false,
			Reason:  "server_not_configured",
		})
		return
	}

	if !VerifyBearer(r.Header.Get("Authorization"), h.Secret) {
		writeJSON(w, http.StatusUnauthorized, usecase.WebhookResult{
			Success: false,
			Reason:  "unauthorized",
		})
		return
	}

	var event usecase.WebhookEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		middleware.RecordWebhookOutcome(usecase.ReasonInvalidPayload)
		writeJSON(w, http.StatusOK, usecase.WebhookResult{
			Success: false,
			Reason:  usecase.ReasonInvalidPayload,
		})
		return
	}

	result, err := h.UseCase.Execute(r.Context(), event)
	if err != nil {
		log.Printf("[WEBHOOK] Infrastructure failure: %v", err)
		middleware.RecordWebhookOutcome("error")
		writeJSON(w, http.StatusInternalServerError, usecase.WebhookResult{
			Success: false,
			Reason:  "internal_error",
		})
		return
	}

	middleware.RecordWebhookOutcome(webhookOutcome(result))
	writeJSON(w, http.StatusOK, result)
}

func webhookOutcome(result *usecase.WebhookResult) string {
	switch {
	case result.Reason != "" && !result.Success:
		return result.Reason
	case result.Duplicate:
		return usecase.ReasonDuplicateEvent
	default:
		return "created"
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
