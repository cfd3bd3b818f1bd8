package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/xavierca1/ligue-attribution/internal/usecase"
)

type ProcessQueueInterface interface {
	Execute(ctx context.Context) (*usecase.QueueRunSummary, error)
}

// QueueHandler is the scheduled trigger: an internal scheduler POSTs here
// every 15 minutes and gets the run summary back. Only a failure to fetch
// the batch itself surfaces as a 500; per-item failures are in the counts.
type QueueHandler struct {
	UseCase ProcessQueueInterface
	Secret  string
}

func NewQueueHandler(uc ProcessQueueInterface, secret string) *QueueHandler {
	return &QueueHandler{UseCase: uc, Secret: secret}
}

func (h *QueueHandler) HandleProcess(w http.ResponseWriter, r *http.Request) {
	if !VerifyBearer(r.Header.Get("Authorization"), h.Secret) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	summary, err := h.UseCase.Execute(r.Context())
	if err != nil {
		log.Printf("[QUEUE] Run failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, summary)
}
