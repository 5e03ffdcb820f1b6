package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	commonerrors "funnel-orders/internal/common/errors"
	"funnel-orders/internal/common/logger"
	"funnel-orders/internal/funnel"
	"funnel-orders/internal/models"
)

const maxBodyBytes = 1 << 20

// Handler exposes the funnel over HTTP. Each route maps to one funnel step
// and responds with the order outcome or a structured error.
type Handler struct {
	service *funnel.Service
	logger  logger.Logger
}

func New(service *funnel.Service, log logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Handler{service: service, logger: log}
}

// Register mounts the funnel routes on the given mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/plan", h.handleSelectPlan)
	mux.HandleFunc("POST /api/sessions/{id}/checkout", h.handleCheckout)
	mux.HandleFunc("POST /api/sessions/{id}/addons", h.handleAddOns)
	mux.HandleFunc("POST /api/sessions/{id}/superboost", h.handleSuperBoost)
	mux.HandleFunc("GET /api/sessions/{id}/summary", h.handleSummary)
	mux.HandleFunc("GET /healthz", h.handleHealth)
}

func (h *Handler) handleSelectPlan(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readBody(w, r, planSchema)
	if !ok {
		return
	}

	var sel funnel.PlanSelection
	if err := json.Unmarshal(body, &sel); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error())
		return
	}

	session, err := h.service.SelectPlan(r.Context(), sel)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, session)
}

func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readBody(w, r, checkoutSchema)
	if !ok {
		return
	}

	var input funnel.CheckoutInput
	if err := json.Unmarshal(body, &input); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error())
		return
	}

	outcome, err := h.service.Checkout(r.Context(), r.PathValue("id"), input)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeOutcome(w, outcome)
}

func (h *Handler) handleAddOns(w http.ResponseWriter, r *http.Request) {
	h.handleUpsell(w, r, h.service.AddOns)
}

func (h *Handler) handleSuperBoost(w http.ResponseWriter, r *http.Request) {
	h.handleUpsell(w, r, h.service.SuperBoost)
}

type upsellFunc func(ctx context.Context, sessionID string, input funnel.UpsellInput) (*models.OrderOutcome, error)

func (h *Handler) handleUpsell(w http.ResponseWriter, r *http.Request, submit upsellFunc) {
	body, ok := h.readBody(w, r, upsellSchema)
	if !ok {
		return
	}

	var input funnel.UpsellInput
	if err := json.Unmarshal(body, &input); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error())
		return
	}

	outcome, err := submit(r.Context(), r.PathValue("id"), input)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeOutcome(w, outcome)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.Summary(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, session)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readBody drains and schema-validates the request body. On failure it writes
// the error response itself and reports ok=false.
func (h *Handler) readBody(w http.ResponseWriter, r *http.Request, schema string) ([]byte, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_PAYLOAD", "failed to read request body")
		return nil, false
	}
	if violations := validateBody(schema, body); violations != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":   "VALIDATION_FAILED",
			"details": violations,
		})
		return nil, false
	}
	return body, true
}

// writeOutcome renders a declined or failed order as 402 so callers can
// distinguish payment refusal from transport errors.
func (h *Handler) writeOutcome(w http.ResponseWriter, outcome *models.OrderOutcome) {
	status := http.StatusOK
	if !outcome.Succeeded {
		status = http.StatusPaymentRequired
	}
	h.writeJSON(w, status, outcome)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var stdErr *commonerrors.StandardError
	if errors.As(err, &stdErr) {
		h.logger.Warn("Request failed", map[string]interface{}{
			"path": r.URL.Path,
			"code": string(stdErr.Code),
		})
		h.writeJSON(w, statusForCode(stdErr.Code), map[string]interface{}{
			"error":   string(stdErr.Code),
			"message": stdErr.Message,
		})
		return
	}

	h.logger.WithError(err).Error("Unhandled request error", map[string]interface{}{
		"path": r.URL.Path,
	})
	h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}

func statusForCode(code commonerrors.ErrorCode) int {
	switch code {
	case commonerrors.ErrCodeSessionNotFound:
		return http.StatusNotFound
	case commonerrors.ErrCodeStepNotAllowed:
		return http.StatusConflict
	case commonerrors.ErrCodeIntentInvalid:
		return http.StatusBadRequest
	case commonerrors.ErrCodeDuplicateInFlight:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.WithError(err).Error("Failed to encode response", nil)
	}
}
