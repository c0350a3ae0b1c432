package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"sectland-backend/internal/domain"
	"sectland-backend/internal/jobs"
	"sectland-backend/internal/logger"
	"sectland-backend/internal/service"
)

// LandHandler exposes the territory operations over HTTP
type LandHandler struct {
	land  service.LandService
	debts DebtReporter
	stats *jobs.Stats
}

// DebtReporter is the operator-facing view of outstanding debts
type DebtReporter interface {
	Report() []domain.DebtRecord
}

func NewLandHandler(land service.LandService, debts DebtReporter, stats *jobs.Stats) *LandHandler {
	return &LandHandler{land: land, debts: debts, stats: stats}
}

type claimRequest struct {
	Units  int32        `json:"units"`
	Center domain.Point `json:"center"`
}

type bindRequest struct {
	ClaimID string       `json:"claim_id"`
	Center  domain.Point `json:"center"`
}

type resizeRequest struct {
	Units int32 `json:"units"`
}

type deleteRequest struct {
	Confirmed bool `json:"confirmed"`
}

type transferRequest struct {
	NewOwnerID int32 `json:"new_owner_id"`
}

type payRequest struct {
	Amount int64 `json:"amount"`
}

type amountResponse struct {
	Amount int64 `json:"amount"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *LandHandler) Claim(w http.ResponseWriter, r *http.Request) {
	sectID, actorID, ok := h.requestIdentity(w, r)
	if !ok {
		return
	}
	var req claimRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.land.Claim(r.Context(), sectID, actorID, req.Center, req.Units)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *LandHandler) Bind(w http.ResponseWriter, r *http.Request) {
	sectID, actorID, ok := h.requestIdentity(w, r)
	if !ok {
		return
	}
	var req bindRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ClaimID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "claim_id is required"})
		return
	}

	result, err := h.land.Bind(r.Context(), sectID, actorID, req.ClaimID, req.Center)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *LandHandler) Expand(w http.ResponseWriter, r *http.Request) {
	sectID, actorID, ok := h.requestIdentity(w, r)
	if !ok {
		return
	}
	var req resizeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	cost, err := h.land.Expand(r.Context(), sectID, actorID, req.Units)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, amountResponse{Amount: cost})
}

func (h *LandHandler) Shrink(w http.ResponseWriter, r *http.Request) {
	sectID, actorID, ok := h.requestIdentity(w, r)
	if !ok {
		return
	}
	var req resizeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	refund, err := h.land.Shrink(r.Context(), sectID, actorID, req.Units)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, amountResponse{Amount: refund})
}

func (h *LandHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sectID, actorID, ok := h.requestIdentity(w, r)
	if !ok {
		return
	}
	var req deleteRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.land.Delete(r.Context(), sectID, actorID, req.Confirmed); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *LandHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	sectID, actorID, ok := h.requestIdentity(w, r)
	if !ok {
		return
	}
	var req transferRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.land.Transfer(r.Context(), sectID, actorID, req.NewOwnerID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *LandHandler) Pay(w http.ResponseWriter, r *http.Request) {
	sectID, actorID, ok := h.requestIdentity(w, r)
	if !ok {
		return
	}
	var req payRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.land.Pay(r.Context(), sectID, actorID, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *LandHandler) Status(w http.ResponseWriter, r *http.Request) {
	sectID, ok := sectIDFromPath(w, r)
	if !ok {
		return
	}

	report, err := h.land.StatusReport(r.Context(), sectID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// DebtReport lists every outstanding debt record (operator endpoint)
func (h *LandHandler) DebtReport(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.debts.Report())
}

// SchedulerStats reports the accumulated maintenance counters
func (h *LandHandler) SchedulerStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.stats.Snapshot())
}

// requestIdentity resolves the sect id from the path and the actor id from
// the token claims
func (h *LandHandler) requestIdentity(w http.ResponseWriter, r *http.Request) (sectID, actorID int32, ok bool) {
	sectID, ok = sectIDFromPath(w, r)
	if !ok {
		return 0, 0, false
	}
	claims, found := ClaimsFromContext(r.Context())
	if !found {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing credentials"})
		return 0, 0, false
	}
	return sectID, claims.UserID, true
}

func sectIDFromPath(w http.ResponseWriter, r *http.Request) (int32, bool) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid sect id"})
		return 0, false
	}
	return int32(id), true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

// writeError maps the error taxonomy onto HTTP status codes
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrInsufficientFunds):
		status = http.StatusPaymentRequired
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrFrozen):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrExternalStore):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		logger.Error("Request failed", "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
