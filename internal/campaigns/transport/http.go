// Package transport provides HTTP handlers for the campaigns domain.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/etherian3/crowd-fundapp/internal/campaigns/domain"
	"github.com/etherian3/crowd-fundapp/internal/chain"
)

// SubmissionLister lists transaction audit records. It is satisfied by an
// adapter over the storage layer so the handler stays decoupled from it.
type SubmissionLister interface {
	ListSubmissions(ctx context.Context, account, kind, status string, limit int) ([]SubmissionSummary, error)
}

// Handler handles HTTP requests for campaigns and the wallet.
type Handler struct {
	svc         domain.Service
	submissions SubmissionLister
	now         func() time.Time
}

// NewHandler creates a new campaigns HTTP handler.
func NewHandler(svc domain.Service) *Handler {
	return &Handler{svc: svc, now: time.Now}
}

// RegisterReadRoutes registers read-only campaign routes (no auth
// required).
func (h *Handler) RegisterReadRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Get("/{id}", h.handleGet)
	r.Get("/{id}/donations", h.handleDonations)
}

// RegisterWriteRoutes registers write campaign routes (auth required).
func (h *Handler) RegisterWriteRoutes(r chi.Router) {
	r.Post("/", h.handleCreate)
	r.Post("/refresh", h.handleRefresh)
	r.Post("/{id}/donations", h.handleDonate)
}

// RegisterWalletRoutes registers wallet session routes (auth required).
func (h *Handler) RegisterWalletRoutes(r chi.Router) {
	r.Get("/status", h.handleStatus)
	r.Get("/balance", h.handleBalance)
	r.Post("/connect", h.handleConnect)
	r.Post("/disconnect", h.handleDisconnect)
}

// SetSubmissionLister wires the transaction audit log into the handler.
func (h *Handler) SetSubmissionLister(lister SubmissionLister) {
	h.submissions = lister
}

// RegisterAuditRoutes registers the transaction audit log routes.
func (h *Handler) RegisterAuditRoutes(r chi.Router) {
	r.Get("/", h.handleSubmissions)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter := domain.ListFilter(r.URL.Query().Get("filter"))

	campaigns, err := h.svc.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	now := h.now()
	data := make([]CampaignResponse, 0, len(campaigns))
	for _, c := range campaigns {
		data = append(data, FromDomain(c, now))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  data,
		"count": len(data),
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := campaignID(w, r)
	if !ok {
		return
	}

	campaign, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FromDomain(campaign, h.now()))
}

func (h *Handler) handleDonations(w http.ResponseWriter, r *http.Request) {
	id, ok := campaignID(w, r)
	if !ok {
		return
	}

	donations, err := h.svc.Donations(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	data := make([]DonationResponse, 0, len(donations))
	for _, d := range donations {
		data = append(data, DonationResponse{
			Donator:  d.Donator,
			Donation: d.Donation.String(),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  data,
		"count": len(data),
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body")
		return
	}

	receipt, err := h.svc.Create(r.Context(), req.ToDomain())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, ReceiptResponse(receipt))
}

func (h *Handler) handleDonate(w http.ResponseWriter, r *http.Request) {
	id, ok := campaignID(w, r)
	if !ok {
		return
	}

	var req DonateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body")
		return
	}

	receipt, err := h.svc.Donate(r.Context(), id, req.Amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, ReceiptResponse(receipt))
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Refresh(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"campaigns":    len(snap.All),
		"reconciledAt": snap.ReconciledAt,
	})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Status(r.Context()))
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.svc.Balance(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"balance": balance})
}

func (h *Handler) handleConnect(w http.ResponseWriter, r *http.Request) {
	account, err := h.svc.Connect(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"account": account})
}

func (h *Handler) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	h.svc.Disconnect(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSubmissions(w http.ResponseWriter, r *http.Request) {
	if h.submissions == nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Submission log not available")
		return
	}

	q := r.URL.Query()
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a positive integer")
			return
		}
		limit = n
	}

	records, err := h.submissions.ListSubmissions(r.Context(), q.Get("account"), q.Get("kind"), q.Get("status"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list submissions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  records,
		"count": len(records),
	})
}

func campaignID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 0 {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Campaign id must be a non-negative integer")
		return 0, false
	}
	return id, true
}

// writeServiceError maps domain and classified chain failures to HTTP
// responses. Input-tier failures come back as client errors; classified
// transaction failures keep their taxonomy kind as the error code so
// clients can branch on it.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrCampaignNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, domain.ErrCampaignEnded):
		writeError(w, http.StatusConflict, "CAMPAIGN_ENDED", err.Error())
	case errors.Is(err, domain.ErrBelowMinimum):
		writeError(w, http.StatusBadRequest, "BELOW_MINIMUM", err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
	case errors.Is(err, domain.ErrDonatorsUnavailable):
		writeError(w, http.StatusBadGateway, "DONATORS_UNAVAILABLE", err.Error())
	default:
		var classified *chain.Classified
		if errors.As(err, &classified) {
			writeError(w, classifiedStatus(classified.Kind), string(classified.Kind), classified.UserMessage)
			return
		}
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

func classifiedStatus(kind chain.Kind) int {
	switch kind {
	case chain.KindUserRejected:
		return http.StatusConflict
	case chain.KindWalletNotConnected:
		return http.StatusConflict
	case chain.KindInsufficientGas:
		return http.StatusPaymentRequired
	case chain.KindContractReverted:
		return http.StatusUnprocessableEntity
	case chain.KindNetworkError:
		return http.StatusBadGateway
	case chain.KindConfirmationTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}
