package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"carbonmint/pkg/domain"
	"carbonmint/pkg/platform/httputil"
)

// Service resolves the batch <-> ledger mapping.
type Service interface {
	LedgerOf(ctx context.Context, batchID domain.BatchID) (domain.Address, error)
	BatchOf(ctx context.Context, ledger domain.Address) (domain.BatchID, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/batches/{batchID}/ledger", h.HandleLedgerOf)
	r.Get("/ledgers/{address}/batch", h.HandleBatchOf)
}

type MappingResponse struct {
	BatchID uint64 `json:"batch_id"`
	Ledger  string `json:"ledger"`
}

func (h *Handler) HandleLedgerOf(w http.ResponseWriter, r *http.Request) {
	batchID, err := domain.ParseBatchID(chi.URLParam(r, "batchID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	ledger, err := h.service.LedgerOf(r.Context(), batchID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, MappingResponse{BatchID: uint64(batchID), Ledger: ledger.String()})
}

func (h *Handler) HandleBatchOf(w http.ResponseWriter, r *http.Request) {
	ledger, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	batchID, err := h.service.BatchOf(r.Context(), ledger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, MappingResponse{BatchID: uint64(batchID), Ledger: ledger.String()})
}
