package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"carbonmint/internal/batch/models"
	"carbonmint/pkg/domain"
	dErrors "carbonmint/pkg/domain-errors"
	"carbonmint/pkg/platform/httputil"
	"carbonmint/pkg/requestcontext"
)

// Service defines the batch registry operations the handler needs.
type Service interface {
	MintBatch(ctx context.Context, req models.MintBatchRequest) (*models.Batch, error)
	Deactivate(ctx context.Context, id domain.BatchID, caller domain.Address) (*models.Batch, error)
	GetMetadata(ctx context.Context, id domain.BatchID) (*models.Batch, error)
	List(ctx context.Context, activeOnly bool) ([]*models.Batch, error)
	Document(ctx context.Context, id domain.BatchID) (models.Document, error)
	TokenURI(ctx context.Context, id domain.BatchID) (string, error)
	AuthorizeIssuer(ctx context.Context, caller, addr domain.Address) error
	RevokeIssuer(ctx context.Context, caller, addr domain.Address) error
	ListIssuers(ctx context.Context) ([]*models.Issuer, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the public query routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/batches", h.HandleList)
	r.Get("/batches/{batchID}", h.HandleGet)
	r.Get("/batches/{batchID}/metadata", h.HandleDocument)
	r.Get("/batches/{batchID}/token-uri", h.HandleTokenURI)
	r.Get("/issuers", h.HandleListIssuers)
}

// RegisterAuthenticated mounts routes that require a caller identity.
func (h *Handler) RegisterAuthenticated(r chi.Router) {
	r.Post("/batches", h.HandleMint)
	r.Post("/batches/{batchID}/deactivate", h.HandleDeactivate)
	r.Post("/issuers", h.HandleAuthorizeIssuer)
	r.Delete("/issuers/{address}", h.HandleRevokeIssuer)
}

// HandleMint handles POST /batches. The caller is the issuer.
func (h *Handler) HandleMint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	caller := requestcontext.Caller(ctx)
	if caller.IsZero() {
		httputil.WriteUnauthenticated(w, "authentication required")
		return
	}

	req, ok := httputil.DecodeAndPrepare[MintRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	batch, err := h.service.MintBatch(ctx, req.toModel(caller))
	if err != nil {
		h.logger.WarnContext(ctx, "batch mint rejected",
			"request_id", requestID,
			"caller", caller,
			"project_id", req.ProjectID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "batch minted",
		"request_id", requestID,
		"caller", caller,
		"batch_id", batch.ID,
		"ledger", batch.LedgerAddress,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromBatch(batch))
}

// HandleDeactivate handles POST /batches/{batchID}/deactivate.
func (h *Handler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := requestcontext.Caller(ctx)
	if caller.IsZero() {
		httputil.WriteUnauthenticated(w, "authentication required")
		return
	}
	id, err := domain.ParseBatchID(chi.URLParam(r, "batchID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	batch, err := h.service.Deactivate(ctx, id, caller)
	if err != nil {
		h.logger.WarnContext(ctx, "batch deactivation rejected",
			"request_id", requestcontext.RequestID(ctx),
			"caller", caller,
			"batch_id", id,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromBatch(batch))
}

// HandleGet handles GET /batches/{batchID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseBatchID(chi.URLParam(r, "batchID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	batch, err := h.service.GetMetadata(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromBatch(batch))
}

// HandleList handles GET /batches?active=true.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	activeOnly := false
	if raw := r.URL.Query().Get("active"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "active must be a boolean"))
			return
		}
		activeOnly = v
	}
	batches, err := h.service.List(r.Context(), activeOnly)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp := ListResponse{Batches: make([]*BatchResponse, 0, len(batches))}
	for _, b := range batches {
		resp.Batches = append(resp.Batches, FromBatch(b))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleDocument handles GET /batches/{batchID}/metadata.
func (h *Handler) HandleDocument(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseBatchID(chi.URLParam(r, "batchID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	doc, err := h.service.Document(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, doc)
}

// HandleTokenURI handles GET /batches/{batchID}/token-uri.
func (h *Handler) HandleTokenURI(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseBatchID(chi.URLParam(r, "batchID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	uri, err := h.service.TokenURI(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, TokenURIResponse{BatchID: uint64(id), TokenURI: uri})
}

// HandleListIssuers handles GET /issuers.
func (h *Handler) HandleListIssuers(w http.ResponseWriter, r *http.Request) {
	issuers, err := h.service.ListIssuers(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp := IssuersResponse{Issuers: make([]IssuerResponse, 0, len(issuers))}
	for _, i := range issuers {
		resp.Issuers = append(resp.Issuers, IssuerResponse{Address: i.Address.String(), AuthorizedAt: i.AuthorizedAt})
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleAuthorizeIssuer handles POST /issuers.
func (h *Handler) HandleAuthorizeIssuer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller := requestcontext.Caller(ctx)
	if caller.IsZero() {
		httputil.WriteUnauthenticated(w, "authentication required")
		return
	}
	req, ok := httputil.DecodeAndPrepare[IssuerRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := h.service.AuthorizeIssuer(ctx, caller, req.parsed); err != nil {
		h.logger.WarnContext(ctx, "issuer authorization rejected",
			"request_id", requestID,
			"caller", caller,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRevokeIssuer handles DELETE /issuers/{address}.
func (h *Handler) HandleRevokeIssuer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := requestcontext.Caller(ctx)
	if caller.IsZero() {
		httputil.WriteUnauthenticated(w, "authentication required")
		return
	}
	addr, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.RevokeIssuer(ctx, caller, addr); err != nil {
		h.logger.WarnContext(ctx, "issuer revocation rejected",
			"request_id", requestcontext.RequestID(ctx),
			"caller", caller,
			"issuer", addr,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
