package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"carbonmint/internal/credit/models"
	"carbonmint/pkg/domain"
	dErrors "carbonmint/pkg/domain-errors"
	"carbonmint/pkg/platform/httputil"
	"carbonmint/pkg/requestcontext"
)

// Service defines the credit operations the handler needs.
type Service interface {
	Register(ctx context.Context, caller domain.Address, req models.RegisterRequest) (*models.CarbonCredit, error)
	Get(ctx context.Context, id domain.CreditID) (*models.CarbonCredit, error)
	ListByOwner(ctx context.Context, owner domain.Address) ([]*models.CarbonCredit, error)
}

// Handler wires credit endpoints to the credit service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the public query routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/credits", h.HandleList)
	r.Get("/credits/{creditID}", h.HandleGet)
}

// RegisterAuthenticated mounts routes that require a caller identity.
func (h *Handler) RegisterAuthenticated(r chi.Router) {
	r.Post("/credits", h.HandleRegister)
}

// HandleRegister handles POST /credits.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	caller := requestcontext.Caller(ctx)
	if caller.IsZero() {
		httputil.WriteUnauthenticated(w, "authentication required")
		return
	}

	req, ok := httputil.DecodeAndPrepare[RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	credit, err := h.service.Register(ctx, caller, req.toModel())
	if err != nil {
		h.logger.WarnContext(ctx, "credit registration rejected",
			"request_id", requestID,
			"caller", caller,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "credit registered",
		"request_id", requestID,
		"caller", caller,
		"credit_id", credit.ID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromCredit(credit))
}

// HandleGet handles GET /credits/{creditID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseCreditID(chi.URLParam(r, "creditID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	credit, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromCredit(credit))
}

// HandleList handles GET /credits?owner=0x...
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("owner")
	if raw == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "owner query parameter is required"))
		return
	}
	owner, err := domain.ParseAddress(raw)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	credits, err := h.service.ListByOwner(r.Context(), owner)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp := ListResponse{Credits: make([]*CreditResponse, 0, len(credits))}
	for _, c := range credits {
		resp.Credits = append(resp.Credits, FromCredit(c))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
