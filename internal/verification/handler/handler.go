package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"carbonmint/internal/verification/models"
	"carbonmint/pkg/domain"
	"carbonmint/pkg/platform/httputil"
	"carbonmint/pkg/requestcontext"
)

// Service defines the gateway operations exposed over HTTP.
type Service interface {
	RequestVerification(ctx context.Context, caller domain.Address, creditID domain.CreditID) (*models.VerificationRequest, error)
	Fulfill(ctx context.Context, caller domain.Address, requestID domain.RequestID, f models.Fulfillment) (*models.VerificationRequest, error)
	LatestFor(ctx context.Context, creditID domain.CreditID) (*models.VerificationRequest, error)
	Get(ctx context.Context, id domain.RequestID) (*models.VerificationRequest, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/credits/{creditID}/verification", h.HandleGetForCredit)
	r.Get("/verifications/{requestID}", h.HandleGet)
}

func (h *Handler) RegisterAuthenticated(r chi.Router) {
	r.Post("/credits/{creditID}/verification", h.HandleRequest)
	r.Post("/verifications/{requestID}/fulfill", h.HandleFulfill)
}

// HandleRequest handles POST /credits/{creditID}/verification.
func (h *Handler) HandleRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller := requestcontext.Caller(ctx)
	if caller.IsZero() {
		httputil.WriteUnauthenticated(w, "authentication required")
		return
	}

	creditID, err := domain.ParseCreditID(chi.URLParam(r, "creditID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, err := h.service.RequestVerification(ctx, caller, creditID)
	if err != nil {
		h.logger.WarnContext(ctx, "verification request rejected",
			"request_id", requestID,
			"credit_id", creditID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, FromRequest(req))
}

// HandleFulfill handles POST /verifications/{requestID}/fulfill.
func (h *Handler) HandleFulfill(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller := requestcontext.Caller(ctx)
	if caller.IsZero() {
		httputil.WriteUnauthenticated(w, "authentication required")
		return
	}

	verificationID, err := domain.ParseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	body, ok := httputil.DecodeAndPrepare[FulfillRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	req, err := h.service.Fulfill(ctx, caller, verificationID, body.toModel())
	if err != nil {
		h.logger.WarnContext(ctx, "fulfillment rejected",
			"request_id", requestID,
			"verification_request_id", verificationID,
			"caller", caller,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRequest(req))
}

// HandleGetForCredit handles GET /credits/{creditID}/verification.
func (h *Handler) HandleGetForCredit(w http.ResponseWriter, r *http.Request) {
	creditID, err := domain.ParseCreditID(chi.URLParam(r, "creditID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := h.service.LatestFor(r.Context(), creditID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRequest(req))
}

// HandleGet handles GET /verifications/{requestID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRequest(req))
}
