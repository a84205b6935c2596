package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"carbonmint/internal/ledger/models"
	"carbonmint/pkg/domain"
	"carbonmint/pkg/platform/httputil"
	"carbonmint/pkg/requestcontext"
)

// Service defines the ledger operations the handler needs.
type Service interface {
	Get(ctx context.Context, addr domain.Address) (*models.ProjectLedger, error)
	Mint(ctx context.Context, req models.MintRequest) (*models.ProjectLedger, error)
	Retire(ctx context.Context, req models.RetireRequest) (*models.RetirementRecord, error)
	BalanceOf(ctx context.Context, addr, holder domain.Address) (uint64, error)
	GetRetirementRecord(ctx context.Context, addr domain.Address, id domain.RetirementID) (*models.RetirementRecord, error)
	GetUserRetirements(ctx context.Context, addr, holder domain.Address) ([]domain.RetirementID, error)
	Certificate(ctx context.Context, addr domain.Address, id domain.RetirementID) (string, []byte, error)
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
	r.Get("/ledgers/{address}", h.HandleGet)
	r.Get("/ledgers/{address}/balances/{holder}", h.HandleBalance)
	r.Get("/ledgers/{address}/holders/{holder}/retirements", h.HandleUserRetirements)
	r.Get("/ledgers/{address}/retirements/{retirementID}", h.HandleRetirement)
	r.Get("/ledgers/{address}/retirements/{retirementID}/certificate", h.HandleCertificate)
}

// RegisterAuthenticated mounts routes that require a caller identity.
func (h *Handler) RegisterAuthenticated(r chi.Router) {
	r.Post("/ledgers/{address}/mint", h.HandleMint)
	r.Post("/ledgers/{address}/retire", h.HandleRetire)
}

// HandleMint handles POST /ledgers/{address}/mint. The caller is the issuer.
func (h *Handler) HandleMint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

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
	req, ok := httputil.DecodeAndPrepare[MintRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	ledger, err := h.service.Mint(ctx, models.MintRequest{Ledger: addr, To: req.to, Amount: req.Amount, Issuer: caller})
	if err != nil {
		h.logger.WarnContext(ctx, "ledger mint rejected",
			"request_id", requestID,
			"caller", caller,
			"ledger", addr,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "ledger units minted",
		"request_id", requestID,
		"ledger", addr,
		"amount", req.Amount,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromLedger(ledger))
}

// HandleRetire handles POST /ledgers/{address}/retire. The caller is the holder.
func (h *Handler) HandleRetire(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

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
	req, ok := httputil.DecodeAndPrepare[RetireRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	record, err := h.service.Retire(ctx, models.RetireRequest{Ledger: addr, Amount: req.Amount, Reason: req.Reason, Holder: caller})
	if err != nil {
		h.logger.WarnContext(ctx, "retirement rejected",
			"request_id", requestID,
			"caller", caller,
			"ledger", addr,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "credits retired",
		"request_id", requestID,
		"ledger", addr,
		"retirement_id", record.ID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromRecord(record))
}

// HandleGet handles GET /ledgers/{address}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	addr, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	ledger, err := h.service.Get(r.Context(), addr)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromLedger(ledger))
}

// HandleBalance handles GET /ledgers/{address}/balances/{holder}.
func (h *Handler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	addr, holder, ok := parseLedgerAndHolder(w, r)
	if !ok {
		return
	}
	balance, err := h.service.BalanceOf(r.Context(), addr, holder)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, BalanceResponse{Ledger: addr.String(), Holder: holder.String(), Balance: balance})
}

// HandleUserRetirements handles GET /ledgers/{address}/holders/{holder}/retirements.
func (h *Handler) HandleUserRetirements(w http.ResponseWriter, r *http.Request) {
	addr, holder, ok := parseLedgerAndHolder(w, r)
	if !ok {
		return
	}
	ids, err := h.service.GetUserRetirements(r.Context(), addr, holder)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp := RetirementIDsResponse{Holder: holder.String(), RetirementIDs: make([]uint64, 0, len(ids))}
	for _, id := range ids {
		resp.RetirementIDs = append(resp.RetirementIDs, uint64(id))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleRetirement handles GET /ledgers/{address}/retirements/{retirementID}.
func (h *Handler) HandleRetirement(w http.ResponseWriter, r *http.Request) {
	addr, id, ok := parseLedgerAndRetirement(w, r)
	if !ok {
		return
	}
	record, err := h.service.GetRetirementRecord(r.Context(), addr, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRecord(record))
}

// HandleCertificate handles GET /ledgers/{address}/retirements/{retirementID}/certificate.
func (h *Handler) HandleCertificate(w http.ResponseWriter, r *http.Request) {
	addr, id, ok := parseLedgerAndRetirement(w, r)
	if !ok {
		return
	}
	number, pdf, err := h.service.Certificate(r.Context(), addr, id)
	if err != nil {
		h.logger.WarnContext(r.Context(), "certificate unavailable",
			"request_id", requestcontext.RequestID(r.Context()),
			"ledger", addr,
			"retirement_id", id,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="`+number+`.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func parseLedgerAndHolder(w http.ResponseWriter, r *http.Request) (domain.Address, domain.Address, bool) {
	addr, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return domain.Address{}, domain.Address{}, false
	}
	holder, err := domain.ParseAddress(chi.URLParam(r, "holder"))
	if err != nil {
		httputil.WriteError(w, err)
		return domain.Address{}, domain.Address{}, false
	}
	return addr, holder, true
}

func parseLedgerAndRetirement(w http.ResponseWriter, r *http.Request) (domain.Address, domain.RetirementID, bool) {
	addr, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return domain.Address{}, 0, false
	}
	id, err := domain.ParseRetirementID(chi.URLParam(r, "retirementID"))
	if err != nil {
		httputil.WriteError(w, err)
		return domain.Address{}, 0, false
	}
	return addr, id, true
}
