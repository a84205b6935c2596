package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"carbonmint/internal/verification/handler/mocks"
	"carbonmint/internal/verification/models"
	"carbonmint/pkg/domain"
	dErrors "carbonmint/pkg/domain-errors"
	"carbonmint/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service
type VerificationHandlerSuite struct {
	suite.Suite
	owner    domain.Address
	verifier domain.Address
	reqID    domain.RequestID
	now      time.Time
}

func TestVerificationHandlerSuite(t *testing.T) {
	suite.Run(t, new(VerificationHandlerSuite))
}

func (s *VerificationHandlerSuite) SetupSuite() {
	s.owner = domain.MustAddress("0x00000000000000000000000000000000000000a1")
	s.verifier = domain.MustAddress("0x00000000000000000000000000000000000a0002")
	s.reqID = domain.DeriveRequestID(domain.MustAddress("0x00000000000000000000000000000000000a0003"), 1, 1)
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func newTestRouter(t *testing.T) (chi.Router, *mocks.MockService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	mockService := mocks.NewMockService(ctrl)
	h := New(mockService, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	h.Register(r)
	h.RegisterAuthenticated(r)
	return r, mockService
}

func (s *VerificationHandlerSuite) pending() *models.VerificationRequest {
	return &models.VerificationRequest{
		RequestID:   s.reqID,
		CreditID:    1,
		Requester:   s.owner,
		Status:      models.StatusPending,
		RequestedAt: s.now,
	}
}

func (s *VerificationHandlerSuite) TestHandleRequest() {
	s.Run("accepted", func() {
		router, svc := newTestRouter(s.T())
		svc.EXPECT().RequestVerification(gomock.Any(), s.owner, domain.CreditID(1)).Return(s.pending(), nil)

		req := httptest.NewRequest(http.MethodPost, "/credits/1/verification", nil)
		req = testutil.WithCaller(req, s.owner)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), http.StatusAccepted, w.Code)
		var resp VerificationResponse
		require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(s.T(), s.reqID.String(), resp.RequestID)
		assert.Equal(s.T(), "pending", resp.Status)
	})

	s.Run("duplicate is 409", func() {
		router, svc := newTestRouter(s.T())
		svc.EXPECT().RequestVerification(gomock.Any(), s.owner, domain.CreditID(1)).
			Return(nil, dErrors.New(dErrors.CodeDuplicateRequest, "pending"))

		req := httptest.NewRequest(http.MethodPost, "/credits/1/verification", nil)
		req = testutil.WithCaller(req, s.owner)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(s.T(), http.StatusConflict, w.Code)
	})
}

func (s *VerificationHandlerSuite) TestHandleFulfill() {
	s.Run("success body maps to fulfillment", func() {
		router, svc := newTestRouter(s.T())
		done := s.pending()
		done.Status = models.StatusVerified
		done.Fulfilled = true
		svc.EXPECT().Fulfill(gomock.Any(), s.verifier, s.reqID, models.Fulfillment{Response: "GS-15234|10000|2025-01-15"}).
			Return(done, nil)

		body, _ := json.Marshal(FulfillRequest{Response: "GS-15234|10000|2025-01-15"})
		req := httptest.NewRequest(http.MethodPost, "/verifications/"+s.reqID.String()+"/fulfill", bytes.NewReader(body))
		req = testutil.WithCaller(req, s.verifier)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), http.StatusOK, w.Code)
		var resp VerificationResponse
		require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(s.T(), "verified", resp.Status)
	})

	s.Run("impostor is 403", func() {
		router, svc := newTestRouter(s.T())
		svc.EXPECT().Fulfill(gomock.Any(), s.owner, s.reqID, gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeUnauthorized, "only the configured verifier may fulfill requests"))

		req := httptest.NewRequest(http.MethodPost, "/verifications/"+s.reqID.String()+"/fulfill", bytes.NewBufferString(`{"response":"x|1|y"}`))
		req = testutil.WithCaller(req, s.owner)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(s.T(), http.StatusForbidden, w.Code)
	})

	s.Run("no identity is 401", func() {
		router, _ := newTestRouter(s.T())
		req := httptest.NewRequest(http.MethodPost, "/verifications/"+s.reqID.String()+"/fulfill", bytes.NewBufferString(`{}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(s.T(), http.StatusUnauthorized, w.Code)
	})

	s.Run("already fulfilled is 409", func() {
		router, svc := newTestRouter(s.T())
		svc.EXPECT().Fulfill(gomock.Any(), s.verifier, s.reqID, gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeAlreadyFulfilled, "done"))

		req := httptest.NewRequest(http.MethodPost, "/verifications/"+s.reqID.String()+"/fulfill", bytes.NewBufferString(`{"error":"late"}`))
		req = testutil.WithCaller(req, s.verifier)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(s.T(), http.StatusConflict, w.Code)
	})
}

func (s *VerificationHandlerSuite) TestHandleGet() {
	router, svc := newTestRouter(s.T())
	svc.EXPECT().Get(gomock.Any(), s.reqID).Return(s.pending(), nil)
	svc.EXPECT().LatestFor(gomock.Any(), domain.CreditID(2)).Return(nil, dErrors.New(dErrors.CodeNotFound, "none"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/verifications/"+s.reqID.String(), nil))
	assert.Equal(s.T(), http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/credits/2/verification", nil))
	assert.Equal(s.T(), http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/verifications/0x1234", nil))
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
}
