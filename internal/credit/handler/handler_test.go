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

	"carbonmint/internal/credit/handler/mocks"
	"carbonmint/internal/credit/models"
	"carbonmint/pkg/domain"
	dErrors "carbonmint/pkg/domain-errors"
	"carbonmint/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service
type CreditHandlerSuite struct {
	suite.Suite
	owner domain.Address
	now   time.Time
}

func TestCreditHandlerSuite(t *testing.T) {
	suite.Run(t, new(CreditHandlerSuite))
}

func (s *CreditHandlerSuite) SetupSuite() {
	s.owner = domain.MustAddress("0x00000000000000000000000000000000000000a1")
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func newTestRouter(t *testing.T) (chi.Router, *mocks.MockService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	mockService := mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := New(mockService, logger)
	r := chi.NewRouter()
	h.Register(r)
	h.RegisterAuthenticated(r)
	return r, mockService
}

func (s *CreditHandlerSuite) credit() *models.CarbonCredit {
	return &models.CarbonCredit{
		ID:        1,
		Owner:     s.owner,
		Amount:    10000,
		ProjectID: "GS-15234",
		CreatedAt: s.now,
	}
}

func (s *CreditHandlerSuite) TestHandleRegister() {
	s.Run("creates credit for authenticated caller", func() {
		router, svc := newTestRouter(s.T())
		svc.EXPECT().Register(gomock.Any(), s.owner, models.RegisterRequest{
			Amount:    10000,
			ProjectID: "GS-15234",
		}).Return(s.credit(), nil)

		body := `{"amount": 10000, "project_id": " GS-15234 "}`
		req := httptest.NewRequest(http.MethodPost, "/credits", bytes.NewBufferString(body))
		req = testutil.WithCaller(req, s.owner)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), http.StatusCreated, w.Code)
		var resp CreditResponse
		require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(s.T(), uint64(1), resp.ID)
		assert.Equal(s.T(), s.owner.String(), resp.Owner)
		assert.False(s.T(), resp.IsVerified)
	})

	s.Run("missing caller is 401", func() {
		router, _ := newTestRouter(s.T())
		req := httptest.NewRequest(http.MethodPost, "/credits", bytes.NewBufferString(`{"amount": 1, "project_id": "GS-1"}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(s.T(), http.StatusUnauthorized, w.Code)
	})

	s.Run("service validation error maps to 400", func() {
		router, svc := newTestRouter(s.T())
		svc.EXPECT().Register(gomock.Any(), s.owner, gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeInvalidAmount, "amount must be greater than zero"))

		req := httptest.NewRequest(http.MethodPost, "/credits", bytes.NewBufferString(`{"amount": 0, "project_id": "GS-1"}`))
		req = testutil.WithCaller(req, s.owner)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), http.StatusBadRequest, w.Code)
		var resp map[string]string
		require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(s.T(), "invalid_amount", resp["error"])
	})

	s.Run("malformed hash is rejected before the service", func() {
		router, _ := newTestRouter(s.T())
		body := `{"amount": 1, "project_id": "GS-1", "verification_hash": "abc"}`
		req := httptest.NewRequest(http.MethodPost, "/credits", bytes.NewBufferString(body))
		req = testutil.WithCaller(req, s.owner)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	})

	s.Run("unknown fields are rejected", func() {
		router, _ := newTestRouter(s.T())
		req := httptest.NewRequest(http.MethodPost, "/credits", bytes.NewBufferString(`{"amount": 1, "owner": "0x1"}`))
		req = testutil.WithCaller(req, s.owner)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	})
}

func (s *CreditHandlerSuite) TestHandleGet() {
	s.Run("returns credit", func() {
		router, svc := newTestRouter(s.T())
		svc.EXPECT().Get(gomock.Any(), domain.CreditID(1)).Return(s.credit(), nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/credits/1", nil))
		assert.Equal(s.T(), http.StatusOK, w.Code)
	})

	s.Run("unknown credit is 404", func() {
		router, svc := newTestRouter(s.T())
		svc.EXPECT().Get(gomock.Any(), domain.CreditID(7)).Return(nil, dErrors.New(dErrors.CodeNotFound, "credit not found"))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/credits/7", nil))
		assert.Equal(s.T(), http.StatusNotFound, w.Code)
	})

	s.Run("zero id is 400", func() {
		router, _ := newTestRouter(s.T())
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/credits/0", nil))
		assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	})
}

func (s *CreditHandlerSuite) TestHandleList() {
	router, svc := newTestRouter(s.T())
	svc.EXPECT().ListByOwner(gomock.Any(), s.owner).Return([]*models.CarbonCredit{s.credit()}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/credits?owner="+s.owner.String(), nil))
	assert.Equal(s.T(), http.StatusOK, w.Code)

	var resp ListResponse
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(s.T(), resp.Credits, 1)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/credits", nil))
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
}
