package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"carbonmint/internal/batch/metrics"
	"carbonmint/internal/batch/models"
	"carbonmint/internal/batch/store"
	creditmodels "carbonmint/internal/credit/models"
	creditservice "carbonmint/internal/credit/service"
	creditstore "carbonmint/internal/credit/store"
	"carbonmint/internal/events"
	eventstore "carbonmint/internal/events/store"
	factoryservice "carbonmint/internal/factory/service"
	ledgerstore "carbonmint/internal/ledger/store"
	"carbonmint/internal/txn"
	verificationmodels "carbonmint/internal/verification/models"
	verificationservice "carbonmint/internal/verification/service"
	verificationstore "carbonmint/internal/verification/store"
	"carbonmint/pkg/domain"
	dErrors "carbonmint/pkg/domain-errors"
	"carbonmint/pkg/requestcontext"
)

type BatchServiceSuite struct {
	suite.Suite
	ctx           context.Context
	now           time.Time
	admin         domain.Address
	issuer        domain.Address
	owner         domain.Address
	verifier      domain.Address
	factory       domain.Address
	outbox        *eventstore.InMemoryOutbox
	credits       *creditservice.Service
	verifications *verificationservice.Service
	service       *Service
}

func TestBatchServiceSuite(t *testing.T) {
	suite.Run(t, new(BatchServiceSuite))
}

func (s *BatchServiceSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.admin = domain.MustAddress("0x00000000000000000000000000000000000000ad")
	s.issuer = domain.MustAddress("0x00000000000000000000000000000000000000e1")
	s.owner = domain.MustAddress("0x00000000000000000000000000000000000000a1")
	s.verifier = domain.MustAddress("0x00000000000000000000000000000000000a0002")
	s.factory = domain.MustAddress("0x00000000000000000000000000000000000f0001")

	tx := txn.NewMemory()
	s.outbox = eventstore.NewInMemory()
	recorder := events.NewRecorder(s.outbox)
	s.credits = creditservice.New(creditstore.NewInMemory(), tx, creditservice.WithEventRecorder(recorder))
	s.verifications = verificationservice.New(verificationstore.NewInMemory(), s.credits, tx,
		verificationservice.Identities{
			Gateway:  domain.MustAddress("0x00000000000000000000000000000000000a0003"),
			Verifier: s.verifier,
		},
		verificationservice.WithEventRecorder(recorder),
	)
	factory := factoryservice.New(ledgerstore.NewInMemory(), tx, s.factory, factoryservice.WithEventRecorder(recorder))
	s.service = New(store.NewInMemory(), store.NewInMemoryIssuers(), s.credits, s.verifications, factory, tx, s.admin,
		WithEventRecorder(recorder),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(metrics.NewWithRegistry(prometheus.NewRegistry())),
		WithDocumentImage("https://example.org/batch.png"),
	)
	s.Require().NoError(s.service.SeedIssuers(s.ctx, []domain.Address{s.issuer}))
}

func (s *BatchServiceSuite) registerCredit(project string) domain.CreditID {
	credit, err := s.credits.Register(s.ctx, s.owner, creditmodels.RegisterRequest{Amount: 10000, ProjectID: project})
	s.Require().NoError(err)
	return credit.ID
}

func (s *BatchServiceSuite) requestVerification(creditID domain.CreditID) domain.RequestID {
	req, err := s.verifications.RequestVerification(s.ctx, s.owner, creditID)
	s.Require().NoError(err)
	return req.RequestID
}

func (s *BatchServiceSuite) fulfill(id domain.RequestID, f verificationmodels.Fulfillment) {
	_, err := s.verifications.Fulfill(s.ctx, s.verifier, id, f)
	s.Require().NoError(err)
}

func (s *BatchServiceSuite) verifiedCredit(project string, available uint64) domain.CreditID {
	creditID := s.registerCredit(project)
	s.fulfill(s.requestVerification(creditID), verificationmodels.Fulfillment{
		Response: verificationmodels.EncodeResponse(verificationmodels.Response{
			ExternalProjectID: project,
			AvailableForSale:  available,
			ExternalTimestamp: "2025-01-15",
		}),
	})
	return creditID
}

func (s *BatchServiceSuite) mintRequest(creditID domain.CreditID, project string, total uint64) models.MintBatchRequest {
	return models.MintBatchRequest{
		Recipient:      s.owner,
		ProjectID:      project,
		TotalCredits:   total,
		SourceCreditID: creditID,
		Issuer:         s.issuer,
	}
}

func (s *BatchServiceSuite) TestMintBatch() {
	creditID := s.verifiedCredit("GS-15234", 10000)

	batch, err := s.service.MintBatch(s.ctx, s.mintRequest(creditID, "GS-15234", 5000))
	s.Require().NoError(err)
	s.Equal(domain.BatchID(1), batch.ID)
	s.True(batch.IsActive)
	s.Equal(s.owner, batch.ProjectOwner)
	s.Equal(domain.DeriveLedgerAddress(s.factory, batch.ID), batch.LedgerAddress)
	s.Equal("GS-15234", batch.Snapshot.ExternalProjectID)
	s.Equal(uint64(10000), batch.Snapshot.AvailableForSale)
	s.Equal("verified", batch.Snapshot.Status)

	stored, err := s.service.GetMetadata(s.ctx, batch.ID)
	s.Require().NoError(err)
	s.Equal(batch.LedgerAddress, stored.LedgerAddress)
	s.Len(s.outbox.All(events.BatchMinted), 1)
	s.Len(s.outbox.All(events.LedgerCreated), 1)
}

func (s *BatchServiceSuite) TestMintBatchGateOrder() {
	s.Run("unauthorized issuer wins over every other failure", func() {
		req := s.mintRequest(99, "GS-1", 1)
		req.Issuer = domain.MustAddress("0x00000000000000000000000000000000000000f9")
		_, err := s.service.MintBatch(s.ctx, req)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("unknown credit is not verified", func() {
		_, err := s.service.MintBatch(s.ctx, s.mintRequest(99, "GS-1", 1))
		s.True(dErrors.HasCode(err, dErrors.CodeCreditNotVerified))
	})

	s.Run("unverified credit with pending request", func() {
		creditID := s.registerCredit("GS-2")
		s.requestVerification(creditID)
		_, err := s.service.MintBatch(s.ctx, s.mintRequest(creditID, "GS-2", 1))
		s.True(dErrors.HasCode(err, dErrors.CodeCreditNotVerified))
	})

	s.Run("verified credit whose newer request is pending", func() {
		creditID := s.verifiedCredit("GS-3", 100)
		s.requestVerification(creditID)
		_, err := s.service.MintBatch(s.ctx, s.mintRequest(creditID, "GS-3", 1))
		s.True(dErrors.HasCode(err, dErrors.CodeVerificationIncomplete))
	})

	s.Run("verified credit whose newer request failed", func() {
		creditID := s.verifiedCredit("GS-4", 100)
		s.fulfill(s.requestVerification(creditID), verificationmodels.Fulfillment{Error: "registry unavailable"})
		_, err := s.service.MintBatch(s.ctx, s.mintRequest(creditID, "GS-4", 1))
		s.True(dErrors.HasCode(err, dErrors.CodeVerificationFailed))
	})

	s.Run("total above verified amount", func() {
		creditID := s.verifiedCredit("GS-5", 100)
		_, err := s.service.MintBatch(s.ctx, s.mintRequest(creditID, "GS-5", 101))
		s.True(dErrors.HasCode(err, dErrors.CodeExceedsVerifiedAmount))
	})

	s.Run("input shape is checked first", func() {
		_, err := s.service.MintBatch(s.ctx, s.mintRequest(1, "GS-6", 0))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidAmount))
		_, err = s.service.MintBatch(s.ctx, s.mintRequest(1, "  ", 1))
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	batches, err := s.service.List(s.ctx, false)
	s.Require().NoError(err)
	s.Empty(batches, "rejected mints write nothing")
	s.Empty(s.outbox.All(events.BatchMinted, events.LedgerCreated))
}

func (s *BatchServiceSuite) TestDuplicateProjectUntilDeactivated() {
	creditID := s.verifiedCredit("GS-15234", 10000)
	first, err := s.service.MintBatch(s.ctx, s.mintRequest(creditID, "GS-15234", 5000))
	s.Require().NoError(err)

	_, err = s.service.MintBatch(s.ctx, s.mintRequest(creditID, "GS-15234", 1000))
	s.True(dErrors.HasCode(err, dErrors.CodeDuplicateProject))

	_, err = s.service.Deactivate(s.ctx, first.ID, s.issuer)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	deactivated, err := s.service.Deactivate(s.ctx, first.ID, s.admin)
	s.Require().NoError(err)
	s.False(deactivated.IsActive)

	second, err := s.service.MintBatch(s.ctx, s.mintRequest(creditID, "GS-15234", 1000))
	s.Require().NoError(err)
	s.Equal(domain.BatchID(2), second.ID)
	s.NotEqual(first.LedgerAddress, second.LedgerAddress)

	active, err := s.service.List(s.ctx, true)
	s.Require().NoError(err)
	s.Require().Len(active, 1)
	s.Equal(second.ID, active[0].ID)
}

func (s *BatchServiceSuite) TestDeactivateIsIdempotent() {
	creditID := s.verifiedCredit("GS-15234", 10000)
	batch, err := s.service.MintBatch(s.ctx, s.mintRequest(creditID, "GS-15234", 5000))
	s.Require().NoError(err)

	for range 2 {
		got, err := s.service.Deactivate(s.ctx, batch.ID, s.admin)
		s.Require().NoError(err)
		s.False(got.IsActive)
	}
	s.Len(s.outbox.All(events.BatchDeactivated), 1)

	_, err = s.service.Deactivate(s.ctx, 42, s.admin)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *BatchServiceSuite) TestSnapshotIsFrozen() {
	creditID := s.verifiedCredit("GS-15234", 10000)
	batch, err := s.service.MintBatch(s.ctx, s.mintRequest(creditID, "GS-15234", 5000))
	s.Require().NoError(err)

	s.fulfill(s.requestVerification(creditID), verificationmodels.Fulfillment{
		Response: "GS-15234|20|2026-02-01",
	})

	stored, err := s.service.GetMetadata(s.ctx, batch.ID)
	s.Require().NoError(err)
	s.Equal(uint64(10000), stored.Snapshot.AvailableForSale)
	s.Equal("2025-01-15", stored.Snapshot.ExternalTimestamp)
}

func (s *BatchServiceSuite) TestCounters() {
	creditID := s.verifiedCredit("GS-15234", 10000)
	batch, err := s.service.MintBatch(s.ctx, s.mintRequest(creditID, "GS-15234", 100))
	s.Require().NoError(err)

	s.Require().NoError(s.service.RecordIssuance(s.ctx, batch.ID, 60))
	s.True(dErrors.HasCode(s.service.RecordIssuance(s.ctx, batch.ID, 41), dErrors.CodeCapacityExceeded))
	s.Require().NoError(s.service.RecordRetirement(s.ctx, batch.ID, 60))
	s.True(dErrors.HasCode(s.service.RecordRetirement(s.ctx, batch.ID, 1), dErrors.CodeRetirementExceedsIssuance))

	stored, err := s.service.GetMetadata(s.ctx, batch.ID)
	s.Require().NoError(err)
	s.Equal(uint64(60), stored.IssuedCredits)
	s.Equal(uint64(60), stored.RetiredCredits)
}

func (s *BatchServiceSuite) TestIsAuthorizedFor() {
	creditID := s.verifiedCredit("GS-15234", 10000)
	batch, err := s.service.MintBatch(s.ctx, s.mintRequest(creditID, "GS-15234", 100))
	s.Require().NoError(err)

	for _, tc := range []struct {
		name string
		addr domain.Address
		want bool
	}{
		{"project owner", s.owner, true},
		{"issuer", s.issuer, true},
		{"administrator", s.admin, true},
		{"stranger", domain.MustAddress("0x00000000000000000000000000000000000000f9"), false},
		{"zero address", domain.Address{}, false},
	} {
		s.Run(tc.name, func() {
			ok, err := s.service.IsAuthorizedFor(s.ctx, batch.ID, tc.addr)
			s.Require().NoError(err)
			s.Equal(tc.want, ok)
		})
	}
}

func (s *BatchServiceSuite) TestIssuerAdministration() {
	newcomer := domain.MustAddress("0x00000000000000000000000000000000000000e2")

	s.True(dErrors.HasCode(s.service.AuthorizeIssuer(s.ctx, s.issuer, newcomer), dErrors.CodeUnauthorized))
	s.True(dErrors.HasCode(s.service.AuthorizeIssuer(s.ctx, s.admin, domain.Address{}), dErrors.CodeValidation))

	s.Require().NoError(s.service.AuthorizeIssuer(s.ctx, s.admin, newcomer))
	ok, err := s.service.IsIssuer(s.ctx, newcomer)
	s.Require().NoError(err)
	s.True(ok)

	issuers, err := s.service.ListIssuers(s.ctx)
	s.Require().NoError(err)
	s.Len(issuers, 2)

	s.Require().NoError(s.service.RevokeIssuer(s.ctx, s.admin, newcomer))
	ok, err = s.service.IsIssuer(s.ctx, newcomer)
	s.Require().NoError(err)
	s.False(ok)

	s.True(dErrors.HasCode(s.service.RevokeIssuer(s.ctx, s.admin, newcomer), dErrors.CodeNotFound))
	s.True(dErrors.HasCode(s.service.RevokeIssuer(s.ctx, s.admin, s.admin), dErrors.CodeValidation))

	ok, err = s.service.IsIssuer(s.ctx, s.admin)
	s.Require().NoError(err)
	s.True(ok)
}

func (s *BatchServiceSuite) TestDocumentAndTokenURI() {
	creditID := s.verifiedCredit("GS-15234", 10000)
	batch, err := s.service.MintBatch(s.ctx, s.mintRequest(creditID, "GS-15234", 5000))
	s.Require().NoError(err)

	doc, err := s.service.Document(s.ctx, batch.ID)
	s.Require().NoError(err)
	s.Equal("https://example.org/batch.png", doc.Image)
	s.Len(doc.Attributes, 9)

	uri, err := s.service.TokenURI(s.ctx, batch.ID)
	s.Require().NoError(err)
	s.True(strings.HasPrefix(uri, "data:application/json;base64,"))

	_, err = s.service.TokenURI(s.ctx, 42)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
