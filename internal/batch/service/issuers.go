package service

import (
	"context"
	"errors"

	"carbonmint/internal/batch/models"
	"carbonmint/pkg/domain"
	dErrors "carbonmint/pkg/domain-errors"
	"carbonmint/pkg/platform/sentinel"
	"carbonmint/pkg/requestcontext"
)

// SeedIssuers authorizes the configured initial issuers. Existing entries
// are left alone.
func (s *Service) SeedIssuers(ctx context.Context, addrs []domain.Address) error {
	if len(addrs) == 0 {
		return nil
	}
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.issuers.Add(ctx, addrs, requestcontext.Now(ctx)); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to seed issuers")
		}
		return nil
	})
}

// AuthorizeIssuer adds addr to the issuer set. Administrator only.
func (s *Service) AuthorizeIssuer(ctx context.Context, caller, addr domain.Address) error {
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	if addr.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "issuer address is required")
	}
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.issuers.Add(ctx, []domain.Address{addr}, requestcontext.Now(ctx)); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to authorize issuer")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logAudit(ctx, "issuer_authorized", "issuer", addr, "by", caller)
	if s.metrics != nil {
		s.metrics.IncrementIssuerChange("authorize")
	}
	return nil
}

// RevokeIssuer removes addr from the issuer set. The administrator stays an
// implicit issuer and cannot be revoked.
func (s *Service) RevokeIssuer(ctx context.Context, caller, addr domain.Address) error {
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	if addr == s.admin {
		return dErrors.New(dErrors.CodeValidation, "the administrator cannot be revoked as issuer")
	}
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.issuers.Remove(ctx, addr); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "issuer not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke issuer")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logAudit(ctx, "issuer_revoked", "issuer", addr, "by", caller)
	if s.metrics != nil {
		s.metrics.IncrementIssuerChange("revoke")
	}
	return nil
}

func (s *Service) IsIssuer(ctx context.Context, addr domain.Address) (bool, error) {
	var ok bool
	err := s.tx.View(ctx, func(ctx context.Context) error {
		var err error
		ok, err = s.isIssuer(ctx, addr)
		return err
	})
	return ok, err
}

// ListIssuers returns the explicit issuer set. The administrator is not listed.
func (s *Service) ListIssuers(ctx context.Context) ([]*models.Issuer, error) {
	var out []*models.Issuer
	err := s.tx.View(ctx, func(ctx context.Context) error {
		var err error
		out, err = s.issuers.List(ctx)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list issuers")
		}
		return nil
	})
	return out, err
}

func (s *Service) isIssuer(ctx context.Context, addr domain.Address) (bool, error) {
	if addr.IsZero() {
		return false, nil
	}
	if addr == s.admin {
		return true, nil
	}
	ok, err := s.issuers.Contains(ctx, addr)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check issuer")
	}
	return ok, nil
}

func (s *Service) requireAdmin(caller domain.Address) error {
	if caller.IsZero() || caller != s.admin {
		return dErrors.New(dErrors.CodeUnauthorized, "only the registry administrator may manage issuers")
	}
	return nil
}
