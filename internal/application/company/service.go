// Package company implements customer company onboarding, review and the
// credit line administration.
package company

import (
	"context"

	"github.com/freightport/backend/internal/application/common"
	"github.com/freightport/backend/internal/domain/company"
	"github.com/freightport/backend/internal/domain/shared"
	"github.com/freightport/backend/internal/infrastructure/policy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AutoApprover decides whether a freshly submitted company skips manual review
type AutoApprover interface {
	Evaluate(ctx context.Context, in policy.OnboardingInput) (bool, error)
}

// Service handles company onboarding and credit administration
type Service struct {
	repo          company.Repository
	scope         common.TransactionScope
	approver      AutoApprover
	defaultCredit decimal.Decimal
	publisher     shared.EventPublisher
	logger        *zap.Logger
}

// NewService creates a company service. approver and publisher may be nil.
func NewService(
	repo company.Repository,
	scope common.TransactionScope,
	approver AutoApprover,
	defaultCredit decimal.Decimal,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *Service {
	return &Service{
		repo:          repo,
		scope:         scope,
		approver:      approver,
		defaultCredit: defaultCredit,
		publisher:     publisher,
		logger:        logger,
	}
}

var errAlreadyOnboarded = shared.NewDomainError("ALREADY_ONBOARDED", "User already belongs to a company")

// Submit creates a company in review and links the submitting user to it.
// The auto-approval rule may approve it on the spot.
func (s *Service) Submit(ctx context.Context, actor shared.Actor, input ProfileInput) (*CompanyDTO, error) {
	if actor.CompanyID != nil {
		return nil, errAlreadyOnboarded
	}
	c, err := company.Submit(input.toProfile(), actor.UserID)
	if err != nil {
		return nil, err
	}

	autoApproved := s.evaluateAutoApproval(ctx, c)
	if autoApproved {
		if err := c.Approve(uuid.Nil, s.defaultCredit); err != nil {
			return nil, err
		}
	}

	err = s.scope.Execute(ctx, func(repos common.TransactionalRepositories) error {
		user, err := repos.Users().FindByID(ctx, actor.UserID)
		if err != nil {
			return err
		}
		if user.CompanyID != nil {
			return errAlreadyOnboarded
		}
		if err := s.ensureLicenseFree(ctx, repos.Companies(), c.LicenseNo, uuid.Nil); err != nil {
			return err
		}
		if err := repos.Companies().Save(ctx, c); err != nil {
			return err
		}
		if err := user.JoinCompany(c.ID); err != nil {
			return err
		}
		return repos.Users().Update(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Company submitted",
		zap.String("company_id", c.ID.String()),
		zap.String("license_no", c.LicenseNo),
		zap.Bool("auto_approved", autoApproved))

	common.PublishEvents(ctx, s.publisher, s.logger, c)
	dto := ToCompanyDTO(c)
	return &dto, nil
}

// Resubmit replaces the profile of the caller's rejected company
func (s *Service) Resubmit(ctx context.Context, actor shared.Actor, input ProfileInput) (*CompanyDTO, error) {
	if actor.CompanyID == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "No company has been submitted yet")
	}
	c, err := s.repo.FindByID(ctx, *actor.CompanyID)
	if err != nil {
		return nil, err
	}
	if err := c.Resubmit(input.toProfile()); err != nil {
		return nil, err
	}
	if err := s.ensureLicenseFree(ctx, s.repo, c.LicenseNo, c.ID); err != nil {
		return nil, err
	}
	if err := s.repo.SaveWithLock(ctx, c); err != nil {
		return nil, err
	}

	common.PublishEvents(ctx, s.publisher, s.logger, c)
	dto := ToCompanyDTO(c)
	return &dto, nil
}

func (s *Service) ensureLicenseFree(ctx context.Context, repo company.Repository, licenseNo string, self uuid.UUID) error {
	existing, err := repo.FindByLicenseNo(ctx, licenseNo)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil
		}
		return err
	}
	if existing.ID != self {
		return shared.NewDomainError("ALREADY_EXISTS", "License number is already registered")
	}
	return nil
}

func (s *Service) evaluateAutoApproval(ctx context.Context, c *company.Company) bool {
	if s.approver == nil {
		return false
	}
	ok, err := s.approver.Evaluate(ctx, policy.OnboardingInput{
		Name:           c.Name,
		LicenseNo:      c.LicenseNo,
		HasLicenseFile: c.LicenseFileKey != "",
		ContactEmail:   c.ContactEmail,
	})
	if err != nil {
		// Fall back to manual review
		s.logger.Warn("Auto-approval rule failed", zap.String("license_no", c.LicenseNo), zap.Error(err))
		return false
	}
	return ok
}

// Get returns a company the actor may see
func (s *Service) Get(ctx context.Context, actor shared.Actor, id uuid.UUID) (*CompanyDTO, error) {
	if err := actor.RequireCompanyAccess(id); err != nil {
		return nil, err
	}
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := ToCompanyDTO(c)
	return &dto, nil
}

// GetMine returns the caller's own company
func (s *Service) GetMine(ctx context.Context, actor shared.Actor) (*CompanyDTO, error) {
	if actor.CompanyID == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "No company has been submitted yet")
	}
	return s.Get(ctx, actor, *actor.CompanyID)
}

// List returns a page of companies. Staff only. Supported filters: status.
func (s *Service) List(ctx context.Context, actor shared.Actor, filter shared.Filter) (*shared.Paginated[CompanyDTO], error) {
	if err := actor.RequireStaff(); err != nil {
		return nil, err
	}
	filter = filter.Normalize()
	companies, total, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]CompanyDTO, len(companies))
	for i := range companies {
		items[i] = ToCompanyDTO(&companies[i])
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

// Approve accepts a company in review with an initial credit limit
func (s *Service) Approve(ctx context.Context, actor shared.Actor, id uuid.UUID, creditLimit decimal.Decimal) (*CompanyDTO, error) {
	return s.review(ctx, actor, id, "approved", func(c *company.Company) error {
		return c.Approve(actor.UserID, creditLimit)
	})
}

// Reject declines a company in review. The reason is required.
func (s *Service) Reject(ctx context.Context, actor shared.Actor, id uuid.UUID, reason string) (*CompanyDTO, error) {
	return s.review(ctx, actor, id, "rejected", func(c *company.Company) error {
		return c.Reject(actor.UserID, reason)
	})
}

// Suspend blocks new orders of an approved company
func (s *Service) Suspend(ctx context.Context, actor shared.Actor, id uuid.UUID, reason string) (*CompanyDTO, error) {
	return s.review(ctx, actor, id, "suspended", func(c *company.Company) error {
		return c.Suspend(reason)
	})
}

// Reinstate re-approves a suspended company
func (s *Service) Reinstate(ctx context.Context, actor shared.Actor, id uuid.UUID) (*CompanyDTO, error) {
	return s.review(ctx, actor, id, "reinstated", func(c *company.Company) error {
		return c.Reinstate()
	})
}

// AdjustCreditLimit sets a new credit limit, never below the credit in use
func (s *Service) AdjustCreditLimit(ctx context.Context, actor shared.Actor, id uuid.UUID, limit decimal.Decimal) (*CompanyDTO, error) {
	return s.review(ctx, actor, id, "credit limit adjusted", func(c *company.Company) error {
		return c.SetCreditLimit(limit)
	})
}

func (s *Service) review(ctx context.Context, actor shared.Actor, id uuid.UUID, action string, apply func(*company.Company) error) (*CompanyDTO, error) {
	if err := actor.RequireStaff(); err != nil {
		return nil, err
	}
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(c); err != nil {
		return nil, err
	}
	if err := s.repo.SaveWithLock(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info("Company "+action,
		zap.String("company_id", c.ID.String()),
		zap.String("status", string(c.Status)),
		zap.String("credit_limit", c.CreditLimit.StringFixed(2)),
		zap.String("by", actor.UserID.String()))

	common.PublishEvents(ctx, s.publisher, s.logger, c)
	dto := ToCompanyDTO(c)
	return &dto, nil
}
