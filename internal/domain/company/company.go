package company

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/freightport/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the onboarding status of a company
type Status string

const (
	StatusPendingReview Status = "PENDING_REVIEW"
	StatusApproved      Status = "APPROVED"
	StatusRejected      Status = "REJECTED"
	StatusSuspended     Status = "SUSPENDED"
)

// IsValid checks if the status is a known value
func (s Status) IsValid() bool {
	switch s {
	case StatusPendingReview, StatusApproved, StatusRejected, StatusSuspended:
		return true
	}
	return false
}

// CanTransitionTo checks if the status can move to target
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusPendingReview:
		return target == StatusApproved || target == StatusRejected
	case StatusRejected:
		return target == StatusPendingReview
	case StatusApproved:
		return target == StatusSuspended
	case StatusSuspended:
		return target == StatusApproved
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// DefaultCurrency is used when a company does not specify one
const DefaultCurrency = "CNY"

// licenseNoPattern matches an 18 character unified social credit code
var licenseNoPattern = regexp.MustCompile(`^[0-9A-HJ-NPQRTUWXY]{2}\d{6}[0-9A-HJ-NPQRTUWXY]{10}$`)

// Profile holds the fields a customer submits for onboarding
type Profile struct {
	Name           string
	LicenseNo      string
	ContactName    string
	ContactPhone   string
	ContactEmail   string
	Address        string
	LicenseFileKey string
}

func (p Profile) normalize() Profile {
	p.Name = strings.TrimSpace(p.Name)
	p.LicenseNo = strings.ToUpper(strings.TrimSpace(p.LicenseNo))
	p.ContactName = strings.TrimSpace(p.ContactName)
	p.ContactPhone = strings.TrimSpace(p.ContactPhone)
	p.ContactEmail = strings.ToLower(strings.TrimSpace(p.ContactEmail))
	p.Address = strings.TrimSpace(p.Address)
	return p
}

func (p Profile) validate() error {
	if p.Name == "" {
		return shared.NewDomainError("INVALID_COMPANY_NAME", "Company name cannot be empty")
	}
	if len(p.Name) > 200 {
		return shared.NewDomainError("INVALID_COMPANY_NAME", "Company name cannot exceed 200 characters")
	}
	if !licenseNoPattern.MatchString(p.LicenseNo) {
		return shared.NewDomainError("INVALID_LICENSE_NO", "License number must be an 18 character unified social credit code")
	}
	if p.ContactName == "" || p.ContactPhone == "" {
		return shared.NewDomainError("INVALID_CONTACT", "Contact name and phone are required")
	}
	return nil
}

// Company is a customer company onboarded onto the portal. It carries the
// credit line that confirmed orders draw against.
type Company struct {
	shared.BaseAggregateRoot
	Profile
	Status       Status
	RejectReason string
	ReviewedBy   *uuid.UUID
	ReviewedAt   *time.Time
	CreditLimit  decimal.Decimal
	CreditUsed   decimal.Decimal
	Currency     string
	CreatedBy    uuid.UUID
}

// Submit creates a company awaiting review
func Submit(profile Profile, submittedBy uuid.UUID) (*Company, error) {
	profile = profile.normalize()
	if err := profile.validate(); err != nil {
		return nil, err
	}

	c := &Company{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Profile:           profile,
		Status:            StatusPendingReview,
		CreditLimit:       decimal.Zero,
		CreditUsed:        decimal.Zero,
		Currency:          DefaultCurrency,
		CreatedBy:         submittedBy,
	}
	c.RecordEvent(NewCompanySubmittedEvent(c))
	return c, nil
}

// Resubmit replaces the profile of a rejected company and puts it back in review
func (c *Company) Resubmit(profile Profile) error {
	if !c.Status.CanTransitionTo(StatusPendingReview) {
		return shared.NewDomainErrorf("INVALID_STATE", "Cannot resubmit company in %s status", c.Status)
	}
	profile = profile.normalize()
	if err := profile.validate(); err != nil {
		return err
	}
	c.Profile = profile
	c.Status = StatusPendingReview
	c.RejectReason = ""
	c.ReviewedBy = nil
	c.ReviewedAt = nil
	c.IncrementVersion()
	c.RecordEvent(NewCompanySubmittedEvent(c))
	return nil
}

// Approve accepts the company with an initial credit limit
func (c *Company) Approve(reviewer uuid.UUID, creditLimit decimal.Decimal) error {
	if !c.Status.CanTransitionTo(StatusApproved) || c.Status == StatusSuspended {
		return shared.NewDomainErrorf("INVALID_STATE", "Cannot approve company in %s status", c.Status)
	}
	if creditLimit.IsNegative() {
		return shared.NewDomainError("INVALID_CREDIT_LIMIT", "Credit limit cannot be negative")
	}
	now := time.Now()
	c.Status = StatusApproved
	c.CreditLimit = creditLimit
	c.ReviewedBy = &reviewer
	c.ReviewedAt = &now
	c.IncrementVersion()
	c.RecordEvent(NewCompanyReviewedEvent(c))
	return nil
}

// Reject declines the onboarding request
func (c *Company) Reject(reviewer uuid.UUID, reason string) error {
	if !c.Status.CanTransitionTo(StatusRejected) {
		return shared.NewDomainErrorf("INVALID_STATE", "Cannot reject company in %s status", c.Status)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Reject reason is required")
	}
	now := time.Now()
	c.Status = StatusRejected
	c.RejectReason = reason
	c.ReviewedBy = &reviewer
	c.ReviewedAt = &now
	c.IncrementVersion()
	c.RecordEvent(NewCompanyReviewedEvent(c))
	return nil
}

// Suspend blocks new orders for an approved company
func (c *Company) Suspend(reason string) error {
	if !c.Status.CanTransitionTo(StatusSuspended) {
		return shared.NewDomainErrorf("INVALID_STATE", "Cannot suspend company in %s status", c.Status)
	}
	c.Status = StatusSuspended
	c.RejectReason = strings.TrimSpace(reason)
	c.IncrementVersion()
	return nil
}

// Reinstate re-approves a suspended company
func (c *Company) Reinstate() error {
	if c.Status != StatusSuspended {
		return shared.NewDomainErrorf("INVALID_STATE", "Cannot reinstate company in %s status", c.Status)
	}
	c.Status = StatusApproved
	c.RejectReason = ""
	c.IncrementVersion()
	return nil
}

// SetCreditLimit changes the limit; it cannot drop below what is already used
func (c *Company) SetCreditLimit(limit decimal.Decimal) error {
	if limit.IsNegative() {
		return shared.NewDomainError("INVALID_CREDIT_LIMIT", "Credit limit cannot be negative")
	}
	if limit.LessThan(c.CreditUsed) {
		return shared.NewDomainError("INVALID_CREDIT_LIMIT",
			fmt.Sprintf("Credit limit cannot be lower than credit in use (%s)", c.CreditUsed.StringFixed(2)))
	}
	c.CreditLimit = limit
	c.IncrementVersion()
	return nil
}

// AvailableCredit returns limit minus used
func (c *Company) AvailableCredit() decimal.Decimal {
	return c.CreditLimit.Sub(c.CreditUsed)
}

// ReserveCredit draws amount from the credit line
func (c *Company) ReserveCredit(amount decimal.Decimal) error {
	if c.Status != StatusApproved {
		return shared.NewDomainError("COMPANY_NOT_APPROVED", "Company is not approved")
	}
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Reserved amount must be positive")
	}
	if c.CreditUsed.Add(amount).GreaterThan(c.CreditLimit) {
		return shared.NewDomainError("CREDIT_LIMIT_EXCEEDED",
			fmt.Sprintf("Credit limit exceeded: available %s, requested %s",
				c.AvailableCredit().StringFixed(2), amount.StringFixed(2)))
	}
	c.CreditUsed = c.CreditUsed.Add(amount)
	c.IncrementVersion()
	return nil
}

// ReleaseCredit returns amount to the credit line, never below zero
func (c *Company) ReleaseCredit(amount decimal.Decimal) {
	if !amount.IsPositive() {
		return
	}
	c.CreditUsed = c.CreditUsed.Sub(amount)
	if c.CreditUsed.IsNegative() {
		c.CreditUsed = decimal.Zero
	}
	c.IncrementVersion()
}

// IsApproved reports whether the company may place orders
func (c *Company) IsApproved() bool {
	return c.Status == StatusApproved
}
