package company

import (
	"github.com/freightport/backend/internal/domain/shared"
)

// AggregateTypeCompany is the aggregate type for companies
const AggregateTypeCompany = "Company"

const (
	EventTypeCompanySubmitted = "company.submitted"
	EventTypeCompanyApproved  = "company.approved"
	EventTypeCompanyRejected  = "company.rejected"
)

// CompanySubmittedEvent is published when a company enters review
type CompanySubmittedEvent struct {
	shared.BaseDomainEvent
	Name      string `json:"name"`
	LicenseNo string `json:"license_no"`
}

// NewCompanySubmittedEvent creates a new CompanySubmittedEvent
func NewCompanySubmittedEvent(c *Company) *CompanySubmittedEvent {
	return &CompanySubmittedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCompanySubmitted, AggregateTypeCompany, c.ID, c.ID),
		Name:            c.Name,
		LicenseNo:       c.LicenseNo,
	}
}

// CompanyReviewedEvent is published when a review concludes
type CompanyReviewedEvent struct {
	shared.BaseDomainEvent
	Name        string `json:"name"`
	Status      Status `json:"status"`
	Reason      string `json:"reason,omitempty"`
	CreditLimit string `json:"credit_limit"`
}

// NewCompanyReviewedEvent creates an approved or rejected event depending on status
func NewCompanyReviewedEvent(c *Company) *CompanyReviewedEvent {
	eventType := EventTypeCompanyApproved
	if c.Status == StatusRejected {
		eventType = EventTypeCompanyRejected
	}
	return &CompanyReviewedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeCompany, c.ID, c.ID),
		Name:            c.Name,
		Status:          c.Status,
		Reason:          c.RejectReason,
		CreditLimit:     c.CreditLimit.StringFixed(2),
	}
}
