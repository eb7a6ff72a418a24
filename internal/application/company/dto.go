package company

import (
	"time"

	"github.com/freightport/backend/internal/domain/company"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProfileInput carries the onboarding fields a customer submits
type ProfileInput struct {
	Name           string
	LicenseNo      string
	ContactName    string
	ContactPhone   string
	ContactEmail   string
	Address        string
	LicenseFileKey string
}

func (in ProfileInput) toProfile() company.Profile {
	return company.Profile{
		Name:           in.Name,
		LicenseNo:      in.LicenseNo,
		ContactName:    in.ContactName,
		ContactPhone:   in.ContactPhone,
		ContactEmail:   in.ContactEmail,
		Address:        in.Address,
		LicenseFileKey: in.LicenseFileKey,
	}
}

// CompanyDTO is the company representation returned to callers
type CompanyDTO struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	LicenseNo       string          `json:"license_no"`
	ContactName     string          `json:"contact_name"`
	ContactPhone    string          `json:"contact_phone"`
	ContactEmail    string          `json:"contact_email"`
	Address         string          `json:"address"`
	LicenseFileKey  string          `json:"license_file_key,omitempty"`
	Status          string          `json:"status"`
	RejectReason    string          `json:"reject_reason,omitempty"`
	ReviewedBy      *uuid.UUID      `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time      `json:"reviewed_at,omitempty"`
	CreditLimit     decimal.Decimal `json:"credit_limit"`
	CreditUsed      decimal.Decimal `json:"credit_used"`
	AvailableCredit decimal.Decimal `json:"available_credit"`
	Currency        string          `json:"currency"`
	CreatedBy       uuid.UUID       `json:"created_by"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Version         int             `json:"version"`
}

// ToCompanyDTO converts a company aggregate to its DTO
func ToCompanyDTO(c *company.Company) CompanyDTO {
	return CompanyDTO{
		ID:              c.ID,
		Name:            c.Name,
		LicenseNo:       c.LicenseNo,
		ContactName:     c.ContactName,
		ContactPhone:    c.ContactPhone,
		ContactEmail:    c.ContactEmail,
		Address:         c.Address,
		LicenseFileKey:  c.LicenseFileKey,
		Status:          string(c.Status),
		RejectReason:    c.RejectReason,
		ReviewedBy:      c.ReviewedBy,
		ReviewedAt:      c.ReviewedAt,
		CreditLimit:     c.CreditLimit,
		CreditUsed:      c.CreditUsed,
		AvailableCredit: c.AvailableCredit(),
		Currency:        c.Currency,
		CreatedBy:       c.CreatedBy,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
		Version:         c.Version,
	}
}
