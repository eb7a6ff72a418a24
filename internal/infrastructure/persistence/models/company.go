package models

import (
	"time"

	"github.com/freightport/backend/internal/domain/company"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CompanyModel is the persistence model for the Company aggregate.
type CompanyModel struct {
	AggregateModel
	Name           string         `gorm:"type:varchar(200);not null;index"`
	LicenseNo      string         `gorm:"type:varchar(50);not null;uniqueIndex"`
	ContactName    string         `gorm:"type:varchar(100);not null"`
	ContactPhone   string         `gorm:"type:varchar(50);not null"`
	ContactEmail   string         `gorm:"type:varchar(200)"`
	Address        string         `gorm:"type:varchar(500)"`
	LicenseFileKey string         `gorm:"type:varchar(500)"`
	Status         company.Status `gorm:"type:varchar(20);not null;index"`
	RejectReason   string         `gorm:"type:varchar(500)"`
	ReviewedBy     *uuid.UUID     `gorm:"type:uuid"`
	ReviewedAt     *time.Time
	CreditLimit    decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	CreditUsed     decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Currency       string          `gorm:"type:varchar(3);not null"`
	CreatedBy      uuid.UUID       `gorm:"type:uuid;not null"`
}

// TableName returns the table name for GORM
func (CompanyModel) TableName() string {
	return "companies"
}

// ToDomain converts the persistence model to a domain Company.
func (m *CompanyModel) ToDomain() *company.Company {
	c := &company.Company{
		Profile: company.Profile{
			Name:           m.Name,
			LicenseNo:      m.LicenseNo,
			ContactName:    m.ContactName,
			ContactPhone:   m.ContactPhone,
			ContactEmail:   m.ContactEmail,
			Address:        m.Address,
			LicenseFileKey: m.LicenseFileKey,
		},
		Status:       m.Status,
		RejectReason: m.RejectReason,
		ReviewedBy:   m.ReviewedBy,
		ReviewedAt:   m.ReviewedAt,
		CreditLimit:  m.CreditLimit,
		CreditUsed:   m.CreditUsed,
		Currency:     m.Currency,
		CreatedBy:    m.CreatedBy,
	}
	m.LoadAggregate(&c.BaseAggregateRoot)
	return c
}

// FromDomain populates the persistence model from a domain Company.
func (m *CompanyModel) FromDomain(c *company.Company) {
	m.SetAggregate(c.BaseAggregateRoot)
	m.Name = c.Name
	m.LicenseNo = c.LicenseNo
	m.ContactName = c.ContactName
	m.ContactPhone = c.ContactPhone
	m.ContactEmail = c.ContactEmail
	m.Address = c.Address
	m.LicenseFileKey = c.LicenseFileKey
	m.Status = c.Status
	m.RejectReason = c.RejectReason
	m.ReviewedBy = c.ReviewedBy
	m.ReviewedAt = c.ReviewedAt
	m.CreditLimit = c.CreditLimit
	m.CreditUsed = c.CreditUsed
	m.Currency = c.Currency
	m.CreatedBy = c.CreatedBy
}

// CompanyModelFromDomain creates a new persistence model from a domain Company.
func CompanyModelFromDomain(c *company.Company) *CompanyModel {
	m := &CompanyModel{}
	m.FromDomain(c)
	return m
}
