// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free
// from ORM concerns.
//
// Structure:
//   - base.go: shared columns (BaseModel, AggregateModel, CompanyAggregateModel)
//   - identity.go: users
//   - company.go: customer companies
//   - order.go: freight orders and their status history
//   - shipment.go: tracked shipments and tracking events
//   - billing.go: bills, bill items and payments
//   - notification.go: in-app and WeChat notifications
package models
