package order

import (
	"time"

	"github.com/freightport/backend/internal/domain/order"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CargoInput carries the customer-editable booking fields
type CargoInput struct {
	ServiceType      string
	OriginPort       string
	DestinationPort  string
	CargoDescription string
	ContainerType    string
	ContainerQty     int
	GrossWeightKg    decimal.Decimal
	VolumeCBM        decimal.Decimal
	Incoterm         string
	CargoReadyDate   *time.Time
	Remark           string
}

func (in CargoInput) toCargo() order.Cargo {
	return order.Cargo{
		ServiceType:      order.ServiceType(in.ServiceType),
		OriginPort:       in.OriginPort,
		DestinationPort:  in.DestinationPort,
		CargoDescription: in.CargoDescription,
		ContainerType:    order.ContainerType(in.ContainerType),
		ContainerQty:     in.ContainerQty,
		GrossWeightKg:    in.GrossWeightKg,
		VolumeCBM:        in.VolumeCBM,
		Incoterm:         in.Incoterm,
		CargoReadyDate:   in.CargoReadyDate,
		Remark:           in.Remark,
	}
}

// CreateOrderInput contains input for booking an order. Staff pass the
// company; customers always book for their own.
type CreateOrderInput struct {
	CompanyID *uuid.UUID
	Cargo     CargoInput
}

// OrderDTO is the order representation returned to callers
type OrderDTO struct {
	ID               uuid.UUID       `json:"id"`
	OrderNumber      string          `json:"order_number"`
	CompanyID        uuid.UUID       `json:"company_id"`
	CreatedBy        *uuid.UUID      `json:"created_by,omitempty"`
	ServiceType      string          `json:"service_type"`
	OriginPort       string          `json:"origin_port"`
	DestinationPort  string          `json:"destination_port"`
	CargoDescription string          `json:"cargo_description"`
	ContainerType    string          `json:"container_type"`
	ContainerQty     int             `json:"container_qty"`
	GrossWeightKg    decimal.Decimal `json:"gross_weight_kg"`
	VolumeCBM        decimal.Decimal `json:"volume_cbm"`
	Incoterm         string          `json:"incoterm,omitempty"`
	CargoReadyDate   *time.Time      `json:"cargo_ready_date,omitempty"`
	QuotedAmount     decimal.Decimal `json:"quoted_amount"`
	Currency         string          `json:"currency,omitempty"`
	CreditReserved   decimal.Decimal `json:"credit_reserved"`
	Remark           string          `json:"remark,omitempty"`
	Status           string          `json:"status"`
	RejectReason     string          `json:"reject_reason,omitempty"`
	CancelReason     string          `json:"cancel_reason,omitempty"`
	ConfirmedAt      *time.Time      `json:"confirmed_at,omitempty"`
	StartedAt        *time.Time      `json:"started_at,omitempty"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`
	CancelledAt      *time.Time      `json:"cancelled_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	Version          int             `json:"version"`
}

// StatusChangeDTO is one status history entry
type StatusChangeDTO struct {
	From       string     `json:"from"`
	To         string     `json:"to"`
	Reason     string     `json:"reason,omitempty"`
	OperatorID *uuid.UUID `json:"operator_id,omitempty"`
	At         time.Time  `json:"at"`
}

// ToOrderDTO converts an order aggregate to its DTO
func ToOrderDTO(o *order.Order) OrderDTO {
	return OrderDTO{
		ID:               o.ID,
		OrderNumber:      o.OrderNumber,
		CompanyID:        o.CompanyID,
		CreatedBy:        o.CreatedBy,
		ServiceType:      string(o.ServiceType),
		OriginPort:       o.OriginPort,
		DestinationPort:  o.DestinationPort,
		CargoDescription: o.CargoDescription,
		ContainerType:    string(o.ContainerType),
		ContainerQty:     o.ContainerQty,
		GrossWeightKg:    o.GrossWeightKg,
		VolumeCBM:        o.VolumeCBM,
		Incoterm:         o.Incoterm,
		CargoReadyDate:   o.CargoReadyDate,
		QuotedAmount:     o.QuotedAmount,
		Currency:         o.Currency,
		CreditReserved:   o.CreditReserved,
		Remark:           o.Remark,
		Status:           string(o.Status),
		RejectReason:     o.RejectReason,
		CancelReason:     o.CancelReason,
		ConfirmedAt:      o.ConfirmedAt,
		StartedAt:        o.StartedAt,
		CompletedAt:      o.CompletedAt,
		CancelledAt:      o.CancelledAt,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
		Version:          o.Version,
	}
}

func toStatusChangeDTOs(history []order.StatusChange) []StatusChangeDTO {
	out := make([]StatusChangeDTO, len(history))
	for i, h := range history {
		out[i] = StatusChangeDTO{
			From:       string(h.FromStatus),
			To:         string(h.ToStatus),
			Reason:     h.Reason,
			OperatorID: h.OperatorID,
			At:         h.ChangedAt,
		}
	}
	return out
}
