package order

import (
	"regexp"
	"strings"
	"time"

	"github.com/freightport/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ServiceType is the mode of transport booked
type ServiceType string

const (
	ServiceSeaFCL ServiceType = "SEA_FCL"
	ServiceSeaLCL ServiceType = "SEA_LCL"
	ServiceAir    ServiceType = "AIR"
	ServiceRail   ServiceType = "RAIL"
	ServiceTruck  ServiceType = "TRUCK"
)

// IsValid checks if the service type is known
func (t ServiceType) IsValid() bool {
	switch t {
	case ServiceSeaFCL, ServiceSeaLCL, ServiceAir, ServiceRail, ServiceTruck:
		return true
	}
	return false
}

// ContainerType is an ISO container size/type code
type ContainerType string

const (
	Container20GP ContainerType = "20GP"
	Container40GP ContainerType = "40GP"
	Container40HQ ContainerType = "40HQ"
	Container45HQ ContainerType = "45HQ"
	Container20RF ContainerType = "20RF"
	Container40RF ContainerType = "40RF"
	ContainerNone ContainerType = "NONE"
)

// IsValid checks if the container type is known
func (c ContainerType) IsValid() bool {
	switch c {
	case Container20GP, Container40GP, Container40HQ, Container45HQ, Container20RF, Container40RF, ContainerNone:
		return true
	}
	return false
}

var (
	unlocodePattern = regexp.MustCompile(`^[A-Z]{2}[A-Z2-9]{3}$`)
	incoterms       = map[string]bool{
		"EXW": true, "FCA": true, "FAS": true, "FOB": true, "CFR": true, "CIF": true,
		"CPT": true, "CIP": true, "DAP": true, "DPU": true, "DDP": true,
	}
)

// IsUNLocode reports whether code looks like a UN/LOCODE (e.g. CNSHA)
func IsUNLocode(code string) bool {
	return unlocodePattern.MatchString(code)
}

// Cargo holds the customer-editable booking details of an order
type Cargo struct {
	ServiceType      ServiceType
	OriginPort       string
	DestinationPort  string
	CargoDescription string
	ContainerType    ContainerType
	ContainerQty     int
	GrossWeightKg    decimal.Decimal
	VolumeCBM        decimal.Decimal
	Incoterm         string
	CargoReadyDate   *time.Time
	Remark           string
}

// Normalize upper-cases codes and trims free text
func (c Cargo) Normalize() Cargo {
	c.OriginPort = strings.ToUpper(strings.TrimSpace(c.OriginPort))
	c.DestinationPort = strings.ToUpper(strings.TrimSpace(c.DestinationPort))
	c.CargoDescription = strings.TrimSpace(c.CargoDescription)
	c.Incoterm = strings.ToUpper(strings.TrimSpace(c.Incoterm))
	c.Remark = strings.TrimSpace(c.Remark)
	if c.ContainerType == "" {
		c.ContainerType = ContainerNone
	}
	return c
}

// Validate checks the booking details
func (c Cargo) Validate() error {
	if !c.ServiceType.IsValid() {
		return shared.NewDomainError("INVALID_SERVICE_TYPE", "Unknown service type")
	}
	if !IsUNLocode(c.OriginPort) || !IsUNLocode(c.DestinationPort) {
		return shared.NewDomainError("INVALID_PORT", "Ports must be 5 character UN/LOCODEs")
	}
	if c.OriginPort == c.DestinationPort {
		return shared.NewDomainError("INVALID_PORT", "Origin and destination must differ")
	}
	if c.CargoDescription == "" {
		return shared.NewDomainError("INVALID_CARGO", "Cargo description is required")
	}
	if len(c.CargoDescription) > 500 {
		return shared.NewDomainError("INVALID_CARGO", "Cargo description cannot exceed 500 characters")
	}
	if !c.ContainerType.IsValid() {
		return shared.NewDomainError("INVALID_CONTAINER", "Unknown container type")
	}
	if c.ServiceType == ServiceSeaFCL {
		if c.ContainerType == ContainerNone || c.ContainerQty < 1 {
			return shared.NewDomainError("INVALID_CONTAINER", "FCL orders need a container type and quantity")
		}
	}
	if c.ContainerQty < 0 {
		return shared.NewDomainError("INVALID_CONTAINER", "Container quantity cannot be negative")
	}
	if !c.GrossWeightKg.IsPositive() {
		return shared.NewDomainError("INVALID_WEIGHT", "Gross weight must be positive")
	}
	if c.VolumeCBM.IsNegative() {
		return shared.NewDomainError("INVALID_VOLUME", "Volume cannot be negative")
	}
	if c.Incoterm != "" && !incoterms[c.Incoterm] {
		return shared.NewDomainError("INVALID_INCOTERM", "Unknown incoterm")
	}
	return nil
}
