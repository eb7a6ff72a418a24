package shipment

// Status is the physical progress of a shipment
type Status string

const (
	StatusCreated   Status = "CREATED"
	StatusInTransit Status = "IN_TRANSIT"
	StatusArrived   Status = "ARRIVED"
	StatusDelivered Status = "DELIVERED"
)

var statusRank = map[Status]int{
	StatusCreated:   0,
	StatusInTransit: 1,
	StatusArrived:   2,
	StatusDelivered: 3,
}

// IsValid checks if the status is known
func (s Status) IsValid() bool {
	_, ok := statusRank[s]
	return ok
}

// IsAfter reports whether s is further along than other
func (s Status) IsAfter(other Status) bool {
	return statusRank[s] > statusRank[other]
}

// Milestone event codes reported by tracking providers
const (
	CodeGateOutEmpty  = "GATE_OUT_EMPTY"
	CodeGateIn        = "GATE_IN"
	CodeLoaded        = "LOADED"
	CodeDeparted      = "DEPARTED"
	CodeTransshipment = "TRANSSHIPMENT"
	CodeArrived       = "ARRIVED"
	CodeDischarged    = "DISCHARGED"
	CodeGateOutFull   = "GATE_OUT_FULL"
	CodeDelivered     = "DELIVERED"
	CodeEmptyReturned = "EMPTY_RETURNED"
)

// StatusForCode maps a milestone code to the status it implies
func StatusForCode(code string) (Status, bool) {
	switch code {
	case CodeGateIn, CodeLoaded, CodeDeparted, CodeTransshipment:
		return StatusInTransit, true
	case CodeArrived, CodeDischarged:
		return StatusArrived, true
	case CodeGateOutFull, CodeDelivered, CodeEmptyReturned:
		return StatusDelivered, true
	}
	return "", false
}
