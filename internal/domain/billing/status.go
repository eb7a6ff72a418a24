package billing

// Status represents the payment lifecycle of a bill
type Status string

const (
	StatusDraft       Status = "DRAFT"
	StatusIssued      Status = "ISSUED"
	StatusPartialPaid Status = "PARTIAL_PAID"
	StatusPaid        Status = "PAID"
	StatusOverdue     Status = "OVERDUE"
	StatusCancelled   Status = "CANCELLED"
)

// AllStatuses lists every bill status
func AllStatuses() []Status {
	return []Status{
		StatusDraft,
		StatusIssued,
		StatusPartialPaid,
		StatusPaid,
		StatusOverdue,
		StatusCancelled,
	}
}

// IsValid checks if the status is a valid Status
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusIssued, StatusPartialPaid, StatusPaid, StatusOverdue, StatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusDraft:
		return target == StatusIssued || target == StatusCancelled
	case StatusIssued:
		return target == StatusPartialPaid || target == StatusPaid || target == StatusOverdue || target == StatusCancelled
	case StatusPartialPaid:
		return target == StatusPaid || target == StatusOverdue
	case StatusOverdue:
		return target == StatusPaid
	}
	return false
}

// AcceptsPayment reports whether payments can be recorded in this status
func (s Status) AcceptsPayment() bool {
	return s == StatusIssued || s == StatusPartialPaid || s == StatusOverdue
}

// IsOutstanding reports whether money is still expected
func (s Status) IsOutstanding() bool {
	return s.AcceptsPayment()
}
