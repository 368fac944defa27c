package valueobject

import "fmt"

// ---------------------------------------------------------------------------
// LoanStatus – immutable value object
// ---------------------------------------------------------------------------

// LoanStatus represents the lifecycle stage of a loan. A loan starts ACTIVE
// and moves at most once, to COMPLETED or DEFAULTED. CANCELLED is reserved.
type LoanStatus struct {
	value string
}

const (
	loanStatusActive    = "ACTIVE"
	loanStatusCompleted = "COMPLETED"
	loanStatusDefaulted = "DEFAULTED"
	loanStatusCancelled = "CANCELLED"
)

var (
	LoanStatusActive    = LoanStatus{value: loanStatusActive}
	LoanStatusCompleted = LoanStatus{value: loanStatusCompleted}
	LoanStatusDefaulted = LoanStatus{value: loanStatusDefaulted}
	LoanStatusCancelled = LoanStatus{value: loanStatusCancelled}
)

var validLoanStatuses = map[string]LoanStatus{
	loanStatusActive:    LoanStatusActive,
	loanStatusCompleted: LoanStatusCompleted,
	loanStatusDefaulted: LoanStatusDefaulted,
	loanStatusCancelled: LoanStatusCancelled,
}

// loanStatusOrder fixes the encoded ordinal of each status.
var loanStatusOrder = []LoanStatus{
	LoanStatusActive,
	LoanStatusCompleted,
	LoanStatusDefaulted,
	LoanStatusCancelled,
}

// NewLoanStatus creates a LoanStatus from a raw string.
func NewLoanStatus(s string) (LoanStatus, error) {
	v, ok := validLoanStatuses[s]
	if !ok {
		return LoanStatus{}, fmt.Errorf("invalid loan status: %q", s)
	}
	return v, nil
}

// LoanStatusFromOrdinal decodes the single-byte stored form.
func LoanStatusFromOrdinal(b uint8) (LoanStatus, error) {
	if int(b) >= len(loanStatusOrder) {
		return LoanStatus{}, fmt.Errorf("invalid loan status ordinal: %d", b)
	}
	return loanStatusOrder[b], nil
}

// Ordinal returns the single-byte stored form.
func (s LoanStatus) Ordinal() uint8 {
	switch s.value {
	case loanStatusActive:
		return 0
	case loanStatusCompleted:
		return 1
	case loanStatusDefaulted:
		return 2
	case loanStatusCancelled:
		return 3
	default:
		panic(fmt.Sprintf("loan status %q has no ordinal", s.value))
	}
}

// String returns the string representation of the status.
func (s LoanStatus) String() string { return s.value }

// IsZero returns true if the status has not been initialised.
func (s LoanStatus) IsZero() bool { return s.value == "" }

// Equal returns true when both statuses carry the same value.
func (s LoanStatus) Equal(other LoanStatus) bool { return s.value == other.value }

// IsTerminal reports whether no further transition is permitted.
func (s LoanStatus) IsTerminal() bool {
	switch s.value {
	case loanStatusCompleted, loanStatusDefaulted, loanStatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether the state machine permits s -> next.
func (s LoanStatus) CanTransitionTo(next LoanStatus) bool {
	if s.value != loanStatusActive {
		return false
	}
	return next.value == loanStatusCompleted || next.value == loanStatusDefaulted
}

