// Package ledgererr defines the closed set of failure kinds a ledger
// transition can abort with. Each kind has a stable numeric code so that
// callers and stored audit trails can refer to it independently of the
// message text.
package ledgererr

import (
	"errors"
	"fmt"
)

// Kind identifies a class of ledger failure.
type Kind uint32

// The order of these constants is part of the wire contract: Code() derives
// from it. Append new kinds at the end.
const (
	KindUnauthorized Kind = iota
	KindProgramPaused
	KindUserAlreadyRegistered
	KindUserNotFound
	KindInvalidLoanAmount
	KindInvalidInterestRate
	KindInvalidTenure
	KindActiveLoanExists
	KindLoanNotFound
	KindLoanNotActive
	KindInvalidPaymentAmount
	KindInvalidInstallmentNumber
	KindInstallmentAlreadyPaid
	KindLoanAlreadyCompleted
	KindLoanAlreadyDefaulted
	KindInsufficientPayment
	KindPaymentTooEarly
	KindInvalidRiskScore
	KindInvalidDefaultProbability
	KindMathOverflow
	KindNameTooLong
	KindInvalidStringFormat
	KindLowCreditScore
	KindHighRiskUser
	KindIncomeTooLow
)

// codeBase is the first code assigned to a Kind.
const codeBase = 6000

var kindInfo = [...]struct {
	name    string
	message string
}{
	KindUnauthorized:              {"Unauthorized", "unauthorized access"},
	KindProgramPaused:             {"ProgramPaused", "program is paused"},
	KindUserAlreadyRegistered:     {"UserAlreadyRegistered", "user already registered"},
	KindUserNotFound:              {"UserNotFound", "user not found"},
	KindInvalidLoanAmount:         {"InvalidLoanAmount", "invalid loan amount"},
	KindInvalidInterestRate:       {"InvalidInterestRate", "invalid interest rate"},
	KindInvalidTenure:             {"InvalidTenure", "invalid tenure"},
	KindActiveLoanExists:          {"ActiveLoanExists", "user already has an active loan"},
	KindLoanNotFound:              {"LoanNotFound", "loan not found"},
	KindLoanNotActive:             {"LoanNotActive", "loan not active"},
	KindInvalidPaymentAmount:      {"InvalidPaymentAmount", "invalid payment amount"},
	KindInvalidInstallmentNumber:  {"InvalidInstallmentNumber", "invalid installment number"},
	KindInstallmentAlreadyPaid:    {"InstallmentAlreadyPaid", "installment already paid"},
	KindLoanAlreadyCompleted:      {"LoanAlreadyCompleted", "loan already completed"},
	KindLoanAlreadyDefaulted:      {"LoanAlreadyDefaulted", "loan already defaulted"},
	KindInsufficientPayment:       {"InsufficientPayment", "insufficient payment amount"},
	KindPaymentTooEarly:           {"PaymentTooEarly", "payment too early"},
	KindInvalidRiskScore:          {"InvalidRiskScore", "invalid risk score"},
	KindInvalidDefaultProbability: {"InvalidDefaultProbability", "invalid default probability"},
	KindMathOverflow:              {"MathOverflow", "calculation overflow"},
	KindNameTooLong:               {"NameTooLong", "name too long"},
	KindInvalidStringFormat:       {"InvalidStringFormat", "invalid string format"},
	KindLowCreditScore:            {"LowCreditScore", "low credit score"},
	KindHighRiskUser:              {"HighRiskUser", "high risk user"},
	KindIncomeTooLow:              {"IncomeTooLow", "income too low"},
}

// String returns the kind's name, e.g. "InsufficientPayment".
func (k Kind) String() string {
	if int(k) < len(kindInfo) {
		return kindInfo[k].name
	}
	return fmt.Sprintf("Kind(%d)", uint32(k))
}

// Code returns the stable numeric error code for the kind.
func (k Kind) Code() uint32 {
	return codeBase + uint32(k)
}

// Message returns the default human-readable description.
func (k Kind) Message() string {
	if int(k) < len(kindInfo) {
		return kindInfo[k].message
	}
	return "unknown ledger error"
}

// Kinds returns every defined kind in code order.
func Kinds() []Kind {
	out := make([]Kind, len(kindInfo))
	for i := range kindInfo {
		out[i] = Kind(i)
	}
	return out
}

// Error is a ledger failure of a particular kind, optionally carrying detail.
type Error struct {
	Kind   Kind
	Detail string
}

// New returns an error of kind k with no detail.
func New(k Kind) *Error {
	return &Error{Kind: k}
}

// Newf returns an error of kind k with a formatted detail message.
func Newf(k Kind, format string, args ...any) *Error {
	return &Error{Kind: k, Detail: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Kind.Message()
	}
	return e.Kind.Message() + ": " + e.Detail
}

// Is reports whether target is a ledger error of the same kind, so that
// errors.Is(err, ErrLoanNotActive) matches regardless of detail.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf extracts the ledger kind from err, unwrapping as needed.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// Sentinel values for use with errors.Is.
var (
	ErrUnauthorized              = New(KindUnauthorized)
	ErrProgramPaused             = New(KindProgramPaused)
	ErrUserAlreadyRegistered     = New(KindUserAlreadyRegistered)
	ErrUserNotFound              = New(KindUserNotFound)
	ErrInvalidLoanAmount         = New(KindInvalidLoanAmount)
	ErrInvalidInterestRate       = New(KindInvalidInterestRate)
	ErrInvalidTenure             = New(KindInvalidTenure)
	ErrActiveLoanExists          = New(KindActiveLoanExists)
	ErrLoanNotFound              = New(KindLoanNotFound)
	ErrLoanNotActive             = New(KindLoanNotActive)
	ErrInvalidPaymentAmount      = New(KindInvalidPaymentAmount)
	ErrInvalidInstallmentNumber  = New(KindInvalidInstallmentNumber)
	ErrInstallmentAlreadyPaid    = New(KindInstallmentAlreadyPaid)
	ErrLoanAlreadyCompleted      = New(KindLoanAlreadyCompleted)
	ErrLoanAlreadyDefaulted      = New(KindLoanAlreadyDefaulted)
	ErrInsufficientPayment       = New(KindInsufficientPayment)
	ErrPaymentTooEarly           = New(KindPaymentTooEarly)
	ErrInvalidRiskScore          = New(KindInvalidRiskScore)
	ErrInvalidDefaultProbability = New(KindInvalidDefaultProbability)
	ErrMathOverflow              = New(KindMathOverflow)
	ErrNameTooLong               = New(KindNameTooLong)
	ErrInvalidStringFormat       = New(KindInvalidStringFormat)
	ErrLowCreditScore            = New(KindLowCreditScore)
	ErrHighRiskUser              = New(KindHighRiskUser)
	ErrIncomeTooLow              = New(KindIncomeTooLow)
)
