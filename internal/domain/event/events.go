package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/microloan/pkg/events"
)

// DomainEvent is an alias for the shared pkg/events.DomainEvent interface.
type DomainEvent = events.DomainEvent

// Event type names as published on the wire.
const (
	TypeProgramInitialized = "microloan.program.initialized"
	TypeProgramPauseSet    = "microloan.program.pause_set"
	TypeUserRegistered     = "microloan.user.registered"
	TypeUserProfileUpdated = "microloan.user.profile_updated"
	TypeLoanCreated        = "microloan.loan.created"
	TypePaymentRecorded    = "microloan.payment.recorded"
	TypeRiskScoreUpdated   = "microloan.risk_score.updated"
	TypeLoanDefaulted      = "microloan.loan.defaulted"
	TypeLoanCompleted      = "microloan.loan.completed"
	TypeFineWaived         = "microloan.fine.waived"
)

const (
	aggregateProgram = "program"
	aggregateUser    = "user_profile"
	aggregateLoan    = "loan"
	aggregateRisk    = "risk_profile"
)

// ---------------------------------------------------------------------------
// Program Events
// ---------------------------------------------------------------------------

// ProgramInitialized is raised once, when the program state is created.
type ProgramInitialized struct {
	events.BaseEvent
	Authority     uuid.UUID `json:"authority"`
	FeePercentage uint16    `json:"fee_percentage"`
}

func NewProgramInitialized(key string, authority uuid.UUID, fee uint16, at time.Time) ProgramInitialized {
	return ProgramInitialized{
		BaseEvent:     events.NewBaseEvent(TypeProgramInitialized, key, aggregateProgram, at),
		Authority:     authority,
		FeePercentage: fee,
	}
}

// ProgramPauseSet is raised when the administrator pauses or resumes the program.
type ProgramPauseSet struct {
	events.BaseEvent
	Paused bool      `json:"paused"`
	SetBy  uuid.UUID `json:"set_by"`
}

func NewProgramPauseSet(key string, paused bool, by uuid.UUID, at time.Time) ProgramPauseSet {
	return ProgramPauseSet{
		BaseEvent: events.NewBaseEvent(TypeProgramPauseSet, key, aggregateProgram, at),
		Paused:    paused,
		SetBy:     by,
	}
}

// ---------------------------------------------------------------------------
// User Events
// ---------------------------------------------------------------------------

// UserRegistered is raised when a borrower profile is created.
type UserRegistered struct {
	events.BaseEvent
	User           uuid.UUID `json:"user"`
	FullName       string    `json:"full_name"`
	MonthlyIncome  uint64    `json:"monthly_income"`
	EmploymentType string    `json:"employment_type"`
}

func NewUserRegistered(key string, user uuid.UUID, name string, income uint64, employment string, at time.Time) UserRegistered {
	return UserRegistered{
		BaseEvent:      events.NewBaseEvent(TypeUserRegistered, key, aggregateUser, at),
		User:           user,
		FullName:       name,
		MonthlyIncome:  income,
		EmploymentType: employment,
	}
}

// UserProfileUpdated is raised when a borrower changes income or employment.
type UserProfileUpdated struct {
	events.BaseEvent
	User           uuid.UUID `json:"user"`
	MonthlyIncome  uint64    `json:"monthly_income"`
	EmploymentType string    `json:"employment_type"`
}

func NewUserProfileUpdated(key string, user uuid.UUID, income uint64, employment string, at time.Time) UserProfileUpdated {
	return UserProfileUpdated{
		BaseEvent:      events.NewBaseEvent(TypeUserProfileUpdated, key, aggregateUser, at),
		User:           user,
		MonthlyIncome:  income,
		EmploymentType: employment,
	}
}

// RiskScoreUpdated is raised on every administrator risk assessment.
type RiskScoreUpdated struct {
	events.BaseEvent
	User               uuid.UUID `json:"user"`
	OldScore           uint16    `json:"old_score"`
	NewScore           uint16    `json:"new_score"`
	RiskLevel          string    `json:"risk_level"`
	DefaultProbability uint16    `json:"default_probability"`
}

func NewRiskScoreUpdated(key string, user uuid.UUID, oldScore, newScore uint16, level string, prob uint16, at time.Time) RiskScoreUpdated {
	return RiskScoreUpdated{
		BaseEvent:          events.NewBaseEvent(TypeRiskScoreUpdated, key, aggregateRisk, at),
		User:               user,
		OldScore:           oldScore,
		NewScore:           newScore,
		RiskLevel:          level,
		DefaultProbability: prob,
	}
}

// ---------------------------------------------------------------------------
// Loan Events
// ---------------------------------------------------------------------------

// LoanCreated is raised when a loan is originated.
type LoanCreated struct {
	events.BaseEvent
	LoanID             uint64    `json:"loan_id"`
	User               uuid.UUID `json:"user"`
	PrincipalAmount    uint64    `json:"principal_amount"`
	InterestRate       uint16    `json:"interest_rate"`
	TenureMonths       uint8     `json:"tenure_months"`
	MonthlyInstallment uint64    `json:"monthly_installment"`
	TotalAmount        uint64    `json:"total_amount"`
	StartAt            time.Time `json:"start_timestamp"`
	EndAt              time.Time `json:"end_timestamp"`
}

// LoanCreatedFields groups the loan terms carried by LoanCreated.
type LoanCreatedFields struct {
	LoanID             uint64
	User               uuid.UUID
	PrincipalAmount    uint64
	InterestRate       uint16
	TenureMonths       uint8
	MonthlyInstallment uint64
	TotalAmount        uint64
	StartAt            time.Time
	EndAt              time.Time
}

func NewLoanCreated(key string, f LoanCreatedFields, at time.Time) LoanCreated {
	return LoanCreated{
		BaseEvent:          events.NewBaseEvent(TypeLoanCreated, key, aggregateLoan, at),
		LoanID:             f.LoanID,
		User:               f.User,
		PrincipalAmount:    f.PrincipalAmount,
		InterestRate:       f.InterestRate,
		TenureMonths:       f.TenureMonths,
		MonthlyInstallment: f.MonthlyInstallment,
		TotalAmount:        f.TotalAmount,
		StartAt:            f.StartAt,
		EndAt:              f.EndAt,
	}
}

// PaymentRecorded is raised for each installment payment.
type PaymentRecorded struct {
	events.BaseEvent
	LoanID            uint64    `json:"loan_id"`
	User              uuid.UUID `json:"user"`
	InstallmentNumber uint8     `json:"installment_number"`
	Amount            uint64    `json:"amount"`
	FineAmount        uint64    `json:"fine_amount"`
	OnTime            bool      `json:"on_time"`
	DaysLate          uint16    `json:"days_late"`
}

func NewPaymentRecorded(key string, loanID uint64, user uuid.UUID, installment uint8, amount, fine uint64, onTime bool, daysLate uint16, at time.Time) PaymentRecorded {
	return PaymentRecorded{
		BaseEvent:         events.NewBaseEvent(TypePaymentRecorded, key, aggregateLoan, at),
		LoanID:            loanID,
		User:              user,
		InstallmentNumber: installment,
		Amount:            amount,
		FineAmount:        fine,
		OnTime:            onTime,
		DaysLate:          daysLate,
	}
}

// LoanDefaulted is raised when the administrator marks a loan defaulted.
type LoanDefaulted struct {
	events.BaseEvent
	LoanID             uint64    `json:"loan_id"`
	User               uuid.UUID `json:"user"`
	OutstandingBalance uint64    `json:"outstanding_balance"`
	TotalFines         uint64    `json:"total_fines"`
}

func NewLoanDefaulted(key string, loanID uint64, user uuid.UUID, outstanding, fines uint64, at time.Time) LoanDefaulted {
	return LoanDefaulted{
		BaseEvent:          events.NewBaseEvent(TypeLoanDefaulted, key, aggregateLoan, at),
		LoanID:             loanID,
		User:               user,
		OutstandingBalance: outstanding,
		TotalFines:         fines,
	}
}

// LoanCompleted is raised when a fully repaid loan is closed.
type LoanCompleted struct {
	events.BaseEvent
	LoanID      uint64    `json:"loan_id"`
	User        uuid.UUID `json:"user"`
	TotalRepaid uint64    `json:"total_repaid"`
}

func NewLoanCompleted(key string, loanID uint64, user uuid.UUID, repaid uint64, at time.Time) LoanCompleted {
	return LoanCompleted{
		BaseEvent:   events.NewBaseEvent(TypeLoanCompleted, key, aggregateLoan, at),
		LoanID:      loanID,
		User:        user,
		TotalRepaid: repaid,
	}
}

// FineWaived is raised when the administrator forgives part of a late fine.
type FineWaived struct {
	events.BaseEvent
	LoanID            uint64    `json:"loan_id"`
	User              uuid.UUID `json:"user"`
	InstallmentNumber uint8     `json:"installment_number"`
	WaivedAmount      uint64    `json:"waived_amount"`
	WaivedBy          uuid.UUID `json:"waived_by"`
}

func NewFineWaived(key string, loanID uint64, user uuid.UUID, installment uint8, waived uint64, by uuid.UUID, at time.Time) FineWaived {
	return FineWaived{
		BaseEvent:         events.NewBaseEvent(TypeFineWaived, key, aggregateLoan, at),
		LoanID:            loanID,
		User:              user,
		InstallmentNumber: installment,
		WaivedAmount:      waived,
		WaivedBy:          by,
	}
}
