package model

import (
	"encoding"
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/microloan/internal/domain/valueobject"
)

// Bounds shared by validation and the record encoding.
const (
	MaxNameLen         = 100
	MaxPaymentProofLen = 100

	MinCreditScore     uint16 = 300
	MaxCreditScore     uint16 = 850
	InitialCreditScore uint16 = 500

	MaxRiskScore          uint16 = 1000
	MaxDefaultProbability uint16 = 10000
	RiskFactorsCount      uint8  = 5
)

// Record is implemented by every persisted ledger record.
type Record interface {
	RecordKind() RecordKind
	encoding.BinaryMarshaler
}

// ProgramState is the singleton holding program-wide aggregates.
type ProgramState struct {
	Authority     uuid.UUID
	TotalUsers    uint64
	TotalLoans    uint64
	TotalVolume   uint64
	FeePercentage uint16 // hundredths of a percent
	Paused        bool
}

// UserProfile is a registered borrower with aggregate counters.
type UserProfile struct {
	Authority      uuid.UUID
	FullName       string
	MonthlyIncome  uint64
	EmploymentType valueobject.EmploymentType
	TotalLoans     uint16
	ActiveLoans    uint8
	CompletedLoans uint16
	DefaultedLoans uint8
	TotalBorrowed  uint64
	TotalRepaid    uint64
	OnTimePayments uint16
	LatePayments   uint16
	MissedPayments uint16
	CreditScore    uint16
	RiskLevel      valueobject.RiskLevel
	RegisteredAt   time.Time
	LastUpdated    time.Time
}

// Loan is one origination. OutstandingBalance starts at TotalAmount and
// only decreases.
type Loan struct {
	Borrower           uuid.UUID
	LoanID             uint64
	PrincipalAmount    uint64
	InterestRate       uint16 // basis points per annum
	TenureMonths       uint8
	MonthlyInstallment uint64
	TotalAmount        uint64
	OutstandingBalance uint64
	TotalRepaid        uint64
	TotalFines         uint64
	StartAt            time.Time
	EndAt              time.Time
	Status             valueobject.LoanStatus
	CreatedAt          time.Time
	CompletedAt        *time.Time
	DefaultedAt        *time.Time
}

// Key returns the logical key this loan is stored under.
func (l Loan) Key() Key { return LoanKey(l.Borrower, l.LoanID) }

// PaymentRecord is the receipt for a single installment.
type PaymentRecord struct {
	Borrower          uuid.UUID
	LoanID            uint64
	InstallmentNumber uint8
	Amount            uint64
	FineAmount        uint64
	PaidAt            time.Time
	PaymentProof      string
	OnTime            bool
	DaysLate          uint16
	FineWaived        uint64 // appended in record version 2
}

// Key returns the logical key this payment is stored under.
func (p PaymentRecord) Key() Key { return PaymentKey(p.Borrower, p.LoanID, p.InstallmentNumber) }

// RemainingFine is the part of FineAmount not yet waived.
func (p PaymentRecord) RemainingFine() uint64 {
	if p.FineWaived >= p.FineAmount {
		return 0
	}
	return p.FineAmount - p.FineWaived
}

// RiskProfile is the latest administrator risk assessment for a borrower.
type RiskProfile struct {
	User               uuid.UUID
	RiskScore          uint16
	RiskLevel          valueobject.RiskLevel
	DefaultProbability uint16 // basis points
	RecommendedMaxLoan uint64
	LastCalculated     time.Time
	FactorsCount       uint8
}

func (ProgramState) RecordKind() RecordKind  { return KindProgramState }
func (UserProfile) RecordKind() RecordKind   { return KindUserProfile }
func (Loan) RecordKind() RecordKind          { return KindLoan }
func (PaymentRecord) RecordKind() RecordKind { return KindPaymentRecord }
func (RiskProfile) RecordKind() RecordKind   { return KindRiskProfile }
