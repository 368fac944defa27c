package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bibbank/microloan/internal/domain/model"
	"github.com/bibbank/microloan/internal/domain/service"
	"github.com/bibbank/microloan/pkg/money"
)

// ---------------------------------------------------------------------------
// Request DTOs
// ---------------------------------------------------------------------------

// Every mutating request carries Caller, the authenticated identity that
// signed it.

// InitializeRequest creates the program with the caller as authority.
type InitializeRequest struct {
	Caller        uuid.UUID `json:"-"`
	FeePercentage uint16    `json:"fee_percentage"`
}

// SetPausedRequest toggles the program pause flag.
type SetPausedRequest struct {
	Caller uuid.UUID `json:"-"`
	Paused bool      `json:"paused"`
}

// RegisterUserRequest registers the caller as a borrower.
type RegisterUserRequest struct {
	Caller         uuid.UUID `json:"-"`
	FullName       string    `json:"full_name"`
	EmploymentType string    `json:"employment_type"`
	MonthlyIncome  uint64    `json:"monthly_income"`
}

// UpdateUserProfileRequest changes the caller's income and/or employment.
type UpdateUserProfileRequest struct {
	Caller         uuid.UUID `json:"-"`
	MonthlyIncome  *uint64   `json:"monthly_income,omitempty"`
	EmploymentType *string   `json:"employment_type,omitempty"`
}

// CreateLoanRequest originates a loan for Borrower.
type CreateLoanRequest struct {
	Caller          uuid.UUID `json:"-"`
	Borrower        uuid.UUID `json:"borrower"`
	StartTimestamp  int64     `json:"start_timestamp,omitempty"`
	PrincipalAmount uint64    `json:"principal_amount"`
	InterestRate    uint16    `json:"interest_rate"`
	TenureMonths    uint8     `json:"tenure_months"`
}

// LoanRef identifies a loan.
type LoanRef struct {
	Borrower uuid.UUID `json:"borrower"`
	LoanID   uint64    `json:"loan_id"`
}

// RecordPaymentRequest pays one installment of a loan.
type RecordPaymentRequest struct {
	Caller            uuid.UUID `json:"-"`
	PaymentProof      string    `json:"payment_proof"`
	Loan              LoanRef   `json:"loan"`
	Amount            uint64    `json:"amount"`
	InstallmentNumber uint8     `json:"installment_number"`
}

// CloseLoanRequest marks a loan completed or defaulted.
type CloseLoanRequest struct {
	Caller uuid.UUID `json:"-"`
	Loan   LoanRef   `json:"loan"`
}

// WaiveFineRequest forgives part of an installment's fine.
type WaiveFineRequest struct {
	Caller            uuid.UUID `json:"-"`
	Loan              LoanRef   `json:"loan"`
	WaivedAmount      uint64    `json:"waived_amount"`
	InstallmentNumber uint8     `json:"installment_number"`
}

// UpdateRiskScoreRequest records an administrator risk assessment.
type UpdateRiskScoreRequest struct {
	Caller             uuid.UUID `json:"-"`
	User               uuid.UUID `json:"user"`
	RiskLevel          string    `json:"risk_level"`
	RiskScore          uint16    `json:"risk_score"`
	DefaultProbability uint16    `json:"default_probability"`
}

// GetUserRequest identifies a borrower.
type GetUserRequest struct {
	User uuid.UUID `json:"user"`
}

// GetPaymentRequest identifies one installment payment.
type GetPaymentRequest struct {
	Loan              LoanRef `json:"loan"`
	InstallmentNumber uint8   `json:"installment_number"`
}

// ---------------------------------------------------------------------------
// Response DTOs
// ---------------------------------------------------------------------------

// ProgramResponse is the external representation of the program state.
type ProgramResponse struct {
	Authority     string `json:"authority"`
	TotalUsers    uint64 `json:"total_users"`
	TotalLoans    uint64 `json:"total_loans"`
	TotalVolume   uint64 `json:"total_volume"`
	FeePercentage uint16 `json:"fee_percentage"`
	Paused        bool   `json:"paused"`
}

// UserProfileResponse is the external representation of a borrower.
type UserProfileResponse struct {
	Authority      string    `json:"authority"`
	FullName       string    `json:"full_name"`
	MonthlyIncome  uint64    `json:"monthly_income"`
	EmploymentType string    `json:"employment_type"`
	TotalLoans     uint16    `json:"total_loans"`
	ActiveLoans    uint8     `json:"active_loans"`
	CompletedLoans uint16    `json:"completed_loans"`
	DefaultedLoans uint8     `json:"defaulted_loans"`
	TotalBorrowed  uint64    `json:"total_borrowed"`
	TotalRepaid    uint64    `json:"total_repaid"`
	OnTimePayments uint16    `json:"on_time_payments"`
	LatePayments   uint16    `json:"late_payments"`
	MissedPayments uint16    `json:"missed_payments"`
	CreditScore    uint16    `json:"credit_score"`
	RiskLevel      string    `json:"risk_level"`
	RegisteredAt   time.Time `json:"registered_at"`
	LastUpdated    time.Time `json:"last_updated"`
}

// LoanResponse is the external representation of a loan.
type LoanResponse struct {
	Borrower           string      `json:"borrower"`
	LoanID             uint64      `json:"loan_id"`
	PrincipalAmount    uint64      `json:"principal_amount"`
	InterestRate       uint16      `json:"interest_rate"`
	TenureMonths       uint8       `json:"tenure_months"`
	MonthlyInstallment uint64      `json:"monthly_installment"`
	TotalAmount        uint64      `json:"total_amount"`
	OutstandingBalance uint64      `json:"outstanding_balance"`
	TotalRepaid        uint64      `json:"total_repaid"`
	TotalFines         uint64      `json:"total_fines"`
	StartAt            time.Time   `json:"start_timestamp"`
	EndAt              time.Time   `json:"end_timestamp"`
	Status             string      `json:"status"`
	CreatedAt          time.Time   `json:"created_at"`
	CompletedAt        *time.Time  `json:"completed_at,omitempty"`
	DefaultedAt        *time.Time  `json:"defaulted_at,omitempty"`
	Display            LoanAmounts `json:"display"`
}

// LoanAmounts repeats the loan's balances in major units.
type LoanAmounts struct {
	Principal   money.Amount `json:"principal"`
	Installment money.Amount `json:"monthly_installment"`
	Total       money.Amount `json:"total"`
	Outstanding money.Amount `json:"outstanding"`
	Repaid      money.Amount `json:"repaid"`
	Fines       money.Amount `json:"fines"`
}

// PaymentResponse is the external representation of a payment record.
type PaymentResponse struct {
	Borrower          string    `json:"borrower"`
	LoanID            uint64    `json:"loan_id"`
	InstallmentNumber uint8     `json:"installment_number"`
	Amount            uint64    `json:"amount"`
	FineAmount        uint64    `json:"fine_amount"`
	FineWaived        uint64    `json:"fine_waived"`
	PaidAt            time.Time `json:"paid_at"`
	PaymentProof      string    `json:"payment_proof"`
	OnTime            bool      `json:"on_time"`
	DaysLate          uint16    `json:"days_late"`
}

// RecordPaymentResponse reports the payment and the loan after it.
type RecordPaymentResponse struct {
	Payment PaymentResponse `json:"payment"`
	Loan    LoanResponse    `json:"loan"`
}

// RiskProfileResponse is the external representation of a risk profile.
type RiskProfileResponse struct {
	User               string    `json:"user"`
	RiskScore          uint16    `json:"risk_score"`
	RiskLevel          string    `json:"risk_level"`
	DefaultProbability uint16    `json:"default_probability"`
	RecommendedMaxLoan uint64    `json:"recommended_max_loan"`
	LastCalculated     time.Time `json:"last_calculated"`
	FactorsCount       uint8     `json:"factors_count"`
}

// CreditScoreResponse summarizes a borrower's credit standing.
type CreditScoreResponse struct {
	User           string `json:"user"`
	CreditScore    uint16 `json:"credit_score"`
	RiskLevel      string `json:"risk_level"`
	OnTimePayments uint16 `json:"on_time_payments"`
	LatePayments   uint16 `json:"late_payments"`
	CompletedLoans uint16 `json:"completed_loans"`
	DefaultedLoans uint8  `json:"defaulted_loans"`
}

// ScheduleEntryResponse is one period of an amortization breakdown.
type ScheduleEntryResponse struct {
	Period           int             `json:"period"`
	DueDate          time.Time       `json:"due_date"`
	Payment          decimal.Decimal `json:"payment"`
	Principal        decimal.Decimal `json:"principal"`
	Interest         decimal.Decimal `json:"interest"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	AmountDue        money.Amount    `json:"amount_due"`
	Paid             bool            `json:"paid"`
}

// AmortizationScheduleResponse is the full breakdown of a loan.
type AmortizationScheduleResponse struct {
	Loan    LoanResponse            `json:"loan"`
	Entries []ScheduleEntryResponse `json:"entries"`
}

// ---------------------------------------------------------------------------
// Mappers
// ---------------------------------------------------------------------------

// ToProgramResponse maps the program record.
func ToProgramResponse(p model.ProgramState) ProgramResponse {
	return ProgramResponse{
		Authority:     p.Authority.String(),
		TotalUsers:    p.TotalUsers,
		TotalLoans:    p.TotalLoans,
		TotalVolume:   p.TotalVolume,
		FeePercentage: p.FeePercentage,
		Paused:        p.Paused,
	}
}

// ToUserProfileResponse maps a borrower record.
func ToUserProfileResponse(u model.UserProfile) UserProfileResponse {
	return UserProfileResponse{
		Authority:      u.Authority.String(),
		FullName:       u.FullName,
		MonthlyIncome:  u.MonthlyIncome,
		EmploymentType: u.EmploymentType.String(),
		TotalLoans:     u.TotalLoans,
		ActiveLoans:    u.ActiveLoans,
		CompletedLoans: u.CompletedLoans,
		DefaultedLoans: u.DefaultedLoans,
		TotalBorrowed:  u.TotalBorrowed,
		TotalRepaid:    u.TotalRepaid,
		OnTimePayments: u.OnTimePayments,
		LatePayments:   u.LatePayments,
		MissedPayments: u.MissedPayments,
		CreditScore:    u.CreditScore,
		RiskLevel:      u.RiskLevel.String(),
		RegisteredAt:   u.RegisteredAt,
		LastUpdated:    u.LastUpdated,
	}
}

// ToLoanResponse maps a loan record.
func ToLoanResponse(l model.Loan) LoanResponse {
	return LoanResponse{
		Borrower:           l.Borrower.String(),
		LoanID:             l.LoanID,
		PrincipalAmount:    l.PrincipalAmount,
		InterestRate:       l.InterestRate,
		TenureMonths:       l.TenureMonths,
		MonthlyInstallment: l.MonthlyInstallment,
		TotalAmount:        l.TotalAmount,
		OutstandingBalance: l.OutstandingBalance,
		TotalRepaid:        l.TotalRepaid,
		TotalFines:         l.TotalFines,
		StartAt:            l.StartAt,
		EndAt:              l.EndAt,
		Status:             l.Status.String(),
		CreatedAt:          l.CreatedAt,
		CompletedAt:        l.CompletedAt,
		DefaultedAt:        l.DefaultedAt,
		Display: LoanAmounts{
			Principal:   money.Amount(l.PrincipalAmount),
			Installment: money.Amount(l.MonthlyInstallment),
			Total:       money.Amount(l.TotalAmount),
			Outstanding: money.Amount(l.OutstandingBalance),
			Repaid:      money.Amount(l.TotalRepaid),
			Fines:       money.Amount(l.TotalFines),
		},
	}
}

// ToPaymentResponse maps a payment record.
func ToPaymentResponse(p model.PaymentRecord) PaymentResponse {
	return PaymentResponse{
		Borrower:          p.Borrower.String(),
		LoanID:            p.LoanID,
		InstallmentNumber: p.InstallmentNumber,
		Amount:            p.Amount,
		FineAmount:        p.FineAmount,
		FineWaived:        p.FineWaived,
		PaidAt:            p.PaidAt,
		PaymentProof:      p.PaymentProof,
		OnTime:            p.OnTime,
		DaysLate:          p.DaysLate,
	}
}

// ToRiskProfileResponse maps a risk profile record.
func ToRiskProfileResponse(r model.RiskProfile) RiskProfileResponse {
	return RiskProfileResponse{
		User:               r.User.String(),
		RiskScore:          r.RiskScore,
		RiskLevel:          r.RiskLevel.String(),
		DefaultProbability: r.DefaultProbability,
		RecommendedMaxLoan: r.RecommendedMaxLoan,
		LastCalculated:     r.LastCalculated,
		FactorsCount:       r.FactorsCount,
	}
}

// ToCreditScoreResponse maps a credit report.
func ToCreditScoreResponse(r service.CreditReport) CreditScoreResponse {
	return CreditScoreResponse{
		User:           r.User.String(),
		CreditScore:    r.CreditScore,
		RiskLevel:      r.RiskLevel.String(),
		OnTimePayments: r.OnTimePayments,
		LatePayments:   r.LatePayments,
		CompletedLoans: r.CompletedLoans,
		DefaultedLoans: r.DefaultedLoans,
	}
}
