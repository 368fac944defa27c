package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/bibbank/microloan/internal/application/dto"
	"github.com/bibbank/microloan/internal/domain/port"
	"github.com/bibbank/microloan/internal/domain/service"
	"github.com/bibbank/microloan/pkg/money"
)

// GetProgramStateUseCase reads the program aggregates.
type GetProgramStateUseCase struct {
	ledger port.Reader
}

// NewGetProgramStateUseCase wires dependencies.
func NewGetProgramStateUseCase(ledger port.Reader) *GetProgramStateUseCase {
	return &GetProgramStateUseCase{ledger: ledger}
}

// Execute returns the program state.
func (uc *GetProgramStateUseCase) Execute(ctx context.Context) (dto.ProgramResponse, error) {
	program, err := loadProgram(ctx, uc.ledger)
	if err != nil {
		return dto.ProgramResponse{}, err
	}
	return dto.ToProgramResponse(program), nil
}

// GetUserProfileUseCase reads a borrower profile.
type GetUserProfileUseCase struct {
	ledger port.Reader
}

// NewGetUserProfileUseCase wires dependencies.
func NewGetUserProfileUseCase(ledger port.Reader) *GetUserProfileUseCase {
	return &GetUserProfileUseCase{ledger: ledger}
}

// Execute returns the profile.
func (uc *GetUserProfileUseCase) Execute(ctx context.Context, req dto.GetUserRequest) (dto.UserProfileResponse, error) {
	user, err := loadUser(ctx, uc.ledger, req.User)
	if err != nil {
		return dto.UserProfileResponse{}, err
	}
	return dto.ToUserProfileResponse(user), nil
}

// GetCreditScoreUseCase reads a borrower's credit standing.
type GetCreditScoreUseCase struct {
	ledger port.Reader
	credit service.CreditEngine
}

// NewGetCreditScoreUseCase wires dependencies.
func NewGetCreditScoreUseCase(ledger port.Reader, credit service.CreditEngine) *GetCreditScoreUseCase {
	return &GetCreditScoreUseCase{ledger: ledger, credit: credit}
}

// Execute returns the credit summary.
func (uc *GetCreditScoreUseCase) Execute(ctx context.Context, req dto.GetUserRequest) (dto.CreditScoreResponse, error) {
	user, err := loadUser(ctx, uc.ledger, req.User)
	if err != nil {
		return dto.CreditScoreResponse{}, err
	}
	return dto.ToCreditScoreResponse(uc.credit.Report(user)), nil
}

// GetLoanUseCase reads a loan.
type GetLoanUseCase struct {
	ledger port.Reader
}

// NewGetLoanUseCase wires dependencies.
func NewGetLoanUseCase(ledger port.Reader) *GetLoanUseCase {
	return &GetLoanUseCase{ledger: ledger}
}

// Execute returns the loan.
func (uc *GetLoanUseCase) Execute(ctx context.Context, req dto.LoanRef) (dto.LoanResponse, error) {
	loan, err := loadLoan(ctx, uc.ledger, req.Borrower, req.LoanID)
	if err != nil {
		return dto.LoanResponse{}, err
	}
	return dto.ToLoanResponse(loan), nil
}

// GetPaymentRecordUseCase reads one installment payment.
type GetPaymentRecordUseCase struct {
	ledger port.Reader
}

// NewGetPaymentRecordUseCase wires dependencies.
func NewGetPaymentRecordUseCase(ledger port.Reader) *GetPaymentRecordUseCase {
	return &GetPaymentRecordUseCase{ledger: ledger}
}

// Execute returns the payment record, or an error wrapping
// port.ErrRecordNotFound if the installment is unpaid.
func (uc *GetPaymentRecordUseCase) Execute(ctx context.Context, req dto.GetPaymentRequest) (dto.PaymentResponse, error) {
	payment, err := loadPayment(ctx, uc.ledger, req.Loan.Borrower, req.Loan.LoanID, req.InstallmentNumber)
	if err != nil {
		return dto.PaymentResponse{}, err
	}
	return dto.ToPaymentResponse(payment), nil
}

// GetRiskProfileUseCase reads the latest risk assessment.
type GetRiskProfileUseCase struct {
	ledger port.Reader
}

// NewGetRiskProfileUseCase wires dependencies.
func NewGetRiskProfileUseCase(ledger port.Reader) *GetRiskProfileUseCase {
	return &GetRiskProfileUseCase{ledger: ledger}
}

// Execute returns the risk profile, or an error wrapping
// port.ErrRecordNotFound if the user was never assessed.
func (uc *GetRiskProfileUseCase) Execute(ctx context.Context, req dto.GetUserRequest) (dto.RiskProfileResponse, error) {
	profile, err := loadRiskProfile(ctx, uc.ledger, req.User)
	if err != nil {
		return dto.RiskProfileResponse{}, err
	}
	return dto.ToRiskProfileResponse(profile), nil
}

// GetAmortizationScheduleUseCase breaks a loan into its installments and
// marks the ones already paid.
type GetAmortizationScheduleUseCase struct {
	ledger port.Reader
}

// NewGetAmortizationScheduleUseCase wires dependencies.
func NewGetAmortizationScheduleUseCase(ledger port.Reader) *GetAmortizationScheduleUseCase {
	return &GetAmortizationScheduleUseCase{ledger: ledger}
}

// Execute returns the schedule.
func (uc *GetAmortizationScheduleUseCase) Execute(ctx context.Context, req dto.LoanRef) (dto.AmortizationScheduleResponse, error) {
	loan, err := loadLoan(ctx, uc.ledger, req.Borrower, req.LoanID)
	if err != nil {
		return dto.AmortizationScheduleResponse{}, err
	}

	schedule := service.Schedule(loan.PrincipalAmount, loan.InterestRate, loan.TenureMonths, loan.StartAt,
		service.Installment{Monthly: loan.MonthlyInstallment, Total: loan.TotalAmount})

	entries := make([]dto.ScheduleEntryResponse, 0, len(schedule))
	for _, e := range schedule {
		_, err := loadPayment(ctx, uc.ledger, loan.Borrower, loan.LoanID, uint8(e.Period))
		if err != nil && !errors.Is(err, port.ErrRecordNotFound) {
			return dto.AmortizationScheduleResponse{}, err
		}
		due, convErr := money.FromMinor(e.Payment)
		if convErr != nil {
			return dto.AmortizationScheduleResponse{}, fmt.Errorf("period %d: %w", e.Period, convErr)
		}
		entries = append(entries, dto.ScheduleEntryResponse{
			Period:           e.Period,
			DueDate:          e.DueDate,
			Payment:          e.Payment,
			Principal:        e.Principal,
			Interest:         e.Interest,
			RemainingBalance: e.RemainingBalance,
			AmountDue:        due,
			Paid:             err == nil,
		})
	}

	return dto.AmortizationScheduleResponse{Loan: dto.ToLoanResponse(loan), Entries: entries}, nil
}
