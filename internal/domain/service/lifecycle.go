package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/microloan/internal/domain/event"
	"github.com/bibbank/microloan/internal/domain/ledgererr"
	"github.com/bibbank/microloan/internal/domain/model"
	"github.com/bibbank/microloan/internal/domain/numeric"
	"github.com/bibbank/microloan/internal/domain/valueobject"
)

// Lifecycle implements every ledger transition as a pure function from the
// current records and a validated input to the new records and one domain
// event. It performs no I/O; callers load the inputs and commit the outputs
// atomically. On error the inputs are untouched and no output is returned.
type Lifecycle struct {
	policy       Policy
	amortization AmortizationEngine
	fines        FineCalculator
	credit       CreditEngine
}

// NewLifecycle wires the engines for the given policy.
func NewLifecycle(policy Policy) *Lifecycle {
	return &Lifecycle{
		policy:       policy,
		amortization: NewAmortizationEngine(policy),
		fines:        NewFineCalculator(policy),
		credit:       NewCreditEngine(policy),
	}
}

// Policy returns the policy the lifecycle was built with.
func (l *Lifecycle) Policy() Policy { return l.policy }

// Amortization returns the engine used to price loans.
func (l *Lifecycle) Amortization() AmortizationEngine { return l.amortization }

// Credit returns the credit engine.
func (l *Lifecycle) Credit() CreditEngine { return l.credit }

// Stamp normalizes a timestamp to the ledger's one second UTC resolution.
func Stamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

func requireAdmin(program model.ProgramState, caller uuid.UUID) error {
	if caller != program.Authority {
		return ledgererr.Newf(ledgererr.KindUnauthorized, "caller is not the program authority")
	}
	return nil
}

func requireBorrowerOrAdmin(program model.ProgramState, loan model.Loan, caller uuid.UUID) error {
	if caller != loan.Borrower && caller != program.Authority {
		return ledgererr.Newf(ledgererr.KindUnauthorized, "caller is neither borrower nor program authority")
	}
	return nil
}

func requireActive(loan model.Loan) error {
	if !loan.Status.Equal(valueobject.LoanStatusActive) {
		return ledgererr.Newf(ledgererr.KindLoanNotActive, "loan %d is %s", loan.LoanID, loan.Status)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Program
// ---------------------------------------------------------------------------

// Initialize creates the program state with caller as authority.
func (l *Lifecycle) Initialize(caller uuid.UUID, feePercentage uint16, now time.Time) (model.ProgramState, event.DomainEvent, error) {
	if feePercentage > l.policy.MaxFeePercentage {
		return model.ProgramState{}, nil, ledgererr.Newf(ledgererr.KindInvalidInterestRate,
			"fee %d exceeds %d", feePercentage, l.policy.MaxFeePercentage)
	}
	program := model.ProgramState{Authority: caller, FeePercentage: feePercentage}
	evt := event.NewProgramInitialized(string(model.ProgramKey()), caller, feePercentage, Stamp(now))
	return program, evt, nil
}

// SetPaused toggles the gate on registrations and originations.
func (l *Lifecycle) SetPaused(program model.ProgramState, caller uuid.UUID, paused bool, now time.Time) (model.ProgramState, event.DomainEvent, error) {
	if err := requireAdmin(program, caller); err != nil {
		return model.ProgramState{}, nil, err
	}
	program.Paused = paused
	evt := event.NewProgramPauseSet(string(model.ProgramKey()), paused, caller, Stamp(now))
	return program, evt, nil
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

// RegisterUserInput is the borrower-supplied registration payload.
type RegisterUserInput struct {
	FullName       string
	MonthlyIncome  uint64
	EmploymentType valueobject.EmploymentType
}

// RegisterUserResult holds the records written by a registration.
type RegisterUserResult struct {
	Program model.ProgramState
	User    model.UserProfile
	Event   event.DomainEvent
}

// RegisterUser creates the caller's profile. Rejecting a duplicate identity
// is the storage layer's job.
func (l *Lifecycle) RegisterUser(program model.ProgramState, caller uuid.UUID, in RegisterUserInput, now time.Time) (RegisterUserResult, error) {
	if program.Paused {
		return RegisterUserResult{}, ledgererr.ErrProgramPaused
	}
	if err := model.ValidateName(in.FullName); err != nil {
		return RegisterUserResult{}, err
	}
	if in.MonthlyIncome == 0 {
		return RegisterUserResult{}, ledgererr.ErrIncomeTooLow
	}
	if in.EmploymentType.IsZero() {
		return RegisterUserResult{}, ledgererr.Newf(ledgererr.KindInvalidStringFormat, "employment type is required")
	}

	total, err := numeric.CheckedAdd(program.TotalUsers, 1)
	if err != nil {
		return RegisterUserResult{}, fmt.Errorf("total users: %w", err)
	}
	program.TotalUsers = total

	now = Stamp(now)
	user := model.UserProfile{
		Authority:      caller,
		FullName:       in.FullName,
		MonthlyIncome:  in.MonthlyIncome,
		EmploymentType: in.EmploymentType,
		CreditScore:    model.InitialCreditScore,
		RiskLevel:      valueobject.RiskLevelMedium,
		RegisteredAt:   now,
		LastUpdated:    now,
	}
	evt := event.NewUserRegistered(string(model.UserKey(caller)), caller, in.FullName,
		in.MonthlyIncome, in.EmploymentType.String(), now)

	return RegisterUserResult{Program: program, User: user, Event: evt}, nil
}

// UpdateProfileInput carries optional profile changes; nil leaves a field
// as is.
type UpdateProfileInput struct {
	MonthlyIncome  *uint64
	EmploymentType *valueobject.EmploymentType
}

// UpdateUserProfile applies owner-submitted changes to income or employment.
func (l *Lifecycle) UpdateUserProfile(user model.UserProfile, caller uuid.UUID, in UpdateProfileInput, now time.Time) (model.UserProfile, event.DomainEvent, error) {
	if caller != user.Authority {
		return model.UserProfile{}, nil, ledgererr.Newf(ledgererr.KindUnauthorized, "caller does not own profile")
	}
	if in.MonthlyIncome != nil {
		if *in.MonthlyIncome == 0 {
			return model.UserProfile{}, nil, ledgererr.ErrIncomeTooLow
		}
		user.MonthlyIncome = *in.MonthlyIncome
	}
	if in.EmploymentType != nil {
		if in.EmploymentType.IsZero() {
			return model.UserProfile{}, nil, ledgererr.Newf(ledgererr.KindInvalidStringFormat, "employment type is required")
		}
		user.EmploymentType = *in.EmploymentType
	}

	now = Stamp(now)
	user.LastUpdated = now
	evt := event.NewUserProfileUpdated(string(model.UserKey(user.Authority)), user.Authority,
		user.MonthlyIncome, user.EmploymentType.String(), now)
	return user, evt, nil
}

// UpdateRiskScoreResult holds the records written by a risk assessment.
type UpdateRiskScoreResult struct {
	User    model.UserProfile
	Profile model.RiskProfile
	Event   event.DomainEvent
}

// UpdateRiskScore records an administrator risk assessment. The user's
// credit score takes the risk score clamped to the credit range.
func (l *Lifecycle) UpdateRiskScore(program model.ProgramState, user model.UserProfile, caller uuid.UUID, in RiskAssessment, now time.Time) (UpdateRiskScoreResult, error) {
	if err := requireAdmin(program, caller); err != nil {
		return UpdateRiskScoreResult{}, err
	}
	if err := in.Validate(); err != nil {
		return UpdateRiskScoreResult{}, err
	}

	now = Stamp(now)
	oldScore := user.CreditScore
	user.CreditScore = l.credit.CreditScoreFor(in.Score)
	user.RiskLevel = in.Level
	user.LastUpdated = now

	profile := l.credit.Profile(user, in, now)
	evt := event.NewRiskScoreUpdated(string(model.RiskKey(user.Authority)), user.Authority,
		oldScore, in.Score, in.Level.String(), in.DefaultProbability, now)

	return UpdateRiskScoreResult{User: user, Profile: profile, Event: evt}, nil
}

// ---------------------------------------------------------------------------
// Loans
// ---------------------------------------------------------------------------

// CreateLoanInput is the origination request. A zero StartAt means now.
type CreateLoanInput struct {
	StartAt      time.Time
	Principal    uint64
	InterestRate uint16
	TenureMonths uint8
}

// CreateLoanResult holds the records written by an origination.
type CreateLoanResult struct {
	Program model.ProgramState
	User    model.UserProfile
	Loan    model.Loan
	Event   event.DomainEvent
}

// CreateLoan originates a loan for user, taking the next loan id from the
// program counter.
func (l *Lifecycle) CreateLoan(program model.ProgramState, user model.UserProfile, caller uuid.UUID, in CreateLoanInput, now time.Time) (CreateLoanResult, error) {
	if err := requireAdmin(program, caller); err != nil {
		return CreateLoanResult{}, err
	}
	if program.Paused {
		return CreateLoanResult{}, ledgererr.ErrProgramPaused
	}

	inst, err := l.amortization.Quote(in.Principal, in.InterestRate, in.TenureMonths)
	if err != nil {
		return CreateLoanResult{}, err
	}

	if user.ActiveLoans > 0 {
		return CreateLoanResult{}, ledgererr.ErrActiveLoanExists
	}
	if floor := l.policy.MinCreditScoreForLoan; floor > 0 && user.CreditScore < floor {
		return CreateLoanResult{}, ledgererr.Newf(ledgererr.KindLowCreditScore,
			"score %d below %d", user.CreditScore, floor)
	}
	if l.policy.RejectCriticalRisk && user.RiskLevel.Equal(valueobject.RiskLevelCritical) {
		return CreateLoanResult{}, ledgererr.ErrHighRiskUser
	}

	loanID := program.TotalLoans
	if program.TotalLoans, err = numeric.CheckedAdd(program.TotalLoans, 1); err != nil {
		return CreateLoanResult{}, fmt.Errorf("program total loans: %w", err)
	}
	if program.TotalVolume, err = numeric.CheckedAdd(program.TotalVolume, in.Principal); err != nil {
		return CreateLoanResult{}, fmt.Errorf("program total volume: %w", err)
	}
	if user.TotalLoans, err = numeric.CheckedAdd(user.TotalLoans, 1); err != nil {
		return CreateLoanResult{}, fmt.Errorf("user total loans: %w", err)
	}
	if user.ActiveLoans, err = numeric.CheckedAdd(user.ActiveLoans, 1); err != nil {
		return CreateLoanResult{}, fmt.Errorf("user active loans: %w", err)
	}
	if user.TotalBorrowed, err = numeric.CheckedAdd(user.TotalBorrowed, in.Principal); err != nil {
		return CreateLoanResult{}, fmt.Errorf("user total borrowed: %w", err)
	}

	now = Stamp(now)
	start := now
	if !in.StartAt.IsZero() {
		start = Stamp(in.StartAt)
	}
	user.LastUpdated = now

	loan := model.Loan{
		Borrower:           user.Authority,
		LoanID:             loanID,
		PrincipalAmount:    in.Principal,
		InterestRate:       in.InterestRate,
		TenureMonths:       in.TenureMonths,
		MonthlyInstallment: inst.Monthly,
		TotalAmount:        inst.Total,
		OutstandingBalance: inst.Total,
		StartAt:            start,
		EndAt:              DueDate(start, in.TenureMonths),
		Status:             valueobject.LoanStatusActive,
		CreatedAt:          now,
	}
	evt := event.NewLoanCreated(string(loan.Key()), event.LoanCreatedFields{
		LoanID:             loan.LoanID,
		User:               loan.Borrower,
		PrincipalAmount:    loan.PrincipalAmount,
		InterestRate:       loan.InterestRate,
		TenureMonths:       loan.TenureMonths,
		MonthlyInstallment: loan.MonthlyInstallment,
		TotalAmount:        loan.TotalAmount,
		StartAt:            loan.StartAt,
		EndAt:              loan.EndAt,
	}, now)

	return CreateLoanResult{Program: program, User: user, Loan: loan, Event: evt}, nil
}

// RecordPaymentInput is one installment payment.
type RecordPaymentInput struct {
	PaymentProof      string
	Amount            uint64
	InstallmentNumber uint8
}

// RecordPaymentResult holds the records written by a payment.
type RecordPaymentResult struct {
	Loan       model.Loan
	User       model.UserProfile
	Payment    model.PaymentRecord
	Assessment PaymentAssessment
	Event      event.DomainEvent
}

// RecordPayment applies an installment payment. The amount must cover the
// installment plus any late fine; the fine is kept out of the principal
// portion, which never drives the balance below zero. Rejecting a second
// payment for the same installment is the storage layer's job.
func (l *Lifecycle) RecordPayment(program model.ProgramState, loan model.Loan, user model.UserProfile, caller uuid.UUID, in RecordPaymentInput, now time.Time) (RecordPaymentResult, error) {
	if err := requireBorrowerOrAdmin(program, loan, caller); err != nil {
		return RecordPaymentResult{}, err
	}
	if err := requireActive(loan); err != nil {
		return RecordPaymentResult{}, err
	}
	if in.InstallmentNumber == 0 || in.InstallmentNumber > loan.TenureMonths {
		return RecordPaymentResult{}, ledgererr.Newf(ledgererr.KindInvalidInstallmentNumber,
			"%d outside [1, %d]", in.InstallmentNumber, loan.TenureMonths)
	}
	if in.Amount == 0 {
		return RecordPaymentResult{}, ledgererr.ErrInvalidPaymentAmount
	}
	if err := model.ValidatePaymentProof(in.PaymentProof); err != nil {
		return RecordPaymentResult{}, err
	}

	now = Stamp(now)
	assessment, err := l.fines.Assess(loan.StartAt, in.InstallmentNumber, loan.MonthlyInstallment, now)
	if err != nil {
		return RecordPaymentResult{}, fmt.Errorf("assess payment: %w", err)
	}
	due, err := numeric.CheckedAdd(loan.MonthlyInstallment, assessment.Fine)
	if err != nil {
		return RecordPaymentResult{}, fmt.Errorf("amount due: %w", err)
	}
	if in.Amount < due {
		return RecordPaymentResult{}, ledgererr.Newf(ledgererr.KindInsufficientPayment,
			"paid %d, due %d", in.Amount, due)
	}

	principal := min(in.Amount-assessment.Fine, loan.OutstandingBalance)
	loan.OutstandingBalance -= principal
	if loan.TotalRepaid, err = numeric.CheckedAdd(loan.TotalRepaid, in.Amount); err != nil {
		return RecordPaymentResult{}, fmt.Errorf("loan total repaid: %w", err)
	}
	if loan.TotalFines, err = numeric.CheckedAdd(loan.TotalFines, assessment.Fine); err != nil {
		return RecordPaymentResult{}, fmt.Errorf("loan total fines: %w", err)
	}
	if user.TotalRepaid, err = numeric.CheckedAdd(user.TotalRepaid, in.Amount); err != nil {
		return RecordPaymentResult{}, fmt.Errorf("user total repaid: %w", err)
	}

	if assessment.OnTime {
		user.OnTimePayments = numeric.SaturatingAdd(user.OnTimePayments, 1)
		user.CreditScore = l.credit.Reward(user.CreditScore, OnTimePaymentBonus)
	} else {
		user.LatePayments = numeric.SaturatingAdd(user.LatePayments, 1)
		user.CreditScore = l.credit.Penalize(user.CreditScore, LatePaymentPenalty)
	}
	user.LastUpdated = now

	payment := model.PaymentRecord{
		Borrower:          loan.Borrower,
		LoanID:            loan.LoanID,
		InstallmentNumber: in.InstallmentNumber,
		Amount:            in.Amount,
		FineAmount:        assessment.Fine,
		PaidAt:            now,
		PaymentProof:      in.PaymentProof,
		OnTime:            assessment.OnTime,
		DaysLate:          assessment.DaysLate,
	}
	evt := event.NewPaymentRecorded(string(loan.Key()), loan.LoanID, loan.Borrower, in.InstallmentNumber,
		in.Amount, assessment.Fine, assessment.OnTime, assessment.DaysLate, now)

	return RecordPaymentResult{
		Loan:       loan,
		User:       user,
		Payment:    payment,
		Assessment: assessment,
		Event:      evt,
	}, nil
}

// CloseLoanResult holds the records written when a loan reaches a terminal
// state.
type CloseLoanResult struct {
	Loan  model.Loan
	User  model.UserProfile
	Event event.DomainEvent
}

// MarkLoanDefaulted closes an active loan that still has a balance as
// defaulted and moves the borrower to critical risk.
func (l *Lifecycle) MarkLoanDefaulted(program model.ProgramState, loan model.Loan, user model.UserProfile, caller uuid.UUID, now time.Time) (CloseLoanResult, error) {
	if err := requireAdmin(program, caller); err != nil {
		return CloseLoanResult{}, err
	}
	if err := requireActive(loan); err != nil {
		return CloseLoanResult{}, err
	}
	if loan.OutstandingBalance == 0 {
		return CloseLoanResult{}, ledgererr.Newf(ledgererr.KindLoanAlreadyCompleted,
			"loan %d has no outstanding balance", loan.LoanID)
	}

	var err error
	if user.DefaultedLoans, err = numeric.CheckedAdd(user.DefaultedLoans, 1); err != nil {
		return CloseLoanResult{}, fmt.Errorf("user defaulted loans: %w", err)
	}
	user.ActiveLoans = numeric.SaturatingSub(user.ActiveLoans, 1)
	user.CreditScore = l.credit.Penalize(user.CreditScore, DefaultPenalty)
	user.RiskLevel = valueobject.RiskLevelCritical

	now = Stamp(now)
	user.LastUpdated = now
	loan.Status = valueobject.LoanStatusDefaulted
	loan.DefaultedAt = &now

	evt := event.NewLoanDefaulted(string(loan.Key()), loan.LoanID, loan.Borrower,
		loan.OutstandingBalance, loan.TotalFines, now)
	return CloseLoanResult{Loan: loan, User: user, Event: evt}, nil
}

// MarkLoanCompleted closes a fully repaid loan and credits the borrower.
func (l *Lifecycle) MarkLoanCompleted(program model.ProgramState, loan model.Loan, user model.UserProfile, caller uuid.UUID, now time.Time) (CloseLoanResult, error) {
	if err := requireBorrowerOrAdmin(program, loan, caller); err != nil {
		return CloseLoanResult{}, err
	}
	if err := requireActive(loan); err != nil {
		return CloseLoanResult{}, err
	}
	if loan.OutstandingBalance != 0 {
		return CloseLoanResult{}, ledgererr.Newf(ledgererr.KindInsufficientPayment,
			"%d outstanding", loan.OutstandingBalance)
	}

	var err error
	if user.CompletedLoans, err = numeric.CheckedAdd(user.CompletedLoans, 1); err != nil {
		return CloseLoanResult{}, fmt.Errorf("user completed loans: %w", err)
	}
	user.ActiveLoans = numeric.SaturatingSub(user.ActiveLoans, 1)
	user.CreditScore = l.credit.Reward(user.CreditScore, CompletionBonus)

	now = Stamp(now)
	user.LastUpdated = now
	loan.Status = valueobject.LoanStatusCompleted
	loan.CompletedAt = &now

	evt := event.NewLoanCompleted(string(loan.Key()), loan.LoanID, loan.Borrower, loan.TotalRepaid, now)
	return CloseLoanResult{Loan: loan, User: user, Event: evt}, nil
}

// WaiveFineResult holds the records written by a waiver.
type WaiveFineResult struct {
	Loan    model.Loan
	Payment model.PaymentRecord
	Event   event.DomainEvent
}

// WaiveFine forgives part of an installment's late fine. Only the loan's
// fine total moves; the outstanding balance never carried fines.
func (l *Lifecycle) WaiveFine(program model.ProgramState, loan model.Loan, payment model.PaymentRecord, caller uuid.UUID, amount uint64, now time.Time) (WaiveFineResult, error) {
	if err := requireAdmin(program, caller); err != nil {
		return WaiveFineResult{}, err
	}
	if payment.Borrower != loan.Borrower || payment.LoanID != loan.LoanID {
		return WaiveFineResult{}, ledgererr.Newf(ledgererr.KindInvalidInstallmentNumber,
			"payment does not belong to loan %d", loan.LoanID)
	}
	if amount == 0 {
		return WaiveFineResult{}, ledgererr.Newf(ledgererr.KindInvalidPaymentAmount, "waiver must be positive")
	}
	if remaining := payment.RemainingFine(); amount > remaining {
		return WaiveFineResult{}, ledgererr.Newf(ledgererr.KindInvalidPaymentAmount,
			"waiver %d exceeds remaining fine %d", amount, remaining)
	}
	if amount > loan.TotalFines {
		return WaiveFineResult{}, ledgererr.Newf(ledgererr.KindInvalidPaymentAmount,
			"waiver %d exceeds loan fines %d", amount, loan.TotalFines)
	}

	loan.TotalFines -= amount
	payment.FineWaived += amount

	evt := event.NewFineWaived(string(loan.Key()), loan.LoanID, loan.Borrower,
		payment.InstallmentNumber, amount, caller, Stamp(now))
	return WaiveFineResult{Loan: loan, Payment: payment, Event: evt}, nil
}
