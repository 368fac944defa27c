package service_test

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/microloan/internal/domain/event"
	"github.com/bibbank/microloan/internal/domain/ledgererr"
	"github.com/bibbank/microloan/internal/domain/model"
	"github.com/bibbank/microloan/internal/domain/service"
	"github.com/bibbank/microloan/internal/domain/valueobject"
)

var (
	adminID    = uuid.MustParse("00000000-0000-0000-0000-0000000000aa")
	borrowerID = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	strangerID = uuid.MustParse("00000000-0000-0000-0000-0000000000ff")
	t0         = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
)

type fixture struct {
	lc      *service.Lifecycle
	program model.ProgramState
	user    model.UserProfile
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	lc := service.NewLifecycle(service.DefaultPolicy())

	program, _, err := lc.Initialize(adminID, 250, t0)
	require.NoError(t, err)

	reg, err := lc.RegisterUser(program, borrowerID, service.RegisterUserInput{
		FullName:       "Ayesha Khan",
		MonthlyIncome:  1_500_000_000,
		EmploymentType: valueobject.EmploymentSalaried,
	}, t0)
	require.NoError(t, err)

	return &fixture{lc: lc, program: reg.Program, user: reg.User}
}

func (f *fixture) createLoan(t *testing.T) service.CreateLoanResult {
	t.Helper()
	res, err := f.lc.CreateLoan(f.program, f.user, adminID, service.CreateLoanInput{
		Principal: 10_000_000_000, InterestRate: 1200, TenureMonths: 12, StartAt: t0,
	}, t0)
	require.NoError(t, err)
	f.program, f.user = res.Program, res.User
	return res
}

func TestLifecycle_Initialize(t *testing.T) {
	lc := service.NewLifecycle(service.DefaultPolicy())

	program, evt, err := lc.Initialize(adminID, 1000, t0)
	require.NoError(t, err)
	assert.Equal(t, adminID, program.Authority)
	assert.Equal(t, event.TypeProgramInitialized, evt.EventType())

	_, _, err = lc.Initialize(adminID, 1001, t0)
	assert.ErrorIs(t, err, ledgererr.ErrInvalidInterestRate)
}

func TestLifecycle_RegisterUser(t *testing.T) {
	f := newFixture(t)

	t.Run("initial standing", func(t *testing.T) {
		assert.Equal(t, uint64(1), f.program.TotalUsers)
		assert.Equal(t, uint16(500), f.user.CreditScore)
		assert.True(t, f.user.RiskLevel.Equal(valueobject.RiskLevelMedium))
		assert.Equal(t, t0, f.user.RegisteredAt)
	})

	in := service.RegisterUserInput{FullName: "x", MonthlyIncome: 1, EmploymentType: valueobject.EmploymentDailyWage}

	t.Run("paused", func(t *testing.T) {
		p := f.program
		p.Paused = true
		_, err := f.lc.RegisterUser(p, strangerID, in, t0)
		assert.ErrorIs(t, err, ledgererr.ErrProgramPaused)
	})

	t.Run("name too long", func(t *testing.T) {
		bad := in
		bad.FullName = strings.Repeat("n", model.MaxNameLen+1)
		_, err := f.lc.RegisterUser(f.program, strangerID, bad, t0)
		assert.ErrorIs(t, err, ledgererr.ErrNameTooLong)
	})

	t.Run("invalid utf8", func(t *testing.T) {
		bad := in
		bad.FullName = "\xff\xfe"
		_, err := f.lc.RegisterUser(f.program, strangerID, bad, t0)
		assert.ErrorIs(t, err, ledgererr.ErrInvalidStringFormat)
	})

	t.Run("zero income", func(t *testing.T) {
		bad := in
		bad.MonthlyIncome = 0
		_, err := f.lc.RegisterUser(f.program, strangerID, bad, t0)
		assert.ErrorIs(t, err, ledgererr.ErrIncomeTooLow)
	})
}

func TestLifecycle_UpdateUserProfile(t *testing.T) {
	f := newFixture(t)
	income := uint64(2_000_000_000)
	employment := valueobject.EmploymentBusinessOwner

	got, evt, err := f.lc.UpdateUserProfile(f.user, borrowerID, service.UpdateProfileInput{
		MonthlyIncome: &income, EmploymentType: &employment,
	}, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, income, got.MonthlyIncome)
	assert.True(t, got.EmploymentType.Equal(employment))
	assert.Equal(t, t0.Add(time.Hour), got.LastUpdated)
	assert.Equal(t, event.TypeUserProfileUpdated, evt.EventType())

	_, _, err = f.lc.UpdateUserProfile(f.user, strangerID, service.UpdateProfileInput{}, t0)
	assert.ErrorIs(t, err, ledgererr.ErrUnauthorized)

	zero := uint64(0)
	_, _, err = f.lc.UpdateUserProfile(f.user, borrowerID, service.UpdateProfileInput{MonthlyIncome: &zero}, t0)
	assert.ErrorIs(t, err, ledgererr.ErrIncomeTooLow)
}

func TestLifecycle_CreateLoan(t *testing.T) {
	t.Run("originates with program counter", func(t *testing.T) {
		f := newFixture(t)
		res := f.createLoan(t)

		assert.Equal(t, uint64(0), res.Loan.LoanID)
		assert.Equal(t, uint64(888_487_886), res.Loan.MonthlyInstallment)
		assert.Equal(t, res.Loan.TotalAmount, res.Loan.OutstandingBalance)
		assert.Equal(t, t0.Add(360*day), res.Loan.EndAt)
		assert.True(t, res.Loan.Status.Equal(valueobject.LoanStatusActive))

		assert.Equal(t, uint64(1), res.Program.TotalLoans)
		assert.Equal(t, uint64(10_000_000_000), res.Program.TotalVolume)
		assert.Equal(t, uint8(1), res.User.ActiveLoans)
		assert.Equal(t, uint16(1), res.User.TotalLoans)
		assert.Equal(t, uint64(10_000_000_000), res.User.TotalBorrowed)
	})

	t.Run("second active loan", func(t *testing.T) {
		f := newFixture(t)
		f.createLoan(t)
		_, err := f.lc.CreateLoan(f.program, f.user, adminID, service.CreateLoanInput{
			Principal: 10_000_000_000, InterestRate: 1200, TenureMonths: 12,
		}, t0)
		assert.ErrorIs(t, err, ledgererr.ErrActiveLoanExists)
	})

	t.Run("only the authority originates", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.lc.CreateLoan(f.program, f.user, borrowerID, service.CreateLoanInput{
			Principal: 10_000_000_000, InterestRate: 1200, TenureMonths: 12,
		}, t0)
		assert.ErrorIs(t, err, ledgererr.ErrUnauthorized)
	})

	t.Run("paused", func(t *testing.T) {
		f := newFixture(t)
		f.program.Paused = true
		_, err := f.lc.CreateLoan(f.program, f.user, adminID, service.CreateLoanInput{
			Principal: 10_000_000_000, InterestRate: 1200, TenureMonths: 12,
		}, t0)
		assert.ErrorIs(t, err, ledgererr.ErrProgramPaused)
	})

	t.Run("defaults start to now", func(t *testing.T) {
		f := newFixture(t)
		now := t0.Add(90 * time.Minute).Add(400 * time.Millisecond)
		res, err := f.lc.CreateLoan(f.program, f.user, adminID, service.CreateLoanInput{
			Principal: 10_000_000_000, InterestRate: 1200, TenureMonths: 12,
		}, now)
		require.NoError(t, err)
		assert.Equal(t, t0.Add(90*time.Minute), res.Loan.StartAt)
	})

	t.Run("underwriting gates", func(t *testing.T) {
		policy := service.DefaultPolicy()
		policy.MinCreditScoreForLoan = 550
		policy.RejectCriticalRisk = true
		lc := service.NewLifecycle(policy)
		f := newFixture(t)
		in := service.CreateLoanInput{Principal: 10_000_000_000, InterestRate: 1200, TenureMonths: 12}

		_, err := lc.CreateLoan(f.program, f.user, adminID, in, t0)
		assert.ErrorIs(t, err, ledgererr.ErrLowCreditScore)

		f.user.CreditScore = 600
		f.user.RiskLevel = valueobject.RiskLevelCritical
		_, err = lc.CreateLoan(f.program, f.user, adminID, in, t0)
		assert.ErrorIs(t, err, ledgererr.ErrHighRiskUser)
	})

	t.Run("volume overflow", func(t *testing.T) {
		f := newFixture(t)
		f.program.TotalVolume = ^uint64(0) - 1
		_, err := f.lc.CreateLoan(f.program, f.user, adminID, service.CreateLoanInput{
			Principal: 10_000_000_000, InterestRate: 1200, TenureMonths: 12,
		}, t0)
		assert.ErrorIs(t, err, ledgererr.ErrMathOverflow)
	})
}

func TestLifecycle_RecordPayment(t *testing.T) {
	const installment = 888_487_886
	graceEnd := t0.Add(32 * day)

	t.Run("on time", func(t *testing.T) {
		f := newFixture(t)
		loan := f.createLoan(t).Loan

		res, err := f.lc.RecordPayment(f.program, loan, f.user, borrowerID, service.RecordPaymentInput{
			InstallmentNumber: 1, Amount: installment, PaymentProof: "upi:123",
		}, t0.Add(29*day))
		require.NoError(t, err)
		assert.True(t, res.Payment.OnTime)
		assert.Equal(t, loan.OutstandingBalance-installment, res.Loan.OutstandingBalance)
		assert.Equal(t, uint64(installment), res.Loan.TotalRepaid)
		assert.Equal(t, uint16(502), res.User.CreditScore)
		assert.Equal(t, uint16(1), res.User.OnTimePayments)
		assert.Equal(t, model.PaymentKey(borrowerID, 0, 1), res.Payment.Key())
	})

	t.Run("five days late", func(t *testing.T) {
		f := newFixture(t)
		loan := f.createLoan(t).Loan
		now := graceEnd.Add(5 * day)
		const fine = 22_212_197

		_, err := f.lc.RecordPayment(f.program, loan, f.user, borrowerID, service.RecordPaymentInput{
			InstallmentNumber: 1, Amount: installment + fine - 1,
		}, now)
		assert.ErrorIs(t, err, ledgererr.ErrInsufficientPayment)

		res, err := f.lc.RecordPayment(f.program, loan, f.user, borrowerID, service.RecordPaymentInput{
			InstallmentNumber: 1, Amount: installment + fine,
		}, now)
		require.NoError(t, err)
		assert.False(t, res.Payment.OnTime)
		assert.Equal(t, uint16(5), res.Payment.DaysLate)
		assert.Equal(t, uint64(fine), res.Payment.FineAmount)
		assert.Equal(t, uint64(fine), res.Loan.TotalFines)
		assert.Equal(t, loan.OutstandingBalance-installment, res.Loan.OutstandingBalance)
		assert.Equal(t, uint16(495), res.User.CreditScore)
		assert.Equal(t, uint16(1), res.User.LatePayments)

		recorded, ok := res.Event.(event.PaymentRecorded)
		require.True(t, ok)
		assert.Equal(t, uint64(fine), recorded.FineAmount)
	})

	t.Run("overpayment cannot drive balance negative", func(t *testing.T) {
		f := newFixture(t)
		loan := f.createLoan(t).Loan
		loan.OutstandingBalance = 100

		res, err := f.lc.RecordPayment(f.program, loan, f.user, adminID, service.RecordPaymentInput{
			InstallmentNumber: 12, Amount: installment,
		}, t0)
		require.NoError(t, err)
		assert.Zero(t, res.Loan.OutstandingBalance)
		assert.Equal(t, uint64(installment), res.User.TotalRepaid)
	})

	t.Run("rejections", func(t *testing.T) {
		f := newFixture(t)
		loan := f.createLoan(t).Loan
		pay := func(caller uuid.UUID, l model.Loan, in service.RecordPaymentInput) error {
			_, err := f.lc.RecordPayment(f.program, l, f.user, caller, in, t0)
			return err
		}
		ok := service.RecordPaymentInput{InstallmentNumber: 1, Amount: installment}

		assert.ErrorIs(t, pay(strangerID, loan, ok), ledgererr.ErrUnauthorized)

		inactive := loan
		inactive.Status = valueobject.LoanStatusDefaulted
		assert.ErrorIs(t, pay(borrowerID, inactive, ok), ledgererr.ErrLoanNotActive)

		assert.ErrorIs(t, pay(borrowerID, loan, service.RecordPaymentInput{InstallmentNumber: 0, Amount: installment}),
			ledgererr.ErrInvalidInstallmentNumber)
		assert.ErrorIs(t, pay(borrowerID, loan, service.RecordPaymentInput{InstallmentNumber: 13, Amount: installment}),
			ledgererr.ErrInvalidInstallmentNumber)
		assert.ErrorIs(t, pay(borrowerID, loan, service.RecordPaymentInput{InstallmentNumber: 1}),
			ledgererr.ErrInvalidPaymentAmount)
		assert.ErrorIs(t, pay(borrowerID, loan, service.RecordPaymentInput{
			InstallmentNumber: 1, Amount: installment, PaymentProof: strings.Repeat("p", 101),
		}), ledgererr.ErrInvalidStringFormat)
	})
}

func TestLifecycle_FullRepaymentAndCompletion(t *testing.T) {
	f := newFixture(t)
	loan := f.createLoan(t).Loan
	user := f.user

	_, err := f.lc.MarkLoanCompleted(f.program, loan, user, borrowerID, t0)
	assert.ErrorIs(t, err, ledgererr.ErrInsufficientPayment)

	prev := loan.OutstandingBalance
	for n := uint8(1); n <= loan.TenureMonths; n++ {
		res, err := f.lc.RecordPayment(f.program, loan, user, borrowerID, service.RecordPaymentInput{
			InstallmentNumber: n, Amount: loan.MonthlyInstallment,
		}, service.DueDate(loan.StartAt, n))
		require.NoError(t, err)
		assert.LessOrEqual(t, res.Loan.OutstandingBalance, prev)
		prev = res.Loan.OutstandingBalance
		loan, user = res.Loan, res.User
	}
	require.Zero(t, loan.OutstandingBalance)
	assert.Equal(t, loan.TotalAmount, loan.TotalRepaid)

	done, err := f.lc.MarkLoanCompleted(f.program, loan, user, borrowerID, t0.Add(365*day))
	require.NoError(t, err)
	assert.True(t, done.Loan.Status.Equal(valueobject.LoanStatusCompleted))
	require.NotNil(t, done.Loan.CompletedAt)
	assert.Equal(t, uint8(0), done.User.ActiveLoans)
	assert.Equal(t, uint16(1), done.User.CompletedLoans)
	assert.Equal(t, uint16(500+12*2+20), done.User.CreditScore)

	_, err = f.lc.MarkLoanCompleted(f.program, done.Loan, done.User, borrowerID, t0)
	assert.ErrorIs(t, err, ledgererr.ErrLoanNotActive)

	// A completed loan frees the borrower for a new origination.
	_, err = f.lc.CreateLoan(f.program, done.User, adminID, service.CreateLoanInput{
		Principal: 10_000_000_000, InterestRate: 1200, TenureMonths: 12,
	}, t0)
	assert.NoError(t, err)
}

func TestLifecycle_MarkLoanDefaulted(t *testing.T) {
	f := newFixture(t)
	loan := f.createLoan(t).Loan
	f.user.CreditScore = 350

	_, err := f.lc.MarkLoanDefaulted(f.program, loan, f.user, borrowerID, t0)
	assert.ErrorIs(t, err, ledgererr.ErrUnauthorized)

	res, err := f.lc.MarkLoanDefaulted(f.program, loan, f.user, adminID, t0.Add(200*day))
	require.NoError(t, err)
	assert.True(t, res.Loan.Status.Equal(valueobject.LoanStatusDefaulted))
	require.NotNil(t, res.Loan.DefaultedAt)
	assert.True(t, res.User.RiskLevel.Equal(valueobject.RiskLevelCritical))
	assert.Equal(t, uint16(300), res.User.CreditScore)
	assert.Equal(t, uint8(0), res.User.ActiveLoans)
	assert.Equal(t, uint8(1), res.User.DefaultedLoans)

	_, err = f.lc.MarkLoanDefaulted(f.program, res.Loan, res.User, adminID, t0)
	assert.ErrorIs(t, err, ledgererr.ErrLoanNotActive)

	repaid := loan
	repaid.OutstandingBalance = 0
	_, err = f.lc.MarkLoanDefaulted(f.program, repaid, f.user, adminID, t0)
	assert.ErrorIs(t, err, ledgererr.ErrLoanAlreadyCompleted)
}

func TestLifecycle_WaiveFine(t *testing.T) {
	f := newFixture(t)
	loan := f.createLoan(t).Loan
	paid, err := f.lc.RecordPayment(f.program, loan, f.user, borrowerID, service.RecordPaymentInput{
		InstallmentNumber: 1, Amount: 1_000_000_000,
	}, t0.Add(37*day))
	require.NoError(t, err)
	fine := paid.Payment.FineAmount
	require.NotZero(t, fine)

	_, err = f.lc.WaiveFine(f.program, paid.Loan, paid.Payment, borrowerID, 1, t0)
	assert.ErrorIs(t, err, ledgererr.ErrUnauthorized)

	_, err = f.lc.WaiveFine(f.program, paid.Loan, paid.Payment, adminID, fine+1, t0)
	assert.ErrorIs(t, err, ledgererr.ErrInvalidPaymentAmount)

	_, err = f.lc.WaiveFine(f.program, paid.Loan, paid.Payment, adminID, 0, t0)
	assert.ErrorIs(t, err, ledgererr.ErrInvalidPaymentAmount)

	half, err := f.lc.WaiveFine(f.program, paid.Loan, paid.Payment, adminID, fine/2, t0)
	require.NoError(t, err)
	assert.Equal(t, fine-fine/2, half.Loan.TotalFines)
	assert.Equal(t, paid.Loan.OutstandingBalance, half.Loan.OutstandingBalance)
	assert.Equal(t, fine/2, half.Payment.FineWaived)
	assert.Equal(t, fine, half.Payment.FineAmount)

	// The waived part cannot be waived again.
	_, err = f.lc.WaiveFine(f.program, half.Loan, half.Payment, adminID, fine-fine/2+1, t0)
	assert.ErrorIs(t, err, ledgererr.ErrInvalidPaymentAmount)

	rest, err := f.lc.WaiveFine(f.program, half.Loan, half.Payment, adminID, fine-fine/2, t0)
	require.NoError(t, err)
	assert.Zero(t, rest.Loan.TotalFines)
	assert.Zero(t, rest.Payment.RemainingFine())
}

func TestLifecycle_UpdateRiskScore(t *testing.T) {
	f := newFixture(t)
	in := service.RiskAssessment{Level: valueobject.RiskLevelLow, Score: 910, DefaultProbability: 120}

	_, err := f.lc.UpdateRiskScore(f.program, f.user, borrowerID, in, t0)
	assert.ErrorIs(t, err, ledgererr.ErrUnauthorized)

	res, err := f.lc.UpdateRiskScore(f.program, f.user, adminID, in, t0)
	require.NoError(t, err)
	assert.Equal(t, uint16(850), res.User.CreditScore)
	assert.True(t, res.User.RiskLevel.Equal(valueobject.RiskLevelLow))
	assert.Equal(t, uint16(910), res.Profile.RiskScore)
	assert.Equal(t, uint64(15_000_000_000), res.Profile.RecommendedMaxLoan)

	updated, ok := res.Event.(event.RiskScoreUpdated)
	require.True(t, ok)
	assert.Equal(t, uint16(500), updated.OldScore)
	assert.Equal(t, uint16(910), updated.NewScore)

	bad := in
	bad.Score = 1001
	_, err = f.lc.UpdateRiskScore(f.program, f.user, adminID, bad, t0)
	assert.ErrorIs(t, err, ledgererr.ErrInvalidRiskScore)
}

func TestLifecycle_SetPaused(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.lc.SetPaused(f.program, borrowerID, true, t0)
	assert.ErrorIs(t, err, ledgererr.ErrUnauthorized)

	program, evt, err := f.lc.SetPaused(f.program, adminID, true, t0)
	require.NoError(t, err)
	assert.True(t, program.Paused)
	assert.Equal(t, event.TypeProgramPauseSet, evt.EventType())
}
