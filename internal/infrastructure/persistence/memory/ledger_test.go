package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/microloan/internal/application/dto"
	"github.com/bibbank/microloan/internal/application/usecase"
	"github.com/bibbank/microloan/internal/domain/event"
	"github.com/bibbank/microloan/internal/domain/ledgererr"
	"github.com/bibbank/microloan/internal/domain/model"
	"github.com/bibbank/microloan/internal/domain/port"
	"github.com/bibbank/microloan/internal/domain/service"
	"github.com/bibbank/microloan/internal/infrastructure/persistence/memory"
)

var (
	admin = uuid.MustParse("00000000-0000-0000-0000-0000000000aa")
	now   = time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
)

func TestLedger_Atomically(t *testing.T) {
	ctx := context.Background()
	program := model.ProgramState{Authority: admin}

	t.Run("commits records and events together", func(t *testing.T) {
		l := memory.NewLedger()
		err := l.Atomically(ctx, func(tx port.Tx) error {
			if err := tx.Create(ctx, model.ProgramKey(), program); err != nil {
				return err
			}
			tx.Emit(event.NewProgramInitialized("program", admin, 0, now))
			return nil
		})
		require.NoError(t, err)

		var got model.ProgramState
		require.NoError(t, l.Load(ctx, model.ProgramKey(), &got))
		assert.Equal(t, admin, got.Authority)

		pending, err := l.FetchUnpublished(ctx, 10)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, event.TypeProgramInitialized, pending[0].EventType)
	})

	t.Run("failure discards writes and events", func(t *testing.T) {
		l := memory.NewLedger()
		boom := errors.New("boom")
		err := l.Atomically(ctx, func(tx port.Tx) error {
			require.NoError(t, tx.Create(ctx, model.ProgramKey(), program))
			tx.Emit(event.NewProgramInitialized("program", admin, 0, now))
			return boom
		})
		assert.ErrorIs(t, err, boom)

		var got model.ProgramState
		assert.ErrorIs(t, l.Load(ctx, model.ProgramKey(), &got), port.ErrRecordNotFound)
		pending, err := l.FetchUnpublished(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})

	t.Run("create and store preconditions", func(t *testing.T) {
		l := memory.NewLedger()
		err := l.Atomically(ctx, func(tx port.Tx) error {
			assert.ErrorIs(t, tx.Store(ctx, model.ProgramKey(), program), port.ErrRecordNotFound)
			require.NoError(t, tx.Create(ctx, model.ProgramKey(), program))
			assert.ErrorIs(t, tx.Create(ctx, model.ProgramKey(), program), port.ErrRecordExists)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		err := memory.NewLedger().Atomically(cctx, func(port.Tx) error { return nil })
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestLedger_Outbox(t *testing.T) {
	ctx := context.Background()
	l := memory.NewLedger()
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Atomically(ctx, func(tx port.Tx) error {
			tx.Emit(event.NewProgramPauseSet("program", i%2 == 0, admin, now))
			return nil
		}))
	}

	first, err := l.FetchUnpublished(ctx, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.NoError(t, l.MarkPublished(ctx, []uuid.UUID{first[0].ID, first[1].ID}))

	rest, err := l.FetchUnpublished(ctx, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.NotEqual(t, first[0].ID, rest[0].ID)
}

// Concurrent payments race for the same installment; the ledger's
// serialization lets exactly one through.
func TestLedger_ConcurrentInstallmentPayments(t *testing.T) {
	ctx := context.Background()
	l := memory.NewLedger()
	lc := service.NewLifecycle(service.DefaultPolicy())
	clock := port.ClockFunc(func() time.Time { return now })
	borrower := uuid.New()

	_, err := usecase.NewInitializeProgramUseCase(l, lc, clock).Execute(ctx, dto.InitializeRequest{Caller: admin})
	require.NoError(t, err)
	_, err = usecase.NewRegisterUserUseCase(l, lc, clock).Execute(ctx, dto.RegisterUserRequest{
		Caller: borrower, FullName: "Sana", EmploymentType: "SELF_EMPLOYED", MonthlyIncome: 900_000_000,
	})
	require.NoError(t, err)
	loan, err := usecase.NewCreateLoanUseCase(l, lc, clock).Execute(ctx, dto.CreateLoanRequest{
		Caller: admin, Borrower: borrower, PrincipalAmount: 5_000_000_000, InterestRate: 1000, TenureMonths: 6,
	})
	require.NoError(t, err)

	pay := usecase.NewRecordPaymentUseCase(l, lc, clock)
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		repeated  int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := pay.Execute(ctx, dto.RecordPaymentRequest{
				Caller: borrower, Loan: dto.LoanRef{Borrower: borrower}, Amount: loan.MonthlyInstallment, InstallmentNumber: 1,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ledgererr.ErrInstallmentAlreadyPaid):
				repeated++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 7, repeated)

	got, err := usecase.NewGetLoanUseCase(l).Execute(ctx, dto.LoanRef{Borrower: borrower})
	require.NoError(t, err)
	assert.Equal(t, loan.TotalAmount-loan.MonthlyInstallment, got.OutstandingBalance)
}
