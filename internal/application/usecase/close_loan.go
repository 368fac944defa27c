package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/microloan/internal/application/dto"
	"github.com/bibbank/microloan/internal/domain/model"
	"github.com/bibbank/microloan/internal/domain/port"
	"github.com/bibbank/microloan/internal/domain/service"
)

type closeFunc func(model.ProgramState, model.Loan, model.UserProfile, uuid.UUID, time.Time) (service.CloseLoanResult, error)

func closeLoan(ctx context.Context, ledger port.Ledger, clock port.Clock, req dto.CloseLoanRequest, apply closeFunc) (dto.LoanResponse, error) {
	var out model.Loan
	err := ledger.Atomically(ctx, func(tx port.Tx) error {
		program, err := loadProgram(ctx, tx)
		if err != nil {
			return err
		}
		loan, err := loadLoan(ctx, tx, req.Loan.Borrower, req.Loan.LoanID)
		if err != nil {
			return err
		}
		user, err := loadUser(ctx, tx, loan.Borrower)
		if err != nil {
			return err
		}

		res, err := apply(program, loan, user, req.Caller, clock.Now())
		if err != nil {
			return err
		}
		if err := storeAll(ctx, tx, map[model.Key]model.Record{
			res.Loan.Key():                    res.Loan,
			model.UserKey(res.User.Authority): res.User,
		}); err != nil {
			return err
		}

		tx.Emit(res.Event)
		out = res.Loan
		return nil
	})
	if err != nil {
		return dto.LoanResponse{}, err
	}
	return dto.ToLoanResponse(out), nil
}

// MarkLoanDefaultedUseCase writes off an active loan.
type MarkLoanDefaultedUseCase struct {
	ledger    port.Ledger
	lifecycle *service.Lifecycle
	clock     port.Clock
}

// NewMarkLoanDefaultedUseCase wires dependencies.
func NewMarkLoanDefaultedUseCase(ledger port.Ledger, lifecycle *service.Lifecycle, clock port.Clock) *MarkLoanDefaultedUseCase {
	return &MarkLoanDefaultedUseCase{ledger: ledger, lifecycle: lifecycle, clock: clock}
}

// Execute marks the loan defaulted.
func (uc *MarkLoanDefaultedUseCase) Execute(ctx context.Context, req dto.CloseLoanRequest) (dto.LoanResponse, error) {
	return closeLoan(ctx, uc.ledger, uc.clock, req, uc.lifecycle.MarkLoanDefaulted)
}

// MarkLoanCompletedUseCase closes a fully repaid loan.
type MarkLoanCompletedUseCase struct {
	ledger    port.Ledger
	lifecycle *service.Lifecycle
	clock     port.Clock
}

// NewMarkLoanCompletedUseCase wires dependencies.
func NewMarkLoanCompletedUseCase(ledger port.Ledger, lifecycle *service.Lifecycle, clock port.Clock) *MarkLoanCompletedUseCase {
	return &MarkLoanCompletedUseCase{ledger: ledger, lifecycle: lifecycle, clock: clock}
}

// Execute marks the loan completed.
func (uc *MarkLoanCompletedUseCase) Execute(ctx context.Context, req dto.CloseLoanRequest) (dto.LoanResponse, error) {
	return closeLoan(ctx, uc.ledger, uc.clock, req, uc.lifecycle.MarkLoanCompleted)
}
