package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/bibbank/microloan/internal/application/dto"
	"github.com/bibbank/microloan/internal/domain/model"
	"github.com/bibbank/microloan/internal/domain/port"
	"github.com/bibbank/microloan/internal/domain/service"
)

// CreateLoanUseCase originates a loan for a registered borrower.
type CreateLoanUseCase struct {
	ledger    port.Ledger
	lifecycle *service.Lifecycle
	clock     port.Clock
}

// NewCreateLoanUseCase wires dependencies.
func NewCreateLoanUseCase(ledger port.Ledger, lifecycle *service.Lifecycle, clock port.Clock) *CreateLoanUseCase {
	return &CreateLoanUseCase{ledger: ledger, lifecycle: lifecycle, clock: clock}
}

// Execute prices and records the loan, updating borrower and program totals.
func (uc *CreateLoanUseCase) Execute(ctx context.Context, req dto.CreateLoanRequest) (dto.LoanResponse, error) {
	in := service.CreateLoanInput{
		Principal:    req.PrincipalAmount,
		InterestRate: req.InterestRate,
		TenureMonths: req.TenureMonths,
	}
	if req.StartTimestamp != 0 {
		in.StartAt = time.Unix(req.StartTimestamp, 0)
	}

	var out model.Loan
	err := uc.ledger.Atomically(ctx, func(tx port.Tx) error {
		// 1. Load the records the origination touches.
		program, err := loadProgram(ctx, tx)
		if err != nil {
			return err
		}
		user, err := loadUser(ctx, tx, req.Borrower)
		if err != nil {
			return err
		}

		// 2. Apply the transition.
		res, err := uc.lifecycle.CreateLoan(program, user, req.Caller, in, uc.clock.Now())
		if err != nil {
			return err
		}

		// 3. Allocate the loan and persist the aggregates.
		if err := tx.Create(ctx, res.Loan.Key(), res.Loan); err != nil {
			return fmt.Errorf("create loan %d: %w", res.Loan.LoanID, err)
		}
		if err := storeAll(ctx, tx, map[model.Key]model.Record{
			model.ProgramKey():                res.Program,
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
