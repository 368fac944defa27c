package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/bibbank/microloan/internal/application/dto"
	"github.com/bibbank/microloan/internal/domain/ledgererr"
	"github.com/bibbank/microloan/internal/domain/model"
	"github.com/bibbank/microloan/internal/domain/port"
	"github.com/bibbank/microloan/internal/domain/service"
)

// RecordPaymentUseCase applies an installment payment to a loan.
type RecordPaymentUseCase struct {
	ledger    port.Ledger
	lifecycle *service.Lifecycle
	clock     port.Clock
}

// NewRecordPaymentUseCase wires dependencies.
func NewRecordPaymentUseCase(ledger port.Ledger, lifecycle *service.Lifecycle, clock port.Clock) *RecordPaymentUseCase {
	return &RecordPaymentUseCase{ledger: ledger, lifecycle: lifecycle, clock: clock}
}

// Execute records the payment. Each installment can be paid once.
func (uc *RecordPaymentUseCase) Execute(ctx context.Context, req dto.RecordPaymentRequest) (dto.RecordPaymentResponse, error) {
	var out service.RecordPaymentResult
	err := uc.ledger.Atomically(ctx, func(tx port.Tx) error {
		// 1. Load the records the payment touches.
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

		// 2. Reject a repeat of an installment already on record.
		_, err = loadPayment(ctx, tx, loan.Borrower, loan.LoanID, req.InstallmentNumber)
		switch {
		case err == nil:
			return ledgererr.Newf(ledgererr.KindInstallmentAlreadyPaid, "installment %d", req.InstallmentNumber)
		case !errors.Is(err, port.ErrRecordNotFound):
			return err
		}

		// 3. Apply the transition.
		res, err := uc.lifecycle.RecordPayment(program, loan, user, req.Caller, service.RecordPaymentInput{
			PaymentProof:      req.PaymentProof,
			Amount:            req.Amount,
			InstallmentNumber: req.InstallmentNumber,
		}, uc.clock.Now())
		if err != nil {
			return err
		}

		// 4. Persist.
		if err := tx.Create(ctx, res.Payment.Key(), res.Payment); err != nil {
			if errors.Is(err, port.ErrRecordExists) {
				return ledgererr.Newf(ledgererr.KindInstallmentAlreadyPaid, "installment %d", req.InstallmentNumber)
			}
			return fmt.Errorf("create payment: %w", err)
		}
		if err := storeAll(ctx, tx, map[model.Key]model.Record{
			res.Loan.Key():                    res.Loan,
			model.UserKey(res.User.Authority): res.User,
		}); err != nil {
			return err
		}

		tx.Emit(res.Event)
		out = res
		return nil
	})
	if err != nil {
		return dto.RecordPaymentResponse{}, err
	}
	return dto.RecordPaymentResponse{
		Payment: dto.ToPaymentResponse(out.Payment),
		Loan:    dto.ToLoanResponse(out.Loan),
	}, nil
}
