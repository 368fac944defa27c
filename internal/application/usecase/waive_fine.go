package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/bibbank/microloan/internal/application/dto"
	"github.com/bibbank/microloan/internal/domain/ledgererr"
	"github.com/bibbank/microloan/internal/domain/port"
	"github.com/bibbank/microloan/internal/domain/service"
)

// WaiveFineUseCase forgives part of an installment's late fine.
type WaiveFineUseCase struct {
	ledger    port.Ledger
	lifecycle *service.Lifecycle
	clock     port.Clock
}

// NewWaiveFineUseCase wires dependencies.
func NewWaiveFineUseCase(ledger port.Ledger, lifecycle *service.Lifecycle, clock port.Clock) *WaiveFineUseCase {
	return &WaiveFineUseCase{ledger: ledger, lifecycle: lifecycle, clock: clock}
}

// Execute applies the waiver to the loan and the payment record.
func (uc *WaiveFineUseCase) Execute(ctx context.Context, req dto.WaiveFineRequest) (dto.PaymentResponse, error) {
	var out service.WaiveFineResult
	err := uc.ledger.Atomically(ctx, func(tx port.Tx) error {
		program, err := loadProgram(ctx, tx)
		if err != nil {
			return err
		}
		loan, err := loadLoan(ctx, tx, req.Loan.Borrower, req.Loan.LoanID)
		if err != nil {
			return err
		}
		payment, err := loadPayment(ctx, tx, loan.Borrower, loan.LoanID, req.InstallmentNumber)
		if err != nil {
			if errors.Is(err, port.ErrRecordNotFound) {
				return ledgererr.Newf(ledgererr.KindInvalidInstallmentNumber,
					"installment %d has no payment", req.InstallmentNumber)
			}
			return err
		}

		res, err := uc.lifecycle.WaiveFine(program, loan, payment, req.Caller, req.WaivedAmount, uc.clock.Now())
		if err != nil {
			return err
		}
		if err := tx.Store(ctx, res.Loan.Key(), res.Loan); err != nil {
			return fmt.Errorf("store loan: %w", err)
		}
		if err := tx.Store(ctx, res.Payment.Key(), res.Payment); err != nil {
			return fmt.Errorf("store payment: %w", err)
		}

		tx.Emit(res.Event)
		out = res
		return nil
	})
	if err != nil {
		return dto.PaymentResponse{}, err
	}
	return dto.ToPaymentResponse(out.Payment), nil
}
