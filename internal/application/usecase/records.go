package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/bibbank/microloan/internal/domain/ledgererr"
	"github.com/bibbank/microloan/internal/domain/model"
	"github.com/bibbank/microloan/internal/domain/port"
)

// Loaders translate storage misses into ledger error kinds.

func loadProgram(ctx context.Context, r port.Reader) (model.ProgramState, error) {
	var p model.ProgramState
	if err := r.Load(ctx, model.ProgramKey(), &p); err != nil {
		if errors.Is(err, port.ErrRecordNotFound) {
			return model.ProgramState{}, ledgererr.Newf(ledgererr.KindUnauthorized, "program not initialized")
		}
		return model.ProgramState{}, fmt.Errorf("load program: %w", err)
	}
	return p, nil
}

func loadUser(ctx context.Context, r port.Reader, user uuid.UUID) (model.UserProfile, error) {
	var u model.UserProfile
	if err := r.Load(ctx, model.UserKey(user), &u); err != nil {
		if errors.Is(err, port.ErrRecordNotFound) {
			return model.UserProfile{}, ledgererr.Newf(ledgererr.KindUserNotFound, "%s", user)
		}
		return model.UserProfile{}, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

func loadLoan(ctx context.Context, r port.Reader, borrower uuid.UUID, loanID uint64) (model.Loan, error) {
	var l model.Loan
	if err := r.Load(ctx, model.LoanKey(borrower, loanID), &l); err != nil {
		if errors.Is(err, port.ErrRecordNotFound) {
			return model.Loan{}, ledgererr.Newf(ledgererr.KindLoanNotFound, "%s/%d", borrower, loanID)
		}
		return model.Loan{}, fmt.Errorf("load loan: %w", err)
	}
	return l, nil
}

// loadPayment returns port.ErrRecordNotFound unchanged so callers can decide
// what a missing installment means.
func loadPayment(ctx context.Context, r port.Reader, borrower uuid.UUID, loanID uint64, n uint8) (model.PaymentRecord, error) {
	var p model.PaymentRecord
	if err := r.Load(ctx, model.PaymentKey(borrower, loanID, n), &p); err != nil {
		return model.PaymentRecord{}, fmt.Errorf("load payment: %w", err)
	}
	return p, nil
}

func loadRiskProfile(ctx context.Context, r port.Reader, user uuid.UUID) (model.RiskProfile, error) {
	var p model.RiskProfile
	if err := r.Load(ctx, model.RiskKey(user), &p); err != nil {
		return model.RiskProfile{}, fmt.Errorf("load risk profile: %w", err)
	}
	return p, nil
}

// storeAll overwrites each record under its key.
func storeAll(ctx context.Context, tx port.Tx, recs map[model.Key]model.Record) error {
	for key, rec := range recs {
		if err := tx.Store(ctx, key, rec); err != nil {
			return fmt.Errorf("store %s: %w", key, err)
		}
	}
	return nil
}
