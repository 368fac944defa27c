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
	"github.com/bibbank/microloan/internal/domain/valueobject"
)

// RegisterUserUseCase onboards the caller as a borrower.
type RegisterUserUseCase struct {
	ledger    port.Ledger
	lifecycle *service.Lifecycle
	clock     port.Clock
}

// NewRegisterUserUseCase wires dependencies.
func NewRegisterUserUseCase(ledger port.Ledger, lifecycle *service.Lifecycle, clock port.Clock) *RegisterUserUseCase {
	return &RegisterUserUseCase{ledger: ledger, lifecycle: lifecycle, clock: clock}
}

// Execute registers the caller.
func (uc *RegisterUserUseCase) Execute(ctx context.Context, req dto.RegisterUserRequest) (dto.UserProfileResponse, error) {
	employment, err := valueobject.NewEmploymentType(req.EmploymentType)
	if err != nil {
		return dto.UserProfileResponse{}, ledgererr.Newf(ledgererr.KindInvalidStringFormat, "%v", err)
	}

	var out model.UserProfile
	err = uc.ledger.Atomically(ctx, func(tx port.Tx) error {
		// 1. Load program state.
		program, err := loadProgram(ctx, tx)
		if err != nil {
			return err
		}

		// 2. Apply the transition.
		res, err := uc.lifecycle.RegisterUser(program, req.Caller, service.RegisterUserInput{
			FullName:       req.FullName,
			MonthlyIncome:  req.MonthlyIncome,
			EmploymentType: employment,
		}, uc.clock.Now())
		if err != nil {
			return err
		}

		// 3. Allocate the profile; an existing one means a duplicate.
		if err := tx.Create(ctx, model.UserKey(req.Caller), res.User); err != nil {
			if errors.Is(err, port.ErrRecordExists) {
				return ledgererr.ErrUserAlreadyRegistered
			}
			return fmt.Errorf("create user: %w", err)
		}
		if err := tx.Store(ctx, model.ProgramKey(), res.Program); err != nil {
			return fmt.Errorf("store program: %w", err)
		}

		tx.Emit(res.Event)
		out = res.User
		return nil
	})
	if err != nil {
		return dto.UserProfileResponse{}, err
	}
	return dto.ToUserProfileResponse(out), nil
}
