package usecase

import (
	"context"
	"fmt"

	"github.com/bibbank/microloan/internal/application/dto"
	"github.com/bibbank/microloan/internal/domain/ledgererr"
	"github.com/bibbank/microloan/internal/domain/model"
	"github.com/bibbank/microloan/internal/domain/port"
	"github.com/bibbank/microloan/internal/domain/service"
	"github.com/bibbank/microloan/internal/domain/valueobject"
)

// UpdateUserProfileUseCase lets a borrower change income or employment.
type UpdateUserProfileUseCase struct {
	ledger    port.Ledger
	lifecycle *service.Lifecycle
	clock     port.Clock
}

// NewUpdateUserProfileUseCase wires dependencies.
func NewUpdateUserProfileUseCase(ledger port.Ledger, lifecycle *service.Lifecycle, clock port.Clock) *UpdateUserProfileUseCase {
	return &UpdateUserProfileUseCase{ledger: ledger, lifecycle: lifecycle, clock: clock}
}

// Execute updates the caller's own profile.
func (uc *UpdateUserProfileUseCase) Execute(ctx context.Context, req dto.UpdateUserProfileRequest) (dto.UserProfileResponse, error) {
	in := service.UpdateProfileInput{MonthlyIncome: req.MonthlyIncome}
	if req.EmploymentType != nil {
		employment, err := valueobject.NewEmploymentType(*req.EmploymentType)
		if err != nil {
			return dto.UserProfileResponse{}, ledgererr.Newf(ledgererr.KindInvalidStringFormat, "%v", err)
		}
		in.EmploymentType = &employment
	}

	var out model.UserProfile
	err := uc.ledger.Atomically(ctx, func(tx port.Tx) error {
		user, err := loadUser(ctx, tx, req.Caller)
		if err != nil {
			return err
		}
		user, evt, err := uc.lifecycle.UpdateUserProfile(user, req.Caller, in, uc.clock.Now())
		if err != nil {
			return err
		}
		if err := tx.Store(ctx, model.UserKey(user.Authority), user); err != nil {
			return fmt.Errorf("store user: %w", err)
		}
		tx.Emit(evt)
		out = user
		return nil
	})
	if err != nil {
		return dto.UserProfileResponse{}, err
	}
	return dto.ToUserProfileResponse(out), nil
}
