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

// InitializeProgramUseCase creates the program state exactly once.
type InitializeProgramUseCase struct {
	ledger    port.Ledger
	lifecycle *service.Lifecycle
	clock     port.Clock
}

// NewInitializeProgramUseCase wires dependencies.
func NewInitializeProgramUseCase(ledger port.Ledger, lifecycle *service.Lifecycle, clock port.Clock) *InitializeProgramUseCase {
	return &InitializeProgramUseCase{ledger: ledger, lifecycle: lifecycle, clock: clock}
}

// Execute initializes the program with the caller as authority. A second
// call is rejected as unauthorized.
func (uc *InitializeProgramUseCase) Execute(ctx context.Context, req dto.InitializeRequest) (dto.ProgramResponse, error) {
	program, evt, err := uc.lifecycle.Initialize(req.Caller, req.FeePercentage, uc.clock.Now())
	if err != nil {
		return dto.ProgramResponse{}, err
	}

	err = uc.ledger.Atomically(ctx, func(tx port.Tx) error {
		if err := tx.Create(ctx, model.ProgramKey(), program); err != nil {
			if errors.Is(err, port.ErrRecordExists) {
				return ledgererr.Newf(ledgererr.KindUnauthorized, "program already initialized")
			}
			return fmt.Errorf("create program: %w", err)
		}
		tx.Emit(evt)
		return nil
	})
	if err != nil {
		return dto.ProgramResponse{}, err
	}
	return dto.ToProgramResponse(program), nil
}
