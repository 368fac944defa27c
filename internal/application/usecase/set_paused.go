package usecase

import (
	"context"
	"fmt"

	"github.com/bibbank/microloan/internal/application/dto"
	"github.com/bibbank/microloan/internal/domain/model"
	"github.com/bibbank/microloan/internal/domain/port"
	"github.com/bibbank/microloan/internal/domain/service"
)

// SetPausedUseCase pauses or resumes registrations and originations.
type SetPausedUseCase struct {
	ledger    port.Ledger
	lifecycle *service.Lifecycle
	clock     port.Clock
}

// NewSetPausedUseCase wires dependencies.
func NewSetPausedUseCase(ledger port.Ledger, lifecycle *service.Lifecycle, clock port.Clock) *SetPausedUseCase {
	return &SetPausedUseCase{ledger: ledger, lifecycle: lifecycle, clock: clock}
}

// Execute sets the pause flag.
func (uc *SetPausedUseCase) Execute(ctx context.Context, req dto.SetPausedRequest) (dto.ProgramResponse, error) {
	var out model.ProgramState
	err := uc.ledger.Atomically(ctx, func(tx port.Tx) error {
		program, err := loadProgram(ctx, tx)
		if err != nil {
			return err
		}
		program, evt, err := uc.lifecycle.SetPaused(program, req.Caller, req.Paused, uc.clock.Now())
		if err != nil {
			return err
		}
		if err := tx.Store(ctx, model.ProgramKey(), program); err != nil {
			return fmt.Errorf("store program: %w", err)
		}
		tx.Emit(evt)
		out = program
		return nil
	})
	if err != nil {
		return dto.ProgramResponse{}, err
	}
	return dto.ToProgramResponse(out), nil
}
