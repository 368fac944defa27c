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

// UpdateRiskScoreUseCase records an administrator risk assessment.
type UpdateRiskScoreUseCase struct {
	ledger    port.Ledger
	lifecycle *service.Lifecycle
	clock     port.Clock
}

// NewUpdateRiskScoreUseCase wires dependencies.
func NewUpdateRiskScoreUseCase(ledger port.Ledger, lifecycle *service.Lifecycle, clock port.Clock) *UpdateRiskScoreUseCase {
	return &UpdateRiskScoreUseCase{ledger: ledger, lifecycle: lifecycle, clock: clock}
}

// Execute overwrites the user's score and level and the risk profile, which
// is created on first assessment.
func (uc *UpdateRiskScoreUseCase) Execute(ctx context.Context, req dto.UpdateRiskScoreRequest) (dto.RiskProfileResponse, error) {
	level, err := valueobject.RiskLevelFromString(req.RiskLevel)
	if err != nil {
		return dto.RiskProfileResponse{}, ledgererr.Newf(ledgererr.KindInvalidStringFormat, "%v", err)
	}
	assessment := service.RiskAssessment{
		Level:              level,
		Score:              req.RiskScore,
		DefaultProbability: req.DefaultProbability,
	}

	var out model.RiskProfile
	err = uc.ledger.Atomically(ctx, func(tx port.Tx) error {
		program, err := loadProgram(ctx, tx)
		if err != nil {
			return err
		}
		user, err := loadUser(ctx, tx, req.User)
		if err != nil {
			return err
		}

		res, err := uc.lifecycle.UpdateRiskScore(program, user, req.Caller, assessment, uc.clock.Now())
		if err != nil {
			return err
		}

		if err := tx.Store(ctx, model.UserKey(res.User.Authority), res.User); err != nil {
			return fmt.Errorf("store user: %w", err)
		}
		riskKey := model.RiskKey(res.User.Authority)
		if err := tx.Create(ctx, riskKey, res.Profile); err != nil {
			if !errors.Is(err, port.ErrRecordExists) {
				return fmt.Errorf("create risk profile: %w", err)
			}
			if err := tx.Store(ctx, riskKey, res.Profile); err != nil {
				return fmt.Errorf("store risk profile: %w", err)
			}
		}

		tx.Emit(res.Event)
		out = res.Profile
		return nil
	})
	if err != nil {
		return dto.RiskProfileResponse{}, err
	}
	return dto.ToRiskProfileResponse(out), nil
}
