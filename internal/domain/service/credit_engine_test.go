package service_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bibbank/microloan/internal/domain/ledgererr"
	"github.com/bibbank/microloan/internal/domain/model"
	"github.com/bibbank/microloan/internal/domain/service"
	"github.com/bibbank/microloan/internal/domain/valueobject"
)

func TestCreditEngine_ScoreBounds(t *testing.T) {
	engine := service.NewCreditEngine(service.DefaultPolicy())

	assert.Equal(t, uint16(502), engine.Reward(500, service.OnTimePaymentBonus))
	assert.Equal(t, uint16(850), engine.Reward(849, service.OnTimePaymentBonus))
	assert.Equal(t, uint16(850), engine.Reward(math.MaxUint16, service.CompletionBonus))
	assert.Equal(t, uint16(495), engine.Penalize(500, service.LatePaymentPenalty))
	assert.Equal(t, uint16(300), engine.Penalize(350, service.DefaultPenalty))
	assert.Equal(t, uint16(300), engine.Penalize(20, service.DefaultPenalty))
}

func TestCreditEngine_RecommendedMaxLoan(t *testing.T) {
	engine := service.NewCreditEngine(service.DefaultPolicy())

	tests := []struct {
		level valueobject.RiskLevel
		want  uint64
	}{
		{valueobject.RiskLevelLow, 10_000_000_000},
		{valueobject.RiskLevelMedium, 6_000_000_000},
		{valueobject.RiskLevelHigh, 3_000_000_000},
		{valueobject.RiskLevelCritical, 1_000_000_000},
	}
	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, engine.RecommendedMaxLoan(1_000_000_000, tt.level))
		})
	}

	t.Run("capped", func(t *testing.T) {
		assert.Equal(t, uint64(500_000_000_000), engine.RecommendedMaxLoan(math.MaxUint64, valueobject.RiskLevelLow))
	})
}

func TestRiskAssessment_Validate(t *testing.T) {
	valid := service.RiskAssessment{Level: valueobject.RiskLevelHigh, Score: 1000, DefaultProbability: 10000}
	assert.NoError(t, valid.Validate())

	bad := valid
	bad.Score = 1001
	assert.ErrorIs(t, bad.Validate(), ledgererr.ErrInvalidRiskScore)

	bad = valid
	bad.DefaultProbability = 10001
	assert.ErrorIs(t, bad.Validate(), ledgererr.ErrInvalidDefaultProbability)
}

func TestCreditEngine_Profile(t *testing.T) {
	engine := service.NewCreditEngine(service.DefaultPolicy())
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	user := model.UserProfile{Authority: borrowerID, MonthlyIncome: 2_000_000_000}

	p := engine.Profile(user, service.RiskAssessment{
		Level: valueobject.RiskLevelLow, Score: 720, DefaultProbability: 150,
	}, now)

	assert.Equal(t, borrowerID, p.User)
	assert.Equal(t, uint16(720), p.RiskScore)
	assert.Equal(t, uint64(20_000_000_000), p.RecommendedMaxLoan)
	assert.Equal(t, model.RiskFactorsCount, p.FactorsCount)
	assert.Equal(t, now, p.LastCalculated)

	assert.Equal(t, uint16(300), engine.CreditScoreFor(0))
	assert.Equal(t, uint16(850), engine.CreditScoreFor(1000))
	assert.Equal(t, uint16(720), engine.CreditScoreFor(720))
}
