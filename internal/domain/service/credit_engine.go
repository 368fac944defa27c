package service

import (
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/microloan/internal/domain/ledgererr"
	"github.com/bibbank/microloan/internal/domain/model"
	"github.com/bibbank/microloan/internal/domain/numeric"
	"github.com/bibbank/microloan/internal/domain/valueobject"
)

// Credit score adjustments applied by ledger transitions.
const (
	OnTimePaymentBonus uint16 = 2
	LatePaymentPenalty uint16 = 5
	CompletionBonus    uint16 = 20
	DefaultPenalty     uint16 = 100
)

// CreditEngine applies score movements and derives risk profiles. Scores are
// always kept inside [model.MinCreditScore, model.MaxCreditScore].
type CreditEngine struct {
	maxRecommendedLoan uint64
}

// NewCreditEngine creates a credit engine bound to the given policy.
func NewCreditEngine(policy Policy) CreditEngine {
	return CreditEngine{maxRecommendedLoan: policy.MaxRecommendedLoan}
}

// Reward raises a score by delta, capped at the maximum.
func (CreditEngine) Reward(score, delta uint16) uint16 {
	return min(numeric.SaturatingAdd(score, delta), model.MaxCreditScore)
}

// Penalize lowers a score by delta, floored at the minimum.
func (CreditEngine) Penalize(score, delta uint16) uint16 {
	return max(numeric.SaturatingSub(score, delta), model.MinCreditScore)
}

// RiskAssessment is the administrator's input to a risk update.
type RiskAssessment struct {
	Level              valueobject.RiskLevel
	Score              uint16
	DefaultProbability uint16
}

// Validate checks the assessment bounds.
func (a RiskAssessment) Validate() error {
	if a.Score > model.MaxRiskScore {
		return ledgererr.Newf(ledgererr.KindInvalidRiskScore, "%d exceeds %d", a.Score, model.MaxRiskScore)
	}
	if a.DefaultProbability > model.MaxDefaultProbability {
		return ledgererr.Newf(ledgererr.KindInvalidDefaultProbability,
			"%d exceeds %d", a.DefaultProbability, model.MaxDefaultProbability)
	}
	if a.Level.IsZero() {
		return ledgererr.Newf(ledgererr.KindInvalidStringFormat, "risk level is required")
	}
	return nil
}

// RecommendedMaxLoan is income times the level multiplier, saturating and
// capped by policy.
func (e CreditEngine) RecommendedMaxLoan(income uint64, level valueobject.RiskLevel) uint64 {
	return min(numeric.SaturatingMul(income, level.LoanMultiplier()), e.maxRecommendedLoan)
}

// Profile builds the risk profile for a user from an assessment.
func (e CreditEngine) Profile(user model.UserProfile, a RiskAssessment, now time.Time) model.RiskProfile {
	return model.RiskProfile{
		User:               user.Authority,
		RiskScore:          a.Score,
		RiskLevel:          a.Level,
		DefaultProbability: a.DefaultProbability,
		RecommendedMaxLoan: e.RecommendedMaxLoan(user.MonthlyIncome, a.Level),
		LastCalculated:     now,
		FactorsCount:       model.RiskFactorsCount,
	}
}

// CreditScoreFor maps a 0..1000 risk score onto the credit score range.
func (CreditEngine) CreditScoreFor(riskScore uint16) uint16 {
	return numeric.Clamp(riskScore, model.MinCreditScore, model.MaxCreditScore)
}

// CreditReport is the read-only credit summary returned to callers.
type CreditReport struct {
	User           uuid.UUID
	CreditScore    uint16
	RiskLevel      valueobject.RiskLevel
	OnTimePayments uint16
	LatePayments   uint16
	CompletedLoans uint16
	DefaultedLoans uint8
}

// Report summarizes a user's credit standing.
func (CreditEngine) Report(user model.UserProfile) CreditReport {
	return CreditReport{
		User:           user.Authority,
		CreditScore:    user.CreditScore,
		RiskLevel:      user.RiskLevel,
		OnTimePayments: user.OnTimePayments,
		LatePayments:   user.LatePayments,
		CompletedLoans: user.CompletedLoans,
		DefaultedLoans: user.DefaultedLoans,
	}
}
