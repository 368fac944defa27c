package service

import (
	"math"
	"time"

	"github.com/bibbank/microloan/internal/domain/numeric"
)

// BillingPeriod is the fixed month used for due dates; calendar months are
// not considered.
const BillingPeriod = 30 * 24 * time.Hour

// DueDate returns the due date of an installment.
func DueDate(loanStart time.Time, installment uint8) time.Time {
	return loanStart.Add(time.Duration(installment) * BillingPeriod)
}

// PaymentAssessment is the lateness verdict for one installment payment.
type PaymentAssessment struct {
	DueAt    time.Time
	OnTime   bool
	DaysLate uint16
	Fine     uint64
}

// FineCalculator determines lateness and the accrued late fine.
type FineCalculator struct {
	grace     time.Duration
	dailyRate uint64
}

// NewFineCalculator creates a calculator from the policy's grace window and
// daily fine rate.
func NewFineCalculator(policy Policy) FineCalculator {
	return FineCalculator{grace: policy.GracePeriod, dailyRate: policy.DailyFineRateBp}
}

// Assess evaluates a payment for the given installment made at now. A
// payment at or before the end of the grace window is on time. Each whole
// day past it accrues installment*dailyRate/10000, uncapped.
func (c FineCalculator) Assess(loanStart time.Time, installment uint8, monthlyInstallment uint64, now time.Time) (PaymentAssessment, error) {
	due := DueDate(loanStart, installment)
	graceEnd := due.Add(c.grace)

	out := PaymentAssessment{DueAt: due}
	if !now.After(graceEnd) {
		out.OnTime = true
		return out, nil
	}

	days := int64(now.Sub(graceEnd) / (24 * time.Hour))
	if days > math.MaxUint16 {
		days = math.MaxUint16
	}
	out.DaysLate = uint16(days)
	if out.DaysLate == 0 {
		return out, nil
	}

	fine, err := numeric.MulDiv(monthlyInstallment, c.dailyRate*uint64(out.DaysLate), 10_000)
	if err != nil {
		return PaymentAssessment{}, err
	}
	out.Fine = fine
	return out, nil
}
