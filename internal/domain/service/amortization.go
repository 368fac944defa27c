package service

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bibbank/microloan/internal/domain/ledgererr"
	"github.com/bibbank/microloan/internal/domain/numeric"
)

// monthsPerYearBp converts an annual basis-point rate to a monthly fraction:
// r = rateBp / monthsPerYearBp.
const monthsPerYearBp = 12 * 10_000

// Installment is the fixed repayment plan for a loan.
type Installment struct {
	Monthly uint64
	Total   uint64
}

// ComputeInstallment returns the amortized monthly installment and the total
// repayment for a loan. With r = rateBp/120000 the installment is
// P*r*(1+r)^n / ((1+r)^n - 1), which in integers is
//
//	P * rate * (120000+rate)^n / (120000 * ((120000+rate)^n - 120000^n))
//
// evaluated exactly and truncated toward zero. A zero rate splits the
// principal evenly, discarding the remainder.
func ComputeInstallment(principal uint64, rateBp uint16, tenureMonths uint8) (Installment, error) {
	if tenureMonths == 0 {
		return Installment{}, ledgererr.ErrInvalidTenure
	}
	n := uint64(tenureMonths)

	var monthly uint64
	if rateBp == 0 {
		monthly = principal / n
	} else {
		b := big.NewInt(monthsPerYearBp)
		a := new(big.Int).Add(b, big.NewInt(int64(rateBp)))
		exp := new(big.Int).SetUint64(n)
		an := new(big.Int).Exp(a, exp, nil)
		bn := new(big.Int).Exp(b, exp, nil)

		num := new(big.Int).SetUint64(principal)
		num.Mul(num, big.NewInt(int64(rateBp)))
		num.Mul(num, an)

		den := new(big.Int).Sub(an, bn)
		den.Mul(den, b)

		q := num.Quo(num, den)
		if !q.IsUint64() {
			return Installment{}, ledgererr.ErrMathOverflow
		}
		monthly = q.Uint64()
	}

	total, err := numeric.CheckedMul(monthly, n)
	if err != nil {
		return Installment{}, err
	}
	return Installment{Monthly: monthly, Total: total}, nil
}

// AmortizationEngine validates loan terms against policy and prices them.
type AmortizationEngine struct {
	policy Policy
}

// NewAmortizationEngine creates an engine bound to the given policy.
func NewAmortizationEngine(policy Policy) AmortizationEngine {
	return AmortizationEngine{policy: policy}
}

// Quote validates the requested terms and computes the installment.
func (e AmortizationEngine) Quote(principal uint64, rateBp uint16, tenureMonths uint8) (Installment, error) {
	if principal < e.policy.MinPrincipal || principal > e.policy.MaxPrincipal {
		return Installment{}, ledgererr.Newf(ledgererr.KindInvalidLoanAmount,
			"%d outside [%d, %d]", principal, e.policy.MinPrincipal, e.policy.MaxPrincipal)
	}
	if rateBp == 0 || rateBp > e.policy.MaxInterestRate {
		return Installment{}, ledgererr.Newf(ledgererr.KindInvalidInterestRate,
			"%d bp outside (0, %d]", rateBp, e.policy.MaxInterestRate)
	}
	if tenureMonths < e.policy.MinTenureMonths || tenureMonths > e.policy.MaxTenureMonths {
		return Installment{}, ledgererr.Newf(ledgererr.KindInvalidTenure,
			"%d months outside [%d, %d]", tenureMonths, e.policy.MinTenureMonths, e.policy.MaxTenureMonths)
	}
	return ComputeInstallment(principal, rateBp, tenureMonths)
}

// ScheduleEntry is one period of an amortization breakdown.
type ScheduleEntry struct {
	DueDate          time.Time
	Payment          decimal.Decimal
	Principal        decimal.Decimal
	Interest         decimal.Decimal
	RemainingBalance decimal.Decimal
	Period           int
}

// Schedule breaks a priced loan into per-period interest and principal
// portions, in minor units rounded to whole units. The final period absorbs
// rounding so the balance reaches exactly zero. It is informational; the
// ledger tracks the outstanding balance against the total amount.
func Schedule(principal uint64, rateBp uint16, tenureMonths uint8, start time.Time, inst Installment) []ScheduleEntry {
	if tenureMonths == 0 {
		return nil
	}

	monthlyRate := decimal.NewFromInt(int64(rateBp)).Div(decimal.NewFromInt(monthsPerYearBp))
	payment := decimal.NewFromUint64(inst.Monthly)
	remaining := decimal.NewFromUint64(principal)

	schedule := make([]ScheduleEntry, 0, tenureMonths)
	for period := 1; period <= int(tenureMonths); period++ {
		interest := remaining.Mul(monthlyRate).Round(0)
		principalPart := payment.Sub(interest)

		// Last period: settle whatever principal remains.
		if period == int(tenureMonths) {
			principalPart = remaining
		}
		if principalPart.IsNegative() {
			principalPart = decimal.Zero
		}

		remaining = remaining.Sub(principalPart)
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}

		schedule = append(schedule, ScheduleEntry{
			Period:           period,
			DueDate:          DueDate(start, uint8(period)),
			Payment:          principalPart.Add(interest),
			Principal:        principalPart,
			Interest:         interest,
			RemainingBalance: remaining,
		})
	}
	return schedule
}
