package service

import (
	"errors"
	"fmt"
	"time"
)

// Policy holds the tunable lending parameters. DefaultPolicy matches the
// program's published terms.
type Policy struct {
	MinPrincipal       uint64
	MaxPrincipal       uint64
	MaxInterestRate    uint16 // basis points per annum
	MinTenureMonths    uint8
	MaxTenureMonths    uint8
	MaxFeePercentage   uint16 // hundredths of a percent
	GracePeriod        time.Duration
	DailyFineRateBp    uint64
	MaxRecommendedLoan uint64

	// Underwriting gates applied at origination. Zero / false disables them.
	MinCreditScoreForLoan uint16
	RejectCriticalRisk    bool
}

// DefaultPolicy returns the standard program terms.
func DefaultPolicy() Policy {
	return Policy{
		MinPrincipal:       5_000_000_000,
		MaxPrincipal:       500_000_000_000,
		MaxInterestRate:    3000,
		MinTenureMonths:    3,
		MaxTenureMonths:    60,
		MaxFeePercentage:   1000,
		GracePeriod:        2 * 24 * time.Hour,
		DailyFineRateBp:    50,
		MaxRecommendedLoan: 500_000_000_000,
	}
}

// Validate checks the policy for internal consistency.
func (p Policy) Validate() error {
	var errs []error
	if p.MinPrincipal == 0 || p.MinPrincipal > p.MaxPrincipal {
		errs = append(errs, fmt.Errorf("principal bounds [%d, %d] invalid", p.MinPrincipal, p.MaxPrincipal))
	}
	if p.MaxInterestRate == 0 {
		errs = append(errs, errors.New("max interest rate must be positive"))
	}
	if p.MinTenureMonths == 0 || p.MinTenureMonths > p.MaxTenureMonths {
		errs = append(errs, fmt.Errorf("tenure bounds [%d, %d] invalid", p.MinTenureMonths, p.MaxTenureMonths))
	}
	if p.GracePeriod < 0 {
		errs = append(errs, errors.New("grace period must not be negative"))
	}
	if p.DailyFineRateBp > 10000 {
		errs = append(errs, fmt.Errorf("daily fine rate %d bp exceeds 100%%", p.DailyFineRateBp))
	}
	return errors.Join(errs...)
}
