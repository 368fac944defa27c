package valueobject

import "fmt"

// RiskLevel is an immutable value object representing the borrower's risk tier.
type RiskLevel struct {
	value string
}

var (
	RiskLevelLow      = RiskLevel{value: "LOW"}
	RiskLevelMedium   = RiskLevel{value: "MEDIUM"}
	RiskLevelHigh     = RiskLevel{value: "HIGH"}
	RiskLevelCritical = RiskLevel{value: "CRITICAL"}
)

var riskLevelOrder = []RiskLevel{
	RiskLevelLow,
	RiskLevelMedium,
	RiskLevelHigh,
	RiskLevelCritical,
}

// RiskLevelFromString reconstructs a RiskLevel from its string representation.
func RiskLevelFromString(s string) (RiskLevel, error) {
	switch s {
	case "LOW":
		return RiskLevelLow, nil
	case "MEDIUM":
		return RiskLevelMedium, nil
	case "HIGH":
		return RiskLevelHigh, nil
	case "CRITICAL":
		return RiskLevelCritical, nil
	default:
		return RiskLevel{}, fmt.Errorf("invalid risk level: %s", s)
	}
}

// RiskLevelFromOrdinal decodes the single-byte stored form.
func RiskLevelFromOrdinal(b uint8) (RiskLevel, error) {
	if int(b) >= len(riskLevelOrder) {
		return RiskLevel{}, fmt.Errorf("invalid risk level ordinal: %d", b)
	}
	return riskLevelOrder[b], nil
}

// Ordinal returns the single-byte stored form.
func (r RiskLevel) Ordinal() uint8 {
	switch r.value {
	case "LOW":
		return 0
	case "MEDIUM":
		return 1
	case "HIGH":
		return 2
	case "CRITICAL":
		return 3
	default:
		panic(fmt.Sprintf("risk level %q has no ordinal", r.value))
	}
}

// LoanMultiplier is the number of months of income a borrower in this tier
// may be lent. Strictly decreasing from LOW to CRITICAL.
func (r RiskLevel) LoanMultiplier() uint64 {
	switch r.value {
	case "LOW":
		return 10
	case "MEDIUM":
		return 6
	case "HIGH":
		return 3
	case "CRITICAL":
		return 1
	default:
		return 0
	}
}

// String returns the string representation.
func (r RiskLevel) String() string {
	return r.value
}

// IsZero returns true if the RiskLevel has not been set.
func (r RiskLevel) IsZero() bool {
	return r.value == ""
}

// Equal checks equality with another RiskLevel.
func (r RiskLevel) Equal(other RiskLevel) bool {
	return r.value == other.value
}
