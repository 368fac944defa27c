package valueobject

import "fmt"

// EmploymentType classifies a borrower's source of income.
type EmploymentType struct {
	value string
}

var (
	EmploymentSalaried      = EmploymentType{value: "SALARIED"}
	EmploymentSelfEmployed  = EmploymentType{value: "SELF_EMPLOYED"}
	EmploymentBusinessOwner = EmploymentType{value: "BUSINESS_OWNER"}
	EmploymentDailyWage     = EmploymentType{value: "DAILY_WAGE"}
	EmploymentUnemployed    = EmploymentType{value: "UNEMPLOYED"}
)

var employmentTypeOrder = []EmploymentType{
	EmploymentSalaried,
	EmploymentSelfEmployed,
	EmploymentBusinessOwner,
	EmploymentDailyWage,
	EmploymentUnemployed,
}

// NewEmploymentType parses the string form.
func NewEmploymentType(s string) (EmploymentType, error) {
	for _, e := range employmentTypeOrder {
		if e.value == s {
			return e, nil
		}
	}
	return EmploymentType{}, fmt.Errorf("invalid employment type: %q", s)
}

// EmploymentTypeFromOrdinal decodes the single-byte stored form.
func EmploymentTypeFromOrdinal(b uint8) (EmploymentType, error) {
	if int(b) >= len(employmentTypeOrder) {
		return EmploymentType{}, fmt.Errorf("invalid employment type ordinal: %d", b)
	}
	return employmentTypeOrder[b], nil
}

// Ordinal returns the single-byte stored form.
func (e EmploymentType) Ordinal() uint8 {
	for i, v := range employmentTypeOrder {
		if v.value == e.value {
			return uint8(i)
		}
	}
	panic(fmt.Sprintf("employment type %q has no ordinal", e.value))
}

func (e EmploymentType) String() string { return e.value }

func (e EmploymentType) IsZero() bool { return e.value == "" }

func (e EmploymentType) Equal(other EmploymentType) bool { return e.value == other.value }
