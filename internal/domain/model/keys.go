package model

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// RecordKind tags the schema of a stored record. Values are persisted.
type RecordKind uint8

const (
	KindProgramState  RecordKind = 1
	KindUserProfile   RecordKind = 2
	KindLoan          RecordKind = 3
	KindPaymentRecord RecordKind = 4
	KindRiskProfile   RecordKind = 5
)

func (k RecordKind) String() string {
	switch k {
	case KindProgramState:
		return "program_state"
	case KindUserProfile:
		return "user_profile"
	case KindLoan:
		return "loan"
	case KindPaymentRecord:
		return "payment_record"
	case KindRiskProfile:
		return "risk_profile"
	default:
		return fmt.Sprintf("record_kind(%d)", uint8(k))
	}
}

// Size is the storage allocated for a record of this kind.
func (k RecordKind) Size() int {
	switch k {
	case KindProgramState:
		return ProgramStateSize
	case KindUserProfile:
		return UserProfileSize
	case KindLoan:
		return LoanSize
	case KindPaymentRecord:
		return PaymentRecordSize
	case KindRiskProfile:
		return RiskProfileSize
	default:
		return 0
	}
}

// Key is the logical address of a record in the ledger.
type Key string

// ProgramKey addresses the ProgramState singleton.
func ProgramKey() Key { return "program" }

// UserKey addresses a borrower's UserProfile.
func UserKey(user uuid.UUID) Key { return Key("user/" + user.String()) }

// LoanKey addresses a loan by borrower and program-wide sequence number.
func LoanKey(borrower uuid.UUID, loanID uint64) Key {
	return Key("loan/" + borrower.String() + "/" + strconv.FormatUint(loanID, 10))
}

// PaymentKey addresses the payment for one installment of a loan.
func PaymentKey(borrower uuid.UUID, loanID uint64, installment uint8) Key {
	return Key("payment/" + borrower.String() + "/" + strconv.FormatUint(loanID, 10) +
		"/" + strconv.FormatUint(uint64(installment), 10))
}

// RiskKey addresses a borrower's RiskProfile.
func RiskKey(user uuid.UUID) Key { return Key("risk/" + user.String()) }

func (k Key) String() string { return string(k) }
