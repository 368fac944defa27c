package testutil

import (
	"time"

	"github.com/google/uuid"
)

// Fixed identities for deterministic testing.
var (
	TestAdminID     = uuid.MustParse("00000000-0000-0000-0000-0000000000aa")
	TestBorrowerID1 = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	TestBorrowerID2 = uuid.MustParse("00000000-0000-0000-0000-000000000002")
)

// TestEpoch is a fixed ledger time, aligned to whole seconds.
var TestEpoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// Loan terms whose installment is known exactly: 888,487,886 per month.
const (
	TestPrincipal    uint64 = 10_000_000_000
	TestInterestRate uint16 = 1200
	TestTenureMonths uint8  = 12
	TestInstallment  uint64 = 888_487_886
)
