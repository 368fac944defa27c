package ledgererr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/microloan/internal/domain/ledgererr"
)

func TestKind_Codes(t *testing.T) {
	t.Run("codes start at 6000 and follow declaration order", func(t *testing.T) {
		assert.Equal(t, uint32(6000), ledgererr.KindUnauthorized.Code())
		assert.Equal(t, uint32(6015), ledgererr.KindInsufficientPayment.Code())
		assert.Equal(t, uint32(6019), ledgererr.KindMathOverflow.Code())
		assert.Equal(t, uint32(6024), ledgererr.KindIncomeTooLow.Code())
	})

	t.Run("every kind has a distinct name", func(t *testing.T) {
		kinds := ledgererr.Kinds()
		require.Len(t, kinds, 25)

		seen := make(map[string]bool)
		for _, k := range kinds {
			assert.False(t, seen[k.String()], "duplicate name %s", k)
			seen[k.String()] = true
			assert.NotEqual(t, "unknown ledger error", k.Message())
		}
	})

	t.Run("unknown kind renders numerically", func(t *testing.T) {
		assert.Equal(t, "Kind(99)", ledgererr.Kind(99).String())
	})
}

func TestError_Is(t *testing.T) {
	t.Run("matches sentinel through wrapping", func(t *testing.T) {
		err := fmt.Errorf("record payment: %w", ledgererr.Newf(ledgererr.KindInsufficientPayment, "need %d", 10))

		assert.True(t, errors.Is(err, ledgererr.ErrInsufficientPayment))
		assert.False(t, errors.Is(err, ledgererr.ErrLoanNotActive))
		assert.Contains(t, err.Error(), "insufficient payment amount: need 10")
	})

	t.Run("KindOf extracts the kind", func(t *testing.T) {
		err := fmt.Errorf("outer: %w", ledgererr.ErrMathOverflow)

		kind, ok := ledgererr.KindOf(err)
		require.True(t, ok)
		assert.Equal(t, ledgererr.KindMathOverflow, kind)

		_, ok = ledgererr.KindOf(errors.New("plain"))
		assert.False(t, ok)
	})
}
