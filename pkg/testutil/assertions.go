package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/microloan/pkg/events"
)

// AssertErrorContains checks that err contains the expected substring.
func AssertErrorContains(t *testing.T, err error, expected string) {
	t.Helper()
	require.Error(t, err)
	assert.Contains(t, err.Error(), expected)
}

// RequireEventTypes fails unless entries carry exactly the given event
// types, in order.
func RequireEventTypes(t *testing.T, entries []events.OutboxEntry, types ...string) {
	t.Helper()
	got := make([]string, 0, len(entries))
	for _, e := range entries {
		got = append(got, e.EventType)
	}
	require.Equal(t, types, got)
}
