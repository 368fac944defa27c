package service_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/microloan/internal/domain/service"
)

const day = 24 * time.Hour

func TestFineCalculator_Assess(t *testing.T) {
	calc := service.NewFineCalculator(service.DefaultPolicy())
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	const installment = 888_487_886
	due := start.Add(30 * day)
	graceEnd := due.Add(2 * day)

	tests := []struct {
		name     string
		now      time.Time
		onTime   bool
		daysLate uint16
		fine     uint64
	}{
		{"before due date", due.Add(-day), true, 0, 0},
		{"at end of grace", graceEnd, true, 0, 0},
		{"late by less than a day", graceEnd.Add(time.Hour), false, 0, 0},
		{"five days late", graceEnd.Add(5 * day), false, 5, 22_212_197},
		{"partial days truncate", graceEnd.Add(5*day + 23*time.Hour), false, 5, 22_212_197},
		{"a year late is not capped", graceEnd.Add(365 * day), false, 365, 1_621_490_391},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := calc.Assess(start, 1, installment, tt.now)
			require.NoError(t, err)
			assert.Equal(t, due, got.DueAt)
			assert.Equal(t, tt.onTime, got.OnTime)
			assert.Equal(t, tt.daysLate, got.DaysLate)
			assert.Equal(t, tt.fine, got.Fine)
		})
	}

	t.Run("days late saturate", func(t *testing.T) {
		got, err := calc.Assess(start, 1, 1_000, graceEnd.Add(100_000*day))
		require.NoError(t, err)
		assert.Equal(t, uint16(math.MaxUint16), got.DaysLate)
	})
}

func TestDueDate(t *testing.T) {
	start := time.Date(2025, 1, 31, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, start.Add(360*day), service.DueDate(start, 12))
}

func TestPolicy_Validate(t *testing.T) {
	require.NoError(t, service.DefaultPolicy().Validate())

	p := service.DefaultPolicy()
	p.MinPrincipal = p.MaxPrincipal + 1
	p.MinTenureMonths = 0
	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "principal bounds")
	assert.Contains(t, err.Error(), "tenure bounds")
}
