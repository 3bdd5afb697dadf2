package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/fieldops/dispatch/internal/scheduling/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDay(t *testing.T) {
	day, err := domain.ParseDay("2026-02-28")
	require.NoError(t, err)
	assert.Equal(t, "2026-02-28", day.String())

	_, err = domain.ParseDay("28.02.2026")
	assert.Error(t, err)
}

func TestNewDayTruncates(t *testing.T) {
	ts := time.Date(2026, 5, 17, 23, 45, 12, 0, time.UTC)
	assert.Equal(t, "2026-05-17", domain.NewDay(ts).String())
}

func TestDayAddDays(t *testing.T) {
	day, _ := domain.ParseDay("2026-02-28")
	assert.Equal(t, "2026-03-01", day.AddDays(1).String())
	assert.Equal(t, "2026-02-27", day.AddDays(-1).String())
}

func TestDayJSONRoundTrip(t *testing.T) {
	day, _ := domain.ParseDay("2026-01-05")

	b, err := json.Marshal(day)
	require.NoError(t, err)
	assert.Equal(t, `"2026-01-05"`, string(b))

	var parsed domain.Day
	require.NoError(t, json.Unmarshal(b, &parsed))
	assert.Equal(t, day, parsed)
}

func TestStrategyCanonical(t *testing.T) {
	cases := map[domain.StrategyName]domain.StrategyName{
		domain.StrategyBalanced:      domain.StrategyBalanced,
		domain.StrategyDense:         domain.StrategyDense,
		domain.StrategySLA:           domain.StrategySLA,
		domain.StrategyOptimal:       domain.StrategyOptimal,
		domain.StrategyFillFirst:     domain.StrategyDense,
		domain.StrategyPriorityFirst: domain.StrategySLA,
	}
	for in, want := range cases {
		got, ok := in.Canonical()
		require.True(t, ok, string(in))
		assert.Equal(t, want, got)
	}

	_, ok := domain.StrategyName("greedy").Canonical()
	assert.False(t, ok)
}
