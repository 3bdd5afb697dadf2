package domain_test

import (
	"testing"

	"github.com/fieldops/dispatch/internal/scheduling/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestTravelHours_DirectedLookup(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	table := domain.NewDistanceTable([]domain.DistanceEntry{
		{FromDC: a, ToDC: b, DurationMinutes: 90},
	})

	assert.Equal(t, 2, table.TravelHours(&a, &b))
}

func TestTravelHours_ReverseFallback(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	table := domain.NewDistanceTable([]domain.DistanceEntry{
		{FromDC: a, ToDC: b, DurationMinutes: 30},
	})

	assert.Equal(t, 1, table.TravelHours(&b, &a))
}

func TestTravelHours_AsymmetricEntriesKept(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	table := domain.NewDistanceTable([]domain.DistanceEntry{
		{FromDC: a, ToDC: b, DurationMinutes: 60},
		{FromDC: b, ToDC: a, DurationMinutes: 180},
	})

	assert.Equal(t, 1, table.TravelHours(&a, &b))
	assert.Equal(t, 3, table.TravelHours(&b, &a))
}

func TestTravelHours_DefaultWhenUnknown(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	table := domain.NewDistanceTable(nil)

	assert.Equal(t, 1, table.TravelHours(&a, &b))
}

func TestTravelHours_SameOrMissingEndpoint(t *testing.T) {
	a := uuid.New()
	table := domain.NewDistanceTable(nil)

	assert.Equal(t, 0, table.TravelHours(&a, &a))
	assert.Equal(t, 0, table.TravelHours(nil, &a))
	assert.Equal(t, 0, table.TravelHours(&a, nil))
	assert.Equal(t, 0, table.TravelHours(nil, nil))
}

func TestTravelHours_RoundsUp(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	table := domain.NewDistanceTable([]domain.DistanceEntry{
		{FromDC: a, ToDC: b, DurationMinutes: 61},
	})

	assert.Equal(t, 2, table.TravelHours(&a, &b))
}
