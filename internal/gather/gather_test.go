package gather

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeriod(t *testing.T) {
	t.Parallel()
	for _, p := range Periods() {
		got, err := ParsePeriod(string(p))
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}

	_, err := ParsePeriod("7y")
	assert.ErrorIs(t, err, ErrInvalidPeriod)
	_, err = ParsePeriod("")
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestParseInterval(t *testing.T) {
	t.Parallel()
	for _, iv := range Intervals() {
		got, err := ParseInterval(string(iv))
		require.NoError(t, err)
		assert.Equal(t, iv, got)
	}

	_, err := ParseInterval("2h")
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestPeriodRange(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 6, 15, 16, 0, 0, 0, time.UTC)

	tests := []struct {
		period Period
		start  time.Time
	}{
		{Period1D, time.Date(2024, 6, 14, 16, 0, 0, 0, time.UTC)},
		{Period1Mo, time.Date(2024, 5, 15, 16, 0, 0, 0, time.UTC)},
		{Period1Y, time.Date(2023, 6, 15, 16, 0, 0, 0, time.UTC)},
		{PeriodYTD, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{PeriodMax, maxLookbackStart},
	}
	for _, tt := range tests {
		r, err := tt.period.Range(now)
		require.NoError(t, err, tt.period)
		assert.Equal(t, tt.start, r.Start, tt.period)
		assert.Equal(t, now, r.End, tt.period)
	}

	_, err := Period("bogus").Range(now)
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestDaysPeriod(t *testing.T) {
	t.Parallel()
	assert.Equal(t, Period1D, DaysPeriod(0))
	assert.Equal(t, Period5D, DaysPeriod(5))
	assert.Equal(t, Period1Mo, DaysPeriod(30))
	assert.Equal(t, Period3Mo, DaysPeriod(60))
	assert.Equal(t, Period1Y, DaysPeriod(365))
	assert.Equal(t, Period2Y, DaysPeriod(400))
	assert.Equal(t, PeriodMax, DaysPeriod(5000))
}

func TestIntervalDaily(t *testing.T) {
	t.Parallel()
	assert.True(t, Interval1D.Daily())
	assert.True(t, Interval1Wk.Daily())
	assert.False(t, Interval1H.Daily())
	assert.False(t, Interval15M.Daily())
}
