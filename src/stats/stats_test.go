package stats

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZScoreRequiresTwoSamples(t *testing.T) {
	_, err := ZScore(10, []float64{5})
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestZScoreUsesSampleStdDev(t *testing.T) {
	series := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	// mean 5, sample variance 32/7
	z, err := ZScore(9, series)
	require.NoError(t, err)
	assert.InDelta(t, 4/math.Sqrt(32.0/7.0), z, 1e-9)
}

func TestZScoreFlatSeries(t *testing.T) {
	z, err := ZScore(100, []float64{3, 3, 3})
	require.NoError(t, err)
	assert.Equal(t, 0.0, z)
}

func TestRatio(t *testing.T) {
	assert.Equal(t, 2.5, Ratio(5, 2))
	assert.Equal(t, 0.0, Ratio(5, 0))
}

func TestMaxMeanTail(t *testing.T) {
	series := []float64{1, 9, 3}
	assert.Equal(t, 9.0, Max(series))
	assert.Equal(t, 0.0, Max(nil))
	assert.InDelta(t, 13.0/3.0, Mean(series), 1e-12)
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, []float64{9, 3}, Tail(series, 2))
	assert.Equal(t, series, Tail(series, 10))
}
