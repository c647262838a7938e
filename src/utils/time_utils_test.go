package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResetTime(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	at := time.Date(2024, 5, 17, 14, 37, 52, 120, loc)

	assert.Equal(t, time.Date(2024, 5, 17, 14, 37, 0, 0, loc), ResetTime(at, "minute"))
	assert.Equal(t, time.Date(2024, 5, 17, 0, 0, 0, 0, loc), ResetTime(at, "day"))
	assert.Equal(t, at, ResetTime(at, "week"))
}
