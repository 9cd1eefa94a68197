package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetWindowAvg(t *testing.T) {
	// GIVEN
	window := CreateRollingWindow(4)
	window.Append(60)
	window.Append(62)
	window.Append(64)
	window.Append(66)

	// WHEN
	avg := GetWindowAvg(window)

	// THEN
	assert.Equal(t, 63.0, avg)
}
