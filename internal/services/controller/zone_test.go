package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyMoisture(t *testing.T) {
	cases := []struct {
		name     string
		moisture float64
		want     Zone
	}{
		{"well below low", 10, ZoneCriticalLow},
		{"just below low", 39.9, ZoneCriticalLow},
		{"exactly low", 40, ZoneNormal},
		{"mid band", 60, ZoneNormal},
		{"exactly high", 80, ZoneNormal},
		{"just above high", 80.1, ZoneCriticalHigh},
		{"saturated", 100, ZoneCriticalHigh},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyMoisture(tc.moisture, 40, 80))
		})
	}
}

func TestZoneString(t *testing.T) {
	assert.Equal(t, "CRITICAL_LOW", ZoneCriticalLow.String())
	assert.Equal(t, "NORMAL", ZoneNormal.String())
	assert.Equal(t, "CRITICAL_HIGH", ZoneCriticalHigh.String())
}
