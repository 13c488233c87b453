package chat_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citychat/citychat/internal/chat"
)

func TestNewCoordinateAcceptsBoundaryValues(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
	}{
		{"origin", 0, 0},
		{"north pole", 90, 0},
		{"south pole", -90, 0},
		{"date line east", 0, 180},
		{"date line west", 0, -180},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coord, err := chat.NewCoordinate(tt.lat, tt.lon)
			require.NoError(t, err)
			assert.Equal(t, tt.lat, coord.Latitude)
			assert.Equal(t, tt.lon, coord.Longitude)
		})
	}
}

func TestNewCoordinateRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
	}{
		{"latitude too high", 200, 10},
		{"latitude slightly over", 90.0001, 0},
		{"longitude too low", 0, -180.5},
		{"latitude NaN", math.NaN(), 0},
		{"longitude infinite", 0, math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := chat.NewCoordinate(tt.lat, tt.lon)
			assert.ErrorIs(t, err, chat.ErrInvalidCoordinate)
		})
	}
}
