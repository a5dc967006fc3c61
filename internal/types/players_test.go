package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSplitName(t *testing.T) {
	tests := []struct {
		input string
		first string
		last  string
	}{
		{"Jane Roe", "Jane", "Roe"},
		{"Juan Martin del Potro", "Juan", "Martin del Potro"},
		{"  Federer ", "", "Federer"},
		{"", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			first, last := SplitName(tt.input)
			assert.Equal(t, tt.first, first)
			assert.Equal(t, tt.last, last)
		})
	}
}

func TestPlayer_Label(t *testing.T) {
	dob := time.Date(1987, 5, 22, 0, 0, 0, 0, time.UTC)
	p := Player{FirstName: "Novak", LastName: "Djokovic", CountryCode: "SRB", BirthDate: &dob}
	assert.Equal(t, "Djokovic, Novak (SRB) - *1987", p.Label())

	bare := Player{DisplayName: "J. Roe"}
	assert.Equal(t, "J. Roe", bare.Label())
}

func TestPlayer_HasName(t *testing.T) {
	assert.False(t, Player{PlayerID: "x1"}.HasName())
	assert.True(t, Player{PlayerID: "x1", LastName: "Roe"}.HasName())
}
