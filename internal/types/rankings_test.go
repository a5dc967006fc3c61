package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRank(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int16
		wantErr  bool
	}{
		{"plain", "7", 7, false},
		{"tie suffix", "12T", 12, false},
		{"tie with spaces", " 250T ", 250, false},
		{"empty", "", 0, true},
		{"only marker", "T", 0, true},
		{"zero", "0", 0, true},
		{"too large", "40000", 0, true},
		{"garbage", "abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRank(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseRank_SharedTieParsesIdentically(t *testing.T) {
	rows := []string{"12T", "12T", "12T"}
	for _, r := range rows {
		got, err := ParseRank(r)
		require.NoError(t, err)
		assert.Equal(t, int16(12), got)
	}
}

func TestRankingRow_Validate(t *testing.T) {
	row := RankingRow{RankingDate: "2024-01-01", Rank: "3", Name: "Jane Roe"}
	assert.NoError(t, row.Validate())

	row.RankingDate = "01/01/2024"
	assert.Error(t, row.Validate())

	row = RankingRow{RankingDate: "2024-01-01", Rank: "3"}
	assert.Error(t, row.Validate())
}

func TestRankObservation_IsGap(t *testing.T) {
	r := int16(4)
	assert.False(t, RankObservation{Rank: &r}.IsGap())
	assert.True(t, RankObservation{}.IsGap())
}
