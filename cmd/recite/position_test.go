package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/escalopa/quran-recite-checker/internal/domain"
)

func TestParsePosition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    domain.Position
		wantErr bool
	}{
		{in: "1:1", want: domain.Position{Sura: 1, Aya: 1}},
		{in: " 2:286 ", want: domain.Position{Sura: 2, Aya: 286}},
		{in: "2:287", wantErr: true},
		{in: "115:1", wantErr: true},
		{in: "0:1", wantErr: true},
		{in: "2", wantErr: true},
		{in: "a:1", wantErr: true},
		{in: "1:b", wantErr: true},
	}

	for _, tt := range tests {
		got, err := parsePosition(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestParseRangeArgs(t *testing.T) {
	t.Parallel()

	from, to, err := parseRangeArgs([]string{"1:6", "2:5"})
	require.NoError(t, err)
	assert.Equal(t, domain.Position{Sura: 1, Aya: 6}, from)
	assert.Equal(t, domain.Position{Sura: 2, Aya: 5}, to)

	_, _, err = parseRangeArgs([]string{"1:6", "x"})
	assert.Error(t, err)
}
