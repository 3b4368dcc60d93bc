package xdf_test

import (
	"testing"

	"github.com/cwbudde/algo-tms/xdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	f := &xdf.File{Streams: []*xdf.Stream{
		{Name: "BrainVision RDA", Hostname: "OTHER-HOST"},
		{Name: "BrainVision RDA2", Hostname: "SEPHYS-CTRL"},
		{Name: "localite_marker", Hostname: ""},
	}}

	tests := []struct {
		name      string
		host      string
		names     []string
		wantName  string
		wantFound bool
	}{
		{
			name:      "hostname disqualifies first candidate",
			host:      "SEPHYS-CTRL",
			names:     []string{"BrainVision RDA", "BrainVision RDA2"},
			wantName:  "BrainVision RDA2",
			wantFound: true,
		},
		{
			name:      "empty host accepts any",
			host:      "",
			names:     []string{"BrainVision RDA"},
			wantName:  "BrainVision RDA",
			wantFound: true,
		},
		{
			name:      "no candidate present",
			host:      "SEPHYS-CTRL",
			names:     []string{"reiz_marker_sa"},
			wantFound: false,
		},
		{
			name:      "all candidates from wrong host",
			host:      "SEPHYS-CTRL",
			names:     []string{"BrainVision RDA"},
			wantFound: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ok := f.Resolve(tt.host, tt.names...)
			require.Equal(t, tt.wantFound, ok)
			if ok {
				assert.Equal(t, tt.wantName, s.Name)
			}
		})
	}
}

func TestResolvePriorityOverOrder(t *testing.T) {
	// Candidate list order wins over file order.
	f := &xdf.File{Streams: []*xdf.Stream{
		{Name: "BrainVision RDA2", Hostname: "SEPHYS-CTRL"},
		{Name: "BrainVision RDA", Hostname: "SEPHYS-CTRL"},
	}}

	s, ok := f.Resolve("SEPHYS-CTRL", "BrainVision RDA", "BrainVision RDA2")
	require.True(t, ok)
	assert.Equal(t, "BrainVision RDA", s.Name)
}

func TestStreamWithChannel(t *testing.T) {
	f := &xdf.File{Streams: []*xdf.Stream{
		{Name: "markers", ChannelLabels: []string{""}},
		{Name: "emg", ChannelLabels: []string{"EDC_L", "EDC_R"}},
	}}

	s, err := f.StreamWithChannel("EDC_R")
	require.NoError(t, err)
	assert.Equal(t, "emg", s.Name)

	_, err = f.StreamWithChannel("APB_L")
	require.ErrorIs(t, err, xdf.ErrChannelNotFound)
}

func TestChannelColumn(t *testing.T) {
	s := &xdf.Stream{
		Name:          "emg",
		ChannelLabels: []string{"EDC_L", "EDC_R"},
		Series:        [][]float64{{1, 10}, {2, 20}, {3, 30}},
		Timestamps:    []float64{0, 1, 2},
	}

	col, err := s.Channel("EDC_R")
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 20, 30}, col)

	_, err = s.Channel("missing")
	require.Error(t, err)
}
