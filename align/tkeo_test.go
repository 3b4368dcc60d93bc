package align

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-tms/xdf"
)

func TestEnergy(t *testing.T) {
	tests := []struct {
		name string
		x    []float64
		want []float64
	}{
		{"too short", []float64{1, 2}, []float64{0, 0}},
		{"ramp has constant interior energy", []float64{0, 1, 2, 3}, []float64{0, 1, 1, 0}},
		{"step", []float64{0, 0, 4, 4}, []float64{0, -16, 16, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Energy(tt.x)
			if len(got) != len(tt.want) {
				t.Fatalf("length = %d, want %d", len(got), len(tt.want))
			}
			for i := range tt.want {
				if math.Abs(got[i]-tt.want[i]) > 1e-12 {
					t.Errorf("psi[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestEnergySinusoid(t *testing.T) {
	// For x[n] = A*sin(w*n), psi[n] ~= A^2 * sin^2(w) in the interior.
	const (
		amp   = 2.0
		omega = 0.3
	)
	x := make([]float64, 64)
	for i := range x {
		x[i] = amp * math.Sin(omega*float64(i))
	}

	want := amp * amp * math.Sin(omega) * math.Sin(omega)
	psi := Energy(x)
	for i := 1; i < len(psi)-1; i++ {
		if math.Abs(psi[i]-want) > 1e-9 {
			t.Fatalf("psi[%d] = %v, want %v", i, psi[i], want)
		}
	}
}

func TestSmoothEnvelopePreservesArea(t *testing.T) {
	x := make([]float64, 256)
	x[128] = 1 // unit impulse

	got := smoothEnvelope(x, 11)
	if len(got) != len(x) {
		t.Fatalf("length = %d, want %d", len(got), len(x))
	}

	// A normalized kernel spreads the impulse without changing its sum.
	var sum float64
	for _, v := range got {
		sum += v
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("sum = %v, want 1", sum)
	}

	// Peak stays centered.
	peak, pos := 0.0, 0
	for i, v := range got {
		if v > peak {
			peak, pos = v, i
		}
	}
	if pos != 128 {
		t.Errorf("peak at %d, want 128", pos)
	}
}

func TestSmoothEnvelopeDegenerateWidth(t *testing.T) {
	x := []float64{1, 2, 3}
	got := smoothEnvelope(x, 0)
	for i := range x {
		if got[i] != x[i] {
			t.Fatalf("smoothEnvelope with width 0 changed input: %v", got)
		}
	}
}

// rawStream builds a single-channel waveform stream with a
// rectangular stimulation artifact at each given onset sample.
func rawStream(name, host string, srate float64, n int, onsets []int) *xdf.Stream {
	series := make([][]float64, n)
	ts := make([]float64, n)
	for i := range series {
		series[i] = []float64{0}
		ts[i] = float64(i) / srate
	}
	for _, onset := range onsets {
		for i := onset; i < onset+10 && i < n; i++ {
			series[i][0] = 50
		}
	}
	return &xdf.Stream{
		Name:          name,
		Hostname:      host,
		Format:        xdf.FormatDouble,
		SampleRate:    srate,
		ChannelLabels: []string{"EDC_L"},
		Series:        series,
		Timestamps:    ts,
	}
}

func TestRefineTimestampsFindsArtifactOnset(t *testing.T) {
	const srate = 10000.0
	raw := rawStream("BrainVision RDA", "SEPHYS-CTRL", srate, 10000, []int{5000})
	c := NewCorrector(quietConfig())

	// Estimate 2 ms early; true onset at t = 0.5.
	got := c.refineTimestamps(raw, []float64{0.498})
	if len(got) != 1 {
		t.Fatalf("length = %d, want 1", len(got))
	}
	if math.Abs(got[0]-0.5) > 0.001 {
		t.Errorf("refined = %v, want within 1 ms of 0.5", got[0])
	}
}

func TestRefineTimestampsWindowOutOfRange(t *testing.T) {
	raw := rawStream("BrainVision RDA", "SEPHYS-CTRL", 10000, 1000, nil)
	c := NewCorrector(quietConfig())

	// Too close to the stream edge for the search window to fit.
	got := c.refineTimestamps(raw, []float64{0.0001})
	if got[0] != 0.0001 {
		t.Errorf("edge timestamp = %v, want unchanged", got[0])
	}
}

func TestRefineTimestampsQuietWindowKeepsEstimate(t *testing.T) {
	raw := rawStream("BrainVision RDA", "SEPHYS-CTRL", 10000, 10000, nil)
	c := NewCorrector(quietConfig())

	got := c.refineTimestamps(raw, []float64{0.5})
	if got[0] != 0.5 {
		t.Errorf("timestamp over quiet window = %v, want unchanged 0.5", got[0])
	}
}

func TestCorrectWithArtifactRefinement(t *testing.T) {
	const srate = 1000.0
	n := 40000 // 40 s so the auxiliary markers span the density threshold

	raw := rawStream("BrainVision RDA", "SEPHYS-CTRL", srate, n, []int{2000, 35000})
	aux := auxStream("BrainVision RDA Markers", "SEPHYS-CTRL", []float64{2.0, 35.0}, "S  2")
	f := &xdf.File{Streams: []*xdf.Stream{aux, raw}}

	c := NewCorrector(quietConfig())
	got, rep := c.Correct(f, []float64{1.997, 34.996})

	if rep.Branch != BranchNearest {
		t.Fatalf("Branch = %v, want nearest-match", rep.Branch)
	}
	if !rep.Refined || rep.RefinedBy != "BrainVision RDA" {
		t.Fatalf("Refined = %v by %q, want refinement from BrainVision RDA", rep.Refined, rep.RefinedBy)
	}
	if math.Abs(got[0]-2.0) > 0.005 {
		t.Errorf("event 0 = %v, want near 2.0", got[0])
	}
	if math.Abs(got[1]-35.0) > 0.005 {
		t.Errorf("event 1 = %v, want near 35.0", got[1])
	}
}
