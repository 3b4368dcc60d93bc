package trace

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-tms/annot"
	"github.com/cwbudde/algo-tms/coords"
	"github.com/cwbudde/algo-tms/xdf"
)

// rampFile builds a single-stream file whose channel of interest is a
// ramp x[n] = n, which makes window contents predictable.
func rampFile(n int) *xdf.File {
	series := make([][]float64, n)
	ts := make([]float64, n)
	for i := range series {
		series[i] = []float64{float64(i), -float64(i)}
		ts[i] = float64(i) / 1000
	}
	return &xdf.File{Streams: []*xdf.Stream{{
		Name:          "BrainVision RDA",
		Format:        xdf.FormatDouble,
		SampleRate:    1000,
		ChannelLabels: []string{"EDC_L", "EDC_R"},
		Series:        series,
		Timestamps:    ts,
	}}}
}

func buildAnnotation(t *testing.T, pre, post int, onsets []int) *annot.Annotation {
	t.Helper()

	b := annot.NewBuilder("tms", "cmep", "synthetic.xdf")
	b.Set(annot.KeySamplingRate, 1000.0)
	b.Set(annot.KeySamplesPre, pre)
	b.Set(annot.KeySamplesPost, post)
	b.Set(annot.KeyChannel, "EDC_L")

	ipi := math.Inf(1)
	for i, onset := range onsets {
		b.AppendTrace(annot.TraceAttrs{
			ID:                 i,
			EventName:          "localite_marker-coil_0_didt",
			EventSample:        onset,
			EventTime:          float64(onset) / 1000,
			Coords:             coords.Missing(),
			TimeSinceLastPulse: ipi,
			IntensityMSO:       math.NaN(),
			IntensityDiDt:      math.NaN(),
		})
		ipi = 0.5
	}

	a, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func TestCutWindowGeometry(t *testing.T) {
	f := rampFile(1000)
	a := buildAnnotation(t, 10, 20, []int{100, 500})

	traces, err := Cut(f, a)
	if err != nil {
		t.Fatal(err)
	}

	if len(traces) != 2 {
		t.Fatalf("trace count = %d, want 2", len(traces))
	}
	for i, tr := range traces {
		if len(tr) != 30 {
			t.Errorf("trace %d length = %d, want 30", i, len(tr))
		}
	}

	// On a ramp, the baseline is the mean of the pre window, which
	// sits (pre+1)/2 samples before the event. The event sample is
	// the first post-sample.
	// Window of trial 0: samples 90..119, baseline = mean(90..99) = 94.5.
	if got, want := traces[0][10], 100-94.5; got != want {
		t.Errorf("event sample value = %v, want %v", got, want)
	}
	if got, want := traces[0][0], 90-94.5; got != want {
		t.Errorf("first sample value = %v, want %v", got, want)
	}
}

func TestCutBaselineRoundTrip(t *testing.T) {
	f := rampFile(1000)
	a := buildAnnotation(t, 16, 16, []int{200})

	traces, err := Cut(f, a)
	if err != nil {
		t.Fatal(err)
	}

	// Adding the subtracted baseline back reconstructs the original
	// sub-sequence exactly.
	tr := traces[0]
	var mean float64
	for i := 200 - 16; i < 200; i++ {
		mean += float64(i)
	}
	mean /= 16

	for j := range tr {
		want := float64(200 - 16 + j)
		if got := tr[j] + mean; got != want {
			t.Fatalf("sample %d = %v, want %v", j, got, want)
		}
	}
}

func TestCutOutOfRange(t *testing.T) {
	f := rampFile(300)

	tests := []struct {
		name  string
		onset int
	}{
		{"window starts before stream", 5},
		{"window ends past stream", 295},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := buildAnnotation(t, 10, 10, []int{tt.onset})
			_, err := Cut(f, a)
			if !errors.Is(err, ErrWindowOutOfRange) {
				t.Errorf("err = %v, want ErrWindowOutOfRange", err)
			}
		})
	}
}

func TestCutMissingChannel(t *testing.T) {
	f := rampFile(300)
	a := buildAnnotation(t, 10, 10, []int{100})
	a.Attrs[annot.KeyChannel] = "APB_R"

	_, err := Cut(f, a)
	if !errors.Is(err, xdf.ErrChannelNotFound) {
		t.Errorf("err = %v, want ErrChannelNotFound", err)
	}
}

func TestBaseline(t *testing.T) {
	w := []float64{2, 2, 2, 10, 12}
	Baseline(w, 3)

	want := []float64{0, 0, 0, 8, 10}
	for i := range want {
		if w[i] != want[i] {
			t.Errorf("w[%d] = %v, want %v", i, w[i], want[i])
		}
	}
}

func TestBaselineNoPreSamples(t *testing.T) {
	w := []float64{1, 2, 3}
	Baseline(w, 0)
	if w[0] != 1 || w[1] != 2 || w[2] != 3 {
		t.Errorf("Baseline with pre=0 changed window: %v", w)
	}
}
