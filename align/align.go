package align

import (
	"log/slog"

	"github.com/cwbudde/algo-tms/marker"
	"github.com/cwbudde/algo-tms/xdf"
)

// Branch identifies which correction strategy was applied to the
// primary timestamps.
type Branch int

const (
	// BranchNone: no auxiliary markers were available; primary
	// timestamps passed through unchanged.
	BranchNone Branch = iota

	// BranchConstantShift: auxiliary markers were too densely
	// clustered to disambiguate events; a fixed empirical offset was
	// applied instead.
	BranchConstantShift

	// BranchNearest: every primary timestamp snapped to its nearest
	// auxiliary marker.
	BranchNearest

	// BranchCountMismatch: fewer auxiliary markers than events; the
	// marker stage was skipped and the mismatch reported.
	BranchCountMismatch
)

// String returns a diagnostic name for the branch.
func (b Branch) String() string {
	switch b {
	case BranchConstantShift:
		return "constant-shift"
	case BranchNearest:
		return "nearest-match"
	case BranchCountMismatch:
		return "count-mismatch"
	default:
		return "none"
	}
}

// Report carries the informational outcome of one correction run.
// None of its states is an error; degraded stages only lower the
// precision of the result.
type Report struct {
	Branch       Branch
	PrimaryCount int
	AuxCount     int
	AuxStream    string
	Refined      bool
	RefinedBy    string
}

// Config parameterizes a Corrector. The defaults encode the recording
// setup this pipeline was built for; override them per protocol.
type Config struct {
	// ControlHost is the hostname of the acquisition control machine.
	// Candidate streams reported by any other host are ignored, since
	// duplicate recordings of the same content can exist.
	ControlHost string

	// MarkerStreams are the auxiliary hardware marker stream names,
	// in priority order.
	MarkerStreams []string

	// DataStreams are the raw waveform stream names used for artifact
	// refinement, in priority order.
	DataStreams []string

	// MarkerCode is the auxiliary marker payload identifying a
	// stimulation pulse.
	MarkerCode string

	// DenseSpan is the minimal total range, in seconds, that the
	// auxiliary timestamps must cover to be matched per event.
	// Anything tighter is treated as a logging burst.
	DenseSpan float64

	// ConstantShift is the empirical offset, in seconds, applied to
	// every primary timestamp when the auxiliary markers are dense.
	ConstantShift float64

	// SearchSpan is the half-width, in seconds, of the raw-waveform
	// window searched for the stimulation artifact around each
	// estimate.
	SearchSpan float64

	// SmoothWidth is the width, in seconds, of the Hann kernel used
	// to smooth the artifact energy envelope.
	SmoothWidth float64

	// OnsetFactor scales the baseline spread when thresholding the
	// energy envelope for onset detection.
	OnsetFactor float64

	// Logger receives informational diagnostics. Nil means
	// slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns the configuration matching the original
// SEPHYS recording setup.
func DefaultConfig() Config {
	return Config{
		ControlHost:   "SEPHYS-CTRL",
		MarkerStreams: []string{"BrainVision RDA Markers", "BrainVision RDA Markers2"},
		DataStreams:   []string{"BrainVision RDA", "BrainVision RDA2"},
		MarkerCode:    "S  2",
		DenseSpan:     30,
		ConstantShift: 0.045,
		SearchSpan:    0.025,
		SmoothWidth:   0.001,
		OnsetFactor:   5,
	}
}

// Corrector fuses auxiliary marker streams and the raw waveform into
// corrected event timestamps.
type Corrector struct {
	cfg Config
	log *slog.Logger
}

// NewCorrector creates a Corrector from cfg. Zero-valued timing
// fields fall back to their defaults so partial configs stay usable.
func NewCorrector(cfg Config) *Corrector {
	def := DefaultConfig()
	if cfg.MarkerCode == "" {
		cfg.MarkerCode = def.MarkerCode
	}
	if len(cfg.MarkerStreams) == 0 {
		cfg.MarkerStreams = def.MarkerStreams
	}
	if len(cfg.DataStreams) == 0 {
		cfg.DataStreams = def.DataStreams
	}
	if cfg.DenseSpan <= 0 {
		cfg.DenseSpan = def.DenseSpan
	}
	if cfg.ConstantShift == 0 {
		cfg.ConstantShift = def.ConstantShift
	}
	if cfg.SearchSpan <= 0 {
		cfg.SearchSpan = def.SearchSpan
	}
	if cfg.SmoothWidth <= 0 {
		cfg.SmoothWidth = def.SmoothWidth
	}
	if cfg.OnsetFactor <= 0 {
		cfg.OnsetFactor = def.OnsetFactor
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Corrector{cfg: cfg, log: logger}
}

// Correct refines the primary event timestamps against the auxiliary
// hardware markers and the raw waveform found in f.
//
// The output always has len(primary) entries; correction never drops
// or adds events. Absent streams and count mismatches degrade the
// result, they never fail it.
func (c *Corrector) Correct(f *xdf.File, primary []float64) ([]float64, Report) {
	out := append([]float64(nil), primary...)
	rep := Report{Branch: BranchNone, PrimaryCount: len(primary)}

	var aux []float64
	if s, ok := f.Resolve(c.cfg.ControlHost, c.cfg.MarkerStreams...); ok {
		aux = marker.Timestamps(s, c.cfg.MarkerCode)
		rep.AuxStream = s.Name
		rep.AuxCount = len(aux)
		c.log.Info("auxiliary markers found",
			"stream", s.Name, "code", c.cfg.MarkerCode,
			"count", len(aux), "events", len(primary))
	}

	if len(aux) == 0 {
		c.log.Info("no auxiliary markers, keeping primary timestamps")
		return out, rep
	}

	switch {
	case span(aux) < c.cfg.DenseSpan:
		// A tight burst of markers (e.g. a logging bug fired them all
		// at once) cannot disambiguate events; nearest-match would
		// collapse every correction onto the same point.
		for i := range out {
			out[i] += c.cfg.ConstantShift
		}
		rep.Branch = BranchConstantShift
		c.log.Info("auxiliary markers densely clustered, applying constant shift",
			"span_s", span(aux), "shift_s", c.cfg.ConstantShift)

	case len(aux) >= len(primary):
		for i, t := range out {
			out[i] = Nearest(t, aux)
		}
		rep.Branch = BranchNearest
		c.log.Info("corrected event timestamps from auxiliary markers")

	default:
		rep.Branch = BranchCountMismatch
		c.log.Info("count mismatch between auxiliary markers and events",
			"aux", len(aux), "events", len(primary))
	}

	if raw, ok := f.Resolve(c.cfg.ControlHost, c.cfg.DataStreams...); ok {
		out = c.refineTimestamps(raw, out)
		rep.Refined = true
		rep.RefinedBy = raw.Name
		c.log.Info("corrected event timestamps for stimulation artifact",
			"stream", raw.Name)
	}

	return out, rep
}

// span returns the total range covered by ts.
func span(ts []float64) float64 {
	if len(ts) == 0 {
		return 0
	}
	lo, hi := ts[0], ts[0]
	for _, t := range ts[1:] {
		if t < lo {
			lo = t
		}
		if t > hi {
			hi = t
		}
	}
	return hi - lo
}
