package cmep

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/cwbudde/algo-tms/align"
	"github.com/cwbudde/algo-tms/annot"
	"github.com/cwbudde/algo-tms/coords"
	"github.com/cwbudde/algo-tms/marker"
	"github.com/cwbudde/algo-tms/trace"
	"github.com/cwbudde/algo-tms/xdf"
)

// Errors returned for precondition violations.
var (
	ErrNoEventStream   = errors.New("cmep: event stream not found")
	ErrEmptyDataStream = errors.New("cmep: data stream has no samples")
	ErrLengthMismatch  = errors.New("cmep: per-trial sequence length mismatch")
)

// Option configures the annotation pipeline.
type Option func(*config)

type config struct {
	eventStream    string
	eventName      string
	trackingStream string
	commentStream  string
	commentName    string
	subject        string
	corrector      align.Config
	logger         *slog.Logger
}

func defaultConfig() config {
	return config{
		eventStream:    "localite_marker",
		eventName:      "coil_0_didt",
		trackingStream: "localite_marker",
		commentStream:  "reiz_marker_sa",
		corrector:      align.DefaultConfig(),
	}
}

// WithEventStream sets the primary event marker stream name.
func WithEventStream(name string) Option {
	return func(c *config) {
		c.eventStream = name
	}
}

// WithEventName sets the event filter within the primary stream.
func WithEventName(name string) Option {
	return func(c *config) {
		c.eventName = name
	}
}

// WithTrackingStream sets the neuronavigation marker stream name.
func WithTrackingStream(name string) Option {
	return func(c *config) {
		c.trackingStream = name
	}
}

// WithCommentName enables comment pairing, matching comment payloads
// that carry the given identifier key.
func WithCommentName(identifier string) Option {
	return func(c *config) {
		c.commentName = identifier
	}
}

// WithSubject sets the subject identifier stored in the annotation.
func WithSubject(subject string) Option {
	return func(c *config) {
		c.subject = subject
	}
}

// WithCorrector overrides the timestamp corrector configuration.
func WithCorrector(cfg align.Config) Option {
	return func(c *config) {
		c.corrector = cfg
	}
}

// WithLogger sets the logger for informational diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// PrepareAnnotations loads a recording and distills one annotation
// record from it. The window sizes are given in milliseconds and
// stored in samples of the data stream's nominal rate.
func PrepareAnnotations(path, channel string, preMs, postMs float64, opts ...Option) (*annot.Annotation, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cmep: %w", err)
	}

	f, err := xdf.Load(path)
	if err != nil {
		return nil, err
	}

	return FromFile(f, filepath.Base(path), info.ModTime(), channel, preMs, postMs, opts...)
}

// FromFile runs the annotation pipeline on an already loaded
// container. origin and modtime describe the source file.
func FromFile(f *xdf.File, origin string, modtime time.Time, channel string, preMs, postMs float64, opts ...Option) (*annot.Annotation, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	log := cfg.logger
	if log == nil {
		log = slog.Default()
	}
	cfg.corrector.Logger = log

	datastream, err := f.StreamWithChannel(channel)
	if err != nil {
		return nil, err
	}
	// Aborted recordings can declare the channel but carry no
	// samples; there is no timeline to map events onto.
	if datastream.Len() == 0 {
		return nil, fmt.Errorf("%w: %q", ErrEmptyDataStream, datastream.Name)
	}

	eventStream, ok := f.Stream(cfg.eventStream)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoEventStream, cfg.eventStream)
	}

	primary := marker.Timestamps(eventStream, cfg.eventName)
	log.Info("reading events", "stream", eventStream.Name, "event", cfg.eventName, "count", len(primary))

	// Tracking data pairs with the uncorrected timeline: the
	// navigation markers share the primary stream's clock.
	loc, hasLoc := f.Resolve("", cfg.trackingStream)
	if hasLoc {
		log.Info("reading navigation data", "stream", loc.Name)
	} else {
		loc = nil
		log.Info("no navigation stream, coordinates will be missing")
	}
	xyz, mso, didt := coords.Resolve(loc, primary)

	var comments []string
	if cfg.commentName != "" {
		cs, _ := f.Resolve("", cfg.commentStream)
		comments = marker.Comments(cs, primary, cfg.commentName)
	} else {
		comments = make([]string, len(primary))
	}

	corrected, rep := align.NewCorrector(cfg.corrector).Correct(f, primary)
	log.Info("timestamp correction finished", "branch", rep.Branch.String(), "refined", rep.Refined)

	n := len(corrected)
	if len(xyz) != n || len(mso) != n || len(didt) != n || len(comments) != n {
		return nil, fmt.Errorf("%w: %d events, %d coords, %d mso, %d didt, %d comments",
			ErrLengthMismatch, n, len(xyz), len(mso), len(didt), len(comments))
	}

	fs := datastream.SampleRate
	eventSamples := align.NearestSamples(corrected, datastream.Timestamps)

	eventTimes := make([]float64, n)
	for i, idx := range eventSamples {
		eventTimes[i] = datastream.Timestamps[idx] - datastream.Timestamps[0]
	}

	ipi := make([]float64, n)
	for i := range ipi {
		if i == 0 {
			ipi[i] = math.Inf(1)
		} else {
			ipi[i] = eventTimes[i] - eventTimes[i-1]
		}
	}

	b := annot.NewBuilder("tms", "cmep", origin)
	b.Set(annot.KeyFiledate, modtime.Format(time.ANSIC))
	b.Set(annot.KeySubject, cfg.subject)
	b.Set(annot.KeySamplingRate, fs)
	b.Set(annot.KeySamplesPre, int(preMs*fs/1000))
	b.Set(annot.KeySamplesPost, int(postMs*fs/1000))
	b.Set(annot.KeyChannel, channel)
	b.Set(annot.KeyChannelLabels, []string{channel})

	label := eventStream.Name + "-" + cfg.eventName
	for i := range n {
		b.AppendTrace(annot.TraceAttrs{
			ID:                 i,
			EventName:          label,
			EventSample:        eventSamples[i],
			EventTime:          eventTimes[i],
			Coords:             xyz[i],
			TimeSinceLastPulse: ipi[i],
			IntensityMSO:       mso[i],
			IntensityDiDt:      didt[i],
			Comment:            comments[i],
		})
	}
	return b.Build()
}

// CutTraces re-opens a recording and cuts the traces the annotation
// describes. The file must be the one the annotation originated from.
func CutTraces(path string, a *annot.Annotation) ([][]float64, error) {
	f, err := xdf.Load(path)
	if err != nil {
		return nil, err
	}
	return trace.Cut(f, a)
}
