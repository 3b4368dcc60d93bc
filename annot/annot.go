package annot

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-tms/coords"
)

// Global attribute keys.
const (
	KeyReadin        = "readin"
	KeyReadout       = "readout"
	KeyOrigin        = "origin"
	KeyFiledate      = "filedate"
	KeySubject       = "subject"
	KeySamplingRate  = "samplingrate"
	KeySamplesPre    = "samples_pre_event"
	KeySamplesPost   = "samples_post_event"
	KeyChannel       = "channel_of_interest"
	KeyChannelLabels = "channel_labels"
)

// Per-trial attribute keys.
const (
	KeyID          = "id"
	KeyEventName   = "event_name"
	KeyEventSample = "event_sample"
	KeyEventTime   = "event_time"
	KeyXYZCoords   = "xyz_coords"
	KeyIPI         = "time_since_last_pulse_in_s"
	KeyMSO         = "stimulation_intensity_mso"
	KeyDiDt        = "stimulation_intensity_didt"
	KeyComment     = "comment"
)

// Errors returned by the builder and accessors.
var (
	ErrNoOrigin        = errors.New("annot: origin filename must not be empty")
	ErrTraceOrder      = errors.New("annot: trial ids must be contiguous from 0")
	ErrMissingAttr     = errors.New("annot: missing attribute")
	ErrTraceOutOfRange = errors.New("annot: trial index out of range")
)

// Annotation is one immutable annotation record: global attributes
// and an ordered per-trial attribute list, all values in encoded
// string form.
type Annotation struct {
	Attrs  map[string]string   `json:"attrs"`
	Traces []map[string]string `json:"traces"`
}

// TraceAttrs are the native-typed attributes of one trial.
type TraceAttrs struct {
	ID                 int
	EventName          string
	EventSample        int
	EventTime          float64
	Coords             coords.Coordinate
	TimeSinceLastPulse float64
	IntensityMSO       float64
	IntensityDiDt      float64
	Comment            string
}

func (t TraceAttrs) encode() map[string]string {
	return map[string]string{
		KeyID:          Encode(t.ID),
		KeyEventName:   Encode(t.EventName),
		KeyEventSample: Encode(t.EventSample),
		KeyEventTime:   Encode(t.EventTime),
		KeyXYZCoords:   Encode([]float64{t.Coords[0], t.Coords[1], t.Coords[2]}),
		KeyIPI:         Encode(t.TimeSinceLastPulse),
		KeyMSO:         Encode(t.IntensityMSO),
		KeyDiDt:        Encode(t.IntensityDiDt),
		KeyComment:     Encode(t.Comment),
	}
}

// ParseTrace decodes one stored trial record back to native form.
func ParseTrace(rec map[string]string) (TraceAttrs, error) {
	var t TraceAttrs
	var err error

	if t.ID, err = DecodeInt(rec[KeyID]); err != nil {
		return t, fmt.Errorf("annot: trial id: %w", err)
	}
	if t.EventSample, err = DecodeInt(rec[KeyEventSample]); err != nil {
		return t, fmt.Errorf("annot: event sample: %w", err)
	}
	if t.EventTime, err = DecodeFloat(rec[KeyEventTime]); err != nil {
		return t, fmt.Errorf("annot: event time: %w", err)
	}
	if t.TimeSinceLastPulse, err = DecodeFloat(rec[KeyIPI]); err != nil {
		return t, fmt.Errorf("annot: inter-pulse interval: %w", err)
	}
	if t.IntensityMSO, err = DecodeFloat(rec[KeyMSO]); err != nil {
		return t, fmt.Errorf("annot: intensity mso: %w", err)
	}
	if t.IntensityDiDt, err = DecodeFloat(rec[KeyDiDt]); err != nil {
		return t, fmt.Errorf("annot: intensity didt: %w", err)
	}

	xyz, err := DecodeFloats(rec[KeyXYZCoords])
	if err != nil || len(xyz) != 3 {
		return t, fmt.Errorf("annot: coordinate %q", rec[KeyXYZCoords])
	}
	copy(t.Coords[:], xyz)

	t.EventName = rec[KeyEventName]
	t.Comment = rec[KeyComment]
	return t, nil
}

// TraceCount returns the number of trial records.
func (a *Annotation) TraceCount() int {
	return len(a.Traces)
}

// Trace decodes trial record i.
func (a *Annotation) Trace(i int) (TraceAttrs, error) {
	if i < 0 || i >= len(a.Traces) {
		return TraceAttrs{}, fmt.Errorf("%w: %d", ErrTraceOutOfRange, i)
	}
	return ParseTrace(a.Traces[i])
}

// Channel returns the channel of interest.
func (a *Annotation) Channel() (string, error) {
	return a.stringAttr(KeyChannel)
}

// SamplesPre returns the pre-event window size in samples.
func (a *Annotation) SamplesPre() (int, error) {
	return a.intAttr(KeySamplesPre)
}

// SamplesPost returns the post-event window size in samples.
func (a *Annotation) SamplesPost() (int, error) {
	return a.intAttr(KeySamplesPost)
}

// SamplingRate returns the nominal sampling rate in Hz.
func (a *Annotation) SamplingRate() (float64, error) {
	s, err := a.stringAttr(KeySamplingRate)
	if err != nil {
		return 0, err
	}
	return DecodeFloat(s)
}

func (a *Annotation) stringAttr(key string) (string, error) {
	v, ok := a.Attrs[key]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrMissingAttr, key)
	}
	return v, nil
}

func (a *Annotation) intAttr(key string) (int, error) {
	s, err := a.stringAttr(key)
	if err != nil {
		return 0, err
	}
	v, err := DecodeInt(s)
	if err != nil {
		return 0, fmt.Errorf("annot: attribute %q: %w", key, err)
	}
	return v, nil
}

// Builder accumulates attributes into an annotation record. Nothing
// escapes until Build succeeds, so error paths cannot leak a
// partially constructed record.
type Builder struct {
	attrs  map[string]string
	traces []map[string]string
}

// NewBuilder starts an annotation for the given readin/readout
// protocol pair and origin filename.
func NewBuilder(readin, readout, origin string) *Builder {
	return &Builder{
		attrs: map[string]string{
			KeyReadin:  readin,
			KeyReadout: readout,
			KeyOrigin:  origin,
		},
	}
}

// Set stores a named global attribute, encoding the value.
func (b *Builder) Set(key string, v any) *Builder {
	b.attrs[key] = Encode(v)
	return b
}

// AppendTrace appends one trial record.
func (b *Builder) AppendTrace(t TraceAttrs) *Builder {
	b.traces = append(b.traces, t.encode())
	return b
}

// Build validates and returns the finished record.
func (b *Builder) Build() (*Annotation, error) {
	if b.attrs[KeyOrigin] == "" {
		return nil, ErrNoOrigin
	}
	for i, rec := range b.traces {
		id, err := DecodeInt(rec[KeyID])
		if err != nil || id != i {
			return nil, fmt.Errorf("%w: trial %d has id %q", ErrTraceOrder, i, rec[KeyID])
		}
	}

	a := &Annotation{
		Attrs:  make(map[string]string, len(b.attrs)),
		Traces: make([]map[string]string, len(b.traces)),
	}
	for k, v := range b.attrs {
		a.Attrs[k] = v
	}
	for i, rec := range b.traces {
		cp := make(map[string]string, len(rec))
		for k, v := range rec {
			cp[k] = v
		}
		a.Traces[i] = cp
	}
	return a, nil
}
