package xdf

import (
	"errors"
	"fmt"
)

// Sample format identifiers as spelled in XDF stream headers.
const (
	FormatFloat32 = "float32"
	FormatDouble  = "double64"
	FormatInt8    = "int8"
	FormatInt16   = "int16"
	FormatInt32   = "int32"
	FormatInt64   = "int64"
	FormatString  = "string"
)

// Errors returned by the container reader and stream lookups.
var (
	ErrBadMagic        = errors.New("xdf: bad file magic")
	ErrChannelNotFound = errors.New("xdf: no stream carries the requested channel")
)

// Stream is one named, timestamped channel group within a container.
//
// Numeric streams carry their samples in Series (samples x channels);
// string-format streams (markers) carry them in Strings instead. Both
// share Timestamps, one entry per sample row.
type Stream struct {
	ID            uint32
	Name          string
	Type          string
	Hostname      string
	SampleRate    float64 // nominal, Hz; 0 for irregular streams
	Format        string
	ChannelLabels []string

	Series     [][]float64
	Strings    [][]string
	Timestamps []float64

	clockOffsets []float64
}

// Len returns the number of recorded samples.
func (s *Stream) Len() int {
	return len(s.Timestamps)
}

// Column returns the index of the channel with the given label, or an
// error when the stream has no such channel.
func (s *Stream) Column(label string) (int, error) {
	for i, l := range s.ChannelLabels {
		if l == label {
			return i, nil
		}
	}
	return 0, fmt.Errorf("xdf: stream %q has no channel %q", s.Name, label)
}

// Channel returns the waveform of the named channel as one column
// slice per sample.
func (s *Stream) Channel(label string) ([]float64, error) {
	cix, err := s.Column(label)
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(s.Series))
	for i, row := range s.Series {
		out[i] = row[cix]
	}
	return out, nil
}

// File is a fully loaded recording container.
type File struct {
	Streams []*Stream
}

// Stream returns the first stream with the given name.
func (f *File) Stream(name string) (*Stream, bool) {
	for _, s := range f.Streams {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// Has reports whether any stream with the given name exists.
func (f *File) Has(name string) bool {
	_, ok := f.Stream(name)
	return ok
}

// Resolve returns the first stream matching the prioritized candidate
// name list whose reporting hostname equals host. An empty host
// accepts any hostname. Streams recorded by other machines are
// disqualified as if absent, since duplicate recordings with the same
// content can occur on multiple hosts.
func (f *File) Resolve(host string, names ...string) (*Stream, bool) {
	for _, name := range names {
		for _, s := range f.Streams {
			if s.Name != name {
				continue
			}
			if host != "" && s.Hostname != host {
				continue
			}
			return s, true
		}
	}
	return nil, false
}

// StreamWithChannel returns the stream carrying the given channel
// label. A missing channel is a precondition violation for callers
// that were promised a channel of interest, so it is an error rather
// than an absence.
func (f *File) StreamWithChannel(label string) (*Stream, error) {
	for _, s := range f.Streams {
		for _, l := range s.ChannelLabels {
			if l == label {
				return s, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrChannelNotFound, label)
}
