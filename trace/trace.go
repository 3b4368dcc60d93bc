// Package trace cuts fixed-width, baseline-corrected signal windows
// around annotated stimulation events.
//
// Traces are transient: only the recipe (event sample offsets and
// window sizes) lives in the annotation record, and the samples are
// re-read from the recording container each time they are needed.
package trace

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-tms/annot"
	"github.com/cwbudde/algo-tms/xdf"
)

// ErrWindowOutOfRange reports a trial whose window does not fit
// inside the recorded stream. Callers must guarantee pre/post fit for
// all trials; this is a precondition violation, not a degraded case.
var ErrWindowOutOfRange = errors.New("trace: window out of range")

// Cut slices one window per annotated trial from the channel of
// interest and removes the pre-stimulus baseline from each. Every
// returned trace has length pre+post, with the event sample as the
// first post-sample.
func Cut(f *xdf.File, a *annot.Annotation) ([][]float64, error) {
	channel, err := a.Channel()
	if err != nil {
		return nil, err
	}
	pre, err := a.SamplesPre()
	if err != nil {
		return nil, err
	}
	post, err := a.SamplesPost()
	if err != nil {
		return nil, err
	}

	s, err := f.StreamWithChannel(channel)
	if err != nil {
		return nil, err
	}
	cix, err := s.Column(channel)
	if err != nil {
		return nil, err
	}

	traces := make([][]float64, 0, a.TraceCount())
	for i := range a.TraceCount() {
		tr, err := a.Trace(i)
		if err != nil {
			return nil, err
		}

		onset := tr.EventSample
		if onset-pre < 0 || onset+post > s.Len() {
			return nil, fmt.Errorf("%w: trial %d, samples [%d, %d) in stream of %d",
				ErrWindowOutOfRange, i, onset-pre, onset+post, s.Len())
		}

		w := make([]float64, pre+post)
		for j := range w {
			w[j] = s.Series[onset-pre+j][cix]
		}
		Baseline(w, pre)
		traces = append(traces, w)
	}
	return traces, nil
}

// Baseline subtracts the mean of the first pre samples from the whole
// window in place. A window with no pre samples is left untouched.
func Baseline(w []float64, pre int) {
	if pre <= 0 || pre > len(w) {
		return
	}

	var mean float64
	for _, v := range w[:pre] {
		mean += v
	}
	mean /= float64(pre)

	for i := range w {
		w[i] -= mean
	}
}
