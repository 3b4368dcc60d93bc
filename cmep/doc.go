// Package cmep distills annotations and cuts cortical motor evoked
// potential traces from TMS recordings stored in XDF containers.
//
// PrepareAnnotations runs the full extraction pipeline for one
// recording: it locates the data stream by channel of interest,
// extracts the stimulation event timeline from the primary marker
// stream, refines it against the hardware marker stream and the
// stimulation artifact in the raw waveform, pairs each event with
// neuronavigation coordinates and stimulator intensities, and
// assembles one annotation record. CutTraces later re-opens the
// recording and slices the baseline-corrected windows the annotation
// describes.
//
// Missing optional streams never fail the pipeline; they degrade it.
// Only precondition violations - an absent channel of interest, an
// absent event stream, a window that does not fit the recording - are
// errors.
package cmep
