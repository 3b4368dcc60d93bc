// Package align reconstructs accurate per-event timestamps from
// multiple independently clocked marker streams of differing
// reliability.
//
// Three sources of timing information are fused, in increasing order
// of precision:
//
//  1. A primary event marker stream, approximately but not precisely
//     timed (e.g. stimulator control software markers).
//  2. An auxiliary hardware marker stream on the acquisition machine,
//     precise but sometimes only partially recorded and sometimes
//     duplicated across two stream names.
//  3. The raw waveform itself, which contains a physical stimulation
//     artifact at the true pulse instant, detected with a nonlinear
//     energy operator.
//
// The Corrector applies them in order: when auxiliary markers exist
// but are clustered too densely to disambiguate individual events, a
// fixed empirical offset is applied instead of per-event matching;
// when there are at least as many auxiliary markers as events, each
// event snaps to its nearest auxiliary marker; finally the artifact
// onset in the raw waveform refines every estimate. A missing or
// wrong-host stream is never an error, only a skipped stage.
package align
