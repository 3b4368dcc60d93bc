// Package xdf reads multi-stream XDF recording containers.
//
// XDF (Extensible Data Format) is the container written by LSL
// recorders such as LabRecorder. A single file holds any number of
// independently clocked streams: continuous signal streams (EEG, EMG)
// alongside irregular marker streams carrying discrete string events.
//
// The reader exposes each stream with its sample matrix, per-sample
// timestamps on the shared LSL clock, nominal sample rate, channel
// labels, and the metadata needed to disambiguate duplicate
// recordings (stream name and reporting hostname).
//
// # Usage
//
//	f, err := xdf.Load("recording.xdf")
//	if err != nil { ... }
//	s, ok := f.Stream("BrainVision RDA")
//
// When the same content was recorded by more than one machine, a
// prioritized candidate list combined with a hostname requirement
// selects the authoritative copy:
//
//	s, ok := f.Resolve("SEPHYS-CTRL", "BrainVision RDA", "BrainVision RDA2")
//
// Only the chunk types needed for offline analysis are interpreted:
// file header, stream headers, sample chunks, and clock offsets.
// Boundary chunks and stream footers are skipped.
package xdf
