// Package annot builds and persists annotation records for TMS
// recordings.
//
// An annotation is the one durable artifact of the pipeline: global
// file-level attributes plus one attribute record per detected
// stimulation pulse ("trial"). It stores the recipe for cutting
// traces (event sample offsets, window sizes) rather than the traces
// themselves, which are recomputed from the recording container on
// demand.
//
// Attribute values are stored as strings in a fixed key schema, so an
// annotation survives being edited by hand or by foreign tooling; the
// codec in this package converts between the string form and native
// ints, floats (including inf and nan), and lists. Documents read
// back from disk are validated against an embedded JSON Schema before
// use.
package annot
