// Package coords pairs stimulation events with the spatial tracking
// samples recorded by the neuronavigation system.
//
// Tracking marker streams are optional: recordings made manually or
// by a buggy script may lack them entirely. The resolver therefore
// never fails; it degrades to all-NaN sentinels so downstream trials
// stay aligned with the event count.
package coords

import (
	"math"

	"github.com/cwbudde/algo-tms/align"
	"github.com/cwbudde/algo-tms/marker"
	"github.com/cwbudde/algo-tms/xdf"
)

// Payload keys written by the neuronavigation marker stream.
const (
	keyX    = "x"
	keyY    = "y"
	keyZ    = "z"
	keyMSO  = "coil_0_amplitude"
	keyDiDt = "coil_0_didt"
)

// Coordinate is a target position in navigator space, in mm.
type Coordinate [3]float64

// Missing returns the all-NaN sentinel coordinate.
func Missing() Coordinate {
	nan := math.NaN()
	return Coordinate{nan, nan, nan}
}

// IsMissing reports whether any component is NaN.
func (c Coordinate) IsMissing() bool {
	return math.IsNaN(c[0]) || math.IsNaN(c[1]) || math.IsNaN(c[2])
}

// Resolve pairs each reference timestamp with the nearest tracking
// sample: the coil coordinate, the device intensity (%MSO), and the
// estimated current derivative (A/us). Nearest is by absolute time
// difference, ties to the earliest sample.
//
// All three outputs have len(refs) entries. A nil stream, or a stream
// without the relevant payloads, yields missing sentinels.
func Resolve(loc *xdf.Stream, refs []float64) ([]Coordinate, []float64, []float64) {
	coords := MissingCoordinates(len(refs))
	mso := MissingValues(len(refs))
	didt := MissingValues(len(refs))
	if loc == nil {
		return coords, mso, didt
	}

	var (
		posTS   []float64
		pos     []Coordinate
		msoTS   []float64
		msoVal  []float64
		didtTS  []float64
		didtVal []float64
	)

	for i, row := range loc.Strings {
		for _, payload := range row {
			decoded, ok := marker.Decode(payload)
			if !ok {
				continue
			}
			obj, isObj := decoded.(map[string]any)
			if !isObj {
				continue
			}

			x, okX := number(obj, keyX)
			y, okY := number(obj, keyY)
			z, okZ := number(obj, keyZ)
			if okX && okY && okZ {
				posTS = append(posTS, loc.Timestamps[i])
				pos = append(pos, Coordinate{x, y, z})
			}
			if v, ok := number(obj, keyMSO); ok {
				msoTS = append(msoTS, loc.Timestamps[i])
				msoVal = append(msoVal, v)
			}
			if v, ok := number(obj, keyDiDt); ok {
				didtTS = append(didtTS, loc.Timestamps[i])
				didtVal = append(didtVal, v)
			}
		}
	}

	for i, ref := range refs {
		if j := align.NearestIndex(ref, posTS); j >= 0 {
			coords[i] = pos[j]
		}
		if j := align.NearestIndex(ref, msoTS); j >= 0 {
			mso[i] = msoVal[j]
		}
		if j := align.NearestIndex(ref, didtTS); j >= 0 {
			didt[i] = didtVal[j]
		}
	}
	return coords, mso, didt
}

// MissingCoordinates returns n sentinel coordinates.
func MissingCoordinates(n int) []Coordinate {
	out := make([]Coordinate, n)
	for i := range out {
		out[i] = Missing()
	}
	return out
}

// MissingValues returns n NaNs.
func MissingValues(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func number(obj map[string]any, key string) (float64, bool) {
	v, ok := obj[key]
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}
