// Package marker decodes discrete event payloads from marker streams
// and extracts per-event timestamp sequences.
//
// Marker payloads come in two encodings: a plain string naming the
// event, or a JSON object whose keys name events and whose values
// carry event parameters (e.g. {"coil_0_didt": 44}). Payloads in
// neither encoding are not an error; they simply never match.
package marker

import (
	"encoding/json"
	"strings"

	"github.com/cwbudde/algo-tms/xdf"
)

// Decode interprets a raw marker payload. JSON objects decode to a
// map[string]any; anything else is returned as the verbatim string.
// ok is false only for empty payloads.
func Decode(payload string) (any, bool) {
	if payload == "" {
		return nil, false
	}
	if strings.HasPrefix(strings.TrimSpace(payload), "{") {
		var obj map[string]any
		if err := json.Unmarshal([]byte(payload), &obj); err == nil {
			return obj, true
		}
	}
	return payload, true
}

// matches reports whether a decoded payload names the given event:
// either the payload is the event string itself, or it is an object
// carrying the event as a key.
func matches(decoded any, event string) bool {
	switch v := decoded.(type) {
	case string:
		return v == event
	case map[string]any:
		_, ok := v[event]
		return ok
	}
	return false
}

// Timestamps returns the ordered timestamps of every sample in s
// whose payload matches the event name. The result preserves temporal
// order and has one entry per matching sample. Repeated calls with
// the same inputs yield the same sequence.
func Timestamps(s *xdf.Stream, event string) []float64 {
	if s == nil {
		return nil
	}

	var out []float64
	for i, row := range s.Strings {
		for _, payload := range row {
			decoded, ok := Decode(payload)
			if !ok {
				continue
			}
			if matches(decoded, event) {
				out = append(out, s.Timestamps[i])
				break
			}
		}
	}
	return out
}

// Comments returns, for each reference timestamp, the latest payload
// at or before it whose decoded object carries identifier as a key,
// or "" when no such payload precedes the reference. The result
// always has len(refs) entries.
func Comments(s *xdf.Stream, refs []float64, identifier string) []string {
	out := make([]string, len(refs))
	if s == nil {
		return out
	}

	for ri, ref := range refs {
		var best string
		for i, row := range s.Strings {
			if s.Timestamps[i] > ref {
				break
			}
			for _, payload := range row {
				decoded, ok := Decode(payload)
				if !ok {
					continue
				}
				if obj, isObj := decoded.(map[string]any); isObj {
					if _, has := obj[identifier]; has {
						best = payload
					}
				}
			}
		}
		out[ri] = best
	}
	return out
}
