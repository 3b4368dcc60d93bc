package annot

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Encode converts a native attribute value to its stored string form.
// Floats keep inf and nan spellings; lists render as bracketed,
// comma-separated elements.
func Encode(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		return encodeFloat(x)
	case []float64:
		parts := make([]string, len(x))
		for i, f := range x {
			parts[i] = encodeFloat(f)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case []string:
		parts := make([]string, len(x))
		for i, s := range x {
			parts[i] = strconv.Quote(s)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprint(v)
	}
}

func encodeFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	default:
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
}

// DecodeInt decodes a stored integer attribute.
func DecodeInt(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	return v, nil
}

// DecodeFloat decodes a stored float attribute, accepting the inf and
// nan spellings the encoder produces.
func DecodeFloat(s string) (float64, error) {
	switch strings.TrimSpace(s) {
	case "nan":
		return math.NaN(), nil
	case "inf":
		return math.Inf(1), nil
	case "-inf":
		return math.Inf(-1), nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("not a float: %q", s)
	}
	return v, nil
}

// nonFinite matches bare inf/nan tokens inside an encoded list, which
// are not valid JSON and must be quoted before unmarshalling.
var nonFinite = regexp.MustCompile(`(^|[\[,\s])(-?inf|nan)([,\]\s]|$)`)

// DecodeFloats decodes a stored numeric list attribute.
func DecodeFloats(s string) ([]float64, error) {
	quoted := nonFinite.ReplaceAllString(s, `$1"$2"$3`)

	var raw []any
	if err := json.Unmarshal([]byte(quoted), &raw); err != nil {
		return nil, fmt.Errorf("not a list: %q", s)
	}

	out := make([]float64, len(raw))
	for i, el := range raw {
		switch x := el.(type) {
		case float64:
			out[i] = x
		case string:
			v, err := DecodeFloat(x)
			if err != nil {
				return nil, fmt.Errorf("element %d of %q: %w", i, s, err)
			}
			out[i] = v
		default:
			return nil, fmt.Errorf("element %d of %q is not numeric", i, s)
		}
	}
	return out, nil
}

// DecodeStrings decodes a stored string list attribute.
func DecodeStrings(s string) ([]string, error) {
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("not a string list: %q", s)
	}
	return out, nil
}

// Decode converts a stored value back to its native form: int,
// float64, []float64, []string, or the verbatim string when nothing
// else applies.
func Decode(s string) any {
	if v, err := DecodeInt(s); err == nil {
		return v
	}
	if v, err := DecodeFloat(s); err == nil {
		return v
	}
	if strings.HasPrefix(strings.TrimSpace(s), "[") {
		if v, err := DecodeFloats(s); err == nil {
			return v
		}
		if v, err := DecodeStrings(s); err == nil {
			return v
		}
	}
	return s
}
