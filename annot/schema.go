package annot

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// annotationSchema pins the on-disk document layout: two parts, all
// leaf values encoded as strings, with the fixed key sets required.
const annotationSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["attrs", "traces"],
	"properties": {
		"attrs": {
			"type": "object",
			"required": [
				"readin", "readout", "origin", "filedate", "subject",
				"samplingrate", "samples_pre_event", "samples_post_event",
				"channel_of_interest", "channel_labels"
			],
			"additionalProperties": {"type": "string"}
		},
		"traces": {
			"type": "array",
			"items": {
				"type": "object",
				"required": [
					"id", "event_name", "event_sample", "event_time",
					"xyz_coords", "time_since_last_pulse_in_s",
					"stimulation_intensity_mso", "stimulation_intensity_didt"
				],
				"additionalProperties": {"type": "string"}
			}
		}
	}
}`

var compiledSchema = jsonschema.MustCompileString("annotation.schema.json", annotationSchema)

// Validate checks a serialized annotation document against the
// embedded schema.
func Validate(doc []byte) error {
	var v any
	if err := json.Unmarshal(doc, &v); err != nil {
		return fmt.Errorf("annot: %w", err)
	}
	if err := compiledSchema.Validate(v); err != nil {
		return fmt.Errorf("annot: invalid annotation document: %w", err)
	}
	return nil
}

// Marshal serializes the annotation to its JSON document form.
func (a *Annotation) Marshal() ([]byte, error) {
	return json.MarshalIndent(a, "", "  ")
}

// Unmarshal parses and validates a serialized annotation document.
func Unmarshal(doc []byte) (*Annotation, error) {
	if err := Validate(doc); err != nil {
		return nil, err
	}
	var a Annotation
	if err := json.Unmarshal(doc, &a); err != nil {
		return nil, fmt.Errorf("annot: %w", err)
	}
	return &a, nil
}
