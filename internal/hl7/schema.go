package hl7

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

// Schema is the declarative field-name table for known segment IDs. The
// generic model only exposes positional access; the table gives positions
// human names for tooling (and for any generated getter layer built on top).
type Schema struct {
	names map[string]map[int]string
}

// DefaultSchema covers the segments this gateway sees in practice.
func DefaultSchema() *Schema {
	return &Schema{names: map[string]map[int]string{
		"MSH": {
			1: "Field Separator", 2: "Encoding Characters", 3: "Sending Application",
			4: "Sending Facility", 5: "Receiving Application", 6: "Receiving Facility",
			7: "Date/Time of Message", 8: "Security", 9: "Message Type",
			10: "Message Control ID", 11: "Processing ID", 12: "Version ID",
		},
		"MSA": {
			1: "Acknowledgment Code", 2: "Message Control ID", 3: "Text Message",
		},
		"EVN": {
			1: "Event Type Code", 2: "Recorded Date/Time", 6: "Event Occurred",
		},
		"PID": {
			1: "Set ID", 3: "Patient Identifier List", 5: "Patient Name",
			7: "Date/Time of Birth", 8: "Administrative Sex", 11: "Patient Address",
			13: "Phone Number - Home", 18: "Patient Account Number",
		},
		"PV1": {
			1: "Set ID", 2: "Patient Class", 3: "Assigned Patient Location",
			7: "Attending Doctor", 10: "Hospital Service", 19: "Visit Number",
			44: "Admit Date/Time",
		},
		"ORC": {
			1: "Order Control", 2: "Placer Order Number", 3: "Filler Order Number",
			9: "Date/Time of Transaction",
		},
		"OBR": {
			1: "Set ID", 2: "Placer Order Number", 3: "Filler Order Number",
			4: "Universal Service Identifier", 7: "Observation Date/Time",
		},
		"OBX": {
			1: "Set ID", 2: "Value Type", 3: "Observation Identifier",
			5: "Observation Value", 6: "Units", 7: "References Range",
			8: "Abnormal Flags", 11: "Observation Result Status",
			14: "Date/Time of the Observation",
		},
		"NTE": {1: "Set ID", 3: "Comment"},
		"DG1": {1: "Set ID", 3: "Diagnosis Code", 6: "Diagnosis Type"},
		"AL1": {1: "Set ID", 2: "Allergen Type Code", 3: "Allergen Code"},
		"NK1": {1: "Set ID", 2: "Name", 3: "Relationship"},
	}}
}

// FieldName resolves a human name for a 1-based field position.
func (s *Schema) FieldName(segID string, pos int) (string, bool) {
	fields, ok := s.names[segID]
	if !ok {
		return "", false
	}
	name, ok := fields[pos]
	return name, ok
}

// LoadExtensions merges site-local entries (Z-segments, vendor quirks) from a
// TOML file shaped as [SEG] tables mapping position to name:
//
//	[ZBX]
//	1 = "Device ID"
func (s *Schema) LoadExtensions(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("schema load failed (%s): %w", path, err)
	}
	var raw map[string]map[string]string
	if err := toml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("schema parse failed (%s): %w", path, err)
	}
	for segID, fields := range raw {
		if len(segID) != segmentIDLen {
			return fmt.Errorf("schema segment id %q must be 3 characters", segID)
		}
		dst, ok := s.names[segID]
		if !ok {
			dst = make(map[int]string, len(fields))
			s.names[segID] = dst
		}
		for rawPos, name := range fields {
			pos, err := strconv.Atoi(rawPos)
			if err != nil || pos < 1 {
				return fmt.Errorf("schema field position %q in %s is not a positive integer", rawPos, segID)
			}
			dst[pos] = name
		}
	}
	return nil
}
