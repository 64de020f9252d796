package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// UnmarshalComponents parses a JSON object of component kinds to attribute
// bundles, as written by MarshalComponentsCanonical.
func UnmarshalComponents(data []byte) (map[ComponentKind]ComponentData, error) {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	var raw map[string]map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("unmarshal components: %w", err)
	}

	parts := make(map[ComponentKind]ComponentData, len(raw))
	for kind, attrs := range raw {
		values := make(map[string]Value, len(attrs))
		for name, rawVal := range attrs {
			v, err := decodeAny(rawVal)
			if err != nil {
				return nil, fmt.Errorf("unmarshal components: %s.%s: %w", kind, name, err)
			}
			values[name] = v
		}
		parts[ComponentKind(kind)] = NewComponentData(values)
	}
	return parts, nil
}
