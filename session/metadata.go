package session

import "encoding/json"

// RawValueKey is the sentinel under which an unparseable metadata payload is
// preserved verbatim.
const RawValueKey = "raw_value"

// ParseMetadata decodes the out-of-band session metadata string. The payload
// may be a JSON object, a double-encoded JSON object (a JSON string whose
// contents are themselves JSON), or a plain tag like "dispatch_via_api".
//
// The parse never fails: anything that does not decode to an object is
// preserved under RawValueKey.
func ParseMetadata(raw string) map[string]any {
	if raw == "" {
		return map[string]any{}
	}

	var first any
	if err := json.Unmarshal([]byte(raw), &first); err != nil {
		return map[string]any{RawValueKey: raw}
	}

	// A JSON string may wrap a second JSON document.
	if inner, ok := first.(string); ok {
		var second any
		if err := json.Unmarshal([]byte(inner), &second); err == nil {
			first = second
		} else {
			return map[string]any{RawValueKey: inner}
		}
	}

	if obj, ok := first.(map[string]any); ok {
		return obj
	}
	return map[string]any{RawValueKey: raw}
}

// MetadataString extracts a top-level string field from parsed metadata.
func MetadataString(md map[string]any, key string) (string, bool) {
	v, ok := md[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
