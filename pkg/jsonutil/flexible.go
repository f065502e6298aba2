package jsonutil

import (
	"encoding/json"
	"fmt"
)

// FlexibleString converts a json.RawMessage to a string, handling cases
// where the generator returns numbers or booleans instead of strings.
// Returns empty string for null/empty.
func FlexibleString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		return strVal
	}

	var numVal float64
	if err := json.Unmarshal(raw, &numVal); err == nil {
		if numVal == float64(int64(numVal)) {
			return fmt.Sprintf("%d", int64(numVal))
		}
		return fmt.Sprintf("%g", numVal)
	}

	var boolVal bool
	if err := json.Unmarshal(raw, &boolVal); err == nil {
		return fmt.Sprintf("%t", boolVal)
	}

	return string(raw)
}

// FlexibleStrings converts a json.RawMessage to a string slice: a JSON
// array maps element-wise, a scalar becomes a one-element slice. The
// generator routinely emits `"values": "PORTAL"` where a list is
// expected.
func FlexibleStrings(raw json.RawMessage) []string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err == nil {
		out := make([]string, 0, len(items))
		for _, item := range items {
			out = append(out, FlexibleString(item))
		}
		return out
	}

	return []string{FlexibleString(raw)}
}

// FlexibleInt converts a json.RawMessage to an int, accepting numbers
// and numeric strings. Returns 0 when the value is absent or cannot be
// interpreted.
func FlexibleInt(raw json.RawMessage) int {
	if len(raw) == 0 || string(raw) == "null" {
		return 0
	}

	var numVal float64
	if err := json.Unmarshal(raw, &numVal); err == nil {
		return int(numVal)
	}

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		var n float64
		if _, err := fmt.Sscanf(strVal, "%g", &n); err == nil {
			return int(n)
		}
	}

	return 0
}
