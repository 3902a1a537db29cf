// ABOUTME: Payload field lookup for upstream responses
// ABOUTME: Reads fields from the {success, data} envelope first, then the top level

package services

import (
	"bytes"
	"encoding/json"
)

// payloadField returns the raw value of name. The live API nests payloads
// under "data"; older deployments return them at the top level.
func payloadField(body json.RawMessage, name string) (json.RawMessage, bool) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return nil, false
	}

	if data, ok := top["data"]; ok {
		var nested map[string]json.RawMessage
		if json.Unmarshal(data, &nested) == nil {
			if value, ok := nested[name]; ok && !isNull(value) {
				return value, true
			}
		}
	}

	if value, ok := top[name]; ok && !isNull(value) {
		return value, true
	}
	return nil, false
}

// decodeField decodes the named payload field into dest. dest is untouched
// when the field is absent or does not decode.
func decodeField(body json.RawMessage, name string, dest any) bool {
	raw, ok := payloadField(body, name)
	if !ok {
		return false
	}
	return json.Unmarshal(raw, dest) == nil
}

// stringField returns a string payload field, or "" when absent.
func stringField(body json.RawMessage, name string) string {
	var s string
	if !decodeField(body, name, &s) {
		return ""
	}
	return s
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
