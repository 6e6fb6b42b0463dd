package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ID is an opaque identifier taken from external telemetry. Game sources
// emit ids either as JSON strings or as bare numbers; both decode to the
// exact text that was sent so large numeric ids never lose digits.
type ID string

// NormalizeID is the single normalization applied before ids are compared.
func NormalizeID(s string) string {
	return strings.TrimSpace(s)
}

// String returns the normalized id.
func (id ID) String() string {
	return NormalizeID(string(id))
}

// UnmarshalJSON accepts a string, a number or null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")):
		*id = ""
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(NormalizeID(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}
