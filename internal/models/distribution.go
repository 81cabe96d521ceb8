package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// TypeCount is the number of items of one equipment type.
type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// TypeDistribution maps equipment type to count, keeping the key order
// the backend sent. Chart labels follow that order.
type TypeDistribution []TypeCount

// Labels returns the types in order.
func (d TypeDistribution) Labels() []string {
	labels := make([]string, len(d))
	for i, tc := range d {
		labels[i] = tc.Type
	}
	return labels
}

// Counts returns the counts in label order.
func (d TypeDistribution) Counts() []int {
	counts := make([]int, len(d))
	for i, tc := range d {
		counts[i] = tc.Count
	}
	return counts
}

// Total sums all counts.
func (d TypeDistribution) Total() int {
	total := 0
	for _, tc := range d {
		total += tc.Count
	}
	return total
}

// UnmarshalJSON decodes a JSON object, preserving key order.
func (d *TypeDistribution) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*d = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("type_distribution: expected object, got %v", tok)
	}

	out := make(TypeDistribution, 0)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("type_distribution: unexpected key %v", keyTok)
		}
		var count int
		if err := dec.Decode(&count); err != nil {
			return fmt.Errorf("type_distribution[%s]: %w", key, err)
		}
		out = append(out, TypeCount{Type: key, Count: count})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*d = out
	return nil
}

// MarshalJSON encodes the distribution as a JSON object in order.
func (d TypeDistribution) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, tc := range d {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(tc.Type)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		fmt.Fprintf(&buf, ":%d", tc.Count)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
