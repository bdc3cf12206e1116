package gateway

import (
	"encoding/json"
	"fmt"
)

// EncodeRecord converts a domain value into its stored document form
// via a JSON round-trip.
func EncodeRecord(v any) (Record, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return rec, nil
}

// DecodeRecord hydrates a domain value from its stored document form.
func DecodeRecord(rec Record, v any) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	return nil
}
