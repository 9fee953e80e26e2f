package blackboard

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Flat hash serialization for archived facts.
//
// Facts are archived as string-keyed hashes so downstream consumers can read
// individual fields without decoding the whole record. The payload field is a
// JSON document whose shape is determined by the kind field.

// FactToHash converts a fact to a flat map suitable for a Redis hash.
func FactToHash(f *Fact) (map[string]string, error) {
	payloadJSON, err := json.Marshal(f.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	depsJSON, err := json.Marshal(f.DependsOn)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal depends_on: %w", err)
	}

	return map[string]string{
		"id":            strconv.FormatInt(f.ID, 10),
		"kind":          string(f.Kind),
		"producer":      f.Producer,
		"payload":       string(payloadJSON),
		"confidence":    strconv.FormatFloat(f.Confidence, 'g', -1, 64),
		"created_at_ms": strconv.FormatInt(f.CreatedAt.UnixMilli(), 10),
		"depends_on":    string(depsJSON),
	}, nil
}

// HashToFact converts a flat hash back to a fact. The payload is decoded
// into the concrete type for the hash's kind field.
func HashToFact(hash map[string]string) (*Fact, error) {
	id, err := strconv.ParseInt(hash["id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid fact id %q: %w", hash["id"], err)
	}

	kind := Kind(hash["kind"])
	if err := kind.Validate(); err != nil {
		return nil, err
	}

	payload, err := payloadPrototype(kind)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(hash["payload"]), payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s payload: %w", kind, err)
	}

	confidence, err := strconv.ParseFloat(hash["confidence"], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid confidence %q: %w", hash["confidence"], err)
	}

	createdAtMs, err := strconv.ParseInt(hash["created_at_ms"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at_ms %q: %w", hash["created_at_ms"], err)
	}

	var deps []int64
	if raw := hash["depends_on"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &deps); err != nil {
			return nil, fmt.Errorf("failed to unmarshal depends_on: %w", err)
		}
	}

	return &Fact{
		ID:         id,
		Kind:       kind,
		Producer:   hash["producer"],
		Payload:    payload,
		Confidence: confidence,
		CreatedAt:  time.UnixMilli(createdAtMs).UTC(),
		DependsOn:  deps,
	}, nil
}

// UnmarshalJSON decodes a fact from its JSON form, resolving the payload to
// the concrete type for the encoded kind.
func (f *Fact) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID         int64           `json:"id"`
		Kind       Kind            `json:"kind"`
		Producer   string          `json:"producer"`
		Payload    json.RawMessage `json:"payload"`
		Confidence float64         `json:"confidence"`
		CreatedAt  time.Time       `json:"created_at"`
		DependsOn  []int64         `json:"depends_on"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if err := raw.Kind.Validate(); err != nil {
		return err
	}
	payload, err := payloadPrototype(raw.Kind)
	if err != nil {
		return err
	}
	if len(raw.Payload) > 0 {
		if err := json.Unmarshal(raw.Payload, payload); err != nil {
			return fmt.Errorf("failed to unmarshal %s payload: %w", raw.Kind, err)
		}
	}

	f.ID = raw.ID
	f.Kind = raw.Kind
	f.Producer = raw.Producer
	f.Payload = payload
	f.Confidence = raw.Confidence
	f.CreatedAt = raw.CreatedAt
	f.DependsOn = raw.DependsOn
	return nil
}
