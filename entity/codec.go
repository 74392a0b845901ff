package entity

import (
	"encoding/json"
	"fmt"
)

// envelope is the wire form of a Raw: the variant fields plus a "type" tag.
type envelope struct {
	Type Kind `json:"type"`
}

// MarshalRaw encodes r as JSON with a "type" discriminator.
func MarshalRaw(r Raw) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("marshal raw entity: nil entity")
	}
	body, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal %s %q: %w", r.Kind(), r.EntityID(), err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("marshal %s %q: %w", r.Kind(), r.EntityID(), err)
	}
	tag, _ := json.Marshal(r.Kind())
	fields["type"] = tag
	return json.Marshal(fields)
}

// UnmarshalRaw decodes a JSON object produced by MarshalRaw (or written by
// hand) into the matching Raw variant.
func UnmarshalRaw(data []byte) (Raw, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode entity: %w", err)
	}

	var r Raw
	switch env.Type {
	case KindClass:
		r = &Class{}
	case KindClassProfile:
		r = &ClassProfile{}
	case KindRelationship:
		r = &Relationship{}
	case KindRelationshipProfile:
		r = &RelationshipProfile{}
	case KindGeneralization:
		r = &Generalization{}
	case "":
		return nil, fmt.Errorf("decode entity: missing type")
	default:
		return nil, fmt.Errorf("decode entity: unknown type %q", env.Type)
	}

	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.Type, err)
	}
	if r.EntityID() == "" {
		return nil, fmt.Errorf("decode %s: missing id", env.Type)
	}
	return r, nil
}
