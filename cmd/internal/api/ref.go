package api

import (
	"encoding/json"
	"errors"
)

const (
	refKindID       = "id"
	refKindExpanded = "expanded"
)

// Ref is a reference that is either a bare id or the expanded record:
//
//	{"kind":"id","id":"01J..."}
//	{"kind":"expanded","value":{...}}
type Ref[T any] struct {
	ID    string
	Value *T
}

// RefID returns an unexpanded reference.
func RefID[T any](id string) Ref[T] { return Ref[T]{ID: id} }

// RefExpanded returns an expanded reference.
func RefExpanded[T any](id string, v T) Ref[T] { return Ref[T]{ID: id, Value: &v} }

// Expanded reports whether the value is populated.
func (r Ref[T]) Expanded() bool { return r.Value != nil }

type refWire[T any] struct {
	Kind  string `json:"kind"`
	ID    string `json:"id,omitempty"`
	Value *T     `json:"value,omitempty"`
}

// MarshalJSON emits the tagged form.
func (r Ref[T]) MarshalJSON() ([]byte, error) {
	if r.Value != nil {
		return json.Marshal(refWire[T]{Kind: refKindExpanded, Value: r.Value})
	}
	return json.Marshal(refWire[T]{Kind: refKindID, ID: r.ID})
}

// UnmarshalJSON accepts either tagged form.
func (r *Ref[T]) UnmarshalJSON(b []byte) error {
	var w refWire[T]
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	switch w.Kind {
	case refKindID:
		if w.ID == "" {
			return errors.New("ref: id kind without id")
		}
		*r = Ref[T]{ID: w.ID}
	case refKindExpanded:
		if w.Value == nil {
			return errors.New("ref: expanded kind without value")
		}
		*r = Ref[T]{Value: w.Value}
	default:
		return errors.New("ref: unknown kind")
	}
	return nil
}
