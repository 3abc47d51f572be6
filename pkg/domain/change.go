package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Action identifies the kind of mutation captured by a change record.
type Action string

// Mutation actions recorded in the change ledger.
const (
	// ActionCreate marks the creation of a new entity.
	ActionCreate Action = "create"
	// ActionUpdate marks an in-place entity update.
	ActionUpdate Action = "update"
	// ActionDelete marks an entity deletion, possibly with cascaded dependents.
	ActionDelete Action = "delete"
)

// Change is the transaction-internal record of a single entity mutation.
// It carries typed before/after values and never leaves the process.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// ChangePayload wraps a JSON snapshot of an entity's state inside a ledger
// entry. The distinction between an undefined payload and an empty one
// mirrors the create/delete asymmetry: create entries have no previous
// payload, delete entries have no new payload.
type ChangePayload struct {
	defined bool
	raw     json.RawMessage
}

// NewChangePayload builds a payload wrapper from raw JSON. The bytes are
// cloned so callers cannot mutate shared ledger state afterwards.
func NewChangePayload(raw json.RawMessage) ChangePayload {
	payload := ChangePayload{defined: true}
	if raw != nil {
		payload.raw = cloneRawMessage(raw)
	}
	return payload
}

// NewChangePayloadFromValue marshals a typed entity into a ChangePayload.
func NewChangePayloadFromValue[T any](value T) (ChangePayload, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return ChangePayload{}, err
	}
	return NewChangePayload(raw), nil
}

// UndefinedChangePayload returns the "not set" payload wrapper.
func UndefinedChangePayload() ChangePayload {
	return ChangePayload{}
}

// Defined reports whether the payload has been initialized.
func (p ChangePayload) Defined() bool {
	return p.defined
}

// IsEmpty reports whether the payload contains no bytes.
func (p ChangePayload) IsEmpty() bool {
	if !p.defined {
		return true
	}
	return len(p.raw) == 0
}

// Raw returns a cloned copy of the underlying JSON bytes. Nil is returned
// when the payload is undefined or empty.
func (p ChangePayload) Raw() json.RawMessage {
	if !p.defined || len(p.raw) == 0 {
		return nil
	}
	return cloneRawMessage(p.raw)
}

// MarshalJSON encodes the payload as its raw JSON contents, or null when the
// payload is undefined. Required so ledger entries survive snapshot
// persistence round-trips.
func (p ChangePayload) MarshalJSON() ([]byte, error) {
	if !p.defined || len(p.raw) == 0 {
		return []byte("null"), nil
	}
	return cloneRawMessage(p.raw), nil
}

// UnmarshalJSON restores a payload from snapshot persistence. JSON null maps
// back to the undefined payload.
func (p *ChangePayload) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = ChangePayload{}
		return nil
	}
	*p = NewChangePayload(data)
	return nil
}

// DecodeChangePayload decodes a payload's JSON contents into a value of type
// T. Undefined or empty payloads are an error: callers gate on Defined before
// decoding.
func DecodeChangePayload[T any](payload ChangePayload) (T, error) {
	var out T
	if !payload.Defined() {
		return out, errors.New("change payload is undefined")
	}
	raw := payload.Raw()
	if len(raw) == 0 {
		return out, errors.New("change payload holds no data")
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode change payload: %w", err)
	}
	return out, nil
}

func cloneRawMessage(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	cloned := make(json.RawMessage, len(raw))
	copy(cloned, raw)
	return cloned
}

// CascadeSnapshot holds every dependent entity removed as a side effect of a
// primary delete, captured before the delete is applied. Subcategories are
// ordered parents before children so a restore can reinsert them in
// dependency order.
type CascadeSnapshot struct {
	SubCategories []SubCategory          `json:"subcategories,omitempty"`
	Skills        []Skill                `json:"skills,omitempty"`
	Assessments   []Assessment           `json:"assessments,omitempty"`
	Plans         []QualificationPlan    `json:"plans,omitempty"`
	Measures      []QualificationMeasure `json:"measures,omitempty"`
}

// IsEmpty reports whether the cascade carries no dependents.
func (c CascadeSnapshot) IsEmpty() bool {
	return len(c.SubCategories) == 0 && len(c.Skills) == 0 &&
		len(c.Assessments) == 0 && len(c.Plans) == 0 && len(c.Measures) == 0
}

// Size returns the number of dependent entities in the cascade.
func (c CascadeSnapshot) Size() int {
	return len(c.SubCategories) + len(c.Skills) + len(c.Assessments) + len(c.Plans) + len(c.Measures)
}

// ChangeEntry is one record of the append-only change ledger. Exactly one
// entry is written per facade mutation. Undone is the only field that ever
// changes after the entry is appended, and it flips at most once.
type ChangeEntry struct {
	ID       string     `json:"id"`
	Entity   EntityType `json:"entity"`
	EntityID string     `json:"entity_id"`
	// Label is a human-readable identifier (usually the entity name) frozen
	// at mutation time, so history stays legible after renames and deletes.
	Label     string        `json:"label"`
	Action    Action        `json:"action"`
	Previous  ChangePayload `json:"previous"`
	New       ChangePayload `json:"new"`
	Cascade   ChangePayload `json:"cascade,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Undone    bool          `json:"undone"`
}

// CloneChangeEntry returns a deep copy of the ledger entry.
func CloneChangeEntry(e ChangeEntry) ChangeEntry {
	cp := e
	cp.Previous = NewChangePayloadClone(e.Previous)
	cp.New = NewChangePayloadClone(e.New)
	cp.Cascade = NewChangePayloadClone(e.Cascade)
	return cp
}

// NewChangePayloadClone copies a payload, preserving the undefined state.
func NewChangePayloadClone(p ChangePayload) ChangePayload {
	if !p.defined {
		return ChangePayload{}
	}
	return NewChangePayload(p.raw)
}
