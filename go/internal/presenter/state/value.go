package state

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind is the declared JSON type of a value.
type Kind string

const (
	KindString Kind = "string"
	KindBool   Kind = "bool"
	KindNumber Kind = "number"
	KindAny    Kind = "any"
)

// ParseKind maps a declaration string to a Kind. Empty means KindAny.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindString, KindBool, KindNumber, KindAny:
		return Kind(s), nil
	case "":
		return KindAny, nil
	default:
		return "", fmt.Errorf("unknown value kind %q", s)
	}
}

// Check reports whether raw is well-formed JSON of kind k.
func (k Kind) Check(raw json.RawMessage) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return fmt.Errorf("%w: empty payload", ErrInvalidKind)
	}

	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidKind, err)
	}

	ok := true
	switch k {
	case KindString:
		_, ok = v.(string)
	case KindBool:
		_, ok = v.(bool)
	case KindNumber:
		_, ok = v.(float64)
	}
	if !ok {
		return fmt.Errorf("%w: want %s", ErrInvalidKind, k)
	}
	return nil
}

// Accessor is the typed get/set pair registered for one value name.
type Accessor interface {
	// Get returns the current payload and whether one is present.
	Get() (json.RawMessage, bool)
	// Set replaces the payload.
	Set(raw json.RawMessage) error
}

// Cell holds the last written payload of a declared kind.
type Cell struct {
	kind  Kind
	value json.RawMessage
}

// NewCell creates a cell. A non-empty initial payload must match kind.
func NewCell(kind Kind, initial json.RawMessage) (*Cell, error) {
	c := &Cell{kind: kind}
	if len(initial) > 0 {
		if err := c.Set(initial); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Kind returns the declared kind.
func (c *Cell) Kind() Kind { return c.kind }

// Get returns the stored payload, or false if nothing was set yet.
func (c *Cell) Get() (json.RawMessage, bool) {
	if c.value == nil {
		return nil, false
	}
	return c.value, true
}

// Set stores a copy of raw after checking it against the declared kind.
func (c *Cell) Set(raw json.RawMessage) error {
	if err := c.kind.Check(raw); err != nil {
		return err
	}
	c.value = append(json.RawMessage(nil), raw...)
	return nil
}

// ReadOnlyFunc exposes a computed value that clients may read but never set.
type ReadOnlyFunc func() (json.RawMessage, bool)

// Get calls f.
func (f ReadOnlyFunc) Get() (json.RawMessage, bool) { return f() }

// Set always fails with ErrReadOnly.
func (f ReadOnlyFunc) Set(json.RawMessage) error { return ErrReadOnly }

// BoolFunc adapts a boolean getter to a read-only accessor.
func BoolFunc(get func() bool) ReadOnlyFunc {
	return func() (json.RawMessage, bool) {
		if get() {
			return json.RawMessage("true"), true
		}
		return json.RawMessage("false"), true
	}
}
