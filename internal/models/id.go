package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// IDKind distinguishes numeric identifiers from string identifiers.
type IDKind string

const (
	IDKindNumber IDKind = "number"
	IDKindString IDKind = "string"
)

// ErrInvalidID is returned when a value cannot be used as a document identifier.
var ErrInvalidID = errors.New("invalid id")

// ID identifies an image document. A numeric id and a string id with the
// same text are different identifiers.
type ID struct {
	Kind  IDKind
	Value string
}

// NumberID returns a numeric identifier.
func NumberID(n int64) ID {
	return ID{Kind: IDKindNumber, Value: strconv.FormatInt(n, 10)}
}

// StringID returns a string identifier.
func StringID(s string) ID {
	return ID{Kind: IDKindString, Value: s}
}

// ParseNumberID parses a JSON number into its canonical numeric identifier.
// Integral values are canonicalized to their integer form, so 1, 1.0 and 1e0
// name the same document.
func ParseNumberID(text string) (ID, error) {
	text = strings.TrimSpace(text)
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return NumberID(n), nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return ID{}, fmt.Errorf("%w: %q is not a number", ErrInvalidID, text)
	}
	if f == math.Trunc(f) && math.Abs(f) < math.MaxInt64 {
		return NumberID(int64(f)), nil
	}
	return ID{Kind: IDKindNumber, Value: strconv.FormatFloat(f, 'g', -1, 64)}, nil
}

// ParseIDArg interprets a command-line argument as an identifier. Arguments
// that parse as numbers become numeric ids unless forceString is set.
func ParseIDArg(arg string, forceString bool) (ID, error) {
	if strings.TrimSpace(arg) == "" {
		return ID{}, fmt.Errorf("%w: id must not be empty", ErrInvalidID)
	}
	if !forceString {
		if id, err := ParseNumberID(arg); err == nil {
			return id, nil
		}
	}
	return StringID(arg), nil
}

// IDFromValue converts a decoded database or JSON value into an ID.
func IDFromValue(v any) (ID, error) {
	switch t := v.(type) {
	case string:
		if strings.TrimSpace(t) == "" {
			return ID{}, fmt.Errorf("%w: id must not be empty", ErrInvalidID)
		}
		return StringID(t), nil
	case int:
		return NumberID(int64(t)), nil
	case int32:
		return NumberID(int64(t)), nil
	case int64:
		return NumberID(t), nil
	case float64:
		return ParseNumberID(strconv.FormatFloat(t, 'g', -1, 64))
	case json.Number:
		return ParseNumberID(t.String())
	case nil:
		return ID{}, fmt.Errorf("%w: id is required", ErrInvalidID)
	default:
		return ID{}, fmt.Errorf("%w: id must be a number or a string, got %T", ErrInvalidID, v)
	}
}

// IsZero reports whether the id is unset.
func (id ID) IsZero() bool {
	return id.Kind == ""
}

// String returns the id text as printed in progress output.
func (id ID) String() string {
	return id.Value
}

// Native returns the id as the value stored in the database: int64 or
// float64 for numbers, string for strings.
func (id ID) Native() any {
	if id.Kind == IDKindString {
		return id.Value
	}
	if n, err := strconv.ParseInt(id.Value, 10, 64); err == nil {
		return n
	}
	f, _ := strconv.ParseFloat(id.Value, 64)
	return f
}

// MarshalJSON encodes numbers as JSON numbers and strings as JSON strings.
func (id ID) MarshalJSON() ([]byte, error) {
	switch id.Kind {
	case IDKindNumber:
		return []byte(id.Value), nil
	case IDKindString:
		return json.Marshal(id.Value)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts a JSON number or a non-empty JSON string.
func (id *ID) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidID, err)
	}
	parsed, err := IDFromValue(v)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
