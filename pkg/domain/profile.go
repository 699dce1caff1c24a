package domain

import (
	"strconv"
	"strings"
)

// ValueKind tags the concrete type held by a Value.
type ValueKind string

const (
	ValueNumber ValueKind = "number"
	ValueText   ValueKind = "text"
	ValueList   ValueKind = "list"
)

// Value is a validated, typed answer.
type Value struct {
	Kind   ValueKind `json:"kind"`
	Number float64   `json:"number,omitempty"`
	Text   string    `json:"text,omitempty"`
	List   []string  `json:"list,omitempty"`
}

// NumberValue wraps a numeric answer.
func NumberValue(f float64) Value {
	return Value{Kind: ValueNumber, Number: f}
}

// TextValue wraps a string answer.
func TextValue(s string) Value {
	return Value{Kind: ValueText, Text: s}
}

// ListValue wraps an ordered list answer. The input slice is copied.
func ListValue(items []string) Value {
	return Value{Kind: ValueList, List: append([]string{}, items...)}
}

// Raw returns the plain Go value used for wire payloads.
// Lists are never nil so they encode as [] rather than null.
func (v Value) Raw() any {
	switch v.Kind {
	case ValueNumber:
		return v.Number
	case ValueList:
		if v.List == nil {
			return []string{}
		}
		return append([]string{}, v.List...)
	default:
		return v.Text
	}
}

func (v Value) String() string {
	switch v.Kind {
	case ValueNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case ValueList:
		if len(v.List) == 0 {
			return "none"
		}
		return strings.Join(v.List, ", ")
	default:
		return v.Text
	}
}

// Profile maps question keys to validated answers.
type Profile map[string]Value

// Clone returns a deep copy.
func (p Profile) Clone() Profile {
	out := make(Profile, len(p))
	for k, v := range p {
		if v.List != nil {
			v.List = append([]string{}, v.List...)
		}
		out[k] = v
	}
	return out
}

// Payload flattens the profile into plain key/value data.
func (p Profile) Payload() map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v.Raw()
	}
	return out
}
