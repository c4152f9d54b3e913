// Package primitive implements the tagged-union scalar value that flows
// through every CrossCloudKit service boundary, plus the OperationResult
// envelope every public operation returns.
package primitive

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies which variant of Value is populated.
type Kind int

const (
	KindString Kind = iota
	KindInteger
	KindDouble
	KindBoolean
	KindBytes
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindDouble:
		return "double"
	case KindBoolean:
		return "boolean"
	case KindBytes:
		return "bytes"
	default:
		return "unknown"
	}
}

// Value is a tagged union over {String, Integer, Double, Boolean, Bytes}.
// The zero Value is the empty string, matching encoding/json's zero-value
// conventions for a self-describing scalar.
type Value struct {
	kind Kind
	str  string
	i64  int64
	f64  float64
	b    bool
	by   []byte
}

func NewString(s string) Value  { return Value{kind: KindString, str: s} }
func NewInteger(i int64) Value  { return Value{kind: KindInteger, i64: i} }
func NewDouble(f float64) Value { return Value{kind: KindDouble, f64: f} }
func NewBoolean(b bool) Value   { return Value{kind: KindBoolean, b: b} }
func NewBytes(b []byte) Value {
	cp := make([]byte, len(b))
	copy(cp, b)
	return Value{kind: KindBytes, by: cp}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

func (v Value) AsInteger() (int64, bool) {
	if v.kind != KindInteger {
		return 0, false
	}
	return v.i64, true
}

func (v Value) AsDouble() (float64, bool) {
	if v.kind != KindDouble {
		return 0, false
	}
	return v.f64, true
}

func (v Value) AsBoolean() (bool, bool) {
	if v.kind != KindBoolean {
		return false, false
	}
	return v.b, true
}

func (v Value) AsBytes() ([]byte, bool) {
	if v.kind != KindBytes {
		return nil, false
	}
	return v.by, true
}

// String renders the canonical string form used for cross-kind comparisons
// and for logging. It never fails.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindInteger:
		return strconv.FormatInt(v.i64, 10)
	case KindDouble:
		return strconv.FormatFloat(v.f64, 'g', -1, 64)
	case KindBoolean:
		return strconv.FormatBool(v.b)
	case KindBytes:
		return base64.StdEncoding.EncodeToString(v.by)
	default:
		return ""
	}
}

// Compare returns -1, 0, or 1. Same-kind comparisons are natural; cross-kind
// falls back to lexicographic comparison on the canonical string rendering.
func (v Value) Compare(other Value) int {
	if v.kind == other.kind {
		switch v.kind {
		case KindString:
			return strings.Compare(v.str, other.str)
		case KindInteger:
			switch {
			case v.i64 < other.i64:
				return -1
			case v.i64 > other.i64:
				return 1
			default:
				return 0
			}
		case KindDouble:
			switch {
			case v.f64 < other.f64:
				return -1
			case v.f64 > other.f64:
				return 1
			default:
				return 0
			}
		case KindBoolean:
			if v.b == other.b {
				return 0
			}
			if !v.b {
				return -1
			}
			return 1
		case KindBytes:
			return strings.Compare(string(v.by), string(other.by))
		}
	}
	return strings.Compare(v.String(), other.String())
}

func (v Value) Equal(other Value) bool { return v.Compare(other) == 0 }

type jsonValue struct {
	Kind  string          `json:"kind"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON renders a self-describing JSON form: {"kind":"...","value":...}.
func (v Value) MarshalJSON() ([]byte, error) {
	var raw []byte
	var err error
	switch v.kind {
	case KindString:
		raw, err = json.Marshal(v.str)
	case KindInteger:
		raw, err = json.Marshal(v.i64)
	case KindDouble:
		raw, err = json.Marshal(v.f64)
	case KindBoolean:
		raw, err = json.Marshal(v.b)
	case KindBytes:
		raw, err = json.Marshal(base64.StdEncoding.EncodeToString(v.by))
	default:
		return nil, fmt.Errorf("primitive: unknown kind %d", v.kind)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(jsonValue{Kind: v.kind.String(), Value: raw})
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var jv jsonValue
	if err := json.Unmarshal(data, &jv); err != nil {
		return err
	}
	switch jv.Kind {
	case KindString.String():
		var s string
		if err := json.Unmarshal(jv.Value, &s); err != nil {
			return err
		}
		*v = NewString(s)
	case KindInteger.String():
		var i int64
		if err := json.Unmarshal(jv.Value, &i); err != nil {
			return err
		}
		*v = NewInteger(i)
	case KindDouble.String():
		var f float64
		if err := json.Unmarshal(jv.Value, &f); err != nil {
			return err
		}
		*v = NewDouble(f)
	case KindBoolean.String():
		var b bool
		if err := json.Unmarshal(jv.Value, &b); err != nil {
			return err
		}
		*v = NewBoolean(b)
	case KindBytes.String():
		var s string
		if err := json.Unmarshal(jv.Value, &s); err != nil {
			return err
		}
		by, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return err
		}
		*v = NewBytes(by)
	default:
		return fmt.Errorf("primitive: unknown kind %q", jv.Kind)
	}
	return nil
}

// FromJSONToken coerces a decoded JSON token (from encoding/json's
// interface{} decoding: string, float64, bool, nil, or a json.Number) into
// a Value, following the attribute-coercion rules: string/number/bool by
// token type, anything else stringifies via fmt.Sprint.
func FromJSONToken(tok any) Value {
	switch t := tok.(type) {
	case string:
		return NewString(t)
	case float64:
		if t == float64(int64(t)) {
			return NewInteger(int64(t))
		}
		return NewDouble(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return NewInteger(i)
		}
		f, _ := t.Float64()
		return NewDouble(f)
	case bool:
		return NewBoolean(t)
	case nil:
		return NewString("")
	default:
		return NewString(fmt.Sprint(t))
	}
}
