package value

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"

	"github.com/runar-labs/runar-node/errors"
)

// Kind identifies which variant a Value holds
type Kind int

const (
	// KindNull is the zero value: an explicit "no data" payload
	KindNull Kind = iota
	// KindBool holds a boolean
	KindBool
	// KindNumber holds a float64 (integers are represented exactly up to 2^53)
	KindNumber
	// KindString holds a UTF-8 string
	KindString
	// KindBytes holds an opaque byte slice
	KindBytes
	// KindArray holds an ordered sequence of Values
	KindArray
	// KindMap holds string keys mapped to Values, preserving insertion order
	KindMap
	// KindDocument holds a raw JSON document, parsed lazily on access
	KindDocument
)

// String returns a string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	case KindDocument:
		return "document"
	default:
		return "unknown"
	}
}

// Value is the tagged-union payload type carried by requests, responses and
// events. Values are immutable after construction: constructors copy their
// inputs and accessors return copies of any mutable internals. The zero Value
// is Null.
type Value struct {
	kind Kind
	b    bool
	num  float64
	str  string
	raw  []byte // bytes payload, or raw JSON for documents
	arr  []Value
	keys []string
	m    map[string]Value
}

// Null returns the null Value
func Null() Value {
	return Value{}
}

// Bool returns a boolean Value
func Bool(v bool) Value {
	return Value{kind: KindBool, b: v}
}

// Number returns a numeric Value
func Number(v float64) Value {
	return Value{kind: KindNumber, num: v}
}

// Int returns a numeric Value from an integer
func Int(v int) Value {
	return Value{kind: KindNumber, num: float64(v)}
}

// String returns a string Value
func String(v string) Value {
	return Value{kind: KindString, str: v}
}

// Bytes returns a bytes Value. The input slice is copied.
func Bytes(v []byte) Value {
	cp := make([]byte, len(v))
	copy(cp, v)
	return Value{kind: KindBytes, raw: cp}
}

// Array returns an array Value holding the given items in order
func Array(items ...Value) Value {
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{kind: KindArray, arr: cp}
}

// Document returns a Value wrapping a raw JSON document. The document is
// validated but not parsed until a structural accessor needs it.
func Document(raw []byte) (Value, error) {
	if !json.Valid(raw) {
		return Null(), errors.WrapInvalid(
			fmt.Errorf("malformed JSON document"), "Value", "Document", "validation")
	}
	cp := make([]byte, len(raw))
	copy(cp, raw)
	return Value{kind: KindDocument, raw: cp}, nil
}

// MapBuilder assembles a map Value preserving key insertion order.
// Setting an existing key replaces its value but keeps its original position.
type MapBuilder struct {
	keys []string
	m    map[string]Value
}

// NewMap creates an empty map builder
func NewMap() *MapBuilder {
	return &MapBuilder{m: make(map[string]Value)}
}

// Set adds or replaces a key and returns the builder for chaining
func (b *MapBuilder) Set(key string, v Value) *MapBuilder {
	if _, exists := b.m[key]; !exists {
		b.keys = append(b.keys, key)
	}
	b.m[key] = v
	return b
}

// Build returns the assembled map Value
func (b *MapBuilder) Build() Value {
	keys := make([]string, len(b.keys))
	copy(keys, b.keys)
	m := make(map[string]Value, len(b.m))
	for k, v := range b.m {
		m[k] = v
	}
	return Value{kind: KindMap, keys: keys, m: m}
}

// Kind returns which variant this Value holds
func (v Value) Kind() Kind {
	return v.kind
}

// IsNull reports whether the Value is null
func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// IsScalar reports whether the Value is a bare scalar (bool, number, string
// or bytes)
func (v Value) IsScalar() bool {
	switch v.kind {
	case KindBool, KindNumber, KindString, KindBytes:
		return true
	default:
		return false
	}
}

// AsBool returns the boolean payload, and whether the Value holds one
func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// AsNumber returns the numeric payload, and whether the Value holds one
func (v Value) AsNumber() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

// AsInt returns the numeric payload truncated to int, and whether the Value
// holds a number
func (v Value) AsInt() (int, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return int(v.num), true
}

// AsString returns the string payload, and whether the Value holds one
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

// AsBytes returns the bytes payload. A string Value is accepted if it decodes
// as base64, since that is how bytes travel on the wire.
func (v Value) AsBytes() ([]byte, bool) {
	switch v.kind {
	case KindBytes:
		cp := make([]byte, len(v.raw))
		copy(cp, v.raw)
		return cp, true
	case KindString:
		decoded, err := base64.StdEncoding.DecodeString(v.str)
		if err != nil {
			return nil, false
		}
		return decoded, true
	default:
		return nil, false
	}
}

// Len returns the number of items in an array or keys in a map, 0 otherwise
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.arr)
	case KindMap:
		return len(v.keys)
	case KindDocument:
		return v.normalize().Len()
	default:
		return 0
	}
}

// Index returns the array item at i, and whether it exists
func (v Value) Index(i int) (Value, bool) {
	val := v
	if val.kind == KindDocument {
		val = val.normalize()
	}
	if val.kind != KindArray || i < 0 || i >= len(val.arr) {
		return Null(), false
	}
	return val.arr[i], true
}

// Items returns a copy of the array items, or nil for non-arrays
func (v Value) Items() []Value {
	val := v
	if val.kind == KindDocument {
		val = val.normalize()
	}
	if val.kind != KindArray {
		return nil
	}
	cp := make([]Value, len(val.arr))
	copy(cp, val.arr)
	return cp
}

// Get returns the map entry for key, and whether it exists.
// Documents are parsed transparently.
func (v Value) Get(key string) (Value, bool) {
	val := v
	if val.kind == KindDocument {
		val = val.normalize()
	}
	if val.kind != KindMap {
		return Null(), false
	}
	entry, ok := val.m[key]
	return entry, ok
}

// Keys returns a copy of the map keys in insertion order, or nil for non-maps
func (v Value) Keys() []string {
	val := v
	if val.kind == KindDocument {
		val = val.normalize()
	}
	if val.kind != KindMap {
		return nil
	}
	cp := make([]string, len(val.keys))
	copy(cp, val.keys)
	return cp
}

// Clone returns a deep copy of the Value
func (v Value) Clone() Value {
	switch v.kind {
	case KindBytes, KindDocument:
		cp := make([]byte, len(v.raw))
		copy(cp, v.raw)
		return Value{kind: v.kind, raw: cp}
	case KindArray:
		items := make([]Value, len(v.arr))
		for i, item := range v.arr {
			items[i] = item.Clone()
		}
		return Value{kind: KindArray, arr: items}
	case KindMap:
		keys := make([]string, len(v.keys))
		copy(keys, v.keys)
		m := make(map[string]Value, len(v.m))
		for k, entry := range v.m {
			m[k] = entry.Clone()
		}
		return Value{kind: KindMap, keys: keys, m: m}
	default:
		return v
	}
}

// Equal reports structural equality. Map comparison ignores key order;
// array comparison does not. Documents are compared by their parsed form.
func (v Value) Equal(other Value) bool {
	a, b := v, other
	if a.kind == KindDocument {
		a = a.normalize()
	}
	if b.kind == KindDocument {
		b = b.normalize()
	}
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindNumber:
		return a.num == b.num || (math.IsNaN(a.num) && math.IsNaN(b.num))
	case KindString:
		return a.str == b.str
	case KindBytes:
		return bytes.Equal(a.raw, b.raw)
	case KindArray:
		if len(a.arr) != len(b.arr) {
			return false
		}
		for i := range a.arr {
			if !a.arr[i].Equal(b.arr[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(a.m) != len(b.m) {
			return false
		}
		for k, av := range a.m {
			bv, ok := b.m[k]
			if !ok || !av.Equal(bv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// String renders the Value as compact JSON for logs and diagnostics
func (v Value) String() string {
	data, err := v.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<invalid value: %v>", err)
	}
	return string(data)
}

// normalize parses a document into its structural form. Non-documents are
// returned unchanged; unparseable documents degrade to Null (documents are
// validated at construction, so this only happens for zero-constructed ones).
func (v Value) normalize() Value {
	if v.kind != KindDocument {
		return v
	}
	parsed, err := FromJSON(v.raw)
	if err != nil {
		return Null()
	}
	return parsed
}
