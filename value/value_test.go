package value

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorsAndAccessors(t *testing.T) {
	t.Run("null", func(t *testing.T) {
		v := Null()
		assert.Equal(t, KindNull, v.Kind())
		assert.True(t, v.IsNull())

		var zero Value
		assert.True(t, zero.IsNull(), "zero Value should be null")
	})

	t.Run("bool", func(t *testing.T) {
		v := Bool(true)
		b, ok := v.AsBool()
		require.True(t, ok)
		assert.True(t, b)

		_, ok = v.AsString()
		assert.False(t, ok)
	})

	t.Run("number", func(t *testing.T) {
		v := Number(3.5)
		f, ok := v.AsNumber()
		require.True(t, ok)
		assert.Equal(t, 3.5, f)

		n, ok := v.AsInt()
		require.True(t, ok)
		assert.Equal(t, 3, n)
	})

	t.Run("int", func(t *testing.T) {
		n, ok := Int(42).AsInt()
		require.True(t, ok)
		assert.Equal(t, 42, n)
	})

	t.Run("string", func(t *testing.T) {
		s, ok := String("hello").AsString()
		require.True(t, ok)
		assert.Equal(t, "hello", s)
	})

	t.Run("bytes copies input", func(t *testing.T) {
		src := []byte{1, 2, 3}
		v := Bytes(src)
		src[0] = 99

		got, ok := v.AsBytes()
		require.True(t, ok)
		assert.Equal(t, []byte{1, 2, 3}, got)
	})

	t.Run("array", func(t *testing.T) {
		v := Array(Int(1), String("two"))
		assert.Equal(t, 2, v.Len())

		item, ok := v.Index(1)
		require.True(t, ok)
		s, _ := item.AsString()
		assert.Equal(t, "two", s)

		_, ok = v.Index(5)
		assert.False(t, ok)
	})
}

func TestMapBuilderPreservesOrder(t *testing.T) {
	v := NewMap().
		Set("z", Int(1)).
		Set("a", Int(2)).
		Set("m", Int(3)).
		Build()

	assert.Equal(t, []string{"z", "a", "m"}, v.Keys())

	// Re-setting an existing key keeps its position
	v2 := NewMap().
		Set("z", Int(1)).
		Set("a", Int(2)).
		Set("z", Int(9)).
		Build()
	assert.Equal(t, []string{"z", "a"}, v2.Keys())
	n := GetInt(v2, "z", 0)
	assert.Equal(t, 9, n)
}

func TestEqualStructural(t *testing.T) {
	tests := []struct {
		name  string
		a, b  Value
		equal bool
	}{
		{"nulls", Null(), Null(), true},
		{"bools", Bool(true), Bool(true), true},
		{"bool mismatch", Bool(true), Bool(false), false},
		{"numbers", Number(1), Int(1), true},
		{"kind mismatch", Int(1), String("1"), false},
		{"strings", String("x"), String("x"), true},
		{"bytes", Bytes([]byte{1, 2}), Bytes([]byte{1, 2}), true},
		{"arrays ordered", Array(Int(1), Int(2)), Array(Int(1), Int(2)), true},
		{"array order matters", Array(Int(1), Int(2)), Array(Int(2), Int(1)), false},
		{
			"maps ignore key order",
			NewMap().Set("a", Int(1)).Set("b", Int(2)).Build(),
			NewMap().Set("b", Int(2)).Set("a", Int(1)).Build(),
			true,
		},
		{
			"map value mismatch",
			NewMap().Set("a", Int(1)).Build(),
			NewMap().Set("a", Int(2)).Build(),
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.equal, tt.a.Equal(tt.b))
			assert.Equal(t, tt.equal, tt.b.Equal(tt.a))
		})
	}
}

func TestWireRoundTrip(t *testing.T) {
	v := NewMap().
		Set("a", Int(1)).
		Set("b", String("x")).
		Build()

	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"b":"x"}`, string(data))

	var back Value
	require.NoError(t, json.Unmarshal(data, &back))

	assert.True(t, v.Equal(back))
	if diff := cmp.Diff(v.Keys(), back.Keys()); diff != "" {
		t.Errorf("key order not preserved (-want +got):\n%s", diff)
	}
}

func TestWireRoundTripNested(t *testing.T) {
	v := NewMap().
		Set("items", Array(Int(1), Int(2), Int(3))).
		Set("nested", NewMap().Set("ok", Bool(true)).Set("note", Null()).Build()).
		Build()

	data, err := json.Marshal(v)
	require.NoError(t, err)

	back, err := FromJSON(data)
	require.NoError(t, err)
	assert.True(t, v.Equal(back))
}

func TestFromJSONRejectsGarbage(t *testing.T) {
	_, err := FromJSON([]byte(`{"a":`))
	assert.Error(t, err)

	_, err = FromJSON([]byte(`{"a":1} trailing`))
	assert.Error(t, err)
}

func TestDocument(t *testing.T) {
	doc, err := Document([]byte(`{"type":"test_event","data":{"message":"hi"}}`))
	require.NoError(t, err)
	assert.Equal(t, KindDocument, doc.Kind())

	// Structural access parses transparently
	assert.Equal(t, "test_event", GetString(doc, "type", ""))
	nested, ok := doc.Get("data")
	require.True(t, ok)
	assert.Equal(t, "hi", GetString(nested, "message", ""))

	// Equality against the parsed form
	parsed, err := FromJSON([]byte(`{"type":"test_event","data":{"message":"hi"}}`))
	require.NoError(t, err)
	assert.True(t, doc.Equal(parsed))

	_, err = Document([]byte(`not json`))
	assert.Error(t, err)
}

func TestBytesWireForm(t *testing.T) {
	v := Bytes([]byte("payload"))
	data, err := json.Marshal(v)
	require.NoError(t, err)

	// Bytes travel as base64 strings; AsBytes on the decoded string recovers them
	var back Value
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, KindString, back.Kind())

	raw, ok := back.AsBytes()
	require.True(t, ok)
	assert.Equal(t, []byte("payload"), raw)
}

func TestLenientExtraction(t *testing.T) {
	v := NewMap().
		Set("name", String("runar")).
		Set("count", Int(7)).
		Set("ratio", Number(0.5)).
		Set("enabled", Bool(true)).
		Set("tags", Array(String("a"), String("b"))).
		Build()

	assert.Equal(t, "runar", GetString(v, "name", "default"))
	assert.Equal(t, "default", GetString(v, "missing", "default"))
	assert.Equal(t, "default", GetString(v, "count", "default"), "kind mismatch returns default")

	assert.Equal(t, 7, GetInt(v, "count", -1))
	assert.Equal(t, -1, GetInt(v, "name", -1))

	assert.Equal(t, 0.5, GetFloat(v, "ratio", 0))
	assert.Equal(t, 1.5, GetFloat(v, "missing", 1.5))

	assert.True(t, GetBool(v, "enabled", false))
	assert.False(t, GetBool(v, "missing", false))

	tags := GetArray(v, "tags")
	require.Len(t, tags, 2)
	assert.Nil(t, GetArray(v, "name"))

	// extraction on non-map values degrades to defaults, never errors
	assert.Equal(t, "d", GetString(Int(3), "key", "d"))
	assert.Equal(t, 4, GetInt(Null(), "key", 4))
}

func TestWholeValueCoercions(t *testing.T) {
	assert.Equal(t, "x", AsStringOr(String("x"), "d"))
	assert.Equal(t, "d", AsStringOr(Int(1), "d"))
	assert.Equal(t, 3, AsIntOr(Int(3), 0))
	assert.Equal(t, 0, AsIntOr(String("3"), 0))
	assert.Equal(t, 2.5, AsFloatOr(Number(2.5), 0))
	assert.True(t, AsBoolOr(Bool(true), false))
}

func TestClone(t *testing.T) {
	v := NewMap().
		Set("arr", Array(Int(1))).
		Set("raw", Bytes([]byte{9})).
		Build()

	clone := v.Clone()
	assert.True(t, v.Equal(clone))
	assert.Equal(t, v.Keys(), clone.Keys())
}

func TestStrings(t *testing.T) {
	v := Strings([]string{"a", "b"})
	assert.Equal(t, 2, v.Len())
	first, _ := v.Index(0)
	assert.Equal(t, "a", AsStringOr(first, ""))
}

func TestStringRendering(t *testing.T) {
	v := NewMap().Set("a", Int(1)).Build()
	assert.Equal(t, `{"a":1}`, v.String())
	assert.Equal(t, "null", Null().String())
}
