package value

// Lenient extraction helpers. A missing key or mismatched kind returns the
// caller-supplied default rather than an error, so optional parameters read
// as one-liners in handlers. Strict decoding belongs to the caller; these
// are convenience projections only.

// GetString extracts a string field from a map Value with a default fallback
func GetString(v Value, key, defaultValue string) string {
	entry, ok := v.Get(key)
	if !ok {
		return defaultValue
	}
	s, ok := entry.AsString()
	if !ok {
		return defaultValue
	}
	return s
}

// GetInt extracts an integer field from a map Value with a default fallback.
// Numbers are truncated toward zero.
func GetInt(v Value, key string, defaultValue int) int {
	entry, ok := v.Get(key)
	if !ok {
		return defaultValue
	}
	n, ok := entry.AsInt()
	if !ok {
		return defaultValue
	}
	return n
}

// GetFloat extracts a numeric field from a map Value with a default fallback
func GetFloat(v Value, key string, defaultValue float64) float64 {
	entry, ok := v.Get(key)
	if !ok {
		return defaultValue
	}
	f, ok := entry.AsNumber()
	if !ok {
		return defaultValue
	}
	return f
}

// GetBool extracts a boolean field from a map Value with a default fallback
func GetBool(v Value, key string, defaultValue bool) bool {
	entry, ok := v.Get(key)
	if !ok {
		return defaultValue
	}
	b, ok := entry.AsBool()
	if !ok {
		return defaultValue
	}
	return b
}

// GetArray extracts an array field from a map Value.
// Returns nil when the key is missing or not an array.
func GetArray(v Value, key string) []Value {
	entry, ok := v.Get(key)
	if !ok {
		return nil
	}
	return entry.Items()
}

// GetValue extracts a nested field from a map Value with a default fallback
func GetValue(v Value, key string, defaultValue Value) Value {
	entry, ok := v.Get(key)
	if !ok {
		return defaultValue
	}
	return entry
}

// AsStringOr unwraps a whole Value as a string with a default fallback
func AsStringOr(v Value, defaultValue string) string {
	s, ok := v.AsString()
	if !ok {
		return defaultValue
	}
	return s
}

// AsIntOr unwraps a whole Value as an int with a default fallback
func AsIntOr(v Value, defaultValue int) int {
	n, ok := v.AsInt()
	if !ok {
		return defaultValue
	}
	return n
}

// AsFloatOr unwraps a whole Value as a float64 with a default fallback
func AsFloatOr(v Value, defaultValue float64) float64 {
	f, ok := v.AsNumber()
	if !ok {
		return defaultValue
	}
	return f
}

// AsBoolOr unwraps a whole Value as a bool with a default fallback
func AsBoolOr(v Value, defaultValue bool) bool {
	b, ok := v.AsBool()
	if !ok {
		return defaultValue
	}
	return b
}

// Strings converts a slice of strings to an array Value
func Strings(items []string) Value {
	values := make([]Value, len(items))
	for i, s := range items {
		values[i] = String(s)
	}
	return Array(values...)
}
