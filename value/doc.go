// Package value implements the tagged-union payload type carried through
// requests, responses and events.
//
// A Value holds exactly one of: null, bool, number, string, bytes, an ordered
// array, an ordered string-keyed map, or a raw JSON document. Values are
// immutable after construction; constructors copy their inputs and accessors
// return copies of mutable internals, so a Value can be shared freely across
// goroutines.
//
// Maps preserve key insertion order, both in memory and on the JSON wire:
//
//	v := value.NewMap().
//	    Set("a", value.Int(1)).
//	    Set("b", value.String("x")).
//	    Build()
//	data, _ := v.MarshalJSON() // {"a":1,"b":"x"}
//
// The Get*/As*Or helpers implement lenient extraction: a missing field or a
// kind mismatch yields the caller's default instead of an error. Handlers use
// them for optional parameters:
//
//	name := value.GetString(params, "name", "anonymous")
//	count := value.GetInt(params, "count", 1)
package value
