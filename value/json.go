package value

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/runar-labs/runar-node/errors"
)

// MarshalJSON implements json.Marshaler. Map keys are written in insertion
// order; bytes are encoded as base64 strings; documents are written verbatim.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindNumber:
		data, err := json.Marshal(v.num)
		if err != nil {
			return err
		}
		buf.Write(data)
	case KindString:
		data, err := json.Marshal(v.str)
		if err != nil {
			return err
		}
		buf.Write(data)
	case KindBytes:
		data, err := json.Marshal(base64.StdEncoding.EncodeToString(v.raw))
		if err != nil {
			return err
		}
		buf.Write(data)
	case KindArray:
		buf.WriteByte('[')
		for i, item := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindMap:
		buf.WriteByte('{')
		for i, key := range v.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			keyData, err := json.Marshal(key)
			if err != nil {
				return err
			}
			buf.Write(keyData)
			buf.WriteByte(':')
			if err := v.m[key].encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case KindDocument:
		buf.Write(v.raw)
	default:
		return fmt.Errorf("cannot encode value of kind %v", v.kind)
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler. JSON objects become map Values
// with key order preserved; numbers become KindNumber.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := FromJSON(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// FromJSON parses a JSON document into a structural Value, preserving object
// key order.
func FromJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	parsed, err := decodeValue(dec)
	if err != nil {
		return Null(), errors.WrapInvalid(err, "Value", "FromJSON", "decode")
	}

	// Reject trailing content after the first document
	if _, err := dec.Token(); err == nil {
		return Null(), errors.WrapInvalid(
			fmt.Errorf("unexpected trailing content"), "Value", "FromJSON", "decode")
	}

	return parsed, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Null(), err
	}
	return decodeToken(dec, tok)
}

func decodeToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Null(), err
		}
		return Number(f), nil
	case string:
		return String(t), nil
	case json.Delim:
		switch t {
		case '[':
			var items []Value
			for dec.More() {
				item, err := decodeValue(dec)
				if err != nil {
					return Null(), err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return Null(), err
			}
			return Array(items...), nil
		case '{':
			b := NewMap()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Null(), err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Null(), fmt.Errorf("object key is not a string: %v", keyTok)
				}
				entry, err := decodeValue(dec)
				if err != nil {
					return Null(), err
				}
				b.Set(key, entry)
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return Null(), err
			}
			return b.Build(), nil
		default:
			return Null(), fmt.Errorf("unexpected delimiter %q", t)
		}
	default:
		return Null(), fmt.Errorf("unexpected token %v", tok)
	}
}
