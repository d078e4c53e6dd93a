package plugin

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

func uint64frombits(f float64) uint64  { return math.Float64bits(f) }
func float64frombits(v uint64) float64 { return math.Float64frombits(v) }

// Hand-encoded protobuf helpers. spec.md §4.8 is explicit that the plugin
// wire format is "protobuf-encoded" without naming a .proto schema this
// exercise can run protoc against, so each message type in protocol.go
// implements its own Marshal/Unmarshal against these field-level
// protowire.Append*/Consume* primitives rather than generated code —
// real protobuf wire compatibility, hand-written.

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	return appendVarint(b, num, 1)
}

func appendStrings(b []byte, num protowire.Number, vs []string) []byte {
	for _, v := range vs {
		b = appendString(b, num, v)
	}
	return b
}

// appendStringMap encodes m as a sequence of length-delimited submessages,
// each with field 1 = key, field 2 = value — the idiomatic protobuf
// encoding of a map<string,string> field.
func appendStringMap(b []byte, num protowire.Number, m map[string]string) []byte {
	for k, v := range m {
		entry := appendString(nil, 1, k)
		entry = appendString(entry, 2, v)
		b = protowire.AppendTag(b, num, protowire.BytesType)
		b = protowire.AppendBytes(b, entry)
	}
	return b
}

func decodeStringMapEntry(b []byte) (key, val string) {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return key, val
		}
		b = b[n:]
		switch {
		case typ == protowire.BytesType && num == 1:
			v, m := protowire.ConsumeBytes(b)
			key = string(v)
			b = b[m:]
		case typ == protowire.BytesType && num == 2:
			v, m := protowire.ConsumeBytes(b)
			val = string(v)
			b = b[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return key, val
			}
			b = b[m:]
		}
	}
	return key, val
}

// walkFields calls fn once per top-level field in b, passing the field
// number, wire type, and the raw remaining buffer positioned at the
// field's value. fn returns (consumed, true) when it handled the field
// itself (and consumed its bytes), or (_, false) to let walkFields skip
// the field generically via protowire.ConsumeFieldValue.
func walkFields(b []byte, fn func(num protowire.Number, typ protowire.Type, rest []byte) (int, bool)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		consumed, handled := fn(num, typ, b)
		if !handled {
			consumed = protowire.ConsumeFieldValue(num, typ, b)
			if consumed < 0 {
				return protowire.ParseError(consumed)
			}
		}
		b = b[consumed:]
	}
	return nil
}
