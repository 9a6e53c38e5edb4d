package types

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Value is a typed, column-shaped scalar: exactly one of Int, Float or Str
// is meaningful, selected by Type. Executors build Values from parsed
// literals or from decoded record bytes and always write them into a
// caller-supplied destination slice — there is no lazily-materialized
// internal buffer, so a Value can be written into a record more than once
// without tripping an idempotency assertion (the hazard the teacher's
// source has with its buffer-owning value type).
type Value struct {
	Type ColumnType
	Int  int32
	Flt  float32
	Str  []byte
}

func IntValue(v int32) Value   { return Value{Type: ColInt, Int: v} }
func FloatValue(v float32) Value { return Value{Type: ColFloat, Flt: v} }
func StrValue(v []byte) Value  { return Value{Type: ColString, Str: v} }

// EncodeInto writes v into dst[:col.Len] using the column's declared type
// and width. INT and FLOAT are native-endian 4-byte values; STRING is the
// raw bytes right-padded with zeros to the declared length.
func (v Value) EncodeInto(dst []byte, col ColumnDef) error {
	if len(dst) < col.Len {
		return fmt.Errorf("EncodeInto: dst too small for column %q (need %d, have %d)", col.Name, col.Len, len(dst))
	}
	if v.Type != col.Type {
		return fmt.Errorf("EncodeInto: %w: column %q is %s, value is %s", ErrIncompatibleType, col.Name, col.Type, v.Type)
	}
	switch col.Type {
	case ColInt:
		binary.LittleEndian.PutUint32(dst[:4], uint32(v.Int))
	case ColFloat:
		binary.LittleEndian.PutUint32(dst[:4], math.Float32bits(v.Flt))
	case ColString:
		for i := range dst[:col.Len] {
			dst[i] = 0
		}
		copy(dst, v.Str)
	default:
		return fmt.Errorf("EncodeInto: unknown column type %q", col.Type)
	}
	return nil
}

// DecodeValue reads a Value of the given column's type out of a record
// buffer at the column's declared offset and width.
func DecodeValue(record []byte, col ColumnDef) (Value, error) {
	if col.Offset+col.Len > len(record) {
		return Value{}, fmt.Errorf("DecodeValue: column %q out of bounds (offset %d, len %d, record %d)", col.Name, col.Offset, col.Len, len(record))
	}
	field := record[col.Offset : col.Offset+col.Len]
	switch col.Type {
	case ColInt:
		return Value{Type: ColInt, Int: int32(binary.LittleEndian.Uint32(field))}, nil
	case ColFloat:
		return Value{Type: ColFloat, Flt: math.Float32frombits(binary.LittleEndian.Uint32(field))}, nil
	case ColString:
		out := make([]byte, len(field))
		copy(out, field)
		return Value{Type: ColString, Str: out}, nil
	default:
		return Value{}, fmt.Errorf("DecodeValue: unknown column type %q", col.Type)
	}
}

// Compare orders two values of the same type: INT as signed 32-bit, FLOAT
// as IEEE-754 32-bit, STRING as byte-wise comparison over the full declared
// column width (so shorter encoded strings must already be zero-padded).
func (v Value) Compare(other Value) (int, error) {
	if v.Type != other.Type {
		return 0, fmt.Errorf("Compare: %w: %s vs %s", ErrIncompatibleType, v.Type, other.Type)
	}
	switch v.Type {
	case ColInt:
		switch {
		case v.Int < other.Int:
			return -1, nil
		case v.Int > other.Int:
			return 1, nil
		default:
			return 0, nil
		}
	case ColFloat:
		switch {
		case v.Flt < other.Flt:
			return -1, nil
		case v.Flt > other.Flt:
			return 1, nil
		default:
			return 0, nil
		}
	case ColString:
		a, b := v.Str, other.Str
		n := len(a)
		if len(b) < n {
			n = len(b)
		}
		for i := 0; i < n; i++ {
			if a[i] != b[i] {
				if a[i] < b[i] {
					return -1, nil
				}
				return 1, nil
			}
		}
		switch {
		case len(a) < len(b):
			return -1, nil
		case len(a) > len(b):
			return 1, nil
		default:
			return 0, nil
		}
	default:
		return 0, fmt.Errorf("Compare: unknown column type %q", v.Type)
	}
}
