package wire

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Encoder handles low-level tagwire encoding into a growing buffer
type Encoder struct {
	buf      []byte
	depth    int
	maxDepth int
}

// NewEncoder creates a new wire format encoder
func NewEncoder() *Encoder {
	return NewEncoderWithConfig(DefaultConfig())
}

// NewEncoderWithConfig creates an encoder that refuses values nested deeper
// than cfg.MaxDepth, so everything it writes can be read back with cfg.
func NewEncoderWithConfig(cfg Config) *Encoder {
	return &Encoder{
		buf:      make([]byte, 0, 64),
		maxDepth: cfg.withDefaults().MaxDepth,
	}
}

// Bytes returns the encoded bytes
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// Reset clears the encoder buffer
func (e *Encoder) Reset() {
	e.buf = e.buf[:0]
	e.depth = 0
}

// EncodeTag appends a WireDataType byte.
func (e *Encoder) EncodeTag(t WireDataType) {
	e.buf = append(e.buf, byte(t))
}

// EncodeNotNullFlag appends the not-null flag byte.
func (e *Encoder) EncodeNotNullFlag(notNull bool) {
	if notNull {
		e.buf = append(e.buf, FlagNotNull)
	} else {
		e.buf = append(e.buf, FlagNull)
	}
}

// Encode serializes a value tree - main entry point. Values nested deeper
// than DefaultMaxDepth fail with ErrTooDeep.
func Encode(v Value) ([]byte, error) {
	return EncodeWithConfig(v, DefaultConfig())
}

// EncodeWithConfig serializes a value tree under the depth limit of cfg.
func EncodeWithConfig(v Value, cfg Config) ([]byte, error) {
	e := NewEncoderWithConfig(cfg)
	if err := e.EncodeValue(v); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

// EncodeValue writes v as a top-level value: its tag followed by its payload.
func (e *Encoder) EncodeValue(v Value) error {
	if !v.Type.IsValueType() {
		return &EncodeError{Err: fmt.Errorf("%v cannot start a value", v.Type)}
	}
	e.EncodeTag(v.Type)
	if err := e.encodePayload(v); err != nil {
		var ee *EncodeError
		if errors.As(err, &ee) {
			return err
		}
		return &EncodeError{Err: err}
	}
	return nil
}

// encodePayload writes the bytes that follow a tag whose type is v.Type.
func (e *Encoder) encodePayload(v Value) error {
	switch {
	case v.Type.IsScalar():
		return e.encodeScalar(v.Type, v.Scalar)
	case v.Type.IsNullable():
		if v.Null {
			e.EncodeNotNullFlag(false)
			return nil
		}
		e.EncodeNotNullFlag(true)
		return e.encodeScalar(UnwrapNullable(v.Type), v.Scalar)
	}

	if e.depth >= e.maxDepth {
		return fmt.Errorf("%w: maximum depth %d exceeded", ErrTooDeep, e.maxDepth)
	}
	e.depth++
	defer func() { e.depth-- }()

	switch v.Type {
	case Struct:
		return NewStructEncoder(e).EncodeBody(v.Members)
	case NullableStruct:
		if v.Null {
			e.EncodeNotNullFlag(false)
			return nil
		}
		e.EncodeNotNullFlag(true)
		return NewStructEncoder(e).EncodeBody(v.Members)
	case AbstractStruct:
		return NewStructEncoder(e).EncodeAbstract(v.TypeCode, v.Members)
	case ValueCollection:
		return NewCollectionEncoder(e).EncodeValueCollection(v)
	case KeyValueCollection:
		return NewCollectionEncoder(e).EncodeKeyValueCollection(v)
	default:
		return fmt.Errorf("%v is not a value type", v.Type)
	}
}

// encodeScalar writes the payload of scalar type t from its Go value.
func (e *Encoder) encodeScalar(t WireDataType, scalar interface{}) error {
	mismatch := func() error {
		return fmt.Errorf("%v payload must not be %T", t, scalar)
	}
	fe := NewFixedEncoder(e)

	switch t {
	case Null:
		if scalar != nil {
			return mismatch()
		}
	case VarInt:
		n, ok := toInt64(scalar)
		if !ok {
			return mismatch()
		}
		NewVarintEncoder(e).EncodeVarInt(n)
	case VarInt128:
		switch x := scalar.(type) {
		case Int128:
			NewVarintEncoder(e).EncodeVarInt128(x)
		default:
			n, ok := toInt64(scalar)
			if !ok {
				return mismatch()
			}
			NewVarintEncoder(e).EncodeVarInt128(Int128FromInt64(n))
		}
	case F32:
		x, ok := scalar.(Fixed32)
		if !ok {
			return mismatch()
		}
		fe.EncodeF32(x)
	case F32Vec2:
		x, ok := scalar.(Fixed32Vec2)
		if !ok {
			return mismatch()
		}
		fe.EncodeF32Vec2(x)
	case F32Vec3:
		x, ok := scalar.(Fixed32Vec3)
		if !ok {
			return mismatch()
		}
		fe.EncodeF32Vec3(x)
	case F64:
		x, ok := scalar.(Fixed64)
		if !ok {
			return mismatch()
		}
		fe.EncodeF64(x)
	case F64Vec2:
		x, ok := scalar.(Fixed64Vec2)
		if !ok {
			return mismatch()
		}
		fe.EncodeF64Vec2(x)
	case F64Vec3:
		x, ok := scalar.(Fixed64Vec3)
		if !ok {
			return mismatch()
		}
		fe.EncodeF64Vec3(x)
	case Float32:
		x, ok := scalar.(float32)
		if !ok {
			return mismatch()
		}
		fe.EncodeFloat32(x)
	case Float64:
		x, ok := scalar.(float64)
		if !ok {
			return mismatch()
		}
		fe.EncodeFloat64(x)
	case String:
		x, ok := scalar.(string)
		if !ok {
			return mismatch()
		}
		NewBytesEncoder(e).EncodeString(x)
	case Bytes:
		x, ok := scalar.([]byte)
		if !ok {
			return mismatch()
		}
		NewBytesEncoder(e).EncodeBytes(x)
	case MetaGuid:
		x, ok := scalar.(uuid.UUID)
		if !ok {
			return mismatch()
		}
		e.EncodeGuid(x)
	default:
		return fmt.Errorf("%v is not a scalar type", t)
	}
	return nil
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int16:
		return int64(n), true
	case int8:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint8:
		return int64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
