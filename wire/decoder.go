package wire

import "fmt"

// Decoder is the byte cursor shared by the primitive sub-decoders and the
// parser. It never reads past len(buf).
type Decoder struct {
	buf []byte
	pos int
	cfg Config
}

// NewDecoder creates a decoder over data using DefaultConfig.
func NewDecoder(data []byte) *Decoder {
	return NewDecoderWithConfig(data, DefaultConfig())
}

// NewDecoderWithConfig creates a decoder over data with the given limits.
func NewDecoderWithConfig(data []byte, cfg Config) *Decoder {
	return &Decoder{
		buf: data,
		pos: 0,
		cfg: cfg.withDefaults(),
	}
}

// Offset returns the position of the next unread byte.
func (d *Decoder) Offset() int {
	return d.pos
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int {
	return len(d.buf) - d.pos
}

// Reset points the decoder at a new buffer.
func (d *Decoder) Reset(data []byte) {
	d.buf = data
	d.pos = 0
}

// DecodeTag reads a single WireDataType byte.
func (d *Decoder) DecodeTag() (WireDataType, error) {
	b, err := d.DecodeByte()
	if err != nil {
		return Invalid, err
	}
	return WireDataType(b), nil
}

// DecodeByte reads one raw byte.
func (d *Decoder) DecodeByte() (byte, error) {
	if d.pos >= len(d.buf) {
		return 0, d.truncated("need 1 byte")
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

// DecodeNotNullFlag reads a not-null flag byte and validates it against the
// two legal sentinels.
func (d *Decoder) DecodeNotNullFlag() (bool, error) {
	start := d.pos
	b, err := d.DecodeByte()
	if err != nil {
		return false, err
	}
	switch b {
	case FlagNull:
		return false, nil
	case FlagNotNull:
		return true, nil
	default:
		return false, &ParseError{Kind: ErrGrammar, Offset: start, Msg: fmt.Sprintf("invalid not-null flag 0x%02x", b)}
	}
}

// take returns the next n bytes without copying.
func (d *Decoder) take(n int) ([]byte, error) {
	if n > len(d.buf)-d.pos {
		return nil, d.truncated(fmt.Sprintf("need %d bytes, have %d", n, len(d.buf)-d.pos))
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *Decoder) truncated(msg string) error {
	return &ParseError{Kind: ErrTruncated, Offset: d.pos, Msg: msg}
}

// decodeScalar decodes the payload of scalar type t into its Go value.
func (d *Decoder) decodeScalar(t WireDataType) (interface{}, error) {
	switch t {
	case Null:
		return nil, nil
	case VarInt:
		return NewVarintDecoder(d).DecodeVarInt()
	case VarInt128:
		return NewVarintDecoder(d).DecodeVarInt128()
	case F32:
		return NewFixedDecoder(d).DecodeF32()
	case F32Vec2:
		return NewFixedDecoder(d).DecodeF32Vec2()
	case F32Vec3:
		return NewFixedDecoder(d).DecodeF32Vec3()
	case F64:
		return NewFixedDecoder(d).DecodeF64()
	case F64Vec2:
		return NewFixedDecoder(d).DecodeF64Vec2()
	case F64Vec3:
		return NewFixedDecoder(d).DecodeF64Vec3()
	case Float32:
		return NewFixedDecoder(d).DecodeFloat32()
	case Float64:
		return NewFixedDecoder(d).DecodeFloat64()
	case String:
		return NewBytesDecoder(d).DecodeString()
	case Bytes:
		return NewBytesDecoder(d).DecodeBytes()
	case MetaGuid:
		return d.DecodeGuid()
	default:
		return nil, &ParseError{Kind: ErrGrammar, Offset: d.pos, Msg: fmt.Sprintf("%v is not a scalar type", t)}
	}
}
