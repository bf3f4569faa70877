package wire

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// VarintDecoder handles varint decoding operations
type VarintDecoder struct {
	decoder *Decoder
}

// VarintEncoder handles varint encoding operations
type VarintEncoder struct {
	encoder *Encoder
}

// NewVarintDecoder creates a new varint decoder
func NewVarintDecoder(d *Decoder) *VarintDecoder {
	return &VarintDecoder{decoder: d}
}

// NewVarintEncoder creates a new varint encoder
func NewVarintEncoder(e *Encoder) *VarintEncoder {
	return &VarintEncoder{encoder: e}
}

// DECODER METHODS

// DecodeUvarint decodes an unsigned LEB128 varint from the current position
func (vd *VarintDecoder) DecodeUvarint() (uint64, error) {
	d := vd.decoder
	v, n := protowire.ConsumeVarint(d.buf[d.pos:])
	if n < 0 {
		err := protowire.ParseError(n)
		if n == -1 { // truncated
			return 0, &ParseError{Kind: ErrTruncated, Offset: d.pos, Msg: "varint", Err: err}
		}
		return 0, &ParseError{Kind: ErrGrammar, Offset: d.pos, Msg: "varint", Err: err}
	}
	d.pos += n
	return v, nil
}

// DecodeVarInt decodes a zig-zag encoded signed 64-bit varint
func (vd *VarintDecoder) DecodeVarInt() (int64, error) {
	v, err := vd.DecodeUvarint()
	if err != nil {
		return 0, err
	}
	return protowire.DecodeZigZag(v), nil
}

// DecodeInt32 decodes a zig-zag varint that must fit in an int32. Counts, tag
// ids and abstract type codes are encoded this way.
func (vd *VarintDecoder) DecodeInt32() (int32, error) {
	start := vd.decoder.pos
	v, err := vd.DecodeVarInt()
	if err != nil {
		return 0, err
	}
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, &ParseError{Kind: ErrGrammar, Offset: start, Msg: fmt.Sprintf("varint %d overflows int32", v)}
	}
	return int32(v), nil
}

// ENCODER METHODS

// EncodeUvarint encodes a uint64 as an unsigned varint
func (ve *VarintEncoder) EncodeUvarint(v uint64) {
	ve.encoder.buf = protowire.AppendVarint(ve.encoder.buf, v)
}

// EncodeVarInt encodes an int64 as a zig-zag varint
func (ve *VarintEncoder) EncodeVarInt(v int64) {
	ve.EncodeUvarint(protowire.EncodeZigZag(v))
}

// EncodeInt32 encodes an int32 as a zig-zag varint
func (ve *VarintEncoder) EncodeInt32(v int32) {
	ve.EncodeVarInt(int64(v))
}

// UTILITY FUNCTIONS

// VarIntSize returns the number of bytes needed to encode v as a zig-zag varint
func VarIntSize(v int64) int {
	return protowire.SizeVarint(protowire.EncodeZigZag(v))
}
