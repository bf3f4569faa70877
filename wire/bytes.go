package wire

import (
	"fmt"
	"slices"
)

// BytesDecoder handles length-prefixed String and Bytes decoding operations
type BytesDecoder struct {
	decoder *Decoder
}

// BytesEncoder handles length-prefixed String and Bytes encoding operations
type BytesEncoder struct {
	encoder *Encoder
}

// NewBytesDecoder creates a new bytes decoder
func NewBytesDecoder(d *Decoder) *BytesDecoder {
	return &BytesDecoder{decoder: d}
}

// NewBytesEncoder creates a new bytes encoder
func NewBytesEncoder(e *Encoder) *BytesEncoder {
	return &BytesEncoder{encoder: e}
}

// DECODER METHODS

// decodeLength reads a length prefix and checks it against the configured
// ceiling and the remaining input. Nothing is allocated here.
func (bd *BytesDecoder) decodeLength() (int, error) {
	d := bd.decoder
	start := d.pos
	length, err := NewVarintDecoder(d).DecodeVarInt()
	if err != nil {
		return 0, err
	}
	if length < 0 {
		return 0, &ParseError{Kind: ErrGrammar, Offset: start, Msg: fmt.Sprintf("negative length %d", length)}
	}
	if length > int64(d.cfg.MaxBytesLength) {
		return 0, &ParseError{Kind: ErrSizeLimit, Offset: start, Msg: fmt.Sprintf("length %d exceeds maximum %d", length, d.cfg.MaxBytesLength)}
	}
	if length > int64(d.Remaining()) {
		return 0, d.truncated(fmt.Sprintf("bytes truncated: need %d bytes, have %d", length, d.Remaining()))
	}
	return int(length), nil
}

// DecodeBytes decodes a length-prefixed byte blob. The result is a copy.
func (bd *BytesDecoder) DecodeBytes() ([]byte, error) {
	raw, err := bd.DecodeRawBytes()
	if err != nil {
		return nil, err
	}
	data := make([]byte, len(raw))
	copy(data, raw)
	return data, nil
}

// DecodeRawBytes decodes bytes without copying (shares buffer)
func (bd *BytesDecoder) DecodeRawBytes() ([]byte, error) {
	n, err := bd.decodeLength()
	if err != nil {
		return nil, err
	}
	return bd.decoder.take(n)
}

// DecodeString decodes a length-prefixed string
func (bd *BytesDecoder) DecodeString() (string, error) {
	raw, err := bd.DecodeRawBytes()
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// ENCODER METHODS

// EncodeBytes encodes a byte array as length-prefixed
func (be *BytesEncoder) EncodeBytes(data []byte) {
	be.encoder.buf = slices.Grow(be.encoder.buf, BytesSize(data))
	NewVarintEncoder(be.encoder).EncodeVarInt(int64(len(data)))
	be.encoder.buf = append(be.encoder.buf, data...)
}

// EncodeString encodes a string as length-prefixed bytes
func (be *BytesEncoder) EncodeString(s string) {
	be.encoder.buf = slices.Grow(be.encoder.buf, StringSize(s))
	NewVarintEncoder(be.encoder).EncodeVarInt(int64(len(s)))
	be.encoder.buf = append(be.encoder.buf, s...)
}

// UTILITY FUNCTIONS

// BytesSize returns the size needed to encode the given bytes
func BytesSize(data []byte) int {
	return VarIntSize(int64(len(data))) + len(data)
}

// StringSize returns the size needed to encode the given string
func StringSize(s string) int {
	return VarIntSize(int64(len(s))) + len(s)
}
