package wire

import (
	"encoding/binary"
	"math"
)

// Fixed32 is a Q16.16 fixed-point number, the payload of F32.
type Fixed32 int32

// Fixed64 is a Q32.32 fixed-point number, the payload of F64.
type Fixed64 int64

// Fixed32Vec2 is the payload of F32Vec2.
type Fixed32Vec2 struct{ X, Y Fixed32 }

// Fixed32Vec3 is the payload of F32Vec3.
type Fixed32Vec3 struct{ X, Y, Z Fixed32 }

// Fixed64Vec2 is the payload of F64Vec2.
type Fixed64Vec2 struct{ X, Y Fixed64 }

// Fixed64Vec3 is the payload of F64Vec3.
type Fixed64Vec3 struct{ X, Y, Z Fixed64 }

// Fixed32FromFloat rounds f to the nearest representable Q16.16 value.
func Fixed32FromFloat(f float64) Fixed32 {
	return Fixed32(math.Round(f * (1 << 16)))
}

// Float returns the value as a float64.
func (f Fixed32) Float() float64 {
	return float64(f) / (1 << 16)
}

// Fixed64FromFloat rounds f to the nearest representable Q32.32 value.
func Fixed64FromFloat(f float64) Fixed64 {
	return Fixed64(math.Round(f * (1 << 32)))
}

// Float returns the value as a float64.
func (f Fixed64) Float() float64 {
	return float64(f) / (1 << 32)
}

// FixedDecoder handles fixed-width decoding operations
type FixedDecoder struct {
	decoder *Decoder
}

// FixedEncoder handles fixed-width encoding operations
type FixedEncoder struct {
	encoder *Encoder
}

// NewFixedDecoder creates a new fixed decoder
func NewFixedDecoder(d *Decoder) *FixedDecoder {
	return &FixedDecoder{decoder: d}
}

// NewFixedEncoder creates a new fixed encoder
func NewFixedEncoder(e *Encoder) *FixedEncoder {
	return &FixedEncoder{encoder: e}
}

// DECODER METHODS

// DecodeFixed32 decodes a 32-bit little-endian value
func (fd *FixedDecoder) DecodeFixed32() (uint32, error) {
	b, err := fd.decoder.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// DecodeFixed64 decodes a 64-bit little-endian value
func (fd *FixedDecoder) DecodeFixed64() (uint64, error) {
	b, err := fd.decoder.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// DecodeF32 decodes a Q16.16 fixed-point value
func (fd *FixedDecoder) DecodeF32() (Fixed32, error) {
	v, err := fd.DecodeFixed32()
	return Fixed32(int32(v)), err
}

// DecodeF32Vec2 decodes two Q16.16 components
func (fd *FixedDecoder) DecodeF32Vec2() (Fixed32Vec2, error) {
	var v Fixed32Vec2
	var err error
	if v.X, err = fd.DecodeF32(); err != nil {
		return v, err
	}
	v.Y, err = fd.DecodeF32()
	return v, err
}

// DecodeF32Vec3 decodes three Q16.16 components
func (fd *FixedDecoder) DecodeF32Vec3() (Fixed32Vec3, error) {
	var v Fixed32Vec3
	var err error
	if v.X, err = fd.DecodeF32(); err != nil {
		return v, err
	}
	if v.Y, err = fd.DecodeF32(); err != nil {
		return v, err
	}
	v.Z, err = fd.DecodeF32()
	return v, err
}

// DecodeF64 decodes a Q32.32 fixed-point value
func (fd *FixedDecoder) DecodeF64() (Fixed64, error) {
	v, err := fd.DecodeFixed64()
	return Fixed64(int64(v)), err
}

// DecodeF64Vec2 decodes two Q32.32 components
func (fd *FixedDecoder) DecodeF64Vec2() (Fixed64Vec2, error) {
	var v Fixed64Vec2
	var err error
	if v.X, err = fd.DecodeF64(); err != nil {
		return v, err
	}
	v.Y, err = fd.DecodeF64()
	return v, err
}

// DecodeF64Vec3 decodes three Q32.32 components
func (fd *FixedDecoder) DecodeF64Vec3() (Fixed64Vec3, error) {
	var v Fixed64Vec3
	var err error
	if v.X, err = fd.DecodeF64(); err != nil {
		return v, err
	}
	if v.Y, err = fd.DecodeF64(); err != nil {
		return v, err
	}
	v.Z, err = fd.DecodeF64()
	return v, err
}

// DecodeFloat32 decodes an IEEE-754 binary32
func (fd *FixedDecoder) DecodeFloat32() (float32, error) {
	v, err := fd.DecodeFixed32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// DecodeFloat64 decodes an IEEE-754 binary64
func (fd *FixedDecoder) DecodeFloat64() (float64, error) {
	v, err := fd.DecodeFixed64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// ENCODER METHODS

// EncodeFixed32 encodes a 32-bit little-endian value
func (fe *FixedEncoder) EncodeFixed32(v uint32) {
	fe.encoder.buf = binary.LittleEndian.AppendUint32(fe.encoder.buf, v)
}

// EncodeFixed64 encodes a 64-bit little-endian value
func (fe *FixedEncoder) EncodeFixed64(v uint64) {
	fe.encoder.buf = binary.LittleEndian.AppendUint64(fe.encoder.buf, v)
}

// EncodeF32 encodes a Q16.16 fixed-point value
func (fe *FixedEncoder) EncodeF32(v Fixed32) {
	fe.EncodeFixed32(uint32(v))
}

// EncodeF32Vec2 encodes two Q16.16 components
func (fe *FixedEncoder) EncodeF32Vec2(v Fixed32Vec2) {
	fe.EncodeF32(v.X)
	fe.EncodeF32(v.Y)
}

// EncodeF32Vec3 encodes three Q16.16 components
func (fe *FixedEncoder) EncodeF32Vec3(v Fixed32Vec3) {
	fe.EncodeF32(v.X)
	fe.EncodeF32(v.Y)
	fe.EncodeF32(v.Z)
}

// EncodeF64 encodes a Q32.32 fixed-point value
func (fe *FixedEncoder) EncodeF64(v Fixed64) {
	fe.EncodeFixed64(uint64(v))
}

// EncodeF64Vec2 encodes two Q32.32 components
func (fe *FixedEncoder) EncodeF64Vec2(v Fixed64Vec2) {
	fe.EncodeF64(v.X)
	fe.EncodeF64(v.Y)
}

// EncodeF64Vec3 encodes three Q32.32 components
func (fe *FixedEncoder) EncodeF64Vec3(v Fixed64Vec3) {
	fe.EncodeF64(v.X)
	fe.EncodeF64(v.Y)
	fe.EncodeF64(v.Z)
}

// EncodeFloat32 encodes an IEEE-754 binary32
func (fe *FixedEncoder) EncodeFloat32(v float32) {
	fe.EncodeFixed32(math.Float32bits(v))
}

// EncodeFloat64 encodes an IEEE-754 binary64
func (fe *FixedEncoder) EncodeFloat64(v float64) {
	fe.EncodeFixed64(math.Float64bits(v))
}
