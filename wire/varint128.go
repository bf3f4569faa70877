package wire

import (
	"math/big"
	"math/bits"
)

// Int128 is a two's complement signed 128-bit integer.
type Int128 struct {
	Hi uint64
	Lo uint64
}

// Int128FromInt64 sign-extends v.
func Int128FromInt64(v int64) Int128 {
	return Int128{Hi: uint64(v >> 63), Lo: uint64(v)}
}

// IsNegative reports whether the sign bit is set.
func (x Int128) IsNegative() bool {
	return x.Hi>>63 == 1
}

// Big converts x to a big.Int.
func (x Int128) Big() *big.Int {
	hi := new(big.Int).SetUint64(x.Hi)
	if x.IsNegative() {
		hi.SetInt64(int64(x.Hi))
	}
	hi.Lsh(hi, 64)
	return hi.Add(hi, new(big.Int).SetUint64(x.Lo))
}

// String formats x in base 10.
func (x Int128) String() string {
	return x.Big().String()
}

// zigzag maps signed to unsigned so that small magnitudes stay short.
func (x Int128) zigzag() (hi, lo uint64) {
	sign := uint64(int64(x.Hi) >> 63)
	hi = (x.Hi<<1 | x.Lo>>63) ^ sign
	lo = (x.Lo << 1) ^ sign
	return hi, lo
}

func unzigzag128(hi, lo uint64) Int128 {
	sign := -(lo & 1)
	return Int128{
		Hi: (hi >> 1) ^ sign,
		Lo: (lo>>1 | hi<<63) ^ sign,
	}
}

const maxVarint128Len = 19

// DecodeVarInt128 decodes a zig-zag encoded signed 128-bit varint.
func (vd *VarintDecoder) DecodeVarInt128() (Int128, error) {
	d := vd.decoder
	start := d.pos
	var hi, lo uint64
	for i := 0; i < maxVarint128Len; i++ {
		if d.pos >= len(d.buf) {
			return Int128{}, &ParseError{Kind: ErrTruncated, Offset: d.pos, Msg: "varint128"}
		}
		b := d.buf[d.pos]
		d.pos++

		chunk := uint64(b & 0x7F)
		shift := uint(7 * i)
		if i == maxVarint128Len-1 && (b&0x80 != 0 || chunk > 0x03) {
			return Int128{}, &ParseError{Kind: ErrGrammar, Offset: start, Msg: "varint128 overflows 128 bits"}
		}
		switch {
		case shift < 64:
			lo |= chunk << shift
			if shift > 57 {
				hi |= chunk >> (64 - shift)
			}
		default:
			hi |= chunk << (shift - 64)
		}
		if b&0x80 == 0 {
			return unzigzag128(hi, lo), nil
		}
	}
	return Int128{}, &ParseError{Kind: ErrGrammar, Offset: start, Msg: "varint128 too long"}
}

// EncodeVarInt128 encodes x as a zig-zag 128-bit varint.
func (ve *VarintEncoder) EncodeVarInt128(x Int128) {
	hi, lo := x.zigzag()
	for hi != 0 || lo >= 0x80 {
		ve.encoder.buf = append(ve.encoder.buf, byte(lo)|0x80)
		lo = lo>>7 | hi<<57
		hi >>= 7
	}
	ve.encoder.buf = append(ve.encoder.buf, byte(lo))
}

// VarInt128Size returns the encoded size of x.
func VarInt128Size(x Int128) int {
	hi, lo := x.zigzag()
	n := 128 - bits.LeadingZeros64(hi)
	if hi == 0 {
		n = 64 - bits.LeadingZeros64(lo)
	}
	if n == 0 {
		return 1
	}
	return (n + 6) / 7
}
