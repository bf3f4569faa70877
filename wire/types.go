package wire

import "fmt"

// ===== TAGWIRE WIRE FORMAT TYPES =====

// WireDataType is the one-byte tag that precedes every encoded value and tells
// the reader how the following bytes are laid out.
type WireDataType byte

const (
	Invalid WireDataType = 0 // sentinel for absent collections, never legal on the wire

	// Scalars
	Null      WireDataType = 1
	VarInt    WireDataType = 2  // zig-zag varint, 64-bit
	VarInt128 WireDataType = 3  // zig-zag varint, 128-bit
	F32       WireDataType = 4  // Q16.16 fixed point
	F32Vec2   WireDataType = 5  // 2 x Q16.16
	F32Vec3   WireDataType = 6  // 3 x Q16.16
	F64       WireDataType = 7  // Q32.32 fixed point
	F64Vec2   WireDataType = 8  // 2 x Q32.32
	F64Vec3   WireDataType = 9  // 3 x Q32.32
	Float32   WireDataType = 10 // IEEE-754 binary32
	Float64   WireDataType = 11 // IEEE-754 binary64
	String    WireDataType = 12
	Bytes     WireDataType = 13
	MetaGuid  WireDataType = 14

	// Structural containers
	Struct             WireDataType = 20
	NullableStruct     WireDataType = 21
	AbstractStruct     WireDataType = 22
	ValueCollection    WireDataType = 23
	KeyValueCollection WireDataType = 24

	// Nullable wrappers of the scalars above: NullableX == X + nullableOffset.
	NullableVarInt    WireDataType = 30
	NullableVarInt128 WireDataType = 31
	NullableF32       WireDataType = 32
	NullableF32Vec2   WireDataType = 33
	NullableF32Vec3   WireDataType = 34
	NullableF64       WireDataType = 35
	NullableF64Vec2   WireDataType = 36
	NullableF64Vec3   WireDataType = 37
	NullableFloat32   WireDataType = 38
	NullableFloat64   WireDataType = 39
	NullableString    WireDataType = 40
	NullableBytes     WireDataType = 41
	NullableMetaGuid  WireDataType = 42

	// EndStruct terminates a struct member list. It is a stream marker, not a value type.
	EndStruct WireDataType = 127
)

const nullableOffset = NullableVarInt - VarInt

// Not-null flag bytes used by nullable primitives and NullableStruct.
const (
	FlagNull    byte = 0x00
	FlagNotNull byte = 0xFF
)

var typeNames = map[WireDataType]string{
	Invalid:            "Invalid",
	Null:               "Null",
	VarInt:             "VarInt",
	VarInt128:          "VarInt128",
	F32:                "F32",
	F32Vec2:            "F32Vec2",
	F32Vec3:            "F32Vec3",
	F64:                "F64",
	F64Vec2:            "F64Vec2",
	F64Vec3:            "F64Vec3",
	Float32:            "Float32",
	Float64:            "Float64",
	String:             "String",
	Bytes:              "Bytes",
	MetaGuid:           "MetaGuid",
	Struct:             "Struct",
	NullableStruct:     "NullableStruct",
	AbstractStruct:     "AbstractStruct",
	ValueCollection:    "ValueCollection",
	KeyValueCollection: "KeyValueCollection",
	EndStruct:          "EndStruct",
}

// String returns the name of the tag, e.g. "NullableVarInt".
func (t WireDataType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	if t.IsNullable() {
		return "Nullable" + UnwrapNullable(t).String()
	}
	return fmt.Sprintf("WireDataType(%d)", byte(t))
}

// IsScalar reports whether t is a non-nullable scalar tag (Null included).
func (t WireDataType) IsScalar() bool {
	return t >= Null && t <= MetaGuid
}

// IsNullable reports whether t is one of the nullable scalar wrappers.
func (t WireDataType) IsNullable() bool {
	return t >= NullableVarInt && t <= NullableMetaGuid
}

// IsStructural reports whether t is a struct or collection container tag.
func (t WireDataType) IsStructural() bool {
	return t >= Struct && t <= KeyValueCollection
}

// IsValueType reports whether t may legally start a value.
func (t WireDataType) IsValueType() bool {
	return t.IsScalar() || t.IsNullable() || t.IsStructural()
}

// UnwrapNullable maps a nullable scalar tag to its underlying scalar tag. Any
// other tag is returned unchanged.
func UnwrapNullable(t WireDataType) WireDataType {
	if t.IsNullable() {
		return t - nullableOffset
	}
	return t
}

// NullableOf maps a scalar tag to its nullable wrapper. Null and non-scalar tags
// have no wrapper and are reported with ok == false.
func NullableOf(t WireDataType) (WireDataType, bool) {
	if t > Null && t.IsScalar() {
		return t + nullableOffset, true
	}
	return Invalid, false
}

// fixedSize returns the payload size of fixed-width scalars, or -1.
func fixedSize(t WireDataType) int {
	switch t {
	case Null:
		return 0
	case F32, Float32:
		return 4
	case F32Vec2, F64, Float64:
		return 8
	case F32Vec3:
		return 12
	case F64Vec2, MetaGuid:
		return 16
	case F64Vec3:
		return 24
	default:
		return -1
	}
}

// minPayloadSize is the smallest number of bytes a payload of type t can occupy.
func minPayloadSize(t WireDataType) int {
	if n := fixedSize(t); n >= 0 {
		return n
	}
	return 1
}
