package wire

import (
	"github.com/google/uuid"
)

// Value is a typed value tree: the input of the structural encoder and the
// output of the tree materializer.
//
// Which fields are meaningful depends on Type:
//   - scalars: Scalar holds the Go payload (nil for Null)
//   - nullable scalars: Null, and Scalar when not null
//   - Struct: Members
//   - NullableStruct: Null, and Members when not null
//   - AbstractStruct: TypeCode (0 means null) and Members
//   - ValueCollection: Null (absent), ElemType and Elements
//   - KeyValueCollection: Null (absent), KeyType, ElemType and Entries
type Value struct {
	Type     WireDataType
	Scalar   interface{}
	Null     bool
	TypeCode int32
	Members  []Member
	KeyType  WireDataType
	ElemType WireDataType
	Elements []Value
	Entries  []Entry
}

// Member is one (tagId, value) pair of a struct body. The member's wire type
// is Value.Type.
type Member struct {
	TagID int32
	Value Value
}

// Entry is one key/value pair of a KeyValueCollection.
type Entry struct {
	Key   Value
	Value Value
}

// NullValue returns the Null scalar.
func NullValue() Value { return Value{Type: Null} }

// VarIntValue wraps a signed 64-bit integer.
func VarIntValue(v int64) Value { return Value{Type: VarInt, Scalar: v} }

// VarInt128Value wraps a signed 128-bit integer.
func VarInt128Value(v Int128) Value { return Value{Type: VarInt128, Scalar: v} }

// F32Value wraps a Q16.16 fixed-point number.
func F32Value(v Fixed32) Value { return Value{Type: F32, Scalar: v} }

// F32Vec2Value wraps a Q16.16 2D vector.
func F32Vec2Value(v Fixed32Vec2) Value { return Value{Type: F32Vec2, Scalar: v} }

// F32Vec3Value wraps a Q16.16 3D vector.
func F32Vec3Value(v Fixed32Vec3) Value { return Value{Type: F32Vec3, Scalar: v} }

// F64Value wraps a Q32.32 fixed-point number.
func F64Value(v Fixed64) Value { return Value{Type: F64, Scalar: v} }

// F64Vec2Value wraps a Q32.32 2D vector.
func F64Vec2Value(v Fixed64Vec2) Value { return Value{Type: F64Vec2, Scalar: v} }

// F64Vec3Value wraps a Q32.32 3D vector.
func F64Vec3Value(v Fixed64Vec3) Value { return Value{Type: F64Vec3, Scalar: v} }

// Float32Value wraps an IEEE-754 binary32.
func Float32Value(v float32) Value { return Value{Type: Float32, Scalar: v} }

// Float64Value wraps an IEEE-754 binary64.
func Float64Value(v float64) Value { return Value{Type: Float64, Scalar: v} }

// StringValue wraps a string.
func StringValue(v string) Value { return Value{Type: String, Scalar: v} }

// BytesValue wraps a byte blob.
func BytesValue(v []byte) Value { return Value{Type: Bytes, Scalar: v} }

// GuidValue wraps a MetaGuid.
func GuidValue(v uuid.UUID) Value { return Value{Type: MetaGuid, Scalar: v} }

// Nullable converts a non-null scalar value into its nullable wrapper.
// Values that have no wrapper are returned unchanged.
func Nullable(v Value) Value {
	if nt, ok := NullableOf(v.Type); ok {
		v.Type = nt
	}
	return v
}

// NullOf returns the null value of a nullable scalar type, NullableStruct or
// AbstractStruct, or an absent collection of the given type.
func NullOf(t WireDataType) Value {
	if t == AbstractStruct {
		return Value{Type: AbstractStruct}
	}
	return Value{Type: t, Null: true}
}

// StructOf builds a Struct from members.
func StructOf(members ...Member) Value {
	return Value{Type: Struct, Members: members}
}

// NullableStructOf builds a non-null NullableStruct from members.
func NullableStructOf(members ...Member) Value {
	return Value{Type: NullableStruct, Members: members}
}

// AbstractOf builds an AbstractStruct with a positive type code.
func AbstractOf(typeCode int32, members ...Member) Value {
	return Value{Type: AbstractStruct, TypeCode: typeCode, Members: members}
}

// M is shorthand for a struct member.
func M(tagID int32, v Value) Member {
	return Member{TagID: tagID, Value: v}
}

// CollectionOf builds a present ValueCollection. The elements must all be of
// type elemType; an empty call yields a present, empty collection.
func CollectionOf(elemType WireDataType, elems ...Value) Value {
	return Value{Type: ValueCollection, ElemType: elemType, Elements: elems}
}

// KeyValueCollectionOf builds a present KeyValueCollection.
func KeyValueCollectionOf(keyType, valueType WireDataType, entries ...Entry) Value {
	return Value{Type: KeyValueCollection, KeyType: keyType, ElemType: valueType, Entries: entries}
}

// IsNull reports whether v is a logical null of its type.
func (v Value) IsNull() bool {
	switch {
	case v.Type == Null:
		return true
	case v.Type == AbstractStruct:
		return v.TypeCode == 0
	default:
		return v.Null
	}
}

// Member returns the member with the given tag id.
func (v Value) Member(tagID int32) (Value, bool) {
	for _, m := range v.Members {
		if m.TagID == tagID {
			return m.Value, true
		}
	}
	return Value{}, false
}
