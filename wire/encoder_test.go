package wire

import (
	"errors"
	"strings"
	"testing"

	"github.com/maxatome/go-testdeep/td"
)

func TestEncode_ExactBytes(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		want  []byte
	}{
		{
			name:  "struct_with_string_and_varint",
			value: StructOf(M(1, StringValue("a")), M(99, VarIntValue(42))),
			want:  []byte{0x14, 0x0C, 0x02, 0x02, 0x61, 0x02, 0xC6, 0x01, 0x54, 0x7F},
		},
		{
			name:  "empty_struct",
			value: StructOf(),
			want:  []byte{0x14, 0x7F},
		},
		{
			name:  "null_scalar",
			value: NullValue(),
			want:  []byte{0x01},
		},
		{
			name:  "nullable_string_null",
			value: NullOf(NullableString),
			want:  []byte{0x28, 0x00},
		},
		{
			name:  "nullable_string_present",
			value: Nullable(StringValue("a")),
			want:  []byte{0x28, 0xFF, 0x02, 0x61},
		},
		{
			name:  "nullable_struct_null",
			value: NullOf(NullableStruct),
			want:  []byte{0x15, 0x00},
		},
		{
			name:  "nullable_struct_present",
			value: NullableStructOf(),
			want:  []byte{0x15, 0xFF, 0x7F},
		},
		{
			name:  "abstract_null",
			value: NullOf(AbstractStruct),
			want:  []byte{0x16, 0x00},
		},
		{
			name:  "abstract_present",
			value: AbstractOf(3, M(0, VarIntValue(-1))),
			want:  []byte{0x16, 0x06, 0x02, 0x00, 0x01, 0x7F},
		},
		{
			name:  "absent_collection",
			value: NullOf(ValueCollection),
			want:  []byte{0x17, 0x01},
		},
		{
			name:  "empty_collection",
			value: CollectionOf(VarInt),
			want:  []byte{0x17, 0x00, 0x02},
		},
		{
			name:  "collection_elements_are_untagged",
			value: CollectionOf(VarInt, VarIntValue(1), VarIntValue(2)),
			want:  []byte{0x17, 0x04, 0x02, 0x02, 0x04},
		},
		{
			name:  "absent_key_value_collection",
			value: NullOf(KeyValueCollection),
			want:  []byte{0x18, 0x01},
		},
		{
			name: "key_value_collection",
			value: KeyValueCollectionOf(String, VarInt,
				Entry{Key: StringValue("a"), Value: VarIntValue(1)}),
			want: []byte{0x18, 0x02, 0x0C, 0x02, 0x02, 0x61, 0x02},
		},
		{
			name:  "collection_of_nullable",
			value: CollectionOf(NullableVarInt, NullOf(NullableVarInt), Nullable(VarIntValue(0))),
			want:  []byte{0x17, 0x04, 0x1E, 0x00, 0xFF, 0x00},
		},
		{
			name:  "varint_accepts_go_ints",
			value: Value{Type: VarInt, Scalar: int32(-3)},
			want:  []byte{0x02, 0x05},
		},
		{
			name:  "varint_accepts_bool",
			value: Value{Type: VarInt, Scalar: true},
			want:  []byte{0x02, 0x02},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.value)
			td.CmpNoError(t, err)
			td.Cmp(t, got, tt.want)
		})
	}
}

func TestEncode_Deterministic(t *testing.T) {
	v := StructOf(
		M(1, KeyValueCollectionOf(String, VarInt,
			Entry{Key: StringValue("z"), Value: VarIntValue(1)},
			Entry{Key: StringValue("a"), Value: VarIntValue(2)})),
		M(2, AbstractOf(1, M(1, Float64Value(0.5)))),
	)
	first, err := Encode(v)
	td.CmpNoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Encode(v)
		td.CmpNoError(t, err)
		td.Cmp(t, again, first)
	}
}

func TestEncode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		value   Value
		path    string
		errText string
	}{
		{
			name:    "end_struct_is_not_a_value",
			value:   Value{Type: EndStruct},
			errText: "cannot start a value",
		},
		{
			name:    "scalar_type_mismatch",
			value:   Value{Type: String, Scalar: 42},
			errText: "String payload must not be int",
		},
		{
			name:    "negative_tag_id",
			value:   StructOf(M(-1, VarIntValue(1))),
			path:    "-1",
			errText: "negative tag id",
		},
		{
			name:    "invalid_member_type",
			value:   StructOf(M(4, Value{Type: Invalid})),
			path:    "4",
			errText: "cannot be a member type",
		},
		{
			name:    "null_abstract_with_members",
			value:   Value{Type: AbstractStruct, Members: []Member{M(1, VarIntValue(1))}},
			errText: "null abstract value",
		},
		{
			name:    "negative_abstract_code",
			value:   AbstractOf(-2),
			errText: "negative abstract type code",
		},
		{
			name: "element_type_mismatch_reports_path",
			value: StructOf(M(5, CollectionOf(VarInt,
				VarIntValue(1), VarIntValue(2), StringValue("x")))),
			path:    "5[2]",
			errText: "element of type String in collection of VarInt",
		},
		{
			name:    "absent_collection_with_elements",
			value:   Value{Type: ValueCollection, Null: true, ElemType: VarInt, Elements: []Value{VarIntValue(1)}},
			errText: "absent collection",
		},
		{
			name:    "invalid_collection_element_type",
			value:   CollectionOf(EndStruct),
			errText: "invalid element type",
		},
		{
			name:    "nested_member_path",
			value:   StructOf(M(3, StructOf(M(7, Nullable(Value{Type: VarInt, Scalar: "seven"}))))),
			path:    "3.7",
			errText: "VarInt payload must not be string",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(tt.value)
			td.CmpError(t, err)

			var ee *EncodeError
			td.CmpTrue(t, errors.As(err, &ee), "got %T", err)
			td.Cmp(t, FormatPath(ee.Path), tt.path)
			td.CmpTrue(t, strings.Contains(err.Error(), tt.errText), "error %q", err)
		})
	}
}

func nestedStructs(depth int) Value {
	v := StructOf()
	for i := 1; i < depth; i++ {
		v = StructOf(M(1, v))
	}
	return v
}

func TestEncode_DepthLimit(t *testing.T) {
	cfg := Config{MaxDepth: 3}
	data, err := EncodeWithConfig(nestedStructs(3), cfg)
	td.CmpNoError(t, err)
	_, err = DecodeWithConfig(data, cfg)
	td.CmpNoError(t, err)

	_, err = EncodeWithConfig(nestedStructs(4), cfg)
	td.CmpTrue(t, errors.Is(err, ErrTooDeep), "got %v", err)
	var ee *EncodeError
	td.CmpTrue(t, errors.As(err, &ee))
	td.Cmp(t, FormatPath(ee.Path), "1.1.1")

	// whatever Encode accepts, Decode accepts
	data, err = Encode(nestedStructs(DefaultMaxDepth))
	td.CmpNoError(t, err)
	_, err = Decode(data)
	td.CmpNoError(t, err)
	_, err = Encode(nestedStructs(DefaultMaxDepth + 1))
	td.CmpTrue(t, errors.Is(err, ErrTooDeep), "got %v", err)
}

func TestEncoder_Reset(t *testing.T) {
	e := NewEncoder()
	td.CmpNoError(t, e.EncodeValue(VarIntValue(1)))
	e.Reset()
	td.CmpNoError(t, e.EncodeValue(NullValue()))
	td.Cmp(t, e.Bytes(), []byte{0x01})
}
