package wire

import "testing"

func TestUnwrapNullable(t *testing.T) {
	tests := []struct {
		in   WireDataType
		want WireDataType
	}{
		{NullableVarInt, VarInt},
		{NullableVarInt128, VarInt128},
		{NullableF32Vec3, F32Vec3},
		{NullableF64, F64},
		{NullableFloat64, Float64},
		{NullableString, String},
		{NullableMetaGuid, MetaGuid},
		{VarInt, VarInt},
		{Struct, Struct},
		{EndStruct, EndStruct},
	}
	for _, tt := range tests {
		t.Run(tt.in.String(), func(t *testing.T) {
			if got := UnwrapNullable(tt.in); got != tt.want {
				t.Errorf("UnwrapNullable(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNullableOf(t *testing.T) {
	for s := VarInt; s <= MetaGuid; s++ {
		nt, ok := NullableOf(s)
		if !ok {
			t.Fatalf("NullableOf(%v) reported no wrapper", s)
		}
		if !nt.IsNullable() || UnwrapNullable(nt) != s {
			t.Errorf("NullableOf(%v) = %v does not unwrap back", s, nt)
		}
	}
	for _, s := range []WireDataType{Null, Struct, ValueCollection, EndStruct, Invalid} {
		if _, ok := NullableOf(s); ok {
			t.Errorf("NullableOf(%v) should have no wrapper", s)
		}
	}
}

func TestWireDataTypeNames(t *testing.T) {
	for typ, want := range map[WireDataType]string{
		VarInt:             "VarInt",
		F32Vec2:            "F32Vec2",
		KeyValueCollection: "KeyValueCollection",
		NullableVarInt:     "NullableVarInt",
		NullableBytes:      "NullableBytes",
		EndStruct:          "EndStruct",
	} {
		if got := typ.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", byte(typ), got, want)
		}
	}
	if got := WireDataType(99).String(); got != "WireDataType(99)" {
		t.Errorf("unexpected name for unknown tag: %s", got)
	}
}

func TestValueTypeClassification(t *testing.T) {
	if Invalid.IsValueType() || EndStruct.IsValueType() || WireDataType(15).IsValueType() {
		t.Error("sentinels and gaps must not be value types")
	}
	for _, typ := range []WireDataType{Null, MetaGuid, Struct, KeyValueCollection, NullableVarInt, NullableMetaGuid} {
		if !typ.IsValueType() {
			t.Errorf("%v should be a value type", typ)
		}
	}
}
