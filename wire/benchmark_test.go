package wire

import (
	"fmt"
	"testing"
)

var (
	// Simple payload (scalars only)
	simplePayload []byte

	// Complex payload (nested structs, maps, collections, abstracts)
	complexPayload []byte
)

func init() {
	var err error
	simplePayload, err = Encode(StructOf(
		M(1, VarIntValue(123)),
		M(2, StringValue("John Doe")),
		M(3, StringValue("john@example.com")),
		M(4, VarIntValue(30)),
		M(5, VarIntValue(1)),
	))
	if err != nil {
		panic("failed to build simple payload: " + err.Error())
	}

	complexPayload, err = Encode(createComplexValue())
	if err != nil {
		panic("failed to build complex payload: " + err.Error())
	}
}

func createComplexValue() Value {
	tags := make([]Value, 0, 10)
	for i := 0; i < 10; i++ {
		tags = append(tags, StringValue(fmt.Sprintf("tag-%d", i)))
	}

	meta := make([]Entry, 0, 20)
	for i := 0; i < 20; i++ {
		meta = append(meta, Entry{
			Key:   StringValue(fmt.Sprintf("key-%d", i)),
			Value: Nullable(VarIntValue(int64(i * 1000))),
		})
	}

	posts := make([]Value, 0, 25)
	for i := 0; i < 25; i++ {
		posts = append(posts, StructOf(
			M(1, VarIntValue(int64(i))),
			M(2, StringValue("a post title that is long enough to matter")),
			M(3, F32Vec3Value(Fixed32Vec3{X: Fixed32FromFloat(float64(i)), Y: 1, Z: -1})),
			M(4, AbstractOf(2, M(1, Float64Value(float64(i)/3)))),
			M(5, NullOf(NullableStruct)),
		))
	}

	return StructOf(
		M(1, VarIntValue(123)),
		M(2, StringValue("John Doe")),
		M(3, CollectionOf(String, tags...)),
		M(4, KeyValueCollectionOf(String, NullableVarInt, meta...)),
		M(5, CollectionOf(Struct, posts...)),
		M(6, NullableStructOf(M(1, BytesValue(make([]byte, 256))))),
	)
}

func BenchmarkSimple_Parse(b *testing.B) {
	b.ReportAllocs()
	b.SetBytes(int64(len(simplePayload)))
	for i := 0; i < b.N; i++ {
		if err := Parse(simplePayload, NopHandler{}); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSimple_Decode(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := Decode(simplePayload); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkComplex_Parse(b *testing.B) {
	b.ReportAllocs()
	b.SetBytes(int64(len(complexPayload)))
	p := NewParser(complexPayload, DefaultConfig())
	for i := 0; i < b.N; i++ {
		p.Reset(complexPayload)
		if err := p.Parse(NopHandler{}); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkComplex_Decode(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := Decode(complexPayload); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkComplex_Encode(b *testing.B) {
	v := createComplexValue()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := Encode(v); err != nil {
			b.Fatal(err)
		}
	}
}
