package wire

import (
	"errors"
	"fmt"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/maxatome/go-testdeep/td"
)

// recorder logs every event it receives as a compact string.
type recorder struct {
	events  []string
	errs    []error
	failOn  string
	failErr error
	action  ErrorAction
}

func (r *recorder) add(format string, args ...interface{}) error {
	ev := fmt.Sprintf(format, args...)
	r.events = append(r.events, ev)
	if r.failOn != "" && ev == r.failOn {
		return r.failErr
	}
	return nil
}

func (r *recorder) OnBeginPrimitive(t WireDataType, v interface{}) error {
	return r.add("BeginPrimitive(%v, %v)", t, v)
}

func (r *recorder) OnEndPrimitive(t WireDataType, v interface{}) error {
	return r.add("EndPrimitive(%v, %v)", t, v)
}

func (r *recorder) OnBeginNullablePrimitive(t WireDataType, notNull bool) error {
	return r.add("BeginNullablePrimitive(%v, %v)", t, notNull)
}

func (r *recorder) OnEndNullablePrimitive(t WireDataType, notNull bool) error {
	return r.add("EndNullablePrimitive(%v, %v)", t, notNull)
}

func (r *recorder) OnBeginStruct() error { return r.add("BeginStruct") }
func (r *recorder) OnEndStruct() error { return r.add("EndStruct") }

func (r *recorder) OnBeginNullableStruct(notNull bool) error {
	return r.add("BeginNullableStruct(%v)", notNull)
}

func (r *recorder) OnEndNullableStruct(notNull bool) error {
	return r.add("EndNullableStruct(%v)", notNull)
}

func (r *recorder) OnBeginAbstractStruct(code int32) error {
	return r.add("BeginAbstractStruct(%d)", code)
}

func (r *recorder) OnEndAbstractStruct(code int32) error {
	return r.add("EndAbstractStruct(%d)", code)
}

func (r *recorder) OnBeginMember(t WireDataType, tagID int32) error {
	return r.add("BeginMember(%v, %d)", t, tagID)
}

func (r *recorder) OnEndMember(t WireDataType, tagID int32) error {
	return r.add("EndMember(%v, %d)", t, tagID)
}

func (r *recorder) OnBeginValueCollection(count int32, elemType WireDataType) error {
	return r.add("BeginValueCollection(%d, %v)", count, elemType)
}

func (r *recorder) OnEndValueCollection(count int32, elemType WireDataType) error {
	return r.add("EndValueCollection(%d, %v)", count, elemType)
}

func (r *recorder) OnBeginKeyValueCollection(count int32, k, v WireDataType) error {
	return r.add("BeginKeyValueCollection(%d, %v, %v)", count, k, v)
}

func (r *recorder) OnEndKeyValueCollection(count int32, k, v WireDataType) error {
	return r.add("EndKeyValueCollection(%d, %v, %v)", count, k, v)
}

func (r *recorder) OnBeginElement(i int32) error { return r.add("BeginElement(%d)", i) }
func (r *recorder) OnEndElement(i int32) error { return r.add("EndElement(%d)", i) }
func (r *recorder) OnBeginKey(i int32) error { return r.add("BeginKey(%d)", i) }
func (r *recorder) OnEndKey(i int32) error { return r.add("EndKey(%d)", i) }
func (r *recorder) OnBeginValue(i int32) error { return r.add("BeginValue(%d)", i) }
func (r *recorder) OnEndValue(i int32) error { return r.add("EndValue(%d)", i) }
func (r *recorder) OnEndOfStream() error { return r.add("EndOfStream") }

func (r *recorder) OnError(err error) ErrorAction {
	r.errs = append(r.errs, err)
	return r.action
}

var _ Handler = (*recorder)(nil)

func TestParse_Events(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want []string
	}{
		{
			name: "unknown_members_are_surfaced",
			data: []byte{0x14, 0x0C, 0x02, 0x02, 0x61, 0x02, 0xC6, 0x01, 0x54, 0x7F},
			want: []string{
				"BeginStruct",
				"BeginMember(String, 1)",
				"BeginPrimitive(String, a)",
				"EndPrimitive(String, a)",
				"EndMember(String, 1)",
				"BeginMember(VarInt, 99)",
				"BeginPrimitive(VarInt, 42)",
				"EndPrimitive(VarInt, 42)",
				"EndMember(VarInt, 99)",
				"EndStruct",
				"EndOfStream",
			},
		},
		{
			name: "null_nullable_primitive",
			data: []byte{0x28, 0x00},
			want: []string{
				"BeginNullablePrimitive(NullableString, false)",
				"BeginPrimitive(String, <nil>)",
				"EndPrimitive(String, <nil>)",
				"EndNullablePrimitive(NullableString, false)",
				"EndOfStream",
			},
		},
		{
			name: "present_nullable_primitive",
			data: []byte{0x1E, 0xFF, 0x03},
			want: []string{
				"BeginNullablePrimitive(NullableVarInt, true)",
				"BeginPrimitive(VarInt, -2)",
				"EndPrimitive(VarInt, -2)",
				"EndNullablePrimitive(NullableVarInt, true)",
				"EndOfStream",
			},
		},
		{
			name: "null_nullable_struct",
			data: []byte{0x15, 0x00},
			want: []string{
				"BeginNullableStruct(false)",
				"EndNullableStruct(false)",
				"EndOfStream",
			},
		},
		{
			name: "null_abstract",
			data: []byte{0x16, 0x00},
			want: []string{
				"BeginAbstractStruct(0)",
				"EndAbstractStruct(0)",
				"EndOfStream",
			},
		},
		{
			name: "abstract_with_member",
			data: []byte{0x16, 0x04, 0x01, 0x00, 0x7F},
			want: []string{
				"BeginAbstractStruct(2)",
				"BeginMember(Null, 0)",
				"BeginPrimitive(Null, <nil>)",
				"EndPrimitive(Null, <nil>)",
				"EndMember(Null, 0)",
				"EndAbstractStruct(2)",
				"EndOfStream",
			},
		},
		{
			name: "absent_collection",
			data: []byte{0x17, 0x01},
			want: []string{
				"BeginValueCollection(-1, Invalid)",
				"EndValueCollection(-1, Invalid)",
				"EndOfStream",
			},
		},
		{
			name: "empty_collection",
			data: []byte{0x17, 0x00, 0x02},
			want: []string{
				"BeginValueCollection(0, VarInt)",
				"EndValueCollection(0, VarInt)",
				"EndOfStream",
			},
		},
		{
			name: "collection_elements",
			data: []byte{0x17, 0x04, 0x02, 0x02, 0x04},
			want: []string{
				"BeginValueCollection(2, VarInt)",
				"BeginElement(0)",
				"BeginPrimitive(VarInt, 1)",
				"EndPrimitive(VarInt, 1)",
				"EndElement(0)",
				"BeginElement(1)",
				"BeginPrimitive(VarInt, 2)",
				"EndPrimitive(VarInt, 2)",
				"EndElement(1)",
				"EndValueCollection(2, VarInt)",
				"EndOfStream",
			},
		},
		{
			name: "absent_key_value_collection",
			data: []byte{0x18, 0x01},
			want: []string{
				"BeginKeyValueCollection(-1, Invalid, Invalid)",
				"EndKeyValueCollection(-1, Invalid, Invalid)",
				"EndOfStream",
			},
		},
		{
			name: "key_value_collection",
			data: []byte{0x18, 0x02, 0x0C, 0x02, 0x02, 0x61, 0x02},
			want: []string{
				"BeginKeyValueCollection(1, String, VarInt)",
				"BeginElement(0)",
				"BeginKey(0)",
				"BeginPrimitive(String, a)",
				"EndPrimitive(String, a)",
				"EndKey(0)",
				"BeginValue(0)",
				"BeginPrimitive(VarInt, 1)",
				"EndPrimitive(VarInt, 1)",
				"EndValue(0)",
				"EndElement(0)",
				"EndKeyValueCollection(1, String, VarInt)",
				"EndOfStream",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &recorder{}
			if err := Parse(tt.data, r); err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, r.events); diff != "" {
				t.Errorf("events mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParse_Deterministic(t *testing.T) {
	data, err := Encode(StructOf(
		M(1, KeyValueCollectionOf(VarInt, NullableStruct,
			Entry{Key: VarIntValue(1), Value: NullOf(NullableStruct)},
			Entry{Key: VarIntValue(2), Value: NullableStructOf(M(1, StringValue("x")))})),
		M(2, CollectionOf(AbstractStruct, AbstractOf(1), NullOf(AbstractStruct))),
	))
	td.CmpNoError(t, err)

	first := &recorder{}
	td.CmpNoError(t, Parse(data, first))
	for i := 0; i < 5; i++ {
		again := &recorder{}
		td.CmpNoError(t, Parse(data, again))
		td.Cmp(t, again.events, first.events)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		cfg    Config
		kind   error
		path   string
		events []string
	}{
		{
			name: "empty_input",
			data: nil,
			kind: ErrTruncated,
		},
		{
			name: "invalid_top_level_tag",
			data: []byte{0x00},
			kind: ErrGrammar,
		},
		{
			name: "end_struct_at_top_level",
			data: []byte{0x7F},
			kind: ErrGrammar,
		},
		{
			name: "unassigned_tag",
			data: []byte{0x63},
			kind: ErrGrammar,
		},
		{
			name:   "invalid_nullable_flag_fires_nothing",
			data:   []byte{0x1E, 0x01, 0x02},
			kind:   ErrGrammar,
			events: []string{},
		},
		{
			name: "invalid_nullable_struct_flag",
			data: []byte{0x15, 0x7F},
			kind: ErrGrammar,
		},
		{
			name:   "negative_tag_id_fires_no_member",
			data:   []byte{0x14, 0x02, 0x01, 0x02, 0x7F},
			kind:   ErrGrammar,
			events: []string{"BeginStruct"},
		},
		{
			name:   "invalid_member_type",
			data:   []byte{0x14, 0x00, 0x02, 0x7F},
			kind:   ErrGrammar,
			events: []string{"BeginStruct"},
		},
		{
			name: "negative_abstract_code",
			data: []byte{0x16, 0x01},
			kind: ErrGrammar,
		},
		{
			name: "invalid_collection_count",
			data: []byte{0x17, 0x03, 0x02},
			kind: ErrGrammar,
		},
		{
			name: "invalid_collection_element_type",
			data: []byte{0x17, 0x02, 0x7F, 0x00},
			kind: ErrGrammar,
		},
		{
			name: "collection_count_above_limit",
			data: []byte{0x17, 0x06, 0x01},
			cfg:  Config{MaxCollectionLength: 2},
			kind: ErrSizeLimit,
		},
		{
			name: "collection_cannot_fit_remaining_input",
			data: []byte{0x17, 0xC8, 0x01, 0x07, 0x00, 0x00},
			kind: ErrTruncated,
		},
		{
			name: "trailing_bytes",
			data: []byte{0x01, 0x01},
			kind: ErrGrammar,
			events: []string{
				"BeginPrimitive(Null, <nil>)",
				"EndPrimitive(Null, <nil>)",
			},
		},
		{
			name: "truncated_member",
			data: []byte{0x14, 0x0C, 0x02},
			kind: ErrTruncated,
			path: "1",
			events: []string{
				"BeginStruct",
				"BeginMember(String, 1)",
			},
		},
		{
			name: "truncated_element_reports_path",
			data: []byte{0x14, 0x17, 0x06, 0x06, 0x0C, 0x02, 0x61, 0x02, 0x62, 0x0A, 0x63},
			kind: ErrTruncated,
			path: "3[2]",
		},
		{
			name: "string_above_limit",
			data: []byte{0x14, 0x0C, 0x02, 0x0A, 0x61, 0x62, 0x63, 0x64, 0x65, 0x7F},
			cfg:  Config{MaxBytesLength: 4},
			kind: ErrSizeLimit,
			path: "1",
		},
		{
			name: "too_deep",
			data: []byte{0x14, 0x14, 0x00, 0x14, 0x00, 0x14, 0x00, 0x7F, 0x7F, 0x7F, 0x7F},
			cfg:  Config{MaxDepth: 3},
			kind: ErrTooDeep,
			path: "0.0.0",
			events: []string{
				"BeginStruct",
				"BeginMember(Struct, 0)",
				"BeginStruct",
				"BeginMember(Struct, 0)",
				"BeginStruct",
				"BeginMember(Struct, 0)",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &recorder{}
			err := NewParser(tt.data, tt.cfg).Parse(r)
			if !errors.Is(err, tt.kind) {
				t.Fatalf("Parse() error = %v, want kind %v", err, tt.kind)
			}

			var perr *ParseError
			td.CmpTrue(t, errors.As(err, &perr))
			td.Cmp(t, FormatPath(perr.Path), tt.path)
			td.Cmp(t, r.errs, []error{err}, "OnError sees the returned error")
			if tt.events != nil {
				if diff := cmp.Diff(tt.events, r.events, cmpopts.EquateEmpty()); diff != "" {
					t.Errorf("events mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestParse_DepthAtLimit(t *testing.T) {
	data := []byte{0x14, 0x14, 0x00, 0x14, 0x00, 0x7F, 0x7F, 0x7F}
	td.CmpNoError(t, NewParser(data, Config{MaxDepth: 3}).Parse(NopHandler{}))
}

func TestParse_DeeplyNestedDefaultLimit(t *testing.T) {
	var data []byte
	data = append(data, byte(ValueCollection), 0x02, byte(ValueCollection))
	for i := 0; i < 1000; i++ {
		data = append(data, 0x02, byte(ValueCollection))
	}
	err := Parse(data, NopHandler{})
	td.CmpTrue(t, errors.Is(err, ErrTooDeep), "got %v", err)
}

func TestParse_SizeGuardDoesNotAllocate(t *testing.T) {
	e := NewEncoder()
	e.EncodeTag(Struct)
	e.EncodeTag(Bytes)
	NewVarintEncoder(e).EncodeInt32(1)
	NewVarintEncoder(e).EncodeVarInt(1 << 30)
	e.buf = append(e.buf, 0x61, 0x62, byte(EndStruct))
	data := e.Bytes()

	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	err := Parse(data, NopHandler{})
	runtime.ReadMemStats(&after)

	td.CmpTrue(t, errors.Is(err, ErrSizeLimit), "got %v", err)
	if allocated := after.TotalAlloc - before.TotalAlloc; allocated > 1<<20 {
		t.Errorf("rejecting a 1 GiB declared length allocated %d bytes", allocated)
	}
}

func TestParse_EmptyElementBudget(t *testing.T) {
	t.Run("huge_null_collection", func(t *testing.T) {
		e := NewEncoder()
		e.EncodeTag(ValueCollection)
		NewVarintEncoder(e).EncodeInt32(1 << 24)
		e.EncodeTag(Null)

		var before, after runtime.MemStats
		runtime.GC()
		runtime.ReadMemStats(&before)
		_, err := Decode(e.Bytes())
		runtime.ReadMemStats(&after)

		td.CmpTrue(t, errors.Is(err, ErrSizeLimit), "got %v", err)
		if allocated := after.TotalAlloc - before.TotalAlloc; allocated > 1<<20 {
			t.Errorf("rejecting 16M Null elements allocated %d bytes", allocated)
		}
	})

	t.Run("nested_null_collections", func(t *testing.T) {
		e := NewEncoder()
		e.EncodeTag(ValueCollection)
		NewVarintEncoder(e).EncodeInt32(8)
		e.EncodeTag(ValueCollection)
		for i := 0; i < 8; i++ {
			NewVarintEncoder(e).EncodeInt32(1 << 14)
			e.EncodeTag(Null)
		}

		r := &recorder{}
		err := Parse(e.Bytes(), r)
		td.CmpTrue(t, errors.Is(err, ErrSizeLimit), "got %v", err)
		// four inner collections fit the default budget, the fifth does not
		td.CmpLt(t, len(r.events), 5*(1<<14)*4)
	})

	t.Run("null_keys_and_values", func(t *testing.T) {
		data := []byte{byte(KeyValueCollection), 0x08, byte(Null), byte(Null)}
		err := NewParser(data, Config{MaxEmptyElements: 3}).Parse(NopHandler{})
		td.CmpTrue(t, errors.Is(err, ErrSizeLimit), "got %v", err)
	})

	t.Run("within_budget", func(t *testing.T) {
		data, err := Encode(CollectionOf(Null, NullValue(), NullValue(), NullValue()))
		td.CmpNoError(t, err)
		v, err := DecodeWithConfig(data, Config{MaxEmptyElements: 3})
		td.CmpNoError(t, err)
		td.CmpLen(t, v.Elements, 3)
	})
}

func TestParse_SuppressedError(t *testing.T) {
	r := &recorder{action: Suppress}
	err := Parse([]byte{0x14, 0x02, 0x02, 0x04}, r)
	td.CmpNoError(t, err)
	td.Cmp(t, r.events, []string{
		"BeginStruct",
		"BeginMember(VarInt, 1)",
		"BeginPrimitive(VarInt, 2)",
		"EndPrimitive(VarInt, 2)",
		"EndMember(VarInt, 1)",
	})
	td.CmpLen(t, r.errs, 1)
	td.CmpTrue(t, errors.Is(r.errs[0], ErrTruncated))
}

func TestParse_HookFailure(t *testing.T) {
	errBoom := errors.New("boom")
	r := &recorder{failOn: "BeginPrimitive(String, a)", failErr: errBoom}

	err := Parse([]byte{0x14, 0x0C, 0x02, 0x02, 0x61, 0x02, 0xC6, 0x01, 0x54, 0x7F}, r)
	td.CmpTrue(t, errors.Is(err, ErrHook), "got %v", err)
	td.CmpTrue(t, errors.Is(err, errBoom), "cause is preserved: %v", err)

	var perr *ParseError
	td.CmpTrue(t, errors.As(err, &perr))
	td.Cmp(t, perr.Path, []string{"1"})
	td.Cmp(t, r.events[len(r.events)-1], "BeginPrimitive(String, a)")
	td.CmpNot(t, r.events, td.Contains("EndOfStream"))
}

func TestParse_TrailingBytesAllowed(t *testing.T) {
	data := []byte{0x02, 0x02, 0x0C, 0x00}
	p := NewParser(data, Config{AllowTrailingBytes: true})

	r := &recorder{}
	td.CmpNoError(t, p.Parse(r))
	td.Cmp(t, p.Offset(), 2)

	td.CmpNoError(t, p.Parse(r))
	td.Cmp(t, p.Offset(), 4)
	td.Cmp(t, r.events, []string{
		"BeginPrimitive(VarInt, 1)",
		"EndPrimitive(VarInt, 1)",
		"EndOfStream",
		"BeginPrimitive(String, )",
		"EndPrimitive(String, )",
		"EndOfStream",
	})
}

func TestParser_Reset(t *testing.T) {
	p := NewParser([]byte{0x63}, DefaultConfig())
	td.CmpError(t, p.Parse(NopHandler{}))

	p.Reset([]byte{0x01})
	td.CmpNoError(t, p.Parse(NopHandler{}))
	td.Cmp(t, p.Offset(), 1)
}

// pathRecorder captures the parser path whenever a primitive starts.
type pathRecorder struct {
	NopHandler
	p     *Parser
	paths []string
}

func (r *pathRecorder) OnBeginPrimitive(WireDataType, interface{}) error {
	r.paths = append(r.paths, FormatPath(r.p.Path()))
	return nil
}

func TestParser_PathInsideHooks(t *testing.T) {
	data, err := Encode(StructOf(
		M(1, VarIntValue(7)),
		M(3, CollectionOf(Struct, StructOf(), StructOf(M(4, StringValue("x"))))),
		M(5, KeyValueCollectionOf(String, VarInt, Entry{Key: StringValue("k"), Value: VarIntValue(1)})),
	))
	td.CmpNoError(t, err)

	p := NewParser(data, DefaultConfig())
	r := &pathRecorder{p: p}
	td.CmpNoError(t, p.Parse(r))
	td.Cmp(t, r.paths, []string{"1", "3[1].4", "5[0].key", "5[0]"})
	td.Cmp(t, p.Depth(), 0)
}
