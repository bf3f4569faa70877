package wire

import "fmt"

// Decode materializes data into a Value tree using DefaultConfig.
func Decode(data []byte) (Value, error) {
	return DecodeWithConfig(data, DefaultConfig())
}

// DecodeWithConfig materializes data into a Value tree.
func DecodeWithConfig(data []byte, cfg Config) (Value, error) {
	b := &TreeBuilder{}
	if err := NewParser(data, cfg).Parse(b); err != nil {
		return Value{}, err
	}
	return b.Result()
}

// TreeBuilder is a Handler that rebuilds the Value tree from parser events.
type TreeBuilder struct {
	NopHandler
	stack []*frame
	root  Value
	done  bool
}

type frame struct {
	v       Value
	tagID   int32 // tag id of the member being parsed
	pending Value // completed key or value of the entry being parsed
}

// Result returns the materialized tree once the end of stream was reached.
func (b *TreeBuilder) Result() (Value, error) {
	if !b.done {
		return Value{}, fmt.Errorf("tree incomplete: end of stream not reached")
	}
	return b.root, nil
}

func (b *TreeBuilder) top() *frame {
	if len(b.stack) == 0 {
		return nil
	}
	return b.stack[len(b.stack)-1]
}

func (b *TreeBuilder) push(v Value) {
	b.stack = append(b.stack, &frame{v: v})
}

func (b *TreeBuilder) pop() error {
	f := b.top()
	if f == nil {
		return fmt.Errorf("unbalanced end event")
	}
	b.stack = b.stack[:len(b.stack)-1]
	return b.attach(f.v)
}

// attach places a completed value into its parent frame, or makes it the root.
func (b *TreeBuilder) attach(v Value) error {
	parent := b.top()
	if parent == nil {
		b.root = v
		return nil
	}
	switch parent.v.Type {
	case Struct, NullableStruct, AbstractStruct:
		parent.v.Members = append(parent.v.Members, Member{TagID: parent.tagID, Value: v})
	case ValueCollection:
		parent.v.Elements = append(parent.v.Elements, v)
	case KeyValueCollection:
		parent.pending = v
	default:
		return fmt.Errorf("cannot attach %v to %v", v.Type, parent.v.Type)
	}
	return nil
}

func (b *TreeBuilder) OnBeginPrimitive(t WireDataType, v interface{}) error {
	if f := b.top(); f != nil && f.v.Type.IsNullable() {
		f.v.Scalar = v
		return nil
	}
	return b.attach(Value{Type: t, Scalar: v})
}

func (b *TreeBuilder) OnBeginNullablePrimitive(t WireDataType, notNull bool) error {
	b.push(Value{Type: t, Null: !notNull})
	return nil
}

func (b *TreeBuilder) OnEndNullablePrimitive(WireDataType, bool) error {
	return b.pop()
}

func (b *TreeBuilder) OnBeginStruct() error {
	b.push(Value{Type: Struct})
	return nil
}

func (b *TreeBuilder) OnEndStruct() error {
	return b.pop()
}

func (b *TreeBuilder) OnBeginNullableStruct(notNull bool) error {
	b.push(Value{Type: NullableStruct, Null: !notNull})
	return nil
}

func (b *TreeBuilder) OnEndNullableStruct(bool) error {
	return b.pop()
}

func (b *TreeBuilder) OnBeginAbstractStruct(typeCode int32) error {
	b.push(Value{Type: AbstractStruct, TypeCode: typeCode})
	return nil
}

func (b *TreeBuilder) OnEndAbstractStruct(int32) error {
	return b.pop()
}

func (b *TreeBuilder) OnBeginMember(_ WireDataType, tagID int32) error {
	if f := b.top(); f != nil {
		f.tagID = tagID
	}
	return nil
}

func (b *TreeBuilder) OnBeginValueCollection(count int32, elemType WireDataType) error {
	b.push(Value{Type: ValueCollection, Null: count == absentCount, ElemType: elemType})
	return nil
}

func (b *TreeBuilder) OnEndValueCollection(int32, WireDataType) error {
	return b.pop()
}

func (b *TreeBuilder) OnBeginKeyValueCollection(count int32, keyType, valueType WireDataType) error {
	b.push(Value{Type: KeyValueCollection, Null: count == absentCount, KeyType: keyType, ElemType: valueType})
	return nil
}

func (b *TreeBuilder) OnEndKeyValueCollection(int32, WireDataType, WireDataType) error {
	return b.pop()
}

func (b *TreeBuilder) OnEndKey(int32) error {
	f := b.top()
	f.v.Entries = append(f.v.Entries, Entry{Key: f.pending})
	f.pending = Value{}
	return nil
}

func (b *TreeBuilder) OnEndValue(int32) error {
	f := b.top()
	f.v.Entries[len(f.v.Entries)-1].Value = f.pending
	f.pending = Value{}
	return nil
}

func (b *TreeBuilder) OnEndOfStream() error {
	if len(b.stack) != 0 {
		return fmt.Errorf("%d unterminated values at end of stream", len(b.stack))
	}
	b.done = true
	return nil
}
