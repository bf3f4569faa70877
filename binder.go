package tagwire

import (
	"fmt"

	"github.com/anirudhraja/tagwire/registry"
	"github.com/anirudhraja/tagwire/schema"
	"github.com/anirudhraja/tagwire/wire"
)

// TypeKey holds the variant message name in the map an abstract value binds to.
const TypeKey = "@type"

type frameKind int

const (
	messageFrame frameKind = iota
	listFrame
	mapFrame
)

// bindFrame is one open container of the value being bound.
type bindFrame struct {
	kind  frameKind
	typ   *schema.FieldType
	msg   *schema.Message
	null  bool
	field *schema.Field // member currently open in a message frame

	fields  map[string]interface{}
	list    []interface{}
	entries map[interface{}]interface{}
	key     interface{}
	inKey   bool
}

// binder is a wire.Handler that binds parse events to the field names of a
// registered message. Members and abstract variants the schema does not
// define are traversed and discarded.
type binder struct {
	wire.NopHandler
	reg      *registry.Registry
	rootType schema.FieldType
	stack    []*bindFrame
	root     map[string]interface{}
	done     bool

	// skip counts the open begin events of a discarded subtree
	skip       int
	nullOnSkip bool
}

func newBinder(reg *registry.Registry, messageType string) *binder {
	return &binder{
		reg:      reg,
		rootType: schema.FieldType{Kind: schema.KindMessage, MessageType: messageType},
	}
}

func (b *binder) result() (map[string]interface{}, error) {
	if !b.done {
		return nil, fmt.Errorf("incomplete value")
	}
	return b.root, nil
}

// ===== FRAME HELPERS =====

func (b *binder) top() *bindFrame {
	if len(b.stack) == 0 {
		return nil
	}
	return b.stack[len(b.stack)-1]
}

func (b *binder) push(f *bindFrame) {
	b.stack = append(b.stack, f)
}

func (b *binder) pop() *bindFrame {
	f := b.top()
	b.stack = b.stack[:len(b.stack)-1]
	return f
}

// expected returns the schema type of the value about to start.
func (b *binder) expected() *schema.FieldType {
	f := b.top()
	if f == nil {
		return &b.rootType
	}
	switch f.kind {
	case listFrame:
		return f.typ.Element
	case mapFrame:
		if f.inKey {
			return f.typ.Key
		}
		return f.typ.Value
	default:
		return &f.field.Type
	}
}

// deliver stores a finished value in the enclosing container.
func (b *binder) deliver(v interface{}) error {
	f := b.top()
	if f == nil {
		root, ok := v.(map[string]interface{})
		if !ok {
			return fmt.Errorf("top-level value is not a struct")
		}
		b.root = root
		return nil
	}
	switch f.kind {
	case listFrame:
		f.list = append(f.list, v)
	case mapFrame:
		if f.inKey {
			// []byte is not hashable
			if raw, ok := v.([]byte); ok {
				v = string(raw)
			}
			f.key = v
		} else {
			f.entries[f.key] = v
		}
	default:
		f.fields[f.field.Name] = v
	}
	return nil
}

func (b *binder) skipping(begin bool) bool {
	if b.skip == 0 {
		return false
	}
	if begin {
		b.skip++
	} else {
		b.skip--
	}
	return true
}

func (b *binder) messageType(exp *schema.FieldType) (*schema.Message, error) {
	if exp.Kind != schema.KindMessage {
		return nil, fmt.Errorf("schema expects %s, got a struct", exp.Kind)
	}
	return b.reg.GetMessage(exp.MessageType)
}

// ===== HANDLER HOOKS =====

func (b *binder) OnBeginPrimitive(t wire.WireDataType, v interface{}) error {
	if b.skipping(true) {
		return nil
	}
	exp := b.expected()
	if exp.Kind != schema.KindScalar && exp.Kind != schema.KindEnum {
		return fmt.Errorf("schema expects %s, got %s", exp.Kind, t)
	}
	if t != exp.Scalar {
		return fmt.Errorf("schema expects %s, got %s", exp.Scalar, t)
	}
	return b.deliver(v)
}

func (b *binder) OnEndPrimitive(wire.WireDataType, interface{}) error {
	b.skipping(false)
	return nil
}

func (b *binder) OnBeginNullablePrimitive(wire.WireDataType, bool) error {
	b.skipping(true)
	return nil
}

func (b *binder) OnEndNullablePrimitive(wire.WireDataType, bool) error {
	b.skipping(false)
	return nil
}

func (b *binder) OnBeginStruct() error {
	return b.beginMessage(true)
}

func (b *binder) OnEndStruct() error {
	return b.endMessage()
}

func (b *binder) OnBeginNullableStruct(notNull bool) error {
	return b.beginMessage(notNull)
}

func (b *binder) OnEndNullableStruct(bool) error {
	return b.endMessage()
}

func (b *binder) beginMessage(notNull bool) error {
	if b.skipping(true) {
		return nil
	}
	msg, err := b.messageType(b.expected())
	if err != nil {
		return err
	}
	b.push(&bindFrame{
		kind:   messageFrame,
		msg:    msg,
		null:   !notNull,
		fields: make(map[string]interface{}),
	})
	return nil
}

func (b *binder) endMessage() error {
	if b.skipping(false) {
		return nil
	}
	f := b.pop()
	if f.null {
		return b.deliver(nil)
	}
	return b.deliver(f.fields)
}

func (b *binder) OnBeginAbstractStruct(typeCode int32) error {
	if b.skipping(true) {
		return nil
	}
	exp := b.expected()
	if exp.Kind != schema.KindAbstract {
		return fmt.Errorf("schema expects %s, got an abstract struct", exp.Kind)
	}
	if typeCode == 0 {
		b.push(&bindFrame{kind: messageFrame, null: true})
		return nil
	}

	abstract, err := b.reg.GetAbstract(exp.MessageType)
	if err != nil {
		return err
	}
	variant := abstract.VariantByCode(typeCode)
	if variant == nil {
		b.skip = 1
		b.nullOnSkip = true
		return nil
	}
	msg, err := b.reg.GetMessage(variant.MessageType)
	if err != nil {
		return err
	}
	b.push(&bindFrame{
		kind:   messageFrame,
		msg:    msg,
		fields: map[string]interface{}{TypeKey: variant.MessageType},
	})
	return nil
}

func (b *binder) OnEndAbstractStruct(int32) error {
	if b.skipping(false) {
		if b.skip == 0 && b.nullOnSkip {
			b.nullOnSkip = false
			return b.deliver(nil)
		}
		return nil
	}
	return b.endMessage()
}

func (b *binder) OnBeginMember(t wire.WireDataType, tagID int32) error {
	if b.skipping(true) {
		return nil
	}
	f := b.top()
	field := f.msg.FieldByTag(tagID)
	if field == nil {
		b.skip = 1
		return nil
	}
	if want := field.Type.WireType(); want != t {
		return fmt.Errorf("member %s: schema expects %s, got %s", field.Name, want, t)
	}
	f.field = field
	return nil
}

func (b *binder) OnEndMember(wire.WireDataType, int32) error {
	if b.skipping(false) {
		return nil
	}
	b.top().field = nil
	return nil
}

func (b *binder) OnBeginValueCollection(count int32, elemType wire.WireDataType) error {
	if b.skipping(true) {
		return nil
	}
	exp := b.expected()
	if exp.Kind != schema.KindList {
		return fmt.Errorf("schema expects %s, got a value collection", exp.Kind)
	}
	if count >= 0 {
		if want := exp.Element.WireType(); want != elemType {
			return fmt.Errorf("schema expects %s elements, got %s", want, elemType)
		}
	}
	f := &bindFrame{kind: listFrame, typ: exp, null: count < 0}
	if count >= 0 {
		f.list = make([]interface{}, 0, count)
	}
	b.push(f)
	return nil
}

func (b *binder) OnEndValueCollection(int32, wire.WireDataType) error {
	if b.skipping(false) {
		return nil
	}
	f := b.pop()
	if f.null {
		return b.deliver(nil)
	}
	return b.deliver(f.list)
}

func (b *binder) OnBeginKeyValueCollection(count int32, keyType, valueType wire.WireDataType) error {
	if b.skipping(true) {
		return nil
	}
	exp := b.expected()
	if exp.Kind != schema.KindMap {
		return fmt.Errorf("schema expects %s, got a key-value collection", exp.Kind)
	}
	if count >= 0 {
		if want := exp.Key.WireType(); want != keyType {
			return fmt.Errorf("schema expects %s keys, got %s", want, keyType)
		}
		if want := exp.Value.WireType(); want != valueType {
			return fmt.Errorf("schema expects %s values, got %s", want, valueType)
		}
	}
	f := &bindFrame{kind: mapFrame, typ: exp, null: count < 0}
	if count >= 0 {
		f.entries = make(map[interface{}]interface{}, count)
	}
	b.push(f)
	return nil
}

func (b *binder) OnEndKeyValueCollection(int32, wire.WireDataType, wire.WireDataType) error {
	if b.skipping(false) {
		return nil
	}
	f := b.pop()
	if f.null {
		return b.deliver(nil)
	}
	return b.deliver(f.entries)
}

func (b *binder) OnBeginElement(int32) error {
	b.skipping(true)
	return nil
}

func (b *binder) OnEndElement(int32) error {
	b.skipping(false)
	return nil
}

func (b *binder) OnBeginKey(int32) error {
	if b.skipping(true) {
		return nil
	}
	b.top().inKey = true
	return nil
}

func (b *binder) OnEndKey(int32) error {
	if b.skipping(false) {
		return nil
	}
	b.top().inKey = false
	return nil
}

func (b *binder) OnBeginValue(int32) error {
	b.skipping(true)
	return nil
}

func (b *binder) OnEndValue(int32) error {
	b.skipping(false)
	return nil
}

func (b *binder) OnEndOfStream() error {
	b.done = b.root != nil
	return nil
}
