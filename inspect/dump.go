// Package inspect renders tagwire payloads for humans: an indented dump, a
// per-member size breakdown and a zerolog event tracer.
package inspect

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/anirudhraja/tagwire/registry"
	"github.com/anirudhraja/tagwire/schema"
	"github.com/anirudhraja/tagwire/wire"
)

// Options controls Dump.
type Options struct {
	Config wire.Config

	// Registry and MessageType, when both set, label members with field
	// names and abstract values with their variant message.
	Registry    *registry.Registry
	MessageType string

	// Indent defaults to two spaces.
	Indent string
}

// Dump parses data and writes one line per value to w.
//
//	Struct {
//	  1 title: String "plan"
//	  3 shapes: ValueCollection<AbstractStruct> (1) [
//	    [0]: AbstractStruct #1 geo.Circle {
//	      1 radius: F32 1.5
//	    }
//	  ]
//	}
func Dump(w io.Writer, data []byte, opts Options) error {
	d := newDumper(w, opts)
	if err := wire.NewParser(data, opts.Config).Parse(d); err != nil {
		return err
	}
	return d.err
}

type dumpFrame struct {
	closer string
	msg    *schema.Message
	typ    *schema.FieldType // collection type, when known
	field  *schema.Field
	inKey  bool
}

type dumper struct {
	wire.NopHandler
	w      io.Writer
	indent string
	reg    *registry.Registry
	root   *schema.FieldType
	stack  []*dumpFrame
	label  string
	nulled wire.WireDataType
	err    error
}

func newDumper(w io.Writer, opts Options) *dumper {
	d := &dumper{w: w, indent: opts.Indent, reg: opts.Registry}
	if d.indent == "" {
		d.indent = "  "
	}
	if opts.Registry != nil && opts.MessageType != "" {
		d.root = &schema.FieldType{Kind: schema.KindMessage, MessageType: opts.MessageType}
	}
	return d
}

func (d *dumper) line(format string, args ...interface{}) {
	if d.err != nil {
		return
	}
	prefix := strings.Repeat(d.indent, len(d.stack)) + d.label
	d.label = ""
	if _, d.err = io.WriteString(d.w, prefix); d.err != nil {
		return
	}
	_, d.err = fmt.Fprintf(d.w, format+"\n", args...)
}

func (d *dumper) top() *dumpFrame {
	if len(d.stack) == 0 {
		return nil
	}
	return d.stack[len(d.stack)-1]
}

// expected returns the schema type of the value about to start, or nil when
// no schema applies at this point.
func (d *dumper) expected() *schema.FieldType {
	f := d.top()
	if f == nil {
		return d.root
	}
	if f.typ != nil {
		switch {
		case f.typ.Kind == schema.KindList:
			return f.typ.Element
		case f.inKey:
			return f.typ.Key
		default:
			return f.typ.Value
		}
	}
	if f.field != nil {
		return &f.field.Type
	}
	return nil
}

func (d *dumper) open(header, closer string, f *dumpFrame) {
	d.line("%s", header)
	f.closer = closer
	d.stack = append(d.stack, f)
}

func (d *dumper) close() {
	f := d.top()
	d.stack = d.stack[:len(d.stack)-1]
	if f.closer != "" {
		d.line("%s", f.closer)
	}
}

func (d *dumper) message(exp *schema.FieldType) *schema.Message {
	if exp == nil || exp.Kind != schema.KindMessage {
		return nil
	}
	msg, err := d.reg.GetMessage(exp.MessageType)
	if err != nil {
		return nil
	}
	return msg
}

func (d *dumper) OnBeginPrimitive(t wire.WireDataType, v interface{}) error {
	if d.nulled != wire.Invalid {
		t, d.nulled = d.nulled, wire.Invalid
	}
	d.line("%v %s", t, FormatScalar(v))
	return nil
}

func (d *dumper) OnBeginNullablePrimitive(t wire.WireDataType, _ bool) error {
	d.nulled = t
	return nil
}

func (d *dumper) OnBeginStruct() error {
	d.open("Struct {", "}", &dumpFrame{msg: d.message(d.expected())})
	return nil
}

func (d *dumper) OnEndStruct() error {
	d.close()
	return nil
}

func (d *dumper) OnBeginNullableStruct(notNull bool) error {
	if !notNull {
		d.open("NullableStruct null", "", &dumpFrame{})
		return nil
	}
	d.open("NullableStruct {", "}", &dumpFrame{msg: d.message(d.expected())})
	return nil
}

func (d *dumper) OnEndNullableStruct(bool) error {
	d.close()
	return nil
}

func (d *dumper) OnBeginAbstractStruct(typeCode int32) error {
	if typeCode == 0 {
		d.open("AbstractStruct null", "", &dumpFrame{})
		return nil
	}
	header := fmt.Sprintf("AbstractStruct #%d", typeCode)
	f := &dumpFrame{}
	if exp := d.expected(); exp != nil && exp.Kind == schema.KindAbstract {
		if abstract, err := d.reg.GetAbstract(exp.MessageType); err == nil {
			if variant := abstract.VariantByCode(typeCode); variant != nil {
				header += " " + variant.MessageType
				f.msg, _ = d.reg.GetMessage(variant.MessageType)
			}
		}
	}
	d.open(header+" {", "}", f)
	return nil
}

func (d *dumper) OnEndAbstractStruct(int32) error {
	d.close()
	return nil
}

func (d *dumper) OnBeginMember(t wire.WireDataType, tagID int32) error {
	f := d.top()
	f.field = nil
	label := fmt.Sprintf("%d", tagID)
	if f.msg != nil {
		if field := f.msg.FieldByTag(tagID); field != nil {
			label += " " + field.Name
			if field.Type.WireType() == t {
				f.field = field
			}
		}
	}
	d.label = label + ": "
	return nil
}

func (d *dumper) OnBeginValueCollection(count int32, elemType wire.WireDataType) error {
	if count < 0 {
		d.open("ValueCollection absent", "", &dumpFrame{})
		return nil
	}
	f := &dumpFrame{}
	if exp := d.expected(); exp != nil && exp.Kind == schema.KindList && exp.Element.WireType() == elemType {
		f.typ = exp
	}
	d.open(fmt.Sprintf("ValueCollection<%v> (%d) [", elemType, count), "]", f)
	return nil
}

func (d *dumper) OnEndValueCollection(int32, wire.WireDataType) error {
	d.close()
	return nil
}

func (d *dumper) OnBeginKeyValueCollection(count int32, keyType, valueType wire.WireDataType) error {
	if count < 0 {
		d.open("KeyValueCollection absent", "", &dumpFrame{})
		return nil
	}
	f := &dumpFrame{}
	if exp := d.expected(); exp != nil && exp.Kind == schema.KindMap &&
		exp.Key.WireType() == keyType && exp.Value.WireType() == valueType {
		f.typ = exp
	}
	d.open(fmt.Sprintf("KeyValueCollection<%v, %v> (%d) [", keyType, valueType, count), "]", f)
	return nil
}

func (d *dumper) OnEndKeyValueCollection(int32, wire.WireDataType, wire.WireDataType) error {
	d.close()
	return nil
}

func (d *dumper) OnBeginElement(index int32) error {
	d.label = fmt.Sprintf("[%d]: ", index)
	return nil
}

func (d *dumper) OnBeginKey(index int32) error {
	d.top().inKey = true
	d.label = fmt.Sprintf("[%d] key: ", index)
	return nil
}

func (d *dumper) OnEndKey(int32) error {
	d.top().inKey = false
	return nil
}

func (d *dumper) OnBeginValue(index int32) error {
	d.label = fmt.Sprintf("[%d] value: ", index)
	return nil
}

// FormatScalar renders a scalar payload the way Dump prints it.
func FormatScalar(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("%q", x)
	case []byte:
		return "0x" + hex.EncodeToString(x)
	case uuid.UUID:
		return x.String()
	case wire.Int128:
		return x.String()
	case wire.Fixed32:
		return fmt.Sprintf("%g", x.Float())
	case wire.Fixed64:
		return fmt.Sprintf("%g", x.Float())
	case wire.Fixed32Vec2:
		return fmt.Sprintf("(%g, %g)", x.X.Float(), x.Y.Float())
	case wire.Fixed32Vec3:
		return fmt.Sprintf("(%g, %g, %g)", x.X.Float(), x.Y.Float(), x.Z.Float())
	case wire.Fixed64Vec2:
		return fmt.Sprintf("(%g, %g)", x.X.Float(), x.Y.Float())
	case wire.Fixed64Vec3:
		return fmt.Sprintf("(%g, %g, %g)", x.X.Float(), x.Y.Float(), x.Z.Float())
	default:
		return fmt.Sprint(v)
	}
}
