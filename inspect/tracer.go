package inspect

import (
	"github.com/rs/zerolog"

	"github.com/anirudhraja/tagwire/wire"
)

// Tracer logs every parse event at debug level and forwards it to Next.
// Parser, when set, adds the cursor offset and member path to each entry.
type Tracer struct {
	Logger zerolog.Logger
	Parser *wire.Parser
	Next   wire.Handler
}

// NewTracer wraps next; a nil next only logs.
func NewTracer(logger zerolog.Logger, parser *wire.Parser, next wire.Handler) *Tracer {
	if next == nil {
		next = wire.NopHandler{}
	}
	return &Tracer{Logger: logger, Parser: parser, Next: next}
}

func (t *Tracer) event(name string) *zerolog.Event {
	e := t.Logger.Debug().Str("event", name)
	if t.Parser != nil {
		e = e.Int("offset", t.Parser.Offset())
		if path := t.Parser.Path(); len(path) > 0 {
			e = e.Str("path", wire.FormatPath(path))
		}
	}
	return e
}

func (t *Tracer) OnBeginPrimitive(typ wire.WireDataType, v interface{}) error {
	t.event("BeginPrimitive").Stringer("type", typ).Str("value", FormatScalar(v)).Send()
	return t.Next.OnBeginPrimitive(typ, v)
}

func (t *Tracer) OnEndPrimitive(typ wire.WireDataType, v interface{}) error {
	t.event("EndPrimitive").Stringer("type", typ).Send()
	return t.Next.OnEndPrimitive(typ, v)
}

func (t *Tracer) OnBeginNullablePrimitive(typ wire.WireDataType, notNull bool) error {
	t.event("BeginNullablePrimitive").Stringer("type", typ).Bool("not_null", notNull).Send()
	return t.Next.OnBeginNullablePrimitive(typ, notNull)
}

func (t *Tracer) OnEndNullablePrimitive(typ wire.WireDataType, notNull bool) error {
	t.event("EndNullablePrimitive").Stringer("type", typ).Send()
	return t.Next.OnEndNullablePrimitive(typ, notNull)
}

func (t *Tracer) OnBeginStruct() error {
	t.event("BeginStruct").Send()
	return t.Next.OnBeginStruct()
}

func (t *Tracer) OnEndStruct() error {
	t.event("EndStruct").Send()
	return t.Next.OnEndStruct()
}

func (t *Tracer) OnBeginNullableStruct(notNull bool) error {
	t.event("BeginNullableStruct").Bool("not_null", notNull).Send()
	return t.Next.OnBeginNullableStruct(notNull)
}

func (t *Tracer) OnEndNullableStruct(notNull bool) error {
	t.event("EndNullableStruct").Send()
	return t.Next.OnEndNullableStruct(notNull)
}

func (t *Tracer) OnBeginAbstractStruct(typeCode int32) error {
	t.event("BeginAbstractStruct").Int32("type_code", typeCode).Send()
	return t.Next.OnBeginAbstractStruct(typeCode)
}

func (t *Tracer) OnEndAbstractStruct(typeCode int32) error {
	t.event("EndAbstractStruct").Int32("type_code", typeCode).Send()
	return t.Next.OnEndAbstractStruct(typeCode)
}

func (t *Tracer) OnBeginMember(typ wire.WireDataType, tagID int32) error {
	t.event("BeginMember").Stringer("type", typ).Int32("tag_id", tagID).Send()
	return t.Next.OnBeginMember(typ, tagID)
}

func (t *Tracer) OnEndMember(typ wire.WireDataType, tagID int32) error {
	t.event("EndMember").Int32("tag_id", tagID).Send()
	return t.Next.OnEndMember(typ, tagID)
}

func (t *Tracer) OnBeginValueCollection(count int32, elemType wire.WireDataType) error {
	t.event("BeginValueCollection").Int32("count", count).Stringer("elem_type", elemType).Send()
	return t.Next.OnBeginValueCollection(count, elemType)
}

func (t *Tracer) OnEndValueCollection(count int32, elemType wire.WireDataType) error {
	t.event("EndValueCollection").Int32("count", count).Send()
	return t.Next.OnEndValueCollection(count, elemType)
}

func (t *Tracer) OnBeginKeyValueCollection(count int32, keyType, valueType wire.WireDataType) error {
	t.event("BeginKeyValueCollection").Int32("count", count).
		Stringer("key_type", keyType).Stringer("value_type", valueType).Send()
	return t.Next.OnBeginKeyValueCollection(count, keyType, valueType)
}

func (t *Tracer) OnEndKeyValueCollection(count int32, keyType, valueType wire.WireDataType) error {
	t.event("EndKeyValueCollection").Int32("count", count).Send()
	return t.Next.OnEndKeyValueCollection(count, keyType, valueType)
}

func (t *Tracer) OnBeginElement(index int32) error {
	t.event("BeginElement").Int32("index", index).Send()
	return t.Next.OnBeginElement(index)
}

func (t *Tracer) OnEndElement(index int32) error {
	t.event("EndElement").Int32("index", index).Send()
	return t.Next.OnEndElement(index)
}

func (t *Tracer) OnBeginKey(index int32) error {
	t.event("BeginKey").Int32("index", index).Send()
	return t.Next.OnBeginKey(index)
}

func (t *Tracer) OnEndKey(index int32) error {
	t.event("EndKey").Int32("index", index).Send()
	return t.Next.OnEndKey(index)
}

func (t *Tracer) OnBeginValue(index int32) error {
	t.event("BeginValue").Int32("index", index).Send()
	return t.Next.OnBeginValue(index)
}

func (t *Tracer) OnEndValue(index int32) error {
	t.event("EndValue").Int32("index", index).Send()
	return t.Next.OnEndValue(index)
}

func (t *Tracer) OnEndOfStream() error {
	t.event("EndOfStream").Send()
	return t.Next.OnEndOfStream()
}

func (t *Tracer) OnError(err error) wire.ErrorAction {
	t.Logger.Debug().Err(err).Msg("parse failed")
	return t.Next.OnError(err)
}

// Trace parses data and only logs its events.
func Trace(data []byte, cfg wire.Config, logger zerolog.Logger) error {
	p := wire.NewParser(data, cfg)
	return p.Parse(NewTracer(logger, p, nil))
}
