package wire

import (
	"errors"
	"fmt"
	"strconv"
)

// Parser is a single-pass push parser. It walks one buffer front to back and
// reports structure to a Handler instead of building a tree.
//
// A Parser holds cursor state for the duration of Parse and must not be used
// from several goroutines at once. Independent parsers share nothing.
type Parser struct {
	d     *Decoder
	h     Handler
	depth int
	path  []pathSeg
	empty int // zero-width elements declared so far
}

type segKind byte

const (
	segMember segKind = iota
	segIndex
	segKey
)

type pathSeg struct {
	kind segKind
	n    int32
}

// NewParser creates a parser over data with the given limits.
func NewParser(data []byte, cfg Config) *Parser {
	return &Parser{d: NewDecoderWithConfig(data, cfg)}
}

// Parse runs a parser with DefaultConfig - main entry point
func Parse(data []byte, h Handler) error {
	return NewParser(data, DefaultConfig()).Parse(h)
}

// Reset points the parser at a new buffer, keeping its configuration.
func (p *Parser) Reset(data []byte) {
	p.d.Reset(data)
	p.depth = 0
	p.empty = 0
	p.path = p.path[:0]
}

// Offset returns the byte offset of the cursor. Handlers may call it from
// inside hooks; after a successful Parse it is the end of the top-level value.
func (p *Parser) Offset() int {
	return p.d.Offset()
}

// Depth returns the current struct/collection nesting depth.
func (p *Parser) Depth() int {
	return p.depth
}

// Path returns the member path of the node being parsed, e.g. ["3", "[2]"].
func (p *Parser) Path() []string {
	out := make([]string, len(p.path))
	for i, s := range p.path {
		switch s.kind {
		case segMember:
			out[i] = strconv.FormatInt(int64(s.n), 10)
		case segIndex:
			out[i] = indexSegment(int(s.n))
		case segKey:
			out[i] = "key"
		}
	}
	return out
}

// Parse decodes exactly one top-level value, starting at the current offset,
// and delivers its events to h. Failures are offered to h.OnError; if it
// suppresses them Parse returns nil.
func (p *Parser) Parse(h Handler) error {
	p.h = h
	p.depth = 0
	p.empty = 0
	p.path = p.path[:0]
	defer func() { p.h = nil }()

	err := p.parseDocument()
	if err == nil {
		return nil
	}
	perr := p.annotate(err)
	if h.OnError(perr) == Suppress {
		return nil
	}
	return perr
}

func (p *Parser) parseDocument() error {
	start := p.d.Offset()
	tag, err := p.d.DecodeTag()
	if err != nil {
		return err
	}
	if !tag.IsValueType() {
		return p.grammarAt(start, "invalid top-level tag %v", tag)
	}
	if err := p.parseValue(tag); err != nil {
		return err
	}
	if !p.d.cfg.AllowTrailingBytes && p.d.Remaining() > 0 {
		return p.grammarAt(p.d.Offset(), "%d trailing bytes after top-level value", p.d.Remaining())
	}
	return p.hook(p.h.OnEndOfStream())
}

// parseValue decodes the payload of a value whose tag t has already been read.
func (p *Parser) parseValue(t WireDataType) error {
	switch {
	case t.IsScalar():
		v, err := p.d.decodeScalar(t)
		if err != nil {
			return err
		}
		return p.primitive(t, v)
	case t.IsNullable():
		return p.parseNullablePrimitive(t)
	}

	switch t {
	case Struct:
		return p.parseStruct()
	case NullableStruct:
		return p.parseNullableStruct()
	case AbstractStruct:
		return p.parseAbstractStruct()
	case ValueCollection:
		return p.parseValueCollection()
	case KeyValueCollection:
		return p.parseKeyValueCollection()
	default:
		return p.grammarAt(p.d.Offset(), "%v is not a value type", t)
	}
}

func (p *Parser) primitive(t WireDataType, v interface{}) error {
	if err := p.hook(p.h.OnBeginPrimitive(t, v)); err != nil {
		return err
	}
	return p.hook(p.h.OnEndPrimitive(t, v))
}

func (p *Parser) parseNullablePrimitive(t WireDataType) error {
	scalar := UnwrapNullable(t)
	notNull, err := p.d.DecodeNotNullFlag()
	if err != nil {
		return err
	}
	if err := p.hook(p.h.OnBeginNullablePrimitive(t, notNull)); err != nil {
		return err
	}
	if notNull {
		err = p.parseValue(scalar)
	} else {
		err = p.primitive(scalar, nil)
	}
	if err != nil {
		return err
	}
	return p.hook(p.h.OnEndNullablePrimitive(t, notNull))
}

func (p *Parser) parseStruct() error {
	if err := p.enter(); err != nil {
		return err
	}
	if err := p.hook(p.h.OnBeginStruct()); err != nil {
		return err
	}
	if err := p.parseStructContents(); err != nil {
		return err
	}
	if err := p.hook(p.h.OnEndStruct()); err != nil {
		return err
	}
	p.leave()
	return nil
}

func (p *Parser) parseNullableStruct() error {
	notNull, err := p.d.DecodeNotNullFlag()
	if err != nil {
		return err
	}
	if err := p.enter(); err != nil {
		return err
	}
	if err := p.hook(p.h.OnBeginNullableStruct(notNull)); err != nil {
		return err
	}
	if notNull {
		if err := p.parseStructContents(); err != nil {
			return err
		}
	}
	if err := p.hook(p.h.OnEndNullableStruct(notNull)); err != nil {
		return err
	}
	p.leave()
	return nil
}

func (p *Parser) parseAbstractStruct() error {
	start := p.d.Offset()
	typeCode, err := NewVarintDecoder(p.d).DecodeInt32()
	if err != nil {
		return err
	}
	if typeCode < 0 {
		return p.grammarAt(start, "invalid abstract type code %d", typeCode)
	}
	if err := p.enter(); err != nil {
		return err
	}
	if err := p.hook(p.h.OnBeginAbstractStruct(typeCode)); err != nil {
		return err
	}
	if typeCode > 0 {
		if err := p.parseStructContents(); err != nil {
			return err
		}
	}
	if err := p.hook(p.h.OnEndAbstractStruct(typeCode)); err != nil {
		return err
	}
	p.leave()
	return nil
}

// parseStructContents reads (memberType, tagId, payload) triples until the
// EndStruct marker. Unknown tag ids are still fully parsed and surfaced.
func (p *Parser) parseStructContents() error {
	vd := NewVarintDecoder(p.d)
	for {
		start := p.d.Offset()
		memberType, err := p.d.DecodeTag()
		if err != nil {
			return err
		}
		if memberType == EndStruct {
			return nil
		}
		if !memberType.IsValueType() {
			return p.grammarAt(start, "invalid member type %v", memberType)
		}

		idStart := p.d.Offset()
		tagID, err := vd.DecodeInt32()
		if err != nil {
			return err
		}
		if tagID < 0 {
			return p.grammarAt(idStart, "negative tag id %d", tagID)
		}

		p.push(segMember, tagID)
		if err := p.hook(p.h.OnBeginMember(memberType, tagID)); err != nil {
			return err
		}
		if err := p.parseValue(memberType); err != nil {
			return err
		}
		if err := p.hook(p.h.OnEndMember(memberType, tagID)); err != nil {
			return err
		}
		p.pop()
	}
}

// decodeCount reads a collection count and the element types that follow a
// present count, validating both against the grammar and the limits.
func (p *Parser) decodeCount(numTypes int) (int32, [2]WireDataType, error) {
	var types [2]WireDataType
	start := p.d.Offset()
	count, err := NewVarintDecoder(p.d).DecodeInt32()
	if err != nil {
		return 0, types, err
	}
	switch {
	case count == absentCount:
		return count, types, nil
	case count < 0:
		return 0, types, p.grammarAt(start, "invalid collection count %d", count)
	case int(count) > p.d.cfg.MaxCollectionLength:
		return 0, types, &ParseError{Kind: ErrSizeLimit, Offset: start,
			Msg: fmt.Sprintf("collection count %d exceeds maximum %d", count, p.d.cfg.MaxCollectionLength)}
	}

	minSize := 0
	for i := 0; i < numTypes; i++ {
		tStart := p.d.Offset()
		t, err := p.d.DecodeTag()
		if err != nil {
			return 0, types, err
		}
		if !t.IsValueType() {
			return 0, types, p.grammarAt(tStart, "invalid element type %v", t)
		}
		types[i] = t
		minSize += minPayloadSize(t)
	}
	if minSize == 0 {
		p.empty += int(count)
		if p.empty > p.d.cfg.MaxEmptyElements {
			return 0, types, &ParseError{Kind: ErrSizeLimit, Offset: start,
				Msg: fmt.Sprintf("%d zero-width elements exceed maximum %d", p.empty, p.d.cfg.MaxEmptyElements)}
		}
	}
	if int64(count)*int64(minSize) > int64(p.d.Remaining()) {
		return 0, types, p.d.truncated(fmt.Sprintf("collection of %d elements cannot fit in %d bytes", count, p.d.Remaining()))
	}
	return count, types, nil
}

func (p *Parser) parseValueCollection() error {
	count, types, err := p.decodeCount(1)
	if err != nil {
		return err
	}
	if err := p.enter(); err != nil {
		return err
	}
	if count == absentCount {
		if err := p.hook(p.h.OnBeginValueCollection(count, Invalid)); err != nil {
			return err
		}
		if err := p.hook(p.h.OnEndValueCollection(count, Invalid)); err != nil {
			return err
		}
		p.leave()
		return nil
	}

	elemType := types[0]
	if err := p.hook(p.h.OnBeginValueCollection(count, elemType)); err != nil {
		return err
	}
	for i := int32(0); i < count; i++ {
		p.push(segIndex, i)
		if err := p.hook(p.h.OnBeginElement(i)); err != nil {
			return err
		}
		if err := p.parseValue(elemType); err != nil {
			return err
		}
		if err := p.hook(p.h.OnEndElement(i)); err != nil {
			return err
		}
		p.pop()
	}
	if err := p.hook(p.h.OnEndValueCollection(count, elemType)); err != nil {
		return err
	}
	p.leave()
	return nil
}

func (p *Parser) parseKeyValueCollection() error {
	count, types, err := p.decodeCount(2)
	if err != nil {
		return err
	}
	if err := p.enter(); err != nil {
		return err
	}
	if count == absentCount {
		if err := p.hook(p.h.OnBeginKeyValueCollection(count, Invalid, Invalid)); err != nil {
			return err
		}
		if err := p.hook(p.h.OnEndKeyValueCollection(count, Invalid, Invalid)); err != nil {
			return err
		}
		p.leave()
		return nil
	}

	keyType, valueType := types[0], types[1]
	if err := p.hook(p.h.OnBeginKeyValueCollection(count, keyType, valueType)); err != nil {
		return err
	}
	for i := int32(0); i < count; i++ {
		p.push(segIndex, i)
		if err := p.hook(p.h.OnBeginElement(i)); err != nil {
			return err
		}

		p.push(segKey, i)
		if err := p.hook(p.h.OnBeginKey(i)); err != nil {
			return err
		}
		if err := p.parseValue(keyType); err != nil {
			return err
		}
		if err := p.hook(p.h.OnEndKey(i)); err != nil {
			return err
		}
		p.pop()

		if err := p.hook(p.h.OnBeginValue(i)); err != nil {
			return err
		}
		if err := p.parseValue(valueType); err != nil {
			return err
		}
		if err := p.hook(p.h.OnEndValue(i)); err != nil {
			return err
		}

		if err := p.hook(p.h.OnEndElement(i)); err != nil {
			return err
		}
		p.pop()
	}
	if err := p.hook(p.h.OnEndKeyValueCollection(count, keyType, valueType)); err != nil {
		return err
	}
	p.leave()
	return nil
}

func (p *Parser) enter() error {
	if p.depth >= p.d.cfg.MaxDepth {
		return &ParseError{Kind: ErrTooDeep, Offset: p.d.Offset(),
			Msg: fmt.Sprintf("maximum depth %d exceeded", p.d.cfg.MaxDepth)}
	}
	p.depth++
	return nil
}

func (p *Parser) leave() {
	p.depth--
}

func (p *Parser) push(kind segKind, n int32) {
	p.path = append(p.path, pathSeg{kind: kind, n: n})
}

func (p *Parser) pop() {
	p.path = p.path[:len(p.path)-1]
}

// hook converts a handler error into a ParseError of kind ErrHook.
func (p *Parser) hook(err error) error {
	if err == nil {
		return nil
	}
	return &ParseError{Kind: ErrHook, Offset: p.d.Offset(), Err: err}
}

func (p *Parser) grammarAt(offset int, format string, args ...interface{}) error {
	return &ParseError{Kind: ErrGrammar, Offset: offset, Msg: fmt.Sprintf(format, args...)}
}

// annotate attaches the member path of the failing node. Path segments are
// only popped on success, so p.path still describes the failure point.
func (p *Parser) annotate(err error) *ParseError {
	var perr *ParseError
	if !errors.As(err, &perr) {
		perr = &ParseError{Kind: ErrGrammar, Offset: p.d.Offset(), Err: err}
	}
	if perr.Path == nil && len(p.path) > 0 {
		perr.Path = p.Path()
	}
	return perr
}
