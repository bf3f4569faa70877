package wire

import (
	"fmt"
	"math"
)

// CollectionEncoder handles ValueCollection and KeyValueCollection encoding
type CollectionEncoder struct {
	encoder *Encoder
}

// NewCollectionEncoder creates a new collection encoder
func NewCollectionEncoder(e *Encoder) *CollectionEncoder {
	return &CollectionEncoder{encoder: e}
}

// absentCount is the count written for an absent (null) collection.
const absentCount = -1

// EncodeValueCollection writes count, element type and untagged element
// payloads. An absent collection is written as count -1 alone.
func (ce *CollectionEncoder) EncodeValueCollection(v Value) error {
	e := ce.encoder
	ve := NewVarintEncoder(e)
	if v.Null {
		if len(v.Elements) > 0 {
			return fmt.Errorf("absent collection cannot carry %d elements", len(v.Elements))
		}
		ve.EncodeInt32(absentCount)
		return nil
	}
	if err := checkElementType(v.ElemType); err != nil {
		return err
	}
	if len(v.Elements) > math.MaxInt32 {
		return fmt.Errorf("collection too long: %d elements", len(v.Elements))
	}

	ve.EncodeInt32(int32(len(v.Elements)))
	e.EncodeTag(v.ElemType)
	for i, elem := range v.Elements {
		if err := ce.encodeElement(v.ElemType, elem); err != nil {
			return WrapPath(err, indexSegment(i))
		}
	}
	return nil
}

// EncodeKeyValueCollection writes count, key and value types, then the
// interleaved key/value payloads.
func (ce *CollectionEncoder) EncodeKeyValueCollection(v Value) error {
	e := ce.encoder
	ve := NewVarintEncoder(e)
	if v.Null {
		if len(v.Entries) > 0 {
			return fmt.Errorf("absent collection cannot carry %d entries", len(v.Entries))
		}
		ve.EncodeInt32(absentCount)
		return nil
	}
	if err := checkElementType(v.KeyType); err != nil {
		return fmt.Errorf("key: %w", err)
	}
	if err := checkElementType(v.ElemType); err != nil {
		return fmt.Errorf("value: %w", err)
	}
	if len(v.Entries) > math.MaxInt32 {
		return fmt.Errorf("collection too long: %d entries", len(v.Entries))
	}

	ve.EncodeInt32(int32(len(v.Entries)))
	e.EncodeTag(v.KeyType)
	e.EncodeTag(v.ElemType)
	for i, entry := range v.Entries {
		if err := ce.encodeElement(v.KeyType, entry.Key); err != nil {
			return WrapPath(fmt.Errorf("key: %w", err), indexSegment(i))
		}
		if err := ce.encodeElement(v.ElemType, entry.Value); err != nil {
			return WrapPath(err, indexSegment(i))
		}
	}
	return nil
}

func (ce *CollectionEncoder) encodeElement(declared WireDataType, elem Value) error {
	if elem.Type != declared {
		return fmt.Errorf("element of type %v in collection of %v", elem.Type, declared)
	}
	return ce.encoder.encodePayload(elem)
}

func checkElementType(t WireDataType) error {
	if !t.IsValueType() {
		return fmt.Errorf("invalid element type %v", t)
	}
	return nil
}
