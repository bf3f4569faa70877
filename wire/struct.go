package wire

import "fmt"

// StructEncoder handles struct body encoding operations
type StructEncoder struct {
	encoder *Encoder
}

// NewStructEncoder creates a new struct encoder
func NewStructEncoder(e *Encoder) *StructEncoder {
	return &StructEncoder{encoder: e}
}

// EncodeBody writes members in the given order followed by EndStruct.
func (se *StructEncoder) EncodeBody(members []Member) error {
	e := se.encoder
	ve := NewVarintEncoder(e)
	for _, m := range members {
		if m.TagID < 0 {
			return WrapPath(fmt.Errorf("negative tag id %d", m.TagID), memberSegment(m.TagID))
		}
		if !m.Value.Type.IsValueType() {
			return WrapPath(fmt.Errorf("%v cannot be a member type", m.Value.Type), memberSegment(m.TagID))
		}
		e.EncodeTag(m.Value.Type)
		ve.EncodeInt32(m.TagID)
		if err := e.encodePayload(m.Value); err != nil {
			return WrapPath(err, memberSegment(m.TagID))
		}
	}
	e.EncodeTag(EndStruct)
	return nil
}

// EncodeAbstract writes a type code and, for a positive code, the struct body.
// Code 0 is the null abstract value and must not carry members.
func (se *StructEncoder) EncodeAbstract(typeCode int32, members []Member) error {
	switch {
	case typeCode < 0:
		return fmt.Errorf("negative abstract type code %d", typeCode)
	case typeCode == 0 && len(members) > 0:
		return fmt.Errorf("null abstract value cannot carry %d members", len(members))
	}
	NewVarintEncoder(se.encoder).EncodeInt32(typeCode)
	if typeCode == 0 {
		return nil
	}
	return se.EncodeBody(members)
}
