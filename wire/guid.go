package wire

import "github.com/google/uuid"

// DecodeGuid reads a 128-bit MetaGuid in RFC 4122 byte order.
func (d *Decoder) DecodeGuid() (uuid.UUID, error) {
	b, err := d.take(16)
	if err != nil {
		return uuid.Nil, err
	}
	var g uuid.UUID
	copy(g[:], b)
	return g, nil
}

// EncodeGuid appends g as 16 raw bytes.
func (e *Encoder) EncodeGuid(g uuid.UUID) {
	e.buf = append(e.buf, g[:]...)
}
