package codec

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/hupe1980/symcache/frozen"
)

// EncodedSize returns the number of bytes Encode writes for m.
func EncodedSize(m *frozen.Map) int {
	return HeaderSize + m.SlotCount()*SlotSize + m.Size()
}

// Encode writes m to w and returns the number of bytes written.
func Encode(w io.Writer, m *frozen.Map) (int64, error) {
	h := Header{
		Anchor:   m.Base(),
		Buckets:  uint32(m.BucketCount()), //nolint:gosec // checked by frozen.Freeze
		Elements: uint32(m.Len()),         //nolint:gosec // checked by frozen.Freeze
		Slots:    uint64(m.SlotCount()),
	}
	if err := binary.Write(w, le, &h); err != nil {
		return 0, err
	}
	n := int64(HeaderSize)

	slots := m.Slots()
	if err := binary.Write(w, le, slots); err != nil {
		return n, err
	}
	n += int64(len(slots) * SlotSize)

	written, err := w.Write(m.Bytes())
	n += int64(written)
	return n, err
}

// Marshal returns the encoded form of m.
func Marshal(m *frozen.Map) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(EncodedSize(m))
	if _, err := Encode(&buf, m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
