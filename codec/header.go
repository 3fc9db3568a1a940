package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/symcache/frozen"
	"github.com/hupe1980/symcache/internal/conv"
)

// HeaderSize is the fixed size of the stream header.
const HeaderSize = 24

// SlotSize is the encoded size of one slot offset.
const SlotSize = 8

// ErrCorrupt is returned for streams that cannot be a valid encoded map.
var ErrCorrupt = errors.New("codec: corrupt stream")

var le = binary.LittleEndian

// Header is the fixed stream header.
type Header struct {
	Anchor   uint64 // base address at encode time, only used as a relocation anchor
	Buckets  uint32
	Elements uint32
	Slots    uint64
}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorrupt, fmt.Sprintf(format, args...))
}

// ReadHeader reads and returns the stream header from r.
func ReadHeader(r io.Reader) (Header, error) {
	var h Header
	if err := binary.Read(r, le, &h); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Header{}, corrupt("short header")
		}
		return Header{}, err
	}
	return h, nil
}

func parseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, corrupt("short header: %d bytes", len(data))
	}
	return Header{
		Anchor:   le.Uint64(data[0:8]),
		Buckets:  le.Uint32(data[8:12]),
		Elements: le.Uint32(data[12:16]),
		Slots:    le.Uint64(data[16:24]),
	}, nil
}

// layout is a header checked against a stream length.
type layout struct {
	buckets    int
	elements   int
	slots      int
	tableEnd   int // offset of the payload
	payloadLen int
}

// Check validates the header against a stream of length n and returns the
// payload length.
func (h Header) Check(n int) (int, error) {
	l, err := h.layout(n)
	if err != nil {
		return 0, err
	}
	return l.payloadLen, nil
}

func (h Header) layout(n int) (layout, error) {
	if h.Buckets == 0 {
		return layout{}, corrupt("zero buckets")
	}
	if want := uint64(h.Buckets) + 2*uint64(h.Elements); h.Slots != want {
		return layout{}, corrupt("slot count %d, want %d", h.Slots, want)
	}

	bc, err := conv.Uint32ToInt(h.Buckets)
	if err != nil {
		return layout{}, corrupt("bucket count: %v", err)
	}
	ec, err := conv.Uint32ToInt(h.Elements)
	if err != nil {
		return layout{}, corrupt("element count: %v", err)
	}
	p, err := conv.Uint64ToInt(h.Slots)
	if err != nil {
		return layout{}, corrupt("slot count: %v", err)
	}
	tableEnd, err := conv.MulAdd(p, SlotSize, HeaderSize)
	if err != nil || tableEnd > n {
		return layout{}, corrupt("slot table of %d entries exceeds %d byte stream", p, n)
	}

	payloadLen := n - tableEnd
	minPayload, err := conv.MulAdd(bc, frozen.BucketHeaderSize, ec*frozen.ElementHeaderSize)
	if err != nil || payloadLen < minPayload {
		return layout{}, corrupt("payload of %d bytes shorter than %d header bytes", payloadLen, minPayload)
	}

	return layout{
		buckets:    bc,
		elements:   ec,
		slots:      p,
		tableEnd:   tableEnd,
		payloadLen: payloadLen,
	}, nil
}
