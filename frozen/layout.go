package frozen

import (
	"encoding/binary"
	"errors"
)

const (
	// BucketHeaderSize is the encoded size of one bucket header.
	BucketHeaderSize = 16
	// ElementHeaderSize is the encoded size of one element header.
	ElementHeaderSize = 16
)

var (
	// ErrNoBuckets is returned when freezing a table without buckets.
	ErrNoBuckets = errors.New("frozen: table has no buckets")
	// ErrInvalid is returned by Adopt for buffers that fail validation.
	ErrInvalid = errors.New("frozen: invalid map")
)

var le = binary.LittleEndian

type bucketHeader struct {
	data uint64
	size uint32
	cap  uint32
}

func readBucket(buf []byte, i int) bucketHeader {
	p := buf[i*BucketHeaderSize:]
	return bucketHeader{
		data: le.Uint64(p[0:8]),
		size: le.Uint32(p[8:12]),
		cap:  le.Uint32(p[12:16]),
	}
}

func writeBucket(buf []byte, i int, h bucketHeader) {
	p := buf[i*BucketHeaderSize:]
	le.PutUint64(p[0:8], h.data)
	le.PutUint32(p[8:12], h.size)
	le.PutUint32(p[12:16], h.cap)
}

// elementsStart is the offset of the element header array.
func elementsStart(buckets int) int {
	return buckets * BucketHeaderSize
}

// stringsStart is the offset of the string area.
func stringsStart(buckets, elements int) int {
	return buckets*BucketHeaderSize + elements*ElementHeaderSize
}
