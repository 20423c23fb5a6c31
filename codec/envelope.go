package codec

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/hupe1980/coarsesearch/geom"
)

// Status flags published in the envelope round.
const (
	StatusOK           uint8 = 0
	StatusInvalidInput uint8 = 1
)

const (
	flagEmptyA = 1 << iota
	flagEmptyB
)

// envelopeSize: flags u8 | status u8 | 2 × box (6×f64) | countA u64 | countB u64 | budget i64.
const envelopeSize = 2 + 2*6*8 + 3*8

// Envelope is what a rank publishes about itself before any volume moves.
type Envelope struct {
	EnvA   geom.Box
	EnvB   geom.Box
	CountA uint64
	CountB uint64
	Status uint8
	// Budget is the exchange memory available to the rank in bytes, -1 if unlimited.
	Budget int64
}

// EncodeEnvelope returns an envelope frame.
func EncodeEnvelope(e Envelope) []byte {
	dst := putHeader(make([]byte, 0, headerSize+envelopeSize), KindEnvelope, CompressionNone, 1)

	var flags uint8
	if e.EnvA.Empty() {
		flags |= flagEmptyA
	}
	if e.EnvB.Empty() {
		flags |= flagEmptyB
	}
	dst = append(dst, flags, e.Status)
	dst = appendBox(dst, e.EnvA, flags&flagEmptyA != 0)
	dst = appendBox(dst, e.EnvB, flags&flagEmptyB != 0)
	dst = binary.LittleEndian.AppendUint64(dst, e.CountA)
	dst = binary.LittleEndian.AppendUint64(dst, e.CountB)
	return binary.LittleEndian.AppendUint64(dst, uint64(e.Budget))
}

// DecodeEnvelope decodes an envelope frame.
func DecodeEnvelope(data []byte) (Envelope, error) {
	_, count, body, err := readHeader(data, KindEnvelope)
	if err != nil {
		return Envelope{}, err
	}
	if count != 1 || len(body) != envelopeSize {
		return Envelope{}, fmt.Errorf("%w: envelope body of %d bytes", ErrCorrupt, len(body))
	}

	flags := body[0]
	e := Envelope{Status: body[1]}
	e.EnvA = readBox(body[2:], flags&flagEmptyA != 0)
	e.EnvB = readBox(body[50:], flags&flagEmptyB != 0)
	e.CountA = binary.LittleEndian.Uint64(body[98:])
	e.CountB = binary.LittleEndian.Uint64(body[106:])
	e.Budget = int64(binary.LittleEndian.Uint64(body[114:]))
	return e, nil
}

func appendBox(dst []byte, b geom.Box, empty bool) []byte {
	if empty {
		return append(dst, make([]byte, 6*8)...)
	}
	for _, f := range b.Min {
		dst = binary.LittleEndian.AppendUint64(dst, math.Float64bits(f))
	}
	for _, f := range b.Max {
		dst = binary.LittleEndian.AppendUint64(dst, math.Float64bits(f))
	}
	return dst
}

func readBox(b []byte, empty bool) geom.Box {
	if empty {
		return geom.EmptyBox()
	}
	var box geom.Box
	for d := 0; d < 3; d++ {
		box.Min[d] = math.Float64frombits(binary.LittleEndian.Uint64(b[8*d:]))
		box.Max[d] = math.Float64frombits(binary.LittleEndian.Uint64(b[24+8*d:]))
	}
	return box
}

// EncodeCounts returns a counts frame holding one entry per destination rank.
func EncodeCounts(counts []uint64) []byte {
	dst := putHeader(make([]byte, 0, headerSize+8*len(counts)), KindCounts, CompressionNone, uint32(len(counts)))
	for _, c := range counts {
		dst = binary.LittleEndian.AppendUint64(dst, c)
	}
	return dst
}

// DecodeCounts decodes a counts frame.
func DecodeCounts(data []byte) ([]uint64, error) {
	_, count, body, err := readHeader(data, KindCounts)
	if err != nil {
		return nil, err
	}
	if len(body) != 8*count {
		return nil, fmt.Errorf("%w: %d count bytes for %d entries", ErrCorrupt, len(body), count)
	}
	out := make([]uint64, count)
	for i := range out {
		out[i] = binary.LittleEndian.Uint64(body[8*i:])
	}
	return out, nil
}
