// Package codec implements the wire format exchanged between ranks.
//
// Every message is a frame:
//
//	magic u16 | version u8 | kind u8 | compression u8 | count u32 | body
//
// Item and pair bodies are fixed-size little-endian records, optionally wrapped in
// one LZ4 or ZSTD block. Envelope and count frames are never compressed.
//
// The format is a breaking-change boundary: every rank of a group must run the
// same version.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/hupe1980/coarsesearch/core"
	"github.com/hupe1980/coarsesearch/geom"
	"github.com/hupe1980/coarsesearch/internal/conv"
)

// ErrCorrupt is returned when a frame cannot be decoded.
var ErrCorrupt = errors.New("corrupt frame")

const (
	magic   uint16 = 0x4353 // "CS"
	version uint8  = 1

	headerSize = 9

	// ItemSize is the encoded size of one tagged volume:
	// kind u8 | 3×f64 centre-or-min | 3×f64 max | f64 radius | u64 id | i32 proc.
	ItemSize = 1 + 3*8 + 3*8 + 8 + 8 + 4

	// PairSize is the encoded size of one pair: 2 × (u64 id | i32 proc).
	PairSize = 2 * (8 + 4)
)

// Kind identifies the payload of a frame.
type Kind uint8

const (
	KindEnvelope Kind = iota + 1
	KindCounts
	KindItems
	KindPairs
)

func (k Kind) String() string {
	switch k {
	case KindEnvelope:
		return "envelope"
	case KindCounts:
		return "counts"
	case KindItems:
		return "items"
	case KindPairs:
		return "pairs"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

func appendHeader(dst []byte, k Kind, c Compression, count int) ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s frame: %w", k, err)
	}
	n, err := conv.IntToUint32(count)
	if err != nil {
		return nil, fmt.Errorf("%s frame: %w", k, err)
	}
	return putHeader(dst, k, c, n), nil
}

func putHeader(dst []byte, k Kind, c Compression, count uint32) []byte {
	dst = binary.LittleEndian.AppendUint16(dst, magic)
	dst = append(dst, version, byte(k), byte(c))
	return binary.LittleEndian.AppendUint32(dst, count)
}

func readHeader(data []byte, want Kind) (Compression, int, []byte, error) {
	if len(data) < headerSize {
		return 0, 0, nil, fmt.Errorf("%w: %d bytes is shorter than a header", ErrCorrupt, len(data))
	}
	if m := binary.LittleEndian.Uint16(data); m != magic {
		return 0, 0, nil, fmt.Errorf("%w: bad magic %#x", ErrCorrupt, m)
	}
	if data[2] != version {
		return 0, 0, nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, data[2])
	}
	if k := Kind(data[3]); k != want {
		return 0, 0, nil, fmt.Errorf("%w: got %s frame, want %s", ErrCorrupt, k, want)
	}
	c := Compression(data[4])
	if c > CompressionZSTD {
		return 0, 0, nil, fmt.Errorf("%w: unknown compression %d", ErrCorrupt, data[4])
	}
	count := int(binary.LittleEndian.Uint32(data[5:]))
	return c, count, data[headerSize:], nil
}

// EncodedItemsSize returns the uncompressed frame size of n items.
func EncodedItemsSize(n int) int { return headerSize + blockHeaderSize + n*ItemSize }

// EncodedPairsSize returns the uncompressed frame size of n pairs.
func EncodedPairsSize(n int) int { return headerSize + blockHeaderSize + n*PairSize }

// AppendItems appends an item frame holding items to dst.
func AppendItems(dst []byte, items []core.Item, c Compression) ([]byte, error) {
	dst, err := appendHeader(dst, KindItems, c, len(items))
	if err != nil {
		return nil, err
	}
	raw := make([]byte, 0, len(items)*ItemSize)
	for i := range items {
		if raw, err = appendItem(raw, &items[i]); err != nil {
			return nil, err
		}
	}
	if c == CompressionNone {
		return append(dst, raw...), nil
	}
	return appendBlock(dst, raw, c)
}

// EncodeItems returns an item frame holding items.
func EncodeItems(items []core.Item, c Compression) ([]byte, error) {
	return AppendItems(make([]byte, 0, EncodedItemsSize(len(items))), items, c)
}

// DecodeItems decodes an item frame and appends the items to dst.
func DecodeItems(dst []core.Item, data []byte) ([]core.Item, error) {
	c, count, body, err := readHeader(data, KindItems)
	if err != nil {
		return nil, err
	}
	if c != CompressionNone {
		if body, err = readBlock(body, c); err != nil {
			return nil, err
		}
	}
	if len(body) != count*ItemSize {
		return nil, fmt.Errorf("%w: %d item bytes for %d items", ErrCorrupt, len(body), count)
	}
	for i := 0; i < count; i++ {
		it, err := readItem(body[i*ItemSize:])
		if err != nil {
			return nil, err
		}
		dst = append(dst, it)
	}
	return dst, nil
}

func appendItem(dst []byte, it *core.Item) ([]byte, error) {
	v := &it.Volume
	dst = append(dst, byte(v.Kind))
	var lo, hi [3]float64
	switch v.Kind {
	case geom.KindBox:
		lo, hi = v.Min, v.Max
	default:
		lo = v.Center
	}
	for _, f := range lo {
		dst = binary.LittleEndian.AppendUint64(dst, math.Float64bits(f))
	}
	for _, f := range hi {
		dst = binary.LittleEndian.AppendUint64(dst, math.Float64bits(f))
	}
	dst = binary.LittleEndian.AppendUint64(dst, math.Float64bits(v.Radius))
	return appendIdent(dst, it.Ident)
}

func readItem(b []byte) (core.Item, error) {
	var it core.Item
	kind := geom.Kind(b[0])
	var lo, hi [3]float64
	for d := 0; d < 3; d++ {
		lo[d] = math.Float64frombits(binary.LittleEndian.Uint64(b[1+8*d:]))
		hi[d] = math.Float64frombits(binary.LittleEndian.Uint64(b[25+8*d:]))
	}
	radius := math.Float64frombits(binary.LittleEndian.Uint64(b[49:]))

	switch kind {
	case geom.KindPoint:
		it.Volume = geom.NewPoint(lo)
	case geom.KindSphere:
		it.Volume = geom.NewSphere(lo, radius)
	case geom.KindBox:
		it.Volume = geom.NewBox(lo, hi)
	default:
		return core.Item{}, fmt.Errorf("%w: unknown volume kind %d", ErrCorrupt, kind)
	}
	it.Ident = readIdent(b[57:])
	return it, nil
}

func appendIdent(dst []byte, id core.Ident) ([]byte, error) {
	proc, err := conv.IntToInt32(id.Proc)
	if err != nil {
		return nil, fmt.Errorf("ident %s: %w", id, err)
	}
	dst = binary.LittleEndian.AppendUint64(dst, id.ID)
	return binary.LittleEndian.AppendUint32(dst, uint32(proc)), nil
}

func readIdent(b []byte) core.Ident {
	return core.Ident{
		ID:   binary.LittleEndian.Uint64(b),
		Proc: int(int32(binary.LittleEndian.Uint32(b[8:]))),
	}
}

// EncodePairs returns a pair frame holding pairs.
func EncodePairs(pairs []core.Pair, c Compression) ([]byte, error) {
	dst, err := appendHeader(make([]byte, 0, EncodedPairsSize(len(pairs))), KindPairs, c, len(pairs))
	if err != nil {
		return nil, err
	}
	raw := make([]byte, 0, len(pairs)*PairSize)
	for _, p := range pairs {
		if raw, err = appendIdent(raw, p.A); err != nil {
			return nil, err
		}
		if raw, err = appendIdent(raw, p.B); err != nil {
			return nil, err
		}
	}
	if c == CompressionNone {
		return append(dst, raw...), nil
	}
	return appendBlock(dst, raw, c)
}

// DecodePairs decodes a pair frame and appends the pairs to dst.
func DecodePairs(dst []core.Pair, data []byte) ([]core.Pair, error) {
	c, count, body, err := readHeader(data, KindPairs)
	if err != nil {
		return nil, err
	}
	if c != CompressionNone {
		if body, err = readBlock(body, c); err != nil {
			return nil, err
		}
	}
	if len(body) != count*PairSize {
		return nil, fmt.Errorf("%w: %d pair bytes for %d pairs", ErrCorrupt, len(body), count)
	}
	for i := 0; i < count; i++ {
		rec := body[i*PairSize:]
		dst = append(dst, core.Pair{A: readIdent(rec), B: readIdent(rec[12:])})
	}
	return dst, nil
}
