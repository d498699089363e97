// Package wire implements the deterministic binary codec shared by every
// message family on both the server<->client stream and the client<->display
// datagram. All integers are unsigned, big-endian; strings carry a u8 length
// prefix; sequences and maps carry a u32 length prefix. See the protocol
// package for the typed message schema built on top of these primitives.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// ErrMalformedInput is returned whenever a decode cannot complete because the
// source ran out of bytes or carried an unknown tagged-sum discriminant.
var ErrMalformedInput = errors.New("wire: malformed input")

// ErrTrailingBytes is returned by DecodeExact when a buffer carries bytes
// past the end of the value it decoded.
var ErrTrailingBytes = errors.New("wire: trailing bytes after value")

// ErrStringTooLong is wrapped into the panic the encoder raises when asked to
// write a string longer than 255 bytes; the wire format's length prefix
// cannot carry more.
var ErrStringTooLong = errors.New("wire: string exceeds 255 bytes")

// Encoder accumulates a single message's bytes so that the whole value can be
// handed to the transport as one atomic write.
type Encoder struct {
	buf bytes.Buffer
}

// NewEncoder returns an empty encoder ready for writes.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Bytes returns the accumulated, encoded value.
func (e *Encoder) Bytes() []byte {
	return e.buf.Bytes()
}

// Reset drains the encoder so its buffer can be reused for the next message.
func (e *Encoder) Reset() {
	e.buf.Reset()
}

func (e *Encoder) WriteUint8(v uint8) {
	e.buf.WriteByte(v)
}

func (e *Encoder) WriteUint16(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	e.buf.Write(b[:])
}

func (e *Encoder) WriteUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	e.buf.Write(b[:])
}

func (e *Encoder) WriteUint64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	e.buf.Write(b[:])
}

// WriteString writes the u8 length prefix followed by the raw bytes. It
// panics if len(v) > 255: callers are expected to validate string length at
// the domain boundary (see protocol.ValidateName) rather than rely on the
// encoder to reject it silently deep in a message tree.
func (e *Encoder) WriteString(v string) {
	if len(v) > math.MaxUint8 {
		panic(fmt.Errorf("%w: length %d", ErrStringTooLong, len(v)))
	}
	e.WriteUint8(uint8(len(v)))
	e.buf.WriteString(v)
}

// WriteRaw writes bytes verbatim, with no length prefix.
func (e *Encoder) WriteRaw(b []byte) {
	e.buf.Write(b)
}

// EncodeSlice writes the u32 length prefix followed by each element encoded
// in order; order is preserved, giving deterministic encode for slices.
func EncodeSlice[T any](e *Encoder, items []T, encodeElem func(*Encoder, T)) {
	e.WriteUint32(uint32(len(items)))
	for _, item := range items {
		encodeElem(e, item)
	}
}

// EncodeSortedSet writes a "set" field: it sorts a copy of items with less
// before encoding so that the same logical set always serialises to the same
// bytes, regardless of how the set was built up (map iteration order is not
// sorted in Go, so anything that started life as a map key set must flow
// through this instead of EncodeSlice).
func EncodeSortedSet[T any](e *Encoder, items []T, less func(a, b T) bool, encodeElem func(*Encoder, T)) {
	sorted := make([]T, len(items))
	copy(sorted, items)
	insertionSort(sorted, less)
	EncodeSlice(e, sorted, encodeElem)
}

func insertionSort[T any](items []T, less func(a, b T) bool) {
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && less(items[j], items[j-1]); j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
}

// EncodeMap writes the u32 length prefix followed by sorted key/value pairs.
// Keys are sorted before encoding for the same reason EncodeSortedSet sorts:
// Go map iteration order is randomised, but the wire contract requires
// deterministic encoding of the same logical value.
func EncodeMap[K comparable, V any](e *Encoder, m map[K]V, less func(a, b K) bool, encodeKey func(*Encoder, K), encodeVal func(*Encoder, V)) {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	insertionSort(keys, less)
	e.WriteUint32(uint32(len(keys)))
	for _, k := range keys {
		encodeKey(e, k)
		encodeVal(e, m[k])
	}
}

// Decoder reads a value from an io.Reader, pulling exactly as many bytes as
// each field needs. Against a stream socket this blocks until the peer has
// sent enough bytes to complete the current value, matching the framing
// contract in spec §4.2. Against a bounded in-memory buffer (see
// BufferDecoder) it simply runs out and reports ErrMalformedInput once the
// buffer is exhausted.
type Decoder struct {
	r io.Reader
}

// NewDecoder wraps r for field-at-a-time decoding.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

func (d *Decoder) fill(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(d.r, b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	return b, nil
}

func (d *Decoder) ReadUint8() (uint8, error) {
	b, err := d.fill(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *Decoder) ReadUint16() (uint16, error) {
	b, err := d.fill(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (d *Decoder) ReadUint32() (uint32, error) {
	b, err := d.fill(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (d *Decoder) ReadUint64() (uint64, error) {
	b, err := d.fill(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (d *Decoder) ReadString() (string, error) {
	n, err := d.ReadUint8()
	if err != nil {
		return "", err
	}
	b, err := d.fill(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeSlice reads the u32 length prefix then that many elements in order.
// An empty sequence decodes to a nil slice.
func DecodeSlice[T any](d *Decoder, decodeElem func(*Decoder) (T, error)) ([]T, error) {
	n, err := d.ReadUint32()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	items := make([]T, 0, n)
	for i := uint32(0); i < n; i++ {
		v, err := decodeElem(d)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, nil
}

// DecodeMap reads the u32 length prefix then that many key/value pairs.
func DecodeMap[K comparable, V any](d *Decoder, decodeKey func(*Decoder) (K, error), decodeVal func(*Decoder) (V, error)) (map[K]V, error) {
	n, err := d.ReadUint32()
	if err != nil {
		return nil, err
	}
	m := make(map[K]V, n)
	for i := uint32(0); i < n; i++ {
		k, err := decodeKey(d)
		if err != nil {
			return nil, err
		}
		v, err := decodeVal(d)
		if err != nil {
			return nil, err
		}
		m[k] = v
	}
	return m, nil
}

// BufferDecoder decodes against a fixed, bounded byte slice (one UDP
// datagram's worth) and exposes Available so a caller can enforce the
// "no trailing bytes" rule required of datagram decoding.
type BufferDecoder struct {
	*Decoder
	r *bytes.Reader
}

// NewBufferDecoder wraps data for decoding with a trailing-byte check.
func NewBufferDecoder(data []byte) *BufferDecoder {
	r := bytes.NewReader(data)
	return &BufferDecoder{Decoder: NewDecoder(r), r: r}
}

// Available reports how many bytes remain unconsumed.
func (b *BufferDecoder) Available() int {
	return b.r.Len()
}

// DecodeExact runs decodeFn against data and additionally requires that it
// consume every byte; any remainder is reported as ErrTrailingBytes. This is
// the datagram-side contract from spec §4.2 and §8.
func DecodeExact[T any](data []byte, decodeFn func(*Decoder) (T, error)) (T, error) {
	bd := NewBufferDecoder(data)
	v, err := decodeFn(bd.Decoder)
	if err != nil {
		var zero T
		return zero, err
	}
	if bd.Available() != 0 {
		var zero T
		return zero, fmt.Errorf("%w: %d bytes left", ErrTrailingBytes, bd.Available())
	}
	return v, nil
}

// WriteMessage encodes v with encodeFn and writes the whole result to w in
// one call, so a complete message hits the wire atomically.
func WriteMessage(w io.Writer, encodeFn func(*Encoder)) error {
	e := NewEncoder()
	encodeFn(e)
	_, err := w.Write(e.Bytes())
	return err
}
