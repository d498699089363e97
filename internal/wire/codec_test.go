package wire

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScalarRoundTrip(t *testing.T) {
	e := NewEncoder()
	e.WriteUint8(0xAB)
	e.WriteUint16(0x1234)
	e.WriteUint32(0xDEADBEEF)
	e.WriteUint64(0x0102030405060708)
	e.WriteString("hello")

	d := NewDecoder(strings.NewReader(string(e.Bytes())))
	u8, err := d.ReadUint8()
	require.NoError(t, err)
	require.EqualValues(t, 0xAB, u8)

	u16, err := d.ReadUint16()
	require.NoError(t, err)
	require.EqualValues(t, 0x1234, u16)

	u32, err := d.ReadUint32()
	require.NoError(t, err)
	require.EqualValues(t, 0xDEADBEEF, u32)

	u64, err := d.ReadUint64()
	require.NoError(t, err)
	require.EqualValues(t, 0x0102030405060708, u64)

	s, err := d.ReadString()
	require.NoError(t, err)
	require.Equal(t, "hello", s)
}

func TestWriteStringRejectsOverlong(t *testing.T) {
	e := NewEncoder()
	long := strings.Repeat("x", 256)
	require.Panics(t, func() {
		e.WriteString(long)
	})
}

func TestDecodeExactTrailingBytes(t *testing.T) {
	e := NewEncoder()
	e.WriteUint8(1)
	data := append(e.Bytes(), 0xFF)

	_, err := DecodeExact(data, func(d *Decoder) (uint8, error) {
		return d.ReadUint8()
	})
	require.ErrorIs(t, err, ErrTrailingBytes)
}

func TestDecodeExactConsumesExactly(t *testing.T) {
	e := NewEncoder()
	e.WriteUint16(42)
	v, err := DecodeExact(e.Bytes(), func(d *Decoder) (uint16, error) {
		return d.ReadUint16()
	})
	require.NoError(t, err)
	require.EqualValues(t, 42, v)
}

func TestDecodeTruncatedIsMalformed(t *testing.T) {
	d := NewDecoder(strings.NewReader(""))
	_, err := d.ReadUint32()
	require.ErrorIs(t, err, ErrMalformedInput)
}

func TestSliceRoundTrip(t *testing.T) {
	e := NewEncoder()
	items := []uint16{1, 2, 3, 4}
	EncodeSlice(e, items, func(e *Encoder, v uint16) { e.WriteUint16(v) })

	d := NewDecoder(strings.NewReader(string(e.Bytes())))
	got, err := DecodeSlice(d, func(d *Decoder) (uint16, error) { return d.ReadUint16() })
	require.NoError(t, err)
	require.Equal(t, items, got)
}

func TestMapRoundTripSortsKeys(t *testing.T) {
	m := map[uint8]uint32{3: 30, 1: 10, 2: 20}
	e := NewEncoder()
	EncodeMap(e, m,
		func(a, b uint8) bool { return a < b },
		func(e *Encoder, k uint8) { e.WriteUint8(k) },
		func(e *Encoder, v uint32) { e.WriteUint32(v) },
	)

	// Encoding twice must be byte-identical regardless of Go's randomised
	// map iteration order.
	e2 := NewEncoder()
	EncodeMap(e2, m,
		func(a, b uint8) bool { return a < b },
		func(e *Encoder, k uint8) { e.WriteUint8(k) },
		func(e *Encoder, v uint32) { e.WriteUint32(v) },
	)
	require.Equal(t, e.Bytes(), e2.Bytes())

	d := NewDecoder(strings.NewReader(string(e.Bytes())))
	got, err := DecodeMap(d,
		func(d *Decoder) (uint8, error) { return d.ReadUint8() },
		func(d *Decoder) (uint32, error) { return d.ReadUint32() },
	)
	require.NoError(t, err)
	require.Equal(t, m, got)
}

func TestAvailableAfterPartialDecode(t *testing.T) {
	e := NewEncoder()
	e.WriteUint8(1)
	e.WriteUint8(2)
	bd := NewBufferDecoder(e.Bytes())
	_, err := bd.ReadUint8()
	require.NoError(t, err)
	require.Equal(t, 1, bd.Available())
}
