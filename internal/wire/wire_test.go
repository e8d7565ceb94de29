package wire

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"cobble/internal/slice"
)

// getYFrame is the on-the-wire encoding of `GET "Y"`.
var getYFrame = []byte{
	0x2A, 0x0D, 0x0A, // '*' CRLF
	0x24, 0x00, 0x00, 0x00, 0x03, 0x0D, 0x0A, // '$' len=3 CRLF
	0x47, 0x45, 0x54, 0x0D, 0x0A, // "GET" CRLF
	0x24, 0x00, 0x00, 0x00, 0x01, 0x0D, 0x0A, // '$' len=1 CRLF
	0x59, 0x0D, 0x0A, // "Y" CRLF
}

// valueGETFrame is a reply frame carrying the value "GET".
var valueGETFrame = []byte{
	0x24, 0x00, 0x00, 0x00, 0x03, 0x0D, 0x0A,
	0x47, 0x45, 0x54, 0x0D, 0x0A,
}

func TestParseOperationVector(t *testing.T) {
	p := NewParser(bytes.NewReader(getYFrame))

	op, err := p.Next()
	require.NoError(t, err)
	require.Equal(t, MethodGet, op.Method)
	require.Equal(t, []byte("Y"), op.Key.Data())

	// Clean EOF at the operation boundary.
	_, err = p.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestWriteOperationVector(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteOperation(Operation{
		Method: MethodGet,
		Key:    slice.FromString("Y"),
	}))
	require.Equal(t, getYFrame, buf.Bytes())
}

func TestWriteValueVector(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteValue(slice.FromString("GET")))
	require.Equal(t, valueGETFrame, buf.Bytes())
}

func TestEmptyValueFrame(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteValue(slice.Empty()))
	require.Equal(t, []byte{0x24, 0, 0, 0, 0, 0x0D, 0x0A, 0x0D, 0x0A}, buf.Bytes())

	v, err := NewParser(&buf).ReadValue()
	require.NoError(t, err)
	require.Zero(t, v.Len())
}

func TestOperationRoundTrip(t *testing.T) {
	ops := []Operation{
		{Method: MethodPut, Key: slice.FromString("a"), Value: slice.FromString("1")},
		{Method: MethodGet, Key: slice.FromString("a")},
		// Keys and values are opaque bytes; CRLF inside data must not
		// confuse the framing.
		{Method: MethodPut, Key: slice.From([]byte{0x0D, 0x0A, 0x24, 0x2A}), Value: slice.From([]byte{0, 1, 2, 0xFF})},
		{Method: MethodPut, Key: slice.FromString("empty-value"), Value: slice.Empty()},
	}

	var buf bytes.Buffer
	w := NewWriter(&buf)
	for _, op := range ops {
		require.NoError(t, w.WriteOperation(op))
	}

	p := NewParser(&buf)
	for _, want := range ops {
		got, err := p.Next()
		require.NoError(t, err)
		require.Equal(t, want.Method, got.Method)
		require.True(t, slice.Equal(want.Key, got.Key))
		require.True(t, slice.Equal(want.Value, got.Value))
	}
	_, err := p.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestParseBadOperationPrefix(t *testing.T) {
	p := NewParser(bytes.NewReader([]byte("x\r\n")))
	_, err := p.Next()
	require.ErrorIs(t, err, ErrBadPrefix)
}

func TestParseBadStringPrefix(t *testing.T) {
	frame := []byte{0x2A, 0x0D, 0x0A, 'x'}
	_, err := NewParser(bytes.NewReader(frame)).Next()
	require.ErrorIs(t, err, ErrBadPrefix)
}

func TestParseBadTerminator(t *testing.T) {
	frame := append([]byte{}, getYFrame...)
	frame[1] = 'X' // corrupt the CRLF after '*'
	_, err := NewParser(bytes.NewReader(frame)).Next()
	require.ErrorIs(t, err, ErrBadTerminator)
}

func TestParseUnknownMethod(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(0x2A)
	buf.Write([]byte{0x0D, 0x0A})
	buf.Write([]byte{0x24, 0, 0, 0, 3, 0x0D, 0x0A})
	buf.WriteString("DEL")
	buf.Write([]byte{0x0D, 0x0A})
	_, err := NewParser(&buf).Next()
	require.ErrorIs(t, err, ErrUnknownMethod)
}

func TestParseMethodNotUTF8(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(0x2A)
	buf.Write([]byte{0x0D, 0x0A})
	buf.Write([]byte{0x24, 0, 0, 0, 2, 0x0D, 0x0A})
	buf.Write([]byte{0xFF, 0xFE})
	buf.Write([]byte{0x0D, 0x0A})
	_, err := NewParser(&buf).Next()
	require.ErrorIs(t, err, ErrMethodEncoding)
}

func TestParseNegativeLength(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(0x2A)
	buf.Write([]byte{0x0D, 0x0A})
	buf.Write([]byte{0x24, 0xFF, 0xFF, 0xFF, 0xFF, 0x0D, 0x0A})
	_, err := NewParser(&buf).Next()
	require.ErrorIs(t, err, ErrNegativeLength)
}

func TestParseTruncatedFrame(t *testing.T) {
	// EOF anywhere inside a frame is a protocol error, not a clean
	// close.
	for cut := 1; cut < len(getYFrame); cut++ {
		_, err := NewParser(bytes.NewReader(getYFrame[:cut])).Next()
		require.Error(t, err, "cut at %d", cut)
		require.NotErrorIs(t, err, io.EOF, "cut at %d", cut)
	}
}

func TestParseEmptyStream(t *testing.T) {
	_, err := NewParser(bytes.NewReader(nil)).Next()
	require.ErrorIs(t, err, io.EOF)
}
