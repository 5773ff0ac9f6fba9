package fsw_test

import (
	"testing"

	"github.com/refitfs/gofsw/fsw"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func iso(s string) fsw.String { return fsw.NewISO88591([]byte(s)) }

func utf16le(s string) fsw.String {
	b := make([]byte, 0, len(s)*2)
	for i := 0; i < len(s); i++ {
		b = append(b, s[i], 0)
	}
	return fsw.String{Encoding: fsw.EncodingUTF16LE, CharCount: len(s), Data: b}
}

func TestStringEqualSameEncoding(t *testing.T) {
	assert.True(t, iso("hello").Equal(iso("hello")))
	assert.False(t, iso("hello").Equal(iso("world")))
}

func TestStringEqualISO88591CrossesUTF16LE(t *testing.T) {
	assert.True(t, iso("hello").Equal(utf16le("hello")))
	assert.True(t, utf16le("hello").Equal(iso("hello")))
	assert.False(t, iso("hello").Equal(utf16le("world")))
}

func TestStringEqualUTF8CrossEncodingUnsupported(t *testing.T) {
	u8 := fsw.String{Encoding: fsw.EncodingUTF8, CharCount: 5, Data: []byte("hello")}
	assert.False(t, u8.Equal(iso("hello")), "UTF-8 cross-encoding comparison is not implemented, per the reference driver")
}

func TestStringEmptyEqualsEmptyRegardlessOfEncoding(t *testing.T) {
	a := fsw.String{Encoding: fsw.EncodingISO88591}
	b := fsw.String{Encoding: fsw.EncodingUTF16LE}
	assert.True(t, a.Equal(b))
}

func TestStringEqualCString(t *testing.T) {
	assert.True(t, iso(".").EqualCString("."))
	assert.True(t, utf16le("..").EqualCString(".."))
	assert.False(t, iso("a").EqualCString("b"))
}

func TestStringDuplicateCoercedWidensISOToUTF16(t *testing.T) {
	out, err := iso("ab").DuplicateCoerced(fsw.EncodingUTF16LE)
	require.NoError(t, err)
	assert.Equal(t, fsw.EncodingUTF16LE, out.Encoding)
	assert.True(t, out.Equal(utf16le("ab")))
}

func TestStringSplitISO88591(t *testing.T) {
	head, rest, err := fsw.Split(iso("usr/bin"), '/')
	require.NoError(t, err)
	assert.True(t, head.Equal(iso("usr")))
	assert.True(t, rest.Equal(iso("bin")))
}

func TestStringSplitNoSeparator(t *testing.T) {
	head, rest, err := fsw.Split(iso("usr"), '/')
	require.NoError(t, err)
	assert.True(t, head.Equal(iso("usr")))
	assert.True(t, rest.IsEmpty())
}
