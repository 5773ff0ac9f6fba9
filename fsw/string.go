package fsw

import (
	"bytes"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Encoding identifies how a String's byte payload is laid out, mirroring
// the fsw_string encoding tags. There is no generic UTF-8 transcoding path
// to the other encodings; cross-encoding comparisons beyond ISO-8859-1 and
// UTF-16LE are deliberately left unimplemented (see Equal).
type Encoding int

const (
	EncodingEmpty Encoding = iota
	EncodingISO88591
	EncodingUTF8
	EncodingUTF16LE
)

// String is an encoded text value as produced by a driver straight off
// disk: a character count, an encoding tag and the raw bytes, without ever
// being forced through a single canonical representation.
type String struct {
	Encoding  Encoding
	CharCount int
	Data      []byte
}

// Len returns the string's length in characters (not bytes).
func (s String) Len() int {
	return s.CharCount
}

// IsEmpty reports whether the string has no characters, regardless of its
// encoding tag (an EncodingISO88591 string of CharCount 0 is empty too).
func (s String) IsEmpty() bool {
	return s.CharCount == 0
}

// Equal compares two encoded strings for equality. Same-encoding strings
// compare by raw bytes. ISO-8859-1 against UTF-16LE is supported in both
// directions by widening the ISO-8859-1 side. Any other cross-encoding
// combination (ISO-8859-1 vs UTF-8, UTF-8 vs UTF-16LE) is not implemented
// and always compares unequal, matching the reference implementation's
// TODO-marked stubs.
func (a String) Equal(b String) bool {
	if a.IsEmpty() || b.IsEmpty() {
		return a.IsEmpty() && b.IsEmpty()
	}
	if a.Encoding == b.Encoding {
		return bytes.Equal(a.Data, b.Data)
	}
	if a.Encoding == EncodingISO88591 && b.Encoding == EncodingUTF16LE {
		return iso88591EqualsUTF16LE(a, b)
	}
	if a.Encoding == EncodingUTF16LE && b.Encoding == EncodingISO88591 {
		return iso88591EqualsUTF16LE(b, a)
	}
	return false
}

func iso88591EqualsUTF16LE(iso, u16 String) bool {
	if iso.CharCount != u16.CharCount {
		return false
	}
	if len(u16.Data) < u16.CharCount*2 {
		return false
	}
	for i := 0; i < iso.CharCount; i++ {
		lo := u16.Data[i*2]
		hi := u16.Data[i*2+1]
		if hi != 0 || lo != iso.Data[i] {
			return false
		}
	}
	return true
}

// EqualCString compares an encoded String against a NUL-terminated, ASCII,
// native-Go string literal (used for matching fixed names like "." and
// "..").
func (s String) EqualCString(cstr string) bool {
	switch s.Encoding {
	case EncodingEmpty:
		return cstr == ""
	case EncodingISO88591, EncodingUTF8:
		return s.CharCount == len(cstr) && string(s.Data[:s.CharCount]) == cstr
	case EncodingUTF16LE:
		if s.CharCount != len(cstr) {
			return false
		}
		for i := 0; i < s.CharCount; i++ {
			lo := s.Data[i*2]
			hi := s.Data[i*2+1]
			if hi != 0 || lo != cstr[i] {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// DuplicateCoerced returns a copy of s re-encoded as target. Same-encoding
// duplication is a plain copy. ISO-8859-1 can be widened to UTF-16LE.
// Coercions the drivers never need (anything landing on EncodingUTF8, or
// narrowing UTF-16LE) return ErrUnsupported, matching the reference
// implementation's coverage.
func (s String) DuplicateCoerced(target Encoding) (String, error) {
	if s.Encoding == target || s.IsEmpty() {
		out := make([]byte, len(s.Data))
		copy(out, s.Data)
		return String{Encoding: s.Encoding, CharCount: s.CharCount, Data: out}, nil
	}
	if s.Encoding == EncodingISO88591 && target == EncodingUTF16LE {
		out := make([]byte, s.CharCount*2)
		for i := 0; i < s.CharCount; i++ {
			out[i*2] = s.Data[i]
			out[i*2+1] = 0
		}
		return String{Encoding: EncodingUTF16LE, CharCount: s.CharCount, Data: out}, nil
	}
	return String{}, ErrUnsupported
}

// Split removes the first path component from s, returning it along with
// the remainder (past the separator, if one was found). An empty remainder
// with a nil error at the end of the string means the final component had
// no trailing separator.
func Split(s String, separator byte) (head, rest String, err error) {
	switch s.Encoding {
	case EncodingEmpty:
		return s, s, nil
	case EncodingISO88591, EncodingUTF8:
		idx := bytes.IndexByte(s.Data[:s.CharCount], separator)
		if idx < 0 {
			return s, String{Encoding: s.Encoding}, nil
		}
		head = String{Encoding: s.Encoding, CharCount: idx, Data: s.Data[:idx]}
		rest = String{Encoding: s.Encoding, CharCount: s.CharCount - idx - 1, Data: s.Data[idx+1 : s.CharCount]}
		return head, rest, nil
	case EncodingUTF16LE:
		for i := 0; i < s.CharCount; i++ {
			lo := s.Data[i*2]
			hi := s.Data[i*2+1]
			if hi == 0 && lo == separator {
				head = String{Encoding: EncodingUTF16LE, CharCount: i, Data: s.Data[:i*2]}
				rest = String{Encoding: EncodingUTF16LE, CharCount: s.CharCount - i - 1, Data: s.Data[(i+1)*2 : s.CharCount*2]}
				return head, rest, nil
			}
		}
		return s, String{Encoding: EncodingUTF16LE}, nil
	default:
		return String{}, String{}, ErrUnsupported
	}
}

// GoString renders s as a native Go string for display purposes only (CLI
// output, log lines) — never for comparison logic, which must stay on the
// Equal/EqualCString paths above. ISO-8859-1 and UTF-16LE are transcoded
// through golang.org/x/text; UTF-8 passes through unchanged.
func (s String) GoString() string {
	switch s.Encoding {
	case EncodingEmpty:
		return ""
	case EncodingUTF8:
		return string(s.Data[:s.CharCount])
	case EncodingISO88591:
		out, err := charmap.ISO8859_1.NewDecoder().Bytes(s.Data[:s.CharCount])
		if err != nil {
			return string(s.Data[:s.CharCount])
		}
		return string(out)
	case EncodingUTF16LE:
		dec := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
		out, err := dec.Bytes(s.Data[:s.CharCount*2])
		if err != nil {
			return "?"
		}
		return string(out)
	default:
		return ""
	}
}

// NewISO88591 builds a String over an ISO-8859-1 byte slice, as used for
// fixed on-disk labels (ext2/ReiserFS volume labels, directory entry
// names).
func NewISO88591(b []byte) String {
	return String{Encoding: EncodingISO88591, CharCount: len(b), Data: b}
}
