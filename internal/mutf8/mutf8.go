// Package mutf8 implements the modified UTF-8 text encoding used by the
// tag wire format: NUL is written as the two bytes C0 80 and characters
// outside the Basic Multilingual Plane are written as a UTF-16 surrogate
// pair, each half in its own three byte sequence.
package mutf8

import (
	"errors"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// ErrInvalid is returned when decoding a byte sequence that is not valid
// modified UTF-8.
var ErrInvalid = errors.New("mutf8: invalid byte sequence")

// Encoding converts between UTF-8 (Go strings) and modified UTF-8.
var Encoding encoding.Encoding = mutf8Encoding{}

type mutf8Encoding struct{}

func (mutf8Encoding) NewDecoder() *encoding.Decoder {
	return &encoding.Decoder{Transformer: decoder{}}
}

func (mutf8Encoding) NewEncoder() *encoding.Encoder {
	return &encoding.Encoder{Transformer: encoder{}}
}

func (mutf8Encoding) String() string { return "modified UTF-8" }

// Decode converts modified UTF-8 bytes to a Go string.
func Decode(b []byte) (string, error) {
	if isPlainASCII(b) {
		return string(b), nil
	}
	out, _, err := transform.Bytes(decoder{}, b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Encode converts a Go string to modified UTF-8 bytes.
func Encode(s string) []byte {
	if isPlainASCIIString(s) {
		return []byte(s)
	}
	out := make([]byte, 0, EncodedLen(s))
	var buf [6]byte
	for _, r := range s {
		n := encodeRune(buf[:], r)
		out = append(out, buf[:n]...)
	}
	return out
}

// EncodedLen reports how many bytes Encode(s) produces.
func EncodedLen(s string) int {
	n := 0
	for _, r := range s {
		n += runeLen(r)
	}
	return n
}

func isPlainASCII(b []byte) bool {
	for _, c := range b {
		if c >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func isPlainASCIIString(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == 0 || s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func runeLen(r rune) int {
	switch {
	case r == 0:
		return 2
	case r < 0x80:
		return 1
	case r < 0x800:
		return 2
	case r < 0x10000:
		return 3
	default:
		return 6
	}
}

func encodeUnit(dst []byte, u rune) int {
	switch {
	case u != 0 && u < 0x80:
		dst[0] = byte(u)
		return 1
	case u < 0x800:
		dst[0] = 0xC0 | byte(u>>6)
		dst[1] = 0x80 | byte(u&0x3F)
		return 2
	default:
		dst[0] = 0xE0 | byte(u>>12)
		dst[1] = 0x80 | byte((u>>6)&0x3F)
		dst[2] = 0x80 | byte(u&0x3F)
		return 3
	}
}

func encodeRune(dst []byte, r rune) int {
	if r < 0x10000 {
		return encodeUnit(dst, r)
	}
	hi, lo := utf16.EncodeRune(r)
	n := encodeUnit(dst, hi)
	return n + encodeUnit(dst[n:], lo)
}

type encoder struct{ transform.NopResetter }

func (encoder) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	var buf [6]byte
	for nSrc < len(src) {
		r, size := utf8.DecodeRune(src[nSrc:])
		if r == utf8.RuneError && size == 1 && !atEOF && !utf8.FullRune(src[nSrc:]) {
			return nDst, nSrc, transform.ErrShortSrc
		}
		n := encodeRune(buf[:], r)
		if nDst+n > len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}
		copy(dst[nDst:], buf[:n])
		nDst += n
		nSrc += size
	}
	return nDst, nSrc, nil
}

type decoder struct{ transform.NopResetter }

// unit decodes one modified UTF-8 sequence into a UTF-16 code unit.
// size is 0 when more input is needed.
func unit(src []byte) (u rune, size int, err error) {
	c := src[0]
	switch {
	case c < 0x80:
		return rune(c), 1, nil
	case c&0xE0 == 0xC0:
		if len(src) < 2 {
			return 0, 0, nil
		}
		if src[1]&0xC0 != 0x80 {
			return 0, 0, ErrInvalid
		}
		return rune(c&0x1F)<<6 | rune(src[1]&0x3F), 2, nil
	case c&0xF0 == 0xE0:
		if len(src) < 3 {
			if len(src) == 2 && src[1]&0xC0 != 0x80 {
				return 0, 0, ErrInvalid
			}
			return 0, 0, nil
		}
		if src[1]&0xC0 != 0x80 || src[2]&0xC0 != 0x80 {
			return 0, 0, ErrInvalid
		}
		return rune(c&0x0F)<<12 | rune(src[1]&0x3F)<<6 | rune(src[2]&0x3F), 3, nil
	default:
		return 0, 0, ErrInvalid
	}
}

func (decoder) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		u, size, err := unit(src[nSrc:])
		if err != nil {
			return nDst, nSrc, err
		}
		if size == 0 {
			if atEOF {
				return nDst, nSrc, ErrInvalid
			}
			return nDst, nSrc, transform.ErrShortSrc
		}
		r := u
		if utf16.IsSurrogate(u) && u < 0xDC00 {
			rest := src[nSrc+size:]
			if len(rest) < 3 && !atEOF {
				return nDst, nSrc, transform.ErrShortSrc
			}
			if len(rest) > 0 {
				if lo, loSize, loErr := unit(rest); loErr == nil && loSize == 3 && lo >= 0xDC00 && lo <= 0xDFFF {
					r = utf16.DecodeRune(u, lo)
					size += loSize
				}
			}
		}
		if nDst+utf8.RuneLen(normalize(r)) > len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}
		nDst += utf8.EncodeRune(dst[nDst:], normalize(r))
		nSrc += size
	}
	return nDst, nSrc, nil
}

// normalize maps unpaired surrogates to the replacement character; Go
// strings cannot hold them.
func normalize(r rune) rune {
	if utf16.IsSurrogate(r) {
		return utf8.RuneError
	}
	return r
}
