// Package bytescan provides low-level byte primitives shared by the
// signature locator and the PKCS#7 decoder: hex decoding, DER/BER
// tag-length decoding, and literal byte-pattern search.
package bytescan

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"iter"
)

// Common errors
var (
	ErrMalformedHex = errors.New("malformed hex string")
	ErrTruncated    = errors.New("truncated ASN.1 element")
)

// DecodeHex decodes a hex string into raw bytes. It fails on odd-length
// input and on any non-hex character.
func DecodeHex(text string) ([]byte, error) {
	if len(text)%2 != 0 {
		return nil, fmt.Errorf("%w: odd length %d", ErrMalformedHex, len(text))
	}
	out, err := hex.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedHex, err)
	}
	return out, nil
}

// TagLength describes the length field of an ASN.1 element.
type TagLength struct {
	// Length is the content length in bytes. Zero when Indefinite is set.
	Length int

	// HeaderSize is the number of bytes consumed by the tag byte plus
	// the length field.
	HeaderSize int

	// Indefinite reports the BER indefinite form (length byte 0x80).
	// It is distinct from a definite zero length: callers must scan to
	// the end-of-contents terminator instead of trusting Length.
	Indefinite bool
}

// DecodeTagLength decodes the length field of the ASN.1 element whose
// tag byte sits at pos. Short form, long form and the indefinite form
// are all accepted; real-world signature blobs use all three.
//
// Multi-byte tag numbers are not handled: every structure this module
// walks (SEQUENCE, SET, INTEGER, context tags 0..1) uses a single tag
// byte.
func DecodeTagLength(b []byte, pos int) (TagLength, error) {
	if pos < 0 || pos+1 >= len(b) {
		return TagLength{}, fmt.Errorf("%w: no length byte at offset %d", ErrTruncated, pos)
	}
	first := b[pos+1]

	switch {
	case first == 0x80:
		// Indefinite form: content runs to an end-of-contents marker.
		return TagLength{HeaderSize: 2, Indefinite: true}, nil

	case first < 0x80:
		return TagLength{Length: int(first), HeaderSize: 2}, nil

	default:
		n := int(first & 0x7f)
		if n > 4 {
			return TagLength{}, fmt.Errorf("%w: %d-byte length at offset %d", ErrTruncated, n, pos)
		}
		if pos+2+n > len(b) {
			return TagLength{}, fmt.Errorf("%w: long-form length at offset %d", ErrTruncated, pos)
		}
		length := 0
		for i := 0; i < n; i++ {
			length = length<<8 | int(b[pos+2+i])
		}
		return TagLength{Length: length, HeaderSize: 2 + n}, nil
	}
}

// FindAll returns an iterator over every offset at which pattern occurs
// in haystack, in ascending order. Occurrences may overlap. The
// iterator is finite and restartable; an empty pattern yields nothing.
func FindAll(haystack, pattern []byte) iter.Seq[int] {
	return func(yield func(int) bool) {
		if len(pattern) == 0 {
			return
		}
		base := 0
		for {
			i := bytes.Index(haystack[base:], pattern)
			if i < 0 {
				return
			}
			if !yield(base + i) {
				return
			}
			base += i + 1
			if base >= len(haystack) {
				return
			}
		}
	}
}
