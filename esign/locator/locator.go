// Package locator finds candidate signature blobs inside a raw PDF
// byte buffer.
//
// The document is treated as single-byte-per-character text, never as
// UTF-8: PDF raw bytes must round-trip one-to-one through the scan.
// No object or xref parsing happens here; signature dictionaries are
// found by textual pattern, which also covers documents whose xref
// tables are broken or incrementally updated.
package locator

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/georgepadayatti/esigninfo/esign/bytescan"
)

// Common errors
var (
	ErrNotPDF      = errors.New("not a PDF document")
	ErrNoSignature = errors.New("no signature found in document")
)

// pdfHeader is the magic prefix of every PDF file image.
var pdfHeader = []byte("%PDF-")

// PatternKind identifies the textual pattern that produced a candidate,
// in decreasing order of signature-semantics specificity.
type PatternKind int

const (
	// PatternAadhaarEsign matches the PAdES subfilter emitted by
	// current Aadhaar eSign gateways.
	PatternAadhaarEsign PatternKind = iota

	// PatternPkcs7Detached matches the classic Adobe detached subfilter.
	PatternPkcs7Detached

	// PatternPkcs7Sha1 matches the legacy SHA-1 subfilter still used by
	// older eSign providers.
	PatternPkcs7Sha1

	// PatternSigDictionary matches a bare /Type /Sig dictionary.
	PatternSigDictionary

	// PatternByteRangeContents matches a /ByteRange array followed by a
	// /Contents hex string.
	PatternByteRangeContents

	// PatternStandardContents matches any /Contents hex string.
	PatternStandardContents

	// PatternIndirectReference matches a /Contents entry holding an
	// indirect object reference (N M R). Such candidates carry no
	// payload and cannot be decoded standalone; they are reported so
	// callers can tell "signature present but unreachable" apart from
	// "no signature at all".
	PatternIndirectReference
)

// String returns the pattern name for diagnostics.
func (k PatternKind) String() string {
	switch k {
	case PatternAadhaarEsign:
		return "aadhaar-esign"
	case PatternPkcs7Detached:
		return "pkcs7-detached"
	case PatternPkcs7Sha1:
		return "pkcs7-sha1"
	case PatternSigDictionary:
		return "sig-dictionary"
	case PatternByteRangeContents:
		return "byterange-contents"
	case PatternStandardContents:
		return "contents"
	case PatternIndirectReference:
		return "indirect-reference"
	default:
		return "unknown"
	}
}

// Candidate is one potential signature blob found in the document.
type Candidate struct {
	// Offset is the byte offset of the hex payload in the document.
	Offset int

	// Raw is the hex-decoded signature blob. It is a fresh allocation,
	// never an alias into the document buffer. Nil for indirect
	// references.
	Raw []byte

	// Pattern is the textual pattern that produced this candidate.
	Pattern PatternKind
}

// markers, most specific first. Each marker anchors a search for the
// /Contents entry of the same signature dictionary.
var markers = []struct {
	kind   PatternKind
	needle []byte
}{
	{PatternAadhaarEsign, []byte("ETSI.CAdES.detached")},
	{PatternPkcs7Detached, []byte("adbe.pkcs7.detached")},
	{PatternPkcs7Sha1, []byte("adbe.pkcs7.sha1")},
	{PatternSigDictionary, []byte("/Type /Sig")},
	{PatternSigDictionary, []byte("/Type/Sig")},
}

var contentsKey = []byte("/Contents")

// contentsWindow bounds how far past a dictionary marker the /Contents
// entry is searched for. Signature dictionaries are small; the payload
// itself comes after the key.
const contentsWindow = 2048

// Locate scans a full PDF image and returns signature candidates
// ordered by pattern specificity. A candidate's payload appears exactly
// once in the result even when several patterns match it.
//
// Locate fails with ErrNotPDF when the buffer does not begin with the
// PDF magic header, and with ErrNoSignature when no decodable candidate
// of any pattern is found.
func Locate(doc []byte) ([]Candidate, error) {
	if len(doc) < len(pdfHeader) || !bytes.Equal(doc[:len(pdfHeader)], pdfHeader) {
		return nil, ErrNotPDF
	}

	var out []Candidate
	seen := make(map[int]bool)

	add := func(c Candidate) {
		if seen[c.Offset] {
			return
		}
		seen[c.Offset] = true
		out = append(out, c)
	}

	// Dictionary-anchored patterns first.
	for _, m := range markers {
		for at := range bytescan.FindAll(doc, m.needle) {
			c, ok := contentsAfter(doc, at+len(m.needle), m.kind)
			if !ok {
				continue
			}
			add(c)
		}
	}

	// Generic /Contents entries, anywhere in the document.
	for at := range bytescan.FindAll(doc, contentsKey) {
		c, ok := parseContentsValue(doc, at+len(contentsKey), PatternStandardContents)
		if !ok {
			continue
		}
		if c.Pattern == PatternStandardContents {
			// /ByteRange before the blob upgrades the pattern.
			if prev := bytes.LastIndex(doc[:at], []byte("/ByteRange")); prev >= 0 && at-prev < contentsWindow {
				c.Pattern = PatternByteRangeContents
			}
		}
		add(c)
	}

	decodable := 0
	for _, c := range out {
		if c.Raw != nil {
			decodable++
		}
	}
	if decodable == 0 {
		return nil, ErrNoSignature
	}
	return out, nil
}

// contentsAfter finds the /Contents entry following a dictionary marker
// and parses its value.
func contentsAfter(doc []byte, from int, kind PatternKind) (Candidate, bool) {
	end := from + contentsWindow
	if end > len(doc) {
		end = len(doc)
	}
	rel := bytes.Index(doc[from:end], contentsKey)
	if rel < 0 {
		return Candidate{}, false
	}
	return parseContentsValue(doc, from+rel+len(contentsKey), kind)
}

// parseContentsValue parses the value that follows a /Contents key:
// either a <...> hex string or an indirect "N M R" reference.
func parseContentsValue(doc []byte, pos int, kind PatternKind) (Candidate, bool) {
	i := pos
	for i < len(doc) && isPDFSpace(doc[i]) {
		i++
	}
	if i >= len(doc) {
		return Candidate{}, false
	}

	if doc[i] != '<' {
		if isDigit(doc[i]) && looksLikeIndirectRef(doc[i:]) {
			return Candidate{Offset: i, Pattern: PatternIndirectReference}, true
		}
		return Candidate{}, false
	}
	if i+1 < len(doc) && doc[i+1] == '<' {
		// << opens a dictionary, not a hex string.
		return Candidate{}, false
	}

	start := i + 1
	close := bytes.IndexByte(doc[start:], '>')
	if close < 0 {
		return Candidate{}, false
	}

	hexText := stripPDFSpace(doc[start : start+close])
	if len(hexText) == 0 || len(hexText)%2 != 0 {
		return Candidate{}, false
	}
	raw, err := bytescan.DecodeHex(string(hexText))
	if err != nil {
		return Candidate{}, false
	}
	return Candidate{Offset: start, Raw: raw, Pattern: kind}, true
}

// looksLikeIndirectRef reports whether b starts with "N M R".
func looksLikeIndirectRef(b []byte) bool {
	var obj, gen int
	var r string
	n, err := fmt.Sscanf(string(head(b, 32)), "%d %d %1s", &obj, &gen, &r)
	return err == nil && n == 3 && r == "R"
}

func head(b []byte, n int) []byte {
	if len(b) < n {
		return b
	}
	return b[:n]
}

func stripPDFSpace(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for _, c := range b {
		if !isPDFSpace(c) {
			out = append(out, c)
		}
	}
	return out
}

func isPDFSpace(c byte) bool {
	switch c {
	case 0x00, 0x09, 0x0a, 0x0c, 0x0d, 0x20:
		return true
	}
	return false
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
