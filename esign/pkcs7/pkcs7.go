// Package pkcs7 extracts embedded X.509 certificates from PKCS#7/CMS
// SignedData envelopes found in PDF signature dictionaries.
//
// Real-world envelopes are frequently not strict DER: producers emit
// indefinite-length BER framing, trailing padding, and key algorithms
// the standard certificate parser rejects. Extraction therefore runs an
// ordered list of strategies, from a fully structured decode down to a
// raw byte-pattern scan, and returns the results of the first strategy
// that succeeds structurally. Strategies are never merged.
package pkcs7

import (
	"bytes"
	"crypto/x509"
	"encoding/asn1"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"

	"github.com/georgepadayatti/esigninfo/esign/bytescan"
)

// Common errors
var (
	ErrNoCertificate = errors.New("no certificate found in signature blob")
	ErrNotSignedData = errors.New("content is not CMS SignedData")
)

// OIDSignedData identifies the CMS SignedData content type.
var OIDSignedData = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 2}

// ContentInfo represents a CMS ContentInfo structure.
type ContentInfo struct {
	ContentType asn1.ObjectIdentifier
	Content     asn1.RawValue `asn1:"explicit,optional,tag:0"`
}

// AlgorithmIdentifier represents an algorithm identifier.
type AlgorithmIdentifier struct {
	Algorithm  asn1.ObjectIdentifier
	Parameters asn1.RawValue `asn1:"optional"`
}

// EncapsulatedContentInfo represents encapsulated content.
type EncapsulatedContentInfo struct {
	EContentType asn1.ObjectIdentifier
	EContent     asn1.RawValue `asn1:"explicit,optional,tag:0"`
}

// SignedData represents a CMS SignedData structure. Certificates and
// signer infos are kept raw: extraction never validates signatures.
type SignedData struct {
	Version          int
	DigestAlgorithms []AlgorithmIdentifier `asn1:"set"`
	EncapContentInfo EncapsulatedContentInfo
	Certificates     []asn1.RawValue `asn1:"optional,implicit,tag:0,set"`
	CRLs             []asn1.RawValue `asn1:"optional,implicit,tag:1"`
	SignerInfos      []asn1.RawValue `asn1:"set"`
}

// Certificate is one embedded certificate recovered from a blob.
type Certificate struct {
	// Raw is the DER encoding, a fresh allocation owned by the caller.
	Raw []byte

	// Size is len(Raw), kept separately for selection policy.
	Size int

	// Offset is the certificate's byte offset inside the signature
	// blob. Zero for the structured decode paths.
	Offset int

	// Scanned reports that the certificate came from the byte-pattern
	// scan rather than a structured decode.
	Scanned bool
}

// Limits bounds the work done by the byte-pattern scan. The zero value
// is not useful; start from DefaultLimits.
type Limits struct {
	// MinCertSize and MaxCertSize bound the plausible DER size of a
	// single certificate.
	MinCertSize int
	MaxCertSize int

	// MaxCandidates caps how many admissible certificates one blob may
	// yield. Zero means no cap.
	MaxCandidates int
}

// DefaultLimits reflects the certificate sizes observed in real eSign
// envelopes.
var DefaultLimits = Limits{
	MinCertSize: 500,
	MaxCertSize: 10000,
}

// strategy is one decode attempt. Strategies run in declaration order;
// the first one to return certificates wins.
type strategy struct {
	name string
	run  func(blob []byte, limits Limits) ([]Certificate, error)
}

var strategies = []strategy{
	{"signed-data", decodeSignedData},
	{"asn1-walk", walkCertificateSet},
	{"sequence-scan", scanSequences},
}

// ExtractCertificates recovers embedded certificates from one signature
// blob, in decode order. It fails with ErrNoCertificate once every
// strategy is exhausted. Malformed input never panics; each decode step
// is bounds-checked and failure advances to the next strategy.
func ExtractCertificates(blob []byte, limits Limits) ([]Certificate, error) {
	trimmed := trimZeroPadding(blob)
	if len(trimmed) == 0 {
		return nil, ErrNoCertificate
	}

	var lastErr error
	for _, s := range strategies {
		certs, err := s.run(trimmed, limits)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", s.name, err)
			continue
		}
		if len(certs) > 0 {
			return certs, nil
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoCertificate, lastErr)
	}
	return nil, ErrNoCertificate
}

// trimZeroPadding removes the zero padding PDF /Contents placeholders
// append after the envelope. An envelope may itself end in 0x00 (an
// empty trailing SET), so when the outer element declares a definite
// length the cut honors that length instead of the last non-zero byte.
func trimZeroPadding(blob []byte) []byte {
	trimmed := bytes.TrimRight(blob, "\x00")
	if len(trimmed) == 0 || blob[0] != 0x30 {
		return trimmed
	}
	tl, err := bytescan.DecodeTagLength(blob, 0)
	if err != nil || tl.Indefinite {
		return trimmed
	}
	if total := tl.HeaderSize + tl.Length; total > len(trimmed) && total <= len(blob) {
		return blob[:total]
	}
	return trimmed
}

// decodeSignedData is the structured decode: a standard ContentInfo
// holding SignedData, every certificate member accepted by the standard
// certificate parser, no trailing garbage.
func decodeSignedData(blob []byte, _ Limits) ([]Certificate, error) {
	var info ContentInfo
	rest, err := asn1.Unmarshal(blob, &info)
	if err != nil {
		return nil, fmt.Errorf("contentinfo: %w", err)
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("%d trailing bytes after ContentInfo", len(rest))
	}
	if !info.ContentType.Equal(OIDSignedData) {
		return nil, fmt.Errorf("%w: got %v", ErrNotSignedData, info.ContentType)
	}

	var sd SignedData
	if _, err := asn1.Unmarshal(info.Content.Bytes, &sd); err != nil {
		return nil, fmt.Errorf("signeddata: %w", err)
	}

	var out []Certificate
	for _, raw := range sd.Certificates {
		// The strict path insists the platform parser accepts the
		// certificate; otherwise the manual strategies take over.
		if _, err := x509.ParseCertificate(raw.FullBytes); err != nil {
			return nil, fmt.Errorf("certificate member: %w", err)
		}
		out = append(out, newCertificate(raw.FullBytes, 0, false))
	}
	return out, nil
}

// walkCertificateSet navigates the envelope by hand: outer SEQUENCE,
// content type OID, explicit [0] content, SignedData SEQUENCE, then the
// implicit [0] certificate set. Certificates are emitted as raw DER
// without running them through the standard parser, which rescues
// envelopes whose signing key algorithm the parser rejects.
func walkCertificateSet(blob []byte, _ Limits) ([]Certificate, error) {
	input := cryptobyte.String(blob)

	var outer cryptobyte.String
	if !input.ReadASN1(&outer, cbasn1.SEQUENCE) {
		return nil, errors.New("no outer SEQUENCE")
	}

	var contentType asn1.ObjectIdentifier
	if !outer.ReadASN1ObjectIdentifier(&contentType) {
		return nil, errors.New("no content type OID")
	}
	if !contentType.Equal(OIDSignedData) {
		return nil, fmt.Errorf("%w: got %v", ErrNotSignedData, contentType)
	}

	var content cryptobyte.String
	if !outer.ReadASN1(&content, cbasn1.Tag(0).Constructed().ContextSpecific()) {
		return nil, errors.New("no explicit [0] content")
	}

	var signedData cryptobyte.String
	if !content.ReadASN1(&signedData, cbasn1.SEQUENCE) {
		return nil, errors.New("no SignedData SEQUENCE")
	}

	if !signedData.SkipASN1(cbasn1.INTEGER) {
		return nil, errors.New("no version field")
	}
	if !signedData.SkipASN1(cbasn1.SET) {
		return nil, errors.New("no digest algorithm set")
	}
	if !signedData.SkipASN1(cbasn1.SEQUENCE) {
		return nil, errors.New("no encapsulated content")
	}

	var certSet cryptobyte.String
	var present bool
	if !signedData.ReadOptionalASN1(&certSet, &present, cbasn1.Tag(0).Constructed().ContextSpecific()) || !present {
		return nil, errors.New("no certificate set")
	}

	var out []Certificate
	for !certSet.Empty() {
		var cert cryptobyte.String
		if !certSet.ReadASN1Element(&cert, cbasn1.SEQUENCE) {
			return nil, fmt.Errorf("malformed certificate member %d", len(out))
		}
		if !isThreeElementSequence(cert) {
			return nil, fmt.Errorf("certificate member %d is not a certificate shape", len(out))
		}
		out = append(out, newCertificate(cert, 0, false))
	}
	return out, nil
}

// longFormSequencePrefixes mark a long-form SEQUENCE, the shape a
// certificate's outermost tag takes for the sizes seen in practice.
var longFormSequencePrefixes = [][]byte{
	{0x30, 0x82},
	{0x30, 0x83},
}

// scanSequences is the last-resort decode for envelopes whose framing a
// strict navigator cannot offset past (typically indefinite-length
// BER). Every long-form SEQUENCE prefix in the blob is tried as the
// start of a standalone certificate; admissible slices are returned
// largest first so downstream best-effort selection prefers the fullest
// candidate.
func scanSequences(blob []byte, limits Limits) ([]Certificate, error) {
	var out []Certificate
	for _, prefix := range longFormSequencePrefixes {
		for at := range bytescan.FindAll(blob, prefix) {
			tl, err := bytescan.DecodeTagLength(blob, at)
			if err != nil || tl.Indefinite {
				continue
			}
			total := tl.HeaderSize + tl.Length
			if total < limits.MinCertSize || total > limits.MaxCertSize {
				continue
			}
			if at+total > len(blob) {
				continue
			}
			slice := blob[at : at+total]
			if !isThreeElementSequence(slice) {
				continue
			}
			out = append(out, newCertificate(slice, at, true))
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Size > out[j].Size })
	if limits.MaxCandidates > 0 && len(out) > limits.MaxCandidates {
		out = out[:limits.MaxCandidates]
	}
	if len(out) == 0 {
		return nil, errors.New("no admissible SEQUENCE slice")
	}
	return out, nil
}

// isThreeElementSequence reports whether der is a single SEQUENCE whose
// body holds exactly three elements, the outer shape of an X.509
// certificate (tbsCertificate, signatureAlgorithm, signatureValue).
// This shape test, not "is a SEQUENCE", is the admissibility test for
// "this is a certificate".
func isThreeElementSequence(der []byte) bool {
	input := cryptobyte.String(der)
	var body cryptobyte.String
	if !input.ReadASN1(&body, cbasn1.SEQUENCE) || !input.Empty() {
		return false
	}
	for i := 0; i < 3; i++ {
		var elem cryptobyte.String
		var tag cbasn1.Tag
		if !body.ReadAnyASN1Element(&elem, &tag) {
			return false
		}
	}
	return body.Empty()
}

func newCertificate(der []byte, offset int, scanned bool) Certificate {
	raw := append([]byte(nil), der...)
	return Certificate{Raw: raw, Size: len(raw), Offset: offset, Scanned: scanned}
}
