// Package certinfo extracts serial number, expiry and the Subject and
// Issuer attribute maps from a single certificate.
//
// Two code paths mirror the decoder's duality: certificates the
// standard parser accepts are read through crypto/x509; everything else
// goes through a manual TBSCertificate walk that tolerates key
// algorithms and encodings the standard parser rejects.
package certinfo

import (
	"crypto/x509"
	"encoding/asn1"
	"errors"
	"fmt"
	"math/big"
	"time"
	"unicode/utf16"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
	"golang.org/x/text/unicode/norm"
)

// ErrCertStructure reports a certificate whose TBS body yields no
// issuer/subject name pair.
var ErrCertStructure = errors.New("certificate structure invalid")

// Short aliases for the RDN attribute types this system cares about.
var attrAliases = map[string]string{
	"2.5.4.3":              "CN",
	"2.5.4.4":              "SN",
	"2.5.4.5":              "serialNumber",
	"2.5.4.6":              "C",
	"2.5.4.7":              "L",
	"2.5.4.8":              "ST",
	"2.5.4.9":              "street",
	"2.5.4.10":             "O",
	"2.5.4.11":             "OU",
	"2.5.4.12":             "T",
	"2.5.4.17":             "postalCode",
	"2.5.4.42":             "GN",
	"2.5.4.46":             "dnQualifier",
	"2.5.4.65":             "pseudonym",
	"1.2.840.113549.1.9.1": "emailAddress",
}

// AttributeMap maps RDN attribute types to decoded text values. Lookup
// works by dotted-decimal OID or by short alias (CN, O, ST, T,
// postalCode, dnQualifier, ...). Subject and Issuer maps are built
// independently and never merged.
type AttributeMap struct {
	byOID map[string]string
}

// NewAttributeMap returns an empty attribute map.
func NewAttributeMap() AttributeMap {
	return AttributeMap{byOID: make(map[string]string)}
}

// Set records the value for a dotted-decimal OID. Later duplicates of
// an OID do not overwrite earlier ones, matching first-RDN-wins
// attribute lookup.
func (m AttributeMap) Set(oid, value string) {
	if _, dup := m.byOID[oid]; dup {
		return
	}
	m.byOID[oid] = value
}

// Get returns the value for a dotted OID or a short alias, or "" when
// the attribute is absent.
func (m AttributeMap) Get(key string) string {
	if v, ok := m.byOID[key]; ok {
		return v
	}
	for oid, alias := range attrAliases {
		if alias == key {
			return m.byOID[oid]
		}
	}
	return ""
}

// Len returns the number of attributes in the map.
func (m AttributeMap) Len() int { return len(m.byOID) }

// Info is the decoded certificate summary handed to identity decoding.
type Info struct {
	// SerialNumber is the certificate serial in decimal form.
	SerialNumber string

	// NotAfter is the end of the validity period.
	NotAfter time.Time

	Subject AttributeMap
	Issuer  AttributeMap
}

// Extract decodes one certificate's DER bytes into an Info. The
// standard parser is tried first; on rejection the TBS body is walked
// by hand.
func Extract(der []byte) (*Info, error) {
	if cert, err := x509.ParseCertificate(der); err == nil {
		return fromParsed(cert), nil
	}
	return fromRawTBS(der)
}

// fromParsed reads the fields off a parsed x509.Certificate.
func fromParsed(cert *x509.Certificate) *Info {
	info := &Info{
		SerialNumber: cert.SerialNumber.String(),
		NotAfter:     cert.NotAfter,
		Subject:      NewAttributeMap(),
		Issuer:       NewAttributeMap(),
	}
	for _, atv := range cert.Subject.Names {
		if s, ok := atv.Value.(string); ok {
			info.Subject.Set(atv.Type.String(), normText(s))
		}
	}
	for _, atv := range cert.Issuer.Names {
		if s, ok := atv.Value.(string); ok {
			info.Issuer.Set(atv.Type.String(), normText(s))
		}
	}
	return info
}

// fromRawTBS walks the TBSCertificate SEQUENCE without the standard
// parser. The serial number is the first INTEGER encountered, the
// validity is the first two-element SEQUENCE of time values, and the
// issuer and subject are the first two SEQUENCE-of-SET structures in
// encounter order (issuer precedes subject in X.509 field order).
func fromRawTBS(der []byte) (*Info, error) {
	input := cryptobyte.String(der)
	var cert cryptobyte.String
	if !input.ReadASN1(&cert, cbasn1.SEQUENCE) {
		return nil, fmt.Errorf("%w: no outer SEQUENCE", ErrCertStructure)
	}
	var tbs cryptobyte.String
	if !cert.ReadASN1(&tbs, cbasn1.SEQUENCE) {
		return nil, fmt.Errorf("%w: no TBSCertificate", ErrCertStructure)
	}

	info := &Info{
		Subject: NewAttributeMap(),
		Issuer:  NewAttributeMap(),
	}

	var names []AttributeMap
	haveSerial := false
	haveValidity := false

	for !tbs.Empty() {
		var elem cryptobyte.String
		var tag cbasn1.Tag
		if !tbs.ReadAnyASN1Element(&elem, &tag) {
			break
		}

		switch {
		case tag == cbasn1.INTEGER && !haveSerial:
			serial := new(big.Int)
			body := cryptobyte.String(elem)
			if body.ReadASN1Integer(serial) {
				info.SerialNumber = serial.String()
				haveSerial = true
			}

		case tag == cbasn1.SEQUENCE:
			if !haveValidity {
				if notAfter, ok := readValidity(elem); ok {
					info.NotAfter = notAfter
					haveValidity = true
					continue
				}
			}
			if len(names) < 2 {
				if m, ok := readName(elem); ok {
					names = append(names, m)
				}
			}
		}

		if haveSerial && haveValidity && len(names) == 2 {
			break
		}
	}

	if len(names) != 2 {
		return nil, fmt.Errorf("%w: found %d name structures", ErrCertStructure, len(names))
	}
	info.Issuer = names[0]
	info.Subject = names[1]
	return info, nil
}

// readValidity decodes a Validity SEQUENCE: exactly two time values.
// The "not after" value is the second; UTCTime is tried before
// GeneralizedTime.
func readValidity(elem cryptobyte.String) (time.Time, bool) {
	var body cryptobyte.String
	if !elem.ReadASN1(&body, cbasn1.SEQUENCE) {
		return time.Time{}, false
	}
	var notBefore, notAfter time.Time
	if !readTime(&body, &notBefore) {
		return time.Time{}, false
	}
	if !readTime(&body, &notAfter) {
		return time.Time{}, false
	}
	if !body.Empty() {
		return time.Time{}, false
	}
	return notAfter, true
}

func readTime(s *cryptobyte.String, out *time.Time) bool {
	if s.PeekASN1Tag(cbasn1.UTCTime) {
		return s.ReadASN1UTCTime(out)
	}
	if s.PeekASN1Tag(cbasn1.GeneralizedTime) {
		return s.ReadASN1GeneralizedTime(out)
	}
	return false
}

// readName decodes an X.501 Name: a SEQUENCE of RDN SETs, each SET
// holding SEQUENCE{type OID, value}. An empty SEQUENCE or one whose
// members are not SETs is not a name.
func readName(elem cryptobyte.String) (AttributeMap, bool) {
	var body cryptobyte.String
	if !elem.ReadASN1(&body, cbasn1.SEQUENCE) {
		return AttributeMap{}, false
	}
	if body.Empty() || !body.PeekASN1Tag(cbasn1.SET) {
		return AttributeMap{}, false
	}

	m := NewAttributeMap()
	for !body.Empty() {
		var set cryptobyte.String
		if !body.ReadASN1(&set, cbasn1.SET) {
			return AttributeMap{}, false
		}
		for !set.Empty() {
			var atv cryptobyte.String
			if !set.ReadASN1(&atv, cbasn1.SEQUENCE) {
				return AttributeMap{}, false
			}
			var oid asn1.ObjectIdentifier
			if !atv.ReadASN1ObjectIdentifier(&oid) {
				return AttributeMap{}, false
			}
			var value cryptobyte.String
			var tag cbasn1.Tag
			if !atv.ReadAnyASN1(&value, &tag) {
				return AttributeMap{}, false
			}
			m.Set(oid.String(), normText(decodeDirectoryString(tag, value)))
		}
	}
	return m, true
}

// decodeDirectoryString turns an RDN value into text regardless of its
// string type. BMPString is UTF-16BE; every other string type seen in
// these certificates is byte-per-character or UTF-8 and passes through.
func decodeDirectoryString(tag cbasn1.Tag, value []byte) string {
	const tagBMPString = 30
	if tag == cbasn1.Tag(tagBMPString) {
		if len(value)%2 != 0 {
			return string(value)
		}
		u := make([]uint16, 0, len(value)/2)
		for i := 0; i < len(value); i += 2 {
			u = append(u, uint16(value[i])<<8|uint16(value[i+1]))
		}
		return string(utf16.Decode(u))
	}
	return string(value)
}

// normText NFC-normalizes decoded attribute text so visually identical
// names compare equal.
func normText(s string) string {
	return norm.NFC.String(s)
}
