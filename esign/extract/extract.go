// Package extract drives the full identity extraction pipeline:
// locate signature blobs in a PDF image, recover embedded certificates,
// decode identity attributes, and select the record that belongs to the
// personal signing certificate rather than an intermediate one.
package extract

import (
	"bytes"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/georgepadayatti/esigninfo/esign/certinfo"
	"github.com/georgepadayatti/esigninfo/esign/identity"
	"github.com/georgepadayatti/esigninfo/esign/locator"
	"github.com/georgepadayatti/esigninfo/esign/pkcs7"
)

// Common errors
var (
	// ErrNoAadhaarData reports that certificates were found but none
	// produced a decodable identity record. A best-effort record with
	// NA fields is not an error; this is only returned when nothing
	// decodes at all.
	ErrNoAadhaarData = errors.New("no aadhaar identity data found")

	// ErrNoPEMCertificate reports PEM input without a CERTIFICATE block.
	ErrNoPEMCertificate = errors.New("no certificate block in PEM data")
)

// pemMarker detects PEM-armored certificate input.
var pemMarker = []byte("BEGIN CERTIFICATE")

// Options bounds the work a single extraction may do. All caps are
// explicit and caller-injectable; the core has no hidden constants.
type Options struct {
	// Limits bounds the PKCS#7 byte-pattern scan.
	Limits pkcs7.Limits

	// MaxSignatures caps how many signature candidates are examined.
	// Zero means all of them.
	MaxSignatures int
}

// DefaultOptions returns the caps used when the caller supplies none.
func DefaultOptions() Options {
	return Options{Limits: pkcs7.DefaultLimits}
}

// IdentityFromDocument runs the full pipeline over an unmodified PDF
// file image using the default options.
func IdentityFromDocument(doc []byte) (*identity.Record, error) {
	return IdentityFromDocumentOptions(doc, DefaultOptions())
}

// IdentityFromDocumentOptions runs the full pipeline with explicit
// work caps.
//
// Search order is deterministic: signature candidates in locator order,
// certificate candidates in decode order. The first qualifying record
// terminates the search. When the whole tree is exhausted without a
// qualifying record the first successfully decoded record is returned
// instead of an error, since callers must proceed with partial data
// rather than block; the byte-pattern scan orders its candidates
// largest first, so that path's best-effort pick is the largest
// well-formed certificate.
func IdentityFromDocumentOptions(doc []byte, opts Options) (*identity.Record, error) {
	candidates, err := locator.Locate(doc)
	if err != nil {
		return nil, err
	}

	var (
		first    *identity.Record
		examined int
		sawCert  bool
		lastErr  error
	)

	for _, sc := range candidates {
		if sc.Raw == nil {
			// Indirect /Contents references carry no payload.
			continue
		}
		if opts.MaxSignatures > 0 && examined >= opts.MaxSignatures {
			break
		}
		examined++

		certs, err := pkcs7.ExtractCertificates(sc.Raw, opts.Limits)
		if err != nil {
			lastErr = err
			continue
		}

		for _, cert := range certs {
			sawCert = true
			info, err := certinfo.Extract(cert.Raw)
			if err != nil {
				lastErr = err
				continue
			}
			rec := recordFromInfo(info)
			if rec.Qualifying() {
				return rec, nil
			}
			if first == nil {
				first = rec
			}
		}
	}

	if first != nil {
		return first, nil
	}
	if !sawCert && lastErr != nil {
		return nil, lastErr
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoAadhaarData, lastErr)
	}
	return nil, ErrNoAadhaarData
}

// IdentityFromCertificate decodes a bare certificate, skipping the
// locator and PKCS#7 stages. Input is PEM text (detected by the BEGIN
// CERTIFICATE marker) or raw DER bytes.
func IdentityFromCertificate(certBytes []byte) (*identity.Record, error) {
	der := certBytes
	if bytes.Contains(certBytes, pemMarker) {
		block, err := firstCertificateBlock(certBytes)
		if err != nil {
			return nil, err
		}
		der = block
	}

	info, err := certinfo.Extract(der)
	if err != nil {
		return nil, err
	}
	return recordFromInfo(info), nil
}

// firstCertificateBlock returns the DER bytes of the first CERTIFICATE
// block in PEM data.
func firstCertificateBlock(data []byte) ([]byte, error) {
	rest := data
	for len(rest) > 0 {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type == "CERTIFICATE" {
			return block.Bytes, nil
		}
	}
	return nil, ErrNoPEMCertificate
}

// recordFromInfo builds the identity record from a certificate summary.
// Field semantics follow the eSign certificate profile: title carries
// the transaction PIN, dnQualifier packs birth year and gender, and the
// postal code must be a positive number.
func recordFromInfo(info *certinfo.Info) *identity.Record {
	rec := &identity.Record{
		SignerName:         attrOrNA(info.Subject, "CN"),
		Tpin:               attrOrNA(info.Subject, "T"),
		State:              attrOrNA(info.Subject, "ST"),
		SerialNumber:       identity.NA,
		IssuerName:         attrOrNA(info.Issuer, "CN"),
		IssuerOrganisation: attrOrNA(info.Issuer, "O"),
	}

	rec.YearOfBirth, rec.Gender = identity.DecodeQualifier(info.Subject.Get("dnQualifier"))
	rec.PostalCode = identity.DecodePostalCode(info.Subject.Get("postalCode"))

	if info.SerialNumber != "" {
		rec.SerialNumber = info.SerialNumber
	}
	if !info.NotAfter.IsZero() {
		rec.NotAfter = info.NotAfter.UnixMilli()
	}
	return rec
}

func attrOrNA(m certinfo.AttributeMap, key string) string {
	if v := m.Get(key); v != "" {
		return v
	}
	return identity.NA
}
