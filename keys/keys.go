// Package keys loads certificate bytes from PEM, DER and PKCS#12
// encoded files for the extraction commands.
//
// Loaders return raw DER blocks rather than parsed certificates: the
// extraction core has its own fallback paths for certificates the
// standard parser rejects, and parsing here would defeat them.
package keys

import (
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"software.sslmate.com/src/go-pkcs12"
)

// Common errors
var (
	ErrNoCertFound     = errors.New("no certificate found in data")
	ErrInvalidPEMBlock = errors.New("invalid PEM block")
)

// LoadCertificates loads certificate DER blocks from a file. PEM input
// may hold several CERTIFICATE blocks; PKCS#12 input yields the leaf
// certificate first, then the chain; anything else is treated as a
// single raw DER certificate.
func LoadCertificates(filename string, passphrase string) ([][]byte, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	return CertificatesFromData(data, passphrase)
}

// CertificatesFromData extracts certificate DER blocks from raw file
// contents, detecting the container format.
func CertificatesFromData(data []byte, passphrase string) ([][]byte, error) {
	if isPEM(data) {
		return CertificatesFromPEM(data)
	}
	if certs, err := CertificatesFromPKCS12(data, passphrase); err == nil {
		return certs, nil
	}
	// Raw DER: hand the bytes through untouched.
	return [][]byte{append([]byte(nil), data...)}, nil
}

// CertificatesFromPEM returns the DER bytes of every CERTIFICATE block
// in PEM data.
func CertificatesFromPEM(data []byte) ([][]byte, error) {
	var out [][]byte
	rest := data
	for len(rest) > 0 {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type == "CERTIFICATE" {
			out = append(out, block.Bytes)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoCertFound
	}
	return out, nil
}

// CertificatesFromPKCS12 decodes a PKCS#12 bundle and returns the leaf
// certificate followed by any chain certificates.
func CertificatesFromPKCS12(data []byte, passphrase string) ([][]byte, error) {
	_, cert, caCerts, err := pkcs12.DecodeChain(data, passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to decode PKCS#12 data: %w", err)
	}
	out := [][]byte{cert.Raw}
	for _, ca := range caCerts {
		out = append(out, ca.Raw)
	}
	return out, nil
}

// isPEM checks if the data appears to be PEM encoded.
func isPEM(data []byte) bool {
	return len(data) > 10 && string(data[:5]) == "-----"
}
