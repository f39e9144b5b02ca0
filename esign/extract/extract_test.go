package extract

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"math/big"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/georgepadayatti/esigninfo/esign/identity"
	"github.com/georgepadayatti/esigninfo/esign/locator"
	"github.com/georgepadayatti/esigninfo/esign/pkcs7"
)

var (
	oidTitle       = asn1.ObjectIdentifier{2, 5, 4, 12}
	oidDNQualifier = asn1.ObjectIdentifier{2, 5, 4, 46}
	oidPostalCode  = asn1.ObjectIdentifier{2, 5, 4, 17}
)

var testNotAfter = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// generateCert creates a self-signed certificate with the given
// subject.
func generateCert(t *testing.T, subject pkix.Name, serial int64) []byte {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}

	template := &x509.Certificate{
		SerialNumber: big.NewInt(serial),
		Subject:      subject,
		NotBefore:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		NotAfter:     testNotAfter,
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("Failed to create certificate: %v", err)
	}
	return der
}

// signerSubject is the eSign profile subject used across tests.
func signerSubject() pkix.Name {
	return pkix.Name{
		CommonName: "Ravi Kumar",
		Province:   []string{"KA"},
		ExtraNames: []pkix.AttributeTypeAndValue{
			{Type: oidTitle, Value: "ABCD1234"},
			{Type: oidDNQualifier, Value: "1990F56789"},
			{Type: oidPostalCode, Value: "560001"},
		},
	}
}

// caSubject is an organisational subject with no personal fields.
func caSubject(cn string) pkix.Name {
	return pkix.Name{
		CommonName:   cn,
		Organization: []string{"Certifying Authority"},
	}
}

// buildEnvelope wraps certificates in a minimal SignedData ContentInfo.
func buildEnvelope(t *testing.T, certs ...[]byte) []byte {
	t.Helper()

	sd := pkcs7.SignedData{
		Version:          1,
		DigestAlgorithms: []pkcs7.AlgorithmIdentifier{},
		EncapContentInfo: pkcs7.EncapsulatedContentInfo{
			EContentType: asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 1},
		},
		SignerInfos: []asn1.RawValue{},
	}
	for _, c := range certs {
		sd.Certificates = append(sd.Certificates, asn1.RawValue{FullBytes: c})
	}

	sdBytes, err := asn1.Marshal(sd)
	if err != nil {
		t.Fatalf("Failed to marshal SignedData: %v", err)
	}
	env, err := asn1.Marshal(pkcs7.ContentInfo{
		ContentType: pkcs7.OIDSignedData,
		Content:     asn1.RawValue{Class: 2, Tag: 0, IsCompound: true, Bytes: sdBytes},
	})
	if err != nil {
		t.Fatalf("Failed to marshal ContentInfo: %v", err)
	}
	return env
}

// documentWith assembles a minimal PDF image holding one signature
// dictionary per blob.
func documentWith(blobs ...[]byte) []byte {
	var b strings.Builder
	b.WriteString("%PDF-1.7\n")
	for _, blob := range blobs {
		b.WriteString("<</Type /Sig /Filter /Adobe.PPKLite /SubFilter /adbe.pkcs7.detached\n")
		b.WriteString("/ByteRange [0 100 200 50] /Contents <")
		b.WriteString(hex.EncodeToString(blob))
		b.WriteString("> >>\n")
	}
	b.WriteString("%%EOF\n")
	return []byte(b.String())
}

func TestIdentityFromCertificateDER(t *testing.T) {
	der := generateCert(t, signerSubject(), 987654321)

	record, err := IdentityFromCertificate(der)
	if err != nil {
		t.Fatalf("IdentityFromCertificate failed: %v", err)
	}

	if record.SignerName != "Ravi Kumar" {
		t.Errorf("SignerName = %q, want Ravi Kumar", record.SignerName)
	}
	if record.Tpin != "ABCD1234" {
		t.Errorf("Tpin = %q, want ABCD1234", record.Tpin)
	}
	if record.State != "KA" {
		t.Errorf("State = %q, want KA", record.State)
	}
	if record.YearOfBirth != "1990" {
		t.Errorf("YearOfBirth = %q, want 1990", record.YearOfBirth)
	}
	if record.Gender != "F" {
		t.Errorf("Gender = %q, want F", record.Gender)
	}
	if record.PostalCode != "560001" {
		t.Errorf("PostalCode = %q, want 560001", record.PostalCode)
	}
	if record.SerialNumber != "987654321" {
		t.Errorf("SerialNumber = %q, want 987654321", record.SerialNumber)
	}
	if record.NotAfter != testNotAfter.UnixMilli() {
		t.Errorf("NotAfter = %d, want %d", record.NotAfter, testNotAfter.UnixMilli())
	}
	if !record.Qualifying() {
		t.Error("signer record should qualify")
	}
}

func TestIdentityFromCertificatePEM(t *testing.T) {
	der := generateCert(t, signerSubject(), 11)
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})

	fromPEM, err := IdentityFromCertificate(pemBytes)
	if err != nil {
		t.Fatalf("IdentityFromCertificate(PEM) failed: %v", err)
	}
	fromDER, err := IdentityFromCertificate(der)
	if err != nil {
		t.Fatalf("IdentityFromCertificate(DER) failed: %v", err)
	}
	if !reflect.DeepEqual(fromPEM, fromDER) {
		t.Errorf("PEM and DER records differ: %+v vs %+v", fromPEM, fromDER)
	}
}

func TestIdentityFromCertificatePEMWithoutBlock(t *testing.T) {
	input := []byte("some text mentioning BEGIN CERTIFICATE but holding none")
	if _, err := IdentityFromCertificate(input); !errors.Is(err, ErrNoPEMCertificate) {
		t.Errorf("expected ErrNoPEMCertificate, got %v", err)
	}
}

func TestIdentityFromDocument(t *testing.T) {
	signer := generateCert(t, signerSubject(), 987654321)
	doc := documentWith(buildEnvelope(t, signer))

	record, err := IdentityFromDocument(doc)
	if err != nil {
		t.Fatalf("IdentityFromDocument failed: %v", err)
	}
	if record.Tpin != "ABCD1234" || record.Gender != "F" {
		t.Errorf("unexpected record: %+v", record)
	}
}

func TestIdentityFromDocumentNotAPdf(t *testing.T) {
	if _, err := IdentityFromDocument([]byte("HELLO")); !errors.Is(err, locator.ErrNotPDF) {
		t.Errorf("expected ErrNotPDF, got %v", err)
	}
}

func TestIdentityFromDocumentNoSignature(t *testing.T) {
	doc := []byte("%PDF-1.7\n1 0 obj <</Type /Catalog>> endobj\n%%EOF\n")
	if _, err := IdentityFromDocument(doc); !errors.Is(err, locator.ErrNoSignature) {
		t.Errorf("expected ErrNoSignature, got %v", err)
	}
}

func TestSelectsQualifyingCandidate(t *testing.T) {
	// Three signature candidates; only the second holds a personal
	// certificate. The second record must win, never the first or
	// third.
	ca1 := generateCert(t, caSubject("Intermediate CA One"), 1)
	signer := generateCert(t, signerSubject(), 2)
	ca2 := generateCert(t, caSubject("Intermediate CA Two"), 3)

	doc := documentWith(
		buildEnvelope(t, ca1),
		buildEnvelope(t, signer),
		buildEnvelope(t, ca2),
	)

	record, err := IdentityFromDocument(doc)
	if err != nil {
		t.Fatalf("IdentityFromDocument failed: %v", err)
	}
	if record.SignerName != "Ravi Kumar" {
		t.Errorf("SignerName = %q, want Ravi Kumar", record.SignerName)
	}
	if !record.Qualifying() {
		t.Error("selected record should qualify")
	}
}

func TestQualifyingCertificateWithinChain(t *testing.T) {
	// One envelope carrying the CA chain plus the signer: the signer
	// must be selected from among the certificate candidates.
	ca := generateCert(t, caSubject("Root CA"), 1)
	signer := generateCert(t, signerSubject(), 2)
	doc := documentWith(buildEnvelope(t, ca, signer))

	record, err := IdentityFromDocument(doc)
	if err != nil {
		t.Fatalf("IdentityFromDocument failed: %v", err)
	}
	if record.SignerName != "Ravi Kumar" {
		t.Errorf("SignerName = %q, want Ravi Kumar", record.SignerName)
	}
}

func TestBestEffortRecordWhenNothingQualifies(t *testing.T) {
	ca := generateCert(t, caSubject("Lone CA"), 5)
	doc := documentWith(buildEnvelope(t, ca))

	record, err := IdentityFromDocument(doc)
	if err != nil {
		t.Fatalf("expected best-effort record, got error: %v", err)
	}
	if record.SignerName != "Lone CA" {
		t.Errorf("SignerName = %q, want Lone CA", record.SignerName)
	}
	if record.Qualifying() {
		t.Error("CA record should not qualify")
	}
	if record.Tpin != identity.NA || record.Gender != identity.NA {
		t.Errorf("personal fields should be NA: %+v", record)
	}
}

func TestScanFallbackAgreesWithDirectPath(t *testing.T) {
	// A blob whose framing defeats both structured decodes must yield
	// the same record the direct certificate path produces.
	signer := generateCert(t, signerSubject(), 42)

	blob := []byte{0x30, 0x80, 0x06, 0x09, 0x2a, 0x86, 0x48, 0x86, 0xf7, 0x0d, 0x01, 0x07, 0x02}
	blob = append(blob, signer...)
	blob = append(blob, 0xff)

	doc := documentWith(blob)
	fromDoc, err := IdentityFromDocument(doc)
	if err != nil {
		t.Fatalf("IdentityFromDocument failed: %v", err)
	}
	fromCert, err := IdentityFromCertificate(signer)
	if err != nil {
		t.Fatalf("IdentityFromCertificate failed: %v", err)
	}
	if !reflect.DeepEqual(fromDoc, fromCert) {
		t.Errorf("paths disagree:\n doc:  %+v\n cert: %+v", fromDoc, fromCert)
	}
}

func TestNoCertificateInAnyCandidate(t *testing.T) {
	doc := documentWith(buildEnvelope(t)) // envelope with no certificates

	_, err := IdentityFromDocument(doc)
	if err == nil {
		t.Fatal("expected an error for a certificate-free envelope")
	}
	if !errors.Is(err, pkcs7.ErrNoCertificate) {
		t.Errorf("expected ErrNoCertificate, got %v", err)
	}
}

func TestMaxSignaturesCap(t *testing.T) {
	ca := generateCert(t, caSubject("Capped CA"), 1)
	signer := generateCert(t, signerSubject(), 2)
	doc := documentWith(buildEnvelope(t, ca), buildEnvelope(t, signer))

	opts := DefaultOptions()
	opts.MaxSignatures = 1

	record, err := IdentityFromDocumentOptions(doc, opts)
	if err != nil {
		t.Fatalf("IdentityFromDocumentOptions failed: %v", err)
	}
	// Only the first candidate was examined; the qualifying signer in
	// the second was never reached.
	if record.SignerName != "Capped CA" {
		t.Errorf("SignerName = %q, want Capped CA", record.SignerName)
	}
}
