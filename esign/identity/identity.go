// Package identity decodes the proprietary composite attribute values
// an Aadhaar eSign certificate packs into its Subject name, and defines
// the identity record returned to callers.
package identity

import (
	"strconv"
	"strings"
)

// NA is the sentinel for an attribute the certificate does not carry or
// that failed to decode. Callers receive best-effort records with NA
// fields rather than errors.
const NA = "NA"

// Record is the externally visible extraction result. It is immutable
// once constructed: create once, return once, never shared across
// requests.
type Record struct {
	SignerName         string `json:"signerName"`
	Tpin               string `json:"tpin"`
	State              string `json:"state"`
	Gender             string `json:"gender"`
	YearOfBirth        string `json:"yob"`
	PostalCode         string `json:"pincode"`
	SerialNumber       string `json:"serialNumber"`
	NotAfter           int64  `json:"endDate"`
	IssuerName         string `json:"issuerName"`
	IssuerOrganisation string `json:"issuerOrganisation"`
}

// Qualifying reports whether the record carries at least one personal
// identity field. A signer's personal certificate encodes these fields;
// an intermediate CA or organisational certificate never does, so this
// predicate is the discriminator between "found the right certificate"
// and "found a certificate".
func (r *Record) Qualifying() bool {
	if r == nil {
		return false
	}
	return r.Tpin != NA || r.Gender != NA || r.YearOfBirth != NA || r.PostalCode != NA
}

// DecodeQualifier decodes the dnQualifier composite: the first four
// characters hold the birth year, the fifth the gender. The two
// sub-decodes are independent; a qualifier too short for gender may
// still yield a year. Total over any input.
func DecodeQualifier(dnQualifier string) (yearOfBirth, gender string) {
	yearOfBirth, gender = NA, NA
	if strings.TrimSpace(dnQualifier) == "" {
		return
	}

	if len(dnQualifier) >= 4 {
		if year, err := strconv.Atoi(dnQualifier[:4]); err == nil && year > 1900 {
			yearOfBirth = dnQualifier[:4]
		}
	}

	if len(dnQualifier) >= 5 {
		switch c := dnQualifier[4]; c {
		case 'M', 'm':
			gender = "M"
		case 'F', 'f':
			gender = "F"
		case 'T', 't':
			gender = "T"
		}
	}
	return
}

// DecodePostalCode validates a postal code attribute: any value that
// parses as a positive integer passes through unchanged, everything
// else is NA. No length or range constraint beyond positivity.
func DecodePostalCode(raw string) string {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return NA
	}
	return raw
}
