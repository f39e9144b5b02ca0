package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/georgepadayatti/esigninfo/esign/extract"
	"github.com/georgepadayatti/esigninfo/esign/identity"
	"github.com/georgepadayatti/esigninfo/keys"
)

// CertCommand extracts the signer identity from a certificate file:
// PEM, raw DER, or a PKCS#12 bundle.
func CertCommand(args []string) {
	fs := flag.NewFlagSet("cert", flag.ExitOnError)
	jsonOutput := fs.Bool("json", false, "Output the identity record as JSON")
	password := fs.String("password", "", "Passphrase for PKCS#12 input")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s cert [options] <signer.cer|signer.pem|signer.p12>\n\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "Options:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args[2:]); err != nil {
		osExit(2)
		return
	}
	if fs.NArg() != 1 {
		fs.Usage()
		osExit(2)
		return
	}

	ders, err := keys.LoadCertificates(fs.Arg(0), *password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		osExit(1)
		return
	}

	// A bundle may hold the signer plus its chain; the personal
	// certificate is the one carrying identity fields.
	var first *identity.Record
	var lastErr error
	for _, der := range ders {
		record, err := extract.IdentityFromCertificate(der)
		if err != nil {
			lastErr = err
			continue
		}
		if record.Qualifying() {
			printRecord(record, *jsonOutput)
			return
		}
		if first == nil {
			first = record
		}
	}

	if first != nil {
		printRecord(first, *jsonOutput)
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", lastErr)
	osExit(1)
}
