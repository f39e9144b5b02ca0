package cli

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/georgepadayatti/esigninfo/config"
	"github.com/georgepadayatti/esigninfo/esign/extract"
	"github.com/georgepadayatti/esigninfo/esign/identity"
)

// ExtractCommand extracts the signer identity from a signed PDF file.
func ExtractCommand(args []string) {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	jsonOutput := fs.Bool("json", false, "Output the identity record as JSON")
	configFile := fs.String("config", "", "YAML file with extraction limits")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s extract [options] <signed.pdf>\n\n", os.Args[0])
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

	opts, err := loadOptions(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		osExit(1)
		return
	}

	doc, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to read %s: %v\n", fs.Arg(0), err)
		osExit(1)
		return
	}

	record, err := extract.IdentityFromDocumentOptions(doc, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		osExit(1)
		return
	}

	printRecord(record, *jsonOutput)
}

// loadOptions resolves extraction options from an optional config file.
func loadOptions(configFile string) (extract.Options, error) {
	if configFile == "" {
		return config.Default().Options(), nil
	}
	cfg, err := config.Load(configFile)
	if err != nil {
		return extract.Options{}, err
	}
	return cfg.Options(), nil
}

// printRecord renders an identity record as text or JSON.
func printRecord(record *identity.Record, asJSON bool) {
	if asJSON {
		out, err := json.MarshalIndent(map[string]*identity.Record{
			"aadhaarDetails": record,
		}, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			osExit(1)
			return
		}
		fmt.Println(string(out))
		return
	}

	fmt.Printf("Signer name:    %s\n", record.SignerName)
	fmt.Printf("TPIN:           %s\n", record.Tpin)
	fmt.Printf("State:          %s\n", record.State)
	fmt.Printf("Gender:         %s\n", record.Gender)
	fmt.Printf("Year of birth:  %s\n", record.YearOfBirth)
	fmt.Printf("Postal code:    %s\n", record.PostalCode)
	fmt.Printf("Serial number:  %s\n", record.SerialNumber)
	fmt.Printf("Not after (ms): %d\n", record.NotAfter)
	fmt.Printf("Issuer:         %s\n", record.IssuerName)
	fmt.Printf("Issuer org:     %s\n", record.IssuerOrganisation)
}
