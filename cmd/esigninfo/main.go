// Command esigninfo extracts signer identity attributes from eSigned
// PDF documents and certificate files.
//
// Usage:
//
//	esigninfo <command> [options] <args>
//
// Commands:
//
//	extract  Extract signer identity from a signed PDF
//	cert     Extract signer identity from a certificate file
//	version  Show version information
//	help     Show help message
//
// Examples:
//
//	# Extract identity from a signed PDF
//	esigninfo extract signed.pdf
//
//	# Extract identity from a bare certificate, as JSON
//	esigninfo cert -json signer.cer
package main

import (
	"os"

	"github.com/georgepadayatti/esigninfo/cli"
)

// These variables are set at build time using ldflags:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.buildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)" ./cmd/esigninfo
var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	// Set version info
	cli.Version = version
	cli.BuildTime = buildTime

	// Run the CLI
	cli.Run(os.Args)
}
