// Package cli provides the command-line interface for identity
// extraction from eSigned documents and certificates.
package cli

import (
	"fmt"
	"os"
)

// Version information
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// osExit is a variable for os.Exit to allow testing
var osExit = os.Exit

// Run executes the CLI with the given arguments.
// This is the main entry point for the CLI.
func Run(args []string) {
	if len(args) < 2 {
		Usage()
		return
	}

	command := args[1]

	switch command {
	case "extract":
		ExtractCommand(args)
	case "cert":
		CertCommand(args)
	case "version":
		VersionCommand()
	case "help", "-h", "--help":
		Usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		Usage()
	}
}

// Usage prints the CLI usage information.
func Usage() {
	fmt.Printf("esigninfo - eSign identity extraction tool\n\n")
	fmt.Printf("Usage: %s <command> [options] <args>\n\n", os.Args[0])
	fmt.Println("Commands:")
	fmt.Println("  extract  Extract signer identity from a signed PDF")
	fmt.Println("  cert     Extract signer identity from a certificate file")
	fmt.Println("  version  Show version information")
	fmt.Println("  help     Show this help message")
	fmt.Println("")
	fmt.Printf("Use '%s <command> -h' for command-specific help\n", os.Args[0])
	fmt.Println("")
	fmt.Println("Examples:")
	fmt.Printf("  %s extract signed.pdf\n", os.Args[0])
	fmt.Printf("  %s extract -json signed.pdf\n", os.Args[0])
	fmt.Printf("  %s cert signer.cer\n", os.Args[0])
	fmt.Printf("  %s cert -password secret signer.p12\n", os.Args[0])
}

// VersionCommand prints version information.
func VersionCommand() {
	fmt.Printf("esigninfo version %s\n", Version)
	fmt.Printf("Build time: %s\n", BuildTime)
}
