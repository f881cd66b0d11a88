//	@title			SchoolPulse Identity API
//	@version		1.0
//	@description	OAuth 2.0 token exchange service for SchoolPulse applications (RFC 6749)

//	@host		localhost:8080
//	@BasePath	/

package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/schoolpulse/identity/internal/bootstrap"
	"github.com/schoolpulse/identity/internal/config"
	"github.com/schoolpulse/identity/internal/version"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Usage = printUsage
	flag.Parse()

	if *showVersion {
		version.PrintVersion()
		os.Exit(0)
	}

	cfg := config.Load()
	if err := bootstrap.Run(cfg); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func printUsage() {
	fmt.Printf("Usage: %s [OPTIONS]\n\n", os.Args[0])
	fmt.Println("OAuth 2.0 token exchange service")
	fmt.Println("\nOptions:")
	fmt.Println("  -v, --version    Show version information")
	fmt.Println("  -h, --help       Show this help message")
}
