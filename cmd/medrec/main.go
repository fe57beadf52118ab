// Command medrec serves the medrec security and audit API.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/aussiebroadwan/medrec/internal/medrec/app"
	"github.com/aussiebroadwan/medrec/internal/medrec/service"
)

// Exit codes distinguish a bad deployment from a runtime failure.
const (
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	showVersion := flag.Bool("version", false, "print the build version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(app.BuildVersion)
		return
	}

	application, err := app.New(app.LoadConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "medrec: %v\n", err)
		if errors.Is(err, service.ErrConfiguration) {
			os.Exit(exitConfig)
		}
		os.Exit(exitRuntime)
	}

	if err := application.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "medrec: %v\n", err)
		os.Exit(exitRuntime)
	}
}
