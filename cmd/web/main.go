// Command web runs the attendance dashboard server: it polls the configured
// subject sheets on a fixed interval and serves the aggregated statistics
// over HTTP.
package main

import (
	"flag"
	"fmt"
	"os"

	"rollcall/internal/app"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	application, err := app.New(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rollcall: %v\n", err)
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "rollcall: %v\n", err)
		os.Exit(1)
	}
}
