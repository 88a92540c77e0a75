package main

import (
	"flag"
	"os"

	"github.com/torchlightrpg/torchlight/internal/platform/config"
	"github.com/torchlightrpg/torchlight/internal/tools/maintenancecheck"
)

func main() {
	cfg, err := maintenancecheck.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	if err := maintenancecheck.Run(cfg, os.Stdout); err != nil {
		config.Exitf("evaluate gate: %v", err)
	}
}
