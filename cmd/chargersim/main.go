package main

import (
	"flag"
	"fmt"
	"os"

	"chargersim/internal/di"
	"chargersim/internal/structures"
)

func main() {
	flags := &structures.CliFlags{}
	flag.StringVar(&flags.ConfigPath, "config", "config.yaml", "path to config file")
	flag.BoolVar(&flags.DebugMode, "debug", false, "mirror logs to the console")
	flag.Parse()

	if _, err := di.InitApp(flags); err != nil {
		fmt.Fprintf(os.Stderr, "chargersim: %v\n", err)
		os.Exit(1)
	}
}
