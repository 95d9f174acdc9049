package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/danmuck/hl7ctl/internal/logging"
	"github.com/danmuck/hl7ctl/internal/mlp"
	"github.com/danmuck/hl7ctl/internal/observability"
)

func main() {
	configPath := flag.String("config", "", "path to hl7ctl TOML config")
	flag.Parse()

	observability.InitLogger("hl7ctl")
	logging.ConfigureRuntime()

	cfg := mlp.DefaultServiceConfig()
	if *configPath != "" {
		loaded, err := loadServiceConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "hl7ctl: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	svc, err := mlp.NewService(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hl7ctl: %v\n", err)
		os.Exit(1)
	}
	if err := svc.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "hl7ctl: %v\n", err)
		os.Exit(1)
	}
}
