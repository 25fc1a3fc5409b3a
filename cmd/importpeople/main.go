package main

import (
	_ "embed"
	"os"

	"github.com/tigerroll/chunkflow/internal/cli"
)

// embeddedConfig is the default configuration; CHUNKFLOW_* variables and .env override it.
//
//go:embed resources/application.yaml
var embeddedConfig []byte

func main() {
	if err := cli.NewRootCmd(embeddedConfig).Execute(); err != nil {
		os.Exit(1)
	}
}
