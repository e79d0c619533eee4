package main

import (
	"os"

	"github.com/MahdiFarnaghi/intelli-geo/internal/cli"
	"github.com/tillberg/autorestart"
)

func main() {
	go autorestart.RestartOnChange()

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
