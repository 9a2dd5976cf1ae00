package main

import (
	"fmt"
	"os"
	_ "time/tzdata"

	"github.com/PratikDhanave/event-mirror-service/internal/cli"
)

// main boots the service: flags → config → logger → command.
func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
