// AgentOven Console, the administrative front for the agent backend.
//
// It provides:
//   - User, role and permission administration
//   - Agent configuration with change review
//   - Per-agent tool bindings and the tool registry
//   - Agent logs and the usage dashboard
//
// Run "console serve" for the browser API, or use the subcommands to drive
// the same pages from a terminal.

package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
