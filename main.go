package main

import (
	"os"
	"runtime"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/thechriswalker/go-ccmix/cmds/keys"
	"github.com/thechriswalker/go-ccmix/cmds/node"
	"github.com/thechriswalker/go-ccmix/cmds/simulate"
	"github.com/thechriswalker/go-ccmix/tally"
)

func preamble(cmd *cobra.Command, args []string) {
	log.Info().
		Str("version", tally.Version).
		Str("protocol", tally.ProtocolVersion).
		Msg("ccmix control component")

	commit := tally.Commit
	if len(commit) > 8 {
		commit = commit[0:8]
	}
	log.Debug().
		Str("commit", commit).
		Str("built", tally.BuildDate).
		Str("arch", runtime.GOARCH).
		Str("os", runtime.GOOS).
		Msg("Build Info")
}

const timeFormatMs = "2006-01-02T15:04:05.000Z07:00"
const timeFormatLocal = "2006-01-02 15:04:05.000"

func main() {
	// pretty logs go to stderr, results go to stdout
	zerolog.TimeFieldFormat = timeFormatMs
	log.Logger = log.Output(zerolog.NewConsoleWriter(func(cw *zerolog.ConsoleWriter) {
		cw.Out = os.Stderr
		cw.TimeFormat = timeFormatLocal
		cw.NoColor = true
	}))

	var rootCmd = &cobra.Command{
		Use:              "ccmix",
		Short:            "Verifiable mix-decrypt chain for control components",
		Version:          tally.Version,
		PersistentPreRun: preamble,
	}

	if os.Getenv("DEBUG") != "" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	// commands:
	//
	// - node: run one control component, serving mix-decrypt requests over gRPC
	// - keys: create node configs, or print the public [[nodes]] entry of one
	// - simulate: run all four nodes in process over a set of test ballot boxes
	node.Register(rootCmd)
	keys.Register(rootCmd)
	simulate.Register(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Err(err).Msg("An Error Occured")
		os.Exit(1)
	}
}
