package node

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/thechriswalker/go-ccmix/config"
	"github.com/thechriswalker/go-ccmix/protocol"
	"github.com/thechriswalker/go-ccmix/tally"
)

// Register the control component node command
func Register(rootCmd *cobra.Command) {
	var configFile string
	var listenAddr string
	var dataDir string

	var cmd = &cobra.Command{
		Use:   "node",
		Short: "Control Component Node",
		Long:  "Run one control component, serving mix-decrypt requests from the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("listen-addr") {
				cfg.ListenAddr = listenAddr
			}
			if cmd.Flags().Changed("data-dir") {
				cfg.DataDir = dataDir
			}
			log.Info().
				Int("node", cfg.NodeID).
				Str("storage", cfg.Storage).
				Str("data", cfg.DataDir).
				Int("ballot_boxes", len(cfg.BallotBoxes)).
				Msg("Starting Control Component")

			n, err := config.Bootstrap(cfg, tally.WithLogger(log.Logger))
			if err != nil {
				return err
			}
			defer n.Close()

			lis, err := net.Listen("tcp", cfg.ListenAddr)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return protocol.Serve(ctx, lis, n.Service)
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "ccmix.toml", "The path to the node's TOML config file")
	cmd.Flags().StringVar(&listenAddr, "listen-addr", "", "Override the listen address from the config (port :0 lets the OS choose)")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Override the directory to store results in")
	rootCmd.AddCommand(cmd)
}
