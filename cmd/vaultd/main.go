package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "vaultd",
		Short:         "Per-user tokenized yield vault service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if err := godotenv.Load(); err != nil {
				log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
			}
		},
	}
	root.AddCommand(newServeCmd(), newResetDBCmd())
	return root
}

// main is the entry point for vaultd.
func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("vaultd failed")
		os.Exit(1)
	}
}
