package main

import (
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/elys-network/uservault/internal/config"
	"github.com/elys-network/uservault/internal/logger"
	"github.com/elys-network/uservault/internal/state"
)

func newResetDBCmd() *cobra.Command {
	var confirm bool
	cmd := &cobra.Command{
		Use:   "reset-db",
		Short: "Drop every vault table and recreate the schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger.Initialize(config.LogLevelFromEnv())
			if !confirm {
				return errors.New("refusing to drop tables without --yes")
			}
			if err := config.LoadDatabaseConfig(); err != nil {
				return err
			}
			if !config.DatabaseEnabled() {
				return errors.New("DB_HOST environment variable not set")
			}

			dbCfg := databaseConfig()
			log.Info().
				Str("host", dbCfg.Host).
				Int("port", dbCfg.Port).
				Str("user", dbCfg.User).
				Str("dbname", dbCfg.DBName).
				Msg("Connecting to database")

			if err := state.InitDB(dbCfg); err != nil {
				return err
			}
			defer state.CloseDB()

			if cycle, err := state.GetCurrentCycleNumber(cmd.Context()); err == nil {
				log.Warn().Int("cycle", cycle).Msg("Discarding valuation history")
			}
			if err := state.ResetDatabase(cmd.Context()); err != nil {
				return err
			}
			log.Info().Msg("Database reset complete!")
			return nil
		},
	}
	cmd.Flags().BoolVar(&confirm, "yes", false, "confirm dropping all vault tables")
	return cmd
}

func databaseConfig() state.DBConfig {
	return state.DBConfig{
		Host:     config.DBHost,
		Port:     config.DBPort,
		User:     config.DBUser,
		Password: config.DBPassword,
		DBName:   config.DBName,
		SSLMode:  config.DBSSLMode,
	}
}
