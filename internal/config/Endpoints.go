package config

import (
	"github.com/rs/zerolog/log"
)

// Endpoint and database configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// WebPort serves the JSON API and /metrics.
	WebPort string
	// GRPCPort serves the gRPC health service.
	GRPCPort string

	// DBHost enables persistence when non-empty.
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
)

// DatabaseEnabled reports whether DB_HOST was configured.
func DatabaseEnabled() bool {
	return DBHost != ""
}

// loadEndpointConfig loads endpoint configuration from environment variables.
// This function is called by LoadConfig() in General.go.
func loadEndpointConfig() error {
	log.Info().Msg("Loading endpoint configuration from environment variables...")

	WebPort = getEnvOrDefault("WEB_PORT", "8080")
	GRPCPort = getEnvOrDefault("GRPC_PORT", "9090")

	if err := LoadDatabaseConfig(); err != nil {
		return err
	}

	log.Debug().
		Str("WebPort", WebPort).
		Str("GRPCPort", GRPCPort).
		Bool("Database", DatabaseEnabled()).
		Msg("Endpoint configuration loaded successfully.")

	return nil
}

// LoadDatabaseConfig reads only the DB_* variables, for tools that need nothing else.
func LoadDatabaseConfig() error {
	var err error

	DBHost = getEnvOrDefault("DB_HOST", "")
	if DBPort, err = getEnvAsIntOrDefault("DB_PORT", 5432); err != nil {
		return err
	}
	DBUser = getEnvOrDefault("DB_USER", "")
	DBPassword = getEnvOrDefault("DB_PASSWORD", "")
	DBName = getEnvOrDefault("DB_NAME", "uservault")
	DBSSLMode = getEnvOrDefault("DB_SSLMODE", "disable")
	return nil
}
