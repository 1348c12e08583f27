package config

import "time"

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port            string
	AppVersion      string
	CORSOrigins     string
	ShutdownTimeout time.Duration
	Debug           bool
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port:            getEnv("PORT", "8080"),
		AppVersion:      getEnv("APP_VERSION", "1.0.0"),
		CORSOrigins:     getEnv("CORS_ORIGINS", "*"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		Debug:           getEnvBool("DEBUG", false),
	}
}
