package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// If true, migrations embedded in the binary are applied at startup.
	AutoMigrate bool
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("LODGE_HTTP_ADDR", "0.0.0.0:8000"),
		LogLevel:  EnvString("LODGE_LOG_LEVEL", "info"),
		LogFormat: EnvString("LODGE_LOG_FORMAT", "json"),

		ReadHeaderTimeout: EnvDuration("LODGE_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("LODGE_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("LODGE_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("LODGE_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("LODGE_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("LODGE_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("LODGE_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("LODGE_DB_MIN_CONNS", 0),

		AutoMigrate: EnvBool("LODGE_AUTO_MIGRATE", true),
	}
}
