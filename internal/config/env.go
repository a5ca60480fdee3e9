package config

import (
	"os"
	"strconv"
)

// EnvConfig holds environment-derived configuration for the gateway
type EnvConfig struct {
	Port      int
	Env       string
	SecretKey string
	LogLevel  string

	// Fail-open vs fail-closed when the rate-limit store errors out.
	// Default is fail-open; the knob makes the trade-off explicit.
	FailOpen bool

	// Policy table file (hot-reloaded)
	PolicyConfigFile string

	// Security monitor settings
	MonitorMaxEvents int
	MonitorDBPath    string

	// Payload inspection
	EnableInspector bool
	InspectorStrict bool

	// Log file settings
	LogDir        string
	LogFile       string
	LogMaxSize    int  // max size of a single log file (MB)
	LogMaxBackups int  // max number of rotated files to keep
	LogMaxAge     int  // max days to keep rotated files
	LogCompress   bool // gzip rotated files
	LogToConsole  bool // also write to stdout
}

// NewEnvConfig builds configuration from environment variables
func NewEnvConfig() *EnvConfig {
	env := getEnv("ENV", "")
	if env == "" {
		env = getEnv("NODE_ENV", "development")
	}

	return &EnvConfig{
		Port:      getEnvAsInt("PORT", 3000),
		Env:       env,
		SecretKey: getEnv("SECRET_KEY", ""),
		LogLevel:  getEnv("LOG_LEVEL", "info"),

		FailOpen: getEnv("FAIL_OPEN", "true") != "false",

		PolicyConfigFile: getEnv("RATE_LIMIT_CONFIG", ".config/ratelimit.json"),

		MonitorMaxEvents: getEnvAsInt("SECURITY_MAX_EVENTS", 1000),
		MonitorDBPath:    getEnv("SECURITY_EVENTS_DB", ".config/security_events.db"),

		EnableInspector: getEnv("ENABLE_INSPECTOR", "true") != "false",
		InspectorStrict: getEnv("INSPECTOR_STRICT", "false") == "true",

		LogDir:        getEnv("LOG_DIR", "logs"),
		LogFile:       getEnv("LOG_FILE", "gateway.log"),
		LogMaxSize:    getEnvAsInt("LOG_MAX_SIZE", 100),
		LogMaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 10),
		LogMaxAge:     getEnvAsInt("LOG_MAX_AGE", 30),
		LogCompress:   getEnv("LOG_COMPRESS", "true") != "false",
		LogToConsole:  getEnv("LOG_TO_CONSOLE", "true") != "false",
	}
}

// IsDevelopment reports whether the gateway runs in development mode
func (c *EnvConfig) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction reports whether the gateway runs in production mode
func (c *EnvConfig) IsProduction() bool {
	return c.Env == "production"
}

// ShouldLog reports whether a message at the given level should be logged
func (c *EnvConfig) ShouldLog(level string) bool {
	levels := map[string]int{
		"error": 0,
		"warn":  1,
		"info":  2,
		"debug": 3,
	}

	currentLevel, ok := levels[c.LogLevel]
	if !ok {
		currentLevel = 2 // default info
	}

	requestLevel, ok := levels[level]
	if !ok {
		return false
	}

	return requestLevel <= currentLevel
}

// getEnv returns the environment variable or the default when unset
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt returns the environment variable parsed as int, or the default
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
