package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort        = 8080
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 50 * 1024 * 1024 // 50MB

	// DefaultWindowWeeks is the half-year reporting window used to
	// normalize per-week and per-4-week rates.
	DefaultWindowWeeks = 26

	// DefaultChapter is the fallback chapter name when the report header
	// does not carry one.
	DefaultChapter = "威鋒"

	// Directory permissions
	DefaultDirPerm = 0o750
)

// Config holds all configuration for the PALMS report server
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// Report configuration
	PDFDirectory   string
	MaxFileSize    int64 // Maximum PDF file size in bytes
	DefaultChapter string
	WindowWeeks    int

	// Lottery configuration
	ExcludeWinners bool

	// Persistence configuration; empty DSN keeps all state in memory
	DatabaseDSN string

	// Application configuration
	Version    string
	ServerName string
	LogLevel   string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		// Fallback to current directory if working directory cannot be determined
		currentDir = "."
	}

	return &Config{
		Mode:           ModeServer,
		Host:           DefaultHost,
		Port:           DefaultPort,
		PDFDirectory:   currentDir,
		MaxFileSize:    DefaultMaxFileSize,
		DefaultChapter: DefaultChapter,
		WindowWeeks:    DefaultWindowWeeks,
		ExcludeWinners: true,
		DatabaseDSN:    "",
		Version:        "1.0.0",
		ServerName:     "palms-server",
		LogLevel:       DefaultLogLevel,
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	pflag.Parse()

	populateConfigFromViper(cfg)

	// Expand paths if needed
	if cfg.PDFDirectory != "" {
		if expandedPath, err := filepath.Abs(cfg.PDFDirectory); err == nil {
			cfg.PDFDirectory = expandedPath
		}
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	// Set environment variable prefix
	viper.SetEnvPrefix("PALMS")
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("dir", cfg.PDFDirectory)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
	viper.SetDefault("chapter", cfg.DefaultChapter)
	viper.SetDefault("window-weeks", cfg.WindowWeeks)
	viper.SetDefault("exclude-winners", cfg.ExcludeWinners)
	viper.SetDefault("database-dsn", cfg.DatabaseDSN)
	viper.SetDefault("loglevel", cfg.LogLevel)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Run mode: 'server' for the HTTP API, 'stdio' for the MCP tool surface")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("dir", cfg.PDFDirectory, "Directory containing PALMS report PDF files")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")
	pflag.String("chapter", cfg.DefaultChapter, "Fallback chapter name when the report header has none")
	pflag.Int("window-weeks", cfg.WindowWeeks, "Half-year window in weeks used for rate normalization")
	pflag.Bool("exclude-winners", cfg.ExcludeWinners, "Exclude past winners from subsequent draws within a lottery session")
	pflag.String("database-dsn", cfg.DatabaseDSN, "Postgres DSN for persistence (empty keeps state in memory)")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	_ = viper.BindPFlag("mode", pflag.Lookup("mode"))
	_ = viper.BindPFlag("host", pflag.Lookup("host"))
	_ = viper.BindPFlag("port", pflag.Lookup("port"))
	_ = viper.BindPFlag("dir", pflag.Lookup("dir"))
	_ = viper.BindPFlag("maxfilesize", pflag.Lookup("maxfilesize"))
	_ = viper.BindPFlag("chapter", pflag.Lookup("chapter"))
	_ = viper.BindPFlag("window-weeks", pflag.Lookup("window-weeks"))
	_ = viper.BindPFlag("exclude-winners", pflag.Lookup("exclude-winners"))
	_ = viper.BindPFlag("database-dsn", pflag.Lookup("database-dsn"))
	_ = viper.BindPFlag("loglevel", pflag.Lookup("loglevel"))
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nPALMS Report Server - chapter attendance/referral report ingestion, "+
			"traffic-light scoring and lottery draws\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                        # HTTP API on 127.0.0.1:8080\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --dir=/data/reports --port=9090        # custom report directory and port\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=stdio                           # MCP tool surface over stdio\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --database-dsn='host=db user=palms...' # persist state to Postgres\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  PALMS_MODE              Run mode\n")
		fmt.Fprintf(os.Stderr, "  PALMS_HOST              Server host\n")
		fmt.Fprintf(os.Stderr, "  PALMS_PORT              Server port\n")
		fmt.Fprintf(os.Stderr, "  PALMS_DIR               Report PDF directory\n")
		fmt.Fprintf(os.Stderr, "  PALMS_MAXFILESIZE       Maximum file size\n")
		fmt.Fprintf(os.Stderr, "  PALMS_DATABASE_DSN      Postgres DSN\n")
		fmt.Fprintf(os.Stderr, "  PALMS_LOGLEVEL          Log level\n")
	}
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.PDFDirectory = viper.GetString("dir")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
	cfg.DefaultChapter = viper.GetString("chapter")
	cfg.WindowWeeks = viper.GetInt("window-weeks")
	cfg.ExcludeWinners = viper.GetBool("exclude-winners")
	cfg.DatabaseDSN = viper.GetString("database-dsn")
	cfg.LogLevel = viper.GetString("loglevel")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate mode
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	// Validate port range (only for server mode)
	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	// Validate report directory
	if c.PDFDirectory == "" {
		return errors.New("report directory cannot be empty")
	}

	// Check if report directory exists, create if it doesn't
	if _, err := os.Stat(c.PDFDirectory); os.IsNotExist(err) {
		if err := os.MkdirAll(c.PDFDirectory, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create report directory %s: %w", c.PDFDirectory, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access report directory %s: %w", c.PDFDirectory, err)
	}

	// Validate max file size
	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	// Validate normalization window
	if c.WindowWeeks <= 0 {
		return errors.New("window weeks must be positive")
	}

	if c.DefaultChapter == "" {
		return errors.New("default chapter name cannot be empty")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, PDFDirectory: %s, WindowWeeks: %d, "+
		"ExcludeWinners: %t, LogLevel: %s, MaxFileSize: %d}",
		c.Mode, c.Host, c.Port, c.PDFDirectory, c.WindowWeeks, c.ExcludeWinners, c.LogLevel, c.MaxFileSize)
}

// IsServerMode returns true if running the HTTP API surface
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if running the MCP stdio surface
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
