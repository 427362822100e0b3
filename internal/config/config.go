// Package config resolves runtime settings for the greeting server.
//
// Precedence, highest first: command-line flags bound into the viper
// instance, process environment, a .env file, built-in defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix namespaces environment variables: the key log_level is read from
// GREETING_LOG_LEVEL. PORT is also honoured unprefixed for platforms that set it.
const EnvPrefix = "GREETING"

// Config keys, shared by flags and environment.
const (
	KeyHost            = "host"
	KeyPort            = "port"
	KeyLogLevel        = "log_level"
	KeyShutdownTimeout = "shutdown_timeout"
	KeyDocsPath        = "docs_path"
)

// Config holds the server settings.
type Config struct {
	Host            string
	Port            string
	LogLevel        string
	ShutdownTimeout time.Duration
	DocsPath        string
}

// Default returns the settings used when nothing else is configured.
func Default() Config {
	return Config{
		Host:            "",
		Port:            "8080",
		LogLevel:        "info",
		ShutdownTimeout: 10 * time.Second,
		DocsPath:        "/api-docs",
	}
}

// LoadDotEnv loads variables from the given files (".env" when none are
// given) without overriding the existing environment. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads the configuration from v, which may already carry bound flags.
// A nil v reads from the environment only.
func Load(v *viper.Viper) (Config, error) {
	if v == nil {
		v = viper.New()
	}
	def := Default()
	v.SetDefault(KeyHost, def.Host)
	v.SetDefault(KeyPort, def.Port)
	v.SetDefault(KeyLogLevel, def.LogLevel)
	v.SetDefault(KeyShutdownTimeout, def.ShutdownTimeout)
	v.SetDefault(KeyDocsPath, def.DocsPath)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	if err := v.BindEnv(KeyPort, EnvPrefix+"_PORT", "PORT"); err != nil {
		return Config{}, fmt.Errorf("bind port env: %w", err)
	}

	cfg := Config{
		Host:            strings.TrimSpace(v.GetString(KeyHost)),
		Port:            strings.TrimSpace(v.GetString(KeyPort)),
		LogLevel:        strings.ToLower(strings.TrimSpace(v.GetString(KeyLogLevel))),
		ShutdownTimeout: v.GetDuration(KeyShutdownTimeout),
		DocsPath:        strings.TrimSpace(v.GetString(KeyDocsPath)),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 0 || port > 65535 {
		return fmt.Errorf("invalid port %q: must be a number between 0 and 65535", c.Port)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid shutdown timeout %s: must be positive", c.ShutdownTimeout)
	}
	if !strings.HasPrefix(c.DocsPath, "/") {
		return fmt.Errorf("invalid docs path %q: must start with /", c.DocsPath)
	}
	return nil
}

// Addr is the listen address. Port 0 asks the kernel for a free port.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// Level returns the parsed log level, defaulting to info.
func (c Config) Level() zapcore.Level {
	l, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}
	return l
}
