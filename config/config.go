// Package config assembles server settings from flags, environment
// variables and an optional config file, in that order of precedence.
package config

import (
	"fmt"
	"net"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Defaults shared between flag definitions and viper fallbacks, so the
// two never disagree.
const (
	DefaultAddr           = "0.0.0.0"
	DefaultPort           = 8080
	DefaultLogLevel       = "info"
	DefaultPollInterval   = 5 * time.Second
	DefaultReadTimeout    = 30 * time.Second
	DefaultMaxHeaderBytes = 8192
)

// EnvPrefix namespaces the environment variables consulted, e.g.
// DUNNO_PORT or DUNNO_LOG_FILE.
const EnvPrefix = "DUNNO"

// DefaultWorkers is the worker count when none is configured: one
// process per CPU.
func DefaultWorkers() int { return runtime.NumCPU() }

// Config holds all server settings.
type Config struct {
	// Workers is the worker process count; 0 serves in the master
	// process itself.
	Workers int `mapstructure:"workers"`
	// DocRoot is the directory files are served from. Required.
	DocRoot string `mapstructure:"root"`
	Addr    string `mapstructure:"addr"`
	Port    int    `mapstructure:"port"`
	// LogFile receives log output instead of stderr when set.
	LogFile  string `mapstructure:"log-file"`
	LogLevel string `mapstructure:"log-level"`

	PollInterval   time.Duration `mapstructure:"poll-interval"`
	ReadTimeout    time.Duration `mapstructure:"read-timeout"`
	MaxHeaderBytes int           `mapstructure:"max-header-bytes"`
}

// Load assembles a Config. Changed flags win over environment
// variables, which win over the config file, which wins over defaults.
// flags may be nil when no command line is in play.
func Load(flags *pflag.FlagSet, cfgFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("workers", DefaultWorkers())
	v.SetDefault("root", "")
	v.SetDefault("addr", DefaultAddr)
	v.SetDefault("port", DefaultPort)
	v.SetDefault("log-file", "")
	v.SetDefault("log-level", DefaultLogLevel)
	v.SetDefault("poll-interval", DefaultPollInterval)
	v.SetDefault("read-timeout", DefaultReadTimeout)
	v.SetDefault("max-header-bytes", DefaultMaxHeaderBytes)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	if c.DocRoot == "" {
		return fmt.Errorf("document root is required")
	}
	info, err := os.Stat(c.DocRoot)
	if err != nil {
		return fmt.Errorf("document root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("document root %s is not a directory", c.DocRoot)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be within [1, 65535], got %d", c.Port)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}
	if c.MaxHeaderBytes <= 0 {
		return fmt.Errorf("max header bytes must be positive, got %d", c.MaxHeaderBytes)
	}
	return nil
}

// ListenAddr joins the bind address and port.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.Addr, strconv.Itoa(c.Port))
}
