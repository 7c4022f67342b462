package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	root := t.TempDir()
	t.Setenv("DUNNO_ROOT", root)

	cfg, err := Load(nil, "")
	require.NoError(t, err)

	require.Equal(t, root, cfg.DocRoot)
	require.Equal(t, DefaultAddr, cfg.Addr)
	require.Equal(t, DefaultPort, cfg.Port)
	require.Equal(t, DefaultLogLevel, cfg.LogLevel)
	require.Equal(t, DefaultPollInterval, cfg.PollInterval)
	require.Equal(t, DefaultReadTimeout, cfg.ReadTimeout)
	require.Equal(t, DefaultMaxHeaderBytes, cfg.MaxHeaderBytes)
	require.Equal(t, DefaultWorkers(), cfg.Workers)
	require.Empty(t, cfg.LogFile)
}

func TestLoadFromEnvironment(t *testing.T) {
	root := t.TempDir()
	t.Setenv("DUNNO_ROOT", root)
	t.Setenv("DUNNO_PORT", "9191")
	t.Setenv("DUNNO_WORKERS", "2")
	t.Setenv("DUNNO_READ_TIMEOUT", "45s")
	t.Setenv("DUNNO_LOG_LEVEL", "debug")

	cfg, err := Load(nil, "")
	require.NoError(t, err)

	require.Equal(t, 9191, cfg.Port)
	require.Equal(t, 2, cfg.Workers)
	require.Equal(t, 45*time.Second, cfg.ReadTimeout)
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestChangedFlagBeatsEnvironment(t *testing.T) {
	root := t.TempDir()
	t.Setenv("DUNNO_PORT", "9999")

	fl := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fl.Int("port", DefaultPort, "")
	fl.String("root", "", "")
	require.NoError(t, fl.Parse([]string{"--port", "7777", "--root", root}))

	cfg, err := Load(fl, "")
	require.NoError(t, err)

	require.Equal(t, 7777, cfg.Port, "a flag set on the command line wins")
	require.Equal(t, root, cfg.DocRoot)
}

func TestUnchangedFlagYieldsToEnvironment(t *testing.T) {
	root := t.TempDir()
	t.Setenv("DUNNO_ROOT", root)
	t.Setenv("DUNNO_PORT", "9393")

	fl := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fl.Int("port", DefaultPort, "")
	fl.String("root", "", "")
	require.NoError(t, fl.Parse(nil))

	cfg, err := Load(fl, "")
	require.NoError(t, err)

	require.Equal(t, 9393, cfg.Port, "an untouched flag default must not mask the environment")
}

func TestLoadFromFile(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(t.TempDir(), "dunno.yaml")
	yaml := "root: " + root + "\nport: 8123\nlog-level: warn\nread-timeout: 1m\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(nil, path)
	require.NoError(t, err)

	require.Equal(t, root, cfg.DocRoot)
	require.Equal(t, 8123, cfg.Port)
	require.Equal(t, "warn", cfg.LogLevel)
	require.Equal(t, time.Minute, cfg.ReadTimeout)
}

func TestEnvironmentBeatsFile(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(t.TempDir(), "dunno.yaml")
	require.NoError(t, os.WriteFile(path, []byte("root: "+root+"\nport: 8123\n"), 0o644))

	t.Setenv("DUNNO_PORT", "8222")

	cfg, err := Load(nil, path)
	require.NoError(t, err)
	require.Equal(t, 8222, cfg.Port)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(nil, filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	root := t.TempDir()

	file := filepath.Join(root, "plain.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	base := func() *Config {
		return &Config{
			Workers:        2,
			DocRoot:        root,
			Addr:           DefaultAddr,
			Port:           DefaultPort,
			LogLevel:       DefaultLogLevel,
			PollInterval:   DefaultPollInterval,
			ReadTimeout:    DefaultReadTimeout,
			MaxHeaderBytes: DefaultMaxHeaderBytes,
		}
	}

	require.NoError(t, base().Validate())

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative workers", func(c *Config) { c.Workers = -1 }},
		{"missing root", func(c *Config) { c.DocRoot = "" }},
		{"nonexistent root", func(c *Config) { c.DocRoot = filepath.Join(root, "gone") }},
		{"root is a file", func(c *Config) { c.DocRoot = file }},
		{"port zero", func(c *Config) { c.Port = 0 }},
		{"port too large", func(c *Config) { c.Port = 70000 }},
		{"zero poll interval", func(c *Config) { c.PollInterval = 0 }},
		{"zero header cap", func(c *Config) { c.MaxHeaderBytes = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestListenAddr(t *testing.T) {
	cfg := &Config{Addr: "0.0.0.0", Port: 8080}
	require.Equal(t, "0.0.0.0:8080", cfg.ListenAddr())

	cfg = &Config{Addr: "::1", Port: 9000}
	require.Equal(t, "[::1]:9000", cfg.ListenAddr())
}
