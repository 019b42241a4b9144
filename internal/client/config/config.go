package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds runtime settings for the docvault client.
//
// Units: every interval is a time.Duration; MaxUploadSize is in bytes.
type Config struct {
	DataDir      string
	DatabaseFile string
	LogLevel     string

	PersistDebounce time.Duration
	MaxUploadSize   int64

	StreamInterval  time.Duration
	StreamChunkSize int

	LoginLatency   time.Duration
	RefreshLatency time.Duration
	QueryLatency   time.Duration
	AccessTokenTTL time.Duration
	JWTSecret      string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DataDir = defaultDataDir()
	c.DatabaseFile = "docvault.db"
	c.LogLevel = "info"
	c.PersistDebounce = 300 * time.Millisecond
	c.MaxUploadSize = 50 << 20
	c.StreamInterval = 24 * time.Millisecond
	c.StreamChunkSize = 2
	c.LoginLatency = 500 * time.Millisecond
	c.RefreshLatency = 300 * time.Millisecond
	c.QueryLatency = 200 * time.Millisecond
	c.AccessTokenTTL = time.Hour
	c.JWTSecret = "docvault-mock-secret"
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "docvault")
	}
	return ".docvault"
}

// DatabasePath is DatabaseFile resolved against DataDir. An absolute
// DatabaseFile is returned unchanged.
func (c *Config) DatabasePath() string {
	if filepath.IsAbs(c.DatabaseFile) || c.DataDir == "" {
		return c.DatabaseFile
	}
	return filepath.Join(c.DataDir, c.DatabaseFile)
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// a config file (if one is named) and command-line flags. Later sources take
// precedence over earlier ones. args excludes the program name.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseFile(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}
