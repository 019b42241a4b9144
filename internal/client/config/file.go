package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/docvault/internal/flagx"
	"github.com/dmitrijs2005/docvault/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is a DTO used exclusively for decoding config files. Intervals
// use timex.Duration so they can be written as "300ms" or as nanoseconds.
// Zero values leave the corresponding Config field untouched.
type FileConfig struct {
	DataDir         string         `json:"data_dir" yaml:"data_dir"`
	DatabaseFile    string         `json:"database_file" yaml:"database_file"`
	LogLevel        string         `json:"log_level" yaml:"log_level"`
	PersistDebounce timex.Duration `json:"persist_debounce" yaml:"persist_debounce"`
	MaxUploadSize   int64          `json:"max_upload_size" yaml:"max_upload_size"`
	StreamInterval  timex.Duration `json:"stream_interval" yaml:"stream_interval"`
	StreamChunkSize int            `json:"stream_chunk_size" yaml:"stream_chunk_size"`
	LoginLatency    timex.Duration `json:"login_latency" yaml:"login_latency"`
	RefreshLatency  timex.Duration `json:"refresh_latency" yaml:"refresh_latency"`
	QueryLatency    timex.Duration `json:"query_latency" yaml:"query_latency"`
	AccessTokenTTL  timex.Duration `json:"access_token_ttl" yaml:"access_token_ttl"`
	JWTSecret       string         `json:"jwt_secret" yaml:"jwt_secret"`
}

// parseFile overlays cfg with the file named by -c or -config. The format is
// chosen by extension: .yaml and .yml are YAML, anything else is JSON.
func parseFile(cfg *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var fc FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}

	fc.apply(cfg)
	return nil
}

func (fc FileConfig) apply(cfg *Config) {
	setString(&cfg.DataDir, fc.DataDir)
	setString(&cfg.DatabaseFile, fc.DatabaseFile)
	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.JWTSecret, fc.JWTSecret)

	if fc.MaxUploadSize > 0 {
		cfg.MaxUploadSize = fc.MaxUploadSize
	}
	if fc.StreamChunkSize > 0 {
		cfg.StreamChunkSize = fc.StreamChunkSize
	}

	setDuration(&cfg.PersistDebounce, fc.PersistDebounce)
	setDuration(&cfg.StreamInterval, fc.StreamInterval)
	setDuration(&cfg.LoginLatency, fc.LoginLatency)
	setDuration(&cfg.RefreshLatency, fc.RefreshLatency)
	setDuration(&cfg.QueryLatency, fc.QueryLatency)
	setDuration(&cfg.AccessTokenTTL, fc.AccessTokenTTL)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration > 0 {
		*dst = v.Duration
	}
}
