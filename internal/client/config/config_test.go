package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaults() *Config {
	c := &Config{}
	c.LoadDefaults()
	return c
}

func TestLoadDefaults(t *testing.T) {
	c := defaults()

	assert.Equal(t, "docvault.db", c.DatabaseFile)
	assert.Equal(t, 300*time.Millisecond, c.PersistDebounce)
	assert.Equal(t, int64(50<<20), c.MaxUploadSize)
	assert.Equal(t, 24*time.Millisecond, c.StreamInterval)
	assert.Equal(t, 2, c.StreamChunkSize)
	assert.Equal(t, time.Hour, c.AccessTokenTTL)
	assert.NotEmpty(t, c.JWTSecret)
}

func TestDatabasePath(t *testing.T) {
	c := &Config{DataDir: "/data", DatabaseFile: "x.db"}
	assert.Equal(t, filepath.Join("/data", "x.db"), c.DatabasePath())

	c.DatabaseFile = "/abs/y.db"
	assert.Equal(t, "/abs/y.db", c.DatabasePath())

	c = &Config{DatabaseFile: ":memory:"}
	assert.Equal(t, ":memory:", c.DatabasePath())
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadConfig_Precedence(t *testing.T) {
	path := writeFile(t, "cfg.yaml", "data_dir: /from/file\nlog_level: warn\npersist_debounce: 1s\nstream_chunk_size: 4\n")

	cfg, err := LoadConfig([]string{"-c", path, "-l", "debug", "--unknown", "x"})
	require.NoError(t, err)

	want := defaults()
	want.DataDir = "/from/file"
	want.LogLevel = "debug"
	want.PersistDebounce = time.Second
	want.StreamChunkSize = 4
	assert.Empty(t, cmp.Diff(want, cfg))
}

func TestParseFile(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		body    string
		want    func(*Config)
		wantErr bool
	}{
		{
			name: "json",
			file: "cfg.json",
			body: `{"database_file":"a.db","query_latency":"10ms","max_upload_size":1024}`,
			want: func(c *Config) {
				c.DatabaseFile = "a.db"
				c.QueryLatency = 10 * time.Millisecond
				c.MaxUploadSize = 1024
			},
		},
		{
			name: "yaml nanoseconds",
			file: "cfg.yml",
			body: "stream_interval: 5000000\njwt_secret: s3cret\n",
			want: func(c *Config) {
				c.StreamInterval = 5 * time.Millisecond
				c.JWTSecret = "s3cret"
			},
		},
		{name: "bad json", file: "bad.json", body: "{ nope", wantErr: true},
		{name: "bad duration", file: "bad.yaml", body: "access_token_ttl: soon\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.body)
			got := defaults()
			err := parseFile(got, []string{"-config=" + path})
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			want := defaults()
			tt.want(want)
			assert.Empty(t, cmp.Diff(want, got))
		})
	}
}

func TestParseFile_Missing(t *testing.T) {
	c := defaults()
	require.NoError(t, parseFile(c, nil))
	require.Error(t, parseFile(c, []string{"-c", filepath.Join(t.TempDir(), "none.json")}))
}

func TestParseFlags(t *testing.T) {
	c := defaults()
	require.NoError(t, parseFlags(c, []string{"-d", "/tmp/dv", "-latency", "0s", "-max-upload=2048", "-debounce", "50ms"}))

	assert.Equal(t, "/tmp/dv", c.DataDir)
	assert.Equal(t, int64(2048), c.MaxUploadSize)
	assert.Equal(t, 50*time.Millisecond, c.PersistDebounce)
	assert.Zero(t, c.LoginLatency)
	assert.Zero(t, c.RefreshLatency)
	assert.Zero(t, c.QueryLatency)

	require.Error(t, parseFlags(defaults(), []string{"-debounce", "abc"}))
}

func TestParseFlags_LatencyUntouchedByDefault(t *testing.T) {
	c := defaults()
	require.NoError(t, parseFlags(c, nil))
	assert.Equal(t, 500*time.Millisecond, c.LoginLatency)
}
