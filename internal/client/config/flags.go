package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/docvault/internal/flagx"
)

var knownFlags = []string{"-d", "-db", "-l", "-debounce", "-max-upload", "-stream-interval", "-latency"}

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-d string              data directory
//	-db string             database file name (relative to -d)
//	-l string              log level (debug, info, warn, error)
//	-debounce duration     persistence debounce window
//	-max-upload int        maximum upload size in bytes
//	-stream-interval dur   delay between streamed answer chunks
//	-latency duration      simulated latency for every backend call
//
// args is filtered with flagx.FilterArgs so flags owned by other components
// do not cause parse errors.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, knownFlags)

	fs := flag.NewFlagSet("docvault", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "data directory")
	fs.StringVar(&cfg.DatabaseFile, "db", cfg.DatabaseFile, "database file")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.DurationVar(&cfg.PersistDebounce, "debounce", cfg.PersistDebounce, "persistence debounce window")
	fs.Int64Var(&cfg.MaxUploadSize, "max-upload", cfg.MaxUploadSize, "maximum upload size in bytes")
	fs.DurationVar(&cfg.StreamInterval, "stream-interval", cfg.StreamInterval, "delay between streamed chunks")
	latency := fs.Duration("latency", -1, "simulated backend latency")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *latency >= 0 {
		cfg.LoginLatency = *latency
		cfg.RefreshLatency = *latency
		cfg.QueryLatency = *latency
	}
	return nil
}
