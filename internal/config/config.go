package config

import (
	"fmt"
	"os"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
)

// EnvPrefix prefixes the environment variable for every flag, e.g.
// --db-path is also read from INVOICESCAN_DB_PATH.
const EnvPrefix = "INVOICESCAN"

type Config struct {
	ListenAddr string
	DBPath     string

	ImageBackend string
	ImagePath    string
	BoltPath     string
	GCSBucket    string
	GCSPrefix    string

	VisionBackend string
	GeminiAPIKey  string
	GeminiModel   string
	ClaudeAPIKey  string
	ClaudeModel   string
	OllamaHost    string
	OllamaModel   string

	LogLevel string
	LogFile  string

	// Args holds positional arguments left after flag parsing.
	Args []string
}

// UsageError is returned when the command line cannot be parsed or -h was
// given. Usage holds the rendered flag help.
type UsageError struct {
	Err   error
	Usage string
}

func (e *UsageError) Error() string { return e.Err.Error() }
func (e *UsageError) Unwrap() error { return e.Err }

// Load parses args, falling back to INVOICESCAN_* environment variables, then
// validates the result.
func Load(name string, args []string) (*Config, error) {
	fs := ff.NewFlagSet(name)
	var (
		listenAddr    = fs.StringLong("listen-addr", ":8080", "HTTP listen address")
		dbPath        = fs.StringLong("db-path", "invoices.db", "SQLite database file")
		imageBackend  = fs.StringLong("image-backend", "local", "image storage: local, bolt or gcs")
		imagePath     = fs.StringLong("image-path", "uploads", "directory for the local image backend")
		boltPath      = fs.StringLong("bolt-path", "images.bolt", "database file for the bolt image backend")
		gcsBucket     = fs.StringLong("gcs-bucket", "", "bucket for the gcs image backend")
		gcsPrefix     = fs.StringLong("gcs-prefix", "invoices", "object prefix for the gcs image backend")
		visionBackend = fs.StringLong("vision-backend", "gemini", "model backend: gemini, claude or ollama")
		geminiKey     = fs.StringLong("gemini-api-key", "", "Google Gemini API key (or GEMINI_API_KEY)")
		geminiModel   = fs.StringLong("gemini-model", "gemini-2.5-flash", "Gemini model name")
		claudeKey     = fs.StringLong("claude-api-key", "", "Anthropic API key (or ANTHROPIC_API_KEY)")
		claudeModel   = fs.StringLong("claude-model", "claude-sonnet-4-5", "Claude model name")
		ollamaHost    = fs.StringLong("ollama-host", "http://localhost:11434", "Ollama API base URL")
		ollamaModel   = fs.StringLong("ollama-model", "llava", "Ollama vision model name")
		logLevel      = fs.StringLong("log-level", "info", "debug, info, warn or error")
		logFile       = fs.StringLong("log-file", "", "also append JSON logs to this file")
	)

	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix(EnvPrefix)); err != nil {
		return nil, &UsageError{Err: err, Usage: ffhelp.Flags(fs).String()}
	}

	cfg := &Config{
		ListenAddr:    *listenAddr,
		DBPath:        *dbPath,
		ImageBackend:  *imageBackend,
		ImagePath:     *imagePath,
		BoltPath:      *boltPath,
		GCSBucket:     *gcsBucket,
		GCSPrefix:     *gcsPrefix,
		VisionBackend: *visionBackend,
		GeminiAPIKey:  firstNonEmpty(*geminiKey, os.Getenv("GEMINI_API_KEY")),
		GeminiModel:   *geminiModel,
		ClaudeAPIKey:  firstNonEmpty(*claudeKey, os.Getenv("ANTHROPIC_API_KEY")),
		ClaudeModel:   *claudeModel,
		OllamaHost:    *ollamaHost,
		OllamaModel:   *ollamaModel,
		LogLevel:      *logLevel,
		LogFile:       *logFile,
		Args:          fs.GetArgs(),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the selected backends are known and have the settings
// they need. Credentials are never given defaults.
func (c *Config) Validate() error {
	switch c.ImageBackend {
	case "local":
		if c.ImagePath == "" {
			return fmt.Errorf("image-path is required for the local image backend")
		}
	case "bolt":
		if c.BoltPath == "" {
			return fmt.Errorf("bolt-path is required for the bolt image backend")
		}
	case "gcs":
		if c.GCSBucket == "" {
			return fmt.Errorf("gcs-bucket is required for the gcs image backend")
		}
	default:
		return fmt.Errorf("unknown image backend %q (want local, bolt or gcs)", c.ImageBackend)
	}

	switch c.VisionBackend {
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("a Gemini API key is required: set --gemini-api-key, %s_GEMINI_API_KEY or GEMINI_API_KEY", EnvPrefix)
		}
	case "claude":
		if c.ClaudeAPIKey == "" {
			return fmt.Errorf("an Anthropic API key is required: set --claude-api-key, %s_CLAUDE_API_KEY or ANTHROPIC_API_KEY", EnvPrefix)
		}
	case "ollama":
		if c.OllamaHost == "" {
			return fmt.Errorf("ollama-host is required for the ollama vision backend")
		}
	default:
		return fmt.Errorf("unknown vision backend %q (want gemini, claude or ollama)", c.VisionBackend)
	}

	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
