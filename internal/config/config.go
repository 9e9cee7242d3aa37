package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StagingDir string `toml:"staging_dir"`
	OutputDir  string `toml:"output_dir"`
	LogDir     string `toml:"log_dir"`
	ReviewDir  string `toml:"review_dir"`
}

// Speech contains configuration for the hosted transcription service.
type Speech struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Language       string `toml:"language"`
	Granularity    string `toml:"granularity"`
	Punctuation    bool   `toml:"punctuation"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Captions contains configuration for rendered caption output.
type Captions struct {
	Formats           []string `toml:"formats"`
	FallbackPlainText bool     `toml:"fallback_plain_text"`
}

// Workflow tunes how often the daemon polls and how patient it is with
// stalled work. All values are whole seconds.
type Workflow struct {
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	HeartbeatInterval  int `toml:"heartbeat_interval"`
	HeartbeatTimeout   int `toml:"heartbeat_timeout"`
}

// Logging selects the log format, level, and retention window.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
	// StageOverrides raises or lowers the log level for individual workflow
	// stages, keyed by stage name (for example "transcriber" = "debug").
	StageOverrides map[string]string `toml:"stage_overrides"`
}

// Notifications configures ntfy push messages and which events send them.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Queue          bool   `toml:"queue"`
	Transcription  bool   `toml:"transcription"`
	Export         bool   `toml:"export"`
	Review         bool   `toml:"review"`
	Errors         bool   `toml:"errors"`
}

// Config is the full Quill configuration, one section per subsystem:
// directories, the transcription service, caption output, daemon timing,
// logging, and ntfy notifications.
type Config struct {
	Paths         Paths         `toml:"paths"`
	Speech        Speech        `toml:"speech"`
	Captions      Captions      `toml:"captions"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath is where config init writes when no path is given.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/quill/config.toml")
}

// Load resolves the config file location, layers the file (when present)
// over the defaults, and normalizes and validates the result. It reports
// the resolved path and whether a file was actually found there.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}
	if exists {
		if err := decodeTOMLFile(resolvedPath, &cfg); err != nil {
			return nil, "", false, err
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func decodeTOMLFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()
	if err := toml.NewDecoder(file).Decode(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// resolveConfigPath decides which file Load reads. An explicit path wins
// whether or not it exists; otherwise the user config dir is tried first,
// then a quill.toml in the working directory.
func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		switch _, err := os.Stat(expanded); {
		case err == nil:
			return expanded, true, nil
		case errors.Is(err, fs.ErrNotExist):
			return expanded, false, nil
		default:
			return "", false, fmt.Errorf("stat config file: %w", err)
		}
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("quill.toml")
	if err != nil {
		return "", false, err
	}

	for _, candidate := range []string{defaultPath, projectPath} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true, nil
		}
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the daemon writes into.
// OutputDir may live on removable or network storage, so a failure there
// is tolerated rather than blocking startup.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.LogDir, c.Paths.ReviewDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("make directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.OutputDir) != "" {
		_ = os.MkdirAll(c.Paths.OutputDir, 0o755)
	}
	return nil
}

// FFprobeBinary names the executable used for media inspection.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// expandPath turns a user-written path into a clean absolute one,
// resolving a leading tilde against the home directory. "~user" forms are
// left untouched.
func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if rest, ok := strings.CutPrefix(pathValue, "~"); ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("locate home directory: %w", err)
		}
		switch {
		case rest == "":
			pathValue = home
		case rest[0] == '/' || rest[0] == '\\':
			pathValue = filepath.Join(home, rest[1:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("absolutize %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath is expandPath for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes the embedded sample configuration to path, creating
// parent directories as needed.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("make config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample file: %w", err)
	}
	return nil
}

// SpeechConfig contains the connection settings the transcription client needs.
type SpeechConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Language       string
	Granularity    string
	Punctuation    bool
	TimeoutSeconds int
}

// GetSpeech returns the transcription service connection settings.
func (c *Config) GetSpeech() SpeechConfig {
	return SpeechConfig{
		APIKey:         strings.TrimSpace(c.Speech.APIKey),
		BaseURL:        strings.TrimSpace(c.Speech.BaseURL),
		Model:          strings.TrimSpace(c.Speech.Model),
		Language:       strings.TrimSpace(c.Speech.Language),
		Granularity:    strings.TrimSpace(c.Speech.Granularity),
		Punctuation:    c.Speech.Punctuation,
		TimeoutSeconds: c.Speech.TimeoutSeconds,
	}
}
