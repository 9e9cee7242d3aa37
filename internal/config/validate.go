package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate rejects configurations the daemon cannot run with. The first
// problem found is returned; callers surface it verbatim to the operator.
func (c *Config) Validate() error {
	for _, check := range []func() error{
		c.validateSpeech,
		c.validateCaptions,
		c.validateWorkflow,
		c.validateLogging,
	} {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	for stage, level := range c.Logging.StageOverrides {
		switch strings.ToLower(strings.TrimSpace(level)) {
		case "debug", "info", "warn", "error":
		default:
			return fmt.Errorf("logging.stage_overrides.%s must be debug, info, warn, or error, got %q", stage, level)
		}
	}
	return nil
}

func (c *Config) validateSpeech() error {
	if c.Speech.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/quill/config.toml"
		}
		return fmt.Errorf("speech.api_key is required. Set GEMINI_API_KEY env var or edit %s (create with 'quill config init')", defaultPath)
	}
	switch c.Speech.Granularity {
	case "word", "sentence":
	default:
		return fmt.Errorf("speech.granularity must be word or sentence, got %q", c.Speech.Granularity)
	}
	if !strings.HasPrefix(c.Speech.BaseURL, "http://") && !strings.HasPrefix(c.Speech.BaseURL, "https://") {
		return errors.New("speech.base_url must start with http:// or https://")
	}
	return nil
}

func (c *Config) validateCaptions() error {
	if len(c.Captions.Formats) == 0 {
		return errors.New("captions.formats must include at least one format")
	}
	for _, format := range c.Captions.Formats {
		switch format {
		case "vtt", "srt":
		default:
			return fmt.Errorf("captions.formats entries must be vtt or srt, got %q", format)
		}
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	positives := []struct {
		key   string
		value int
	}{
		{"speech.timeout_seconds", c.Speech.TimeoutSeconds},
		{"notifications.request_timeout", c.Notifications.RequestTimeout},
		{"workflow.queue_poll_interval", c.Workflow.QueuePollInterval},
		{"workflow.error_retry_interval", c.Workflow.ErrorRetryInterval},
		{"workflow.heartbeat_interval", c.Workflow.HeartbeatInterval},
		{"workflow.heartbeat_timeout", c.Workflow.HeartbeatTimeout},
	}
	for _, p := range positives {
		if p.value <= 0 {
			return fmt.Errorf("%s must be positive", p.key)
		}
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	return nil
}
