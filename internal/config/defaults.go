package config

const (
	defaultStagingDir                = "~/.local/share/quill/staging"
	defaultOutputDir                 = "~/captions"
	defaultLogDir                    = "~/.local/share/quill/logs"
	defaultReviewDir                 = "~/review"
	defaultLogRetentionDays          = 60
	defaultLogFormat                 = "console"
	defaultLogLevel                  = "info"
	defaultSpeechBaseURL             = "https://generativelanguage.googleapis.com/v1beta"
	defaultSpeechModel               = "gemini-3-flash-preview"
	defaultSpeechGranularity         = "sentence"
	defaultSpeechTimeoutSeconds      = 120
	defaultCaptionFormat             = "vtt"
	defaultWorkflowHeartbeatInterval = 15
	defaultWorkflowHeartbeatTimeout  = 120
	defaultNotifyRequestTimeout      = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			OutputDir:  defaultOutputDir,
			LogDir:     defaultLogDir,
			ReviewDir:  defaultReviewDir,
		},
		Speech: Speech{
			BaseURL:        defaultSpeechBaseURL,
			Model:          defaultSpeechModel,
			Granularity:    defaultSpeechGranularity,
			Punctuation:    true,
			TimeoutSeconds: defaultSpeechTimeoutSeconds,
		},
		Captions: Captions{
			Formats:           []string{defaultCaptionFormat},
			FallbackPlainText: true,
		},
		Workflow: Workflow{
			QueuePollInterval:  5,
			ErrorRetryInterval: 10,
			HeartbeatInterval:  defaultWorkflowHeartbeatInterval,
			HeartbeatTimeout:   defaultWorkflowHeartbeatTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Queue:          true,
			Transcription:  true,
			Export:         true,
			Review:         true,
			Errors:         true,
		},
	}
}
