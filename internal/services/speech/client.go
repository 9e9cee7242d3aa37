package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout = 2 * time.Minute
	defaultBaseURL     = "https://generativelanguage.googleapis.com/v1beta"
	defaultMIMEType    = "application/octet-stream"
	jsonResponseMIME   = "application/json"
)

// Config captures the runtime settings required to talk to the speech model.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Language       string
	Granularity    string
	Punctuation    bool
	TimeoutSeconds int
}

// Client wraps the generateContent transcription API.
type Client struct {
	cfg        Config
	httpClient *http.Client

	maxAttempts int
	backoffBase time.Duration
	sleeper     func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithMaxAttempts overrides the total attempt count (defaults to 3).
func WithMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.maxAttempts = attempts
	}
}

// WithBackoff overrides the first-retry backoff delay (defaults to 2s,
// doubling per attempt).
func WithBackoff(base time.Duration) Option {
	return func(c *Client) {
		c.backoffBase = base
	}
}

// WithSleeper overrides how retry waits are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs a speech client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/"),
			Model:          strings.TrimSpace(cfg.Model),
			Language:       strings.TrimSpace(cfg.Language),
			Granularity:    strings.TrimSpace(cfg.Granularity),
			Punctuation:    cfg.Punctuation,
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient:  &http.Client{Timeout: timeout},
		maxAttempts: defaultMaxAttempts,
		backoffBase: defaultBackoffBase,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

// Request carries the audio for one transcription call.
type Request struct {
	Audio []byte
	// MIMEType describes the audio container, e.g. "audio/mpeg".
	MIMEType string
	// DurationSeconds is an optional duration hint for the instruction text.
	// Zero means unknown.
	DurationSeconds float64
}

// StatusError reports a non-success response from the speech API.
type StatusError struct {
	Code       int
	Status     string
	Message    string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	detail := strings.TrimSpace(e.Message)
	if status := strings.TrimSpace(e.Status); status != "" {
		if detail == "" {
			detail = status
		} else {
			detail = status + ": " + detail
		}
	}
	return fmt.Sprintf("speech request: http %d: %s", e.Code, detail)
}

type emptyPayloadError struct {
	Op           string
	FinishReason string
}

func (e *emptyPayloadError) Error() string {
	return fmt.Sprintf("%s: empty model payload (finish_reason=%q)", e.Op, e.FinishReason)
}

// Transcribe sends the audio to the model and returns the raw transcript
// payload with any code fences stripped. Cue extraction happens downstream.
func (c *Client) Transcribe(ctx context.Context, req Request) (string, error) {
	if len(req.Audio) == 0 {
		return "", errors.New("speech transcribe: audio required")
	}
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return "", errors.New("speech transcribe: api key required")
	}
	mimeType := strings.TrimSpace(req.MIMEType)
	if mimeType == "" {
		mimeType = defaultMIMEType
	}
	payload := generateContentRequest{
		Contents: []requestContent{{
			Role: "user",
			Parts: []requestPart{
				{InlineData: &inlineData{MIMEType: mimeType, Data: base64.StdEncoding.EncodeToString(req.Audio)}},
				{Text: transcriptionInstruction(c.cfg, req.DurationSeconds)},
			},
		}},
		GenerationConfig: &generationConfig{ResponseMIMEType: jsonResponseMIME},
	}
	return c.generateWithRetry(ctx, payload, "speech transcribe")
}

// HealthCheck issues a fast text-only ping to verify the API key and model
// are usable.
func (c *Client) HealthCheck(ctx context.Context) error {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return errors.New("speech health: api key required")
	}
	payload := generateContentRequest{
		Contents: []requestContent{{
			Role:  "user",
			Parts: []requestPart{{Text: "Respond with {\"ok\":true}"}},
		}},
		GenerationConfig: &generationConfig{ResponseMIMEType: jsonResponseMIME},
	}
	content, err := c.generateWithRetry(ctx, payload, "speech health")
	if err != nil {
		return err
	}
	var parsed struct {
		OK bool `json:"ok"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return fmt.Errorf("speech health: parse payload: %w", err)
	}
	if !parsed.OK {
		return errors.New("speech health: unexpected response")
	}
	return nil
}

type generateContentRequest struct {
	Contents         []requestContent  `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type requestContent struct {
	Role  string        `json:"role,omitempty"`
	Parts []requestPart `json:"parts"`
}

type requestPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	ResponseMIMEType string  `json:"responseMimeType,omitempty"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	Error *apiErrorBody `json:"error"`
}

type apiErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// send performs a single generateContent attempt. Non-2xx responses come back
// as *StatusError so the retry layer can classify them.
func (c *Client) send(ctx context.Context, payload generateContentRequest, op string) (string, error) {
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.cfg.BaseURL, c.cfg.Model)
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("speech request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("speech request: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("speech request: http error (timeout=%s): %w", c.timeoutDuration(), err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("speech request: read body (timeout=%s): %w", c.timeoutDuration(), err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", newStatusError(resp, body)
	}
	var completion generateContentResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("speech request: decode response: %w", err)
	}
	if completion.Error != nil {
		return "", fmt.Errorf("speech request: api error: %s", strings.TrimSpace(completion.Error.Message))
	}
	content, finishReason := extractResponseText(completion)
	if content == "" {
		return "", &emptyPayloadError{Op: op, FinishReason: finishReason}
	}
	return content, nil
}

func newStatusError(resp *http.Response, body []byte) *StatusError {
	statusErr := &StatusError{
		Code:    resp.StatusCode,
		Message: strings.TrimSpace(string(body)),
	}
	var parsed struct {
		Error *apiErrorBody `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil {
		statusErr.Status = strings.TrimSpace(parsed.Error.Status)
		if message := strings.TrimSpace(parsed.Error.Message); message != "" {
			statusErr.Message = message
		}
	}
	if retryAfter, ok := parseRetryAfter(resp.Header.Get("Retry-After")); ok {
		statusErr.RetryAfter = retryAfter
	}
	return statusErr
}

func extractResponseText(completion generateContentResponse) (string, string) {
	var finishReason string
	for _, candidate := range completion.Candidates {
		if finishReason == "" {
			finishReason = strings.TrimSpace(candidate.FinishReason)
		}
		var sb strings.Builder
		for _, part := range candidate.Content.Parts {
			sb.WriteString(part.Text)
		}
		if text := strings.TrimSpace(stripCodeFenceBlock(sb.String())); text != "" {
			return text, finishReason
		}
	}
	return "", finishReason
}

func stripCodeFenceBlock(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	body := trimmed[3:]
	body = strings.TrimLeft(body, " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = body[4:]
		body = strings.TrimLeft(body, " \t\r\n")
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

func (c *Client) timeoutDuration() time.Duration {
	if c == nil || c.httpClient == nil {
		return defaultHTTPTimeout
	}
	if c.httpClient.Timeout <= 0 {
		return defaultHTTPTimeout
	}
	return c.httpClient.Timeout
}
