// Package gemini is a resilient client for the Gemini generateContent API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

const (
	DefaultModel   = "gemini-2.0-flash"
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultTimeout = 60 * time.Second
)

// Config is injected at construction; the client never reads the environment.
type Config struct {
	APIKey  string
	BaseURL string
	// Timeout bounds a single attempt.
	Timeout time.Duration
	Policy  RetryPolicy
	// MaxElapsed bounds the whole retry sequence. Zero means no ceiling.
	MaxElapsed time.Duration
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

type Client struct {
	cfg        Config
	httpClient *http.Client
	log        zerolog.Logger
	sleep      SleepFunc
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l.With().Str("component", "gemini").Logger() }
}

// WithSleep replaces the backoff timer. Used by tests.
func WithSleep(fn SleepFunc) Option {
	return func(c *Client) { c.sleep = fn }
}

func New(cfg Config, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Policy == (RetryPolicy{}) {
		cfg.Policy = DefaultRetryPolicy()
	}

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
		log:        zerolog.Nop(),
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HasCredential reports whether an API key is configured.
func (c *Client) HasCredential() bool { return c.cfg.APIKey != "" }

// Invoke sends req to model, retrying transient failures according to the
// configured policy. operation only labels logs. Every returned error is an
// *Error.
func (c *Client) Invoke(ctx context.Context, req *GenerateContentRequest, operation, model string) (*Response, error) {
	if c.cfg.APIKey == "" {
		return nil, missingCredentialError()
	}
	if model == "" {
		model = DefaultModel
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, &Error{Kind: KindInvalidRequest, Message: msgInvalidRequest, Detail: "encode request", Err: err}
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.cfg.BaseURL, url.PathEscape(model))
	if _, err := url.Parse(endpoint); err != nil {
		return nil, &Error{Kind: KindInvalidRequest, Message: msgInvalidRequest, Detail: "invalid endpoint", Err: err}
	}

	if c.cfg.MaxElapsed > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.MaxElapsed)
		defer cancel()
	}

	policy := c.cfg.Policy
	for attempt := 1; ; attempt++ {
		log := c.log.With().
			Str("operation", operation).
			Str("model", model).
			Int("attempt", attempt).
			Int("max_attempts", policy.MaxRetries).
			Logger()
		log.Debug().Msg("sending request")

		status, data, err := c.send(ctx, endpoint, body)
		if err != nil {
			netErr := networkError(err)
			if ctx.Err() != nil || !policy.ShouldRetryOnError(err, attempt) {
				log.Error().Err(err).Msg("request failed")
				return nil, netErr
			}
			delay := policy.DelayFor(attempt)
			log.Warn().Err(err).Dur("delay", delay).Msg("network error, retrying")
			if err := c.sleep(ctx, delay); err != nil {
				return nil, netErr
			}
			continue
		}

		if status >= 200 && status < 300 {
			var out Response
			if err := json.Unmarshal(data, &out); err != nil {
				log.Error().Err(err).Int("status", status).Msg("undecodable response body")
				return nil, malformedError("decode response body", err)
			}
			log.Info().
				Int64("total_tokens", gjson.GetBytes(data, "usageMetadata.totalTokenCount").Int()).
				Msg("request succeeded")
			return &out, nil
		}

		apiErr := statusError(status, string(data))
		event := func(e *zerolog.Event) *zerolog.Event {
			return e.Int("status", status).
				Str("provider_status", gjson.GetBytes(data, "error.status").String()).
				Str("provider_message", gjson.GetBytes(data, "error.message").String())
		}

		if policy.ShouldRetry(status, attempt) {
			delay := policy.DelayFor(attempt)
			event(log.Warn()).Dur("delay", delay).Msg("retryable status, retrying")
			if err := c.sleep(ctx, delay); err != nil {
				return nil, apiErr
			}
			continue
		}

		event(log.Error()).Str("kind", string(apiErr.Kind)).Msg("request failed")
		return nil, apiErr
	}
}

// send performs one attempt bounded by the per-attempt timeout. A non-nil
// error means no usable HTTP response was received.
func (c *Client) send(ctx context.Context, endpoint string, body []byte) (int, []byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return 0, nil, fmt.Errorf("read response body: %w", err)
		}
		data = []byte(unreadableBody)
	}
	return resp.StatusCode, data, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
