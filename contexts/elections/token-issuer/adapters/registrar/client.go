package registrar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	domainerrors "votecore/contexts/elections/token-issuer/domain/errors"
	"votecore/contexts/elections/token-issuer/ports"
	s2sv1 "votecore/contracts/gen/s2s/v1"
)

const (
	defaultTimeout     = 5 * time.Second
	defaultMaxAttempts = 3
	defaultBaseDelay   = 100 * time.Millisecond
)

type Config struct {
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	MaxAttempts int
	BaseDelay   time.Duration
}

// Client registers token hashes with the tally service over the S2S API.
type Client struct {
	baseURL     string
	apiKey      string
	maxAttempts int
	baseDelay   time.Duration
	httpClient  *http.Client
	logger      *slog.Logger
}

func NewClient(cfg Config, httpClient *http.Client, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	delay := cfg.BaseDelay
	if delay <= 0 {
		delay = defaultBaseDelay
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		maxAttempts: attempts,
		baseDelay:   delay,
		httpClient:  httpClient,
		logger:      logger,
	}
}

// RegisterToken retries transport failures, 429 and 5xx with exponential
// backoff. A registration_conflict on a retry means an earlier attempt stored
// the hash before its response was lost, so it counts as registered. Any other
// 409 is a rejection.
func (c *Client) RegisterToken(ctx context.Context, electionID string, tokenHash string) error {
	body, err := json.Marshal(s2sv1.RegisterTokenRequest{TokenHash: tokenHash})
	if err != nil {
		return err
	}
	endpoint := c.baseURL + "/api/s2s/elections/" + url.PathEscape(electionID) + "/tokens"

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			if err := c.wait(ctx, attempt); err != nil {
				return fmt.Errorf("%w: %v", domainerrors.ErrRegistrarUnavailable, err)
			}
		}

		status, detail, err := c.post(ctx, endpoint, body)
		if err != nil {
			lastErr = err
			c.logRetry(electionID, attempt, 0, err.Error())
			continue
		}

		switch {
		case status == http.StatusCreated || status == http.StatusOK:
			return nil
		case status == http.StatusConflict && detail != s2sv1.CodeRegistrationConflict:
			return fmt.Errorf("%w: registrar responded %d: %s", domainerrors.ErrRegistrationRejected, status, detail)
		case status == http.StatusConflict && attempt > 1:
			c.logger.Info("registrar reported conflict on retry; treating as registered",
				"event", "issuer_registrar_conflict_on_retry",
				"module", "elections/token-issuer",
				"layer", "adapter",
				"election_id", electionID,
				"attempt", attempt,
			)
			return nil
		case status == http.StatusConflict:
			return domainerrors.ErrRegistrationConflict
		case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
			lastErr = fmt.Errorf("registrar responded %d: %s", status, detail)
			c.logRetry(electionID, attempt, status, detail)
		default:
			return fmt.Errorf("%w: registrar responded %d: %s", domainerrors.ErrRegistrationRejected, status, detail)
		}
	}
	return fmt.Errorf("%w: %v", domainerrors.ErrRegistrarUnavailable, lastErr)
}

func (c *Client) post(ctx context.Context, endpoint string, body []byte) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(s2sv1.APIKeyHeader, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer drainAndClose(resp)

	if resp.StatusCode < 300 {
		return resp.StatusCode, "", nil
	}
	var payload s2sv1.ErrorResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Code != "" {
		return resp.StatusCode, payload.Code, nil
	}
	return resp.StatusCode, strings.TrimSpace(string(raw)), nil
}

func (c *Client) wait(ctx context.Context, attempt int) error {
	delay := c.baseDelay << (attempt - 2)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) logRetry(electionID string, attempt int, status int, detail string) {
	c.logger.Warn("registrar call failed",
		"event", "issuer_registrar_attempt_failed",
		"module", "elections/token-issuer",
		"layer", "adapter",
		"election_id", electionID,
		"attempt", attempt,
		"max_attempts", c.maxAttempts,
		"status", status,
		"detail", detail,
	)
}

func drainAndClose(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

var _ ports.RegistrarClient = (*Client)(nil)
