// Package transcript provides the HTTP client for the transcript sidecar
// service. Clean Architecture: Adapter implementing ports.TranscriptProvider.
package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/docchat/docchat-go/internal/domain/entities"
)

// FetchError is a structured error from the transcript sidecar. Retryable
// mirrors the sidecar's is_retryable flag: rate limits and missing
// transcripts are final, network hiccups are not.
type FetchError struct {
	VideoID    string
	Code       string
	Message    string
	Retryable  bool
	RetryAfter time.Duration
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("transcript fetch for %s failed: %s (%s)", e.VideoID, e.Message, e.Code)
}

// Client fetches video transcripts over HTTP with client-side rate limiting
// and retry with exponential backoff for retryable failures.
type Client struct {
	baseURL    string
	client     *http.Client
	limiter    *rate.Limiter
	maxRetries int
	backoff    func(attempt int) time.Duration
	log        *zap.Logger
}

// Option configures the client.
type Option func(*Client)

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithMaxRetries sets the number of attempts for retryable failures.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxRetries = n
		}
	}
}

// WithBackoff overrides the retry backoff schedule. Tests use this to avoid
// sleeping.
func WithBackoff(backoff func(attempt int) time.Duration) Option {
	return func(c *Client) {
		if backoff != nil {
			c.backoff = backoff
		}
	}
}

// WithLogger injects the client's logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// NewClient creates a transcript sidecar client.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:7279"
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		client:     &http.Client{Timeout: 60 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(2), 4),
		maxRetries: 3,
		backoff: func(attempt int) time.Duration {
			return time.Duration(1<<attempt) * time.Second
		},
		log: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// transcriptResponse is the sidecar's success payload.
type transcriptResponse struct {
	VideoID      string                       `json:"video_id"`
	Transcript   []entities.TranscriptSegment `json:"transcript"`
	SegmentCount int                          `json:"segment_count"`
}

// listResponse is the sidecar's transcript listing payload.
type listResponse struct {
	VideoID              string                    `json:"video_id"`
	AvailableTranscripts []entities.TranscriptInfo `json:"available_transcripts"`
}

// errorResponse is the sidecar's structured error payload.
type errorResponse struct {
	Error      string `json:"error"`
	ErrorCode  string `json:"error_code"`
	IsRetryable *bool `json:"is_retryable"`
	RetryAfter *int   `json:"retry_after"`
}

// Fetch retrieves the transcript segments for a video, retrying transient
// failures with exponential backoff.
func (c *Client) Fetch(ctx context.Context, videoID string, languages []string) ([]entities.TranscriptSegment, error) {
	if len(languages) == 0 {
		languages = []string{"en"}
	}
	endpoint := fmt.Sprintf("%s/transcript/%s?languages=%s",
		c.baseURL, url.PathEscape(videoID), url.QueryEscape(strings.Join(languages, ",")))

	var out transcriptResponse
	if err := c.getWithRetry(ctx, videoID, endpoint, &out); err != nil {
		return nil, err
	}
	return out.Transcript, nil
}

// List returns the transcript languages available for a video.
func (c *Client) List(ctx context.Context, videoID string) ([]entities.TranscriptInfo, error) {
	endpoint := fmt.Sprintf("%s/transcript/list/%s", c.baseURL, url.PathEscape(videoID))

	var out listResponse
	if err := c.getWithRetry(ctx, videoID, endpoint, &out); err != nil {
		return nil, err
	}
	return out.AvailableTranscripts, nil
}

func (c *Client) getWithRetry(ctx context.Context, videoID, endpoint string, out any) error {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			c.log.Info("retrying transcript request",
				zap.String("video_id", videoID),
				zap.Int("attempt", attempt+1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.backoff(attempt)):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		err := c.getOnce(ctx, videoID, endpoint, out)
		if err == nil {
			return nil
		}
		lastErr = err

		var fetchErr *FetchError
		if errors.As(err, &fetchErr) && !fetchErr.Retryable {
			return err
		}
	}
	return lastErr
}

func (c *Client) getOnce(ctx context.Context, videoID, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		// Transport failures are treated as transient.
		return &FetchError{
			VideoID:   videoID,
			Code:      "NETWORK_ERROR",
			Message:   err.Error(),
			Retryable: true,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&errResp); decodeErr != nil || errResp.ErrorCode == "" {
			return &FetchError{
				VideoID:   videoID,
				Code:      fmt.Sprintf("HTTP_%d", resp.StatusCode),
				Message:   fmt.Sprintf("transcript service returned status %d", resp.StatusCode),
				Retryable: resp.StatusCode >= 500,
			}
		}

		fetchErr := &FetchError{
			VideoID: videoID,
			Code:    errResp.ErrorCode,
			Message: errResp.Error,
		}
		if errResp.IsRetryable != nil {
			fetchErr.Retryable = *errResp.IsRetryable
		}
		if errResp.RetryAfter != nil {
			fetchErr.RetryAfter = time.Duration(*errResp.RetryAfter) * time.Second
		}
		return fetchErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
