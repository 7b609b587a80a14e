package spotify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"playdeck/internal/core"
)

// retryableStatuses are the response codes worth another attempt.
var retryableStatuses = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// PacedTransport is an http.RoundTripper that spaces outbound requests
// by a flat minimum interval, bounds each attempt with a timeout, and
// retries retryable failures with exponential backoff. 429 responses
// wait the greater of the backoff delay and the Retry-After header;
// 401 responses are returned after exactly one attempt.
type PacedTransport struct {
	base           http.RoundTripper
	logger         *zap.Logger
	minInterval    time.Duration
	requestTimeout time.Duration
	maxRetries     int
	baseDelay      time.Duration
	maxDelay       time.Duration

	mu   sync.Mutex
	next time.Time
}

func NewPacedTransport(base http.RoundTripper, config *core.SpotifyConfig, logger *zap.Logger) *PacedTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &PacedTransport{
		base:           base,
		logger:         logger,
		minInterval:    config.MinRequestInterval,
		requestTimeout: config.RequestTimeout,
		maxRetries:     config.MaxRetries,
		baseDelay:      config.RetryBaseDelay,
		maxDelay:       config.RetryMaxDelay,
	}
}

// reserve claims the next send slot and returns how long to wait for it.
// Claiming before sleeping keeps concurrent callers spaced apart too.
func (t *PacedTransport) reserve() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	slot := t.next
	if slot.Before(now) {
		slot = now
	}
	t.next = slot.Add(t.minInterval)
	return slot.Sub(now)
}

func (t *PacedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Requests with a one-shot body cannot be replayed safely.
	canRetry := req.Body == nil || req.GetBody != nil

	var lastErr error
	for attempt := 0; attempt <= t.maxRetries; attempt++ {
		if attempt > 0 {
			body, err := t.rewindBody(req)
			if err != nil {
				return nil, err
			}
			req.Body = body
		}

		if err := sleepCtx(req.Context(), t.reserve()); err != nil {
			return nil, err
		}

		resp, err := t.attempt(req)
		if err != nil {
			lastErr = err
			if !canRetry || !retryableError(req.Context(), err) || attempt == t.maxRetries {
				return nil, err
			}
			if werr := t.waitBackoff(req, attempt, 0); werr != nil {
				return nil, werr
			}
			continue
		}

		if resp.StatusCode == http.StatusUnauthorized {
			// Token problems are resolved upstream, not by retrying.
			return resp, nil
		}

		if canRetry && retryableStatuses[resp.StatusCode] && attempt < t.maxRetries {
			retryAfter := parseRetryAfter(resp)
			drainBody(resp)
			t.logger.Debug("Retrying request",
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1),
				zap.Duration("retryAfter", retryAfter))
			if err := t.waitBackoff(req, attempt, retryAfter); err != nil {
				return nil, err
			}
			continue
		}

		return resp, nil
	}

	return nil, lastErr
}

// attempt runs one request with its own deadline. The deadline is
// released when the caller closes the response body.
func (t *PacedTransport) attempt(req *http.Request) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(req.Context(), t.requestTimeout)

	resp, err := t.base.RoundTrip(req.Clone(ctx))
	if err != nil {
		cancel()
		return nil, err
	}

	resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

func (t *PacedTransport) rewindBody(req *http.Request) (io.ReadCloser, error) {
	if req.Body == nil {
		return nil, nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("failed to rewind request body: %w", err)
	}
	return body, nil
}

// waitBackoff sleeps the exponential delay for the given attempt, or
// the Retry-After signal when it is larger.
func (t *PacedTransport) waitBackoff(req *http.Request, attempt int, retryAfter time.Duration) error {
	delay := t.baseDelay << attempt
	if delay > t.maxDelay {
		delay = t.maxDelay
	}
	if retryAfter > delay {
		delay = retryAfter
	}
	return sleepCtx(req.Context(), delay)
}

// parseRetryAfter reads a Retry-After header as integer seconds or an
// HTTP-date. Missing or malformed headers yield zero.
func parseRetryAfter(resp *http.Response) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(header); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

func retryableError(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	// Per-attempt deadlines and transport failures are transient.
	return !errors.Is(err, context.Canceled)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func drainBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}

type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
