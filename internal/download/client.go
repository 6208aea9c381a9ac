// Package download fetches remote artifacts with bounded retries, backoff and
// truncation detection.
package download

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"

	"github.com/conn-castle/datalad-installer/internal/messages"
)

// Defaults for a zero Client.
const (
	DefaultMaxAttempts    = 5
	DefaultInitialBackoff = time.Second
	DefaultMaxBackoff     = 30 * time.Second
	DefaultTimeout        = 10 * time.Minute
	DefaultMaxBytes       = int64(1 << 30) // 1 GiB
	DefaultUserAgent      = "datalad-installer"
)

// Outcome classifies a single attempt.
type Outcome string

// Attempt outcomes.
const (
	OutcomeOK        Outcome = "ok"
	OutcomeTransport Outcome = "transport-error"
	OutcomeStatus    Outcome = "bad-status"
	OutcomeTruncated Outcome = "truncated"
	OutcomeTooLarge  Outcome = "too-large"
	OutcomeFailed    Outcome = "failed"
)

// Attempt describes one request made while fetching a URL.
type Attempt struct {
	URL    string
	Number int
	// BytesExpected is the declared Content-Length, or -1 when unknown.
	BytesExpected int64
	BytesReceived int64
	Outcome       Outcome
	Err           error
}

// ErrTruncated marks a body shorter than its declared length.
var ErrTruncated = errors.New(messages.DownloadTruncated)

// DownloadError is returned when a fetch fails for good.
type DownloadError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf(messages.DownloadFailedFmt, e.URL, e.Attempts, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// StatusError reports a non-200 response.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf(messages.DownloadStatusFmt, e.Status)
}

// Retryable reports whether the status is worth retrying.
func (e *StatusError) Retryable() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests || e.Code == http.StatusRequestTimeout
}

// Option adjusts an outgoing request.
type Option func(*http.Request)

// WithHeader sets a request header.
func WithHeader(key, value string) Option {
	return func(r *http.Request) { r.Header.Set(key, value) }
}

// WithBearerToken sets an Authorization bearer credential. The credential is
// dropped if a redirect leaves the request's origin.
func WithBearerToken(token string) Option {
	return func(r *http.Request) {
		if token != "" {
			r.Header.Set("Authorization", "Bearer "+token)
		}
	}
}

// Client downloads URLs. The zero value is usable.
type Client struct {
	HTTP           *http.Client
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxBytes       int64
	UserAgent      string
	Logger         *log.Logger
	// Observe, when set, is called after every attempt.
	Observe func(Attempt)
}

var (
	osCreateTemp = os.CreateTemp
	osRename     = os.Rename
	sleep        = sleepContext
)

// Fetch downloads rawURL to dest. The body is written to a temporary file in
// dest's directory and renamed over dest once complete.
func (c *Client) Fetch(ctx context.Context, rawURL, dest string, opts ...Option) error {
	if c.Logger != nil {
		c.Logger.Info(fmt.Sprintf(messages.DownloadingFmt, rawURL), "dest", dest)
	}
	tmp, err := osCreateTemp(filepath.Dir(dest), filepath.Base(dest)+".tmp-*")
	if err != nil {
		return fmt.Errorf(messages.DownloadCreateTempFmt, dest, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	reset := func() error {
		if err := tmp.Truncate(0); err != nil {
			return err
		}
		_, err := tmp.Seek(0, io.SeekStart)
		return err
	}
	if err := c.retry(ctx, rawURL, opts, tmp, reset); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf(messages.DownloadCloseTempFmt, tmpName, err)
	}
	if err := osRename(tmpName, dest); err != nil {
		return fmt.Errorf(messages.DownloadRenameFmt, dest, err)
	}
	committed = true
	return nil
}

// Get downloads rawURL into memory.
func (c *Client) Get(ctx context.Context, rawURL string, opts ...Option) ([]byte, error) {
	var buf bytes.Buffer
	reset := func() error {
		buf.Reset()
		return nil
	}
	if err := c.retry(ctx, rawURL, opts, &buf, reset); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// retry fetches rawURL into w, resetting w before each successful response.
func (c *Client) retry(ctx context.Context, rawURL string, opts []Option, w io.Writer, reset func() error) error {
	attempts, err := c.Retry(ctx, rawURL, func(n int) (bool, error) {
		att, retryable, err := c.attempt(ctx, rawURL, opts, w, reset)
		att.Number = n
		if c.Observe != nil {
			c.Observe(att)
		}
		return retryable, err
	})
	if err != nil {
		return &DownloadError{URL: rawURL, Attempts: attempts, Err: err}
	}
	return nil
}

// Retry calls op until it succeeds, reports a failure that is not retryable,
// or MaxAttempts calls have been made, sleeping on the backoff schedule in
// between. op receives the 1-based attempt number. Retry returns the number of
// calls made and the last error.
func (c *Client) Retry(ctx context.Context, label string, op func(attempt int) (retryable bool, err error)) (int, error) {
	policy := c.backOff()
	maxAttempts := c.maxAttempts()
	var lastErr error
	attempts := 0
	for attempts < maxAttempts {
		attempts++
		retryable, err := op(attempts)
		if err == nil {
			return attempts, nil
		}
		lastErr = err
		if !retryable || attempts == maxAttempts {
			break
		}
		delay := policy.NextBackOff()
		if delay == backoff.Stop {
			break
		}
		if c.Logger != nil {
			c.Logger.Warn(messages.DownloadRetrying, "url", label, "attempt", attempts, "delay", delay, "err", err)
		}
		if err := sleep(ctx, delay); err != nil {
			lastErr = err
			break
		}
	}
	return attempts, lastErr
}

func (c *Client) attempt(ctx context.Context, rawURL string, opts []Option, w io.Writer, reset func() error) (Attempt, bool, error) {
	att := Attempt{URL: rawURL, BytesExpected: -1, Outcome: OutcomeFailed}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		att.Err = err
		return att, false, err
	}
	req.Header.Set("User-Agent", c.userAgent())
	for _, opt := range opts {
		opt(req)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		att.Outcome = OutcomeTransport
		att.Err = err
		return att, ctx.Err() == nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		se := &StatusError{Code: resp.StatusCode, Status: resp.Status}
		att.Outcome = OutcomeStatus
		att.Err = se
		return att, se.Retryable(), se
	}

	att.BytesExpected = resp.ContentLength
	if err := reset(); err != nil {
		err = fmt.Errorf(messages.DownloadWriteFmt, err)
		att.Err = err
		return att, false, err
	}
	maxBytes := c.maxBytes()
	n, copyErr := io.Copy(&trackingWriter{w: w}, io.LimitReader(resp.Body, maxBytes+1))
	att.BytesReceived = n

	var werr *writeError
	switch {
	case errors.As(copyErr, &werr):
		err = fmt.Errorf(messages.DownloadWriteFmt, werr.err)
		att.Err = err
		return att, false, err
	case n > maxBytes:
		err = fmt.Errorf(messages.DownloadTooLargeFmt, maxBytes)
		att.Outcome = OutcomeTooLarge
		att.Err = err
		return att, false, err
	case errors.Is(copyErr, io.ErrUnexpectedEOF), copyErr == nil && att.BytesExpected >= 0 && n < att.BytesExpected:
		err = fmt.Errorf(messages.DownloadTruncatedFmt, ErrTruncated, n, att.BytesExpected)
		att.Outcome = OutcomeTruncated
		att.Err = err
		return att, true, err
	case copyErr != nil:
		att.Outcome = OutcomeTransport
		att.Err = copyErr
		return att, ctx.Err() == nil, copyErr
	}
	att.Outcome = OutcomeOK
	return att, false, nil
}

// backOff returns an exponential schedule without jitter, so delays never
// decrease between attempts.
func (c *Client) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.InitialBackoff
	if b.InitialInterval <= 0 {
		b.InitialInterval = DefaultInitialBackoff
	}
	b.MaxInterval = c.MaxBackoff
	if b.MaxInterval < b.InitialInterval {
		b.MaxInterval = max(DefaultMaxBackoff, b.InitialInterval)
	}
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

func (c *Client) maxAttempts() int {
	if c.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return c.MaxAttempts
}

func (c *Client) maxBytes() int64 {
	if c.MaxBytes <= 0 {
		return DefaultMaxBytes
	}
	return c.MaxBytes
}

func (c *Client) userAgent() string {
	if c.UserAgent == "" {
		return DefaultUserAgent
	}
	return c.UserAgent
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP == nil {
		c.HTTP = NewHTTPClient(DefaultTimeout)
	}
	return c.HTTP
}

type writeError struct {
	err error
}

func (e *writeError) Error() string {
	return e.err.Error()
}

// trackingWriter tags destination errors so they are not mistaken for
// network failures.
type trackingWriter struct {
	w io.Writer
}

func (t *trackingWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	if err != nil {
		return n, &writeError{err: err}
	}
	return n, nil
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
