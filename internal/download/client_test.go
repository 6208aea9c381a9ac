package download

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func response(req *http.Request, status int, body string) *http.Response {
	return &http.Response{
		StatusCode:    status,
		Status:        http.StatusText(status),
		Header:        make(http.Header),
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}

func stubSleep(t *testing.T) *[]time.Duration {
	t.Helper()
	var delays []time.Duration
	orig := sleep
	sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	t.Cleanup(func() { sleep = orig })
	return &delays
}

func TestFetchStopsAfterMaxAttempts(t *testing.T) {
	delays := stubSleep(t)
	calls := 0
	c := &Client{
		MaxAttempts: 3,
		HTTP: &http.Client{Transport: roundTripperFunc(func(*http.Request) (*http.Response, error) {
			calls++
			return nil, errors.New("connection reset")
		})},
	}
	dest := filepath.Join(t.TempDir(), "file")
	err := c.Fetch(context.Background(), "https://example.com/file", dest)

	var dlErr *DownloadError
	if !errors.As(err, &dlErr) {
		t.Fatalf("expected DownloadError, got %v", err)
	}
	if calls != 3 || dlErr.Attempts != 3 {
		t.Fatalf("expected exactly 3 attempts, got calls=%d attempts=%d", calls, dlErr.Attempts)
	}
	if len(*delays) != 2 {
		t.Fatalf("expected 2 sleeps, got %v", *delays)
	}
	for i, d := range *delays {
		if d <= 0 {
			t.Fatalf("delay %d is not positive: %v", i, d)
		}
		if i > 0 && d < (*delays)[i-1] {
			t.Fatalf("delays decreased: %v", *delays)
		}
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Fatalf("expected no destination file, got %v", statErr)
	}
	entries, _ := os.ReadDir(filepath.Dir(dest))
	if len(entries) != 0 {
		t.Fatalf("expected temp files to be removed, found %d", len(entries))
	}
}

func TestFetchRetriesTruncatedBody(t *testing.T) {
	stubSleep(t)
	calls := 0
	var attempts []Attempt
	c := &Client{
		MaxAttempts: 3,
		Observe:     func(a Attempt) { attempts = append(attempts, a) },
		HTTP: &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			calls++
			if calls == 1 {
				resp := response(req, http.StatusOK, "short")
				resp.ContentLength = 10
				return resp, nil
			}
			return response(req, http.StatusOK, "0123456789"), nil
		})},
	}
	dest := filepath.Join(t.TempDir(), "file")
	if err := c.Fetch(context.Background(), "https://example.com/file", dest); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read dest: %v", err)
	}
	if string(got) != "0123456789" {
		t.Fatalf("unexpected content %q", got)
	}
	if len(attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(attempts))
	}
	first := attempts[0]
	if first.Outcome != OutcomeTruncated || first.BytesExpected != 10 || first.BytesReceived != 5 || first.Number != 1 {
		t.Fatalf("unexpected first attempt %+v", first)
	}
	if !errors.Is(first.Err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", first.Err)
	}
	if attempts[1].Outcome != OutcomeOK || attempts[1].Number != 2 {
		t.Fatalf("unexpected second attempt %+v", attempts[1])
	}
}

func TestFetchTruncatedEveryTimeFails(t *testing.T) {
	stubSleep(t)
	c := &Client{
		MaxAttempts: 2,
		HTTP: &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			resp := response(req, http.StatusOK, "abc")
			resp.ContentLength = 100
			return resp, nil
		})},
	}
	err := c.Fetch(context.Background(), "https://example.com/file", filepath.Join(t.TempDir(), "file"))
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected truncation error, got %v", err)
	}
}

func TestFetchRetriesServerErrors(t *testing.T) {
	stubSleep(t)
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.Header.Get("User-Agent") != "datalad-installer/test" {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, "payload")
	}))
	t.Cleanup(srv.Close)

	c := &Client{MaxAttempts: 5, UserAgent: "datalad-installer/test"}
	dest := filepath.Join(t.TempDir(), "file")
	if err := c.Fetch(context.Background(), srv.URL+"/x", dest); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	stubSleep(t)
	calls := 0
	c := &Client{
		MaxAttempts: 5,
		HTTP: &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			calls++
			return response(req, http.StatusNotFound, "missing"), nil
		})},
	}
	err := c.Fetch(context.Background(), "https://example.com/missing", filepath.Join(t.TempDir(), "file"))
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusNotFound {
		t.Fatalf("expected 404 StatusError, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestFetchRejectsOversizedBody(t *testing.T) {
	stubSleep(t)
	calls := 0
	c := &Client{
		MaxBytes: 4,
		HTTP: &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			calls++
			return response(req, http.StatusOK, "too many bytes"), nil
		})},
	}
	err := c.Fetch(context.Background(), "https://example.com/big", filepath.Join(t.TempDir(), "file"))
	if err == nil || !strings.Contains(err.Error(), "maximum size") {
		t.Fatalf("expected size error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestFetchStopsWhenContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	orig := sleep
	sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}
	t.Cleanup(func() { sleep = orig })

	calls := 0
	c := &Client{
		MaxAttempts: 5,
		HTTP: &http.Client{Transport: roundTripperFunc(func(*http.Request) (*http.Response, error) {
			calls++
			return nil, errors.New("refused")
		})},
	}
	err := c.Fetch(ctx, "https://example.com/file", filepath.Join(t.TempDir(), "file"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestRetryStopsOnTerminalError(t *testing.T) {
	delays := stubSleep(t)
	terminal := errors.New("rate limited")
	c := &Client{MaxAttempts: 5}
	attempts, err := c.Retry(context.Background(), "api", func(n int) (bool, error) {
		if n < 3 {
			return true, errors.New("bad gateway")
		}
		return false, terminal
	})
	if !errors.Is(err, terminal) {
		t.Fatalf("expected terminal error, got %v", err)
	}
	if attempts != 3 || len(*delays) != 2 {
		t.Fatalf("expected 3 attempts and 2 sleeps, got attempts=%d delays=%v", attempts, *delays)
	}
}

func TestGetReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "hello")
	}))
	t.Cleanup(srv.Close)

	body, err := (&Client{}).Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(body) != "hello" {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestRedirectDropsCredentialsAcrossOrigins(t *testing.T) {
	tests := []struct {
		name     string
		location string
		wantAuth string
	}{
		{name: "cross origin", location: "https://objects.example.net/blob", wantAuth: ""},
		{name: "different port", location: "https://api.example.com:8443/blob", wantAuth: ""},
		{name: "scheme downgrade", location: "http://api.example.com/blob", wantAuth: ""},
		{name: "same origin", location: "https://api.example.com:443/blob", wantAuth: "Bearer secret"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen []string
			transport := roundTripperFunc(func(req *http.Request) (*http.Response, error) {
				seen = append(seen, req.Header.Get("Authorization"))
				if req.URL.Path == "/start" {
					resp := response(req, http.StatusFound, "")
					resp.Header.Set("Location", tt.location)
					return resp, nil
				}
				return response(req, http.StatusOK, "data"), nil
			})
			client := NewHTTPClient(time.Minute)
			client.Transport = transport
			c := &Client{HTTP: client}

			if _, err := c.Get(context.Background(), "https://api.example.com/start", WithBearerToken("secret")); err != nil {
				t.Fatalf("Get: %v", err)
			}
			if len(seen) != 2 {
				t.Fatalf("expected 2 requests, got %d", len(seen))
			}
			if seen[0] != "Bearer secret" {
				t.Fatalf("first request missing token: %q", seen[0])
			}
			if seen[1] != tt.wantAuth {
				t.Fatalf("redirected request auth = %q, want %q", seen[1], tt.wantAuth)
			}
		})
	}
}

func TestCheckRedirectLimit(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "https://example.com/", nil)
	via := make([]*http.Request, maxRedirects)
	for i := range via {
		via[i] = req
	}
	if err := CheckRedirect(req, via); err == nil {
		t.Fatal("expected redirect limit error")
	}
}

func TestOrigin(t *testing.T) {
	tests := map[string]string{
		"https://Example.com/a":     "https://example.com:443",
		"http://example.com:80/b":   "http://example.com:80",
		"HTTPS://example.com:8443/": "https://example.com:8443",
	}
	for raw, want := range tests {
		u, err := url.Parse(raw)
		if err != nil {
			t.Fatalf("parse %s: %v", raw, err)
		}
		if got := Origin(u); got != want {
			t.Fatalf("Origin(%s) = %s, want %s", raw, got, want)
		}
	}
}

func TestChecksumHelpers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rclone.zip")
	if err := os.WriteFile(path, []byte("abc"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	const sum = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	listing := []byte("deadbeef  other.zip\n" + strings.ToUpper(sum) + " *./rclone.zip\n")

	got, err := ChecksumFor(listing, "rclone.zip", "SHA256SUMS")
	if err != nil {
		t.Fatalf("ChecksumFor: %v", err)
	}
	if got != sum {
		t.Fatalf("unexpected checksum %s", got)
	}
	if err := VerifyChecksum(path, got); err != nil {
		t.Fatalf("VerifyChecksum: %v", err)
	}
	if err := VerifyChecksum(path, "deadbeef"); err == nil {
		t.Fatal("expected mismatch")
	}
	if _, err := ChecksumFor(listing, "missing.zip", "SHA256SUMS"); err == nil {
		t.Fatal("expected not found")
	}
}
