// Package ghapi is a small GitHub REST API client with lazy pagination and
// rate-limit reporting.
package ghapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/conn-castle/datalad-installer/internal/download"
	"github.com/conn-castle/datalad-installer/internal/messages"
	"github.com/conn-castle/datalad-installer/internal/runner"
)

const (
	// DefaultBaseURL is the public GitHub API.
	DefaultBaseURL = "https://api.github.com"

	defaultTimeout = 30 * time.Second

	// maxJSONResponseBytes bounds a single page.
	maxJSONResponseBytes = 10 << 20

	// maxPages bounds a single listing.
	maxPages = 200
)

// ErrSequenceConsumed is yielded when a listing is iterated a second time.
var ErrSequenceConsumed = errors.New(messages.GHAPISequenceConsumed)

var now = time.Now

// RateLimitError reports exhausted API quota.
type RateLimitError struct {
	StatusCode int
	Status     string
	// ResetAt is when the quota resets; valid only when HasReset is true.
	ResetAt       time.Time
	HasReset      bool
	Authenticated bool
}

func (e *RateLimitError) Error() string {
	msg := fmt.Sprintf(messages.GHAPIRateLimitFmt, e.Status)
	if e.HasReset {
		msg += fmt.Sprintf(messages.GHAPIRateLimitResetFmt, e.ResetAt.Local().Format(time.RFC1123))
	}
	if !e.Authenticated {
		msg += messages.GHAPIRateLimitHint
	}
	return msg
}

// IsRateLimitError reports whether err represents exhausted API quota.
func IsRateLimitError(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// Client queries the GitHub API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	userAgent  string
	retry      *download.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(base string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(base, "/")
	}
}

// WithToken sets the token sent to the API host.
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithRetry sets the client whose attempt budget and backoff govern API
// requests. Rate-limit responses are never retried.
func WithRetry(dl *download.Client) ClientOption {
	return func(c *Client) {
		c.retry = dl
	}
}

// NewClient returns a Client. The default HTTP client drops credentials on
// cross-origin redirects.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		userAgent: download.DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = download.NewHTTPClient(defaultTimeout)
	}
	if c.retry == nil {
		c.retry = &download.Client{}
	}
	return c
}

// Authenticated reports whether a token is configured.
func (c *Client) Authenticated() bool {
	return c.token != ""
}

// DownloadOptions returns the request options for fetching rawURL with a
// download.Client. The token is included only when rawURL shares the API
// origin.
func (c *Client) DownloadOptions(rawURL string) []download.Option {
	if c.token == "" || !c.sameOrigin(rawURL) {
		return nil
	}
	return []download.Option{download.WithBearerToken(c.token)}
}

// ListAll returns a lazy sequence over every item of a paginated listing.
// endpoint is a path relative to the base URL or an absolute URL. itemsKey
// names the array field in object-shaped pages; empty means each page is an
// array. Pages are requested only as the sequence is consumed, and the
// sequence can be iterated once.
func (c *Client) ListAll(ctx context.Context, endpoint, itemsKey string) iter.Seq2[json.RawMessage, error] {
	used := false
	return func(yield func(json.RawMessage, error) bool) {
		if used {
			yield(nil, ErrSequenceConsumed)
			return
		}
		used = true

		next := c.resolve(endpoint)
		for pages := 0; next != ""; pages++ {
			if pages == maxPages {
				yield(nil, fmt.Errorf(messages.GHAPITooManyPagesFmt, maxPages, endpoint))
				return
			}
			items, link, err := c.page(ctx, next, itemsKey)
			if err != nil {
				yield(nil, err)
				return
			}
			for _, item := range items {
				if !yield(item, nil) {
					return
				}
			}
			next = link
		}
	}
}

// GetJSON decodes a single-object endpoint into v.
func (c *Client) GetJSON(ctx context.Context, endpoint string, v any) error {
	reqURL := c.resolve(endpoint)
	return c.do(ctx, reqURL, func(resp *http.Response) error {
		if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONResponseBytes)).Decode(v); err != nil {
			return fmt.Errorf(messages.GHAPIDecodeFmt, reqURL, err)
		}
		return nil
	})
}

// page fetches one page and returns its items and the next page URL.
func (c *Client) page(ctx context.Context, pageURL, itemsKey string) ([]json.RawMessage, string, error) {
	var (
		items []json.RawMessage
		next  string
	)
	err := c.do(ctx, pageURL, func(resp *http.Response) error {
		var err error
		items, next, err = decodePage(pageURL, itemsKey, resp)
		return err
	})
	if err != nil {
		return nil, "", err
	}
	return items, next, nil
}

func decodePage(pageURL, itemsKey string, resp *http.Response) ([]json.RawMessage, string, error) {
	body := io.LimitReader(resp.Body, maxJSONResponseBytes)
	var items []json.RawMessage
	if itemsKey == "" {
		if err := json.NewDecoder(body).Decode(&items); err != nil {
			return nil, "", fmt.Errorf(messages.GHAPIDecodeFmt, pageURL, err)
		}
	} else {
		var obj map[string]json.RawMessage
		if err := json.NewDecoder(body).Decode(&obj); err != nil {
			return nil, "", fmt.Errorf(messages.GHAPIDecodeFmt, pageURL, err)
		}
		raw, ok := obj[itemsKey]
		if !ok {
			return nil, "", fmt.Errorf(messages.GHAPIMissingKeyFmt, pageURL, itemsKey)
		}
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, "", fmt.Errorf(messages.GHAPIDecodeFmt, pageURL, err)
		}
	}

	next := ParseLinkHeader(resp.Header.Get("Link"))["next"]
	if next == "" {
		return items, "", nil
	}
	nextURL, err := resolveReference(pageURL, next)
	if err != nil {
		return nil, "", err
	}
	return items, nextURL, nil
}

// do requests reqURL and hands a 200 response to decode. Transport failures
// and 5xx or 408 statuses are retried on c.retry's schedule; rate limits and
// decode failures end the request immediately.
func (c *Client) do(ctx context.Context, reqURL string, decode func(*http.Response) error) error {
	_, err := c.retry.Retry(ctx, reqURL, func(int) (bool, error) {
		resp, err := c.get(ctx, reqURL)
		if err != nil {
			return ctx.Err() == nil, err
		}
		defer func() { _ = resp.Body.Close() }()
		if err := c.checkResponse(reqURL, resp); err != nil {
			return !IsRateLimitError(err) && retryableStatus(resp.StatusCode), err
		}
		return false, decode(resp)
	})
	return err
}

func retryableStatus(code int) bool {
	return code >= http.StatusInternalServerError || code == http.StatusRequestTimeout || code == http.StatusTooManyRequests
}

func (c *Client) get(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf(messages.GHAPIRequestFmt, reqURL, err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" && c.sameOrigin(reqURL) {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf(messages.GHAPIRequestFmt, reqURL, err)
	}
	return resp, nil
}

func (c *Client) checkResponse(reqURL string, resp *http.Response) error {
	if rl := rateLimitErrorFromResponse(resp, c.Authenticated()); rl != nil {
		return rl
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf(messages.GHAPIStatusFmt, reqURL, resp.Status)
	}
	return nil
}

func (c *Client) resolve(endpoint string) string {
	if strings.HasPrefix(endpoint, "https://") || strings.HasPrefix(endpoint, "http://") {
		return endpoint
	}
	return c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
}

func (c *Client) sameOrigin(rawURL string) bool {
	target, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return false
	}
	return download.SameOrigin(target, base)
}

// rateLimitErrorFromResponse returns a RateLimitError for a 429, or for a 403
// whose X-RateLimit-Remaining is zero.
func rateLimitErrorFromResponse(resp *http.Response, authenticated bool) *RateLimitError {
	switch resp.StatusCode {
	case http.StatusTooManyRequests:
	case http.StatusForbidden:
		remaining, err := strconv.Atoi(strings.TrimSpace(resp.Header.Get("X-RateLimit-Remaining")))
		if err != nil || remaining != 0 {
			return nil
		}
	default:
		return nil
	}
	rl := &RateLimitError{StatusCode: resp.StatusCode, Status: resp.Status, Authenticated: authenticated}
	if reset, err := strconv.ParseInt(strings.TrimSpace(resp.Header.Get("X-RateLimit-Reset")), 10, 64); err == nil {
		rl.ResetAt = time.Unix(reset, 0)
		rl.HasReset = true
	} else if secs, err := strconv.Atoi(strings.TrimSpace(resp.Header.Get("Retry-After"))); err == nil {
		rl.ResetAt = now().Add(time.Duration(secs) * time.Second)
		rl.HasReset = true
	}
	return rl
}

// ParseLinkHeader parses an RFC 8288 Link header into a map from rel to URL.
//
// Example: <https://api.github.com/...?page=2>; rel="next", <...>; rel="last"
func ParseLinkHeader(header string) map[string]string {
	links := make(map[string]string)
	for part := range strings.SplitSeq(header, ",") {
		part = strings.TrimSpace(part)
		start := strings.Index(part, "<")
		end := strings.Index(part, ">")
		if start < 0 || end <= start {
			continue
		}
		target := part[start+1 : end]
		for param := range strings.SplitSeq(part[end+1:], ";") {
			key, value, ok := strings.Cut(strings.TrimSpace(param), "=")
			if !ok || !strings.EqualFold(strings.TrimSpace(key), "rel") {
				continue
			}
			for rel := range strings.FieldsSeq(strings.Trim(strings.TrimSpace(value), `"`)) {
				links[strings.ToLower(rel)] = target
			}
		}
	}
	return links
}

func resolveReference(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf(messages.GHAPIBadNextLinkFmt, ref, err)
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf(messages.GHAPIBadNextLinkFmt, ref, err)
	}
	return b.ResolveReference(r).String(), nil
}

// TokenFromEnv returns GITHUB_TOKEN, falling back to git's hub.oauthtoken
// setting. It returns "" when neither is set.
func TokenFromEnv(ctx context.Context, getenv func(string) string, r runner.Runner) string {
	if token := strings.TrimSpace(getenv("GITHUB_TOKEN")); token != "" {
		return token
	}
	if r == nil {
		return ""
	}
	out, err := r.Output(ctx, runner.Command("git", "config", "hub.oauthtoken"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}
