package download

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/conn-castle/datalad-installer/internal/messages"
)

const maxRedirects = 10

// NewHTTPClient returns an http.Client with the given timeout and a redirect
// policy that drops credentials when a redirect changes origin.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout, CheckRedirect: CheckRedirect}
}

// CheckRedirect is an http.Client redirect policy. It removes the
// Authorization header from req when req targets a different origin than the
// first request in via.
func CheckRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf(messages.DownloadTooManyRedirectsFmt, maxRedirects)
	}
	if len(via) > 0 && !SameOrigin(req.URL, via[0].URL) {
		req.Header.Del("Authorization")
	}
	return nil
}

// Origin returns scheme://host:port for u with the host lower-cased and the
// default port filled in.
func Origin(u *url.URL) string {
	scheme := strings.ToLower(u.Scheme)
	port := u.Port()
	if port == "" {
		switch scheme {
		case "https":
			port = "443"
		case "http":
			port = "80"
		}
	}
	return scheme + "://" + strings.ToLower(u.Hostname()) + ":" + port
}

// SameOrigin reports whether a and b share an origin.
func SameOrigin(a, b *url.URL) bool {
	return Origin(a) == Origin(b)
}
