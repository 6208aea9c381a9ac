// Package htmlindex extracts links from HTML directory listings.
package htmlindex

import (
	"bytes"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/conn-castle/datalad-installer/internal/messages"
)

// Link is an anchor in a listing.
type Link struct {
	// Name is the last path segment of the target.
	Name string
	URL  string
}

// ParseLinks returns every anchor target in page resolved against pageURL,
// in document order. Query-only, fragment-only and parent links are skipped.
func ParseLinks(page []byte, pageURL string) ([]Link, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf(messages.HTMLIndexBaseURLFmt, pageURL, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf(messages.HTMLIndexParseFmt, pageURL, err)
	}
	var links []Link
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "?") || strings.HasPrefix(href, "#") || href == "../" {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		target := base.ResolveReference(ref)
		name := path.Base(strings.TrimSuffix(target.Path, "/"))
		links = append(links, Link{Name: name, URL: target.String()})
	})
	return links, nil
}

// Match returns the links whose Name matches pattern.
func Match(links []Link, pattern *regexp.Regexp) []Link {
	var out []Link
	for _, l := range links {
		if pattern.MatchString(l.Name) {
			out = append(out, l)
		}
	}
	return out
}
