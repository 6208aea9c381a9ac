package ghapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/conn-castle/datalad-installer/internal/messages"
)

// Release is a GitHub release.
type Release struct {
	TagName    string  `json:"tag_name"`
	Draft      bool    `json:"draft"`
	Prerelease bool    `json:"prerelease"`
	Assets     []Asset `json:"assets"`
}

// Asset is a file attached to a release.
type Asset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
	Size               int64  `json:"size"`
}

// Tag is a repository tag.
type Tag struct {
	Name       string `json:"name"`
	TarballURL string `json:"tarball_url"`
}

// WorkflowRun is a GitHub Actions workflow run.
type WorkflowRun struct {
	ID           int64  `json:"id"`
	HeadSHA      string `json:"head_sha"`
	Status       string `json:"status"`
	Conclusion   string `json:"conclusion"`
	ArtifactsURL string `json:"artifacts_url"`
	HTMLURL      string `json:"html_url"`
}

// Artifact is a build artifact of a workflow run.
type Artifact struct {
	Name               string `json:"name"`
	ArchiveDownloadURL string `json:"archive_download_url"`
	Expired            bool   `json:"expired"`
}

// Each decodes every item of a listing into T, stopping at the first error or
// when fn returns false.
func Each[T any](ctx context.Context, c *Client, endpoint, itemsKey string, fn func(T) bool) error {
	for raw, err := range c.ListAll(ctx, endpoint, itemsKey) {
		if err != nil {
			return err
		}
		var item T
		if err := json.Unmarshal(raw, &item); err != nil {
			return fmt.Errorf(messages.GHAPIDecodeFmt, endpoint, err)
		}
		if !fn(item) {
			return nil
		}
	}
	return nil
}

// LatestRelease returns the newest published, non-prerelease release.
func (c *Client) LatestRelease(ctx context.Context, owner, repo string) (Release, error) {
	var rel Release
	if err := c.GetJSON(ctx, fmt.Sprintf("repos/%s/%s/releases/latest", owner, repo), &rel); err != nil {
		return Release{}, err
	}
	return rel, nil
}

// ReleaseByTag returns the release for tag.
func (c *Client) ReleaseByTag(ctx context.Context, owner, repo, tag string) (Release, error) {
	var found *Release
	err := Each(ctx, c, fmt.Sprintf("repos/%s/%s/releases?per_page=100", owner, repo), "", func(r Release) bool {
		if r.TagName == tag {
			found = &r
			return false
		}
		return true
	})
	if err != nil {
		return Release{}, err
	}
	if found == nil {
		return Release{}, fmt.Errorf(messages.GHAPIReleaseNotFoundFmt, tag, owner, repo)
	}
	return *found, nil
}

// LatestTag returns the tag with the highest semantic version. Tags need not
// carry a "v" prefix.
func (c *Client) LatestTag(ctx context.Context, owner, repo string) (Tag, error) {
	var best *Tag
	err := Each(ctx, c, fmt.Sprintf("repos/%s/%s/tags?per_page=100", owner, repo), "", func(t Tag) bool {
		v := CanonicalVersion(t.Name)
		if !semver.IsValid(v) || semver.Prerelease(v) != "" {
			return true
		}
		if best == nil || semver.Compare(v, CanonicalVersion(best.Name)) > 0 {
			tag := t
			best = &tag
		}
		return true
	})
	if err != nil {
		return Tag{}, err
	}
	if best == nil {
		return Tag{}, fmt.Errorf(messages.GHAPINoTagsFmt, owner, repo)
	}
	return *best, nil
}

// TarballURL returns the source archive URL of ref.
func (c *Client) TarballURL(owner, repo, ref string) string {
	return c.resolve(fmt.Sprintf("repos/%s/%s/tarball/%s", owner, repo, url.PathEscape(ref)))
}

// CanonicalVersion adds the "v" prefix semver expects.
func CanonicalVersion(tag string) string {
	if strings.HasPrefix(tag, "v") {
		return tag
	}
	return "v" + tag
}
