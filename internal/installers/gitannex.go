package installers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/conn-castle/datalad-installer/internal/component"
	"github.com/conn-castle/datalad-installer/internal/ghapi"
	"github.com/conn-castle/datalad-installer/internal/htmlindex"
	"github.com/conn-castle/datalad-installer/internal/messages"
	"github.com/conn-castle/datalad-installer/internal/methods"
	"github.com/conn-castle/datalad-installer/internal/runner"
)

const (
	gitAnnexOwner = "datalad"
	gitAnnexRepo  = "git-annex"

	dmgVolume   = "/Volumes/git-annex/"
	macAppBin   = "/Applications/git-annex.app/Contents/MacOS"
	windowsBin  = `C:\Program Files\Git\usr\bin`
	ciBranch    = "master"
	maxCIRuns   = 20
	gitAnnexBin = "git-annex"
)

// Download locations; variables so tests can point them at local servers.
var (
	kitenetBaseURL  = "https://downloads.kitenet.net/git-annex"
	packagesBaseURL = "https://datasets.datalad.org/datalad/packages"
)

// ErrTokenRequired is returned when CI artifacts are requested without a
// GitHub token.
var ErrTokenRequired = errors.New(messages.InstallersTokenRequired)

var (
	autobuildPaths = map[methods.Platform]string{
		methods.Linux: "autobuild/amd64",
		methods.MacOS: "autobuild/x86_64-apple-yosemite",
	}
	snapshotPaths = map[methods.Platform]string{
		methods.Linux: "linux/current",
		methods.MacOS: "OSX/current/10.10_Yosemite",
	}
)

// kitenet installs the standalone builds published by the git-annex author.
type kitenet struct {
	paths map[methods.Platform]string
}

func (k kitenet) Install(ctx context.Context, env *Env, req component.Request) ([]Installed, error) {
	path, ok := k.paths[env.Platform]
	if !ok {
		return nil, unsupported(env, string(req.Kind))
	}
	dir, err := env.tempDir("dl-build-")
	if err != nil {
		return nil, err
	}
	switch env.Platform {
	case methods.Linux:
		if env.arch() != "amd64" {
			return nil, unsupported(env, string(req.Kind))
		}
		const name = "git-annex-standalone-amd64.tar.gz"
		tarball, err := env.fetch(ctx, kitenetBaseURL+"/"+path+"/"+name, dir, name)
		if err != nil {
			return nil, err
		}
		if err := env.Runner.Run(ctx, runner.Command("tar", "-C", dir, "-xzf", tarball)); err != nil {
			return nil, err
		}
		annexDir := filepath.Join(dir, "git-annex.linux")
		if err := env.Buffer.AddPath(annexDir); err != nil {
			return nil, err
		}
		return []Installed{{Name: gitAnnexBin, Path: filepath.Join(annexDir, gitAnnexBin)}}, nil
	default:
		const name = "git-annex.dmg"
		dmg, err := env.fetch(ctx, kitenetBaseURL+"/"+path+"/"+name, dir, name)
		if err != nil {
			return nil, err
		}
		return installDMG(ctx, env, dmg)
	}
}

// installDMG copies the application out of a git-annex disk image.
func installDMG(ctx context.Context, env *Env, dmg string) ([]Installed, error) {
	if err := env.Runner.Run(ctx, runner.Command("hdiutil", "attach", dmg)); err != nil {
		return nil, err
	}
	copyErr := env.Runner.Run(ctx, runner.Command("rsync", "-a", dmgVolume+"git-annex.app", "/Applications/"))
	detachErr := env.Runner.Run(ctx, runner.Command("hdiutil", "detach", dmgVolume))
	if err := errors.Join(copyErr, detachErr); err != nil {
		return nil, err
	}
	if err := env.Buffer.AddPath(macAppBin); err != nil {
		return nil, err
	}
	return []Installed{{Name: gitAnnexBin, Path: filepath.Join(macAppBin, gitAnnexBin)}}, nil
}

// installPackageFile installs a downloaded git-annex package with the
// platform's package tool.
func installPackageFile(ctx context.Context, env *Env, file string) ([]Installed, error) {
	switch env.Platform {
	case methods.Linux:
		if err := installDeb(ctx, env, file); err != nil {
			return nil, err
		}
		return []Installed{{Name: gitAnnexBin, Path: filepath.Join("/usr/bin", gitAnnexBin)}}, nil
	case methods.MacOS:
		return installDMG(ctx, env, file)
	default:
		if err := env.privileged(ctx, runner.Command(file, "/S")); err != nil {
			return nil, err
		}
		return []Installed{{Name: env.exe(gitAnnexBin), Path: windowsBin + `\` + env.exe(gitAnnexBin)}}, nil
	}
}

// packageExt is the package file extension for the platform.
func packageExt(p methods.Platform) string {
	switch p {
	case methods.Linux:
		return ".deb"
	case methods.MacOS:
		return ".dmg"
	default:
		return ".exe"
	}
}

var ciWorkflows = map[methods.Platform]string{
	methods.Linux:   "build-ubuntu.yaml",
	methods.MacOS:   "build-macos.yaml",
	methods.Windows: "build-windows.yaml",
}

// ciBuild installs a build artifact from the datalad/git-annex CI. With
// tested set only runs whose tests passed qualify; otherwise any completed
// run that produced an artifact does.
type ciBuild struct {
	tested bool
}

func (b ciBuild) Install(ctx context.Context, env *Env, req component.Request) ([]Installed, error) {
	workflow, ok := ciWorkflows[env.Platform]
	if !ok {
		return nil, unsupported(env, string(req.Kind))
	}
	gh := env.github()
	if !gh.Authenticated() {
		return nil, ErrTokenRequired
	}
	artifact, err := b.latestArtifact(ctx, env, gh, workflow)
	if err != nil {
		return nil, err
	}

	dir, err := env.tempDir("dl-annex-build-")
	if err != nil {
		return nil, err
	}
	archive, err := env.fetch(ctx, artifact.ArchiveDownloadURL, dir, ".artifact.zip", gh.DownloadOptions(artifact.ArchiveDownloadURL)...)
	if err != nil {
		return nil, err
	}
	if err := extractZip(archive, dir); err != nil {
		return nil, err
	}
	_ = os.Remove(archive)
	file, err := singleFile(dir, "*"+packageExt(env.Platform))
	if err != nil {
		return nil, err
	}
	return installPackageFile(ctx, env, file)
}

func (b ciBuild) latestArtifact(ctx context.Context, env *Env, gh *ghapi.Client, workflow string) (ghapi.Artifact, error) {
	status := "completed"
	if b.tested {
		status = "success"
	}
	endpoint := fmt.Sprintf("repos/%s/%s/actions/workflows/%s/runs?status=%s&branch=%s&per_page=%d",
		gitAnnexOwner, gitAnnexRepo, workflow, status, ciBranch, maxCIRuns)
	env.logInfo(messages.InstallersFetchingRuns, "workflow", workflow, "status", status)

	var (
		found   *ghapi.Artifact
		scanErr error
		seen    int
	)
	err := ghapi.Each(ctx, gh, endpoint, "workflow_runs", func(run ghapi.WorkflowRun) bool {
		seen++
		env.logInfo(messages.InstallersFetchingArtifacts, "run", run.HTMLURL)
		var artifacts []ghapi.Artifact
		scanErr = ghapi.Each(ctx, gh, run.ArtifactsURL, "artifacts", func(a ghapi.Artifact) bool {
			if !a.Expired {
				artifacts = append(artifacts, a)
			}
			return true
		})
		switch {
		case scanErr != nil:
			return false
		case len(artifacts) == 1:
			found = &artifacts[0]
			return false
		case len(artifacts) > 1:
			scanErr = fmt.Errorf(messages.InstallersAmbiguousAssetFmt, "artifact", run.HTMLURL, len(artifacts))
			return false
		}
		return seen < maxCIRuns
	})
	if err == nil {
		err = scanErr
	}
	if err != nil {
		return ghapi.Artifact{}, err
	}
	if found == nil {
		return ghapi.Artifact{}, fmt.Errorf(messages.InstallersNoArtifactsFmt, workflow)
	}
	return *found, nil
}

func installGitAnnexRelease(ctx context.Context, env *Env, req component.Request) ([]Installed, error) {
	suffix := packageExt(env.Platform)
	if env.Platform == methods.Linux {
		suffix = "_" + debArch(env.arch()) + suffix
	}
	gh := env.github()
	var (
		rel ghapi.Release
		err error
	)
	if req.Version != "" {
		rel, err = gh.ReleaseByTag(ctx, gitAnnexOwner, gitAnnexRepo, req.Version)
	} else {
		rel, err = gh.LatestRelease(ctx, gitAnnexOwner, gitAnnexRepo)
	}
	if err != nil {
		return nil, err
	}
	var matches []ghapi.Asset
	for _, a := range rel.Assets {
		if strings.HasSuffix(a.Name, suffix) {
			matches = append(matches, a)
		}
	}
	where := gitAnnexOwner + "/" + gitAnnexRepo + " " + rel.TagName
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf(messages.InstallersNoAssetFmt, suffix, where)
	case 1:
	default:
		return nil, fmt.Errorf(messages.InstallersAmbiguousAssetFmt, suffix, where, len(matches))
	}
	asset := matches[0]
	dir, err := env.tempDir("dl-annex-release-")
	if err != nil {
		return nil, err
	}
	file, err := env.fetch(ctx, asset.BrowserDownloadURL, dir, asset.Name, gh.DownloadOptions(asset.BrowserDownloadURL)...)
	if err != nil {
		return nil, err
	}
	return installPackageFile(ctx, env, file)
}

// debArch maps a GOARCH to the Debian architecture name.
func debArch(goarch string) string {
	switch goarch {
	case "386":
		return "i386"
	case "arm":
		return "armhf"
	default:
		return goarch
	}
}

var packageIndexes = map[methods.Platform]struct {
	dir     string
	pattern *regexp.Regexp
}{
	methods.Linux:   {"neurodebian", regexp.MustCompile(`^git-annex-standalone_([^_]+)_amd64\.deb$`)},
	methods.MacOS:   {"osx", regexp.MustCompile(`^git-annex_([^_]+)_x64\.dmg$`)},
	methods.Windows: {"windows", regexp.MustCompile(`^git-annex-installer_([^_]+)_x64\.exe$`)},
}

// installGitAnnexPackage installs from the datalad packages index. A pinned
// version matches exactly or up to the Debian revision.
func installGitAnnexPackage(ctx context.Context, env *Env, req component.Request) ([]Installed, error) {
	index, ok := packageIndexes[env.Platform]
	if !ok || (env.Platform == methods.Linux && env.arch() != "amd64") {
		return nil, unsupported(env, string(req.Kind))
	}
	indexURL := packagesBaseURL + "/" + index.dir + "/"
	link, err := pickPackage(ctx, env, indexURL, index.pattern, req.Version)
	if err != nil {
		return nil, err
	}
	dir, err := env.tempDir("dl-annex-package-")
	if err != nil {
		return nil, err
	}
	file, err := env.fetch(ctx, link.URL, dir, link.Name)
	if err != nil {
		return nil, err
	}
	return installPackageFile(ctx, env, file)
}

func pickPackage(ctx context.Context, env *Env, indexURL string, pattern *regexp.Regexp, version string) (htmlindex.Link, error) {
	page, err := env.downloader().Get(ctx, indexURL)
	if err != nil {
		return htmlindex.Link{}, err
	}
	links, err := htmlindex.ParseLinks(page, indexURL)
	if err != nil {
		return htmlindex.Link{}, err
	}
	var (
		best    htmlindex.Link
		bestVer string
	)
	for _, l := range htmlindex.Match(links, pattern) {
		v := pattern.FindStringSubmatch(l.Name)[1]
		if version != "" {
			if v == version || strings.HasPrefix(v, version+"-") {
				return l, nil
			}
			continue
		}
		if bestVer == "" || compareVersions(v, bestVer) > 0 {
			best, bestVer = l, v
		}
	}
	if bestVer == "" {
		what := pattern.String()
		if version != "" {
			what = "version " + version
		}
		return htmlindex.Link{}, fmt.Errorf(messages.InstallersNoIndexMatchFmt, what, indexURL)
	}
	return best, nil
}

// compareVersions orders package versions by their upstream part, falling
// back to string order when either is not a semantic version.
func compareVersions(a, b string) int {
	va, vb := upstreamVersion(a), upstreamVersion(b)
	if semver.IsValid(va) && semver.IsValid(vb) {
		if c := semver.Compare(va, vb); c != 0 {
			return c
		}
	}
	return strings.Compare(a, b)
}

func upstreamVersion(v string) string {
	if i := strings.IndexAny(v, "-~+"); i >= 0 {
		v = v[:i]
	}
	return ghapi.CanonicalVersion(v)
}
