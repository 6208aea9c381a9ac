package installers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/conn-castle/datalad-installer/internal/component"
	"github.com/conn-castle/datalad-installer/internal/download"
	"github.com/conn-castle/datalad-installer/internal/messages"
	"github.com/conn-castle/datalad-installer/internal/methods"
)

const (
	rcloneRemoteOwner = "DanielDent"
	rcloneRemoteRepo  = "git-annex-remote-rclone"

	defaultBinDir = "/usr/local/bin"
)

var rcloneBaseURL = "https://downloads.rclone.org"

// rcloneTarget returns the OS and architecture names used in rclone release
// file names.
func rcloneTarget(env *Env) (string, string, error) {
	var osName string
	switch env.Platform {
	case methods.Linux:
		osName = "linux"
	case methods.MacOS:
		osName = "osx"
	case methods.Windows:
		osName = "windows"
	default:
		return "", "", unsupported(env, string(component.KindRclone))
	}
	switch arch := env.arch(); arch {
	case "amd64", "arm64", "386", "arm":
		return osName, arch, nil
	default:
		return "", "", unsupported(env, string(component.KindRclone))
	}
}

// binDirFor returns the --bin-dir option or the platform default.
func binDirFor(env *Env, req component.Request) (string, error) {
	if dir, ok := req.Options.String(component.OptBinDir); ok && dir != "" {
		return dir, nil
	}
	if env.Platform == methods.Windows {
		return env.tempDir("dl-bin-")
	}
	return defaultBinDir, nil
}

// installRclone installs an official rclone build. Pinned versions are
// checked against the published SHA256SUMS.
func installRclone(ctx context.Context, env *Env, req component.Request) ([]Installed, error) {
	osName, arch, err := rcloneTarget(env)
	if err != nil {
		return nil, err
	}
	version := "current"
	base := rcloneBaseURL
	if req.Version != "" {
		version = "v" + strings.TrimPrefix(req.Version, "v")
		base += "/" + version
	}
	stem := fmt.Sprintf("rclone-%s-%s-%s", version, osName, arch)
	zipName := stem + ".zip"

	dir, err := env.tempDir("dl-rclone-")
	if err != nil {
		return nil, err
	}
	archive, err := env.fetch(ctx, base+"/"+zipName, dir, zipName)
	if err != nil {
		return nil, err
	}
	if req.Version != "" {
		sumsURL := base + "/SHA256SUMS"
		sums, err := env.downloader().Get(ctx, sumsURL)
		if err != nil {
			return nil, err
		}
		want, err := download.ChecksumFor(sums, zipName, sumsURL)
		if err != nil {
			return nil, err
		}
		if err := download.VerifyChecksum(archive, want); err != nil {
			return nil, err
		}
	}
	unpacked := filepath.Join(dir, "unpacked")
	if err := extractZip(archive, unpacked); err != nil {
		return nil, err
	}
	// "current" archives unpack into a directory named for the real version.
	top, err := singleFile(unpacked, fmt.Sprintf("rclone-*-%s-%s", osName, arch))
	if err != nil {
		return nil, err
	}

	binDir, err := binDirFor(env, req)
	if err != nil {
		return nil, err
	}
	name := env.exe("rclone")
	bin, err := place(ctx, env, filepath.Join(top, name), binDir, name, 0o755)
	if err != nil {
		return nil, err
	}
	if manDir, ok := req.Options.String(component.OptManDir); ok && manDir != "" {
		if _, err := place(ctx, env, filepath.Join(top, "rclone.1"), filepath.Join(manDir, "man1"), "rclone.1", 0o644); err != nil {
			return nil, err
		}
	}
	return []Installed{{Name: name, Path: bin}}, nil
}

// installRcloneRemote installs the git-annex special remote script from a
// tagged source archive.
func installRcloneRemote(ctx context.Context, env *Env, req component.Request) ([]Installed, error) {
	gh := env.github()
	var tarball string
	if req.Version != "" {
		tarball = gh.TarballURL(rcloneRemoteOwner, rcloneRemoteRepo, req.Version)
	} else {
		tag, err := gh.LatestTag(ctx, rcloneRemoteOwner, rcloneRemoteRepo)
		if err != nil {
			return nil, err
		}
		tarball = tag.TarballURL
	}
	dir, err := env.tempDir("dl-rclone-remote-")
	if err != nil {
		return nil, err
	}
	archive, err := env.fetch(ctx, tarball, dir, "source.tar.gz", gh.DownloadOptions(tarball)...)
	if err != nil {
		return nil, err
	}
	src := filepath.Join(dir, "src")
	if err := extractTarGz(archive, src); err != nil {
		return nil, err
	}
	_ = os.Remove(archive)
	name := string(component.KindGitAnnexRemoteRclone)
	script, err := singleFile(src, filepath.Join("*", name))
	if err != nil {
		return nil, fmt.Errorf(messages.InstallersArchiveEntryFmt, tarball, name)
	}
	binDir, err := binDirFor(env, req)
	if err != nil {
		return nil, err
	}
	bin, err := place(ctx, env, script, binDir, name, 0o755)
	if err != nil {
		return nil, err
	}
	return []Installed{{Name: name, Path: bin}}, nil
}
