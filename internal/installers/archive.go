package installers

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/conn-castle/datalad-installer/internal/fsutil"
	"github.com/conn-castle/datalad-installer/internal/messages"
	"github.com/conn-castle/datalad-installer/internal/methods"
	"github.com/conn-castle/datalad-installer/internal/runner"
)

// extractZip unpacks src below dest.
func extractZip(src, dest string) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf(messages.InstallersArchiveFmt, src, err)
	}
	defer func() { _ = r.Close() }()
	for _, f := range r.File {
		target, err := safeJoin(dest, f.Name)
		if err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf(messages.InstallersArchiveFmt, src, err)
			}
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf(messages.InstallersArchiveFmt, src, err)
		}
		err = writeFile(target, rc, f.Mode().Perm())
		_ = rc.Close()
		if err != nil {
			return fmt.Errorf(messages.InstallersArchiveFmt, src, err)
		}
	}
	return nil
}

// extractTarGz unpacks the directories and regular files of a gzipped
// tarball below dest. Links and special files are skipped.
func extractTarGz(src, dest string) error {
	file, err := os.Open(src)
	if err != nil {
		return fmt.Errorf(messages.InstallersArchiveFmt, src, err)
	}
	defer func() { _ = file.Close() }()
	gz, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf(messages.InstallersArchiveFmt, src, err)
	}
	defer func() { _ = gz.Close() }()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf(messages.InstallersArchiveFmt, src, err)
		}
		target, err := safeJoin(dest, hdr.Name)
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			err = os.MkdirAll(target, 0o755)
		case tar.TypeReg:
			err = writeFile(target, tr, fs.FileMode(hdr.Mode).Perm())
		default:
			continue
		}
		if err != nil {
			return fmt.Errorf(messages.InstallersArchiveFmt, src, err)
		}
	}
}

func safeJoin(dest, name string) (string, error) {
	target := filepath.Join(dest, filepath.FromSlash(name))
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf(messages.InstallersUnsafePathFmt, name)
	}
	return target, nil
}

func writeFile(path string, r io.Reader, perm fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if perm == 0 {
		perm = 0o644
	}
	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// singleFile returns the one path below dir matching pattern.
func singleFile(dir, pattern string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return "", err
	}
	if len(matches) != 1 {
		return "", fmt.Errorf(messages.InstallersAmbiguousAssetFmt, pattern, dir, len(matches))
	}
	return matches[0], nil
}

// place moves src to dir/name with mode. When dir cannot be written
// directly the copy is done through the privilege escalator.
func place(ctx context.Context, env *Env, src, dir, name string, mode fs.FileMode) (string, error) {
	dst := filepath.Join(dir, name)
	err := os.MkdirAll(dir, 0o755)
	if err == nil {
		err = fsutil.Move(src, dst, env.Logger)
	}
	if err == nil {
		if err := os.Chmod(dst, mode); err != nil {
			return "", fmt.Errorf(messages.InstallersPlaceFmt, name, dir, err)
		}
		return dst, nil
	}
	if !errors.Is(err, fs.ErrPermission) || env.Platform == methods.Windows {
		return "", fmt.Errorf(messages.InstallersPlaceFmt, name, dir, err)
	}
	if err := env.privileged(ctx, runner.Command("mkdir", "-p", dir)); err != nil {
		return "", err
	}
	if err := env.privileged(ctx, runner.Command("install", "-m", fmt.Sprintf("%o", mode.Perm()), src, dst)); err != nil {
		return "", err
	}
	return dst, nil
}
