// Package fsutil provides file operations that tolerate cross-filesystem moves.
package fsutil

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/conn-castle/datalad-installer/internal/messages"
)

var osRename = os.Rename

// Move renames src to dst. When the two are on different filesystems it
// copies src (a file or directory tree) and then removes it. A failure to
// remove src after a successful copy is logged, not returned.
func Move(src, dst string, logger *log.Logger) error {
	err := osRename(src, dst)
	if err == nil {
		return nil
	}
	if !isCrossDevice(err) {
		return fmt.Errorf(messages.FSMoveFmt, src, dst, err)
	}
	if err := copyTree(src, dst); err != nil {
		return fmt.Errorf(messages.FSCopyFmt, src, dst, err)
	}
	if err := os.RemoveAll(src); err != nil && logger != nil {
		logger.Warn(messages.FSRemoveAfterCopy, "path", src, "err", err)
	}
	return nil
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		info, err := d.Info()
		if err != nil {
			return err
		}
		switch {
		case d.IsDir():
			return os.MkdirAll(target, info.Mode().Perm())
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		default:
			return copyFile(path, target, info.Mode().Perm())
		}
	})
}

func copyFile(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
