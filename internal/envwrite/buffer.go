// Package envwrite accumulates shell lines that set up the environment for
// installed components and writes them to the configured files at exit.
package envwrite

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"mvdan.cc/sh/v3/syntax"

	"github.com/conn-castle/datalad-installer/internal/messages"
)

// Buffer is an append-only list of shell lines.
type Buffer struct {
	lines   []string
	flushed bool
}

// Append adds lines in order.
func (b *Buffer) Append(lines ...string) {
	b.lines = append(b.lines, lines...)
}

// AddPath appends a line prepending dir to PATH.
func (b *Buffer) AddPath(dir string) error {
	q, err := quote(dir)
	if err != nil {
		return err
	}
	b.Append(`export PATH=` + q + `:"$PATH"`)
	return nil
}

// Activate appends a line sourcing script with args.
func (b *Buffer) Activate(script string, args ...string) error {
	words := []string{"."}
	for _, w := range append([]string{script}, args...) {
		q, err := quote(w)
		if err != nil {
			return err
		}
		words = append(words, q)
	}
	b.Append(strings.Join(words, " "))
	return nil
}

// Lines returns a copy of the buffered lines.
func (b *Buffer) Lines() []string {
	out := make([]string, len(b.lines))
	copy(out, b.lines)
	return out
}

// Len returns the number of buffered lines.
func (b *Buffer) Len() int {
	return len(b.lines)
}

// Flush writes the buffer to every path, creating missing files and
// appending to existing ones. Only the first call writes; later calls are
// no-ops. Errors for individual paths are joined after every path is tried.
func (b *Buffer) Flush(paths []string) error {
	if b.flushed {
		return nil
	}
	b.flushed = true
	var content string
	if len(b.lines) > 0 {
		content = strings.Join(b.lines, "\n") + "\n"
	}
	var errs []error
	for _, path := range paths {
		if err := appendFile(path, content); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func appendFile(path string, content string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf(messages.EnvwriteOpenFmt, path, err)
	}
	defer func() {
		_ = file.Close()
	}()
	if err := lockFileFn(file); err != nil {
		return fmt.Errorf(messages.EnvwriteLockFmt, path, err)
	}
	defer func() {
		_ = unlockFileFn(file)
	}()

	if content == "" {
		return nil
	}
	needsNewline, err := lacksTrailingNewline(file)
	if err != nil {
		return fmt.Errorf(messages.EnvwriteReadFmt, path, err)
	}
	if needsNewline {
		content = "\n" + content
	}
	if _, err := io.WriteString(file, content); err != nil {
		return fmt.Errorf(messages.EnvwriteWriteFmt, path, err)
	}
	return nil
}

func lacksTrailingNewline(file *os.File) (bool, error) {
	info, err := file.Stat()
	if err != nil {
		return false, err
	}
	if info.Size() == 0 {
		return false, nil
	}
	last := make([]byte, 1)
	if _, err := file.ReadAt(last, info.Size()-1); err != nil {
		return false, err
	}
	return last[0] != '\n', nil
}

func quote(s string) (string, error) {
	q, err := syntax.Quote(s, syntax.LangPOSIX)
	if err != nil {
		return "", fmt.Errorf(messages.EnvwriteQuoteFmt, s, err)
	}
	return q, nil
}
