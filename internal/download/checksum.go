package download

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/conn-castle/datalad-installer/internal/messages"
)

// ChecksumFor finds the checksum for name in a sha256sum-style listing.
func ChecksumFor(listing []byte, name, source string) (string, error) {
	scanner := bufio.NewScanner(bytes.NewReader(listing))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		path := strings.TrimPrefix(fields[1], "*")
		path = strings.TrimPrefix(path, "./")
		if path == name {
			return strings.ToLower(fields[0]), nil
		}
	}
	return "", fmt.Errorf(messages.DownloadChecksumNotFoundFmt, name, source)
}

// VerifyChecksum computes the SHA-256 of path and compares it to expected.
func VerifyChecksum(path string, expected string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf(messages.DownloadOpenFileFmt, path, err)
	}
	defer func() { _ = file.Close() }()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return fmt.Errorf(messages.DownloadHashFileFmt, path, err)
	}
	actual := fmt.Sprintf("%x", hasher.Sum(nil))
	if actual != strings.ToLower(expected) {
		return fmt.Errorf(messages.DownloadChecksumMismatchFmt, path, expected, actual)
	}
	return nil
}
