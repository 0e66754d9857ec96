package cachestore

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
)

// checksumRe matches `{{ checksum "path" }}` placeholders inside a cache
// key template.
var checksumRe = regexp.MustCompile(`\{\{\s*checksum\s+"([^"]+)"\s*\}\}`)

// ResolveKey expands every checksum placeholder in the template against the
// content of the referenced file, resolved relative to dir. Identical file
// content always yields an identical key. A missing or unreadable file is
// an error, never a silent cache bypass.
func ResolveKey(template, dir string) (string, error) {
	var resolveErr error
	key := checksumRe.ReplaceAllStringFunc(template, func(match string) string {
		rel := checksumRe.FindStringSubmatch(match)[1]
		sum, err := fileChecksum(filepath.Join(dir, rel))
		if err != nil && resolveErr == nil {
			resolveErr = fmt.Errorf("cache key %q: %w", template, err)
		}
		return sum
	})
	if resolveErr != nil {
		return "", resolveErr
	}
	return key, nil
}

func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("checksum input: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("checksum %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
