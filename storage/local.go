// Package storage persists uploaded files under session-scoped paths and
// optionally mirrors rendered outputs to object storage.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var nonAlphaNumeric = regexp.MustCompile(`[^a-zA-Z0-9_\-\.]`)
var multipleSpaces = regexp.MustCompile(`\s+`)

// sanitizeName reduces a client-supplied name to a safe single path
// component. Returns an empty string when nothing usable remains.
func sanitizeName(name string) string {
	base := strings.TrimSpace(filepath.Base(name))
	base = multipleSpaces.ReplaceAllString(base, "_")
	base = nonAlphaNumeric.ReplaceAllString(base, "")
	base = strings.Trim(base, ".")
	maxLength := 150
	if len(base) > maxLength {
		base = base[:maxLength]
	}
	return base
}

// LocalStore is the upload gateway: it writes incoming files under a
// session-scoped directory and hands back a stable web reference.
// Retention and quota are out of its hands.
type LocalStore struct {
	uploadDir string
}

// NewLocalStore creates a gateway rooted at uploadDir.
func NewLocalStore(uploadDir string) *LocalStore {
	return &LocalStore{uploadDir: uploadDir}
}

// Store writes the file under uploadDir/<sessionID>/<fileName> and returns
// the deterministic reference path /uploads/<sessionID>/<fileName>.
func (s *LocalStore) Store(r io.Reader, fileName, sessionID string) (string, error) {
	name := sanitizeName(fileName)
	if name == "" {
		return "", fmt.Errorf("unusable file name %q", fileName)
	}
	session := sanitizeName(sessionID)
	if session == "" {
		return "", fmt.Errorf("unusable session id %q", sessionID)
	}

	dir := filepath.Join(s.uploadDir, session)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create session directory: %w", err)
	}

	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, r); err != nil {
		return "", fmt.Errorf("write upload file: %w", err)
	}
	return "/uploads/" + session + "/" + name, nil
}
