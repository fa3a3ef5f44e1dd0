// Package security keeps operator-supplied report destinations inside the
// configured output directory and turns identifiers into safe file names.
package security

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrPathTraversal is returned when a destination resolves outside its base
// directory.
var ErrPathTraversal = errors.New("path escapes output directory")

// ResolveWithin joins a relative dest onto dir and rejects results that
// leave dir. Absolute destinations are returned cleaned and unchecked; the
// operator chose them explicitly.
//
// Symlinks are resolved for the deepest existing ancestor of the result so a
// link inside dir cannot point the write elsewhere.
func ResolveWithin(dir, dest string) (string, error) {
	if filepath.IsAbs(dest) {
		return filepath.Clean(dest), nil
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve output directory: %w", err)
	}
	target := filepath.Join(absDir, dest)

	if !within(absDir, target) {
		return "", fmt.Errorf("%w: %s", ErrPathTraversal, dest)
	}

	realDir := canonical(absDir)
	if !within(realDir, canonical(target)) {
		return "", fmt.Errorf("%w: %s", ErrPathTraversal, dest)
	}
	return target, nil
}

// canonical resolves symlinks in the longest existing prefix of p.
func canonical(p string) string {
	rest := ""
	for cur := p; ; {
		if resolved, err := filepath.EvalSymlinks(cur); err == nil {
			return filepath.Join(resolved, rest)
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return p
		}
		rest = filepath.Join(filepath.Base(cur), rest)
		cur = parent
	}
}

func within(dir, p string) bool {
	rel, err := filepath.Rel(dir, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// SanitizeFilename makes a safe filename from an arbitrary string. Anything
// other than ASCII letters, digits, '.', '_' and '-' becomes a single '_',
// leading and trailing '.'/'_' are trimmed, and the result is capped at 128
// bytes. An empty result becomes "unknown".
func SanitizeFilename(s string) string {
	const maxLen = 128
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxLen {
			break
		}
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'), r == '.', r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore:
			b.WriteRune('_')
			lastUnderscore = true
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}
