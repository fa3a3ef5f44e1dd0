package security

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestResolveWithin(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		dest    string
		want    string
		wantErr bool
	}{
		{name: "plain file", dest: "report.txt", want: filepath.Join(dir, "report.txt")},
		{name: "nested new dir", dest: "p01/report.txt", want: filepath.Join(dir, "p01", "report.txt")},
		{name: "dot segments inside", dest: "a/../report.txt", want: filepath.Join(dir, "report.txt")},
		{name: "escape", dest: "../report.txt", wantErr: true},
		{name: "deep escape", dest: "a/../../../etc/passwd", wantErr: true},
		{name: "absolute kept", dest: "/tmp/x/../report.txt", want: "/tmp/report.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveWithin(dir, tt.dest)
			if tt.wantErr {
				if !errors.Is(err, ErrPathTraversal) {
					t.Fatalf("ResolveWithin(%q) err = %v, want ErrPathTraversal", tt.dest, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveWithin(%q) unexpected error: %v", tt.dest, err)
			}
			if got != tt.want {
				t.Errorf("ResolveWithin(%q) = %q, want %q", tt.dest, got, tt.want)
			}
		})
	}
}

func TestResolveWithin_SymlinkEscape(t *testing.T) {
	dir := t.TempDir()
	outside := t.TempDir()
	link := filepath.Join(dir, "evil")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	if _, err := ResolveWithin(dir, "evil/report.txt"); !errors.Is(err, ErrPathTraversal) {
		t.Errorf("expected traversal error through symlink, got %v", err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"richa_2026-03-01 09:00:00Z.txt": "richa_2026-03-01_09_00_00Z.txt",
		"":                               "unknown",
		"../../etc":                      "etc",
		"__..__":                         "unknown",
		"P01 / Manual":                   "P01_Manual",
	}
	for in, want := range tests {
		if got := SanitizeFilename(in); got != want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
