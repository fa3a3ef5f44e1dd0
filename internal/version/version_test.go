package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	oldVersion, oldSHA, oldTime := Version, GitSHA, BuildTime
	t.Cleanup(func() { Version, GitSHA, BuildTime = oldVersion, oldSHA, oldTime })

	Version, GitSHA, BuildTime = "v0.3.0", "0123456789abcdef", "2026-03-01T09:00:00Z"
	got := String()
	want := "richa v0.3.0 (0123456789ab, built 2026-03-01T09:00:00Z)"
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	GitSHA = "unknown"
	if got := String(); !strings.HasPrefix(got, "richa v0.3.0 (") {
		t.Errorf("String() = %q", got)
	}
}
