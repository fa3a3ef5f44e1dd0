// Package testutil provides shared test fixtures for sessions and their
// HTTP surfaces.
package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/richa/internal/gaze"
)

// Epoch is the fixed start time used by mock clocks in tests.
var Epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// LocalRequest creates a test request that appears to come from localhost,
// which tsweb's debug access check requires.
func LocalRequest(method, path string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	req.RemoteAddr = "127.0.0.1:12345"
	return req
}

// FormRequest creates a localhost request carrying form as an urlencoded
// body. A nil form sends no body.
func FormRequest(method, path string, form url.Values) *http.Request {
	if form == nil {
		return LocalRequest(method, path, nil)
	}
	req := LocalRequest(method, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// GazeSample fills the raw gaze views: closest as the closest hit (none when
// empty) and all as every hit.
func GazeSample(closest string, all ...string) gaze.Sample {
	s := gaze.Sample{}
	for _, n := range all {
		s.AllWorldIntersections = append(s.AllWorldIntersections, gaze.Intersection{ObjectName: n})
	}
	if closest != "" {
		s.ClosestWorldIntersection = &gaze.Intersection{ObjectName: closest}
	}
	return s
}

// Look is GazeSample with zone as both the closest and the only hit.
func Look(zone string) gaze.Sample {
	if zone == "" {
		return gaze.Sample{}
	}
	return GazeSample(zone, zone)
}

// FeedLines encodes samples as newline-terminated feed lines.
func FeedLines(t testing.TB, samples ...gaze.Sample) string {
	t.Helper()
	var b strings.Builder
	for _, s := range samples {
		data, err := json.Marshal(s)
		if err != nil {
			t.Fatalf("failed to marshal sample: %v", err)
		}
		b.Write(data)
		b.WriteByte('\n')
	}
	return b.String()
}
