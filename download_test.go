package eprints

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// newTestFetcher points a Fetcher at a test server with millisecond
// backoffs so retry tests run fast.
func newTestFetcher(serverURL string) *Fetcher {
	f := NewFetcher("")
	f.baseURL = serverURL
	f.backoffUnit = time.Millisecond
	return f
}

// binaryPayload returns n bytes that are neither valid UTF-8 text nor an
// HTML document.
func binaryPayload(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(0x80 + i%0x60)
	}
	return data
}

func TestFetchSkipExisting(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer server.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, ArtifactFilename("2301.00001"))
	if err := os.WriteFile(path, []byte("already here"), 0644); err != nil {
		t.Fatal(err)
	}

	f := newTestFetcher(server.URL)
	out := f.Fetch(context.Background(), "2301.00001", dir)
	if out.Status != StatusSkip {
		t.Fatalf("outcome = %v, want skip", out)
	}
	if requests != 0 {
		t.Errorf("expected no network I/O for an existing file, got %d requests", requests)
	}
}

func TestFetchEmptyStubIsNotSkipped(t *testing.T) {
	payload := binaryPayload(64)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/gzip")
		w.Write(payload)
	}))
	defer server.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, ArtifactFilename("2301.00001"))
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}

	f := newTestFetcher(server.URL)
	out := f.Fetch(context.Background(), "2301.00001", dir)
	if out.Status != StatusOK {
		t.Fatalf("outcome = %v, want ok", out)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("zero-byte stub was not overwritten with the payload")
	}
}

func TestFetchTransientRetryBound(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	f := newTestFetcher(server.URL)
	out := f.Fetch(context.Background(), "2301.00001", t.TempDir())

	if attempts != maxAttempts {
		t.Errorf("attempts = %d, want %d", attempts, maxAttempts)
	}
	if out.Status != StatusError || out.Code != "503" {
		t.Errorf("outcome = %v, want err:503", out)
	}
}

func TestFetchTerminalStatusNoRetry(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f := newTestFetcher(server.URL)
	out := f.Fetch(context.Background(), "2301.00001", t.TempDir())

	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
	if out.Status != StatusError || out.Code != "404" {
		t.Errorf("outcome = %v, want err:404", out)
	}
}

func TestFetchRecoversAfterTransientFailures(t *testing.T) {
	payload := binaryPayload(2048)
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(payload)
	}))
	defer server.Close()

	dir := t.TempDir()
	f := newTestFetcher(server.URL)
	out := f.Fetch(context.Background(), "2301.00001", dir)

	if out.Status != StatusOK {
		t.Fatalf("outcome = %v, want ok", out)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	got, err := os.ReadFile(filepath.Join(dir, ArtifactFilename("2301.00001")))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("written file does not match the payload")
	}
}

func TestFetchArchiveContentType(t *testing.T) {
	payload := binaryPayload(4096)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua == "" {
			t.Error("request missing User-Agent")
		}
		w.Header().Set("Content-Type", "application/x-gzip")
		w.Write(payload)
	}))
	defer server.Close()

	dir := t.TempDir()
	f := newTestFetcher(server.URL)
	out := f.Fetch(context.Background(), "math/0001001", dir)

	if out.Status != StatusOK {
		t.Fatalf("outcome = %v, want ok", out)
	}
	got, err := os.ReadFile(filepath.Join(dir, "math_0001001.tar.gz"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("written file does not match the payload")
	}
}

func TestFetchEmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
	}))
	defer server.Close()

	f := newTestFetcher(server.URL)
	out := f.Fetch(context.Background(), "2301.00001", t.TempDir())
	if out.Status != StatusError || out.Code != "empty" {
		t.Errorf("outcome = %v, want err:empty", out)
	}
}

func TestFetchHTMLErrorPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<HTML><body>Paper unavailable</body></HTML>"))
	}))
	defer server.Close()

	dir := t.TempDir()
	f := newTestFetcher(server.URL)
	out := f.Fetch(context.Background(), "2301.00001", dir)
	if out.Status != StatusError || out.Code != "ctype" {
		t.Errorf("outcome = %v, want err:ctype", out)
	}
	if _, err := os.Stat(filepath.Join(dir, ArtifactFilename("2301.00001"))); err == nil {
		t.Error("error page must not be written to disk")
	}
}

func TestFetchPeekAcceptsUndeclaredBinary(t *testing.T) {
	// Larger than the peek window so both the peeked bytes and the rest
	// of the stream must land in the file.
	payload := binaryPayload(defaultPeekSize * 3)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write(payload)
	}))
	defer server.Close()

	dir := t.TempDir()
	f := newTestFetcher(server.URL)
	out := f.Fetch(context.Background(), "2301.00001", dir)

	if out.Status != StatusOK {
		t.Fatalf("outcome = %v, want ok", out)
	}
	got, err := os.ReadFile(filepath.Join(dir, ArtifactFilename("2301.00001")))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("file has %d bytes, payload has %d", len(got), len(payload))
	}
}

func TestFetchNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // Connection refused from here on.

	f := newTestFetcher(server.URL)
	out := f.Fetch(context.Background(), "2301.00001", t.TempDir())
	if out.Status != StatusError || out.Code != "timeout" {
		t.Errorf("outcome = %v, want err:timeout", out)
	}
}

func TestArtifactFilename(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"2301.00001", "2301.00001.tar.gz"},
		{"math/0001001", "math_0001001.tar.gz"},
		{"hep-th/9901001", "hep-th_9901001.tar.gz"},
	}
	for _, tt := range tests {
		if got := ArtifactFilename(tt.id); got != tt.want {
			t.Errorf("ArtifactFilename(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestBackoffDuration(t *testing.T) {
	unit := time.Second
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		base := time.Duration(1<<uint(attempt)) * unit
		lo := base - unit/2
		hi := base + unit/2
		for i := 0; i < 100; i++ {
			d := backoffDuration(attempt, unit)
			if d < lo || d > hi {
				t.Fatalf("attempt %d: duration %v outside [%v, %v]", attempt, d, lo, hi)
			}
			if d < unit {
				t.Fatalf("attempt %d: duration %v below floor %v", attempt, d, unit)
			}
		}
	}

	// Successive delays are non-decreasing in expectation: the jitter
	// band of attempt n+1 sits entirely above that of attempt n.
	for attempt := 1; attempt < maxAttempts; attempt++ {
		hiN := time.Duration(1<<uint(attempt))*unit + unit/2
		loNext := time.Duration(1<<uint(attempt+1))*unit - unit/2
		if loNext < hiN {
			t.Fatalf("backoff bands overlap between attempts %d and %d", attempt, attempt+1)
		}
	}
}

func TestOutcomeString(t *testing.T) {
	tests := []struct {
		out  Outcome
		want string
	}{
		{Outcome{Status: StatusOK}, "ok"},
		{Outcome{Status: StatusSkip}, "skip"},
		{Outcome{Status: StatusError, Code: "404"}, "err:404"},
		{Outcome{Status: StatusError, Code: "ctype"}, "err:ctype"},
	}
	for _, tt := range tests {
		if got := tt.out.String(); got != tt.want {
			t.Errorf("%+v.String() = %q, want %q", tt.out, got, tt.want)
		}
	}
}
