package eprints

import (
	"bytes"
	"context"
	"io"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// maxAttempts bounds transport attempts per artifact.
	maxAttempts = 3

	// defaultPeekSize is how many body bytes are sniffed when the server
	// does not declare an archive content type.
	defaultPeekSize = 1024

	// htmlMarker identifies a disguised error page in sniffed bytes.
	htmlMarker = "<html"

	// defaultFetchTimeout is generous because e-print tarballs can be
	// tens of megabytes served from slow mirrors.
	defaultFetchTimeout = 90 * time.Second

	copyBufSize = 1024 * 1024
)

// transientStatus holds the status codes worth retrying with backoff.
// 403 is included because arXiv mirrors use it for rate limiting.
var transientStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
	http.StatusForbidden:           true,
}

// Status classifies the terminal result of one fetch.
type Status int

const (
	// StatusOK means the artifact was written to disk.
	StatusOK Status = iota
	// StatusSkip means the artifact already existed with non-zero size.
	StatusSkip
	// StatusError means the fetch ended without a usable artifact.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusSkip:
		return "skip"
	default:
		return "err"
	}
}

// Outcome is the terminal result of fetching one artifact. Code is set
// only for StatusError: either the HTTP status digits or one of "empty",
// "ctype", "exception", "timeout".
type Outcome struct {
	Status Status
	Code   string
}

func (o Outcome) String() string {
	if o.Status == StatusError {
		return "err:" + o.Code
	}
	return o.Status.String()
}

// Fetcher downloads one e-print tarball per identifier with bounded
// retries. It is safe for sequential reuse across identifiers.
type Fetcher struct {
	client  *http.Client
	baseURL string
	contact string

	// peekSize and backoffUnit exist so tests can shrink the sniff
	// window and the retry sleeps.
	peekSize    int
	backoffUnit time.Duration
}

// NewFetcher creates a Fetcher targeting the arXiv e-print endpoint.
func NewFetcher(contact string) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: defaultFetchTimeout,
		},
		baseURL:     eprintBaseURL,
		contact:     contact,
		peekSize:    defaultPeekSize,
		backoffUnit: time.Second,
	}
}

// ArtifactFilename maps an identifier to its filesystem-safe tarball name.
// Old-style identifiers contain a slash ("math/0001001"), which would
// otherwise become a path segment.
func ArtifactFilename(id string) string {
	return strings.ReplaceAll(id, "/", "_") + ".tar.gz"
}

// Fetch downloads the tarball for id into destDir and reports the
// terminal outcome. An existing non-empty file short-circuits to
// StatusSkip without any network traffic. Transient statuses and
// transport errors are retried up to maxAttempts with jittered
// exponential backoff; any other failure is terminal immediately.
//
// A partially written file from an aborted transfer is left in place;
// only a non-zero size counts as already downloaded on the next run.
func (f *Fetcher) Fetch(ctx context.Context, id, destDir string) Outcome {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return Outcome{Status: StatusError, Code: "exception"}
	}

	path := filepath.Join(destDir, ArtifactFilename(id))
	if fi, err := os.Stat(path); err == nil && fi.Size() > 0 {
		return Outcome{Status: StatusSkip}
	}

	reqURL := f.baseURL + "/" + id

	var lastCode string
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
		if err != nil {
			return Outcome{Status: StatusError, Code: "exception"}
		}
		setRequestHeaders(req, f.contact)

		resp, err := f.client.Do(req)
		if err != nil {
			// Network-level failure: connection reset, DNS, timeout.
			if err := f.backoff(ctx, attempt); err != nil {
				return Outcome{Status: StatusError, Code: "timeout"}
			}
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastCode = strconv.Itoa(resp.StatusCode)
			if transientStatus[resp.StatusCode] {
				if err := f.backoff(ctx, attempt); err != nil {
					return Outcome{Status: StatusError, Code: "timeout"}
				}
				continue
			}
			return Outcome{Status: StatusError, Code: lastCode}
		}

		out := f.save(resp, path)
		resp.Body.Close()
		return out
	}

	if lastCode == "" {
		lastCode = "timeout"
	}
	return Outcome{Status: StatusError, Code: lastCode}
}

// save validates a 200 response and streams its body to path.
func (f *Fetcher) save(resp *http.Response, path string) Outcome {
	ctype := strings.ToLower(resp.Header.Get("Content-Type"))
	if strings.Contains(ctype, "gzip") || strings.Contains(ctype, "tar") || strings.Contains(ctype, "octet-stream") {
		return writeBody(path, resp.Body)
	}

	// Some mirrors omit the archive type; peek the first chunk to tell a
	// tarball from an error page.
	peek := make([]byte, f.peekSize)
	n, err := io.ReadFull(resp.Body, peek)
	if n == 0 {
		if err == io.EOF {
			return Outcome{Status: StatusError, Code: "empty"}
		}
		return Outcome{Status: StatusError, Code: "exception"}
	}
	peek = peek[:n]

	if utf8.Valid(peek) && strings.Contains(strings.ToLower(string(peek)), htmlMarker) {
		return Outcome{Status: StatusError, Code: "ctype"}
	}

	return writeBody(path, io.MultiReader(bytes.NewReader(peek), resp.Body))
}

func writeBody(path string, body io.Reader) Outcome {
	out, err := os.Create(path)
	if err != nil {
		return Outcome{Status: StatusError, Code: "exception"}
	}
	defer out.Close()

	buf := make([]byte, copyBufSize)
	if _, err := io.CopyBuffer(out, body, buf); err != nil {
		// The partial file stays behind; the size check on the next run
		// decides whether it counts.
		return Outcome{Status: StatusError, Code: "exception"}
	}
	return Outcome{Status: StatusOK}
}

// backoff sleeps before the next attempt, honoring ctx cancellation.
func (f *Fetcher) backoff(ctx context.Context, attempt int) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(backoffDuration(attempt, f.backoffUnit)):
		return nil
	}
}

// backoffDuration computes the retry delay after the given attempt:
// 2^attempt units, jittered by up to half a unit either way, never less
// than one unit.
func backoffDuration(attempt int, unit time.Duration) time.Duration {
	d := time.Duration(1<<uint(attempt)) * unit
	jitter := time.Duration((rand.Float64() - 0.5) * float64(unit))
	d += jitter
	if d < unit {
		d = unit
	}
	return d
}
