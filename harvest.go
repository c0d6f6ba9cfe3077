package eprints

import (
	"context"
	"log"
	"time"
)

// Defaults for a harvest run.
const (
	DefaultSet      = "math"
	DefaultMaxItems = 50000
	DefaultDelay    = 2500 * time.Millisecond

	// progressEvery controls how often the progress callback fires.
	progressEvery = 25
)

// Options configures a bulk harvest run.
type Options struct {
	// OutDir is where tarballs are written.
	OutDir string

	// MaxItems caps the number of successful downloads (default 50000).
	MaxItems int

	// Set filters the catalog to one arXiv set (default "math").
	Set string

	// From and Until bound the catalog walk by datestamp. Zero values
	// are omitted from the initial page request.
	From, Until time.Time

	// Delay is the politeness pause after every item and between pages
	// (default 2.5s). It applies regardless of the item's outcome.
	Delay time.Duration

	// Contact is the operator contact address for the User-Agent.
	Contact string

	// Progress, if set, is called with the running download count every
	// progressEvery successful downloads.
	Progress func(downloaded int)
}

// Summary aggregates the outcomes of one harvest run.
type Summary struct {
	Set        string         `json:"set"`
	Pages      int            `json:"pages"`
	Downloaded int            `json:"downloaded"`
	Skipped    int            `json:"skipped"`
	Errors     map[string]int `json:"errors,omitempty"`
	Started    time.Time      `json:"started"`
	Finished   time.Time      `json:"finished"`
}

// ErrorCount returns the total number of items that ended in an error.
func (s *Summary) ErrorCount() int {
	n := 0
	for _, c := range s.Errors {
		n += c
	}
	return n
}

// Harvester drives the catalog paginator and the artifact fetcher
// sequentially: one page request or one download outstanding at a time.
type Harvester struct {
	oai     *OAIClient
	fetcher *Fetcher
	cache   *Cache
	opts    Options
}

// NewHarvester creates a Harvester with defaults applied.
func NewHarvester(opts Options) *Harvester {
	if opts.Set == "" {
		opts.Set = DefaultSet
	}
	if opts.MaxItems <= 0 {
		opts.MaxItems = DefaultMaxItems
	}
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	return &Harvester{
		oai:     NewOAIClient(opts.Contact),
		fetcher: NewFetcher(opts.Contact),
		opts:    opts,
	}
}

// SetCache attaches a metadata catalog. Harvested records and download
// markers are recorded there for bookkeeping; the fetch path never
// consults it — skipping is decided by the file on disk alone.
func (h *Harvester) SetCache(c *Cache) {
	h.cache = c
}

// Run walks the catalog and downloads one tarball per identifier until
// MaxItems successes or exhaustion. Page-request failures propagate;
// per-item failures are only counted. Every identifier handed to the
// fetcher yields exactly one recorded outcome.
func (h *Harvester) Run(ctx context.Context) (*Summary, error) {
	sum := &Summary{
		Set:     h.opts.Set,
		Errors:  make(map[string]int),
		Started: time.Now(),
	}

	cursor := ""
	for sum.Downloaded < h.opts.MaxItems {
		select {
		case <-ctx.Done():
			return sum, ctx.Err()
		default:
		}

		page, err := h.oai.ListRecords(ctx, cursor, h.opts.Set, h.opts.From, h.opts.Until)
		if err != nil {
			return sum, err
		}
		sum.Pages++

		// Empty page: exhausted, or the paginator soft-failed on a
		// malformed response. Both end the walk.
		if len(page.IDs) == 0 {
			break
		}

		if h.cache != nil {
			if err := h.cache.InsertRecords(ctx, page.Records); err != nil {
				log.Printf("harvest: record catalog insert: %v", err)
			}
		}

		for _, id := range page.IDs {
			if sum.Downloaded >= h.opts.MaxItems {
				break
			}

			out := h.fetcher.Fetch(ctx, id, h.opts.OutDir)
			switch out.Status {
			case StatusOK:
				sum.Downloaded++
				if h.cache != nil {
					if err := h.cache.MarkDownloaded(ctx, id); err != nil {
						log.Printf("harvest: mark downloaded %s: %v", id, err)
					}
				}
				if h.opts.Progress != nil && sum.Downloaded%progressEvery == 0 {
					h.opts.Progress(sum.Downloaded)
				}
			case StatusSkip:
				sum.Skipped++
			case StatusError:
				sum.Errors[out.Code]++
			}

			if err := sleep(ctx, h.opts.Delay); err != nil {
				return sum, err
			}
		}

		cursor = page.Cursor
		if cursor == "" {
			break
		}
		if err := sleep(ctx, h.opts.Delay); err != nil {
			return sum, err
		}
	}

	sum.Finished = time.Now()
	return sum, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
