// Package eprints provides a resilient bulk downloader for arXiv e-print
// source archives.
//
// This package implements:
//   - OAI-PMH client for enumerating record identifiers page by page
//   - Per-identifier tarball download with bounded retries and backoff
//   - A sequential harvest loop that drives both with a politeness delay
//   - Safe extraction of downloaded archives (path-traversal guarded)
//   - Local SQLite catalog of harvested record metadata
//
// The harvester is deliberately single-threaded: one outstanding page
// request or one outstanding download at a time, with a fixed pause after
// every item. Re-runs are cheap because an artifact already present on
// disk with non-zero size is skipped without touching the network.
//
// Basic usage:
//
//	h := eprints.NewHarvester(eprints.Options{
//		OutDir:   "./papers",
//		Set:      "math",
//		From:     time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC),
//		MaxItems: 50000,
//	})
//	summary, err := h.Run(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("downloaded %d tarballs\n", summary.Downloaded)
package eprints
