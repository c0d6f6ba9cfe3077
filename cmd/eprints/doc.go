/*
eprints is a bulk downloader for arXiv e-print source tarballs.

It walks the arXiv OAI-PMH catalog for a set and date range, downloads
one source tarball per record, and keeps a local SQLite catalog of what
it has seen. Re-running is safe: tarballs already on disk are skipped.

# Usage

	eprints <command> [options]

# Commands

	pull       Harvest the catalog and download tarballs
	stats      Show catalog statistics
	extract    Safely extract a downloaded tarball
	mirror     Copy downloaded tarballs into an object-store bucket

# Environment

	EPRINTS_OUT      Output directory
	EPRINTS_MAX      Maximum downloads
	EPRINTS_SET      arXiv set name
	EPRINTS_FROM     Start date (YYYY-MM-DD)
	EPRINTS_UNTIL    End date (YYYY-MM-DD)
	EPRINTS_SLEEP    Politeness delay between items
	EPRINTS_CONTACT  Operator mail address, advertised in the User-Agent

# Pulling

	eprints pull -out ./papers -max 50000 -from 2010-01-01
	eprints pull -set cs -from 2024-01-01 -sleep 3s
	eprints pull -config harvest.yaml

The pull command is sequential by design: one page request or one
download at a time, with a fixed pause after every item. Transient
server errors (429, 5xx, 403) are retried up to three times with
exponential backoff before an item is counted as failed. The run always
exits 0 when the loop completes; per-item errors appear in the summary
and in harvest-report.json next to the artifacts.

# Mirroring

	eprints mirror -out ./papers -bucket s3://my-archive -prefix math
	eprints mirror -out ./papers -bucket file:///mnt/backup

Objects already present with a matching size are not re-uploaded.

# Output layout

	papers/
	├── index.db               # SQLite record catalog
	├── harvest-report.json    # Summary of the last pull
	└── <id>.tar.gz            # One tarball per record ("/" becomes "_")
*/
package main

const usageText = `eprints - bulk arXiv e-print tarball downloader

Usage: eprints <command> [options]

Commands:
  pull       Harvest the catalog and download tarballs
  stats      Show catalog statistics
  extract    Safely extract a downloaded tarball
  mirror     Copy downloaded tarballs into a bucket

Environment:
  EPRINTS_CONTACT  Operator mail address for the User-Agent

Examples:
  eprints pull -out ./papers -max 1000 -from 2010-01-01
  eprints pull -set cs -sleep 3s
  eprints stats -out ./papers
  eprints extract papers/2301.00001.tar.gz
  eprints mirror -out ./papers -bucket s3://my-archive

Run 'go doc github.com/scholarpile/eprints/cmd/eprints' for full documentation.`
