package eprints

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Cache maintains a local SQLite catalog of harvested record metadata.
// It is bookkeeping only: the download path never reads it, so a missing
// or stale catalog cannot change which artifacts get fetched.
type Cache struct {
	root      string
	db        *sql.DB
	recordLRU *lruCache
}

// OpenCache opens or creates the metadata catalog under root. The
// database lives at root/index.db, next to the downloaded tarballs.
func OpenCache(root string) (*Cache, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(root, "index.db"))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	c := &Cache{
		root:      root,
		db:        db,
		recordLRU: newLRUCache(10000),
	}
	if err := c.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return c, nil
}

// Close closes the catalog database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Root returns the catalog root directory.
func (c *Cache) Root() string {
	return c.root
}

func (c *Cache) initSchema() error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS records (
			id         TEXT PRIMARY KEY,
			datestamp  TEXT,
			set_specs  TEXT,
			harvested  TEXT,
			downloaded INTEGER NOT NULL DEFAULT 0
		)
	`)
	return err
}

// InsertRecords upserts one page of harvested records in a single
// transaction. The downloaded marker of an existing row is preserved.
func (c *Cache) InsertRecords(ctx context.Context, recs []Record) error {
	if len(recs) == 0 {
		return nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (id, datestamp, set_specs, harvested)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			datestamp = excluded.datestamp,
			set_specs = excluded.set_specs,
			harvested = excluded.harvested
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().Format(time.RFC3339)
	for _, r := range recs {
		if _, err := stmt.ExecContext(ctx, r.ID, r.Datestamp, strings.Join(r.SetSpecs, " "), now); err != nil {
			return err
		}
		c.recordLRU.delete(r.ID)
	}

	return tx.Commit()
}

// MarkDownloaded flags a record's tarball as stored on disk.
func (c *Cache) MarkDownloaded(ctx context.Context, id string) error {
	_, err := c.db.ExecContext(ctx, "UPDATE records SET downloaded = 1 WHERE id = ?", id)
	c.recordLRU.delete(id)
	return err
}

// GetRecord retrieves one record by identifier.
func (c *Cache) GetRecord(ctx context.Context, id string) (*Record, error) {
	if r, ok := c.recordLRU.get(id); ok {
		return r, nil
	}

	row := c.db.QueryRowContext(ctx,
		"SELECT id, datestamp, set_specs, downloaded FROM records WHERE id = ?", id)

	var r Record
	var setSpecs string
	var downloaded int
	if err := row.Scan(&r.ID, &r.Datestamp, &setSpecs, &downloaded); err != nil {
		return nil, err
	}
	if setSpecs != "" {
		r.SetSpecs = strings.Fields(setSpecs)
	}
	r.Downloaded = downloaded == 1

	c.recordLRU.put(id, &r)
	return &r, nil
}

// Stats returns catalog statistics.
func (c *Cache) Stats(ctx context.Context) (*CatalogStats, error) {
	stats := &CatalogStats{}

	row := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records")
	if err := row.Scan(&stats.TotalRecords); err != nil {
		return nil, err
	}

	row = c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records WHERE downloaded = 1")
	if err := row.Scan(&stats.Downloaded); err != nil {
		return nil, err
	}

	return stats, nil
}
