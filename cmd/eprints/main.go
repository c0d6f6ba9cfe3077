package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/scholarpile/eprints"
)

func main() {
	log.SetFlags(0)

	if len(os.Args) < 2 {
		fmt.Println(usageText)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "pull":
		cmdPull(ctx, args)
	case "stats":
		cmdStats(ctx, args)
	case "extract":
		cmdExtract(args)
	case "mirror":
		cmdMirror(ctx, args)
	case "help":
		fmt.Println(usageText)
	default:
		log.Fatalf("unknown command: %s", cmd)
	}
}

func cmdPull(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("pull", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML config file")
	out := fs.String("out", "", "Output directory")
	max := fs.Int("max", 0, "Maximum number of downloads")
	set := fs.String("set", "", "arXiv set to harvest (e.g. math, cs)")
	from := fs.String("from", "", "Start date (YYYY-MM-DD)")
	until := fs.String("until", "", "End date (YYYY-MM-DD)")
	sleepFlag := fs.String("sleep", "", "Politeness delay between items (e.g. 2.5s)")
	noCatalog := fs.Bool("no-catalog", false, "Skip the SQLite record catalog")
	fs.Parse(args)

	cfg := eprints.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = eprints.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		log.Fatalf("config env: %v", err)
	}

	// Flags win over file and environment.
	if *out != "" {
		cfg.OutDir = *out
	}
	if *max != 0 {
		cfg.MaxItems = *max
	}
	if *set != "" {
		cfg.Set = *set
	}
	if *from != "" {
		cfg.From = *from
	}
	if *until != "" {
		cfg.Until = *until
	}
	if *sleepFlag != "" {
		cfg.Sleep = *sleepFlag
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	opts, err := cfg.Options()
	if err != nil {
		log.Fatal(err)
	}
	opts.Progress = func(downloaded int) {
		fmt.Printf("%d downloaded...\n", downloaded)
	}

	h := eprints.NewHarvester(opts)
	if !*noCatalog {
		cache, err := eprints.OpenCache(opts.OutDir)
		if err != nil {
			log.Fatalf("open catalog: %v", err)
		}
		defer cache.Close()
		h.SetCache(cache)
	}

	start := time.Now()
	sum, err := h.Run(ctx)
	if err != nil {
		log.Fatalf("harvest: %v", err)
	}

	if path, err := eprints.WriteReport(opts.OutDir, sum); err != nil {
		log.Printf("write report: %v", err)
	} else {
		fmt.Printf("Report: %s\n", path)
	}

	fmt.Printf("Done in %s. Downloaded: %d, skipped: %d, errors: %d. Saved to: %s\n",
		time.Since(start).Round(time.Second), sum.Downloaded, sum.Skipped, sum.ErrorCount(), opts.OutDir)
}

func cmdStats(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	out := fs.String("out", "./papers", "Output directory")
	fs.Parse(args)

	cache, err := eprints.OpenCache(*out)
	if err != nil {
		log.Fatalf("open catalog: %v", err)
	}
	defer cache.Close()

	stats, err := cache.Stats(ctx)
	if err != nil {
		log.Fatalf("stats: %v", err)
	}

	fmt.Printf("Catalog: %s\n", filepath.Join(*out, "index.db"))
	fmt.Printf("Records harvested:   %d\n", stats.TotalRecords)
	fmt.Printf("Tarballs downloaded: %d\n", stats.Downloaded)
}

func cmdExtract(args []string) {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() == 0 {
		log.Fatal("usage: eprints extract <file.tar.gz> [dest-dir]")
	}

	archive := fs.Arg(0)
	dest := fs.Arg(1)
	if dest == "" {
		base := filepath.Base(archive)
		for ext := filepath.Ext(base); ext != ""; ext = filepath.Ext(base) {
			base = base[:len(base)-len(ext)]
		}
		dest = filepath.Join(filepath.Dir(archive), base)
	}

	if err := eprints.Extract(archive, dest); err != nil {
		log.Fatalf("extract: %v", err)
	}
	fmt.Printf("Extracted to %s\n", dest)
}

func cmdMirror(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("mirror", flag.ExitOnError)
	out := fs.String("out", "./papers", "Local artifact directory")
	bucketURL := fs.String("bucket", "", "Destination bucket URL (e.g. s3://bucket, file:///path)")
	prefix := fs.String("prefix", "", "Key prefix inside the bucket")
	fs.Parse(args)

	if *bucketURL == "" {
		log.Fatal("usage: eprints mirror -out DIR -bucket URL [-prefix P]")
	}

	bucket, err := blob.OpenBucket(ctx, *bucketURL)
	if err != nil {
		log.Fatalf("open bucket: %v", err)
	}
	defer bucket.Close()

	n, err := eprints.Mirror(ctx, *out, bucket, *prefix)
	if err != nil {
		log.Fatalf("mirror: %v", err)
	}
	fmt.Printf("Mirrored %d tarballs to %s\n", n, *bucketURL)
}
