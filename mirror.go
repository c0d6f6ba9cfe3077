package eprints

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

// Mirror copies the downloaded tarballs under dir into bucket, keyed by
// prefix + filename. An object that already exists with the same size is
// skipped, so repeated mirrors only transfer new artifacts. Returns the
// number of objects uploaded.
func Mirror(ctx context.Context, dir string, bucket *blob.Bucket, prefix string) (int, error) {
	uploaded := 0

	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".tar.gz") {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return err
		}
		if fi.Size() == 0 {
			// Stub from an aborted download; nothing worth mirroring.
			return nil
		}

		key := path.Join(prefix, d.Name())
		if attrs, err := bucket.Attributes(ctx, key); err == nil {
			if attrs.Size == fi.Size() {
				return nil
			}
		} else if gcerrors.Code(err) != gcerrors.NotFound {
			return fmt.Errorf("attributes %s: %w", key, err)
		}

		if err := mirrorFile(ctx, bucket, key, p); err != nil {
			return err
		}
		uploaded++
		return nil
	})
	if err != nil {
		return uploaded, fmt.Errorf("mirror: %w", err)
	}
	return uploaded, nil
}

func mirrorFile(ctx context.Context, bucket *blob.Bucket, key, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	w, err := bucket.NewWriter(ctx, key, &blob.WriterOptions{
		ContentType: "application/gzip",
	})
	if err != nil {
		return fmt.Errorf("bucket writer %s: %w", key, err)
	}

	if _, err := io.Copy(w, f); err != nil {
		w.Close()
		return fmt.Errorf("upload %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finish upload %s: %w", key, err)
	}
	return nil
}
