package eprints

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// maxMemberSize caps a single extracted archive member.
const maxMemberSize = 100 * 1024 * 1024

// Extract unpacks a gzipped tar archive into destDir. Members whose
// resolved path would escape destDir are skipped, never extracted; this
// guards against archives crafted with "../" member names. Individual
// members are capped at maxMemberSize.
func Extract(archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	gzr, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("gzip reader: %w", err)
	}
	defer gzr.Close()

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}
	base := filepath.Clean(destDir)

	tr := tar.NewReader(gzr)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read tar: %w", err)
		}

		target := filepath.Join(base, filepath.Clean(hdr.Name))
		if target != base && !strings.HasPrefix(target, base+string(os.PathSeparator)) {
			continue
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("create dir: %w", err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("create dir: %w", err)
			}
			out, err := os.Create(target)
			if err != nil {
				return fmt.Errorf("create file: %w", err)
			}
			_, err = io.CopyN(out, tr, maxMemberSize)
			out.Close()
			if err != nil && !errors.Is(err, io.EOF) {
				return fmt.Errorf("write %s: %w", hdr.Name, err)
			}
		}
	}

	return nil
}
