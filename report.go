package eprints

import (
	"fmt"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
)

// json is a drop-in replacement for encoding/json with better performance.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// reportFilename is where WriteReport stores the run summary, next to
// the downloaded artifacts.
const reportFilename = "harvest-report.json"

// WriteReport writes the run summary as JSON under dir and returns the
// path written.
func WriteReport(dir string, sum *Summary) (string, error) {
	data, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}

	path := filepath.Join(dir, reportFilename)
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

// ReadReport loads a previously written run summary.
func ReadReport(path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}

	var sum Summary
	if err := json.Unmarshal(data, &sum); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &sum, nil
}
