// Package uploader turns a batch of local files into an ingested dataset.
package uploader

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/drill-ai/cli/internal/powerdrill"
)

// supportedExtensions are the file types the analysis service accepts.
var supportedExtensions = map[string]bool{
	".csv":  true,
	".tsv":  true,
	".md":   true,
	".mdx":  true,
	".json": true,
	".txt":  true,
	".pdf":  true,
	".pptx": true,
	".docx": true,
	".xls":  true,
	".xlsx": true,
}

// SupportedExtensions lists the accepted file extensions, sorted, for help
// and error text.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(supportedExtensions))
	for ext := range supportedExtensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Progress is called after each file finishes uploading.
type Progress func(fileName string, index, total int)

// Uploader creates datasets from local files and waits for ingestion.
type Uploader struct {
	client *powerdrill.Client

	// TempDir holds the staging copies; defaults to the system temp dir.
	TempDir string
	// WaitTimeout and PollInterval bound the readiness wait after upload.
	WaitTimeout  time.Duration
	PollInterval time.Duration
}

// New creates an uploader with the default readiness bounds (300s, polling
// every 5s).
func New(client *powerdrill.Client) *Uploader {
	return &Uploader{
		client:       client,
		TempDir:      os.TempDir(),
		WaitTimeout:  300 * time.Second,
		PollInterval: 5 * time.Second,
	}
}

// Upload creates a dataset, registers every file against it in order, then
// blocks until ingestion finishes or the wait times out. The first file
// failure aborts the batch; files after it are not attempted. ready is false
// when the dataset is still synchronizing at return — usable, possibly
// incomplete.
func (u *Uploader) Upload(ctx context.Context, name, description string, paths []string, progress Progress) (datasetID string, ready bool, err error) {
	if len(paths) == 0 {
		return "", false, fmt.Errorf("no files to upload")
	}
	for _, path := range paths {
		ext := strings.ToLower(filepath.Ext(path))
		if !supportedExtensions[ext] {
			return "", false, fmt.Errorf("unsupported file type %q (supported: %s)",
				ext, strings.Join(SupportedExtensions(), " "))
		}
	}

	datasetID, err = u.client.CreateDataset(ctx, name, description)
	if err != nil {
		return "", false, fmt.Errorf("creating dataset: %w", err)
	}

	for i, path := range paths {
		fileName := filepath.Base(path)
		if err := u.uploadOne(ctx, datasetID, path, fileName); err != nil {
			return datasetID, false, fmt.Errorf("uploading %s: %w", fileName, err)
		}
		if progress != nil {
			progress(fileName, i+1, len(paths))
		}
	}

	ready, err = u.client.WaitForDatasetReady(ctx, datasetID, u.WaitTimeout, u.PollInterval)
	if err != nil {
		return datasetID, false, fmt.Errorf("waiting for dataset: %w", err)
	}
	return datasetID, ready, nil
}

// uploadOne registers a single file through a temporary staging copy whose
// lifetime is scoped exactly to this call, including failure paths.
func (u *Uploader) uploadOne(ctx context.Context, datasetID, path, fileName string) error {
	staged, err := u.stage(path)
	if err != nil {
		return err
	}
	defer os.Remove(staged)

	_, err = u.client.CreateDataSource(ctx, datasetID, staged, fileName)
	return err
}

// stage copies the file into the staging directory and returns the copy's
// path. The caller removes it.
func (u *Uploader) stage(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening file: %w", err)
	}
	defer src.Close()

	staged := filepath.Join(u.TempDir, fmt.Sprintf("drill-upload-%s%s", uuid.NewString(), filepath.Ext(path)))
	dst, err := os.Create(staged)
	if err != nil {
		return "", fmt.Errorf("staging file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(staged)
		return "", fmt.Errorf("staging file: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(staged)
		return "", fmt.Errorf("staging file: %w", err)
	}
	return staged, nil
}
