package download

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/calculab/calcu/pkg/client"
)

// ErrInvalidInput rejects an empty or whitespace-only part number before
// any network traffic happens.
var ErrInvalidInput = errors.New("enter a valid MPN")

// Fetcher is the remote datasheet endpoint.
type Fetcher interface {
	DownloadDatasheet(ctx context.Context, mpn string) (*client.Datasheet, error)
}

// Saver delivers a fetched payload to local storage and returns the path
// it ended up at.
type Saver interface {
	Save(filename string, data []byte) (string, error)
}

// Downloader requests a datasheet for a part number and hands the binary
// payload to the local save mechanism.
type Downloader struct {
	fetcher Fetcher
	saver   Saver
}

// New creates a downloader over the given endpoint and save mechanism.
func New(fetcher Fetcher, saver Saver) *Downloader {
	return &Downloader{fetcher: fetcher, saver: saver}
}

// Download fetches the datasheet for mpn and saves it locally, returning
// the saved path. The filename comes from the response's
// Content-Disposition hint when present, else "<mpn>.pdf". No retry on
// failure; server-provided error details travel up inside the error.
func (d *Downloader) Download(ctx context.Context, mpn string) (string, error) {
	mpn = strings.TrimSpace(mpn)
	if mpn == "" {
		return "", ErrInvalidInput
	}

	ds, err := d.fetcher.DownloadDatasheet(ctx, mpn)
	if err != nil {
		return "", fmt.Errorf("download.Download: %w", err)
	}

	name := resolveFilename(ds.ContentDisposition, mpn)
	path, err := d.saver.Save(name, ds.Data)
	if err != nil {
		return "", fmt.Errorf("download.Download: save %s: %w", name, err)
	}
	return path, nil
}

// resolveFilename extracts the filename= attribute from a
// content-disposition header value, stripped of quote characters. Without
// a usable hint it synthesizes "<mpn>.pdf".
func resolveFilename(contentDisposition, mpn string) string {
	if _, after, found := strings.Cut(contentDisposition, "filename="); found {
		name := strings.ReplaceAll(after, `"`, "")
		name = strings.TrimSpace(name)
		if name != "" {
			return name
		}
	}
	return mpn + ".pdf"
}
