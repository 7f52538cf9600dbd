package download

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/calculab/calcu/pkg/client"
)

// fakeFetcher returns a canned datasheet and counts calls.
type fakeFetcher struct {
	ds    *client.Datasheet
	err   error
	calls int
}

func (f *fakeFetcher) DownloadDatasheet(context.Context, string) (*client.Datasheet, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.ds, nil
}

func TestDownloadEmptyMPNNoNetworkCall(t *testing.T) {
	for _, mpn := range []string{"", "   ", "\t\n"} {
		f := &fakeFetcher{}
		d := New(f, DirSaver{Dir: t.TempDir()})

		_, err := d.Download(context.Background(), mpn)
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("Download(%q) error = %v, want ErrInvalidInput", mpn, err)
		}
		if f.calls != 0 {
			t.Errorf("Download(%q) made %d network calls, want 0", mpn, f.calls)
		}
	}
}

func TestDownloadSynthesizedFilename(t *testing.T) {
	dir := t.TempDir()
	f := &fakeFetcher{ds: &client.Datasheet{Data: []byte("%PDF-1.4")}}
	d := New(f, DirSaver{Dir: dir})

	path, err := d.Download(context.Background(), "IFR530")
	if err != nil {
		t.Fatalf("Download() error: %v", err)
	}
	if got := filepath.Base(path); got != "IFR530.pdf" {
		t.Errorf("saved filename = %q, want %q", got, "IFR530.pdf")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read saved file: %v", err)
	}
	if !bytes.Equal(data, []byte("%PDF-1.4")) {
		t.Errorf("saved payload = %q, want %q", data, "%PDF-1.4")
	}
}

func TestDownloadHeaderFilenameHint(t *testing.T) {
	dir := t.TempDir()
	f := &fakeFetcher{ds: &client.Datasheet{
		Data:               []byte("%PDF-1.4"),
		ContentDisposition: `attachment; filename="bd.pdf"`,
	}}
	d := New(f, DirSaver{Dir: dir})

	path, err := d.Download(context.Background(), "BD42754FPJ-CE2")
	if err != nil {
		t.Fatalf("Download() error: %v", err)
	}
	if got := filepath.Base(path); got != "bd.pdf" {
		t.Errorf("saved filename = %q, want %q", got, "bd.pdf")
	}
}

func TestResolveFilename(t *testing.T) {
	tests := []struct {
		disposition string
		mpn         string
		want        string
	}{
		{`attachment; filename="bd.pdf"`, "BD42754FPJ-CE2", "bd.pdf"},
		{`attachment; filename=plain.pdf`, "X", "plain.pdf"},
		{"", "IFR530", "IFR530.pdf"},
		{"attachment", "TLV733P-Q1", "TLV733P-Q1.pdf"},
		{`attachment; filename=""`, "IFR530", "IFR530.pdf"},
	}
	for _, tt := range tests {
		if got := resolveFilename(tt.disposition, tt.mpn); got != tt.want {
			t.Errorf("resolveFilename(%q, %q) = %q, want %q", tt.disposition, tt.mpn, got, tt.want)
		}
	}
}

func TestDownloadFetchErrorPropagates(t *testing.T) {
	f := &fakeFetcher{err: &client.HTTPError{StatusCode: 500, Detail: "scraper crashed"}}
	d := New(f, DirSaver{Dir: t.TempDir()})

	_, err := d.Download(context.Background(), "IFR530")
	if err == nil {
		t.Fatal("expected error from failed fetch")
	}
	if client.Detail(err) != "scraper crashed" {
		t.Errorf("Detail(err) = %q, want server detail preserved", client.Detail(err))
	}
}

func TestDirSaverStripsPathComponents(t *testing.T) {
	dir := t.TempDir()
	s := DirSaver{Dir: dir}

	path, err := s.Save("../../evil.pdf", []byte("x"))
	if err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("saved outside dir: %q", path)
	}
	if filepath.Base(path) != "evil.pdf" {
		t.Errorf("saved filename = %q, want %q", filepath.Base(path), "evil.pdf")
	}
}

func TestDirSaverLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := DirSaver{Dir: dir}

	if _, err := s.Save("a.pdf", []byte("x")); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, e := range entries {
		if e.Name() != "a.pdf" {
			t.Errorf("leftover file %q in download dir", e.Name())
		}
	}
}
