package smfplay

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

// minimalSMF is a one-track file holding a single C4 quarter note at the
// default 480 ticks per beat.
func minimalSMF() []byte {
	return []byte{
		'M', 'T', 'h', 'd', 0, 0, 0, 6, 0, 0, 0, 1, 0x01, 0xE0,
		'M', 'T', 'r', 'k', 0, 0, 0, 13,
		0x00, 0x90, 60, 100,
		0x83, 0x60, 0x80, 60, 0,
		0x00, 0xFF, 0x2F, 0x00,
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.mid")
	if err := os.WriteFile(path, minimalSMF(), 0o644); err != nil {
		t.Fatal(err)
	}
	score, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(score.Notes) != 1 || score.Notes[0].Pitch != "C4" {
		t.Fatalf("notes = %+v, want one C4", score.Notes)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.mid")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestFetchURL(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write(minimalSMF())
	}))
	defer srv.Close()

	score, err := FetchURL(context.Background(), srv.URL, "sekrit")
	if err != nil {
		t.Fatalf("FetchURL: %v", err)
	}
	if gotAuth != "Bearer sekrit" {
		t.Fatalf("auth header = %q, want bearer token", gotAuth)
	}
	if len(score.Notes) != 1 {
		t.Fatalf("notes = %d, want 1", len(score.Notes))
	}
}

func TestFetchURLNoTokenOmitsHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write(minimalSMF())
	}))
	defer srv.Close()

	if _, err := FetchURL(context.Background(), srv.URL, ""); err != nil {
		t.Fatalf("FetchURL: %v", err)
	}
	if gotAuth != "" {
		t.Fatalf("auth header = %q, want none", gotAuth)
	}
}

func TestFetchURLStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := FetchURL(context.Background(), srv.URL, "")
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("err = %v, want *NetworkError", err)
	}
	if netErr.Status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", netErr.Status)
	}
}

func TestFetchURLTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	_, err := FetchURL(context.Background(), srv.URL, "")
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("err = %v, want *NetworkError", err)
	}
	if netErr.Status != 0 {
		t.Fatalf("status = %d, want 0 for transport failure", netErr.Status)
	}
	if netErr.Unwrap() == nil {
		t.Fatal("transport failure should carry an underlying error")
	}
}

func TestFetchURLBadBodyIsFormatError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not a midi file at all"))
	}))
	defer srv.Close()

	_, err := FetchURL(context.Background(), srv.URL, "")
	var fmtErr *FormatError
	if !errors.As(err, &fmtErr) {
		t.Fatalf("err = %v, want *FormatError", err)
	}
}
