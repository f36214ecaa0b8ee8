package registry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jamhq/jam/pkg/cache"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache() error: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return NewClient(c, time.Hour, baseURL)
}

func TestVersion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/left-pad/latest" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(`{
			"version": "1.3.0",
			"dist": {"tarball": "http://t/left-pad-1.3.0.tgz"},
			"dependencies": {"wcwidth": "^1.0.0"}
		}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	doc, err := client.Version(context.Background(), "left-pad", "latest")
	if err != nil {
		t.Fatalf("Version() error: %v", err)
	}
	if doc.Version != "1.3.0" {
		t.Errorf("Version = %q, want %q", doc.Version, "1.3.0")
	}
	if doc.Dist.Tarball != "http://t/left-pad-1.3.0.tgz" {
		t.Errorf("Tarball = %q, want fixture URL", doc.Dist.Tarball)
	}
	if doc.Dependencies["wcwidth"] != "^1.0.0" {
		t.Errorf("Dependencies = %v, want wcwidth entry", doc.Dependencies)
	}
}

func TestVersionNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Version(context.Background(), "no-such-pkg", "latest")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Version() error = %v, want ErrNotFound", err)
	}
}

func TestVersionRegistryError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": "Not found"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Version(context.Background(), "bad-pkg", "latest")
	if !errors.Is(err, ErrRegistry) {
		t.Errorf("Version() error = %v, want ErrRegistry", err)
	}
}

func TestVersionMalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	if _, err := client.Version(context.Background(), "garbled", "latest"); err == nil {
		t.Error("Version() expected decode error, got nil")
	}
}

func TestVersionCaching(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"version": "2.0.0", "dist": {"tarball": "http://t/a-2.0.0.tgz"}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	ctx := context.Background()

	first, err := client.Version(ctx, "a", "latest")
	if err != nil {
		t.Fatalf("Version() error: %v", err)
	}
	second, err := client.Version(ctx, "a", "latest")
	if err != nil {
		t.Fatalf("Version() error: %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("registry hits = %d, want 1 (second call should be cached)", hits.Load())
	}
	if first.Version != second.Version || first.Dist.Tarball != second.Dist.Tarball {
		t.Errorf("cached doc = %+v, want %+v", second, first)
	}
}

func TestVersionErrorDocumentNotCached(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.Write([]byte(`{"error": "Not found"}`))
			return
		}
		w.Write([]byte(`{"version": "1.0.0", "dist": {"tarball": "http://t/b-1.0.0.tgz"}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	ctx := context.Background()

	if _, err := client.Version(ctx, "b", "latest"); !errors.Is(err, ErrRegistry) {
		t.Fatalf("Version() error = %v, want ErrRegistry", err)
	}
	doc, err := client.Version(ctx, "b", "latest")
	if err != nil {
		t.Fatalf("Version() after registry error: %v", err)
	}
	if doc.Version != "1.0.0" {
		t.Errorf("Version = %q, want %q (error document must not be cached)", doc.Version, "1.0.0")
	}
}

func TestVersionRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"version": "1.0.0", "dist": {"tarball": "http://t/c-1.0.0.tgz"}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	doc, err := client.Version(context.Background(), "c", "latest")
	if err != nil {
		t.Fatalf("Version() error: %v", err)
	}
	if doc.Version != "1.0.0" {
		t.Errorf("Version = %q, want %q", doc.Version, "1.0.0")
	}
	if hits.Load() != 2 {
		t.Errorf("registry hits = %d, want 2 (one retry)", hits.Load())
	}
}

func TestDownloadFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("tarball-bytes"))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	out := filepath.Join(t.TempDir(), "pkg.tar.gz")

	if err := client.DownloadFile(context.Background(), server.URL+"/pkg.tgz", out); err != nil {
		t.Fatalf("DownloadFile() error: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if string(data) != "tarball-bytes" {
		t.Errorf("downloaded content = %q, want %q", data, "tarball-bytes")
	}
}

func TestDownloadFileFailureRemovesPartial(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	out := filepath.Join(t.TempDir(), "pkg.tar.gz")

	err := client.DownloadFile(context.Background(), server.URL+"/missing.tgz", out)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("DownloadFile() error = %v, want ErrNotFound", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Error("partial file should not exist after failed download")
	}
}

func TestDownloadFileFollowsRedirects(t *testing.T) {
	final := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("redirected-bytes"))
	}))
	defer final.Close()

	redirecting := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, final.URL, http.StatusFound)
	}))
	defer redirecting.Close()

	client := newTestClient(t, redirecting.URL)
	out := filepath.Join(t.TempDir(), "pkg.tar.gz")
	if err := client.DownloadFile(context.Background(), redirecting.URL+"/pkg.tgz", out); err != nil {
		t.Fatalf("DownloadFile() error: %v", err)
	}
	data, _ := os.ReadFile(out)
	if string(data) != "redirected-bytes" {
		t.Errorf("downloaded content = %q, want %q", data, "redirected-bytes")
	}
}
