// Package tarball downloads registry tarballs and extracts them into the
// install tree.
//
// Registry tarballs wrap their contents in a single top-level directory
// (conventionally "package/"); extraction strips that first path component
// so files land directly under the package directory. Extraction happens
// in-process via compress/gzip and archive/tar on every platform.
package tarball

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Downloader streams a URL into a local file. *registry.Client satisfies this.
type Downloader interface {
	DownloadFile(ctx context.Context, url, outputPath string) error
}

// Handler downloads and extracts package tarballs. It is stateless and safe
// for concurrent use: every call gets a distinct temp file and every package
// extracts into its own directory.
type Handler struct {
	client Downloader

	// Logger receives non-fatal diagnostics (e.g. temp file cleanup
	// failures). Optional; nil disables logging.
	Logger func(format string, args ...any)
}

// NewHandler creates a Handler that downloads through client.
func NewHandler(client Downloader) *Handler {
	return &Handler{client: client}
}

// DownloadAndExtract fetches tarballURL into a unique temporary file and
// extracts it into baseDest/packageName, stripping the archive's top-level
// directory. Scoped package names keep their literal "/" as a path
// separator, so "@scope/pkg" extracts to baseDest/@scope/pkg. The temporary
// file is removed best-effort; a cleanup failure is logged, not returned.
func (h *Handler) DownloadAndExtract(ctx context.Context, tarballURL, packageName, packageVersion, baseDest string) error {
	// The random component makes concurrent downloads collision-free, and
	// the suffix is part of the name before creation.
	tmp := filepath.Join(os.TempDir(), "jam-"+uuid.NewString()+".tar.gz")

	if err := h.client.DownloadFile(ctx, tarballURL, tmp); err != nil {
		return fmt.Errorf("download %s@%s: %w", packageName, packageVersion, err)
	}
	defer func() {
		if err := os.Remove(tmp); err != nil && !os.IsNotExist(err) {
			h.logf("remove temp tarball %s: %v", tmp, err)
		}
	}()

	dest := filepath.Join(baseDest, filepath.FromSlash(packageName))
	if err := os.MkdirAll(dest, 0755); err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}

	if err := Extract(tmp, dest); err != nil {
		return fmt.Errorf("extract %s@%s: %w", packageName, packageVersion, err)
	}
	return nil
}

// Extract unpacks the gzip-compressed tar archive at archivePath into dest,
// stripping the first path component of every entry. Entries that would
// escape dest are rejected.
func Extract(archivePath, dest string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("gzip: %w", err)
	}
	defer gz.Close()

	cleanDest := filepath.Clean(dest)
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("tar: %w", err)
		}

		rel, ok := stripFirstComponent(hdr.Name)
		if !ok {
			continue
		}

		target := filepath.Join(cleanDest, filepath.FromSlash(rel))
		if target != cleanDest && !strings.HasPrefix(target, cleanDest+string(os.PathSeparator)) {
			return fmt.Errorf("unsafe path %q in archive", hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeFile(target, tr, hdr.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		default:
			// Registry tarballs contain regular files and directories only;
			// anything else (symlinks, devices) is dropped.
		}
	}
}

func writeFile(target string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// stripFirstComponent drops the leading path element of an archive entry
// name. Entries with no second element (the wrapping directory itself) are
// skipped entirely.
func stripFirstComponent(name string) (string, bool) {
	name = path.Clean(strings.TrimPrefix(name, "./"))
	i := strings.Index(name, "/")
	if i < 0 {
		return "", false
	}
	rest := name[i+1:]
	if rest == "" || rest == "." {
		return "", false
	}
	return rest, true
}

func (h *Handler) logf(format string, args ...any) {
	if h.Logger != nil {
		h.Logger(format, args...)
	}
}
