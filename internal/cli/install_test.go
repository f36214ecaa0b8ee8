package cli

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

// fixtureRegistry serves version metadata and tarballs for a canned set of
// packages, mimicking the npm registry's URL layout.
type fixtureRegistry struct {
	server *httptest.Server
	pkgs   map[string]fixturePkg // keyed by name
}

type fixturePkg struct {
	version string
	deps    map[string]string
	files   map[string]string // tarball contents, archive-relative
}

func newFixtureRegistry(t *testing.T, pkgs map[string]fixturePkg) *fixtureRegistry {
	t.Helper()
	f := &fixtureRegistry{pkgs: pkgs}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		// Tarball URLs look like /-/tarballs/{name}.
		if name, ok := tarballName(r.URL.Path); ok {
			pkg, exists := f.pkgs[name]
			if !exists {
				http.NotFound(w, r)
				return
			}
			w.Write(buildArchive(t, pkg.files))
			return
		}

		// Everything else is /{name}/{version}, with scoped names spanning
		// two path segments.
		name, _ := splitMetadataPath(r.URL.Path)
		pkg, exists := f.pkgs[name]
		if !exists {
			w.Write([]byte(`{"error": "Not found"}`))
			return
		}
		deps, _ := json.Marshal(pkg.deps)
		if pkg.deps == nil {
			deps = []byte("{}")
		}
		fmt.Fprintf(w, `{"version": %q, "dist": {"tarball": %q}, "dependencies": %s}`,
			pkg.version, f.server.URL+"/-/tarballs/"+name, deps)
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func tarballName(path string) (string, bool) {
	const prefix = "/-/tarballs/"
	if len(path) > len(prefix) && path[:len(prefix)] == prefix {
		return path[len(prefix):], true
	}
	return "", false
}

// splitMetadataPath splits "/{name}/{version}" where name may itself contain
// a slash for scoped packages ("/@scope/pkg/latest").
func splitMetadataPath(path string) (name, version string) {
	trimmed := path[1:]
	for i := len(trimmed) - 1; i >= 0; i-- {
		if trimmed[i] == '/' {
			return trimmed[:i], trimmed[i+1:]
		}
	}
	return trimmed, ""
}

func buildArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		hdr := &tar.Header{Name: "package/" + name, Mode: 0644, Size: int64(len(content))}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("write header: %v", err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatalf("write body: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("close gzip: %v", err)
	}
	return buf.Bytes()
}

// setupEnv points config, cache, and install destination at temp dirs and
// returns the node_modules path.
func setupEnv(t *testing.T, registryURL string) string {
	t.Helper()
	base := t.TempDir()
	modules := filepath.Join(base, "node_modules")

	configDir := filepath.Join(base, "config", appName)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("MkdirAll() error: %v", err)
	}
	content := fmt.Sprintf("registry = %q\ndir = %q\n\n[cache]\nbackend = \"file\"\ndir = %q\n",
		registryURL, modules, filepath.Join(base, "cache"))
	if err := os.WriteFile(filepath.Join(configDir, "config.toml"), []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	t.Setenv("XDG_CONFIG_HOME", filepath.Join(base, "config"))
	return modules
}

func testContext(t *testing.T, c *CLI) context.Context {
	t.Helper()
	return c.WithLogger(context.Background())
}

func TestRunInstallSingleLeaf(t *testing.T) {
	reg := newFixtureRegistry(t, map[string]fixturePkg{
		"left-pad": {version: "1.3.0", files: map[string]string{"package.json": `{"name":"left-pad"}`, "index.js": "code"}},
	})
	modules := setupEnv(t, reg.server.URL)

	c := New(os.Stderr, LogInfo)
	if err := c.runInstall(testContext(t, c), []string{"left-pad"}, false); err != nil {
		t.Fatalf("runInstall() error: %v", err)
	}

	for _, rel := range []string{"package.json", "index.js"} {
		if _, err := os.Stat(filepath.Join(modules, "left-pad", rel)); err != nil {
			t.Errorf("expected %s under node_modules/left-pad: %v", rel, err)
		}
	}
}

func TestRunInstallTransitiveClosure(t *testing.T) {
	reg := newFixtureRegistry(t, map[string]fixturePkg{
		"a": {version: "1.0.0", deps: map[string]string{"b": "latest", "c": "^1.0.0"}, files: map[string]string{"a.js": "a"}},
		"b": {version: "1.0.0", deps: map[string]string{"d": "latest"}, files: map[string]string{"b.js": "b"}},
		"c": {version: "1.0.0", deps: map[string]string{"d": "latest"}, files: map[string]string{"c.js": "c"}},
		"d": {version: "1.0.0", files: map[string]string{"d.js": "d"}},
	})
	modules := setupEnv(t, reg.server.URL)

	c := New(os.Stderr, LogInfo)
	if err := c.runInstall(testContext(t, c), []string{"a"}, false); err != nil {
		t.Fatalf("runInstall() error: %v", err)
	}

	for _, name := range []string{"a", "b", "c", "d"} {
		if _, err := os.Stat(filepath.Join(modules, name, name+".js")); err != nil {
			t.Errorf("expected %s installed: %v", name, err)
		}
	}
}

func TestRunInstallScopedPackage(t *testing.T) {
	reg := newFixtureRegistry(t, map[string]fixturePkg{
		"@scope/pkg": {version: "2.0.0", files: map[string]string{"package.json": `{"name":"@scope/pkg"}`}},
	})
	modules := setupEnv(t, reg.server.URL)

	c := New(os.Stderr, LogInfo)
	if err := c.runInstall(testContext(t, c), []string{"@scope/pkg"}, false); err != nil {
		t.Fatalf("runInstall() error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(modules, "@scope", "pkg", "package.json")); err != nil {
		t.Errorf("scoped package should land under node_modules/@scope/pkg: %v", err)
	}
}

func TestRunInstallResolutionFailureContinues(t *testing.T) {
	reg := newFixtureRegistry(t, map[string]fixturePkg{
		"good": {version: "1.0.0", files: map[string]string{"good.js": "ok"}},
	})
	modules := setupEnv(t, reg.server.URL)

	c := New(os.Stderr, LogInfo)
	// bad-pkg fails resolution; good must still install afterwards.
	if err := c.runInstall(testContext(t, c), []string{"bad-pkg", "good"}, false); err != nil {
		t.Fatalf("runInstall() error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(modules, "good", "good.js")); err != nil {
		t.Errorf("good should install despite bad-pkg failing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(modules, "bad-pkg")); !os.IsNotExist(err) {
		t.Error("bad-pkg must not be installed")
	}
}

func TestRunInstallFromManifest(t *testing.T) {
	reg := newFixtureRegistry(t, map[string]fixturePkg{
		"left-pad": {version: "1.3.0", files: map[string]string{"index.js": "code"}},
	})
	modules := setupEnv(t, reg.server.URL)

	work := t.TempDir()
	manifest := `{"name": "demo", "version": "1.0.0", "dependencies": {"left-pad": "^1.0.0"}}`
	if err := os.WriteFile(filepath.Join(work, "package.json"), []byte(manifest), 0644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	t.Chdir(work)

	c := New(os.Stderr, LogInfo)
	if err := c.runInstall(testContext(t, c), nil, false); err != nil {
		t.Fatalf("runInstall() error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(modules, "left-pad", "index.js")); err != nil {
		t.Errorf("manifest dependency should install: %v", err)
	}
}

func TestRunInstallSavesManifestEntry(t *testing.T) {
	reg := newFixtureRegistry(t, map[string]fixturePkg{
		"left-pad": {version: "1.3.0", files: map[string]string{"index.js": "code"}},
	})
	setupEnv(t, reg.server.URL)

	work := t.TempDir()
	manifest := `{"name": "demo", "version": "1.0.0"}`
	if err := os.WriteFile(filepath.Join(work, "package.json"), []byte(manifest), 0644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	t.Chdir(work)

	c := New(os.Stderr, LogInfo)
	if err := c.runInstall(testContext(t, c), []string{"left-pad"}, true); err != nil {
		t.Fatalf("runInstall() error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(work, "package.json"))
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if !bytes.Contains(data, []byte(`"left-pad": "^1.3.0"`)) {
		t.Errorf("package.json = %s, want left-pad ^1.3.0 recorded", data)
	}
}
