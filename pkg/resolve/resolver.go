package resolve

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/jamhq/jam/pkg/registry"
)

// Fetcher retrieves the registry metadata document for one version or
// dist-tag. *registry.Client satisfies this.
type Fetcher interface {
	Version(ctx context.Context, name, version string) (*registry.VersionDoc, error)
}

// Result is the outcome of one call to [Resolver.Resolve].
type Result struct {
	Requested         PackageSpec
	PackagesToInstall []PackageInfo
	Success           bool
	ErrorMessage      string // empty iff Success
}

// Resolver walks dependency graphs concurrently. Safe for concurrent use;
// all resolutions share the metadata cache passed at construction.
type Resolver struct {
	fetcher Fetcher
	cache   *MetadataCache

	// Logger receives diagnostic messages for individual fetch failures.
	// Optional; nil disables logging.
	Logger func(format string, args ...any)
}

// New creates a Resolver using fetcher for registry lookups and cache for
// process-wide metadata memoization.
func New(fetcher Fetcher, cache *MetadataCache) *Resolver {
	return &Resolver{fetcher: fetcher, cache: cache}
}

// resolution is the shared state of one Resolve call. It is mutated by all
// traversal goroutines spawned under that call, guarded by mu. The mutex is
// held only for constant-time sections, never across I/O.
type resolution struct {
	mu      sync.Mutex
	install map[string]PackageInfo
	errs    []string
}

func (st *resolution) appendError(msg string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.errs = append(st.errs, msg)
}

// Resolve discovers the full transitive dependency closure of initial.
// On success the result carries every package to install, deduplicated by
// resolved key. On failure the error message aggregates every failing
// branch; packages already discovered are discarded. Failures are reported
// through the result, never by panic.
func (r *Resolver) Resolve(ctx context.Context, initial PackageSpec) Result {
	st := &resolution{install: make(map[string]PackageInfo)}

	ok := r.walk(ctx, initial, st, make(map[string]struct{}))

	result := Result{Requested: initial, Success: ok}
	if !ok {
		result.ErrorMessage = strings.Join(st.errs, "; ")
		if result.ErrorMessage == "" {
			result.ErrorMessage = "unknown error during resolution for " + initial.String()
		}
		return result
	}

	result.PackagesToInstall = make([]PackageInfo, 0, len(st.install))
	for _, key := range slices.Sorted(maps.Keys(st.install)) {
		result.PackagesToInstall = append(result.PackagesToInstall, st.install[key])
	}
	return result
}

// walk processes one node of the raw spec graph. The visited set belongs
// exclusively to this branch; forks hand each child its own clone. Returns
// true iff this branch and all branches below it resolved.
func (r *Resolver) walk(ctx context.Context, spec PackageSpec, st *resolution, visited map[string]struct{}) bool {
	requestKey := spec.String()

	// Cycle on the current path: the ancestor holding this request key is
	// already in flight and owns the subtree. Not an error.
	if _, onPath := visited[requestKey]; onPath {
		return true
	}
	visited[requestKey] = struct{}{}

	info, ok := r.fetchAndParse(ctx, spec)
	if !ok {
		st.appendError("Could not retrieve valid package info for " + requestKey)
		return false
	}

	resolvedKey := info.Key()
	st.mu.Lock()
	if _, done := st.install[resolvedKey]; done {
		// Another request already resolved to this concrete version; its
		// owner walks the dependencies.
		st.mu.Unlock()
		return true
	}
	st.install[resolvedKey] = info
	st.mu.Unlock()

	if len(info.Dependencies) == 0 {
		return true
	}

	var wg sync.WaitGroup
	var failed atomic.Bool
	for name, req := range info.Dependencies {
		child := PackageSpec{Name: name, VersionRequirement: req}
		branch := maps.Clone(visited)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !r.walk(ctx, child, st, branch) {
				failed.Store(true)
			}
		}()
	}
	wg.Wait()

	return !failed.Load()
}

// fetchAndParse produces valid metadata for spec, consulting the shared
// cache first. Only valid values are cached; failures are logged and
// reported to the caller as !ok.
func (r *Resolver) fetchAndParse(ctx context.Context, spec PackageSpec) (PackageInfo, bool) {
	version := normalizeRequirement(spec.VersionRequirement)
	cacheKey := spec.Name + "@" + version

	if info, ok := r.cache.Lookup(cacheKey); ok {
		return info, true
	}

	doc, err := r.fetcher.Version(ctx, spec.Name, version)
	if err != nil {
		r.logf("fetch failed: %s: %v", cacheKey, err)
		return PackageInfo{}, false
	}

	info := PackageInfo{
		// Keep the requested name: the output tree is laid out by what the
		// user and dependents asked for, not by what the registry reports.
		Name:            spec.Name,
		ResolvedVersion: doc.Version,
		TarballURL:      doc.Dist.Tarball,
		Dependencies:    doc.Dependencies,
	}
	if !info.Valid() {
		r.logf("incomplete metadata for %s: version %q tarball %q", cacheKey, info.ResolvedVersion, info.TarballURL)
		return PackageInfo{}, false
	}

	r.cache.Insert(cacheKey, info)
	return info, true
}

func (r *Resolver) logf(format string, args ...any) {
	if r.Logger != nil {
		r.Logger(format, args...)
	}
}
