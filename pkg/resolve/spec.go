package resolve

import "strings"

// Latest is the registry dist-tag used when no concrete version is requested.
const Latest = "latest"

// rangeOperators are the characters that mark a version requirement as a
// range. Real range resolution is out of scope; any requirement containing
// one of these is normalized to the registry's current best-known version.
const rangeOperators = "^~x*><"

// PackageSpec is a user-level or dependency-level package request.
type PackageSpec struct {
	Name               string
	VersionRequirement string
}

// String returns the canonical request key, name@versionRequirement.
func (s PackageSpec) String() string {
	return s.Name + "@" + s.VersionRequirement
}

// ParseSpec parses a raw command-line argument of the form "name" or
// "name@version". The split happens on the first '@' past position 0, so
// scoped names like "@scope/pkg" and "@scope/pkg@1.0.0" keep their scope.
// A missing or empty requirement defaults to "latest".
func ParseSpec(arg string) PackageSpec {
	spec := PackageSpec{Name: arg, VersionRequirement: Latest}
	if at := strings.Index(arg[min(1, len(arg)):], "@"); at >= 0 {
		at++ // offset for the skipped leading byte
		spec.Name = arg[:at]
		if req := arg[at+1:]; req != "" {
			spec.VersionRequirement = req
		}
	}
	return spec
}

// normalizeRequirement maps a raw version requirement to the version that
// will actually be fetched: empty requirements and anything containing a
// range operator collapse to "latest"; concrete versions pass through.
func normalizeRequirement(req string) string {
	if req == "" || req == Latest {
		return Latest
	}
	if strings.ContainsAny(req, rangeOperators) {
		return Latest
	}
	return req
}

// PackageInfo is resolved metadata for one concrete package version.
type PackageInfo struct {
	Name            string
	ResolvedVersion string
	TarballURL      string
	Dependencies    map[string]string
}

// Key returns the canonical resolved key, name@resolvedVersion.
func (p PackageInfo) Key() string {
	return p.Name + "@" + p.ResolvedVersion
}

// Valid reports whether the info carries everything needed to install it.
// Invalid values signal a fetch or parse failure and are never cached.
func (p PackageInfo) Valid() bool {
	return p.ResolvedVersion != "" && p.TarballURL != ""
}
