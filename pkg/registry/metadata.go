package registry

// VersionDoc is the registry's metadata document for one concrete version,
// as returned by GET {registry}/{name}/{versionOrTag}. Unknown fields are
// ignored; missing fields decode to zero values and are validated by the
// caller.
type VersionDoc struct {
	Version      string            `json:"version"`
	Dist         Dist              `json:"dist"`
	Dependencies map[string]string `json:"dependencies"`

	// Error is set when the registry reports a failure inside a 200 response
	// (e.g. {"error": "Not found"}).
	Error string `json:"error"`
}

// Dist holds distribution details for a version.
type Dist struct {
	Tarball string `json:"tarball"`
}
