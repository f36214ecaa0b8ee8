// Package registry provides an HTTP client for the npm registry API.
//
// # Overview
//
// This package fetches version metadata and package tarballs from the npm
// registry (https://registry.npmjs.org).
//
// # Usage
//
//	client := registry.NewClient(cache, 24*time.Hour, "")
//
//	doc, err := client.Version(ctx, "express", "latest")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println(doc.Version, doc.Dist.Tarball)
//
// # Caching
//
// Metadata responses are cached through a [cache.Cache] to reduce load on the
// registry; the TTL is set when creating the client. Tarball downloads are
// never cached. Registry-side error documents ({"error": ...}) are reported
// as [ErrRegistry] and never cached either, so a failed lookup is retried on
// the next reference.
//
// # Errors
//
// Failures surface as sentinel errors checkable with errors.Is:
//
//   - [ErrNotFound]: the package or version does not exist (HTTP 404)
//   - [ErrNetwork]: transport failures and unexpected HTTP statuses
//   - [ErrRegistry]: the registry returned an error document
//
// Transient failures (connection errors, 5xx responses) are retried with
// exponential backoff before being reported.
package registry
