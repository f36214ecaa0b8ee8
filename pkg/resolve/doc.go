// Package resolve discovers the transitive dependency closure of npm
// packages.
//
// # Overview
//
// [Resolver.Resolve] starts from a single [PackageSpec] and walks the raw
// dependency graph concurrently, one goroutine per dependency edge, producing
// the set of concrete packages to install.
//
// Two distinct identities drive the traversal:
//
//   - request key (name@versionRequirement): identity of a node in the raw
//     spec graph, used for cycle detection on the current path
//   - resolved key (name@resolvedVersion): identity after registry lookup,
//     used for global deduplication of the output set
//
// Two requests such as foo@latest and foo@^1 that both resolve to foo@1.4.2
// are installed once. Cycles in the raw spec graph terminate the descending
// branch without error; the ancestor already in flight owns the subtree.
//
// # Concurrency
//
// The install map and error accumulator are shared across branches under one
// mutex, held only for constant-time check-and-insert. The visited-on-path
// set is never shared: each forked branch receives its own clone. A package
// is inserted into the install map before its dependencies are walked, so a
// sibling rediscovering the same resolved key observes it and stops.
//
// # Metadata cache
//
// A process-wide [MetadataCache] memoizes registry lookups by normalized
// request key. It is passed to the resolver at construction rather than held
// in package state, keeping tests deterministic and isolated. Concurrent
// misses for one key may fetch twice; both writers store equal values.
package resolve
