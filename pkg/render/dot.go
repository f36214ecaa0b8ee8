// Package render exports resolved dependency graphs as Graphviz DOT and SVG.
package render

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/jamhq/jam/pkg/resolve"
)

// ToDOT converts a resolved package set to Graphviz DOT. Nodes are resolved
// keys (name@version); edges follow each package's dependency names into the
// resolved set. Dependencies outside the set (possible only for partial
// results) are omitted.
func ToDOT(packages []resolve.PackageInfo) string {
	byName := make(map[string][]string)
	for _, p := range packages {
		byName[p.Name] = append(byName[p.Name], p.Key())
	}

	var buf bytes.Buffer
	buf.WriteString("digraph dependencies {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white];\n")
	buf.WriteString("\n")

	sorted := slices.Clone(packages)
	slices.SortFunc(sorted, func(a, b resolve.PackageInfo) int {
		return strings.Compare(a.Key(), b.Key())
	})

	for _, p := range sorted {
		fmt.Fprintf(&buf, "  %q;\n", p.Key())
	}

	buf.WriteString("\n")
	for _, p := range sorted {
		for _, dep := range slices.Sorted(maps.Keys(p.Dependencies)) {
			for _, target := range byName[dep] {
				fmt.Fprintf(&buf, "  %q -> %q;\n", p.Key(), target)
			}
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
