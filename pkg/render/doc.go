// Package render draws patch topology as node-and-wire diagrams.
//
// # Overview
//
// This package produces directed graph visualizations using Graphviz, where
// node instances appear as boxes and connections as arrows between their
// ports. It exists for inspecting and documenting patches; it plays no part
// in compilation.
//
// # Usage
//
// Convert a patch to DOT format, then render to SVG:
//
//	dot := render.ToDOT(p, lib)
//	svg, err := render.SVG(ctx, p, lib)
//
// The generated DOT uses left-to-right layout (rankdir=LR) with Graphviz
// record nodes, so each port gets its own connection point.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering.
package render
