package render

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"

	"github.com/soundpatch/patchc/pkg/nodelib"
	"github.com/soundpatch/patchc/pkg/patch"
)

// SVG renders a patch diagram to SVG using Graphviz.
func SVG(ctx context.Context, p patch.Patch, lib *nodelib.Library) ([]byte, error) {
	return RenderDOT(ctx, ToDOT(p, lib))
}

// RenderDOT renders arbitrary DOT source to SVG using Graphviz.
func RenderDOT(ctx context.Context, dot string) ([]byte, error) {
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
