// Package render drives the offline rendering engine through the
// bundle → compose → render sequence for one resolved timeline.
package render

import (
	"context"

	"slidecast/model"
)

// CompositionID is the named composition every export instantiates.
const CompositionID = "Slideshow"

// Composition is an instantiated composition: concrete pixel dimensions
// and frame count derived from one resolved timeline.
type Composition struct {
	ID               string
	Width            int
	Height           int
	FPS              int
	DurationInFrames int
}

// Engine is the rendering engine behind the three-stage contract:
// package the composition program into a servable bundle, instantiate the
// named composition against resolved input, and encode it to a media file.
// The engine's internal frame compositing is a black box to the caller.
type Engine interface {
	Bundle(ctx context.Context) (string, error)
	SelectComposition(ctx context.Context, bundleLoc, compositionID string, input model.ResolvedTimeline) (Composition, error)
	RenderMedia(ctx context.Context, bundleLoc string, comp Composition, input model.ResolvedTimeline, outputPath string) error
}
