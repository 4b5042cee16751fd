package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"slidecast/logger"
	"slidecast/model"
)

// Stage names a step of the render sequence, used in failure reporting.
type Stage string

const (
	StageBundling  Stage = "bundling"
	StageSelecting Stage = "selecting composition"
	StageRendering Stage = "rendering"
)

// outputWebPrefix is the web-servable prefix of the output directory.
const outputWebPrefix = "/out/"

// Orchestrator runs render jobs against an Engine. Each job re-bundles the
// composition program; the bundle is reused only within that job. The
// selection and encoding stages each run under the configured timeout;
// exceeding it fails the job, no retry.
type Orchestrator struct {
	engine    Engine
	outputDir string
	timeout   time.Duration
}

// NewOrchestrator creates an orchestrator writing outputs under outputDir.
func NewOrchestrator(engine Engine, outputDir string, timeout time.Duration) *Orchestrator {
	return &Orchestrator{engine: engine, outputDir: outputDir, timeout: timeout}
}

// Render executes one job for the given resolved timeline. The returned
// job records the outcome; on failure err carries the stage and cause and
// no output file is left behind.
func (o *Orchestrator) Render(ctx context.Context, rt model.ResolvedTimeline) (*model.RenderJob, error) {
	job := model.NewRenderJob(rt)
	job.Start()
	logger.Info("render job started",
		logger.String("job", job.ID),
		logger.Int("slides", len(rt.Slides)),
		logger.String("aspectRatio", string(rt.AspectRatio)))

	bundleLoc, err := o.engine.Bundle(ctx)
	if err != nil {
		return o.fail(job, StageBundling, err)
	}
	// The bundle is reusable only within this job; dispose of it at the end.
	defer os.RemoveAll(bundleLoc)

	selCtx, cancel := context.WithTimeout(ctx, o.timeout)
	comp, err := o.engine.SelectComposition(selCtx, bundleLoc, CompositionID, rt)
	cancel()
	if err != nil {
		return o.fail(job, StageSelecting, err)
	}
	logger.Info("composition selected",
		logger.String("job", job.ID),
		logger.Int("width", comp.Width),
		logger.Int("height", comp.Height),
		logger.Int("frames", comp.DurationInFrames))

	if err := os.MkdirAll(o.outputDir, 0755); err != nil {
		return o.fail(job, StageRendering, fmt.Errorf("create output directory: %w", err))
	}
	fileName, outputPath, err := o.reserveOutput()
	if err != nil {
		return o.fail(job, StageRendering, err)
	}

	renderCtx, cancel := context.WithTimeout(ctx, o.timeout)
	err = o.engine.RenderMedia(renderCtx, bundleLoc, comp, rt, outputPath)
	cancel()
	if err != nil {
		// A partial output file is never usable.
		os.Remove(outputPath)
		return o.fail(job, StageRendering, err)
	}

	job.Succeed(fileName, outputWebPrefix+fileName)
	logger.Info("render job succeeded",
		logger.String("job", job.ID),
		logger.String("output", job.OutputPath),
		logger.Duration("elapsed", job.FinishedAt.Sub(job.CreatedAt)))
	return job, nil
}

// reserveOutput claims a collision-free output file named after the current
// epoch milliseconds. Concurrent jobs landing on the same millisecond retry
// on the next one; prior outputs are never overwritten.
func (o *Orchestrator) reserveOutput() (fileName, outputPath string, err error) {
	for {
		fileName = fmt.Sprintf("slideshow-%d.mp4", time.Now().UnixMilli())
		outputPath = filepath.Join(o.outputDir, fileName)
		f, err := os.OpenFile(outputPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			f.Close()
			return fileName, outputPath, nil
		}
		if !os.IsExist(err) {
			return "", "", fmt.Errorf("reserve output file: %w", err)
		}
		time.Sleep(time.Millisecond)
	}
}

func (o *Orchestrator) fail(job *model.RenderJob, stage Stage, err error) (*model.RenderJob, error) {
	wrapped := fmt.Errorf("%s: %w", stage, err)
	job.Fail(wrapped.Error())
	logger.Error("render job failed",
		logger.String("job", job.ID),
		logger.String("stage", string(stage)),
		logger.ErrorField(err))
	return job, wrapped
}
