package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"slidecast/core/timing"
	"slidecast/model"
)

// FFmpegEngine implements Engine by composing slides into an H.264 MP4
// with ffmpeg. Bundling materializes the composition program (the caption
// style table and filter-graph parameters) into a temp dir; selection
// derives dimensions and frame count; rendering builds and executes the
// ffmpeg filter graph.
type FFmpegEngine struct {
	ffmpegPath string
	publicDir  string
}

// NewFFmpegEngine creates an engine using the given ffmpeg binary.
// publicDir anchors plain web-path sources that were not inlined.
func NewFFmpegEngine(ffmpegPath, publicDir string) *FFmpegEngine {
	return &FFmpegEngine{ffmpegPath: ffmpegPath, publicDir: publicDir}
}

// Bundle packages the composition program into a servable directory.
// The bundle is job-scoped; callers dispose of it when the job ends.
func (e *FFmpegEngine) Bundle(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dir, err := os.MkdirTemp("", "slidecast_bundle_")
	if err != nil {
		return "", fmt.Errorf("create bundle directory: %w", err)
	}
	if err := writeStyles(dir); err != nil {
		os.RemoveAll(dir)
		return "", fmt.Errorf("write composition program: %w", err)
	}
	return dir, nil
}

// SelectComposition instantiates the named composition against the resolved
// timeline: pixel dimensions from the aspect ratio, frame count from the
// duration calculator.
func (e *FFmpegEngine) SelectComposition(ctx context.Context, bundleLoc, compositionID string, input model.ResolvedTimeline) (Composition, error) {
	if err := ctx.Err(); err != nil {
		return Composition{}, err
	}
	if compositionID != CompositionID {
		return Composition{}, fmt.Errorf("unknown composition %q", compositionID)
	}
	if _, err := loadStyles(bundleLoc); err != nil {
		return Composition{}, fmt.Errorf("read composition program: %w", err)
	}
	width, height := input.AspectRatio.Dimensions()
	return Composition{
		ID:               compositionID,
		Width:            width,
		Height:           height,
		FPS:              timing.FrameRate,
		DurationInFrames: timing.TotalFrames(input, timing.FrameRate),
	}, nil
}

// RenderMedia encodes the composition to outputPath. Inline sources are
// materialized into a job-private work dir first, so the encoder never
// depends on files outside its own sandbox.
func (e *FFmpegEngine) RenderMedia(ctx context.Context, bundleLoc string, comp Composition, input model.ResolvedTimeline, outputPath string) error {
	styles, err := loadStyles(bundleLoc)
	if err != nil {
		return fmt.Errorf("read composition program: %w", err)
	}

	workDir, err := os.MkdirTemp("", "slidecast_render_")
	if err != nil {
		return fmt.Errorf("create work directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	args, err := e.buildArgs(comp, input, styles, workDir, outputPath)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("encoding timed out: %w", ctx.Err())
		}
		return fmt.Errorf("ffmpeg execution failed: %w\nFFmpeg Error: %s", err, stderr.String())
	}
	return nil
}

// buildArgs assembles the full ffmpeg invocation for one composition.
func (e *FFmpegEngine) buildArgs(comp Composition, input model.ResolvedTimeline, styles map[model.CaptionStyle]captionParams, workDir, outputPath string) ([]string, error) {
	args := []string{"-y"}
	n := len(input.Slides)

	if n == 0 {
		// Empty timeline still produces a minimum one-frame composition.
		args = append(args,
			"-f", "lavfi",
			"-i", fmt.Sprintf("color=black:s=%dx%d:r=%d", comp.Width, comp.Height, comp.FPS),
			"-frames:v", strconv.Itoa(comp.DurationInFrames),
			"-c:v", "libx264",
			"-pix_fmt", "yuv420p",
			outputPath,
		)
		return args, nil
	}

	for i, s := range input.Slides {
		path, err := e.materialize(s.Source, workDir, i)
		if err != nil {
			return nil, fmt.Errorf("slide %s: %w", s.ID, err)
		}
		dur := strconv.FormatFloat(s.DurationSeconds, 'f', -1, 64)
		if s.Kind == model.SlideImage {
			args = append(args, "-loop", "1", "-t", dur, "-i", path)
		} else {
			args = append(args, "-t", dur, "-i", path)
		}
	}

	hasAudio := input.Audio != nil
	if hasAudio {
		audioPath, err := e.materialize(*input.Audio, workDir, n)
		if err != nil {
			return nil, fmt.Errorf("audio: %w", err)
		}
		// Loop the track so it covers the whole composition; -shortest caps it.
		args = append(args, "-stream_loop", "-1", "-i", audioPath)
	}

	filters, finalLabel := e.buildFilterGraph(comp, input, styles, hasAudio)
	args = append(args, "-filter_complex", strings.Join(filters, ";"))
	args = append(args, "-map", "["+finalLabel+"]")
	if hasAudio {
		args = append(args, "-map", "[aout]", "-c:a", "aac", "-shortest")
	}
	args = append(args,
		"-frames:v", strconv.Itoa(comp.DurationInFrames),
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-r", strconv.Itoa(comp.FPS),
		outputPath,
	)
	return args, nil
}

// buildFilterGraph scales and pads every slide to the composition frame,
// overlays captions, and chains adjacent slides with a fade transition.
func (e *FFmpegEngine) buildFilterGraph(comp Composition, input model.ResolvedTimeline, styles map[model.CaptionStyle]captionParams, hasAudio bool) (filters []string, finalLabel string) {
	n := len(input.Slides)
	fadeDur := float64(timing.TransitionFrames) / float64(comp.FPS)

	for i, s := range input.Slides {
		chain := fmt.Sprintf(
			"[%d:v]scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:color=black,setsar=1,fps=%d",
			i, comp.Width, comp.Height, comp.Width, comp.Height, comp.FPS)
		if s.Caption != "" {
			chain += "," + drawtextFilter(s.Caption, styles[input.CaptionStyle.Normalize()])
		}
		chain += fmt.Sprintf("[s%d]", i)
		filters = append(filters, chain)
	}

	finalLabel = "s0"
	offset := 0.0
	for i := 1; i < n; i++ {
		offset += input.Slides[i-1].DurationSeconds - fadeDur
		next := fmt.Sprintf("x%d", i)
		filters = append(filters, fmt.Sprintf(
			"[%s][s%d]xfade=transition=fade:duration=%.3f:offset=%.3f[%s]",
			finalLabel, i, fadeDur, offset, next))
		finalLabel = next
	}

	if hasAudio {
		filters = append(filters, fmt.Sprintf("[%d:a]volume=0.5[aout]", n))
	}
	return filters, finalLabel
}

// materialize turns a RenderSource into a local file path the encoder can
// open: inline payloads are decoded into the work dir, file locators are
// unwrapped, and plain web paths resolve under the public root.
func (e *FFmpegEngine) materialize(src model.RenderSource, workDir string, idx int) (string, error) {
	switch {
	case strings.HasPrefix(src.URI, "data:"):
		comma := strings.IndexByte(src.URI, ',')
		if comma < 0 {
			return "", fmt.Errorf("malformed data URI")
		}
		data, err := base64.StdEncoding.DecodeString(src.URI[comma+1:])
		if err != nil {
			return "", fmt.Errorf("decode inline payload: %w", err)
		}
		path := filepath.Join(workDir, fmt.Sprintf("asset_%d%s", idx, extForMIME(src.MIME)))
		if err := os.WriteFile(path, data, 0644); err != nil {
			return "", fmt.Errorf("write inline payload: %w", err)
		}
		return path, nil

	case strings.HasPrefix(src.URI, "file://"):
		return filepath.FromSlash(strings.TrimPrefix(src.URI, "file://")), nil

	case strings.HasPrefix(src.URI, "/"):
		return filepath.Join(e.publicDir, filepath.FromSlash(strings.TrimPrefix(src.URI, "/"))), nil
	}
	return "", fmt.Errorf("unusable source %q", src.URI)
}

// extForMIME picks a file extension for a materialized inline payload.
func extForMIME(mime string) string {
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "audio/mp3", "audio/mpeg":
		return ".mp3"
	case "audio/wav":
		return ".wav"
	case "audio/mp4":
		return ".m4a"
	}
	if i := strings.IndexByte(mime, '/'); i >= 0 {
		return "." + mime[i+1:]
	}
	return ".bin"
}

// drawtextFilter renders one caption with the given style parameters.
func drawtextFilter(text string, p captionParams) string {
	var b strings.Builder
	fmt.Fprintf(&b, "drawtext=text='%s':fontsize=%d:fontcolor=%s:x=%s:y=%s",
		escapeDrawtext(text), p.FontSize, p.FontColor, p.X, p.Y)
	if p.Box {
		fmt.Fprintf(&b, ":box=1:boxcolor=%s:boxborderw=10", p.BoxColor)
	}
	if p.Shadow {
		b.WriteString(":shadowcolor=black@0.8:shadowx=2:shadowy=2")
	}
	return b.String()
}

var drawtextReplacer = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`:`, `\:`,
	`%`, `\%`,
)

func escapeDrawtext(text string) string {
	return drawtextReplacer.Replace(text)
}
