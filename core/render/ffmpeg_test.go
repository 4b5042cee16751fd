package render

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slidecast/model"
)

func testBundle(t *testing.T, e *FFmpegEngine) string {
	t.Helper()
	loc, err := e.Bundle(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(loc) })
	return loc
}

func TestBundleWritesCompositionProgram(t *testing.T) {
	e := NewFFmpegEngine("ffmpeg", t.TempDir())
	loc := testBundle(t, e)

	styles, err := loadStyles(loc)
	require.NoError(t, err)
	assert.Len(t, styles, 4)
	assert.Equal(t, 40, styles[model.CaptionSimple].FontSize)
}

func TestSelectCompositionDerivesDimensionsAndFrames(t *testing.T) {
	e := NewFFmpegEngine("ffmpeg", t.TempDir())
	loc := testBundle(t, e)

	input := model.ResolvedTimeline{
		Slides: []model.ResolvedSlide{
			{Slide: model.Slide{DurationSeconds: 3}},
			{Slide: model.Slide{DurationSeconds: 5}},
		},
		AspectRatio: model.AspectWide,
	}
	comp, err := e.SelectComposition(context.Background(), loc, CompositionID, input)
	require.NoError(t, err)
	assert.Equal(t, 1920, comp.Width)
	assert.Equal(t, 1080, comp.Height)
	assert.Equal(t, 30, comp.FPS)
	assert.Equal(t, 240, comp.DurationInFrames)

	input.AspectRatio = model.AspectTall
	comp, err = e.SelectComposition(context.Background(), loc, CompositionID, input)
	require.NoError(t, err)
	assert.Equal(t, 1080, comp.Width)
	assert.Equal(t, 1920, comp.Height)
}

func TestSelectCompositionEmptyTimelineFloorsToOneFrame(t *testing.T) {
	e := NewFFmpegEngine("ffmpeg", t.TempDir())
	loc := testBundle(t, e)

	comp, err := e.SelectComposition(context.Background(), loc, CompositionID,
		model.ResolvedTimeline{AspectRatio: model.AspectWide})
	require.NoError(t, err)
	assert.Equal(t, 1, comp.DurationInFrames)
}

func TestSelectCompositionRejectsUnknownID(t *testing.T) {
	e := NewFFmpegEngine("ffmpeg", t.TempDir())
	loc := testBundle(t, e)

	_, err := e.SelectComposition(context.Background(), loc, "NotSlideshow", model.ResolvedTimeline{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown composition")
}

func TestBuildArgsImageVideoAndAudio(t *testing.T) {
	publicDir := t.TempDir()
	e := NewFFmpegEngine("ffmpeg", publicDir)
	workDir := t.TempDir()

	inlineImage := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("pix"))
	inlineAudio := "data:audio/mp3;base64," + base64.StdEncoding.EncodeToString([]byte("pcm"))
	input := model.ResolvedTimeline{
		Slides: []model.ResolvedSlide{
			{
				Slide:  model.Slide{ID: "a", Kind: model.SlideImage, Caption: "hello", DurationSeconds: 3},
				Source: model.RenderSource{URI: inlineImage, Inline: true, MIME: "image/jpeg"},
			},
			{
				Slide:  model.Slide{ID: "b", Kind: model.SlideVideo, DurationSeconds: 5},
				Source: model.RenderSource{URI: "file:///data/clip.mp4"},
			},
		},
		AspectRatio:  model.AspectWide,
		CaptionStyle: model.CaptionSimple,
		Audio:        &model.RenderSource{URI: inlineAudio, Inline: true, MIME: "audio/mp3"},
	}
	comp := Composition{ID: CompositionID, Width: 1920, Height: 1080, FPS: 30, DurationInFrames: 240}

	args, err := e.buildArgs(comp, input, captionStyles, workDir, "/tmp/out.mp4")
	require.NoError(t, err)
	joined := strings.Join(args, " ")

	// image input loops for its duration, video input does not
	assert.Contains(t, joined, "-loop 1 -t 3")
	assert.Contains(t, joined, "-t 5")
	// audio loops and is capped by -shortest at half volume
	assert.Contains(t, joined, "-stream_loop -1")
	assert.Contains(t, joined, "-shortest")
	assert.Contains(t, joined, "volume=0.5")
	// fade transition between the two slides
	assert.Contains(t, joined, "xfade=transition=fade:duration=0.500")
	// caption overlay
	assert.Contains(t, joined, "drawtext=text='hello'")
	// H.264 at the composition's frame budget
	assert.Contains(t, joined, "-c:v libx264")
	assert.Contains(t, joined, "-frames:v 240")
	assert.Equal(t, "/tmp/out.mp4", args[len(args)-1])

	// inline payloads were materialized into the work dir
	entries, err := os.ReadDir(workDir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestBuildArgsEmptyTimelineRendersBlackFrame(t *testing.T) {
	e := NewFFmpegEngine("ffmpeg", t.TempDir())
	comp := Composition{ID: CompositionID, Width: 1920, Height: 1080, FPS: 30, DurationInFrames: 1}

	args, err := e.buildArgs(comp, model.ResolvedTimeline{}, captionStyles, t.TempDir(), "/tmp/out.mp4")
	require.NoError(t, err)
	joined := strings.Join(args, " ")

	assert.Contains(t, joined, "lavfi")
	assert.Contains(t, joined, "color=black:s=1920x1080")
	assert.Contains(t, joined, "-frames:v 1")
}

func TestMaterializeSources(t *testing.T) {
	publicDir := t.TempDir()
	e := NewFFmpegEngine("ffmpeg", publicDir)
	workDir := t.TempDir()

	// inline data URI round-trips
	payload := []byte("inline-bytes")
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(payload)
	path, err := e.materialize(model.RenderSource{URI: uri, Inline: true, MIME: "image/png"}, workDir, 0)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, ".png"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, data)

	// file locator unwraps to a plain path
	path, err = e.materialize(model.RenderSource{URI: "file:///data/clip.mp4"}, workDir, 1)
	require.NoError(t, err)
	assert.Equal(t, filepath.FromSlash("/data/clip.mp4"), path)

	// web path anchors under the public root
	path, err = e.materialize(model.RenderSource{URI: "/bgm/calm.mp3"}, workDir, 2)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(publicDir, "bgm", "calm.mp3"), path)

	// anything else is unusable
	_, err = e.materialize(model.RenderSource{URI: "blob:abc"}, workDir, 3)
	require.Error(t, err)
}

func TestExtForMIME(t *testing.T) {
	assert.Equal(t, ".jpg", extForMIME("image/jpeg"))
	assert.Equal(t, ".png", extForMIME("image/png"))
	assert.Equal(t, ".mp3", extForMIME("audio/mp3"))
	assert.Equal(t, ".mp3", extForMIME("audio/mpeg"))
	assert.Equal(t, ".wav", extForMIME("audio/wav"))
	assert.Equal(t, ".m4a", extForMIME("audio/mp4"))
	assert.Equal(t, ".bin", extForMIME("garbage"))
}

func TestEscapeDrawtext(t *testing.T) {
	assert.Equal(t, `it\'s 50\% done\: ok`, escapeDrawtext(`it's 50% done: ok`))
}
