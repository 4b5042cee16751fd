package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slidecast/config"
	"slidecast/core/assets"
	"slidecast/core/render"
	"slidecast/core/timing"
	"slidecast/model"
	"slidecast/storage"
)

// captureEngine implements render.Engine, recording what it was asked to
// render instead of invoking ffmpeg.
type captureEngine struct {
	mu        sync.Mutex
	lastInput model.ResolvedTimeline
	lastComp  render.Composition
	renderErr error
}

func (e *captureEngine) Bundle(ctx context.Context) (string, error) {
	return os.MkdirTemp("", "capture_bundle_")
}

func (e *captureEngine) SelectComposition(ctx context.Context, bundleLoc, compositionID string, input model.ResolvedTimeline) (render.Composition, error) {
	width, height := input.AspectRatio.Dimensions()
	comp := render.Composition{
		ID:               compositionID,
		Width:            width,
		Height:           height,
		FPS:              timing.FrameRate,
		DurationInFrames: timing.TotalFrames(input, timing.FrameRate),
	}
	e.mu.Lock()
	e.lastInput = input
	e.lastComp = comp
	e.mu.Unlock()
	return comp, nil
}

func (e *captureEngine) RenderMedia(ctx context.Context, bundleLoc string, comp render.Composition, input model.ResolvedTimeline, outputPath string) error {
	if e.renderErr != nil {
		return e.renderErr
	}
	return os.WriteFile(outputPath, []byte("mp4"), 0644)
}

type testEnv struct {
	handler   *APIHandler
	engine    *captureEngine
	publicDir string
	uploadDir string
	bgmDir    string
	outputDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	publicDir := t.TempDir()
	uploadDir := filepath.Join(publicDir, "uploads")
	bgmDir := filepath.Join(publicDir, "bgm")
	outputDir := filepath.Join(publicDir, "out")
	for _, d := range []string{uploadDir, bgmDir, outputDir} {
		require.NoError(t, os.MkdirAll(d, 0755))
	}

	catalog, err := assets.NewPresetCatalog(bgmDir)
	require.NoError(t, err)
	t.Cleanup(func() { catalog.Close() })

	engine := &captureEngine{}
	cfg := &config.Config{
		PublicDir: publicDir,
		UploadDir: uploadDir,
		BgmDir:    bgmDir,
		OutputDir: outputDir,
	}
	handler := NewAPIHandler(
		storage.NewLocalStore(uploadDir),
		assets.NewResolver(publicDir, bgmDir, assets.ServerRender),
		render.NewOrchestrator(engine, outputDir, time.Minute),
		catalog,
		nil, // export cache off
		nil, // publisher off
		cfg,
	)
	return &testEnv{
		handler:   handler,
		engine:    engine,
		publicDir: publicDir,
		uploadDir: uploadDir,
		bgmDir:    bgmDir,
		outputDir: outputDir,
	}
}

func (env *testEnv) writeUpload(t *testing.T, session, name string, data []byte) string {
	t.Helper()
	dir := filepath.Join(env.uploadDir, session)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0644))
	return "/uploads/" + session + "/" + name
}

func postRender(t *testing.T, env *testEnv, body interface{}) (*httptest.ResponseRecorder, model.RenderResponse) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest(http.MethodPost, "/api/render", &buf)
	rec := httptest.NewRecorder()
	env.handler.RenderHandler(rec, req)

	var resp model.RenderResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return rec, resp
}

func TestRenderTwoImageSlides(t *testing.T) {
	env := newTestEnv(t)
	refA := env.writeUpload(t, "sess1", "a.jpg", []byte("img-a"))
	refB := env.writeUpload(t, "sess1", "b.jpg", []byte("img-b"))

	rec, resp := postRender(t, env, model.RenderRequest{
		Slides: []model.SlideRequest{
			{ID: "s1", Type: "image", Src: refA, Duration: 3},
			{ID: "s2", Type: "video", Src: refB, Duration: 5},
		},
		AspectRatio: "16:9",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Success, resp.Error)
	assert.Regexp(t, `^/out/slideshow-\d+\.mp4$`, resp.URL)

	// 3s + 5s at 30fps
	assert.Equal(t, 240, env.engine.lastComp.DurationInFrames)
	assert.Equal(t, 1920, env.engine.lastComp.Width)
	assert.Equal(t, 1080, env.engine.lastComp.Height)

	// the output file exists where the URL points
	_, err := os.Stat(filepath.Join(env.outputDir, strings.TrimPrefix(resp.URL, "/out/")))
	assert.NoError(t, err)
}

func TestRenderVideoSlideWithPresetAudio(t *testing.T) {
	env := newTestEnv(t)
	ref := env.writeUpload(t, "sess1", "clip.mp4", []byte("video-bytes"))
	require.NoError(t, os.WriteFile(filepath.Join(env.bgmDir, "calm.mp3"), []byte("mp3-bytes"), 0644))

	_, resp := postRender(t, env, model.RenderRequest{
		Slides: []model.SlideRequest{
			{ID: "v1", Type: "video", Src: ref, Duration: 8},
		},
		Bgm: "calm",
	})

	require.True(t, resp.Success, resp.Error)

	input := env.engine.lastInput
	require.Len(t, input.Slides, 1)
	// video resolved to a local-file locator, never inlined
	assert.False(t, input.Slides[0].Source.Inline)
	assert.True(t, strings.HasPrefix(input.Slides[0].Source.URI, "file://"))
	// preset audio inlined with the mp3 MIME
	require.NotNil(t, input.Audio)
	assert.True(t, input.Audio.Inline)
	assert.Equal(t, "audio/mp3", input.Audio.MIME)
	assert.Equal(t, 240, env.engine.lastComp.DurationInFrames)
}

func TestRenderMissingPresetStillSucceeds(t *testing.T) {
	env := newTestEnv(t)
	ref := env.writeUpload(t, "sess1", "a.jpg", []byte("img"))

	_, resp := postRender(t, env, model.RenderRequest{
		Slides: []model.SlideRequest{{ID: "s1", Type: "image", Src: ref, Duration: 3}},
		Bgm:    "ghost-track",
	})

	require.True(t, resp.Success, resp.Error)
	assert.Nil(t, env.engine.lastInput.Audio)
}

func TestRenderZeroSlidesFloorsToOneFrame(t *testing.T) {
	env := newTestEnv(t)

	_, resp := postRender(t, env, model.RenderRequest{})

	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, 1, env.engine.lastComp.DurationInFrames)
}

func TestRenderMalformedBodyRejected(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/api/render", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()

	env.handler.RenderHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp model.RenderResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.False(t, resp.Success)
}

func TestRenderUnknownSlideTypeRejected(t *testing.T) {
	env := newTestEnv(t)

	rec, resp := postRender(t, env, model.RenderRequest{
		Slides: []model.SlideRequest{{Type: "gif", Src: "/uploads/s/x.gif", Duration: 3}},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "unsupported type")
}

func TestRenderEngineFailureReturnsServerError(t *testing.T) {
	env := newTestEnv(t)
	env.engine.renderErr = assert.AnError
	ref := env.writeUpload(t, "sess1", "a.jpg", []byte("img"))

	rec, resp := postRender(t, env, model.RenderRequest{
		Slides: []model.SlideRequest{{ID: "s1", Type: "image", Src: ref, Duration: 3}},
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "rendering")
}

func TestConcurrentRendersProduceDistinctURLs(t *testing.T) {
	env := newTestEnv(t)
	refA := env.writeUpload(t, "sessA", "a.jpg", []byte("img-a"))
	refB := env.writeUpload(t, "sessB", "b.jpg", []byte("img-b"))

	var wg sync.WaitGroup
	urls := make([]string, 2)
	for i, ref := range []string{refA, refB} {
		i, ref := i, ref
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, resp := postRender(t, env, model.RenderRequest{
				Slides: []model.SlideRequest{{ID: "s", Type: "image", Src: ref, Duration: 2}},
			})
			assert.True(t, resp.Success, resp.Error)
			urls[i] = resp.URL
		}()
	}
	wg.Wait()

	assert.NotEqual(t, urls[0], urls[1])
}

func postUpload(t *testing.T, env *testEnv, fileName, sessionID string, data []byte) (*httptest.ResponseRecorder, model.UploadResponse) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if fileName != "" {
		part, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	if sessionID != "" {
		require.NoError(t, mw.WriteField("sessionId", sessionID))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	env.handler.UploadHandler(rec, req)

	var resp model.UploadResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return rec, resp
}

func TestUploadStoresFileUnderSession(t *testing.T) {
	env := newTestEnv(t)

	rec, resp := postUpload(t, env, "photo.jpg", "mysess", []byte("file-bytes"))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Success, resp.Message)
	assert.Equal(t, "/uploads/mysess/photo.jpg", resp.Path)

	data, err := os.ReadFile(filepath.Join(env.uploadDir, "mysess", "photo.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "file-bytes", string(data))
}

func TestUploadMissingSessionRejected(t *testing.T) {
	env := newTestEnv(t)

	rec, resp := postUpload(t, env, "photo.jpg", "", []byte("x"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, "Missing file or sessionId", resp.Message)
}

func TestUploadMissingFileRejected(t *testing.T) {
	env := newTestEnv(t)

	rec, resp := postUpload(t, env, "", "mysess", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Success)
}

func TestPresetsEndpointListsCatalog(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(env.bgmDir, "calm.mp3"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(env.bgmDir, "upbeat.mp3"), []byte("x"), 0644))

	// catalog rescans on watcher events; poll until it has caught up
	require.Eventually(t, func() bool {
		return env.handler.catalog.Has("calm") && env.handler.catalog.Has("upbeat")
	}, 3*time.Second, 20*time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/api/bgm", nil)
	rec := httptest.NewRecorder()
	env.handler.PresetsHandler(rec, req)

	var resp model.PresetListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, []string{"calm", "upbeat"}, resp.Presets)
}

func TestExportsEndpointEmptyWithoutCache(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/exports", nil)
	rec := httptest.NewRecorder()
	env.handler.ExportsHandler(rec, req)

	var resp model.ExportHistoryResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Empty(t, resp.Exports)
}
