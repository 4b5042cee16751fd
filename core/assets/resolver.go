// Package assets translates client-supplied asset references (uploaded-file
// web paths, blob handles, preset track names) into render-time sources the
// engine can consume. The strategy depends on the asset kind and on whether
// resolution happens for a browser preview or a headless server render.
package assets

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"slidecast/logger"
	"slidecast/model"
)

// RenderContext selects the resolution strategy.
type RenderContext int

const (
	// Preview leaves references untouched: the browser can consume blob
	// handles and same-origin web paths directly.
	Preview RenderContext = iota
	// ServerRender translates local references into inline payloads or
	// absolute file locators reachable by the headless engine.
	ServerRender
)

// uploadPrefix marks references that point at session-uploaded content.
const uploadPrefix = "/uploads/"

// Resolver converts timelines into resolved timelines.
type Resolver struct {
	publicDir string // root of the web-servable asset tree
	bgmDir    string // directory of preset audio tracks
	rctx      RenderContext
}

// NewResolver creates a resolver rooted at publicDir. Preset audio is read
// from bgmDir, keyed by preset name.
func NewResolver(publicDir, bgmDir string, rctx RenderContext) *Resolver {
	return &Resolver{publicDir: publicDir, bgmDir: bgmDir, rctx: rctx}
}

// ResolveTimeline resolves every slide reference and the audio selection.
// Slides and audio are side-effect-free reads, so they resolve concurrently
// and are joined before returning; output order is timeline order regardless
// of completion order. A failed audio resolution disables audio rather than
// failing the job; a slide that cannot be resolved by any strategy fails
// the whole resolution.
func (r *Resolver) ResolveTimeline(ctx context.Context, t model.Timeline) (model.ResolvedTimeline, error) {
	out := model.ResolvedTimeline{
		Slides:       make([]model.ResolvedSlide, len(t.Slides)),
		AspectRatio:  t.AspectRatio,
		CaptionStyle: t.CaptionStyle,
	}

	g, ctx := errgroup.WithContext(ctx)
	for i, slide := range t.Slides {
		i, slide := i, slide
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			src, err := r.resolveSlide(slide)
			if err != nil {
				return fmt.Errorf("slide %s: %w", slide.ID, err)
			}
			out.Slides[i] = model.ResolvedSlide{Slide: slide, Source: src}
			return nil
		})
	}
	g.Go(func() error {
		out.Audio = r.resolveAudio(t.Audio)
		return nil
	})
	if err := g.Wait(); err != nil {
		return model.ResolvedTimeline{}, err
	}
	return out, nil
}

// resolveSlide translates one slide reference.
func (r *Resolver) resolveSlide(s model.Slide) (model.RenderSource, error) {
	if !s.Kind.Valid() {
		return model.RenderSource{}, fmt.Errorf("unrecognized slide kind %q", s.Kind)
	}

	ref := normalizeRef(s.Ref)
	if r.rctx == Preview || !strings.HasPrefix(ref, uploadPrefix) {
		// Already consumable where it is.
		return model.RenderSource{URI: s.Ref}, nil
	}

	fsPath := filepath.Join(r.publicDir, filepath.FromSlash(strings.TrimPrefix(ref, "/")))

	switch s.Kind {
	case model.SlideImage:
		// Inline the pixel data so the headless renderer never needs a
		// file read inside its sandbox.
		data, err := os.ReadFile(fsPath)
		if err != nil {
			logger.Warn("failed to read image, falling back to file locator",
				logger.String("path", fsPath), logger.ErrorField(err))
			return fallbackLocator(fsPath)
		}
		mime := "image/" + imageSubtype(fsPath)
		return model.RenderSource{
			URI:    dataURI(mime, data),
			Inline: true,
			MIME:   mime,
		}, nil

	case model.SlideVideo:
		// Video bytes are too large to inline as text; always use the
		// absolute locator form.
		return fallbackLocator(fsPath)
	}
	return model.RenderSource{}, fmt.Errorf("unrecognized slide kind %q", s.Kind)
}

// resolveAudio translates the audio selection. Audio is a non-essential
// enhancement: any read failure disables it (nil result) instead of
// failing the job.
func (r *Resolver) resolveAudio(sel model.AudioSelection) *model.RenderSource {
	switch sel.Choice {
	case model.AudioPreset:
		if r.rctx == Preview {
			return &model.RenderSource{URI: "/bgm/" + sel.Preset + ".mp3"}
		}
		path := filepath.Join(r.bgmDir, sel.Preset+".mp3")
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("preset audio missing or unreadable, rendering without audio",
				logger.String("preset", sel.Preset), logger.String("path", path), logger.ErrorField(err))
			return nil
		}
		return &model.RenderSource{
			URI:    dataURI("audio/mp3", data),
			Inline: true,
			MIME:   "audio/mp3",
		}

	case model.AudioUploaded:
		if r.rctx == Preview {
			return &model.RenderSource{URI: sel.Ref}
		}
		ref := normalizeRef(sel.Ref)
		path := filepath.Join(r.publicDir, filepath.FromSlash(strings.TrimPrefix(ref, "/")))
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("uploaded audio missing or unreadable, rendering without audio",
				logger.String("path", path), logger.ErrorField(err))
			return nil
		}
		mime := audioMIME(path)
		return &model.RenderSource{
			URI:    dataURI(mime, data),
			Inline: true,
			MIME:   mime,
		}
	}
	return nil
}

// normalizeRef reduces a fully-qualified network locator to its local path
// component, so a same-origin absolute URL and a bare relative path resolve
// identically. Unparseable refs pass through unchanged.
func normalizeRef(ref string) string {
	if !strings.HasPrefix(ref, "http") {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return u.Path
}

// imageSubtype derives the MIME subtype from the file extension. A jpg
// extension maps to jpeg; everything else maps to its literal name.
func imageSubtype(path string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext == "jpg" {
		return "jpeg"
	}
	return ext
}

// audioMIME chooses the MIME type for an uploaded audio file by extension.
func audioMIME(path string) string {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "wav":
		return "audio/wav"
	case "m4a", "mp4":
		return "audio/mp4"
	default:
		return "audio/mpeg"
	}
}

// fallbackLocator builds an absolute local-file locator from a filesystem
// path, slash-normalized for cross-platform correctness.
func fallbackLocator(fsPath string) (model.RenderSource, error) {
	abs, err := filepath.Abs(fsPath)
	if err != nil {
		return model.RenderSource{}, fmt.Errorf("resolve absolute path for %s: %w", fsPath, err)
	}
	return model.RenderSource{URI: "file://" + filepath.ToSlash(abs)}, nil
}

func dataURI(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}
