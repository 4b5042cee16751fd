package model

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// DefaultSlideDuration is applied when a request omits a slide duration.
const DefaultSlideDuration = 3.0

// SlideRequest is the wire form of one slide in an export request.
type SlideRequest struct {
	ID       string  `json:"id"`
	Type     string  `json:"type"`
	Src      string  `json:"src"`
	Text     string  `json:"text"`
	Duration float64 `json:"duration"`
}

// RenderRequest is the export boundary's request body. It is validated
// before anything enters the render pipeline; malformed input is turned
// into a client error here rather than an unchecked failure downstream.
type RenderRequest struct {
	Slides          []SlideRequest `json:"slides"`
	AspectRatio     string         `json:"aspectRatio"`
	SubtitleStyle   string         `json:"subtitleStyle"`
	Bgm             string         `json:"bgm"`
	CustomAudioPath string         `json:"customAudioPath"`
}

// Validate checks the request against the supported slide kinds, aspect
// ratios and duration bounds. A zero-slide request is allowed: the
// composition floors to a single frame rather than rejecting.
func (r *RenderRequest) Validate() error {
	if r.AspectRatio != "" && !AspectRatio(r.AspectRatio).Valid() {
		return fmt.Errorf("unsupported aspect ratio %q", r.AspectRatio)
	}
	for i, s := range r.Slides {
		if !SlideKind(s.Type).Valid() {
			return fmt.Errorf("slide %d: unsupported type %q", i, s.Type)
		}
		if strings.TrimSpace(s.Src) == "" {
			return fmt.Errorf("slide %d: missing src", i)
		}
		if s.Duration < 0 {
			return fmt.Errorf("slide %d: negative duration %v", i, s.Duration)
		}
	}
	return nil
}

// Timeline converts a validated request into the in-memory model,
// filling defaults: missing slide IDs get generated ones, zero durations
// fall back to DefaultSlideDuration, unknown caption styles normalize to
// simple. A preset selection wins over an uploaded audio path, matching
// the editing boundary's mutual-exclusion rule.
func (r *RenderRequest) Timeline() Timeline {
	t := Timeline{
		AspectRatio:  AspectWide,
		CaptionStyle: CaptionStyle(r.SubtitleStyle).Normalize(),
		Audio:        NoAudio(),
	}
	if r.AspectRatio != "" {
		t.AspectRatio = AspectRatio(r.AspectRatio)
	}
	switch {
	case r.Bgm != "":
		t.Audio = PresetAudio(r.Bgm)
	case r.CustomAudioPath != "":
		t.Audio = UploadedAudio(r.CustomAudioPath)
	}
	for _, s := range r.Slides {
		id := s.ID
		if id == "" {
			id = uuid.NewString()
		}
		duration := s.Duration
		if duration == 0 {
			duration = DefaultSlideDuration
		}
		t.Slides = append(t.Slides, Slide{
			ID:              id,
			Kind:            SlideKind(s.Type),
			Ref:             s.Src,
			Caption:         s.Text,
			DurationSeconds: duration,
		})
	}
	return t
}

// RenderResponse is the export boundary's response body.
type RenderResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url,omitempty"`
	Error   string `json:"error,omitempty"`
}

// UploadResponse is the upload boundary's response body.
type UploadResponse struct {
	Success bool   `json:"success"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message,omitempty"`
}

// PresetListResponse lists the selectable preset audio tracks.
type PresetListResponse struct {
	Success bool     `json:"success"`
	Presets []string `json:"presets"`
}

// ExportHistoryResponse lists recently rendered output URLs.
type ExportHistoryResponse struct {
	Success bool     `json:"success"`
	Exports []string `json:"exports"`
}
