package model

// SlideKind distinguishes the two visual media types a slide can carry.
type SlideKind string

const (
	SlideImage SlideKind = "image"
	SlideVideo SlideKind = "video"
)

// Valid reports whether the kind is one of the supported media types.
func (k SlideKind) Valid() bool {
	return k == SlideImage || k == SlideVideo
}

// AspectRatio selects the output orientation of a rendered slideshow.
type AspectRatio string

const (
	AspectWide AspectRatio = "16:9"
	AspectTall AspectRatio = "9:16"
)

// Dimensions returns the pixel dimensions the renderer uses for this ratio.
func (a AspectRatio) Dimensions() (width, height int) {
	if a == AspectTall {
		return 1080, 1920
	}
	return 1920, 1080
}

// Valid reports whether the ratio is one of the supported orientations.
func (a AspectRatio) Valid() bool {
	return a == AspectWide || a == AspectTall
}

// CaptionStyle names one of the fixed caption presentation presets.
type CaptionStyle string

const (
	CaptionSimple      CaptionStyle = "simple"
	CaptionCenter      CaptionStyle = "center"
	CaptionHandwritten CaptionStyle = "handwritten"
	CaptionMinimal     CaptionStyle = "minimal"
)

// Normalize maps unknown styles to the simple default.
func (c CaptionStyle) Normalize() CaptionStyle {
	switch c {
	case CaptionSimple, CaptionCenter, CaptionHandwritten, CaptionMinimal:
		return c
	}
	return CaptionSimple
}

// Slide is one timed unit of visual content. Order within a Timeline's
// slice is playback order; there is no separate position field.
type Slide struct {
	ID              string
	Kind            SlideKind
	Ref             string // asset locator: blob handle, uploaded-file path, or resolved source
	Caption         string
	DurationSeconds float64
}

// AudioChoice tags the active branch of an AudioSelection.
type AudioChoice string

const (
	AudioNone     AudioChoice = "none"
	AudioPreset   AudioChoice = "preset"
	AudioUploaded AudioChoice = "uploaded"
)

// AudioSelection is the tagged choice of background audio for a timeline.
// At most one branch is active; the editing boundary enforces mutual
// exclusion between preset and uploaded selections.
type AudioSelection struct {
	Choice AudioChoice
	Preset string // preset track name, set when Choice == AudioPreset
	Ref    string // uploaded-file reference, set when Choice == AudioUploaded
}

// NoAudio returns the empty selection.
func NoAudio() AudioSelection {
	return AudioSelection{Choice: AudioNone}
}

// PresetAudio selects a bundled track by name.
func PresetAudio(name string) AudioSelection {
	return AudioSelection{Choice: AudioPreset, Preset: name}
}

// UploadedAudio selects a session-uploaded audio file.
func UploadedAudio(ref string) AudioSelection {
	return AudioSelection{Choice: AudioUploaded, Ref: ref}
}

// Enabled reports whether any audio is selected.
func (s AudioSelection) Enabled() bool {
	return s.Choice == AudioPreset || s.Choice == AudioUploaded
}

// Timeline is the full ordered slide sequence plus global render settings
// for one export. It is owned by the editing session; the render pipeline
// only ever consumes the resolved form.
type Timeline struct {
	Slides       []Slide
	AspectRatio  AspectRatio
	CaptionStyle CaptionStyle
	Audio        AudioSelection
}

// TotalDurationSeconds sums the slide durations.
func (t Timeline) TotalDurationSeconds() float64 {
	var total float64
	for _, s := range t.Slides {
		total += s.DurationSeconds
	}
	return total
}

// RenderSource is a render-engine-consumable form of an asset reference:
// either inlined bytes as a data URI or an absolute locator reachable by
// the engine's execution context.
type RenderSource struct {
	URI    string
	Inline bool   // true when URI is a base64 data URI
	MIME   string // set when Inline
}

// ResolvedSlide pairs a slide with its render-time source.
type ResolvedSlide struct {
	Slide
	Source RenderSource
}

// ResolvedTimeline is a Timeline whose every reference has been converted
// to a RenderSource. It is the only input type the render orchestrator
// accepts. A nil Audio means audio is disabled for the render.
type ResolvedTimeline struct {
	Slides       []ResolvedSlide
	AspectRatio  AspectRatio
	CaptionStyle CaptionStyle
	Audio        *RenderSource
}

// TotalDurationSeconds sums the slide durations.
func (t ResolvedTimeline) TotalDurationSeconds() float64 {
	var total float64
	for _, s := range t.Slides {
		total += s.DurationSeconds
	}
	return total
}
