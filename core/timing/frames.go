// Package timing derives frame counts from slide durations. The same
// arithmetic is used for a single slide's on-screen span and for the
// timeline total, so interactive preview and final render always agree
// on timing.
package timing

import (
	"math"

	"slidecast/model"
)

// FrameRate is the fixed process-wide frame rate of every composition.
const FrameRate = 30

// TransitionFrames is the length of the cross-fade between adjacent slides.
const TransitionFrames = 15

// ComputeFrames converts a duration in seconds to a frame count,
// ceiling-rounded and floored at one frame.
func ComputeFrames(durationSeconds float64, frameRate int) int {
	frames := int(math.Ceil(durationSeconds * float64(frameRate)))
	if frames < 1 {
		return 1
	}
	return frames
}

// TotalFrames returns the frame count of a whole resolved timeline.
func TotalFrames(rt model.ResolvedTimeline, frameRate int) int {
	return ComputeFrames(rt.TotalDurationSeconds(), frameRate)
}

// TimelineFrames returns the frame count of an unresolved timeline.
// Identical arithmetic to TotalFrames; this is what a preview player
// computes from the same slide-duration sequence.
func TimelineFrames(t model.Timeline, frameRate int) int {
	return ComputeFrames(t.TotalDurationSeconds(), frameRate)
}
