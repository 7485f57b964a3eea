package bot

import (
	"image"
	"time"

	"jordanella.com/tower-pilot/internal/cv"
)

// Outcome classifies how a cycle ended
type Outcome string

const (
	OutcomeDispatched    Outcome = "dispatched"     // Symbol found and input sent
	OutcomeWindowMissing Outcome = "window_missing" // Window not found or degenerate
	OutcomeNoMatch       Outcome = "no_match"       // Nothing above threshold
	OutcomeSkipped       Outcome = "skipped"        // Match found but the window vanished before dispatch
	OutcomeFailed        Outcome = "failed"         // Aborted by an error
)

// CycleResult summarizes one pass through the pipeline
type CycleResult struct {
	Cycle      int64
	Outcome    Outcome
	FrameSize  image.Point
	Window     cv.ScreenRect
	Match      *cv.Match
	Coordinate *cv.ScreenCoordinate // Position actually clicked
	Duration   time.Duration
	Err        error
}

func (r CycleResult) data() map[string]interface{} {
	data := map[string]interface{}{
		"frame_width":  r.FrameSize.X,
		"frame_height": r.FrameSize.Y,
		"duration_ms":  r.Duration.Milliseconds(),
	}
	if r.Match != nil {
		data["confidence"] = r.Match.Confidence
		data["match_x"] = r.Match.TopLeft.X
		data["match_y"] = r.Match.TopLeft.Y
	}
	if r.Coordinate != nil {
		data["x"] = r.Coordinate.X
		data["y"] = r.Coordinate.Y
	}
	if r.Err != nil {
		data["error"] = r.Err.Error()
	}
	return data
}
