package geo

import "time"

// Fix is one reported device location sample. Each newer fix supersedes
// the previous one; no history is kept on the client.
type Fix struct {
	Point          Point
	AccuracyMeters float64
	SpeedKmh       float64
	Time           time.Time
}

// Viewport is the visible map region: a center plus the latitude and
// longitude spans covered by the screen.
type Viewport struct {
	Center  Point
	LatSpan float64
	LngSpan float64
}
