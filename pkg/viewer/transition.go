package viewer

import (
	"image/color"
	"time"
)

// transition animates every feature fill from one colour to another.
type transition struct {
	from, to []color.RGBA
	start    time.Time
	duration time.Duration
}

// progress returns the eased completion in [0, 1].
func (t *transition) progress(now time.Time) float64 {
	if t.duration <= 0 {
		return 1
	}
	p := float64(now.Sub(t.start)) / float64(t.duration)
	if p >= 1 {
		return 1
	}
	if p <= 0 {
		return 0
	}
	return easeCubicInOut(p)
}

// apply writes the interpolated colours into dst and reports whether the transition is done.
func (t *transition) apply(dst []color.RGBA, now time.Time) bool {
	p := t.progress(now)
	for i := range dst {
		if i >= len(t.to) {
			break
		}
		from := t.to[i]
		if i < len(t.from) {
			from = t.from[i]
		}
		dst[i] = lerpColor(from, t.to[i], p)
	}
	return p >= 1
}

func easeCubicInOut(t float64) float64 {
	t *= 2
	if t <= 1 {
		return t * t * t / 2
	}
	t -= 2
	return (t*t*t + 2) / 2
}

func lerpColor(a, b color.RGBA, t float64) color.RGBA {
	lerp := func(x, y uint8) uint8 {
		return uint8(float64(x) + (float64(y)-float64(x))*t + 0.5)
	}
	return color.RGBA{lerp(a.R, b.R), lerp(a.G, b.G), lerp(a.B, b.B), lerp(a.A, b.A)}
}
