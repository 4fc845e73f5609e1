package viewer

import "math"

// Slider is a horizontal year slider. It only tracks geometry and value; input polling and
// drawing live in the engine.
type Slider struct {
	Min, Max int
	Value    int
	X, Y     float64
	W, H     float64

	dragging bool
}

// SetRange sets the bounds and clamps the current value into them.
func (s *Slider) SetRange(lo, hi int) {
	if hi < lo {
		lo, hi = hi, lo
	}
	s.Min, s.Max = lo, hi
	s.Value = s.clamp(s.Value)
}

func (s *Slider) clamp(v int) int {
	if v < s.Min {
		return s.Min
	}
	if v > s.Max {
		return s.Max
	}
	return v
}

// ValueAt maps a cursor x position onto the nearest year.
func (s *Slider) ValueAt(x float64) int {
	if s.W <= 0 || s.Max == s.Min {
		return s.Min
	}
	t := (x - s.X) / s.W
	t = math.Max(0, math.Min(1, t))
	return s.Min + int(math.Round(t*float64(s.Max-s.Min)))
}

// HandleX is the x position of the handle for the current value.
func (s *Slider) HandleX() float64 {
	if s.Max == s.Min {
		return s.X
	}
	return s.X + s.W*float64(s.Value-s.Min)/float64(s.Max-s.Min)
}

// Contains reports whether (x, y) hits the track, with some vertical slack for the handle.
func (s *Slider) Contains(x, y float64) bool {
	return x >= s.X-s.H && x <= s.X+s.W+s.H && y >= s.Y-s.H && y <= s.Y+2*s.H
}

// Press starts a drag when (x, y) is on the slider and moves the value there.
func (s *Slider) Press(x, y float64) (int, bool) {
	if !s.Contains(x, y) {
		return s.Value, false
	}
	s.dragging = true
	return s.set(s.ValueAt(x))
}

// Drag moves the value while a drag is in progress.
func (s *Slider) Drag(x float64) (int, bool) {
	if !s.dragging {
		return s.Value, false
	}
	return s.set(s.ValueAt(x))
}

func (s *Slider) Release() { s.dragging = false }

func (s *Slider) Dragging() bool { return s.dragging }

// Step moves the value by delta years, as the arrow keys do.
func (s *Slider) Step(delta int) (int, bool) {
	return s.set(s.clamp(s.Value + delta))
}

// set reports a change only when the value actually moves, like an input event.
func (s *Slider) set(v int) (int, bool) {
	if v == s.Value {
		return v, false
	}
	s.Value = v
	return v, true
}
