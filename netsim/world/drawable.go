// SPDX-License-Identifier: GPL-3.0-or-later

package world

// Vec2 is a 2D position used for rendering.
type Vec2 struct {
	X, Y float64
}

// Lerp linearly interpolates between a and b. The factor is clamped to [0, 1].
func Lerp(a, b Vec2, factor float64) Vec2 {
	factor = min(max(factor, 0), 1)
	return Vec2{
		X: a.X + (b.X-a.X)*factor,
		Y: a.Y + (b.Y-a.Y)*factor,
	}
}

// Drawable is an optional [Entity] capability read by renderers.
//
// Renderers must not mutate the simulation state.
type Drawable interface {
	Position() Vec2
	Visible() bool
}

// Drawables returns the live [Drawable] entities that are visible,
// in activation order.
func (w *World) Drawables() []Drawable {
	var out []Drawable
	for _, e := range w.entities {
		if d, ok := e.(Drawable); ok && d.Visible() {
			out = append(out, d)
		}
	}
	return out
}
