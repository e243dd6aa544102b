// SPDX-License-Identifier: GPL-3.0-or-later

package world_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/rbmk-project/lansim/netsim/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is an [world.Entity] recording its lifecycle.
type recorder struct {
	world.Membership
	name        string
	log         *[]string
	deltas      []float64
	initialized int
	deactivated int
	children    []world.Entity
	onUpdate    func()
	pos         world.Vec2
	hidden      bool
}

func (r *recorder) Update(delta float64) {
	r.deltas = append(r.deltas, delta)
	if r.log != nil {
		*r.log = append(*r.log, r.name)
	}
	if r.onUpdate != nil {
		r.onUpdate()
	}
}

func (r *recorder) Initialize() {
	r.initialized++
}

func (r *recorder) AddChildren(w *world.World) {
	for _, child := range r.children {
		w.Add(child)
	}
}

func (r *recorder) Deactivate() {
	r.deactivated++
}

func (r *recorder) Position() world.Vec2 {
	return r.pos
}

func (r *recorder) Visible() bool {
	return !r.hidden
}

func TestAdd(t *testing.T) {
	t.Run("activation happens at the next step", func(t *testing.T) {
		w := world.New()
		e := &recorder{}

		assert.Same(t, e, w.Add(e))
		assert.Same(t, w, e.World())
		assert.True(t, w.Staged(e))
		assert.False(t, w.Contains(e))
		assert.Empty(t, w.Entities())

		w.Step(1, 1)
		assert.True(t, w.Contains(e))
		assert.False(t, w.Staged(e))
		assert.Equal(t, []world.Entity{e}, w.Entities())
		assert.Equal(t, 1, e.initialized)
	})

	t.Run("adding twice is idempotent", func(t *testing.T) {
		w := world.New()
		e := &recorder{}
		w.Add(e)
		w.Add(e)
		w.Step(1, 1)
		w.Add(e)
		w.Step(1, 1)
		assert.Len(t, w.Entities(), 1)
		assert.Equal(t, 1, e.initialized)
		assert.Equal(t, []float64{1, 1}, e.deltas)
	})

	t.Run("children are activated along with the parent", func(t *testing.T) {
		w := world.New()
		child := &recorder{}
		parent := &recorder{children: []world.Entity{child}}
		w.Add(parent)
		w.Step(1, 1)
		assert.True(t, w.Contains(child))
		assert.Equal(t, []float64{1}, child.deltas)
		assert.Same(t, w, child.World())
	})
}

func TestRemove(t *testing.T) {
	t.Run("deactivation happens at the next step", func(t *testing.T) {
		w := world.New()
		e := &recorder{}
		w.Add(e)
		w.Step(1, 1)

		w.Remove(e)
		assert.True(t, w.Contains(e))
		assert.Same(t, w, e.World())

		w.Step(1, 1)
		assert.False(t, w.Contains(e))
		assert.Nil(t, e.World())
		assert.Equal(t, 1, e.deactivated)
		assert.Len(t, e.deltas, 1)
	})

	t.Run("removing an unknown entity is a no-op", func(t *testing.T) {
		w := world.New()
		e := &recorder{}
		w.Remove(e)
		assert.False(t, w.Staged(e))
		w.Step(1, 1)
		assert.Equal(t, 0, e.deactivated)
	})

	t.Run("removing a staged entity cancels its activation", func(t *testing.T) {
		w := world.New()
		e := &recorder{}
		w.Add(e)
		w.Remove(e)
		assert.False(t, w.Staged(e))
		assert.Nil(t, e.World())
		w.Step(1, 1)
		assert.False(t, w.Contains(e))
		assert.Empty(t, e.deltas)
		assert.Equal(t, 0, e.initialized)
	})

	t.Run("order is preserved after removal", func(t *testing.T) {
		w := world.New()
		var order []string
		a := &recorder{name: "a", log: &order}
		b := &recorder{name: "b", log: &order}
		c := &recorder{name: "c", log: &order}
		w.Add(a)
		w.Add(b)
		w.Add(c)
		w.Step(1, 1)
		w.Remove(b)
		w.Step(1, 1)
		assert.Equal(t, []string{"a", "b", "c", "a", "c"}, order)
	})
}

func TestStep(t *testing.T) {
	for _, scale := range []float64{0.5, 1, 2} {
		t.Run("time scale", func(t *testing.T) {
			w := world.New()
			w.TimeScale = scale
			e := &recorder{}
			w.Add(e)
			w.Step(1, 1)
			assert.Equal(t, []float64{scale}, e.deltas)
			assert.Equal(t, scale, w.Now())
		})
	}

	t.Run("every entity is updated once per iteration", func(t *testing.T) {
		w := world.New()
		e1 := &recorder{}
		e2 := &recorder{}
		w.Add(e1)
		w.Add(e2)
		w.Step(0.25, 4)
		assert.Equal(t, []float64{0.25, 0.25, 0.25, 0.25}, e1.deltas)
		assert.Equal(t, []float64{0.25, 0.25, 0.25, 0.25}, e2.deltas)
		assert.Equal(t, 1.0, w.Now())
	})

	t.Run("zero steps count as one", func(t *testing.T) {
		w := world.New()
		e := &recorder{}
		w.Add(e)
		w.Step(1, 0)
		assert.Len(t, e.deltas, 1)
	})

	t.Run("additions during traversal wait for the next iteration", func(t *testing.T) {
		w := world.New()
		late := &recorder{}
		var early *recorder
		early = &recorder{onUpdate: func() {
			w.Add(late)
			assert.False(t, w.Contains(late))
			early.onUpdate = nil
		}}
		w.Add(early)
		w.Step(1, 3)
		assert.Len(t, early.deltas, 3)
		assert.Len(t, late.deltas, 2)
	})

	t.Run("removals during traversal wait for the next iteration", func(t *testing.T) {
		w := world.New()
		victim := &recorder{}
		killer := &recorder{}
		killer.onUpdate = func() { w.Remove(victim) }
		w.Add(killer)
		w.Add(victim)
		w.Step(1, 3)
		assert.Len(t, victim.deltas, 1)
		assert.Len(t, killer.deltas, 3)
	})
}

func TestDrawables(t *testing.T) {
	w := world.New()
	visible := &recorder{pos: world.Vec2{X: 1, Y: 2}}
	hidden := &recorder{hidden: true}
	w.Add(visible)
	w.Add(hidden)
	w.Step(0, 1)
	drawables := w.Drawables()
	require.Len(t, drawables, 1)
	assert.Equal(t, world.Vec2{X: 1, Y: 2}, drawables[0].Position())
}

func TestLerp(t *testing.T) {
	a := world.Vec2{X: 0, Y: 0}
	b := world.Vec2{X: 10, Y: -10}
	assert.Equal(t, world.Vec2{X: 5, Y: -5}, world.Lerp(a, b, 0.5))
	assert.Equal(t, a, world.Lerp(a, b, -1))
	assert.Equal(t, b, world.Lerp(a, b, 2))
}

func TestLog(t *testing.T) {
	t.Run("nil world and nil logger are fine", func(t *testing.T) {
		var w *world.World
		assert.NotPanics(t, func() { w.Log("event") })
		assert.NotPanics(t, func() { world.New().Log("event") })
	})

	t.Run("events carry the simulated time", func(t *testing.T) {
		var buf bytes.Buffer
		w := world.New()
		w.Logger = slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if a.Key == slog.TimeKey {
					return slog.Attr{}
				}
				return a
			},
		}))
		w.Step(0.5, 1)
		w.Log("frameDropped", slog.String("errClass", "ENOBUFS"))

		var event map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &event))
		assert.Equal(t, map[string]any{
			"level":    "INFO",
			"msg":      "frameDropped",
			"errClass": "ENOBUFS",
			"t":        0.5,
		}, event)
	})
}
