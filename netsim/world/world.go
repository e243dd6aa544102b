// SPDX-License-Identifier: GPL-3.0-or-later

// Package world implements the simulation kernel.
//
// A [*World] owns the live simulation entities and advances them in
// discrete steps. Structural changes ([*World.Add] and [*World.Remove])
// are staged and applied only at step boundaries, never while the
// world is iterating over its entities.
package world

import (
	"context"
	"log/slog"
)

// Entity is a simulation object advanced by a [*World].
type Entity interface {
	// Update advances the entity by the given amount of simulated seconds.
	Update(delta float64)
}

// Initializer is an optional [Entity] hook invoked once on activation.
type Initializer interface {
	Initialize()
}

// ChildAdder is an optional [Entity] hook invoked once on activation,
// after [Initializer], so that composite entities can add their children.
type ChildAdder interface {
	AddChildren(w *World)
}

// Deactivator is an optional [Entity] hook invoked once on deactivation.
type Deactivator interface {
	Deactivate()
}

// Owned is an optional [Entity] capability allowing the world to
// record itself as the entity owner. Embed [Membership] to implement it.
type Owned interface {
	SetWorld(w *World)
}

// World is the simulation kernel.
//
// Construct using [New]. A [*World] is not safe for concurrent use: the
// simulation is single-threaded and cooperative by construction.
type World struct {
	// Logger is the optional structured logger for emitting
	// structured diagnostic events. If this field is nil, we
	// will not be emitting structured logs.
	Logger *slog.Logger

	// TimeScale multiplies the delta passed to Step.
	TimeScale float64

	// entities contains the live entities in activation order.
	entities []Entity

	// index maps live entities to their position in entities.
	index map[Entity]int

	// now is the simulated time in seconds.
	now float64

	// pendingAdd contains entities staged for activation.
	pendingAdd []Entity

	// pendingRemove contains entities staged for deactivation.
	pendingRemove []Entity

	// staged tracks the entities in pendingAdd or pendingRemove.
	staged map[Entity]bool
}

// New creates a new [*World] with a unit time scale.
func New() *World {
	return &World{
		TimeScale: 1,
		index:     map[Entity]int{},
		staged:    map[Entity]bool{},
	}
}

// Add stages the entity for activation at the next step boundary and
// records this world as the entity owner. Adding an entity that is
// live or already staged is a no-op. Returns the entity.
func (w *World) Add(e Entity) Entity {
	if _, live := w.index[e]; live {
		return e
	}
	if w.staged[e] {
		return e
	}
	w.staged[e] = true
	w.pendingAdd = append(w.pendingAdd, e)
	if o, ok := e.(Owned); ok {
		o.SetWorld(w)
	}
	return e
}

// Remove stages a live entity for deactivation at the next step
// boundary. Removing an entity that is staged for activation cancels
// the activation. Otherwise, removing an entity that is not live
// is a no-op.
func (w *World) Remove(e Entity) {
	if _, live := w.index[e]; live {
		if !w.staged[e] {
			w.staged[e] = true
			w.pendingRemove = append(w.pendingRemove, e)
		}
		return
	}
	if !w.staged[e] {
		return
	}
	for idx, candidate := range w.pendingAdd {
		if candidate == e {
			w.pendingAdd = append(w.pendingAdd[:idx], w.pendingAdd[idx+1:]...)
			break
		}
	}
	delete(w.staged, e)
	if o, ok := e.(Owned); ok {
		o.SetWorld(nil)
	}
}

// Contains returns whether the entity is live.
func (w *World) Contains(e Entity) bool {
	_, live := w.index[e]
	return live
}

// Staged returns whether the entity is staged for activation or deactivation.
func (w *World) Staged(e Entity) bool {
	return w.staged[e]
}

// Entities returns a copy of the live entities in activation order.
func (w *World) Entities() []Entity {
	return append([]Entity{}, w.entities...)
}

// Now returns the simulated time in seconds.
func (w *World) Now() float64 {
	return w.now
}

// Step performs the given number of iterations. Each iteration first
// applies the staged activations and deactivations, then calls Update
// exactly once on every live entity, in activation order, passing the
// delta multiplied by the TimeScale. A steps value lower than one is
// treated as one.
//
// Staged changes are applied before every iteration, not only before
// the first one, so entities added or removed during an iteration take
// effect at the next iteration of the same call.
func (w *World) Step(delta float64, steps int) {
	for range max(steps, 1) {
		w.flush()
		scaled := delta * w.TimeScale
		w.now += scaled
		for _, e := range w.entities {
			e.Update(scaled)
		}
	}
}

// flush applies staged activations and deactivations. Hooks may stage
// further changes, which flush applies before returning.
func (w *World) flush() {
	for len(w.pendingAdd) > 0 || len(w.pendingRemove) > 0 {
		for len(w.pendingAdd) > 0 {
			e := w.pendingAdd[0]
			w.pendingAdd = w.pendingAdd[1:]
			delete(w.staged, e)
			w.index[e] = len(w.entities)
			w.entities = append(w.entities, e)
			if i, ok := e.(Initializer); ok {
				i.Initialize()
			}
			if c, ok := e.(ChildAdder); ok {
				c.AddChildren(w)
			}
		}
		if len(w.pendingRemove) > 0 {
			e := w.pendingRemove[0]
			w.pendingRemove = w.pendingRemove[1:]
			delete(w.staged, e)
			w.deactivate(e)
		}
	}
}

// deactivate removes a live entity preserving the order of the others.
func (w *World) deactivate(e Entity) {
	pos, live := w.index[e]
	if !live {
		return
	}
	w.entities = append(w.entities[:pos], w.entities[pos+1:]...)
	delete(w.index, e)
	for idx := pos; idx < len(w.entities); idx++ {
		w.index[w.entities[idx]] = idx
	}
	if d, ok := e.(Deactivator); ok {
		d.Deactivate()
	}
	if o, ok := e.(Owned); ok {
		o.SetWorld(nil)
	}
}

// Log emits a structured log event if the Logger is set. It is
// safe to call this method on a nil [*World].
func (w *World) Log(msg string, attrs ...slog.Attr) {
	if w == nil || w.Logger == nil {
		return
	}
	attrs = append(attrs, slog.Float64("t", w.now))
	w.Logger.LogAttrs(context.Background(), slog.LevelInfo, msg, attrs...)
}

// Membership records the [*World] owning an entity.
//
// Embed it to implement [Owned]. The zero value is ready to use.
type Membership struct {
	world *World
}

// SetWorld implements [Owned].
func (m *Membership) SetWorld(w *World) {
	m.world = w
}

// World returns the owning [*World] or nil.
func (m *Membership) World() *World {
	return m.world
}
