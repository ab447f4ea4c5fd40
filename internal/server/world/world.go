package world

import (
	"fmt"
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/OCharnyshevich/voxel-terrain/internal/server/world/block"
	"github.com/OCharnyshevich/voxel-terrain/internal/server/world/chunk"
	"github.com/OCharnyshevich/voxel-terrain/internal/server/world/gen"
	"github.com/OCharnyshevich/voxel-terrain/internal/server/world/mesh"
)

// World streams chunks around an observer. It keeps a cache of chunk
// entries keyed by coordinate and moves each through generate, wait for
// neighbours, mesh and show, spreading the work over a Pool.
//
// World is not safe for concurrent use: a single goroutine calls Tick and
// the other methods. Workers only ever hand results back through task
// handles.
type World struct {
	log  *slog.Logger
	reg  *block.Registry
	gen  gen.Generator
	pool *Pool
	sink Sink

	entries map[chunk.Coord]*entry
	tasks   []*inflight

	center       chunk.Coord
	viewDistance int
	serial       uint64
	epoch        uint64
}

// New creates an empty world.
func New(reg *block.Registry, generator gen.Generator, pool *Pool, sink Sink, log *slog.Logger) *World {
	if sink == nil {
		sink = NopSink{}
	}
	return &World{
		log:     log,
		reg:     reg,
		gen:     generator,
		pool:    pool,
		sink:    sink,
		entries: make(map[chunk.Coord]*entry),
	}
}

// Tick advances the scheduler once. It polls finished tasks, evicts chunks
// that fell out of range, starts generation for new chunks nearest first
// and admits at most one chunk into meshing. It never blocks on workers.
func (w *World) Tick(observer mgl32.Vec3, viewDistance int) {
	w.center = chunk.CoordAt(observer)
	w.viewDistance = max(viewDistance, 0)

	w.poll()
	w.evictOutOfRange()
	w.enqueue()
	w.admitMesh()
}

// Regenerate drops every chunk and in-flight task. The next Tick starts
// over with g, or with the current generator when g is nil.
func (w *World) Regenerate(g gen.Generator) {
	for c, e := range w.entries {
		if e.state == Visible {
			w.sink.Hide(c)
		}
	}
	dropped := len(w.entries)
	w.entries = make(map[chunk.Coord]*entry)
	w.tasks = nil
	w.epoch++
	if g != nil {
		w.gen = g
	}
	w.log.Info("world regenerated", "epoch", w.epoch, "dropped", dropped)
}

func (w *World) poll() {
	pending := w.tasks[:0]
	for _, t := range w.tasks {
		switch t.kind {
		case kindGenerate:
			c, ok := t.gen.TryComplete()
			if !ok {
				pending = append(pending, t)
				continue
			}
			w.finishGenerate(t, c)
		case kindMesh:
			m, ok := t.mesh.TryComplete()
			if !ok {
				pending = append(pending, t)
				continue
			}
			w.finishMesh(t, m)
		}
	}
	clear(w.tasks[len(pending):])
	w.tasks = pending
}

// current returns the entry a task result belongs to, or nil when the
// result is stale.
func (w *World) current(t *inflight, want State) *entry {
	e, ok := w.entries[t.coord]
	var reason string
	switch {
	case !ok:
		reason = "evicted"
	case e.serial != t.serial:
		reason = "replaced"
	case e.state != want:
		reason = "state " + e.state.String()
	default:
		return e
	}
	w.log.Debug("discarding stale result", "coord", t.coord, "task", t.kind, "reason", reason)
	return nil
}

func (w *World) finishGenerate(t *inflight, c *chunk.Chunk) {
	e := w.current(t, Generating)
	if e == nil {
		return
	}
	e.chunk = c
	e.state = DensityReady
	e.missing = 0

	for _, d := range block.Directions {
		n, ok := w.entries[t.coord.Neighbor(d)]
		if !ok || !n.state.ready() {
			e.missing++
			continue
		}
		if n.state == DensityReady {
			n.missing--
			if n.missing == 0 {
				n.state = MeshPending
			}
		}
	}
	if e.missing == 0 {
		e.state = MeshPending
	}
	w.log.Debug("chunk generated", "coord", t.coord, "missing", e.missing)
}

func (w *World) finishMesh(t *inflight, m *mesh.Mesh) {
	e := w.current(t, Meshing)
	if e == nil {
		return
	}
	e.mesh = m
	e.state = Visible
	w.sink.Show(t.coord, t.coord.Origin(), m)
	w.log.Debug("chunk meshed", "coord", t.coord, "triangles", m.TriangleCount())
}

func (w *World) evictOutOfRange() {
	for c, e := range w.entries {
		d := c.Distance(w.center)
		switch e.state {
		case Visible:
			if d > w.viewDistance {
				w.evict(c)
			}
		case DensityReady, MeshPending:
			if d > w.viewDistance+1 {
				w.evict(c)
			}
		}
	}
}

// evict removes the entry at c, if any. Ready neighbours still waiting to
// mesh count it as missing again.
func (w *World) evict(c chunk.Coord) {
	e, ok := w.entries[c]
	if !ok {
		return
	}
	delete(w.entries, c)

	if e.state.ready() {
		for _, d := range block.Directions {
			n, ok := w.entries[c.Neighbor(d)]
			if !ok {
				continue
			}
			switch n.state {
			case MeshPending:
				n.state = DensityReady
				n.missing = 1
			case DensityReady:
				n.missing++
			}
		}
	}
	if e.state == Visible {
		w.sink.Hide(c)
	}
	w.log.Debug("chunk evicted", "coord", c, "state", e.state)
}

func (w *World) enqueue() {
	shells(w.center, w.viewDistance+1, func(c chunk.Coord) bool {
		if _, ok := w.entries[c]; !ok {
			w.spawnGenerate(c)
		}
		return true
	})
}

func (w *World) spawnGenerate(c chunk.Coord) {
	w.serial++
	w.entries[c] = &entry{serial: w.serial, state: Generating}

	g := w.gen
	w.tasks = append(w.tasks, &inflight{
		coord:  c,
		serial: w.serial,
		kind:   kindGenerate,
		gen:    Spawn(w.pool, func() *chunk.Chunk { return g.Generate(c) }),
	})
}

// admitMesh starts meshing the nearest MeshPending chunk within view.
func (w *World) admitMesh() {
	shells(w.center, w.viewDistance, func(c chunk.Coord) bool {
		e, ok := w.entries[c]
		if !ok || e.state != MeshPending {
			return true
		}
		w.spawnMesh(c, e)
		return false
	})
}

func (w *World) spawnMesh(c chunk.Coord, e *entry) {
	var borders chunk.Neighbors
	for _, d := range block.Directions {
		n, ok := w.entries[c.Neighbor(d)]
		if !ok || !n.state.ready() {
			panic(fmt.Sprintf("world: meshing %v before neighbour %s is ready", c, d))
		}
		borders[d] = n.border(d.Inverse(), w.reg)
	}
	e.state = Meshing

	data, reg := e.chunk, w.reg
	w.tasks = append(w.tasks, &inflight{
		coord:  c,
		serial: e.serial,
		kind:   kindMesh,
		mesh:   Spawn(w.pool, func() *mesh.Mesh { return data.Mesh(reg, borders) }),
	})
	w.log.Debug("chunk meshing", "coord", c)
}

// State returns the lifecycle state of the chunk at c.
func (w *World) State(c chunk.Coord) State {
	if e, ok := w.entries[c]; ok {
		return e.state
	}
	return Unloaded
}

// Mesh returns the geometry of a visible chunk, or nil.
func (w *World) Mesh(c chunk.Coord) *mesh.Mesh {
	if e, ok := w.entries[c]; ok && e.state == Visible {
		return e.mesh
	}
	return nil
}

// EachVisible calls fn for every visible chunk.
func (w *World) EachVisible(fn func(c chunk.Coord, m *mesh.Mesh)) {
	for c, e := range w.entries {
		if e.state == Visible {
			fn(c, e.mesh)
		}
	}
}

// Stats summarizes the scheduler.
type Stats struct {
	Epoch        uint64        `json:"epoch"`
	Center       chunk.Coord   `json:"center"`
	ViewDistance int           `json:"view_distance"`
	Entries      int           `json:"entries"`
	InFlight     int           `json:"in_flight"`
	States       map[State]int `json:"states"`
}

// Stats returns entry counts per state and the number of in-flight tasks.
func (w *World) Stats() Stats {
	s := Stats{
		Epoch:        w.epoch,
		Center:       w.center,
		ViewDistance: w.viewDistance,
		Entries:      len(w.entries),
		InFlight:     len(w.tasks),
		States:       make(map[State]int),
	}
	for _, e := range w.entries {
		s.States[e.state]++
	}
	return s
}
