package world

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/OCharnyshevich/voxel-terrain/internal/server/world/block"
	"github.com/OCharnyshevich/voxel-terrain/internal/server/world/chunk"
	"github.com/OCharnyshevich/voxel-terrain/internal/server/world/gen"
	"github.com/OCharnyshevich/voxel-terrain/internal/server/world/mesh"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRegistry(t *testing.T) (*block.Registry, gen.Palette) {
	t.Helper()
	var tex [6]mesh.UVRect
	for i := range tex {
		tex[i] = mesh.UVRect{Max: mgl32.Vec2{1, 1}}
	}
	cube := []block.Cube{block.FullCube(tex)}
	reg, err := block.NewRegistry([]block.Definition{
		{Name: "air"},
		{Name: "stone", Opaque: true, Cubes: cube},
		{Name: "dirt", Opaque: true, Cubes: cube},
		{Name: "grass", Opaque: true, Cubes: cube},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	pal, err := gen.NewPalette(reg)
	if err != nil {
		t.Fatalf("NewPalette: %v", err)
	}
	return reg, pal
}

func testPool(t *testing.T, workers int) *Pool {
	t.Helper()
	p := NewPool(context.Background(), workers)
	t.Cleanup(p.Close)
	return p
}

// recordSink remembers what the world showed and hid.
type recordSink struct {
	shown map[chunk.Coord]*mesh.Mesh
	shows map[chunk.Coord]int
	hides map[chunk.Coord]int
}

func newRecordSink() *recordSink {
	return &recordSink{
		shown: make(map[chunk.Coord]*mesh.Mesh),
		shows: make(map[chunk.Coord]int),
		hides: make(map[chunk.Coord]int),
	}
}

func (s *recordSink) Show(c chunk.Coord, origin mgl32.Vec3, m *mesh.Mesh) {
	s.shown[c] = m
	s.shows[c]++
}

func (s *recordSink) Hide(c chunk.Coord) {
	delete(s.shown, c)
	s.hides[c]++
}

// gatedGenerator blocks each coordinate until it is released. Create it
// after the pool so its cleanup releases workers before the pool closes.
type gatedGenerator struct {
	inner gen.Generator

	mu    sync.Mutex
	gates map[chunk.Coord]chan struct{}
	all   bool
}

func newGatedGenerator(t *testing.T, inner gen.Generator) *gatedGenerator {
	g := &gatedGenerator{inner: inner, gates: make(map[chunk.Coord]chan struct{})}
	t.Cleanup(g.releaseAll)
	return g
}

func (g *gatedGenerator) gate(c chunk.Coord) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[c]
	if !ok {
		ch = make(chan struct{})
		if g.all {
			close(ch)
		}
		g.gates[c] = ch
	}
	return ch
}

func (g *gatedGenerator) release(c chunk.Coord) {
	ch := g.gate(c)
	g.mu.Lock()
	defer g.mu.Unlock()
	select {
	case <-ch:
	default:
		close(ch)
	}
}

func (g *gatedGenerator) releaseAll() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.all = true
	for _, ch := range g.gates {
		select {
		case <-ch:
		default:
			close(ch)
		}
	}
}

func (g *gatedGenerator) Generate(c chunk.Coord) *chunk.Chunk {
	<-g.gate(c)
	return g.inner.Generate(c)
}

// tickUntil ticks w at the origin until cond holds or the deadline passes.
func tickUntil(t *testing.T, w *World, vd int, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(30 * time.Second)
	for {
		w.Tick(mgl32.Vec3{}, vd)
		if cond() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("condition not reached; stats %+v", w.Stats())
		}
		time.Sleep(time.Millisecond)
	}
}

// settled reports whether every chunk within vd of the centre is visible
// and nothing is in flight.
func settled(w *World, vd int) func() bool {
	return func() bool {
		if len(w.tasks) != 0 {
			return false
		}
		done := true
		shells(w.center, vd, func(c chunk.Coord) bool {
			done = w.State(c) == Visible
			return done
		})
		return done
	}
}

func TestShellOrder(t *testing.T) {
	seen := make(map[chunk.Coord]bool)
	prev := 0
	shells(chunk.Coord{X: 1, Y: 2, Z: 3}, 3, func(c chunk.Coord) bool {
		d := c.Distance(chunk.Coord{X: 1, Y: 2, Z: 3})
		if d < prev {
			t.Fatalf("%v at distance %d visited after distance %d", c, d, prev)
		}
		if seen[c] {
			t.Fatalf("%v visited twice", c)
		}
		seen[c] = true
		prev = d
		return true
	})
	if len(seen) != 7*7*7 {
		t.Errorf("visited %d coordinates, want %d", len(seen), 7*7*7)
	}

	var first []chunk.Coord
	shell(chunk.Coord{}, 1, func(c chunk.Coord) bool {
		first = append(first, c)
		return len(first) < 5
	})
	if len(first) != 5 {
		t.Errorf("early stop visited %d, want 5", len(first))
	}
}

func TestTaskTryComplete(t *testing.T) {
	p := testPool(t, 1)
	release := make(chan struct{})
	task := Spawn(p, func() int {
		<-release
		return 42
	})
	if _, ok := task.TryComplete(); ok {
		t.Fatal("task completed before it ran")
	}
	close(release)

	deadline := time.Now().Add(5 * time.Second)
	for {
		if v, ok := task.TryComplete(); ok {
			if v != 42 {
				t.Fatalf("result = %d, want 42", v)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("task never completed")
		}
		time.Sleep(time.Millisecond)
	}
	if _, ok := task.TryComplete(); ok {
		t.Error("result delivered twice")
	}
}

func TestPoolDefaultsToGOMAXPROCS(t *testing.T) {
	if p := testPool(t, 0); p.Workers() < 1 {
		t.Errorf("Workers = %d", p.Workers())
	}
}

func TestWorldEndToEnd(t *testing.T) {
	reg, pal := testRegistry(t)
	p := gen.DefaultParams()
	p.NoiseOctaves = 2
	g, err := gen.NewDefaultGenerator(p, pal)
	if err != nil {
		t.Fatal(err)
	}
	sink := newRecordSink()
	w := New(reg, g, testPool(t, 0), sink, testLogger())

	tickUntil(t, w, 1, settled(w, 1))

	visible := 0
	shells(chunk.Coord{}, 1, func(c chunk.Coord) bool {
		e := w.entries[c]
		if e.state != Visible {
			t.Errorf("%v: state %s, want visible", c, e.state)
			return true
		}
		visible++
		if sink.shows[c] != 1 {
			t.Errorf("%v shown %d times", c, sink.shows[c])
		}
		_, uniform := e.chunk.Uniform()
		if !uniform && w.Mesh(c).Empty() {
			t.Errorf("%v has a solid/air boundary but no geometry", c)
		}
		return true
	})
	if visible != 27 {
		t.Errorf("visible = %d, want 27", visible)
	}

	// The margin shell is generated but never meshed.
	for c, e := range w.entries {
		if c.Distance(chunk.Coord{}) == 2 && (e.state == Visible || e.state == Meshing) {
			t.Errorf("margin chunk %v is %s", c, e.state)
		}
	}
	if n := len(w.entries); n != 5*5*5 {
		t.Errorf("entries = %d, want %d", n, 5*5*5)
	}
}

func TestWorldFlatMeshes(t *testing.T) {
	reg, pal := testRegistry(t)
	sink := newRecordSink()
	w := New(reg, gen.NewFlatGenerator(0, 3, pal), testPool(t, 0), sink, testLogger())

	tickUntil(t, w, 1, settled(w, 1))

	for _, c := range []chunk.Coord{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: -1}} {
		if got := w.Mesh(c).VertexCount(); got != chunk.Size*chunk.Size*4 {
			t.Errorf("%v: %d vertices, want one grass top per column", c, got)
		}
	}
	// Buried and empty chunks produce no geometry.
	for _, c := range []chunk.Coord{{X: 0, Y: -1, Z: 0}, {X: -1, Y: 1, Z: 1}} {
		if !w.Mesh(c).Empty() {
			t.Errorf("%v: expected empty mesh, got %d triangles", c, w.Mesh(c).TriangleCount())
		}
	}
}

func TestWorldDependencyClosure(t *testing.T) {
	reg, pal := testRegistry(t)
	pool := testPool(t, 64)
	g := newGatedGenerator(t, gen.NewFlatGenerator(0, 3, pal))
	sink := newRecordSink()
	w := New(reg, g, pool, sink, testLogger())

	center := chunk.Coord{}
	w.Tick(mgl32.Vec3{}, 0)
	if n := len(w.entries); n != 27 {
		t.Fatalf("entries = %d, want 27", n)
	}

	g.release(center)
	tickUntil(t, w, 0, func() bool { return w.State(center) != Generating })
	if s := w.State(center); s != DensityReady {
		t.Fatalf("center state %s, want density_ready", s)
	}
	if m := w.entries[center].missing; m != 6 {
		t.Fatalf("missing = %d, want 6", m)
	}

	for i, d := range block.Directions {
		n := center.Neighbor(d)
		g.release(n)
		tickUntil(t, w, 0, func() bool { return w.State(n) != Generating })

		want := 5 - i
		if want > 0 {
			if s := w.State(center); s != DensityReady {
				t.Fatalf("after %d neighbours center is %s", i+1, s)
			}
			if m := w.entries[center].missing; m != want {
				t.Fatalf("after %d neighbours missing = %d, want %d", i+1, m, want)
			}
		}
	}

	// The last neighbour made the center eligible; the same tick admitted it.
	if s := w.State(center); s != Meshing && s != Visible {
		t.Fatalf("center state %s after all neighbours", s)
	}
	tickUntil(t, w, 0, func() bool { return w.State(center) == Visible })
	if sink.shows[center] != 1 {
		t.Errorf("center shown %d times, want 1", sink.shows[center])
	}

	// Face neighbours lack their own outer neighbours and keep waiting.
	if s := w.State(chunk.Coord{X: 1, Y: 0, Z: 0}); s != DensityReady {
		t.Errorf("neighbour state %s, want density_ready", s)
	}
}

func TestWorldMeshesOnePerTick(t *testing.T) {
	reg, pal := testRegistry(t)
	w := New(reg, gen.NewFlatGenerator(0, 3, pal), testPool(t, 0), NopSink{}, testLogger())

	for _, c := range []chunk.Coord{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}} {
		w.entries[c] = &entry{serial: 1, state: MeshPending, chunk: chunk.New(0)}
	}
	// Surround them with ready neighbours so meshing may start.
	shells(chunk.Coord{}, 2, func(c chunk.Coord) bool {
		if _, ok := w.entries[c]; !ok {
			w.entries[c] = &entry{serial: 1, state: DensityReady, chunk: chunk.New(0), missing: 1}
		}
		return true
	})

	w.Tick(mgl32.Vec3{}, 1)
	if s := w.State(chunk.Coord{}); s != Meshing {
		t.Errorf("nearest pending chunk is %s, want meshing", s)
	}
	if n := w.Stats().States[Meshing]; n != 1 {
		t.Errorf("%d chunks meshing after one tick, want 1", n)
	}
}

func TestWorldStaleResultsDiscarded(t *testing.T) {
	reg, pal := testRegistry(t)
	sink := newRecordSink()
	w := New(reg, gen.NewFlatGenerator(0, 3, pal), testPool(t, 0), sink, testLogger())

	c := chunk.Coord{X: 2, Y: 0, Z: 0}
	w.entries[c] = &entry{serial: 7, state: Generating}

	// Result for an older incarnation of the coordinate.
	w.finishGenerate(&inflight{coord: c, serial: 6, kind: kindGenerate}, chunk.New(1))
	if e := w.entries[c]; e.state != Generating || e.chunk != nil {
		t.Errorf("stale generate result applied: %s", e.state)
	}

	// Result for a coordinate that no longer exists.
	gone := chunk.Coord{X: 9, Y: 9, Z: 9}
	w.finishGenerate(&inflight{coord: gone, serial: 3, kind: kindGenerate}, chunk.New(1))
	if _, ok := w.entries[gone]; ok {
		t.Error("stale result recreated an entry")
	}

	// Mesh result for an entry that is not meshing.
	w.finishMesh(&inflight{coord: c, serial: 7, kind: kindMesh}, mesh.New(0))
	if e := w.entries[c]; e.state != Generating || e.mesh != nil {
		t.Errorf("mesh result applied to %s entry", e.state)
	}
	if len(sink.shows) != 0 {
		t.Errorf("stale mesh shown: %v", sink.shows)
	}

	w.finishGenerate(&inflight{coord: c, serial: 7, kind: kindGenerate}, chunk.New(1))
	if s := w.State(c); s != DensityReady {
		t.Errorf("current result not applied: %s", s)
	}
}

func TestWorldEvictionIdempotent(t *testing.T) {
	reg, pal := testRegistry(t)
	sink := newRecordSink()
	w := New(reg, gen.NewFlatGenerator(0, 3, pal), testPool(t, 0), sink, testLogger())
	tickUntil(t, w, 1, settled(w, 1))

	c := chunk.Coord{X: 1, Y: 0, Z: 0}
	waiting := chunk.Coord{X: 2, Y: 0, Z: 0}
	before := w.entries[waiting].missing

	w.evict(c)
	w.evict(c)

	if _, ok := w.entries[c]; ok {
		t.Fatal("entry still present")
	}
	if sink.hides[c] != 1 {
		t.Errorf("hidden %d times, want 1", sink.hides[c])
	}
	if got := w.entries[waiting].missing; got != before+1 {
		t.Errorf("neighbour missing = %d, want %d", got, before+1)
	}
}

func TestWorldEvictionReturnsPendingNeighbour(t *testing.T) {
	reg, pal := testRegistry(t)
	w := New(reg, gen.NewFlatGenerator(0, 3, pal), testPool(t, 0), NopSink{}, testLogger())

	a, b := chunk.Coord{}, chunk.Coord{X: 0, Y: 1, Z: 0}
	w.entries[a] = &entry{serial: 1, state: MeshPending, chunk: chunk.New(0)}
	w.entries[b] = &entry{serial: 2, state: DensityReady, chunk: chunk.New(0), missing: 3}

	w.evict(b)
	if e := w.entries[a]; e.state != DensityReady || e.missing != 1 {
		t.Errorf("pending neighbour: state %s missing %d, want density_ready 1", e.state, e.missing)
	}
}

func TestWorldObserverMoves(t *testing.T) {
	reg, pal := testRegistry(t)
	sink := newRecordSink()
	w := New(reg, gen.NewFlatGenerator(0, 3, pal), testPool(t, 0), sink, testLogger())
	tickUntil(t, w, 1, settled(w, 1))

	far := mgl32.Vec3{10 * chunk.Size, 0, 0}
	w.Tick(far, 1)

	if len(sink.shown) != 0 {
		t.Errorf("%d chunks still shown after moving away", len(sink.shown))
	}
	for c, e := range w.entries {
		if d := c.Distance(chunk.Coord{X: 10, Y: 0, Z: 0}); d > 2 {
			t.Errorf("entry %v (%s) at distance %d survived", c, e.state, d)
		}
	}
}

func TestWorldRegenerateDeterministic(t *testing.T) {
	reg, pal := testRegistry(t)
	p := gen.DefaultParams()
	p.NoiseOctaves = 2
	g, err := gen.NewDefaultGenerator(p, pal)
	if err != nil {
		t.Fatal(err)
	}
	sink := newRecordSink()
	w := New(reg, g, testPool(t, 0), sink, testLogger())

	tickUntil(t, w, 1, settled(w, 1))
	first := make(map[chunk.Coord]*mesh.Mesh)
	w.EachVisible(func(c chunk.Coord, m *mesh.Mesh) { first[c] = m })
	if len(first) != 27 {
		t.Fatalf("visible = %d, want 27", len(first))
	}

	w.Regenerate(nil)
	if len(w.entries) != 0 || len(w.tasks) != 0 {
		t.Fatalf("after regenerate: %d entries, %d tasks", len(w.entries), len(w.tasks))
	}
	if len(sink.shown) != 0 {
		t.Errorf("%d chunks still shown after regenerate", len(sink.shown))
	}
	if st := w.Stats(); st.Epoch != 1 {
		t.Errorf("epoch = %d, want 1", st.Epoch)
	}

	tickUntil(t, w, 1, settled(w, 1))
	for c, m := range first {
		if !reflect.DeepEqual(m, w.Mesh(c)) {
			t.Errorf("%v: geometry differs after regenerate", c)
		}
	}
}

func TestWorldRegenerateDropsInFlight(t *testing.T) {
	reg, pal := testRegistry(t)
	pool := testPool(t, 64)
	g := newGatedGenerator(t, gen.NewFlatGenerator(0, 3, pal))
	w := New(reg, g, pool, NopSink{}, testLogger())

	w.Tick(mgl32.Vec3{}, 0)
	if st := w.Stats(); st.InFlight != 27 || st.States[Generating] != 27 {
		t.Fatalf("stats %+v", st)
	}

	flat := gen.NewFlatGenerator(-40, 3, pal)
	w.Regenerate(flat)
	if st := w.Stats(); st.InFlight != 0 || st.Entries != 0 {
		t.Fatalf("after regenerate: %+v", st)
	}
	g.releaseAll()

	tickUntil(t, w, 0, settled(w, 0))
	// The new generator puts the surface far below, so the origin is air.
	if id, ok := w.entries[chunk.Coord{}].chunk.Uniform(); !ok || id != 0 {
		t.Errorf("origin chunk built by the old generator")
	}
}

func TestStatsJSONStateKeys(t *testing.T) {
	in := Stats{States: map[State]int{Visible: 3, DensityReady: 1}}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	var out Stats
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal %s: %v", data, err)
	}
	if !reflect.DeepEqual(in.States, out.States) {
		t.Fatalf("states = %v, want %v", out.States, in.States)
	}

	var s State
	if err := s.UnmarshalText([]byte("bogus")); err == nil {
		t.Fatal("expected error for unknown state")
	}
}
