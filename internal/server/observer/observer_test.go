package observer

import (
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/OCharnyshevich/voxel-terrain/internal/server/world/chunk"
	"github.com/OCharnyshevich/voxel-terrain/internal/server/world/gen"
)

func TestViewDistanceClamp(t *testing.T) {
	o := New(mgl32.Vec3{}, mgl32.Vec3{}, 20, 8)
	if got := o.ViewDistance(); got != 8 {
		t.Errorf("initial view distance = %d, want 8", got)
	}

	tests := []struct {
		in, want int
	}{
		{3, 3},
		{-1, 0},
		{100, 8},
	}
	for _, tt := range tests {
		if got := o.SetViewDistance(tt.in); got != tt.want {
			t.Errorf("SetViewDistance(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestAdvance(t *testing.T) {
	o := New(mgl32.Vec3{1, 2, 3}, mgl32.Vec3{4, 0, -8}, 2, 8)
	o.Advance(500 * time.Millisecond)
	if got := o.Position(); got != (mgl32.Vec3{3, 2, -1}) {
		t.Errorf("position = %v, want [3 2 -1]", got)
	}
	if got := o.Chunk(); got != (chunk.Coord{X: 0, Y: 0, Z: -1}) {
		t.Errorf("chunk = %v", got)
	}
}

func TestInViewDistance(t *testing.T) {
	o := New(mgl32.Vec3{40, 0, 0}, mgl32.Vec3{}, 2, 8)

	tests := []struct {
		c    chunk.Coord
		want bool
	}{
		{chunk.Coord{X: 1, Y: 0, Z: 0}, true},
		{chunk.Coord{X: 3, Y: 2, Z: -1}, true},
		{chunk.Coord{X: 4, Y: 0, Z: 0}, false},
		{chunk.Coord{X: 1, Y: -3, Z: 0}, false},
	}
	for _, tt := range tests {
		if got := o.InViewDistance(tt.c); got != tt.want {
			t.Errorf("InViewDistance(%v) = %v, want %v", tt.c, got, tt.want)
		}
	}
}

func TestRegenerateEdge(t *testing.T) {
	o := New(mgl32.Vec3{}, mgl32.Vec3{}, 2, 8)
	if _, ok := o.TakeRegenerate(); ok {
		t.Fatal("regenerate pending on a fresh observer")
	}

	p := gen.DefaultParams()
	p.Seed = 5
	o.RequestRegenerate(&p)
	p.Seed = 9
	o.RequestRegenerate(&p)
	o.RequestRegenerate(nil)

	got, ok := o.TakeRegenerate()
	if !ok {
		t.Fatal("request lost")
	}
	if got == nil || got.Seed != 9 {
		t.Errorf("params = %+v, want latest seed 9", got)
	}
	if _, ok := o.TakeRegenerate(); ok {
		t.Error("request delivered twice")
	}
}

func TestObserverConcurrentAccess(t *testing.T) {
	o := New(mgl32.Vec3{}, mgl32.Vec3{1, 0, 0}, 2, 8)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				o.SetPosition(mgl32.Vec3{float32(i), 0, float32(j)})
				o.SetViewDistance(j % 10)
				o.Advance(time.Millisecond)
				o.RequestRegenerate(nil)
				_ = o.InViewDistance(chunk.Coord{})
				o.TakeRegenerate()
			}
		}(i)
	}
	wg.Wait()
}
