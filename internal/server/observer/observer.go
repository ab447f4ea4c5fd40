// Package observer holds the viewpoint terrain is streamed around. Viewers
// update it from their connections; the driver loop polls it once per tick.
package observer

import (
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/OCharnyshevich/voxel-terrain/internal/server/world/chunk"
	"github.com/OCharnyshevich/voxel-terrain/internal/server/world/gen"
)

// Observer is safe for concurrent use.
type Observer struct {
	mu              sync.RWMutex
	pos             mgl32.Vec3
	velocity        mgl32.Vec3
	viewDistance    int
	maxViewDistance int

	regenerate bool
	params     *gen.Params
}

// New creates an observer at pos. maxViewDistance caps later
// SetViewDistance calls.
func New(pos, velocity mgl32.Vec3, viewDistance, maxViewDistance int) *Observer {
	o := &Observer{pos: pos, velocity: velocity, maxViewDistance: maxViewDistance}
	o.SetViewDistance(viewDistance)
	return o
}

// Position returns the current world position.
func (o *Observer) Position() mgl32.Vec3 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.pos
}

// SetPosition moves the observer.
func (o *Observer) SetPosition(p mgl32.Vec3) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pos = p
}

// Velocity returns the drift applied by Advance, in blocks per second.
func (o *Observer) Velocity() mgl32.Vec3 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.velocity
}

// SetVelocity changes the drift.
func (o *Observer) SetVelocity(v mgl32.Vec3) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.velocity = v
}

// Advance moves the observer by its velocity over dt.
func (o *Observer) Advance(dt time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pos = o.pos.Add(o.velocity.Mul(float32(dt.Seconds())))
}

// ViewDistance returns the radius in chunks.
func (o *Observer) ViewDistance() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.viewDistance
}

// SetViewDistance clamps n to [0, max] and returns the value applied.
func (o *Observer) SetViewDistance(n int) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.viewDistance = min(max(n, 0), o.maxViewDistance)
	return o.viewDistance
}

// Chunk returns the chunk the observer is in.
func (o *Observer) Chunk() chunk.Coord {
	return chunk.CoordAt(o.Position())
}

// InViewDistance reports whether c is within view of the observer.
func (o *Observer) InViewDistance(c chunk.Coord) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return chunk.CoordAt(o.pos).Distance(c) <= o.viewDistance
}

// RequestRegenerate asks the driver to rebuild the world, with new terrain
// parameters when p is non-nil. Requests made before the driver notices
// collapse into one; the latest parameters win.
func (o *Observer) RequestRegenerate(p *gen.Params) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.regenerate = true
	if p != nil {
		cp := *p
		o.params = &cp
	}
}

// TakeRegenerate reports a pending regenerate request and clears it.
func (o *Observer) TakeRegenerate() (params *gen.Params, ok bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.regenerate {
		return nil, false
	}
	params, o.params = o.params, nil
	o.regenerate = false
	return params, true
}
