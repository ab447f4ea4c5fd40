// Package bridge streams chunk geometry to remote viewers over WebSocket
// and feeds their observer input back into the server.
package bridge

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/zstd"

	"github.com/OCharnyshevich/voxel-terrain/internal/server/observer"
	"github.com/OCharnyshevich/voxel-terrain/internal/server/world/chunk"
	"github.com/OCharnyshevich/voxel-terrain/internal/server/world/gen"
	"github.com/OCharnyshevich/voxel-terrain/internal/server/world/mesh"
)

const (
	writeWait      = 5 * time.Second
	readWait       = 60 * time.Second
	maxInboundSize = 64 * 1024
)

// Visible lists the chunks currently shown, for replay to new viewers.
type Visible interface {
	EachVisible(fn func(c chunk.Coord, m *mesh.Mesh))
}

// Options wires the bridge to the rest of the server.
type Options struct {
	Observer *observer.Observer
	// Terrain returns the parameters a REGENERATE request patches.
	Terrain func() gen.Params
	// Status is served as JSON on /v1/status.
	Status func() any
	// SendBuffer is the number of frames queued per viewer before it is
	// dropped as too slow.
	SendBuffer int
}

// Bridge implements the world's render sink by broadcasting zstd-compressed
// packets to every attached viewer. Show, Hide, Reset and Attach must be
// called from the driver goroutine.
type Bridge struct {
	opts     Options
	log      *slog.Logger
	upgrader websocket.Upgrader
	enc      *zstd.Encoder

	mu      sync.Mutex
	viewers map[uuid.UUID]*viewer
	pending []*viewer
}

// New creates a bridge.
func New(opts Options, log *slog.Logger) (*Bridge, error) {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 8192
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	return &Bridge{
		opts: opts,
		log:  log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		enc:     enc,
		viewers: make(map[uuid.UUID]*viewer),
	}, nil
}

// Handler serves /v1/ws and /v1/status.
func (b *Bridge) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/ws", b.serveWS)
	mux.HandleFunc("GET /v1/status", b.serveStatus)
	return mux
}

// Show broadcasts a chunk's geometry.
func (b *Bridge) Show(c chunk.Coord, origin mgl32.Vec3, m *mesh.Mesh) {
	if b.Viewers() == 0 {
		return
	}
	pkt, err := EncodeChunkShow(c, origin, m)
	if err != nil {
		b.log.Error("encode chunk", "coord", c, "error", err)
		return
	}
	b.broadcast(pkt)
}

// Hide tells viewers to drop a chunk.
func (b *Bridge) Hide(c chunk.Coord) {
	if b.Viewers() == 0 {
		return
	}
	pkt, err := EncodeChunkHide(c)
	if err != nil {
		b.log.Error("encode chunk hide", "coord", c, "error", err)
		return
	}
	b.broadcast(pkt)
}

// Reset tells viewers the world was regenerated.
func (b *Bridge) Reset(epoch uint64) {
	pkt, err := EncodeReset(epoch)
	if err != nil {
		b.log.Error("encode reset", "error", err)
		return
	}
	b.broadcast(pkt)
}

// Attach replays every visible chunk to viewers that connected since the
// last call and starts broadcasting to them.
func (b *Bridge) Attach(w Visible) {
	b.mu.Lock()
	pending := b.pending
	b.pending = nil
	b.mu.Unlock()
	if len(pending) == 0 {
		return
	}

	var frames [][]byte
	w.EachVisible(func(c chunk.Coord, m *mesh.Mesh) {
		pkt, err := EncodeChunkShow(c, c.Origin(), m)
		if err != nil {
			b.log.Error("encode chunk", "coord", c, "error", err)
			return
		}
		frames = append(frames, b.enc.EncodeAll(pkt, nil))
	})

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, v := range pending {
		if v.isClosed() {
			continue
		}
		ok := true
		for _, f := range frames {
			if ok = v.enqueue(f); !ok {
				break
			}
		}
		if !ok {
			b.log.Warn("viewer too slow for replay", "session", v.id, "chunks", len(frames))
			v.close()
			continue
		}
		b.viewers[v.id] = v
		b.log.Info("viewer attached", "session", v.id, "chunks", len(frames))
	}
}

// Viewers returns the number of attached viewers.
func (b *Bridge) Viewers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.viewers)
}

// Close disconnects every viewer.
func (b *Bridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, v := range b.viewers {
		v.close()
		delete(b.viewers, id)
	}
	for _, v := range b.pending {
		v.close()
	}
	b.pending = nil
}

func (b *Bridge) broadcast(pkt []byte) {
	msg := b.enc.EncodeAll(pkt, nil)

	b.mu.Lock()
	defer b.mu.Unlock()
	for id, v := range b.viewers {
		if !v.enqueue(msg) {
			b.log.Warn("dropping slow viewer", "session", id)
			v.close()
			delete(b.viewers, id)
		}
	}
}

func (b *Bridge) remove(v *viewer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.viewers, v.id)
	for i, p := range b.pending {
		if p == v {
			b.pending = append(b.pending[:i], b.pending[i+1:]...)
			break
		}
	}
}

func (b *Bridge) serveStatus(w http.ResponseWriter, r *http.Request) {
	resp := struct {
		Viewers int `json:"viewers"`
		World   any `json:"world,omitempty"`
	}{Viewers: b.Viewers()}
	if b.opts.Status != nil {
		resp.World = b.opts.Status()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (b *Bridge) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.log.Debug("websocket upgrade", "error", err)
		return
	}
	defer conn.Close()

	v := newViewer(conn, b.opts.SendBuffer)
	hello, _ := json.Marshal(Welcome{Type: "WELCOME", Session: v.id.String(), ChunkSize: chunk.Size})
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, hello); err != nil {
		return
	}

	b.mu.Lock()
	b.pending = append(b.pending, v)
	b.mu.Unlock()
	b.log.Info("viewer connected", "session", v.id, "remote", r.RemoteAddr)

	go v.writePump()
	b.readPump(v)

	v.close()
	b.remove(v)
	b.log.Info("viewer disconnected", "session", v.id)
}

func (b *Bridge) readPump(v *viewer) {
	v.conn.SetReadLimit(maxInboundSize)
	for {
		_ = v.conn.SetReadDeadline(time.Now().Add(readWait))
		typ, data, err := v.conn.ReadMessage()
		if err != nil {
			return
		}
		if typ != websocket.TextMessage {
			continue
		}
		if err := b.handle(data); err != nil {
			b.log.Warn("bad viewer message", "session", v.id, "error", err)
		}
	}
}

func (b *Bridge) handle(data []byte) error {
	var msg Inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	obs := b.opts.Observer

	switch msg.Type {
	case MsgObserver:
		if msg.Pos == nil {
			return fmt.Errorf("%s without pos", msg.Type)
		}
		obs.SetPosition(*msg.Pos)
	case MsgViewDistance:
		if msg.Value == nil {
			return fmt.Errorf("%s without value", msg.Type)
		}
		obs.SetViewDistance(*msg.Value)
	case MsgRegenerate:
		if len(msg.Terrain) == 0 {
			obs.RequestRegenerate(nil)
			return nil
		}
		p := b.opts.Terrain()
		if err := json.Unmarshal(msg.Terrain, &p); err != nil {
			return fmt.Errorf("decode terrain: %w", err)
		}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("terrain: %w", err)
		}
		obs.RequestRegenerate(&p)
	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
	return nil
}

// viewer is one connected websocket client.
type viewer struct {
	id     uuid.UUID
	conn   *websocket.Conn
	send   chan []byte
	closed chan struct{}
	once   sync.Once
}

func newViewer(conn *websocket.Conn, buffer int) *viewer {
	return &viewer{
		id:     uuid.New(),
		conn:   conn,
		send:   make(chan []byte, buffer),
		closed: make(chan struct{}),
	}
}

// enqueue queues msg without blocking. It fails when the queue is full or
// the viewer is gone.
func (v *viewer) enqueue(msg []byte) bool {
	if v.isClosed() {
		return false
	}
	select {
	case v.send <- msg:
		return true
	default:
		return false
	}
}

func (v *viewer) isClosed() bool {
	select {
	case <-v.closed:
		return true
	default:
		return false
	}
}

func (v *viewer) close() {
	v.once.Do(func() { close(v.closed) })
}

func (v *viewer) writePump() {
	defer v.conn.Close()
	for {
		select {
		case <-v.closed:
			_ = v.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
			return
		case msg := <-v.send:
			_ = v.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := v.conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
				v.close()
				return
			}
		}
	}
}
