package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/OCharnyshevich/voxel-terrain/internal/server/assets"
	"github.com/OCharnyshevich/voxel-terrain/internal/server/bridge"
	"github.com/OCharnyshevich/voxel-terrain/internal/server/config"
	"github.com/OCharnyshevich/voxel-terrain/internal/server/observer"
	"github.com/OCharnyshevich/voxel-terrain/internal/server/storage"
	"github.com/OCharnyshevich/voxel-terrain/internal/server/world"
	"github.com/OCharnyshevich/voxel-terrain/internal/server/world/gen"
)

const shutdownTimeout = 5 * time.Second

// Server runs the chunk scheduler and serves viewers over HTTP.
type Server struct {
	cfg      *config.Config
	log      *slog.Logger
	pack     *assets.Pack
	palette  gen.Palette
	gen      gen.Generator
	observer *observer.Observer
	bridge   *bridge.Bridge

	// Published by the driver for the bridge's goroutines.
	terrain atomic.Pointer[gen.Params]
	stats   atomic.Pointer[world.Stats]

	addr  atomic.Pointer[net.TCPAddr]
	ready chan struct{}
}

// New loads the block pack and builds the generator described by cfg.
func New(cfg *config.Config, store *storage.Storage, log *slog.Logger) (*Server, error) {
	pack, err := store.LoadPack(cfg.BlockPack)
	if err != nil {
		return nil, err
	}
	palette, err := gen.NewPalette(pack.Registry)
	if err != nil {
		return nil, fmt.Errorf("block pack: %w", err)
	}
	generator, err := gen.New(cfg.GeneratorType, cfg.Terrain, palette)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:      cfg,
		log:      log,
		pack:     pack,
		palette:  palette,
		gen:      generator,
		observer: observer.New(cfg.Observer.Position, cfg.Observer.Velocity, cfg.ViewDistance, cfg.MaxViewDistance),
		ready:    make(chan struct{}),
	}
	terrain := cfg.Terrain
	s.terrain.Store(&terrain)

	s.bridge, err = bridge.New(bridge.Options{
		Observer: s.observer,
		Terrain:  s.Terrain,
		Status:   func() any { return s.Stats() },
	}, log)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Terrain returns the generation parameters of the current world.
func (s *Server) Terrain() gen.Params {
	return *s.terrain.Load()
}

// Stats returns the scheduler summary published by the last tick.
func (s *Server) Stats() *world.Stats {
	return s.stats.Load()
}

// Ready is closed once the listener is bound.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound listener address, or nil before Ready.
func (s *Server) Addr() *net.TCPAddr {
	return s.addr.Load()
}

// Start runs the driver loop and the HTTP listener, blocking until ctx is
// cancelled or either fails.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	lc := net.ListenConfig{}
	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	s.addr.Store(listener.Addr().(*net.TCPAddr))
	close(s.ready)

	pool := world.NewPool(ctx, s.cfg.Workers)
	defer pool.Close()
	w := s.newWorld(pool)

	httpSrv := &http.Server{
		Handler:           s.bridge.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.log.Info("server started",
		"addr", listener.Addr().String(),
		"generator", s.cfg.GeneratorType,
		"seed", s.cfg.Terrain.Seed,
		"viewDistance", s.cfg.ViewDistance,
		"workers", pool.Workers(),
		"blocks", s.pack.Registry.Len(),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.drive(gctx, w)
	})
	g.Go(func() error {
		if err := httpSrv.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.bridge.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	s.log.Info("server shutting down")
	return err
}

func (s *Server) newWorld(pool *world.Pool) *world.World {
	return world.New(s.pack.Registry, s.gen, pool, s.bridge, s.log)
}

// drive ticks the world at the configured rate.
func (s *Server) drive(ctx context.Context, w *world.World) error {
	ticker := time.NewTicker(s.cfg.TickRate)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			s.step(w, now.Sub(last))
			last = now
		}
	}
}

// step is one driver iteration.
func (s *Server) step(w *world.World, dt time.Duration) {
	s.observer.Advance(dt)
	if p, ok := s.observer.TakeRegenerate(); ok {
		s.regenerate(w, p)
	}

	w.Tick(s.observer.Position(), s.observer.ViewDistance())
	s.bridge.Attach(w)

	st := w.Stats()
	s.stats.Store(&st)
}

// regenerate rebuilds the world with p, or with the current parameters
// when p is nil.
func (s *Server) regenerate(w *world.World, p *gen.Params) {
	params := s.Terrain()
	if p != nil {
		params = *p
	}
	g, err := gen.New(s.cfg.GeneratorType, params, s.palette)
	if err != nil {
		s.log.Warn("regenerate rejected", "error", err)
		return
	}
	s.gen = g
	s.terrain.Store(&params)

	w.Regenerate(g)
	s.bridge.Reset(w.Stats().Epoch)
}
