package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/OCharnyshevich/voxel-terrain/internal/server/assets"
	"github.com/OCharnyshevich/voxel-terrain/internal/server/config"
)

const (
	configFile = "config.yaml"
	packsDir   = "packs"
)

// Storage manages the data directory: the config file and downloaded
// block packs.
type Storage struct {
	dir string
	log *slog.Logger
}

// New creates a new Storage rooted at dir, creating subdirectories as needed.
func New(dir string, log *slog.Logger) (*Storage, error) {
	dirs := []string{
		dir,
		filepath.Join(dir, packsDir),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", d, err)
		}
	}
	return &Storage{dir: dir, log: log}, nil
}

// Dir returns the data directory.
func (s *Storage) Dir() string {
	return s.dir
}

// ConfigPath returns the location of config.yaml.
func (s *Storage) ConfigPath() string {
	return filepath.Join(s.dir, configFile)
}

// LoadConfig reads config.yaml. It reports false without error when the file
// does not exist.
func (s *Storage) LoadConfig() (*config.Config, bool, error) {
	path := s.ConfigPath()
	cfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	s.log.Info("loaded config from file", "path", path)
	return cfg, true, nil
}

// SaveConfig writes cfg to config.yaml atomically.
func (s *Storage) SaveConfig(cfg *config.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return atomicWrite(s.ConfigPath(), data)
}

// PackDir returns where the block pack called name is stored.
func (s *Storage) PackDir(name string) string {
	return filepath.Join(s.dir, packsDir, name)
}

// LoadPack loads the named block pack from the data directory, or the
// embedded pack when name is empty.
func (s *Storage) LoadPack(name string) (*assets.Pack, error) {
	if name == "" {
		s.log.Info("using embedded block pack")
		return assets.Default()
	}
	dir := s.PackDir(name)
	p, err := assets.LoadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("load block pack %s: %w", dir, err)
	}
	s.log.Info("loaded block pack", "path", dir, "blocks", p.Registry.Len())
	return p, nil
}

// atomicWrite writes data using a temp file + rename.
func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
