package relite

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/relite/relite/internal/pager"
)

// EngineConfig holds the tunables an embedder may want to override at
// Open time. Zero values mean "use the built-in default". PageSize exists
// to assert, not to tune: the on-disk page layout is fixed, so any
// non-zero value other than pager.PageSize fails Open with
// ErrUnsupportedPageSize. WALPath, if non-empty, overrides the default
// path+".wal" write-ahead log location Open uses.
type EngineConfig struct {
	PageSize       int    `yaml:"page_size"`
	CacheCapacity  int    `yaml:"cache_capacity"`
	EvictionTarget int    `yaml:"eviction_target"`
	WALPath        string `yaml:"wal_path"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() EngineConfig {
	return EngineConfig{
		PageSize:       pager.PageSize,
		CacheCapacity:  pager.MaxCachedPages,
		EvictionTarget: pager.EvictionTarget,
	}
}

// LoadConfig reads an EngineConfig from a YAML file, filling in defaults
// for any field the file omits.
func LoadConfig(path string) (EngineConfig, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return EngineConfig{}, fmt.Errorf("relite: read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return EngineConfig{}, fmt.Errorf("relite: parse config %s: %w", path, err)
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = pager.PageSize
	}
	if cfg.CacheCapacity <= 0 {
		cfg.CacheCapacity = pager.MaxCachedPages
	}
	if cfg.EvictionTarget <= 0 {
		cfg.EvictionTarget = pager.EvictionTarget
	}
	return cfg, nil
}

// ErrUnsupportedPageSize is returned when an EngineConfig names a page
// size other than the fixed on-disk format's pager.PageSize; the field
// exists so a config file can assert its expectation and fail loudly on
// mismatch rather than silently opening an incompatible database.
var ErrUnsupportedPageSize = errors.New("relite: unsupported page size")

func (cfg EngineConfig) apply(p *pager.Pager) error {
	if cfg.PageSize != 0 && cfg.PageSize != pager.PageSize {
		return ErrUnsupportedPageSize
	}
	p.SetCacheLimits(cfg.CacheCapacity, cfg.EvictionTarget)
	return nil
}
