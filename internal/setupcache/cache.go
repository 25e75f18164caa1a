// Package setupcache implements the setup-data cache that maps a
// (circuit_id, round) key to its immutable proving-setup artifact, either
// loaded once into memory at startup or loaded from disk on every lookup.
// The in-memory mode is backed by an LRU cache (hashicorp/golang-lru/v2) in
// front of disk-backed artifacts; the disk mode reads constraint systems and
// keys directly from their file-based persistence layout.
package setupcache

import (
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/zkrollup/prover-coordinator/log"
	"github.com/zkrollup/prover-coordinator/types"
)

// ErrSetupMissing is returned by Lookup when no setup data is registered for
// a normalized key. In FromMemory mode this means the key was never part of
// the configured specialized group; in FromDisk mode it means the on-disk
// loader could not find the artifact.
var ErrSetupMissing = errors.New("setup data missing for circuit key")

// Loader reads a SetupData artifact for key from durable storage (disk,
// object storage, ...). Loader is the seam callers plug their own
// key-loading format in at.
type Loader interface {
	Load(key types.CircuitKey) (*types.SetupData, error)
}

// Mode selects how the cache populates itself.
type Mode int

const (
	// FromMemory enumerates and loads every CircuitKey of the specialized
	// group once at startup; Lookup never touches disk again.
	FromMemory Mode = iota
	// FromDisk loads on every Lookup call, timed for metrics, and returns a
	// freshly shared handle each time.
	FromDisk
)

// Cache is the setup-data cache. Setup data is always shared read-only;
// once inserted (FromMemory) or loaded (FromDisk) it is never mutated.
type Cache struct {
	mode   Mode
	loader Loader
	// memory holds the immutable mapping populated once for FromMemory mode,
	// sized exactly to the group so nothing is ever evicted: FromMemory
	// never re-loads.
	memory *lru.Cache[types.CircuitKey, *types.SetupData]
}

// NewFromMemory enumerates keys via loader.Load for every key in group and
// populates an immutable in-memory mapping. Each key is normalized before
// lookup and storage.
func NewFromMemory(loader Loader, group []types.CircuitKey) (*Cache, error) {
	size := len(group)
	if size == 0 {
		size = 1
	}
	memory, err := lru.New[types.CircuitKey, *types.SetupData](size)
	if err != nil {
		return nil, fmt.Errorf("create setup data cache: %w", err)
	}

	for _, key := range group {
		normalized := key.Normalize()
		if _, ok := memory.Get(normalized); ok {
			continue // NodeAggregation keys collapse onto one shared entry
		}
		start := time.Now()
		data, err := loader.Load(normalized)
		if err != nil {
			return nil, fmt.Errorf("load setup data for %s: %w", normalized, err)
		}
		log.Infow("loaded setup data into memory", "key", normalized.String(), "took", time.Since(start).String())
		memory.Add(normalized, data)
	}
	return &Cache{mode: FromMemory, loader: loader, memory: memory}, nil
}

// NewFromDisk returns a cache that loads from loader on every Lookup call.
func NewFromDisk(loader Loader) *Cache {
	return &Cache{mode: FromDisk, loader: loader}
}

// Lookup normalizes key via the NodeAggregation rule and returns its shared
// SetupData. In FromMemory mode a miss is ErrSetupMissing; in FromDisk mode
// every call loads (and times) a fresh copy, never touching the memory LRU.
func (c *Cache) Lookup(key types.CircuitKey) (*types.SetupData, error) {
	normalized := key.Normalize()

	if c.mode == FromMemory {
		data, ok := c.memory.Get(normalized)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrSetupMissing, normalized)
		}
		return data, nil
	}

	start := time.Now()
	data, err := c.loader.Load(normalized)
	log.Debugw("loaded setup data from disk", "key", normalized.String(), "took", time.Since(start).String())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSetupMissing, normalized, err)
	}
	return data, nil
}
