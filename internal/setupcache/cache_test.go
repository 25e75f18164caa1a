package setupcache

import (
	"fmt"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/zkrollup/prover-coordinator/types"
)

// stubLoader hands back a distinct *types.SetupData per key and counts how
// many times each key was loaded, so tests can assert load-once behavior.
type stubLoader struct {
	loads map[types.CircuitKey]int
	fail  map[types.CircuitKey]bool
}

func newStubLoader() *stubLoader {
	return &stubLoader{loads: make(map[types.CircuitKey]int), fail: make(map[types.CircuitKey]bool)}
}

func (s *stubLoader) Load(key types.CircuitKey) (*types.SetupData, error) {
	s.loads[key]++
	if s.fail[key] {
		return nil, fmt.Errorf("stub load failure for %s", key)
	}
	return &types.SetupData{Key: key}, nil
}

func TestFromMemory(t *testing.T) {
	c := qt.New(t)

	c.Run("loads every key in the group once", func(c *qt.C) {
		loader := newStubLoader()
		group := []types.CircuitKey{
			{CircuitID: 0, Round: types.BasicCircuits},
			{CircuitID: 0, Round: types.LeafAggregation},
		}
		cache, err := NewFromMemory(loader, group)
		c.Assert(err, qt.IsNil)

		for _, key := range group {
			data, err := cache.Lookup(key)
			c.Assert(err, qt.IsNil)
			c.Assert(data.Key, qt.Equals, key)
		}
		c.Assert(loader.loads[group[0]], qt.Equals, 1)
		c.Assert(loader.loads[group[1]], qt.Equals, 1)
	})

	c.Run("NodeAggregation keys collapse onto one shared load", func(c *qt.C) {
		loader := newStubLoader()
		group := []types.CircuitKey{
			{CircuitID: 1, Round: types.NodeAggregation},
			{CircuitID: 2, Round: types.NodeAggregation},
			{CircuitID: 3, Round: types.NodeAggregation},
		}
		cache, err := NewFromMemory(loader, group)
		c.Assert(err, qt.IsNil)

		normalized := types.CircuitKey{CircuitID: 0, Round: types.NodeAggregation}
		c.Assert(loader.loads[normalized], qt.Equals, 1)

		data, err := cache.Lookup(types.CircuitKey{CircuitID: 2, Round: types.NodeAggregation})
		c.Assert(err, qt.IsNil)
		c.Assert(data.Key, qt.Equals, normalized)
	})

	c.Run("lookup miss for key outside the group returns ErrSetupMissing", func(c *qt.C) {
		loader := newStubLoader()
		group := []types.CircuitKey{{CircuitID: 0, Round: types.BasicCircuits}}
		cache, err := NewFromMemory(loader, group)
		c.Assert(err, qt.IsNil)

		_, err = cache.Lookup(types.CircuitKey{CircuitID: 9, Round: types.Scheduler})
		c.Assert(err, qt.ErrorMatches, "setup data missing for circuit key.*")
	})

	c.Run("loader failure during population propagates", func(c *qt.C) {
		loader := newStubLoader()
		key := types.CircuitKey{CircuitID: 0, Round: types.BasicCircuits}
		loader.fail[key] = true

		_, err := NewFromMemory(loader, []types.CircuitKey{key})
		c.Assert(err, qt.ErrorMatches, ".*stub load failure.*")
	})
}

func TestFromDisk(t *testing.T) {
	c := qt.New(t)

	c.Run("every lookup reloads", func(c *qt.C) {
		loader := newStubLoader()
		cache := NewFromDisk(loader)
		key := types.CircuitKey{CircuitID: 4, Round: types.RecursionTip}

		_, err := cache.Lookup(key)
		c.Assert(err, qt.IsNil)
		_, err = cache.Lookup(key)
		c.Assert(err, qt.IsNil)
		c.Assert(loader.loads[key], qt.Equals, 2)
	})

	c.Run("lookup normalizes NodeAggregation before loading", func(c *qt.C) {
		loader := newStubLoader()
		cache := NewFromDisk(loader)

		_, err := cache.Lookup(types.CircuitKey{CircuitID: 6, Round: types.NodeAggregation})
		c.Assert(err, qt.IsNil)
		c.Assert(loader.loads[types.CircuitKey{CircuitID: 0, Round: types.NodeAggregation}], qt.Equals, 1)
	})

	c.Run("loader failure wraps ErrSetupMissing", func(c *qt.C) {
		loader := newStubLoader()
		key := types.CircuitKey{CircuitID: 0, Round: types.BasicCircuits}
		loader.fail[key] = true
		cache := NewFromDisk(loader)

		_, err := cache.Lookup(key)
		c.Assert(err, qt.ErrorMatches, "setup data missing for circuit key.*")
	})
}
