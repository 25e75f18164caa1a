package types

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestDiscriminantMatches(t *testing.T) {
	c := qt.New(t)

	c.Run("base circuit matches base proof", func(c *qt.C) {
		circuit := CircuitWrapper{Kind: KindBase, Base: &BaseCircuit{Witness: []byte{1}}}
		proof := ProofWrapper{Kind: KindBase, Base: &BaseProof{Proof: []byte{2}}}
		c.Assert(circuit.DiscriminantMatches(proof), qt.IsTrue)
	})

	c.Run("recursive circuit and proof must share recursive kind", func(c *qt.C) {
		circuit := CircuitWrapper{Kind: KindRecursive, Recursive: &RecursiveCircuit{Kind: RecursiveScheduler}}
		matching := ProofWrapper{Kind: KindRecursive, Recursive: &RecursiveProof{Kind: RecursiveScheduler}}
		mismatched := ProofWrapper{Kind: KindRecursive, Recursive: &RecursiveProof{Kind: RecursiveLeafAggregation}}

		c.Assert(circuit.DiscriminantMatches(matching), qt.IsTrue)
		c.Assert(circuit.DiscriminantMatches(mismatched), qt.IsFalse)
	})

	c.Run("base/recursive kind mismatch never matches", func(c *qt.C) {
		circuit := CircuitWrapper{Kind: KindBase, Base: &BaseCircuit{}}
		proof := ProofWrapper{Kind: KindRecursive, Recursive: &RecursiveProof{}}
		c.Assert(circuit.DiscriminantMatches(proof), qt.IsFalse)
	})

	c.Run("nil arm never matches", func(c *qt.C) {
		circuit := CircuitWrapper{Kind: KindBase}
		proof := ProofWrapper{Kind: KindBase, Base: &BaseProof{}}
		c.Assert(circuit.DiscriminantMatches(proof), qt.IsFalse)
	})
}

func TestIsSchedulerProof(t *testing.T) {
	c := qt.New(t)

	c.Run("scheduler recursive proof classifies true", func(c *qt.C) {
		p := ProofWrapper{Kind: KindRecursive, Recursive: &RecursiveProof{Kind: RecursiveScheduler}}
		c.Assert(p.IsSchedulerProof(), qt.IsTrue)
	})

	c.Run("non-scheduler recursive proof classifies false", func(c *qt.C) {
		p := ProofWrapper{Kind: KindRecursive, Recursive: &RecursiveProof{Kind: RecursiveNodeAggregation}}
		c.Assert(p.IsSchedulerProof(), qt.IsFalse)
	})

	c.Run("base proof classifies false", func(c *qt.C) {
		p := ProofWrapper{Kind: KindBase, Base: &BaseProof{}}
		c.Assert(p.IsSchedulerProof(), qt.IsFalse)
	})
}
