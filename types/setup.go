package types

import (
	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
)

// SetupData is the immutable per-CircuitKey artifact shared read-only by all
// proving and verification operations that share a key: the compiled
// constraint system, the proving and verifying keys, and an opaque hint
// table used by the recursion layer. It is never mutated after creation.
type SetupData struct {
	Key              CircuitKey
	Curve            ecc.ID
	ConstraintSystem constraint.ConstraintSystem
	ProvingKey       groth16.ProvingKey
	VerifyingKey     groth16.VerifyingKey
	// HintTable carries recursion-layer hint data (e.g. lookup tables the
	// verifier circuit needs); opaque at this layer.
	HintTable []byte
}
