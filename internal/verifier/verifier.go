// Package verifier implements the pure verify(circuit_wrapper, proof, vk)
// -> bool operation, dispatching on the Base/Recursive discriminant before
// calling groth16.Verify per circuit kind.
package verifier

import (
	"fmt"
	"time"

	"github.com/consensys/gnark/backend/groth16"

	"github.com/zkrollup/prover-coordinator/log"
	"github.com/zkrollup/prover-coordinator/types"
)

// Verify runs black-box verification of artifacts against setup, which
// supplies both the circuit's public witness (via circuit) and the
// verification key. It has no side effect other than timing logs. A
// discriminant mismatch between circuit and artifacts, or a malformed
// proof, is reported as (false, nil) — an invalid proof, not a protocol
// error.
func Verify(setup *types.SetupData, circuit types.CircuitWrapper, artifacts types.ProofWrapper) (bool, error) {
	start := time.Now()
	ok, err := verify(setup, circuit, artifacts)
	log.Debugw("proof verification finished",
		"circuitKey", setup.Key.String(),
		"ok", ok,
		"took", time.Since(start).String())
	return ok, err
}

func verify(setup *types.SetupData, circuit types.CircuitWrapper, artifacts types.ProofWrapper) (bool, error) {
	if !circuit.DiscriminantMatches(artifacts) {
		log.Warnw("proof discriminant mismatch, rejecting", "circuitKind", circuit.Kind, "proofKind", artifacts.Kind)
		return false, nil
	}

	switch artifacts.Kind {
	case types.KindBase:
		return verifyOne(setup, circuit.Base.Witness, artifacts.Base.Proof)
	case types.KindRecursive:
		return verifyOne(setup, circuit.Recursive.Witness, artifacts.Recursive.Proof)
	default:
		// Never reaches the wire; a BasePartial-style internal variant
		// would land here and must be rejected rather than verified.
		return false, fmt.Errorf("internal-only proof variant %v is not verifiable", artifacts.Kind)
	}
}

func verifyOne(setup *types.SetupData, rawWitness, rawProof []byte) (bool, error) {
	pub, err := types.PublicWitness(setup, rawWitness)
	if err != nil {
		return false, nil // malformed witness: treat as invalid proof
	}

	proof, err := types.DecodeProof(setup, rawProof)
	if err != nil {
		return false, nil // malformed proof: treat as invalid proof
	}

	if err := groth16.Verify(proof, setup.VerifyingKey, pub); err != nil {
		return false, nil
	}
	return true, nil
}
