// Package gnarkprover implements the opaque prove(circuit, setup) -> proof
// operation. It wraps consensys/gnark's groth16 backend directly and
// dispatches on circuit kind.
package gnarkprover

import (
	"fmt"

	"github.com/consensys/gnark/backend/groth16"

	"github.com/zkrollup/prover-coordinator/types"
)

// ProveBase runs the groth16 prover over a base-layer circuit using setup,
// producing a BaseProof. The constraint system and proving key come from
// setup; only the witness assignment travels on the wire.
func ProveBase(setup *types.SetupData, circuit types.BaseCircuit) (types.BaseProof, error) {
	proof, err := prove(setup, circuit.Witness)
	if err != nil {
		return types.BaseProof{}, fmt.Errorf("prove_base: %w", err)
	}
	return types.BaseProof{Proof: proof}, nil
}

// ProveRecursion runs the groth16 prover over a recursion-layer circuit using
// setup, producing a RecursiveProof tagged with the same recursion stage as
// the input circuit.
func ProveRecursion(setup *types.SetupData, circuit types.RecursiveCircuit) (types.RecursiveProof, error) {
	proof, err := prove(setup, circuit.Witness)
	if err != nil {
		return types.RecursiveProof{}, fmt.Errorf("prove_recursion: %w", err)
	}
	return types.RecursiveProof{Kind: circuit.Kind, Proof: proof}, nil
}

func prove(setup *types.SetupData, rawWitness []byte) ([]byte, error) {
	w, err := types.DecodeWitness(setup, rawWitness)
	if err != nil {
		return nil, err
	}
	proof, err := groth16.Prove(setup.ConstraintSystem, setup.ProvingKey, w)
	if err != nil {
		return nil, fmt.Errorf("groth16 prove: %w", err)
	}
	return types.EncodeProof(proof)
}
