package types

import (
	"bytes"
	"fmt"

	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/witness"
)

// DecodeWitness deserializes a raw gnark witness assignment against the
// scalar field of setup's curve.
func DecodeWitness(setup *SetupData, raw []byte) (witness.Witness, error) {
	w, err := witness.New(setup.Curve.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("allocate witness: %w", err)
	}
	if _, err := w.ReadFrom(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("decode witness: %w", err)
	}
	return w, nil
}

// PublicWitness deserializes raw and returns only its public portion, the
// form verify() needs alongside a proof and verification key.
func PublicWitness(setup *SetupData, raw []byte) (witness.Witness, error) {
	w, err := DecodeWitness(setup, raw)
	if err != nil {
		return nil, err
	}
	pub, err := w.Public()
	if err != nil {
		return nil, fmt.Errorf("extract public witness: %w", err)
	}
	return pub, nil
}

// EncodeProof serializes a groth16 proof to bytes for wire/storage.
func EncodeProof(proof groth16.Proof) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("serialize proof: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeProof deserializes a proof previously produced by EncodeProof.
func DecodeProof(setup *SetupData, raw []byte) (groth16.Proof, error) {
	proof := groth16.NewProof(setup.Curve)
	if _, err := proof.ReadFrom(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("decode proof: %w", err)
	}
	return proof, nil
}
