package setupcache

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"

	"github.com/zkrollup/prover-coordinator/types"
)

// DiskLoader reads SetupData from a directory laid out as one subdirectory
// per normalized CircuitKey, each holding a constraint system, proving key,
// verifying key, and optional hint table file, written there by WriteTo /
// WriteRawTo and read back here with the matching ReadFrom calls to
// round-trip exactly.
type DiskLoader struct {
	root  string
	curve ecc.ID
}

// NewDiskLoader returns a Loader rooted at dir, reading artifacts for the
// given curve.
func NewDiskLoader(dir string, curve ecc.ID) *DiskLoader {
	return &DiskLoader{root: dir, curve: curve}
}

func (d *DiskLoader) keyDir(key types.CircuitKey) string {
	return filepath.Join(d.root, fmt.Sprintf("%s-%d", key.Round.String(), key.CircuitID))
}

// Load implements Loader.
func (d *DiskLoader) Load(key types.CircuitKey) (*types.SetupData, error) {
	dir := d.keyDir(key)

	cs := groth16.NewCS(d.curve)
	if err := readFromFile(filepath.Join(dir, "circuit.cs"), cs); err != nil {
		return nil, fmt.Errorf("read constraint system: %w", err)
	}

	pk := groth16.NewProvingKey(d.curve)
	if err := readFromFile(filepath.Join(dir, "proving.key"), pk); err != nil {
		return nil, fmt.Errorf("read proving key: %w", err)
	}

	vk := groth16.NewVerifyingKey(d.curve)
	if err := readFromFile(filepath.Join(dir, "verifying.key"), vk); err != nil {
		return nil, fmt.Errorf("read verifying key: %w", err)
	}

	hints, err := os.ReadFile(filepath.Join(dir, "hints.bin"))
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read hint table: %w", err)
	}

	return &types.SetupData{
		Key:              key,
		Curve:            d.curve,
		ConstraintSystem: cs,
		ProvingKey:       pk,
		VerifyingKey:     vk,
		HintTable:        hints,
	}, nil
}

func readFromFile(path string, dst io.ReaderFrom) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = dst.ReadFrom(f)
	return err
}
