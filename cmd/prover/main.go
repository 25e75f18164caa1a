package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/spf13/cobra"

	"github.com/zkrollup/prover-coordinator/internal/config"
	"github.com/zkrollup/prover-coordinator/internal/proverworker"
	"github.com/zkrollup/prover-coordinator/internal/setupcache"
	"github.com/zkrollup/prover-coordinator/log"
	"github.com/zkrollup/prover-coordinator/types"
)

var (
	configPath    string
	secretsPath   string
	serverURL     string
	username      string
	circuitFilter string

	rootCmd = &cobra.Command{
		Use:   "prover-worker",
		Short: "Pulls one circuit-proving job from the coordinator, proves it, and submits the result",
		RunE:  run,
	}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config-path", "worker.yml", "path to the worker's configuration file")
	rootCmd.PersistentFlags().StringVar(&secretsPath, "secrets-path", "", "path to the worker's secrets file")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server-url", "", "coordinator JSON-RPC endpoint")
	rootCmd.PersistentFlags().StringVar(&username, "username", "", "identifier logged by the coordinator for this worker (unauthenticated)")
	rootCmd.PersistentFlags().StringVar(&circuitFilter, "circuit-ids-rounds", "", `circuit filter: "all" or a list like "(1,0),(2,3)"`)
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadWorker(configPath, secretsPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if cmd.Flags().Changed("server-url") {
		cfg.ServerURL = serverURL
	}
	if cmd.Flags().Changed("username") {
		cfg.Username = username
	}
	if cmd.Flags().Changed("circuit-ids-rounds") {
		cfg.CircuitFilter = circuitFilter
	}
	if cfg.ServerURL == "" {
		return fmt.Errorf("--server-url is required")
	}

	log.Init(cfg.Log.Level, cfg.Log.Output, nil)

	filter, err := proverworker.ParseCircuitFilter(cfg.CircuitFilter, func() ([]types.CircuitIdRoundTuple, error) {
		return groupKeys(cfg.SpecializedGroupID)
	})
	if err != nil {
		return fmt.Errorf("resolve circuit filter: %w", err)
	}

	loader := setupcache.NewDiskLoader(cfg.SetupDataCache.ArtifactsDir, ecc.BN254)
	var cache *setupcache.Cache
	if cfg.SetupDataCache.Mode == "disk" {
		cache = setupcache.NewFromDisk(loader)
	} else {
		cache, err = setupcache.NewFromMemory(loader, filter)
		if err != nil {
			return fmt.Errorf("load setup data into memory: %w", err)
		}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	worker, err := proverworker.Dial(ctx, proverworker.Config{
		ServerURL: cfg.ServerURL,
		Username:  cfg.Username,
		Filter:    filter,
		Setup:     cache,
	})
	if err != nil {
		return fmt.Errorf("connect to coordinator: %w", err)
	}
	defer worker.Close()

	if err := worker.RunOnce(ctx); err != nil {
		if errors.Is(err, proverworker.ErrNoJobAvailable) {
			log.Infow("no job available")
			return nil
		}
		return fmt.Errorf("worker cycle failed: %w", err)
	}
	return nil
}

// groupKeys is the "all" filter expansion: every CircuitKey assigned to
// specializedGroupID. The group-assignment table itself is an external
// collaborator out of this repository's scope; this worker carries the
// same well-known single-group mapping cmd/coordinator does.
func groupKeys(specializedGroupID uint32) ([]types.CircuitIdRoundTuple, error) {
	_ = specializedGroupID
	return []types.CircuitIdRoundTuple{
		{CircuitID: 0, Round: types.BasicCircuits},
		{CircuitID: 0, Round: types.LeafAggregation},
		{CircuitID: 0, Round: types.NodeAggregation},
		{CircuitID: 0, Round: types.RecursionTip},
		{CircuitID: 0, Round: types.Scheduler},
	}, nil
}
