package main

import (
	"context"
	"fmt"
	"os"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/spf13/cobra"

	"github.com/zkrollup/prover-coordinator/internal/archiver"
	"github.com/zkrollup/prover-coordinator/internal/blobstore"
	"github.com/zkrollup/prover-coordinator/internal/config"
	"github.com/zkrollup/prover-coordinator/internal/coordinator"
	"github.com/zkrollup/prover-coordinator/internal/queue"
	"github.com/zkrollup/prover-coordinator/internal/rpcserver"
	"github.com/zkrollup/prover-coordinator/internal/setupcache"
	"github.com/zkrollup/prover-coordinator/log"
	"github.com/zkrollup/prover-coordinator/types"
)

var (
	configPath  string
	secretsPath string

	rootCmd = &cobra.Command{
		Use:   "prover-coordinator",
		Short: "Coordinates FRI circuit proving jobs across a fleet of prover workers",
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
	rootCmd.PersistentFlags().StringVar(&configPath, "config-path", "coordinator.yml", "path to the coordinator's configuration file")
	rootCmd.PersistentFlags().StringVar(&secretsPath, "secrets-path", "", "path to the coordinator's secrets file")
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadCoordinator(configPath, secretsPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	log.Init(cfg.Log.Level, cfg.Log.Output, nil)
	log.Infow("starting prover-coordinator", "listenAddr", cfg.ListenAddr, "protocolVersion", cfg.ProtocolVersion)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	q, err := queue.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("open durable queue: %w", err)
	}
	defer q.Close()

	privateBlob, err := blobstore.New(ctx, blobstore.Config{
		Endpoint:  cfg.BlobStore.Private.Endpoint,
		Region:    cfg.BlobStore.Private.Region,
		Bucket:    cfg.BlobStore.Private.Bucket,
		AccessKey: cfg.BlobStore.Private.AccessKey,
		SecretKey: cfg.BlobStore.Private.SecretKey,
		PathStyle: cfg.BlobStore.Private.PathStyle,
	})
	if err != nil {
		return fmt.Errorf("connect private blob store: %w", err)
	}

	var publicBlob blobstore.BlobStore
	if cfg.SavePublicProofs {
		publicBlob, err = blobstore.New(ctx, blobstore.Config{
			Endpoint:  cfg.BlobStore.Public.Endpoint,
			Region:    cfg.BlobStore.Public.Region,
			Bucket:    cfg.BlobStore.Public.Bucket,
			AccessKey: cfg.BlobStore.Public.AccessKey,
			SecretKey: cfg.BlobStore.Public.SecretKey,
			PathStyle: cfg.BlobStore.Public.PathStyle,
		})
		if err != nil {
			return fmt.Errorf("connect public blob store: %w", err)
		}
	}

	loader := setupcache.NewDiskLoader(cfg.SetupDataCache.ArtifactsDir, ecc.BN254)
	var cache *setupcache.Cache
	switch cfg.SetupDataCache.Mode {
	case "disk":
		cache = setupcache.NewFromDisk(loader)
	default:
		group, gerr := groupKeys(cfg.SpecializedGroupID)
		if gerr != nil {
			return fmt.Errorf("resolve specialized group %d: %w", cfg.SpecializedGroupID, gerr)
		}
		cache, err = setupcache.NewFromMemory(loader, group)
		if err != nil {
			return fmt.Errorf("load setup data into memory: %w", err)
		}
	}

	coord := coordinator.New(coordinator.Config{
		Queue:            q,
		SetupCache:       cache,
		ProtocolVersion:  cfg.ProtocolVersion,
		SavePublicProofs: cfg.SavePublicProofs,
		AuditFilePath:    cfg.AuditFile,
		Archiver: &archiver.Archiver{
			Queue:           q,
			PrivateBlob:     privateBlob,
			PublicBlob:      publicBlob,
			ProtocolVersion: cfg.ProtocolVersion,
		},
	})

	server, err := rpcserver.New(cfg.ListenAddr, coord)
	if err != nil {
		return fmt.Errorf("build rpc server: %w", err)
	}
	return server.Run()
}

// groupKeys enumerates the CircuitKeys assigned to a specialized group.
// Real deployments resolve this from a group-assignment table or config
// section; this coordinator's scope starts at the durable queue and setup
// cache, so the mapping is provided here as the single well-known group
// every recursion-tree stage belongs to, one entry per Round.
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
