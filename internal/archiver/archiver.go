// Package archiver persists an accepted proof to the private blob store,
// additionally to the public blob store for scheduler proofs, then updates
// the job row and optionally enqueues a compression job, all in one
// database transaction: acquire, mutate, commit-or-rollback, never held
// across network I/O.
package archiver

import (
	"context"
	"fmt"
	"time"

	"github.com/zkrollup/prover-coordinator/internal/blobstore"
	"github.com/zkrollup/prover-coordinator/internal/queue"
	"github.com/zkrollup/prover-coordinator/log"
	"github.com/zkrollup/prover-coordinator/types"
)

// Archiver bundles the durable queue and the two blob-store handles
// archival writes through.
type Archiver struct {
	Queue           *queue.Queue
	PrivateBlob     blobstore.BlobStore
	PublicBlob      blobstore.BlobStore
	ProtocolVersion uint32
}

// Archive runs the archival transaction for one accepted artifact.
// startedAt is the lease start instant recorded when get_job handed the job
// out; the elapsed time since then is what gets recorded on the job row.
//
// Failure policy: a blob-store failure propagates as-is; a database failure
// rolls the transaction back and propagates. By the time Archive runs the
// in-memory lease is already gone (see the coordinator's submit_result), so
// a failure here loses the proof — the durable queue's own retry/
// rediscovery mechanism, out of scope here, is
// what recovers it.
func (a *Archiver) Archive(ctx context.Context, job types.ProverJob, startedAt time.Time, artifacts types.ProofWrapper, savePublic bool) error {
	isScheduler := artifacts.IsSchedulerProof()

	if isScheduler && savePublic {
		if a.PublicBlob == nil {
			return fmt.Errorf("archiver: save_public requested but no public blob store configured")
		}
		key := fmt.Sprintf("%d", job.BlockNumber)
		if _, err := a.PublicBlob.Put(ctx, key, artifacts.Recursive.Proof); err != nil {
			return fmt.Errorf("archiver: upload to public blob store: %w", err)
		}
		log.Infow("scheduler proof published to public blob store", "block_number", job.BlockNumber)
	}

	privateKey := fmt.Sprintf("%d", job.JobID)
	payload, err := proofBytes(artifacts)
	if err != nil {
		return fmt.Errorf("archiver: %w", err)
	}
	blobURL, err := a.PrivateBlob.Put(ctx, privateKey, payload)
	if err != nil {
		return fmt.Errorf("archiver: upload to private blob store: %w", err)
	}

	tx, err := a.Queue.BeginArchiveTx(ctx)
	if err != nil {
		return fmt.Errorf("archiver: begin transaction: %w", err)
	}

	elapsed := time.Since(startedAt)
	if err := queue.CompleteJob(ctx, tx, job.JobID, blobURL, elapsed); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("archiver: %w", err)
	}

	if isScheduler {
		if err := queue.EnqueueCompression(ctx, tx, job.BlockNumber, blobURL, a.ProtocolVersion); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("archiver: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("archiver: commit: %w", err)
	}

	log.Infow("job archived", "job_id", job.JobID, "scheduler", isScheduler, "took", elapsed.String())
	return nil
}

// proofBytes extracts the raw proof bytes from whichever arm of the wrapper
// is populated, matching the discriminant the caller already verified.
func proofBytes(artifacts types.ProofWrapper) ([]byte, error) {
	switch artifacts.Kind {
	case types.KindBase:
		if artifacts.Base == nil {
			return nil, fmt.Errorf("base proof wrapper missing base payload")
		}
		return artifacts.Base.Proof, nil
	case types.KindRecursive:
		if artifacts.Recursive == nil {
			return nil, fmt.Errorf("recursive proof wrapper missing recursive payload")
		}
		return artifacts.Recursive.Proof, nil
	default:
		return nil, fmt.Errorf("unknown proof wrapper kind %v", artifacts.Kind)
	}
}
