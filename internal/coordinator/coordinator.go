// Package coordinator implements the job distributor: the in-flight lease
// registry, the get_job/submit_result operations, and the detached
// verify-then-archive background task.
package coordinator

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zkrollup/prover-coordinator/internal/archiver"
	"github.com/zkrollup/prover-coordinator/internal/queue"
	"github.com/zkrollup/prover-coordinator/internal/setupcache"
	"github.com/zkrollup/prover-coordinator/internal/verifier"
	"github.com/zkrollup/prover-coordinator/log"
	"github.com/zkrollup/prover-coordinator/types"
)

// lease is the in-flight registry's value type: the leased job plus the
// instant the lease was handed out, used later as archive's started_at.
type lease struct {
	job        types.ProverJob
	leaseStart time.Time
}

// Config bundles the collaborators and settings the coordinator core needs;
// all of it is wired by cmd/coordinator at startup from the loaded
// configuration.
type Config struct {
	Queue           *queue.Queue
	SetupCache      *setupcache.Cache
	Archiver        *archiver.Archiver
	ProtocolVersion uint32
	// SavePublicProofs gates public blob uploads on the save_public flag.
	SavePublicProofs bool
	AuditFilePath    string
}

// Coordinator holds the process-wide state: the atomic request id counter
// and the reader-writer-lock-guarded in-flight map. Both fields live for
// the process lifetime.
type Coordinator struct {
	cfg Config

	requestIDCounter atomic.Uint32

	pendingMtx sync.RWMutex
	inFlight   map[uint32]lease

	auditMtx sync.Mutex
}

// New constructs a Coordinator ready to serve RPCs.
func New(cfg Config) *Coordinator {
	return &Coordinator{
		cfg:      cfg,
		inFlight: make(map[uint32]lease),
	}
}

// GetJob implements the get_job RPC. It must be safe to call concurrently: the request id is assigned atomically, the durable-queue
// fetch and the in-flight insertion do not share a lock, and the insert
// holds the write lock only for the single map operation.
func (c *Coordinator) GetJob(ctx context.Context, filter []types.CircuitIdRoundTuple) (*types.ProverJob, error) {
	requestID := c.requestIDCounter.Add(1) - 1

	job, err := c.cfg.Queue.FetchNext(ctx, filter, c.cfg.ProtocolVersion)
	if err != nil {
		if err == queue.ErrNoJobAvailable {
			return nil, ErrNoJobAvailable
		}
		log.Errorw(err, "get_job: durable queue fetch failed")
		return nil, fmt.Errorf("internal error: %w", err)
	}
	job.RequestID = requestID

	c.pendingMtx.Lock()
	c.inFlight[job.JobID] = lease{job: *job, leaseStart: time.Now()}
	c.pendingMtx.Unlock()

	log.Infow("job leased", "job_id", job.JobID, "request_id", requestID, "block_number", job.BlockNumber)
	return job, nil
}

// SubmitResult implements the submit_result RPC. It removes the in-flight
// entry and returns success immediately; verification and archival happen
// in a detached goroutine. The RPC reply therefore means "accepted for
// verification", not "archived".
func (c *Coordinator) SubmitResult(username string, artifact types.ProverArtifacts) error {
	c.pendingMtx.Lock()
	l, ok := c.inFlight[artifact.JobID]
	if ok {
		delete(c.inFlight, artifact.JobID)
	}
	c.pendingMtx.Unlock()

	if !ok {
		return &unknownJobIDError{jobID: artifact.JobID}
	}

	go c.verifyAndArchive(l, username, artifact.ProofWrapper)
	return nil
}

// verifyAndArchive is the detached verify-then-archive task. Any failure
// — setup lookup miss, verification failure, archival error — is logged and
// silently dropped; the proof is lost and relies on the durable queue's own
// rediscovery (out of scope here) to be re-proved.
func (c *Coordinator) verifyAndArchive(l lease, username string, artifacts types.ProofWrapper) {
	setup, err := c.cfg.SetupCache.Lookup(l.job.SetupDataKey)
	if err != nil {
		log.Errorw(err, fmt.Sprintf("verify_and_archive: setup data lookup failed for job %d, dropping proof", l.job.JobID))
		return
	}

	ok, err := verifier.Verify(setup, l.job.CircuitWrapper, artifacts)
	if err != nil {
		log.Errorw(err, fmt.Sprintf("verify_and_archive: verification error for job %d, dropping proof", l.job.JobID))
		return
	}
	if !ok {
		log.Warnw("verify_and_archive: proof rejected by verifier, dropping", "job_id", l.job.JobID)
		return
	}

	if err := c.cfg.Archiver.Archive(context.Background(), l.job, l.leaseStart, artifacts, c.cfg.SavePublicProofs); err != nil {
		log.Errorw(err, fmt.Sprintf("verify_and_archive: archival failed for job %d, job remains incomplete", l.job.JobID))
		return
	}

	if err := c.appendAudit(username); err != nil {
		log.Errorw(err, fmt.Sprintf("verify_and_archive: audit file append failed for job %d", l.job.JobID))
	}
}

// appendAudit appends one username\n line to the audit file. Writes are
// serialized by auditMtx rather than relied upon to be PIPE_BUF-atomic,
// since usernames here are worker-supplied and unbounded.
func (c *Coordinator) appendAudit(username string) error {
	c.auditMtx.Lock()
	defer c.auditMtx.Unlock()

	f, err := os.OpenFile(c.cfg.AuditFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if _, err := w.WriteString(username + "\n"); err != nil {
		return fmt.Errorf("write audit line: %w", err)
	}
	return w.Flush()
}

// InFlightCount reports the number of active leases; diagnostic only, never
// used to gate correctness.
func (c *Coordinator) InFlightCount() int {
	c.pendingMtx.RLock()
	defer c.pendingMtx.RUnlock()
	return len(c.inFlight)
}
