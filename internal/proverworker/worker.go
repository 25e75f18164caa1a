package proverworker

import (
	"context"
	"errors"
	"fmt"
	"time"

	gethrpc "github.com/ethereum/go-ethereum/rpc"

	"github.com/zkrollup/prover-coordinator/internal/gnarkprover"
	"github.com/zkrollup/prover-coordinator/internal/setupcache"
	"github.com/zkrollup/prover-coordinator/internal/verifier"
	"github.com/zkrollup/prover-coordinator/log"
	"github.com/zkrollup/prover-coordinator/types"
)

// ErrNoJobAvailable is RPC error 1001 translated into a typed local error
// the caller can match with errors.Is.
var ErrNoJobAvailable = errors.New("no job available")

// Config bundles everything one worker cycle needs.
type Config struct {
	ServerURL string
	Username  string
	Filter    []types.CircuitIdRoundTuple
	Setup     *setupcache.Cache
}

// Worker is a one-shot prover-worker core: the process loads this, runs one
// operating cycle, and exits — any looping/backoff is left to an external
// supervisor.
type Worker struct {
	cfg    Config
	client *gethrpc.Client
}

// Dial connects to the coordinator's JSON-RPC endpoint.
func Dial(ctx context.Context, cfg Config) (*Worker, error) {
	if cfg.Username == "" {
		cfg.Username = "anonymous"
	}
	client, err := gethrpc.DialContext(ctx, cfg.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("dial coordinator: %w", err)
	}
	return &Worker{cfg: cfg, client: client}, nil
}

// Close releases the RPC client's connection.
func (w *Worker) Close() {
	w.client.Close()
}

// RunOnce executes one operating cycle: get_job, setup lookup, prove,
// self-verify, submit_result. A transient "no job available" is reported as
// ErrNoJobAvailable so the caller can distinguish it from a real failure;
// the safe default here is not to loop in-process on it.
func (w *Worker) RunOnce(ctx context.Context) error {
	job, err := w.getJob(ctx)
	if err != nil {
		return err
	}
	log.Infow("fetched job", "job_id", job.JobID, "request_id", job.RequestID, "block_number", job.BlockNumber)

	setup, err := w.cfg.Setup.Lookup(job.SetupDataKey)
	if err != nil {
		return fmt.Errorf("setup data lookup failed for job %d: %w", job.JobID, err)
	}

	proof, err := w.prove(setup, job.CircuitWrapper)
	if err != nil {
		return fmt.Errorf("prove job %d: %w", job.JobID, err)
	}

	ok, err := verifier.Verify(setup, job.CircuitWrapper, proof)
	if err != nil {
		log.Warnw("self-verification errored, submitting anyway", "job_id", job.JobID, "error", err.Error())
	} else if !ok {
		log.Warnw("self-verification failed, submitting anyway — coordinator re-verifies", "job_id", job.JobID)
	} else {
		log.Infow("self-verification passed", "job_id", job.JobID)
	}

	artifacts := types.ProverArtifacts{
		BlockNumber:  job.BlockNumber,
		JobID:        job.JobID,
		RequestID:    job.RequestID,
		ProofWrapper: proof,
	}
	return w.submitResult(ctx, artifacts)
}

func (w *Worker) getJob(ctx context.Context) (*types.ProverJob, error) {
	var job types.ProverJob
	err := w.client.CallContext(ctx, &job, "get_job", w.cfg.Filter)
	if err != nil {
		var rpcErr gethrpc.Error
		if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == 1001 {
			return nil, ErrNoJobAvailable
		}
		return nil, fmt.Errorf("get_job: %w", err)
	}
	return &job, nil
}

func (w *Worker) submitResult(ctx context.Context, artifacts types.ProverArtifacts) error {
	params := submitResultParams{Username: w.cfg.Username, ProofArtifact: artifacts}
	if err := w.client.CallContext(ctx, nil, "submit_result", params); err != nil {
		return fmt.Errorf("submit_result: %w", err)
	}
	log.Infow("submitted result", "job_id", artifacts.JobID, "username", w.cfg.Username)
	return nil
}

// submitResultParams mirrors rpcserver.submitResultParams: the single
// positional object submit_result takes.
type submitResultParams struct {
	Username      string                `json:"username"`
	ProofArtifact types.ProverArtifacts `json:"proof_artifact"`
}

// prove dispatches on the circuit discriminant.
func (w *Worker) prove(setup *types.SetupData, circuit types.CircuitWrapper) (types.ProofWrapper, error) {
	start := time.Now()
	defer func() {
		log.Debugw("proving finished", "circuitKey", setup.Key.String(), "took", time.Since(start).String())
	}()

	switch circuit.Kind {
	case types.KindBase:
		proof, err := gnarkprover.ProveBase(setup, *circuit.Base)
		if err != nil {
			return types.ProofWrapper{}, err
		}
		return types.ProofWrapper{Kind: types.KindBase, Base: &proof}, nil
	case types.KindRecursive:
		proof, err := gnarkprover.ProveRecursion(setup, *circuit.Recursive)
		if err != nil {
			return types.ProofWrapper{}, err
		}
		return types.ProofWrapper{Kind: types.KindRecursive, Recursive: &proof}, nil
	default:
		return types.ProofWrapper{}, fmt.Errorf("unknown circuit wrapper kind %v", circuit.Kind)
	}
}
