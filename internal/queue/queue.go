// Package queue implements the durable job queue and archival database: a
// real SQL database reached through database/sql, using the pure-Go
// modernc.org/sqlite driver so the module needs no cgo. Queue wraps a
// *sql.DB, migrates its schema on open, and exposes transactional
// accessors for claiming and archiving jobs.
package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/zkrollup/prover-coordinator/types"
)

// ErrNoJobAvailable is returned by FetchNext when no queued row matches the
// caller's filter and protocol version — the adapter-level signal the
// coordinator core turns into RPC error 1001.
var ErrNoJobAvailable = fmt.Errorf("queue: no job available")

const schema = `
CREATE TABLE IF NOT EXISTS prover_jobs (
	job_id            INTEGER PRIMARY KEY AUTOINCREMENT,
	block_number      INTEGER NOT NULL,
	setup_circuit_id  INTEGER NOT NULL,
	setup_round       TEXT NOT NULL,
	payload           BLOB NOT NULL,
	protocol_version  INTEGER NOT NULL,
	status            TEXT NOT NULL DEFAULT 'queued',
	attempts          INTEGER NOT NULL DEFAULT 0,
	blob_url          TEXT,
	prove_seconds      REAL,
	completed_at      INTEGER
);

CREATE INDEX IF NOT EXISTS idx_prover_jobs_status ON prover_jobs(status, protocol_version);

CREATE TABLE IF NOT EXISTS proof_compression_queue (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	block_number      INTEGER NOT NULL,
	blob_url          TEXT NOT NULL,
	protocol_version  INTEGER NOT NULL,
	created_at        INTEGER NOT NULL
);
`

// Queue wraps the prover_jobs / proof_compression_queue tables.
type Queue struct {
	db *sql.DB
}

// Open creates or attaches to the sqlite database at dsn and ensures the
// schema exists.
func Open(dsn string) (*Queue, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("queue: open database: %w", err)
	}
	q := &Queue{db: db}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("queue: migrate: %w", err)
	}
	return q, nil
}

// Close closes the underlying database handle.
func (q *Queue) Close() error {
	return q.db.Close()
}

// DB exposes the underlying database handle for read-only diagnostics and
// tests; callers must not bypass Queue's own transactional accessors to
// mutate prover_jobs or proof_compression_queue.
func (q *Queue) DB() *sql.DB {
	return q.db
}

// Submit inserts job as a new queued row, serializing its circuit_wrapper to
// JSON for the payload column. Used by tests and by any future ingestion
// path that populates the queue; the coordinator itself only reads.
func (q *Queue) Submit(ctx context.Context, blockNumber uint32, key types.CircuitKey, circuit types.CircuitWrapper, protocolVersion uint32) (uint32, error) {
	payload, err := json.Marshal(circuit)
	if err != nil {
		return 0, fmt.Errorf("queue: marshal circuit wrapper: %w", err)
	}
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO prover_jobs (block_number, setup_circuit_id, setup_round, payload, protocol_version, status)
		 VALUES (?, ?, ?, ?, ?, 'queued')`,
		blockNumber, key.CircuitID, key.Round.String(), payload, protocolVersion,
	)
	if err != nil {
		return 0, fmt.Errorf("queue: insert job: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("queue: read inserted job id: %w", err)
	}
	return uint32(id), nil
}

// row is the raw shape of one queued prover_jobs record.
type row struct {
	jobID       uint32
	blockNumber uint32
	key         types.CircuitKey
	payload     []byte
}

// FetchNext scans queued rows matching protocolVersion, picks the first
// whose (circuit_id, aggregation_round) satisfies filter, and atomically
// advances it to "in_progress" before returning it. Returns
// ErrNoJobAvailable if nothing matches.
func (q *Queue) FetchNext(ctx context.Context, filter []types.CircuitIdRoundTuple, protocolVersion uint32) (*types.ProverJob, error) {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("queue: begin fetch tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	rows, err := tx.QueryContext(ctx,
		`SELECT job_id, block_number, setup_circuit_id, setup_round, payload
		 FROM prover_jobs WHERE status = 'queued' AND protocol_version = ?
		 ORDER BY job_id ASC`,
		protocolVersion,
	)
	if err != nil {
		return nil, fmt.Errorf("queue: select queued rows: %w", err)
	}

	var candidate *row
	for rows.Next() {
		var r row
		var roundName string
		if err := rows.Scan(&r.jobID, &r.blockNumber, &r.key.CircuitID, &roundName, &r.payload); err != nil {
			rows.Close()
			return nil, fmt.Errorf("queue: scan queued row: %w", err)
		}
		round, perr := types.ParseRound(roundName)
		if perr != nil {
			continue // corrupt row, skip rather than fail the whole scan
		}
		r.key.Round = round
		if types.Matches(filter, r.key) {
			candidate = &r
			break
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("queue: iterate queued rows: %w", err)
	}
	if candidate == nil {
		return nil, ErrNoJobAvailable
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE prover_jobs SET status = 'in_progress', attempts = attempts + 1
		 WHERE job_id = ? AND status = 'queued'`,
		candidate.jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("queue: mark in_progress: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("queue: read affected rows: %w", err)
	}
	if affected == 0 {
		// Another fetch won the race for this row; treat as a miss rather
		// than retrying — the caller gets the ordinary "no job" outcome.
		return nil, ErrNoJobAvailable
	}

	var circuit types.CircuitWrapper
	if err := json.Unmarshal(candidate.payload, &circuit); err != nil {
		return nil, fmt.Errorf("queue: decode circuit wrapper: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("queue: commit fetch tx: %w", err)
	}

	return &types.ProverJob{
		JobID:          candidate.jobID,
		BlockNumber:    candidate.blockNumber,
		CircuitWrapper: circuit,
		SetupDataKey:   candidate.key,
	}, nil
}

// BeginArchiveTx opens the single transaction archival performs its job
// completion update and compression-queue insert inside.
func (q *Queue) BeginArchiveTx(ctx context.Context) (*sql.Tx, error) {
	return q.db.BeginTx(ctx, nil)
}

// CompleteJob marks jobID done inside tx, recording blobURL and the elapsed
// wall time since the job was leased.
func CompleteJob(ctx context.Context, tx *sql.Tx, jobID uint32, blobURL string, elapsed time.Duration) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE prover_jobs SET status = 'complete', blob_url = ?, prove_seconds = ?, completed_at = ?
		 WHERE job_id = ?`,
		blobURL, elapsed.Seconds(), time.Now().Unix(), jobID,
	)
	if err != nil {
		return fmt.Errorf("queue: complete job %d: %w", jobID, err)
	}
	return nil
}

// EnqueueCompression inserts a proof-compression-queue row inside tx, the
// final step of the archival transaction for scheduler proofs.
func EnqueueCompression(ctx context.Context, tx *sql.Tx, blockNumber uint32, blobURL string, protocolVersion uint32) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO proof_compression_queue (block_number, blob_url, protocol_version, created_at)
		 VALUES (?, ?, ?, ?)`,
		blockNumber, blobURL, protocolVersion, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("queue: enqueue compression for block %d: %w", blockNumber, err)
	}
	return nil
}
