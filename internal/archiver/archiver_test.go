package archiver

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/zkrollup/prover-coordinator/internal/blobstore"
	"github.com/zkrollup/prover-coordinator/internal/queue"
	"github.com/zkrollup/prover-coordinator/types"
)

func newTestQueue(c *qt.C) *queue.Queue {
	dsn := filepath.Join(c.Mkdir(), "jobs.sqlite")
	q, err := queue.Open(dsn)
	c.Assert(err, qt.IsNil)
	c.Cleanup(func() { _ = q.Close() })
	return q
}

func submitAndFetch(c *qt.C, q *queue.Queue, blockNumber uint32, key types.CircuitKey, circuit types.CircuitWrapper) types.ProverJob {
	ctx := context.Background()
	_, err := q.Submit(ctx, blockNumber, key, circuit, 1)
	c.Assert(err, qt.IsNil)
	job, err := q.FetchNext(ctx, []types.CircuitIdRoundTuple{key}, 1)
	c.Assert(err, qt.IsNil)
	return *job
}

func TestArchive(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	c.Run("scheduler proof with save_public writes both blob stores and enqueues compression", func(c *qt.C) {
		q := newTestQueue(c)
		private := blobstore.NewFake("private")
		public := blobstore.NewFake("public")
		a := &Archiver{Queue: q, PrivateBlob: private, PublicBlob: public, ProtocolVersion: 1}

		key := types.CircuitKey{CircuitID: 0, Round: types.Scheduler}
		job := submitAndFetch(c, q, 7, key, types.CircuitWrapper{Kind: types.KindRecursive, Recursive: &types.RecursiveCircuit{Kind: types.RecursiveScheduler}})
		artifacts := types.ProofWrapper{Kind: types.KindRecursive, Recursive: &types.RecursiveProof{Kind: types.RecursiveScheduler, Proof: []byte("scheduler-proof")}}

		err := a.Archive(ctx, job, time.Now().Add(-time.Second), artifacts, true)
		c.Assert(err, qt.IsNil)

		c.Assert(public.Has("7"), qt.IsTrue)
		c.Assert(private.Has("1"), qt.IsTrue)

		row := q.DB().QueryRowContext(ctx, `SELECT status FROM prover_jobs WHERE job_id = ?`, job.JobID)
		var status string
		c.Assert(row.Scan(&status), qt.IsNil)
		c.Assert(status, qt.Equals, "complete")

		var count int
		c.Assert(q.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM proof_compression_queue`).Scan(&count), qt.IsNil)
		c.Assert(count, qt.Equals, 1)
	})

	c.Run("scheduler proof without save_public skips the public blob store", func(c *qt.C) {
		q := newTestQueue(c)
		private := blobstore.NewFake("private")
		a := &Archiver{Queue: q, PrivateBlob: private, PublicBlob: nil, ProtocolVersion: 1}

		key := types.CircuitKey{CircuitID: 0, Round: types.Scheduler}
		job := submitAndFetch(c, q, 8, key, types.CircuitWrapper{Kind: types.KindRecursive, Recursive: &types.RecursiveCircuit{Kind: types.RecursiveScheduler}})
		artifacts := types.ProofWrapper{Kind: types.KindRecursive, Recursive: &types.RecursiveProof{Kind: types.RecursiveScheduler, Proof: []byte("p")}}

		err := a.Archive(ctx, job, time.Now(), artifacts, false)
		c.Assert(err, qt.IsNil)
		c.Assert(private.Has("1"), qt.IsTrue)
	})

	c.Run("non-scheduler proof never touches the public blob store or compression queue", func(c *qt.C) {
		q := newTestQueue(c)
		private := blobstore.NewFake("private")
		public := blobstore.NewFake("public")
		a := &Archiver{Queue: q, PrivateBlob: private, PublicBlob: public, ProtocolVersion: 1}

		key := types.CircuitKey{CircuitID: 1, Round: types.BasicCircuits}
		job := submitAndFetch(c, q, 9, key, types.CircuitWrapper{Kind: types.KindBase, Base: &types.BaseCircuit{Witness: []byte("w")}})
		artifacts := types.ProofWrapper{Kind: types.KindBase, Base: &types.BaseProof{Proof: []byte("base-proof")}}

		err := a.Archive(ctx, job, time.Now(), artifacts, true)
		c.Assert(err, qt.IsNil)

		c.Assert(public.Has("9"), qt.IsFalse)
		var count int
		c.Assert(q.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM proof_compression_queue`).Scan(&count), qt.IsNil)
		c.Assert(count, qt.Equals, 0)
	})

	c.Run("save_public requested with no public store configured errors", func(c *qt.C) {
		q := newTestQueue(c)
		private := blobstore.NewFake("private")
		a := &Archiver{Queue: q, PrivateBlob: private, PublicBlob: nil, ProtocolVersion: 1}

		key := types.CircuitKey{CircuitID: 0, Round: types.Scheduler}
		job := submitAndFetch(c, q, 10, key, types.CircuitWrapper{Kind: types.KindRecursive, Recursive: &types.RecursiveCircuit{Kind: types.RecursiveScheduler}})
		artifacts := types.ProofWrapper{Kind: types.KindRecursive, Recursive: &types.RecursiveProof{Kind: types.RecursiveScheduler, Proof: []byte("p")}}

		err := a.Archive(ctx, job, time.Now(), artifacts, true)
		c.Assert(err, qt.ErrorMatches, ".*no public blob store configured.*")
	})
}
