// Package rpcserver implements a JSON-RPC 2.0 server over HTTP exposing
// get_job and submit_result, request body size capped at 100 MiB (response
// size is not bounded), shutting down gracefully on SIGINT. Built on
// github.com/ethereum/go-ethereum/rpc, the same JSON-RPC 2.0 engine used
// elsewhere in this codebase for client-side calls, here run in server
// mode instead.
package rpcserver

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gethrpc "github.com/ethereum/go-ethereum/rpc"

	"github.com/zkrollup/prover-coordinator/internal/coordinator"
	"github.com/zkrollup/prover-coordinator/log"
	"github.com/zkrollup/prover-coordinator/types"
)

// maxBodyBytes is the 100 MiB request body size bound; circuit and proof
// payloads are large. Responses are not bounded.
const maxBodyBytes = 100 << 20

// getService and submitService exist only so that go-ethereum/rpc's
// namespace_methodName naming convention produces exactly the wire method
// names the protocol requires: registering Job under namespace "get"
// yields "get_job", and Result under namespace "submit" yields
// "submit_result".
type getService struct {
	coord *coordinator.Coordinator
}

// Job serves the get_job RPC.
func (s *getService) Job(ctx context.Context, filter []types.CircuitIdRoundTuple) (*types.ProverJob, error) {
	return s.coord.GetJob(ctx, filter)
}

type submitService struct {
	coord *coordinator.Coordinator
}

// submitResultParams is the single positional object submit_result takes:
// params: [{"username": string, "proof_artifact": ProverArtifacts}].
type submitResultParams struct {
	Username      string                `json:"username"`
	ProofArtifact types.ProverArtifacts `json:"proof_artifact"`
}

// Result serves the submit_result RPC.
func (s *submitService) Result(args submitResultParams) error {
	return s.coord.SubmitResult(args.Username, args.ProofArtifact)
}

// Server wraps the go-ethereum JSON-RPC server and the HTTP listener that
// serves it.
type Server struct {
	httpServer *http.Server
}

// Handler returns the HTTP handler Run would serve, without binding a
// listener or installing signal handling — the seam tests use to drive the
// server with httptest.NewServer.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// New builds a Server listening on addr, dispatching to coord.
func New(addr string, coord *coordinator.Coordinator) (*Server, error) {
	rpcServer := gethrpc.NewServer()
	rpcServer.SetHTTPBodyLimit(maxBodyBytes)
	if err := rpcServer.RegisterName("get", &getService{coord: coord}); err != nil {
		return nil, err
	}
	if err := rpcServer.RegisterName("submit", &submitService{coord: coord}); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		rpcServer.ServeHTTP(w, r)
	}))

	return &Server{
		httpServer: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}, nil
}

// Run starts serving and blocks until a SIGINT/SIGTERM is received, then
// shuts down gracefully: stop accepting new connections, let in-flight RPCs
// finish, return. Already-detached verify/archive tasks are not waited on
// here; only the HTTP server's own in-flight requests are.
func (s *Server) Run() error {
	errCh := make(chan error, 1)
	go func() {
		log.Infow("rpc server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Infow("received signal, shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
