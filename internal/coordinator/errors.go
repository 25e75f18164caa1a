package coordinator

import "fmt"

// rpcError implements the github.com/ethereum/go-ethereum/rpc Error
// interface, and unknownJobIDError implements both Error and DataError, so
// the wire layer reports the exact codes and payloads below, without
// rpcserver needing to know the mapping.

type rpcError struct {
	code int
	msg  string
}

func (e *rpcError) Error() string  { return e.msg }
func (e *rpcError) ErrorCode() int { return e.code }

// ErrNoJobAvailable is RPC error 1001: the durable queue had nothing
// matching the caller's filter and protocol version.
var ErrNoJobAvailable = &rpcError{code: 1001, msg: "No job is currently available."}

// unknownJobIDError is RPC error 1002, carrying the rejected job_id as its
// data payload ("Job id = N").
type unknownJobIDError struct {
	jobID uint32
}

func (e *unknownJobIDError) Error() string {
	return "There is no job with your job id"
}

func (e *unknownJobIDError) ErrorCode() int { return 1002 }

func (e *unknownJobIDError) ErrorData() any {
	return fmt.Sprintf("Job id = %d", e.jobID)
}
