// Package proverworker implements the one-shot prover-worker core: resolve
// the circuit filter, pull a job over JSON-RPC, prove, self-verify, submit.
// The wire transport is the JSON-RPC client side of
// github.com/ethereum/go-ethereum/rpc.
package proverworker

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zkrollup/prover-coordinator/types"
)

// AllFilterSpec is the literal the user passes to request every circuit key
// assigned to this coordinator's specialized group.
const AllFilterSpec = "all"

// GroupLookup resolves every CircuitIdRoundTuple assigned to a specialized
// group, the expansion the literal "all" filter spec triggers.
type GroupLookup func() ([]types.CircuitIdRoundTuple, error)

// ParseCircuitFilter resolves the --circuit-ids-rounds startup flag. "all"
// expands via group, anything else parses as a literal comma-delimited
// list of "(circuit_id,round)" pairs — parentheses and comma are literal
// syntax, whitespace is tolerated, and each component must parse as a u8;
// overflow is a startup error.
func ParseCircuitFilter(spec string, group GroupLookup) ([]types.CircuitIdRoundTuple, error) {
	spec = strings.TrimSpace(spec)
	if spec == AllFilterSpec {
		tuples, err := group()
		if err != nil {
			return nil, fmt.Errorf("resolve specialized group: %w", err)
		}
		return tuples, nil
	}
	return parseTuples(spec)
}

func parseTuples(spec string) ([]types.CircuitIdRoundTuple, error) {
	trimmed := strings.Join(strings.Fields(spec), "")
	trimmed = strings.TrimPrefix(trimmed, "(")
	trimmed = strings.TrimSuffix(trimmed, ")")
	if trimmed == "" {
		return nil, fmt.Errorf("empty circuit filter spec")
	}

	var out []types.CircuitIdRoundTuple
	for _, raw := range strings.Split(trimmed, "),(") {
		parts := strings.Split(raw, ",")
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed circuit filter entry %q: expected (circuit_id,round)", raw)
		}
		circuitID, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 8)
		if err != nil {
			return nil, fmt.Errorf("malformed circuit_id in %q: %w", raw, err)
		}
		round, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 8)
		if err != nil {
			return nil, fmt.Errorf("malformed aggregation round in %q: %w", raw, err)
		}
		out = append(out, types.CircuitIdRoundTuple{
			CircuitID: uint8(circuitID),
			Round:     types.Round(round),
		})
	}
	return out, nil
}
