// Package types defines the wire and domain data model shared by the
// coordinator and the prover workers: circuit keys, jobs, artifacts and the
// setup data that backs proving and verification.
package types

import "fmt"

// Round identifies a stage of the recursion tree a circuit belongs to.
type Round uint8

const (
	BasicCircuits Round = iota
	LeafAggregation
	NodeAggregation
	RecursionTip
	Scheduler
)

func (r Round) String() string {
	switch r {
	case BasicCircuits:
		return "BasicCircuits"
	case LeafAggregation:
		return "LeafAggregation"
	case NodeAggregation:
		return "NodeAggregation"
	case RecursionTip:
		return "RecursionTip"
	case Scheduler:
		return "Scheduler"
	default:
		return fmt.Sprintf("Round(%d)", uint8(r))
	}
}

// MarshalJSON encodes the round as its name, matching the wire format used
// by CircuitIdRoundTuple in RPC params.
func (r Round) MarshalJSON() ([]byte, error) {
	return []byte(`"` + r.String() + `"`), nil
}

// UnmarshalJSON accepts the round's name as produced by MarshalJSON.
func (r *Round) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	round, err := ParseRound(s)
	if err != nil {
		return err
	}
	*r = round
	return nil
}

// ParseRound parses a round by its name, the inverse of Round.String.
func ParseRound(s string) (Round, error) {
	switch s {
	case "BasicCircuits":
		return BasicCircuits, nil
	case "LeafAggregation":
		return LeafAggregation, nil
	case "NodeAggregation":
		return NodeAggregation, nil
	case "RecursionTip":
		return RecursionTip, nil
	case "Scheduler":
		return Scheduler, nil
	default:
		return 0, fmt.Errorf("unknown aggregation round: %q", s)
	}
}

// canonicalNodeAggregationCircuitID is the circuit_id every NodeAggregation
// key collapses to: all node-layer circuits share one setup. This is a
// schema peculiarity of the recursion tree, not a general rule, and must be
// preserved exactly as specified.
const canonicalNodeAggregationCircuitID uint8 = 0

// CircuitKey identifies a proving context: which circuit, at which stage of
// the recursion tree.
type CircuitKey struct {
	CircuitID uint8 `json:"circuit_id"`
	Round     Round `json:"aggregation_round"`
}

// Normalize rewrites circuit_id to the canonical node-layer id when
// Round is NodeAggregation, since all node-aggregation circuits share one
// setup. For every other round the key is returned unchanged.
func (k CircuitKey) Normalize() CircuitKey {
	if k.Round == NodeAggregation {
		k.CircuitID = canonicalNodeAggregationCircuitID
	}
	return k
}

func (k CircuitKey) String() string {
	return fmt.Sprintf("%d/%s", k.CircuitID, k.Round)
}

// CircuitIdRoundTuple is the shape used in RPC params to describe which
// (circuit_id, round) pairs a worker is willing to accept. It has the same
// fields as CircuitKey but is kept as a distinct name to match the wire
// protocol's vocabulary.
type CircuitIdRoundTuple = CircuitKey

// Matches reports whether the key (circuit_id, round), unnormalized, is
// present in filter.
func Matches(filter []CircuitIdRoundTuple, key CircuitKey) bool {
	for _, f := range filter {
		if f.CircuitID == key.CircuitID && f.Round == key.Round {
			return true
		}
	}
	return false
}
