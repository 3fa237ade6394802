package api

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Algorithm identifies the consensus algorithm a node is running.
type Algorithm string

const (
	// AlgorithmRaft is the leader-based algorithm: writes must go to the
	// node currently holding leadership.
	AlgorithmRaft Algorithm = "raft"
	// AlgorithmPaxos is the leaderless quorum algorithm: any reachable
	// node may accept a proposal.
	AlgorithmPaxos Algorithm = "paxos"
)

// Valid reports whether a is one of the known algorithms.
func (a Algorithm) Valid() bool {
	return a == AlgorithmRaft || a == AlgorithmPaxos
}

// ParseAlgorithm normalizes a user-provided algorithm name.
func ParseAlgorithm(s string) (Algorithm, error) {
	a := Algorithm(strings.ToLower(strings.TrimSpace(s)))
	if !a.Valid() {
		return "", fmt.Errorf("unknown algorithm %q", s)
	}
	return a, nil
}

// Account identifies a ledger account. The set of accounts is a small,
// closed enumeration configured at startup; the zero value is invalid.
type Account string

const (
	AccountA Account = "KONTO_A"
	AccountB Account = "KONTO_B"
)

// OpType is the kind of a balance-mutating operation.
type OpType string

const (
	OpDeposit  OpType = "DEPOSIT"
	OpWithdraw OpType = "WITHDRAW"
	OpTransfer OpType = "TRANSFER"
)

// Operation is one semantic balance mutation as submitted by the caller.
// Destination is meaningful only for OpTransfer.
type Operation struct {
	Type        OpType
	Amount      float64
	Source      Account
	Destination Account
}

// RoleLeader is the role string a node reports while it holds leadership
// under the leader-based algorithm.
const RoleLeader = "leader"

// NodeState is one node's self-reported status. Role, Term and Leader carry
// meaning only under raft; PromisedID only under paxos.
type NodeState struct {
	NodeID     int       `json:"node_id"`
	Algorithm  Algorithm `json:"algorithm"`
	Role       string    `json:"role,omitempty"`
	Term       int64     `json:"term,omitempty"`
	Leader     string    `json:"leader,omitempty"`
	IP         string    `json:"ip,omitempty"`
	LogSize    int       `json:"log_size"`
	PromisedID string    `json:"promised_id,omitempty"`
}

// IsLeader reports whether the node claims leadership.
func (ns *NodeState) IsLeader() bool {
	return ns.Role == RoleLeader
}

// ClusterView is a snapshot of the reachable part of the cluster, rebuilt on
// every poll and never persisted.
//
// Algorithm is inferred from the first reachable node in node-ID order. This
// is a best-effort heuristic, not a consensus read: during an algorithm
// switch nodes may transiently disagree, in which case Divergent is set and
// the view is still usable.
type ClusterView struct {
	Nodes     []NodeState
	Algorithm Algorithm
	// Leader points at the single node claiming leadership, nil if none
	// does or more than one does. The coordinator never guesses between
	// competing claims.
	Leader    *NodeState
	Divergent bool
	PolledAt  time.Time
}

// ReachableCount returns the number of nodes that answered the poll.
func (v *ClusterView) ReachableCount() int {
	return len(v.Nodes)
}

// LogTime is a log entry timestamp tolerant of the node's wire format.
// Nodes emit ISO 8601 timestamps without a zone designator; RFC 3339 is
// accepted too.
type LogTime struct {
	time.Time
}

const nodeTimeLayout = "2006-01-02T15:04:05.999999999"

func (t *LogTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time = ts
		return nil
	}
	ts, err := time.Parse(nodeTimeLayout, s)
	if err != nil {
		return fmt.Errorf("unrecognized log timestamp %q: %w", s, err)
	}
	t.Time = ts
	return nil
}

func (t LogTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Format(time.RFC3339Nano))
}

// LogEntry is one consensus protocol event reported by one node. Level is a
// fixed, algorithm-dependent vocabulary (PROMISE/ACCEPT/ACCEPTED/REJECT/
// CONSENSUS under paxos, VOTE/TERM/LEADER/COMMIT/ELECTION under raft,
// INFO/PROPOSE/ERROR/SYSTEM shared).
type LogEntry struct {
	Timestamp LogTime   `json:"timestamp"`
	NodeID    int       `json:"node_id"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Algorithm Algorithm `json:"algorithm"`
}

// ProposeResult is the structured outcome of a propose call that reached the
// node and yielded a parseable response.
type ProposeResult struct {
	Success bool
	// NewState, when present, carries the authoritative post-operation
	// balances per affected account.
	NewState map[Account]float64
	// Err carries the server-provided rejection message when Success is
	// false.
	Err string
	// LeaderHint is the leader the rejecting node pointed at, if any.
	LeaderHint string
}
