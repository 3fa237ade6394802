package api

import "context"

// NodeClient wraps one cluster member's REST surface. Implementations
// normalize failures: read endpoints (Status, FetchLogs, FetchLog) return
// errors wrapping ErrUnreachable on any transport failure, timeout or
// non-success status; write endpoints (Propose, SwitchAlgorithm, Reset,
// StartElection) return a *DispatchError carrying the server-provided
// message when the node answered, and an ErrUnreachable-wrapping error when
// it did not. Callers never see a raw transport error.
type NodeClient interface {
	// NodeID returns the stable, 1-based identifier of the node.
	NodeID() int

	// Status fetches the node's self-reported state.
	Status(ctx context.Context) (*NodeState, error)

	// Propose submits one encoded operation payload.
	Propose(ctx context.Context, payload string) (*ProposeResult, error)

	// SwitchAlgorithm asks the node to reinitialize under algo.
	SwitchAlgorithm(ctx context.Context, algo Algorithm) error

	// Reset asks the node to reinitialize, keeping its algorithm.
	Reset(ctx context.Context) error

	// StartElection asks the node to begin a leader election.
	StartElection(ctx context.Context) error

	// FetchLogs returns the node's recent consensus event entries.
	FetchLogs(ctx context.Context) ([]LogEntry, error)

	// FetchLog returns the operation payloads of the node's replicated log
	// in application order. Used for authoritative balance reads.
	FetchLog(ctx context.Context) ([]string, error)
}
