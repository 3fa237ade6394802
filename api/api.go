/*
Package api defines the public contracts of the ledger coordinator.

The coordinator is a client-side component: it does not run any consensus
algorithm itself. It talks to a cluster of consensus nodes over their REST
surface, routes balance-mutating operations to a legal target node, keeps a
local balance cache consistent with the authoritative ledger state, and
merges the per-node consensus event streams into one time-ordered view.

# Interfaces

  - Coordinator: the outward surface consumed by a presentation layer
    (CLI, HTTP facade, UI). All operations take a context and return typed
    errors from this package.

  - NodeClient: one cluster member's RPC surface. The default HTTP/JSON
    implementation lives in github.com/shrtyk/ledger-coordinator/pkg/transport;
    tests substitute fakes.
*/
package api

import "context"

// Coordinator is the outward interface of the ledger coordinator.
//
// All methods are safe for concurrent use. Methods performing cluster I/O
// honor context cancellation and per-node request timeouts from the config.
type Coordinator interface {
	// Start launches the background status and log polling loops.
	// It must be called once before any other method.
	Start() error

	// Stop cancels all background work and waits for it to finish.
	// No shared state is mutated after Stop returns.
	Stop() error

	// ClusterView returns the most recent cluster view. It returns
	// ErrClusterUnreachable if the last poll reached no node at all.
	ClusterView() (*ClusterView, error)

	// PollNow performs an immediate status poll and returns the fresh view.
	PollNow(ctx context.Context) (*ClusterView, error)

	// SubmitOperation validates, routes, encodes and submits a single
	// balance-mutating operation. On success it returns the authoritative
	// post-operation balances of the affected accounts and updates the
	// balance cache. On failure the cache is left untouched and a typed
	// error (*InvalidOperationError, *DispatchError, ErrNoLeader,
	// ErrClusterUnreachable) is returned.
	SubmitOperation(ctx context.Context, op Operation) (map[Account]float64, error)

	// SwitchAlgorithm broadcasts an algorithm change to every node,
	// tolerating partial failure, waits the settling delay, re-polls and
	// invalidates the balance cache.
	SwitchAlgorithm(ctx context.Context, algo Algorithm) error

	// ResetCluster broadcasts a reset to every node with the same
	// tolerate-partial-failure policy and invalidates the balance cache.
	ResetCluster(ctx context.Context) error

	// StartElection asks the current set of reachable nodes to begin a
	// leader election. Meaningful only under the leader-based algorithm.
	StartElection(ctx context.Context) error

	// MergedLogs returns the most recent merged, time-descending, bounded
	// window of per-node consensus log entries.
	MergedLogs() []LogEntry

	// PollLogsNow fetches every node's log immediately and returns the
	// fresh merged window. Nodes that fail to answer contribute nothing.
	PollLogsNow(ctx context.Context) []LogEntry

	// Balance returns the balance of one account. A cache miss triggers an
	// authoritative read from the cluster which then seeds the cache.
	Balance(ctx context.Context, account Account) (float64, error)

	// InvalidateBalances drops every cached balance. The next Balance call
	// per account performs a fresh authoritative read.
	InvalidateBalances()
}
