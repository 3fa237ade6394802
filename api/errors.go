package api

import (
	"errors"
	"fmt"
)

var (
	// ErrUnreachable marks a node-level transport failure: connection
	// refused, timeout or a non-success HTTP status on a read endpoint.
	ErrUnreachable = errors.New("node unreachable")

	// ErrClusterUnreachable means no configured node answered at all.
	// Callers must be able to tell this apart from a valid empty view.
	ErrClusterUnreachable = errors.New("no cluster node reachable")

	// ErrNoLeader means the leader-based algorithm is in effect but no
	// reachable node currently claims leadership.
	ErrNoLeader = errors.New("no leader in cluster")
)

// DispatchReason classifies why a dispatched operation failed.
type DispatchReason string

const (
	// ReasonNetwork: the propose call never produced a response.
	ReasonNetwork DispatchReason = "network"
	// ReasonRejected: the node answered with an application-level error.
	ReasonRejected DispatchReason = "rejected"
	// ReasonServerRejected: the node validated the request and refused it,
	// e.g. insufficient funds at the authoritative ledger.
	ReasonServerRejected DispatchReason = "server_rejected"
	// ReasonMalformedResponse: the response had an unexpected shape.
	ReasonMalformedResponse DispatchReason = "malformed_response"
)

// DispatchError is a typed failure of a single operation dispatch.
// A DispatchError never mutates the balance cache.
type DispatchError struct {
	Reason DispatchReason
	Detail string
	// LeaderHint is set when a non-leader raft node pointed at the leader.
	LeaderHint string
}

func (e *DispatchError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("dispatch failed: %s", e.Reason)
	}
	return fmt.Sprintf("dispatch failed: %s: %s", e.Reason, e.Detail)
}

// InvalidOperationError is a client-side validation failure raised before
// any network call is attempted.
type InvalidOperationError struct {
	Detail string
}

func (e *InvalidOperationError) Error() string {
	return "invalid operation: " + e.Detail
}
