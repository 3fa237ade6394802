package coordinator

import (
	"fmt"

	"github.com/shrtyk/ledger-coordinator/api"
)

// PickTarget resolves the single node a mutating operation may legally be
// sent to, given a fresh cluster view.
//
// Under the leader-based algorithm only the leader accepts writes, so the
// absence of a unique leadership claim yields api.ErrNoLeader; the
// operation is never tried against a non-leader. Under the quorum algorithm
// any reachable node is legal; the first one in node-ID order is chosen to
// keep routing reproducible.
//
// The decision must be made fresh for every dispatch: leadership can change
// between calls, so callers must not cache the result.
func PickTarget(view *api.ClusterView) (*api.NodeState, error) {
	if view == nil || view.ReachableCount() == 0 {
		return nil, api.ErrClusterUnreachable
	}

	switch view.Algorithm {
	case api.AlgorithmRaft:
		if view.Leader == nil {
			return nil, api.ErrNoLeader
		}
		return view.Leader, nil
	case api.AlgorithmPaxos:
		return &view.Nodes[0], nil
	default:
		return nil, fmt.Errorf("cannot route under unknown algorithm %q", view.Algorithm)
	}
}
