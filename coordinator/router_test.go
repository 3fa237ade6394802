package coordinator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shrtyk/ledger-coordinator/api"
)

func TestPickTarget(t *testing.T) {
	t.Run("nil view", func(t *testing.T) {
		_, err := PickTarget(nil)
		assert.ErrorIs(t, err, api.ErrClusterUnreachable)
	})

	t.Run("empty view", func(t *testing.T) {
		_, err := PickTarget(&api.ClusterView{Algorithm: api.AlgorithmRaft})
		assert.ErrorIs(t, err, api.ErrClusterUnreachable)
	})

	t.Run("raft routes to the leader", func(t *testing.T) {
		leader := leaderNode(3)
		view := &api.ClusterView{
			Nodes:     []api.NodeState{*followerNode(1), *followerNode(2), *leader},
			Algorithm: api.AlgorithmRaft,
			Leader:    leader,
		}

		target, err := PickTarget(view)
		require.NoError(t, err)
		assert.Equal(t, 3, target.NodeID)
	})

	t.Run("raft without a leader", func(t *testing.T) {
		view := &api.ClusterView{
			Nodes:     []api.NodeState{*followerNode(1), *followerNode(2)},
			Algorithm: api.AlgorithmRaft,
		}

		_, err := PickTarget(view)
		assert.ErrorIs(t, err, api.ErrNoLeader)
	})

	t.Run("paxos routes to the first reachable node", func(t *testing.T) {
		view := &api.ClusterView{
			Nodes:     []api.NodeState{*paxosNode(2), *paxosNode(4)},
			Algorithm: api.AlgorithmPaxos,
		}

		target, err := PickTarget(view)
		require.NoError(t, err)
		assert.Equal(t, 2, target.NodeID)
	})

	t.Run("unknown algorithm", func(t *testing.T) {
		view := &api.ClusterView{
			Nodes:     []api.NodeState{*paxosNode(1)},
			Algorithm: "zab",
		}

		_, err := PickTarget(view)
		assert.Error(t, err)
	})
}
