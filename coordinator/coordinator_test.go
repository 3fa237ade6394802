package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shrtyk/ledger-coordinator/api"
	"github.com/shrtyk/ledger-coordinator/pkg/logger"
)

// newTestCoordinator wires the facade with fakes and a mock clock. The node
// count follows the supplied clients.
func newTestCoordinator(t *testing.T, clients []api.NodeClient) (*Coordinator, *clock.Mock) {
	t.Helper()

	cfg := TestsConfig()
	cfg.Cluster.Nodes = len(clients)
	_, log := logger.NewTestLogger()
	mock := clock.NewMock()

	c, err := NewBuilder().
		WithConfig(cfg).
		WithLogger(log).
		WithClock(mock).
		WithClients(clients).
		Build()
	require.NoError(t, err)

	return c.(*Coordinator), mock
}

// settleGoroutines yields so freshly started goroutines register their mock
// clock timers before the test advances time.
func settleGoroutines() {
	time.Sleep(10 * time.Millisecond)
}

func fourNodeCluster(leaderID int) []*fakeClient {
	clients := make([]*fakeClient, 0, 4)
	for id := 1; id <= 4; id++ {
		state := followerNode(id)
		if id == leaderID {
			state = leaderNode(id)
		}
		clients = append(clients, &fakeClient{id: id, state: state})
	}
	return clients
}

func asNodeClients(clients []*fakeClient) []api.NodeClient {
	out := make([]api.NodeClient, len(clients))
	for i, c := range clients {
		out[i] = c
	}
	return out
}

func TestBuilderValidation(t *testing.T) {
	t.Run("client count must match topology", func(t *testing.T) {
		cfg := TestsConfig()
		cfg.Cluster.Nodes = 4
		_, err := NewBuilder().
			WithConfig(cfg).
			WithClients([]api.NodeClient{&fakeClient{id: 1, state: leaderNode(1)}}).
			Build()
		assert.Error(t, err)
	})

	t.Run("accounts are required", func(t *testing.T) {
		cfg := TestsConfig()
		cfg.Cluster.Accounts = nil
		_, err := NewBuilder().WithConfig(cfg).Build()
		assert.Error(t, err)
	})
}

func TestStartPollsImmediately(t *testing.T) {
	clients := fourNodeCluster(2)
	c, _ := newTestCoordinator(t, asNodeClients(clients))

	require.NoError(t, c.Start())
	defer func() { require.NoError(t, c.Stop()) }()

	view, err := c.ClusterView()
	require.NoError(t, err)
	assert.Equal(t, 4, view.ReachableCount())
	require.NotNil(t, view.Leader)
	assert.Equal(t, 2, view.Leader.NodeID)
}

func TestBackgroundPollCadence(t *testing.T) {
	clients := fourNodeCluster(1)
	c, mock := newTestCoordinator(t, asNodeClients(clients))

	require.NoError(t, c.Start())
	defer func() { require.NoError(t, c.Stop()) }()
	settleGoroutines()

	before := clients[0].statusCount()
	mock.Add(c.cfg.Timings.StatusPollInterval)
	settleGoroutines()

	assert.Greater(t, clients[0].statusCount(), before,
		"advancing past the poll interval must trigger a status round")
}

func TestBackgroundLogCadence(t *testing.T) {
	clients := fourNodeCluster(1)
	clients[2].logs = []api.LogEntry{entryAt(3, time.Second)}
	c, mock := newTestCoordinator(t, asNodeClients(clients))

	require.NoError(t, c.Start())
	defer func() { require.NoError(t, c.Stop()) }()
	settleGoroutines()

	assert.Empty(t, c.MergedLogs())

	mock.Add(c.cfg.Timings.LogPollInterval)
	settleGoroutines()

	merged := c.MergedLogs()
	require.Len(t, merged, 1)
	assert.Equal(t, 3, merged[0].NodeID)
}

func TestSubmitOperationSchedulesRepoll(t *testing.T) {
	clients := fourNodeCluster(1)
	clients[0].proposeFn = func(payload string) (*api.ProposeResult, error) {
		return &api.ProposeResult{
			Success:  true,
			NewState: map[api.Account]float64{api.AccountA: 1100.00},
		}, nil
	}
	c, mock := newTestCoordinator(t, asNodeClients(clients))

	require.NoError(t, c.Start())
	defer func() { require.NoError(t, c.Stop()) }()
	settleGoroutines()

	balances, err := c.SubmitOperation(context.Background(), api.Operation{
		Type:   api.OpDeposit,
		Amount: 100.00,
		Source: api.AccountA,
	})
	require.NoError(t, err)
	assert.Equal(t, map[api.Account]float64{api.AccountA: 1100.00}, balances)
	settleGoroutines()

	before := clients[0].statusCount()
	mock.Add(c.cfg.Timings.RepollDelay)
	settleGoroutines()

	assert.Greater(t, clients[0].statusCount(), before,
		"the post-dispatch repoll must fire after the configured delay")
}

func TestSwitchAlgorithmToleratesOneFailingNode(t *testing.T) {
	clients := fourNodeCluster(1)
	clients[3].switchErr = api.ErrUnreachable
	c, mock := newTestCoordinator(t, asNodeClients(clients))

	require.NoError(t, c.Start())
	defer func() { require.NoError(t, c.Stop()) }()
	settleGoroutines()

	c.cache.applyAuthoritative(map[api.Account]float64{api.AccountA: 123.00})

	done := make(chan error, 1)
	go func() { done <- c.SwitchAlgorithm(context.Background(), api.AlgorithmPaxos) }()
	settleGoroutines()
	mock.Add(c.cfg.Timings.SettleDelay)

	require.NoError(t, <-done)

	for _, fc := range clients[:3] {
		assert.Equal(t, []api.Algorithm{api.AlgorithmPaxos}, fc.switched)
	}
	assert.Empty(t, clients[3].switched)
	assert.Empty(t, c.CachedBalances(), "a switch must drop every cached balance")
}

func TestSwitchAlgorithmAllNodesDown(t *testing.T) {
	clients := fourNodeCluster(1)
	for _, fc := range clients {
		fc.switchErr = api.ErrUnreachable
	}
	c, _ := newTestCoordinator(t, asNodeClients(clients))
	require.NoError(t, c.Start())
	defer func() { require.NoError(t, c.Stop()) }()

	err := c.SwitchAlgorithm(context.Background(), api.AlgorithmPaxos)
	assert.ErrorIs(t, err, api.ErrClusterUnreachable)
}

func TestSwitchAlgorithmRejectsUnknown(t *testing.T) {
	c, _ := newTestCoordinator(t, asNodeClients(fourNodeCluster(1)))
	require.NoError(t, c.Start())
	defer func() { require.NoError(t, c.Stop()) }()

	var ierr *api.InvalidOperationError
	assert.ErrorAs(t, c.SwitchAlgorithm(context.Background(), "zab"), &ierr)
}

func TestResetClusterBroadcastsAndInvalidates(t *testing.T) {
	clients := fourNodeCluster(1)
	c, mock := newTestCoordinator(t, asNodeClients(clients))

	require.NoError(t, c.Start())
	defer func() { require.NoError(t, c.Stop()) }()
	settleGoroutines()

	c.cache.applyAuthoritative(map[api.Account]float64{api.AccountA: 1.00})

	done := make(chan error, 1)
	go func() { done <- c.ResetCluster(context.Background()) }()
	settleGoroutines()
	mock.Add(c.cfg.Timings.SettleDelay)

	require.NoError(t, <-done)
	for _, fc := range clients {
		assert.Equal(t, 1, fc.resets)
	}
	assert.Empty(t, c.CachedBalances())
}

func TestStartElection(t *testing.T) {
	t.Run("raft asks the first reachable node", func(t *testing.T) {
		clients := fourNodeCluster(2)
		c, _ := newTestCoordinator(t, asNodeClients(clients))
		require.NoError(t, c.Start())
		defer func() { require.NoError(t, c.Stop()) }()

		require.NoError(t, c.StartElection(context.Background()))
		assert.Equal(t, 1, clients[0].elections)
		assert.Zero(t, clients[1].elections)
	})

	t.Run("rejected under the quorum algorithm", func(t *testing.T) {
		clients := []api.NodeClient{
			&fakeClient{id: 1, state: paxosNode(1)},
			&fakeClient{id: 2, state: paxosNode(2)},
		}
		c, _ := newTestCoordinator(t, clients)
		require.NoError(t, c.Start())
		defer func() { require.NoError(t, c.Stop()) }()

		var ierr *api.InvalidOperationError
		assert.ErrorAs(t, c.StartElection(context.Background()), &ierr)
	})
}

func TestBalanceReadThrough(t *testing.T) {
	clients := fourNodeCluster(1)
	clients[0].rawLog = []string{
		"DEPOSIT;KONTO_A;500.00;TX_ID:a",
		"TRANSFER;KONTO_A;KONTO_B;300.00;TX_ID:b",
	}
	c, _ := newTestCoordinator(t, asNodeClients(clients))
	require.NoError(t, c.Start())
	defer func() { require.NoError(t, c.Stop()) }()

	bal, err := c.Balance(context.Background(), api.AccountA)
	require.NoError(t, err)
	assert.Equal(t, 1200.00, bal)

	// The read seeds the full balance sheet, so the sibling account is
	// served locally even after the node stops answering.
	clients[0].mu.Lock()
	clients[0].rawErr = api.ErrUnreachable
	clients[0].mu.Unlock()

	bal, err = c.Balance(context.Background(), api.AccountB)
	require.NoError(t, err)
	assert.Equal(t, 1300.00, bal)
}

func TestBalanceUnknownAccount(t *testing.T) {
	c, _ := newTestCoordinator(t, asNodeClients(fourNodeCluster(1)))
	require.NoError(t, c.Start())
	defer func() { require.NoError(t, c.Stop()) }()

	var ierr *api.InvalidOperationError
	_, err := c.Balance(context.Background(), "KONTO_X")
	assert.ErrorAs(t, err, &ierr)
}

func TestInvalidateBalancesForcesRemoteRead(t *testing.T) {
	clients := fourNodeCluster(1)
	clients[0].rawLog = []string{"DEPOSIT;KONTO_A;100.00;TX_ID:a"}
	c, _ := newTestCoordinator(t, asNodeClients(clients))
	require.NoError(t, c.Start())
	defer func() { require.NoError(t, c.Stop()) }()

	bal, err := c.Balance(context.Background(), api.AccountA)
	require.NoError(t, err)
	assert.Equal(t, 1100.00, bal)

	clients[0].mu.Lock()
	clients[0].rawLog = []string{"DEPOSIT;KONTO_A;400.00;TX_ID:b"}
	clients[0].mu.Unlock()

	c.InvalidateBalances()

	bal, err = c.Balance(context.Background(), api.AccountA)
	require.NoError(t, err)
	assert.Equal(t, 1400.00, bal, "invalidation must force a fresh authoritative read")
}
