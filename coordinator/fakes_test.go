package coordinator

import (
	"context"
	"sync"

	"github.com/shrtyk/ledger-coordinator/api"
)

// fakeClient is an in-memory api.NodeClient for coordinator tests. Every
// call is counted so tests can assert how much network traffic a code path
// produced.
type fakeClient struct {
	mu sync.Mutex

	id          int
	state       *api.NodeState
	statusErr   error
	statusCalls int

	proposeFn func(payload string) (*api.ProposeResult, error)
	proposed  []string

	switchErr error
	resetErr  error
	electErr  error
	switched  []api.Algorithm
	resets    int
	elections int

	logs    []api.LogEntry
	logsErr error

	rawLog []string
	rawErr error
}

var _ api.NodeClient = (*fakeClient)(nil)

func (f *fakeClient) NodeID() int { return f.id }

func (f *fakeClient) Status(ctx context.Context) (*api.NodeState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	st := *f.state
	return &st, nil
}

func (f *fakeClient) Propose(ctx context.Context, payload string) (*api.ProposeResult, error) {
	f.mu.Lock()
	f.proposed = append(f.proposed, payload)
	fn := f.proposeFn
	f.mu.Unlock()
	if fn == nil {
		return &api.ProposeResult{Success: true}, nil
	}
	return fn(payload)
}

func (f *fakeClient) SwitchAlgorithm(ctx context.Context, algo api.Algorithm) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.switchErr != nil {
		return f.switchErr
	}
	f.switched = append(f.switched, algo)
	return nil
}

func (f *fakeClient) Reset(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resetErr != nil {
		return f.resetErr
	}
	f.resets++
	return nil
}

func (f *fakeClient) StartElection(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.electErr != nil {
		return f.electErr
	}
	f.elections++
	return nil
}

func (f *fakeClient) FetchLogs(ctx context.Context) ([]api.LogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.logsErr != nil {
		return nil, f.logsErr
	}
	return f.logs, nil
}

func (f *fakeClient) FetchLog(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rawErr != nil {
		return nil, f.rawErr
	}
	return f.rawLog, nil
}

func (f *fakeClient) proposeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.proposed)
}

func (f *fakeClient) statusCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusCalls
}

// leaderNode and followerNode build common NodeState fixtures.
func leaderNode(id int) *api.NodeState {
	return &api.NodeState{NodeID: id, Algorithm: api.AlgorithmRaft, Role: api.RoleLeader, Term: 3}
}

func followerNode(id int) *api.NodeState {
	return &api.NodeState{NodeID: id, Algorithm: api.AlgorithmRaft, Role: "follower", Term: 3}
}

func paxosNode(id int) *api.NodeState {
	return &api.NodeState{NodeID: id, Algorithm: api.AlgorithmPaxos}
}
