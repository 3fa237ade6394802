// Package coordinator implements the client-side ledger coordinator: it
// discovers which cluster node is safe to target, encodes and dispatches
// balance-mutating operations, reconciles the local balance cache against
// authoritative cluster state, and merges per-node consensus event streams
// for observability.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/clock"

	"github.com/shrtyk/ledger-coordinator/api"
	"github.com/shrtyk/ledger-coordinator/internal/retry"
	"github.com/shrtyk/ledger-coordinator/pkg/ledger"
)

// Coordinator is the concrete api.Coordinator. Build it with NewBuilder.
type Coordinator struct {
	cfg     *api.CoordinatorConfig
	logger  *slog.Logger
	clock   clock.Clock
	clients []api.NodeClient

	poller     *Poller
	aggregator *aggregator
	dispatcher *dispatcher
	cache      *balanceCache

	mu      sync.RWMutex
	view    *api.ClusterView
	viewErr error
	logs    []api.LogEntry

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	dead   int32 // set by Stop()
}

var _ api.Coordinator = (*Coordinator)(nil)

// Start performs an initial status poll and launches the background status
// and log polling loops.
func (c *Coordinator) Start() error {
	if c.killed() {
		return errors.New("coordinator already stopped")
	}

	view, err := c.poller.Poll(c.ctx)
	c.storeView(view, err)
	if err != nil {
		c.logger.Warn("initial poll reached no node; cluster may be down")
	}

	c.wg.Add(2)
	go c.pollLoop()
	go c.logsLoop()
	return nil
}

// Stop cancels all background work and waits for it to finish. No shared
// state is mutated after Stop returns.
func (c *Coordinator) Stop() error {
	atomic.StoreInt32(&c.dead, 1)
	c.cancel()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	timer := c.clock.Timer(c.cfg.Timings.ShutdownTimeout)
	defer timer.Stop()
	select {
	case <-done:
		return nil
	case <-timer.C:
		return errors.New("shutdown timed out waiting for background work")
	}
}

func (c *Coordinator) killed() bool {
	return atomic.LoadInt32(&c.dead) == 1
}

// pollLoop refreshes the cluster view on the configured cadence.
func (c *Coordinator) pollLoop() {
	defer c.wg.Done()

	ticker := c.clock.Ticker(c.cfg.Timings.StatusPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			view, err := c.poller.Poll(c.ctx)
			c.storeView(view, err)
		}
	}
}

// logsLoop refreshes the merged consensus log window on its own cadence.
func (c *Coordinator) logsLoop() {
	defer c.wg.Done()

	ticker := c.clock.Ticker(c.cfg.Timings.LogPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.storeLogs(c.aggregator.collect(c.ctx))
		}
	}
}

func (c *Coordinator) storeView(view *api.ClusterView, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.killed() {
		return
	}
	c.view, c.viewErr = view, err
}

func (c *Coordinator) storeLogs(logs []api.LogEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.killed() {
		return
	}
	c.logs = logs
}

// ClusterView returns the last polled view. ErrClusterUnreachable is
// returned when the last poll reached no node.
func (c *Coordinator) ClusterView() (*api.ClusterView, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.viewErr != nil {
		return nil, c.viewErr
	}
	if c.view == nil {
		return nil, api.ErrClusterUnreachable
	}
	return c.view, nil
}

// PollNow performs an immediate status poll, stores and returns the result.
func (c *Coordinator) PollNow(ctx context.Context) (*api.ClusterView, error) {
	view, err := c.poller.Poll(ctx)
	c.storeView(view, err)
	return view, err
}

// PollLogsNow fetches and merges every node's consensus log immediately.
func (c *Coordinator) PollLogsNow(ctx context.Context) []api.LogEntry {
	logs := c.aggregator.collect(ctx)
	c.storeLogs(logs)
	return logs
}

// MergedLogs returns the last merged consensus log window.
func (c *Coordinator) MergedLogs() []api.LogEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]api.LogEntry, len(c.logs))
	copy(out, c.logs)
	return out
}

// SubmitOperation dispatches one operation against a fresh routing
// decision. The view is re-polled first so leadership changes between
// submissions are honored.
func (c *Coordinator) SubmitOperation(ctx context.Context, op api.Operation) (map[api.Account]float64, error) {
	view, err := c.PollNow(ctx)
	if err != nil {
		return nil, err
	}
	return c.dispatcher.dispatch(ctx, view, op)
}

// SwitchAlgorithm broadcasts the algorithm change, invalidates every cached
// balance, waits the settling delay to absorb node reinitialization, then
// re-polls.
func (c *Coordinator) SwitchAlgorithm(ctx context.Context, algo api.Algorithm) error {
	if !algo.Valid() {
		return &api.InvalidOperationError{Detail: fmt.Sprintf("unknown algorithm %q", algo)}
	}

	err := broadcast(ctx, c.clients, c.logger, "switch_algorithm",
		func(ctx context.Context, client api.NodeClient) error {
			return client.SwitchAlgorithm(ctx, algo)
		})
	if err != nil {
		return err
	}

	// A different algorithm means the authoritative ledger state must be
	// re-read, not trusted from the previous algorithm's results.
	c.cache.invalidateAll()

	if err := c.settle(ctx); err != nil {
		return err
	}
	_, _ = c.PollNow(ctx)
	return nil
}

// ResetCluster broadcasts a reset with the same tolerate-partial-failure
// policy and drops every cached balance.
func (c *Coordinator) ResetCluster(ctx context.Context) error {
	err := broadcast(ctx, c.clients, c.logger, "reset",
		func(ctx context.Context, client api.NodeClient) error {
			return client.Reset(ctx)
		})
	if err != nil {
		return err
	}

	c.cache.invalidateAll()

	if err := c.settle(ctx); err != nil {
		return err
	}
	_, _ = c.PollNow(ctx)
	return nil
}

// StartElection asks the first reachable node to begin a leader election.
func (c *Coordinator) StartElection(ctx context.Context) error {
	view, err := c.PollNow(ctx)
	if err != nil {
		return err
	}
	if view.Algorithm != api.AlgorithmRaft {
		return &api.InvalidOperationError{Detail: "elections exist only under the leader-based algorithm"}
	}

	client, ok := c.clientByID(view.Nodes[0].NodeID)
	if !ok {
		return fmt.Errorf("no client for node %d", view.Nodes[0].NodeID)
	}
	return client.StartElection(ctx)
}

// settle waits the configured settling delay on the coordinator clock.
func (c *Coordinator) settle(ctx context.Context) error {
	timer := c.clock.Timer(c.cfg.Timings.SettleDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Balance returns one account's balance, reading through to the cluster on
// a cache miss. The remote read is retried on transient failure and its
// result seeds the cache.
func (c *Coordinator) Balance(ctx context.Context, account api.Account) (float64, error) {
	if !c.knownAccount(account) {
		return 0, &api.InvalidOperationError{Detail: fmt.Sprintf("unknown account %q", account)}
	}

	if bal, ok := c.cache.get(account); ok {
		return bal, nil
	}

	var balances map[api.Account]float64
	err := retry.Do(ctx, func(ctx context.Context) error {
		var rerr error
		balances, rerr = c.readAuthoritative(ctx)
		return rerr
	},
		retry.WithMaxAttempts(c.cfg.Retry.MaxAttempts),
		retry.WithBaseDelay(c.cfg.Retry.BaseDelay),
	)
	if err != nil {
		return 0, fmt.Errorf("authoritative balance read: %w", err)
	}

	c.cache.seed(balances)
	// Serve from the cache: a dispatch that raced the read wins.
	bal, _ := c.cache.get(account)
	return bal, nil
}

// CachedBalances returns a snapshot of the balance cache.
func (c *Coordinator) CachedBalances() map[api.Account]float64 {
	return c.cache.snapshot()
}

// InvalidateBalances drops every cached balance.
func (c *Coordinator) InvalidateBalances() {
	c.cache.invalidateAll()
}

// readAuthoritative fetches the replicated operation log from the node a
// write would be routed to and replays it into the full balance sheet.
func (c *Coordinator) readAuthoritative(ctx context.Context) (map[api.Account]float64, error) {
	view, err := c.PollNow(ctx)
	if err != nil {
		return nil, err
	}
	target, err := PickTarget(view)
	if err != nil {
		return nil, err
	}
	client, ok := c.clientByID(target.NodeID)
	if !ok {
		return nil, fmt.Errorf("no client for routed node %d", target.NodeID)
	}

	entries, err := client.FetchLog(ctx)
	if err != nil {
		return nil, err
	}
	return ledger.Replay(c.cfg.Cluster.Accounts, c.cfg.Cluster.OpeningBalance, entries).Balances(), nil
}

func (c *Coordinator) clientByID(nodeID int) (api.NodeClient, bool) {
	for _, client := range c.clients {
		if client.NodeID() == nodeID {
			return client, true
		}
	}
	return nil, false
}

func (c *Coordinator) knownAccount(account api.Account) bool {
	for _, a := range c.cfg.Cluster.Accounts {
		if a == account {
			return true
		}
	}
	return false
}

// scheduleRepoll triggers a status poll after the configured delay without
// blocking the caller. Used after successful dispatches so the displayed
// log sizes catch up with the accepted operation.
func (c *Coordinator) scheduleRepoll() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		timer := c.clock.Timer(c.cfg.Timings.RepollDelay)
		defer timer.Stop()
		select {
		case <-c.ctx.Done():
			return
		case <-timer.C:
		}

		view, err := c.poller.Poll(c.ctx)
		c.storeView(view, err)
	}()
}
