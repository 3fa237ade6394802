package coordinator

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shrtyk/ledger-coordinator/api"
	"github.com/shrtyk/ledger-coordinator/pkg/logger"
)

// Poller builds cluster views by querying every configured node
// concurrently and keeping whatever subset answered.
type Poller struct {
	clients []api.NodeClient
	logger  *slog.Logger
	now     func() time.Time
}

func NewPoller(clients []api.NodeClient, log *slog.Logger, now func() time.Time) *Poller {
	return &Poller{clients: clients, logger: log, now: now}
}

// Poll queries all nodes and assembles a fresh ClusterView. Unreachable
// nodes are absorbed here and never propagate. When no node answers at all
// it returns api.ErrClusterUnreachable so callers can tell an unreachable
// cluster apart from a valid empty view.
func (p *Poller) Poll(ctx context.Context) (*api.ClusterView, error) {
	states := make([]*api.NodeState, len(p.clients))

	g, gctx := errgroup.WithContext(ctx)
	for i, client := range p.clients {
		i, client := i, client
		g.Go(func() error {
			ns, err := client.Status(gctx)
			if err != nil {
				p.logger.Debug(
					"node did not answer status poll",
					slog.Int("node_id", client.NodeID()),
					logger.ErrAttr(err),
				)
				return nil
			}
			states[i] = ns
			return nil
		})
	}
	// Goroutines absorb their own failures, the join never errors.
	_ = g.Wait()

	view := &api.ClusterView{PolledAt: p.now()}
	for _, ns := range states {
		if ns != nil {
			view.Nodes = append(view.Nodes, *ns)
		}
	}
	if len(view.Nodes) == 0 {
		return nil, api.ErrClusterUnreachable
	}

	p.inferAlgorithm(view)
	p.inferLeader(view)
	return view, nil
}

// inferAlgorithm takes the algorithm of the first reachable node in node-ID
// order. This is a best-effort heuristic, not a consensus read: during a
// switch nodes can transiently disagree, which is surfaced via Divergent
// and logged as an observability signal rather than hidden.
func (p *Poller) inferAlgorithm(view *api.ClusterView) {
	view.Algorithm = view.Nodes[0].Algorithm
	for _, ns := range view.Nodes[1:] {
		if ns.Algorithm != view.Algorithm {
			view.Divergent = true
			p.logger.Warn(
				"cluster nodes disagree on the active algorithm",
				slog.String("inferred", string(view.Algorithm)),
				slog.Int("node_id", ns.NodeID),
				slog.String("node_algorithm", string(ns.Algorithm)),
			)
			break
		}
	}
}

// inferLeader records the node claiming leadership. With zero or multiple
// claims the leader stays nil: the coordinator surfaces "no leader" and
// never guesses between competing claims.
func (p *Poller) inferLeader(view *api.ClusterView) {
	var leader *api.NodeState
	for i := range view.Nodes {
		if !view.Nodes[i].IsLeader() {
			continue
		}
		if leader != nil {
			p.logger.Warn(
				"multiple nodes claim leadership",
				slog.Int("first", leader.NodeID),
				slog.Int("second", view.Nodes[i].NodeID),
			)
			return
		}
		leader = &view.Nodes[i]
	}
	view.Leader = leader
}
