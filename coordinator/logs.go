package coordinator

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/shrtyk/ledger-coordinator/api"
	"github.com/shrtyk/ledger-coordinator/pkg/logger"
	"github.com/shrtyk/ledger-coordinator/pkg/logmerge"
)

// aggregator collects each node's recent consensus events and merges them
// into one bounded, time-descending window.
type aggregator struct {
	clients []api.NodeClient
	bound   int
	logger  *slog.Logger
}

func newAggregator(clients []api.NodeClient, bound int, log *slog.Logger) *aggregator {
	return &aggregator{clients: clients, bound: bound, logger: log}
}

// collect fetches every node's log concurrently. A node that fails to
// answer contributes nothing; the aggregate never fails.
func (a *aggregator) collect(ctx context.Context) []api.LogEntry {
	streams := make([][]api.LogEntry, len(a.clients))

	g, gctx := errgroup.WithContext(ctx)
	for i, client := range a.clients {
		i, client := i, client
		g.Go(func() error {
			entries, err := client.FetchLogs(gctx)
			if err != nil {
				a.logger.Debug(
					"node did not answer log fetch",
					slog.Int("node_id", client.NodeID()),
					logger.ErrAttr(err),
				)
				return nil
			}
			streams[i] = entries
			return nil
		})
	}
	_ = g.Wait()

	return logmerge.Merge(a.bound, streams...)
}
