package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/shrtyk/ledger-coordinator/api"
	"github.com/shrtyk/ledger-coordinator/pkg/logger"
)

// broadcast invokes fn against every node concurrently and waits for all of
// them. Per-node failures are logged and collected but never abort the
// remaining calls: the broadcast is best-effort, not atomic. It returns an
// error only when no node acknowledged at all, in which case the joined
// per-node errors wrap api.ErrClusterUnreachable.
func broadcast(
	ctx context.Context,
	clients []api.NodeClient,
	log *slog.Logger,
	name string,
	fn func(context.Context, api.NodeClient) error,
) error {
	errs := make([]error, len(clients))

	g, gctx := errgroup.WithContext(ctx)
	for i, client := range clients {
		i, client := i, client
		g.Go(func() error {
			if err := fn(gctx, client); err != nil {
				log.Warn(
					"node did not acknowledge broadcast",
					slog.String("broadcast", name),
					slog.Int("node_id", client.NodeID()),
					logger.ErrAttr(err),
				)
				errs[i] = fmt.Errorf("node %d: %w", client.NodeID(), err)
			}
			return nil
		})
	}
	_ = g.Wait()

	var acked int
	for _, err := range errs {
		if err == nil {
			acked++
		}
	}
	if acked == 0 {
		return fmt.Errorf("%s broadcast: %w: %w", name, api.ErrClusterUnreachable, errors.Join(errs...))
	}
	if acked < len(clients) {
		log.Warn(
			"broadcast completed partially",
			slog.String("broadcast", name),
			slog.Int("acked", acked),
			slog.Int("nodes", len(clients)),
		)
	}
	return nil
}
