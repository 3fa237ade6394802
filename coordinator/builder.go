package coordinator

import (
	"context"
	"errors"
	"log/slog"

	"github.com/benbjohnson/clock"

	"github.com/shrtyk/ledger-coordinator/api"
	"github.com/shrtyk/ledger-coordinator/pkg/transport"
	"github.com/shrtyk/ledger-coordinator/pkg/txcodec"

	lg "github.com/shrtyk/ledger-coordinator/pkg/logger"
)

const txIDPrefix = "coord"

type builder struct {
	cfg     *api.CoordinatorConfig
	logger  *slog.Logger
	clock   clock.Clock
	clients []api.NodeClient
}

// NewBuilder returns a CoordinatorBuilder with production defaults: the
// default config, a logger derived from the config environment, the wall
// clock and HTTP node clients built from the cluster topology.
func NewBuilder() api.CoordinatorBuilder {
	return &builder{}
}

func (b *builder) WithConfig(cfg *api.CoordinatorConfig) api.CoordinatorBuilder {
	b.cfg = cfg
	return b
}

func (b *builder) WithLogger(logger *slog.Logger) api.CoordinatorBuilder {
	b.logger = logger
	return b
}

func (b *builder) WithClock(cl clock.Clock) api.CoordinatorBuilder {
	b.clock = cl
	return b
}

func (b *builder) WithClients(clients []api.NodeClient) api.CoordinatorBuilder {
	b.clients = clients
	return b
}

func (b *builder) Build() (api.Coordinator, error) {
	cfg := b.cfg
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Cluster.Nodes <= 0 {
		return nil, errors.New("cluster must have at least one node")
	}
	if len(cfg.Cluster.Accounts) == 0 {
		return nil, errors.New("cluster must define at least one account")
	}

	log := b.logger
	if log == nil {
		log = lg.NewLogger(cfg.Log.Env, false)
	}

	cl := b.clock
	if cl == nil {
		cl = clock.New()
	}

	clients := b.clients
	if clients == nil {
		clients = transport.NewClients(cfg.Cluster, cfg.Timings.RequestTimeout, cfg.CBreaker)
	}
	if len(clients) != cfg.Cluster.Nodes {
		return nil, errors.New("client count must match the configured node count")
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		cfg:     cfg,
		logger:  log,
		clock:   cl,
		clients: clients,
		cache:   newBalanceCache(),
		ctx:     ctx,
		cancel:  cancel,
	}
	c.poller = NewPoller(clients, log, cl.Now)
	c.aggregator = newAggregator(clients, defaultLogWindow, log)
	c.dispatcher = newDispatcher(
		clients,
		txcodec.NewEncoder(txIDPrefix),
		c.cache,
		cfg.Cluster,
		log,
		c.scheduleRepoll,
	)
	return c, nil
}
