package api

import (
	"fmt"
	"time"

	"github.com/shrtyk/ledger-coordinator/pkg/logger"
)

// CoordinatorConfig carries every tunable of the coordinator. Use
// coordinator.DefaultConfig or coordinator.TestsConfig as a base.
type CoordinatorConfig struct {
	Log      LoggerCfg
	Cluster  ClusterCfg
	Timings  Timings
	CBreaker CircuitBreakerCfg
	Retry    RetryCfg
	// HTTPAddr is the listen address of the presentation-facing HTTP
	// facade. Empty disables it.
	HTTPAddr string
}

type LoggerCfg struct {
	Env logger.Enviroment
}

// ClusterCfg describes the fixed node topology. Node i (1-based) listens at
// BaseHost:BasePort+i.
type ClusterCfg struct {
	BaseHost string
	BasePort int
	Nodes    int
	// Accounts is the closed set of ledger accounts.
	Accounts []Account
	// OpeningBalance is the per-account balance the cluster ledger starts
	// from; authoritative replay reads are anchored on it.
	OpeningBalance float64
}

// Addresses returns the base URL of every configured node in node-ID order.
func (c ClusterCfg) Addresses() []string {
	addrs := make([]string, 0, c.Nodes)
	for id := 1; id <= c.Nodes; id++ {
		addrs = append(addrs, c.Address(id))
	}
	return addrs
}

// Address returns the base URL of one node.
func (c ClusterCfg) Address(nodeID int) string {
	return fmt.Sprintf("http://%s:%d", c.BaseHost, c.BasePort+nodeID)
}

type Timings struct {
	// StatusPollInterval is the cadence of the background status poll.
	StatusPollInterval time.Duration
	// LogPollInterval is the cadence of the background log aggregation.
	LogPollInterval time.Duration
	// SettleDelay is the pause after an algorithm switch or reset
	// broadcast before the follow-up poll, absorbing node reinit latency.
	SettleDelay time.Duration
	// RepollDelay is the pause after a successful dispatch before the
	// scheduled follow-up status poll.
	RepollDelay time.Duration
	// RequestTimeout bounds every single node call so one slow node cannot
	// stall a full-cluster round.
	RequestTimeout time.Duration
	// ShutdownTimeout bounds Stop.
	ShutdownTimeout time.Duration
}

type CircuitBreakerCfg struct {
	FailureThreshold int
	SuccessThreshold int
	ResetTimeout     time.Duration
}

// RetryCfg tunes the retry wrapper around authoritative balance reads.
type RetryCfg struct {
	MaxAttempts int
	BaseDelay   time.Duration
}
