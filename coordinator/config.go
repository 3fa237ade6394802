package coordinator

import (
	"time"

	"github.com/shrtyk/ledger-coordinator/api"
	"github.com/shrtyk/ledger-coordinator/pkg/logger"
)

const (
	defaultBaseHost = "localhost"
	defaultBasePort = 8000
	defaultNodes    = 4

	defaultOpeningBalance = 1000.00

	// defaultLogWindow bounds the merged consensus log kept for display.
	defaultLogWindow = 50
)

func DefaultConfig() *api.CoordinatorConfig {
	return &api.CoordinatorConfig{
		Log: api.LoggerCfg{
			Env: logger.Prod,
		},
		Cluster: api.ClusterCfg{
			BaseHost:       defaultBaseHost,
			BasePort:       defaultBasePort,
			Nodes:          defaultNodes,
			Accounts:       []api.Account{api.AccountA, api.AccountB},
			OpeningBalance: defaultOpeningBalance,
		},
		Timings: api.Timings{
			StatusPollInterval: 5 * time.Second,
			LogPollInterval:    2 * time.Second,
			SettleDelay:        1 * time.Second,
			RepollDelay:        500 * time.Millisecond,
			RequestTimeout:     2 * time.Second,
			ShutdownTimeout:    3 * time.Second,
		},
		CBreaker: api.CircuitBreakerCfg{
			FailureThreshold: 6,
			SuccessThreshold: 4,
			ResetTimeout:     5 * time.Second,
		},
		Retry: api.RetryCfg{
			MaxAttempts: 3,
			BaseDelay:   150 * time.Millisecond,
		},
	}
}

func TestsConfig() *api.CoordinatorConfig {
	return &api.CoordinatorConfig{
		Log: api.LoggerCfg{
			Env: logger.Dev,
		},
		Cluster: api.ClusterCfg{
			BaseHost:       defaultBaseHost,
			BasePort:       defaultBasePort,
			Nodes:          defaultNodes,
			Accounts:       []api.Account{api.AccountA, api.AccountB},
			OpeningBalance: defaultOpeningBalance,
		},
		Timings: api.Timings{
			StatusPollInterval: 5 * time.Second,
			LogPollInterval:    2 * time.Second,
			SettleDelay:        1 * time.Second,
			RepollDelay:        500 * time.Millisecond,
			RequestTimeout:     100 * time.Millisecond,
			ShutdownTimeout:    3 * time.Second,
		},
		CBreaker: api.CircuitBreakerCfg{
			FailureThreshold: 6,
			SuccessThreshold: 4,
			ResetTimeout:     5 * time.Second,
		},
		Retry: api.RetryCfg{
			MaxAttempts: 2,
			BaseDelay:   time.Millisecond,
		},
	}
}
