package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shrtyk/ledger-coordinator/api"
	"github.com/shrtyk/ledger-coordinator/pkg/ledger"
	"github.com/shrtyk/ledger-coordinator/pkg/logger"
	"github.com/shrtyk/ledger-coordinator/pkg/txcodec"
)

// dispatcher submits one operation to exactly one routed target and keeps
// the balance cache consistent with the authoritative outcome. It never
// retries on its own: retrying is the caller's decision.
type dispatcher struct {
	clients map[int]api.NodeClient
	encoder *txcodec.Encoder
	cache   *balanceCache
	cluster api.ClusterCfg
	logger  *slog.Logger

	// afterSuccess is invoked (non-blocking) after a successful dispatch
	// to schedule a fresh status poll.
	afterSuccess func()
}

func newDispatcher(
	clients []api.NodeClient,
	encoder *txcodec.Encoder,
	cache *balanceCache,
	cluster api.ClusterCfg,
	log *slog.Logger,
	afterSuccess func(),
) *dispatcher {
	byID := make(map[int]api.NodeClient, len(clients))
	for _, c := range clients {
		byID[c.NodeID()] = c
	}
	return &dispatcher{
		clients:      byID,
		encoder:      encoder,
		cache:        cache,
		cluster:      cluster,
		logger:       log,
		afterSuccess: afterSuccess,
	}
}

// dispatch validates, routes, encodes and submits op against the given
// cluster view, returning the authoritative post-operation balances.
//
// Failure of any kind leaves the cache untouched. Validation failures
// (*api.InvalidOperationError) are raised before any network call.
func (d *dispatcher) dispatch(ctx context.Context, view *api.ClusterView, op api.Operation) (map[api.Account]float64, error) {
	if err := d.validate(op); err != nil {
		return nil, err
	}

	target, err := PickTarget(view)
	if err != nil {
		return nil, err
	}
	client, ok := d.clients[target.NodeID]
	if !ok {
		return nil, fmt.Errorf("no client for routed node %d", target.NodeID)
	}

	payload, txID := d.encoder.Encode(op)
	d.logger.Info(
		"dispatching operation",
		slog.String("tx_id", txID),
		slog.Int("target", target.NodeID),
		slog.String("payload", payload),
	)

	res, err := client.Propose(ctx, payload)
	if err != nil {
		return nil, d.asDispatchError(err)
	}

	if !res.Success {
		return nil, &api.DispatchError{
			Reason:     api.ReasonServerRejected,
			Detail:     res.Err,
			LeaderHint: res.LeaderHint,
		}
	}

	balances := res.NewState
	if balances == nil {
		// The node accepted but did not echo the authoritative state.
		// Read it back rather than trusting the optimistic local value.
		balances, err = d.readBack(ctx, client, op)
		if err != nil {
			d.cache.invalidate(affectedAccounts(op)...)
			return nil, fmt.Errorf("operation %s applied but authoritative read failed: %w", txID, err)
		}
	}

	d.cache.applyAuthoritative(balances)
	if d.afterSuccess != nil {
		d.afterSuccess()
	}
	return balances, nil
}

// validate performs the client-side checks that reject an operation before
// any network round-trip. The funds check against the cached balance is
// advisory: the authoritative ledger re-validates and may still refuse.
func (d *dispatcher) validate(op api.Operation) error {
	if op.Amount <= 0 {
		return &api.InvalidOperationError{Detail: "amount must be positive"}
	}
	if !d.knownAccount(op.Source) {
		return &api.InvalidOperationError{Detail: fmt.Sprintf("unknown account %q", op.Source)}
	}

	switch op.Type {
	case api.OpDeposit:
		if op.Destination != "" {
			return &api.InvalidOperationError{Detail: "deposit takes no destination account"}
		}
		return nil
	case api.OpWithdraw:
		if op.Destination != "" {
			return &api.InvalidOperationError{Detail: "withdrawal takes no destination account"}
		}
	case api.OpTransfer:
		if !d.knownAccount(op.Destination) {
			return &api.InvalidOperationError{Detail: fmt.Sprintf("unknown destination account %q", op.Destination)}
		}
		if op.Destination == op.Source {
			return &api.InvalidOperationError{Detail: "transfer destination equals source"}
		}
	default:
		return &api.InvalidOperationError{Detail: fmt.Sprintf("unknown operation type %q", op.Type)}
	}

	if cached, ok := d.cache.get(op.Source); ok &&
		txcodec.Cents(op.Amount) > txcodec.Cents(cached) {
		return &api.InvalidOperationError{
			Detail: fmt.Sprintf("amount %s exceeds cached balance %s of %s",
				txcodec.FormatAmount(op.Amount), txcodec.FormatAmount(cached), op.Source),
		}
	}
	return nil
}

func (d *dispatcher) knownAccount(account api.Account) bool {
	for _, a := range d.cluster.Accounts {
		if a == account {
			return true
		}
	}
	return false
}

// readBack performs the follow-up authoritative read: fetch the target's
// replicated log, replay it, and keep the balances of the accounts the
// operation touched.
func (d *dispatcher) readBack(ctx context.Context, client api.NodeClient, op api.Operation) (map[api.Account]float64, error) {
	entries, err := client.FetchLog(ctx)
	if err != nil {
		return nil, err
	}
	book := ledger.Replay(d.cluster.Accounts, d.cluster.OpeningBalance, entries)

	balances := make(map[api.Account]float64)
	for _, account := range affectedAccounts(op) {
		balances[account] = book.Balance(account)
	}
	return balances, nil
}

func affectedAccounts(op api.Operation) []api.Account {
	if op.Type == api.OpTransfer {
		return []api.Account{op.Source, op.Destination}
	}
	return []api.Account{op.Source}
}

// asDispatchError maps a NodeClient propose failure onto the dispatch
// taxonomy.
func (d *dispatcher) asDispatchError(err error) error {
	var derr *api.DispatchError
	if errors.As(err, &derr) {
		return derr
	}
	if errors.Is(err, api.ErrUnreachable) || errors.Is(err, context.DeadlineExceeded) {
		d.logger.Warn("propose did not reach the target", logger.ErrAttr(err))
		return &api.DispatchError{Reason: api.ReasonNetwork, Detail: err.Error()}
	}
	return &api.DispatchError{Reason: api.ReasonMalformedResponse, Detail: err.Error()}
}
