// Package ledger replays a cluster node's replicated operation log into
// account balances. The replay rules mirror the application rules of the
// server-side state machine exactly, so a replay over the same log yields
// the authoritative balances.
package ledger

import (
	"github.com/shrtyk/ledger-coordinator/api"
	"github.com/shrtyk/ledger-coordinator/pkg/txcodec"
)

// Book is an in-memory balance sheet built by replaying operations.
type Book struct {
	balances map[api.Account]float64
}

// NewBook returns a Book with every listed account at the opening balance.
func NewBook(accounts []api.Account, opening float64) *Book {
	b := &Book{balances: make(map[api.Account]float64, len(accounts))}
	for _, acc := range accounts {
		b.balances[acc] = opening
	}
	return b
}

// Apply executes one decoded operation against the book.
//
// WITHDRAW and TRANSFER entries whose amount exceeds the source balance are
// skipped without error; the server skipped them too, so skipping keeps the
// replayed balances aligned with the authoritative ones. Amounts are
// compared at two-decimal precision.
func (b *Book) Apply(d *txcodec.Decoded) {
	switch d.Op.Type {
	case api.OpDeposit:
		b.balances[d.Op.Source] += d.Op.Amount
	case api.OpWithdraw:
		if txcodec.Cents(b.balances[d.Op.Source]) >= txcodec.Cents(d.Op.Amount) {
			b.balances[d.Op.Source] -= d.Op.Amount
		}
	case api.OpTransfer:
		if txcodec.Cents(b.balances[d.Op.Source]) >= txcodec.Cents(d.Op.Amount) {
			b.balances[d.Op.Source] -= d.Op.Amount
			b.balances[d.Op.Destination] += d.Op.Amount
		}
	}
}

// Balance returns one account's balance.
func (b *Book) Balance(account api.Account) float64 {
	return b.balances[account]
}

// Balances returns a copy of the full balance sheet.
func (b *Book) Balances() map[api.Account]float64 {
	out := make(map[api.Account]float64, len(b.balances))
	for acc, bal := range b.balances {
		out[acc] = bal
	}
	return out
}

// Replay builds a Book from a node's operation log. Entries that do not
// decode as canonical payloads are skipped: the log of a replicated system
// observed from the outside may contain foreign or no-op entries.
func Replay(accounts []api.Account, opening float64, entries []string) *Book {
	b := NewBook(accounts, opening)
	for _, raw := range entries {
		d, err := txcodec.Decode(raw)
		if err != nil {
			continue
		}
		b.Apply(d)
	}
	return b
}
