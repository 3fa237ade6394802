package coordinator

import (
	"sync"

	"github.com/shrtyk/ledger-coordinator/api"
)

// balanceCache is the consumer-side, per-account balance cache.
//
// Entries are written at exactly two points: an initial authoritative read
// seeding an account that is not cached yet, and the authoritative
// post-operation state of a successful dispatch. A failed dispatch never
// touches it. Reads always observe the last fully-committed value.
type balanceCache struct {
	mu       sync.RWMutex
	balances map[api.Account]float64
}

func newBalanceCache() *balanceCache {
	return &balanceCache{balances: make(map[api.Account]float64)}
}

func (c *balanceCache) get(account api.Account) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	bal, ok := c.balances[account]
	return bal, ok
}

// seed stores balances for accounts not cached yet. Cached entries win: a
// concurrent dispatch result is newer than the read that raced with it.
func (c *balanceCache) seed(balances map[api.Account]float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for account, bal := range balances {
		if _, ok := c.balances[account]; !ok {
			c.balances[account] = bal
		}
	}
}

// applyAuthoritative overwrites the listed accounts with the cluster's
// post-operation state.
func (c *balanceCache) applyAuthoritative(balances map[api.Account]float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for account, bal := range balances {
		c.balances[account] = bal
	}
}

// invalidate drops single accounts.
func (c *balanceCache) invalidate(accounts ...api.Account) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, account := range accounts {
		delete(c.balances, account)
	}
}

// invalidateAll drops every entry; the next read per account is remote.
func (c *balanceCache) invalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.balances)
}

// snapshot returns a copy of the cache contents.
func (c *balanceCache) snapshot() map[api.Account]float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[api.Account]float64, len(c.balances))
	for account, bal := range c.balances {
		out[account] = bal
	}
	return out
}
