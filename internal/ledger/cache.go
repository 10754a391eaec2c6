package ledger

import (
	"sync"

	"github.com/mmynk/fundflow/internal/models"
)

// TransactionCache holds the last known transaction list per fund. It is
// only written after a confirmed store round-trip. A fund counts as loaded
// once its full list has been stored with Replace; merges before that only
// accumulate local writes.
type TransactionCache struct {
	mu     sync.RWMutex
	funds  map[string][]models.Transaction
	loaded map[string]bool
}

// NewTransactionCache creates an empty cache.
func NewTransactionCache() *TransactionCache {
	return &TransactionCache{
		funds:  make(map[string][]models.Transaction),
		loaded: make(map[string]bool),
	}
}

// Merge updates tx in place when its id is already cached, else appends it.
func (c *TransactionCache) Merge(tx models.Transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := c.funds[tx.FundID]
	for i := range list {
		if list[i].ID == tx.ID {
			list[i] = tx
			return
		}
	}
	c.funds[tx.FundID] = append(list, tx)
}

// Remove filters id out of fundID's list.
func (c *TransactionCache) Remove(fundID, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := c.funds[fundID]
	out := list[:0]
	for _, tx := range list {
		if tx.ID != id {
			out = append(out, tx)
		}
	}
	c.funds[fundID] = out
}

// Replace swaps fundID's whole list.
func (c *TransactionCache) Replace(fundID string, txs []models.Transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.funds[fundID] = append([]models.Transaction(nil), txs...)
	c.loaded[fundID] = true
}

// Snapshot returns a copy of fundID's list and whether it was loaded.
func (c *TransactionCache) Snapshot(fundID string) ([]models.Transaction, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.Transaction(nil), c.funds[fundID]...), c.loaded[fundID]
}

// Forget drops fundID entirely.
func (c *TransactionCache) Forget(fundID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.funds, fundID)
	delete(c.loaded, fundID)
}
