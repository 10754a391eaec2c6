package ledger

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mmynk/fundflow/internal/models"
)

// Refresh results reported to a Recorder.
const (
	RefreshApplied = "applied"
	RefreshStale   = "stale"
	RefreshFailed  = "failed"
)

// Lister fetches a fund's full transaction list.
type Lister interface {
	ListTransactions(ctx context.Context, fundID string) ([]models.Transaction, error)
}

// Refresher periodically re-fetches the selected fund and wholesale
// replaces its cached list. Selecting another fund cancels the previous
// loop; a fetch that completes after the selection changed is discarded.
type Refresher struct {
	store    Lister
	cache    *TransactionCache
	interval time.Duration
	recorder Recorder

	mu       sync.Mutex
	gen      uint64
	selected string
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewRefresher creates a refresher. recorder may be nil.
func NewRefresher(store Lister, cache *TransactionCache, interval time.Duration, recorder Recorder) *Refresher {
	return &Refresher{store: store, cache: cache, interval: interval, recorder: recorder}
}

// Select makes fundID the refreshed fund. An empty fundID stops refreshing.
func (r *Refresher) Select(ctx context.Context, fundID string) {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.gen++
	r.selected = fundID
	gen := r.gen
	if fundID == "" {
		r.mu.Unlock()
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.loop(loopCtx, gen, fundID)
	}()
}

// Selected returns the fund currently being refreshed.
func (r *Refresher) Selected() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selected
}

// Stop cancels the loop and waits for it to exit.
func (r *Refresher) Stop() {
	r.Select(context.Background(), "")
	r.wg.Wait()
}

func (r *Refresher) loop(ctx context.Context, gen uint64, fundID string) {
	r.refresh(ctx, gen, fundID)
	if r.interval <= 0 {
		return
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refresh(ctx, gen, fundID)
		}
	}
}

// refresh fetches fundID and applies the result if gen is still current.
// It reports whether the result was applied.
func (r *Refresher) refresh(ctx context.Context, gen uint64, fundID string) bool {
	txs, err := r.store.ListTransactions(ctx, fundID)
	if err != nil {
		if ctx.Err() == nil {
			slog.Warn("Failed to refresh transactions", "fund_id", fundID, "error", err)
		}
		r.record(RefreshFailed)
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.gen {
		slog.Debug("Discarding stale refresh", "fund_id", fundID)
		r.record(RefreshStale)
		return false
	}
	r.cache.Replace(fundID, txs)
	r.record(RefreshApplied)
	return true
}

func (r *Refresher) record(result string) {
	if r.recorder != nil {
		r.recorder.RefreshResult(result)
	}
}
