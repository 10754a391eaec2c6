// Package ledger coordinates transaction writes: split computation, the
// store round-trip, the in-memory transaction cache, and notifications.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/fundflow/internal/calculator"
	"github.com/mmynk/fundflow/internal/models"
	"github.com/mmynk/fundflow/internal/notify"
	"github.com/mmynk/fundflow/internal/storage"
)

var (
	ErrMissingFund  = errors.New("fund id is required")
	ErrMissingSplit = errors.New("splits or a distribution are required")
)

// Store is the persistence the orchestrator needs. *storage.Repository
// satisfies it.
type Store interface {
	CreateTransaction(ctx context.Context, tx *models.Transaction) error
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)
	UpdateTransaction(ctx context.Context, id string, u storage.TransactionUpdate) (*models.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error
	ListTransactions(ctx context.Context, fundID string) ([]models.Transaction, error)
}

// Recorder counts ledger activity.
type Recorder interface {
	TransactionCreated()
	RefreshResult(result string)
}

// Input describes a transaction to create. When Distribution is set the
// splits are computed from it and Splits is ignored.
type Input struct {
	FundID       string
	Description  string
	Amount       float64
	PaidBy       string
	Splits       []models.Split
	Distribution *calculator.Distribution
	CreatedAt    int64

	// ActorID is the member performing the write. It is excluded from
	// notifications. Defaults to PaidBy.
	ActorID string

	Reasoning   string
	AIPrompt    string
	AIGenerated bool

	// Check, when set, sees the final transaction before it is persisted.
	// An error aborts the write.
	Check func(tx models.Transaction) error
}

// Patch lists the fields to change on an existing transaction.
type Patch struct {
	Description *string
	Amount      *float64
	Splits      []models.Split
	ActorID     string
}

// Orchestrator performs transaction writes.
type Orchestrator struct {
	store    Store
	notifier notify.Dispatcher
	cache    *TransactionCache
	recorder Recorder
	now      func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New creates an orchestrator. A nil notifier discards notifications.
func New(store Store, notifier notify.Dispatcher, cache *TransactionCache, opts ...Option) *Orchestrator {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	if cache == nil {
		cache = NewTransactionCache()
	}
	o := &Orchestrator{store: store, notifier: notifier, cache: cache, now: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Cache exposes the transaction cache.
func (o *Orchestrator) Cache() *TransactionCache {
	return o.cache
}

// CreateTransaction persists in and merges the stored transaction into the
// cache. Notifications are queued only after the store accepts the write.
func (o *Orchestrator) CreateTransaction(ctx context.Context, in Input) (*models.Transaction, error) {
	if in.FundID == "" {
		return nil, ErrMissingFund
	}

	splits := in.Splits
	if in.Distribution != nil {
		d := *in.Distribution
		if d.Amount == 0 {
			d.Amount = in.Amount
		}
		if d.PayerID == "" {
			d.PayerID = in.PaidBy
		}
		var err error
		if splits, err = calculator.Distribute(d); err != nil {
			return nil, fmt.Errorf("failed to distribute amount: %w", err)
		}
	}
	if len(splits) == 0 {
		return nil, ErrMissingSplit
	}

	tx := &models.Transaction{
		FundID:      in.FundID,
		Description: in.Description,
		Amount:      in.Amount,
		PaidBy:      in.PaidBy,
		Splits:      splits,
		CreatedAt:   in.CreatedAt,
		Reasoning:   in.Reasoning,
		AIPrompt:    in.AIPrompt,
		AIGenerated: in.AIGenerated,
	}
	if tx.CreatedAt == 0 {
		tx.CreatedAt = o.now().Unix()
	}
	if in.Check != nil {
		if err := in.Check(*tx); err != nil {
			return nil, err
		}
	}

	if err := o.store.CreateTransaction(ctx, tx); err != nil {
		slog.Error("Failed to create transaction", "fund_id", in.FundID, "error", err)
		return nil, err
	}
	o.cache.Merge(*tx)
	if o.recorder != nil {
		o.recorder.TransactionCreated()
	}
	slog.Info("Transaction created", "fund_id", tx.FundID, "transaction_id", tx.ID, "amount", tx.Amount)

	actor := in.ActorID
	if actor == "" {
		actor = in.PaidBy
	}
	o.notifier.Notify(ctx, recipients(tx.Splits, actor),
		"New expense", fmt.Sprintf("%s: %s", tx.Description, formatAmount(tx.Amount)),
		notify.Click{FundID: tx.FundID, TransactionID: tx.ID})

	return tx, nil
}

// UpdateTransaction applies p and merges the stored result into the cache.
func (o *Orchestrator) UpdateTransaction(ctx context.Context, id string, p Patch) (*models.Transaction, error) {
	tx, err := o.store.UpdateTransaction(ctx, id, storage.TransactionUpdate{
		Description: p.Description,
		Amount:      p.Amount,
		Splits:      p.Splits,
	})
	if err != nil {
		slog.Error("Failed to update transaction", "transaction_id", id, "error", err)
		return nil, err
	}
	o.cache.Merge(*tx)
	slog.Info("Transaction updated", "fund_id", tx.FundID, "transaction_id", id)

	if p.ActorID != "" {
		o.notifier.Notify(ctx, recipients(tx.Splits, p.ActorID),
			"Expense updated", tx.Description,
			notify.Click{FundID: tx.FundID, TransactionID: tx.ID})
	}
	return tx, nil
}

// DeleteTransaction removes id from the store, then from the cache.
func (o *Orchestrator) DeleteTransaction(ctx context.Context, fundID, id string) error {
	if err := o.store.DeleteTransaction(ctx, id); err != nil {
		slog.Error("Failed to delete transaction", "fund_id", fundID, "transaction_id", id, "error", err)
		return err
	}
	o.cache.Remove(fundID, id)
	slog.Info("Transaction deleted", "fund_id", fundID, "transaction_id", id)
	return nil
}

// Transaction reads one transaction straight from the store.
func (o *Orchestrator) Transaction(ctx context.Context, id string) (*models.Transaction, error) {
	return o.store.GetTransaction(ctx, id)
}

// Load fetches fundID's transactions and replaces the cached list.
func (o *Orchestrator) Load(ctx context.Context, fundID string) ([]models.Transaction, error) {
	txs, err := o.store.ListTransactions(ctx, fundID)
	if err != nil {
		return nil, err
	}
	o.cache.Replace(fundID, txs)
	return txs, nil
}

// Transactions returns the cached list for fundID, loading it on first use.
func (o *Orchestrator) Transactions(ctx context.Context, fundID string) ([]models.Transaction, error) {
	if txs, ok := o.cache.Snapshot(fundID); ok {
		return txs, nil
	}
	return o.Load(ctx, fundID)
}

// Balances aggregates the cached transactions for fundID.
func (o *Orchestrator) Balances(ctx context.Context, fundID string) ([]models.Balance, error) {
	txs, err := o.Transactions(ctx, fundID)
	if err != nil {
		return nil, err
	}
	return calculator.CalculateBalances(fundID, txs), nil
}

func recipients(splits []models.Split, actor string) []string {
	seen := make(map[string]bool, len(splits))
	var out []string
	for _, s := range splits {
		if s.UserID == actor || seen[s.UserID] {
			continue
		}
		seen[s.UserID] = true
		out = append(out, s.UserID)
	}
	return out
}

// formatAmount renders whole VND with dot thousands separators.
func formatAmount(amount float64) string {
	d := decimal.NewFromFloat(amount).Round(0)
	neg := d.IsNegative()
	digits := d.Abs().String()
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	s := b.String() + "đ"
	if neg {
		s = "-" + s
	}
	return s
}
