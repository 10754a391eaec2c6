package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mmynk/fundflow/internal/models"
)

// Repository maps application models onto a DocumentStore.
type Repository struct {
	store DocumentStore
}

// NewRepository wraps store.
func NewRepository(store DocumentStore) *Repository {
	return &Repository{store: store}
}

// Store returns the underlying document store.
func (r *Repository) Store() DocumentStore {
	return r.store
}

// --- users ---

// CreateUser persists a new user. user.ID is generated when empty.
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	id, err := r.create(ctx, CollectionUsers, user)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	user.ID = id
	return nil
}

// GetUser returns a user by id.
func (r *Repository) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.get(ctx, CollectionUsers, id, &user); err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", id, err)
	}
	return &user, nil
}

// GetUserByEmail returns the user with the given email, or ErrNotFound.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var users []models.User
	if err := r.query(ctx, CollectionUsers, "email", strings.ToLower(strings.TrimSpace(email)), &users); err != nil {
		return nil, fmt.Errorf("failed to query user by email: %w", err)
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	return &users[0], nil
}

// GetUsersByIDs returns the users that exist among ids, keyed by id.
func (r *Repository) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error) {
	out := make(map[string]*models.User, len(ids))
	for _, id := range ids {
		if _, done := out[id]; done || id == "" {
			continue
		}
		user, err := r.GetUser(ctx, id)
		if err != nil {
			if IsNotFound(err) {
				continue
			}
			return nil, err
		}
		out[id] = user
	}
	return out, nil
}

// UpdateUser writes the profile fields of user and bumps UpdatedAt.
func (r *Repository) UpdateUser(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().Unix()
	partial := Document{
		"displayName": user.DisplayName,
		"photoURL":    user.PhotoURL,
		"updatedAt":   user.UpdatedAt,
	}
	if user.BankAccount != nil {
		bank, err := toDocument(user.BankAccount)
		if err != nil {
			return err
		}
		partial["bankAccount"] = bank
	}
	if err := r.store.Update(ctx, CollectionUsers, user.ID, partial); err != nil {
		return fmt.Errorf("failed to update user %s: %w", user.ID, err)
	}
	return nil
}

// --- funds ---

// CreateFund persists a new fund. The creator is always a member.
func (r *Repository) CreateFund(ctx context.Context, fund *models.Fund) error {
	if fund.CreatedAt == 0 {
		fund.CreatedAt = time.Now().Unix()
	}
	if fund.CreatedBy != "" && !fund.HasMember(fund.CreatedBy) {
		fund.Members = append([]string{fund.CreatedBy}, fund.Members...)
	}
	id, err := r.create(ctx, CollectionFunds, fund)
	if err != nil {
		return fmt.Errorf("failed to create fund: %w", err)
	}
	fund.ID = id
	return nil
}

// GetFund returns a fund by id.
func (r *Repository) GetFund(ctx context.Context, id string) (*models.Fund, error) {
	var fund models.Fund
	if err := r.get(ctx, CollectionFunds, id, &fund); err != nil {
		return nil, fmt.Errorf("failed to get fund %s: %w", id, err)
	}
	return &fund, nil
}

// ListFundsForMember returns the funds userID belongs to, newest first.
func (r *Repository) ListFundsForMember(ctx context.Context, userID string) ([]models.Fund, error) {
	var funds []models.Fund
	if err := r.query(ctx, CollectionFunds, "members", userID, &funds); err != nil {
		return nil, fmt.Errorf("failed to list funds: %w", err)
	}
	sort.SliceStable(funds, func(i, j int) bool { return funds[i].CreatedAt > funds[j].CreatedAt })
	return funds, nil
}

// FundUpdate lists the fund fields to change. Nil fields are left alone.
type FundUpdate struct {
	Name        *string
	Description *string
	Icon        *string
	Members     []string
}

// UpdateFund applies u to the fund and returns the stored result.
func (r *Repository) UpdateFund(ctx context.Context, id string, u FundUpdate) (*models.Fund, error) {
	partial := Document{}
	if u.Name != nil {
		partial["name"] = *u.Name
	}
	if u.Description != nil {
		partial["description"] = *u.Description
	}
	if u.Icon != nil {
		partial["icon"] = *u.Icon
	}
	if u.Members != nil {
		members := make([]any, len(u.Members))
		for i, m := range u.Members {
			members[i] = m
		}
		partial["members"] = members
	}
	if len(partial) > 0 {
		if err := r.store.Update(ctx, CollectionFunds, id, partial); err != nil {
			return nil, fmt.Errorf("failed to update fund %s: %w", id, err)
		}
	}
	return r.GetFund(ctx, id)
}

// DeleteFund removes a fund and its transactions.
func (r *Repository) DeleteFund(ctx context.Context, id string) error {
	txs, err := r.ListTransactions(ctx, id)
	if err != nil {
		return err
	}
	for _, tx := range txs {
		if err := r.DeleteTransaction(ctx, tx.ID); err != nil && !IsNotFound(err) {
			return err
		}
	}
	if err := r.store.Delete(ctx, CollectionFunds, id); err != nil {
		return fmt.Errorf("failed to delete fund %s: %w", id, err)
	}
	return nil
}

// --- transactions ---

// CreateTransaction persists tx and fills in its id.
func (r *Repository) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	id, err := r.create(ctx, CollectionTransactions, tx)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	tx.ID = id
	return nil
}

// GetTransaction returns a transaction by id.
func (r *Repository) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	var tx models.Transaction
	if err := r.get(ctx, CollectionTransactions, id, &tx); err != nil {
		return nil, fmt.Errorf("failed to get transaction %s: %w", id, err)
	}
	return &tx, nil
}

// ListTransactions returns a fund's transactions, newest first.
func (r *Repository) ListTransactions(ctx context.Context, fundID string) ([]models.Transaction, error) {
	var txs []models.Transaction
	if err := r.query(ctx, CollectionTransactions, "fundId", fundID, &txs); err != nil {
		return nil, fmt.Errorf("failed to list transactions for fund %s: %w", fundID, err)
	}
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].CreatedAt > txs[j].CreatedAt })
	return txs, nil
}

// TransactionUpdate lists the transaction fields to change.
type TransactionUpdate struct {
	Description *string
	Amount      *float64
	Splits      []models.Split
}

// UpdateTransaction applies u and returns the stored result.
func (r *Repository) UpdateTransaction(ctx context.Context, id string, u TransactionUpdate) (*models.Transaction, error) {
	partial := Document{}
	if u.Description != nil {
		partial["description"] = *u.Description
	}
	if u.Amount != nil {
		partial["amount"] = *u.Amount
	}
	if u.Splits != nil {
		splits, err := toValue(u.Splits)
		if err != nil {
			return nil, err
		}
		partial["splits"] = splits
	}
	if len(partial) > 0 {
		if err := r.store.Update(ctx, CollectionTransactions, id, partial); err != nil {
			return nil, fmt.Errorf("failed to update transaction %s: %w", id, err)
		}
	}
	return r.GetTransaction(ctx, id)
}

// DeleteTransaction removes a transaction.
func (r *Repository) DeleteTransaction(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, CollectionTransactions, id); err != nil {
		return fmt.Errorf("failed to delete transaction %s: %w", id, err)
	}
	return nil
}

// --- notifications ---

// CreateNotification stores an inbox entry.
func (r *Repository) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.CreatedAt == 0 {
		n.CreatedAt = time.Now().Unix()
	}
	id, err := r.create(ctx, CollectionNotifications, n)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	n.ID = id
	return nil
}

// ListNotifications returns a user's inbox, newest first.
func (r *Repository) ListNotifications(ctx context.Context, recipientID string) ([]models.Notification, error) {
	var out []models.Notification
	if err := r.query(ctx, CollectionNotifications, "recipientId", recipientID, &out); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

// MarkNotificationRead flags a notification as read.
func (r *Repository) MarkNotificationRead(ctx context.Context, id string) error {
	if err := r.store.Update(ctx, CollectionNotifications, id, Document{"read": true}); err != nil {
		return fmt.Errorf("failed to mark notification %s read: %w", id, err)
	}
	return nil
}

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// --- helpers ---

func (r *Repository) create(ctx context.Context, collection string, v any) (string, error) {
	doc, err := toDocument(v)
	if err != nil {
		return "", err
	}
	if doc.ID() == "" {
		delete(doc, "id")
	}
	return r.store.Create(ctx, collection, doc)
}

func (r *Repository) get(ctx context.Context, collection, id string, out any) error {
	doc, err := r.store.Get(ctx, collection, id)
	if err != nil {
		return err
	}
	return fromDocument(doc, out)
}

func (r *Repository) query(ctx context.Context, collection, field string, value any, out any) error {
	docs, err := r.store.Query(ctx, collection, field, value)
	if err != nil {
		return err
	}
	if docs == nil {
		docs = []Document{}
	}
	return fromDocument(docs, out)
}

func toDocument(v any) (Document, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return doc, nil
}

func toValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode value: %w", err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("failed to encode value: %w", err)
	}
	return out, nil
}

func fromDocument(v any, out any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}
	return nil
}
