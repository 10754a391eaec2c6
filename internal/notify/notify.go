// Package notify delivers transaction activity to fund members.
//
// Delivery is fire-and-forget: callers enqueue a Message on a Worker and
// continue; failures are logged and never reach the caller.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/fundflow/internal/models"
)

// Delivery results reported to a Recorder.
const (
	ResultSent    = "sent"
	ResultFailed  = "failed"
	ResultDropped = "dropped"
)

// Click is where a notification leads when opened.
type Click struct {
	FundID        string
	TransactionID string
}

// Message is one notification addressed to one or more recipients.
type Message struct {
	ID         uuid.UUID
	Recipients []string
	Title      string
	Body       string
	Click      Click
	CreatedAt  time.Time
}

// MessageOption configures a Message.
type MessageOption func(*Message)

// WithFund sets the click target fund.
func WithFund(fundID string) MessageOption {
	return func(m *Message) {
		m.Click.FundID = fundID
	}
}

// WithTransaction sets the click target transaction.
func WithTransaction(txID string) MessageOption {
	return func(m *Message) {
		m.Click.TransactionID = txID
	}
}

// NewMessage builds a message with a fresh id.
func NewMessage(recipients []string, title, body string, opts ...MessageOption) Message {
	m := Message{
		ID:         uuid.New(),
		Recipients: recipients,
		Title:      title,
		Body:       body,
		CreatedAt:  time.Now(),
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Dispatcher accepts notifications for delivery.
type Dispatcher interface {
	Notify(ctx context.Context, recipients []string, title, body string, click Click)
}

// Sender performs the actual delivery of one message.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// Recorder counts delivery results.
type Recorder interface {
	NotificationResult(result string)
}

// Inbox is the subset of the repository a StoreSender needs.
type Inbox interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
}

// StoreSender writes one inbox document per recipient.
type StoreSender struct {
	inbox Inbox
}

// NewStoreSender creates a sender backed by inbox.
func NewStoreSender(inbox Inbox) *StoreSender {
	return &StoreSender{inbox: inbox}
}

// Send implements Sender. It stops at the first failed write.
func (s *StoreSender) Send(ctx context.Context, m Message) error {
	for _, recipient := range m.Recipients {
		n := &models.Notification{
			RecipientID:   recipient,
			Title:         m.Title,
			Body:          m.Body,
			FundID:        m.Click.FundID,
			TransactionID: m.Click.TransactionID,
			CreatedAt:     m.CreatedAt.Unix(),
		}
		if err := s.inbox.CreateNotification(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

// LogSender only logs messages. Useful in development.
type LogSender struct{}

// Send implements Sender.
func (LogSender) Send(ctx context.Context, m Message) error {
	slog.InfoContext(ctx, "notification",
		"id", m.ID,
		"recipients", m.Recipients,
		"title", m.Title,
		"fund_id", m.Click.FundID,
		"transaction_id", m.Click.TransactionID,
	)
	return nil
}

// Discard is a Dispatcher that drops everything.
type Discard struct{}

// Notify implements Dispatcher.
func (Discard) Notify(context.Context, []string, string, string, Click) {}
