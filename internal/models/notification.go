package models

// Notification is an in-app inbox entry for one recipient.
type Notification struct {
	ID            string `json:"id"`
	RecipientID   string `json:"recipientId"`
	Title         string `json:"title"`
	Body          string `json:"body"`
	FundID        string `json:"fundId,omitempty"`
	TransactionID string `json:"transactionId,omitempty"`
	Read          bool   `json:"read"`
	CreatedAt     int64  `json:"createdAt"`
}
