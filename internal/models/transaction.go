package models

// Transaction is one recorded shared expense.
type Transaction struct {
	// ID is the unique identifier for the transaction (UUID format).
	ID string `json:"id"`

	// FundID is the owning fund.
	FundID string `json:"fundId"`

	Description string `json:"description"`

	// Amount is the total value of the expense in whole VND. Fractional values
	// are tolerated (e.g. converted currencies).
	Amount float64 `json:"amount"`

	// PaidBy is the user ID of the member who fronted the money.
	PaidBy string `json:"paidBy"`

	// Splits are the signed per-member net amounts. They should sum to zero.
	Splits []Split `json:"splits"`

	// CreatedAt is the Unix timestamp when the transaction was created.
	CreatedAt int64 `json:"createdAt"`

	// Reasoning is the parser's narrative explanation, if the transaction was
	// produced from free text.
	Reasoning string `json:"reasoning,omitempty"`

	// AIPrompt is the free text the transaction was parsed from.
	AIPrompt string `json:"aiPrompt,omitempty"`

	AIGenerated bool `json:"aiGenerated,omitempty"`
}

// Split is one member's signed net amount for a transaction.
// Positive: the member is owed money. Negative: the member owes money.
type Split struct {
	UserID string  `json:"userId"`
	Amount float64 `json:"amount"`
}

// SplitTotal returns the sum of all split amounts. A balanced transaction
// returns zero.
func (t *Transaction) SplitTotal() float64 {
	var sum float64
	for _, s := range t.Splits {
		sum += s.Amount
	}
	return sum
}

// Balance is a member's aggregate net amount across a fund's transactions.
// It is derived on demand and never persisted.
type Balance struct {
	UserID string  `json:"userId"`
	Amount float64 `json:"amount"` // Positive = owed money, Negative = owes money
}
