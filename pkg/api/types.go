package api

// User is a member profile as seen by other members.
type User struct {
	ID          string       `json:"id"`
	DisplayName string       `json:"displayName"`
	Email       string       `json:"email"`
	PhotoURL    string       `json:"photoURL,omitempty"`
	BankAccount *BankAccount `json:"bankAccount,omitempty"`
	CreatedAt   int64        `json:"createdAt"`
}

// BankAccount is where members transfer money to settle up.
type BankAccount struct {
	AccountNumber string `json:"accountNumber"`
	BankCode      string `json:"bankCode"`
	BankName      string `json:"bankName"`
	AccountName   string `json:"accountName"`
}

// Fund is a group of members sharing expenses.
type Fund struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Icon        string   `json:"icon,omitempty"`
	Members     []string `json:"members"`
	CreatedBy   string   `json:"createdBy"`
	CreatedAt   int64    `json:"createdAt"`
}

// Split is a member's signed net amount. Positive means owed money.
type Split struct {
	UserID string  `json:"userId"`
	Amount float64 `json:"amount"`
}

// Transaction is one recorded expense.
type Transaction struct {
	ID          string  `json:"id"`
	FundID      string  `json:"fundId"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	PaidBy      string  `json:"paidBy"`
	Splits      []Split `json:"splits"`
	CreatedAt   int64   `json:"createdAt"`
	Reasoning   string  `json:"reasoning,omitempty"`
	AIPrompt    string  `json:"aiPrompt,omitempty"`
	AIGenerated bool    `json:"aiGenerated,omitempty"`
}

// Balance is a member's net position in a fund.
type Balance struct {
	UserID      string  `json:"userId"`
	DisplayName string  `json:"displayName"`
	Amount      float64 `json:"amount"`
}

// Settlement is a suggested transfer that moves balances toward zero.
type Settlement struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Amount float64 `json:"amount"`
}

// Warning is an advisory validation finding.
type Warning struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Distribution asks the server to compute splits.
//
// Strategy is one of "even", "selective", "percentage" or "custom".
// Weights holds percentages or consumed amounts keyed by user id.
type Distribution struct {
	Strategy          string             `json:"strategy"`
	Participants      []string           `json:"participants,omitempty"`
	PayerParticipates bool               `json:"payerParticipates"`
	Weights           map[string]float64 `json:"weights,omitempty"`
}

// Draft is a validated, not yet persisted transaction.
type Draft struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	PaidBy      string  `json:"paidBy"`
	Splits      []Split `json:"splits"`
	Reasoning   string  `json:"reasoning,omitempty"`
}

// --- AuthService ---

type RegisterRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Password    string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type GoogleSignInRequest struct {
	IDToken string `json:"idToken"`
}

// AuthResponse is returned by every sign-in procedure.
type AuthResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type GetCurrentUserRequest struct{}

type GetCurrentUserResponse struct {
	User *User `json:"user"`
}

// UpdateProfileRequest changes the caller's profile. Nil fields are kept.
type UpdateProfileRequest struct {
	DisplayName *string      `json:"displayName,omitempty"`
	PhotoURL    *string      `json:"photoURL,omitempty"`
	BankAccount *BankAccount `json:"bankAccount,omitempty"`
}

type UpdateProfileResponse struct {
	User *User `json:"user"`
}

// --- FundService ---

type CreateFundRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Icon        string   `json:"icon,omitempty"`
	Members     []string `json:"members,omitempty"`
}

type CreateFundResponse struct {
	Fund *Fund `json:"fund"`
}

type GetFundRequest struct {
	FundID string `json:"fundId"`
}

type GetFundResponse struct {
	Fund    *Fund   `json:"fund"`
	Members []*User `json:"members"`
}

type ListFundsRequest struct{}

type ListFundsResponse struct {
	Funds []*Fund `json:"funds"`
}

type UpdateFundRequest struct {
	FundID      string   `json:"fundId"`
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	Icon        *string  `json:"icon,omitempty"`
	Members     []string `json:"members,omitempty"`
}

type UpdateFundResponse struct {
	Fund *Fund `json:"fund"`
}

type DeleteFundRequest struct {
	FundID string `json:"fundId"`
}

type DeleteFundResponse struct{}

type GetFundBalancesRequest struct {
	FundID string `json:"fundId"`
}

type GetFundBalancesResponse struct {
	Balances    []*Balance    `json:"balances"`
	Settlements []*Settlement `json:"settlements"`

	// Imbalance is the sum of all balances. It is non-zero only when some
	// transaction's splits do not balance.
	Imbalance float64 `json:"imbalance"`
}

// --- TransactionService ---

type CreateTransactionRequest struct {
	FundID       string        `json:"fundId"`
	Description  string        `json:"description"`
	Amount       float64       `json:"amount"`
	PaidBy       string        `json:"paidBy"`
	Splits       []Split       `json:"splits,omitempty"`
	Distribution *Distribution `json:"distribution,omitempty"`
	Reasoning    string        `json:"reasoning,omitempty"`
	AIPrompt     string        `json:"aiPrompt,omitempty"`
	AIGenerated  bool          `json:"aiGenerated,omitempty"`
}

type CreateTransactionResponse struct {
	Transaction *Transaction `json:"transaction"`
	Warnings    []*Warning   `json:"warnings,omitempty"`
}

type UpdateTransactionRequest struct {
	TransactionID string   `json:"transactionId"`
	Description   *string  `json:"description,omitempty"`
	Amount        *float64 `json:"amount,omitempty"`
	Splits        []Split  `json:"splits,omitempty"`
}

type UpdateTransactionResponse struct {
	Transaction *Transaction `json:"transaction"`
	Warnings    []*Warning   `json:"warnings,omitempty"`
}

type DeleteTransactionRequest struct {
	FundID        string `json:"fundId"`
	TransactionID string `json:"transactionId"`
}

type DeleteTransactionResponse struct{}

type ListTransactionsRequest struct {
	FundID string `json:"fundId"`
}

type ListTransactionsResponse struct {
	Transactions []*Transaction `json:"transactions"`
}

// ValidateProposalRequest checks a raw parser reply against a fund.
type ValidateProposalRequest struct {
	FundID string `json:"fundId"`
	Raw    string `json:"raw"`
}

// ProposalResponse carries a validated draft.
type ProposalResponse struct {
	Draft     *Draft     `json:"draft"`
	Warnings  []*Warning `json:"warnings,omitempty"`
	Imbalance float64    `json:"imbalance"`
	Recovered bool       `json:"recovered,omitempty"`
}

// ParseTransactionRequest turns free text into the caller's live proposal
// for the fund. A newer request supersedes an older one.
type ParseTransactionRequest struct {
	FundID string `json:"fundId"`
	Prompt string `json:"prompt"`
}

// EditProposalRequest overrides one member's amount on the live proposal.
type EditProposalRequest struct {
	FundID   string `json:"fundId"`
	UserID   string `json:"userId"`
	Negative bool   `json:"negative"`
	Amount   string `json:"amount"`
}

type CommitProposalRequest struct {
	FundID string `json:"fundId"`
}

type CommitProposalResponse struct {
	Transaction *Transaction `json:"transaction"`
}

type DiscardProposalRequest struct {
	FundID string `json:"fundId"`
}

type DiscardProposalResponse struct{}
