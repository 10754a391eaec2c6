package models

// Fund is a shared pool: its members are the only valid split participants
// for new transactions.
type Fund struct {
	// ID is the unique identifier for the fund (UUID format).
	ID string `json:"id"`

	// Name is the display name of the fund (e.g., "Roommates", "Đà Lạt trip").
	Name string `json:"name"`

	Description string `json:"description,omitempty"`

	// Icon is an emoji or icon key chosen by the creator.
	Icon string `json:"icon,omitempty"`

	// Members is the set of user IDs in the fund. Order is not significant for
	// computation but is preserved for display.
	Members []string `json:"members"`

	// CreatedBy is the user ID of the creator.
	CreatedBy string `json:"createdBy"`

	// CreatedAt is the Unix timestamp when the fund was created.
	CreatedAt int64 `json:"createdAt"`
}

// HasMember reports whether userID is currently a member of the fund.
func (f *Fund) HasMember(userID string) bool {
	for _, m := range f.Members {
		if m == userID {
			return true
		}
	}
	return false
}
