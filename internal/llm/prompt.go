package llm

import (
	"fmt"
	"strings"
)

const contract = `You split shared expenses for a group fund. Amounts are in VND.
Reply with one JSON object and nothing else:

{
  "desc": "short description",
  "totalAmount": 300000,
  "payer": "<member id>",
  "users": {"<member id>": 200000, "<member id>": -100000},
  "reasoning": "..."
}

Rules:
- "users" maps member ids to signed net amounts. Positive means the member is
  owed money, negative means the member owes money. Values must sum to 0.
- The payer's value is what they paid minus their own share.
- Only use ids from the member list below.
- If the payer is not the current user, say so in "desc".
- End "reasoning" with a section titled FINAL AMOUNTS listing every member on
  its own line as "- Name: +amount" or "- Name: -amount".`

// SystemPrompt builds the instructions sent ahead of the user's text.
func SystemPrompt(req Request) string {
	var b strings.Builder
	b.WriteString(contract)
	b.WriteString("\n\nFund: ")
	b.WriteString(req.Fund.Name)
	b.WriteString("\nMembers:\n")
	for _, u := range req.Roster {
		fmt.Fprintf(&b, "- %s (id: %s)", u.DisplayName, u.ID)
		if u.ID == req.CurrentUserID {
			b.WriteString(" [current user]")
		}
		b.WriteByte('\n')
	}
	return b.String()
}
