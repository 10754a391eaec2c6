package calculator

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/fundflow/internal/models"
)

// Transfer is a suggested payment from a debtor to a creditor.
type Transfer struct {
	From   string  // Member who owes
	To     string  // Member who is owed
	Amount float64
}

// settleEpsilon ignores floating point dust when matching debts.
const settleEpsilon = 0.01

// CalculateBalances folds the splits of every transaction that belongs to
// fundID into one signed balance per user.
//
// Users appear in the order their first split is seen. The result depends only
// on the input, so calling it twice on the same list yields identical output.
func CalculateBalances(fundID string, transactions []models.Transaction) []models.Balance {
	sums := make(map[string]decimal.Decimal)
	var order []string

	for _, tx := range transactions {
		if tx.FundID != fundID {
			continue
		}
		for _, s := range tx.Splits {
			if _, seen := sums[s.UserID]; !seen {
				sums[s.UserID] = decimal.Zero
				order = append(order, s.UserID)
			}
			sums[s.UserID] = sums[s.UserID].Add(decimal.NewFromFloat(s.Amount))
		}
	}

	balances := make([]models.Balance, len(order))
	for i, userID := range order {
		balances[i] = models.Balance{UserID: userID, Amount: sums[userID].InexactFloat64()}
	}
	return balances
}

// Total returns the sum of all balances. It is zero whenever every
// contributing transaction balances; anything else is the fund's residual.
func Total(balances []models.Balance) float64 {
	var sum decimal.Decimal
	for _, b := range balances {
		sum = sum.Add(decimal.NewFromFloat(b.Amount))
	}
	return sum.InexactFloat64()
}

// SortByAmountDesc orders balances for display: largest creditor first.
// Ties keep their first-appearance order.
func SortByAmountDesc(balances []models.Balance) {
	sort.SliceStable(balances, func(i, j int) bool {
		return balances[i].Amount > balances[j].Amount
	})
}

// SuggestSettlements proposes transfers that clear every balance.
//
// Greedy: the largest debtor pays the largest creditor the smaller of the two
// amounts, then the settled side moves on.
func SuggestSettlements(balances []models.Balance) []Transfer {
	var creditors, debtors []models.Balance
	for _, b := range balances {
		if b.Amount > settleEpsilon {
			creditors = append(creditors, b)
		} else if b.Amount < -settleEpsilon {
			debtors = append(debtors, models.Balance{UserID: b.UserID, Amount: -b.Amount})
		}
	}
	sort.SliceStable(creditors, func(i, j int) bool { return creditors[i].Amount > creditors[j].Amount })
	sort.SliceStable(debtors, func(i, j int) bool { return debtors[i].Amount > debtors[j].Amount })

	var transfers []Transfer
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := debtors[i].Amount
		if creditors[j].Amount < amount {
			amount = creditors[j].Amount
		}

		if amount > settleEpsilon {
			transfers = append(transfers, Transfer{
				From:   debtors[i].UserID,
				To:     creditors[j].UserID,
				Amount: amount,
			})
		}

		debtors[i].Amount -= amount
		creditors[j].Amount -= amount

		if debtors[i].Amount < settleEpsilon {
			i++
		}
		if creditors[j].Amount < settleEpsilon {
			j++
		}
	}
	return transfers
}
