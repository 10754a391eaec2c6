package calculator

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/fundflow/internal/models"
	"github.com/mmynk/fundflow/internal/reconcile"
)

var (
	ErrNoParticipants  = errors.New("must have at least one participant")
	ErrInvalidAmount   = errors.New("amount must be positive")
	ErrMissingPayer    = errors.New("payer is required")
	ErrPercentTotal    = errors.New("percentages must total 100")
	ErrCustomTotal     = errors.New("custom amounts must total the transaction amount")
	ErrUnknownStrategy = errors.New("unknown distribution strategy")
)

// Strategy names how a transaction amount is distributed among participants.
type Strategy string

const (
	StrategyEven       Strategy = "even"
	StrategySelective  Strategy = "selective"
	StrategyPercentage Strategy = "percentage"
	StrategyCustom     Strategy = "custom"
)

// Distribution is a request to compute splits for one transaction.
type Distribution struct {
	Strategy Strategy
	Amount   float64
	PayerID  string

	// Participants is the consuming member set for even and selective
	// distributions. For percentage and custom it fixes the output order;
	// when empty the keys of Weights are used in sorted order.
	Participants []string

	// PayerParticipates reports whether the payer also consumed a share.
	// Only even and selective distributions read it; for percentage and custom
	// the payer participates exactly when they have a weight.
	PayerParticipates bool

	// Weights holds percentages (percentage) or consumed amounts (custom).
	Weights map[string]float64
}

// Distribute computes signed splits for the requested strategy.
func Distribute(d Distribution) ([]models.Split, error) {
	switch d.Strategy {
	case StrategyEven, "":
		return DistributeEvenly(d.Amount, d.Participants, d.PayerID, d.PayerParticipates)
	case StrategySelective:
		return DistributeSelective(d.Amount, d.Participants, d.PayerID, d.PayerParticipates)
	case StrategyPercentage:
		return DistributePercentage(d.Amount, d.Weights, weightOrder(d), d.PayerID)
	case StrategyCustom:
		return DistributeCustom(d.Amount, d.Weights, weightOrder(d), d.PayerID)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, d.Strategy)
	}
}

// DistributeEvenly splits amount equally among participantIDs.
//
// Every participant consumes floor(amount/n). Non-payers owe that share. When
// the payer participates they are credited with what the others owe,
// share*(n-1), and absorb the floor remainder as part of their own
// consumption. When the payer is an external funder they are credited with
// the full amount and the remainder is owed one unit each by the first
// participants. Either way the splits sum to exactly zero.
func DistributeEvenly(amount float64, participantIDs []string, payerID string, payerParticipates bool) ([]models.Split, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if payerID == "" {
		return nil, ErrMissingPayer
	}

	ids := participantSet(participantIDs, payerID, payerParticipates)
	if len(ids) == 0 {
		return nil, ErrNoParticipants
	}

	total := decimal.NewFromFloat(amount)
	share := total.Div(decimal.NewFromInt(int64(len(ids)))).Floor()

	consumption := make(map[string]decimal.Decimal, len(ids))
	for _, id := range ids {
		consumption[id] = share
	}
	if !payerParticipates {
		spreadRemainder(ids, consumption, total)
	}
	return netSplits(payerID, ids, consumption), nil
}

// DistributeSelective is DistributeEvenly restricted to an explicitly chosen
// subset of fund members.
func DistributeSelective(amount float64, selectedIDs []string, payerID string, payerParticipates bool) ([]models.Split, error) {
	if len(selectedIDs) == 0 && !payerParticipates {
		return nil, ErrNoParticipants
	}
	return DistributeEvenly(amount, selectedIDs, payerID, payerParticipates)
}

// DistributePercentage gives each member floor(amount*pct/100) of consumption.
// Percentages must total 100 within 0.01. A payer with a weight absorbs the
// remainder; otherwise the payer is credited the full amount and the
// remainder is spread over the first members.
func DistributePercentage(amount float64, percents map[string]float64, order []string, payerID string) ([]models.Split, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if payerID == "" {
		return nil, ErrMissingPayer
	}
	if len(percents) == 0 {
		return nil, ErrNoParticipants
	}

	var pctTotal decimal.Decimal
	for _, p := range percents {
		pctTotal = pctTotal.Add(decimal.NewFromFloat(p))
	}
	if pctTotal.Sub(decimal.NewFromInt(100)).Abs().GreaterThan(decimal.NewFromFloat(0.01)) {
		return nil, fmt.Errorf("%w: got %s", ErrPercentTotal, pctTotal.String())
	}

	total := decimal.NewFromFloat(amount)
	hundred := decimal.NewFromInt(100)
	consumption := make(map[string]decimal.Decimal, len(percents))
	for _, id := range order {
		consumption[id] = total.Mul(decimal.NewFromFloat(percents[id])).Div(hundred).Floor()
	}
	if _, ok := percents[payerID]; !ok {
		spreadRemainder(order, consumption, total)
	}
	return netSplits(payerID, order, consumption), nil
}

// DistributeCustom uses caller-provided consumed amounts. They must total the
// transaction amount within one unit per participant.
func DistributeCustom(amount float64, consumed map[string]float64, order []string, payerID string) ([]models.Split, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if payerID == "" {
		return nil, ErrMissingPayer
	}
	if len(consumed) == 0 {
		return nil, ErrNoParticipants
	}

	consumption := make(map[string]decimal.Decimal, len(consumed))
	var sum decimal.Decimal
	for _, id := range order {
		c := decimal.NewFromFloat(consumed[id])
		consumption[id] = c
		sum = sum.Add(c)
	}
	slack := decimal.NewFromInt(int64(len(order)))
	if sum.Sub(decimal.NewFromFloat(amount)).Abs().GreaterThan(slack) {
		return nil, fmt.Errorf("%w: %s != %s", ErrCustomTotal, sum.String(), decimal.NewFromFloat(amount).String())
	}
	return netSplits(payerID, order, consumption), nil
}

// ApplyOverride sets one member's split to a free-text amount, bypassing the
// distribution formulas. negative toggles the sign. Zero-sum is not enforced;
// that is checked at validation time.
func ApplyOverride(splits []models.Split, userID string, negative bool, text string) ([]models.Split, error) {
	value, err := reconcile.ParseAmount(text)
	if err != nil {
		return nil, err
	}
	value = value.Abs()
	if negative {
		value = value.Neg()
	}

	out := make([]models.Split, len(splits))
	copy(out, splits)
	for i := range out {
		if out[i].UserID == userID {
			out[i].Amount = value.InexactFloat64()
			return out, nil
		}
	}
	return append(out, models.Split{UserID: userID, Amount: value.InexactFloat64()}), nil
}

// Rebalance sets the payer's split to minus the sum of every other split, so
// the transaction nets to zero after manual edits.
func Rebalance(splits []models.Split, payerID string) []models.Split {
	var others decimal.Decimal
	payerIdx := -1
	for i, s := range splits {
		if s.UserID == payerID {
			payerIdx = i
			continue
		}
		others = others.Add(decimal.NewFromFloat(s.Amount))
	}

	out := make([]models.Split, len(splits))
	copy(out, splits)
	if payerIdx < 0 {
		return append([]models.Split{{UserID: payerID, Amount: others.Neg().InexactFloat64()}}, out...)
	}
	out[payerIdx].Amount = others.Neg().InexactFloat64()
	return out
}

// netSplits turns per-member consumption into signed splits. Non-payers owe
// their consumption and the payer is credited with everything the others owe.
// The payer's entry comes first.
func netSplits(payerID string, order []string, consumption map[string]decimal.Decimal) []models.Split {
	var credit decimal.Decimal
	splits := make([]models.Split, 0, len(order)+1)
	splits = append(splits, models.Split{UserID: payerID})

	for _, id := range order {
		if id == payerID {
			continue
		}
		c := consumption[id]
		credit = credit.Add(c)
		splits = append(splits, models.Split{UserID: id, Amount: c.Neg().InexactFloat64()})
	}

	splits[0].Amount = credit.InexactFloat64()
	return splits
}

// spreadRemainder adds the units lost to flooring back onto the first
// consumers in order, one unit each, so that consumption totals the amount.
// A fractional leftover goes to the first consumer.
func spreadRemainder(order []string, consumption map[string]decimal.Decimal, total decimal.Decimal) {
	if len(order) == 0 {
		return
	}
	left := total
	for _, id := range order {
		left = left.Sub(consumption[id])
	}
	units := left.Floor()
	if units.IsNegative() {
		units = decimal.Zero
	}
	frac := left.Sub(units)

	one := decimal.NewFromInt(1)
	for i := 0; units.IsPositive(); i = (i + 1) % len(order) {
		consumption[order[i]] = consumption[order[i]].Add(one)
		units = units.Sub(one)
	}
	consumption[order[0]] = consumption[order[0]].Add(frac)
}

// participantSet de-duplicates ids and applies the payer-participates policy.
func participantSet(ids []string, payerID string, payerParticipates bool) []string {
	seen := make(map[string]bool, len(ids)+1)
	out := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		if id == payerID && !payerParticipates {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	if payerParticipates && !seen[payerID] {
		out = append(out, payerID)
	}
	return out
}

func weightOrder(d Distribution) []string {
	if len(d.Participants) > 0 {
		order := make([]string, 0, len(d.Participants))
		for _, id := range d.Participants {
			if _, ok := d.Weights[id]; ok {
				order = append(order, id)
			}
		}
		return order
	}
	order := make([]string, 0, len(d.Weights))
	for id := range d.Weights {
		order = append(order, id)
	}
	sort.Strings(order)
	return order
}
