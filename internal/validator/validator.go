// Package validator is the gate between untrusted transaction payloads and
// persisted transactions.
package validator

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mmynk/fundflow/internal/models"
	"github.com/mmynk/fundflow/internal/proposal"
	"github.com/mmynk/fundflow/internal/reconcile"
)

// Policy holds the imbalance thresholds, in currency units.
type Policy struct {
	// Imbalances up to SilentTolerance are accepted without comment.
	SilentTolerance decimal.Decimal
	// Imbalances up to WarnTolerance are accepted with a warning. Anything
	// larger is rejected.
	WarnTolerance decimal.Decimal
	// NarrativeTolerance bounds narrative vs split disagreement.
	NarrativeTolerance decimal.Decimal
}

// DefaultPolicy returns the thresholds used for VND funds.
func DefaultPolicy() Policy {
	return Policy{
		SilentTolerance:    decimal.NewFromInt(10),
		WarnTolerance:      decimal.NewFromInt(100),
		NarrativeTolerance: decimal.NewFromInt(10),
	}
}

// Outcome labels reported to a Recorder.
const (
	OutcomeAccepted = "accepted"
	OutcomeWarned   = "warned"
	OutcomeRejected = "rejected"
)

// Recorder observes validation outcomes.
type Recorder interface {
	ValidationOutcome(outcome string)
}

// WarningKind classifies a non-fatal finding.
type WarningKind string

const (
	WarnMissingDescription WarningKind = "missing_description"
	WarnImbalance          WarningKind = "imbalance"
	WarnNarrative          WarningKind = "narrative_mismatch"
)

// Warning is an advisory finding that does not block acceptance.
type Warning struct {
	Kind    WarningKind
	Message string
}

// Draft is a payload that passed validation.
type Draft struct {
	Description string
	Amount      float64
	PaidBy      string
	Splits      []models.Split
	Reasoning   string
}

// Transaction converts the draft into a transaction for fundID. ID and
// CreatedAt are left for the orchestrator to fill.
func (d Draft) Transaction(fundID string) models.Transaction {
	splits := make([]models.Split, len(d.Splits))
	copy(splits, d.Splits)
	return models.Transaction{
		FundID:      fundID,
		Description: d.Description,
		Amount:      d.Amount,
		PaidBy:      d.PaidBy,
		Splits:      splits,
		Reasoning:   d.Reasoning,
	}
}

// Result is the outcome of a successful validation.
type Result struct {
	Draft    Draft
	Warnings []Warning

	// Imbalance is the signed sum of the splits.
	Imbalance float64
}

// Validator checks proposals against a fund.
type Validator struct {
	policy   Policy
	recorder Recorder
}

// New creates a validator. recorder may be nil.
func New(policy Policy, recorder Recorder) *Validator {
	return &Validator{policy: policy, recorder: recorder}
}

// Policy returns the validator's thresholds.
func (v *Validator) Policy() Policy {
	return v.policy
}

// Validate runs every check against p. All fatal problems are returned
// together in a *ValidationError; warnings accompany a successful result.
func (v *Validator) Validate(p *proposal.Proposal, fund models.Fund, roster []models.User) (*Result, error) {
	var problems []error
	var warnings []Warning

	desc, ok := p.Description()
	if !ok {
		warnings = append(warnings, Warning{Kind: WarnMissingDescription, Message: "transaction has no description"})
	}

	var total decimal.Decimal
	if raw, ok := p.TotalAmount(); !ok {
		problems = append(problems, &problem{ErrInvalidTotal, "total amount is missing"})
	} else if amount, err := toDecimal(raw); err != nil {
		problems = append(problems, &problem{ErrInvalidTotal, fmt.Sprintf("total amount %s is not a number", describe(raw))})
	} else if !amount.IsPositive() {
		problems = append(problems, &problem{ErrInvalidTotal, fmt.Sprintf("total amount must be positive, got %s", amount.String())})
	} else {
		total = amount
	}

	payer, ok := p.Payer()
	if !ok {
		problems = append(problems, &problem{ErrMissingPayer, "payer is missing"})
	} else if !fund.HasMember(payer) {
		problems = append(problems, &problem{ErrUnknownPayer, fmt.Sprintf("Payer with ID %s not found in fund members list", payer)})
	}

	amounts, splitProblems := v.checkSplits(p, fund)
	problems = append(problems, splitProblems...)

	var sum decimal.Decimal
	if len(splitProblems) == 0 {
		for _, a := range amounts {
			sum = sum.Add(a)
		}
		switch off := sum.Abs(); {
		case off.LessThanOrEqual(v.policy.SilentTolerance):
		case off.LessThanOrEqual(v.policy.WarnTolerance):
			msg := fmt.Sprintf("amounts do not balance, off by %s", sum.String())
			slog.Warn("Tolerated split imbalance", "fund_id", fund.ID, "off_by", sum.String())
			warnings = append(warnings, Warning{Kind: WarnImbalance, Message: msg})
		default:
			problems = append(problems, &problem{ErrImbalanced, fmt.Sprintf("amounts do not balance, off by %s", sum.String())})
		}
	}

	if len(problems) > 0 {
		v.record(OutcomeRejected)
		slog.Info("Rejected transaction payload", "fund_id", fund.ID, "problems", len(problems))
		return nil, &ValidationError{Problems: problems}
	}

	reasoning := p.Reasoning()
	if reasoning != "" {
		report := reconcile.Reconcile(reasoning, amounts, roster, v.policy.NarrativeTolerance)
		if !report.Found {
			slog.Debug("Narrative has no final amounts section", "fund_id", fund.ID)
		}
		for _, msg := range report.Warnings() {
			slog.Warn("Narrative disagrees with splits", "fund_id", fund.ID, "detail", msg)
			warnings = append(warnings, Warning{Kind: WarnNarrative, Message: msg})
		}
	}

	if hasKind(warnings, WarnImbalance) || hasKind(warnings, WarnNarrative) {
		v.record(OutcomeWarned)
	} else {
		v.record(OutcomeAccepted)
	}

	return &Result{
		Draft: Draft{
			Description: desc,
			Amount:      total.InexactFloat64(),
			PaidBy:      payer,
			Splits:      orderedSplits(amounts, fund.Members),
			Reasoning:   reasoning,
		},
		Warnings:  warnings,
		Imbalance: sum.InexactFloat64(),
	}, nil
}

// ValidateTransaction validates a user-submitted transaction by running it
// through the same checks as a parsed proposal.
func (v *Validator) ValidateTransaction(tx models.Transaction, fund models.Fund, roster []models.User) (*Result, error) {
	amounts := make(map[string]float64, len(tx.Splits))
	for _, s := range tx.Splits {
		amounts[s.UserID] += s.Amount
	}
	p, err := proposal.Build(proposal.Fields{
		Description: tx.Description,
		TotalAmount: tx.Amount,
		Payer:       tx.PaidBy,
		Amounts:     amounts,
		Reasoning:   tx.Reasoning,
	})
	if err != nil {
		return nil, err
	}
	return v.Validate(p, fund, roster)
}

func (v *Validator) checkSplits(p *proposal.Proposal, fund models.Fund) (map[string]decimal.Decimal, []error) {
	users, ok := p.Users()
	if !ok || len(users) == 0 {
		return nil, []error{&problem{ErrMissingSplits, "splits are missing"}}
	}

	ids := make([]string, 0, len(users))
	for id := range users {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var problems []error
	amounts := make(map[string]decimal.Decimal, len(users))
	for _, id := range ids {
		if !fund.HasMember(id) {
			problems = append(problems, &problem{ErrUnknownParticipant, fmt.Sprintf("User with ID %s not found in fund members list", id)})
			continue
		}
		amount, err := toDecimal(users[id])
		if err != nil {
			problems = append(problems, &problem{ErrInvalidSplitAmount, fmt.Sprintf("split for %s has invalid amount %s", id, describe(users[id]))})
			continue
		}
		amounts[id] = amount
	}
	return amounts, problems
}

func (v *Validator) record(outcome string) {
	if v.recorder != nil {
		v.recorder.ValidationOutcome(outcome)
	}
}

// toDecimal accepts JSON numbers and human-formatted numeric strings.
func toDecimal(v *structpb.Value) (decimal.Decimal, error) {
	switch k := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		return decimal.NewFromFloat(k.NumberValue), nil
	case *structpb.Value_StringValue:
		return reconcile.ParseAmount(k.StringValue)
	default:
		return decimal.Zero, reconcile.ErrInvalidAmount
	}
}

func describe(v *structpb.Value) string {
	if s, ok := v.GetKind().(*structpb.Value_StringValue); ok {
		return strconv.Quote(s.StringValue)
	}
	b, err := protojson.Marshal(v)
	if err != nil {
		return "?"
	}
	return string(b)
}

// orderedSplits lists splits in fund member order.
func orderedSplits(amounts map[string]decimal.Decimal, members []string) []models.Split {
	splits := make([]models.Split, 0, len(amounts))
	for _, id := range members {
		if a, ok := amounts[id]; ok {
			splits = append(splits, models.Split{UserID: id, Amount: a.InexactFloat64()})
		}
	}
	return splits
}

func hasKind(warnings []Warning, kind WarningKind) bool {
	for _, w := range warnings {
		if w.Kind == kind {
			return true
		}
	}
	return false
}
