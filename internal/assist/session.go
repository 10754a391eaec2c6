// Package assist drives AI-assisted transaction creation for one user in
// one fund.
//
// A Session moves through idle, drafting, processing, proposed and then
// committed or discarded. At most one proposal is live: submitting again or
// discarding bumps a generation counter, and a parser result that arrives
// for an older generation is dropped with ErrStale.
package assist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/mmynk/fundflow/internal/calculator"
	"github.com/mmynk/fundflow/internal/ledger"
	"github.com/mmynk/fundflow/internal/llm"
	"github.com/mmynk/fundflow/internal/models"
	"github.com/mmynk/fundflow/internal/proposal"
	"github.com/mmynk/fundflow/internal/validator"
)

var (
	ErrStale        = errors.New("result superseded by a newer request")
	ErrEmptyPrompt  = errors.New("prompt is empty")
	ErrInvalidState = errors.New("operation not allowed in current state")
	ErrPayerEdit    = errors.New("the payer's amount is derived from the other members; edit theirs instead")
)

// State is a session's position in the creation flow.
type State int

const (
	StateIdle State = iota
	StateDrafting
	StateProcessing
	StateProposed
	StateCommitted
	StateDiscarded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDrafting:
		return "drafting"
	case StateProcessing:
		return "processing"
	case StateProposed:
		return "proposed"
	case StateCommitted:
		return "committed"
	case StateDiscarded:
		return "discarded"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Committer persists an accepted draft. *ledger.Orchestrator satisfies it.
type Committer interface {
	CreateTransaction(ctx context.Context, in ledger.Input) (*models.Transaction, error)
}

// Session is one user's AI-assisted draft for one fund.
type Session struct {
	parser    llm.Parser
	validator *validator.Validator
	committer Committer

	fund   models.Fund
	roster []models.User
	userID string

	mu         sync.Mutex
	state      State
	prompt     string
	gen        uint64
	result     *validator.Result
	committing bool
}

// NewSession creates an idle session for userID in fund.
func NewSession(parser llm.Parser, v *validator.Validator, committer Committer, fund models.Fund, roster []models.User, userID string) *Session {
	return &Session{
		parser:    parser,
		validator: v,
		committer: committer,
		fund:      fund,
		roster:    roster,
		userID:    userID,
	}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Proposal returns the live proposal, if any.
func (s *Session) Proposal() (*validator.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateProposed {
		return nil, false
	}
	return s.result, true
}

// SetPrompt records the user's text. Any live proposal or in-flight request
// is abandoned.
func (s *Session) SetPrompt(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateProcessing || s.state == StateProposed {
		s.gen++
	}
	s.prompt = text
	s.result = nil
	s.state = StateDrafting
}

// Submit sends the prompt to the parser and validates the reply. On success
// the session is proposed. Failures return the session to drafting.
func (s *Session) Submit(ctx context.Context) (*validator.Result, error) {
	s.mu.Lock()
	if strings.TrimSpace(s.prompt) == "" {
		s.mu.Unlock()
		return nil, ErrEmptyPrompt
	}
	if s.committing {
		s.mu.Unlock()
		return nil, ErrInvalidState
	}
	if s.state == StateDiscarded {
		s.mu.Unlock()
		return nil, ErrStale
	}
	s.gen++
	gen := s.gen
	prompt := s.prompt
	s.result = nil
	s.state = StateProcessing
	s.mu.Unlock()

	raw, err := s.parser.Parse(ctx, llm.Request{
		Prompt:        prompt,
		Fund:          s.fund,
		Roster:        s.roster,
		CurrentUserID: s.userID,
	})

	var res *validator.Result
	if err == nil {
		res, err = s.validate(raw)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		slog.Debug("Dropping stale proposal", "fund_id", s.fund.ID)
		return nil, ErrStale
	}
	if err != nil {
		s.state = StateDrafting
		return nil, err
	}
	s.result = res
	s.state = StateProposed
	return res, nil
}

func (s *Session) validate(raw string) (*validator.Result, error) {
	p, err := proposal.Parse(raw)
	if err != nil {
		return nil, err
	}
	if p.Recovered {
		slog.Warn("Recovered truncated proposal", "fund_id", s.fund.ID)
	}
	return s.validator.Validate(p, s.fund, s.roster)
}

// Edit overrides one member's split with a free-text amount, rebalances the
// payer, and re-validates. The payer's own split cannot be edited. The
// proposal is unchanged if the edit is rejected.
func (s *Session) Edit(userID string, negative bool, text string) (*validator.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateProposed || s.committing {
		return nil, ErrInvalidState
	}

	draft := s.result.Draft
	if userID == draft.PaidBy {
		return nil, ErrPayerEdit
	}
	splits, err := calculator.ApplyOverride(draft.Splits, userID, negative, text)
	if err != nil {
		return nil, err
	}
	splits = calculator.Rebalance(splits, draft.PaidBy)

	// The narrative describes the parser's numbers, not the user's edit.
	tx := draft.Transaction(s.fund.ID)
	tx.Splits = splits
	tx.Reasoning = ""
	res, err := s.validator.ValidateTransaction(tx, s.fund, s.roster)
	if err != nil {
		return nil, err
	}
	res.Draft.Reasoning = draft.Reasoning
	if res.Draft.Description == "" {
		res.Draft.Description = draft.Description
	}
	s.result = res
	return res, nil
}

// Commit persists the live proposal.
func (s *Session) Commit(ctx context.Context) (*models.Transaction, error) {
	s.mu.Lock()
	if s.state != StateProposed || s.committing {
		s.mu.Unlock()
		return nil, ErrInvalidState
	}
	s.committing = true
	draft := s.result.Draft
	prompt := s.prompt
	s.mu.Unlock()

	tx, err := s.committer.CreateTransaction(ctx, ledger.Input{
		FundID:      s.fund.ID,
		Description: draft.Description,
		Amount:      draft.Amount,
		PaidBy:      draft.PaidBy,
		Splits:      draft.Splits,
		ActorID:     s.userID,
		Reasoning:   draft.Reasoning,
		AIPrompt:    prompt,
		AIGenerated: true,
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.committing = false
	if err != nil {
		return nil, err
	}
	s.state = StateCommitted
	s.result = nil
	return tx, nil
}

// Discard abandons the draft and any in-flight request.
func (s *Session) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.result = nil
	s.state = StateDiscarded
}
