package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"connectrpc.com/connect"

	"github.com/mmynk/fundflow/internal/assist"
	"github.com/mmynk/fundflow/internal/directory"
	"github.com/mmynk/fundflow/internal/ledger"
	"github.com/mmynk/fundflow/internal/llm"
	"github.com/mmynk/fundflow/internal/models"
	"github.com/mmynk/fundflow/internal/proposal"
	"github.com/mmynk/fundflow/internal/validator"
	"github.com/mmynk/fundflow/pkg/api"
)

// TransactionService implements api.TransactionServiceHandler.
type TransactionService struct {
	funds     FundReader
	ledger    *ledger.Orchestrator
	validator *validator.Validator
	parser    llm.Parser
	directory *directory.Directory

	mu       sync.Mutex
	sessions map[string]*assist.Session
}

// NewTransactionService creates a TransactionService.
func NewTransactionService(funds FundReader, l *ledger.Orchestrator, v *validator.Validator, parser llm.Parser, dir *directory.Directory) *TransactionService {
	return &TransactionService{
		funds:     funds,
		ledger:    l,
		validator: v,
		parser:    parser,
		directory: dir,
		sessions:  make(map[string]*assist.Session),
	}
}

// CreateTransaction validates and records an expense. Splits are computed
// server-side when a distribution is given.
func (s *TransactionService) CreateTransaction(ctx context.Context, req *connect.Request[api.CreateTransactionRequest]) (*connect.Response[api.CreateTransactionResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("CreateTransaction request received",
		"fund_id", req.Msg.FundID,
		"amount", req.Msg.Amount,
		"splits_count", len(req.Msg.Splits),
		"distribution", req.Msg.Distribution != nil,
	)

	fund, roster, err := s.fundRoster(ctx, req.Msg.FundID, userID)
	if err != nil {
		return nil, toConnectError(err)
	}

	paidBy := req.Msg.PaidBy
	if paidBy == "" {
		paidBy = userID
	}
	var warnings []validator.Warning
	tx, err := s.ledger.CreateTransaction(ctx, ledger.Input{
		FundID:       fund.ID,
		Description:  req.Msg.Description,
		Amount:       req.Msg.Amount,
		PaidBy:       paidBy,
		Splits:       splitsFromAPI(req.Msg.Splits),
		Distribution: distributionFromAPI(req.Msg.Distribution),
		ActorID:      userID,
		Reasoning:    req.Msg.Reasoning,
		AIPrompt:     req.Msg.AIPrompt,
		AIGenerated:  req.Msg.AIGenerated,
		Check: func(tx models.Transaction) error {
			res, err := s.validator.ValidateTransaction(tx, *fund, roster)
			if err != nil {
				return err
			}
			warnings = res.Warnings
			return nil
		},
	})
	if err != nil {
		slog.Error("CreateTransaction failed", "fund_id", fund.ID, "error", err)
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&api.CreateTransactionResponse{
		Transaction: transactionToAPI(tx),
		Warnings:    warningsToAPI(warnings),
	}), nil
}

// UpdateTransaction edits an expense. Changed amounts or splits are
// re-validated against the fund's current members.
func (s *TransactionService) UpdateTransaction(ctx context.Context, req *connect.Request[api.UpdateTransactionRequest]) (*connect.Response[api.UpdateTransactionResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("UpdateTransaction request received", "transaction_id", req.Msg.TransactionID)

	if req.Msg.TransactionID == "" {
		return nil, toConnectError(errMissingID)
	}
	existing, err := s.ledger.Transaction(ctx, req.Msg.TransactionID)
	if err != nil {
		return nil, toConnectError(err)
	}
	fund, roster, err := s.fundRoster(ctx, existing.FundID, userID)
	if err != nil {
		return nil, toConnectError(err)
	}

	merged := *existing
	if req.Msg.Description != nil {
		merged.Description = *req.Msg.Description
	}
	if req.Msg.Amount != nil {
		merged.Amount = *req.Msg.Amount
	}
	splits := splitsFromAPI(req.Msg.Splits)
	if splits != nil {
		merged.Splits = splits
	}

	var warnings []validator.Warning
	if req.Msg.Amount != nil || splits != nil {
		merged.Reasoning = ""
		res, err := s.validator.ValidateTransaction(merged, *fund, roster)
		if err != nil {
			return nil, toConnectError(err)
		}
		warnings = res.Warnings
	}

	tx, err := s.ledger.UpdateTransaction(ctx, existing.ID, ledger.Patch{
		Description: req.Msg.Description,
		Amount:      req.Msg.Amount,
		Splits:      splits,
		ActorID:     userID,
	})
	if err != nil {
		slog.Error("UpdateTransaction failed", "transaction_id", existing.ID, "error", err)
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&api.UpdateTransactionResponse{
		Transaction: transactionToAPI(tx),
		Warnings:    warningsToAPI(warnings),
	}), nil
}

// DeleteTransaction removes an expense.
func (s *TransactionService) DeleteTransaction(ctx context.Context, req *connect.Request[api.DeleteTransactionRequest]) (*connect.Response[api.DeleteTransactionResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("DeleteTransaction request received", "fund_id", req.Msg.FundID, "transaction_id", req.Msg.TransactionID)

	if req.Msg.TransactionID == "" {
		return nil, toConnectError(errMissingID)
	}
	tx, err := s.ledger.Transaction(ctx, req.Msg.TransactionID)
	if err != nil {
		return nil, toConnectError(err)
	}
	if req.Msg.FundID != "" && req.Msg.FundID != tx.FundID {
		return nil, connect.NewError(connect.CodeNotFound, errors.New("transaction does not belong to this fund"))
	}
	if _, err := memberFund(ctx, s.funds, tx.FundID, userID); err != nil {
		return nil, toConnectError(err)
	}

	if err := s.ledger.DeleteTransaction(ctx, tx.FundID, tx.ID); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.DeleteTransactionResponse{}), nil
}

// ListTransactions returns the fund's transactions, newest first. The
// cached list is refreshed from the store on every call.
func (s *TransactionService) ListTransactions(ctx context.Context, req *connect.Request[api.ListTransactionsRequest]) (*connect.Response[api.ListTransactionsResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("ListTransactions request received", "fund_id", req.Msg.FundID)

	if _, err := memberFund(ctx, s.funds, req.Msg.FundID, userID); err != nil {
		return nil, toConnectError(err)
	}
	txs, err := s.ledger.Load(ctx, req.Msg.FundID)
	if err != nil {
		slog.Error("ListTransactions failed", "fund_id", req.Msg.FundID, "error", err)
		return nil, toConnectError(err)
	}

	out := make([]*api.Transaction, len(txs))
	for i := range txs {
		out[i] = transactionToAPI(&txs[i])
	}
	slog.Info("ListTransactions successful", "fund_id", req.Msg.FundID, "count", len(out))
	return connect.NewResponse(&api.ListTransactionsResponse{Transactions: out}), nil
}

// ValidateProposal checks a raw parser reply against the fund without
// recording anything.
func (s *TransactionService) ValidateProposal(ctx context.Context, req *connect.Request[api.ValidateProposalRequest]) (*connect.Response[api.ProposalResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("ValidateProposal request received", "fund_id", req.Msg.FundID)

	fund, roster, err := s.fundRoster(ctx, req.Msg.FundID, userID)
	if err != nil {
		return nil, toConnectError(err)
	}
	p, err := proposal.Parse(req.Msg.Raw)
	if err != nil {
		return nil, toConnectError(err)
	}
	res, err := s.validator.Validate(p, *fund, roster)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(proposalToAPI(res, p.Recovered)), nil
}

// ParseTransaction turns free text into the caller's live proposal for the
// fund. A request still in flight for the same caller and fund is
// superseded and fails with Aborted.
func (s *TransactionService) ParseTransaction(ctx context.Context, req *connect.Request[api.ParseTransactionRequest]) (*connect.Response[api.ProposalResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("ParseTransaction request received", "fund_id", req.Msg.FundID, "user_id", userID)

	session, err := s.session(ctx, req.Msg.FundID, userID)
	if err != nil {
		return nil, toConnectError(err)
	}
	session.SetPrompt(req.Msg.Prompt)
	res, err := session.Submit(ctx)
	if err != nil {
		slog.Warn("ParseTransaction failed", "fund_id", req.Msg.FundID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(proposalToAPI(res, false)), nil
}

// EditProposal overrides one member's amount on the live proposal.
func (s *TransactionService) EditProposal(ctx context.Context, req *connect.Request[api.EditProposalRequest]) (*connect.Response[api.ProposalResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("EditProposal request received", "fund_id", req.Msg.FundID, "member_id", req.Msg.UserID)

	session, ok := s.liveSession(req.Msg.FundID, userID)
	if !ok {
		return nil, toConnectError(assist.ErrInvalidState)
	}
	res, err := session.Edit(req.Msg.UserID, req.Msg.Negative, req.Msg.Amount)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(proposalToAPI(res, false)), nil
}

// CommitProposal records the live proposal as a transaction.
func (s *TransactionService) CommitProposal(ctx context.Context, req *connect.Request[api.CommitProposalRequest]) (*connect.Response[api.CommitProposalResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("CommitProposal request received", "fund_id", req.Msg.FundID, "user_id", userID)

	session, ok := s.liveSession(req.Msg.FundID, userID)
	if !ok {
		return nil, toConnectError(assist.ErrInvalidState)
	}
	tx, err := session.Commit(ctx)
	if err != nil {
		slog.Error("CommitProposal failed", "fund_id", req.Msg.FundID, "error", err)
		return nil, toConnectError(err)
	}
	s.dropSession(req.Msg.FundID, userID, session)

	return connect.NewResponse(&api.CommitProposalResponse{Transaction: transactionToAPI(tx)}), nil
}

// DiscardProposal abandons the caller's draft and any in-flight parse.
func (s *TransactionService) DiscardProposal(ctx context.Context, req *connect.Request[api.DiscardProposalRequest]) (*connect.Response[api.DiscardProposalResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("DiscardProposal request received", "fund_id", req.Msg.FundID, "user_id", userID)

	if session, ok := s.liveSession(req.Msg.FundID, userID); ok {
		session.Discard()
		s.dropSession(req.Msg.FundID, userID, session)
	}
	return connect.NewResponse(&api.DiscardProposalResponse{}), nil
}

// fundRoster loads the fund, checks membership and resolves member profiles.
func (s *TransactionService) fundRoster(ctx context.Context, fundID, userID string) (*models.Fund, []models.User, error) {
	fund, err := memberFund(ctx, s.funds, fundID, userID)
	if err != nil {
		return nil, nil, err
	}
	roster, err := s.directory.Roster(ctx, fund.Members)
	if err != nil {
		return nil, nil, err
	}
	return fund, roster, nil
}

func sessionKey(fundID, userID string) string {
	return userID + "|" + fundID
}

// session returns the caller's session for fundID. A session with a request
// in flight is reused so the new prompt supersedes it; otherwise a fresh one
// is started with the current fund and roster.
func (s *TransactionService) session(ctx context.Context, fundID, userID string) (*assist.Session, error) {
	key := sessionKey(fundID, userID)
	s.mu.Lock()
	if existing, ok := s.sessions[key]; ok && existing.State() == assist.StateProcessing {
		s.mu.Unlock()
		return existing, nil
	}
	s.mu.Unlock()

	fund, roster, err := s.fundRoster(ctx, fundID, userID)
	if err != nil {
		return nil, err
	}
	fresh := assist.NewSession(s.parser, s.validator, s.ledger, *fund, roster, userID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[key]; ok {
		if existing.State() == assist.StateProcessing {
			return existing, nil
		}
		existing.Discard()
	}
	s.sessions[key] = fresh
	return fresh, nil
}

func (s *TransactionService) liveSession(fundID, userID string) (*assist.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionKey(fundID, userID)]
	return session, ok
}

func (s *TransactionService) dropSession(fundID, userID string, session *assist.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := sessionKey(fundID, userID)
	if s.sessions[key] == session {
		delete(s.sessions, key)
	}
}
