package service

import (
	"context"
	"log/slog"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/fundflow/internal/calculator"
	"github.com/mmynk/fundflow/internal/directory"
	"github.com/mmynk/fundflow/internal/ledger"
	"github.com/mmynk/fundflow/internal/models"
	"github.com/mmynk/fundflow/internal/storage"
	"github.com/mmynk/fundflow/pkg/api"
)

// FundStore is the fund persistence FundService needs.
// *storage.Repository satisfies it.
type FundStore interface {
	FundReader
	CreateFund(ctx context.Context, fund *models.Fund) error
	ListFundsForMember(ctx context.Context, userID string) ([]models.Fund, error)
	UpdateFund(ctx context.Context, id string, u storage.FundUpdate) (*models.Fund, error)
	DeleteFund(ctx context.Context, id string) error
}

// FundService implements api.FundServiceHandler.
type FundService struct {
	store     FundStore
	ledger    *ledger.Orchestrator
	directory *directory.Directory
	refresher *ledger.Refresher
}

// FundOption configures a FundService.
type FundOption func(*FundService)

// WithRefresher keeps the most recently opened fund's cached transactions
// fresh.
func WithRefresher(r *ledger.Refresher) FundOption {
	return func(s *FundService) { s.refresher = r }
}

// NewFundService creates a FundService.
func NewFundService(store FundStore, l *ledger.Orchestrator, dir *directory.Directory, opts ...FundOption) *FundService {
	s := &FundService{store: store, ledger: l, directory: dir}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateFund creates a fund owned by the caller.
func (s *FundService) CreateFund(ctx context.Context, req *connect.Request[api.CreateFundRequest]) (*connect.Response[api.CreateFundResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("CreateFund request received",
		"user_id", userID,
		"name", req.Msg.Name,
		"members_count", len(req.Msg.Members),
	)

	name := strings.TrimSpace(req.Msg.Name)
	if name == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errMissingName)
	}

	fund := &models.Fund{
		Name:        name,
		Description: req.Msg.Description,
		Icon:        req.Msg.Icon,
		Members:     req.Msg.Members,
		CreatedBy:   userID,
	}
	if err := s.store.CreateFund(ctx, fund); err != nil {
		slog.Error("CreateFund failed", "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("Fund created", "fund_id", fund.ID)
	return connect.NewResponse(&api.CreateFundResponse{Fund: fundToAPI(fund)}), nil
}

// GetFund returns a fund and its member profiles.
func (s *FundService) GetFund(ctx context.Context, req *connect.Request[api.GetFundRequest]) (*connect.Response[api.GetFundResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("GetFund request received", "fund_id", req.Msg.FundID)

	fund, err := memberFund(ctx, s.store, req.Msg.FundID, userID)
	if err != nil {
		slog.Error("GetFund failed", "fund_id", req.Msg.FundID, "error", err)
		return nil, toConnectError(err)
	}
	roster, err := s.directory.Roster(ctx, fund.Members)
	if err != nil {
		return nil, toConnectError(err)
	}

	if s.refresher != nil && s.refresher.Selected() != fund.ID {
		s.refresher.Select(context.WithoutCancel(ctx), fund.ID)
	}

	members := make([]*api.User, len(roster))
	for i := range roster {
		members[i] = userToAPI(&roster[i])
	}
	return connect.NewResponse(&api.GetFundResponse{Fund: fundToAPI(fund), Members: members}), nil
}

// ListFunds returns every fund the caller belongs to.
func (s *FundService) ListFunds(ctx context.Context, req *connect.Request[api.ListFundsRequest]) (*connect.Response[api.ListFundsResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("ListFunds request received", "user_id", userID)

	funds, err := s.store.ListFundsForMember(ctx, userID)
	if err != nil {
		slog.Error("ListFunds failed", "error", err)
		return nil, toConnectError(err)
	}

	out := make([]*api.Fund, len(funds))
	for i := range funds {
		out[i] = fundToAPI(&funds[i])
	}
	slog.Info("ListFunds successful", "count", len(out))
	return connect.NewResponse(&api.ListFundsResponse{Funds: out}), nil
}

// UpdateFund edits a fund's details or member list. Removing a member does
// not touch existing transactions.
func (s *FundService) UpdateFund(ctx context.Context, req *connect.Request[api.UpdateFundRequest]) (*connect.Response[api.UpdateFundResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("UpdateFund request received", "fund_id", req.Msg.FundID)

	fund, err := memberFund(ctx, s.store, req.Msg.FundID, userID)
	if err != nil {
		return nil, toConnectError(err)
	}
	if req.Msg.Name != nil && strings.TrimSpace(*req.Msg.Name) == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errMissingName)
	}

	members := req.Msg.Members
	if members != nil && !contains(members, fund.CreatedBy) {
		members = append([]string{fund.CreatedBy}, members...)
	}
	updated, err := s.store.UpdateFund(ctx, fund.ID, storage.FundUpdate{
		Name:        req.Msg.Name,
		Description: req.Msg.Description,
		Icon:        req.Msg.Icon,
		Members:     members,
	})
	if err != nil {
		slog.Error("UpdateFund failed", "fund_id", fund.ID, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("Fund updated", "fund_id", updated.ID)
	return connect.NewResponse(&api.UpdateFundResponse{Fund: fundToAPI(updated)}), nil
}

// DeleteFund removes a fund and its transactions. Only the creator may do it.
func (s *FundService) DeleteFund(ctx context.Context, req *connect.Request[api.DeleteFundRequest]) (*connect.Response[api.DeleteFundResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("DeleteFund request received", "fund_id", req.Msg.FundID)

	fund, err := memberFund(ctx, s.store, req.Msg.FundID, userID)
	if err != nil {
		return nil, toConnectError(err)
	}
	if fund.CreatedBy != userID {
		return nil, toConnectError(errNotCreator)
	}
	if err := s.store.DeleteFund(ctx, fund.ID); err != nil {
		slog.Error("DeleteFund failed", "fund_id", fund.ID, "error", err)
		return nil, toConnectError(err)
	}
	if s.refresher != nil && s.refresher.Selected() == fund.ID {
		s.refresher.Select(ctx, "")
	}
	s.ledger.Cache().Forget(fund.ID)

	slog.Info("Fund deleted", "fund_id", fund.ID)
	return connect.NewResponse(&api.DeleteFundResponse{}), nil
}

// GetFundBalances aggregates the fund's transactions into per-member
// balances, largest creditor first, with settlement suggestions.
func (s *FundService) GetFundBalances(ctx context.Context, req *connect.Request[api.GetFundBalancesRequest]) (*connect.Response[api.GetFundBalancesResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("GetFundBalances request received", "fund_id", req.Msg.FundID)

	fund, err := memberFund(ctx, s.store, req.Msg.FundID, userID)
	if err != nil {
		return nil, toConnectError(err)
	}
	balances, err := s.ledger.Balances(ctx, fund.ID)
	if err != nil {
		slog.Error("GetFundBalances failed", "fund_id", fund.ID, "error", err)
		return nil, toConnectError(err)
	}
	calculator.SortByAmountDesc(balances)

	ids := make([]string, len(balances))
	for i, b := range balances {
		ids[i] = b.UserID
	}
	if _, err := s.directory.Roster(ctx, ids); err != nil {
		slog.Warn("Failed to resolve member names", "fund_id", fund.ID, "error", err)
	}

	out := make([]*api.Balance, len(balances))
	for i, b := range balances {
		out[i] = &api.Balance{UserID: b.UserID, DisplayName: s.directory.Placeholder(b.UserID), Amount: b.Amount}
	}
	var settlements []*api.Settlement
	for _, t := range calculator.SuggestSettlements(balances) {
		settlements = append(settlements, &api.Settlement{From: t.From, To: t.To, Amount: t.Amount})
	}

	return connect.NewResponse(&api.GetFundBalancesResponse{
		Balances:    out,
		Settlements: settlements,
		Imbalance:   calculator.Total(balances),
	}), nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
