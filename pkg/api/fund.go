package api

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

const FundServiceName = "fundflow.v1.FundService"

const (
	FundServiceCreateFundProcedure      = "/" + FundServiceName + "/CreateFund"
	FundServiceGetFundProcedure         = "/" + FundServiceName + "/GetFund"
	FundServiceListFundsProcedure       = "/" + FundServiceName + "/ListFunds"
	FundServiceUpdateFundProcedure      = "/" + FundServiceName + "/UpdateFund"
	FundServiceDeleteFundProcedure      = "/" + FundServiceName + "/DeleteFund"
	FundServiceGetFundBalancesProcedure = "/" + FundServiceName + "/GetFundBalances"
)

// FundServiceHandler is implemented by the server.
type FundServiceHandler interface {
	CreateFund(context.Context, *connect.Request[CreateFundRequest]) (*connect.Response[CreateFundResponse], error)
	GetFund(context.Context, *connect.Request[GetFundRequest]) (*connect.Response[GetFundResponse], error)
	ListFunds(context.Context, *connect.Request[ListFundsRequest]) (*connect.Response[ListFundsResponse], error)
	UpdateFund(context.Context, *connect.Request[UpdateFundRequest]) (*connect.Response[UpdateFundResponse], error)
	DeleteFund(context.Context, *connect.Request[DeleteFundRequest]) (*connect.Response[DeleteFundResponse], error)
	GetFundBalances(context.Context, *connect.Request[GetFundBalancesRequest]) (*connect.Response[GetFundBalancesResponse], error)
}

// NewFundServiceHandler returns the mount path and handler for svc.
func NewFundServiceHandler(svc FundServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	return "/" + FundServiceName + "/", route(map[string]http.Handler{
		FundServiceCreateFundProcedure:      unaryHandler(FundServiceCreateFundProcedure, svc.CreateFund, opts),
		FundServiceGetFundProcedure:         unaryHandler(FundServiceGetFundProcedure, svc.GetFund, opts),
		FundServiceListFundsProcedure:       unaryHandler(FundServiceListFundsProcedure, svc.ListFunds, opts),
		FundServiceUpdateFundProcedure:      unaryHandler(FundServiceUpdateFundProcedure, svc.UpdateFund, opts),
		FundServiceDeleteFundProcedure:      unaryHandler(FundServiceDeleteFundProcedure, svc.DeleteFund, opts),
		FundServiceGetFundBalancesProcedure: unaryHandler(FundServiceGetFundBalancesProcedure, svc.GetFundBalances, opts),
	})
}

// FundServiceClient calls FundService.
type FundServiceClient struct {
	createFund      *connect.Client[CreateFundRequest, CreateFundResponse]
	getFund         *connect.Client[GetFundRequest, GetFundResponse]
	listFunds       *connect.Client[ListFundsRequest, ListFundsResponse]
	updateFund      *connect.Client[UpdateFundRequest, UpdateFundResponse]
	deleteFund      *connect.Client[DeleteFundRequest, DeleteFundResponse]
	getFundBalances *connect.Client[GetFundBalancesRequest, GetFundBalancesResponse]
}

// NewFundServiceClient creates a client for the server at baseURL.
func NewFundServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *FundServiceClient {
	return &FundServiceClient{
		createFund:      unaryClient[CreateFundRequest, CreateFundResponse](httpClient, baseURL, FundServiceCreateFundProcedure, opts),
		getFund:         unaryClient[GetFundRequest, GetFundResponse](httpClient, baseURL, FundServiceGetFundProcedure, opts),
		listFunds:       unaryClient[ListFundsRequest, ListFundsResponse](httpClient, baseURL, FundServiceListFundsProcedure, opts),
		updateFund:      unaryClient[UpdateFundRequest, UpdateFundResponse](httpClient, baseURL, FundServiceUpdateFundProcedure, opts),
		deleteFund:      unaryClient[DeleteFundRequest, DeleteFundResponse](httpClient, baseURL, FundServiceDeleteFundProcedure, opts),
		getFundBalances: unaryClient[GetFundBalancesRequest, GetFundBalancesResponse](httpClient, baseURL, FundServiceGetFundBalancesProcedure, opts),
	}
}

func (c *FundServiceClient) CreateFund(ctx context.Context, req *connect.Request[CreateFundRequest]) (*connect.Response[CreateFundResponse], error) {
	return c.createFund.CallUnary(ctx, req)
}

func (c *FundServiceClient) GetFund(ctx context.Context, req *connect.Request[GetFundRequest]) (*connect.Response[GetFundResponse], error) {
	return c.getFund.CallUnary(ctx, req)
}

func (c *FundServiceClient) ListFunds(ctx context.Context, req *connect.Request[ListFundsRequest]) (*connect.Response[ListFundsResponse], error) {
	return c.listFunds.CallUnary(ctx, req)
}

func (c *FundServiceClient) UpdateFund(ctx context.Context, req *connect.Request[UpdateFundRequest]) (*connect.Response[UpdateFundResponse], error) {
	return c.updateFund.CallUnary(ctx, req)
}

func (c *FundServiceClient) DeleteFund(ctx context.Context, req *connect.Request[DeleteFundRequest]) (*connect.Response[DeleteFundResponse], error) {
	return c.deleteFund.CallUnary(ctx, req)
}

func (c *FundServiceClient) GetFundBalances(ctx context.Context, req *connect.Request[GetFundBalancesRequest]) (*connect.Response[GetFundBalancesResponse], error) {
	return c.getFundBalances.CallUnary(ctx, req)
}
