package api

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

const TransactionServiceName = "fundflow.v1.TransactionService"

const (
	TransactionServiceCreateTransactionProcedure = "/" + TransactionServiceName + "/CreateTransaction"
	TransactionServiceUpdateTransactionProcedure = "/" + TransactionServiceName + "/UpdateTransaction"
	TransactionServiceDeleteTransactionProcedure = "/" + TransactionServiceName + "/DeleteTransaction"
	TransactionServiceListTransactionsProcedure  = "/" + TransactionServiceName + "/ListTransactions"
	TransactionServiceValidateProposalProcedure  = "/" + TransactionServiceName + "/ValidateProposal"
	TransactionServiceParseTransactionProcedure  = "/" + TransactionServiceName + "/ParseTransaction"
	TransactionServiceEditProposalProcedure      = "/" + TransactionServiceName + "/EditProposal"
	TransactionServiceCommitProposalProcedure    = "/" + TransactionServiceName + "/CommitProposal"
	TransactionServiceDiscardProposalProcedure   = "/" + TransactionServiceName + "/DiscardProposal"
)

// TransactionServiceHandler is implemented by the server.
type TransactionServiceHandler interface {
	CreateTransaction(context.Context, *connect.Request[CreateTransactionRequest]) (*connect.Response[CreateTransactionResponse], error)
	UpdateTransaction(context.Context, *connect.Request[UpdateTransactionRequest]) (*connect.Response[UpdateTransactionResponse], error)
	DeleteTransaction(context.Context, *connect.Request[DeleteTransactionRequest]) (*connect.Response[DeleteTransactionResponse], error)
	ListTransactions(context.Context, *connect.Request[ListTransactionsRequest]) (*connect.Response[ListTransactionsResponse], error)
	ValidateProposal(context.Context, *connect.Request[ValidateProposalRequest]) (*connect.Response[ProposalResponse], error)
	ParseTransaction(context.Context, *connect.Request[ParseTransactionRequest]) (*connect.Response[ProposalResponse], error)
	EditProposal(context.Context, *connect.Request[EditProposalRequest]) (*connect.Response[ProposalResponse], error)
	CommitProposal(context.Context, *connect.Request[CommitProposalRequest]) (*connect.Response[CommitProposalResponse], error)
	DiscardProposal(context.Context, *connect.Request[DiscardProposalRequest]) (*connect.Response[DiscardProposalResponse], error)
}

// NewTransactionServiceHandler returns the mount path and handler for svc.
func NewTransactionServiceHandler(svc TransactionServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	return "/" + TransactionServiceName + "/", route(map[string]http.Handler{
		TransactionServiceCreateTransactionProcedure: unaryHandler(TransactionServiceCreateTransactionProcedure, svc.CreateTransaction, opts),
		TransactionServiceUpdateTransactionProcedure: unaryHandler(TransactionServiceUpdateTransactionProcedure, svc.UpdateTransaction, opts),
		TransactionServiceDeleteTransactionProcedure: unaryHandler(TransactionServiceDeleteTransactionProcedure, svc.DeleteTransaction, opts),
		TransactionServiceListTransactionsProcedure:  unaryHandler(TransactionServiceListTransactionsProcedure, svc.ListTransactions, opts),
		TransactionServiceValidateProposalProcedure:  unaryHandler(TransactionServiceValidateProposalProcedure, svc.ValidateProposal, opts),
		TransactionServiceParseTransactionProcedure:  unaryHandler(TransactionServiceParseTransactionProcedure, svc.ParseTransaction, opts),
		TransactionServiceEditProposalProcedure:      unaryHandler(TransactionServiceEditProposalProcedure, svc.EditProposal, opts),
		TransactionServiceCommitProposalProcedure:    unaryHandler(TransactionServiceCommitProposalProcedure, svc.CommitProposal, opts),
		TransactionServiceDiscardProposalProcedure:   unaryHandler(TransactionServiceDiscardProposalProcedure, svc.DiscardProposal, opts),
	})
}

// TransactionServiceClient calls TransactionService.
type TransactionServiceClient struct {
	createTransaction *connect.Client[CreateTransactionRequest, CreateTransactionResponse]
	updateTransaction *connect.Client[UpdateTransactionRequest, UpdateTransactionResponse]
	deleteTransaction *connect.Client[DeleteTransactionRequest, DeleteTransactionResponse]
	listTransactions  *connect.Client[ListTransactionsRequest, ListTransactionsResponse]
	validateProposal  *connect.Client[ValidateProposalRequest, ProposalResponse]
	parseTransaction  *connect.Client[ParseTransactionRequest, ProposalResponse]
	editProposal      *connect.Client[EditProposalRequest, ProposalResponse]
	commitProposal    *connect.Client[CommitProposalRequest, CommitProposalResponse]
	discardProposal   *connect.Client[DiscardProposalRequest, DiscardProposalResponse]
}

// NewTransactionServiceClient creates a client for the server at baseURL.
func NewTransactionServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *TransactionServiceClient {
	return &TransactionServiceClient{
		createTransaction: unaryClient[CreateTransactionRequest, CreateTransactionResponse](httpClient, baseURL, TransactionServiceCreateTransactionProcedure, opts),
		updateTransaction: unaryClient[UpdateTransactionRequest, UpdateTransactionResponse](httpClient, baseURL, TransactionServiceUpdateTransactionProcedure, opts),
		deleteTransaction: unaryClient[DeleteTransactionRequest, DeleteTransactionResponse](httpClient, baseURL, TransactionServiceDeleteTransactionProcedure, opts),
		listTransactions:  unaryClient[ListTransactionsRequest, ListTransactionsResponse](httpClient, baseURL, TransactionServiceListTransactionsProcedure, opts),
		validateProposal:  unaryClient[ValidateProposalRequest, ProposalResponse](httpClient, baseURL, TransactionServiceValidateProposalProcedure, opts),
		parseTransaction:  unaryClient[ParseTransactionRequest, ProposalResponse](httpClient, baseURL, TransactionServiceParseTransactionProcedure, opts),
		editProposal:      unaryClient[EditProposalRequest, ProposalResponse](httpClient, baseURL, TransactionServiceEditProposalProcedure, opts),
		commitProposal:    unaryClient[CommitProposalRequest, CommitProposalResponse](httpClient, baseURL, TransactionServiceCommitProposalProcedure, opts),
		discardProposal:   unaryClient[DiscardProposalRequest, DiscardProposalResponse](httpClient, baseURL, TransactionServiceDiscardProposalProcedure, opts),
	}
}

func (c *TransactionServiceClient) CreateTransaction(ctx context.Context, req *connect.Request[CreateTransactionRequest]) (*connect.Response[CreateTransactionResponse], error) {
	return c.createTransaction.CallUnary(ctx, req)
}

func (c *TransactionServiceClient) UpdateTransaction(ctx context.Context, req *connect.Request[UpdateTransactionRequest]) (*connect.Response[UpdateTransactionResponse], error) {
	return c.updateTransaction.CallUnary(ctx, req)
}

func (c *TransactionServiceClient) DeleteTransaction(ctx context.Context, req *connect.Request[DeleteTransactionRequest]) (*connect.Response[DeleteTransactionResponse], error) {
	return c.deleteTransaction.CallUnary(ctx, req)
}

func (c *TransactionServiceClient) ListTransactions(ctx context.Context, req *connect.Request[ListTransactionsRequest]) (*connect.Response[ListTransactionsResponse], error) {
	return c.listTransactions.CallUnary(ctx, req)
}

func (c *TransactionServiceClient) ValidateProposal(ctx context.Context, req *connect.Request[ValidateProposalRequest]) (*connect.Response[ProposalResponse], error) {
	return c.validateProposal.CallUnary(ctx, req)
}

func (c *TransactionServiceClient) ParseTransaction(ctx context.Context, req *connect.Request[ParseTransactionRequest]) (*connect.Response[ProposalResponse], error) {
	return c.parseTransaction.CallUnary(ctx, req)
}

func (c *TransactionServiceClient) EditProposal(ctx context.Context, req *connect.Request[EditProposalRequest]) (*connect.Response[ProposalResponse], error) {
	return c.editProposal.CallUnary(ctx, req)
}

func (c *TransactionServiceClient) CommitProposal(ctx context.Context, req *connect.Request[CommitProposalRequest]) (*connect.Response[CommitProposalResponse], error) {
	return c.commitProposal.CallUnary(ctx, req)
}

func (c *TransactionServiceClient) DiscardProposal(ctx context.Context, req *connect.Request[DiscardProposalRequest]) (*connect.Response[DiscardProposalResponse], error) {
	return c.discardProposal.CallUnary(ctx, req)
}
