package service

import (
	"context"
	"errors"

	"connectrpc.com/connect"

	"github.com/mmynk/fundflow/internal/assist"
	"github.com/mmynk/fundflow/internal/auth"
	"github.com/mmynk/fundflow/internal/calculator"
	"github.com/mmynk/fundflow/internal/ledger"
	"github.com/mmynk/fundflow/internal/llm"
	"github.com/mmynk/fundflow/internal/middleware"
	"github.com/mmynk/fundflow/internal/models"
	"github.com/mmynk/fundflow/internal/proposal"
	"github.com/mmynk/fundflow/internal/reconcile"
	"github.com/mmynk/fundflow/internal/storage"
	"github.com/mmynk/fundflow/internal/validator"
)

var (
	errNotMember   = errors.New("caller is not a member of this fund")
	errNotCreator  = errors.New("only the fund creator can do this")
	errMissingName = errors.New("fund name is required")
	errMissingID   = errors.New("id is required")
)

// invalidArgument lists errors caused by the request payload.
var invalidArgument = []error{
	proposal.ErrNoJSONObject,
	calculator.ErrNoParticipants,
	calculator.ErrInvalidAmount,
	calculator.ErrMissingPayer,
	calculator.ErrPercentTotal,
	calculator.ErrCustomTotal,
	calculator.ErrUnknownStrategy,
	reconcile.ErrInvalidAmount,
	ledger.ErrMissingFund,
	ledger.ErrMissingSplit,
	auth.ErrWeakPassword,
	auth.ErrLongPassword,
	assist.ErrEmptyPrompt,
	assist.ErrPayerEdit,
	errMissingName,
	errMissingID,
}

// toConnectError maps a domain error to its RPC code. Errors that already
// carry a code are returned unchanged.
func toConnectError(err error) error {
	if err == nil {
		return nil
	}
	var cerr *connect.Error
	if errors.As(err, &cerr) {
		return cerr
	}

	var (
		verr   *validator.ValidationError
		perr   *proposal.ParseError
		cfgErr *llm.ConfigError
		httpEr *llm.HTTPError
	)
	switch {
	case errors.As(err, &verr), errors.As(err, &perr):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.As(err, &cfgErr):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.As(err, &httpEr):
		return connect.NewError(connect.CodeUnavailable, err)
	case errors.Is(err, storage.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, assist.ErrStale):
		return connect.NewError(connect.CodeAborted, err)
	case errors.Is(err, assist.ErrInvalidState), errors.Is(err, auth.ErrGoogleDisabled):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, auth.ErrEmailExists):
		return connect.NewError(connect.CodeAlreadyExists, err)
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrUnverifiedEmail):
		return connect.NewError(connect.CodeUnauthenticated, err)
	case errors.Is(err, errNotMember), errors.Is(err, errNotCreator):
		return connect.NewError(connect.CodePermissionDenied, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	}
	for _, target := range invalidArgument {
		if errors.Is(err, target) {
			return connect.NewError(connect.CodeInvalidArgument, err)
		}
	}
	return connect.NewError(connect.CodeInternal, err)
}

// requireUser returns the authenticated caller's id.
func requireUser(ctx context.Context) (string, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	return userID, nil
}

// FundReader loads funds for membership checks.
type FundReader interface {
	GetFund(ctx context.Context, id string) (*models.Fund, error)
}

// memberFund loads fundID and checks that userID belongs to it.
func memberFund(ctx context.Context, funds FundReader, fundID, userID string) (*models.Fund, error) {
	if fundID == "" {
		return nil, errMissingID
	}
	fund, err := funds.GetFund(ctx, fundID)
	if err != nil {
		return nil, err
	}
	if !fund.HasMember(userID) {
		return nil, errNotMember
	}
	return fund, nil
}
