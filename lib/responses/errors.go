package responses

import (
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
	"github.com/link2pay/link2pay.go/common"
	"github.com/link2pay/link2pay.go/ledger"
)

type ErrorResponse struct {
	Error          bool        `json:"error"`
	Code           int         `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	HttpStatusCode int         `json:"-"`
}

var GeneralServerError = ErrorResponse{
	Error:          true,
	Code:           6,
	Message:        "Something went wrong. Please try again later",
	HttpStatusCode: 500,
}

var BadArgumentsError = ErrorResponse{
	Error:          true,
	Code:           8,
	Message:        "Bad arguments",
	HttpStatusCode: 400,
}

var BadAuthError = ErrorResponse{
	Error:          true,
	Code:           1,
	Message:        "bad auth",
	HttpStatusCode: 401,
}

var NotFoundError = ErrorResponse{
	Error:          true,
	Code:           4,
	Message:        "not found",
	HttpStatusCode: 404,
}

var ForbiddenError = ErrorResponse{
	Error:          true,
	Code:           3,
	Message:        "forbidden",
	HttpStatusCode: 403,
}

var InvalidStateError = ErrorResponse{
	Error:          true,
	Code:           5,
	Message:        "invoice is not in a valid state for this operation",
	HttpStatusCode: 409,
}

var LedgerError = ErrorResponse{
	Error:          true,
	Code:           7,
	Message:        "ledger request failed",
	HttpStatusCode: 502,
}

var validationErrors = []error{
	common.ErrSelfPayment,
	common.ErrInvalidAddress,
	common.ErrUnknownAsset,
	common.ErrPayeeAccountNotFound,
	common.ErrPayerAccountNotFound,
	common.ErrInvalidTransactionHash,
	common.ErrTransactionFailed,
	common.ErrMemoMismatch,
	common.ErrNoQualifyingTransfer,
	common.ErrInvalidInvoice,
}

var notFoundErrors = []error{
	common.ErrInvoiceNotFound,
	common.ErrTransactionNotFound,
	common.ErrPaymentNotFound,
}

var conflictErrors = []error{
	common.ErrInvalidState,
	common.ErrDuplicatePayment,
	common.ErrInvoiceNumberCollision,
}

// FromError maps a service error onto the response sent to the client. The
// second return value is false for errors with no client-facing meaning.
func FromError(err error) (ErrorResponse, bool) {
	var submissionErr *ledger.SubmissionError
	switch {
	case errors.As(err, &submissionErr):
		resp := LedgerError
		resp.Message = submissionErr.Error()
		resp.Details = echo.Map{
			"transaction": submissionErr.TransactionCode,
			"operations":  submissionErr.OperationCodes,
		}
		return resp, true
	case errors.Is(err, ledger.ErrUnavailable):
		return LedgerError, true
	case errors.Is(err, common.ErrForbidden):
		return withMessage(ForbiddenError, err), true
	case matchesAny(err, notFoundErrors):
		return withMessage(NotFoundError, err), true
	case matchesAny(err, conflictErrors):
		return withMessage(InvalidStateError, err), true
	case matchesAny(err, validationErrors):
		return withMessage(BadArgumentsError, err), true
	}
	return ErrorResponse{}, false
}

func withMessage(resp ErrorResponse, err error) ErrorResponse {
	resp.Message = err.Error()
	return resp
}

func matchesAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	c.Logger().Error(err)
	if isErrAllowedForSentry(err) {
		if hub := sentryecho.GetHubFromContext(c); hub != nil {
			hub.WithScope(func(scope *sentry.Scope) {
				scope.SetExtra("WalletAddress", c.Get("WalletAddress"))
				hub.CaptureException(err)
			})
		}
	}
	if resp, ok := FromError(err); ok {
		c.JSON(resp.HttpStatusCode, resp)
		return
	}
	if he, ok := err.(*echo.HTTPError); ok {
		c.JSON(he.Code, ErrorResponse{Error: true, Code: he.Code, Message: http.StatusText(he.Code), Details: he.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, GeneralServerError)
}

// isErrAllowedForSentry reports whether err is worth an exception report:
// client mistakes and expected business outcomes are not.
func isErrAllowedForSentry(err error) bool {
	if resp, ok := FromError(err); ok {
		return resp.HttpStatusCode >= http.StatusInternalServerError
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code >= http.StatusInternalServerError
	}
	return true
}
