package responses

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/link2pay/link2pay.go/common"
	"github.com/link2pay/link2pay.go/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientErrorsNotAllowedForSentry(t *testing.T) {
	assert.False(t, isErrAllowedForSentry(fmt.Errorf("pay intent: %w", common.ErrSelfPayment)))
	assert.False(t, isErrAllowedForSentry(common.ErrInvoiceNotFound))
	assert.False(t, isErrAllowedForSentry(echo.NewHTTPError(http.StatusBadRequest, "bad")))
}

func TestServerErrorsAllowedForSentry(t *testing.T) {
	assert.True(t, isErrAllowedForSentry(errors.New("random error")))
	assert.True(t, isErrAllowedForSentry(fmt.Errorf("%w: timeout", ledger.ErrUnavailable)))
}

func TestFromError(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("%w: payer G...", common.ErrInvalidAddress), http.StatusBadRequest},
		{common.ErrSelfPayment, http.StatusBadRequest},
		{common.ErrNoQualifyingTransfer, http.StatusBadRequest},
		{common.ErrInvoiceNotFound, http.StatusNotFound},
		{common.ErrTransactionNotFound, http.StatusNotFound},
		{common.ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("%w: invoice is PAID", common.ErrInvalidState), http.StatusConflict},
		{common.ErrDuplicatePayment, http.StatusConflict},
		{&ledger.SubmissionError{TransactionCode: "tx_bad_seq"}, http.StatusBadGateway},
		{fmt.Errorf("%w: list", ledger.ErrUnavailable), http.StatusBadGateway},
	}
	for _, tt := range tests {
		resp, ok := FromError(tt.err)
		require.True(t, ok, tt.err.Error())
		assert.Equal(t, tt.status, resp.HttpStatusCode, tt.err.Error())
	}
	_, ok := FromError(errors.New("boom"))
	assert.False(t, ok)
}

func TestHTTPErrorHandlerSubmissionCodes(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)

	HTTPErrorHandler(&ledger.SubmissionError{TransactionCode: "tx_failed", OperationCodes: []string{"op_underfunded"}}, c)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	details := body["details"].(map[string]interface{})
	assert.Equal(t, "tx_failed", details["transaction"])
	assert.Equal(t, []interface{}{"op_underfunded"}, details["operations"])
}

func TestHTTPErrorHandlerUnknownError(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	HTTPErrorHandler(errors.New("db down"), c)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), GeneralServerError.Message)
}
