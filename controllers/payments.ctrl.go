package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/link2pay/link2pay.go/lib/responses"
	"github.com/link2pay/link2pay.go/lib/service"
)

// PaymentController : payer-facing payment endpoints
type PaymentController struct {
	svc *service.Link2payService
}

func NewPaymentController(svc *service.Link2payService) *PaymentController {
	return &PaymentController{svc: svc}
}

type PayIntentRequestBody struct {
	InvoiceID    string `json:"invoiceId" validate:"required"`
	PayerAddress string `json:"payerAddress" validate:"required"`
}

type SubmitPaymentRequestBody struct {
	InvoiceID             string `json:"invoiceId" validate:"required"`
	SignedTransactionBlob string `json:"signedTransactionBlob" validate:"required,base64"`
}

type ConfirmPaymentRequestBody struct {
	InvoiceID       string `json:"invoiceId" validate:"required"`
	TransactionHash string `json:"transactionHash" validate:"required,hexadecimal,len=64"`
}

type ConfirmPaymentResponseBody struct {
	Success         bool   `json:"success"`
	Status          string `json:"status"`
	TransactionHash string `json:"transactionHash"`
}

// PayIntent godoc
// @Summary      Build a pay intent
// @Description  Returns an unsigned transaction and a SEP-7 link settling the invoice
// @Accept       json
// @Produce      json
// @Tags         Payment
// @Param        intent  body      PayIntentRequestBody  True  "Pay intent"
// @Success      200     {object}  service.PayIntent
// @Failure      400     {object}  responses.ErrorResponse
// @Failure      404     {object}  responses.ErrorResponse
// @Failure      409     {object}  responses.ErrorResponse
// @Failure      502     {object}  responses.ErrorResponse
// @Router       /api/payments/pay-intent [post]
func (controller *PaymentController) PayIntent(c echo.Context) error {
	var body PayIntentRequestBody
	if err := c.Bind(&body); err != nil {
		c.Logger().Errorf("Failed to load pay-intent request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		c.Logger().Errorf("Invalid pay-intent request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	intent, err := controller.svc.CreatePayIntent(c.Request().Context(), body.InvoiceID, body.PayerAddress)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, intent)
}

// SubmitPayment godoc
// @Summary      Submit a signed payment
// @Description  Relays a payer-signed transaction to the ledger and settles the invoice
// @Accept       json
// @Produce      json
// @Tags         Payment
// @Param        payment  body      SubmitPaymentRequestBody  True  "Signed transaction"
// @Success      200      {object}  service.SubmitOutcome
// @Failure      400      {object}  responses.ErrorResponse
// @Failure      409      {object}  responses.ErrorResponse
// @Failure      502      {object}  responses.ErrorResponse
// @Router       /api/payments/submit [post]
func (controller *PaymentController) SubmitPayment(c echo.Context) error {
	var body SubmitPaymentRequestBody
	if err := c.Bind(&body); err != nil {
		c.Logger().Errorf("Failed to load submit request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		c.Logger().Errorf("Invalid submit request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	outcome, err := controller.svc.SubmitPayment(c.Request().Context(), body.InvoiceID, body.SignedTransactionBlob)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, outcome)
}

// ConfirmPayment godoc
// @Summary      Confirm a payment by hash
// @Description  Settles the invoice with a transaction the payer submitted elsewhere
// @Accept       json
// @Produce      json
// @Tags         Payment
// @Param        payment  body      ConfirmPaymentRequestBody  True  "Transaction hash"
// @Success      200      {object}  ConfirmPaymentResponseBody
// @Failure      400      {object}  responses.ErrorResponse
// @Failure      404      {object}  responses.ErrorResponse
// @Failure      409      {object}  responses.ErrorResponse
// @Router       /api/payments/confirm [post]
func (controller *PaymentController) ConfirmPayment(c echo.Context) error {
	var body ConfirmPaymentRequestBody
	if err := c.Bind(&body); err != nil {
		c.Logger().Errorf("Failed to load confirm request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		c.Logger().Errorf("Invalid confirm request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	invoice, err := controller.svc.ConfirmPayment(c.Request().Context(), body.InvoiceID, body.TransactionHash)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &ConfirmPaymentResponseBody{
		Success:         true,
		Status:          invoice.Status,
		TransactionHash: invoice.TransactionHash,
	})
}

// PaymentStatus godoc
// @Summary      Payment status of an invoice
// @Produce      json
// @Tags         Payment
// @Param        invoiceId  path      string  true  "Invoice id"
// @Success      200        {object}  service.PaymentStatus
// @Failure      404        {object}  responses.ErrorResponse
// @Router       /api/payments/{invoiceId}/status [get]
func (controller *PaymentController) PaymentStatus(c echo.Context) error {
	status, err := controller.svc.PaymentStatus(c.Request().Context(), c.Param("invoiceId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, status)
}

// VerifyTransaction godoc
// @Summary      Verify a ledger transaction
// @Description  Returns the normalized transaction with its transfer legs
// @Produce      json
// @Tags         Payment
// @Param        txHash  path      string  true  "Transaction hash"
// @Success      200     {object}  ledger.VerifiedTransaction
// @Failure      400     {object}  responses.ErrorResponse
// @Failure      404     {object}  responses.ErrorResponse
// @Router       /api/payments/verify/{txHash} [get]
func (controller *PaymentController) VerifyTransaction(c echo.Context) error {
	tx, err := controller.svc.VerifyTransaction(c.Request().Context(), c.Param("txHash"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tx)
}
