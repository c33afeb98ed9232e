package controllers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/link2pay/link2pay.go/db/models"
	"github.com/link2pay/link2pay.go/lib/middlewares"
	"github.com/link2pay/link2pay.go/lib/responses"
	"github.com/link2pay/link2pay.go/lib/service"
	"github.com/shopspring/decimal"
)

// InvoiceController : payee invoice management
type InvoiceController struct {
	svc *service.Link2payService
}

func NewInvoiceController(svc *service.Link2payService) *InvoiceController {
	return &InvoiceController{svc: svc}
}

type LineItemRequestBody struct {
	Description string          `json:"description" validate:"required,max=500"`
	Quantity    decimal.Decimal `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
}

type InvoiceRequestBody struct {
	Title         string                `json:"title" validate:"required,max=200"`
	Description   string                `json:"description" validate:"max=2000"`
	ClientName    string                `json:"clientName" validate:"required,max=200"`
	ClientEmail   string                `json:"clientEmail" validate:"required,email"`
	ClientCompany string                `json:"clientCompany" validate:"max=200"`
	ClientAddress string                `json:"clientAddress" validate:"max=500"`
	Notes         string                `json:"notes" validate:"max=2000"`
	Currency      string                `json:"currency" validate:"required"`
	TaxRate       decimal.NullDecimal   `json:"taxRate"`
	Discount      decimal.Decimal       `json:"discount"`
	DueDate       *time.Time            `json:"dueDate"`
	LineItems     []LineItemRequestBody `json:"lineItems" validate:"required,min=1,max=50,dive"`
}

func (body *InvoiceRequestBody) toInput() service.InvoiceInput {
	input := service.InvoiceInput{
		Title:         body.Title,
		Description:   body.Description,
		ClientName:    body.ClientName,
		ClientEmail:   body.ClientEmail,
		ClientCompany: body.ClientCompany,
		ClientAddress: body.ClientAddress,
		Notes:         body.Notes,
		Currency:      body.Currency,
		TaxRate:       body.TaxRate,
		Discount:      body.Discount,
		DueDate:       body.DueDate,
	}
	for _, item := range body.LineItems {
		input.LineItems = append(input.LineItems, service.LineItemInput{
			Description: item.Description,
			Quantity:    item.Quantity,
			Rate:        item.Rate,
		})
	}
	return input
}

type GetInvoicesResponseBody struct {
	Invoices []models.Invoice `json:"invoices"`
}

func (controller *InvoiceController) bindInvoice(c echo.Context) (*InvoiceRequestBody, error) {
	var body InvoiceRequestBody
	if err := c.Bind(&body); err != nil {
		c.Logger().Errorf("Failed to load invoice request body: %v", err)
		return nil, c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		c.Logger().Errorf("Invalid invoice request body: %v", err)
		resp := responses.BadArgumentsError
		resp.Message = err.Error()
		return nil, c.JSON(http.StatusBadRequest, resp)
	}
	return &body, nil
}

// CreateInvoice godoc
// @Summary      Create an invoice
// @Description  Creates a DRAFT invoice owned by the calling wallet
// @Accept       json
// @Produce      json
// @Tags         Invoice
// @Param        invoice  body      InvoiceRequestBody  True  "Invoice"
// @Success      201      {object}  models.Invoice
// @Failure      400      {object}  responses.ErrorResponse
// @Failure      401      {object}  responses.ErrorResponse
// @Failure      500      {object}  responses.ErrorResponse
// @Router       /api/invoices [post]
// @Security     WalletAddress
func (controller *InvoiceController) CreateInvoice(c echo.Context) error {
	payee := middlewares.WalletAddress(c)
	body, err := controller.bindInvoice(c)
	if body == nil {
		return err
	}
	invoice, err := controller.svc.CreateInvoice(c.Request().Context(), payee, body.toInput())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, invoice)
}

// ListInvoices godoc
// @Summary      List invoices
// @Description  Returns the calling wallet's invoices, newest first
// @Produce      json
// @Tags         Invoice
// @Param        status  query     string  false  "Status filter"
// @Success      200     {object}  GetInvoicesResponseBody
// @Failure      401     {object}  responses.ErrorResponse
// @Router       /api/invoices [get]
// @Security     WalletAddress
func (controller *InvoiceController) ListInvoices(c echo.Context) error {
	invoices, err := controller.svc.ListInvoices(c.Request().Context(), middlewares.WalletAddress(c), c.QueryParam("status"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &GetInvoicesResponseBody{Invoices: invoices})
}

// InvoiceStats godoc
// @Summary      Invoice statistics
// @Description  Counts by status, paid revenue and pending amount per currency
// @Produce      json
// @Tags         Invoice
// @Success      200  {object}  service.InvoiceStats
// @Router       /api/invoices/stats [get]
// @Security     WalletAddress
func (controller *InvoiceController) InvoiceStats(c echo.Context) error {
	stats, err := controller.svc.InvoiceStats(c.Request().Context(), middlewares.WalletAddress(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

// GetInvoice godoc
// @Summary      Retrieve an invoice
// @Produce      json
// @Tags         Invoice
// @Param        id   path      string  true  "Invoice id"
// @Success      200  {object}  models.Invoice
// @Failure      403  {object}  responses.ErrorResponse
// @Failure      404  {object}  responses.ErrorResponse
// @Router       /api/invoices/{id} [get]
// @Security     WalletAddress
func (controller *InvoiceController) GetInvoice(c echo.Context) error {
	invoice, err := controller.svc.GetInvoiceForPayee(c.Request().Context(), middlewares.WalletAddress(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, invoice)
}

// UpdateInvoice godoc
// @Summary      Update a draft invoice
// @Accept       json
// @Produce      json
// @Tags         Invoice
// @Param        id       path      string              true  "Invoice id"
// @Param        invoice  body      InvoiceRequestBody  True  "Invoice"
// @Success      200      {object}  models.Invoice
// @Failure      409      {object}  responses.ErrorResponse
// @Router       /api/invoices/{id} [put]
// @Security     WalletAddress
func (controller *InvoiceController) UpdateInvoice(c echo.Context) error {
	body, err := controller.bindInvoice(c)
	if body == nil {
		return err
	}
	invoice, err := controller.svc.UpdateInvoice(c.Request().Context(), middlewares.WalletAddress(c), c.Param("id"), body.toInput())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, invoice)
}

// DeleteInvoice godoc
// @Summary      Delete a draft invoice
// @Tags         Invoice
// @Param        id   path  string  true  "Invoice id"
// @Success      204
// @Failure      409  {object}  responses.ErrorResponse
// @Router       /api/invoices/{id} [delete]
// @Security     WalletAddress
func (controller *InvoiceController) DeleteInvoice(c echo.Context) error {
	if err := controller.svc.DeleteInvoice(c.Request().Context(), middlewares.WalletAddress(c), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// SendInvoice godoc
// @Summary      Send a draft invoice
// @Description  Moves the invoice from DRAFT to PENDING
// @Produce      json
// @Tags         Invoice
// @Param        id   path      string  true  "Invoice id"
// @Success      200  {object}  models.Invoice
// @Failure      409  {object}  responses.ErrorResponse
// @Router       /api/invoices/{id}/send [post]
// @Security     WalletAddress
func (controller *InvoiceController) SendInvoice(c echo.Context) error {
	invoice, err := controller.svc.SendInvoice(c.Request().Context(), middlewares.WalletAddress(c), c.Param("id"))
	if err != nil {
		return err
	}
	c.Logger().Infof("Invoice sent: invoice_id:%s payee:%s", invoice.ID, invoice.PayeeAddress)
	return c.JSON(http.StatusOK, invoice)
}

// CancelInvoice godoc
// @Summary      Cancel an invoice
// @Produce      json
// @Tags         Invoice
// @Param        id   path      string  true  "Invoice id"
// @Success      200  {object}  models.Invoice
// @Failure      409  {object}  responses.ErrorResponse
// @Router       /api/invoices/{id}/cancel [post]
// @Security     WalletAddress
func (controller *InvoiceController) CancelInvoice(c echo.Context) error {
	invoice, err := controller.svc.CancelInvoice(c.Request().Context(), middlewares.WalletAddress(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, invoice)
}

// PublicInvoice godoc
// @Summary      Public invoice view
// @Description  The payer-facing view of an invoice, no authentication
// @Produce      json
// @Tags         Invoice
// @Param        id   path      string  true  "Invoice id"
// @Success      200  {object}  models.Invoice
// @Failure      404  {object}  responses.ErrorResponse
// @Router       /api/public/invoices/{id} [get]
func (controller *InvoiceController) PublicInvoice(c echo.Context) error {
	invoice, err := controller.svc.GetInvoice(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, invoice)
}
