package transport

import (
	"github.com/labstack/echo/v4"
	"github.com/link2pay/link2pay.go/controllers"
	"github.com/link2pay/link2pay.go/lib/middlewares"
	"github.com/link2pay/link2pay.go/lib/service"
)

func RegisterEndpoints(svc *service.Link2payService, e *echo.Echo, watcher controllers.WatcherState, payIntentRateLimitMiddleware echo.MiddlewareFunc, logMw echo.MiddlewareFunc) {
	e.GET("/health", controllers.NewHealthController(watcher).Check)

	invoiceCtrl := controllers.NewInvoiceController(svc)
	paymentCtrl := controllers.NewPaymentController(svc)

	secured := e.Group("/api/invoices", middlewares.WalletAuthorized, logMw)
	secured.POST("", invoiceCtrl.CreateInvoice)
	secured.GET("", invoiceCtrl.ListInvoices)
	secured.GET("/stats", invoiceCtrl.InvoiceStats)
	secured.GET("/:id", invoiceCtrl.GetInvoice)
	secured.PUT("/:id", invoiceCtrl.UpdateInvoice)
	secured.DELETE("/:id", invoiceCtrl.DeleteInvoice)
	secured.POST("/:id/send", invoiceCtrl.SendInvoice)
	secured.POST("/:id/cancel", invoiceCtrl.CancelInvoice)

	e.GET("/api/public/invoices/:id", invoiceCtrl.PublicInvoice, logMw)

	payments := e.Group("/api/payments", logMw)
	payments.POST("/pay-intent", paymentCtrl.PayIntent, payIntentRateLimitMiddleware)
	payments.POST("/submit", paymentCtrl.SubmitPayment, payIntentRateLimitMiddleware)
	payments.POST("/confirm", paymentCtrl.ConfirmPayment)
	payments.GET("/:invoiceId/status", paymentCtrl.PaymentStatus)
	payments.GET("/verify/:txHash", paymentCtrl.VerifyTransaction)
}
