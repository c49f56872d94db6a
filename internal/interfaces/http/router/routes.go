package router

import (
	"github.com/clinic/backend/internal/interfaces/http/handler"
	"github.com/clinic/backend/internal/interfaces/http/middleware"
)

// Handlers bundles the resource handlers mounted under /api/v1
type Handlers struct {
	Invoices *handler.InvoiceHandler
	Payments *handler.PaymentHandler
	Queue    *handler.QueueHandler
}

// ClinicRoutes returns the billing and queue route groups
func ClinicRoutes(h Handlers) []RouteRegistrar {
	invoices := NewDomainGroup("invoices", "/invoices").
		POST("", h.Invoices.Create).
		GET("/:id", h.Invoices.Get).
		PUT("/:id", h.Invoices.Update).
		DELETE("/:id", h.Invoices.Delete).
		POST("/:id/items", h.Invoices.AddItem).
		DELETE("/:id/items/:itemId", h.Invoices.RemoveItem).
		POST("/:id/refund", h.Invoices.Refund).
		POST("/:id/payments", middleware.IdempotencyKey(), h.Payments.AddPayment).
		GET("/:id/payments", h.Payments.List).
		POST("/:id/queue-admissions/retry", h.Payments.RetryAdmissions)

	patients := NewDomainGroup("patients", "/patients").
		GET("/:id/invoices", h.Invoices.ListByPatient)

	visits := NewDomainGroup("visits", "/visits").
		GET("/:id/invoices", h.Invoices.ListByVisit)

	departments := NewDomainGroup("departments", "/departments").
		GET("/:id/queue", h.Queue.DepartmentQueue)

	orders := NewDomainGroup("service-orders", "/service-orders").
		GET("/:id", h.Queue.GetServiceOrder).
		POST("/:id/start", h.Queue.Start).
		POST("/:id/complete", h.Queue.Complete).
		POST("/:id/skip", h.Queue.Skip).
		POST("/:id/return", h.Queue.Return).
		POST("/:id/result-upload-url", h.Queue.ResultUploadURL).
		GET("/:id/result-download-url", h.Queue.ResultDownloadURL)

	return []RouteRegistrar{invoices, patients, visits, departments, orders}
}
