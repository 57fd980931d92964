package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceOpen          InvoiceStatus = "open"
	InvoicePartiallyPaid InvoiceStatus = "partially_paid"
	InvoicePaid          InvoiceStatus = "paid"
	InvoiceVoid          InvoiceStatus = "void"
)

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentCard     PaymentMethod = "card"
	PaymentTransfer PaymentMethod = "transfer"
	PaymentWallet   PaymentMethod = "wallet"
	PaymentOther    PaymentMethod = "other"
)

// ValidPaymentMethod reports whether m is one of the allowed methods.
func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentTransfer, PaymentWallet, PaymentOther:
		return true
	}
	return false
}

// Invoice is a sale recorded by a device. CreatedAt carries the client's
// offline clock; server time only ever lands in PaidAt and UpdatedAt.
type Invoice struct {
	ID             uuid.UUID       `json:"id"`
	BranchID       uuid.UUID       `json:"branch_id"`
	DeviceID       uuid.UUID       `json:"device_id"`
	UserID         uuid.UUID       `json:"user_id"`
	CustomerID     *uuid.UUID      `json:"customer_id,omitempty"`
	InvoiceNumber  string          `json:"invoice_number"`
	LocalInvoiceNo string          `json:"local_invoice_no"`
	Status         InvoiceStatus   `json:"status"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountTotal  decimal.Decimal `json:"discount_total"`
	TaxTotal       decimal.Decimal `json:"tax_total"`
	Total          decimal.Decimal `json:"total"`
	EventID        uuid.UUID       `json:"event_id"`
	PaidAt         *time.Time      `json:"paid_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type InvoiceLine struct {
	ID        uuid.UUID       `json:"id"`
	InvoiceID uuid.UUID       `json:"invoice_id"`
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Discount  decimal.Decimal `json:"discount"`
	TaxRate   decimal.Decimal `json:"tax_rate"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type Payment struct {
	ID        uuid.UUID       `json:"id"`
	InvoiceID uuid.UUID       `json:"invoice_id"`
	Method    PaymentMethod   `json:"method"`
	Amount    decimal.Decimal `json:"amount"`
	PaidAt    time.Time       `json:"paid_at"`
	EventID   uuid.UUID       `json:"event_id"`
	DeviceID  uuid.UUID       `json:"device_id"`
}
