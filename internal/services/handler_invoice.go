package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/veloro/possync/internal/models"
	"github.com/veloro/possync/internal/repositories"
)

type invoiceCreatePayload struct {
	BranchID       uuid.UUID               `json:"branch_id"`
	DeviceID       uuid.UUID               `json:"device_id"`
	UserID         uuid.UUID               `json:"user_id"`
	LocalInvoiceNo string                  `json:"local_invoice_no"`
	InvoiceNumber  string                  `json:"invoice_number"`
	CreatedAt      *time.Time              `json:"created_at"`
	Customer       *invoiceCustomerPayload `json:"customer"`
	Lines          []invoiceLinePayload    `json:"lines"`
	Totals         *invoiceTotalsPayload   `json:"totals"`
	Payments       []invoicePaymentPayload `json:"payments"`
}

type invoiceCustomerPayload struct {
	CustomerID uuid.UUID `json:"customer_id"`
	Name       string    `json:"name"`
	Phone      *string   `json:"phone"`
	Email      *string   `json:"email"`
}

type invoiceLinePayload struct {
	ProductID uuid.UUID        `json:"product_id"`
	Qty       *decimal.Decimal `json:"qty"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
	Discount  *decimal.Decimal `json:"discount"`
	TaxRate   *decimal.Decimal `json:"tax_rate"`
}

type invoiceTotalsPayload struct {
	Subtotal      *decimal.Decimal `json:"subtotal"`
	DiscountTotal *decimal.Decimal `json:"discount_total"`
	TaxTotal      *decimal.Decimal `json:"tax_total"`
	Total         *decimal.Decimal `json:"total"`
}

type invoicePaymentPayload struct {
	Method models.PaymentMethod `json:"method"`
	Amount *decimal.Decimal     `json:"amount"`
	PaidAt *time.Time           `json:"paid_at"`
}

func (p *EventProcessor) handleInvoiceCreate(ctx context.Context, tx repositories.Store, event *models.SyncEvent) error {
	var payload invoiceCreatePayload
	if err := decodePayload(event.Payload, &payload); err != nil {
		return err
	}

	var missing []string
	if payload.BranchID == uuid.Nil {
		missing = append(missing, "branch_id")
	}
	if payload.DeviceID == uuid.Nil {
		missing = append(missing, "device_id")
	}
	if payload.UserID == uuid.Nil {
		missing = append(missing, "user_id")
	}
	if payload.LocalInvoiceNo == "" {
		missing = append(missing, "local_invoice_no")
	}
	if len(payload.Lines) == 0 {
		missing = append(missing, "lines")
	}
	if payload.Totals == nil {
		missing = append(missing, "totals")
	}
	if payload.CreatedAt == nil {
		missing = append(missing, "created_at")
	}
	if err := requireFields(missing); err != nil {
		return err
	}
	if err := checkBranchScope(payload.BranchID, event); err != nil {
		return err
	}

	if payload.DeviceID != event.DeviceID {
		return rejectForbidden(map[string]any{"device_id": "Payload device_id mismatch."})
	}
	if payload.UserID != event.UserID {
		return rejectForbidden(map[string]any{"user_id": "Payload user_id mismatch."})
	}

	shift, err := tx.Shifts().GetOpenShift(ctx, event.BranchID, event.DeviceID, event.UserID)
	if errors.Is(err, repositories.ErrNotFound) {
		return rejectForbidden(map[string]any{"shift": "Open shift required before creating invoices."})
	}
	if err != nil {
		return fmt.Errorf("failed to get open shift: %w", err)
	}

	totals := payload.Totals
	if totals.Subtotal == nil || totals.DiscountTotal == nil || totals.TaxTotal == nil || totals.Total == nil {
		return rejectValidation(map[string]any{"totals": "Missing totals fields."})
	}

	var customerID *uuid.UUID
	if payload.Customer != nil {
		if payload.Customer.CustomerID == uuid.Nil {
			return rejectValidation(map[string]any{"customer.customer_id": "Required when customer is provided."})
		}
		name := payload.Customer.Name
		if name == "" {
			name = "Unnamed Customer"
		}
		customer := &models.Customer{
			ID:       payload.Customer.CustomerID,
			BranchID: event.BranchID,
			Name:     name,
			Phone:    payload.Customer.Phone,
			Email:    payload.Customer.Email,
		}
		if err := tx.Customers().Upsert(ctx, customer); err != nil {
			return fmt.Errorf("failed to upsert customer: %w", err)
		}
		customerID = &customer.ID
	}

	invoiceNumber := payload.InvoiceNumber
	if invoiceNumber == "" {
		branch, err := tx.Branches().GetByID(ctx, event.BranchID)
		if err != nil {
			return fmt.Errorf("failed to get branch: %w", err)
		}
		invoiceNumber = branch.Code + "-" + payload.LocalInvoiceNo
	}

	totalPaid := decimal.Zero
	for _, paymentPayload := range payload.Payments {
		if paymentPayload.Method == "" {
			return rejectValidation(map[string]any{"payments.method": "Required."})
		}
		if paymentPayload.Amount == nil {
			return rejectValidation(map[string]any{"payments.amount": "Required."})
		}
		if paymentPayload.PaidAt == nil {
			return rejectValidation(map[string]any{"payments.paid_at": "Required."})
		}
		if !models.ValidPaymentMethod(paymentPayload.Method) {
			return rejectValidation(map[string]any{"payments.method": "Invalid method."})
		}
		totalPaid = totalPaid.Add(*paymentPayload.Amount)
	}

	status := models.InvoiceOpen
	var paidAt *time.Time
	if totalPaid.GreaterThanOrEqual(*totals.Total) && totalPaid.IsPositive() {
		status = models.InvoicePaid
		now := time.Now()
		paidAt = &now
	} else if totalPaid.IsPositive() {
		status = models.InvoicePartiallyPaid
	}

	invoice := &models.Invoice{
		BranchID:       event.BranchID,
		DeviceID:       event.DeviceID,
		UserID:         event.UserID,
		CustomerID:     customerID,
		InvoiceNumber:  invoiceNumber,
		LocalInvoiceNo: payload.LocalInvoiceNo,
		Status:         status,
		Subtotal:       *totals.Subtotal,
		DiscountTotal:  *totals.DiscountTotal,
		TaxTotal:       *totals.TaxTotal,
		Total:          *totals.Total,
		EventID:        event.EventID,
		PaidAt:         paidAt,
		CreatedAt:      *payload.CreatedAt,
	}
	if err := tx.Invoices().Create(ctx, invoice); err != nil {
		return fmt.Errorf("failed to create invoice: %w", err)
	}

	for _, linePayload := range payload.Lines {
		if linePayload.ProductID == uuid.Nil || linePayload.Qty == nil || linePayload.UnitPrice == nil ||
			linePayload.Discount == nil || linePayload.TaxRate == nil {
			return rejectValidation(map[string]any{"lines": "Each line requires product_id, qty, unit_price, discount and tax_rate."})
		}
		product, err := tx.Products().GetInBranch(ctx, linePayload.ProductID, event.BranchID)
		if errors.Is(err, repositories.ErrNotFound) {
			return rejectValidation(map[string]any{"product_id": fmt.Sprintf("Unknown product %s", linePayload.ProductID)})
		}
		if err != nil {
			return fmt.Errorf("failed to get product: %w", err)
		}
		if !product.IsActive {
			return rejectValidation(map[string]any{"product_id": fmt.Sprintf("Product %s is inactive", product.ID)})
		}

		lineTotal := linePayload.Qty.Mul(*linePayload.UnitPrice).Sub(*linePayload.Discount)
		line := &models.InvoiceLine{
			InvoiceID: invoice.ID,
			ProductID: product.ID,
			Quantity:  *linePayload.Qty,
			UnitPrice: *linePayload.UnitPrice,
			Discount:  *linePayload.Discount,
			TaxRate:   *linePayload.TaxRate,
			LineTotal: lineTotal,
		}
		if err := tx.Invoices().CreateLine(ctx, line); err != nil {
			return fmt.Errorf("failed to create invoice line: %w", err)
		}
	}

	for _, paymentPayload := range payload.Payments {
		payment := &models.Payment{
			InvoiceID: invoice.ID,
			Method:    paymentPayload.Method,
			Amount:    *paymentPayload.Amount,
			PaidAt:    *paymentPayload.PaidAt,
			EventID:   event.EventID,
			DeviceID:  event.DeviceID,
		}
		if err := tx.Invoices().CreatePayment(ctx, payment); err != nil {
			return fmt.Errorf("failed to create payment: %w", err)
		}
	}

	shiftSummary, err := buildShiftSummary(ctx, tx, shift)
	if err != nil {
		return err
	}

	return emitOutbox(ctx, tx, event.BranchID, "invoice", invoice.ID, models.OutboxUpsert, map[string]any{
		"id":               invoice.ID,
		"device_id":        invoice.DeviceID,
		"user_id":          invoice.UserID,
		"customer_id":      invoice.CustomerID,
		"invoice_number":   invoice.InvoiceNumber,
		"local_invoice_no": invoice.LocalInvoiceNo,
		"status":           invoice.Status,
		"subtotal":         invoice.Subtotal,
		"discount_total":   invoice.DiscountTotal,
		"tax_total":        invoice.TaxTotal,
		"total":            invoice.Total,
		"event_id":         invoice.EventID,
		"shift_summary":    shiftSummary,
	})
}

// buildShiftSummary reconciles the shift's expected cash drawer amount from
// the opening float plus cash takings over the shift window.
func buildShiftSummary(ctx context.Context, tx repositories.Store, shift *models.CashShift) (map[string]any, error) {
	closeTime := time.Now()
	if shift.ClosedAt != nil {
		closeTime = *shift.ClosedAt
	}
	cashTotal, err := tx.Invoices().CashPaymentTotal(ctx, shift.BranchID, shift.DeviceID, shift.CashierID, shift.OpenedAt, closeTime)
	if err != nil {
		return nil, fmt.Errorf("failed to total cash payments: %w", err)
	}
	expected := shift.OpeningAmount.Add(cashTotal)
	if shift.ExpectedAmount != nil {
		expected = *shift.ExpectedAmount
	}
	return map[string]any{
		"id":              shift.ID,
		"cashier_id":      shift.CashierID,
		"device_id":       shift.DeviceID,
		"opened_at":       shift.OpenedAt,
		"closed_at":       shift.ClosedAt,
		"opening_amount":  shift.OpeningAmount,
		"expected_amount": expected,
		"variance":        shift.Variance,
	}, nil
}
