package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/veloro/possync/internal/models"
)

type PostgresInvoiceRepository struct {
	db pgdb
}

func (r *PostgresInvoiceRepository) Create(ctx context.Context, invoice *models.Invoice) error {
	if invoice.ID == uuid.Nil {
		invoice.ID = uuid.New()
	}
	// created_at comes from the client's offline clock, not the server.
	query := `INSERT INTO invoices
	          (id, branch_id, device_id, user_id, customer_id, invoice_number, local_invoice_no,
	           status, subtotal, discount_total, tax_total, total, event_id, paid_at, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	          RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		invoice.ID,
		invoice.BranchID,
		invoice.DeviceID,
		invoice.UserID,
		invoice.CustomerID,
		invoice.InvoiceNumber,
		invoice.LocalInvoiceNo,
		invoice.Status,
		invoice.Subtotal,
		invoice.DiscountTotal,
		invoice.TaxTotal,
		invoice.Total,
		invoice.EventID,
		invoice.PaidAt,
		invoice.CreatedAt,
	).Scan(&invoice.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create invoice: %w", err)
	}
	return nil
}

func (r *PostgresInvoiceRepository) CreateLine(ctx context.Context, line *models.InvoiceLine) error {
	if line.ID == uuid.Nil {
		line.ID = uuid.New()
	}
	query := `INSERT INTO invoice_lines
	          (id, invoice_id, product_id, quantity, unit_price, discount, tax_rate, line_total)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(ctx, query,
		line.ID,
		line.InvoiceID,
		line.ProductID,
		line.Quantity,
		line.UnitPrice,
		line.Discount,
		line.TaxRate,
		line.LineTotal,
	)
	if err != nil {
		return fmt.Errorf("failed to create invoice line: %w", err)
	}
	return nil
}

func (r *PostgresInvoiceRepository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	query := `INSERT INTO payments (id, invoice_id, method, amount, paid_at, event_id, device_id)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(ctx, query,
		payment.ID,
		payment.InvoiceID,
		payment.Method,
		payment.Amount,
		payment.PaidAt,
		payment.EventID,
		payment.DeviceID,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (r *PostgresInvoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	query := `SELECT id, branch_id, device_id, user_id, customer_id, invoice_number, local_invoice_no,
	                 status, subtotal, discount_total, tax_total, total, event_id, paid_at,
	                 created_at, updated_at
	          FROM invoices WHERE id = $1`

	var invoice models.Invoice
	err := r.db.QueryRow(ctx, query, id).Scan(
		&invoice.ID,
		&invoice.BranchID,
		&invoice.DeviceID,
		&invoice.UserID,
		&invoice.CustomerID,
		&invoice.InvoiceNumber,
		&invoice.LocalInvoiceNo,
		&invoice.Status,
		&invoice.Subtotal,
		&invoice.DiscountTotal,
		&invoice.TaxTotal,
		&invoice.Total,
		&invoice.EventID,
		&invoice.PaidAt,
		&invoice.CreatedAt,
		&invoice.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return &invoice, nil
}

func (r *PostgresInvoiceRepository) CashPaymentTotal(ctx context.Context, branchID, deviceID, userID uuid.UUID, from, to time.Time) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(p.amount), 0)
	          FROM payments p
	          JOIN invoices i ON i.id = p.invoice_id
	          WHERE i.branch_id = $1 AND i.device_id = $2 AND i.user_id = $3
	            AND p.method = $4
	            AND p.paid_at >= $5 AND p.paid_at <= $6`

	var total decimal.Decimal
	err := r.db.QueryRow(ctx, query, branchID, deviceID, userID, models.PaymentCash, from, to).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum cash payments: %w", err)
	}
	return total, nil
}
