package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veloro/possync/internal/models"
	"github.com/veloro/possync/internal/repositories"
)

// fixture seeds an in-memory store with one branch, cashier, device,
// two warehouses and a product.
type fixture struct {
	store     *repositories.MemoryStore
	branch    *models.Branch
	user      *models.User
	device    *models.Device
	warehouse *models.Warehouse
	backroom  *models.Warehouse
	product   *models.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := repositories.NewMemoryStore()

	branch := &models.Branch{Code: "BR1", Name: "Main Street", Timezone: "UTC", IsActive: true}
	require.NoError(t, store.Branches().Create(ctx, branch))

	user := &models.User{
		BranchID:     &branch.ID,
		Username:     "cashier1",
		PasswordHash: "x",
		Role:         models.RoleCashier,
		IsActive:     true,
	}
	require.NoError(t, store.Users().Create(ctx, user))

	device := &models.Device{
		BranchID:   branch.ID,
		Name:       "Till 1",
		Identifier: "till-1",
		IsActive:   true,
	}
	require.NoError(t, store.Devices().Create(ctx, device))

	warehouse := &models.Warehouse{BranchID: branch.ID, Name: "Shop Floor", IsPrimary: true, IsActive: true}
	require.NoError(t, store.Warehouses().Create(ctx, warehouse))

	backroom := &models.Warehouse{BranchID: branch.ID, Name: "Backroom", IsActive: true}
	require.NoError(t, store.Warehouses().Create(ctx, backroom))

	product := &models.Product{
		BranchID:    branch.ID,
		SKU:         "SKU-001",
		Name:        "Espresso Beans 1kg",
		Price:       decimal.RequireFromString("18.50"),
		TaxRate:     decimal.RequireFromString("7.50"),
		StockStatus: "in_stock",
		IsActive:    true,
	}
	require.NoError(t, store.Products().Create(ctx, product))

	return &fixture{
		store:     store,
		branch:    branch,
		user:      user,
		device:    device,
		warehouse: warehouse,
		backroom:  backroom,
		product:   product,
	}
}

// event builds a ledgered sync event for the fixture's device with the given
// payload, as the push endpoint would have recorded it.
func (f *fixture) event(t *testing.T, eventType string, payload map[string]any) *models.SyncEvent {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return &models.SyncEvent{
		ID:        uuid.New(),
		BranchID:  f.branch.ID,
		DeviceID:  f.device.ID,
		UserID:    f.user.ID,
		EventID:   uuid.New(),
		EventType: eventType,
		Payload:   raw,
		Status:    models.SyncEventAccepted,
	}
}

// seedStock inserts a purchase move so the warehouse has on-hand quantity.
func (f *fixture) seedStock(t *testing.T, warehouse *models.Warehouse, qty string) {
	t.Helper()
	move := &models.StockMove{
		BranchID:    f.branch.ID,
		WarehouseID: warehouse.ID,
		ProductID:   f.product.ID,
		Quantity:    decimal.RequireFromString(qty),
		Reason:      models.ReasonPurchase,
		EventID:     uuid.New(),
	}
	require.NoError(t, f.store.StockMoves().Create(context.Background(), move))
}

func (f *fixture) outboxRows(t *testing.T) []*models.SyncOutbox {
	t.Helper()
	rows, _, err := f.store.Outbox().ListAfter(context.Background(), f.branch.ID, 0, 100)
	require.NoError(t, err)
	return rows
}

func (f *fixture) openShift(t *testing.T) *models.CashShift {
	t.Helper()
	shift := &models.CashShift{
		BranchID:      f.branch.ID,
		CashierID:     f.user.ID,
		DeviceID:      f.device.ID,
		OpenedAt:      time.Now().Add(-2 * time.Hour),
		OpeningAmount: decimal.RequireFromString("100.00"),
	}
	require.NoError(t, f.store.Shifts().Create(context.Background(), shift))
	return shift
}

// saleTimes returns an offline created_at and paid_at inside the open shift
// window, formatted for a client payload.
func saleTimes() (string, string) {
	createdAt := time.Now().Add(-time.Hour)
	paidAt := createdAt.Add(time.Minute)
	return createdAt.Format(time.RFC3339), paidAt.Format(time.RFC3339)
}

func TestEventProcessor_UnknownType(t *testing.T) {
	f := newFixture(t)
	processor := NewEventProcessor()

	result, err := processor.Process(context.Background(), f.store, f.event(t, "stock.teleport", map[string]any{
		"branch_id": f.branch.ID,
	}))

	require.NoError(t, err)
	assert.False(t, result.Accepted)
	assert.Equal(t, ReasonValidationFailed, result.Reason)
	assert.Contains(t, result.Details, "event_type")
	assert.Empty(t, f.outboxRows(t))
}

func TestEventProcessor_CustomerUpsert(t *testing.T) {
	f := newFixture(t)
	processor := NewEventProcessor()
	ctx := context.Background()
	customerID := uuid.New()

	// ACT: create, then update the same customer
	result, err := processor.Process(ctx, f.store, f.event(t, "customer.upsert", map[string]any{
		"branch_id":   f.branch.ID,
		"customer_id": customerID,
		"name":        "Ada Jiang",
		"phone":       "555-0100",
	}))
	require.NoError(t, err)
	require.True(t, result.Accepted)

	result, err = processor.Process(ctx, f.store, f.event(t, "customer.upsert", map[string]any{
		"branch_id":   f.branch.ID,
		"customer_id": customerID,
		"name":        "Ada J. Jiang",
	}))
	require.NoError(t, err)
	require.True(t, result.Accepted)

	customer, err := f.store.Customers().GetInBranch(ctx, customerID, f.branch.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada J. Jiang", customer.Name)

	rows := f.outboxRows(t)
	require.Len(t, rows, 2)
	assert.Equal(t, "customer", rows[0].Entity)
	assert.Equal(t, models.OutboxUpsert, rows[0].Op)
	assert.Equal(t, customerID, rows[0].EntityID)
}

func TestEventProcessor_CustomerUpsert_MissingName(t *testing.T) {
	f := newFixture(t)
	processor := NewEventProcessor()

	result, err := processor.Process(context.Background(), f.store, f.event(t, "customer.upsert", map[string]any{
		"branch_id":   f.branch.ID,
		"customer_id": uuid.New(),
	}))

	require.NoError(t, err)
	assert.False(t, result.Accepted)
	assert.Equal(t, ReasonValidationFailed, result.Reason)
	assert.Equal(t, []string{"name"}, result.Details["missing_fields"])
}

func TestEventProcessor_CustomerDelete(t *testing.T) {
	f := newFixture(t)
	processor := NewEventProcessor()
	ctx := context.Background()

	customer := &models.Customer{ID: uuid.New(), BranchID: f.branch.ID, Name: "Soon Gone"}
	require.NoError(t, f.store.Customers().Upsert(ctx, customer))

	result, err := processor.Process(ctx, f.store, f.event(t, "customer.delete", map[string]any{
		"branch_id":   f.branch.ID,
		"customer_id": customer.ID,
	}))

	require.NoError(t, err)
	require.True(t, result.Accepted)
	_, err = f.store.Customers().GetInBranch(ctx, customer.ID, f.branch.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	rows := f.outboxRows(t)
	require.Len(t, rows, 1)
	assert.Equal(t, models.OutboxDelete, rows[0].Op)
}

func TestEventProcessor_CustomerDelete_NotFound(t *testing.T) {
	f := newFixture(t)
	processor := NewEventProcessor()

	result, err := processor.Process(context.Background(), f.store, f.event(t, "customer.delete", map[string]any{
		"branch_id":   f.branch.ID,
		"customer_id": uuid.New(),
	}))

	require.NoError(t, err)
	assert.False(t, result.Accepted)
	assert.Equal(t, ReasonValidationFailed, result.Reason)
	assert.Contains(t, result.Details, "customer_id")
}

func TestEventProcessor_StockAdjust(t *testing.T) {
	f := newFixture(t)
	f.seedStock(t, f.warehouse, "10")
	processor := NewEventProcessor()
	ctx := context.Background()

	result, err := processor.Process(ctx, f.store, f.event(t, "stock.adjust", map[string]any{
		"branch_id":    f.branch.ID,
		"warehouse_id": f.warehouse.ID,
		"product_id":   f.product.ID,
		"quantity":     "-5",
		"reason":       "sale",
	}))

	require.NoError(t, err)
	require.True(t, result.Accepted)

	onHand, err := f.store.StockMoves().OnHand(ctx, f.branch.ID, f.warehouse.ID, f.product.ID)
	require.NoError(t, err)
	assert.True(t, onHand.Equal(decimal.RequireFromString("5")))

	rows := f.outboxRows(t)
	require.Len(t, rows, 1)
	assert.Equal(t, "stock_move", rows[0].Entity)
	assert.Equal(t, models.OutboxUpsert, rows[0].Op)
}

func TestEventProcessor_StockAdjust_Rejections(t *testing.T) {
	f := newFixture(t)
	processor := NewEventProcessor()
	ctx := context.Background()

	inactive := &models.Product{
		BranchID: f.branch.ID,
		SKU:      "SKU-DEAD",
		Name:     "Delisted",
		IsActive: false,
	}
	require.NoError(t, f.store.Products().Create(ctx, inactive))

	tests := []struct {
		name    string
		payload map[string]any
		reason  string
		field   string
	}{
		{
			name: "zero quantity",
			payload: map[string]any{
				"branch_id": f.branch.ID, "warehouse_id": f.warehouse.ID,
				"product_id": f.product.ID, "quantity": "0", "reason": "sale",
			},
			reason: ReasonValidationFailed,
			field:  "quantity",
		},
		{
			name: "unknown product",
			payload: map[string]any{
				"branch_id": f.branch.ID, "warehouse_id": f.warehouse.ID,
				"product_id": uuid.New(), "quantity": "1", "reason": "sale",
			},
			reason: ReasonValidationFailed,
			field:  "product_id",
		},
		{
			name: "inactive product",
			payload: map[string]any{
				"branch_id": f.branch.ID, "warehouse_id": f.warehouse.ID,
				"product_id": inactive.ID, "quantity": "1", "reason": "sale",
			},
			reason: ReasonForbidden,
			field:  "product_id",
		},
		{
			name: "unknown warehouse",
			payload: map[string]any{
				"branch_id": f.branch.ID, "warehouse_id": uuid.New(),
				"product_id": f.product.ID, "quantity": "1", "reason": "sale",
			},
			reason: ReasonForbidden,
			field:  "warehouse_id",
		},
		{
			name: "invalid reason",
			payload: map[string]any{
				"branch_id": f.branch.ID, "warehouse_id": f.warehouse.ID,
				"product_id": f.product.ID, "quantity": "1", "reason": "shrinkage",
			},
			reason: ReasonValidationFailed,
			field:  "reason",
		},
		{
			name: "foreign branch",
			payload: map[string]any{
				"branch_id": uuid.New(), "warehouse_id": f.warehouse.ID,
				"product_id": f.product.ID, "quantity": "1", "reason": "sale",
			},
			reason: ReasonForbidden,
			field:  "branch_id",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result, err := processor.Process(ctx, f.store, f.event(t, "stock.adjust", tc.payload))
			require.NoError(t, err)
			assert.False(t, result.Accepted)
			assert.Equal(t, tc.reason, result.Reason)
			assert.Contains(t, result.Details, tc.field)
		})
	}

	// No rejected event may leave a stock move or outbox row behind.
	count, err := f.store.StockMoves().OnHand(ctx, f.branch.ID, f.warehouse.ID, f.product.ID)
	require.NoError(t, err)
	assert.True(t, count.IsZero())
	assert.Empty(t, f.outboxRows(t))
}

func TestEventProcessor_ProductStockStatusSet(t *testing.T) {
	f := newFixture(t)
	processor := NewEventProcessor()
	ctx := context.Background()

	result, err := processor.Process(ctx, f.store, f.event(t, "product.stock_status.set", map[string]any{
		"branch_id":    f.branch.ID,
		"product_id":   f.product.ID,
		"stock_status": "low_stock",
	}))

	require.NoError(t, err)
	require.True(t, result.Accepted)

	product, err := f.store.Products().GetInBranch(ctx, f.product.ID, f.branch.ID)
	require.NoError(t, err)
	assert.Equal(t, "low_stock", product.StockStatus)

	rows := f.outboxRows(t)
	require.Len(t, rows, 1)
	assert.Equal(t, "product", rows[0].Entity)
}

func TestEventProcessor_TransferCreate(t *testing.T) {
	f := newFixture(t)
	processor := NewEventProcessor()
	ctx := context.Background()

	result, err := processor.Process(ctx, f.store, f.event(t, "stock.transfer.create", map[string]any{
		"branch_id":                f.branch.ID,
		"source_warehouse_id":      f.warehouse.ID,
		"destination_warehouse_id": f.backroom.ID,
		"reference":                "TR-0001",
		"lines": []map[string]any{
			{"product_id": f.product.ID, "quantity": "4"},
		},
	}))

	require.NoError(t, err)
	require.True(t, result.Accepted)

	rows := f.outboxRows(t)
	require.Len(t, rows, 1)
	assert.Equal(t, "stock_transfer", rows[0].Entity)

	transfer, err := f.store.Transfers().GetInBranch(ctx, rows[0].EntityID, f.branch.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransferDraft, transfer.Status)
	require.Len(t, transfer.Lines, 1)
	assert.True(t, transfer.Lines[0].Quantity.Equal(decimal.RequireFromString("4")))
}

func TestEventProcessor_TransferCreate_SameWarehouse(t *testing.T) {
	f := newFixture(t)
	processor := NewEventProcessor()

	result, err := processor.Process(context.Background(), f.store, f.event(t, "stock.transfer.create", map[string]any{
		"branch_id":                f.branch.ID,
		"source_warehouse_id":      f.warehouse.ID,
		"destination_warehouse_id": f.warehouse.ID,
		"reference":                "TR-0002",
		"lines": []map[string]any{
			{"product_id": f.product.ID, "quantity": "1"},
		},
	}))

	require.NoError(t, err)
	assert.False(t, result.Accepted)
	assert.Contains(t, result.Details, "destination_warehouse_id")
}

func TestEventProcessor_TransferCreate_BadLineRollsBackTransfer(t *testing.T) {
	f := newFixture(t)
	processor := NewEventProcessor()
	ctx := context.Background()

	// Second line names an unknown product; the already-created transfer and
	// first line must not survive the rejection.
	result, err := processor.Process(ctx, f.store, f.event(t, "stock.transfer.create", map[string]any{
		"branch_id":                f.branch.ID,
		"source_warehouse_id":      f.warehouse.ID,
		"destination_warehouse_id": f.backroom.ID,
		"reference":                "TR-0003",
		"lines": []map[string]any{
			{"product_id": f.product.ID, "quantity": "2"},
			{"product_id": uuid.New(), "quantity": "1"},
		},
	}))

	require.NoError(t, err)
	assert.False(t, result.Accepted)
	assert.Empty(t, f.outboxRows(t))
}

func TestEventProcessor_TransferLifecycle(t *testing.T) {
	f := newFixture(t)
	f.seedStock(t, f.warehouse, "10")
	processor := NewEventProcessor()
	ctx := context.Background()

	// Create draft
	result, err := processor.Process(ctx, f.store, f.event(t, "stock.transfer.create", map[string]any{
		"branch_id":                f.branch.ID,
		"source_warehouse_id":      f.warehouse.ID,
		"destination_warehouse_id": f.backroom.ID,
		"reference":                "TR-0004",
		"lines": []map[string]any{
			{"product_id": f.product.ID, "quantity": "6"},
		},
	}))
	require.NoError(t, err)
	require.True(t, result.Accepted)
	transferID := f.outboxRows(t)[0].EntityID

	// Completing a draft is rejected
	result, err = processor.Process(ctx, f.store, f.event(t, "stock.transfer.complete", map[string]any{
		"branch_id":   f.branch.ID,
		"transfer_id": transferID,
	}))
	require.NoError(t, err)
	assert.False(t, result.Accepted)
	assert.Contains(t, result.Details, "status")

	// Approve
	result, err = processor.Process(ctx, f.store, f.event(t, "stock.transfer.approve", map[string]any{
		"branch_id":   f.branch.ID,
		"transfer_id": transferID,
	}))
	require.NoError(t, err)
	require.True(t, result.Accepted)

	transfer, err := f.store.Transfers().GetInBranch(ctx, transferID, f.branch.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransferApproved, transfer.Status)
	assert.Equal(t, f.user.ID, *transfer.ApprovedBy)

	// Approving twice is rejected
	result, err = processor.Process(ctx, f.store, f.event(t, "stock.transfer.approve", map[string]any{
		"branch_id":   f.branch.ID,
		"transfer_id": transferID,
	}))
	require.NoError(t, err)
	assert.False(t, result.Accepted)

	// Complete moves the stock between warehouses
	result, err = processor.Process(ctx, f.store, f.event(t, "stock.transfer.complete", map[string]any{
		"branch_id":   f.branch.ID,
		"transfer_id": transferID,
	}))
	require.NoError(t, err)
	require.True(t, result.Accepted)

	sourceOnHand, err := f.store.StockMoves().OnHand(ctx, f.branch.ID, f.warehouse.ID, f.product.ID)
	require.NoError(t, err)
	assert.True(t, sourceOnHand.Equal(decimal.RequireFromString("4")))

	destOnHand, err := f.store.StockMoves().OnHand(ctx, f.branch.ID, f.backroom.ID, f.product.ID)
	require.NoError(t, err)
	assert.True(t, destOnHand.Equal(decimal.RequireFromString("6")))

	transfer, err = f.store.Transfers().GetInBranch(ctx, transferID, f.branch.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransferCompleted, transfer.Status)
	assert.NotNil(t, transfer.CompletedAt)
}

func TestEventProcessor_TransferComplete_InsufficientStock(t *testing.T) {
	f := newFixture(t)
	f.seedStock(t, f.warehouse, "4")
	processor := NewEventProcessor()
	ctx := context.Background()

	result, err := processor.Process(ctx, f.store, f.event(t, "stock.transfer.create", map[string]any{
		"branch_id":                f.branch.ID,
		"source_warehouse_id":      f.warehouse.ID,
		"destination_warehouse_id": f.backroom.ID,
		"reference":                "TR-0005",
		"lines": []map[string]any{
			{"product_id": f.product.ID, "quantity": "10"},
		},
	}))
	require.NoError(t, err)
	require.True(t, result.Accepted)
	transferID := f.outboxRows(t)[0].EntityID

	result, err = processor.Process(ctx, f.store, f.event(t, "stock.transfer.approve", map[string]any{
		"branch_id":   f.branch.ID,
		"transfer_id": transferID,
	}))
	require.NoError(t, err)
	require.True(t, result.Accepted)

	result, err = processor.Process(ctx, f.store, f.event(t, "stock.transfer.complete", map[string]any{
		"branch_id":   f.branch.ID,
		"transfer_id": transferID,
	}))
	require.NoError(t, err)
	assert.False(t, result.Accepted)
	assert.Equal(t, ReasonValidationFailed, result.Reason)

	shortages, ok := result.Details["shortages"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, shortages, 1)
	assert.Equal(t, f.product.ID.String(), shortages[0]["product_id"])
	assert.Equal(t, "4", shortages[0]["available"])
	assert.Equal(t, "10", shortages[0]["required"])

	// Nothing moved, transfer still approved.
	onHand, err := f.store.StockMoves().OnHand(ctx, f.branch.ID, f.warehouse.ID, f.product.ID)
	require.NoError(t, err)
	assert.True(t, onHand.Equal(decimal.RequireFromString("4")))

	transfer, err := f.store.Transfers().GetInBranch(ctx, transferID, f.branch.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransferApproved, transfer.Status)
}

func TestEventProcessor_InvoiceCreate(t *testing.T) {
	f := newFixture(t)
	f.openShift(t)
	processor := NewEventProcessor()
	ctx := context.Background()

	createdAt, paidAt := saleTimes()
	result, err := processor.Process(ctx, f.store, f.event(t, "invoice.create", map[string]any{
		"branch_id":        f.branch.ID,
		"device_id":        f.device.ID,
		"user_id":          f.user.ID,
		"local_invoice_no": "42",
		"created_at":       createdAt,
		"lines": []map[string]any{
			{"product_id": f.product.ID, "qty": "2", "unit_price": "18.50", "discount": "0", "tax_rate": "7.50"},
		},
		"totals": map[string]any{
			"subtotal": "37.00", "discount_total": "0", "tax_total": "2.78", "total": "39.78",
		},
		"payments": []map[string]any{
			{"method": "cash", "amount": "39.78", "paid_at": paidAt},
		},
	}))

	require.NoError(t, err)
	require.True(t, result.Accepted)

	rows := f.outboxRows(t)
	require.Len(t, rows, 1)
	assert.Equal(t, "invoice", rows[0].Entity)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rows[0].Payload, &payload))
	assert.Equal(t, string(models.InvoicePaid), payload["status"])
	assert.Equal(t, "BR1-42", payload["invoice_number"])
	require.NotNil(t, payload["shift_summary"])
	summary := payload["shift_summary"].(map[string]any)
	// opening 100.00 plus one 39.78 cash payment
	assert.Equal(t, "139.78", summary["expected_amount"])

	invoice, err := f.store.Invoices().GetByID(ctx, rows[0].EntityID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoicePaid, invoice.Status)
	assert.NotNil(t, invoice.PaidAt)
}

func TestEventProcessor_InvoiceCreate_PartialPayment(t *testing.T) {
	f := newFixture(t)
	f.openShift(t)
	processor := NewEventProcessor()

	createdAt, paidAt := saleTimes()
	result, err := processor.Process(context.Background(), f.store, f.event(t, "invoice.create", map[string]any{
		"branch_id":        f.branch.ID,
		"device_id":        f.device.ID,
		"user_id":          f.user.ID,
		"local_invoice_no": "43",
		"created_at":       createdAt,
		"lines": []map[string]any{
			{"product_id": f.product.ID, "qty": "1", "unit_price": "18.50", "discount": "0", "tax_rate": "7.50"},
		},
		"totals": map[string]any{
			"subtotal": "18.50", "discount_total": "0", "tax_total": "1.39", "total": "19.89",
		},
		"payments": []map[string]any{
			{"method": "card", "amount": "10.00", "paid_at": paidAt},
		},
	}))

	require.NoError(t, err)
	require.True(t, result.Accepted)

	rows := f.outboxRows(t)
	invoice, err := f.store.Invoices().GetByID(context.Background(), rows[0].EntityID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoicePartiallyPaid, invoice.Status)
	assert.Nil(t, invoice.PaidAt)
}

func TestEventProcessor_InvoiceCreate_NoShift(t *testing.T) {
	f := newFixture(t)
	processor := NewEventProcessor()

	result, err := processor.Process(context.Background(), f.store, f.event(t, "invoice.create", map[string]any{
		"branch_id":        f.branch.ID,
		"device_id":        f.device.ID,
		"user_id":          f.user.ID,
		"local_invoice_no": "44",
		"created_at":       time.Now().Format(time.RFC3339),
		"lines": []map[string]any{
			{"product_id": f.product.ID, "qty": "1", "unit_price": "18.50", "discount": "0", "tax_rate": "7.50"},
		},
		"totals": map[string]any{
			"subtotal": "18.50", "discount_total": "0", "tax_total": "1.39", "total": "19.89",
		},
	}))

	require.NoError(t, err)
	assert.False(t, result.Accepted)
	assert.Equal(t, ReasonForbidden, result.Reason)
	assert.Contains(t, result.Details, "shift")
}

func TestEventProcessor_InvoiceCreate_DeviceMismatch(t *testing.T) {
	f := newFixture(t)
	f.openShift(t)
	processor := NewEventProcessor()

	result, err := processor.Process(context.Background(), f.store, f.event(t, "invoice.create", map[string]any{
		"branch_id":        f.branch.ID,
		"device_id":        uuid.New(),
		"user_id":          f.user.ID,
		"local_invoice_no": "45",
		"created_at":       time.Now().Format(time.RFC3339),
		"lines": []map[string]any{
			{"product_id": f.product.ID, "qty": "1", "unit_price": "18.50", "discount": "0", "tax_rate": "7.50"},
		},
		"totals": map[string]any{
			"subtotal": "18.50", "discount_total": "0", "tax_total": "1.39", "total": "19.89",
		},
	}))

	require.NoError(t, err)
	assert.False(t, result.Accepted)
	assert.Equal(t, ReasonForbidden, result.Reason)
	assert.Contains(t, result.Details, "device_id")
}
