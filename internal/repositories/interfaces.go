package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/veloro/possync/internal/models"
)

type BranchRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Branch, error)
	Create(ctx context.Context, branch *models.Branch) error
}

type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

type DeviceRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Device, error)
	Create(ctx context.Context, device *models.Device) error
	TouchLastSeen(ctx context.Context, id uuid.UUID) error
}

type CustomerRepository interface {
	GetInBranch(ctx context.Context, id, branchID uuid.UUID) (*models.Customer, error)
	// Upsert creates or updates a customer keyed by its client-supplied id.
	Upsert(ctx context.Context, customer *models.Customer) error
	Delete(ctx context.Context, id, branchID uuid.UUID) error
}

type ProductRepository interface {
	GetInBranch(ctx context.Context, id, branchID uuid.UUID) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	UpdateStockStatus(ctx context.Context, product *models.Product) error
	// LockForStock serializes concurrent on-hand computations for the given
	// products within the calling transaction.
	LockForStock(ctx context.Context, branchID uuid.UUID, productIDs []uuid.UUID) error
}

type WarehouseRepository interface {
	GetInBranch(ctx context.Context, id, branchID uuid.UUID) (*models.Warehouse, error)
	Create(ctx context.Context, warehouse *models.Warehouse) error
}

type StockMoveRepository interface {
	Create(ctx context.Context, move *models.StockMove) error
	// OnHand returns the signed sum of move quantities for a warehouse/product pair.
	OnHand(ctx context.Context, branchID, warehouseID, productID uuid.UUID) (decimal.Decimal, error)
	CountForEvent(ctx context.Context, eventID uuid.UUID) (int, error)
}

type StockTransferRepository interface {
	Create(ctx context.Context, transfer *models.StockTransfer) error
	CreateLine(ctx context.Context, line *models.StockTransferLine) error
	// GetInBranch loads a transfer and its lines.
	GetInBranch(ctx context.Context, id, branchID uuid.UUID) (*models.StockTransfer, error)
	UpdateStatus(ctx context.Context, transfer *models.StockTransfer) error
}

type InvoiceRepository interface {
	Create(ctx context.Context, invoice *models.Invoice) error
	CreateLine(ctx context.Context, line *models.InvoiceLine) error
	CreatePayment(ctx context.Context, payment *models.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	// CashPaymentTotal sums cash payments taken by a cashier on a device
	// within [from, to], for shift reconciliation.
	CashPaymentTotal(ctx context.Context, branchID, deviceID, userID uuid.UUID, from, to time.Time) (decimal.Decimal, error)
}

type CashShiftRepository interface {
	// GetOpenShift returns the open shift for a (branch, device, cashier)
	// triple, or ErrNotFound when none is open.
	GetOpenShift(ctx context.Context, branchID, deviceID, cashierID uuid.UUID) (*models.CashShift, error)
	Create(ctx context.Context, shift *models.CashShift) error
}

type SyncEventRepository interface {
	// GetByEventID looks up a ledger row by its idempotency key.
	GetByEventID(ctx context.Context, eventID, deviceID uuid.UUID) (*models.SyncEvent, error)
	// Insert returns ErrDuplicateEvent when (event_id, device_id) already exists.
	Insert(ctx context.Context, event *models.SyncEvent) error
	MarkProcessed(ctx context.Context, id uuid.UUID, status models.SyncEventStatus, processedAt time.Time) error
}

type OutboxRepository interface {
	// Append inserts a change record; the store assigns the monotonically
	// increasing id.
	Append(ctx context.Context, record *models.SyncOutbox) error
	// ListAfter returns up to limit rows for the branch with id > cursor in
	// ascending id order, and whether more rows exist beyond the page.
	ListAfter(ctx context.Context, branchID uuid.UUID, cursor int64, limit int) ([]*models.SyncOutbox, bool, error)
	// LatestID returns the highest assigned outbox id, 0 when empty.
	LatestID(ctx context.Context) (int64, error)
}

type AuditLogRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
}

// Store bundles the repositories behind one transactional boundary. Within
// WithinTx every repository operates on the same transaction; the sync core
// relies on this to keep domain writes, ledger updates and outbox inserts
// atomic.
type Store interface {
	Branches() BranchRepository
	Users() UserRepository
	Devices() DeviceRepository
	Customers() CustomerRepository
	Products() ProductRepository
	Warehouses() WarehouseRepository
	StockMoves() StockMoveRepository
	Transfers() StockTransferRepository
	Invoices() InvoiceRepository
	Shifts() CashShiftRepository
	SyncEvents() SyncEventRepository
	Outbox() OutboxRepository
	AuditLogs() AuditLogRepository

	// WithinTx runs fn in a transaction: commit on nil error, rollback
	// otherwise. Nested calls open savepoints.
	WithinTx(ctx context.Context, fn func(Store) error) error
	// WithinRollbackTx runs fn in a transaction that is always rolled back,
	// regardless of outcome. fn's error is returned as-is.
	WithinRollbackTx(ctx context.Context, fn func(Store) error) error
}

type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	GetByID(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
}

type PresenceRepository interface {
	SetPresence(ctx context.Context, presence *models.Presence) error
	GetPresence(ctx context.Context, deviceID uuid.UUID) (*models.Presence, error)
}
