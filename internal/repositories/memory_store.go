package repositories

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/veloro/possync/internal/models"
)

// MemoryStore is an in-memory Store used by tests and local development.
// A single mutex plays the role of the database's isolation: transactions
// hold it for their whole duration, and rollback restores a snapshot taken
// at Begin time. Entities are kept by value so snapshots stay cheap and
// mutations always go through an explicit map/slice write.
type MemoryStore struct {
	mu   sync.Mutex
	data *memData
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: newMemData()}
}

type syncEventKey struct {
	eventID  uuid.UUID
	deviceID uuid.UUID
}

type memData struct {
	branches      map[uuid.UUID]models.Branch
	users         map[uuid.UUID]models.User
	devices       map[uuid.UUID]models.Device
	customers     map[uuid.UUID]models.Customer
	products      map[uuid.UUID]models.Product
	warehouses    map[uuid.UUID]models.Warehouse
	stockMoves    []models.StockMove
	transfers     map[uuid.UUID]models.StockTransfer
	transferLines []models.StockTransferLine
	invoices      map[uuid.UUID]models.Invoice
	invoiceLines []models.InvoiceLine
	payments     []models.Payment
	shifts       []models.CashShift
	syncEvents   map[uuid.UUID]models.SyncEvent
	syncEventIdx map[syncEventKey]uuid.UUID
	outbox       []models.SyncOutbox
	outboxSeq    int64
	auditLogs    []models.AuditLog
}

func newMemData() *memData {
	return &memData{
		branches:     make(map[uuid.UUID]models.Branch),
		users:        make(map[uuid.UUID]models.User),
		devices:      make(map[uuid.UUID]models.Device),
		customers:    make(map[uuid.UUID]models.Customer),
		products:     make(map[uuid.UUID]models.Product),
		warehouses:   make(map[uuid.UUID]models.Warehouse),
		transfers:    make(map[uuid.UUID]models.StockTransfer),
		invoices:     make(map[uuid.UUID]models.Invoice),
		syncEvents:   make(map[uuid.UUID]models.SyncEvent),
		syncEventIdx: make(map[syncEventKey]uuid.UUID),
	}
}

func (d *memData) clone() *memData {
	c := newMemData()
	for k, v := range d.branches {
		c.branches[k] = v
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.devices {
		c.devices[k] = v
	}
	for k, v := range d.customers {
		c.customers[k] = v
	}
	for k, v := range d.products {
		c.products[k] = v
	}
	for k, v := range d.warehouses {
		c.warehouses[k] = v
	}
	for k, v := range d.transfers {
		c.transfers[k] = v
	}
	for k, v := range d.invoices {
		c.invoices[k] = v
	}
	for k, v := range d.syncEvents {
		c.syncEvents[k] = v
	}
	for k, v := range d.syncEventIdx {
		c.syncEventIdx[k] = v
	}
	c.stockMoves = append(c.stockMoves, d.stockMoves...)
	c.transferLines = append(c.transferLines, d.transferLines...)
	c.invoiceLines = append(c.invoiceLines, d.invoiceLines...)
	c.payments = append(c.payments, d.payments...)
	c.shifts = append(c.shifts, d.shifts...)
	c.outbox = append(c.outbox, d.outbox...)
	c.auditLogs = append(c.auditLogs, d.auditLogs...)
	c.outboxSeq = d.outboxSeq
	return c
}

type noopLocker struct{}

func (noopLocker) Lock()   {}
func (noopLocker) Unlock() {}

func (s *MemoryStore) Branches() BranchRepository      { return memBranchRepo{s.data, &s.mu} }
func (s *MemoryStore) Users() UserRepository           { return memUserRepo{s.data, &s.mu} }
func (s *MemoryStore) Devices() DeviceRepository       { return memDeviceRepo{s.data, &s.mu} }
func (s *MemoryStore) Customers() CustomerRepository   { return memCustomerRepo{s.data, &s.mu} }
func (s *MemoryStore) Products() ProductRepository     { return memProductRepo{s.data, &s.mu} }
func (s *MemoryStore) Warehouses() WarehouseRepository { return memWarehouseRepo{s.data, &s.mu} }
func (s *MemoryStore) StockMoves() StockMoveRepository { return memStockMoveRepo{s.data, &s.mu} }
func (s *MemoryStore) Transfers() StockTransferRepository {
	return memTransferRepo{s.data, &s.mu}
}
func (s *MemoryStore) Invoices() InvoiceRepository     { return memInvoiceRepo{s.data, &s.mu} }
func (s *MemoryStore) Shifts() CashShiftRepository     { return memShiftRepo{s.data, &s.mu} }
func (s *MemoryStore) SyncEvents() SyncEventRepository { return memSyncEventRepo{s.data, &s.mu} }
func (s *MemoryStore) Outbox() OutboxRepository        { return memOutboxRepo{s.data, &s.mu} }
func (s *MemoryStore) AuditLogs() AuditLogRepository   { return memAuditRepo{s.data, &s.mu} }

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(&memTx{data: s.data}); err != nil {
		*s.data = *snapshot
		return err
	}
	return nil
}

func (s *MemoryStore) WithinRollbackTx(ctx context.Context, fn func(Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	err := fn(&memTx{data: s.data})
	*s.data = *snapshot
	return err
}

// memTx is the Store handed to transaction callbacks. The caller already
// holds the store mutex, so its repos use a no-op locker; nested WithinTx
// calls take their own snapshots, which mirrors savepoint semantics.
type memTx struct {
	data *memData
}

func (t *memTx) Branches() BranchRepository      { return memBranchRepo{t.data, noopLocker{}} }
func (t *memTx) Users() UserRepository           { return memUserRepo{t.data, noopLocker{}} }
func (t *memTx) Devices() DeviceRepository       { return memDeviceRepo{t.data, noopLocker{}} }
func (t *memTx) Customers() CustomerRepository   { return memCustomerRepo{t.data, noopLocker{}} }
func (t *memTx) Products() ProductRepository     { return memProductRepo{t.data, noopLocker{}} }
func (t *memTx) Warehouses() WarehouseRepository { return memWarehouseRepo{t.data, noopLocker{}} }
func (t *memTx) StockMoves() StockMoveRepository { return memStockMoveRepo{t.data, noopLocker{}} }
func (t *memTx) Transfers() StockTransferRepository {
	return memTransferRepo{t.data, noopLocker{}}
}
func (t *memTx) Invoices() InvoiceRepository     { return memInvoiceRepo{t.data, noopLocker{}} }
func (t *memTx) Shifts() CashShiftRepository     { return memShiftRepo{t.data, noopLocker{}} }
func (t *memTx) SyncEvents() SyncEventRepository { return memSyncEventRepo{t.data, noopLocker{}} }
func (t *memTx) Outbox() OutboxRepository        { return memOutboxRepo{t.data, noopLocker{}} }
func (t *memTx) AuditLogs() AuditLogRepository   { return memAuditRepo{t.data, noopLocker{}} }

func (t *memTx) WithinTx(ctx context.Context, fn func(Store) error) error {
	snapshot := t.data.clone()
	if err := fn(&memTx{data: t.data}); err != nil {
		*t.data = *snapshot
		return err
	}
	return nil
}

func (t *memTx) WithinRollbackTx(ctx context.Context, fn func(Store) error) error {
	snapshot := t.data.clone()
	err := fn(&memTx{data: t.data})
	*t.data = *snapshot
	return err
}

func ensureTimes(createdAt, updatedAt *time.Time) {
	now := time.Now()
	if createdAt.IsZero() {
		*createdAt = now
	}
	if updatedAt != nil && updatedAt.IsZero() {
		*updatedAt = now
	}
}

type memBranchRepo struct {
	d  *memData
	lk sync.Locker
}

func (r memBranchRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Branch, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	branch, ok := r.d.branches[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &branch, nil
}

func (r memBranchRepo) Create(ctx context.Context, branch *models.Branch) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	if branch.ID == uuid.Nil {
		branch.ID = uuid.New()
	}
	ensureTimes(&branch.CreatedAt, &branch.UpdatedAt)
	r.d.branches[branch.ID] = *branch
	return nil
}

type memUserRepo struct {
	d  *memData
	lk sync.Locker
}

func (r memUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	user, ok := r.d.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (r memUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	for _, user := range r.d.users {
		if user.Username == username {
			u := user
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (r memUserRepo) Create(ctx context.Context, user *models.User) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	ensureTimes(&user.CreatedAt, &user.UpdatedAt)
	r.d.users[user.ID] = *user
	return nil
}

type memDeviceRepo struct {
	d  *memData
	lk sync.Locker
}

func (r memDeviceRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Device, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	device, ok := r.d.devices[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &device, nil
}

func (r memDeviceRepo) Create(ctx context.Context, device *models.Device) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	if device.ID == uuid.Nil {
		device.ID = uuid.New()
	}
	ensureTimes(&device.CreatedAt, &device.UpdatedAt)
	r.d.devices[device.ID] = *device
	return nil
}

func (r memDeviceRepo) TouchLastSeen(ctx context.Context, id uuid.UUID) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	device, ok := r.d.devices[id]
	if !ok {
		return ErrNotFound
	}
	now := time.Now()
	device.LastSeenAt = &now
	device.UpdatedAt = now
	r.d.devices[id] = device
	return nil
}

type memCustomerRepo struct {
	d  *memData
	lk sync.Locker
}

func (r memCustomerRepo) GetInBranch(ctx context.Context, id, branchID uuid.UUID) (*models.Customer, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	customer, ok := r.d.customers[id]
	if !ok || customer.BranchID != branchID {
		return nil, ErrNotFound
	}
	return &customer, nil
}

func (r memCustomerRepo) Upsert(ctx context.Context, customer *models.Customer) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	if existing, ok := r.d.customers[customer.ID]; ok {
		customer.CreatedAt = existing.CreatedAt
		customer.UpdatedAt = time.Now()
	} else {
		ensureTimes(&customer.CreatedAt, &customer.UpdatedAt)
	}
	r.d.customers[customer.ID] = *customer
	return nil
}

func (r memCustomerRepo) Delete(ctx context.Context, id, branchID uuid.UUID) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	customer, ok := r.d.customers[id]
	if !ok || customer.BranchID != branchID {
		return ErrNotFound
	}
	delete(r.d.customers, id)
	return nil
}

type memProductRepo struct {
	d  *memData
	lk sync.Locker
}

func (r memProductRepo) GetInBranch(ctx context.Context, id, branchID uuid.UUID) (*models.Product, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	product, ok := r.d.products[id]
	if !ok || product.BranchID != branchID {
		return nil, ErrNotFound
	}
	return &product, nil
}

func (r memProductRepo) Create(ctx context.Context, product *models.Product) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	ensureTimes(&product.CreatedAt, &product.UpdatedAt)
	r.d.products[product.ID] = *product
	return nil
}

func (r memProductRepo) UpdateStockStatus(ctx context.Context, product *models.Product) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	existing, ok := r.d.products[product.ID]
	if !ok || existing.BranchID != product.BranchID {
		return ErrNotFound
	}
	existing.StockStatus = product.StockStatus
	existing.UpdatedAt = time.Now()
	r.d.products[product.ID] = existing
	product.UpdatedAt = existing.UpdatedAt
	return nil
}

func (r memProductRepo) LockForStock(ctx context.Context, branchID uuid.UUID, productIDs []uuid.UUID) error {
	// The store mutex already serializes transactions.
	return nil
}

type memWarehouseRepo struct {
	d  *memData
	lk sync.Locker
}

func (r memWarehouseRepo) GetInBranch(ctx context.Context, id, branchID uuid.UUID) (*models.Warehouse, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	warehouse, ok := r.d.warehouses[id]
	if !ok || warehouse.BranchID != branchID {
		return nil, ErrNotFound
	}
	return &warehouse, nil
}

func (r memWarehouseRepo) Create(ctx context.Context, warehouse *models.Warehouse) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	if warehouse.ID == uuid.Nil {
		warehouse.ID = uuid.New()
	}
	ensureTimes(&warehouse.CreatedAt, &warehouse.UpdatedAt)
	r.d.warehouses[warehouse.ID] = *warehouse
	return nil
}

type memStockMoveRepo struct {
	d  *memData
	lk sync.Locker
}

func (r memStockMoveRepo) Create(ctx context.Context, move *models.StockMove) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	if move.ID == uuid.Nil {
		move.ID = uuid.New()
	}
	if move.CreatedAt.IsZero() {
		move.CreatedAt = time.Now()
	}
	r.d.stockMoves = append(r.d.stockMoves, *move)
	return nil
}

func (r memStockMoveRepo) OnHand(ctx context.Context, branchID, warehouseID, productID uuid.UUID) (decimal.Decimal, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	total := decimal.Zero
	for _, move := range r.d.stockMoves {
		if move.BranchID == branchID && move.WarehouseID == warehouseID && move.ProductID == productID {
			total = total.Add(move.Quantity)
		}
	}
	return total, nil
}

func (r memStockMoveRepo) CountForEvent(ctx context.Context, eventID uuid.UUID) (int, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	count := 0
	for _, move := range r.d.stockMoves {
		if move.EventID == eventID {
			count++
		}
	}
	return count, nil
}

type memTransferRepo struct {
	d  *memData
	lk sync.Locker
}

func (r memTransferRepo) Create(ctx context.Context, transfer *models.StockTransfer) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	if transfer.ID == uuid.Nil {
		transfer.ID = uuid.New()
	}
	ensureTimes(&transfer.CreatedAt, &transfer.UpdatedAt)
	stored := *transfer
	stored.Lines = nil // lines live in their own table
	r.d.transfers[transfer.ID] = stored
	return nil
}

func (r memTransferRepo) CreateLine(ctx context.Context, line *models.StockTransferLine) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	if line.ID == uuid.Nil {
		line.ID = uuid.New()
	}
	r.d.transferLines = append(r.d.transferLines, *line)
	return nil
}

func (r memTransferRepo) GetInBranch(ctx context.Context, id, branchID uuid.UUID) (*models.StockTransfer, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	transfer, ok := r.d.transfers[id]
	if !ok || transfer.BranchID != branchID {
		return nil, ErrNotFound
	}
	for _, line := range r.d.transferLines {
		if line.TransferID == id {
			l := line
			transfer.Lines = append(transfer.Lines, &l)
		}
	}
	return &transfer, nil
}

func (r memTransferRepo) UpdateStatus(ctx context.Context, transfer *models.StockTransfer) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	existing, ok := r.d.transfers[transfer.ID]
	if !ok || existing.BranchID != transfer.BranchID {
		return ErrNotFound
	}
	existing.Status = transfer.Status
	existing.ApprovedBy = transfer.ApprovedBy
	existing.ApprovedAt = transfer.ApprovedAt
	existing.CompletedAt = transfer.CompletedAt
	existing.UpdatedAt = time.Now()
	r.d.transfers[transfer.ID] = existing
	transfer.UpdatedAt = existing.UpdatedAt
	return nil
}

type memInvoiceRepo struct {
	d  *memData
	lk sync.Locker
}

func (r memInvoiceRepo) Create(ctx context.Context, invoice *models.Invoice) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	if invoice.ID == uuid.Nil {
		invoice.ID = uuid.New()
	}
	if invoice.UpdatedAt.IsZero() {
		invoice.UpdatedAt = time.Now()
	}
	r.d.invoices[invoice.ID] = *invoice
	return nil
}

func (r memInvoiceRepo) CreateLine(ctx context.Context, line *models.InvoiceLine) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	if line.ID == uuid.Nil {
		line.ID = uuid.New()
	}
	r.d.invoiceLines = append(r.d.invoiceLines, *line)
	return nil
}

func (r memInvoiceRepo) CreatePayment(ctx context.Context, payment *models.Payment) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	r.d.payments = append(r.d.payments, *payment)
	return nil
}

func (r memInvoiceRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	invoice, ok := r.d.invoices[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &invoice, nil
}

func (r memInvoiceRepo) CashPaymentTotal(ctx context.Context, branchID, deviceID, userID uuid.UUID, from, to time.Time) (decimal.Decimal, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	total := decimal.Zero
	for _, payment := range r.d.payments {
		if payment.Method != models.PaymentCash {
			continue
		}
		invoice, ok := r.d.invoices[payment.InvoiceID]
		if !ok || invoice.BranchID != branchID || invoice.DeviceID != deviceID || invoice.UserID != userID {
			continue
		}
		if payment.PaidAt.Before(from) || payment.PaidAt.After(to) {
			continue
		}
		total = total.Add(payment.Amount)
	}
	return total, nil
}

type memShiftRepo struct {
	d  *memData
	lk sync.Locker
}

func (r memShiftRepo) GetOpenShift(ctx context.Context, branchID, deviceID, cashierID uuid.UUID) (*models.CashShift, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	for i := len(r.d.shifts) - 1; i >= 0; i-- {
		shift := r.d.shifts[i]
		if shift.BranchID == branchID && shift.DeviceID == deviceID && shift.CashierID == cashierID && shift.ClosedAt == nil {
			return &shift, nil
		}
	}
	return nil, ErrNotFound
}

func (r memShiftRepo) Create(ctx context.Context, shift *models.CashShift) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	if shift.ID == uuid.Nil {
		shift.ID = uuid.New()
	}
	if shift.OpenedAt.IsZero() {
		shift.OpenedAt = time.Now()
	}
	r.d.shifts = append(r.d.shifts, *shift)
	return nil
}

type memSyncEventRepo struct {
	d  *memData
	lk sync.Locker
}

func (r memSyncEventRepo) GetByEventID(ctx context.Context, eventID, deviceID uuid.UUID) (*models.SyncEvent, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	id, ok := r.d.syncEventIdx[syncEventKey{eventID, deviceID}]
	if !ok {
		return nil, ErrNotFound
	}
	event := r.d.syncEvents[id]
	return &event, nil
}

func (r memSyncEventRepo) Insert(ctx context.Context, event *models.SyncEvent) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	key := syncEventKey{event.EventID, event.DeviceID}
	if _, exists := r.d.syncEventIdx[key]; exists {
		return ErrDuplicateEvent
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Status == "" {
		event.Status = models.SyncEventAccepted
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	r.d.syncEvents[event.ID] = *event
	r.d.syncEventIdx[key] = event.ID
	return nil
}

func (r memSyncEventRepo) MarkProcessed(ctx context.Context, id uuid.UUID, status models.SyncEventStatus, processedAt time.Time) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	event, ok := r.d.syncEvents[id]
	if !ok {
		return ErrNotFound
	}
	event.Status = status
	event.ProcessedAt = &processedAt
	r.d.syncEvents[id] = event
	return nil
}

type memOutboxRepo struct {
	d  *memData
	lk sync.Locker
}

func (r memOutboxRepo) Append(ctx context.Context, record *models.SyncOutbox) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	r.d.outboxSeq++
	record.ID = r.d.outboxSeq
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	r.d.outbox = append(r.d.outbox, *record)
	return nil
}

func (r memOutboxRepo) ListAfter(ctx context.Context, branchID uuid.UUID, cursor int64, limit int) ([]*models.SyncOutbox, bool, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	var records []*models.SyncOutbox
	hasMore := false
	for _, record := range r.d.outbox {
		if record.BranchID != branchID || record.ID <= cursor {
			continue
		}
		if len(records) == limit {
			hasMore = true
			break
		}
		rec := record
		records = append(records, &rec)
	}
	return records, hasMore, nil
}

func (r memOutboxRepo) LatestID(ctx context.Context) (int64, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	return r.d.outboxSeq, nil
}

type memAuditRepo struct {
	d  *memData
	lk sync.Locker
}

func (r memAuditRepo) Create(ctx context.Context, entry *models.AuditLog) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	r.d.auditLogs = append(r.d.auditLogs, *entry)
	return nil
}

// AuditLogEntries returns a copy of the recorded audit entries, for tests.
func (s *MemoryStore) AuditLogEntries() []models.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AuditLog(nil), s.data.auditLogs...)
}

// MemorySessionRepository is an in-memory SessionRepository for tests.
type MemorySessionRepository struct {
	mu       sync.Mutex
	sessions map[string]models.Session
}

func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{sessions: make(map[string]models.Session)}
}

func (r *MemorySessionRepository) Create(ctx context.Context, session *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = *session
	return nil
}

func (r *MemorySessionRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok || time.Now().After(session.ExpiresAt) {
		return nil, ErrNotFound
	}
	return &session, nil
}

func (r *MemorySessionRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

// MemoryPresenceRepository is an in-memory PresenceRepository for tests.
type MemoryPresenceRepository struct {
	mu       sync.Mutex
	presence map[uuid.UUID]models.Presence
}

func NewMemoryPresenceRepository() *MemoryPresenceRepository {
	return &MemoryPresenceRepository{presence: make(map[uuid.UUID]models.Presence)}
}

func (r *MemoryPresenceRepository) SetPresence(ctx context.Context, presence *models.Presence) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	presence.LastSeen = time.Now()
	r.presence[presence.DeviceID] = *presence
	return nil
}

func (r *MemoryPresenceRepository) GetPresence(ctx context.Context, deviceID uuid.UUID) (*models.Presence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	presence, ok := r.presence[deviceID]
	if !ok {
		return &models.Presence{
			DeviceID: deviceID,
			Status:   string(models.StatusOffline),
		}, nil
	}
	return &presence, nil
}
