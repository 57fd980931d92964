package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgdb is satisfied by both *pgxpool.Pool and pgx.Tx, so every repository
// works identically inside and outside a transaction. Begin on a pgx.Tx
// opens a savepoint, which gives WithinTx its nesting semantics for free.
type pgdb interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type PostgresStore struct {
	db pgdb
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: pool}
}

func (s *PostgresStore) Branches() BranchRepository        { return &PostgresBranchRepository{db: s.db} }
func (s *PostgresStore) Users() UserRepository             { return &PostgresUserRepository{db: s.db} }
func (s *PostgresStore) Devices() DeviceRepository         { return &PostgresDeviceRepository{db: s.db} }
func (s *PostgresStore) Customers() CustomerRepository     { return &PostgresCustomerRepository{db: s.db} }
func (s *PostgresStore) Products() ProductRepository       { return &PostgresProductRepository{db: s.db} }
func (s *PostgresStore) Warehouses() WarehouseRepository   { return &PostgresWarehouseRepository{db: s.db} }
func (s *PostgresStore) StockMoves() StockMoveRepository   { return &PostgresStockMoveRepository{db: s.db} }
func (s *PostgresStore) Transfers() StockTransferRepository {
	return &PostgresStockTransferRepository{db: s.db}
}
func (s *PostgresStore) Invoices() InvoiceRepository   { return &PostgresInvoiceRepository{db: s.db} }
func (s *PostgresStore) Shifts() CashShiftRepository   { return &PostgresCashShiftRepository{db: s.db} }
func (s *PostgresStore) SyncEvents() SyncEventRepository {
	return &PostgresSyncEventRepository{db: s.db}
}
func (s *PostgresStore) Outbox() OutboxRepository      { return &PostgresOutboxRepository{db: s.db} }
func (s *PostgresStore) AuditLogs() AuditLogRepository { return &PostgresAuditLogRepository{db: s.db} }

func (s *PostgresStore) WithinTx(ctx context.Context, fn func(Store) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&PostgresStore{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) WithinRollbackTx(ctx context.Context, fn func(Store) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// Rolled back unconditionally so a dry run can never persist anything,
	// even on a missed error path.
	defer tx.Rollback(ctx)

	return fn(&PostgresStore{db: tx})
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation, optionally on the named constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	if pgErr.Code != "23505" {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
