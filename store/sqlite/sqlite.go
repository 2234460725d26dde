/*
Package sqlite provides a SQLite-backed implementation of billing.Store.

PURPOSE:
  Persists buildings, tenants, expenses, payments, extra charges and
  invites. The PostgreSQL deployment uses store/gormdb with the same
  interface; this store serves single-node installs, the CLI and tests.

KEY TABLES:
  buildings:      building identity, default fee, opening balance
  tenants:        building members, payment method, fee override
  expenses:       one row per expense; recurring ones are virtual after
  payments:       one row per (tenant, month)
  extra_charges:  ad-hoc charges
  invites:        one-time invite links (bcrypt hash only)

INDEXES:
  - idx_payments_tenant_month (UNIQUE): the (tenant, month) invariant.
    InsertPaymentsIfAbsent relies on it with ON CONFLICT DO NOTHING, so two
    committee members materializing the same month cannot double-bill.
  - idx_payments_building_month: month views (hot path)

SCOPING:
  Every query filters by building_id, standing in for row-level security.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety; SQLite allows a single writer.

WAL MODE:
  Opened with WAL so readers don't block the writer.

MONEY & DATES:
  Decimals are stored as TEXT (exact), timestamps as RFC3339 TEXT and
  months as the first-of-month date "YYYY-MM-01".

USAGE:
  store, err := sqlite.New("./data/vaad.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - billing/store.go: interface definitions
  - store/gormdb: PostgreSQL implementation
  - billing/store/memory.go: in-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/Yairkad/vaad-bayit-sub000/billing"
)

// Store implements billing.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every new connection to :memory: is a fresh, empty database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS buildings (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		address TEXT,
		logo_url TEXT,
		default_fee TEXT,
		opening_balance TEXT NOT NULL DEFAULT '0',
		parking_lots_json TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tenants (
		id TEXT PRIMARY KEY,
		building_id TEXT NOT NULL REFERENCES buildings(id),
		full_name TEXT NOT NULL,
		apartment TEXT,
		floor TEXT,
		phone TEXT,
		user_id TEXT,
		payment_method TEXT NOT NULL DEFAULT 'cash',
		standing_order_active BOOLEAN NOT NULL DEFAULT FALSE,
		monthly_fee TEXT,
		payment_day INTEGER,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tenants_building
		ON tenants(building_id);

	CREATE TABLE IF NOT EXISTS expenses (
		id TEXT PRIMARY KEY,
		building_id TEXT NOT NULL REFERENCES buildings(id),
		amount TEXT NOT NULL,
		category TEXT NOT NULL,
		description TEXT,
		date TEXT NOT NULL,
		recurrence TEXT NOT NULL DEFAULT 'one_time',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		shared_buildings INTEGER NOT NULL DEFAULT 0,
		original_amount TEXT,
		receipt_url TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_expenses_building_date
		ON expenses(building_id, date);

	-- Payments: the tenant_id column carries no foreign key so history
	-- survives tenant deletion.
	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		building_id TEXT NOT NULL REFERENCES buildings(id),
		tenant_id TEXT NOT NULL,
		month TEXT NOT NULL,
		amount TEXT NOT NULL,
		paid BOOLEAN NOT NULL DEFAULT FALSE,
		paid_at TEXT,
		payment_method TEXT,
		created_at TEXT NOT NULL
	);

	-- CRITICAL: one payment per tenant per month
	CREATE UNIQUE INDEX IF NOT EXISTS idx_payments_tenant_month
		ON payments(tenant_id, month);

	CREATE INDEX IF NOT EXISTS idx_payments_building_month
		ON payments(building_id, month);

	CREATE TABLE IF NOT EXISTS extra_charges (
		id TEXT PRIMARY KEY,
		building_id TEXT NOT NULL REFERENCES buildings(id),
		tenant_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		reason TEXT,
		date TEXT NOT NULL,
		paid BOOLEAN NOT NULL DEFAULT FALSE,
		paid_at TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_extra_charges_building
		ON extra_charges(building_id, tenant_id);

	CREATE TABLE IF NOT EXISTS invites (
		id TEXT PRIMARY KEY,
		building_id TEXT NOT NULL REFERENCES buildings(id),
		tenant_id TEXT,
		role TEXT NOT NULL,
		secret_hash BLOB NOT NULL,
		expires_at TEXT NOT NULL,
		redeemed_at TEXT,
		redeemed_by TEXT,
		created_by TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_invites_building
		ON invites(building_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// =============================================================================
// BUILDINGS
// =============================================================================

// SaveBuilding inserts or updates a building.
func (s *Store) SaveBuilding(ctx context.Context, b billing.Building) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lotsJSON, err := json.Marshal(b.ParkingLots)
	if err != nil {
		return fmt.Errorf("failed to encode parking lots: %w", err)
	}

	query := `
		INSERT INTO buildings (id, name, address, logo_url, default_fee, opening_balance, parking_lots_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			address = excluded.address,
			logo_url = excluded.logo_url,
			default_fee = excluded.default_fee,
			opening_balance = excluded.opening_balance,
			parking_lots_json = excluded.parking_lots_json
	`

	_, err = s.db.ExecContext(ctx, query,
		b.ID, b.Name, b.Address, b.LogoURL,
		nullDecimal(b.DefaultFee),
		b.OpeningBalance.String(),
		string(lotsJSON),
		formatTime(createdOrNow(b.CreatedAt)),
	)
	if err != nil {
		return fmt.Errorf("failed to save building: %w", err)
	}
	return nil
}

const buildingColumns = `id, name, address, logo_url, default_fee, opening_balance, parking_lots_json, created_at`

// GetBuilding retrieves a building by ID.
func (s *Store) GetBuilding(ctx context.Context, id billing.BuildingID) (*billing.Building, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+buildingColumns+" FROM buildings WHERE id = ?", id)
	b, err := scanBuilding(row)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ListBuildings returns all buildings by name.
func (s *Store) ListBuildings(ctx context.Context) ([]billing.Building, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT "+buildingColumns+" FROM buildings ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query buildings: %w", err)
	}
	defer rows.Close()

	var buildings []billing.Building
	for rows.Next() {
		b, err := scanBuilding(rows)
		if err != nil {
			return nil, err
		}
		buildings = append(buildings, b)
	}
	return buildings, rows.Err()
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanBuilding(row scanner) (billing.Building, error) {
	var (
		b              billing.Building
		address        sql.NullString
		logoURL        sql.NullString
		defaultFee     sql.NullString
		openingBalance string
		lotsJSON       sql.NullString
		createdAt      string
	)

	err := row.Scan(&b.ID, &b.Name, &address, &logoURL, &defaultFee, &openingBalance, &lotsJSON, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return b, billing.ErrNotFound
	}
	if err != nil {
		return b, fmt.Errorf("failed to scan building: %w", err)
	}

	b.Address = address.String
	b.LogoURL = logoURL.String
	b.DefaultFee = parseNullDecimal(defaultFee)
	b.OpeningBalance = parseDecimal(openingBalance)
	if lotsJSON.Valid && lotsJSON.String != "" {
		json.Unmarshal([]byte(lotsJSON.String), &b.ParkingLots)
	}
	b.CreatedAt = parseTime(createdAt)
	return b, nil
}

// =============================================================================
// TENANTS
// =============================================================================

// SaveTenant inserts or updates a tenant.
func (s *Store) SaveTenant(ctx context.Context, t billing.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saveTenant(ctx, s.db, t)
}

func (s *Store) saveTenant(ctx context.Context, db execer, t billing.Tenant) error {
	query := `
		INSERT INTO tenants (id, building_id, full_name, apartment, floor, phone, user_id,
			payment_method, standing_order_active, monthly_fee, payment_day, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			full_name = excluded.full_name,
			apartment = excluded.apartment,
			floor = excluded.floor,
			phone = excluded.phone,
			user_id = excluded.user_id,
			payment_method = excluded.payment_method,
			standing_order_active = excluded.standing_order_active,
			monthly_fee = excluded.monthly_fee,
			payment_day = excluded.payment_day
		WHERE tenants.building_id = excluded.building_id
	`

	_, err := db.ExecContext(ctx, query,
		t.ID, t.BuildingID, t.FullName, t.Apartment, t.Floor, t.Phone,
		nullString(string(t.UserID)),
		string(t.PaymentMethod),
		t.StandingOrderActive,
		nullDecimal(t.MonthlyFee),
		nullInt(t.PaymentDay),
		formatTime(createdOrNow(t.CreatedAt)),
	)
	if err != nil {
		return fmt.Errorf("failed to save tenant: %w", err)
	}
	return nil
}

const tenantColumns = `id, building_id, full_name, apartment, floor, phone, user_id,
	payment_method, standing_order_active, monthly_fee, payment_day, created_at`

// GetTenant retrieves a tenant of the building.
func (s *Store) GetTenant(ctx context.Context, buildingID billing.BuildingID, id billing.TenantID) (*billing.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+tenantColumns+" FROM tenants WHERE building_id = ? AND id = ?",
		buildingID, id,
	)
	t, err := scanTenant(row)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTenants returns the building's tenants by floor and apartment.
func (s *Store) ListTenants(ctx context.Context, buildingID billing.BuildingID) ([]billing.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+tenantColumns+" FROM tenants WHERE building_id = ? ORDER BY floor, apartment",
		buildingID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query tenants: %w", err)
	}
	defer rows.Close()

	var tenants []billing.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

// DeleteTenant removes a tenant; its payments remain.
func (s *Store) DeleteTenant(ctx context.Context, buildingID billing.BuildingID, id billing.TenantID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM tenants WHERE building_id = ? AND id = ?", buildingID, id)
	return affectedOne(res, err)
}

func scanTenant(row scanner) (billing.Tenant, error) {
	var (
		t          billing.Tenant
		apartment  sql.NullString
		floor      sql.NullString
		phone      sql.NullString
		userID     sql.NullString
		method     string
		monthlyFee sql.NullString
		paymentDay sql.NullInt64
		createdAt  string
	)

	err := row.Scan(&t.ID, &t.BuildingID, &t.FullName, &apartment, &floor, &phone, &userID,
		&method, &t.StandingOrderActive, &monthlyFee, &paymentDay, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return t, billing.ErrNotFound
	}
	if err != nil {
		return t, fmt.Errorf("failed to scan tenant: %w", err)
	}

	t.Apartment = apartment.String
	t.Floor = floor.String
	t.Phone = phone.String
	t.UserID = billing.UserID(userID.String)
	t.PaymentMethod = billing.PaymentMethod(method)
	t.MonthlyFee = parseNullDecimal(monthlyFee)
	t.PaymentDay = int(paymentDay.Int64)
	t.CreatedAt = parseTime(createdAt)
	return t, nil
}

// =============================================================================
// EXPENSES
// =============================================================================

// SaveExpense inserts or updates an expense.
func (s *Store) SaveExpense(ctx context.Context, e billing.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO expenses (id, building_id, amount, category, description, date, recurrence,
			active, shared_buildings, original_amount, receipt_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			amount = excluded.amount,
			category = excluded.category,
			description = excluded.description,
			date = excluded.date,
			recurrence = excluded.recurrence,
			active = excluded.active,
			shared_buildings = excluded.shared_buildings,
			original_amount = excluded.original_amount,
			receipt_url = excluded.receipt_url
		WHERE expenses.building_id = excluded.building_id
	`

	_, err := s.db.ExecContext(ctx, query,
		e.ID, e.BuildingID, e.Amount.String(), e.Category, e.Description,
		formatTime(e.Date),
		string(e.Recurrence),
		e.Active,
		e.SharedBuildings,
		nullDecimal(e.OriginalAmount),
		nullString(e.ReceiptURL),
		formatTime(createdOrNow(e.CreatedAt)),
	)
	if err != nil {
		return fmt.Errorf("failed to save expense: %w", err)
	}
	return nil
}

const expenseColumns = `id, building_id, amount, category, description, date, recurrence,
	active, shared_buildings, original_amount, receipt_url, created_at`

// GetExpense retrieves an expense of the building.
func (s *Store) GetExpense(ctx context.Context, buildingID billing.BuildingID, id billing.ExpenseID) (*billing.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE building_id = ? AND id = ?",
		buildingID, id,
	)
	e, err := scanExpense(row)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListExpenses returns the building's expenses by date.
func (s *Store) ListExpenses(ctx context.Context, buildingID billing.BuildingID) ([]billing.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE building_id = ? ORDER BY date, created_at",
		buildingID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer rows.Close()

	var expenses []billing.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// DeleteExpense removes an expense.
func (s *Store) DeleteExpense(ctx context.Context, buildingID billing.BuildingID, id billing.ExpenseID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM expenses WHERE building_id = ? AND id = ?", buildingID, id)
	return affectedOne(res, err)
}

func scanExpense(row scanner) (billing.Expense, error) {
	var (
		e              billing.Expense
		amount         string
		description    sql.NullString
		date           string
		recurrence     string
		originalAmount sql.NullString
		receiptURL     sql.NullString
		createdAt      string
	)

	err := row.Scan(&e.ID, &e.BuildingID, &amount, &e.Category, &description, &date, &recurrence,
		&e.Active, &e.SharedBuildings, &originalAmount, &receiptURL, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return e, billing.ErrNotFound
	}
	if err != nil {
		return e, fmt.Errorf("failed to scan expense: %w", err)
	}

	e.Amount = parseDecimal(amount)
	e.Description = description.String
	e.Date = parseTime(date)
	e.Recurrence = billing.Recurrence(recurrence)
	e.OriginalAmount = parseNullDecimal(originalAmount)
	e.ReceiptURL = receiptURL.String
	e.CreatedAt = parseTime(createdAt)
	return e, nil
}

// =============================================================================
// PAYMENTS
// =============================================================================

const paymentColumns = `id, building_id, tenant_id, month, amount, paid, paid_at, payment_method, created_at`

// ListPayments returns the building's payments matching the filter.
func (s *Store) ListPayments(ctx context.Context, buildingID billing.BuildingID, f billing.PaymentFilter) ([]billing.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT " + paymentColumns + " FROM payments WHERE building_id = ?"
	args := []any{buildingID}

	if f.Month != nil {
		query += " AND month = ?"
		args = append(args, f.Month.DateKey())
	}
	if f.Through != nil {
		query += " AND month <= ?"
		args = append(args, f.Through.DateKey())
	}
	if f.TenantID != "" {
		query += " AND tenant_id = ?"
		args = append(args, f.TenantID)
	}
	if f.Paid != nil {
		query += " AND paid = ?"
		args = append(args, *f.Paid)
	}
	query += " ORDER BY month, tenant_id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []billing.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// GetPayment retrieves a payment of the building.
func (s *Store) GetPayment(ctx context.Context, buildingID billing.BuildingID, id billing.PaymentID) (*billing.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+paymentColumns+" FROM payments WHERE building_id = ? AND id = ?",
		buildingID, id,
	)
	p, err := scanPayment(row)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdatePayment rewrites amount, paid state and method of a payment.
func (s *Store) UpdatePayment(ctx context.Context, p billing.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE payments SET amount = ?, paid = ?, paid_at = ?, payment_method = ?
		WHERE building_id = ? AND id = ?`,
		p.Amount.String(), p.Paid, nullTime(p.PaidAt), nullString(string(p.PaymentMethod)),
		p.BuildingID, p.ID,
	)
	return affectedOne(res, err)
}

// InsertPaymentsIfAbsent inserts the batch in one transaction. Rows whose
// (tenant, month) already exists are skipped by the unique index.
func (s *Store) InsertPaymentsIfAbsent(ctx context.Context, payments []billing.Payment) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, month) DO NOTHING
	`

	inserted := 0
	for _, p := range payments {
		res, err := sqlTx.ExecContext(ctx, query,
			p.ID, p.BuildingID, p.TenantID, p.Month.DateKey(),
			p.Amount.String(), p.Paid, nullTime(p.PaidAt),
			nullString(string(p.PaymentMethod)),
			formatTime(createdOrNow(p.CreatedAt)),
		)
		if err != nil {
			if isUniqueConstraintError(err) {
				return 0, billing.ErrDuplicatePayment
			}
			return 0, fmt.Errorf("failed to insert payment: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		inserted += int(n)
	}

	if err := sqlTx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit payments: %w", err)
	}
	return inserted, nil
}

func scanPayment(row scanner) (billing.Payment, error) {
	var (
		p         billing.Payment
		month     string
		amount    string
		paidAt    sql.NullString
		method    sql.NullString
		createdAt string
	)

	err := row.Scan(&p.ID, &p.BuildingID, &p.TenantID, &month, &amount, &p.Paid, &paidAt, &method, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return p, billing.ErrNotFound
	}
	if err != nil {
		return p, fmt.Errorf("failed to scan payment: %w", err)
	}

	p.Month, err = billing.ParseMonth(month)
	if err != nil {
		return p, err
	}
	p.Amount = parseDecimal(amount)
	p.PaidAt = parseNullTime(paidAt)
	p.PaymentMethod = billing.PaymentMethod(method.String)
	p.CreatedAt = parseTime(createdAt)
	return p, nil
}

// =============================================================================
// EXTRA CHARGES
// =============================================================================

// SaveCharge inserts or updates an extra charge.
func (s *Store) SaveCharge(ctx context.Context, c billing.ExtraCharge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO extra_charges (id, building_id, tenant_id, amount, reason, date, paid, paid_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			amount = excluded.amount,
			reason = excluded.reason,
			date = excluded.date,
			paid = excluded.paid,
			paid_at = excluded.paid_at
		WHERE extra_charges.building_id = excluded.building_id
	`

	_, err := s.db.ExecContext(ctx, query,
		c.ID, c.BuildingID, c.TenantID, c.Amount.String(), c.Reason,
		formatTime(c.Date), c.Paid, nullTime(c.PaidAt),
		formatTime(createdOrNow(c.CreatedAt)),
	)
	if err != nil {
		return fmt.Errorf("failed to save extra charge: %w", err)
	}
	return nil
}

const chargeColumns = `id, building_id, tenant_id, amount, reason, date, paid, paid_at, created_at`

// GetCharge retrieves an extra charge of the building.
func (s *Store) GetCharge(ctx context.Context, buildingID billing.BuildingID, id billing.ChargeID) (*billing.ExtraCharge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+chargeColumns+" FROM extra_charges WHERE building_id = ? AND id = ?",
		buildingID, id,
	)
	c, err := scanCharge(row)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCharges returns the building's charges, optionally for one tenant.
func (s *Store) ListCharges(ctx context.Context, buildingID billing.BuildingID, tenantID billing.TenantID) ([]billing.ExtraCharge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT " + chargeColumns + " FROM extra_charges WHERE building_id = ?"
	args := []any{buildingID}
	if tenantID != "" {
		query += " AND tenant_id = ?"
		args = append(args, tenantID)
	}
	query += " ORDER BY date, created_at"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query extra charges: %w", err)
	}
	defer rows.Close()

	var charges []billing.ExtraCharge
	for rows.Next() {
		c, err := scanCharge(rows)
		if err != nil {
			return nil, err
		}
		charges = append(charges, c)
	}
	return charges, rows.Err()
}

// DeleteCharge removes an extra charge.
func (s *Store) DeleteCharge(ctx context.Context, buildingID billing.BuildingID, id billing.ChargeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM extra_charges WHERE building_id = ? AND id = ?", buildingID, id)
	return affectedOne(res, err)
}

func scanCharge(row scanner) (billing.ExtraCharge, error) {
	var (
		c         billing.ExtraCharge
		amount    string
		reason    sql.NullString
		date      string
		paidAt    sql.NullString
		createdAt string
	)

	err := row.Scan(&c.ID, &c.BuildingID, &c.TenantID, &amount, &reason, &date, &c.Paid, &paidAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return c, billing.ErrNotFound
	}
	if err != nil {
		return c, fmt.Errorf("failed to scan extra charge: %w", err)
	}

	c.Amount = parseDecimal(amount)
	c.Reason = reason.String
	c.Date = parseTime(date)
	c.PaidAt = parseNullTime(paidAt)
	c.CreatedAt = parseTime(createdAt)
	return c, nil
}

// =============================================================================
// INVITES
// =============================================================================

// SaveInvite stores a new invite.
func (s *Store) SaveInvite(ctx context.Context, inv billing.Invite) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO invites (id, building_id, tenant_id, role, secret_hash, expires_at,
			redeemed_at, redeemed_by, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.BuildingID, nullString(string(inv.TenantID)), string(inv.Role), inv.SecretHash,
		formatTime(inv.ExpiresAt), nullTime(inv.RedeemedAt), nullString(string(inv.RedeemedBy)),
		nullString(string(inv.CreatedBy)), formatTime(createdOrNow(inv.CreatedAt)),
	)
	if err != nil {
		return fmt.Errorf("failed to save invite: %w", err)
	}
	return nil
}

const inviteColumns = `id, building_id, tenant_id, role, secret_hash, expires_at, redeemed_at, redeemed_by, created_by, created_at`

// GetInvite retrieves an invite by ID.
func (s *Store) GetInvite(ctx context.Context, id billing.InviteID) (*billing.Invite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+inviteColumns+" FROM invites WHERE id = ?", id)
	inv, err := scanInvite(row)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// ListInvites returns the building's invites, oldest first.
func (s *Store) ListInvites(ctx context.Context, buildingID billing.BuildingID) ([]billing.Invite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+inviteColumns+" FROM invites WHERE building_id = ? ORDER BY created_at",
		buildingID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query invites: %w", err)
	}
	defer rows.Close()

	var invites []billing.Invite
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, err
		}
		invites = append(invites, inv)
	}
	return invites, rows.Err()
}

// RedeemInvite marks the invite used and saves the tenant atomically.
func (s *Store) RedeemInvite(ctx context.Context, inv billing.Invite, tenant billing.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	res, err := sqlTx.ExecContext(ctx,
		"UPDATE invites SET redeemed_at = ?, redeemed_by = ? WHERE id = ? AND redeemed_at IS NULL",
		nullTime(inv.RedeemedAt), nullString(string(inv.RedeemedBy)), inv.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to redeem invite: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return billing.ErrInviteRedeemed
	}

	if err := s.saveTenant(ctx, sqlTx, tenant); err != nil {
		return err
	}
	return sqlTx.Commit()
}

func scanInvite(row scanner) (billing.Invite, error) {
	var (
		inv        billing.Invite
		tenantID   sql.NullString
		role       string
		expiresAt  string
		redeemedAt sql.NullString
		redeemedBy sql.NullString
		createdBy  sql.NullString
		createdAt  string
	)

	err := row.Scan(&inv.ID, &inv.BuildingID, &tenantID, &role, &inv.SecretHash, &expiresAt,
		&redeemedAt, &redeemedBy, &createdBy, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return inv, billing.ErrNotFound
	}
	if err != nil {
		return inv, fmt.Errorf("failed to scan invite: %w", err)
	}

	inv.TenantID = billing.TenantID(tenantID.String)
	inv.Role = billing.Role(role)
	inv.ExpiresAt = parseTime(expiresAt)
	inv.RedeemedAt = parseNullTime(redeemedAt)
	inv.RedeemedBy = billing.UserID(redeemedBy.String)
	inv.CreatedBy = billing.UserID(createdBy.String)
	inv.CreatedAt = parseTime(createdAt)
	return inv, nil
}

// =============================================================================
// ADMIN
// =============================================================================

// Reset clears all data (for demo scenarios).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"invites", "extra_charges", "payments", "expenses", "tenants", "buildings"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

var _ billing.Store = (*Store)(nil)
var _ billing.Resetter = (*Store)(nil)

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt(n int) sql.NullInt64 {
	if n == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(n), Valid: true}
}

func nullDecimal(d decimal.NullDecimal) sql.NullString {
	if !d.Valid {
		return sql.NullString{}
	}
	return sql.NullString{String: d.Decimal.String(), Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseNullDecimal(s sql.NullString) decimal.NullDecimal {
	if !s.Valid || s.String == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t := parseTime(s.String)
	return &t
}

func createdOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

func affectedOne(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return billing.ErrNotFound
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
