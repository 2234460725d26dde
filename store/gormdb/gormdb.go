/*
Package gormdb provides a GORM-backed implementation of billing.Store.

PURPOSE:
  The hosted deployment keeps its data in PostgreSQL. This store talks to it
  through GORM; the same code runs on SQLite (gorm.io/driver/sqlite) for
  tests and local development.

SCHEMA:
  AutoMigrate creates the tables from the row types in models.go, including
  the UNIQUE (tenant_id, month) index on payments.

INSERT-IF-ABSENT:
  InsertPaymentsIfAbsent runs in db.Transaction and relies on
  ON CONFLICT (tenant_id, month) DO NOTHING, which both PostgreSQL and
  SQLite support.

SEE ALSO:
  - store/sqlite: database/sql implementation
  - billing/store.go: interface definitions
*/
package gormdb

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/Yairkad/vaad-bayit-sub000/billing"
)

// Store implements billing.Store on top of *gorm.DB.
type Store struct {
	db *gorm.DB
}

// Open connects with the named driver ("postgres" or "sqlite") and migrates
// the schema.
func Open(driver, dsn string) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = gormsqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.New(log.New(os.Stdout, "[GORM] ", log.LstdFlags), logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect %s database: %w", driver, err)
	}

	if driver == "sqlite" && (dsn == ":memory:" || dsn == "file::memory:") {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) migrate() error {
	return s.db.AutoMigrate(
		&buildingRow{},
		&tenantRow{},
		&expenseRow{},
		&paymentRow{},
		&chargeRow{},
		&inviteRow{},
	)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return billing.ErrNotFound
	}
	return err
}

func deleted(res *gorm.DB) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return billing.ErrNotFound
	}
	return nil
}

// =============================================================================
// BUILDINGS
// =============================================================================

func (s *Store) SaveBuilding(ctx context.Context, b billing.Building) error {
	row := fromBuilding(b)
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("failed to save building: %w", err)
	}
	return nil
}

func (s *Store) GetBuilding(ctx context.Context, id billing.BuildingID) (*billing.Building, error) {
	var row buildingRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", string(id)).Error; err != nil {
		return nil, notFound(err)
	}
	b := row.toBuilding()
	return &b, nil
}

func (s *Store) ListBuildings(ctx context.Context) ([]billing.Building, error) {
	var rows []buildingRow
	if err := s.db.WithContext(ctx).Order("name").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]billing.Building, 0, len(rows))
	for _, r := range rows {
		result = append(result, r.toBuilding())
	}
	return result, nil
}

// =============================================================================
// TENANTS
// =============================================================================

func (s *Store) SaveTenant(ctx context.Context, t billing.Tenant) error {
	row := fromTenant(t)
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("failed to save tenant: %w", err)
	}
	return nil
}

func (s *Store) GetTenant(ctx context.Context, buildingID billing.BuildingID, id billing.TenantID) (*billing.Tenant, error) {
	var row tenantRow
	err := s.db.WithContext(ctx).
		Where("building_id = ? AND id = ?", string(buildingID), string(id)).
		First(&row).Error
	if err != nil {
		return nil, notFound(err)
	}
	t := row.toTenant()
	return &t, nil
}

func (s *Store) ListTenants(ctx context.Context, buildingID billing.BuildingID) ([]billing.Tenant, error) {
	var rows []tenantRow
	err := s.db.WithContext(ctx).
		Where("building_id = ?", string(buildingID)).
		Order("floor").Order("apartment").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make([]billing.Tenant, 0, len(rows))
	for _, r := range rows {
		result = append(result, r.toTenant())
	}
	return result, nil
}

func (s *Store) DeleteTenant(ctx context.Context, buildingID billing.BuildingID, id billing.TenantID) error {
	return deleted(s.db.WithContext(ctx).
		Where("building_id = ? AND id = ?", string(buildingID), string(id)).
		Delete(&tenantRow{}))
}

// =============================================================================
// EXPENSES
// =============================================================================

func (s *Store) SaveExpense(ctx context.Context, e billing.Expense) error {
	row := fromExpense(e)
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("failed to save expense: %w", err)
	}
	return nil
}

func (s *Store) GetExpense(ctx context.Context, buildingID billing.BuildingID, id billing.ExpenseID) (*billing.Expense, error) {
	var row expenseRow
	err := s.db.WithContext(ctx).
		Where("building_id = ? AND id = ?", string(buildingID), string(id)).
		First(&row).Error
	if err != nil {
		return nil, notFound(err)
	}
	e := row.toExpense()
	return &e, nil
}

func (s *Store) ListExpenses(ctx context.Context, buildingID billing.BuildingID) ([]billing.Expense, error) {
	var rows []expenseRow
	err := s.db.WithContext(ctx).
		Where("building_id = ?", string(buildingID)).
		Order("date").Order("created_at").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make([]billing.Expense, 0, len(rows))
	for _, r := range rows {
		result = append(result, r.toExpense())
	}
	return result, nil
}

func (s *Store) DeleteExpense(ctx context.Context, buildingID billing.BuildingID, id billing.ExpenseID) error {
	return deleted(s.db.WithContext(ctx).
		Where("building_id = ? AND id = ?", string(buildingID), string(id)).
		Delete(&expenseRow{}))
}

// =============================================================================
// PAYMENTS
// =============================================================================

func (s *Store) ListPayments(ctx context.Context, buildingID billing.BuildingID, f billing.PaymentFilter) ([]billing.Payment, error) {
	q := s.db.WithContext(ctx).Where("building_id = ?", string(buildingID))
	if f.Month != nil {
		q = q.Where("month = ?", f.Month.DateKey())
	}
	if f.Through != nil {
		q = q.Where("month <= ?", f.Through.DateKey())
	}
	if f.TenantID != "" {
		q = q.Where("tenant_id = ?", string(f.TenantID))
	}
	if f.Paid != nil {
		q = q.Where("paid = ?", *f.Paid)
	}

	var rows []paymentRow
	if err := q.Order("month").Order("tenant_id").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]billing.Payment, 0, len(rows))
	for _, r := range rows {
		p, err := r.toPayment()
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, nil
}

func (s *Store) GetPayment(ctx context.Context, buildingID billing.BuildingID, id billing.PaymentID) (*billing.Payment, error) {
	var row paymentRow
	err := s.db.WithContext(ctx).
		Where("building_id = ? AND id = ?", string(buildingID), string(id)).
		First(&row).Error
	if err != nil {
		return nil, notFound(err)
	}
	p, err := row.toPayment()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) UpdatePayment(ctx context.Context, p billing.Payment) error {
	// Select lists the columns so false and nil are written too.
	res := s.db.WithContext(ctx).Model(&paymentRow{}).
		Where("building_id = ? AND id = ?", string(p.BuildingID), string(p.ID)).
		Select("amount", "paid", "paid_at", "payment_method").
		Updates(paymentRow{
			Amount:        p.Amount,
			Paid:          p.Paid,
			PaidAt:        p.PaidAt,
			PaymentMethod: string(p.PaymentMethod),
		})
	return deleted(res)
}

func (s *Store) InsertPaymentsIfAbsent(ctx context.Context, payments []billing.Payment) (int, error) {
	inserted := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inserted = 0
		for _, p := range payments {
			row := fromPayment(p)
			res := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "month"}},
				DoNothing: true,
			}).Create(&row)
			if res.Error != nil {
				return fmt.Errorf("failed to insert payment: %w", res.Error)
			}
			inserted += int(res.RowsAffected)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// =============================================================================
// EXTRA CHARGES
// =============================================================================

func (s *Store) SaveCharge(ctx context.Context, c billing.ExtraCharge) error {
	row := fromCharge(c)
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("failed to save extra charge: %w", err)
	}
	return nil
}

func (s *Store) GetCharge(ctx context.Context, buildingID billing.BuildingID, id billing.ChargeID) (*billing.ExtraCharge, error) {
	var row chargeRow
	err := s.db.WithContext(ctx).
		Where("building_id = ? AND id = ?", string(buildingID), string(id)).
		First(&row).Error
	if err != nil {
		return nil, notFound(err)
	}
	c := row.toCharge()
	return &c, nil
}

func (s *Store) ListCharges(ctx context.Context, buildingID billing.BuildingID, tenantID billing.TenantID) ([]billing.ExtraCharge, error) {
	q := s.db.WithContext(ctx).Where("building_id = ?", string(buildingID))
	if tenantID != "" {
		q = q.Where("tenant_id = ?", string(tenantID))
	}
	var rows []chargeRow
	if err := q.Order("date").Order("created_at").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]billing.ExtraCharge, 0, len(rows))
	for _, r := range rows {
		result = append(result, r.toCharge())
	}
	return result, nil
}

func (s *Store) DeleteCharge(ctx context.Context, buildingID billing.BuildingID, id billing.ChargeID) error {
	return deleted(s.db.WithContext(ctx).
		Where("building_id = ? AND id = ?", string(buildingID), string(id)).
		Delete(&chargeRow{}))
}

// =============================================================================
// INVITES
// =============================================================================

func (s *Store) SaveInvite(ctx context.Context, inv billing.Invite) error {
	row := fromInvite(inv)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to save invite: %w", err)
	}
	return nil
}

func (s *Store) GetInvite(ctx context.Context, id billing.InviteID) (*billing.Invite, error) {
	var row inviteRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", string(id)).Error; err != nil {
		return nil, notFound(err)
	}
	inv := row.toInvite()
	return &inv, nil
}

func (s *Store) ListInvites(ctx context.Context, buildingID billing.BuildingID) ([]billing.Invite, error) {
	var rows []inviteRow
	err := s.db.WithContext(ctx).
		Where("building_id = ?", string(buildingID)).
		Order("created_at").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make([]billing.Invite, 0, len(rows))
	for _, r := range rows {
		result = append(result, r.toInvite())
	}
	return result, nil
}

func (s *Store) RedeemInvite(ctx context.Context, inv billing.Invite, tenant billing.Tenant) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&inviteRow{}).
			Where("id = ? AND redeemed_at IS NULL", string(inv.ID)).
			Updates(map[string]any{
				"redeemed_at": inv.RedeemedAt,
				"redeemed_by": string(inv.RedeemedBy),
			})
		if res.Error != nil {
			return fmt.Errorf("failed to redeem invite: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return billing.ErrInviteRedeemed
		}
		row := fromTenant(tenant)
		return tx.Save(&row).Error
	})
}

// =============================================================================
// ADMIN
// =============================================================================

// Reset clears all data (for demo scenarios).
func (s *Store) Reset(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		models := []any{&inviteRow{}, &chargeRow{}, &paymentRow{}, &expenseRow{}, &tenantRow{}, &buildingRow{}}
		for _, m := range models {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

var _ billing.Store = (*Store)(nil)
var _ billing.Resetter = (*Store)(nil)
