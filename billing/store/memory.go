// Package store provides billing.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Yairkad/vaad-bayit-sub000/billing"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	buildings map[billing.BuildingID]billing.Building
	tenants   map[billing.TenantID]billing.Tenant
	expenses  map[billing.ExpenseID]billing.Expense
	payments  map[billing.PaymentID]billing.Payment
	byMonth   map[paymentKey]billing.PaymentID
	charges   map[billing.ChargeID]billing.ExtraCharge
	invites   map[billing.InviteID]billing.Invite

	// FailInserts, when set, makes InsertPaymentsIfAbsent fail with it.
	FailInserts error
}

type paymentKey struct {
	TenantID billing.TenantID
	Month    billing.Month
}

func NewMemory() *Memory {
	m := &Memory{}
	m.init()
	return m
}

func (m *Memory) init() {
	m.buildings = make(map[billing.BuildingID]billing.Building)
	m.tenants = make(map[billing.TenantID]billing.Tenant)
	m.expenses = make(map[billing.ExpenseID]billing.Expense)
	m.payments = make(map[billing.PaymentID]billing.Payment)
	m.byMonth = make(map[paymentKey]billing.PaymentID)
	m.charges = make(map[billing.ChargeID]billing.ExtraCharge)
	m.invites = make(map[billing.InviteID]billing.Invite)
}

// Reset drops every row.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	return nil
}

// =============================================================================
// BUILDINGS
// =============================================================================

func (m *Memory) SaveBuilding(_ context.Context, b billing.Building) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	m.buildings[b.ID] = b
	return nil
}

func (m *Memory) GetBuilding(_ context.Context, id billing.BuildingID) (*billing.Building, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.buildings[id]
	if !ok {
		return nil, billing.ErrNotFound
	}
	return &b, nil
}

func (m *Memory) ListBuildings(_ context.Context) ([]billing.Building, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]billing.Building, 0, len(m.buildings))
	for _, b := range m.buildings {
		result = append(result, b)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// =============================================================================
// TENANTS
// =============================================================================

func (m *Memory) SaveTenant(_ context.Context, t billing.Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	m.tenants[t.ID] = t
	return nil
}

func (m *Memory) GetTenant(_ context.Context, buildingID billing.BuildingID, id billing.TenantID) (*billing.Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tenants[id]
	if !ok || t.BuildingID != buildingID {
		return nil, billing.ErrNotFound
	}
	return &t, nil
}

func (m *Memory) ListTenants(_ context.Context, buildingID billing.BuildingID) ([]billing.Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []billing.Tenant
	for _, t := range m.tenants {
		if t.BuildingID == buildingID {
			result = append(result, t)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Floor != result[j].Floor {
			return result[i].Floor < result[j].Floor
		}
		return result[i].Apartment < result[j].Apartment
	})
	return result, nil
}

func (m *Memory) DeleteTenant(_ context.Context, buildingID billing.BuildingID, id billing.TenantID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tenants[id]
	if !ok || t.BuildingID != buildingID {
		return billing.ErrNotFound
	}
	delete(m.tenants, id)
	return nil
}

// =============================================================================
// EXPENSES
// =============================================================================

func (m *Memory) SaveExpense(_ context.Context, e billing.Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	m.expenses[e.ID] = e
	return nil
}

func (m *Memory) GetExpense(_ context.Context, buildingID billing.BuildingID, id billing.ExpenseID) (*billing.Expense, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.expenses[id]
	if !ok || e.BuildingID != buildingID {
		return nil, billing.ErrNotFound
	}
	return &e, nil
}

func (m *Memory) ListExpenses(_ context.Context, buildingID billing.BuildingID) ([]billing.Expense, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []billing.Expense
	for _, e := range m.expenses {
		if e.BuildingID == buildingID {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

func (m *Memory) DeleteExpense(_ context.Context, buildingID billing.BuildingID, id billing.ExpenseID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.expenses[id]
	if !ok || e.BuildingID != buildingID {
		return billing.ErrNotFound
	}
	delete(m.expenses, id)
	return nil
}

// =============================================================================
// PAYMENTS
// =============================================================================

func (m *Memory) ListPayments(_ context.Context, buildingID billing.BuildingID, f billing.PaymentFilter) ([]billing.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []billing.Payment
	for _, p := range m.payments {
		if p.BuildingID != buildingID {
			continue
		}
		if f.Month != nil && p.Month != *f.Month {
			continue
		}
		if f.Through != nil && p.Month.After(*f.Through) {
			continue
		}
		if f.TenantID != "" && p.TenantID != f.TenantID {
			continue
		}
		if f.Paid != nil && p.Paid != *f.Paid {
			continue
		}
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Month != result[j].Month {
			return result[i].Month.Before(result[j].Month)
		}
		return result[i].TenantID < result[j].TenantID
	})
	return result, nil
}

func (m *Memory) GetPayment(_ context.Context, buildingID billing.BuildingID, id billing.PaymentID) (*billing.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.payments[id]
	if !ok || p.BuildingID != buildingID {
		return nil, billing.ErrNotFound
	}
	return &p, nil
}

func (m *Memory) UpdatePayment(_ context.Context, p billing.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.payments[p.ID]
	if !ok || existing.BuildingID != p.BuildingID {
		return billing.ErrNotFound
	}
	existing.Amount = p.Amount
	existing.Paid = p.Paid
	existing.PaidAt = p.PaidAt
	existing.PaymentMethod = p.PaymentMethod
	m.payments[p.ID] = existing
	return nil
}

// InsertPaymentsIfAbsent inserts all new (tenant, month) pairs atomically.
func (m *Memory) InsertPaymentsIfAbsent(_ context.Context, payments []billing.Payment) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailInserts != nil {
		return 0, m.FailInserts
	}

	inserted := 0
	for _, p := range payments {
		k := paymentKey{TenantID: p.TenantID, Month: p.Month}
		if _, exists := m.byMonth[k]; exists {
			continue
		}
		m.payments[p.ID] = p
		m.byMonth[k] = p.ID
		inserted++
	}
	return inserted, nil
}

// =============================================================================
// EXTRA CHARGES
// =============================================================================

func (m *Memory) SaveCharge(_ context.Context, c billing.ExtraCharge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	m.charges[c.ID] = c
	return nil
}

func (m *Memory) GetCharge(_ context.Context, buildingID billing.BuildingID, id billing.ChargeID) (*billing.ExtraCharge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.charges[id]
	if !ok || c.BuildingID != buildingID {
		return nil, billing.ErrNotFound
	}
	return &c, nil
}

func (m *Memory) ListCharges(_ context.Context, buildingID billing.BuildingID, tenantID billing.TenantID) ([]billing.ExtraCharge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []billing.ExtraCharge
	for _, c := range m.charges {
		if c.BuildingID != buildingID || (tenantID != "" && c.TenantID != tenantID) {
			continue
		}
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

func (m *Memory) DeleteCharge(_ context.Context, buildingID billing.BuildingID, id billing.ChargeID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.charges[id]
	if !ok || c.BuildingID != buildingID {
		return billing.ErrNotFound
	}
	delete(m.charges, id)
	return nil
}

// =============================================================================
// INVITES
// =============================================================================

func (m *Memory) SaveInvite(_ context.Context, inv billing.Invite) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invites[inv.ID] = inv
	return nil
}

func (m *Memory) GetInvite(_ context.Context, id billing.InviteID) (*billing.Invite, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inv, ok := m.invites[id]
	if !ok {
		return nil, billing.ErrNotFound
	}
	return &inv, nil
}

func (m *Memory) ListInvites(_ context.Context, buildingID billing.BuildingID) ([]billing.Invite, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []billing.Invite
	for _, inv := range m.invites {
		if inv.BuildingID == buildingID {
			result = append(result, inv)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (m *Memory) RedeemInvite(_ context.Context, inv billing.Invite, tenant billing.Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.invites[inv.ID]
	if !ok {
		return billing.ErrNotFound
	}
	if stored.Redeemed() {
		return billing.ErrInviteRedeemed
	}
	stored.RedeemedAt = inv.RedeemedAt
	stored.RedeemedBy = inv.RedeemedBy
	m.invites[inv.ID] = stored
	if tenant.CreatedAt.IsZero() {
		tenant.CreatedAt = time.Now().UTC()
	}
	m.tenants[tenant.ID] = tenant
	return nil
}

var _ billing.Store = (*Memory)(nil)
var _ billing.Resetter = (*Memory)(nil)
