/*
materialize.go - Monthly payment materialization

PURPOSE:
  "Tenants owe a monthly fee" is a rule, not a row. Materializing a month
  turns the rule into one Payment row per tenant for that month, so the
  committee can mark each one paid.

PROCESS:
  1. Load building, tenants and the month's existing payments
  2. For each tenant without a row: resolve the fee
     - fee <= 0: skip, counted and listed in the report
     - otherwise: build a Payment; paid up-front only for an active
       standing order (cash is marked manually by the committee)
  3. Insert all new rows in one transaction, insert-if-absent per
     (tenant, month)

INVARIANTS:
  - At most one payment per (tenant, month). The unique index in the store
    closes the check-then-insert gap between two committee members.
  - Idempotent: a second run for the same month writes nothing.
  - Never deletes or corrects a row. A wrong fee is fixed by a manual edit.

FAILURE:
  A rejected insert fails the whole run (MaterializeError) and nothing is
  written. Retrying the month is always safe.
*/
package billing

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"
)

// =============================================================================
// REPORT
// =============================================================================

// TenantRef names a tenant in user-facing reports.
type TenantRef struct {
	ID        TenantID `json:"id"`
	FullName  string   `json:"full_name"`
	Apartment string   `json:"apartment"`
}

func refOf(t Tenant) TenantRef {
	return TenantRef{ID: t.ID, FullName: t.FullName, Apartment: t.Apartment}
}

// Report counts what a materialization run did.
type Report struct {
	BuildingID     BuildingID
	Month          Month
	Created        int
	SkippedNoFee   int
	AlreadyExisted int
	Skipped        []TenantRef
	Payments       []Payment
}

// Summary is the message shown to the committee after a run.
func (r Report) Summary() string {
	msg := fmt.Sprintf("%s: created %d payments", r.Month, r.Created)
	if r.AlreadyExisted > 0 {
		msg += fmt.Sprintf(", %d already existed", r.AlreadyExisted)
	}
	if r.SkippedNoFee > 0 {
		msg += fmt.Sprintf(", %d tenants skipped (no fee configured)", r.SkippedNoFee)
	}
	return msg
}

// =============================================================================
// PLAN - Pure part of materialization
// =============================================================================

// PlanPayments decides which payments to create for the month. existing
// holds tenants that already have a payment row in that month.
func PlanPayments(month Month, building Building, tenants []Tenant, existing map[TenantID]bool, now time.Time, newID func() string) Report {
	report := Report{BuildingID: building.ID, Month: month}

	for _, t := range tenants {
		if existing[t.ID] {
			report.AlreadyExisted++
			continue
		}

		fee := TenantFee(t, building)
		if !fee.IsPositive() {
			report.SkippedNoFee++
			report.Skipped = append(report.Skipped, refOf(t))
			continue
		}

		p := Payment{
			ID:            PaymentID(newID()),
			BuildingID:    building.ID,
			TenantID:      t.ID,
			Month:         month,
			Amount:        fee,
			PaymentMethod: t.PaymentMethod,
			CreatedAt:     now,
		}
		if t.AutoPaid() {
			paidAt := now
			p.Paid = true
			p.PaidAt = &paidAt
		}
		report.Payments = append(report.Payments, p)
	}

	report.Created = len(report.Payments)
	return report
}

// =============================================================================
// MATERIALIZER
// =============================================================================

// MaterializeStore is the subset of Store the materializer needs.
type MaterializeStore interface {
	GetBuilding(ctx context.Context, id BuildingID) (*Building, error)
	ListTenants(ctx context.Context, buildingID BuildingID) ([]Tenant, error)
	ListPayments(ctx context.Context, buildingID BuildingID, filter PaymentFilter) ([]Payment, error)
	InsertPaymentsIfAbsent(ctx context.Context, payments []Payment) (int, error)
}

type Materializer struct {
	Store MaterializeStore
	Now   func() time.Time
	NewID func() string
}

func NewMaterializer(store MaterializeStore) *Materializer {
	return &Materializer{
		Store: store,
		Now:   func() time.Time { return time.Now().UTC() },
		NewID: NewID,
	}
}

// Materialize creates the month's missing payment rows for the scope's building.
func (m *Materializer) Materialize(ctx context.Context, scope BuildingScope, month Month) (Report, error) {
	if err := scope.RequireWrite(); err != nil {
		return Report{}, err
	}
	if !month.Valid() {
		return Report{}, fmt.Errorf("%w: %s", ErrInvalidMonth, month)
	}

	building, err := m.Store.GetBuilding(ctx, scope.BuildingID)
	if err != nil {
		return Report{}, err
	}

	tenants, err := m.Store.ListTenants(ctx, scope.BuildingID)
	if err != nil {
		return Report{}, &MaterializeError{BuildingID: scope.BuildingID, Month: month, Err: err}
	}

	existingRows, err := m.Store.ListPayments(ctx, scope.BuildingID, PaymentFilter{Month: &month})
	if err != nil {
		return Report{}, &MaterializeError{BuildingID: scope.BuildingID, Month: month, Err: err}
	}
	existing := make(map[TenantID]bool, len(existingRows))
	for _, p := range existingRows {
		existing[p.TenantID] = true
	}

	sort.SliceStable(tenants, func(i, j int) bool { return tenants[i].ID < tenants[j].ID })
	report := PlanPayments(month, *building, tenants, existing, m.Now(), m.NewID)

	if len(report.Payments) > 0 {
		inserted, err := m.Store.InsertPaymentsIfAbsent(ctx, report.Payments)
		if err != nil {
			return Report{}, &MaterializeError{BuildingID: scope.BuildingID, Month: month, Err: err}
		}
		if lost := report.Created - inserted; lost > 0 {
			// Another run inserted these between our read and our write.
			log.Printf("[Materializer] %d payments for %s/%s already written concurrently", lost, scope.BuildingID, month)
			report.Created = inserted
			report.AlreadyExisted += lost
			report.Payments, err = m.written(ctx, scope.BuildingID, month, report.Payments)
			if err != nil {
				return Report{}, &MaterializeError{BuildingID: scope.BuildingID, Month: month, Err: err}
			}
		}
	}

	log.Printf("[Materializer] building=%s %s", scope.BuildingID, report.Summary())
	return report, nil
}

// written keeps the planned payments that actually landed in the store.
func (m *Materializer) written(ctx context.Context, buildingID BuildingID, month Month, planned []Payment) ([]Payment, error) {
	rows, err := m.Store.ListPayments(ctx, buildingID, PaymentFilter{Month: &month})
	if err != nil {
		return nil, err
	}
	stored := make(map[PaymentID]bool, len(rows))
	for _, p := range rows {
		stored[p.ID] = true
	}
	var kept []Payment
	for _, p := range planned {
		if stored[p.ID] {
			kept = append(kept, p)
		}
	}
	return kept, nil
}
