/*
Package invite issues and redeems one-time links that attach a user account
to a building.

FLOW:
  1. A committee member creates an invite, optionally bound to an existing
     tenant row. A random code is generated and shown once; only its bcrypt
     hash is stored.
  2. The invitee opens the link and redeems it with the code. The invite is
     marked used and the tenant row is created or linked in one store
     transaction.

RULES:
  - Expired, used or wrong-code invites are rejected.
  - Committee invites can only be issued by committee members or admins.
*/
package invite

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Yairkad/vaad-bayit-sub000/billing"
)

// Store is the persistence the service needs.
type Store interface {
	billing.InviteStore
	GetTenant(ctx context.Context, buildingID billing.BuildingID, id billing.TenantID) (*billing.Tenant, error)
}

// Service creates and redeems invites.
type Service struct {
	Store Store
	TTL   time.Duration
	Cost  int
	Now   func() time.Time
	NewID func() string
}

func NewService(store Store, ttl time.Duration) *Service {
	return &Service{
		Store: store,
		TTL:   ttl,
		Cost:  bcrypt.DefaultCost,
		Now:   func() time.Time { return time.Now().UTC() },
		NewID: billing.NewID,
	}
}

// CreateRequest describes a new invite.
type CreateRequest struct {
	TenantID billing.TenantID
	Role     billing.Role
}

// Created is a new invite plus its plaintext code. The code is not
// recoverable later.
type Created struct {
	Invite billing.Invite
	Code   string
}

// Create issues an invite for the scope's building.
func (s *Service) Create(ctx context.Context, scope billing.BuildingScope, req CreateRequest) (Created, error) {
	if err := scope.RequireWrite(); err != nil {
		return Created{}, err
	}

	role := req.Role
	if role == "" {
		role = billing.RoleTenant
	}
	if role != billing.RoleTenant && role != billing.RoleCommittee {
		return Created{}, billing.Invalid("role", "must be tenant or committee")
	}

	if req.TenantID != "" {
		if _, err := s.Store.GetTenant(ctx, scope.BuildingID, req.TenantID); err != nil {
			return Created{}, err
		}
	}

	code, err := newCode()
	if err != nil {
		return Created{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.Cost)
	if err != nil {
		return Created{}, fmt.Errorf("failed to hash invite code: %w", err)
	}

	now := s.Now()
	inv := billing.Invite{
		ID:         billing.InviteID(s.NewID()),
		BuildingID: scope.BuildingID,
		TenantID:   req.TenantID,
		Role:       role,
		SecretHash: hash,
		ExpiresAt:  now.Add(s.TTL),
		CreatedBy:  scope.UserID,
		CreatedAt:  now,
	}
	if err := s.Store.SaveInvite(ctx, inv); err != nil {
		return Created{}, err
	}

	log.Printf("[Invite] created %s for building=%s role=%s", inv.ID, inv.BuildingID, inv.Role)
	return Created{Invite: inv, Code: code}, nil
}

// RedeemRequest is what the invitee submits.
type RedeemRequest struct {
	Code     string
	UserID   billing.UserID
	FullName string
}

// Redemption is the result of a successful redeem: the tenant row and the
// scope the identity provider should grant the user.
type Redemption struct {
	Tenant billing.Tenant
	Scope  billing.BuildingScope
}

// Redeem validates the code and attaches the user to the building.
func (s *Service) Redeem(ctx context.Context, id billing.InviteID, req RedeemRequest) (Redemption, error) {
	if req.UserID == "" {
		return Redemption{}, billing.Invalid("user_id", "required")
	}
	if req.Code == "" {
		return Redemption{}, billing.Invalid("code", "required")
	}

	inv, err := s.Store.GetInvite(ctx, id)
	if err != nil {
		return Redemption{}, err
	}

	now := s.Now()
	if inv.Redeemed() {
		return Redemption{}, billing.ErrInviteRedeemed
	}
	if !now.Before(inv.ExpiresAt) {
		return Redemption{}, billing.ErrInviteExpired
	}
	if err := bcrypt.CompareHashAndPassword(inv.SecretHash, []byte(normalize(req.Code))); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return Redemption{}, billing.ErrInviteSecret
		}
		return Redemption{}, fmt.Errorf("failed to check invite code: %w", err)
	}

	var tenant billing.Tenant
	if inv.TenantID != "" {
		existing, err := s.Store.GetTenant(ctx, inv.BuildingID, inv.TenantID)
		if err != nil {
			return Redemption{}, err
		}
		tenant = *existing
	} else {
		if strings.TrimSpace(req.FullName) == "" {
			return Redemption{}, billing.Invalid("full_name", "required")
		}
		tenant = billing.Tenant{
			ID:            billing.TenantID(s.NewID()),
			BuildingID:    inv.BuildingID,
			FullName:      strings.TrimSpace(req.FullName),
			PaymentMethod: billing.MethodCash,
			CreatedAt:     now,
		}
	}
	tenant.UserID = req.UserID

	inv.RedeemedAt = &now
	inv.RedeemedBy = req.UserID
	if err := s.Store.RedeemInvite(ctx, *inv, tenant); err != nil {
		return Redemption{}, err
	}

	log.Printf("[Invite] %s redeemed by user=%s building=%s", inv.ID, req.UserID, inv.BuildingID)
	return Redemption{
		Tenant: tenant,
		Scope:  billing.BuildingScope{BuildingID: inv.BuildingID, UserID: req.UserID, Role: inv.Role},
	}, nil
}

// Link builds the URL sent to the invitee.
func Link(baseURL string, id billing.InviteID, code string) string {
	return fmt.Sprintf("%s/join/%s?code=%s", strings.TrimRight(baseURL, "/"), url.PathEscape(string(id)), url.QueryEscape(code))
}

// newCode returns 10 random bytes as 16 base32 characters.
func newCode() (string, error) {
	b := make([]byte, 10)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate invite code: %w", err)
	}
	return base32.StdEncoding.EncodeToString(b), nil
}

// normalize accepts codes typed in lower case or with spaces.
func normalize(code string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(code), " ", ""))
}
