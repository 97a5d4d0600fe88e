package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantguard/pkg/directory"
	"github.com/dmitrymomot/tenantguard/pkg/tenant"
)

// GrantClaims is the payload of an impersonation grant: a short-lived,
// single-use authorization for one operator to act as one tenant.
type GrantClaims struct {
	TenantID int64  `json:"tid"`
	AdminID  string `json:"adm"`
	jwt.RegisteredClaims
}

// GrantLedger tracks redeemed grant ids so each grant is usable once.
type GrantLedger interface {
	// MarkUsed records the jti and reports whether this call was the first
	// use. The record only needs to live as long as the grant could still
	// be valid.
	MarkUsed(ctx context.Context, jti string, ttl time.Duration) (bool, error)
}

// Impersonator issues and redeems impersonation grants. Grants are HS256
// JWTs; redemption re-checks the tenant against the directory, so a grant
// issued before a suspension is worthless after it.
type Impersonator struct {
	secret []byte
	store  directory.Store
	ledger GrantLedger
	issuer string
	ttl    time.Duration
}

// ImpersonatorOption configures an Impersonator.
type ImpersonatorOption func(*Impersonator)

// WithGrantTTL sets the default grant lifetime.
func WithGrantTTL(ttl time.Duration) ImpersonatorOption {
	return func(i *Impersonator) {
		if ttl > 0 {
			i.ttl = ttl
		}
	}
}

// WithIssuer sets the iss claim.
func WithIssuer(issuer string) ImpersonatorOption {
	return func(i *Impersonator) {
		if issuer != "" {
			i.issuer = issuer
		}
	}
}

// WithLedger sets the single-use ledger. Defaults to an in-memory ledger,
// which is only safe for a single process.
func WithLedger(ledger GrantLedger) ImpersonatorOption {
	return func(i *Impersonator) {
		if ledger != nil {
			i.ledger = ledger
		}
	}
}

// NewImpersonator creates an Impersonator over the directory store.
func NewImpersonator(secret []byte, store directory.Store, opts ...ImpersonatorOption) (*Impersonator, error) {
	if len(secret) == 0 {
		return nil, ErrSecretMissing
	}
	if store == nil {
		return nil, ErrStoreNil
	}
	i := &Impersonator{
		secret: secret,
		store:  store,
		ledger: NewMemoryLedger(),
		issuer: "tenantguard",
		ttl:    15 * time.Minute,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Impersonate issues a grant for the operator to act as the tenant. The
// tenant must be live at issue time; ttl of zero uses the default.
func (i *Impersonator) Impersonate(ctx context.Context, adminID string, tenantID int64, ttl time.Duration) (string, error) {
	if adminID == "" {
		return "", fmt.Errorf("%w: admin id required", ErrGrantInvalid)
	}
	t, err := i.store.GetByID(ctx, tenantID)
	if err != nil {
		return "", fmt.Errorf("load tenant %d: %w", tenantID, err)
	}
	if err := tenant.CheckLiveness(t); err != nil {
		return "", err
	}

	if ttl <= 0 {
		ttl = i.ttl
	}
	now := time.Now()
	claims := GrantClaims{
		TenantID: t.ID,
		AdminID:  adminID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   t.PublicID.String(),
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	grant, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign grant: %w", err)
	}
	return grant, nil
}

// Redeem validates a grant and returns a context bound to the tenant with
// the impersonation marker set, so downstream writes are attributable to an
// operator session. Each grant redeems exactly once.
func (i *Impersonator) Redeem(ctx context.Context, grant string) (context.Context, *tenant.Tenant, error) {
	var claims GrantClaims
	_, err := jwt.ParseWithClaims(grant, &claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(i.issuer))
	if err != nil {
		return ctx, nil, fmt.Errorf("%w: %w", ErrGrantInvalid, err)
	}
	if claims.ID == "" || claims.TenantID == 0 {
		return ctx, nil, ErrGrantInvalid
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	first, err := i.ledger.MarkUsed(ctx, claims.ID, ttl)
	if err != nil {
		return ctx, nil, fmt.Errorf("grant ledger: %w", err)
	}
	if !first {
		return ctx, nil, ErrGrantUsed
	}

	t, err := i.store.GetByID(ctx, claims.TenantID)
	if err != nil {
		return ctx, nil, fmt.Errorf("load tenant %d: %w", claims.TenantID, err)
	}
	if err := tenant.CheckLiveness(t); err != nil {
		return ctx, nil, err
	}

	return tenant.WithImpersonation(ctx, t), t, nil
}

// MemoryLedger is a process-local single-use ledger.
type MemoryLedger struct {
	mu   sync.Mutex
	used map[string]time.Time
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{used: make(map[string]time.Time)}
}

func (l *MemoryLedger) MarkUsed(_ context.Context, jti string, ttl time.Duration) (bool, error) {
	if jti == "" {
		return false, errors.New("empty jti")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for id, expires := range l.used {
		if expires.Before(now) {
			delete(l.used, id)
		}
	}

	if _, seen := l.used[jti]; seen {
		return false, nil
	}
	l.used[jti] = now.Add(ttl)
	return true, nil
}
