package carrier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantguard/pkg/tenant"
)

// Token is the serializable snapshot of a tenant binding. It crosses
// execution boundaries (task queues, schedulers, worker pools) embedded in
// the unit of work and is turned back into an active context by a Restorer
// on the consuming side.
type Token struct {
	TenantID     int64     `json:"tenant_id"`
	PublicID     uuid.UUID `json:"public_id"`
	Slug         string    `json:"slug,omitempty"`
	Impersonated bool      `json:"impersonated,omitempty"`
	CapturedAt   time.Time `json:"captured_at"`
}

// Zero reports whether the token carries no tenant reference.
func (t Token) Zero() bool {
	return t.TenantID == 0 && t.PublicID == uuid.Nil
}

// Capture snapshots the active tenant binding from the context. Capture
// inside an unscoped bypass block snapshots the underlying tenant if one is
// bound; the bypass itself never travels.
func Capture(ctx context.Context) (Token, error) {
	t, ok := tenant.FromContext(ctx)
	if !ok {
		return Token{}, ErrNoTenantToCapture
	}
	return Token{
		TenantID:     t.ID,
		PublicID:     t.PublicID,
		Slug:         t.Slug,
		Impersonated: tenant.IsImpersonated(ctx),
		CapturedAt:   time.Now().UTC(),
	}, nil
}

// CaptureOptional is Capture for explicitly tenant-neutral work: it returns
// the zero Token and false when no tenant is bound instead of an error.
func CaptureOptional(ctx context.Context) (Token, bool) {
	tok, err := Capture(ctx)
	if err != nil {
		return Token{}, false
	}
	return tok, true
}

// Hook runs during restore with the re-validated tenant and returns its
// teardown. Hooks configure tenant-dependent execution state (connection
// routing, logger fields, feature flags); teardowns unwind in reverse order
// when the guard is released.
type Hook func(ctx context.Context, t *tenant.Tenant) (teardown func(), err error)

// Restorer rebuilds tenant contexts from tokens. The tenant is always
// re-fetched and liveness-checked at restore time; a token is a reference,
// not a cached authorization.
type Restorer struct {
	provider tenant.Provider
	hooks    []Hook
	log      *slog.Logger
}

// RestorerOption configures a Restorer.
type RestorerOption func(*Restorer)

// WithHook appends a restore hook. Hooks run in registration order.
func WithHook(h Hook) RestorerOption {
	return func(r *Restorer) {
		r.hooks = append(r.hooks, h)
	}
}

// WithLogger sets the logger used for release-path diagnostics.
func WithLogger(log *slog.Logger) RestorerOption {
	return func(r *Restorer) {
		r.log = log
	}
}

// NewRestorer creates a Restorer backed by the given tenant provider.
func NewRestorer(provider tenant.Provider, opts ...RestorerOption) (*Restorer, error) {
	if provider == nil {
		return nil, errors.New("provider cannot be nil")
	}
	r := &Restorer{
		provider: provider,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Restore turns a token back into an active tenant context. The tenant is
// looked up fresh and liveness-checked, so work captured before a suspension
// fails here instead of executing. The returned Guard must be released when
// the unit of work finishes, success or failure.
func (r *Restorer) Restore(ctx context.Context, tok Token) (context.Context, *Guard, error) {
	if tok.Zero() {
		return ctx, nil, fmt.Errorf("%w: %w", ErrRestoreFailed, ErrInvalidToken)
	}

	t, err := r.provider.GetByIdentifier(ctx, tok.PublicID.String())
	if err != nil {
		return ctx, nil, fmt.Errorf("%w: lookup tenant %s: %w", ErrRestoreFailed, tok.PublicID, err)
	}
	if err := tenant.CheckLiveness(t); err != nil {
		return ctx, nil, fmt.Errorf("%w: %w: %w", ErrRestoreFailed, ErrTenantNotRunnable, err)
	}

	if tok.Impersonated {
		ctx = tenant.WithImpersonation(ctx, t)
	} else {
		ctx = tenant.WithTenant(ctx, t)
	}

	guard := &Guard{log: r.log, slug: t.Slug}
	for i, hook := range r.hooks {
		teardown, err := hook(ctx, t)
		if err != nil {
			guard.Release()
			return ctx, nil, fmt.Errorf("%w: restore hook %d: %w", ErrRestoreFailed, i, err)
		}
		if teardown != nil {
			guard.teardowns = append(guard.teardowns, teardown)
		}
	}
	return ctx, guard, nil
}

// Run restores the token, executes fn under the restored context, and
// releases the guard unconditionally, panics included.
func (r *Restorer) Run(ctx context.Context, tok Token, fn func(ctx context.Context) error) error {
	ctx, guard, err := r.Restore(ctx, tok)
	if err != nil {
		return err
	}
	defer guard.Release()
	return fn(ctx)
}

// WrapHandler adapts a token-carrying handler so the tenant context is
// restored around the body and released afterward, including on panic.
// Zero tokens run the handler as-is on the neutral context.
func WrapHandler(r *Restorer, fn func(ctx context.Context) error) func(ctx context.Context, tok Token) error {
	return func(ctx context.Context, tok Token) error {
		if tok.Zero() {
			return fn(ctx)
		}
		return r.Run(ctx, tok, fn)
	}
}

// Guard owns the teardown of a restored tenant context. Release is
// idempotent and unwinds hooks in reverse registration order; a teardown
// panic does not stop the remaining teardowns.
type Guard struct {
	once      sync.Once
	teardowns []func()
	log       *slog.Logger
	slug      string
}

// Release unwinds the restore hooks. Safe to call more than once.
func (g *Guard) Release() {
	g.once.Do(func() {
		for i := len(g.teardowns) - 1; i >= 0; i-- {
			g.runTeardown(i)
		}
		g.teardowns = nil
	})
}

func (g *Guard) runTeardown(i int) {
	defer func() {
		if rec := recover(); rec != nil {
			g.log.Error("carrier teardown panicked",
				slog.String("tenant_slug", g.slug),
				slog.Int("hook", i),
				slog.Any("panic", rec))
		}
	}()
	g.teardowns[i]()
}
