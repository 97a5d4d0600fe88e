package tenant

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

const (
	// MaxIdentifierLength prevents abuse via very long identifiers and keeps
	// slug-derived identifiers DNS-compatible.
	MaxIdentifierLength = 63
	MinIdentifierLength = 1
)

// identifierPattern ensures safe identifiers: alphanumeric start, allows hyphens.
var identifierPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]*$`)

func isValidIdentifier(id string) bool {
	if len(id) < MinIdentifierLength || len(id) > MaxIdentifierLength {
		return false
	}
	return identifierPattern.MatchString(id)
}

// Resolver extracts a tenant identifier from an HTTP request.
// Returns empty string if no tenant is found, error if extraction failed.
type Resolver func(r *http.Request) (string, error)

// PrincipalLookup reports the tenant identifier bound to the authenticated
// principal of the request, or empty string when the request is anonymous or
// the principal carries no tenant binding.
type PrincipalLookup func(r *http.Request) (string, error)

// NewPrincipalResolver resolves the tenant from the authenticated principal.
// This is the dominant strategy: login-based identification is preferred over
// network-level identification.
func NewPrincipalResolver(lookup PrincipalLookup) Resolver {
	return func(req *http.Request) (string, error) {
		if lookup == nil {
			return "", errors.New("principal resolver: lookup not configured")
		}
		id, err := lookup(req)
		if err != nil {
			return "", fmt.Errorf("principal resolver: %w", err)
		}
		return id, nil
	}
}

// NewDomainResolver resolves tenants served from verified custom domains.
// Any host that does not belong to the platform's base domain is treated as a
// custom domain and returned verbatim (prefixed so providers can distinguish
// domain lookups from slug lookups). Hosts under baseDomain yield empty string
// so the chain can fall through to the subdomain strategy.
func NewDomainResolver(baseDomain string) Resolver {
	baseDomain = strings.TrimPrefix(baseDomain, ".")
	return func(req *http.Request) (string, error) {
		host := req.Host
		if idx := strings.LastIndex(host, ":"); idx != -1 {
			host = host[:idx]
		}
		if host == "" || baseDomain == "" {
			return "", nil
		}
		if host == baseDomain || strings.HasSuffix(host, "."+baseDomain) {
			return "", nil
		}
		return DomainIdentifier(host), nil
	}
}

// domainPrefix marks identifiers produced by the custom-domain strategy.
const domainPrefix = "domain:"

// DomainIdentifier builds the provider identifier for a custom domain host.
func DomainIdentifier(host string) string {
	return domainPrefix + strings.ToLower(host)
}

// SplitDomainIdentifier reports whether the identifier is a custom-domain
// lookup and, if so, the bare host.
func SplitDomainIdentifier(identifier string) (string, bool) {
	if strings.HasPrefix(identifier, domainPrefix) {
		return strings.TrimPrefix(identifier, domainPrefix), true
	}
	return "", false
}

// NewSubdomainResolver extracts the tenant slug from the request subdomain,
// optionally stripping a configured suffix (e.g. ".saas.com").
// Returns empty string for the base domain.
func NewSubdomainResolver(suffix string) Resolver {
	return func(req *http.Request) (string, error) {
		host := req.Host

		// Remove port if present
		if idx := strings.LastIndex(host, ":"); idx != -1 {
			host = host[:idx]
		}

		originalParts := strings.Split(host, ".")

		if suffix != "" && strings.HasSuffix(host, suffix) && len(host) > len(suffix) {
			host = host[:len(host)-len(suffix)]
		}

		parts := strings.Split(host, ".")
		if len(parts) == 0 || parts[0] == "" {
			return "", nil
		}

		subdomain := parts[0]
		// Skip www prefix, use next subdomain if available
		if subdomain == "www" {
			if len(parts) > 1 {
				subdomain = parts[1]
			} else {
				return "", nil
			}
		}

		// Require at least 3 parts for proper subdomain.domain.tld structure
		if len(originalParts) < 3 {
			return "", nil
		}

		subdomain = strings.TrimSpace(subdomain)
		if subdomain == "" {
			return "", nil
		}
		if !isValidIdentifier(subdomain) {
			return "", fmt.Errorf("%w: subdomain %q", ErrInvalidIdentifier, subdomain)
		}
		return subdomain, nil
	}
}

// NewHeaderResolver extracts the tenant identifier from an HTTP header,
// for service-to-service and API calls. Defaults to "X-Tenant-ID" if
// headerName is empty.
func NewHeaderResolver(headerName string) Resolver {
	if headerName == "" {
		headerName = "X-Tenant-ID"
	}
	return func(req *http.Request) (string, error) {
		value := strings.TrimSpace(req.Header.Get(headerName))
		if value == "" {
			return "", nil
		}
		if !isValidIdentifier(value) {
			return "", fmt.Errorf("%w: header value %q", ErrInvalidIdentifier, value)
		}
		return value, nil
	}
}

// SessionData is the minimal session interface needed by the session resolver.
type SessionData interface {
	GetString(key string) string
}

// NewSessionResolver extracts the tenant identifier from an established
// session binding. Useful for applications where users switch between tenants.
func NewSessionResolver(getSession func(r *http.Request) (SessionData, error)) Resolver {
	return func(req *http.Request) (string, error) {
		if getSession == nil {
			return "", errors.New("session resolver: GetSession function not configured")
		}
		session, err := getSession(req)
		if err != nil {
			return "", fmt.Errorf("session resolver: %w", err)
		}
		if session == nil {
			return "", nil
		}
		return session.GetString("tenant_id"), nil
	}
}

// NewChainResolver tries resolvers in priority order, returning the first
// non-empty result. The canonical order is principal, custom domain,
// subdomain, header, session. Aggregates errors from all resolvers for
// debugging.
func NewChainResolver(resolvers ...Resolver) Resolver {
	return func(r *http.Request) (string, error) {
		var errs []error
		for _, resolve := range resolvers {
			id, err := resolve(r)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if id != "" {
				return id, nil
			}
		}
		if len(errs) > 0 {
			return "", fmt.Errorf("chain resolver: %w", errors.Join(errs...))
		}
		return "", nil
	}
}
