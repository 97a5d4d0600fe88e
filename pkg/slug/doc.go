// Package slug derives URL-safe tenant slugs from display names. Slugs double
// as subdomains, so they are lowercase, ASCII, hyphen-separated, and bounded
// to a DNS label length. Unique resolves collisions deterministically with an
// incrementing numeric suffix, so two tenants named "Acme Corp" become
// "acme-corp" and "acme-corp-1".
package slug
