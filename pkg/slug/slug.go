package slug

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

// MaxLength is the upper bound for generated slugs, chosen for DNS label
// compatibility since tenant slugs become subdomains.
const MaxLength = 63

// diacriticMap maps common Latin diacritics to ASCII equivalents.
// Covers major European languages, not exhaustive for all Unicode ranges.
var diacriticMap = map[rune]rune{
	'à': 'a', 'á': 'a', 'â': 'a', 'ã': 'a', 'ä': 'a', 'å': 'a', 'ā': 'a', 'ă': 'a', 'ą': 'a',
	'ç': 'c', 'ć': 'c', 'č': 'c',
	'đ': 'd', 'ď': 'd',
	'è': 'e', 'é': 'e', 'ê': 'e', 'ë': 'e', 'ē': 'e', 'ė': 'e', 'ę': 'e', 'ě': 'e',
	'ì': 'i', 'í': 'i', 'î': 'i', 'ï': 'i', 'ī': 'i', 'į': 'i',
	'ł': 'l',
	'ñ': 'n', 'ń': 'n', 'ň': 'n',
	'ò': 'o', 'ó': 'o', 'ô': 'o', 'õ': 'o', 'ö': 'o', 'ø': 'o', 'ō': 'o',
	'ř': 'r',
	'ß': 's', 'ś': 's', 'š': 's', 'ş': 's',
	'ť': 't', 'ț': 't',
	'ù': 'u', 'ú': 'u', 'û': 'u', 'ü': 'u', 'ū': 'u', 'ů': 'u',
	'ý': 'y', 'ÿ': 'y',
	'ź': 'z', 'ż': 'z', 'ž': 'z',
}

// Make derives a URL-safe, lowercase slug from the input string. Letters and
// digits pass through, common diacritics are normalized to ASCII, and every
// other run of characters collapses into a single hyphen. The result is
// truncated to MaxLength.
func Make(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	lastWasSep := true // avoid leading separator
	count := 0

	for _, r := range s {
		if count >= MaxLength {
			break
		}

		r = unicode.ToLower(r)
		if normalized, ok := diacriticMap[r]; ok {
			r = normalized
		}

		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastWasSep = false
			count++
			continue
		}

		if !lastWasSep {
			b.WriteByte('-')
			lastWasSep = true
			count++
		}
	}

	return strings.Trim(b.String(), "-")
}

// ExistsFunc reports whether a candidate slug is already taken.
type ExistsFunc func(ctx context.Context, slug string) (bool, error)

// maxUniqueAttempts bounds the collision probe so a pathological exists
// function cannot spin forever.
const maxUniqueAttempts = 1000

// Unique derives a slug from name and resolves collisions deterministically
// by appending an incrementing numeric suffix: "acme-corp", "acme-corp-1",
// "acme-corp-2", and so on. The first free candidate wins.
func Unique(ctx context.Context, name string, exists ExistsFunc) (string, error) {
	base := Make(name)
	if base == "" {
		return "", ErrEmptySlug
	}

	candidate := base
	for i := range maxUniqueAttempts {
		if i > 0 {
			suffix := fmt.Sprintf("-%d", i)
			candidate = base + suffix
			if len(candidate) > MaxLength {
				candidate = base[:MaxLength-len(suffix)] + suffix
			}
		}

		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check slug %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
	}

	return "", ErrTooManyCollisions
}
