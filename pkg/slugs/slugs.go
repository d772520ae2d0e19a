package slugs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gosimple/slug"
)

const maxAttempts = 100

var ErrEmptySlug = errors.New("empty_slug")

// ExistsFunc reports whether a candidate slug is already taken.
type ExistsFunc func(ctx context.Context, candidate string) (bool, error)

// Unique slugifies source and appends -2, -3, ... until exists reports the candidate free.
// maxLen <= 0 disables truncation.
func Unique(ctx context.Context, source string, maxLen int, exists ExistsFunc) (string, error) {
	base := truncate(slug.Make(source), maxLen)
	if base == "" {
		return "", ErrEmptySlug
	}

	candidate := base
	for attempt := 2; attempt <= maxAttempts+1; attempt++ {
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		suffix := fmt.Sprintf("-%d", attempt)
		candidate = truncate(base, maxLen-len(suffix)) + suffix
	}
	return "", fmt.Errorf("no free slug for %q after %d attempts", base, maxAttempts)
}

func truncate(value string, maxLen int) string {
	if maxLen <= 0 || len(value) <= maxLen {
		return value
	}
	return strings.TrimRight(value[:maxLen], "-")
}
