package extractor

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"
)

// SearchURL builds the result-list address for query.
func SearchURL(base, query string) string {
	return base + url.QueryEscape(strings.TrimSpace(query))
}

// dismissConsent clicks the first consent button that accepts a click.
// An absent interstitial is the common case and is not reported.
func dismissConsent(ctx context.Context, d PageDriver, locs []Locator, settle time.Duration) bool {
	for _, loc := range locs {
		els, err := d.FindAll(ctx, loc)
		if err != nil || len(els) == 0 {
			continue
		}
		if err := els[0].Click(ctx); err != nil {
			continue
		}
		slog.Debug("Consent interstitial dismissed", "locator", loc.String())
		_ = d.Wait(ctx, settle)
		return true
	}
	return false
}

// awaitResults polls the result indicators until one matches or polls run out.
func awaitResults(ctx context.Context, d PageDriver, locs []Locator, polls int, interval time.Duration) bool {
	for i := 0; i < polls; i++ {
		for _, loc := range locs {
			els, err := d.FindAll(ctx, loc)
			if err == nil && len(els) > 0 {
				return true
			}
		}
		if err := d.Wait(ctx, interval); err != nil {
			return false
		}
	}
	return false
}

// firstValue walks locators in order and, for each, its elements in document
// order, returning the first value read accepts. Locator errors fall through
// to the next candidate.
func firstValue(ctx context.Context, d PageDriver, locs []Locator, read func(context.Context, Element) (string, bool)) (string, bool) {
	for _, loc := range locs {
		if ctx.Err() != nil {
			return "", false
		}
		els, err := d.FindAll(ctx, loc)
		if err != nil {
			continue
		}
		for _, el := range els {
			if v, ok := read(ctx, el); ok {
				return v, true
			}
		}
	}
	return "", false
}
