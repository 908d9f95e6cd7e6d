package extractor

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/user/places-extractor/internal/contact"
	"github.com/user/places-extractor/internal/entity"
	"github.com/user/places-extractor/pkg/utils"
)

const (
	minNameLength     = 2
	minAddressLength  = 6
	minCategoryLength = 3
)

var (
	ratingPattern  = regexp.MustCompile(`\d+(?:\.\d+)?`)
	reviewsPattern = regexp.MustCompile(`\d+(?:,\d{3})*`)
)

// phoneAttributes are read, in order, before an element's text.
var phoneAttributes = []string{"aria-label", "href", "data-item-id"}

// Resolver reads the fields of one detail view. Every field resolves
// independently; a field no locator satisfies takes its placeholder.
type Resolver struct {
	driver PageDriver
	loc    *Locators
	settle Range
}

// NewResolver binds a resolver to d. settle is waited after each navigation.
func NewResolver(d PageDriver, loc *Locators, settle Range) *Resolver {
	return &Resolver{driver: d, loc: loc, settle: settle}
}

// Resolve navigates to ref and returns the partial record read from it.
// Navigation failures and an unresolvable name are errors; every other field
// failure degrades to its default.
func (r *Resolver) Resolve(ctx context.Context, ref string) (*entity.BusinessRecord, error) {
	if err := r.driver.Navigate(ctx, ref); err != nil {
		return nil, fmt.Errorf("open detail view: %w", err)
	}
	if err := r.driver.Wait(ctx, r.settle.Pick()); err != nil {
		return nil, err
	}

	name, ok := firstValue(ctx, r.driver, r.loc.Name, textOfLength(minNameLength))
	if !ok {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNameUnresolved
	}

	rec := &entity.BusinessRecord{
		Name:            name,
		Address:         entity.UnknownAddress,
		Category:        entity.UnknownCategory,
		SourceReference: ref,
	}
	if v, ok := firstValue(ctx, r.driver, r.loc.Address, textOfLength(minAddressLength)); ok {
		rec.Address = v
	}
	if v, ok := firstValue(ctx, r.driver, r.loc.Category, textOfLength(minCategoryLength)); ok {
		rec.Category = v
	}
	if v, ok := firstValue(ctx, r.driver, r.loc.Rating, matchOf(ratingPattern)); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			rec.Rating = &f
		}
	}
	if v, ok := firstValue(ctx, r.driver, r.loc.Reviews, matchOf(reviewsPattern)); ok {
		if n, err := strconv.Atoi(strings.ReplaceAll(v, ",", "")); err == nil {
			rec.ReviewCount = &n
		}
	}
	if v, ok := firstValue(ctx, r.driver, r.loc.Website, r.externalLink); ok {
		rec.Website = v
	}
	if v, ok := firstValue(ctx, r.driver, r.loc.Phone, phoneOf); ok {
		rec.Phone = v
	} else if v, ok := firstValue(ctx, r.driver, r.loc.PhoneText, phoneOf); ok {
		rec.Phone = v
	}
	return rec, nil
}

// IsExternal reports whether link leaves the directory.
func (r *Resolver) IsExternal(link string) bool {
	if !utils.IsHTTPURL(link) {
		return false
	}
	lower := strings.ToLower(link)
	for _, frag := range r.loc.WebsiteExclude {
		if strings.Contains(lower, frag) {
			return false
		}
	}
	return true
}

func (r *Resolver) externalLink(ctx context.Context, el Element) (string, bool) {
	href, err := el.Attribute(ctx, "href")
	if err != nil {
		return "", false
	}
	href = strings.TrimSpace(href)
	return href, r.IsExternal(href)
}

func textOfLength(minLen int) func(context.Context, Element) (string, bool) {
	return func(ctx context.Context, el Element) (string, bool) {
		text, err := el.Text(ctx)
		if err != nil {
			return "", false
		}
		text = strings.TrimSpace(text)
		return text, len(text) >= minLen
	}
}

// matchOf returns the first match of re in the element's text, falling back
// to its aria-label for icon-only elements.
func matchOf(re *regexp.Regexp) func(context.Context, Element) (string, bool) {
	return func(ctx context.Context, el Element) (string, bool) {
		text, _ := el.Text(ctx)
		if strings.TrimSpace(text) == "" {
			text, _ = el.Attribute(ctx, "aria-label")
		}
		m := re.FindString(text)
		return m, m != ""
	}
}

func phoneOf(ctx context.Context, el Element) (string, bool) {
	for _, attr := range phoneAttributes {
		if v, err := el.Attribute(ctx, attr); err == nil && v != "" {
			if phone, ok := contact.FindPhone(v); ok {
				return phone, true
			}
		}
	}
	text, err := el.Text(ctx)
	if err != nil {
		return "", false
	}
	return contact.FindPhone(text)
}
