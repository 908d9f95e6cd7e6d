package extractor

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/user/places-extractor/internal/contact"
	"github.com/user/places-extractor/pkg/utils"
)

// Visit is the outcome of one secondary-source visit.
type Visit struct {
	// Visited is true only when the website loaded and its content was read.
	Visited bool
	// Website holds candidates from the landing page followed by the contact page.
	Website contact.Bundle
	// ContactPage is the address of the followed contact page, if any.
	ContactPage string
}

// Visitor enriches a record from its external website in an isolated
// browsing context.
type Visitor struct {
	driver PageDriver
	loc    *Locators
	settle time.Duration
}

// NewVisitor binds a visitor to d.
func NewVisitor(d PageDriver, loc *Locators, settle time.Duration) *Visitor {
	return &Visitor{driver: d, loc: loc, settle: settle}
}

// Visit opens website in a new context, parses it and at most one contact
// page, and always returns to the original context. Failures degrade to an
// empty Visit.
func (v *Visitor) Visit(ctx context.Context, website string) Visit {
	var res Visit

	origin := v.driver.CurrentContext()
	id, err := v.driver.OpenContext(ctx)
	if err != nil {
		slog.Debug("Could not open secondary context", "website", website, "error", err)
		return res
	}
	defer func() {
		cleanup := context.WithoutCancel(ctx)
		if err := v.driver.CloseContext(cleanup, id); err != nil {
			slog.Warn("Failed to close secondary context", "website", website, "error", err)
		}
		if err := v.driver.SwitchContext(cleanup, origin); err != nil {
			slog.Warn("Failed to return to original context", "website", website, "error", err)
		}
	}()

	if err := v.driver.SwitchContext(ctx, id); err != nil {
		return res
	}
	content, err := v.load(ctx, website)
	if err != nil {
		slog.Debug("Website visit failed", "website", website, "error", err)
		return res
	}
	res.Visited = true
	landing := contact.ParseHTML(content)

	sub, page := v.followContactLink(ctx, website)
	res.ContactPage = page
	res.Website = contact.MergeBundles(landing, sub)
	return res
}

func (v *Visitor) load(ctx context.Context, target string) (string, error) {
	if err := v.driver.Navigate(ctx, target); err != nil {
		return "", err
	}
	if err := v.driver.Wait(ctx, v.settle); err != nil {
		return "", err
	}
	return v.driver.Content(ctx)
}

// followContactLink opens the first contact-labeled link: by its href when it
// has a navigable one, otherwise by clicking it.
func (v *Visitor) followContactLink(ctx context.Context, website string) (contact.Bundle, string) {
	for _, loc := range v.loc.ContactLink {
		els, err := v.driver.FindAll(ctx, loc)
		if err != nil || len(els) == 0 {
			continue
		}
		el := els[0]

		href, _ := el.Attribute(ctx, "href")
		if isContactScheme(href) {
			// The landing page parse already saw this address.
			return contact.Bundle{}, ""
		}
		if target, ok := navigableHref(website, href); ok {
			content, err := v.load(ctx, target)
			if err != nil {
				return contact.Bundle{}, ""
			}
			return contact.ParseHTML(content), target
		}

		if err := el.Click(ctx); err != nil {
			return contact.Bundle{}, ""
		}
		if err := v.driver.Wait(ctx, v.settle); err != nil {
			return contact.Bundle{}, ""
		}
		content, err := v.driver.Content(ctx)
		if err != nil {
			return contact.Bundle{}, ""
		}
		page, _ := v.driver.CurrentURL(ctx)
		return contact.ParseHTML(content), page
	}
	return contact.Bundle{}, ""
}

func isContactScheme(href string) bool {
	lower := strings.ToLower(strings.TrimSpace(href))
	return strings.HasPrefix(lower, "mailto:") || strings.HasPrefix(lower, "tel:")
}

func navigableHref(website, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	if strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return "", false
	}
	base, err := url.Parse(website)
	if err != nil {
		return "", false
	}
	abs, err := utils.ToAbsoluteURL(base, href)
	if err != nil || !utils.IsHTTPURL(abs) {
		return "", false
	}
	return abs, true
}
