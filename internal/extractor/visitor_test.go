package extractor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/user/places-extractor/internal/contact"
	"github.com/user/places-extractor/internal/entity"
)

const website = "https://rosas.example/home"

func TestVisitor_FollowsContactHref(t *testing.T) {
	site := fakeSite{
		website: page(`<p>Write to hello@rosas.example</p>`).
			with("contact", el("Contact us", "href", "/contact")),
		"https://rosas.example/contact": page(`<p>Orders: orders@rosas.example, call (555) 123-4567</p>`),
	}
	d := newFakeDriver(site)

	v := NewVisitor(d, testLocators(), 0).Visit(context.Background(), website)

	assert.True(t, v.Visited)
	assert.Equal(t, "https://rosas.example/contact", v.ContactPage)
	assert.Equal(t, []string{"hello@rosas.example", "orders@rosas.example"}, v.Website.Emails)
	assert.Equal(t, []string{"(555) 123-4567"}, v.Website.Phones)

	assert.Equal(t, MainContext, d.CurrentContext())
	assert.Equal(t, d.opened, d.closed)
}

func TestVisitor_ClicksWhenNoHref(t *testing.T) {
	d := newFakeDriver(nil)
	contactLink := el("CONTACT")
	contactLink.onClick = func() {
		d.mu.Lock()
		d.location[d.active] = "https://rosas.example/contact"
		d.mu.Unlock()
	}
	d.site = fakeSite{
		website:                         page(`<p>nothing here</p>`).with("contact", contactLink),
		"https://rosas.example/contact": page(`<a href="mailto:team@rosas.example">mail</a>`),
	}

	v := NewVisitor(d, testLocators(), 0).Visit(context.Background(), website)

	assert.True(t, v.Visited)
	assert.Equal(t, 1, contactLink.clicks)
	assert.Equal(t, []string{"team@rosas.example"}, v.Website.Emails)
	assert.Equal(t, "https://rosas.example/contact", v.ContactPage)
}

func TestVisitor_NavigationFailureDegrades(t *testing.T) {
	d := newFakeDriver(fakeSite{})
	d.navErr[website] = errBoom

	v := NewVisitor(d, testLocators(), 0).Visit(context.Background(), website)

	assert.False(t, v.Visited)
	assert.True(t, v.Website.Empty())
	assert.Equal(t, MainContext, d.CurrentContext())
	assert.Len(t, d.closed, 1)
}

func TestVisitor_ContactPageFailureKeepsLandingPage(t *testing.T) {
	site := fakeSite{
		website: page(`hello@rosas.example`).with("contact", el("Contact", "href", "https://rosas.example/contact")),
	}
	d := newFakeDriver(site)
	d.navErr["https://rosas.example/contact"] = errBoom

	v := NewVisitor(d, testLocators(), 0).Visit(context.Background(), website)

	assert.True(t, v.Visited)
	assert.Equal(t, []string{"hello@rosas.example"}, v.Website.Emails)
	assert.Empty(t, v.ContactPage)
}

func TestVisitor_OpenContextFailure(t *testing.T) {
	d := newFakeDriver(fakeSite{})
	d.openErr = errBoom

	v := NewVisitor(d, testLocators(), 0).Visit(context.Background(), website)

	assert.False(t, v.Visited)
	assert.Empty(t, d.navigations)
	assert.Equal(t, MainContext, d.CurrentContext())
}

func TestVisitor_CancelledStillReturnsToOrigin(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	d := newFakeDriver(fakeSite{website: page("hello@rosas.example")})
	d.onNavigate = func(context.Context, string) error {
		cancel()
		return nil
	}

	v := NewVisitor(d, testLocators(), 0).Visit(ctx, website)

	assert.False(t, v.Visited)
	assert.Equal(t, MainContext, d.CurrentContext())
	assert.Len(t, d.closed, 1)
}

func TestAssignContacts(t *testing.T) {
	t.Run("directory candidates keep their slots", func(t *testing.T) {
		rec := &entity.BusinessRecord{Phone: "+1 555-123-4567"}
		detail := contact.Bundle{Emails: []string{"a@shop.example"}, Phones: []string{"(555) 123-4567"}}
		visit := Visit{Visited: true, Website: contact.Bundle{
			Emails: []string{"b@shop.example", "a@shop.example", "c@shop.example", "d@shop.example"},
			Phones: []string{"(555) 999-0000"},
		}}

		assignContacts(rec, detail, visit)

		assert.Equal(t, "a@shop.example", rec.PrimaryEmail)
		assert.Equal(t, "b@shop.example", rec.SecondaryEmail)
		assert.Equal(t, []string{"c@shop.example"}, rec.ExtraContacts.Emails)
		assert.Equal(t, "+1 555-123-4567", rec.Phone)
		assert.Equal(t, []string{"(555) 999-0000"}, rec.ExtraContacts.Phones)
		assert.True(t, rec.SecondarySourceVisited)
		assert.True(t, rec.ExtraContacts.SecondarySource)
	})

	t.Run("failed visit changes nothing", func(t *testing.T) {
		rec := &entity.BusinessRecord{}
		detail := contact.Bundle{Emails: []string{"a@shop.example", "b@shop.example"}}

		assignContacts(rec, detail, Visit{})

		assert.Equal(t, "a@shop.example", rec.PrimaryEmail)
		assert.Equal(t, "b@shop.example", rec.SecondaryEmail)
		assert.False(t, rec.SecondarySourceVisited)
		assert.False(t, rec.ExtraContacts.SecondarySource)
	})

	t.Run("phone taken from bundle when unresolved", func(t *testing.T) {
		rec := &entity.BusinessRecord{}
		assignContacts(rec, contact.Bundle{Phones: []string{"(555) 111-2222", "(555) 333-4444"}}, Visit{})

		assert.Equal(t, "(555) 111-2222", rec.Phone)
		assert.Equal(t, []string{"(555) 333-4444"}, rec.ExtraContacts.Phones)
	})
}
