package extractor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

type fakeElement struct {
	text     string
	attrs    map[string]string
	err      error
	clickErr error
	onClick  func()

	mu     sync.Mutex
	clicks int
}

// el builds an element from its text and attribute name/value pairs.
func el(text string, attrs ...string) *fakeElement {
	e := &fakeElement{text: text, attrs: make(map[string]string)}
	for i := 0; i+1 < len(attrs); i += 2 {
		e.attrs[attrs[i]] = attrs[i+1]
	}
	return e
}

func link(href string) *fakeElement { return el("", "href", href) }

func (e *fakeElement) Text(context.Context) (string, error) {
	if e.err != nil {
		return "", e.err
	}
	return e.text, nil
}

func (e *fakeElement) Attribute(_ context.Context, name string) (string, error) {
	if e.err != nil {
		return "", e.err
	}
	return e.attrs[name], nil
}

func (e *fakeElement) Click(context.Context) error {
	if e.clickErr != nil {
		return e.clickErr
	}
	e.mu.Lock()
	e.clicks++
	e.mu.Unlock()
	if e.onClick != nil {
		e.onClick()
	}
	return nil
}

type fakePage struct {
	content  string
	elements map[string][]*fakeElement
}

func page(content string) *fakePage {
	return &fakePage{content: content, elements: make(map[string][]*fakeElement)}
}

func (p *fakePage) with(query string, els ...*fakeElement) *fakePage {
	p.elements[query] = append(p.elements[query], els...)
	return p
}

// fakeSite maps URLs to pages. It is shared read-only between drivers.
type fakeSite map[string]*fakePage

type fakeDriver struct {
	site fakeSite

	mu       sync.Mutex
	location map[string]string
	active   string
	nextTab  int

	navErr     map[string]error
	openErr    error
	releaseErr error

	navigations []string
	opened      []string
	closed      []string
	keys        []string
	scripts     []string
	waits       []time.Duration
	releases    int

	onNavigate func(ctx context.Context, url string) error
	onFind     func(loc Locator) ([]Element, bool)
	onScript   func(code string, out any, args []any) error
	onWait     func(n int)
}

func newFakeDriver(site fakeSite) *fakeDriver {
	return &fakeDriver{
		site:     site,
		location: map[string]string{MainContext: ""},
		active:   MainContext,
		navErr:   make(map[string]error),
	}
}

func (d *fakeDriver) Navigate(ctx context.Context, url string) error {
	d.mu.Lock()
	d.navigations = append(d.navigations, url)
	hook := d.onNavigate
	err := d.navErr[url]
	d.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, url); err != nil {
			return err
		}
	}
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	d.location[d.active] = url
	d.mu.Unlock()
	return nil
}

func (d *fakeDriver) CurrentURL(context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.location[d.active], nil
}

func (d *fakeDriver) currentPage() *fakePage {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.site[d.location[d.active]]
}

func (d *fakeDriver) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if p := d.currentPage(); p != nil {
		return p.content, nil
	}
	return "", nil
}

func (d *fakeDriver) FindAll(ctx context.Context, loc Locator) ([]Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.onFind != nil {
		if els, ok := d.onFind(loc); ok {
			return els, nil
		}
	}
	p := d.currentPage()
	if p == nil {
		return nil, nil
	}
	var out []Element
	for _, e := range p.elements[loc.Query] {
		out = append(out, e)
	}
	return out, nil
}

func (d *fakeDriver) RunScript(_ context.Context, code string, out any, args ...any) error {
	d.mu.Lock()
	d.scripts = append(d.scripts, code)
	d.mu.Unlock()
	if d.onScript != nil {
		return d.onScript(code, out, args)
	}
	return nil
}

func (d *fakeDriver) PressKey(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.keys = append(d.keys, key)
	return nil
}

func (d *fakeDriver) OpenContext(context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.openErr != nil {
		return "", d.openErr
	}
	d.nextTab++
	id := fmt.Sprintf("tab-%d", d.nextTab)
	d.location[id] = ""
	d.opened = append(d.opened, id)
	return id, nil
}

func (d *fakeDriver) CloseContext(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.location[id]; !ok {
		return fmt.Errorf("context %s: %w", id, ErrElementNotFound)
	}
	delete(d.location, id)
	d.closed = append(d.closed, id)
	return nil
}

func (d *fakeDriver) SwitchContext(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.location[id]; !ok {
		return fmt.Errorf("context %s: %w", id, ErrElementNotFound)
	}
	d.active = id
	return nil
}

func (d *fakeDriver) CurrentContext() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

func (d *fakeDriver) Wait(ctx context.Context, dur time.Duration) error {
	d.mu.Lock()
	d.waits = append(d.waits, dur)
	n := len(d.waits)
	hook := d.onWait
	d.mu.Unlock()
	if hook != nil {
		hook(n)
	}
	return ctx.Err()
}

func (d *fakeDriver) Release() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.releases++
	return d.releaseErr
}

func (d *fakeDriver) releaseCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.releases
}

// fakeFactory hands out drivers from build; errs[i] fails the i-th call.
type fakeFactory struct {
	build func() *fakeDriver
	errs  []error

	mu      sync.Mutex
	calls   int
	drivers []*fakeDriver
}

func (f *fakeFactory) NewDriver(context.Context) (PageDriver, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := f.calls
	f.calls++
	if call < len(f.errs) && f.errs[call] != nil {
		return nil, f.errs[call]
	}
	d := f.build()
	f.drivers = append(f.drivers, d)
	return d, nil
}

func (f *fakeFactory) all() []*fakeDriver {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakeDriver(nil), f.drivers...)
}

var errBoom = errors.New("boom")

func testLocators() *Locators {
	return &Locators{
		BaseSearchURL:    "https://maps.example/search/",
		PlaceMarker:      "/place/",
		PlacePattern:     `https://maps\.example/place/[^"\s]+`,
		Consent:          []Locator{XPath("consent")},
		ResultIndicators: []Locator{XPath("result")},
		Links:            []Locator{XPath("links-a"), CSS("links-b")},
		ScrollContainers: []string{"feed"},
		ShowMore:         []Locator{XPath("show-more")},
		EndOfList:        []string{"end of the list"},
		Name:             []Locator{CSS("name-1"), CSS("name-2")},
		Address:          []Locator{CSS("address")},
		Rating:           []Locator{CSS("rating")},
		Reviews:          []Locator{CSS("reviews")},
		Category:         []Locator{CSS("category")},
		Website:          []Locator{CSS("website")},
		Phone:            []Locator{XPath("phone")},
		PhoneText:        []Locator{XPath("phone-text")},
		WebsiteExclude:   []string{"maps.example", "google.com"},
		ContactLink:      []Locator{XPath("contact")},
	}
}

func testCollectorConfig() CollectorConfig {
	return CollectorConfig{
		MaxPasses:       50,
		AltAdvanceAfter: 2,
		ReloadAfter:     4,
		MaxStagnant:     8,
		ScrollStep:      800,
		ScrollRepeats:   1,
		PageDownCount:   2,
	}
}

func testOptions() Options {
	return Options{
		Workers:     1,
		Collector:   testCollectorConfig(),
		ResultPolls: 1,
	}
}
