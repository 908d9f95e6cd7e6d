package extractor

import (
	"context"
	"time"
)

// By selects how a Locator query is evaluated.
type By string

const (
	ByXPath By = "xpath"
	ByCSS   By = "css"
)

// Locator is one structural query against the current view.
type Locator struct {
	By    By     `mapstructure:"by" json:"by"`
	Query string `mapstructure:"query" json:"query"`
}

// XPath builds an XPath locator.
func XPath(query string) Locator { return Locator{By: ByXPath, Query: query} }

// CSS builds a CSS selector locator.
func CSS(query string) Locator { return Locator{By: ByCSS, Query: query} }

func (l Locator) String() string { return string(l.By) + ":" + l.Query }

// KeyPageDown is the key name accepted by PageDriver.PressKey for paging.
const KeyPageDown = "PageDown"

// MainContext is the identifier of the browsing context a driver starts in.
const MainContext = "main"

// Element is a handle to one node of the current view. Handles go stale after
// navigation.
type Element interface {
	// Text returns the rendered text of the element.
	Text(ctx context.Context) (string, error)
	// Attribute returns the attribute value, or "" when it is absent.
	Attribute(ctx context.Context, name string) (string, error)
	Click(ctx context.Context) error
}

// PageDriver is the automation surface the extractor drives. Every call is
// fallible; callers treat failures as per-call, never as session-fatal.
type PageDriver interface {
	Navigate(ctx context.Context, url string) error
	CurrentURL(ctx context.Context) (string, error)
	// Content returns the serialized markup of the current document.
	Content(ctx context.Context) (string, error)
	// FindAll returns matching elements in document order. No match is not an error.
	FindAll(ctx context.Context, loc Locator) ([]Element, error)
	// RunScript evaluates code as a function body with args bound to
	// `arguments` and decodes its return value into out when out is non-nil.
	RunScript(ctx context.Context, code string, out any, args ...any) error
	PressKey(ctx context.Context, key string) error

	OpenContext(ctx context.Context) (string, error)
	CloseContext(ctx context.Context, id string) error
	SwitchContext(ctx context.Context, id string) error
	// CurrentContext returns the identifier of the active browsing context.
	CurrentContext() string

	// Wait blocks for d or until ctx is done, returning ctx.Err() in that case.
	Wait(ctx context.Context, d time.Duration) error
	// Release shuts the surface down. It is called exactly once per driver.
	Release() error
}

// DriverFactory acquires independent automation surfaces, one per worker.
type DriverFactory interface {
	NewDriver(ctx context.Context) (PageDriver, error)
}
