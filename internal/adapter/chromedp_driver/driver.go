package chromedp_driver

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"github.com/user/places-extractor/internal/extractor"
)

type tab struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// Driver is an extractor.PageDriver backed by one Chrome process. Each
// browsing context is a tab of that process.
type Driver struct {
	userAgent     string
	loadTimeout   time.Duration
	actionTimeout time.Duration

	allocCancel context.CancelFunc
	onRelease   func()
	releaseOnce sync.Once

	mu     sync.Mutex
	tabs   map[string]tab
	active string
	nextID int
}

var _ extractor.PageDriver = (*Driver)(nil)

// prepare installs the user agent override and the stealth script in the
// tab that ctx addresses.
func (d *Driver) prepare() chromedp.Tasks {
	return chromedp.Tasks{
		chromedp.ActionFunc(func(ctx context.Context) error {
			return emulation.SetUserAgentOverride(d.userAgent).
				WithAcceptLanguage("en-US,en;q=0.9").
				Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
			return err
		}),
	}
}

func (d *Driver) current() (context.Context, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.tabs[d.active]
	if !ok {
		return nil, fmt.Errorf("context %s: %w", d.active, extractor.ErrNoDriver)
	}
	return t.ctx, nil
}

// runIn executes actions in the tab tabCtx, bounded by timeout and by the
// caller's ctx. Cancelling the caller's ctx aborts the actions but leaves the
// tab open.
func runIn(ctx, tabCtx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(tabCtx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func (d *Driver) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	tabCtx, err := d.current()
	if err != nil {
		return err
	}
	return runIn(ctx, tabCtx, timeout, actions...)
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	if err := d.run(ctx, d.loadTimeout, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

func (d *Driver) CurrentURL(ctx context.Context) (string, error) {
	var u string
	err := d.run(ctx, d.actionTimeout, chromedp.Location(&u))
	return u, err
}

func (d *Driver) Content(ctx context.Context) (string, error) {
	var html string
	err := d.run(ctx, d.actionTimeout,
		chromedp.Evaluate(`document.documentElement ? document.documentElement.outerHTML : ""`, &html))
	return html, err
}

func (d *Driver) FindAll(ctx context.Context, loc extractor.Locator) ([]extractor.Element, error) {
	tabCtx, err := d.current()
	if err != nil {
		return nil, err
	}

	by := chromedp.ByQueryAll
	if loc.By == extractor.ByXPath {
		by = chromedp.BySearch
	}
	var nodes []*cdp.Node
	if err := runIn(ctx, tabCtx, d.actionTimeout,
		chromedp.Nodes(loc.Query, &nodes, by, chromedp.AtLeast(0)),
	); err != nil {
		return nil, fmt.Errorf("find %s: %w", loc, err)
	}

	out := make([]extractor.Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &element{tab: tabCtx, node: n, timeout: d.actionTimeout})
	}
	return out, nil
}

// scriptExpression wraps code as a function body applied to the JSON-encoded
// args, so scripts read their inputs from `arguments`.
func scriptExpression(code string, args []any) (string, error) {
	if args == nil {
		args = []any{}
	}
	encoded, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("encode script arguments: %w", err)
	}
	return fmt.Sprintf("(function(){%s}).apply(null, %s)", code, encoded), nil
}

func (d *Driver) RunScript(ctx context.Context, code string, out any, args ...any) error {
	expr, err := scriptExpression(code, args)
	if err != nil {
		return err
	}
	var res *runtime.RemoteObject
	if err := d.run(ctx, d.actionTimeout, chromedp.Evaluate(expr, &res)); err != nil {
		return fmt.Errorf("run script: %w", err)
	}
	if out == nil || res == nil || len(res.Value) == 0 {
		return nil
	}
	if err := json.Unmarshal([]byte(res.Value), out); err != nil {
		return fmt.Errorf("decode script result: %w", err)
	}
	return nil
}

func keyFor(name string) string {
	switch name {
	case extractor.KeyPageDown:
		return kb.PageDown
	}
	return name
}

func (d *Driver) PressKey(ctx context.Context, key string) error {
	return d.run(ctx, d.actionTimeout, chromedp.KeyEvent(keyFor(key)))
}

func (d *Driver) OpenContext(ctx context.Context) (string, error) {
	d.mu.Lock()
	main, ok := d.tabs[extractor.MainContext]
	d.mu.Unlock()
	if !ok {
		return "", extractor.ErrNoDriver
	}

	tabCtx, cancel := chromedp.NewContext(main.ctx)
	stop := context.AfterFunc(ctx, cancel)
	err := chromedp.Run(tabCtx, d.prepare())
	stop()
	if err != nil {
		cancel()
		return "", fmt.Errorf("open tab: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	id := fmt.Sprintf("tab-%d", d.nextID)
	d.tabs[id] = tab{ctx: tabCtx, cancel: cancel}
	return id, nil
}

func (d *Driver) CloseContext(_ context.Context, id string) error {
	if id == extractor.MainContext {
		return fmt.Errorf("context %s cannot be closed", id)
	}
	d.mu.Lock()
	t, ok := d.tabs[id]
	delete(d.tabs, id)
	if d.active == id {
		d.active = extractor.MainContext
	}
	d.mu.Unlock()
	if !ok {
		return fmt.Errorf("context %s: %w", id, extractor.ErrElementNotFound)
	}
	t.cancel()
	return nil
}

func (d *Driver) SwitchContext(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.tabs[id]; !ok {
		return fmt.Errorf("context %s: %w", id, extractor.ErrElementNotFound)
	}
	d.active = id
	return nil
}

func (d *Driver) CurrentContext() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

func (d *Driver) Wait(ctx context.Context, dur time.Duration) error {
	if dur <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(dur)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release closes every tab and the browser process. Only the first call has
// an effect.
func (d *Driver) Release() error {
	var err error
	d.releaseOnce.Do(func() {
		d.mu.Lock()
		main := d.tabs[extractor.MainContext]
		for id, t := range d.tabs {
			if id != extractor.MainContext {
				t.cancel()
			}
		}
		d.tabs = map[string]tab{}
		d.mu.Unlock()

		if main.ctx != nil {
			err = chromedp.Cancel(main.ctx)
			main.cancel()
		}
		d.allocCancel()
		if d.onRelease != nil {
			d.onRelease()
		}
	})
	return err
}

// element is a node handle bound to the tab it was found in.
type element struct {
	tab     context.Context
	node    *cdp.Node
	timeout time.Duration
}

func (e *element) ids() []cdp.NodeID { return []cdp.NodeID{e.node.NodeID} }

func (e *element) Text(ctx context.Context) (string, error) {
	var text string
	err := runIn(ctx, e.tab, e.timeout,
		chromedp.JavascriptAttribute(e.ids(), "innerText", &text, chromedp.ByNodeID))
	return text, err
}

func (e *element) Attribute(_ context.Context, name string) (string, error) {
	return e.node.AttributeValue(name), nil
}

func (e *element) Click(ctx context.Context) error {
	return runIn(ctx, e.tab, e.timeout, chromedp.Click(e.ids(), chromedp.ByNodeID))
}
