package extractor

import (
	"context"
	"html"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/user/places-extractor/pkg/utils"
)

// State is a step of the pagination state machine.
type State int

const (
	StateScanning State = iota
	StateAltAdvance
	StateReloading
	StateFinalSweep
	StateDone
)

func (s State) String() string {
	switch s {
	case StateScanning:
		return "scanning"
	case StateAltAdvance:
		return "alt_advance"
	case StateReloading:
		return "reloading"
	case StateFinalSweep:
		return "final_sweep"
	case StateDone:
		return "done"
	}
	return "unknown"
}

// CollectorConfig bounds the pagination loop.
type CollectorConfig struct {
	MaxPasses int
	// AltAdvanceAfter consecutive stagnant passes switch to the alternate advance.
	AltAdvanceAfter int
	// ReloadAfter consecutive stagnant passes trigger one full reload.
	ReloadAfter int
	// MaxStagnant consecutive stagnant passes end the loop with a final sweep.
	MaxStagnant int

	ScrollStep    int
	ScrollRepeats int
	PageDownCount int

	ScrollDelay   Range
	StagnantDelay Range
	ActionDelay   time.Duration
	ReloadSettle  time.Duration
	ConsentSettle time.Duration
}

// DefaultCollectorConfig returns the escalation thresholds used in production.
func DefaultCollectorConfig() CollectorConfig {
	return CollectorConfig{
		MaxPasses:       50,
		AltAdvanceAfter: 2,
		ReloadAfter:     4,
		MaxStagnant:     8,
		ScrollStep:      800,
		ScrollRepeats:   3,
		PageDownCount:   10,
		ScrollDelay:     Range{Min: 2 * time.Second, Max: 4 * time.Second},
		StagnantDelay:   Range{Min: 5 * time.Second, Max: 8 * time.Second},
		ActionDelay:     500 * time.Millisecond,
		ReloadSettle:    10 * time.Second,
		ConsentSettle:   3 * time.Second,
	}
}

// progress is the input of one state transition.
type progress struct {
	pass      int
	stagnant  int
	full      bool
	endOfList bool
}

// next picks the state following a completed scan. Checks run in priority
// order: cap, pass budget, stagnation budget, end-of-list, escalation.
func (c CollectorConfig) next(p progress) State {
	switch {
	case p.full:
		return StateDone
	case p.pass >= c.MaxPasses:
		return StateDone
	case p.stagnant >= c.MaxStagnant:
		return StateFinalSweep
	case p.endOfList:
		return StateDone
	case p.stagnant > 0 && p.stagnant == c.ReloadAfter:
		return StateReloading
	case p.stagnant > 0 && p.stagnant >= c.AltAdvanceAfter:
		return StateAltAdvance
	}
	return StateScanning
}

// Collection is the outcome of one pagination run.
type Collection struct {
	Links       *LinkSet
	Passes      int
	Escalations map[State]int
}

// Collector discovers detail references by scanning and advancing the result
// list of one driver.
type Collector struct {
	driver PageDriver
	loc    *Locators
	cfg    CollectorConfig
	place  *regexp.Regexp
}

// NewCollector binds a collector to d. The driver must already show the result list.
func NewCollector(d PageDriver, loc *Locators, cfg CollectorConfig) *Collector {
	c := &Collector{driver: d, loc: loc, cfg: cfg}
	if loc.PlacePattern != "" {
		c.place, _ = regexp.Compile(loc.PlacePattern)
	}
	return c
}

// Collect runs the pagination state machine until target references are
// known or the escalation budget is spent. Fewer results than requested is a
// normal outcome. The only error is the context's, returned together with the
// references collected so far.
func (c *Collector) Collect(ctx context.Context, target int) (*Collection, error) {
	coll := &Collection{Links: NewLinkSet(target), Escalations: make(map[State]int)}
	base := c.baseURL(ctx)

	stagnant := 0
	state := StateScanning
	for state != StateDone {
		if err := ctx.Err(); err != nil {
			return coll, err
		}

		if state == StateFinalSweep {
			added := c.sweep(ctx, base, coll.Links)
			slog.Debug("Final sweep finished", "added", added, "total", coll.Links.Len())
			break
		}

		coll.Passes++
		added := c.scan(ctx, base, coll.Links)
		if added == 0 {
			stagnant++
		} else {
			stagnant = 0
		}

		state = c.cfg.next(progress{
			pass:      coll.Passes,
			stagnant:  stagnant,
			full:      coll.Links.Full(),
			endOfList: !coll.Links.Full() && c.endOfList(ctx),
		})
		if state != StateScanning && state != StateDone {
			coll.Escalations[state]++
		}
		slog.Debug("Pagination pass",
			"pass", coll.Passes,
			"added", added,
			"total", coll.Links.Len(),
			"stagnant", stagnant,
			"next", state.String(),
		)

		switch state {
		case StateScanning:
			c.scroll(ctx)
		case StateAltAdvance:
			c.altAdvance(ctx)
		case StateReloading:
			c.reload(ctx)
		default:
			continue
		}

		delay := c.cfg.ScrollDelay
		if added == 0 {
			delay = c.cfg.StagnantDelay
		}
		if err := c.driver.Wait(ctx, delay.Pick()); err != nil {
			return coll, err
		}
	}
	return coll, ctx.Err()
}

func (c *Collector) baseURL(ctx context.Context) *url.URL {
	raw, err := c.driver.CurrentURL(ctx)
	if err != nil || raw == "" {
		raw = c.loc.BaseSearchURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil
	}
	return u
}

// scan unions the elements of every link locator into links and returns the
// number of new references.
func (c *Collector) scan(ctx context.Context, base *url.URL, links *LinkSet) int {
	added := 0
	for _, loc := range c.loc.Links {
		els, err := c.driver.FindAll(ctx, loc)
		if err != nil {
			continue
		}
		for _, el := range els {
			href, err := el.Attribute(ctx, "href")
			if err != nil || href == "" {
				continue
			}
			if c.admit(base, href, links) {
				added++
			}
			if links.Full() {
				return added
			}
		}
	}
	return added
}

func (c *Collector) admit(base *url.URL, raw string, links *LinkSet) bool {
	if c.loc.PlaceMarker != "" && !strings.Contains(raw, c.loc.PlaceMarker) {
		return false
	}
	ref, err := utils.CanonicalURL(base, raw)
	if err != nil {
		return false
	}
	return links.Add(ref)
}

func (c *Collector) endOfList(ctx context.Context) bool {
	if len(c.loc.EndOfList) == 0 {
		return false
	}
	content, err := c.driver.Content(ctx)
	if err != nil {
		return false
	}
	for _, marker := range c.loc.EndOfList {
		if marker != "" && strings.Contains(content, marker) {
			return true
		}
	}
	return false
}

const scrollScript = `
var selectors = arguments[0], step = arguments[1];
for (var i = 0; i < selectors.length; i++) {
	var el = document.querySelector(selectors[i]);
	if (el && el.scrollHeight > el.clientHeight) {
		el.scrollTop += step;
		return true;
	}
}
window.scrollBy(0, step);
return false;`

// scroll advances the first scrollable result container, or the whole
// document when none resolves.
func (c *Collector) scroll(ctx context.Context) {
	for i := 0; i < max(c.cfg.ScrollRepeats, 1); i++ {
		var container bool
		if err := c.driver.RunScript(ctx, scrollScript, &container, c.loc.ScrollContainers, c.cfg.ScrollStep); err != nil {
			slog.Debug("Scroll script failed", "error", err)
			return
		}
		if err := c.driver.Wait(ctx, c.cfg.ActionDelay); err != nil {
			return
		}
	}
}

// altAdvance clicks a "show more" affordance, or pages down by keyboard when
// there is none.
func (c *Collector) altAdvance(ctx context.Context) {
	for _, loc := range c.loc.ShowMore {
		els, err := c.driver.FindAll(ctx, loc)
		if err != nil || len(els) == 0 {
			continue
		}
		if err := els[0].Click(ctx); err == nil {
			slog.Debug("Clicked show-more control", "locator", loc.String())
			return
		}
	}
	for i := 0; i < c.cfg.PageDownCount; i++ {
		if err := c.driver.PressKey(ctx, KeyPageDown); err != nil {
			slog.Debug("Keyboard paging failed", "error", err)
			return
		}
		if err := c.driver.Wait(ctx, c.cfg.ActionDelay); err != nil {
			return
		}
	}
}

// reload navigates to the current result view again and re-handles consent.
func (c *Collector) reload(ctx context.Context) {
	current, err := c.driver.CurrentURL(ctx)
	if err != nil || current == "" {
		return
	}
	if err := c.driver.Navigate(ctx, current); err != nil {
		slog.Debug("Result view reload failed", "error", err)
		return
	}
	if err := c.driver.Wait(ctx, c.cfg.ReloadSettle); err != nil {
		return
	}
	dismissConsent(ctx, c.driver, c.loc.Consent, c.cfg.ConsentSettle)
}

const anchorScript = `
var marker = arguments[0], out = [];
var els = document.querySelectorAll('a[href*="' + marker + '"]');
for (var i = 0; i < els.length; i++) {
	if (els[i].href) out.push(els[i].href);
}
return out;`

// sweep is the last-resort pass: a pattern scan over the raw markup followed
// by a direct anchor query.
func (c *Collector) sweep(ctx context.Context, base *url.URL, links *LinkSet) int {
	added := 0
	if c.place != nil {
		if content, err := c.driver.Content(ctx); err == nil {
			for _, m := range c.place.FindAllString(content, -1) {
				if links.Full() {
					return added
				}
				if c.admit(base, html.UnescapeString(m), links) {
					added++
				}
			}
		}
	}

	var hrefs []string
	if err := c.driver.RunScript(ctx, anchorScript, &hrefs, c.loc.PlaceMarker); err != nil {
		return added
	}
	for _, h := range hrefs {
		if links.Full() {
			break
		}
		if c.admit(base, h, links) {
			added++
		}
	}
	return added
}
