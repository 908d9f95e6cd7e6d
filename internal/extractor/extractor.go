// Package extractor drives a map directory through a PageDriver and turns
// one search query into an ordered list of business records.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/user/places-extractor/internal/contact"
	"github.com/user/places-extractor/internal/entity"
)

// Options tunes one Extractor.
type Options struct {
	// Workers is the detail-phase pool size. 1 reproduces the sequential flow.
	Workers   int
	Collector CollectorConfig

	SearchSettle    time.Duration
	ResultPolls     int
	PollInterval    time.Duration
	DetailSettle    Range
	SecondarySettle time.Duration
	// ItemTimeout bounds one detail visit including its website visit. Zero disables it.
	ItemTimeout time.Duration

	ItemDelay     Range
	RatePerSecond float64
}

// DefaultOptions returns production pacing with a single detail worker.
func DefaultOptions() Options {
	return Options{
		Workers:         1,
		Collector:       DefaultCollectorConfig(),
		SearchSettle:    5 * time.Second,
		ResultPolls:     30,
		PollInterval:    time.Second,
		DetailSettle:    Range{Min: 4 * time.Second, Max: 7 * time.Second},
		SecondarySettle: 10 * time.Second,
		ItemTimeout:     2 * time.Minute,
		ItemDelay:       Range{Min: 1500 * time.Millisecond, Max: 3500 * time.Millisecond},
	}
}

// Extractor runs extraction sessions. It is safe for concurrent use; each
// run acquires its own drivers.
type Extractor struct {
	factory DriverFactory
	loc     *Locators
	opts    Options
	pacer   *Pacer
}

// New builds an Extractor. A nil loc uses DefaultLocators.
func New(factory DriverFactory, loc *Locators, opts Options) *Extractor {
	if loc == nil {
		loc = DefaultLocators()
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Extractor{
		factory: factory,
		loc:     loc,
		opts:    opts,
		pacer:   NewPacer(opts.ItemDelay, opts.RatePerSecond),
	}
}

// Extract is the caller-facing form of Run.
func (e *Extractor) Extract(ctx context.Context, query string, targetCount int, visitSecondarySources bool) ([]entity.BusinessRecord, error) {
	res, err := e.Run(ctx, entity.ExtractionRequest{
		Query:                 query,
		TargetCount:           targetCount,
		VisitSecondarySources: visitSecondarySources,
	})
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}

// Run executes one session end to end. Only ErrSearchUnavailable (and
// ErrInvalidTarget for a bad request) is returned; per-item failures are
// reported in the result. A cancelled run returns what it collected with
// Stats.Cancelled set and a nil error.
func (e *Extractor) Run(ctx context.Context, req entity.ExtractionRequest) (*entity.ExtractionResult, error) {
	if req.TargetCount <= 0 {
		return nil, ErrInvalidTarget
	}
	sess := newSession(req)

	d, err := e.factory.NewDriver(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: acquire driver: %w", ErrSearchUnavailable, err)
	}
	primary := newLease(d)
	defer primary.release()

	if err := e.openSearch(ctx, d, req.Query); err != nil {
		if ctx.Err() != nil {
			return e.result(sess, nil, true), nil
		}
		return nil, fmt.Errorf("%w: %w", ErrSearchUnavailable, err)
	}

	coll, err := NewCollector(d, e.loc, e.opts.Collector).Collect(ctx, req.TargetCount)
	sess.collected(coll)
	if err != nil {
		return e.result(sess, nil, true), nil
	}
	refs := coll.Links.Items()
	slog.Info("Link collection finished",
		"query", req.Query,
		"found", len(refs),
		"target", req.TargetCount,
		"passes", coll.Passes,
	)
	if len(refs) == 0 {
		return e.result(sess, nil, false), nil
	}

	records := e.processAll(ctx, sess, primary, refs)
	return e.result(sess, records, ctx.Err() != nil), nil
}

func (e *Extractor) openSearch(ctx context.Context, d PageDriver, query string) error {
	target := SearchURL(e.loc.BaseSearchURL, query)
	if err := d.Navigate(ctx, target); err != nil {
		return fmt.Errorf("open result list %s: %w", target, err)
	}
	if err := d.Wait(ctx, e.opts.SearchSettle); err != nil {
		return err
	}
	dismissConsent(ctx, d, e.loc.Consent, e.opts.Collector.ConsentSettle)
	if !awaitResults(ctx, d, e.loc.ResultIndicators, e.opts.ResultPolls, e.opts.PollInterval) {
		if err := ctx.Err(); err != nil {
			return err
		}
		slog.Warn("No result indicator matched, continuing", "url", target)
	}
	return nil
}

// processAll runs the detail phase. Worker 0 reuses the primary driver; the
// others acquire their own. Records keep discovery order.
func (e *Extractor) processAll(ctx context.Context, sess *Session, primary *lease, refs []string) []entity.BusinessRecord {
	slots := make([]*entity.BusinessRecord, len(refs))
	items := make(chan int)
	workers := min(e.opts.Workers, len(refs))

	var g errgroup.Group
	g.Go(func() error {
		defer close(items)
		for i := range refs {
			select {
			case items <- i:
			case <-ctx.Done():
				return nil
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			l := primary
			if w > 0 {
				d, err := e.factory.NewDriver(ctx)
				if err != nil {
					slog.Warn("Detail worker could not acquire a driver", "worker", w, "error", err)
					return nil
				}
				l = newLease(d)
				defer l.release()
			}
			e.work(ctx, sess, l.driver, refs, items, slots)
			return nil
		})
	}
	_ = g.Wait()

	out := make([]entity.BusinessRecord, 0, len(refs))
	for _, rec := range slots {
		if rec != nil {
			out = append(out, *rec)
		}
	}
	return out
}

func (e *Extractor) work(ctx context.Context, sess *Session, d PageDriver, refs []string, items <-chan int, slots []*entity.BusinessRecord) {
	resolver := NewResolver(d, e.loc, e.opts.DetailSettle)
	visitor := NewVisitor(d, e.loc, e.opts.SecondarySettle)

	first := true
	for i := range items {
		if ctx.Err() != nil {
			continue
		}
		if !first {
			if err := e.pacer.Pause(ctx, d); err != nil {
				continue
			}
		}
		first = false

		rec, err := e.processItem(ctx, sess.Request, resolver, visitor, d, refs[i])
		if err != nil {
			if ctx.Err() != nil {
				// Interrupted, not failed.
				continue
			}
			if !errors.Is(err, ErrNameUnresolved) {
				slog.Warn("Detail extraction failed", "reference", refs[i], "error", err)
			}
			sess.failed(i, refs[i], err)
			continue
		}
		slots[i] = rec
		sess.succeeded(rec)
	}
}

func (e *Extractor) processItem(ctx context.Context, req entity.ExtractionRequest, r *Resolver, v *Visitor, d PageDriver, ref string) (*entity.BusinessRecord, error) {
	if e.opts.ItemTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.ItemTimeout)
		defer cancel()
	}

	rec, err := r.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	rec.SearchQuery = req.Query

	var detail contact.Bundle
	if content, err := d.Content(ctx); err == nil {
		detail = contact.ParseHTML(content)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var visit Visit
	if req.VisitSecondarySources && rec.Website != "" {
		visit = v.Visit(ctx, rec.Website)
		// A cut-short visit leaves the record half-built; a landed one is kept.
		if err := ctx.Err(); err != nil && !visit.Visited {
			return nil, err
		}
	}
	assignContacts(rec, detail, visit)
	return rec, nil
}

func (e *Extractor) result(sess *Session, records []entity.BusinessRecord, cancelled bool) *entity.ExtractionResult {
	if cancelled {
		sess.cancel()
	}
	sess.finish()
	if records == nil {
		records = []entity.BusinessRecord{}
	}
	stats := sess.Stats()
	slog.Info("Extraction session finished",
		"query", sess.Request.Query,
		"records", len(records),
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"contacts", stats.ContactsFound,
		"cancelled", stats.Cancelled,
	)
	return &entity.ExtractionResult{
		Request:  sess.Request,
		Records:  records,
		Stats:    stats,
		Failures: sess.Failures(),
	}
}

// lease releases its driver at most once.
type lease struct {
	driver PageDriver
	once   sync.Once
}

func newLease(d PageDriver) *lease { return &lease{driver: d} }

func (l *lease) release() {
	l.once.Do(func() {
		if err := l.driver.Release(); err != nil {
			slog.Warn("Failed to release page driver", "error", err)
		}
	})
}
