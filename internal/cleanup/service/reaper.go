package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/claim-deploy/claim-deploy-backend/internal/cleanup/domain"
	"golang.org/x/time/rate"
)

// DefaultMaxAge is how old a temporary resource must be before the reaper
// considers it abandoned. Unclaimed demo resources linger at most this long
// plus one cleanup interval.
const DefaultMaxAge = 12 * time.Hour

const listPageLimit = 100

// Kind is one reapable resource family. ListPage returns one page plus the
// cursor for the next page; a zero cursor means no further pages.
type Kind interface {
	Name() string
	Prefix() string
	ListPage(ctx context.Context, until int64) ([]domain.Resource, int64, error)
	Delete(ctx context.Context, id string) error
}

// Reaper deletes abandoned temporary resources: anything whose name carries
// the kind's temporary prefix, is older than the max age and is not
// protected. Deletes are sequential and rate limited to one per second to
// stay inside the backend's write limits.
type Reaper struct {
	kinds   []Kind
	maxAge  time.Duration
	limiter *rate.Limiter
	now     func() time.Time
}

// NewReaper creates a reaper over the given kinds. maxAge falls back to
// DefaultMaxAge when zero.
func NewReaper(kinds []Kind, maxAge time.Duration) *Reaper {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Reaper{
		kinds:   kinds,
		maxAge:  maxAge,
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
		now:     time.Now,
	}
}

// RunKind reaps a single kind by name.
func (r *Reaper) RunKind(ctx context.Context, name string) (*domain.KindReport, error) {
	for _, k := range r.kinds {
		if k.Name() == name {
			return r.reapKind(ctx, k)
		}
	}
	return nil, fmt.Errorf("unknown cleanup kind %q", name)
}

// Run reaps every kind and returns the combined report. A kind that fails to
// list is reported but does not abort the others; Run only returns an error
// when every kind failed.
func (r *Reaper) Run(ctx context.Context) (*domain.Report, error) {
	report := &domain.Report{StartedAt: r.now().UTC()}

	failures := 0
	for _, k := range r.kinds {
		kr, err := r.reapKind(ctx, k)
		if err != nil {
			log.Printf("[cleanup] %s: %v", k.Name(), err)
			failures++
			report.Kinds = append(report.Kinds, domain.KindReport{
				Kind:   k.Name(),
				Errors: []string{err.Error()},
			})
			continue
		}
		report.Kinds = append(report.Kinds, *kr)
	}
	report.FinishedAt = r.now().UTC()

	if len(r.kinds) > 0 && failures == len(r.kinds) {
		return report, fmt.Errorf("cleanup failed for all %d kinds", failures)
	}
	return report, nil
}

func (r *Reaper) reapKind(ctx context.Context, k Kind) (*domain.KindReport, error) {
	matches, err := r.collect(ctx, k)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", k.Name(), err)
	}

	report := &domain.KindReport{Kind: k.Name(), Matched: len(matches)}
	for _, res := range matches {
		if err := r.limiter.Wait(ctx); err != nil {
			return report, err
		}
		if err := k.Delete(ctx, res.ID); err != nil {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", res.Name, err))
			log.Printf("[cleanup] failed to delete %s %s: %v", k.Name(), res.Name, err)
			continue
		}
		report.Deleted++
	}
	return report, nil
}

// collect walks the kind's pages and returns every resource eligible for
// deletion. A resource qualifies when createdAt <= now-maxAge, inclusive at
// the boundary. The cursor must strictly advance; a repeated cursor ends the
// walk rather than looping.
func (r *Reaper) collect(ctx context.Context, k Kind) ([]domain.Resource, error) {
	cutoff := r.now().Add(-r.maxAge).UnixMilli()

	var matches []domain.Resource
	var until int64
	for {
		page, next, err := k.ListPage(ctx, until)
		if err != nil {
			return nil, err
		}
		for _, res := range page {
			if res.Protected {
				continue
			}
			if !strings.HasPrefix(res.Name, k.Prefix()) {
				continue
			}
			if res.CreatedAt > cutoff {
				continue
			}
			matches = append(matches, res)
		}
		if next <= 0 || len(page) == 0 || (until != 0 && next >= until) {
			break
		}
		until = next
	}
	return matches, nil
}
