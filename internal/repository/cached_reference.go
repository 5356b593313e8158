package repository

import (
	"context"
	"errors"
	"sort"
	"time"

	"BondPanel/internal/domain/models"
	"BondPanel/internal/domain/repository"
	"BondPanel/pkg/cache"
	"BondPanel/pkg/logger"
)

const (
	issueKeyPrefix = "issue"
	allIssuesKey   = "issues:all"
)

// CachedReference serves issue records from a cache and falls through to
// the wrapped source on misses. Cache failures degrade to direct reads.
type CachedReference struct {
	src   repository.ReferenceSource
	cache cache.Service
	ttl   time.Duration
	log   *logger.Logger
}

var _ repository.ReferenceSource = (*CachedReference)(nil)

func NewCachedReference(src repository.ReferenceSource, c cache.Service, ttl time.Duration, log *logger.Logger) *CachedReference {
	if log == nil {
		log = logger.Nop()
	}
	return &CachedReference{src: src, cache: c, ttl: ttl, log: log.With(logger.String("component", "reference_cache"))}
}

func (r *CachedReference) Issues(ctx context.Context) ([]models.BondIssue, error) {
	var issues []models.BondIssue
	err := r.cache.Get(ctx, allIssuesKey, &issues)
	if err == nil {
		for i := range issues {
			issues[i] = utcDates(issues[i])
		}
		return issues, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		r.log.Warn("reference cache read failed", logger.Error(err))
	}

	issues, err = r.src.Issues(ctx)
	if err != nil {
		return nil, err
	}
	if err := r.cache.Set(ctx, allIssuesKey, issues, r.ttl); err != nil {
		r.log.Warn("reference cache write failed", logger.Error(err))
	}
	return issues, nil
}

// IssuesByCusip returns hits from the cache plus the misses loaded from the
// source, ordered by cusip.
func (r *CachedReference) IssuesByCusip(ctx context.Context, cusips []string) ([]models.BondIssue, error) {
	ids := uniqueSorted(cusips)
	if len(ids) == 0 {
		return nil, nil
	}

	hits, err := cache.MGetTyped[models.BondIssue](ctx, r.cache, cache.GenerateKeys(issueKeyPrefix, ids)...)
	if err != nil {
		r.log.Warn("reference cache read failed", logger.Error(err))
		hits = nil
	}

	out := make([]models.BondIssue, 0, len(ids))
	var missing []string
	for _, id := range ids {
		if is, ok := hits[cache.GenerateKey(issueKeyPrefix, id)]; ok {
			out = append(out, utcDates(is))
			continue
		}
		missing = append(missing, id)
	}

	if len(missing) > 0 {
		loaded, err := r.src.IssuesByCusip(ctx, missing)
		if err != nil {
			return nil, err
		}
		fill := make(map[string]interface{}, len(loaded))
		for _, is := range loaded {
			fill[cache.GenerateKey(issueKeyPrefix, is.Cusip)] = is
		}
		if err := r.cache.MSet(ctx, fill, r.ttl); err != nil {
			r.log.Warn("reference cache write failed", logger.Error(err))
		}
		out = append(out, loaded...)
		sort.Slice(out, func(i, j int) bool { return out[i].Cusip < out[j].Cusip })
	}

	r.log.Debug("reference lookup",
		logger.Int("requested", len(ids)),
		logger.Int("cached", len(ids)-len(missing)),
	)
	return out, nil
}

// utcDates restores UTC on dates the cache codec decodes in local time.
func utcDates(is models.BondIssue) models.BondIssue {
	is.DatedDate = is.DatedDate.UTC()
	is.OfferingDate = is.OfferingDate.UTC()
	is.Maturity = is.Maturity.UTC()
	return is
}
