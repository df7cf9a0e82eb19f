// Package pipeline runs one discovery, filter and publish pass over every
// category keyword.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"sjsage522/promoworker/internal/catalog"
	"sjsage522/promoworker/internal/classifier"
	"sjsage522/promoworker/internal/composer"
	"sjsage522/promoworker/internal/offer"
	"sjsage522/promoworker/logger"
	"sjsage522/promoworker/pkg/errors"
	"sjsage522/promoworker/services/publisher"
)

const (
	// DefaultSearchLimit is the number of items requested per keyword
	DefaultSearchLimit = 5
	// MaxSearchLimit caps the number of items requested per keyword
	MaxSearchLimit = 10
)

// RunStats summarizes a single run
type RunStats struct {
	RunID           string
	Discovered      int
	Published       int
	Skipped         int
	Duplicates      int
	SearchFailures  int
	PublishFailures int
	StartedAt       time.Time
	Duration        time.Duration
}

func (s RunStats) String() string {
	return fmt.Sprintf("run %s: discovered=%d published=%d skipped=%d duplicates=%d search_failures=%d publish_failures=%d in %s",
		s.RunID, s.Discovered, s.Published, s.Skipped, s.Duplicates, s.SearchFailures, s.PublishFailures, s.Duration.Round(time.Millisecond))
}

// Options wires the orchestrator's collaborators
type Options struct {
	Catalog    catalog.Client
	Publisher  publisher.Publisher
	Classifier *classifier.Classifier
	Composer   *composer.Composer
	Policy     composer.Policy

	// SearchLimit is clamped to [1, MaxSearchLimit]; zero means DefaultSearchLimit
	SearchLimit int
	SendDelay   time.Duration

	// ClassifyByKeyword keeps the category whose keyword found the offer
	// instead of classifying its title
	ClassifyByKeyword bool

	// NewSeenSet creates the per-run duplicate filter; nil uses memory
	NewSeenSet func() SeenSet
	Logger     *logger.Logger
}

// Orchestrator runs the discovery, filter and publish pass
type Orchestrator struct {
	opts     Options
	limit    int
	throttle *Throttle
	log      *logger.Logger
}

// New validates the options and creates an orchestrator
func New(opts Options) (*Orchestrator, error) {
	switch {
	case opts.Catalog == nil:
		return nil, errors.NewConfiguration("pipeline needs a catalog client", nil)
	case opts.Publisher == nil:
		return nil, errors.NewConfiguration("pipeline needs a publisher", nil)
	case opts.Classifier == nil:
		return nil, errors.NewConfiguration("pipeline needs a classifier", nil)
	case opts.Composer == nil:
		return nil, errors.NewConfiguration("pipeline needs a composer", nil)
	}

	if opts.NewSeenSet == nil {
		opts.NewSeenSet = NewMemorySeenSet
	}
	log := opts.Logger
	if log == nil {
		log = logger.ForPipeline()
	}

	return &Orchestrator{
		opts:     opts,
		limit:    clampLimit(opts.SearchLimit),
		throttle: NewThrottle(opts.SendDelay),
		log:      log,
	}, nil
}

func clampLimit(limit int) int {
	switch {
	case limit == 0:
		return DefaultSearchLimit
	case limit < 1:
		return 1
	case limit > MaxSearchLimit:
		return MaxSearchLimit
	default:
		return limit
	}
}

// RunOnce searches every keyword of every category in configured order and
// publishes the offers that pass the policy. Failures are counted and
// logged, never returned. A cancelled context ends the run early with the
// stats gathered so far.
func (o *Orchestrator) RunOnce(ctx context.Context) (stats RunStats) {
	stats = RunStats{
		RunID:     uuid.NewString()[:8],
		StartedAt: time.Now(),
	}
	log := o.log.WithField("run_id", stats.RunID)

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Run aborted")
		}
		stats.Duration = time.Since(stats.StartedAt)
		log.Info().
			Int("discovered", stats.Discovered).
			Int("published", stats.Published).
			Int("skipped", stats.Skipped).
			Int("duplicates", stats.Duplicates).
			Int("search_failures", stats.SearchFailures).
			Int("publish_failures", stats.PublishFailures).
			Dur("duration", stats.Duration).
			Msg("Run finished")
	}()

	seen := o.opts.NewSeenSet()

	for _, cat := range o.opts.Classifier.Categories() {
		for _, keyword := range cat.Keywords {
			if ctx.Err() != nil {
				log.Warn().Msg("Run cancelled")
				return stats
			}
			if !o.processKeyword(ctx, log, cat, keyword, seen, &stats) {
				log.Warn().Msg("Run cancelled")
				return stats
			}
		}
	}

	return stats
}

// processKeyword handles one search. It returns false when the run must stop.
func (o *Orchestrator) processKeyword(ctx context.Context, log *logger.Logger, cat classifier.Category, keyword string, seen SeenSet, stats *RunStats) bool {
	kwLog := log.WithFields(logger.Fields{"category": cat.Name, "keyword": keyword})

	items, err := o.opts.Catalog.Search(ctx, keyword, o.limit)
	if err != nil {
		stats.SearchFailures++
		kwLog.Warn().
			Err(err).
			Str("error_kind", string(errors.KindOf(err))).
			Bool("retryable", errors.IsRetryable(err)).
			Msg("Search failed")
		return true
	}
	if len(items) > o.limit {
		items = items[:o.limit]
	}
	stats.Discovered += len(items)

	for _, raw := range items {
		item, err := offer.Normalize(raw, keyword)
		if err != nil {
			stats.Skipped++
			kwLog.Debug().Err(err).Msg("Malformed item skipped")
			continue
		}

		if seen.Mark(item.URL) {
			stats.Duplicates++
			kwLog.Debug().Str("url", item.URL).Msg("Duplicate offer skipped")
			continue
		}

		target := cat
		if !o.opts.ClassifyByKeyword {
			target = o.opts.Classifier.Classify(item.Title)
		}

		msg, ok := o.opts.Composer.Compose(item, target, o.opts.Policy)
		if !ok {
			stats.Skipped++
			kwLog.Debug().Str("title", item.Title).Int("discount", item.Discount()).Msg("Offer below thresholds")
			continue
		}

		err = o.opts.Publisher.Send(ctx, msg)
		if result := publisher.NewResult(err); !result.Success {
			stats.PublishFailures++
			kwLog.Error().
				Err(err).
				Str("error_kind", string(result.ErrorKind)).
				Bool("retryable", errors.IsRetryable(err)).
				Str("url", item.URL).
				Msg("Publish failed")
		} else {
			stats.Published++
			kwLog.Info().Str("title", item.Title).Int("discount", item.Discount()).Str("classified_as", target.Name).Msg("Offer published")
		}

		if err := o.throttle.Pause(ctx); err != nil {
			return false
		}
	}
	return true
}
