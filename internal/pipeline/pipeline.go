// Package pipeline orchestrates the per-unit relation extraction and indexing
// passes. Units are processed strictly sequentially: later units must observe
// string ids and running counts assigned by earlier ones.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/pkarlsson/wordrel/internal/annotation"
	"github.com/pkarlsson/wordrel/internal/expand"
	"github.com/pkarlsson/wordrel/internal/graph"
	"github.com/pkarlsson/wordrel/internal/pattern"
	"github.com/pkarlsson/wordrel/internal/relindex"
	"github.com/pkarlsson/wordrel/internal/sqlgen"
	"github.com/pkarlsson/wordrel/pkg/config"
	apperrors "github.com/pkarlsson/wordrel/pkg/errors"
	"github.com/pkarlsson/wordrel/pkg/kafka"
	"github.com/pkarlsson/wordrel/pkg/logger"
	"github.com/pkarlsson/wordrel/pkg/metrics"
	"github.com/pkarlsson/wordrel/pkg/redis"
	"github.com/pkarlsson/wordrel/pkg/resilience"
)

// Unit is one corpus source unit: an id and a way to open its content.
type Unit struct {
	ID   string
	Open func() (io.ReadCloser, error)
}

// CompletionEvent is published after a successful index swap.
type CompletionEvent struct {
	TablePrefix string `json:"table_prefix"`
	Units       int    `json:"units"`
	Relations   int    `json:"relations"`
	Strings     int    `json:"strings"`
	Version     int64  `json:"version,omitempty"`
}

// Pipeline drives one run: a matcher, an aggregation session, and a writer,
// plus optional post-swap notifiers.
type Pipeline struct {
	cfg     *config.Config
	matcher *pattern.Matcher
	session *relindex.Session
	writer  *sqlgen.Writer
	metrics *metrics.Metrics
	logger  *slog.Logger

	cache    *redis.Client
	producer *kafka.Producer

	units int
}

// New assembles a pipeline around an already-compiled matcher and writer.
func New(cfg *config.Config, matcher *pattern.Matcher, writer *sqlgen.Writer, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		matcher: matcher,
		session: relindex.NewSession(cfg.Index, m),
		writer:  writer,
		metrics: m,
		logger:  logger.WithComponent("pipeline"),
	}
}

// WithNotifiers attaches the optional post-swap cache invalidator and
// completion-event producer. Either may be nil.
func (p *Pipeline) WithNotifiers(cache *redis.Client, producer *kafka.Producer) *Pipeline {
	p.cache = cache
	p.producer = producer
	return p
}

// Session exposes the aggregation session, mainly for tests and stats logging.
func (p *Pipeline) Session() *relindex.Session {
	return p.session
}

// sentenceTuples runs one sentence through graph construction, matching, and
// expansion. Sentence-level data errors skip the sentence and return nil;
// configuration-level errors propagate. Skip warnings carry the unit tag
// from ctx.
func (p *Pipeline) sentenceTuples(ctx context.Context, sent *annotation.Sentence) ([]annotation.Tuple, error) {
	if p.metrics != nil {
		p.metrics.SentencesTotal.Inc()
	}
	g, err := graph.Build(sent)
	if err != nil {
		if apperrors.IsSentence(err) {
			reason := "dangling_head"
			if errors.Is(err, apperrors.ErrMissingDeprel) {
				reason = "missing_deprel"
			}
			if p.metrics != nil {
				p.metrics.SentencesSkipped.WithLabelValues(reason).Inc()
			}
			logger.FromContext(ctx).Warn("sentence skipped", "error", err)
			return nil, nil
		}
		return nil, err
	}
	matches, err := p.matcher.MatchSentence(g)
	if err != nil {
		return nil, err
	}
	if p.metrics != nil {
		for _, m := range matches {
			p.metrics.TuplesMatchedTotal.WithLabelValues(m.Kind).Inc()
		}
	}
	tuples := expand.Expand(matches)
	if p.metrics != nil {
		p.metrics.TuplesExpandedTotal.Add(float64(len(tuples)))
	}
	return tuples, nil
}

// ExtractUnit runs the extract pass for one unit, streaming interchange
// tuples to out.
func (p *Pipeline) ExtractUnit(ctx context.Context, unit Unit, out *annotation.TupleWriter) error {
	ctx = logger.WithUnit(ctx, unit.ID)
	r, err := unit.Open()
	if err != nil {
		return fmt.Errorf("opening unit %s: %w", unit.ID, err)
	}
	defer r.Close()

	sentences, err := annotation.ReadUnit(r, unit.ID, p.cfg.Extractor)
	if err != nil {
		return err
	}
	count := 0
	for i := range sentences {
		if err := ctx.Err(); err != nil {
			return err
		}
		tuples, err := p.sentenceTuples(ctx, &sentences[i])
		if err != nil {
			return err
		}
		for _, t := range tuples {
			if err := out.Write(t); err != nil {
				return err
			}
		}
		count += len(tuples)
	}
	logger.FromContext(ctx).Info("unit extracted", "sentences", len(sentences), "tuples", count)
	return nil
}

// IndexUnit runs the aggregation pass over one unit's interchange tuples.
func (p *Pipeline) IndexUnit(ctx context.Context, unitID string, in *annotation.TupleReader) error {
	ctx = logger.WithUnit(ctx, unitID)
	count := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		t, err := in.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		p.session.Add(t)
		count++
	}
	logger.FromContext(ctx).Info("unit indexed", "tuples", count,
		"relations", p.session.RelCount(), "strings", p.session.Strings().Len())
	return p.finishUnit(ctx)
}

// RunUnit processes one annotation unit end to end (extract fused with
// aggregation, no interchange files).
func (p *Pipeline) RunUnit(ctx context.Context, unit Unit) error {
	ctx = logger.WithUnit(ctx, unit.ID)
	r, err := unit.Open()
	if err != nil {
		return fmt.Errorf("opening unit %s: %w", unit.ID, err)
	}
	defer r.Close()

	sentences, err := annotation.ReadUnit(r, unit.ID, p.cfg.Extractor)
	if err != nil {
		return err
	}
	for i := range sentences {
		if err := ctx.Err(); err != nil {
			return err
		}
		tuples, err := p.sentenceTuples(ctx, &sentences[i])
		if err != nil {
			return err
		}
		for _, t := range tuples {
			p.session.Add(t)
		}
	}
	logger.FromContext(ctx).Info("unit processed", "sentences", len(sentences),
		"relations", p.session.RelCount(), "strings", p.session.Strings().Len())
	return p.finishUnit(ctx)
}

// finishUnit ends one unit. In chunked mode the sampled evidence is flushed
// now so only the additive aggregates stay in memory between units.
func (p *Pipeline) finishUnit(ctx context.Context) error {
	p.units++
	if p.metrics != nil {
		p.metrics.UnitsProcessed.Inc()
	}
	if !p.cfg.Writer.Chunked {
		return nil
	}
	if err := p.writer.WriteEvidence(ctx, p.session.DrainEvidence()); err != nil {
		return err
	}
	return p.writer.FlushEvidence(ctx)
}

// Finish writes all remaining tables and swaps them into production. Notify
// runs separately, after the delivery transport has committed.
func (p *Pipeline) Finish(ctx context.Context) error {
	if err := p.writer.WriteFacts(ctx, p.session.Facts()); err != nil {
		return err
	}
	if err := p.writer.WriteStrings(ctx, p.session.Strings()); err != nil {
		return err
	}
	if err := p.writer.WriteMarginals(ctx, p.session); err != nil {
		return err
	}
	if err := p.writer.WriteEvidence(ctx, p.session.DrainEvidence()); err != nil {
		return err
	}
	if err := p.writer.Swap(ctx); err != nil {
		return err
	}
	p.logger.Info("run finished",
		"units", p.units,
		"relations", p.session.RelCount(),
		"strings", p.session.Strings().Len(),
	)
	return nil
}

// Notify bumps the index version, invalidates downstream query caches, and
// publishes the completion event. Best effort: failures are logged, not
// returned, since the index itself is already live.
func (p *Pipeline) Notify(ctx context.Context) {
	event := CompletionEvent{
		TablePrefix: p.cfg.Writer.TablePrefix,
		Units:       p.units,
		Relations:   p.session.RelCount(),
		Strings:     p.session.Strings().Len(),
	}
	if p.cache != nil {
		err := resilience.Retry(ctx, "cache-invalidate", resilience.RetryConfig{}, func() error {
			version, err := p.cache.BumpVersion(ctx, p.cfg.Redis.VersionKey)
			if err != nil {
				return err
			}
			event.Version = version
			_, err = p.cache.FlushByPattern(ctx, p.cfg.Redis.InvalidatePattern)
			return err
		})
		if err != nil {
			p.logger.Error("cache invalidation failed", "error", err)
		} else {
			p.logger.Info("query cache invalidated", "version", event.Version)
		}
	}
	if p.producer != nil {
		err := resilience.Retry(ctx, "index-complete", resilience.RetryConfig{}, func() error {
			return p.producer.Publish(ctx, kafka.Event{Key: p.cfg.Writer.TablePrefix, Value: event})
		})
		if err != nil {
			p.logger.Error("completion event publish failed", "error", err)
		}
	}
}
