// Package orchestrator runs the request pipeline: rate limit, classify,
// aggregate through the answer cache, emit the conversation event, respond.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kisanmitra/advisor/internal/aggregate"
	"github.com/kisanmitra/advisor/internal/cache"
	"github.com/kisanmitra/advisor/internal/classify"
	"github.com/kisanmitra/advisor/internal/model"
	"github.com/kisanmitra/advisor/internal/monitoring"
	"github.com/kisanmitra/advisor/internal/ratelimit"
)

// MaxTextLen bounds inbound question length. Longer input is rejected as
// invalid rather than truncated silently.
const MaxTextLen = 2000

// InvalidInputError is surfaced to the caller as a validation message, so
// front ends can show a "please rephrase" prompt instead of a cooldown.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s", e.Reason)
}

// Request is one inbound query.
type Request struct {
	Text         string
	ClientID     string
	LanguageHint string
	LocationHint string
}

// EventSink receives the structured event emitted per answered request.
type EventSink func(ctx context.Context, event model.ConversationEvent)

// Orchestrator ties the pipeline stages together. All per-request state is
// passed explicitly; the orchestrator itself is safe for concurrent use.
type Orchestrator struct {
	limiter    *ratelimit.Limiter
	classifier *classify.Classifier
	aggregator *aggregate.Aggregator
	cache      cache.Cache
	answerTTL  time.Duration
	metrics    *monitoring.Metrics
	sinks      []EventSink
	nowFunc    func() time.Time
}

// New creates an orchestrator.
func New(
	limiter *ratelimit.Limiter,
	classifier *classify.Classifier,
	aggregator *aggregate.Aggregator,
	c cache.Cache,
	answerTTL time.Duration,
	metrics *monitoring.Metrics,
	sinks ...EventSink,
) *Orchestrator {
	return &Orchestrator{
		limiter:    limiter,
		classifier: classifier,
		aggregator: aggregator,
		cache:      c,
		answerTTL:  answerTTL,
		metrics:    metrics,
		sinks:      sinks,
		nowFunc:    time.Now,
	}
}

// WithNow sets the clock for testing.
func (o *Orchestrator) WithNow(fn func() time.Time) *Orchestrator {
	o.nowFunc = fn
	return o
}

// Handle answers one request. Rate-limit and validation errors come back
// typed; any other failure degrades to a best-effort answer rather than an
// error, so the caller always gets something to show.
func (o *Orchestrator) Handle(ctx context.Context, req Request) (answer *model.AggregatedAnswer, err error) {
	start := o.nowFunc()
	clientID := req.ClientID
	if clientID == "" {
		clientID = "anonymous"
	}

	if rlErr := o.limiter.Allow(clientID); rlErr != nil {
		o.metrics.RateLimitedTotal.Inc()
		o.metrics.ObserveRequest("", "rate_limited", o.nowFunc().Sub(start))
		return nil, rlErr
	}

	if len(req.Text) > MaxTextLen {
		o.metrics.ObserveRequest("", "invalid_input", o.nowFunc().Sub(start))
		return nil, &InvalidInputError{Reason: fmt.Sprintf("text exceeds %d bytes", MaxTextLen)}
	}

	q := o.classifier.ClassifyWithHints(req.Text, req.LanguageHint, req.LocationHint)

	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("request pipeline panicked",
				zap.String("client_id", clientID),
				zap.Any("panic", r),
			)
			answer = o.degradedAnswer(q)
			err = nil
			o.metrics.ObserveRequest(string(q.Intent), "degraded", o.nowFunc().Sub(start))
		}
	}()

	answer, hit, aggErr := o.cachedAnswer(ctx, q)
	if aggErr != nil {
		zap.L().Error("aggregation failed, serving degraded answer",
			zap.String("intent", string(q.Intent)),
			zap.Error(aggErr),
		)
		o.metrics.ObserveRequest(string(q.Intent), "degraded", o.nowFunc().Sub(start))
		return o.degradedAnswer(q), nil
	}

	if hit {
		o.metrics.CacheHitsTotal.Inc()
	} else {
		o.metrics.CacheMissesTotal.Inc()
	}
	for _, s := range answer.Sections {
		if !s.Live() {
			o.metrics.ProviderFallbacksTotal.WithLabelValues(s.Source).Inc()
		}
	}

	o.emit(ctx, clientID, req.Text, q, *answer)
	o.metrics.ObserveRequest(string(q.Intent), "ok", o.nowFunc().Sub(start))

	return answer, nil
}

// cachedAnswer runs the aggregator through the answer cache. A hit within
// the TTL replays the stored bytes, so repeated identical queries return
// bit-identical answers.
func (o *Orchestrator) cachedAnswer(ctx context.Context, q model.StructuredQuery) (*model.AggregatedAnswer, bool, error) {
	blob, hit, err := o.cache.GetOrCompute(ctx, q.CacheKey(), o.answerTTL, func(ctx context.Context) ([]byte, error) {
		ans, err := o.aggregator.Answer(ctx, q)
		if err != nil {
			return nil, err
		}
		return json.Marshal(ans)
	})
	if err != nil {
		return nil, false, err
	}

	var answer model.AggregatedAnswer
	if err := json.Unmarshal(blob, &answer); err != nil {
		return nil, false, eris.Wrap(err, "orchestrator: decode cached answer")
	}
	return &answer, hit, nil
}

func (o *Orchestrator) emit(ctx context.Context, clientID, rawText string, q model.StructuredQuery, answer model.AggregatedAnswer) {
	if len(o.sinks) == 0 {
		return
	}
	event := model.ConversationEvent{
		ID:        uuid.New().String(),
		ClientID:  clientID,
		RawText:   rawText,
		Query:     q,
		Answer:    answer,
		Timestamp: o.nowFunc().UTC(),
	}
	for _, sink := range o.sinks {
		sink(ctx, event)
	}
}

// degradedAnswer is the "always answer something" response for unexpected
// failures. It is deliberately generic and never exposes internals.
func (o *Orchestrator) degradedAnswer(q model.StructuredQuery) *model.AggregatedAnswer {
	text := "The advisory service hit a temporary problem and could not build a full answer. Please try again in a few minutes."
	switch q.Language {
	case model.LanguageHindi:
		text = "सेवा में अस्थायी समस्या के कारण पूरा उत्तर नहीं बन सका। कृपया कुछ मिनट बाद फिर से प्रयास करें।"
	case model.LanguageHinglish:
		text = "Seva mein asthayi samasya ke karan poora jawab nahi ban saka. Kripya kuchh minute baad phir prayas karein."
	}

	return &model.AggregatedAnswer{
		Query:       q,
		Sections:    []model.ProviderResult{},
		Text:        text,
		Language:    q.Language,
		BestEffort:  true,
		GeneratedAt: o.nowFunc(),
	}
}

// Limiter exposes the rate limiter for read-only status queries.
func (o *Orchestrator) Limiter() *ratelimit.Limiter {
	return o.limiter
}
