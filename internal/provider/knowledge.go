package provider

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kisanmitra/advisor/internal/model"
	"github.com/kisanmitra/advisor/internal/resilience"
	"github.com/kisanmitra/advisor/pkg/anthropic"
)

const knowledgeLiveReliability = 0.7

const knowledgeSystemPrompt = `You are an agricultural advisor for Indian smallholder farmers.
Answer in at most four short sentences of plain, practical language.
If the question names a language, answer in that language; otherwise match the language of the question.
If you are not confident, say so and point the farmer to the local Krishi Vigyan Kendra.`

// Knowledge answers open-ended questions via the Anthropic API.
type Knowledge struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	limiter     *rate.Limiter
	breaker     *resilience.Breaker
	retry       resilience.RetryConfig
	fallbackRel float64
	nowFunc     func() time.Time
}

// NewKnowledge creates the general-knowledge provider.
func NewKnowledge(client anthropic.Client, llmModel string, maxTokens int, fallbackReliability float64) *Knowledge {
	return &Knowledge{
		client:      client,
		model:       llmModel,
		maxTokens:   int64(maxTokens),
		limiter:     rate.NewLimiter(rate.Limit(1), 2),
		breaker:     resilience.NewBreaker(0, 0),
		retry:       resilience.DefaultRetryConfig(),
		fallbackRel: fallbackReliability,
		nowFunc:     time.Now,
	}
}

// WithNow sets the clock for testing.
func (k *Knowledge) WithNow(fn func() time.Time) *Knowledge {
	k.nowFunc = fn
	return k
}

func (k *Knowledge) Category() Category { return CategoryKnowledge }

func (k *Knowledge) Fetch(ctx context.Context, p Params) model.ProviderResult {
	answer, err := k.fetchLive(ctx, p)
	if err != nil {
		zap.L().Warn("knowledge provider degraded to fallback",
			zap.Error(err),
		)
		return fallbackResult("anthropic", k.fallbackRel, fallbackKnowledgePayload(p), k.nowFunc())
	}

	payload := map[string]any{
		"question": p.Query,
		"answer":   answer,
	}

	return model.ProviderResult{
		Source:      "anthropic",
		Payload:     payload,
		FetchedAt:   k.nowFunc(),
		Reliability: knowledgeLiveReliability,
		Origin:      model.OriginLive,
	}
}

func (k *Knowledge) fetchLive(ctx context.Context, p Params) (string, error) {
	if k.client == nil {
		// No API key configured: every question gets the fallback answer.
		return "", errNoData
	}
	if err := k.breaker.Allow(); err != nil {
		return "", err
	}
	if err := k.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req := anthropic.MessageRequest{
		Model:     k.model,
		MaxTokens: k.maxTokens,
		System:    knowledgeSystemPrompt,
		Messages:  []anthropic.Message{{Role: "user", Content: p.Query}},
	}

	answer, err := resilience.Retry(ctx, k.retry, func(ctx context.Context) (string, error) {
		resp, err := k.client.CreateMessage(ctx, req)
		if err != nil {
			return "", err
		}
		text := strings.TrimSpace(resp.Text())
		if text == "" {
			return "", errNoData
		}
		return text, nil
	})
	k.breaker.Record(err)
	return answer, err
}
