package model

import "time"

// Origin distinguishes live provider data from static fallback data.
type Origin string

const (
	OriginLive     Origin = "live"
	OriginFallback Origin = "fallback"
)

// ProviderResult is one provider's contribution to an answer. A result is
// always fully populated: either a complete live record or a complete
// fallback record, never a mix of the two.
type ProviderResult struct {
	Source      string         `json:"source"`
	Payload     map[string]any `json:"payload"`
	FetchedAt   time.Time      `json:"fetched_at"`
	Reliability float64        `json:"reliability"`
	Origin      Origin         `json:"origin"`
}

// Live reports whether the result came from a live upstream call.
func (r ProviderResult) Live() bool {
	return r.Origin == OriginLive
}

// AggregatedAnswer is the merged response for one structured query.
type AggregatedAnswer struct {
	Query    StructuredQuery  `json:"query"`
	Sections []ProviderResult `json:"sections"`
	Text     string           `json:"text"`
	// OverallReliability is live sections / total sections fetched,
	// recomputed on every aggregation.
	OverallReliability float64   `json:"overall_reliability"`
	Language           Language  `json:"language"`
	BestEffort         bool      `json:"best_effort"`
	GeneratedAt        time.Time `json:"generated_at"`
}

// ConversationEvent is the structured record the orchestrator emits per
// request. Persistence is a subscriber concern; the pipeline only produces it.
type ConversationEvent struct {
	ID        string           `json:"id"`
	ClientID  string           `json:"client_id"`
	RawText   string           `json:"raw_text"`
	Query     StructuredQuery  `json:"query"`
	Answer    AggregatedAnswer `json:"answer"`
	Timestamp time.Time        `json:"timestamp"`
}
