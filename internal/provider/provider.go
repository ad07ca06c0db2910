// Package provider defines the data-source adapters that feed the
// aggregator. Each adapter wraps one upstream behind a uniform interface
// and degrades to a static baseline when the upstream fails, so a fetch
// always yields a well-formed result.
package provider

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/kisanmitra/advisor/internal/model"
)

// Category identifies the kind of data a provider serves.
type Category string

const (
	CategoryWeather   Category = "weather"
	CategoryMarket    Category = "market"
	CategoryCrop      Category = "crop"
	CategoryScheme    Category = "scheme"
	CategoryKnowledge Category = "knowledge"
)

// ErrUnknownCategory is returned when no provider is registered for a
// requested category.
var ErrUnknownCategory = eris.New("provider: unknown category")

// errNoData marks an upstream response that succeeded but carried no usable
// records. Adapters treat it like any other failure and fall back.
var errNoData = eris.New("provider: upstream returned no records")

// Params carries the query entities a provider needs.
type Params struct {
	Location string
	Crop     string
	Season   string
	Query    string
}

// Provider fetches one category of data. Fetch never fails: upstream
// errors produce a fallback result instead.
type Provider interface {
	Category() Category
	Fetch(ctx context.Context, p Params) model.ProviderResult
}

// Registry maps categories to providers.
type Registry struct {
	mu        sync.RWMutex
	providers map[Category]Provider
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[Category]Provider)}
}

// Register adds a provider, replacing any existing one for its category.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Category()] = p
}

// Get returns the provider for a category.
func (r *Registry) Get(cat Category) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[cat]
	if !ok {
		return nil, eris.Wrapf(ErrUnknownCategory, "%s", cat)
	}
	return p, nil
}

// CategoriesFor returns the provider categories consulted for an intent,
// in a fixed order so answer sections are deterministic. Greetings need
// no providers.
func CategoriesFor(intent model.Intent) []Category {
	switch intent {
	case model.IntentCropRecommendation:
		return []Category{CategoryCrop, CategoryMarket, CategoryWeather}
	case model.IntentWeather:
		return []Category{CategoryWeather}
	case model.IntentMarketPrice:
		return []Category{CategoryMarket}
	case model.IntentPestControl:
		return []Category{CategoryCrop, CategoryWeather}
	case model.IntentGovernmentScheme:
		return []Category{CategoryScheme}
	case model.IntentGeneralKnowledge:
		return []Category{CategoryKnowledge}
	default:
		return nil
	}
}
