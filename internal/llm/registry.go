package llm

import (
	"context"
	"net/http"
	"sort"

	"go.uber.org/zap"
)

// ProviderSettings groups the per-family adapter configuration.
type ProviderSettings struct {
	Completions CompletionsConfig `mapstructure:"completions"`
	Thinking    ThinkingConfig    `mapstructure:"thinking"`
	Router      RouterConfig      `mapstructure:"router"`
}

// Registry maps model families to the adapter serving them.
type Registry struct {
	adapters map[Family]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[Family]Adapter)}
}

func (r *Registry) Register(family Family, a Adapter) {
	r.adapters[family] = a
}

func (r *Registry) Adapter(family Family) (Adapter, bool) {
	a, ok := r.adapters[family]
	return a, ok
}

// Families lists the registered families in a stable order.
func (r *Registry) Families() []Family {
	families := make([]Family, 0, len(r.adapters))
	for f := range r.adapters {
		families = append(families, f)
	}
	sort.Slice(families, func(i, j int) bool { return families[i] < families[j] })
	return families
}

// BuildRegistry creates an adapter for every family with credentials.
// Families without an API key are left out; their models then fail with an
// adapter error at request time.
func BuildRegistry(ctx context.Context, settings ProviderSettings, client *http.Client, logger *zap.Logger) *Registry {
	reg := NewRegistry()

	if settings.Completions.APIKey != "" {
		reg.Register(FamilyCompletions, NewCompletionsAdapter(settings.Completions, client, logger.Named("completions")))
	} else {
		logger.Warn("No API key for completions provider, its models are unavailable")
	}

	if settings.Thinking.APIKey != "" {
		a, err := NewThinkingAdapter(ctx, settings.Thinking, client, logger.Named("thinking"))
		if err != nil {
			logger.Error("Failed to create thinking adapter", zap.Error(err))
		} else {
			reg.Register(FamilyThinking, a)
		}
	} else {
		logger.Warn("No API key for thinking provider, its models are unavailable")
	}

	if settings.Router.APIKey != "" {
		reg.Register(FamilyRouter, NewRouterAdapter(settings.Router, client, logger.Named("router")))
	} else {
		logger.Warn("No API key for router provider, its models are unavailable")
	}

	return reg
}
