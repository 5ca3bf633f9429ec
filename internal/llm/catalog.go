package llm

import "slices"

// Family selects the adapter that serves a model.
type Family string

const (
	FamilyCompletions Family = "completions"
	FamilyThinking    Family = "thinking"
	FamilyRouter      Family = "router"
)

// Model describes one entry of the static model catalog. Only the exported
// JSON fields are shown to callers.
type Model struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Provider    string `json:"provider"`
	Description string `json:"description"`
	MaxTokens   int    `json:"maxTokens"`

	Family     Family `json:"-"`
	Reasoning  bool   `json:"-"`
	UpstreamID string `json:"-"`
}

// Upstream is the model name sent on the wire.
func (m Model) Upstream() string {
	if m.UpstreamID != "" {
		return m.UpstreamID
	}
	return m.ID
}

const DefaultModelID = "deepseek-r1"

var catalog = []Model{
	{
		ID:          "deepseek-r1",
		Name:        "DeepSeek R1",
		Provider:    "DeepSeek",
		Description: "Advanced reasoning model with step-by-step thinking",
		MaxTokens:   8192,
		Family:      FamilyCompletions,
		Reasoning:   true,
		UpstreamID:  "deepseek-ai/deepseek-r1-0528",
	},
	{
		ID:          "gemini-2.5-pro",
		Name:        "Gemini 2.5 Pro",
		Provider:    "Google",
		Description: "Latest Gemini model with enhanced capabilities",
		MaxTokens:   8192,
		Family:      FamilyThinking,
		Reasoning:   true,
	},
	{
		ID:          "ai21/jamba-1.6-large",
		Name:        "Jamba 1.6 Large",
		Provider:    "OpenRouter",
		Description: "Large language model by AI21 Labs",
		MaxTokens:   8192,
		Family:      FamilyRouter,
	},
	{
		ID:          "cohere/command-r-plus",
		Name:        "Command R+",
		Provider:    "OpenRouter",
		Description: "Cohere's advanced command model",
		MaxTokens:   8192,
		Family:      FamilyRouter,
	},
	{
		ID:          "deepseek/deepseek-r1",
		Name:        "DeepSeek R1 (OpenRouter)",
		Provider:    "OpenRouter",
		Description: "DeepSeek R1 served through OpenRouter with reasoning tokens",
		MaxTokens:   8192,
		Family:      FamilyRouter,
		Reasoning:   true,
	},
}

// Models returns a copy of the catalog in display order.
func Models() []Model {
	return slices.Clone(catalog)
}

func LookupModel(id string) (Model, bool) {
	for _, m := range catalog {
		if m.ID == id {
			return m, true
		}
	}
	return Model{}, false
}

func DefaultModel() Model {
	m, _ := LookupModel(DefaultModelID)
	return m
}

// ResolveModel returns the catalog entry for id, or the default model when
// id is empty or unknown. The boolean reports whether id matched.
func ResolveModel(id string) (Model, bool) {
	if m, ok := LookupModel(id); ok {
		return m, true
	}
	return DefaultModel(), false
}
