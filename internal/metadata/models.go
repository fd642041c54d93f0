package metadata

import "github.com/oukeidos/jsontp/internal/batcher"

// Provider names accepted by the CLI and configuration.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

type Model struct {
	Provider         string
	ID               string
	Label            string
	InputPerMillion  float64
	OutputPerMillion float64
}

// Pricing returns the model price in batcher form.
func (m Model) Pricing() batcher.Pricing {
	return batcher.Pricing{InputPerMillion: m.InputPerMillion, OutputPerMillion: m.OutputPerMillion}
}

var OpenAIModels = []Model{
	{
		Provider:         ProviderOpenAI,
		ID:               "gpt-4o-mini",
		Label:            "GPT-4o mini",
		InputPerMillion:  0.15,
		OutputPerMillion: 0.60,
	},
	{
		Provider:         ProviderOpenAI,
		ID:               "gpt-4o",
		Label:            "GPT-4o",
		InputPerMillion:  2.50,
		OutputPerMillion: 10.00,
	},
	{
		Provider:         ProviderOpenAI,
		ID:               "gpt-4.1-mini",
		Label:            "GPT-4.1 mini",
		InputPerMillion:  0.40,
		OutputPerMillion: 1.60,
	},
}

var GeminiModels = []Model{
	{
		Provider:         ProviderGemini,
		ID:               "gemini-2.5-flash",
		Label:            "Gemini 2.5 Flash",
		InputPerMillion:  0.30,
		OutputPerMillion: 2.50,
	},
	{
		Provider:         ProviderGemini,
		ID:               "gemini-2.0-flash",
		Label:            "Gemini 2.0 Flash",
		InputPerMillion:  0.10,
		OutputPerMillion: 0.40,
	},
}

const (
	DefaultOpenAIModel            = "gpt-4o-mini"
	DefaultGeminiModel            = "gemini-2.5-flash"
	DefaultOpenAIInputPerMillion  = 2.50
	DefaultOpenAIOutputPerMillion = 10.00
	DefaultGeminiInputPerMillion  = 0.30
	DefaultGeminiOutputPerMillion = 2.50
)

// Models returns the known models of a provider, or every model for "".
func Models(provider string) []Model {
	switch provider {
	case ProviderOpenAI:
		return OpenAIModels
	case ProviderGemini:
		return GeminiModels
	case "":
		all := make([]Model, 0, len(OpenAIModels)+len(GeminiModels))
		all = append(all, OpenAIModels...)
		return append(all, GeminiModels...)
	default:
		return nil
	}
}

// DefaultModel returns the model used when none is configured.
func DefaultModel(provider string) string {
	if provider == ProviderGemini {
		return DefaultGeminiModel
	}
	return DefaultOpenAIModel
}

// Lookup returns the price entry of a model. Unknown models get the
// provider's conservative default pricing and ok=false.
func Lookup(provider, modelID string) (Model, bool) {
	for _, m := range Models(provider) {
		if m.ID == modelID {
			return m, true
		}
	}
	if provider == ProviderGemini {
		return Model{
			Provider:         ProviderGemini,
			ID:               modelID,
			Label:            "Default Gemini",
			InputPerMillion:  DefaultGeminiInputPerMillion,
			OutputPerMillion: DefaultGeminiOutputPerMillion,
		}, false
	}
	return Model{
		Provider:         ProviderOpenAI,
		ID:               modelID,
		Label:            "Default OpenAI",
		InputPerMillion:  DefaultOpenAIInputPerMillion,
		OutputPerMillion: DefaultOpenAIOutputPerMillion,
	}, false
}

// ValidProvider reports whether name is a supported provider.
func ValidProvider(name string) bool {
	return name == ProviderOpenAI || name == ProviderGemini
}
