package openrouter

import (
	"strings"

	"github.com/teranos/capgen/ai/gemini"
)

// ModelPricing is USD per million tokens
type ModelPricing struct {
	PromptPrice     float64
	CompletionPrice float64
}

// OpenRouter slugs that are not plain Google models. google/* slugs fall
// through to the Gemini price table.
var modelPricing = map[string]ModelPricing{
	"openai/gpt-4o-mini":                {PromptPrice: 0.15, CompletionPrice: 0.60},
	"openai/gpt-4o":                     {PromptPrice: 2.50, CompletionPrice: 10.00},
	"openai/gpt-4.1-mini":               {PromptPrice: 0.40, CompletionPrice: 1.60},
	"anthropic/claude-3.5-haiku":        {PromptPrice: 0.80, CompletionPrice: 4.00},
	"anthropic/claude-sonnet-4":         {PromptPrice: 3.00, CompletionPrice: 15.00},
	"meta-llama/llama-3.3-70b-instruct": {PromptPrice: 0.13, CompletionPrice: 0.40},
	"mistralai/mistral-small-3.1-24b":   {PromptPrice: 0.10, CompletionPrice: 0.30},
}

// GetPricing looks up the price of an OpenRouter model slug.
func GetPricing(model string) (ModelPricing, bool) {
	if p, ok := modelPricing[model]; ok {
		return p, true
	}
	if name, ok := strings.CutPrefix(model, "google/"); ok {
		// OpenRouter suffixes some Google slugs with a revision, e.g. gemini-2.0-flash-001
		if cost, known := gemini.CalculateCost(name, 1_000_000, 0); known {
			completion, _ := gemini.CalculateCost(name, 0, 1_000_000)
			return ModelPricing{PromptPrice: cost, CompletionPrice: completion}, true
		}
		if i := strings.LastIndex(name, "-"); i > 0 {
			return GetPricing("google/" + name[:i])
		}
	}
	return ModelPricing{}, false
}

// CalculateCost returns the USD cost of a call and whether the model's price is known.
func CalculateCost(model string, promptTokens, completionTokens int) (float64, bool) {
	p, ok := GetPricing(model)
	if !ok {
		return 0, false
	}
	return (float64(promptTokens)*p.PromptPrice + float64(completionTokens)*p.CompletionPrice) / 1_000_000, true
}
