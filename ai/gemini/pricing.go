package gemini

// ModelPricing is USD per million tokens
type ModelPricing struct {
	PromptPrice     float64
	CompletionPrice float64
}

var modelPricing = map[string]ModelPricing{
	"gemini-1.5-flash": {PromptPrice: 0.075, CompletionPrice: 0.30},
	"gemini-1.5-pro":   {PromptPrice: 1.25, CompletionPrice: 5.00},
	"gemini-2.0-flash": {PromptPrice: 0.10, CompletionPrice: 0.40},
	"gemini-2.5-flash": {PromptPrice: 0.30, CompletionPrice: 2.50},
	"gemini-2.5-pro":   {PromptPrice: 1.25, CompletionPrice: 10.00},
}

// CalculateCost returns the USD cost of a call and whether the model's price is known.
func CalculateCost(model string, promptTokens, completionTokens int) (float64, bool) {
	p, ok := modelPricing[model]
	if !ok {
		return 0, false
	}
	return (float64(promptTokens)*p.PromptPrice + float64(completionTokens)*p.CompletionPrice) / 1_000_000, true
}
