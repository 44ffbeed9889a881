package model

import (
	"sort"
	"strings"

	"github.com/cloudwego/eino/schema"
)

// Pricing is the USD price of one million text tokens.
type Pricing struct {
	InputPerM  float64
	OutputPerM float64
}

// Cost of one model turn in USD.
type Cost struct {
	Input  float64
	Output float64
	Total  float64
}

var geminiPricing = map[string]Pricing{
	"gemini-2.0-flash":      {InputPerM: 0.10, OutputPerM: 0.40},
	"gemini-2.0-flash-lite": {InputPerM: 0.075, OutputPerM: 0.30},
	"gemini-2.5-flash":      {InputPerM: 0.30, OutputPerM: 2.50},
	"gemini-2.5-flash-lite": {InputPerM: 0.10, OutputPerM: 0.40},
	"gemini-2.5-pro":        {InputPerM: 1.25, OutputPerM: 10.00},
}

// pricedModels is sorted longest first so "gemini-2.0-flash-lite-001" matches
// the lite entry before the plain flash one.
var pricedModels = func() []string {
	names := make([]string, 0, len(geminiPricing))
	for n := range geminiPricing {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })
	return names
}()

// ResolvePricing finds the price of a model id. Resource prefixes ("models/")
// and version suffixes ("-001", "-latest") are ignored. Unknown models are free.
func ResolvePricing(modelName string) Pricing {
	id := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(modelName)), "models/")
	if p, ok := geminiPricing[id]; ok {
		return p
	}
	for _, n := range pricedModels {
		if strings.HasPrefix(id, n+"-") {
			rest := strings.TrimPrefix(id, n+"-")
			if rest == "latest" || isDigits(rest) {
				return geminiPricing[n]
			}
		}
	}
	return Pricing{}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ComputeCost prices a turn's token usage.
func ComputeCost(usage *schema.TokenUsage, p Pricing) Cost {
	if usage == nil {
		return Cost{}
	}
	c := Cost{
		Input:  p.InputPerM * float64(usage.PromptTokens) / 1_000_000.0,
		Output: p.OutputPerM * float64(usage.CompletionTokens) / 1_000_000.0,
	}
	c.Total = c.Input + c.Output
	return c
}
