package model

import (
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
)

func TestResolvePricing(t *testing.T) {
	flash := Pricing{InputPerM: 0.10, OutputPerM: 0.40}
	lite := Pricing{InputPerM: 0.075, OutputPerM: 0.30}

	assert.Equal(t, flash, ResolvePricing("gemini-2.0-flash"))
	assert.Equal(t, flash, ResolvePricing("models/gemini-2.0-flash-001"))
	assert.Equal(t, lite, ResolvePricing("gemini-2.0-flash-lite-001"))
	assert.Equal(t, lite, ResolvePricing(" Gemini-2.0-Flash-Lite "))
	assert.Equal(t, Pricing{}, ResolvePricing("gemini-2.0-flash-thinking-exp"))
	assert.Equal(t, Pricing{}, ResolvePricing("unknown"))
}

func TestComputeCost(t *testing.T) {
	c := ComputeCost(&schema.TokenUsage{PromptTokens: 2_000_000, CompletionTokens: 500_000}, Pricing{InputPerM: 0.10, OutputPerM: 0.40})
	assert.InDelta(t, 0.20, c.Input, 1e-9)
	assert.InDelta(t, 0.20, c.Output, 1e-9)
	assert.InDelta(t, 0.40, c.Total, 1e-9)

	assert.Equal(t, Cost{}, ComputeCost(nil, Pricing{InputPerM: 1}))
}
