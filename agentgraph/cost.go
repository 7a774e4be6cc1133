package agentgraph

import "github.com/flowforge/agentflow/llm"

// ModelPricing is the USD cost per 1M tokens for one model, split by
// input/output since most providers price them differently.
type ModelPricing struct {
	InputPer1M  float64
	OutputPer1M float64
}

// defaultPricing mirrors the public per-1M-token rates for the models the
// provider adapters in this module target. Adjust as providers reprice;
// an unknown model falls back to zero cost rather than failing.
var defaultPricing = map[string]ModelPricing{
	"gpt-4o":                     {InputPer1M: 2.50, OutputPer1M: 10.00},
	"gpt-4o-mini":                {InputPer1M: 0.15, OutputPer1M: 0.60},
	"gpt-4-turbo":                {InputPer1M: 10.00, OutputPer1M: 30.00},
	"claude-sonnet-4-5-20250929": {InputPer1M: 3.00, OutputPer1M: 15.00},
	"claude-3-5-sonnet-20241022": {InputPer1M: 3.00, OutputPer1M: 15.00},
	"claude-3-opus-20240229":     {InputPer1M: 15.00, OutputPer1M: 75.00},
	"claude-3-haiku-20240307":    {InputPer1M: 0.25, OutputPer1M: 1.25},
	"gemini-1.5-pro":             {InputPer1M: 1.25, OutputPer1M: 5.00},
	"gemini-1.5-flash":           {InputPer1M: 0.075, OutputPer1M: 0.30},
}

// NodeCost is the token usage and estimated dollar cost of one node's LLM
// call, attached to a NodeState when the generator reports usage.
type NodeCost struct {
	InputTokens  int
	OutputTokens int
	CostUSD      float64
}

// estimateCost converts a raw usage report into a NodeCost, pricing it
// against model if known. An unrecognized model still reports token
// counts, just with a zero CostUSD.
func estimateCost(model string, usage llm.Usage) NodeCost {
	pricing := defaultPricing[model]
	return NodeCost{
		InputTokens:  usage.InputTokens,
		OutputTokens: usage.OutputTokens,
		CostUSD:      (float64(usage.InputTokens)/1_000_000)*pricing.InputPer1M + (float64(usage.OutputTokens)/1_000_000)*pricing.OutputPer1M,
	}
}
