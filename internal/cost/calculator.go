// Package cost turns provider usage counts into USD estimates. Rates come
// from config with built-in defaults; nothing here calls a network.
package cost

// Rates is the full pricing table for one run.
type Rates struct {
	Anthropic map[string]ModelRate `yaml:"anthropic" mapstructure:"anthropic"`
	Jina      JinaRate             `yaml:"jina" mapstructure:"jina"`
}

// ModelRate prices one model in USD per million tokens. Cache writes and
// reads bill at the input rate scaled by their multiplier.
type ModelRate struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	CacheWriteMul float64 `yaml:"cache_write_mul" mapstructure:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

// JinaRate prices Jina usage: searches flat per query, the reader per
// million tokens returned.
type JinaRate struct {
	PerQuery float64 `yaml:"per_query" mapstructure:"per_query"`
	PerMTok  float64 `yaml:"per_mtok" mapstructure:"per_mtok"`
}

// Calculator applies a Rates table to usage counts.
type Calculator struct {
	rates Rates
}

// NewCalculator builds a Calculator over the given table.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// perM converts a token count priced per million into dollars.
func perM(tokens int, rate float64) float64 {
	return float64(tokens) / 1e6 * rate
}

// Claude prices one or more calls to the given model. Unknown models
// price at zero rather than guessing.
func (c *Calculator) Claude(model string, input, output, cacheWrite, cacheRead int) float64 {
	rate, ok := c.rates.Anthropic[model]
	if !ok {
		return 0
	}
	return perM(input, rate.Input) +
		perM(output, rate.Output) +
		perM(cacheWrite, rate.Input*rate.CacheWriteMul) +
		perM(cacheRead, rate.Input*rate.CacheReadMul)
}

// Search prices a number of search queries.
func (c *Calculator) Search(queries int) float64 {
	return float64(queries) * c.rates.Jina.PerQuery
}

// JinaRead prices reader-endpoint token usage.
func (c *Calculator) JinaRead(tokens int) float64 {
	return perM(tokens, c.rates.Jina.PerMTok)
}

// stdRate builds a ModelRate with the provider's standard cache
// multipliers (1.25x write, 0.1x read).
func stdRate(input, output float64) ModelRate {
	return ModelRate{
		Input: input, Output: output,
		CacheWriteMul: 1.25, CacheReadMul: 0.1,
	}
}

// DefaultRates is the built-in pricing table, current as of mid 2026.
func DefaultRates() Rates {
	return Rates{
		Anthropic: map[string]ModelRate{
			"claude-haiku-4-5-20251001":  stdRate(0.80, 4.00),
			"claude-sonnet-4-5-20250929": stdRate(3.00, 15.00),
			"claude-opus-4-6":            stdRate(15.00, 75.00),
		},
		Jina: JinaRate{PerQuery: 0.005, PerMTok: 0.02},
	}
}
