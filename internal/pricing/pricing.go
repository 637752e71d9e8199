// Package pricing maps token counts and model identifiers to USD cost.
//
// Prices are resolved once per process, in priority order:
//  1. The four CLAUDE_PRICE_* environment variables, taken all-or-nothing:
//     a partial set is rejected and the next source is used instead.
//  2. pricing.json in the current directory.
//  3. The file named by CLAUDE_PRICING_PATH.
//  4. The embedded default table.
//
// Lookups never fail hard: an unknown model id falls back to its family
// (opus/sonnet/haiku) so a cost estimate is always available.
package pricing

import (
	_ "embed"
	"encoding/json"
	"os"
	"strconv"
	"strings"
)

//go:embed pricing.json
var embeddedPricing []byte

const perMTok = 1_000_000

// Rates holds per-token USD prices for one model.
type Rates struct {
	Input       float64
	Output      float64
	CacheCreate float64
	CacheRead   float64
}

// Table is a read-only pricing table.
type Table struct {
	models              map[string]Rates
	webSearchPerRequest float64
	override            *Rates // env override applies to every model
}

// fileModel mirrors one entry of the pricing JSON; prices are per million
// tokens for readability.
type fileModel struct {
	Input       float64 `json:"input"`
	Output      float64 `json:"output"`
	CacheCreate float64 `json:"cache_create"`
	CacheRead   float64 `json:"cache_read"`
}

type pricingFile struct {
	Models          map[string]fileModel `json:"models"`
	AdditionalCosts struct {
		WebSearchPerRequest float64 `json:"web_search_per_request"`
	} `json:"additional_costs"`
}

// Resolve builds the pricing table from the highest-priority available source.
func Resolve() *Table {
	t := loadTable()
	if r, ok := envOverride(); ok {
		t.override = &r
	}
	return t
}

func loadTable() *Table {
	if data, err := os.ReadFile("pricing.json"); err == nil {
		if t, ok := parseTable(data); ok {
			return t
		}
	}
	if path := os.Getenv("CLAUDE_PRICING_PATH"); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			if t, ok := parseTable(data); ok {
				return t
			}
		}
	}
	if t, ok := parseTable(embeddedPricing); ok {
		return t
	}
	// Embedded table failed to parse; family fallback still works.
	return &Table{models: map[string]Rates{}}
}

func parseTable(data []byte) (*Table, bool) {
	var pf pricingFile
	if err := json.Unmarshal(data, &pf); err != nil || len(pf.Models) == 0 {
		return nil, false
	}
	models := make(map[string]Rates, len(pf.Models))
	for name, m := range pf.Models {
		models[strings.ToLower(name)] = Rates{
			Input:       m.Input / perMTok,
			Output:      m.Output / perMTok,
			CacheCreate: m.CacheCreate / perMTok,
			CacheRead:   m.CacheRead / perMTok,
		}
	}
	return &Table{
		models:              models,
		webSearchPerRequest: pf.AdditionalCosts.WebSearchPerRequest,
	}, true
}

// envOverride returns per-token rates from the CLAUDE_PRICE_* variables.
// All four must be present and parseable; otherwise the set is rejected.
func envOverride() (Rates, bool) {
	keys := [4]string{
		"CLAUDE_PRICE_INPUT",
		"CLAUDE_PRICE_OUTPUT",
		"CLAUDE_PRICE_CACHE_CREATE",
		"CLAUDE_PRICE_CACHE_READ",
	}
	var vals [4]float64
	for i, key := range keys {
		raw, ok := os.LookupEnv(key)
		if !ok {
			return Rates{}, false
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return Rates{}, false
		}
		vals[i] = v
	}
	return Rates{Input: vals[0], Output: vals[1], CacheCreate: vals[2], CacheRead: vals[3]}, true
}

// ForModel returns the rates for a model id. The second result reports
// whether the table (or env override) matched; family fallback rates are
// returned with false only when even the family is unrecognized.
func (t *Table) ForModel(id string) (Rates, bool) {
	if t.override != nil {
		return *t.override, true
	}

	m := strings.ToLower(id)
	if r, ok := t.models[m]; ok {
		return r, true
	}
	// Partial match catches date-suffixed ids like claude-sonnet-4-20250514.
	for key, r := range t.models {
		if strings.Contains(m, key) || strings.Contains(key, m) {
			return r, true
		}
	}
	return familyRates(m)
}

// familyRates guesses pricing from the model family name. Cache creation is
// 1.25x input, cache read 0.1x input, matching published ratios.
func familyRates(m string) (Rates, bool) {
	var in, out float64
	switch {
	case strings.Contains(m, "opus"):
		in, out = 15.0, 75.0
	case strings.Contains(m, "sonnet"):
		in, out = 3.0, 15.0
	case strings.Contains(m, "haiku"):
		in, out = 0.80, 4.0
	default:
		// Unknown family: price as sonnet rather than failing the render.
		return Rates{
			Input:       3.0 / perMTok,
			Output:      15.0 / perMTok,
			CacheCreate: 3.75 / perMTok,
			CacheRead:   0.30 / perMTok,
		}, false
	}
	return Rates{
		Input:       in / perMTok,
		Output:      out / perMTok,
		CacheCreate: in * 1.25 / perMTok,
		CacheRead:   in * 0.1 / perMTok,
	}, true
}

// Cost computes the USD cost of one API call.
func (t *Table) Cost(modelID string, input, output, cacheCreate, cacheRead int64) float64 {
	r, _ := t.ForModel(modelID)
	return float64(input)*r.Input +
		float64(output)*r.Output +
		float64(cacheCreate)*r.CacheCreate +
		float64(cacheRead)*r.CacheRead
}

// WebSearchCost returns the flat charge for n web search requests.
func (t *Table) WebSearchCost(n int64) float64 {
	return float64(n) * t.webSearchPerRequest
}
