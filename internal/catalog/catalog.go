package catalog

// Plan is an immutable catalog entry. The list is defined at process start
// and never mutated; callers always receive copies.
type Plan struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	PriceMinor  int64    `json:"priceMinor"`
	Currency    string   `json:"currency"`
	Symbol      string   `json:"symbol"`
	BaseTokens  int64    `json:"tokens"`
	BonusTokens int64    `json:"bonusTokens"`
	Features    []string `json:"features"`
	Popular     bool     `json:"popular"`
	Badge       string   `json:"badge,omitempty"`
}

// TotalTokens is the grant applied on a successful checkout.
func (p Plan) TotalTokens() int64 {
	return p.BaseTokens + p.BonusTokens
}

var plans = []Plan{
	{
		ID:         "starter",
		Name:       "Starter Pack",
		PriceMinor: 129900,
		Currency:   "INR",
		Symbol:     "₹",
		BaseTokens: 30,
		Features: []string{
			"New minimum entry point",
			"Feels premium, filters serious users",
			"Best for quick testing",
		},
	},
	{
		ID:          "trader",
		Name:        "Trader Pack",
		PriceMinor:  199900,
		Currency:    "INR",
		Symbol:      "₹",
		BaseTokens:  70,
		BonusTokens: 10,
		Features: []string{
			"Most users upgrade here",
			"Better value than starter",
			"Perfect for intraday traders",
		},
	},
	{
		ID:          "pro",
		Name:        "Pro Pack",
		PriceMinor:  349900,
		Currency:    "INR",
		Symbol:      "₹",
		BaseTokens:  150,
		BonusTokens: 30,
		Features: []string{
			"Extremely attractive",
			"High revenue",
			"Recommended pack for all traders",
		},
		Popular: true,
		Badge:   "Best Seller",
	},
	{
		ID:          "elite",
		Name:        "Elite Pack",
		PriceMinor:  599900,
		Currency:    "INR",
		Symbol:      "₹",
		BaseTokens:  300,
		BonusTokens: 70,
		Features: []string{
			"Designed for prop traders & heavy users",
			"Very profitable for you",
			"High-value high-commitment pack",
		},
	},
	{
		ID:          "ultimate",
		Name:        "Ultimate Mega Pack",
		PriceMinor:  999900,
		Currency:    "INR",
		Symbol:      "₹",
		BaseTokens:  600,
		BonusTokens: 150,
		Features: []string{
			"One-time large revenue",
			"For serious professional traders",
			"Perfect upsell on checkout",
		},
		Badge: "Lifetime",
	},
}

// Plans returns the ordered catalog.
func Plans() []Plan {
	out := make([]Plan, len(plans))
	copy(out, plans)
	return out
}

// ByID looks a plan up by its identifier.
func ByID(id string) (Plan, bool) {
	for _, p := range plans {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}

// AnalysisCategory selects a row of the token cost table.
type AnalysisCategory string

const (
	// AnalysisBasic covers plain candlestick reads.
	AnalysisBasic AnalysisCategory = "basic"
	// AnalysisAdvanced covers SMC, ICT, pattern and indicator analysis.
	AnalysisAdvanced AnalysisCategory = "advanced"
)

type AnalysisCost struct {
	Category AnalysisCategory `json:"category"`
	Label    string           `json:"label"`
	Tokens   int64            `json:"tokens"`
}

var costs = []AnalysisCost{
	{Category: AnalysisBasic, Label: "Basic Candlestick", Tokens: 2},
	{Category: AnalysisAdvanced, Label: "SMC / ICT / Pattern / Indicator", Tokens: 5},
}

// Costs returns the token cost table in display order.
func Costs() []AnalysisCost {
	out := make([]AnalysisCost, len(costs))
	copy(out, costs)
	return out
}

// TokenCost returns the charge for one analysis of the given category.
func TokenCost(category AnalysisCategory) (int64, bool) {
	for _, c := range costs {
		if c.Category == category {
			return c.Tokens, true
		}
	}
	return 0, false
}
