package entity

// TerminalConfig is the server-distributed configuration snapshot the
// terminal caches locally. A device without a cached copy cannot enter
// offline mode.
type TerminalConfig struct {
	CurrencyCode string `json:"currency"`
	// RoundingDenomination is the cash rounding unit in cents (5 rounds to
	// the nearest 5c). Zero disables rounding.
	RoundingDenomination int64              `json:"cashRounding"`
	AllowNegativePrice   bool               `json:"allowNegativePrice"`
	TaxRules             map[string]TaxRule `json:"taxRules"`
	// OrderTerminal marks a device that takes kitchen orders; KitchenDisplay
	// marks a device that renders and acknowledges them.
	OrderTerminal  bool `json:"orderTerminal"`
	KitchenDisplay bool `json:"kitchenDisplay"`
}

// TerminalPrefs are device-local settings that survive restarts. LastSeq is
// the feed position used to resync anything missed while the terminal was
// shut down.
type TerminalPrefs struct {
	LastSeq int64 `json:"lastSeq"`
}

// Rule resolves a tax rule id, with ok=false for unknown or empty ids.
func (c *TerminalConfig) Rule(id string) (TaxRule, bool) {
	if id == "" || c.TaxRules == nil {
		return TaxRule{}, false
	}
	rule, ok := c.TaxRules[id]
	return rule, ok
}
