package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Pair is one tradable symbol with its asset split, so the ledger knows
// which balances an order moves.
type Pair struct {
	Symbol string `yaml:"symbol"`
	Base   string `yaml:"base"`
	Quote  string `yaml:"quote"`
}

type pairsFile struct {
	Pairs []Pair `yaml:"pairs"`
}

// LoadPairs reads the pairs file. Symbols missing an explicit base/quote
// split are derived against common quote assets; unknown shapes fail.
func LoadPairs(path string) ([]Pair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pairs file failed (%s): %w", path, err)
	}
	var doc pairsFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing pairs file failed (%s): %w", path, err)
	}
	if len(doc.Pairs) == 0 {
		return nil, fmt.Errorf("pairs file %s lists no pairs", path)
	}

	seen := make(map[string]bool, len(doc.Pairs))
	out := make([]Pair, 0, len(doc.Pairs))
	for i, p := range doc.Pairs {
		p.Symbol = strings.ToUpper(strings.TrimSpace(p.Symbol))
		p.Base = strings.ToUpper(strings.TrimSpace(p.Base))
		p.Quote = strings.ToUpper(strings.TrimSpace(p.Quote))
		if p.Symbol == "" {
			return nil, fmt.Errorf("pairs[%d]: symbol cannot be empty", i)
		}
		if p.Base == "" || p.Quote == "" {
			base, quote, ok := splitSymbol(p.Symbol)
			if !ok {
				return nil, fmt.Errorf("pairs[%d]: cannot derive base/quote from %s, set them explicitly", i, p.Symbol)
			}
			p.Base, p.Quote = base, quote
		}
		if p.Base+p.Quote != p.Symbol {
			return nil, fmt.Errorf("pairs[%d]: base+quote %s%s does not match symbol %s", i, p.Base, p.Quote, p.Symbol)
		}
		if seen[p.Symbol] {
			return nil, fmt.Errorf("pairs[%d]: duplicate symbol %s", i, p.Symbol)
		}
		seen[p.Symbol] = true
		out = append(out, p)
	}
	return out, nil
}

// quoteAssets ordered longest-first so USDT wins over USD when both match.
var quoteAssets = []string{"USDT", "BUSD", "USDC", "TUSD", "USD", "BTC", "ETH", "BNB"}

func splitSymbol(symbol string) (base, quote string, ok bool) {
	for _, q := range quoteAssets {
		if strings.HasSuffix(symbol, q) && len(symbol) > len(q) {
			return symbol[:len(symbol)-len(q)], q, true
		}
	}
	return "", "", false
}
