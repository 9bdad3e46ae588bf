package market

// Asset describes one tradable instrument in the simulated catalog.
type Asset struct {
	Symbol     string  `json:"symbol"`
	Name       string  `json:"name"`
	BasePrice  float64 `json:"base_price"`
	Volatility float64 `json:"volatility"`
}

// DefaultAssets is the built-in catalog. BTC/USD is the always-free asset;
// everything else requires a premium plan.
var DefaultAssets = []Asset{
	{Symbol: "BTC/USD", Name: "Bitcoin", BasePrice: 65000, Volatility: 150},
	{Symbol: "ETH/USD", Name: "Ethereum", BasePrice: 3500, Volatility: 20},
	{Symbol: "EUR/USD", Name: "Euro/USD", BasePrice: 1.08, Volatility: 0.002},
	{Symbol: "GBP/USD", Name: "Pound/USD", BasePrice: 1.27, Volatility: 0.002},
	{Symbol: "USD/JPY", Name: "USD/Yen", BasePrice: 151.0, Volatility: 0.2},
	{Symbol: "XAU/USD", Name: "Gold", BasePrice: 2300, Volatility: 5},
	{Symbol: "AUD/USD", Name: "Aussie/USD", BasePrice: 0.65, Volatility: 0.002},
	{Symbol: "USD/CAD", Name: "USD/CAD", BasePrice: 1.36, Volatility: 0.003},
	{Symbol: "USD/CHF", Name: "USD/Franc", BasePrice: 0.91, Volatility: 0.002},
	{Symbol: "EUR/JPY", Name: "Euro/Yen", BasePrice: 163.0, Volatility: 0.2},
	{Symbol: "GBP/JPY", Name: "Pound/Yen", BasePrice: 191.0, Volatility: 0.25},
	{Symbol: "USD/BRL", Name: "USD/Real", BasePrice: 5.15, Volatility: 0.02},
	{Symbol: "USD/MXN", Name: "USD/Mex. Peso", BasePrice: 16.50, Volatility: 0.05},
	{Symbol: "USD/TRY", Name: "USD/Lira", BasePrice: 32.2, Volatility: 0.1},
	{Symbol: "USD/ZAR", Name: "USD/Rand", BasePrice: 18.5, Volatility: 0.08},
	{Symbol: "APPLE", Name: "Apple Inc.", BasePrice: 220.0, Volatility: 1.2},
}

// FindAsset looks up an asset by symbol in a catalog.
func FindAsset(assets []Asset, symbol string) (Asset, bool) {
	for _, a := range assets {
		if a.Symbol == symbol {
			return a, true
		}
	}
	return Asset{}, false
}
