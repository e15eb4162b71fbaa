package dexscreener

// pairsResponse is the DexScreener pairs endpoint payload. Only the fields
// used for quotes and metadata are decoded.
type pairsResponse struct {
	SchemaVersion string `json:"schemaVersion"`
	Pairs         []pair `json:"pairs"`
}

type pair struct {
	ChainID     string `json:"chainId"`
	DexID       string `json:"dexId"`
	URL         string `json:"url"`
	PairAddress string `json:"pairAddress"`
	BaseToken   token  `json:"baseToken"`
	QuoteToken  token  `json:"quoteToken"`
	PriceNative string `json:"priceNative"`
	PriceUsd    string `json:"priceUsd"`

	PriceChange *struct {
		H24 *float64 `json:"h24"`
		H6  *float64 `json:"h6"`
	} `json:"priceChange"`

	Info *struct {
		ImageURL string `json:"imageUrl"`
	} `json:"info"`
}

type token struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}
