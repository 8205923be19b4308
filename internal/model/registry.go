package model

// RegistryEntry is one organization in the corporate registry, loaded once
// per run and treated as immutable for the run's duration.
type RegistryEntry struct {
	CorpName  string `json:"corp_name"`
	CorpCode  string `json:"corp_code"`
	StockCode string `json:"stock_code,omitempty"`
}
