package model

import "github.com/shopspring/decimal"

// AssetConverterHelper is a price-pair registry contract used by pools.
type AssetConverterHelper struct {
	ID string `json:"id"`
}

// AggregatorProxy is a price feed proxy for one base/quote pair.
type AggregatorProxy struct {
	ID         string `json:"id"`
	BaseAsset  string `json:"base_asset"`
	QuoteAsset string `json:"quote_asset"`
	Aggregator string `json:"aggregator"`
	Tx         string `json:"tx"`
}

// AggregatorInterface caches the latest answer of a price aggregator.
type AggregatorInterface struct {
	ID              string          `json:"id"`
	Proxy           string          `json:"proxy"`
	Decimals        int32           `json:"decimals"`
	Price           decimal.Decimal `json:"price"`
	OracleUpdatedAt uint64          `json:"oracle_updated_at"`
	Tx              string          `json:"tx"`
}

// PricePair maps a base/quote asset pair to its current proxy.
type PricePair struct {
	ID    string `json:"id"`
	Proxy string `json:"proxy"`
}

func (e *AssetConverterHelper) EntityKind() string { return KindAssetConverterHelper }
func (e *AssetConverterHelper) EntityID() string   { return e.ID }
func (e *AggregatorProxy) EntityKind() string      { return KindAggregatorProxy }
func (e *AggregatorProxy) EntityID() string        { return e.ID }
func (e *AggregatorInterface) EntityKind() string  { return KindAggregatorInterface }
func (e *AggregatorInterface) EntityID() string    { return e.ID }
func (e *PricePair) EntityKind() string            { return KindPricePair }
func (e *PricePair) EntityID() string              { return e.ID }
