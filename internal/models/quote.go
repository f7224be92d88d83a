// internal/models/quote.go
package models

// LegacySourceSystem is the only upstream source system whose legacy quotes
// are reconciled.
const LegacySourceSystem = 1

type Quote struct {
	ID           interface{}   `bson:"_id" json:"_id"`
	LegacyQuotes []LegacyQuote `bson:"legacyQuotes" json:"legacyQuotes"`
}

type LegacyQuote struct {
	ID           interface{} `bson:"_id" json:"_id"`
	SourceSystem int         `bson:"sourceSystem" json:"sourceSystem"`
	Assets       []Asset     `bson:"assets" json:"assets"`
}

// Asset carries the vehicle descriptor of a legacy quote. Make, model and
// body style are legacy codes and may be stored as numbers or strings, so
// they are kept untyped until matched against catalog keys.
type Asset struct {
	ID        interface{} `bson:"_id" json:"_id"`
	Year      interface{} `bson:"year" json:"year"`
	Make      interface{} `bson:"make" json:"make"`
	Model     interface{} `bson:"model" json:"model"`
	BodyStyle interface{} `bson:"bodyStyle" json:"bodyStyle"`
}

// LegacyAssetRow is one flattened (legacy quote, asset) pair.
type LegacyAssetRow struct {
	QuoteID     interface{}     `bson:"_id" json:"_id"`
	LegacyQuote FlatLegacyQuote `bson:"legacyQuotes" json:"legacyQuotes"`
}

// FlatLegacyQuote is a legacy quote after its assets array was unwound.
type FlatLegacyQuote struct {
	ID    interface{} `bson:"_id" json:"_id"`
	Asset Asset       `bson:"assets" json:"assets"`
}
