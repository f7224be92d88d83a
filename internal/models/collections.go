// internal/models/collections.go
package models

// Default collection names.
const (
	CollectionVehicleMasters  = "VehicleMasters"
	CollectionQuotes          = "Quotes"
	CollectionVehicleCatalogs = "VehicleCatalogs"
	CollectionNewQuotes       = "NewQuotes"
	CollectionQuoteUpdateLog  = "UQuotesLog"
)
