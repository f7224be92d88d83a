// internal/models/vehicle_catalog.go
package models

// VehicleCatalog is a document of the VehicleCatalogs collection, keyed by
// (versionId, year). Models and body styles are grouped in parallel
// hierarchies; a body style group is tied to a model by sharing its _id.
type VehicleCatalog struct {
	ID         interface{}      `bson:"_id,omitempty" json:"_id,omitempty"`
	VersionID  interface{}      `bson:"versionId" json:"versionId"`
	Year       int              `bson:"year" json:"year"`
	Makes      []CatalogEntry   `bson:"makes" json:"makes"`
	Models     []ModelGroup     `bson:"models" json:"models"`
	BodyStyles []BodyStyleGroup `bson:"bodyStyles" json:"bodyStyles"`
}

// CatalogEntry is a leaf of the catalog: an internal id and the legacy key
// it replaces. Keys are always stored as strings.
type CatalogEntry struct {
	ID  interface{} `bson:"_id" json:"_id"`
	Key string      `bson:"key" json:"key"`
}

type ModelGroup struct {
	ID     interface{}    `bson:"_id" json:"_id"`
	Models []CatalogEntry `bson:"models" json:"models"`
}

type BodyStyleGroup struct {
	ID         interface{}    `bson:"_id" json:"_id"`
	BodyStyles []CatalogEntry `bson:"bodyStyles" json:"bodyStyles"`
}

// CatalogQuery is the input of the catalog resolver.
type CatalogQuery struct {
	VersionID interface{}
	Year      int
	Make      interface{}
	Model     interface{}
	BodyStyle interface{}
}

// CatalogMatch is one resolved row: a single make and a single nested model,
// plus the body style groups whose _id equals that model's _id.
type CatalogMatch struct {
	Make      CatalogEntry     `bson:"makes" json:"makes"`
	Models    MatchedModel     `bson:"models" json:"models"`
	BodyStyle []BodyStyleGroup `bson:"bodyStyle" json:"bodyStyle"`
}

// MatchedModel is a model group after its nested models array was unwound.
type MatchedModel struct {
	ID    interface{}  `bson:"_id" json:"_id"`
	Model CatalogEntry `bson:"models" json:"models"`
}
