package matcher

import (
	"quote-vehicle-reconciler/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ActiveVersionsPipeline unwinds states before matching, so a master listing
// the state twice yields two rows.
func ActiveVersionsPipeline(state string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$unwind", Value: "$states"}},
		{{Key: "$match", Value: bson.D{
			{Key: "status", Value: models.StatusActive},
			{Key: "states", Value: state},
		}}},
		{{Key: "$project", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
}

// LegacyAssetsPipeline filters on the source system between the two unwinds.
func LegacyAssetsPipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$unwind", Value: "$legacyQuotes"}},
		{{Key: "$match", Value: bson.D{{Key: "legacyQuotes.sourceSystem", Value: models.LegacySourceSystem}}}},
		{{Key: "$unwind", Value: "$legacyQuotes.assets"}},
		{{Key: "$project", Value: bson.D{
			{Key: "legacyQuotes._id", Value: 1},
			{Key: "legacyQuotes.assets._id", Value: 1},
			{Key: "legacyQuotes.assets.year", Value: 1},
			{Key: "legacyQuotes.assets.make", Value: 1},
			{Key: "legacyQuotes.assets.model", Value: 1},
			{Key: "legacyQuotes.assets.bodyStyle", Value: 1},
		}}},
	}
}

// CatalogMatchPipeline resolves a descriptor whose make, model and body
// style were already coerced to key strings.
//
// The body style predicate runs on the document's bodyStyles, which is never
// unwound, so it is not scoped to the make/model of the row. The projected
// bodyStyle array joins the two hierarchies by _id: a body style group
// belongs to the nested model carrying the same _id.
func CatalogMatchPipeline(versionID interface{}, year int, makeKey, modelKey, bodyStyleKey string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "versionId", Value: versionID},
			{Key: "year", Value: year},
		}}},
		{{Key: "$unwind", Value: "$makes"}},
		{{Key: "$match", Value: bson.D{{Key: "makes.key", Value: makeKey}}}},
		{{Key: "$unwind", Value: "$models"}},
		{{Key: "$unwind", Value: "$models.models"}},
		{{Key: "$match", Value: bson.D{{Key: "models.models.key", Value: modelKey}}}},
		{{Key: "$match", Value: bson.D{{Key: "bodyStyles.bodyStyles.key", Value: bodyStyleKey}}}},
		{{Key: "$project", Value: bson.D{
			{Key: "makes._id", Value: 1},
			{Key: "makes.key", Value: 1},
			{Key: "models._id", Value: 1},
			{Key: "models.models._id", Value: 1},
			{Key: "models.models.key", Value: 1},
			{Key: "bodyStyle", Value: bson.D{{Key: "$filter", Value: bson.D{
				{Key: "input", Value: "$bodyStyles"},
				{Key: "as", Value: "bs"},
				{Key: "cond", Value: bson.D{{Key: "$and", Value: bson.A{
					bson.D{{Key: "$eq", Value: bson.A{"$$bs._id", "$models.models._id"}}},
				}}}},
			}}}},
			{Key: "_id", Value: 0},
		}}},
	}
}
