package reconcile

import (
	"context"
	"time"

	apperrors "quote-vehicle-reconciler/internal/common/errors"
	"quote-vehicle-reconciler/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Writer persists resolved rows.
type Writer interface {
	// Stage records the rewritten asset in the staging collection and the
	// old/new codes in the update log.
	Stage(ctx context.Context, runID string, u *Update) error
	// Apply rewrites the asset inside its quote. applied is false when the
	// quote, legacy quote or asset no longer exists.
	Apply(ctx context.Context, u *Update) (applied bool, err error)
}

type Inserter interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
}

type Updater interface {
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

// MongoWriter writes to the NewQuotes, UQuotesLog and Quotes collections.
type MongoWriter struct {
	staged Inserter
	log    Inserter
	quotes Updater
	now    func() time.Time
}

func NewMongoWriter(staged, log Inserter, quotes Updater) *MongoWriter {
	return &MongoWriter{
		staged: staged,
		log:    log,
		quotes: quotes,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (w *MongoWriter) Stage(ctx context.Context, runID string, u *Update) error {
	if _, err := w.staged.InsertOne(ctx, StagedDocument(runID, u)); err != nil {
		return apperrors.NewUpdateFailedError(models.CollectionNewQuotes, err).
			WithMetadata("assetId", idString(u.AssetID))
	}
	if _, err := w.log.InsertOne(ctx, LogDocument(runID, u, w.now())); err != nil {
		return apperrors.NewUpdateFailedError(models.CollectionQuoteUpdateLog, err).
			WithMetadata("assetId", idString(u.AssetID))
	}
	return nil
}

func (w *MongoWriter) Apply(ctx context.Context, u *Update) (bool, error) {
	filter, update, opts := ApplyCommand(u)
	res, err := w.quotes.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return false, apperrors.NewUpdateFailedError(models.CollectionQuotes, err).
			WithMetadata("assetId", idString(u.AssetID))
	}
	return res.MatchedCount > 0, nil
}

// StagedDocument is the flattened row with the legacy codes replaced by
// catalog ids. It gets its own _id since a quote contributes one document
// per asset.
func StagedDocument(runID string, u *Update) bson.D {
	return bson.D{
		{Key: "_id", Value: primitive.NewObjectID()},
		{Key: "runId", Value: runID},
		{Key: "quoteId", Value: u.QuoteID},
		{Key: "legacyQuotes", Value: bson.D{
			{Key: "_id", Value: u.LegacyQuoteID},
			{Key: "assets", Value: bson.D{
				{Key: "_id", Value: u.AssetID},
				{Key: "year", Value: u.Year},
				{Key: "make", Value: u.MakeID},
				{Key: "model", Value: u.ModelID},
				{Key: "bodyStyle", Value: u.BodyStyleID},
			}},
		}},
	}
}

// LogDocument keeps both the legacy codes (the *Old fields) and the ids.
func LogDocument(runID string, u *Update, at time.Time) bson.D {
	return bson.D{
		{Key: "_id", Value: primitive.NewObjectID()},
		{Key: "runId", Value: runID},
		{Key: "quoteId", Value: u.QuoteID},
		{Key: "legacyQuotes", Value: bson.D{
			{Key: "_id", Value: u.LegacyQuoteID},
			{Key: "assets", Value: bson.D{
				{Key: "_id", Value: u.AssetID},
				{Key: "year", Value: u.Year},
				{Key: "makeOld", Value: u.MakeOld},
				{Key: "make", Value: u.MakeID},
				{Key: "modelOld", Value: u.ModelOld},
				{Key: "model", Value: u.ModelID},
				{Key: "bodyStyleOld", Value: u.BodyStyleOld},
				{Key: "bodyStyle", Value: u.BodyStyleID},
			}},
		}},
		{Key: "createdAt", Value: at},
	}
}

// ApplyCommand targets a single asset of a single legacy quote through
// array filters, leaving sibling assets untouched. The filter only matches a
// quote that still holds that legacy quote and asset, so MatchedCount is 0
// when either is gone.
func ApplyCommand(u *Update) (filter, update bson.D, opts *options.UpdateOptions) {
	filter = bson.D{
		{Key: "_id", Value: u.QuoteID},
		{Key: "legacyQuotes", Value: bson.D{{Key: "$elemMatch", Value: bson.D{
			{Key: "_id", Value: u.LegacyQuoteID},
			{Key: "assets._id", Value: u.AssetID},
		}}}},
	}
	update = bson.D{{Key: "$set", Value: bson.D{
		{Key: "legacyQuotes.$[lq].assets.$[a].make", Value: u.MakeID},
		{Key: "legacyQuotes.$[lq].assets.$[a].model", Value: u.ModelID},
		{Key: "legacyQuotes.$[lq].assets.$[a].bodyStyle", Value: u.BodyStyleID},
	}}}
	opts = options.Update().
		SetUpsert(false).
		SetArrayFilters(options.ArrayFilters{Filters: []interface{}{
			bson.D{{Key: "lq._id", Value: u.LegacyQuoteID}},
			bson.D{{Key: "a._id", Value: u.AssetID}},
		}})
	return filter, update, opts
}
