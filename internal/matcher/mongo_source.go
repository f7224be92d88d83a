package matcher

import (
	"context"
	"time"

	apperrors "quote-vehicle-reconciler/internal/common/errors"
	"quote-vehicle-reconciler/internal/common/logger"
	"quote-vehicle-reconciler/internal/models"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Aggregator is the part of *mongo.Collection the stages need.
type Aggregator interface {
	Aggregate(ctx context.Context, pipeline interface{}, opts ...*options.AggregateOptions) (*mongo.Cursor, error)
}

// MongoSource pushes each stage down to the store as one aggregation.
type MongoSource struct {
	masters      Aggregator
	quotes       Aggregator
	catalogs     Aggregator
	queryTimeout time.Duration
	logger       logger.Logger
}

// NewMongoSource takes the VehicleMasters, Quotes and VehicleCatalogs
// collections. queryTimeout bounds each aggregation server side; zero
// leaves it unbounded.
func NewMongoSource(masters, quotes, catalogs Aggregator, queryTimeout time.Duration, log logger.Logger) *MongoSource {
	return &MongoSource{
		masters:      masters,
		quotes:       quotes,
		catalogs:     catalogs,
		queryTimeout: queryTimeout,
		logger:       log.WithFields(map[string]interface{}{"source": "mongo"}),
	}
}

func (s *MongoSource) aggregateOptions() *options.AggregateOptions {
	opts := options.Aggregate().SetAllowDiskUse(true)
	if s.queryTimeout > 0 {
		opts.SetMaxTime(s.queryTimeout)
	}
	return opts
}

func (s *MongoSource) ActiveVersions(ctx context.Context, state string) (Cursor[models.VersionRef], error) {
	cur, err := s.masters.Aggregate(ctx, ActiveVersionsPipeline(state), s.aggregateOptions())
	if err != nil {
		return nil, queryError(ctx, StageActiveVersions, err)
	}
	s.logger.Debug("stage opened", map[string]interface{}{"stage": StageActiveVersions, "state": state})
	return newMongoCursor[models.VersionRef](cur, StageActiveVersions), nil
}

func (s *MongoSource) LegacyAssets(ctx context.Context) (Cursor[models.LegacyAssetRow], error) {
	cur, err := s.quotes.Aggregate(ctx, LegacyAssetsPipeline(), s.aggregateOptions())
	if err != nil {
		return nil, queryError(ctx, StageLegacyAssets, err)
	}
	s.logger.Debug("stage opened", map[string]interface{}{"stage": StageLegacyAssets})
	return newMongoCursor[models.LegacyAssetRow](cur, StageLegacyAssets), nil
}

func (s *MongoSource) MatchCatalogs(ctx context.Context, q models.CatalogQuery) (Cursor[models.CatalogMatch], error) {
	makeKey, modelKey, bodyStyleKey, err := descriptorKeys(q)
	if err != nil {
		return nil, apperrors.NewInvalidInputError(err.Error())
	}

	pipeline := CatalogMatchPipeline(q.VersionID, q.Year, makeKey, modelKey, bodyStyleKey)
	cur, err := s.catalogs.Aggregate(ctx, pipeline, s.aggregateOptions())
	if err != nil {
		return nil, queryError(ctx, StageCatalogMatch, err)
	}
	return newMongoCursor[models.CatalogMatch](cur, StageCatalogMatch), nil
}
