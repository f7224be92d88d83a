// Package matcher resolves legacy quote vehicle descriptors against the
// hierarchical vehicle catalog. It exposes the three read-only stages of the
// reconciliation: active-state filter, legacy quote flattener and catalog
// resolver.
package matcher

import (
	"context"
	"errors"

	apperrors "quote-vehicle-reconciler/internal/common/errors"
	"quote-vehicle-reconciler/internal/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// Stage names, used in errors, logs and metrics.
const (
	StageActiveVersions = "active_versions"
	StageLegacyAssets   = "legacy_assets"
	StageCatalogMatch   = "catalog_match"
)

// Source runs the three stages. Each call issues one read and returns a
// fresh single-pass cursor; an empty cursor is a valid outcome.
type Source interface {
	// ActiveVersions yields the _id of every Active vehicle master covering
	// state, once per matching entry of its states list.
	ActiveVersions(ctx context.Context, state string) (Cursor[models.VersionRef], error)
	// LegacyAssets yields one row per (legacy quote, asset) pair of source
	// system 1.
	LegacyAssets(ctx context.Context) (Cursor[models.LegacyAssetRow], error)
	// MatchCatalogs yields the catalog make/model rows matching q.
	MatchCatalogs(ctx context.Context, q models.CatalogQuery) (Cursor[models.CatalogMatch], error)
}

func queryError(ctx context.Context, stage string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) || mongo.IsTimeout(err) {
		return apperrors.NewQueryTimeoutError(stage, err)
	}
	return apperrors.NewQueryExecutionFailedError(stage, err)
}
