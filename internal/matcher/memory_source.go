package matcher

import (
	"context"
	"iter"

	apperrors "quote-vehicle-reconciler/internal/common/errors"
	"quote-vehicle-reconciler/internal/models"
)

// MemorySource evaluates the stages over documents held in memory, with the
// same expansion order as the aggregation pipelines: outer array first,
// filter, then inner array.
type MemorySource struct {
	masters  []models.VehicleMaster
	quotes   []models.Quote
	catalogs []models.VehicleCatalog
}

func NewMemorySource(masters []models.VehicleMaster, quotes []models.Quote, catalogs []models.VehicleCatalog) *MemorySource {
	return &MemorySource{masters: masters, quotes: quotes, catalogs: catalogs}
}

func (s *MemorySource) ActiveVersions(_ context.Context, state string) (Cursor[models.VersionRef], error) {
	return newSeqCursor(ActiveVersionsSeq(s.masters, state)), nil
}

func (s *MemorySource) LegacyAssets(_ context.Context) (Cursor[models.LegacyAssetRow], error) {
	return newSeqCursor(LegacyAssetsSeq(s.quotes)), nil
}

func (s *MemorySource) MatchCatalogs(_ context.Context, q models.CatalogQuery) (Cursor[models.CatalogMatch], error) {
	seq, err := CatalogMatchSeq(s.catalogs, q)
	if err != nil {
		return nil, apperrors.NewInvalidInputError(err.Error())
	}
	return newSeqCursor(seq), nil
}

// ActiveVersionsSeq expands each master into one row per state and keeps the
// Active rows whose state is the target.
func ActiveVersionsSeq(masters []models.VehicleMaster, state string) iter.Seq[models.VersionRef] {
	return func(yield func(models.VersionRef) bool) {
		for _, m := range masters {
			for _, s := range m.States {
				if m.Status != models.StatusActive || s != state {
					continue
				}
				if !yield(models.VersionRef{ID: m.ID}) {
					return
				}
			}
		}
	}
}

// LegacyAssetsSeq expands legacyQuotes, keeps source system 1, then expands
// the surviving legacy quotes' assets.
func LegacyAssetsSeq(quotes []models.Quote) iter.Seq[models.LegacyAssetRow] {
	return func(yield func(models.LegacyAssetRow) bool) {
		for _, q := range quotes {
			for _, lq := range q.LegacyQuotes {
				if lq.SourceSystem != models.LegacySourceSystem {
					continue
				}
				for _, a := range lq.Assets {
					row := models.LegacyAssetRow{
						QuoteID: q.ID,
						LegacyQuote: models.FlatLegacyQuote{
							ID:    lq.ID,
							Asset: a,
						},
					}
					if !yield(row) {
						return
					}
				}
			}
		}
	}
}

// CatalogMatchSeq walks make, then model group, then nested model. The body
// style predicate looks at the whole document, and the projected body style
// groups are those sharing the matched nested model's _id.
func CatalogMatchSeq(catalogs []models.VehicleCatalog, q models.CatalogQuery) (iter.Seq[models.CatalogMatch], error) {
	makeKey, modelKey, bodyStyleKey, err := descriptorKeys(q)
	if err != nil {
		return nil, err
	}

	return func(yield func(models.CatalogMatch) bool) {
		for _, doc := range catalogs {
			if !idEqual(doc.VersionID, q.VersionID) || doc.Year != q.Year {
				continue
			}
			for _, mk := range doc.Makes {
				if mk.Key != makeKey {
					continue
				}
				for _, group := range doc.Models {
					for _, model := range group.Models {
						if model.Key != modelKey {
							continue
						}
						if !hasBodyStyleKey(doc.BodyStyles, bodyStyleKey) {
							continue
						}
						match := models.CatalogMatch{
							Make: mk,
							Models: models.MatchedModel{
								ID:    group.ID,
								Model: model,
							},
							BodyStyle: bodyStylesFor(doc.BodyStyles, model.ID),
						}
						if !yield(match) {
							return
						}
					}
				}
			}
		}
	}, nil
}

func hasBodyStyleKey(groups []models.BodyStyleGroup, key string) bool {
	for _, g := range groups {
		for _, bs := range g.BodyStyles {
			if bs.Key == key {
				return true
			}
		}
	}
	return false
}

// bodyStylesFor never returns nil, matching the store's $filter which
// always projects an array.
func bodyStylesFor(groups []models.BodyStyleGroup, modelID interface{}) []models.BodyStyleGroup {
	out := make([]models.BodyStyleGroup, 0, 1)
	for _, g := range groups {
		if idEqual(g.ID, modelID) {
			out = append(out, g)
		}
	}
	return out
}
