package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "quote-vehicle-reconciler/internal/common/errors"
	"quote-vehicle-reconciler/internal/common/logger"
	"quote-vehicle-reconciler/internal/common/validation"
	"quote-vehicle-reconciler/internal/matcher"
	"quote-vehicle-reconciler/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeWriter struct {
	staged   []*Update
	applied  []*Update
	stageErr error
	applyErr error
	missing  bool
}

func (w *fakeWriter) Stage(_ context.Context, _ string, u *Update) error {
	if w.stageErr != nil {
		return w.stageErr
	}
	w.staged = append(w.staged, u)
	return nil
}

func (w *fakeWriter) Apply(_ context.Context, u *Update) (bool, error) {
	if w.applyErr != nil {
		return false, w.applyErr
	}
	if w.missing {
		return false, nil
	}
	w.applied = append(w.applied, u)
	return true, nil
}

type fakeRunStore struct {
	started  []string
	status   string
	finished *Summary
	runErr   error
	startErr error
}

func (s *fakeRunStore) Start(_ context.Context, runID string, _ RunOptions, _ time.Time) error {
	if s.startErr != nil {
		return s.startErr
	}
	s.started = append(s.started, runID)
	return nil
}

func (s *fakeRunStore) Finish(_ context.Context, sum *Summary, status string, runErr error) error {
	s.finished = sum
	s.status = status
	s.runErr = runErr
	return nil
}

type mapCache struct {
	entries map[string]*Resolution
	hits    int
}

func newMapCache() *mapCache { return &mapCache{entries: map[string]*Resolution{}} }

func (c *mapCache) Get(_ context.Context, key string) (*Resolution, bool, error) {
	res, ok := c.entries[key]
	if ok {
		c.hits++
	}
	return res, ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, res *Resolution) error {
	c.entries[key] = res
	return nil
}

// countingSource counts catalog resolver calls.
type countingSource struct {
	matcher.Source
	matchCalls int
}

func (s *countingSource) MatchCatalogs(ctx context.Context, q models.CatalogQuery) (matcher.Cursor[models.CatalogMatch], error) {
	s.matchCalls++
	return s.Source.MatchCatalogs(ctx, q)
}

func scenarioMasters() []models.VehicleMaster {
	return []models.VehicleMaster{{ID: "V1", Status: "Active", States: []string{"WI", "IL"}}}
}

func scenarioQuote(assets ...models.Asset) models.Quote {
	if len(assets) == 0 {
		assets = []models.Asset{{ID: "A1", Year: 2015, Make: 3, Model: 7, BodyStyle: 2}}
	}
	return models.Quote{
		ID:           "Q1",
		LegacyQuotes: []models.LegacyQuote{{ID: "L1", SourceSystem: 1, Assets: assets}},
	}
}

func scenarioCatalog() models.VehicleCatalog {
	return models.VehicleCatalog{
		VersionID: "V1",
		Year:      2015,
		Makes:     []models.CatalogEntry{{ID: "MK1", Key: "3"}},
		Models: []models.ModelGroup{
			{ID: "MG1", Models: []models.CatalogEntry{{ID: "MD1", Key: "7"}}},
		},
		BodyStyles: []models.BodyStyleGroup{
			{ID: "MD1", BodyStyles: []models.CatalogEntry{{ID: "BS1", Key: "2"}}},
		},
	}
}

func createTestReconciler(t *testing.T, src matcher.Source, opts ...Option) *Reconciler {
	t.Helper()
	v, err := validation.NewAssetValidator()
	require.NoError(t, err)

	r := New(src, v, logger.NewTestLogger(t), opts...)
	r.newRunID = func() string { return "run-1" }
	return r
}

// ==========================
// Core Functionality Tests
// ==========================

func TestRun_Scenario(t *testing.T) {
	tests := []struct {
		name           string
		opts           RunOptions
		validateOutput func(t *testing.T, sum *Summary, w *fakeWriter)
	}{
		{
			name: "dry run resolves without writing",
			opts: RunOptions{TargetState: "WI", DryRun: true},
			validateOutput: func(t *testing.T, sum *Summary, w *fakeWriter) {
				assert.Equal(t, 1, sum.Resolved)
				assert.Equal(t, 0, sum.Staged)
				assert.Empty(t, w.staged)
			},
		},
		{
			name: "stage only",
			opts: RunOptions{TargetState: "WI"},
			validateOutput: func(t *testing.T, sum *Summary, w *fakeWriter) {
				assert.Equal(t, 1, sum.Staged)
				assert.Equal(t, 0, sum.Applied)
				require.Len(t, w.staged, 1)
				u := w.staged[0]
				assert.Equal(t, "Q1", u.QuoteID)
				assert.Equal(t, "L1", u.LegacyQuoteID)
				assert.Equal(t, "A1", u.AssetID)
				assert.Equal(t, 3, u.MakeOld)
				assert.Equal(t, 7, u.ModelOld)
				assert.Equal(t, 2, u.BodyStyleOld)
				assert.Equal(t, "MK1", u.MakeID)
				assert.Equal(t, "MD1", u.ModelID)
				assert.Equal(t, "BS1", u.BodyStyleID)
			},
		},
		{
			name: "stage and apply",
			opts: RunOptions{TargetState: "WI", Apply: true},
			validateOutput: func(t *testing.T, sum *Summary, w *fakeWriter) {
				assert.Equal(t, 1, sum.Staged)
				assert.Equal(t, 1, sum.Applied)
				assert.Len(t, w.applied, 1)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := matcher.NewMemorySource(scenarioMasters(), []models.Quote{scenarioQuote()}, []models.VehicleCatalog{scenarioCatalog()})
			w := &fakeWriter{}
			runs := &fakeRunStore{}
			r := createTestReconciler(t, src, WithWriter(w), WithRunStore(runs))

			sum, err := r.Run(context.Background(), tt.opts)
			require.NoError(t, err)

			assert.Equal(t, "run-1", sum.RunID)
			assert.Equal(t, "V1", sum.VersionID)
			assert.Equal(t, 1, sum.Scanned)
			assert.Equal(t, 0, sum.Unresolved)
			assert.Equal(t, 0, sum.Invalid)
			assert.Equal(t, []string{"run-1"}, runs.started)
			assert.Equal(t, RunStatusSucceeded, runs.status)
			assert.Same(t, sum, runs.finished)
			tt.validateOutput(t, sum, w)
		})
	}
}

func TestRun_Outcomes(t *testing.T) {
	catalog := scenarioCatalog()
	catalog.Makes = append(catalog.Makes, models.CatalogEntry{ID: "MK9", Key: "3"})

	other := scenarioCatalog()
	other.Makes[0] = models.CatalogEntry{ID: "MK4", Key: "4"}
	other.BodyStyles = append(other.BodyStyles, models.BodyStyleGroup{
		ID: "MDX", BodyStyles: []models.CatalogEntry{{ID: "BS5", Key: "5"}},
	})

	quote := scenarioQuote(
		models.Asset{ID: "A1", Year: 2015, Make: 3, Model: 7, BodyStyle: 2},   // two makes share key 3
		models.Asset{ID: "A2", Year: 2015, Make: 3, Model: 8, BodyStyle: 2},   // unknown model
		models.Asset{ID: "A3", Year: 2015, Make: "", Model: 7, BodyStyle: 2},  // empty make
		models.Asset{ID: "A4", Year: 2015, Make: 3, Model: 7},                 // no body style
		models.Asset{ID: "A5", Year: 2016, Make: 4, Model: 7, BodyStyle: 5},   // other catalog year
		models.Asset{ID: "A6", Year: 2015, Make: 3, Model: 7, BodyStyle: "2"}, // same as A1
	)
	other.Year = 2016

	src := matcher.NewMemorySource(scenarioMasters(), []models.Quote{quote}, []models.VehicleCatalog{catalog, other})
	w := &fakeWriter{}
	r := createTestReconciler(t, src, WithWriter(w))

	sum, err := r.Run(context.Background(), RunOptions{TargetState: "WI"})
	require.NoError(t, err)

	assert.Equal(t, 6, sum.Scanned)
	assert.Equal(t, 2, sum.Resolved)
	assert.Equal(t, 2, sum.Ambiguous)
	assert.Equal(t, 2, sum.Unresolved, "unknown model and a body style outside the matched model")
	assert.Equal(t, 2, sum.Invalid)
	assert.Equal(t, 2, sum.Staged)
	assert.Equal(t, "MK1", w.staged[0].MakeID, "first match wins")
}

func TestRun_BodyStyleOutsideMatchedModelIsUnresolved(t *testing.T) {
	catalog := scenarioCatalog()
	catalog.Models[0].Models = append(catalog.Models[0].Models, models.CatalogEntry{ID: "MD2", Key: "8"})
	catalog.BodyStyles = append(catalog.BodyStyles, models.BodyStyleGroup{
		ID: "MD2", BodyStyles: []models.CatalogEntry{{ID: "BS9", Key: "9"}},
	})

	quote := scenarioQuote(models.Asset{ID: "A1", Year: 2015, Make: 3, Model: 7, BodyStyle: 9})
	src := matcher.NewMemorySource(scenarioMasters(), []models.Quote{quote}, []models.VehicleCatalog{catalog})
	r := createTestReconciler(t, src)

	sum, err := r.Run(context.Background(), RunOptions{TargetState: "WI", DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Unresolved)
	assert.Equal(t, 0, sum.Resolved)
}

func TestRun_UsesFirstActiveVersion(t *testing.T) {
	masters := []models.VehicleMaster{
		{ID: "V0", Status: "Inactive", States: []string{"WI"}},
		{ID: "V1", Status: "Active", States: []string{"WI"}},
		{ID: "V2", Status: "Active", States: []string{"WI"}},
	}
	src := matcher.NewMemorySource(masters, []models.Quote{scenarioQuote()}, []models.VehicleCatalog{scenarioCatalog()})
	r := createTestReconciler(t, src)

	sum, err := r.Run(context.Background(), RunOptions{TargetState: "WI", DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, "V1", sum.VersionID)
	assert.Equal(t, 1, sum.Resolved)
}

func TestRun_CachesResolutions(t *testing.T) {
	quote := scenarioQuote(
		models.Asset{ID: "A1", Year: 2015, Make: 3, Model: 7, BodyStyle: 2},
		models.Asset{ID: "A2", Year: 2015, Make: "3", Model: "7", BodyStyle: "2"},
		models.Asset{ID: "A3", Year: 2015, Make: 3, Model: 8, BodyStyle: 2},
		models.Asset{ID: "A4", Year: 2015, Make: 3, Model: 8, BodyStyle: 2},
	)
	src := &countingSource{Source: matcher.NewMemorySource(scenarioMasters(), []models.Quote{quote}, []models.VehicleCatalog{scenarioCatalog()})}
	cache := newMapCache()
	r := createTestReconciler(t, src, WithCache(cache))

	sum, err := r.Run(context.Background(), RunOptions{TargetState: "WI", DryRun: true})
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Resolved)
	assert.Equal(t, 2, sum.Unresolved)
	assert.Equal(t, 2, src.matchCalls, "numeric and string codes share a cache entry, misses are cached too")
	assert.Equal(t, 2, cache.hits)
	assert.Contains(t, cache.entries, "vcm:catalog:V1:2015:3:7:2")
}

// ==========================
// Error Handling Tests
// ==========================

func TestRun_VersionNotFound(t *testing.T) {
	src := matcher.NewMemorySource(nil, []models.Quote{scenarioQuote()}, []models.VehicleCatalog{scenarioCatalog()})
	runs := &fakeRunStore{}
	r := createTestReconciler(t, src, WithRunStore(runs))

	sum, err := r.Run(context.Background(), RunOptions{TargetState: "WI", DryRun: true})

	assert.ErrorIs(t, err, apperrors.ErrVersionNotFound)
	require.NotNil(t, sum)
	assert.Equal(t, 0, sum.Scanned)
	assert.Equal(t, RunStatusFailed, runs.status)
	assert.ErrorIs(t, runs.runErr, apperrors.ErrVersionNotFound)
}

func TestRun_WriteFailures(t *testing.T) {
	tests := []struct {
		name   string
		opts   RunOptions
		writer *fakeWriter
	}{
		{
			name:   "staging",
			opts:   RunOptions{TargetState: "WI"},
			writer: &fakeWriter{stageErr: apperrors.NewUpdateFailedError(models.CollectionNewQuotes, errors.New("duplicate key"))},
		},
		{
			name:   "apply",
			opts:   RunOptions{TargetState: "WI", Apply: true},
			writer: &fakeWriter{applyErr: apperrors.NewUpdateFailedError(models.CollectionQuotes, errors.New("not primary"))},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := matcher.NewMemorySource(scenarioMasters(), []models.Quote{scenarioQuote()}, []models.VehicleCatalog{scenarioCatalog()})
			runs := &fakeRunStore{}
			r := createTestReconciler(t, src, WithWriter(tt.writer), WithRunStore(runs))

			sum, err := r.Run(context.Background(), tt.opts)

			assert.ErrorIs(t, err, apperrors.ErrUpdateFailed)
			require.NotNil(t, sum)
			assert.Equal(t, 1, sum.Resolved)
			assert.Equal(t, RunStatusFailed, runs.status)
		})
	}
}

func TestRun_AssetGoneIsNotApplied(t *testing.T) {
	src := matcher.NewMemorySource(scenarioMasters(), []models.Quote{scenarioQuote()}, []models.VehicleCatalog{scenarioCatalog()})
	w := &fakeWriter{missing: true}
	r := createTestReconciler(t, src, WithWriter(w))

	sum, err := r.Run(context.Background(), RunOptions{TargetState: "WI", Apply: true})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Staged)
	assert.Equal(t, 0, sum.Applied)
}

func TestRun_InvalidOptions(t *testing.T) {
	src := matcher.NewMemorySource(scenarioMasters(), nil, nil)

	tests := []struct {
		name string
		opts RunOptions
		with []Option
	}{
		{name: "missing state", opts: RunOptions{DryRun: true}},
		{name: "long state", opts: RunOptions{TargetState: "WIS", DryRun: true}},
		{name: "dry run and apply", opts: RunOptions{TargetState: "WI", DryRun: true, Apply: true}, with: []Option{WithWriter(&fakeWriter{})}},
		{name: "writes without writer", opts: RunOptions{TargetState: "WI"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs := &fakeRunStore{}
			r := createTestReconciler(t, src, append(tt.with, WithRunStore(runs))...)

			sum, err := r.Run(context.Background(), tt.opts)

			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			assert.Nil(t, sum)
			assert.Empty(t, runs.started)
		})
	}
}

func TestRun_RunStoreStartFailure(t *testing.T) {
	src := matcher.NewMemorySource(scenarioMasters(), nil, nil)
	r := createTestReconciler(t, src, WithRunStore(&fakeRunStore{startErr: errors.New("relation does not exist")}))

	_, err := r.Run(context.Background(), RunOptions{TargetState: "WI", DryRun: true})

	stdErr := apperrors.AsStandardError(err)
	assert.Equal(t, apperrors.ErrCodeRunRecordFailed, stdErr.Code)
}

func TestRun_CanceledContext(t *testing.T) {
	src := matcher.NewMemorySource(scenarioMasters(), []models.Quote{scenarioQuote()}, []models.VehicleCatalog{scenarioCatalog()})
	runs := &fakeRunStore{}
	r := createTestReconciler(t, src, WithRunStore(runs))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Run(ctx, RunOptions{TargetState: "WI", DryRun: true})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, RunStatusFailed, runs.status)
}

func TestResolveMatches(t *testing.T) {
	match := models.CatalogMatch{
		Make:   models.CatalogEntry{ID: "MK1", Key: "3"},
		Models: models.MatchedModel{ID: "MG1", Model: models.CatalogEntry{ID: "MD1", Key: "7"}},
		BodyStyle: []models.BodyStyleGroup{{
			ID: "MD1",
			BodyStyles: []models.CatalogEntry{
				{ID: "BS0", Key: "1"},
				{ID: "BS1", Key: "2"},
			},
		}},
	}

	res := resolveMatches([]models.CatalogMatch{match}, "2")
	assert.True(t, res.Found)
	assert.Equal(t, "BS1", res.BodyStyleID, "the entry with the asset's key, not the first entry")

	res = resolveMatches([]models.CatalogMatch{match}, "5")
	assert.False(t, res.Found)
	assert.Equal(t, 1, res.Matches)

	res = resolveMatches(nil, "2")
	assert.False(t, res.Found)
	assert.Equal(t, 0, res.Matches)
}
