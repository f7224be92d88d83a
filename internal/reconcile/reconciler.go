// Package reconcile rewrites the legacy make, model and body style codes of
// quote assets into vehicle catalog ids.
package reconcile

import (
	"context"
	"fmt"
	"time"

	apperrors "quote-vehicle-reconciler/internal/common/errors"
	"quote-vehicle-reconciler/internal/common/logger"
	"quote-vehicle-reconciler/internal/common/metrics"
	"quote-vehicle-reconciler/internal/common/validation"
	"quote-vehicle-reconciler/internal/matcher"
	"quote-vehicle-reconciler/internal/models"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// Reconciler runs the three matcher stages end to end.
type Reconciler struct {
	source    matcher.Source
	validator *validation.Validator
	cache     Cache
	writer    Writer
	runs      RunStore
	logger    logger.Logger
	newRunID  func() string
	now       func() time.Time
}

type Option func(*Reconciler)

func WithCache(c Cache) Option {
	return func(r *Reconciler) { r.cache = c }
}

// WithWriter enables staging and applying. Without a writer only dry runs
// are accepted.
func WithWriter(w Writer) Option {
	return func(r *Reconciler) { r.writer = w }
}

func WithRunStore(s RunStore) Option {
	return func(r *Reconciler) { r.runs = s }
}

func New(source matcher.Source, validator *validation.Validator, log logger.Logger, opts ...Option) *Reconciler {
	r := &Reconciler{
		source:    source,
		validator: validator,
		cache:     NopCache{},
		runs:      NopRunStore{},
		logger:    log.WithFields(map[string]interface{}{"component": "reconciler"}),
		newRunID:  func() string { return uuid.New().String() },
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run reconciles every legacy asset against the first active vehicle
// master of opts.TargetState. The returned summary is non-nil whenever the
// run was started, including failed runs.
func (r *Reconciler) Run(ctx context.Context, opts RunOptions) (*Summary, error) {
	if err := r.checkOptions(opts); err != nil {
		return nil, err
	}

	start := r.now()
	sum := &Summary{
		RunID:       r.newRunID(),
		TargetState: opts.TargetState,
		DryRun:      opts.DryRun,
		Apply:       opts.Apply,
	}
	log := r.logger.WithFields(map[string]interface{}{
		"runId":       sum.RunID,
		"targetState": opts.TargetState,
		"dryRun":      opts.DryRun,
		"apply":       opts.Apply,
	})

	if err := r.runs.Start(ctx, sum.RunID, opts, start.UTC()); err != nil {
		return nil, apperrors.NewRunRecordFailedError(err)
	}
	log.Info("reconciliation started", nil)

	runErr := r.reconcile(ctx, opts, sum, log)

	sum.Duration = r.now().Sub(start)
	sum.DurationMs = sum.Duration.Milliseconds()

	status := RunStatusSucceeded
	if runErr != nil {
		status = RunStatusFailed
	}
	metrics.ReconcileRuns.WithLabelValues(status).Inc()

	if err := r.runs.Finish(context.WithoutCancel(ctx), sum, status, runErr); err != nil {
		if runErr == nil {
			runErr = apperrors.NewRunRecordFailedError(err)
		} else {
			log.Warn("failed to record run", map[string]interface{}{"error": err})
		}
	}

	fields := map[string]interface{}{
		"versionId":  idString(sum.VersionID),
		"scanned":    sum.Scanned,
		"resolved":   sum.Resolved,
		"unresolved": sum.Unresolved,
		"invalid":    sum.Invalid,
		"ambiguous":  sum.Ambiguous,
		"staged":     sum.Staged,
		"applied":    sum.Applied,
		"durationMs": sum.DurationMs,
	}
	if runErr != nil {
		log.WithError(runErr).Error("reconciliation failed", fields)
		return sum, runErr
	}
	log.Info("reconciliation finished", fields)
	return sum, nil
}

func (r *Reconciler) checkOptions(opts RunOptions) error {
	if len(opts.TargetState) != 2 {
		return apperrors.NewInvalidInputError(fmt.Sprintf("targetState must be a two-letter state code, got %q", opts.TargetState))
	}
	if opts.DryRun && opts.Apply {
		return apperrors.NewInvalidInputError("dryRun and apply are mutually exclusive")
	}
	if !opts.DryRun && r.writer == nil {
		return apperrors.NewInvalidInputError("no writer configured, only dry runs are possible")
	}
	return nil
}

func (r *Reconciler) reconcile(ctx context.Context, opts RunOptions, sum *Summary, log logger.Logger) error {
	versionID, err := r.ActiveVersion(ctx, opts.TargetState)
	if err != nil {
		return err
	}
	sum.VersionID = versionID

	timer := prometheus.NewTimer(metrics.ReconcileStageDuration.WithLabelValues(matcher.StageLegacyAssets))
	cur, err := r.source.LegacyAssets(ctx)
	timer.ObserveDuration()
	if err != nil {
		return err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		row := cur.Current()
		sum.Scanned++

		u, outcome, err := r.reconcileRow(ctx, versionID, row, log)
		if err != nil {
			return err
		}
		metrics.ReconcileRows.WithLabelValues(string(outcome)).Inc()

		switch outcome {
		case OutcomeInvalid:
			sum.Invalid++
			continue
		case OutcomeUnresolved:
			sum.Unresolved++
			continue
		case OutcomeAmbiguous:
			sum.Ambiguous++
		}
		sum.Resolved++

		if opts.DryRun {
			continue
		}
		if err := r.writer.Stage(ctx, sum.RunID, u); err != nil {
			return err
		}
		sum.Staged++

		if opts.Apply {
			applied, err := r.writer.Apply(ctx, u)
			if err != nil {
				return err
			}
			if applied {
				sum.Applied++
			} else {
				log.Warn("asset no longer present, not applied", map[string]interface{}{
					"quoteId": idString(u.QuoteID),
					"assetId": idString(u.AssetID),
				})
			}
		}
	}
	if err := cur.Err(); err != nil {
		return err
	}
	return ctx.Err()
}

// ActiveVersion returns the first active vehicle master id for state.
func (r *Reconciler) ActiveVersion(ctx context.Context, state string) (interface{}, error) {
	timer := prometheus.NewTimer(metrics.ReconcileStageDuration.WithLabelValues(matcher.StageActiveVersions))
	defer timer.ObserveDuration()

	cur, err := r.source.ActiveVersions(ctx, state)
	if err != nil {
		return nil, err
	}
	ref, ok, err := matcher.First(ctx, cur)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NewVersionNotFoundError(state)
	}
	return ref.ID, nil
}

func (r *Reconciler) reconcileRow(ctx context.Context, versionID interface{}, row models.LegacyAssetRow, log logger.Logger) (*Update, Outcome, error) {
	asset := row.LegacyQuote.Asset
	rowLog := log.WithFields(map[string]interface{}{
		"quoteId":       idString(row.QuoteID),
		"legacyQuoteId": idString(row.LegacyQuote.ID),
		"assetId":       idString(asset.ID),
	})

	result, err := r.validator.ValidateAsset(asset)
	if err != nil {
		return nil, "", apperrors.NewInvalidAssetError(asset.ID, err.Error())
	}
	if !result.Valid {
		rowLog.Warn("skipping invalid asset", map[string]interface{}{"errors": result.GetErrorMessages()})
		return nil, OutcomeInvalid, nil
	}

	year, ok := yearOf(asset.Year)
	if !ok {
		rowLog.Warn("skipping asset with non-integral year", map[string]interface{}{"year": asset.Year})
		return nil, OutcomeInvalid, nil
	}

	res, err := r.Resolve(ctx, models.CatalogQuery{
		VersionID: versionID,
		Year:      year,
		Make:      asset.Make,
		Model:     asset.Model,
		BodyStyle: asset.BodyStyle,
	})
	if err != nil {
		return nil, "", err
	}
	if !res.Found {
		rowLog.Debug("no catalog match", map[string]interface{}{"matches": res.Matches})
		return nil, OutcomeUnresolved, nil
	}

	u := &Update{
		QuoteID:       row.QuoteID,
		LegacyQuoteID: row.LegacyQuote.ID,
		AssetID:       asset.ID,
		Year:          asset.Year,
		MakeOld:       asset.Make,
		ModelOld:      asset.Model,
		BodyStyleOld:  asset.BodyStyle,
		MakeID:        res.MakeID,
		ModelID:       res.ModelID,
		BodyStyleID:   res.BodyStyleID,
	}
	if res.Matches > 1 {
		rowLog.Warn("ambiguous catalog match, using the first", map[string]interface{}{"matches": res.Matches})
		return u, OutcomeAmbiguous, nil
	}
	return u, OutcomeResolved, nil
}

// Resolve runs the catalog resolver for q through the cache.
func (r *Reconciler) Resolve(ctx context.Context, q models.CatalogQuery) (*Resolution, error) {
	key, bodyStyleKey, err := cacheKeyFor(q)
	if err != nil {
		return nil, apperrors.NewInvalidInputError(err.Error())
	}

	if res, ok, err := r.cache.Get(ctx, key); err != nil {
		r.logger.Warn("cache lookup failed", map[string]interface{}{"key": key, "error": err})
	} else if ok {
		metrics.ReconcileCacheLookups.WithLabelValues("hit").Inc()
		return res, nil
	}
	metrics.ReconcileCacheLookups.WithLabelValues("miss").Inc()

	timer := prometheus.NewTimer(metrics.ReconcileStageDuration.WithLabelValues(matcher.StageCatalogMatch))
	cur, err := r.source.MatchCatalogs(ctx, q)
	if err != nil {
		timer.ObserveDuration()
		return nil, err
	}
	matches, err := matcher.Collect(ctx, cur)
	timer.ObserveDuration()
	if err != nil {
		return nil, err
	}

	res := resolveMatches(matches, bodyStyleKey)
	if err := r.cache.Set(ctx, key, res); err != nil {
		r.logger.Warn("cache store failed", map[string]interface{}{"key": key, "error": err})
	}
	return res, nil
}

func cacheKeyFor(q models.CatalogQuery) (key, bodyStyleKey string, err error) {
	makeKey, err := matcher.KeyString(q.Make)
	if err != nil {
		return "", "", fmt.Errorf("make: %w", err)
	}
	modelKey, err := matcher.KeyString(q.Model)
	if err != nil {
		return "", "", fmt.Errorf("model: %w", err)
	}
	bodyStyleKey, err = matcher.KeyString(q.BodyStyle)
	if err != nil {
		return "", "", fmt.Errorf("bodyStyle: %w", err)
	}
	return CacheKey(q.VersionID, q.Year, makeKey, modelKey, bodyStyleKey), bodyStyleKey, nil
}

// resolveMatches takes the first match. Its body style id is the nested
// entry, among the groups joined to the matched model, whose key is the
// asset's body style; without one the descriptor stays unresolved.
func resolveMatches(matches []models.CatalogMatch, bodyStyleKey string) *Resolution {
	res := &Resolution{Matches: len(matches)}
	if len(matches) == 0 {
		return res
	}

	first := matches[0]
	for _, group := range first.BodyStyle {
		for _, bs := range group.BodyStyles {
			if bs.Key != bodyStyleKey {
				continue
			}
			res.Found = true
			res.MakeID = first.Make.ID
			res.ModelID = first.Models.Model.ID
			res.BodyStyleID = bs.ID
			return res
		}
	}
	return res
}

func yearOf(v interface{}) (int, bool) {
	switch y := v.(type) {
	case int:
		return y, true
	case int32:
		return int(y), true
	case int64:
		return int(y), true
	case float64:
		if y == float64(int(y)) {
			return int(y), true
		}
	}
	return 0, false
}
