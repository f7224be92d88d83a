// internal/workers/data-access/reconcile-quote-vehicles/models.go
package reconcilequotevehicles

import "quote-vehicle-reconciler/internal/reconcile"

// Input holds the job variables. Unset fields fall back to Config.
type Input struct {
	TargetState string `json:"targetState,omitempty"`
	DryRun      *bool  `json:"dryRun,omitempty"`
	Apply       *bool  `json:"apply,omitempty"`
}

type Output struct {
	Reconciliation *reconcile.Summary `json:"reconciliation"`
}
