package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"quote-vehicle-reconciler/internal/reconcile"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		state  string
		dryRun bool
		apply  bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Reconcile every legacy asset against the active catalog",
		Long: `Resolve every source system 1 legacy asset against the catalog of the
active vehicle master for --state and print the run summary.

By default resolved assets are staged into the NewQuotes collection and
the update log. --dry-run only counts them; --apply also rewrites the
asset in place on its quote.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := reconcile.RunOptions{
				TargetState: a.cfg.Reconcile.TargetState,
				DryRun:      a.cfg.Reconcile.DryRun,
				Apply:       a.cfg.Reconcile.Apply,
			}
			if cmd.Flags().Changed("state") {
				opts.TargetState = state
			}
			if cmd.Flags().Changed("dry-run") {
				opts.DryRun = dryRun
				if dryRun {
					opts.Apply = false
				}
			}
			if cmd.Flags().Changed("apply") {
				opts.Apply = apply
				if apply {
					opts.DryRun = false
				}
			}

			sum, err := a.services.Reconciler.Run(cmd.Context(), opts)
			if sum != nil {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if encErr := enc.Encode(sum); encErr != nil && err == nil {
					err = encErr
				}
			}
			return err
		},
	}

	cmd.Flags().StringVar(&state, "state", "", "two-letter target state (default from config)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "resolve and count without writing")
	cmd.Flags().BoolVar(&apply, "apply", false, "rewrite resolved assets on their quotes")
	cmd.MarkFlagsMutuallyExclusive("dry-run", "apply")

	return cmd
}
