package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"quote-vehicle-reconciler/internal/matcher"
	"quote-vehicle-reconciler/internal/models"
)

// printRows drains cur, writing one relaxed Extended JSON document per line.
func printRows[T any](ctx context.Context, w io.Writer, cur matcher.Cursor[T]) error {
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		line, err := bson.MarshalExtJSON(cur.Current(), false, false)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, string(line)); err != nil {
			return err
		}
	}
	return cur.Err()
}

func newVersionsCmd(a *app) *cobra.Command {
	var state string
	cmd := &cobra.Command{
		Use:   "versions",
		Short: "List the active vehicle master versions for a state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if state == "" {
				state = a.cfg.Reconcile.TargetState
			}
			cur, err := a.services.Source.ActiveVersions(cmd.Context(), state)
			if err != nil {
				return err
			}
			return printRows(cmd.Context(), cmd.OutOrStdout(), cur)
		},
	}
	cmd.Flags().StringVar(&state, "state", "", "two-letter state (default from config)")
	return cmd
}

func newAssetsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "assets",
		Short: "List the flattened source system 1 legacy assets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cur, err := a.services.Source.LegacyAssets(cmd.Context())
			if err != nil {
				return err
			}
			return printRows(cmd.Context(), cmd.OutOrStdout(), cur)
		},
	}
}

func newResolveCmd(a *app) *cobra.Command {
	var (
		version   string
		year      int
		mk        string
		model     string
		bodyStyle string
	)

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "List the catalog rows matching one vehicle descriptor",
		Long: `Run the catalog lookup for a single descriptor and print every matching
make/model row. Without --version the first active version of the
configured state is used. A 24 character hex --version is read as an
ObjectId.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			var versionID interface{} = version
			if version == "" {
				id, err := a.services.Reconciler.ActiveVersion(ctx, a.cfg.Reconcile.TargetState)
				if err != nil {
					return err
				}
				versionID = id
			} else if oid, err := primitive.ObjectIDFromHex(version); err == nil {
				versionID = oid
			}

			cur, err := a.services.Source.MatchCatalogs(ctx, models.CatalogQuery{
				VersionID: versionID,
				Year:      year,
				Make:      mk,
				Model:     model,
				BodyStyle: bodyStyle,
			})
			if err != nil {
				return err
			}
			return printRows(ctx, cmd.OutOrStdout(), cur)
		},
	}

	cmd.Flags().StringVar(&version, "version", "", "vehicle master version id")
	cmd.Flags().IntVar(&year, "year", 0, "model year")
	cmd.Flags().StringVar(&mk, "make", "", "legacy make code")
	cmd.Flags().StringVar(&model, "model", "", "legacy model code")
	cmd.Flags().StringVar(&bodyStyle, "body-style", "", "legacy body style code")
	for _, f := range []string{"year", "make", "model", "body-style"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}
