package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/terra-clan/exercise-engine/internal/models"
)

func newListCmd(opts *globalOptions) *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List exercises in catalog order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			k := models.Kind(kind)
			if k != "" && !k.Valid() {
				return fmt.Errorf("unknown kind %q (want %s or %s)", kind, models.KindMarkupStyle, models.KindComponent)
			}

			var summaries []models.Summary
			if cl := opts.remote(); cl != nil {
				list, err := cl.ListExercises(cmd.Context(), k)
				if err != nil {
					return err
				}
				summaries = list
			} else {
				c, err := loadCatalog()
				if err != nil {
					return err
				}
				list := c.List()
				if k != "" {
					list = c.ListByKind(k)
				}
				for _, ex := range list {
					summaries = append(summaries, ex.Summary())
				}
			}

			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), summaries)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ORDER\tSLUG\tTYPE\tDIFFICULTY\tTITLE")
			for _, s := range summaries {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", s.Order, s.Slug, s.Kind, s.Difficulty, s.Title)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "only list exercises of this type")
	return cmd
}
