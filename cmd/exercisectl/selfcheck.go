package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/terra-clan/exercise-engine/internal/catalog"
)

func newSelfCheckCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "selfcheck",
		Short: "Verify every markup exercise against its own reference solution",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadCatalog()
			if err != nil {
				return err
			}

			failures, err := catalog.SelfCheck(cmd.Context(), c)
			if err != nil {
				return err
			}

			if opts.jsonOut {
				if err := printJSON(cmd.OutOrStdout(), failures); err != nil {
					return err
				}
			} else {
				for _, f := range failures {
					fmt.Fprintf(cmd.OutOrStdout(), "FAIL %s\n", f.Slug)
					for _, m := range f.Errors {
						fmt.Fprintf(cmd.OutOrStdout(), "     %s\n", m.Text)
					}
				}
			}

			if len(failures) > 0 {
				return fmt.Errorf("%d reference solutions do not pass", len(failures))
			}
			if !opts.jsonOut {
				fmt.Fprintf(cmd.OutOrStdout(), "reference solutions OK (%d exercises)\n", c.Len())
			}
			return nil
		},
	}
}
