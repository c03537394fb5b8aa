package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/terra-clan/exercise-engine/internal/models"
)

func newShowCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <slug>",
		Short: "Show an exercise with its examples and starter code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ex, err := findExercise(cmd, opts, args[0])
			if err != nil {
				return err
			}

			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), ex)
			}
			writeExercise(cmd.OutOrStdout(), ex)
			return nil
		},
	}
}

func findExercise(cmd *cobra.Command, opts *globalOptions, slug string) (*models.Exercise, error) {
	if cl := opts.remote(); cl != nil {
		return cl.GetExercise(cmd.Context(), slug)
	}

	c, err := loadCatalog()
	if err != nil {
		return nil, err
	}
	ex, ok := c.GetBySlug(slug)
	if !ok {
		return nil, fmt.Errorf("exercise %q not found", slug)
	}
	return ex, nil
}

func writeExercise(w io.Writer, ex *models.Exercise) {
	m := ex.Metadata
	fmt.Fprintf(w, "%s (%s, %s)\n", m.Title, m.Difficulty, ex.Kind)
	fmt.Fprintln(w, strings.Repeat("=", len(m.Title)))

	for _, p := range m.ProblemStatement {
		fmt.Fprintf(w, "\n%s\n", p)
	}

	for _, e := range m.Examples {
		fmt.Fprintf(w, "\nExample %d:\n  Input:  %s\n  Output: %s\n", e.ID, e.Input, e.Output)
		if e.Explanation != "" {
			fmt.Fprintf(w, "  %s\n", e.Explanation)
		}
	}

	if len(m.Constraints) > 0 {
		fmt.Fprintln(w, "\nConstraints:")
		for _, c := range m.Constraints {
			fmt.Fprintf(w, "  - %s\n", c)
		}
	}

	fmt.Fprintln(w, "\nStarter:")
	switch ex.Kind {
	case models.KindMarkupStyle:
		fmt.Fprintf(w, "%s\n%s\n", ex.Starter.HTML, ex.Starter.CSS)
	case models.KindComponent:
		fmt.Fprintln(w, ex.Starter.Component)
	}
}
