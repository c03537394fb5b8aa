package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/terra-clan/exercise-engine/internal/catalog"
	"github.com/terra-clan/exercise-engine/internal/exercises"
	"github.com/terra-clan/exercise-engine/pkg/client"
)

type globalOptions struct {
	server  string
	apiKey  string
	jsonOut bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "exercisectl",
		Short: "Browse and verify coding exercises",
		Long: `exercisectl - browse the exercise catalog and grade submissions

Without --server the built-in catalog is used and submissions are graded
locally. With --server the commands talk to a running exercise-engine.

Examples:
  exercisectl list
  exercisectl show card
  exercisectl verify card --html index.html --css style.css
  exercisectl verify counter --component tree.json --server http://localhost:8080`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.server, "server", os.Getenv("EXERCISE_ENGINE_URL"), "exercise-engine base URL (default: grade locally)")
	cmd.PersistentFlags().StringVar(&opts.apiKey, "api-key", os.Getenv("EXERCISE_ENGINE_API_KEY"), "API key for --server")
	cmd.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "print JSON instead of text")

	cmd.AddCommand(
		newListCmd(opts),
		newShowCmd(opts),
		newVerifyCmd(opts),
		newSelfCheckCmd(opts),
	)

	return cmd
}

func (o *globalOptions) remote() *client.Client {
	if o.server == "" {
		return nil
	}
	return client.NewClient(o.server, o.apiKey, client.WithTimeout(30*time.Second))
}

func loadCatalog() (*catalog.Catalog, error) {
	c, err := catalog.Load(exercises.Content, exercises.ContentDir, exercises.Verifiers())
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return c, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
