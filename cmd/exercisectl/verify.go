package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/terra-clan/exercise-engine/internal/models"
	"github.com/terra-clan/exercise-engine/pkg/client"
)

// errNotPassed makes the process exit non-zero without extra output
var errNotPassed = errors.New("submission did not pass")

type verifyOptions struct {
	htmlFile      string
	cssFile       string
	componentFile string
	learnerID     string
}

func newVerifyCmd(opts *globalOptions) *cobra.Command {
	vo := &verifyOptions{}

	cmd := &cobra.Command{
		Use:   "verify <slug>",
		Short: "Grade a submission against an exercise",
		Long: `Grade a submission. Markup-style exercises take --html and/or --css files.
Component exercises take --component, a JSON render tree such as
{"name":"Counter","tree":{"type":"div","children":[{"type":"button"}]}}.

Exits non-zero when the submission does not pass.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slug := args[0]

			ex, err := findExercise(cmd, opts, slug)
			if err != nil {
				return err
			}

			req, err := vo.request()
			if err != nil {
				return err
			}

			var res models.Result
			if cl := opts.remote(); cl != nil {
				res, err = verifyRemote(cmd, cl, slug, ex.Kind, req)
			} else {
				res, err = verifyLocal(ex, req)
			}
			if err != nil {
				return err
			}

			if opts.jsonOut {
				if err := printJSON(cmd.OutOrStdout(), res); err != nil {
					return err
				}
			} else {
				writeResult(cmd.OutOrStdout(), res)
			}

			if !res.Passed {
				cmd.SilenceErrors = true
				return errNotPassed
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&vo.htmlFile, "html", "", "HTML file")
	cmd.Flags().StringVar(&vo.cssFile, "css", "", "CSS file")
	cmd.Flags().StringVar(&vo.componentFile, "component", "", "JSON file with the rendered component")
	cmd.Flags().StringVar(&vo.learnerID, "learner", "", "learner ID recorded with the attempt (--server only)")

	return cmd
}

func (o *verifyOptions) request() (models.VerifyRequest, error) {
	req := models.VerifyRequest{LearnerID: o.learnerID}

	if o.htmlFile != "" {
		b, err := os.ReadFile(o.htmlFile)
		if err != nil {
			return req, fmt.Errorf("failed to read html: %w", err)
		}
		s := string(b)
		req.HTML = &s
	}
	if o.cssFile != "" {
		b, err := os.ReadFile(o.cssFile)
		if err != nil {
			return req, fmt.Errorf("failed to read css: %w", err)
		}
		s := string(b)
		req.CSS = &s
	}
	if o.componentFile != "" {
		b, err := os.ReadFile(o.componentFile)
		if err != nil {
			return req, fmt.Errorf("failed to read component: %w", err)
		}
		var dto models.ComponentSubmissionDTO
		if err := json.Unmarshal(b, &dto); err != nil {
			return req, fmt.Errorf("failed to parse component: %w", err)
		}
		req.Component = &dto
	}
	return req, nil
}

func verifyLocal(ex *models.Exercise, req models.VerifyRequest) (models.Result, error) {
	sub, ok := req.Submission(ex.Kind)
	if !ok {
		return models.Result{}, fmt.Errorf("%s exercises need --html or --css", ex.Kind)
	}
	return ex.Verify(sub)
}

func verifyRemote(cmd *cobra.Command, cl *client.Client, slug string, kind models.Kind, req models.VerifyRequest) (models.Result, error) {
	var (
		attempt *models.Attempt
		err     error
	)

	switch kind {
	case models.KindMarkupStyle:
		if req.HTML == nil && req.CSS == nil {
			return models.Result{}, fmt.Errorf("%s exercises need --html or --css", kind)
		}
		mr := client.MarkupRequest{LearnerID: req.LearnerID}
		if req.HTML != nil {
			mr.HTML = *req.HTML
		}
		if req.CSS != nil {
			mr.CSS = *req.CSS
		}
		attempt, err = cl.VerifyMarkup(cmd.Context(), slug, mr)
	default:
		cr := client.ComponentRequest{LearnerID: req.LearnerID}
		if req.Component != nil {
			cr.Name = req.Component.Name
			cr.Tree = req.Component.Tree
		}
		attempt, err = cl.VerifyComponent(cmd.Context(), slug, cr)
	}
	if err != nil {
		return models.Result{}, err
	}
	return attempt.Result, nil
}

func writeResult(w io.Writer, res models.Result) {
	for _, m := range res.Messages {
		mark := "ok  "
		if m.Severity == models.SeverityError {
			mark = "FAIL"
		}
		fmt.Fprintf(w, "%s %s\n", mark, m.Text)
	}

	status := "PASSED"
	if !res.Passed {
		status = fmt.Sprintf("FAILED (%d errors)", res.ErrorCount())
	}
	fmt.Fprintf(w, "\n%s [%s]\n", status, res.Strategy)
}
