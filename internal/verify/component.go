package verify

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/terra-clan/exercise-engine/internal/models"
)

var (
	ErrNotCallable  = errors.New("submission is not a function component")
	ErrNoRenderTree = errors.New("component did not return a render tree")
	ErrCheckFailed  = errors.New("component check failed")
)

// Failure is the first failed component check
type Failure struct {
	Message string
	Err     error
}

func (f *Failure) Error() string {
	return f.Message
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// NodeCheck inspects the tree a component rendered. A non-empty return
// value is the failure message.
type NodeCheck struct {
	Description string
	Check       func(tree *models.Node) string
}

// ComponentSpec describes the checks of one component exercise
type ComponentSpec struct {
	// Name is used in the type-violation message ("Counter must be ...")
	Name   string
	Checks []NodeCheck
}

// Component grades component submissions. Checks stop at the first failure.
type Component struct {
	spec ComponentSpec
}

// NewComponent returns a verifier for spec
func NewComponent(spec ComponentSpec) *Component {
	if spec.Name == "" {
		spec.Name = "Component"
	}
	return &Component{spec: spec}
}

func (c *Component) Kind() models.Kind {
	return models.KindComponent
}

// Verify implements models.Verifier
func (c *Component) Verify(sub models.Submission) models.Result {
	cs, ok := sub.(models.ComponentSubmission)
	if !ok {
		return models.NewResult(models.StrategyShortCircuit, []models.Message{
			models.Error(fmt.Sprintf("expected %s submission", models.KindComponent)),
		})
	}

	if err := c.Check(cs.Render); err != nil {
		return models.NewResult(models.StrategyShortCircuit, []models.Message{models.Error(err.Error())})
	}
	return models.NewResult(models.StrategyShortCircuit, []models.Message{models.Hint(SuccessText)})
}

// Check runs the component checks and returns the first *Failure, or nil
func (c *Component) Check(render models.Component) error {
	if render == nil {
		return &Failure{Message: c.spec.Name + " must be a function component", Err: ErrNotCallable}
	}

	tree, err := invoke(render)
	if err != nil {
		slog.Debug("component raised", "component", c.spec.Name, "error", err)
		return &Failure{Message: err.Error(), Err: ErrCheckFailed}
	}
	if tree == nil {
		return &Failure{Message: "Component must return JSX", Err: ErrNoRenderTree}
	}

	for _, check := range c.spec.Checks {
		if msg := check.Check(tree); msg != "" {
			return &Failure{Message: msg, Err: ErrCheckFailed}
		}
	}
	return nil
}

// invoke calls learner code with empty props, turning a panic into an error
func invoke(render models.Component) (tree *models.Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return render(models.Props{}), nil
}

// CallComponent is the boolean protocol: true on success, otherwise the
// *Failure of the first failed check
func CallComponent(v *Component, render models.Component) (bool, error) {
	if err := v.Check(render); err != nil {
		return false, err
	}
	return true, nil
}

// HasElement fails unless the tree contains an element of type typ
func HasElement(typ, missing string) NodeCheck {
	return NodeCheck{
		Description: "renders " + typ,
		Check: func(tree *models.Node) string {
			if tree.Find(typ) == nil {
				return missing
			}
			return ""
		},
	}
}

// HasAtLeast fails unless the tree contains n elements of type typ
func HasAtLeast(typ string, n int, missing string) NodeCheck {
	return NodeCheck{
		Description: fmt.Sprintf("renders %d %s", n, typ),
		Check: func(tree *models.Node) string {
			if tree.Count(typ) < n {
				return missing
			}
			return ""
		},
	}
}
