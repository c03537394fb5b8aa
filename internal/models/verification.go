package models

// Severity of a verification message
type Severity string

const (
	SeverityHint  Severity = "hint"  // check passed or general encouragement
	SeverityError Severity = "error" // a specific requirement failed
)

// Message is one diagnostic line produced during grading
type Message struct {
	Severity Severity `json:"type"`
	Text     string   `json:"text"`
}

// Hint builds a hint message
func Hint(text string) Message {
	return Message{Severity: SeverityHint, Text: text}
}

// Error builds an error message
func Error(text string) Message {
	return Message{Severity: SeverityError, Text: text}
}

// Strategy names how a verifier treats failing checks
type Strategy string

const (
	StrategyFullChecklist Strategy = "full-checklist" // every check runs
	StrategyShortCircuit  Strategy = "short-circuit"  // stop at first failure
)

// Result is the verdict returned for every exercise kind.
// Messages are in check order.
type Result struct {
	Passed   bool      `json:"passed"`
	Strategy Strategy  `json:"strategy"`
	Messages []Message `json:"messages"`
}

// ErrorCount returns the number of error messages
func (r Result) ErrorCount() int {
	n := 0
	for _, m := range r.Messages {
		if m.Severity == SeverityError {
			n++
		}
	}
	return n
}

// Errors returns only the error messages
func (r Result) Errors() []Message {
	var out []Message
	for _, m := range r.Messages {
		if m.Severity == SeverityError {
			out = append(out, m)
		}
	}
	return out
}

// NewResult derives Passed from the messages
func NewResult(strategy Strategy, messages []Message) Result {
	r := Result{Strategy: strategy, Messages: messages}
	r.Passed = r.ErrorCount() == 0
	return r
}
