package models

import "time"

// Attempt is one graded submission
type Attempt struct {
	ID          string        `json:"id"`
	Slug        string        `json:"slug"`
	LearnerID   string        `json:"learner_id"`
	Kind        Kind          `json:"kind"`
	Result      Result        `json:"result"`
	Cached      bool          `json:"cached"`
	SubmittedAt time.Time     `json:"submitted_at"`
	Duration    time.Duration `json:"duration_ns"`
}

// AttemptFilters narrows attempt listings
type AttemptFilters struct {
	Slug      string
	LearnerID string
	Limit     int
	Offset    int
}

// VerifyRequest is the HTTP body for a verification.
// Either HTML/CSS or Component is set, matching the exercise kind.
type VerifyRequest struct {
	LearnerID string                  `json:"learner_id"`
	HTML      *string                 `json:"html,omitempty"`
	CSS       *string                 `json:"css,omitempty"`
	Component *ComponentSubmissionDTO `json:"component,omitempty"`
}

// ComponentSubmissionDTO carries a component rendered by an external runtime.
// A null Tree means the component returned nothing.
type ComponentSubmissionDTO struct {
	Name string `json:"name"`
	Tree *Node  `json:"tree"`
}

// Submission converts the request into the variant for kind
func (r VerifyRequest) Submission(kind Kind) (Submission, bool) {
	switch kind {
	case KindMarkupStyle:
		if r.HTML == nil && r.CSS == nil {
			return nil, false
		}
		sub := MarkupSubmission{}
		if r.HTML != nil {
			sub.HTML = *r.HTML
		}
		if r.CSS != nil {
			sub.CSS = *r.CSS
		}
		return sub, true
	case KindComponent:
		if r.Component == nil {
			// No callable at all; the verifier reports the type violation.
			return ComponentSubmission{}, true
		}
		return ComponentSubmission{
			Name:   r.Component.Name,
			Render: StaticComponent(r.Component.Tree),
		}, true
	}
	return nil, false
}
