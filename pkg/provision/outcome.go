package provision

import "fmt"

// Stage identifies which part of the pipeline produced an outcome.
type Stage string

const (
	StageOrganization Stage = "organization"
	StageTeam         Stage = "team"
	StageUser         Stage = "user"
	StageMembership   Stage = "membership"
	StageOAuthApp     Stage = "oauth"
	StageAdminUpdate  Stage = "admin"
	StageRepository   Stage = "repository"
	StageFile         Stage = "file"
	StageIssue        Stage = "issue"
)

// Action is the tagged result of applying one resource. Skip-if-exists is
// a result, not an exception.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionSkipped Action = "skipped-exists"
	ActionFailed  Action = "failed"
	// ActionMemberNotFound is a warning: a team member references a user
	// that does not exist remotely. The team itself is unaffected.
	ActionMemberNotFound Action = "member-not-found"
)

// Outcome is the per-resource result of a provisioning step.
type Outcome struct {
	Stage  Stage
	Name   string
	Action Action
	// Err is set for ActionFailed.
	Err error
	// Note carries operator-facing details that must be surfaced exactly
	// once, like a generated password.
	Note string
}

func (o Outcome) String() string {
	s := fmt.Sprintf("%s %q: %s", o.Stage, o.Name, o.Action)
	if o.Err != nil {
		s += ": " + o.Err.Error()
	}
	return s
}

// Summary aggregates a whole run. A resource failure never aborts the
// run, so the summary is always complete.
type Summary struct {
	DryRun   bool
	Outcomes []Outcome
}

func (s *Summary) add(o Outcome) {
	s.Outcomes = append(s.Outcomes, o)
}

// Counts returns the aggregate created/updated, skipped, failed and
// warning totals.
func (s *Summary) Counts() (created, skipped, failed, warnings int) {
	for _, o := range s.Outcomes {
		switch o.Action {
		case ActionCreated, ActionUpdated:
			created++
		case ActionSkipped:
			skipped++
		case ActionFailed:
			failed++
		case ActionMemberNotFound:
			warnings++
		}
	}
	return
}

// Failed returns the outcomes that failed, for the final report.
func (s *Summary) Failed() []Outcome {
	var failed []Outcome
	for _, o := range s.Outcomes {
		if o.Action == ActionFailed {
			failed = append(failed, o)
		}
	}
	return failed
}

// OK reports whether every resource was created, updated or skipped.
func (s *Summary) OK() bool {
	_, _, failed, _ := s.Counts()
	return failed == 0
}
