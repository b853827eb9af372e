package practice

import (
	"fmt"

	"placementprep/internal/types"
)

// RunState is the per-example indicator
type RunState string

const (
	RunNotRun RunState = "not_run"
	RunPassed RunState = "passed"
	RunFailed RunState = "failed"
)

// View is an immutable copy of a session. Problem is shared, never mutated.
type View struct {
	ID           string                    `json:"id,omitempty"`
	Status       Status                    `json:"status"`
	Error        string                    `json:"error,omitempty"`
	Cause        string                    `json:"cause,omitempty"`
	Problem      *types.Problem            `json:"problem,omitempty"`
	Language     types.Language            `json:"language"`
	Code         string                    `json:"code"`
	Drafts       map[types.Language]string `json:"drafts"`
	TestRuns     []*types.TestRunResult    `json:"test_runs"`
	TestStates   []RunState                `json:"test_states"`
	TestSummary  string                    `json:"test_summary,omitempty"`
	Running      bool                      `json:"running"`
	RunningIndex *int                      `json:"running_index,omitempty"`

	Submission        *types.SubmissionResult `json:"submission,omitempty"`
	SubmissionSummary string                  `json:"submission_summary,omitempty"`
	FailedTests       []types.TestResult      `json:"failed_tests,omitempty"`
	Submitting        bool                    `json:"submitting"`
	Accepted          bool                    `json:"accepted"`
}

func (v *View) derive() {
	v.TestStates = make([]RunState, len(v.TestRuns))
	ran, passed := 0, 0
	for i, r := range v.TestRuns {
		switch {
		case r == nil:
			v.TestStates[i] = RunNotRun
		case r.Passed:
			v.TestStates[i] = RunPassed
			ran++
			passed++
		default:
			v.TestStates[i] = RunFailed
			ran++
		}
	}
	if ran > 0 {
		v.TestSummary = fmt.Sprintf("%d/%d passed", passed, ran)
	}

	if v.Submission != nil {
		v.SubmissionSummary = v.Submission.Summary()
		v.FailedTests = v.Submission.FailedTests()
	}
}
