package practice

import (
	"context"
	"errors"
	"sync"
	"testing"

	"placementprep/internal/judge"
	"placementprep/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJudge struct {
	mu          sync.Mutex
	fetchFn     func(judge.ProblemQuery) (*types.Problem, error)
	runFn       func(judge.RunRequest) (*types.TestRunResult, error)
	submitFn    func(judge.SubmitRequest) (*types.SubmissionResult, error)
	queries     []judge.ProblemQuery
	runs        []judge.RunRequest
	submissions []judge.SubmitRequest
}

func (f *fakeJudge) FetchProblem(_ context.Context, q judge.ProblemQuery) (*types.Problem, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	fn := f.fetchFn
	f.mu.Unlock()
	if fn == nil {
		return twoSum(), nil
	}
	return fn(q)
}

func (f *fakeJudge) RunTestCase(_ context.Context, req judge.RunRequest) (*types.TestRunResult, error) {
	f.mu.Lock()
	f.runs = append(f.runs, req)
	fn := f.runFn
	f.mu.Unlock()
	if fn == nil {
		return &types.TestRunResult{Passed: true, ActualOutput: req.TestCase.Output}, nil
	}
	return fn(req)
}

func (f *fakeJudge) SubmitSolution(_ context.Context, req judge.SubmitRequest) (*types.SubmissionResult, error) {
	f.mu.Lock()
	f.submissions = append(f.submissions, req)
	fn := f.submitFn
	f.mu.Unlock()
	if fn == nil {
		return &types.SubmissionResult{Success: true, PassedTests: 3, TotalTests: 3}, nil
	}
	return fn(req)
}

func (f *fakeJudge) submitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.submissions)
}

func twoSum() *types.Problem {
	return &types.Problem{
		ID:          "1",
		Title:       "Two Sum",
		Difficulty:  "Easy",
		Description: "Return indices of the two numbers that add up to target.",
		Examples: []types.Example{
			{Input: types.JSONValue(`{"nums":[2,7,11,15],"target":9}`), Output: types.JSONValue(`[0,1]`)},
			{Input: types.JSONValue(`{"nums":[3,2,4],"target":6}`), Output: types.JSONValue(`[1,2]`)},
		},
		FunctionSignature: map[types.Language]string{
			types.LanguageJava:   "class Solution {\n    public int[] twoSum(int[] nums, int target) {\n    }\n}",
			types.LanguagePython: "def two_sum(nums, target):\n    pass",
		},
	}
}

func readySession(t *testing.T, j *fakeJudge) *Session {
	t.Helper()
	s := NewSession(j, Options{ID: "s1"})
	require.NoError(t, s.FetchProblem(context.Background(), FetchOptions{}))
	return s
}

func TestNewSessionDefaults(t *testing.T) {
	s := NewSession(&fakeJudge{}, Options{})
	v := s.Snapshot()

	assert.Equal(t, StatusEmpty, v.Status)
	assert.Equal(t, types.LanguageJava, v.Language)
	assert.Equal(t, "// Add your solution here", v.Code)
	assert.Equal(t, "# Add your solution here", v.Drafts[types.LanguagePython])
	assert.Empty(t, v.TestRuns)
	assert.Empty(t, v.TestSummary)
}

func TestFetchProblemSeedsDrafts(t *testing.T) {
	j := &fakeJudge{}
	s := NewSession(j, Options{DefaultDifficulty: "medium"})
	require.NoError(t, s.FetchProblem(context.Background(), FetchOptions{}))

	v := s.Snapshot()
	assert.Equal(t, StatusReady, v.Status)
	assert.Equal(t, "Two Sum", v.Problem.Title)
	assert.Contains(t, v.Code, "public int[] twoSum")
	assert.Equal(t, "def two_sum(nums, target):\n    pass", v.Drafts[types.LanguagePython])
	assert.Equal(t, "// Add your solution here", v.Drafts[types.LanguageCPP])
	assert.Equal(t, []RunState{RunNotRun, RunNotRun}, v.TestStates)

	require.Len(t, j.queries, 1)
	assert.Equal(t, "medium", j.queries[0].Difficulty)
	assert.Empty(t, j.queries[0].CurrentID)

	require.NoError(t, s.FetchProblem(context.Background(), FetchOptions{Difficulty: "hard", ForceNew: true}))
	assert.Equal(t, judge.ProblemQuery{Difficulty: "hard", ForceNew: true, CurrentID: "1"}, j.queries[1])
}

func TestFetchProblemFailureEntersFailedStatus(t *testing.T) {
	cause := errors.New("connection refused")
	j := &fakeJudge{fetchFn: func(judge.ProblemQuery) (*types.Problem, error) { return nil, cause }}
	s := NewSession(j, Options{})

	err := s.FetchProblem(context.Background(), FetchOptions{})
	assert.ErrorIs(t, err, cause)

	v := s.Snapshot()
	assert.Equal(t, StatusFailed, v.Status)
	assert.Equal(t, MsgLoadFailed, v.Error)
	assert.Equal(t, "connection refused", v.Cause)
	assert.Nil(t, v.Problem)

	_, err = s.RunExample(context.Background(), 0)
	assert.ErrorIs(t, err, ErrNoProblem)
	_, err = s.SubmitSolution(context.Background())
	assert.ErrorIs(t, err, ErrNoProblem)
}

// RunExample(i) updates only the result at i
func TestRunExampleUpdatesOnlyIndex(t *testing.T) {
	j := &fakeJudge{}
	s := readySession(t, j)

	result, err := s.RunExample(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, result.Passed)

	v := s.Snapshot()
	require.Len(t, v.TestRuns, 2)
	assert.Nil(t, v.TestRuns[0])
	require.NotNil(t, v.TestRuns[1])
	assert.True(t, v.TestRuns[1].Passed)
	assert.Equal(t, []RunState{RunNotRun, RunPassed}, v.TestStates)

	require.Len(t, j.runs, 1)
	assert.Equal(t, types.LanguageJava, j.runs[0].Language)
	assert.Equal(t, "[1,2]", j.runs[0].TestCase.Output.String())
}

func TestRunExampleInvalidIndex(t *testing.T) {
	s := readySession(t, &fakeJudge{})

	for _, idx := range []int{-1, 2} {
		_, err := s.RunExample(context.Background(), idx)
		assert.ErrorIs(t, err, ErrInvalidExample)
	}
}

func TestRunExampleRequiresProblem(t *testing.T) {
	s := NewSession(&fakeJudge{}, Options{})
	_, err := s.RunExample(context.Background(), 0)
	assert.ErrorIs(t, err, ErrNoProblem)
}

// Pass then fail("off by one") on two examples reads "1/2 passed"
func TestTestSummaryAndIndicators(t *testing.T) {
	j := &fakeJudge{}
	s := readySession(t, j)

	_, err := s.RunExample(context.Background(), 0)
	require.NoError(t, err)

	j.mu.Lock()
	j.runFn = func(judge.RunRequest) (*types.TestRunResult, error) {
		return &types.TestRunResult{Passed: false, ActualOutput: types.StringValue("[0,2]"), Explanation: "off by one"}, nil
	}
	j.mu.Unlock()

	_, err = s.RunExample(context.Background(), 1)
	require.NoError(t, err)

	v := s.Snapshot()
	assert.Equal(t, "1/2 passed", v.TestSummary)
	assert.Equal(t, []RunState{RunPassed, RunFailed}, v.TestStates)
	assert.Equal(t, "off by one", v.TestRuns[1].Explanation)
}

// The summary counts only examples that have run
func TestTestSummaryCountsRunExamplesOnly(t *testing.T) {
	s := readySession(t, &fakeJudge{})

	_, err := s.RunExample(context.Background(), 0)
	require.NoError(t, err)

	v := s.Snapshot()
	assert.Equal(t, "1/1 passed", v.TestSummary)
	assert.Equal(t, []RunState{RunPassed, RunNotRun}, v.TestStates)
	assert.Nil(t, v.TestRuns[1])
}

// A transport failure becomes a synthetic failed result, not an error
func TestRunExampleTransportFailure(t *testing.T) {
	j := &fakeJudge{runFn: func(judge.RunRequest) (*types.TestRunResult, error) {
		return nil, context.DeadlineExceeded
	}}
	s := readySession(t, j)

	result, err := s.RunExample(context.Background(), 0)
	require.NoError(t, err)
	assert.False(t, result.Passed)
	assert.Equal(t, "Failed to run test case. Please try again.", result.Error)

	v := s.Snapshot()
	assert.Equal(t, MsgRunFailed, v.TestRuns[0].Error)
	assert.False(t, v.Running)
	assert.Equal(t, "0/1 passed", v.TestSummary)
}

// A language switch clears runs and keeps every draft
func TestSwitchLanguageClearsRunsKeepsDrafts(t *testing.T) {
	s := readySession(t, &fakeJudge{})
	s.EditCode("class Solution { /* mine */ }")
	_, err := s.RunExample(context.Background(), 0)
	require.NoError(t, err)

	require.NoError(t, s.SwitchLanguage(types.LanguagePython))

	v := s.Snapshot()
	assert.Equal(t, types.LanguagePython, v.Language)
	assert.Equal(t, "def two_sum(nums, target):\n    pass", v.Code)
	assert.Equal(t, "class Solution { /* mine */ }", v.Drafts[types.LanguageJava])
	assert.Equal(t, []*types.TestRunResult{nil, nil}, v.TestRuns)
	assert.Empty(t, v.TestSummary)

	require.NoError(t, s.SwitchLanguage(types.LanguageJava))
	assert.Equal(t, "class Solution { /* mine */ }", s.Snapshot().Code)

	assert.Error(t, s.SwitchLanguage("rust"))
	assert.Equal(t, types.LanguageJava, s.Snapshot().Language)
}

// An edit clears runs and leaves the submission result untouched
func TestEditCodeClearsRunsKeepsSubmission(t *testing.T) {
	j := &fakeJudge{submitFn: func(judge.SubmitRequest) (*types.SubmissionResult, error) {
		return &types.SubmissionResult{Success: false, PassedTests: 1, TotalTests: 3}, nil
	}}
	s := readySession(t, j)

	_, err := s.RunExample(context.Background(), 0)
	require.NoError(t, err)
	_, err = s.SubmitSolution(context.Background())
	require.NoError(t, err)

	s.EditCode("class Solution { int x; }")

	v := s.Snapshot()
	assert.Equal(t, "class Solution { int x; }", v.Code)
	assert.Equal(t, []RunState{RunNotRun, RunNotRun}, v.TestStates)
	require.NotNil(t, v.Submission)
	assert.Equal(t, "Passed 1 of 3 tests", v.SubmissionSummary)

	require.NoError(t, s.SwitchLanguage(types.LanguageCPP))
	assert.NotNil(t, s.Snapshot().Submission)
}

// A fetch resets acceptance, runs and submission
func TestFetchProblemResetsResults(t *testing.T) {
	j := &fakeJudge{}
	s := readySession(t, j)

	_, err := s.RunExample(context.Background(), 0)
	require.NoError(t, err)
	_, err = s.SubmitSolution(context.Background())
	require.NoError(t, err)
	require.True(t, s.Snapshot().Accepted)

	require.NoError(t, s.FetchProblem(context.Background(), FetchOptions{ForceNew: true}))

	v := s.Snapshot()
	assert.False(t, v.Accepted)
	assert.Nil(t, v.Submission)
	assert.Empty(t, v.SubmissionSummary)
	assert.Equal(t, []*types.TestRunResult{nil, nil}, v.TestRuns)
}

// Acceptance survives runs and only a fetch clears it
func TestAcceptedIsTerminalUntilFetch(t *testing.T) {
	j := &fakeJudge{}
	s := readySession(t, j)

	result, err := s.SubmitSolution(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.True(t, s.Snapshot().Accepted)

	_, err = s.RunExample(context.Background(), 0)
	require.NoError(t, err)
	s.EditCode("changed")
	assert.True(t, s.Snapshot().Accepted)

	_, err = s.SubmitSolution(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyAccepted)
	assert.Equal(t, 1, j.submitCount(), "no grading call after acceptance")

	require.NoError(t, s.FetchProblem(context.Background(), FetchOptions{}))
	assert.False(t, s.Snapshot().Accepted)
	_, err = s.SubmitSolution(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, j.submitCount())
}

// Two of three passing reads "Passed 2 of 3 tests" and lists the failure
func TestSubmissionSummaryAndFailures(t *testing.T) {
	j := &fakeJudge{submitFn: func(req judge.SubmitRequest) (*types.SubmissionResult, error) {
		return &types.SubmissionResult{
			Success:     false,
			PassedTests: 2,
			TotalTests:  3,
			TestResults: []types.TestResult{
				{TestNumber: 1, Passed: true},
				{TestNumber: 2, Passed: true},
				{
					TestNumber:     3,
					Passed:         false,
					Input:          types.JSONValue(`{"nums":[3,3],"target":6}`),
					ExpectedOutput: types.JSONValue(`[0,1]`),
					ActualOutput:   types.JSONValue(`[1,0]`),
					Explanation:    "indices reversed",
				},
			},
		}, nil
	}}
	s := readySession(t, j)

	_, err := s.SubmitSolution(context.Background())
	require.NoError(t, err)

	v := s.Snapshot()
	assert.False(t, v.Accepted)
	assert.Equal(t, "Passed 2 of 3 tests", v.SubmissionSummary)
	require.Len(t, v.FailedTests, 1)
	failed := v.FailedTests[0]
	assert.Equal(t, 3, failed.TestNumber)
	assert.Equal(t, `{"nums":[3,3],"target":6}`, failed.Input.String())
	assert.Equal(t, "[0,1]", failed.ExpectedOutput.String())
	assert.Equal(t, "[1,0]", failed.ActualOutput.String())
	assert.Equal(t, "indices reversed", failed.Explanation)

	require.Len(t, j.submissions, 1)
	req := j.submissions[0]
	assert.Equal(t, twoSum().Description, req.QuestionDescription)
	assert.Len(t, req.Examples, 2)
	assert.Equal(t, types.LanguageJava, req.Language)
}

func TestSubmitTransportFailure(t *testing.T) {
	j := &fakeJudge{submitFn: func(judge.SubmitRequest) (*types.SubmissionResult, error) {
		return nil, errors.New("502 bad gateway")
	}}
	s := readySession(t, j)

	result, err := s.SubmitSolution(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "Failed to submit solution. Please try again.", result.Error)

	v := s.Snapshot()
	assert.False(t, v.Accepted)
	assert.False(t, v.Submitting)
	assert.Equal(t, MsgSubmitFailed, v.Submission.Error)
}

func TestHooksObserveResults(t *testing.T) {
	var runs, submits []bool
	s := NewSession(&fakeJudge{}, Options{Hooks: Hooks{
		TestRun:    func(_ context.Context, _ types.Language, passed bool) { runs = append(runs, passed) },
		Submission: func(_ context.Context, _ types.Language, ok bool) { submits = append(submits, ok) },
	}})
	require.NoError(t, s.FetchProblem(context.Background(), FetchOptions{}))

	_, err := s.RunExample(context.Background(), 0)
	require.NoError(t, err)
	_, err = s.SubmitSolution(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []bool{true}, runs)
	assert.Equal(t, []bool{true}, submits)
}
