// Package practice holds the coding-practice session: the current problem,
// per-language drafts, example test runs and the graded submission.
package practice

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	appErrors "placementprep/internal/errors"
	"placementprep/internal/judge"
	"placementprep/internal/types"
)

// User-facing messages for judge failures
const (
	MsgLoadFailed   = "Failed to load problem. Please try again."
	MsgRunFailed    = "Failed to run test case. Please try again."
	MsgSubmitFailed = "Failed to submit solution. Please try again."
)

var (
	ErrNoProblem       = errors.New("no problem is loaded")
	ErrInvalidExample  = errors.New("example index out of range")
	ErrRunInFlight     = errors.New("a test run is already in progress")
	ErrSubmitInFlight  = errors.New("a submission is already in progress")
	ErrAlreadyAccepted = errors.New("solution already accepted for this problem")
	ErrStaleResponse   = errors.New("response superseded by a newer problem or edit")
)

// Status is the problem lifecycle
type Status string

const (
	StatusEmpty   Status = "empty"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

// Judge is the remote side of a session
type Judge interface {
	FetchProblem(ctx context.Context, q judge.ProblemQuery) (*types.Problem, error)
	RunTestCase(ctx context.Context, req judge.RunRequest) (*types.TestRunResult, error)
	SubmitSolution(ctx context.Context, req judge.SubmitRequest) (*types.SubmissionResult, error)
}

// Hooks observe completed judge interactions
type Hooks struct {
	TestRun    func(ctx context.Context, lang types.Language, passed bool)
	Submission func(ctx context.Context, lang types.Language, success bool)
}

// Options configure a new session
type Options struct {
	ID                string
	DefaultDifficulty string
	Language          types.Language
	Logger            *appErrors.Logger
	Hooks             Hooks
}

// FetchOptions select the next problem
type FetchOptions struct {
	Difficulty string
	ForceNew   bool
}

// Session is one user's practice state. It is safe for concurrent use.
//
// Every judge call remembers the generation it was issued for. problemGen moves on
// each fetch; codeGen moves on each fetch, edit and language switch. A response for
// an older generation is dropped and reported as ErrStaleResponse.
type Session struct {
	mu     sync.Mutex
	id     string
	judge  Judge
	logger *appErrors.Logger
	hooks  Hooks

	defaultDifficulty string

	status   Status
	fetchErr error
	problem  *types.Problem

	language types.Language
	drafts   map[types.Language]string

	testRuns   map[int]types.TestRunResult
	submission *types.SubmissionResult
	accepted   bool

	problemGen uint64
	codeGen    uint64

	running    bool
	runIndex   int
	runSeq     uint64
	submitting bool
	submitSeq  uint64

	lastUsed time.Time
}

// NewSession creates an empty session backed by j
func NewSession(j Judge, opts Options) *Session {
	lang := opts.Language
	if lang == "" {
		lang = types.DefaultLanguage
	}
	difficulty := opts.DefaultDifficulty
	if difficulty == "" {
		difficulty = "easy"
	}

	s := &Session{
		id:                opts.ID,
		judge:             j,
		logger:            opts.Logger,
		hooks:             opts.Hooks,
		defaultDifficulty: difficulty,
		status:            StatusEmpty,
		language:          lang,
		drafts:            make(map[types.Language]string, len(types.Languages)),
		testRuns:          make(map[int]types.TestRunResult),
		lastUsed:          time.Now(),
	}
	s.seedDrafts(nil)
	return s
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// LastUsed returns the time of the last operation
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

func (s *Session) touch() {
	s.lastUsed = time.Now()
}

func (s *Session) seedDrafts(p *types.Problem) {
	for _, lang := range types.Languages {
		s.drafts[lang] = p.StarterCode(lang)
	}
}

// clearRuns drops all example results and invalidates runs in flight
func (s *Session) clearRuns() {
	s.codeGen++
	s.testRuns = make(map[int]types.TestRunResult)
}

// FetchProblem loads a new problem, resetting test runs, submission and acceptance
func (s *Session) FetchProblem(ctx context.Context, opts FetchOptions) error {
	s.mu.Lock()
	s.touch()
	s.problemGen++
	gen := s.problemGen
	s.clearRuns()

	query := judge.ProblemQuery{
		Difficulty: opts.Difficulty,
		ForceNew:   opts.ForceNew,
	}
	if query.Difficulty == "" {
		query.Difficulty = s.defaultDifficulty
	}
	if s.problem != nil {
		query.CurrentID = string(s.problem.ID)
	}

	s.status = StatusLoading
	s.fetchErr = nil
	s.problem = nil
	s.submission = nil
	s.accepted = false
	s.running = false
	s.submitting = false
	s.mu.Unlock()

	problem, err := s.judge.FetchProblem(ctx, query)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.problemGen {
		return ErrStaleResponse
	}

	if err != nil {
		s.logger.LogError(err, "Failed to fetch problem",
			"session_id", s.id,
			"difficulty", query.Difficulty)
		s.status = StatusFailed
		s.fetchErr = err
		return fmt.Errorf("fetch problem: %w", err)
	}

	s.problem = problem
	s.seedDrafts(problem)
	s.status = StatusReady

	s.logger.Debug("Problem loaded",
		"session_id", s.id,
		"problem_id", string(problem.ID),
		"examples", len(problem.Examples))
	return nil
}

// RunExample runs the active draft against one example and stores the result at index
func (s *Session) RunExample(ctx context.Context, index int) (*types.TestRunResult, error) {
	s.mu.Lock()
	s.touch()
	if s.status != StatusReady || s.problem == nil {
		s.mu.Unlock()
		return nil, ErrNoProblem
	}
	if index < 0 || index >= len(s.problem.Examples) {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %d of %d", ErrInvalidExample, index, len(s.problem.Examples))
	}
	if s.running {
		s.mu.Unlock()
		return nil, ErrRunInFlight
	}

	s.running = true
	s.runIndex = index
	s.runSeq++
	seq := s.runSeq
	gen := s.codeGen
	req := judge.RunRequest{
		Language: s.language,
		Code:     s.drafts[s.language],
		TestCase: s.problem.Examples[index],
	}
	s.mu.Unlock()

	result, err := s.judge.RunTestCase(ctx, req)
	if err != nil {
		s.logger.LogError(err, "Failed to run test case",
			"session_id", s.id,
			"example", index,
			"language", string(req.Language))
		result = &types.TestRunResult{Passed: false, Error: MsgRunFailed}
	}

	s.mu.Lock()
	if s.runSeq == seq {
		s.running = false
	}
	stale := gen != s.codeGen
	if !stale {
		s.testRuns[index] = *result
	}
	s.mu.Unlock()

	if stale {
		return nil, ErrStaleResponse
	}
	if s.hooks.TestRun != nil {
		s.hooks.TestRun(ctx, req.Language, result.Passed)
	}

	stored := *result
	return &stored, nil
}

// SubmitSolution grades the active draft against the full test suite
func (s *Session) SubmitSolution(ctx context.Context) (*types.SubmissionResult, error) {
	s.mu.Lock()
	s.touch()
	if s.status != StatusReady || s.problem == nil {
		s.mu.Unlock()
		return nil, ErrNoProblem
	}
	if s.accepted {
		s.mu.Unlock()
		return nil, ErrAlreadyAccepted
	}
	if s.submitting {
		s.mu.Unlock()
		return nil, ErrSubmitInFlight
	}

	s.submitting = true
	s.submitSeq++
	seq := s.submitSeq
	gen := s.problemGen
	req := judge.SubmitRequest{
		QuestionDescription: s.problem.Description,
		Examples:            s.problem.Examples,
		Language:            s.language,
		Code:                s.drafts[s.language],
	}
	s.mu.Unlock()

	result, err := s.judge.SubmitSolution(ctx, req)
	if err != nil {
		s.logger.LogError(err, "Failed to submit solution",
			"session_id", s.id,
			"language", string(req.Language))
		result = &types.SubmissionResult{Success: false, Error: MsgSubmitFailed}
	}

	stored := *result

	s.mu.Lock()
	if s.submitSeq == seq {
		s.submitting = false
	}
	stale := gen != s.problemGen
	if !stale {
		s.submission = result
		if result.Success {
			s.accepted = true
		}
	}
	s.mu.Unlock()

	if stale {
		return nil, ErrStaleResponse
	}
	if s.hooks.Submission != nil {
		s.hooks.Submission(ctx, req.Language, result.Success)
	}

	return &stored, nil
}

// SwitchLanguage makes lang active. Drafts for every language are kept.
func (s *Session) SwitchLanguage(lang types.Language) error {
	parsed, err := types.ParseLanguage(string(lang))
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	s.language = parsed
	s.clearRuns()
	return nil
}

// EditCode replaces the active draft. The submission result is left alone.
func (s *Session) EditCode(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	s.drafts[s.language] = code
	s.clearRuns()
}

// Snapshot returns a copy of the session for rendering
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		ID:         s.id,
		Status:     s.status,
		Problem:    s.problem,
		Language:   s.language,
		Code:       s.drafts[s.language],
		Drafts:     maps.Clone(s.drafts),
		Accepted:   s.accepted,
		Running:    s.running,
		Submitting: s.submitting,
	}
	if s.running {
		idx := s.runIndex
		v.RunningIndex = &idx
	}
	if s.status == StatusFailed {
		v.Error = MsgLoadFailed
		if s.fetchErr != nil {
			v.Cause = s.fetchErr.Error()
		}
	}

	if s.problem != nil {
		v.TestRuns = make([]*types.TestRunResult, len(s.problem.Examples))
		for i := range v.TestRuns {
			if r, ok := s.testRuns[i]; ok {
				v.TestRuns[i] = &r
			}
		}
	}

	if s.submission != nil {
		sub := *s.submission
		v.Submission = &sub
	}

	v.derive()
	return v
}
