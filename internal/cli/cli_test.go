package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"placementprep/internal/common"
	"placementprep/internal/config"
	appErrors "placementprep/internal/errors"
	"placementprep/internal/interview"
	"placementprep/internal/judge"
	"placementprep/internal/practice"
	"placementprep/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJudge struct {
	fetchErr error
	lastCode string
}

func (j *stubJudge) FetchProblem(context.Context, judge.ProblemQuery) (*types.Problem, error) {
	if j.fetchErr != nil {
		return nil, j.fetchErr
	}
	return reverseString(), nil
}

func (j *stubJudge) RunTestCase(_ context.Context, req judge.RunRequest) (*types.TestRunResult, error) {
	j.lastCode = req.Code
	return &types.TestRunResult{Passed: true, ActualOutput: req.TestCase.Output}, nil
}

func (j *stubJudge) SubmitSolution(_ context.Context, req judge.SubmitRequest) (*types.SubmissionResult, error) {
	j.lastCode = req.Code
	return &types.SubmissionResult{Success: true, PassedTests: 5, TotalTests: 5}, nil
}

func reverseString() *types.Problem {
	return &types.Problem{
		ID:          "7",
		Title:       "Reverse String",
		Difficulty:  "Easy",
		Description: "Reverse the input string.",
		Examples: []types.Example{
			{Input: types.JSONValue(`"abc"`), Output: types.JSONValue(`"cba"`)},
			{Input: types.JSONValue(`"ab"`), Output: types.JSONValue(`"ba"`)},
		},
		FunctionSignature: map[types.Language]string{
			types.LanguagePython: "def reverse(s):\n    pass",
		},
	}
}

func newShell(t *testing.T, j practice.Judge, script string) (*practiceShell, *bytes.Buffer) {
	t.Helper()
	session := practice.NewSession(j, practice.Options{ID: "test", Language: types.LanguageJava})
	out := &bytes.Buffer{}
	return newPracticeShell(session, strings.NewReader(script), out, nil), out
}

func TestPracticeShell(t *testing.T) {
	dir := t.TempDir()
	solution := filepath.Join(dir, "solution.py")
	require.NoError(t, os.WriteFile(solution, []byte("def reverse(s):\n    return s[::-1]"), 0600))
	saved := filepath.Join(dir, "out", "saved.py")

	script := strings.Join([]string{
		"show",
		"lang py",
		"load " + solution,
		"run 1",
		"run 9",
		"bogus",
		"submit",
		"save " + saved,
		"quit",
		"lang java",
	}, "\n")

	j := &stubJudge{}
	sh, out := newShell(t, j, script)
	ctx := context.Background()
	require.NoError(t, sh.exec(ctx, "new"))
	require.NoError(t, sh.loop(ctx))

	text := out.String()
	assert.Contains(t, text, "Problem: Reverse String (Easy)")
	assert.Contains(t, text, "Language: python")
	assert.Contains(t, text, "PASSED")
	assert.Contains(t, text, "error: example must be between 1 and 2")
	assert.Contains(t, text, `error: unknown command "bogus"`)
	assert.Contains(t, text, "=== ACCEPTED ===")
	assert.Contains(t, text, "Passed 5 of 5 tests")
	assert.Equal(t, 2, strings.Count(text, "Language: java"), "commands after quit must not run")
	assert.Equal(t, "def reverse(s):\n    return s[::-1]", j.lastCode)

	content, err := os.ReadFile(saved)
	require.NoError(t, err)
	assert.Equal(t, "def reverse(s):\n    return s[::-1]", string(content))
}

func TestPracticeShellErrors(t *testing.T) {
	t.Run("judge failure shows the load message", func(t *testing.T) {
		j := &stubJudge{fetchErr: appErrors.NewJudgeError(appErrors.ErrCodeJudgeUnavailable, "down", nil)}
		sh, out := newShell(t, j, "")
		require.NoError(t, sh.exec(context.Background(), "new hard"))
		assert.Contains(t, out.String(), "error: "+practice.MsgLoadFailed)
	})

	t.Run("commands before a problem", func(t *testing.T) {
		sh, out := newShell(t, &stubJudge{}, "run 1\nsubmit\nsave\n")
		require.NoError(t, sh.loop(context.Background()))
		assert.Equal(t, 3, strings.Count(out.String(), "error: "+practice.ErrNoProblem.Error()))
	})

	t.Run("end of input stops the loop", func(t *testing.T) {
		sh, _ := newShell(t, &stubJudge{}, "help")
		assert.NoError(t, sh.loop(context.Background()))
	})

	t.Run("bad language", func(t *testing.T) {
		sh, out := newShell(t, &stubJudge{}, "")
		require.NoError(t, sh.exec(context.Background(), "lang ruby"))
		assert.Contains(t, out.String(), "error: ")
	})
}

func TestSaveProblem(t *testing.T) {
	dir := t.TempDir()
	files := common.NewFileProcessor(nil)
	require.NoError(t, saveProblem(files, dir, reverseString()))

	for _, name := range []string{"reverse-string.md", "reverse-string.java", "reverse-string.cpp", "reverse-string.py"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
	py, err := os.ReadFile(filepath.Join(dir, "reverse-string.py"))
	require.NoError(t, err)
	assert.Equal(t, "def reverse(s):\n    pass\n", string(py))

	md, err := os.ReadFile(filepath.Join(dir, "reverse-string.md"))
	require.NoError(t, err)
	assert.Contains(t, string(md), "Reverse String")
}

type stubInterview struct {
	eval types.AnswerEvaluation
}

func (s stubInterview) Name() string { return "stub" }

func (s stubInterview) Question(context.Context) (types.InterviewQuestion, error) {
	return types.InterviewQuestion{Question: "What is a deadlock?"}, nil
}

func (s stubInterview) Evaluate(context.Context, string, string) (types.AnswerEvaluation, error) {
	return s.eval, nil
}

func TestPlayRound(t *testing.T) {
	provider := stubInterview{eval: types.AnswerEvaluation{Score: 90, Feedback: "Clear."}}

	t.Run("graded", func(t *testing.T) {
		round := interview.NewRound(provider)
		out := &bytes.Buffer{}
		err := playRound(context.Background(), round, func() (string, error) { return "Two threads wait on each other.", nil }, out)
		require.NoError(t, err)

		assert.Contains(t, out.String(), "Question: What is a deadlock?")
		view := round.Snapshot()
		assert.Equal(t, interview.StageAnswered, view.Stage)
		require.NotNil(t, view.Score)
		assert.Equal(t, "90%", view.Score.String())
	})

	t.Run("blank answer", func(t *testing.T) {
		round := interview.NewRound(provider)
		err := playRound(context.Background(), round, func() (string, error) { return " \n", nil }, io.Discard)
		assert.Error(t, err)
		assert.Equal(t, interview.StageQuestionShown, round.Snapshot().Stage)
	})

	t.Run("reader failure", func(t *testing.T) {
		round := interview.NewRound(provider)
		readErr := errors.New("closed")
		err := playRound(context.Background(), round, func() (string, error) { return "", readErr }, io.Discard)
		assert.ErrorIs(t, err, readErr)
	})
}

func TestPasswordFrom(t *testing.T) {
	pw, err := passwordFrom("flag-value", strings.NewReader("ignored\n"))
	require.NoError(t, err)
	assert.Equal(t, "flag-value", pw)

	pw, err = passwordFrom("", strings.NewReader("from-stdin\r\nnext"))
	require.NoError(t, err)
	assert.Equal(t, "from-stdin", pw)

	pw, err = passwordFrom("", strings.NewReader("no-newline"))
	require.NoError(t, err)
	assert.Equal(t, "no-newline", pw)
}

func cliConfig() *config.Config {
	return &config.Config{
		Scorer: config.ScorerConfig{
			Mode:              "demo",
			AllowedExtensions: []string{".pdf", ".docx"},
			MaxFileSize:       1 << 20,
		},
		App: config.AppConfig{DefaultFormat: "text", SupportedFormats: []string{"json", "text", "markdown"}},
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := Execute(context.Background(), cliConfig(), nil)
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "placementprep version dev")
}

func TestScoreCommand(t *testing.T) {
	dir := t.TempDir()
	resume := filepath.Join(dir, "resume.pdf")
	job := filepath.Join(dir, "job.txt")
	require.NoError(t, os.WriteFile(resume, []byte("%PDF-1.4 fake"), 0600))
	require.NoError(t, os.WriteFile(job, []byte("Backend engineer, Go, PostgreSQL\n"), 0600))

	out, err := execute(t, "score", resume, job, "--format", "json")
	require.NoError(t, err)

	var result types.ScoreResult
	require.NoError(t, json.Unmarshal([]byte(out), &result), out)
	assert.Equal(t, types.Percentage(85), result.MatchScore)
	assert.True(t, result.Demo)

	_, err = execute(t, "score", resume, job, "--format", "yaml")
	assert.ErrorContains(t, err, "unsupported output format")

	_, err = execute(t, "score", filepath.Join(dir, "missing.pdf"), job, "--format", "json")
	assert.Error(t, err)
}
