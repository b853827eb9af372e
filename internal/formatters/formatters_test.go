package formatters

import (
	"encoding/json"
	"testing"

	"placementprep/internal/interview"
	"placementprep/internal/practice"
	"placementprep/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleProblem() *types.Problem {
	return &types.Problem{
		ID:          "1",
		Title:       "Two Sum",
		Difficulty:  "Easy",
		Description: "Find two numbers that add up to target.",
		Examples: []types.Example{
			{Input: types.JSONValue(`[2,7,11,15], 9`), Output: types.JSONValue(`[0,1]`), Explanation: "2 + 7 = 9"},
		},
		Constraints:       []string{"2 <= nums.length"},
		FunctionSignature: map[types.Language]string{types.LanguagePython: "def two_sum(nums, target):"},
	}
}

func TestFormatProblem(t *testing.T) {
	registry := NewFormatterRegistry()

	text, err := registry.Format(sampleProblem(), FormatText)
	require.NoError(t, err)
	assert.Contains(t, text, "=== Two Sum ===")
	assert.Contains(t, text, "Difficulty: Easy")
	assert.Contains(t, text, "Example 1:")
	assert.Contains(t, text, "Explanation: 2 + 7 = 9")
	assert.Contains(t, text, "- 2 <= nums.length")

	md, err := registry.Format(*sampleProblem(), FormatMarkdown)
	require.NoError(t, err)
	assert.Contains(t, md, "# Two Sum")
	assert.Contains(t, md, "```python\ndef two_sum(nums, target):\n```")
}

func TestFormatSubmission(t *testing.T) {
	result := &types.SubmissionResult{
		Success:       false,
		ExecutionTime: "12ms",
		TestResults: []types.TestResult{
			{TestNumber: 1, Passed: true},
			{TestNumber: 2, Passed: false, ExpectedOutput: types.JSONValue(`3`), ActualOutput: types.JSONValue(`4`)},
		},
	}
	registry := NewFormatterRegistry()

	text, err := registry.Format(result, FormatText)
	require.NoError(t, err)
	assert.Contains(t, text, "NOT ACCEPTED")
	assert.Contains(t, text, "Passed 1 of 2 tests")
	assert.Contains(t, text, "Execution time: 12ms")
	assert.Contains(t, text, "Test 2 failed")
	assert.NotContains(t, text, "Test 1 failed")

	md, err := registry.Format(result, FormatMarkdown)
	require.NoError(t, err)
	assert.Contains(t, md, "| 2 | `3` | `4` |")
}

func TestFormatScore(t *testing.T) {
	registry := NewFormatterRegistry()
	result := types.ScoreResult{MatchScore: 85, MissingKeywords: []string{"Redux"}, Demo: true}

	text, err := registry.Format(result, FormatText)
	require.NoError(t, err)
	assert.Contains(t, text, "(demo result)")
	assert.Contains(t, text, "Match score: 85%")
	assert.Contains(t, text, "  - Redux")
	assert.Contains(t, text, "Improvement tips:\n  - (none)")

	md, err := registry.Format(result, FormatMarkdown)
	require.NoError(t, err)
	assert.Contains(t, md, "**Match score:** 85%")
}

func TestFormatSessionView(t *testing.T) {
	registry := NewFormatterRegistry()
	idx := 1
	view := practice.View{
		Status:       practice.StatusReady,
		Problem:      sampleProblem(),
		Language:     types.LanguageJava,
		TestStates:   []practice.RunState{practice.RunPassed, practice.RunNotRun, practice.RunFailed},
		TestSummary:  "1 of 2 run examples passed",
		Running:      true,
		RunningIndex: &idx,
	}

	text, err := registry.Format(view, FormatText)
	require.NoError(t, err)
	assert.Contains(t, text, "Problem: Two Sum (Easy)")
	assert.Contains(t, text, "[1:pass] [2:-] [3:fail]")
	assert.Contains(t, text, "Running example 2...")

	// Markdown has no session formatter and falls back to text
	md, err := registry.Format(view, FormatMarkdown)
	require.NoError(t, err)
	assert.Equal(t, text, md)

	text, err = registry.Format(practice.View{Status: practice.StatusFailed, Error: "Judge unavailable"}, FormatText)
	require.NoError(t, err)
	assert.Equal(t, "Error: Judge unavailable\n", text)
}

func TestFormatRound(t *testing.T) {
	registry := NewFormatterRegistry()
	score := types.Percentage(72)

	text, err := registry.Format(interview.RoundView{
		Stage: interview.StageAnswered, Question: "What is a mutex?", Answer: "A lock", Score: &score, Feedback: "Good",
	}, FormatText)
	require.NoError(t, err)
	assert.Contains(t, text, "Question: What is a mutex?")
	assert.Contains(t, text, "Score: 72%")

	text, err = registry.Format(interview.RoundView{Stage: interview.StageNoQuestion}, FormatText)
	require.NoError(t, err)
	assert.Equal(t, "No question yet.\n", text)
}

func TestFormatJSONAndUnknown(t *testing.T) {
	registry := NewFormatterRegistry()

	out, err := registry.Format(types.AnswerEvaluation{Score: 50, Feedback: "ok"}, FormatJSON)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, float64(50), decoded["score"])

	_, err = registry.Format(map[string]int{"a": 1}, FormatText)
	assert.ErrorContains(t, err, "no formatter found")

	_, err = registry.Format(types.ScoreResult{}, "yaml")
	assert.Error(t, err)

	assert.Equal(t, []string{FormatJSON, FormatMarkdown, FormatText}, registry.GetSupportedFormats())
}
