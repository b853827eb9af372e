package formatters

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"placementprep/internal/identity"
	"placementprep/internal/interview"
	"placementprep/internal/practice"
	"placementprep/internal/types"
)

// Output formats accepted by -o/--format
const (
	FormatJSON     = "json"
	FormatText     = "text"
	FormatMarkdown = "markdown"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter(FormatJSON, "any", &JSONFormatter{})
	for _, f := range []Formatter{
		&ProblemTextFormatter{}, &TestRunTextFormatter{}, &SubmissionTextFormatter{},
		&SessionTextFormatter{}, &ScoreTextFormatter{}, &EvaluationTextFormatter{},
		&RoundTextFormatter{}, &AuthTextFormatter{},
	} {
		registry.RegisterFormatter(FormatText, f.SupportedType(), f)
	}
	for _, f := range []Formatter{
		&ProblemMarkdownFormatter{}, &SubmissionMarkdownFormatter{},
		&ScoreMarkdownFormatter{}, &EvaluationMarkdownFormatter{},
	} {
		registry.RegisterFormatter(FormatMarkdown, f.SupportedType(), f)
	}

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter.
// Markdown falls back to text for types without a markdown formatter.
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	data, dataType := normalize(data)

	candidates := []string{format}
	if format == FormatMarkdown {
		candidates = append(candidates, FormatText)
	}
	for _, f := range candidates {
		if formatters, exists := fr.formatters[f]; exists {
			if formatter, exists := formatters[dataType]; exists {
				return formatter.Format(data)
			}
		}
	}
	if formatter, exists := fr.formatters[format]["any"]; exists {
		return formatter.Format(data)
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	sort.Strings(formats)
	return formats
}

// normalize dereferences pointers so value and pointer share a formatter
func normalize(data any) (any, string) {
	switch v := data.(type) {
	case *types.Problem:
		if v != nil {
			return *v, "Problem"
		}
	case types.Problem:
		return v, "Problem"
	case *types.TestRunResult:
		if v != nil {
			return *v, "TestRunResult"
		}
	case types.TestRunResult:
		return v, "TestRunResult"
	case *types.SubmissionResult:
		if v != nil {
			return *v, "SubmissionResult"
		}
	case types.SubmissionResult:
		return v, "SubmissionResult"
	case practice.View:
		return v, "SessionView"
	case types.ScoreResult:
		return v, "ScoreResult"
	case types.AnswerEvaluation:
		return v, "AnswerEvaluation"
	case interview.RoundView:
		return v, "RoundView"
	case identity.Session:
		return v, "Session"
	}
	return data, "any"
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// ProblemTextFormatter prints a problem the way the practice screen lays it out
type ProblemTextFormatter struct{}

func (f *ProblemTextFormatter) Format(data any) (string, error) {
	p, ok := data.(types.Problem)
	if !ok {
		return "", fmt.Errorf("expected Problem, got %T", data)
	}

	var output strings.Builder
	output.WriteString(fmt.Sprintf("=== %s ===\n", p.Title))
	if p.Difficulty != "" {
		output.WriteString(fmt.Sprintf("Difficulty: %s\n", p.Difficulty))
	}
	output.WriteString("\n")
	output.WriteString(p.Description)
	output.WriteString("\n")

	for i, ex := range p.Examples {
		output.WriteString(fmt.Sprintf("\nExample %d:\n", i+1))
		output.WriteString(fmt.Sprintf("  Input:  %s\n", ex.Input))
		output.WriteString(fmt.Sprintf("  Output: %s\n", ex.Output))
		if ex.Explanation != "" {
			output.WriteString(fmt.Sprintf("  Explanation: %s\n", ex.Explanation))
		}
	}

	if len(p.Constraints) > 0 {
		output.WriteString("\nConstraints:\n")
		for _, c := range p.Constraints {
			output.WriteString(fmt.Sprintf("  - %s\n", c))
		}
	}
	return output.String(), nil
}

func (f *ProblemTextFormatter) SupportedType() string { return "Problem" }

// ProblemMarkdownFormatter renders a problem as a markdown document
type ProblemMarkdownFormatter struct{}

func (f *ProblemMarkdownFormatter) Format(data any) (string, error) {
	p, ok := data.(types.Problem)
	if !ok {
		return "", fmt.Errorf("expected Problem, got %T", data)
	}

	var output strings.Builder
	output.WriteString(fmt.Sprintf("# %s\n\n", p.Title))
	if p.Difficulty != "" {
		output.WriteString(fmt.Sprintf("**Difficulty:** %s\n\n", p.Difficulty))
	}
	output.WriteString(p.Description)
	output.WriteString("\n")

	for i, ex := range p.Examples {
		output.WriteString(fmt.Sprintf("\n## Example %d\n\n", i+1))
		output.WriteString(fmt.Sprintf("- **Input:** `%s`\n", ex.Input))
		output.WriteString(fmt.Sprintf("- **Output:** `%s`\n", ex.Output))
		if ex.Explanation != "" {
			output.WriteString(fmt.Sprintf("- **Explanation:** %s\n", ex.Explanation))
		}
	}

	if len(p.Constraints) > 0 {
		output.WriteString("\n## Constraints\n\n")
		for _, c := range p.Constraints {
			output.WriteString(fmt.Sprintf("- `%s`\n", c))
		}
	}

	langs := make([]string, 0, len(p.FunctionSignature))
	for lang := range p.FunctionSignature {
		langs = append(langs, string(lang))
	}
	sort.Strings(langs)
	for _, lang := range langs {
		output.WriteString(fmt.Sprintf("\n## Starter code (%s)\n\n```%s\n%s\n```\n", lang, lang, p.FunctionSignature[types.Language(lang)]))
	}
	return output.String(), nil
}

func (f *ProblemMarkdownFormatter) SupportedType() string { return "Problem" }

// TestRunTextFormatter prints one example verdict
type TestRunTextFormatter struct{}

func (f *TestRunTextFormatter) Format(data any) (string, error) {
	r, ok := data.(types.TestRunResult)
	if !ok {
		return "", fmt.Errorf("expected TestRunResult, got %T", data)
	}
	return formatTestRun(r), nil
}

func (f *TestRunTextFormatter) SupportedType() string { return "TestRunResult" }

func formatTestRun(r types.TestRunResult) string {
	var output strings.Builder
	if r.Passed {
		output.WriteString("PASSED\n")
	} else {
		output.WriteString("FAILED\n")
	}
	if r.Error != "" {
		output.WriteString(fmt.Sprintf("Error: %s\n", r.Error))
	}
	if !r.ExpectedOutput.IsZero() {
		output.WriteString(fmt.Sprintf("Expected: %s\n", r.ExpectedOutput))
	}
	if !r.ActualOutput.IsZero() {
		output.WriteString(fmt.Sprintf("Actual:   %s\n", r.ActualOutput))
	}
	if r.Explanation != "" {
		output.WriteString(r.Explanation)
		output.WriteString("\n")
	}
	return output.String()
}

// SubmissionTextFormatter prints the summary, judge stats and failed tests
type SubmissionTextFormatter struct{}

func (f *SubmissionTextFormatter) Format(data any) (string, error) {
	s, ok := data.(types.SubmissionResult)
	if !ok {
		return "", fmt.Errorf("expected SubmissionResult, got %T", data)
	}

	var output strings.Builder
	if s.Success {
		output.WriteString("=== ACCEPTED ===\n")
	} else {
		output.WriteString("=== NOT ACCEPTED ===\n")
	}
	output.WriteString(s.Summary())
	output.WriteString("\n")
	if s.ExecutionTime != "" {
		output.WriteString(fmt.Sprintf("Execution time: %s\n", s.ExecutionTime))
	}
	if s.MemoryUsage != "" {
		output.WriteString(fmt.Sprintf("Memory usage: %s\n", s.MemoryUsage))
	}
	if s.Error != "" {
		output.WriteString(fmt.Sprintf("Error: %s\n", s.Error))
	}
	if s.Feedback != "" {
		output.WriteString(fmt.Sprintf("\nFeedback:\n%s\n", s.Feedback))
	}

	for _, t := range s.FailedTests() {
		output.WriteString(fmt.Sprintf("\nTest %d failed\n", t.TestNumber))
		if !t.Input.IsZero() {
			output.WriteString(fmt.Sprintf("  Input:    %s\n", t.Input))
		}
		output.WriteString(fmt.Sprintf("  Expected: %s\n", t.ExpectedOutput))
		output.WriteString(fmt.Sprintf("  Actual:   %s\n", t.ActualOutput))
		if t.Explanation != "" {
			output.WriteString(fmt.Sprintf("  %s\n", t.Explanation))
		}
	}
	return output.String(), nil
}

func (f *SubmissionTextFormatter) SupportedType() string { return "SubmissionResult" }

// SubmissionMarkdownFormatter renders a submission with a failed-test table
type SubmissionMarkdownFormatter struct{}

func (f *SubmissionMarkdownFormatter) Format(data any) (string, error) {
	s, ok := data.(types.SubmissionResult)
	if !ok {
		return "", fmt.Errorf("expected SubmissionResult, got %T", data)
	}

	var output strings.Builder
	verdict := "Not accepted"
	if s.Success {
		verdict = "Accepted"
	}
	output.WriteString(fmt.Sprintf("# Submission: %s\n\n", verdict))
	output.WriteString(fmt.Sprintf("**%s**\n\n", s.Summary()))
	if s.ExecutionTime != "" || s.MemoryUsage != "" {
		output.WriteString(fmt.Sprintf("- Execution time: %s\n- Memory usage: %s\n\n", s.ExecutionTime, s.MemoryUsage))
	}
	if s.Feedback != "" {
		output.WriteString("## Feedback\n\n")
		output.WriteString(s.Feedback)
		output.WriteString("\n\n")
	}

	if failed := s.FailedTests(); len(failed) > 0 {
		output.WriteString("## Failed tests\n\n")
		output.WriteString("| Test | Expected | Actual |\n|------|----------|--------|\n")
		for _, t := range failed {
			output.WriteString(fmt.Sprintf("| %d | `%s` | `%s` |\n", t.TestNumber, t.ExpectedOutput, t.ActualOutput))
		}
	}
	return output.String(), nil
}

func (f *SubmissionMarkdownFormatter) SupportedType() string { return "SubmissionResult" }

// SessionTextFormatter prints the practice screen state
type SessionTextFormatter struct{}

func (f *SessionTextFormatter) Format(data any) (string, error) {
	v, ok := data.(practice.View)
	if !ok {
		return "", fmt.Errorf("expected practice.View, got %T", data)
	}

	var output strings.Builder
	switch v.Status {
	case practice.StatusEmpty:
		output.WriteString("No problem loaded.\n")
		return output.String(), nil
	case practice.StatusLoading:
		output.WriteString("Loading problem...\n")
		return output.String(), nil
	case practice.StatusFailed:
		output.WriteString(fmt.Sprintf("Error: %s\n", v.Error))
		return output.String(), nil
	}

	if v.Problem != nil {
		output.WriteString(fmt.Sprintf("Problem: %s", v.Problem.Title))
		if v.Problem.Difficulty != "" {
			output.WriteString(fmt.Sprintf(" (%s)", v.Problem.Difficulty))
		}
		output.WriteString("\n")
	}
	output.WriteString(fmt.Sprintf("Language: %s\n", v.Language))

	output.WriteString("Examples:")
	for i, state := range v.TestStates {
		output.WriteString(fmt.Sprintf(" [%d:%s]", i+1, runStateLabel(state)))
	}
	output.WriteString("\n")
	if v.TestSummary != "" {
		output.WriteString(v.TestSummary)
		output.WriteString("\n")
	}
	if v.Running && v.RunningIndex != nil {
		output.WriteString(fmt.Sprintf("Running example %d...\n", *v.RunningIndex+1))
	}
	if v.Submitting {
		output.WriteString("Submitting...\n")
	}
	if v.Error != "" {
		output.WriteString(fmt.Sprintf("Error: %s\n", v.Error))
	}
	if v.SubmissionSummary != "" {
		output.WriteString(fmt.Sprintf("Last submission: %s", v.SubmissionSummary))
		if v.Accepted {
			output.WriteString(" (accepted)")
		}
		output.WriteString("\n")
	}
	return output.String(), nil
}

func (f *SessionTextFormatter) SupportedType() string { return "SessionView" }

func runStateLabel(state practice.RunState) string {
	switch state {
	case practice.RunPassed:
		return "pass"
	case practice.RunFailed:
		return "fail"
	default:
		return "-"
	}
}

// ScoreTextFormatter prints an ATS score
type ScoreTextFormatter struct{}

func (f *ScoreTextFormatter) Format(data any) (string, error) {
	r, ok := data.(types.ScoreResult)
	if !ok {
		return "", fmt.Errorf("expected ScoreResult, got %T", data)
	}

	var output strings.Builder
	output.WriteString("=== ATS MATCH ===\n")
	if r.Demo {
		output.WriteString("(demo result)\n")
	}
	output.WriteString(fmt.Sprintf("Match score: %s\n\n", r.MatchScore))
	output.WriteString("Missing keywords:\n")
	writeList(&output, r.MissingKeywords, "  - ")
	output.WriteString("\nImprovement tips:\n")
	writeList(&output, r.ImprovementTips, "  - ")
	return output.String(), nil
}

func (f *ScoreTextFormatter) SupportedType() string { return "ScoreResult" }

// ScoreMarkdownFormatter renders an ATS score as markdown
type ScoreMarkdownFormatter struct{}

func (f *ScoreMarkdownFormatter) Format(data any) (string, error) {
	r, ok := data.(types.ScoreResult)
	if !ok {
		return "", fmt.Errorf("expected ScoreResult, got %T", data)
	}

	var output strings.Builder
	output.WriteString("# ATS Match\n\n")
	if r.Demo {
		output.WriteString("> Demo result\n\n")
	}
	output.WriteString(fmt.Sprintf("**Match score:** %s\n\n", r.MatchScore))
	output.WriteString("## Missing Keywords\n\n")
	writeList(&output, r.MissingKeywords, "- ")
	output.WriteString("\n## Improvement Tips\n\n")
	writeList(&output, r.ImprovementTips, "- ")
	return output.String(), nil
}

func (f *ScoreMarkdownFormatter) SupportedType() string { return "ScoreResult" }

// EvaluationTextFormatter prints an answer grade
type EvaluationTextFormatter struct{}

func (f *EvaluationTextFormatter) Format(data any) (string, error) {
	e, ok := data.(types.AnswerEvaluation)
	if !ok {
		return "", fmt.Errorf("expected AnswerEvaluation, got %T", data)
	}
	out := fmt.Sprintf("Score: %s\n", e.Score)
	if e.Feedback != "" {
		out += fmt.Sprintf("\nFeedback:\n%s\n", e.Feedback)
	}
	return out, nil
}

func (f *EvaluationTextFormatter) SupportedType() string { return "AnswerEvaluation" }

type EvaluationMarkdownFormatter struct{}

func (f *EvaluationMarkdownFormatter) Format(data any) (string, error) {
	e, ok := data.(types.AnswerEvaluation)
	if !ok {
		return "", fmt.Errorf("expected AnswerEvaluation, got %T", data)
	}
	out := fmt.Sprintf("# Answer Evaluation\n\n**Score:** %s\n", e.Score)
	if e.Feedback != "" {
		out += fmt.Sprintf("\n## Feedback\n\n%s\n", e.Feedback)
	}
	return out, nil
}

func (f *EvaluationMarkdownFormatter) SupportedType() string { return "AnswerEvaluation" }

// RoundTextFormatter prints an interview round
type RoundTextFormatter struct{}

func (f *RoundTextFormatter) Format(data any) (string, error) {
	r, ok := data.(interview.RoundView)
	if !ok {
		return "", fmt.Errorf("expected interview.RoundView, got %T", data)
	}

	var output strings.Builder
	if r.Stage == interview.StageNoQuestion {
		output.WriteString("No question yet.\n")
		return output.String(), nil
	}
	output.WriteString(fmt.Sprintf("Question: %s\n", r.Question))
	if r.Stage == interview.StageAnswered {
		output.WriteString(fmt.Sprintf("\nYour answer:\n%s\n", r.Answer))
		if r.Score != nil {
			output.WriteString(fmt.Sprintf("\nScore: %s\n", *r.Score))
		}
		if r.Feedback != "" {
			output.WriteString(fmt.Sprintf("Feedback: %s\n", r.Feedback))
		}
	}
	return output.String(), nil
}

func (f *RoundTextFormatter) SupportedType() string { return "RoundView" }

// AuthTextFormatter prints a signed-in session
type AuthTextFormatter struct{}

func (f *AuthTextFormatter) Format(data any) (string, error) {
	s, ok := data.(identity.Session)
	if !ok {
		return "", fmt.Errorf("expected identity.Session, got %T", data)
	}
	var output strings.Builder
	output.WriteString(fmt.Sprintf("Welcome, %s!\n", s.Profile.DisplayName()))
	output.WriteString(fmt.Sprintf("User ID: %s\n", s.UserID))
	output.WriteString(fmt.Sprintf("Token expires: %s\n", s.ExpiresAt.Format("2006-01-02 15:04:05 MST")))
	output.WriteString(fmt.Sprintf("Token: %s\n", s.Token))
	return output.String(), nil
}

func (f *AuthTextFormatter) SupportedType() string { return "Session" }

func writeList(output *strings.Builder, items []string, bullet string) {
	if len(items) == 0 {
		output.WriteString(bullet + "(none)\n")
		return
	}
	for _, item := range items {
		output.WriteString(bullet + item + "\n")
	}
}

// GlobalRegistry is shared by the CLI output handler
var GlobalRegistry = NewFormatterRegistry()
