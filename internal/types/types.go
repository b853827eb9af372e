package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Language identifies a supported solution language
type Language string

const (
	LanguageJava   Language = "java"
	LanguageCPP    Language = "cpp"
	LanguagePython Language = "python"
)

// DefaultLanguage is active when a practice session starts
const DefaultLanguage = LanguageJava

// Languages lists every supported language in display order
var Languages = []Language{LanguageJava, LanguageCPP, LanguagePython}

// ParseLanguage validates a language name
func ParseLanguage(s string) (Language, error) {
	switch l := Language(strings.ToLower(strings.TrimSpace(s))); l {
	case LanguageJava, LanguageCPP, LanguagePython:
		return l, nil
	default:
		return "", fmt.Errorf("unsupported language %q (must be java, cpp or python)", s)
	}
}

// Placeholder returns the starter code used when a problem has no signature for the language
func (l Language) Placeholder() string {
	if l == LanguagePython {
		return "# Add your solution here"
	}
	return "// Add your solution here"
}

// FileExtension returns the source file extension without the dot
func (l Language) FileExtension() string {
	if l == LanguagePython {
		return "py"
	}
	return string(l)
}

// FlexibleString accepts a JSON string or number and keeps its text form
type FlexibleString string

func (f *FlexibleString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexibleString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*f = FlexibleString(n.String())
	return nil
}

// JSONValue holds an arbitrary JSON value from the judge (example inputs and outputs)
type JSONValue json.RawMessage

// StringValue wraps a plain string as a JSONValue
func StringValue(s string) JSONValue {
	data, _ := json.Marshal(s)
	return JSONValue(data)
}

func (v JSONValue) MarshalJSON() ([]byte, error) {
	if len(v) == 0 {
		return []byte("null"), nil
	}
	return v, nil
}

func (v *JSONValue) UnmarshalJSON(data []byte) error {
	*v = append((*v)[:0], data...)
	return nil
}

// IsZero reports whether the value is absent or null
func (v JSONValue) IsZero() bool {
	trimmed := bytes.TrimSpace(v)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// String renders strings unquoted and everything else as compact JSON
func (v JSONValue) String() string {
	if v.IsZero() {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, v); err != nil {
		return string(v)
	}
	return buf.String()
}

// Example is one sample input/output pair shown with a problem
type Example struct {
	Input       JSONValue `json:"input"`
	Output      JSONValue `json:"output"`
	Explanation string    `json:"explanation,omitempty"`
}

// Problem is a coding question served by the judge
type Problem struct {
	ID                FlexibleString      `json:"id"`
	Title             string              `json:"title"`
	Difficulty        string              `json:"difficulty"`
	Description       string              `json:"description"`
	Examples          []Example           `json:"examples"`
	Constraints       []string            `json:"constraints"`
	FunctionSignature map[Language]string `json:"function_signature"`
	Timestamp         FlexibleString      `json:"timestamp,omitempty"`
}

// StarterCode returns the function signature for lang, or the language placeholder
func (p *Problem) StarterCode(lang Language) string {
	if p != nil {
		if sig := p.FunctionSignature[lang]; strings.TrimSpace(sig) != "" {
			return sig
		}
	}
	return lang.Placeholder()
}

// TestRunResult is the judge verdict for a single example
type TestRunResult struct {
	Passed         bool      `json:"passed"`
	ActualOutput   JSONValue `json:"actual_output,omitempty"`
	ExpectedOutput JSONValue `json:"expected_output,omitempty"`
	Explanation    string    `json:"explanation,omitempty"`
	Error          string    `json:"error,omitempty"`
}

// TestResult is one graded test inside a submission
type TestResult struct {
	TestNumber     int       `json:"test_number"`
	Passed         bool      `json:"passed"`
	Input          JSONValue `json:"input,omitempty"`
	ExpectedOutput JSONValue `json:"expected_output,omitempty"`
	ActualOutput   JSONValue `json:"actual_output,omitempty"`
	Explanation    string    `json:"explanation,omitempty"`
}

// SubmissionResult is the judge verdict for a full submission
type SubmissionResult struct {
	Success       bool           `json:"success"`
	PassedTests   int            `json:"passed_tests"`
	TotalTests    int            `json:"total_tests"`
	TestResults   []TestResult   `json:"test_results,omitempty"`
	ExecutionTime FlexibleString `json:"execution_time,omitempty"`
	MemoryUsage   FlexibleString `json:"memory_usage,omitempty"`
	Feedback      string         `json:"feedback,omitempty"`
	Error         string         `json:"error,omitempty"`
}

// Counts returns passed and total tests, preferring the per-test breakdown when present
func (s *SubmissionResult) Counts() (passed, total int) {
	if len(s.TestResults) == 0 {
		return s.PassedTests, s.TotalTests
	}
	for _, tr := range s.TestResults {
		if tr.Passed {
			passed++
		}
	}
	return passed, len(s.TestResults)
}

// FailedTests returns the tests that did not pass
func (s *SubmissionResult) FailedTests() []TestResult {
	var failed []TestResult
	for _, tr := range s.TestResults {
		if !tr.Passed {
			failed = append(failed, tr)
		}
	}
	return failed
}

// Summary renders "Passed X of Y tests"
func (s *SubmissionResult) Summary() string {
	passed, total := s.Counts()
	return fmt.Sprintf("Passed %d of %d tests", passed, total)
}

// Percentage is a 0-100 score that may arrive as a number, "85" or "85%"
type Percentage float64

func (p *Percentage) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		raw = strings.TrimSuffix(strings.TrimSpace(raw), "%")
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid percentage %s", data)
	}
	if value < 0 || value > 100 {
		return fmt.Errorf("percentage %v out of range 0-100", value)
	}
	*p = Percentage(value)
	return nil
}

func (p Percentage) String() string {
	return strconv.FormatFloat(float64(p), 'f', -1, 64) + "%"
}

// ScoreResult is the ATS match between a resume and a job description
type ScoreResult struct {
	MatchScore      Percentage `json:"match_score"`
	MissingKeywords []string   `json:"missing_keywords"`
	ImprovementTips []string   `json:"improvement_tips"`
	Demo            bool       `json:"demo,omitempty"`
}

// ResumeUpload is the input to resume scoring
type ResumeUpload struct {
	FileName       string
	Content        []byte
	JobDescription string
}

// InterviewQuestion is one interview prompt
type InterviewQuestion struct {
	Question string `json:"question"`
}

// AnswerEvaluation is the grade for an interview answer
type AnswerEvaluation struct {
	Score    Percentage `json:"score"`
	Feedback string     `json:"feedback,omitempty"`
}

// Profile is the stored user document
type Profile struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Photo     string `json:"photo"`
}

// GuestProfile is shown when no profile document exists
var GuestProfile = Profile{FirstName: "Guest"}

// DisplayName joins first and last name
func (p Profile) DisplayName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}
