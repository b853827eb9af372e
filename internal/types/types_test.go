package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLanguage(t *testing.T) {
	tests := []struct {
		in      string
		want    Language
		wantErr bool
	}{
		{in: "java", want: LanguageJava},
		{in: " Python ", want: LanguagePython},
		{in: "cpp", want: LanguageCPP},
		{in: "rust", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLanguage(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLanguagePlaceholderAndExtension(t *testing.T) {
	assert.Equal(t, "// Add your solution here", LanguageJava.Placeholder())
	assert.Equal(t, "// Add your solution here", LanguageCPP.Placeholder())
	assert.Equal(t, "# Add your solution here", LanguagePython.Placeholder())
	assert.Equal(t, "py", LanguagePython.FileExtension())
	assert.Equal(t, "cpp", LanguageCPP.FileExtension())
}

func TestProblemDecoding(t *testing.T) {
	payload := `{
		"id": 1,
		"title": "Two Sum",
		"difficulty": "Easy",
		"description": "Find two numbers.",
		"examples": [
			{"input": {"nums": [2, 7, 11, 15], "target": 9}, "output": [0, 1], "explanation": "2 + 7 = 9"},
			{"input": "abc", "output": true}
		],
		"constraints": ["2 <= nums.length"],
		"function_signature": {"java": "class Solution {}", "python": "   "}
	}`

	var p Problem
	require.NoError(t, json.Unmarshal([]byte(payload), &p))

	assert.Equal(t, FlexibleString("1"), p.ID)
	require.Len(t, p.Examples, 2)
	assert.Equal(t, `{"nums":[2,7,11,15],"target":9}`, p.Examples[0].Input.String())
	assert.Equal(t, "[0,1]", p.Examples[0].Output.String())
	assert.Equal(t, "abc", p.Examples[1].Input.String())
	assert.Equal(t, "true", p.Examples[1].Output.String())

	assert.Equal(t, "class Solution {}", p.StarterCode(LanguageJava))
	assert.Equal(t, "# Add your solution here", p.StarterCode(LanguagePython))
	assert.Equal(t, "// Add your solution here", p.StarterCode(LanguageCPP))
}

func TestExampleRoundTripKeepsRawValues(t *testing.T) {
	ex := Example{Input: JSONValue(`{"x":121}`), Output: JSONValue(`true`)}
	data, err := json.Marshal(ex)
	require.NoError(t, err)
	assert.JSONEq(t, `{"input":{"x":121},"output":true}`, string(data))
}

func TestFlexibleString(t *testing.T) {
	tests := []struct {
		in      string
		want    FlexibleString
		wantErr bool
	}{
		{in: `"abc-1"`, want: "abc-1"},
		{in: `42`, want: "42"},
		{in: `12.5`, want: "12.5"},
		{in: `null`, want: ""},
		{in: `[1]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var f FlexibleString
			err := json.Unmarshal([]byte(tt.in), &f)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, f)
		})
	}
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		in      string
		want    Percentage
		wantErr bool
	}{
		{in: `85`, want: 85},
		{in: `"85"`, want: 85},
		{in: `"85%"`, want: 85},
		{in: `"72.5 %"`, want: 72.5},
		{in: `"N/A"`, wantErr: true},
		{in: `140`, wantErr: true},
		{in: `-1`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var p Percentage
			err := json.Unmarshal([]byte(tt.in), &p)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p)
		})
	}

	assert.Equal(t, "85%", Percentage(85).String())
}

func TestSubmissionResultCounts(t *testing.T) {
	t.Run("from test results", func(t *testing.T) {
		s := SubmissionResult{
			PassedTests: 99,
			TotalTests:  99,
			TestResults: []TestResult{
				{TestNumber: 1, Passed: true},
				{TestNumber: 2, Passed: false, Input: JSONValue(`[1,2]`), ExpectedOutput: JSONValue(`3`), ActualOutput: JSONValue(`4`), Explanation: "off by one"},
				{TestNumber: 3, Passed: true},
			},
		}

		assert.Equal(t, "Passed 2 of 3 tests", s.Summary())
		failed := s.FailedTests()
		require.Len(t, failed, 1)
		assert.Equal(t, 2, failed[0].TestNumber)
		assert.Equal(t, "off by one", failed[0].Explanation)
	})

	t.Run("from aggregate counts", func(t *testing.T) {
		s := SubmissionResult{PassedTests: 4, TotalTests: 5}
		assert.Equal(t, "Passed 4 of 5 tests", s.Summary())
		assert.Empty(t, s.FailedTests())
	})

	t.Run("numeric execution time", func(t *testing.T) {
		var s SubmissionResult
		require.NoError(t, json.Unmarshal([]byte(`{"success":true,"passed_tests":1,"total_tests":1,"execution_time":50,"memory_usage":2.5}`), &s))
		assert.Equal(t, FlexibleString("50"), s.ExecutionTime)
		assert.Equal(t, FlexibleString("2.5"), s.MemoryUsage)
	})
}

func TestProfileDisplayName(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", Profile{FirstName: "Ada", LastName: "Lovelace"}.DisplayName())
	assert.Equal(t, "Guest", GuestProfile.DisplayName())
}
