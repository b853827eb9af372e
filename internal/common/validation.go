package common

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"placementprep/internal/types"
)

// ValidateOutputFormat validates format against configured supported formats
func ValidateOutputFormat(format string, supportedFormats []string) error {
	if len(supportedFormats) == 0 {
		return nil // No restrictions configured
	}

	if slices.Contains(supportedFormats, format) {
		return nil
	}

	return fmt.Errorf("unsupported output format '%s'. Supported formats: %v",
		format, supportedFormats)
}

// ParseExampleIndex converts a 1-based example number typed by the user into a 0-based index
func ParseExampleIndex(arg string, examples int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		return 0, fmt.Errorf("example must be a number, got %q", arg)
	}
	if n < 1 || n > examples {
		if examples == 0 {
			return 0, fmt.Errorf("problem has no examples")
		}
		return 0, fmt.Errorf("example must be between 1 and %d", examples)
	}
	return n - 1, nil
}

// ParseLanguageArg accepts the language names and the common aliases c++ and py
func ParseLanguageArg(arg string) (types.Language, error) {
	switch strings.ToLower(strings.TrimSpace(arg)) {
	case "c++":
		return types.LanguageCPP, nil
	case "py":
		return types.LanguagePython, nil
	}
	return types.ParseLanguage(arg)
}
