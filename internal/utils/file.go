package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"placementprep/internal/types"

	"github.com/gosimple/slug"
)

// ValidateInputFile checks if a file exists and is readable
func ValidateInputFile(filename string) error {
	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}

	info, err := os.Stat(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file does not exist: %s", filename)
		}
		return fmt.Errorf("cannot access file %s: %w", filename, err)
	}

	if info.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", filename)
	}

	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("cannot read file %s: %w", filename, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close file %s: %w", filename, err)
	}

	return nil
}

// ValidateOutputFile checks if the output file path is valid
func ValidateOutputFile(filename string) error {
	if filename == "" {
		return nil // stdout is valid
	}

	dir := filepath.Dir(filename)
	if dir != "." {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("cannot create directory %s: %w", dir, err)
			}
		}
	}

	return nil
}

// GetFileExtension returns the file extension in lowercase
func GetFileExtension(filename string) string {
	ext := filepath.Ext(filename)
	return strings.ToLower(ext)
}

// HasAllowedExtension reports whether filename ends in one of allowed (".pdf" or "pdf")
func HasAllowedExtension(filename string, allowed []string) bool {
	ext := GetFileExtension(filename)
	if ext == "" {
		return false
	}
	return slices.ContainsFunc(allowed, func(a string) bool {
		return NormalizeExtension(a) == ext
	})
}

// NormalizeExtension lower-cases ext and adds the leading dot
func NormalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// SolutionFileName builds "<slug>.<ext>" for a problem title, e.g. "two-sum.py"
func SolutionFileName(title string, lang types.Language) string {
	return titleSlug(title) + "." + lang.FileExtension()
}

// ProblemFileName builds "<slug>.md" for a problem title
func ProblemFileName(title string) string {
	return titleSlug(title) + ".md"
}

func titleSlug(title string) string {
	s := slug.Make(title)
	if s == "" {
		return "problem"
	}
	return s
}

// FormatFileSize returns a human-readable file size
func FormatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
