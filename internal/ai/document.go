package ai

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"path/filepath"
	"strings"

	appErrors "placementprep/internal/errors"

	"google.golang.org/genai"
)

// resumeContentPart turns an uploaded resume into a Gemini part.
// PDFs are sent as inline documents; DOCX files are reduced to their text since Gemini does not read them.
func resumeContentPart(fileName string, content []byte) (*genai.Part, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return genai.NewPartFromBytes(content, "application/pdf"), nil
	case ".docx":
		text, err := extractDocxText(content)
		if err != nil {
			return nil, appErrors.NewValidationError(appErrors.ErrCodeInvalidFormat,
				"Failed to read DOCX resume", err)
		}
		return genai.NewPartFromText("Resume:\n" + text), nil
	default:
		return nil, appErrors.NewValidationError(appErrors.ErrCodeUnsupportedFile,
			"Unsupported file type", nil).WithContext("file_name", fileName)
	}
}

// extractDocxText returns the paragraph text of word/document.xml, one paragraph per line
func extractDocxText(content []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}

	var document *zip.File
	for _, f := range reader.File {
		if f.Name == "word/document.xml" {
			document = f
			break
		}
	}
	if document == nil {
		return "", errors.New("word/document.xml not found")
	}

	rc, err := document.Open()
	if err != nil {
		return "", err
	}
	defer func() { _ = rc.Close() }()

	var out strings.Builder
	decoder := xml.NewDecoder(rc)
	inText := false
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := token.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				out.WriteByte('\t')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				out.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				out.Write(t)
			}
		}
	}

	return strings.TrimSpace(out.String()), nil
}
