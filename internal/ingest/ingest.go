// Package ingest turns uploads and inline text into documents.
package ingest

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"

	"resumerag/internal/errors"
	"resumerag/internal/types"
)

const (
	MimeText = "text/plain"
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// ErrEmptyDocument is returned when a source yields no text.
var ErrEmptyDocument = errors.NewValidationError(errors.ErrCodeMissingInput, "document contains no text", nil)

// FromText wraps inline text.
func FromText(text string) (types.Document, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return types.Document{}, ErrEmptyDocument
	}
	return types.Document{Text: text, Source: "text"}, nil
}

// FromPDF extracts the plain text of every page. Pages without content
// are skipped.
func FromPDF(r io.ReaderAt, size int64, name string) (types.Document, error) {
	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return types.Document{}, errors.NewProcessingError(errors.ErrCodeDocumentProcessing,
			fmt.Sprintf("failed to read pdf %s", name), err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return types.Document{}, errors.NewProcessingError(errors.ErrCodeDocumentProcessing,
				fmt.Sprintf("failed to extract text from page %d of %s", i, name), err)
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	return finish(sb.String(), "upload:"+name)
}

// FromDOCX extracts the document body of a Word file.
func FromDOCX(data []byte, name string) (types.Document, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return types.Document{}, errors.NewProcessingError(errors.ErrCodeDocumentProcessing,
			fmt.Sprintf("failed to parse docx %s", name), err)
	}
	defer doc.Close()

	return finish(stripXMLTags(doc.Editable().GetContent()), "upload:"+name)
}

// FromBytes dispatches on MIME type.
func FromBytes(mime string, data []byte, name string) (types.Document, error) {
	switch strings.ToLower(strings.TrimSpace(strings.SplitN(mime, ";", 2)[0])) {
	case MimeText:
		return finish(string(data), "upload:"+name)
	case MimePDF:
		return FromPDF(bytes.NewReader(data), int64(len(data)), name)
	case MimeDOCX:
		return FromDOCX(data, name)
	default:
		return types.Document{}, errors.NewValidationError(errors.ErrCodeUnsupportedFileType,
			fmt.Sprintf("unsupported file type: %s", mime), nil)
	}
}

// IsPDF reports whether filename has a .pdf extension, ignoring case.
func IsPDF(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".pdf")
}

// MimeFromFilename guesses the MIME type the CLI should use for a local file.
func MimeFromFilename(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return MimePDF
	case ".docx":
		return MimeDOCX
	default:
		return MimeText
	}
}

func finish(text, source string) (types.Document, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return types.Document{}, ErrEmptyDocument
	}
	return types.Document{Text: text, Source: source}, nil
}

// stripXMLTags drops the run/paragraph markup docx leaves in the body,
// turning paragraph ends into newlines.
func stripXMLTags(content string) string {
	content = strings.ReplaceAll(content, "</w:p>", "\n")
	var sb strings.Builder
	inTag := false
	for _, r := range content {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
