package common

import (
	"fmt"
	"os"
	"path/filepath"

	"resumerag/internal/errors"
	"resumerag/internal/ingest"
	"resumerag/internal/types"
)

// FileProcessor reads input documents and writes command output.
type FileProcessor struct {
	logger  *errors.Logger
	maxSize int64
}

// NewFileProcessor creates a file processor. maxSize <= 0 disables the
// input size check.
func NewFileProcessor(logger *errors.Logger, maxSize int64) *FileProcessor {
	return &FileProcessor{logger: logger, maxSize: maxSize}
}

// LoadDocument validates path and extracts its text. PDF and DOCX are
// recognised by extension; anything else is read as plain text.
func (fp *FileProcessor) LoadDocument(path string) (types.Document, error) {
	if err := fp.validateInputFile(path); err != nil {
		return types.Document{}, err
	}

	doc, err := ingest.LoadFile(path)
	if err != nil {
		return types.Document{}, err
	}
	doc.Source = "upload:" + filepath.Base(path)

	if fp.logger != nil {
		fp.logger.Debug("Loaded input document", "path", path, "chars", len(doc.Text))
	}
	return doc, nil
}

func (fp *FileProcessor) validateInputFile(filename string) error {
	info, err := os.Stat(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.NewIOError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("File not found: %s", filename), err)
		}
		return errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot access file: %s", filename), err)
	}

	if info.IsDir() {
		return errors.NewValidationError("INVALID_INPUT_FILE",
			fmt.Sprintf("Path is a directory, not a file: %s", filename), nil)
	}

	if fp.maxSize > 0 && info.Size() > fp.maxSize {
		return errors.NewValidationError(errors.ErrCodeFileTooLarge,
			fmt.Sprintf("File %s exceeds %d MB limit", filepath.Base(filename), fp.maxSize>>20), nil).
			WithContext("size", info.Size())
	}
	return nil
}

// WriteFile writes content to a file with directory creation
func (fp *FileProcessor) WriteFile(filename, content string) error {
	dir := filepath.Dir(filename)
	if dir != "." {
		err := os.MkdirAll(dir, 0750)
		if err != nil {
			return errors.NewIOError("DIRECTORY_CREATE_FAILED",
				fmt.Sprintf("Cannot create directory: %s", dir), err)
		}
	}

	err := os.WriteFile(filename, []byte(content), 0600)
	if err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED",
			fmt.Sprintf("Cannot write file: %s", filename), err)
	}

	return nil
}
