package common

import (
	"context"
	"strings"

	"resumerag/internal/errors"
	"resumerag/internal/evaluator"
	"resumerag/internal/ingest"
	"resumerag/internal/types"
)

// DocumentInput names where the resume and job description come from.
// A file wins over the matching text.
type DocumentInput struct {
	ResumeFile string
	ResumeText string
	JDFile     string
	JDText     string
}

// CapabilityFunc is one evaluator capability.
type CapabilityFunc[Output any] func(context.Context, evaluator.Request) (Output, error)

// BuildRequest loads both documents. Presence is checked resume first,
// then the job description, before any file is read.
func BuildRequest(fp *FileProcessor, in DocumentInput) (evaluator.Request, error) {
	var req evaluator.Request

	if in.ResumeFile == "" && strings.TrimSpace(in.ResumeText) == "" {
		return req, errors.NewValidationError(errors.ErrCodeMissingInput, evaluator.MsgMissingResume, nil)
	}
	if in.JDFile == "" && strings.TrimSpace(in.JDText) == "" {
		return req, errors.NewValidationError(errors.ErrCodeMissingInput, evaluator.MsgMissingJD, nil)
	}

	var err error
	if req.Resume, err = loadDocument(fp, in.ResumeFile, in.ResumeText); err != nil {
		return req, err
	}
	if req.JobDescription, err = loadDocument(fp, in.JDFile, in.JDText); err != nil {
		return req, err
	}
	return req, nil
}

func loadDocument(fp *FileProcessor, path, text string) (types.Document, error) {
	if path != "" {
		return fp.LoadDocument(path)
	}
	return ingest.FromText(text)
}

// RunCapability loads the documents, lets prepare fill the
// capability-specific fields, runs op and writes the formatted result.
func RunCapability[Output any](
	ctx context.Context,
	logger *errors.Logger,
	cmdConfig CommandConfig,
	in DocumentInput,
	prepare func(*evaluator.Request),
	op CapabilityFunc[Output],
) error {
	req, err := BuildRequest(NewFileProcessor(logger, cmdConfig.MaxFileSize), in)
	if err != nil {
		return err
	}
	if prepare != nil {
		prepare(&req)
	}

	if logger != nil {
		logger.Info("Running capability",
			"resume_chars", len(req.Resume.Text),
			"job_chars", len(req.JobDescription.Text),
			"resume_source", req.Resume.Source,
			"output_format", cmdConfig.OutputFormat)
	}

	result, err := op(ctx, req)
	if err != nil {
		return err
	}
	return NewOutputHandler(logger).HandleOutput(result, cmdConfig)
}
