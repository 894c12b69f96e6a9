package server

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"resumerag/internal/errors"
	"resumerag/internal/evaluator"
	"resumerag/internal/ingest"
	"resumerag/internal/types"
)

// Multipart file fields.
const (
	fieldResumeFile = "resume"
	fieldJDFile     = "jobDescriptionFile"
)

// capabilityBody is the JSON body shared by every capability endpoint.
// Multipart requests carry the same names as form fields.
type capabilityBody struct {
	ResumeText         string        `json:"resumeText"`
	JobDescription     string        `json:"jobDescription"`
	Question           string        `json:"question"`
	Answer             string        `json:"answer"`
	HistoryID          string        `json:"historyId"`
	NumQuestions       types.FlexInt `json:"numQuestions"`
	SkillFocus         string        `json:"skillFocus"`
	QuestionType       string        `json:"questionType"`
	QuestionDifficulty string        `json:"questionDifficulty"`
	ExperienceLevel    string        `json:"experienceLevel"`
	RoundType          string        `json:"roundType"`
	TargetJobRole      string        `json:"targetJobRole"`
}

// upload is a file part kept open until the request is parsed.
type upload struct {
	file   multipart.File
	header *multipart.FileHeader
}

// parseCapabilityRequest reads a JSON or multipart body into an evaluator
// request. Files go through tmp and win over the matching text field.
// Document checks run in a fixed order: resume type, resume presence, JD
// type, JD presence.
func (s *Server) parseCapabilityRequest(r *http.Request, tmp *ingest.TempStore) (evaluator.Request, error) {
	var (
		body           capabilityBody
		resumeUp, jdUp *upload
		err            error
		req            evaluator.Request
	)

	if isMultipart(r) {
		body, resumeUp, jdUp, err = s.parseMultipart(r)
		if resumeUp != nil {
			defer resumeUp.file.Close()
		}
		if jdUp != nil {
			defer jdUp.file.Close()
		}
	} else {
		body, err = parseJSONBody(r)
	}
	if err != nil {
		return req, err
	}

	req = evaluator.Request{
		Question:  body.Question,
		Answer:    body.Answer,
		HistoryID: body.HistoryID,
		User:      userFromContext(r.Context()),
		Options: types.QuestionOptions{
			NumQuestions:       int(body.NumQuestions),
			SkillFocus:         body.SkillFocus,
			QuestionType:       body.QuestionType,
			QuestionDifficulty: body.QuestionDifficulty,
			ExperienceLevel:    body.ExperienceLevel,
			RoundType:          body.RoundType,
			TargetJobRole:      body.TargetJobRole,
		},
	}

	if resumeUp != nil && !ingest.IsPDF(resumeUp.header.Filename) {
		return req, errors.NewValidationError(errors.ErrCodeUnsupportedFileType, evaluator.MsgResumeNotPDF, nil)
	}
	if resumeUp == nil && strings.TrimSpace(body.ResumeText) == "" {
		return req, errors.NewValidationError(errors.ErrCodeMissingInput, evaluator.MsgMissingResume, nil)
	}
	if jdUp != nil && !ingest.IsPDF(jdUp.header.Filename) {
		return req, errors.NewValidationError(errors.ErrCodeUnsupportedFileType, evaluator.MsgJDNotPDF, nil)
	}
	if jdUp == nil && strings.TrimSpace(body.JobDescription) == "" {
		return req, errors.NewValidationError(errors.ErrCodeMissingInput, evaluator.MsgMissingJD, nil)
	}

	if req.Resume, err = s.loadDocument(r, tmp, "resume", resumeUp, body.ResumeText); err != nil {
		return req, err
	}
	if req.JobDescription, err = s.loadDocument(r, tmp, "jd", jdUp, body.JobDescription); err != nil {
		return req, err
	}
	return req, nil
}

func (s *Server) loadDocument(r *http.Request, tmp *ingest.TempStore, kind string, up *upload, text string) (types.Document, error) {
	if up == nil {
		s.metrics.RecordIngest(r.Context(), kind, "text")
		return ingest.FromText(text)
	}

	path, err := tmp.Save(kind, up.header.Filename, up.file)
	if err != nil {
		return types.Document{}, err
	}
	doc, err := ingest.LoadFile(path)
	if err != nil {
		return types.Document{}, err
	}
	s.metrics.RecordIngest(r.Context(), kind, "upload")
	doc.Source = "upload:" + up.header.Filename
	return doc, nil
}

func (s *Server) parseMultipart(r *http.Request) (capabilityBody, *upload, *upload, error) {
	var body capabilityBody
	if err := r.ParseMultipartForm(s.MaxFileSize); err != nil {
		return body, nil, nil, bodyError(err)
	}

	body = capabilityBody{
		ResumeText:         r.FormValue("resumeText"),
		JobDescription:     r.FormValue("jobDescription"),
		Question:           r.FormValue("question"),
		Answer:             r.FormValue("answer"),
		HistoryID:          r.FormValue("historyId"),
		SkillFocus:         r.FormValue("skillFocus"),
		QuestionType:       r.FormValue("questionType"),
		QuestionDifficulty: r.FormValue("questionDifficulty"),
		ExperienceLevel:    r.FormValue("experienceLevel"),
		RoundType:          r.FormValue("roundType"),
		TargetJobRole:      r.FormValue("targetJobRole"),
	}
	if n, err := strconv.Atoi(strings.TrimSpace(r.FormValue("numQuestions"))); err == nil {
		body.NumQuestions = types.FlexInt(n)
	}

	resumeUp, err := s.formFile(r, fieldResumeFile)
	if err != nil {
		return body, nil, nil, err
	}
	jdUp, err := s.formFile(r, fieldJDFile)
	if err != nil {
		if resumeUp != nil {
			resumeUp.file.Close()
		}
		return body, nil, nil, err
	}
	return body, resumeUp, jdUp, nil
}

// formFile returns nil when the field is absent.
func (s *Server) formFile(r *http.Request, field string) (*upload, error) {
	file, header, err := r.FormFile(field)
	if stderrors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "Invalid file upload", err).
			WithContext("field", field)
	}
	if s.MaxFileSize > 0 && header.Size > s.MaxFileSize {
		file.Close()
		return nil, errors.NewValidationError(errors.ErrCodeFileTooLarge,
			fmt.Sprintf("File %s exceeds %d MB limit", header.Filename, s.MaxFileSize>>20), nil).
			WithContext("field", field)
	}
	return &upload{file: file, header: header}, nil
}

// parseJSONBody decodes a JSON capability body. An empty body decodes to
// empty fields so the document checks report what is missing.
func parseJSONBody(r *http.Request) (capabilityBody, error) {
	var body capabilityBody
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return body, bodyError(err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return body, nil
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return body, errors.NewValidationError(errors.ErrCodeInvalidRequest, "Invalid request body", err)
	}
	return body, nil
}

func bodyError(err error) error {
	var maxBytesErr *http.MaxBytesError
	if stderrors.As(err, &maxBytesErr) {
		return errors.NewValidationError(errors.ErrCodeFileTooLarge,
			fmt.Sprintf("Request body too large (limit is %d bytes)", maxBytesErr.Limit), err)
	}
	return errors.NewValidationError(errors.ErrCodeInvalidRequest, "Invalid request body", err)
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}
