package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/api/response"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/llm"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/models"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/validation"
)

var (
	errResumeRequired = errors.New("resume file is required")
	errResumeType     = errors.New("resume must be a .pdf, .docx or .txt file")
)

// multipartMemory is how much of an upload is kept in memory before spilling to disk.
const multipartMemory = 8 << 20

// PeopleService defines the people operations the handler needs.
type PeopleService interface {
	CreatePerson(ctx context.Context, externalID string, resume llm.Source) (*models.Person, error)
	GetPerson(ctx context.Context, externalID string) (*models.Person, error)
	ListPeople(ctx context.Context, params models.ListParams) ([]models.Person, error)
}

// PeopleHandler handles HTTP requests for people.
type PeopleHandler struct {
	service PeopleService
}

// NewPeopleHandler creates a new people handler.
func NewPeopleHandler(service PeopleService) *PeopleHandler {
	return &PeopleHandler{service: service}
}

// Create handles POST /v1/people
// @Summary Create a person from a resume
// @Description Accepts JSON {external_id, resume_text} or multipart form with external_id and a resume file (PDF, DOCX or TXT)
// @Tags People
// @Accept json,mpfd
// @Produce json
// @Success 201 {object} models.Person
// @Failure 400 {object} response.ProblemDetails
// @Failure 409 {object} response.ProblemDetails "external_id already exists"
// @Failure 422 {object} response.ProblemDetails "resume could not be processed"
// @Security BearerAuth
// @Router /v1/people [post]
func (h *PeopleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var (
		externalID string
		resume     llm.Source
	)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		var err error

		externalID, resume, err = readResumeUpload(r)
		if err != nil {
			response.RespondBadRequest(w, err.Error())

			return
		}
	} else {
		var req models.CreatePersonRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.RespondBadRequest(w, "Invalid request body")

			return
		}

		if err := validation.ValidateStruct(&req); err != nil {
			validation.RespondValidationError(w, err)

			return
		}

		externalID, resume = req.ExternalID, llm.TextSource(req.ResumeText)
	}

	person, err := h.service.CreatePerson(r.Context(), externalID, resume)
	if err != nil {
		respondServiceError(w, r, err, "person")

		return
	}

	response.RespondJSON(w, http.StatusCreated, person)
}

// readResumeUpload reads external_id and the resume file from a multipart form.
// Text files are passed as text; PDF and DOCX are attached as documents.
func readResumeUpload(r *http.Request) (string, llm.Source, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return "", llm.Source{}, fmt.Errorf("invalid multipart form: %w", err)
	}

	file, header, err := r.FormFile("resume")
	if err != nil {
		return "", llm.Source{}, errResumeRequired
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".pdf" && ext != ".docx" && ext != ".txt" {
		return "", llm.Source{}, errResumeType
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return "", llm.Source{}, fmt.Errorf("failed to read resume: %w", err)
	}

	externalID := r.FormValue("external_id")
	if ext == ".txt" {
		return externalID, llm.TextSource(string(data)), nil
	}

	return externalID, llm.DocumentSource(&llm.Document{
		Name:     filepath.Base(header.Filename),
		MIMEType: llm.DetectMIMEType(header.Filename),
		Data:     data,
	}), nil
}

// Get handles GET /v1/people/{external_id}.
func (h *PeopleHandler) Get(w http.ResponseWriter, r *http.Request) {
	person, err := h.service.GetPerson(r.Context(), r.PathValue("external_id"))
	if err != nil {
		respondServiceError(w, r, err, "person")

		return
	}

	response.RespondJSON(w, http.StatusOK, person)
}

// List handles GET /v1/people?limit=&offset=.
func (h *PeopleHandler) List(w http.ResponseWriter, r *http.Request) {
	var params models.ListParams
	if err := validation.ValidateAndDecodeQueryParams(r, &params); err != nil {
		validation.RespondValidationError(w, err)

		return
	}

	people, err := h.service.ListPeople(r.Context(), params)
	if err != nil {
		respondServiceError(w, r, err, "person")

		return
	}

	response.RespondList(w, people, params.Limit, params.Offset)
}
