package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fmuoria/resume-analyzer/internal/agent"
	"github.com/fmuoria/resume-analyzer/internal/api/presenter"
	"github.com/fmuoria/resume-analyzer/internal/export"
	"github.com/fmuoria/resume-analyzer/internal/ingestion"
	"github.com/fmuoria/resume-analyzer/internal/llm"
	"github.com/fmuoria/resume-analyzer/internal/logger"
	"github.com/fmuoria/resume-analyzer/internal/models"
)

const defaultTopCount = 10

// AttachmentSource fetches résumé files from a mailbox
type AttachmentSource interface {
	FetchAttachments(ctx context.Context, subject string) ([]models.UploadedFile, error)
}

// GmailFactory opens an AttachmentSource on demand. Opening is deferred to
// the request so a server can start before the mailbox is authorised.
type GmailFactory func(ctx context.Context) (AttachmentSource, error)

// Handler serves the résumé analysis endpoints
type Handler struct {
	agent    *agent.ResumeAgent
	llm      *llm.Client
	gmail    GmailFactory
	validate *validator.Validate
	logger   *zap.Logger
}

// NewHandler creates the handler set. gmail may be nil, which disables the
// Gmail import endpoint.
func NewHandler(a *agent.ResumeAgent, client *llm.Client, gmail GmailFactory, log *zap.Logger) *Handler {
	return &Handler{
		agent:    a,
		llm:      client,
		gmail:    gmail,
		validate: newValidator(),
		logger:   logger.OrNop(log),
	}
}

// newValidator reports fields by their JSON names
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type configureRequest struct {
	APIKey   string `json:"apiKey" validate:"required"`
	Provider string `json:"provider" validate:"omitempty,oneof=openai gemini qwen vertex"`
}

type analyzeRequest struct {
	JobRequirement models.JobRequirement `json:"jobRequirement"`
}

type gmailRequest struct {
	Subject string `json:"subject" validate:"required"`
}

// Configure activates an LLM provider with the given API key
func (h *Handler) Configure(c *fiber.Ctx) error {
	var req configureRequest
	if err := c.BodyParser(&req); err != nil {
		return presenter.Error(c, http.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return presenter.Error(c, http.StatusBadRequest, validationMessage(err))
	}

	if err := h.llm.Configure(c.UserContext(), llm.Kind(req.Provider), req.APIKey); err != nil {
		if errors.Is(err, llm.ErrEmptyAPIKey) {
			return presenter.Error(c, http.StatusBadRequest, "API key cannot be empty")
		}
		kind := req.Provider
		if kind == "" {
			kind = string(h.llm.DefaultKind())
		}
		// Provider errors can carry local paths, e.g. a missing Vertex credentials file.
		h.logger.Warn("llm configuration failed", zap.String(logger.FieldProvider, kind), zap.Error(err))
		return presenter.Error(c, http.StatusBadRequest, fmt.Sprintf("failed to configure %s provider", kind))
	}

	status := h.llm.Status()
	return presenter.JSON(c, http.StatusOK, fiber.Map{
		"message":  "API key configured successfully",
		"provider": status.CurrentProvider,
		"model":    status.CurrentModel,
	})
}

// LLMStatus reports whether a provider is configured
func (h *Handler) LLMStatus(c *fiber.Ctx) error {
	return presenter.JSON(c, http.StatusOK, h.llm.Status())
}

// LLMConfig reports the active provider settings without exposing the key
func (h *Handler) LLMConfig(c *fiber.Ctx) error {
	status := h.llm.Status()
	return presenter.JSON(c, http.StatusOK, fiber.Map{
		"provider":  status.CurrentProvider,
		"model":     status.CurrentModel,
		"hasApiKey": status.IsConfigured,
	})
}

// CreateSession starts an empty analysis session
func (h *Handler) CreateSession(c *fiber.Ctx) error {
	id := h.agent.CreateSession()
	return presenter.JSON(c, http.StatusOK, fiber.Map{"sessionId": id})
}

// DeleteSession drops a session and everything in it
func (h *Handler) DeleteSession(c *fiber.Ctx) error {
	id, err := sessionID(c)
	if err != nil {
		return presenter.Error(c, http.StatusBadRequest, err.Error())
	}

	h.agent.DeleteSession(id)
	return c.SendStatus(http.StatusNoContent)
}

// Upload extracts and parses the multipart "files" into the session
func (h *Handler) Upload(c *fiber.Ctx) error {
	id, err := sessionID(c)
	if err != nil {
		return presenter.Error(c, http.StatusBadRequest, err.Error())
	}

	form, err := c.MultipartForm()
	if err != nil || len(form.File["files"]) == 0 {
		return presenter.Error(c, http.StatusBadRequest, "no files uploaded")
	}

	files := make([]models.UploadedFile, 0, len(form.File["files"]))
	for _, fh := range form.File["files"] {
		data, err := readFormFile(fh)
		if err != nil {
			return presenter.Error(c, http.StatusBadRequest, err.Error())
		}
		files = append(files, models.UploadedFile{Name: fh.Filename, Data: data})
	}

	summary := h.agent.UploadCandidates(c.UserContext(), id, files)
	return presenter.JSON(c, http.StatusOK, summary)
}

// Candidates lists the session's candidates
func (h *Handler) Candidates(c *fiber.Ctx) error {
	id, err := sessionID(c)
	if err != nil {
		return presenter.Error(c, http.StatusBadRequest, err.Error())
	}
	return presenter.JSON(c, http.StatusOK, h.agent.Candidates(id))
}

// Analyze scores every candidate of the session against the job requirement.
// Omitted weights default to 40/40/20.
func (h *Handler) Analyze(c *fiber.Ctx) error {
	id, err := sessionID(c)
	if err != nil {
		return presenter.Error(c, http.StatusBadRequest, err.Error())
	}

	req := analyzeRequest{JobRequirement: models.DefaultJobRequirement()}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return presenter.Error(c, http.StatusBadRequest, "invalid request body")
		}
	}
	if err := h.validate.Struct(req); err != nil {
		return presenter.Error(c, http.StatusBadRequest, validationMessage(err))
	}

	result, err := h.agent.AnalyzeBatch(c.UserContext(), id, req.JobRequirement)
	if err != nil {
		return presenter.Error(c, analyzeStatus(err), err.Error())
	}
	return presenter.JSON(c, http.StatusOK, result)
}

// Results returns the session's latest ranking
func (h *Handler) Results(c *fiber.Ctx) error {
	id, err := sessionID(c)
	if err != nil {
		return presenter.Error(c, http.StatusBadRequest, err.Error())
	}
	return presenter.JSON(c, http.StatusOK, h.agent.Results(id))
}

// TopCandidates returns the best "count" results, 10 by default
func (h *Handler) TopCandidates(c *fiber.Ctx) error {
	id, err := sessionID(c)
	if err != nil {
		return presenter.Error(c, http.StatusBadRequest, err.Error())
	}
	return presenter.JSON(c, http.StatusOK, h.agent.TopCandidates(id, c.QueryInt("count", defaultTopCount)))
}

// Export streams the session's results as an xlsx workbook
func (h *Handler) Export(c *fiber.Ctx) error {
	id, err := sessionID(c)
	if err != nil {
		return presenter.Error(c, http.StatusBadRequest, err.Error())
	}
	if !h.agent.SessionExists(id) {
		return presenter.Error(c, http.StatusNotFound, agent.ErrSessionNotFound.Error())
	}

	var buf bytes.Buffer
	if err := export.WriteExcel(&buf, h.agent.Results(id), nil); err != nil {
		h.logger.Error("export failed", zap.String(logger.FieldSession, id.String()), zap.Error(err))
		return presenter.Error(c, http.StatusInternalServerError, "failed to build report")
	}

	c.Attachment(fmt.Sprintf("resume_analysis_%s.xlsx", time.Now().Format("20060102_150405")))
	return c.Send(buf.Bytes())
}

// ImportGmail pulls attachments of matching messages into the session
func (h *Handler) ImportGmail(c *fiber.Ctx) error {
	id, err := sessionID(c)
	if err != nil {
		return presenter.Error(c, http.StatusBadRequest, err.Error())
	}
	if h.gmail == nil {
		return presenter.Error(c, http.StatusNotImplemented, "gmail ingestion is not configured")
	}

	var req gmailRequest
	if err := c.BodyParser(&req); err != nil {
		return presenter.Error(c, http.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return presenter.Error(c, http.StatusBadRequest, validationMessage(err))
	}

	ctx := c.UserContext()
	source, err := h.gmail(ctx)
	if err != nil {
		if errors.Is(err, ingestion.ErrGmailTokenMissing) {
			return presenter.Error(c, http.StatusBadRequest, err.Error())
		}
		h.logger.Error("gmail source unavailable", zap.Error(err))
		return presenter.Error(c, http.StatusInternalServerError, err.Error())
	}

	files, err := source.FetchAttachments(ctx, req.Subject)
	if err != nil {
		if errors.Is(err, ingestion.ErrNoMessages) {
			return presenter.Error(c, http.StatusNotFound, err.Error())
		}
		return presenter.Error(c, http.StatusBadGateway, err.Error())
	}

	summary := h.agent.UploadCandidates(ctx, id, files)
	return presenter.JSON(c, http.StatusOK, summary)
}

// Health answers liveness checks
func (h *Handler) Health(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
}

func sessionID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid session id: %q", c.Params("id"))
	}
	return id, nil
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file %s: %w", fh.Filename, err)
	}
	return data, nil
}

// analyzeStatus maps the fatal AnalyzeBatch errors to HTTP statuses
func analyzeStatus(err error) int {
	switch {
	case errors.Is(err, agent.ErrNotConfigured), errors.Is(err, agent.ErrNoCandidates):
		return http.StatusBadRequest
	case errors.Is(err, agent.ErrSessionNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// validationMessage reports the first failed rule
func validationMessage(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		return fmt.Sprintf("validation error: %s - %s", ve[0].Field(), ve[0].Tag())
	}
	return "validation error: invalid request"
}
