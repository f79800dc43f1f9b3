package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/quickai/quickai/internal/auth"
	"github.com/quickai/quickai/internal/handler/dto"
	"github.com/quickai/quickai/internal/service"
)

// DefaultMaxUploadSize bounds multipart bodies held in memory before spilling to disk.
const DefaultMaxUploadSize = 10 << 20

// AIService runs the AI operations.
type AIService interface {
	GenerateArticle(ctx context.Context, req service.ArticleRequest) service.Result
	GenerateBlogTitle(ctx context.Context, req service.BlogTitleRequest) service.Result
	GenerateImage(ctx context.Context, req service.ImageRequest) service.Result
	RemoveBackground(ctx context.Context, req service.BackgroundRemovalRequest) service.Result
	RemoveObject(ctx context.Context, req service.ObjectRemovalRequest) service.Result
	ReviewResume(ctx context.Context, req service.ResumeReviewRequest) service.Result
}

// AIHandler serves /api/ai routes. Every outcome past authentication is
// reported with HTTP 200 and a success flag.
type AIHandler struct {
	svc           AIService
	logger        *slog.Logger
	maxUploadSize int64
}

// NewAIHandler creates a new AIHandler. maxUploadSize <= 0 uses DefaultMaxUploadSize.
func NewAIHandler(svc AIService, logger *slog.Logger, maxUploadSize int64) *AIHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if maxUploadSize <= 0 {
		maxUploadSize = DefaultMaxUploadSize
	}
	return &AIHandler{svc: svc, logger: logger, maxUploadSize: maxUploadSize}
}

// GenerateArticle handles POST /api/ai/generate-article
func (h *AIHandler) GenerateArticle(w http.ResponseWriter, r *http.Request) {
	var req dto.GenerateArticleRequest
	if !h.decode(w, r, &req) {
		return
	}
	writeResult(w, h.svc.GenerateArticle(r.Context(), service.ArticleRequest{
		UserID: auth.UserIDFromContext(r.Context()),
		Prompt: req.Prompt,
		Length: req.Length,
	}))
}

// GenerateBlogTitle handles POST /api/ai/generate-blog-title
func (h *AIHandler) GenerateBlogTitle(w http.ResponseWriter, r *http.Request) {
	var req dto.GenerateBlogTitleRequest
	if !h.decode(w, r, &req) {
		return
	}
	writeResult(w, h.svc.GenerateBlogTitle(r.Context(), service.BlogTitleRequest{
		UserID:   auth.UserIDFromContext(r.Context()),
		Prompt:   req.Prompt,
		Keyword:  req.Keyword,
		Category: req.Category,
	}))
}

// GenerateImage handles POST /api/ai/generate-image
func (h *AIHandler) GenerateImage(w http.ResponseWriter, r *http.Request) {
	var req dto.GenerateImageRequest
	if !h.decode(w, r, &req) {
		return
	}
	writeResult(w, h.svc.GenerateImage(r.Context(), service.ImageRequest{
		UserID:  auth.UserIDFromContext(r.Context()),
		Prompt:  req.Prompt,
		Publish: req.Publish,
	}))
}

// RemoveBackground handles POST /api/ai/remove-background (multipart field "image").
func (h *AIHandler) RemoveBackground(w http.ResponseWriter, r *http.Request) {
	upload, closeFn, ok := h.formFile(w, r, "image")
	if !ok {
		return
	}
	defer closeFn()

	writeResult(w, h.svc.RemoveBackground(r.Context(), service.BackgroundRemovalRequest{
		UserID: auth.UserIDFromContext(r.Context()),
		Image:  upload,
	}))
}

// RemoveObject handles POST /api/ai/remove-object (multipart "image" plus field "object").
func (h *AIHandler) RemoveObject(w http.ResponseWriter, r *http.Request) {
	upload, closeFn, ok := h.formFile(w, r, "image")
	if !ok {
		return
	}
	defer closeFn()

	writeResult(w, h.svc.RemoveObject(r.Context(), service.ObjectRemovalRequest{
		UserID: auth.UserIDFromContext(r.Context()),
		Image:  upload,
		Object: r.FormValue("object"),
	}))
}

// ReviewResume handles POST /api/ai/resume-review (multipart field "resume").
func (h *AIHandler) ReviewResume(w http.ResponseWriter, r *http.Request) {
	upload, closeFn, ok := h.formFile(w, r, "resume")
	if !ok {
		return
	}
	defer closeFn()

	writeResult(w, h.svc.ReviewResume(r.Context(), service.ResumeReviewRequest{
		UserID: auth.UserIDFromContext(r.Context()),
		Resume: upload,
	}))
}

// decode reads a JSON body. On failure it writes a soft failure and
// returns false.
func (h *AIHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.logger.Debug("failed to decode request body",
			"error", err,
			"path", r.URL.Path,
		)
		writeAIFailure(w, "Invalid request body.")
		return false
	}
	return true
}

// formFile parses a multipart upload. A missing file is not an error here:
// the pipeline reports it after the plan gate.
func (h *AIHandler) formFile(w http.ResponseWriter, r *http.Request, field string) (*service.Upload, func(), bool) {
	noop := func() {}
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		h.logger.Debug("failed to parse multipart form",
			"error", err,
			"path", r.URL.Path,
		)
		writeAIFailure(w, "Invalid upload.")
		return nil, noop, false
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, noop, true
		}
		writeAIFailure(w, "Invalid upload.")
		return nil, noop, false
	}

	return uploadFrom(file, header), func() {
		_ = file.Close()
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}, true
}

func uploadFrom(file multipart.File, header *multipart.FileHeader) *service.Upload {
	return &service.Upload{
		Body:     file,
		Filename: strings.TrimSpace(header.Filename),
		Size:     header.Size,
	}
}

func writeResult(w http.ResponseWriter, res service.Result) {
	if res.IsOk() {
		writeJSON(w, http.StatusOK, dto.AIResponse{Success: true, Content: res.Content()})
		return
	}
	writeAIFailure(w, res.Failure().Message)
}

func writeAIFailure(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, dto.AIResponse{Success: false, Message: message})
}
