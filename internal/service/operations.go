package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"

	"github.com/quickai/quickai/internal/document"
	"github.com/quickai/quickai/internal/imaging"
	"github.com/quickai/quickai/internal/model"
)

// Operation names one kind of AI request.
type Operation string

// Operations.
const (
	OpArticle               Operation = "article"
	OpBlogTitle             Operation = "blog-title"
	OpImageGenerate         Operation = "image-generate"
	OpImageBackgroundRemove Operation = "image-background-remove"
	OpImageObjectRemove     Operation = "image-object-remove"
	OpResumeReview          Operation = "resume-review"
)

// Input limits.
const (
	MaxPromptLength  = 4000
	MaxObjectLength  = 50
	MaxArticleLength = 4096
)

// ArticleRequest asks for an article of roughly Length tokens.
type ArticleRequest struct {
	UserID string
	Prompt string
	Length int
}

// BlogTitleRequest asks for blog titles. Prompt wins over Keyword and
// Category when both are given.
type BlogTitleRequest struct {
	UserID   string
	Prompt   string
	Keyword  string
	Category string
}

// ImageRequest asks for a generated image.
type ImageRequest struct {
	UserID  string
	Prompt  string
	Publish bool
}

// Upload is a file received from the caller. A nil *Upload means no file.
type Upload struct {
	Body     io.ReadSeeker
	Filename string
	Size     int64
}

// BackgroundRemovalRequest asks to strip the background from Image.
type BackgroundRemovalRequest struct {
	UserID string
	Image  *Upload
}

// ObjectRemovalRequest asks to erase Object from Image.
type ObjectRemovalRequest struct {
	UserID string
	Image  *Upload
	Object string
}

// ResumeReviewRequest asks for feedback on a PDF resume.
type ResumeReviewRequest struct {
	UserID string
	Resume *Upload
}

// GenerateArticle writes an article from a prompt.
func (p *Pipeline) GenerateArticle(ctx context.Context, req ArticleRequest) Result {
	r := &run{
		op:           OpArticle,
		userID:       req.UserID,
		gate:         GateFreeQuota,
		ledgerPrompt: strings.TrimSpace(req.Prompt),
		maxTokens:    req.Length,
		creation:     model.CreationArticle,
		call:         p.completeText,
	}
	r.callPrompt = r.ledgerPrompt
	return p.execute(ctx, r, func(_ context.Context, r *run) *Failure {
		if f := validatePrompt(r.callPrompt); f != nil {
			return f
		}
		if r.maxTokens < 0 || r.maxTokens > MaxArticleLength {
			return fail(KindInvalidInput, fmt.Sprintf("Length must be between 1 and %d.", MaxArticleLength), nil)
		}
		return nil
	})
}

// GenerateBlogTitle suggests blog titles for a prompt or keyword.
func (p *Pipeline) GenerateBlogTitle(ctx context.Context, req BlogTitleRequest) Result {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" && strings.TrimSpace(req.Keyword) != "" {
		prompt = blogTitlePrompt(strings.TrimSpace(req.Keyword), strings.TrimSpace(req.Category))
	}
	r := &run{
		op:           OpBlogTitle,
		userID:       req.UserID,
		gate:         GateFreeQuota,
		ledgerPrompt: prompt,
		callPrompt:   prompt,
		maxTokens:    BlogTitleMaxTokens,
		creation:     model.CreationBlogTitle,
		call:         p.completeText,
	}
	return p.execute(ctx, r, func(_ context.Context, r *run) *Failure {
		return validatePrompt(r.callPrompt)
	})
}

// GenerateImage renders an image from a prompt and hosts it.
func (p *Pipeline) GenerateImage(ctx context.Context, req ImageRequest) Result {
	r := &run{
		op:           OpImageGenerate,
		userID:       req.UserID,
		gate:         GatePremium,
		ledgerPrompt: strings.TrimSpace(req.Prompt),
		creation:     model.CreationImage,
		publish:      req.Publish,
	}
	r.callPrompt = r.ledgerPrompt
	r.call = func(ctx context.Context, r *run) error {
		if p.generator == nil || p.store == nil {
			return imaging.ErrNotConfigured
		}
		data, err := p.generator.Generate(ctx, r.callPrompt)
		if err != nil {
			return err
		}
		if len(data) == 0 {
			return imaging.ErrEmptyImage
		}
		mt := mimetype.Detect(data)
		url, err := p.store.Put(ctx, imaging.ObjectKey(r.userID, mt.Extension()), data, mt.String())
		if err != nil {
			return err
		}
		r.content = url
		r.hosted = true
		return nil
	}
	return p.execute(ctx, r, func(_ context.Context, r *run) *Failure {
		return validatePrompt(r.callPrompt)
	})
}

// RemoveBackground strips the background from an uploaded image.
func (p *Pipeline) RemoveBackground(ctx context.Context, req BackgroundRemovalRequest) Result {
	r := &run{
		op:           OpImageBackgroundRemove,
		userID:       req.UserID,
		gate:         GatePremium,
		ledgerPrompt: PromptBackgroundRemoval,
		creation:     model.CreationImage,
	}
	r.call = func(ctx context.Context, r *run) error {
		if p.editor == nil {
			return imaging.ErrNotConfigured
		}
		url, err := p.editor.RemoveBackground(ctx, req.Image.Body)
		if err != nil {
			return err
		}
		r.content = url
		r.hosted = true
		return nil
	}
	return p.execute(ctx, r, func(_ context.Context, _ *run) *Failure {
		return requireImage(req.Image)
	})
}

// RemoveObject erases a named object from an uploaded image.
func (p *Pipeline) RemoveObject(ctx context.Context, req ObjectRemovalRequest) Result {
	object := strings.TrimSpace(req.Object)
	r := &run{
		op:           OpImageObjectRemove,
		userID:       req.UserID,
		gate:         GatePremium,
		ledgerPrompt: objectRemovalPrompt(object),
		creation:     model.CreationImage,
	}
	r.call = func(ctx context.Context, r *run) error {
		if p.editor == nil {
			return imaging.ErrNotConfigured
		}
		url, err := p.editor.RemoveObject(ctx, req.Image.Body, object)
		if err != nil {
			return err
		}
		r.content = url
		r.hosted = true
		return nil
	}
	return p.execute(ctx, r, func(_ context.Context, _ *run) *Failure {
		if f := validateObject(object); f != nil {
			return f
		}
		return requireImage(req.Image)
	})
}

// ReviewResume extracts text from a PDF resume and asks for feedback.
func (p *Pipeline) ReviewResume(ctx context.Context, req ResumeReviewRequest) Result {
	r := &run{
		op:           OpResumeReview,
		userID:       req.UserID,
		gate:         GateNone,
		ledgerPrompt: PromptResumeReview,
		maxTokens:    ResumeReviewMaxTokens,
		creation:     model.CreationResumeReview,
		call:         p.completeText,
		failMessage:  MsgExtractionFailed,
	}
	return p.execute(ctx, r, func(ctx context.Context, r *run) *Failure {
		if req.Resume == nil || req.Resume.Body == nil {
			return fail(KindNoFileUploaded, MsgNoFileUploaded, nil)
		}
		if p.extractor == nil {
			return fail(KindExtractionFailed, MsgExtractionFailed, document.ErrExtractionFailed)
		}
		text, err := p.extractor.Extract(ctx, req.Resume.Body)
		if err != nil {
			return classify(err)
		}
		r.callPrompt = resumeReviewPrompt(text)
		return nil
	})
}

func (p *Pipeline) completeText(ctx context.Context, r *run) error {
	text, err := p.completer.Complete(ctx, r.callPrompt, r.maxTokens)
	if err != nil {
		return err
	}
	r.content = text
	return nil
}

func validatePrompt(prompt string) *Failure {
	if prompt == "" {
		return fail(KindInvalidInput, "Prompt is required.", nil)
	}
	if utf8.RuneCountInString(prompt) > MaxPromptLength {
		return fail(KindInvalidInput, fmt.Sprintf("Prompt must be at most %d characters.", MaxPromptLength), nil)
	}
	return nil
}

func validateObject(object string) *Failure {
	if object == "" {
		return fail(KindInvalidInput, "Object name is required.", nil)
	}
	if utf8.RuneCountInString(object) > MaxObjectLength || strings.ContainsAny(object, ",;") {
		return fail(KindInvalidInput, "Please describe a single object to remove.", nil)
	}
	return nil
}

func requireImage(u *Upload) *Failure {
	if u == nil || u.Body == nil {
		return fail(KindNoFileUploaded, MsgNoFileUploaded, nil)
	}
	if _, err := document.RequireImage(u.Body); err != nil {
		return classify(err)
	}
	return nil
}
