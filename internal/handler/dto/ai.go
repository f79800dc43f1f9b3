// Package dto provides Data Transfer Objects for API requests and responses.
package dto

// AI request bodies are decoded only. Field checks run in the pipeline after
// the plan and quota gate.

// GenerateArticleRequest is the body of POST /api/ai/generate-article.
type GenerateArticleRequest struct {
	Prompt string `json:"prompt"`
	Length int    `json:"length"`
}

// GenerateBlogTitleRequest is the body of POST /api/ai/generate-blog-title.
// Either prompt or keyword must be given.
type GenerateBlogTitleRequest struct {
	Prompt   string `json:"prompt"`
	Keyword  string `json:"keyword"`
	Category string `json:"category"`
}

// GenerateImageRequest is the body of POST /api/ai/generate-image.
type GenerateImageRequest struct {
	Prompt  string `json:"prompt"`
	Publish bool   `json:"publish"`
}

// AIResponse is the envelope of every AI route. Failures are reported with
// success=false and HTTP 200.
type AIResponse struct {
	Success bool   `json:"success"`
	Content string `json:"content,omitempty"`
	Message string `json:"message,omitempty"`
}
