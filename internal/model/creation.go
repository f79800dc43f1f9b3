package model

import "time"

// CreationType discriminates ledger rows.
type CreationType string

// Creation types.
const (
	CreationArticle      CreationType = "article"
	CreationBlogTitle    CreationType = "blog-title"
	CreationImage        CreationType = "image"
	CreationResumeReview CreationType = "resume-review"
)

// IsValid reports whether t is a known creation type.
func (t CreationType) IsValid() bool {
	switch t {
	case CreationArticle, CreationBlogTitle, CreationImage, CreationResumeReview:
		return true
	}
	return false
}

// Creation is one completed generation. Rows are insert-only.
type Creation struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	Prompt    string       `json:"prompt"`
	Content   string       `json:"content"`
	Type      CreationType `json:"type"`
	Publish   bool         `json:"publish"`
	CreatedAt time.Time    `json:"created_at"`
}
