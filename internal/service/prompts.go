package service

import "fmt"

// Token budgets per operation.
const (
	BlogTitleMaxTokens    = 300
	ResumeReviewMaxTokens = 1000
)

// Fixed ledger prompts for operations without a user prompt.
const (
	PromptBackgroundRemoval = "Remove background from image"
	PromptResumeReview      = "AI Resume Review"
)

const resumeReviewTemplate = `Review this resume and provide professional, actionable feedback.
Identify key strengths, weaknesses, missing information, formatting issues, and improvement suggestions.

Resume content:
%s`

func blogTitlePrompt(keyword, category string) string {
	if category == "" {
		return fmt.Sprintf("Generate a blog title for the keyword %s", keyword)
	}
	return fmt.Sprintf("Generate a blog title for the keyword %s in the category %s", keyword, category)
}

func resumeReviewPrompt(text string) string {
	return fmt.Sprintf(resumeReviewTemplate, text)
}

func objectRemovalPrompt(object string) string {
	return fmt.Sprintf("Removed %s from image", object)
}
