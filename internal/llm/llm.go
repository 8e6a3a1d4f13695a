package llm

import "context"

// Draft is one generated script candidate.
type Draft struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Script      string `json:"script"`
	WordCount   int    `json:"wordCount"`
}

type DraftRequest struct {
	TopicName        string
	TopicDescription string
	HookStyle        string
	WordCount        int
}

// Client is the language-model boundary. ValidateDraft returns the raw model
// output; the caller owns the parse-then-sanitize step because validator
// responses are advisory and may be malformed.
type Client interface {
	GenerateDraft(ctx context.Context, req DraftRequest) (*Draft, error)
	ValidateDraft(ctx context.Context, draft *Draft) (string, error)
	GenerateImagePrompts(ctx context.Context, script string, count int) ([]string, error)
}
