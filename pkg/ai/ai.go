package ai

import "context"

// AiInterface is the text completion surface the lyrics lookup needs.
type AiInterface interface {
	Name() string
	HandleText(ctx context.Context, msg string) (string, error)
}
