package llm

import (
	"context"
	"errors"
	"fmt"
)

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

type Message struct {
	Role    string
	Content string
}

type Response struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CallOption tunes a single request.
type CallOption func(*callOptions)

type callOptions struct {
	maxTokens int
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(n int) CallOption {
	return func(o *callOptions) { o.maxTokens = n }
}

func applyOptions(opts []CallOption) callOptions {
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Client produces free text.
type Client interface {
	Generate(ctx context.Context, messages []Message, opts ...CallOption) (Response, error)
}

// StructuredClient fills target (a pointer to a struct) from a JSON schema
// derived from its type. A refusal is reported as a *RefusalError.
type StructuredClient interface {
	GenerateStructured(ctx context.Context, messages []Message, schemaName string, target any) error
}

// VisionClient describes an image.
type VisionClient interface {
	DescribeImage(ctx context.Context, image []byte, mimeType string) (string, error)
}

var (
	ErrRefusal       = errors.New("model refused")
	ErrEmptyResponse = errors.New("empty model response")
)

// RefusalError carries the provider's refusal text. It is terminal and not
// worth retrying.
type RefusalError struct {
	Reason string
}

func (e *RefusalError) Error() string {
	return fmt.Sprintf("model refused: %s", e.Reason)
}

func (e *RefusalError) Is(target error) bool { return target == ErrRefusal }
